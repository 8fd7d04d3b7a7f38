package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is what injected faults return unless a rule carries its own
// error.
var ErrInjected = errors.New("injected fault")

// Fault describes how a matched file misbehaves. The zero value injects
// nothing.
type Fault struct {
	// WriteLimit fails any write that would carry the file's running total
	// past this many bytes. Zero disables the limit.
	WriteLimit int64

	FailSync  bool
	FailClose bool

	// Err overrides ErrInjected for this rule.
	Err error
}

type rule struct {
	substr string
	fault  Fault
}

// FaultyFS wraps another FileSystem and injects failures into files it
// opens. It drives the crash-safety tests for snapshot persistence.
type FaultyFS struct {
	inner FileSystem

	mu      sync.Mutex
	rules   []rule
	budget  int64 // total bytes all files may accept, negative is unlimited
	written int64
}

// NewFaultyFS wraps fsys, or Default when fsys is nil. A fresh FaultyFS
// injects nothing until SetLimit or Inject is called.
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	if fsys == nil {
		fsys = Default
	}
	return &FaultyFS{inner: fsys, budget: -1}
}

// SetLimit caps the total bytes written across all files; once the cap is
// hit every further write fails with ErrInjected. A zero limit fails all
// writes, a negative one removes the cap.
func (f *FaultyFS) SetLimit(limit int64) {
	f.mu.Lock()
	f.budget = limit
	f.mu.Unlock()
}

// Written returns the bytes accepted so far under the global limit.
func (f *FaultyFS) Written() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

// Inject applies fault to every file whose name contains substr. Later
// rules win when several match.
func (f *FaultyFS) Inject(substr string, fault Fault) {
	f.mu.Lock()
	f.rules = append(f.rules, rule{substr: substr, fault: fault})
	f.mu.Unlock()
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.inner.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}

	var fault Fault
	f.mu.Lock()
	for _, r := range f.rules {
		if strings.Contains(name, r.substr) {
			fault = r.fault
		}
	}
	f.mu.Unlock()
	if fault.Err == nil {
		fault.Err = ErrInjected
	}

	return &faultyFile{File: file, owner: f, fault: fault}, nil
}

func (f *FaultyFS) Remove(name string) error { return f.inner.Remove(name) }

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	return f.inner.Rename(oldpath, newpath)
}

// charge consumes n bytes of the global budget, failing when it would
// overrun.
func (f *FaultyFS) charge(n int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.budget >= 0 && f.written+n > f.budget {
		return false
	}
	f.written += n
	return true
}

type faultyFile struct {
	File
	owner   *FaultyFS
	fault   Fault
	written int64
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	n := int64(len(p))
	if ff.fault.WriteLimit > 0 && ff.written+n > ff.fault.WriteLimit {
		return 0, ff.fault.Err
	}
	if !ff.owner.charge(n) {
		return 0, ff.fault.Err
	}

	written, err := ff.File.Write(p)
	ff.written += int64(written)
	return written, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailSync {
		return ff.fault.Err
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailClose {
		_ = ff.File.Close()
		return ff.fault.Err
	}
	return ff.File.Close()
}
