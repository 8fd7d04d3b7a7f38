package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

var (
	// ErrClosed is returned when a closed Map is accessed.
	ErrClosed = errors.New("mmap: closed")

	// ErrBadOffset is returned by ReadAt for a negative offset.
	ErrBadOffset = errors.New("mmap: negative offset")
)

// Map is a read-only memory mapping of one file. The mapped bytes stay valid
// until Close; they must never be written to.
type Map struct {
	data []byte
	done atomic.Bool
}

// OpenFile maps the file at path read-only. An empty file yields a valid Map
// with no data.
func OpenFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return &Map{}, nil
	}
	if size != int64(int(size)) {
		return nil, errors.New("mmap: file too large for address space")
	}

	data, err := sysMap(f.Fd(), int(size))
	if err != nil {
		return nil, err
	}
	return &Map{data: data}, nil
}

// Data returns the mapped bytes, or nil after Close.
func (m *Map) Data() []byte {
	if m.done.Load() {
		return nil
	}
	return m.data
}

// Len returns the mapped size in bytes.
func (m *Map) Len() int { return len(m.data) }

// Close releases the mapping. Calling it again is a no-op. Slices handed out
// by Data must not be touched after Close returns.
func (m *Map) Close() error {
	if m.done.Swap(true) {
		return nil
	}
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return sysUnmap(data)
}

// Hint advises the kernel about the expected access pattern. Hints are best
// effort; an unsupported hint is silently ignored.
func (m *Map) Hint(h Hint) error {
	if m.done.Load() {
		return ErrClosed
	}
	if len(m.data) == 0 {
		return nil
	}
	return sysHint(m.data, h)
}

// ReadAt implements io.ReaderAt over the mapped bytes.
func (m *Map) ReadAt(p []byte, off int64) (int, error) {
	if m.done.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrBadOffset
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
