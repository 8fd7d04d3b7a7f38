package fs

import (
	"io"
	"os"
)

// File is the subset of *os.File the persistence paths touch.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Sync() error
}

// FileSystem is the seam between snapshot persistence and the disk. The
// production implementation is a thin wrapper over package os; tests swap in
// FaultyFS to rehearse write failures.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
}

type osFS struct{}

func (osFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(name, flag, perm)
}

func (osFS) Remove(name string) error             { return os.Remove(name) }
func (osFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

// Default is the real file system. Helpers accept nil as an alias for it.
var Default FileSystem = osFS{}

// WriteFileAtomic replaces the file at path without ever exposing a partial
// write: data goes to a temporary sibling, is synced, and only then renamed
// over the target. On failure the previous file, if any, is untouched.
func WriteFileAtomic(fsys FileSystem, path string, data []byte, perm os.FileMode) (err error) {
	if fsys == nil {
		fsys = Default
	}

	tmp := path + ".tmp"
	f, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	// The rename must not make data visible before it is on disk.
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return fsys.Rename(tmp, path)
}

// ReadFile returns the contents of the file at path.
func ReadFile(fsys FileSystem, path string) ([]byte, error) {
	if fsys == nil {
		fsys = Default
	}

	f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
