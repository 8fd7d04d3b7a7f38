// Package mmap maps files read-only into memory.
//
// The local blob store serves archived payload objects and snapshots through
// a Map, so repeated reads come straight from the page cache without copying
// through read(2) buffers.
//
//	m, err := mmap.OpenFile("payloads/000123.bin")
//	if err != nil { ... }
//	defer m.Close()
//	m.Hint(mmap.HintSequential)
//	data := m.Data()
//
// Unix platforms map with mmap(2) and forward hints to madvise(2). Windows
// uses CreateFileMapping/MapViewOfFile and ignores hints.
//
// A Map is safe for concurrent reads. Close is idempotent, but callers must
// stop touching Data slices before closing.
package mmap
