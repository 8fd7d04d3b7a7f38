//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func sysMap(fd uintptr, size int) ([]byte, error) {
	h, err := windows.CreateFileMapping(windows.Handle(fd), nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		return nil, err
	}
	// The view keeps its own reference; the mapping handle is not needed
	// once the view exists.
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func sysUnmap(data []byte) error {
	return windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&data[0])))
}

func sysHint([]byte, Hint) error {
	// No madvise equivalent; the page cache handles it.
	return nil
}
