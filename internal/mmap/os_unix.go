//go:build unix

package mmap

import "golang.org/x/sys/unix"

func sysMap(fd uintptr, size int) ([]byte, error) {
	return unix.Mmap(int(fd), 0, size, unix.PROT_READ, unix.MAP_SHARED)
}

func sysUnmap(data []byte) error {
	return unix.Munmap(data)
}

func sysHint(data []byte, h Hint) error {
	advice := unix.MADV_NORMAL
	switch h {
	case HintSequential:
		advice = unix.MADV_SEQUENTIAL
	case HintRandom:
		advice = unix.MADV_RANDOM
	case HintWillNeed:
		advice = unix.MADV_WILLNEED
	case HintDontNeed:
		advice = unix.MADV_DONTNEED
	}

	// madvise wants page-aligned addresses on Linux; the hint is advisory,
	// so an alignment rejection is not worth surfacing.
	if err := unix.Madvise(data, advice); err != nil && err != unix.EINVAL {
		return err
	}
	return nil
}
