package snapshot

import (
	"errors"
	"fmt"

	"github.com/hupe1980/histogo/internal/hash"
)

// ComputeChecksum returns the CRC32C checksum guarding a snapshot section.
// It catches torn writes and bit rot, not tampering.
func ComputeChecksum(data []byte) uint32 {
	return hash.CRC32C(data)
}

// ChecksumMismatchError reports a section whose payload no longer matches
// the checksum recorded in its header.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("snapshot checksum mismatch: header 0x%08x, computed 0x%08x", e.Expected, e.Actual)
}

// IsChecksumMismatch reports whether err, or any error it wraps, is a
// *ChecksumMismatchError.
func IsChecksumMismatch(err error) bool {
	var mismatch *ChecksumMismatchError
	return errors.As(err, &mismatch)
}
