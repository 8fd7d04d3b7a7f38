package hash

import "hash/crc32"

// castagnoli is built once and shared by every caller.
var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the Castagnoli checksum of data in one shot.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}
