// Package hash wraps the CRC32-Castagnoli checksum used for snapshot
// sections and upload trailers.
//
// Castagnoli detects more error patterns than CRC32-IEEE and has dedicated
// instructions on both amd64 and arm64, so checksumming stays cheap even
// for megabyte archives.
package hash
