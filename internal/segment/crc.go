package segment

import "github.com/klauspost/crc32"

// castagnoliTable is the CRC32C (Castagnoli) polynomial table the segment
// framing format checksums against. klauspost/crc32 picks a SSE4.2/ARM64
// hardware-accelerated implementation when available, falling back to a
// slicing-by-8 software table otherwise - the same checksum either way.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// checksum computes the CRC32C of b.
func checksum(b []byte) uint32 {
	return crc32.Checksum(b, castagnoliTable)
}
