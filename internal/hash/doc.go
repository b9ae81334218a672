// Package hash provides the checksum used by every persisted vecstream format.
//
// Source vector files and built segments end with a CRC32-Castagnoli (CRC32C)
// footer over all preceding bytes. Go's crc32 package uses the SSE4.2 / ARM CRC
// instructions for this polynomial when they are available.
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// For streaming checksums:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
package hash
