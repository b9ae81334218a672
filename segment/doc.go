// Package segment builds and reads flat vector index files.
//
// Builder implements native.IndexBuilder: it reads a fully transferred native
// buffer, writes it as a segment file to a blobstore.BlobStore, registers the
// result in a catalog.Catalog and releases the native buffer.
//
// File layout (little-endian):
//
//	header      magic "VSEG", version u16, compression u8, metric u8,
//	            dim u32, count u32, vectors per block u32, block count u32,
//	            reserved [8]byte
//	doc ids     framed block of count u32 values
//	blocks      block count framed blocks of float32 vectors
//	table       block count u64 block offsets
//	trailer     table offset u64, crc32c u32, magic "VSEG"
//
// Framed blocks are produced by internal/compress. The checksum covers every
// byte before it.
package segment
