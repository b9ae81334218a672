// Package mmap provides memory-mapped file access and anonymous off-heap
// allocations.
//
// File mappings back the vector-file source and local blob reads. Anonymous
// mappings back the native vector buffers, so large slabs of vector data never
// live on the Go heap.
//
// # Usage
//
//	m, err := mmap.Open("vectors.vsrc")
//	if err != nil { ... }
//	defer m.Close()
//
//	buf, err := mmap.Anonymous(1 << 20)
//	if err != nil { ... }
//	defer buf.Close()
package mmap
