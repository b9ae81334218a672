// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Heap-backed native buffers use 64-byte aligned float32 slabs so that the
// index builder can read them with the same alignment guarantees as the
// off-heap (mmap) buffers.
package mem
