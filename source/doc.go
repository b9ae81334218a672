// Package source defines the vector source contract consumed by the
// streaming pipeline and provides two implementations.
//
// A Source reports its live-document count up front and hands out a
// forward-only Iterator over (DocID, vector) pairs in ascending DocID order.
// The slice returned by Iterator.Vector is only valid until the next call to
// Next: implementations reuse their backing storage, and consumers that keep
// a vector must copy it.
//
//   - Memory: an in-memory document store with a Roaring bitmap of deletions
//   - File: a memory-mapped vector file written by WriteFile
package source
