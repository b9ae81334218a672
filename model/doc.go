// Package model defines the core types shared by the streaming pipeline,
// the vector sources and the native layer.
//
// # Identity Types
//
//   - DocID: Segment-local document identifier (uint32), ascending per stream
//   - Handle: Opaque identifier of a buffer owned by the native layer (uint64)
//
// # Encoding
//
//   - SerializationMode: How vectors were encoded when crossing the transfer boundary
package model
