package model

import (
	"fmt"
)

// DocID identifies a document within a segment.
// Sources yield DocIDs in strictly increasing order.
type DocID uint32

// Handle is an opaque reference to a buffer owned by the native layer.
//
// The streaming pipeline only forwards handles; it never inspects or
// modifies the numeric value. NoHandle means no buffer has been allocated.
type Handle uint64

// NoHandle is the sentinel for "no native buffer allocated yet".
const NoHandle Handle = 0

// IsZero reports whether h is the NoHandle sentinel.
func (h Handle) IsZero() bool {
	return h == NoHandle
}

// String returns a string representation of the Handle.
func (h Handle) String() string {
	if h == NoHandle {
		return "Handle(none)"
	}
	return fmt.Sprintf("Handle(%#x)", uint64(h))
}

// SerializationMode describes how vectors were encoded for transfer.
type SerializationMode uint8

const (
	// CollectionOfFloats transfers each vector as its own float32 array.
	CollectionOfFloats SerializationMode = iota
	// CollectionOfVectors transfers vectors as a packed contiguous slab.
	CollectionOfVectors
)

func (m SerializationMode) String() string {
	switch m {
	case CollectionOfFloats:
		return "CollectionOfFloats"
	case CollectionOfVectors:
		return "CollectionOfVectors"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// BytesPerFloat32 is the width of a single vector component on the wire.
const BytesPerFloat32 = 4
