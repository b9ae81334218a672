package mem

import (
	"unsafe"
)

// Alignment is the byte alignment of every allocation (one cache line).
const Alignment = 64

// AllocAligned allocates a byte slice of the given size with 64-byte alignment.
// Returns nil for non-positive sizes.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	buf := make([]byte, size+Alignment)

	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // unsafe is required for memory alignment
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return buf[offset : offset+uintptr(size)]
}

// AllocAlignedFloat32 allocates a float32 slice of n elements with 64-byte alignment.
// Returns nil for non-positive n.
func AllocAlignedFloat32(n int) []float32 {
	if n <= 0 {
		return nil
	}

	b := AllocAligned(n * 4)
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n) //nolint:gosec // 64-byte alignment implies 4-byte alignment
}

// Float32Bytes reinterprets a float32 slice as its underlying bytes without copying.
func Float32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4) //nolint:gosec // view over the same backing array
}

// BytesFloat32 reinterprets a byte slice as float32 values without copying.
// len(b) must be a multiple of 4 and b must be 4-byte aligned.
func BytesFloat32(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4) //nolint:gosec // caller guarantees alignment
}
