package segment

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/vecstream/distance"
	"github.com/hupe1980/vecstream/internal/compress"
)

const (
	// Magic identifies segment files.
	Magic = "VSEG"
	// Version is the current file format version.
	Version = 1

	headerSize  = 32
	trailerSize = 16

	// DefaultVectorsPerBlock is the default number of vectors per block.
	DefaultVectorsPerBlock = 4096
)

var (
	ErrInvalidMagic   = errors.New("segment: invalid magic")
	ErrInvalidVersion = errors.New("segment: unsupported version")
	ErrChecksum       = errors.New("segment: checksum mismatch")
	ErrCorrupt        = errors.New("segment: corrupt file")
)

// Header describes a segment file.
type Header struct {
	Version         uint16
	Compression     compress.Type
	Metric          distance.Metric
	Dim             int
	Count           int
	VectorsPerBlock int
	Blocks          int
}

func blockCount(count, perBlock int) int {
	if count == 0 {
		return 0
	}
	return (count + perBlock - 1) / perBlock
}

func (h *Header) encode() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], Magic)
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	buf[6] = byte(h.Compression)
	buf[7] = byte(h.Metric)
	binary.LittleEndian.PutUint32(buf[8:], uint32(h.Dim))              //nolint:gosec // validated by the writer
	binary.LittleEndian.PutUint32(buf[12:], uint32(h.Count))           //nolint:gosec // validated by the writer
	binary.LittleEndian.PutUint32(buf[16:], uint32(h.VectorsPerBlock)) //nolint:gosec // validated by the writer
	binary.LittleEndian.PutUint32(buf[20:], uint32(h.Blocks))          //nolint:gosec // validated by the writer
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, fmt.Errorf("%w: header truncated", ErrCorrupt)
	}
	if string(buf[0:4]) != Magic {
		return Header{}, ErrInvalidMagic
	}
	h := Header{
		Version:         binary.LittleEndian.Uint16(buf[4:]),
		Compression:     compress.Type(buf[6]),
		Metric:          distance.Metric(buf[7]),
		Dim:             int(binary.LittleEndian.Uint32(buf[8:])),
		Count:           int(binary.LittleEndian.Uint32(buf[12:])),
		VectorsPerBlock: int(binary.LittleEndian.Uint32(buf[16:])),
		Blocks:          int(binary.LittleEndian.Uint32(buf[20:])),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}
	if h.Dim <= 0 || h.VectorsPerBlock <= 0 || h.Blocks != blockCount(h.Count, h.VectorsPerBlock) {
		return Header{}, fmt.Errorf("%w: inconsistent header %+v", ErrCorrupt, h)
	}
	return h, nil
}
