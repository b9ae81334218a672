// Package compress implements the self-describing block compression used by
// segment files.
//
// Every block carries an 8-byte header:
//
//	[raw size uint32][stored size uint32][payload...]
//
// A stored size of 0 marks a block kept raw because compression did not pay
// off.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type selects the block codec.
type Type uint8

const (
	None Type = 0
	LZ4  Type = 1
	ZSTD Type = 2
)

// HeaderSize is the size of the per-block header.
const HeaderSize = 8

// minRatio is the largest compressed/raw ratio still stored compressed.
const minRatio = 0.9

var (
	ErrUnknownType  = errors.New("compress: unknown type")
	ErrCorruptBlock = errors.New("compress: corrupt block")
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}

// ParseType parses "none", "lz4" or "zstd" (case-insensitive). The empty
// string selects LZ4.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return None, nil
	case "", "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

var (
	encoders sync.Pool
	decoders sync.Pool
)

func getEncoder() (*zstd.Encoder, error) {
	if v := encoders.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
}

func getDecoder() (*zstd.Decoder, error) {
	if v := decoders.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
}

// Block compresses data into a framed block. Safe for concurrent use.
func Block(data []byte, t Type) ([]byte, error) {
	var (
		payload []byte
		err     error
	)

	switch t {
	case None:
	case LZ4:
		payload, err = lz4Block(data)
	case ZSTD:
		payload, err = zstdBlock(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	if err != nil {
		return nil, err
	}

	stored := len(payload)
	if stored == 0 || float64(stored) > float64(len(data))*minRatio {
		payload, stored = data, 0
	}

	out := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data))) //nolint:gosec // blocks are bounded by the writer
	binary.LittleEndian.PutUint32(out[4:], uint32(stored))    //nolint:gosec // stored <= len(data)
	copy(out[HeaderSize:], payload)
	return out, nil
}

func lz4Block(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	var c lz4.Compressor
	n, err := c.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

func zstdBlock(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	enc, err := getEncoder()
	if err != nil {
		return nil, err
	}
	defer encoders.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

// FramedSize returns the total length of the framed block at the start of
// b, header included.
func FramedSize(b []byte) (int, error) {
	if len(b) < HeaderSize {
		return 0, ErrCorruptBlock
	}
	raw := binary.LittleEndian.Uint32(b[0:])
	stored := binary.LittleEndian.Uint32(b[4:])
	if stored == 0 {
		return HeaderSize + int(raw), nil
	}
	return HeaderSize + int(stored), nil
}

// Unblock decodes a framed block produced by Block with the same type.
// Raw blocks are returned without copying.
func Unblock(b []byte, t Type) ([]byte, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptBlock, len(b))
	}
	raw := int(binary.LittleEndian.Uint32(b[0:]))
	stored := int(binary.LittleEndian.Uint32(b[4:]))

	if stored == 0 {
		if len(b) < HeaderSize+raw {
			return nil, fmt.Errorf("%w: raw payload truncated", ErrCorruptBlock)
		}
		return b[HeaderSize : HeaderSize+raw], nil
	}
	if len(b) < HeaderSize+stored {
		return nil, fmt.Errorf("%w: compressed payload truncated", ErrCorruptBlock)
	}
	payload := b[HeaderSize : HeaderSize+stored]

	switch t {
	case LZ4:
		out := make([]byte, raw)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if n != raw {
			return nil, fmt.Errorf("%w: decoded %d bytes, expected %d", ErrCorruptBlock, n, raw)
		}
		return out, nil
	case ZSTD:
		dec, err := getDecoder()
		if err != nil {
			return nil, err
		}
		defer decoders.Put(dec)
		out, err := dec.DecodeAll(payload, make([]byte, 0, raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if len(out) != raw {
			return nil, fmt.Errorf("%w: decoded %d bytes, expected %d", ErrCorruptBlock, len(out), raw)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
}
