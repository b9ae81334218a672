package config

import (
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// ErrInvalidByteSize is returned when a byte size cannot be parsed.
var ErrInvalidByteSize = errors.New("invalid byte size")

// ByteSize is a size in bytes that unmarshals from human-readable strings.
type ByteSize int64

// Int64 returns the size as int64.
func (b ByteSize) Int64() int64 { return int64(b) }

// String formats the size with IEC units.
func (b ByteSize) String() string {
	if b < 0 {
		return strconv.FormatInt(int64(b), 10)
	}
	return humanize.IBytes(uint64(b))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseByteSize(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*b = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (any, error) {
	return b.String(), nil
}

// ParseByteSize parses s as a byte size.
//
// Accepted forms are plain integers, humanized sizes such as "64MiB" or
// "1.5 GB", and percentages such as "1%" of available memory.
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidByteSize)
	}

	if pct, ok := strings.CutSuffix(s, "%"); ok {
		p, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil || p <= 0 || p > 100 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidByteSize, s)
		}
		total := AvailableMemory()
		if total <= 0 {
			return 0, fmt.Errorf("%w: %q: available memory is unknown", ErrInvalidByteSize, s)
		}
		return ByteSize(float64(total) * p / 100), nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidByteSize, s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q overflows int64", ErrInvalidByteSize, s)
	}
	return ByteSize(n), nil
}

// AvailableMemory returns the memory a percentage size is relative to:
// the Go soft memory limit when one is configured, physical memory otherwise.
// Returns 0 if neither can be determined.
func AvailableMemory() int64 {
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
		return limit
	}
	return physicalMemory()
}
