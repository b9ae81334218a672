package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultStreamingMemoryLimit is the default vector streaming budget.
	DefaultStreamingMemoryLimit = "1%"
	// MinStreamingMemoryLimit is the smallest accepted streaming budget.
	MinStreamingMemoryLimit ByteSize = 1 << 20
	// DefaultVectorsPerBlock is the default number of vectors per segment block.
	DefaultVectorsPerBlock = 4096
	// DefaultCompression is the default segment block compression.
	DefaultCompression = "lz4"

	envPrefix = "VECSTREAM_"
)

// ErrInvalidConfig is returned when settings fail validation.
var ErrInvalidConfig = errors.New("invalid config")

// Settings holds process-wide configuration.
type Settings struct {
	// VectorStreamingMemoryLimit is the byte budget the pipeline divides the
	// live vector set by to size each transfer batch.
	VectorStreamingMemoryLimit ByteSize `yaml:"vector_streaming_memory_limit"`

	// NativeMemoryLimit caps the memory of all native vector buffers.
	// 0 means unlimited.
	NativeMemoryLimit ByteSize `yaml:"native_memory_limit"`

	// IOLimitPerSec throttles segment uploads. 0 means unlimited.
	IOLimitPerSec ByteSize `yaml:"io_limit_per_sec"`

	// MaxConcurrentBuilds bounds how many index builds run at once.
	MaxConcurrentBuilds int `yaml:"max_concurrent_builds"`

	// Compression is the segment block compression: none, lz4 or zstd.
	Compression string `yaml:"compression"`

	// VectorsPerBlock is the number of vectors per compressed segment block.
	VectorsPerBlock int `yaml:"vectors_per_block"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns settings with every default applied.
func Default() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.VectorStreamingMemoryLimit == 0 {
		v, err := ParseByteSize(DefaultStreamingMemoryLimit)
		if err != nil {
			v = MinStreamingMemoryLimit
		}
		s.VectorStreamingMemoryLimit = v
	}
	if s.VectorStreamingMemoryLimit < MinStreamingMemoryLimit {
		s.VectorStreamingMemoryLimit = MinStreamingMemoryLimit
	}
	if s.MaxConcurrentBuilds <= 0 {
		s.MaxConcurrentBuilds = 1
	}
	if s.Compression == "" {
		s.Compression = DefaultCompression
	}
	if s.VectorsPerBlock <= 0 {
		s.VectorsPerBlock = DefaultVectorsPerBlock
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
}

// Validate reports whether the settings are usable.
func (s *Settings) Validate() error {
	if s.VectorStreamingMemoryLimit <= 0 {
		return fmt.Errorf("%w: vector_streaming_memory_limit must be positive", ErrInvalidConfig)
	}
	if s.NativeMemoryLimit < 0 || s.IOLimitPerSec < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(s.Compression) {
	case "none", "lz4", "zstd":
	default:
		return fmt.Errorf("%w: unknown compression %q", ErrInvalidConfig, s.Compression)
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s.LogLevel)
	}
	return nil
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML settings, applies environment overrides and defaults,
// and validates the result.
func Parse(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := s.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// FromEnv builds settings from defaults and VECSTREAM_* variables only.
func FromEnv() (*Settings, error) {
	return Parse(nil)
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	sizes := map[string]*ByteSize{
		"VECTOR_STREAMING_MEMORY_LIMIT": &s.VectorStreamingMemoryLimit,
		"NATIVE_MEMORY_LIMIT":           &s.NativeMemoryLimit,
		"IO_LIMIT_PER_SEC":              &s.IOLimitPerSec,
	}
	for key, dst := range sizes {
		if v, ok := lookup(envPrefix + key); ok {
			b, err := ParseByteSize(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = b
		}
	}

	ints := map[string]*int{
		"MAX_CONCURRENT_BUILDS": &s.MaxConcurrentBuilds,
		"VECTORS_PER_BLOCK":     &s.VectorsPerBlock,
	}
	for key, dst := range ints {
		if v, ok := lookup(envPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = n
		}
	}

	if v, ok := lookup(envPrefix + "COMPRESSION"); ok {
		s.Compression = strings.TrimSpace(v)
	}
	if v, ok := lookup(envPrefix + "LOG_LEVEL"); ok {
		s.LogLevel = strings.TrimSpace(v)
	}
	return nil
}

var current atomic.Pointer[Settings]

// Current returns the process-wide settings, initializing them from defaults
// on first use. The returned value must not be modified.
func Current() *Settings {
	if s := current.Load(); s != nil {
		return s
	}
	current.CompareAndSwap(nil, Default())
	return current.Load()
}

// Set publishes s as the process-wide settings. Passing nil restores defaults.
func Set(s *Settings) {
	if s == nil {
		s = Default()
	}
	current.Store(s)
}

// StreamingMemoryLimit returns the process-wide vector streaming budget in bytes.
func StreamingMemoryLimit() int64 {
	return Current().VectorStreamingMemoryLimit.Int64()
}
