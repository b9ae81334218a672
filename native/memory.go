package native

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hupe1980/vecstream/internal/mem"
	"github.com/hupe1980/vecstream/internal/mmap"
	"github.com/hupe1980/vecstream/model"
	"github.com/hupe1980/vecstream/resource"
)

var (
	// ErrUnknownHandle is returned for handles that were never allocated or
	// have already been released.
	ErrUnknownHandle = errors.New("native: unknown handle")
	// ErrDimensionMismatch is returned when a batch does not match the
	// dimension of the buffer it is appended to.
	ErrDimensionMismatch = errors.New("native: dimension mismatch")
	// ErrEmptyVector is returned for zero-length vectors.
	ErrEmptyVector = errors.New("native: empty vector")
)

// View is a read-only window on a native buffer.
// Data is valid until the buffer is released.
type View struct {
	Data []float32
	Dim  int
	Rows int
}

// Vector returns row i.
func (v View) Vector(i int) []float32 {
	return v.Data[i*v.Dim : (i+1)*v.Dim : (i+1)*v.Dim]
}

// Stats is a snapshot of native memory usage.
type Stats struct {
	Buffers       int
	ReservedBytes int64
	UsedBytes     int64
	Allocations   int64
	Reallocations int64
	StoredVectors int64
}

type buffer struct {
	mapping  *mmap.Mapping // nil for heap buffers
	data     []float32     // full capacity
	used     int           // floats written
	dim      int
	reserved int64
}

// Option configures Memory.
type Option func(*Memory)

// WithResourceController accounts buffer memory against rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(m *Memory) {
		m.rc = rc
	}
}

// WithHeapBuffers allocates buffers on the Go heap instead of anonymous
// mappings. Useful on platforms without mmap and in tests.
func WithHeapBuffers() Option {
	return func(m *Memory) {
		m.heap = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Memory) {
		if l != nil {
			m.logger = l
		}
	}
}

// Memory is an in-process native layer holding vector buffers outside the
// Go heap. It implements Transferer. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	buffers map[model.Handle]*buffer
	next    uint64
	rc      *resource.Controller
	heap    bool
	logger  *slog.Logger

	allocations   int64
	reallocations int64
	stored        int64
}

// NewMemory creates an empty native memory layer.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		buffers: make(map[model.Handle]*buffer),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StoreVectorData implements Transferer.
func (m *Memory) StoreVectorData(ctx context.Context, h model.Handle, vectors [][]float32, totalElementsHint int64) (model.Handle, error) {
	if len(vectors) == 0 {
		return h, nil
	}

	dim := len(vectors[0])
	if dim == 0 {
		return h, ErrEmptyVector
	}
	for i, v := range vectors {
		if len(v) != dim {
			return h, fmt.Errorf("%w: vector %d has %d components, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	need := len(vectors) * dim

	var buf *buffer
	if h.IsZero() {
		capacity := max(int64(need), totalElementsHint)
		b, err := m.alloc(capacity)
		if err != nil {
			return h, err
		}
		b.dim = dim
		m.next++
		h = model.Handle(m.next)
		m.buffers[h] = b
		buf = b
		m.logger.DebugContext(ctx, "native buffer allocated", "handle", h, "bytes", b.reserved)
	} else {
		b, ok := m.buffers[h]
		if !ok {
			return h, fmt.Errorf("%w: %v", ErrUnknownHandle, h)
		}
		if b.dim != dim {
			return h, fmt.Errorf("%w: buffer has dimension %d, batch has %d", ErrDimensionMismatch, b.dim, dim)
		}
		if err := m.ensureCapacity(ctx, b, b.used+need); err != nil {
			return h, err
		}
		buf = b
	}

	off := buf.used
	for _, v := range vectors {
		copy(buf.data[off:off+dim], v)
		off += dim
	}
	buf.used = off
	m.stored += int64(len(vectors))
	return h, nil
}

func (m *Memory) alloc(floats int64) (*buffer, error) {
	bytes := floats * model.BytesPerFloat32
	if !m.rc.TryAcquireMemory(bytes) {
		return nil, fmt.Errorf("native: reserve %d bytes: %w", bytes, resource.ErrMemoryLimitExceeded)
	}

	b := &buffer{reserved: bytes}
	if m.heap {
		b.data = mem.AllocAlignedFloat32(int(floats))
	} else {
		mapping, err := mmap.Anonymous(int(bytes))
		if err != nil {
			m.rc.ReleaseMemory(bytes)
			return nil, fmt.Errorf("native: map %d bytes: %w", bytes, err)
		}
		b.mapping = mapping
		b.data = mem.BytesFloat32(mapping.Bytes())
	}
	m.allocations++
	return b, nil
}

func (m *Memory) ensureCapacity(ctx context.Context, b *buffer, floats int) error {
	if floats <= len(b.data) {
		return nil
	}

	grown, err := m.alloc(int64(max(floats, 2*len(b.data))))
	if err != nil {
		return err
	}
	copy(grown.data, b.data[:b.used])
	grown.used = b.used
	grown.dim = b.dim

	m.free(b)
	*b = *grown
	m.reallocations++
	m.logger.DebugContext(ctx, "native buffer grown", "bytes", b.reserved)
	return nil
}

func (m *Memory) free(b *buffer) {
	if b.mapping != nil {
		if err := b.mapping.Close(); err != nil {
			m.logger.Warn("native buffer unmap failed", "error", err)
		}
		b.mapping = nil
	}
	b.data = nil
	m.rc.ReleaseMemory(b.reserved)
	b.reserved = 0
}

// View returns the vectors stored in h. The view is valid until Release(h).
func (m *Memory) View(h model.Handle) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buffers[h]
	if !ok {
		return View{}, fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	return View{
		Data: b.data[:b.used:b.used],
		Dim:  b.dim,
		Rows: b.used / b.dim,
	}, nil
}

// Release frees the buffer identified by h.
func (m *Memory) Release(h model.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buffers[h]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	delete(m.buffers, h)
	m.free(b)
	return nil
}

// Stats returns a snapshot of native memory usage.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Buffers:       len(m.buffers),
		Allocations:   m.allocations,
		Reallocations: m.reallocations,
		StoredVectors: m.stored,
	}
	for _, b := range m.buffers {
		s.ReservedBytes += b.reserved
		s.UsedBytes += int64(b.used) * model.BytesPerFloat32
	}
	return s
}

// Close releases every buffer.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for h, b := range m.buffers {
		m.free(b)
		delete(m.buffers, h)
	}
	return nil
}
