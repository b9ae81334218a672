package source

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/vecstream/model"
)

// Memory is an in-memory document store.
//
// Vectors are stored in one contiguous slab; deletions are tracked in a
// Roaring bitmap. Iterators decode into a single scratch buffer that is
// overwritten on every Next, so callers must copy vectors they retain.
// Memory is safe for concurrent use, but an iterator observes the deletions
// present when it was created.
type Memory struct {
	mu      sync.RWMutex
	data    []float32
	dim     int
	count   uint32
	deleted *roaring.Bitmap
}

// NewMemory creates an empty in-memory store. The dimension is fixed by the
// first added vector.
func NewMemory() *Memory {
	return &Memory{deleted: roaring.New()}
}

// Add appends a document and returns its id.
func (m *Memory) Add(vec []float32) (model.DocID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(vec) == 0 {
		return 0, fmt.Errorf("source: empty vector")
	}
	if m.dim == 0 {
		m.dim = len(vec)
	} else if len(vec) != m.dim {
		return 0, fmt.Errorf("source: dimension mismatch: expected %d, got %d", m.dim, len(vec))
	}

	id := model.DocID(m.count)
	m.data = append(m.data, vec...)
	m.count++
	return id, nil
}

// Delete marks doc as deleted. Deleting twice is a no-op.
func (m *Memory) Delete(doc model.DocID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if uint32(doc) >= m.count {
		return fmt.Errorf("%w: %d", ErrDocNotFound, doc)
	}
	m.deleted.Add(uint32(doc))
	return nil
}

// Dimension returns the vector dimension, or 0 if the store is empty.
func (m *Memory) Dimension() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dim
}

// TotalLiveDocs implements Source.
func (m *Memory) TotalLiveDocs() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(m.count) - int64(m.deleted.GetCardinality())
}

// Iterator implements Source.
func (m *Memory) Iterator() (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	live := roaring.New()
	if m.count > 0 {
		live.AddRange(0, uint64(m.count))
		live.AndNot(m.deleted)
	}

	return &memoryIterator{
		data:    m.data[:int(m.count)*m.dim],
		dim:     m.dim,
		it:      live.Iterator(),
		scratch: make([]float32, m.dim),
	}, nil
}

type memoryIterator struct {
	data    []float32
	dim     int
	it      roaring.IntPeekable
	doc     model.DocID
	scratch []float32
	closed  bool
	err     error
}

func (it *memoryIterator) Next() bool {
	if it.closed {
		it.err = ErrClosed
		return false
	}
	if !it.it.HasNext() {
		return false
	}
	row := it.it.Next()
	it.doc = model.DocID(row)
	off := int(row) * it.dim
	copy(it.scratch, it.data[off:off+it.dim])
	return true
}

func (it *memoryIterator) DocID() model.DocID { return it.doc }

func (it *memoryIterator) Vector() []float32 { return it.scratch }

func (it *memoryIterator) Err() error { return it.err }

func (it *memoryIterator) Close() error {
	it.closed = true
	return nil
}
