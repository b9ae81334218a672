package segment

import (
	"container/heap"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/vecstream/blobstore"
	"github.com/hupe1980/vecstream/distance"
	"github.com/hupe1980/vecstream/internal/compress"
	"github.com/hupe1980/vecstream/internal/hash"
	"github.com/hupe1980/vecstream/model"
)

var (
	ErrInvalidK          = errors.New("segment: k must be positive")
	ErrDimensionMismatch = errors.New("segment: query dimension mismatch")
)

// Hit is one search result. For MetricL2 Score is the squared distance
// (lower is closer); otherwise it is a similarity (higher is closer).
type Hit struct {
	DocID model.DocID
	Score float32
}

// Reader is a decoded segment.
type Reader struct {
	header  Header
	docIDs  []model.DocID
	vectors []float32
	size    int64
	sum     uint32
}

// Open reads and verifies the segment stored under name.
func Open(ctx context.Context, store blobstore.BlobStore, name string) (*Reader, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	data, err := blobstore.ReadAll(ctx, b)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode verifies and decodes a segment file. The result does not reference
// data.
func Decode(data []byte) (*Reader, error) {
	if len(data) < headerSize+trailerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}

	tail := data[len(data)-trailerSize:]
	if string(tail[12:16]) != Magic {
		return nil, ErrInvalidMagic
	}
	sum := binary.LittleEndian.Uint32(tail[8:12])
	if got := hash.CRC32C(data[:len(data)-8]); got != sum {
		return nil, fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksum, sum, got)
	}

	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	tableOffset := binary.LittleEndian.Uint64(tail[0:8])
	tableEnd := uint64(len(data) - trailerSize)
	if tableOffset > tableEnd || (tableEnd-tableOffset)/8 != uint64(h.Blocks) || (tableEnd-tableOffset)%8 != 0 {
		return nil, fmt.Errorf("%w: block table at %d", ErrCorrupt, tableOffset)
	}

	r := &Reader{header: h, size: int64(len(data)), sum: sum}

	ids, err := compress.Unblock(data[headerSize:tableOffset], h.Compression)
	if err != nil {
		return nil, fmt.Errorf("segment: doc ids: %w", err)
	}
	if len(ids) != h.Count*4 {
		return nil, fmt.Errorf("%w: %d doc id bytes for %d docs", ErrCorrupt, len(ids), h.Count)
	}
	r.docIDs = make([]model.DocID, h.Count)
	for i := range r.docIDs {
		r.docIDs[i] = model.DocID(binary.LittleEndian.Uint32(ids[i*4:]))
	}

	r.vectors = make([]float32, 0, h.Count*h.Dim)
	for i := 0; i < h.Blocks; i++ {
		off := binary.LittleEndian.Uint64(data[tableOffset+uint64(i)*8:])
		if off >= tableOffset {
			return nil, fmt.Errorf("%w: block %d offset %d", ErrCorrupt, i, off)
		}
		raw, err := compress.Unblock(data[off:tableOffset], h.Compression)
		if err != nil {
			return nil, fmt.Errorf("segment: block %d: %w", i, err)
		}
		want := min(h.VectorsPerBlock, h.Count-i*h.VectorsPerBlock) * h.Dim * 4
		if len(raw) != want {
			return nil, fmt.Errorf("%w: block %d has %d bytes, expected %d", ErrCorrupt, i, len(raw), want)
		}
		for j := 0; j < len(raw); j += 4 {
			r.vectors = append(r.vectors, math.Float32frombits(binary.LittleEndian.Uint32(raw[j:])))
		}
	}
	return r, nil
}

// Header returns the segment header.
func (r *Reader) Header() Header { return r.header }

// Len returns the number of vectors.
func (r *Reader) Len() int { return r.header.Count }

// Size returns the encoded size in bytes.
func (r *Reader) Size() int64 { return r.size }

// Checksum returns the stored CRC32C.
func (r *Reader) Checksum() uint32 { return r.sum }

// DocIDs returns the document ids in row order.
func (r *Reader) DocIDs() []model.DocID { return r.docIDs }

// Vector returns row i. Cosine segments store normalized vectors.
func (r *Reader) Vector(i int) []float32 {
	d := r.header.Dim
	return r.vectors[i*d : (i+1)*d : (i+1)*d]
}

// Search returns the k nearest vectors to q by exhaustive scan, closest first.
func (r *Reader) Search(q []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(q) != r.header.Dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, r.header.Dim, len(q))
	}

	metric := r.header.Metric
	fn, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}
	if metric == distance.MetricCosine {
		if n, ok := distance.NormalizeL2Copy(q); ok {
			q = n
		}
	}

	higher := metric.HigherIsCloser()
	h := &hitHeap{higher: higher}
	for i := 0; i < r.header.Count; i++ {
		s := fn(q, r.Vector(i))
		if h.Len() < k {
			heap.Push(h, Hit{DocID: r.docIDs[i], Score: s})
			continue
		}
		if h.closer(s, h.hits[0].Score) {
			h.hits[0] = Hit{DocID: r.docIDs[i], Score: s}
			heap.Fix(h, 0)
		}
	}

	out := make([]Hit, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Hit)
	}
	return out, nil
}

// hitHeap keeps the current worst hit at the root.
type hitHeap struct {
	hits   []Hit
	higher bool
}

func (h *hitHeap) closer(a, b float32) bool {
	if h.higher {
		return a > b
	}
	return a < b
}

func (h *hitHeap) Len() int           { return len(h.hits) }
func (h *hitHeap) Less(i, j int) bool { return h.closer(h.hits[j].Score, h.hits[i].Score) }
func (h *hitHeap) Swap(i, j int)      { h.hits[i], h.hits[j] = h.hits[j], h.hits[i] }
func (h *hitHeap) Push(x any)         { h.hits = append(h.hits, x.(Hit)) }
func (h *hitHeap) Pop() any {
	n := len(h.hits) - 1
	x := h.hits[n]
	h.hits = h.hits[:n]
	return x
}
