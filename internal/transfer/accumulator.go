package transfer

import (
	"context"
	"slices"
	"time"

	"github.com/hupe1980/vecstream/model"
	"github.com/hupe1980/vecstream/native"
)

// maxPrealloc bounds the batch slice capacity reserved up front.
const maxPrealloc = 1024

type phase uint8

const (
	// phaseUnsized waits for the first vector to learn the dimension.
	phaseUnsized phase = iota
	// phaseSteady has a fixed dimension and batch size.
	phaseSteady
)

// FlushInfo describes one completed or failed transfer call.
type FlushInfo struct {
	Batch    int
	Vectors  int
	Bytes    int64
	Duration time.Duration
	Err      error
}

// Hooks observe accumulator progress. Nil fields are ignored.
type Hooks struct {
	OnState func(State)
	OnSized func(dimension int, vectorsPerTransfer int64)
	OnFlush func(FlushInfo)
}

// Accumulator buffers copied vectors and transfers them to the native layer
// in batches of VectorsPerTransfer.
type Accumulator struct {
	transferer    native.Transferer
	budget        func() int64
	totalLiveDocs int64
	hooks         Hooks

	phase       phase
	dim         int
	perTransfer int64
	hint        int64

	batch   [][]float32
	docIDs  []model.DocID
	handle  model.Handle
	batches int
}

// NewAccumulator creates an accumulator for a stream of totalLiveDocs
// vectors. budget is called once, when the first vector arrives.
func NewAccumulator(t native.Transferer, totalLiveDocs int64, budget func() int64, hooks Hooks) *Accumulator {
	return &Accumulator{
		transferer:    t,
		budget:        budget,
		totalLiveDocs: totalLiveDocs,
		hooks:         hooks,
	}
}

// Add copies vec and appends it to the current batch, transferring the batch
// once it is full.
func (a *Accumulator) Add(ctx context.Context, doc model.DocID, vec []float32) error {
	switch a.phase {
	case phaseUnsized:
		if err := a.size(len(vec)); err != nil {
			return err
		}
	case phaseSteady:
		if len(vec) != a.dim {
			return &ErrDimensionMismatch{Expected: a.dim, Actual: len(vec), DocID: doc}
		}
	}

	a.batch = append(a.batch, slices.Clone(vec))
	a.docIDs = append(a.docIDs, doc)

	if int64(len(a.batch)) >= a.perTransfer {
		return a.flush(ctx)
	}
	return nil
}

func (a *Accumulator) size(dim int) error {
	a.setState(StateSizing)

	n, err := VectorsPerTransfer(dim, model.BytesPerFloat32, a.totalLiveDocs, a.budget())
	if err != nil {
		return err
	}

	a.dim = dim
	a.perTransfer = n
	a.hint = a.totalLiveDocs * int64(dim)
	a.batch = make([][]float32, 0, min(n, a.totalLiveDocs, maxPrealloc))
	a.phase = phaseSteady

	if a.hooks.OnSized != nil {
		a.hooks.OnSized(dim, n)
	}
	a.setState(StateAccumulating)
	return nil
}

func (a *Accumulator) flush(ctx context.Context) error {
	a.setState(StateFlushing)

	a.batches++
	info := FlushInfo{
		Batch:   a.batches,
		Vectors: len(a.batch),
		Bytes:   int64(len(a.batch)) * int64(a.dim) * model.BytesPerFloat32,
	}

	start := time.Now()
	h, err := a.transferer.StoreVectorData(ctx, a.handle, a.batch, a.hint)
	info.Duration = time.Since(start)

	if err != nil {
		info.Err = err
		a.notifyFlush(info)
		return &TransferError{Batch: info.Batch, Vectors: info.Vectors, Handle: a.handle, cause: err}
	}
	a.handle = h
	a.notifyFlush(info)

	remaining := a.totalLiveDocs - int64(len(a.docIDs))
	a.batch = make([][]float32, 0, max(0, min(a.perTransfer, remaining, maxPrealloc)))
	a.setState(StateAccumulating)
	return nil
}

// Finish transfers the trailing partial batch and returns the result.
func (a *Accumulator) Finish(ctx context.Context) (*Result, error) {
	if len(a.batch) > 0 {
		if err := a.flush(ctx); err != nil {
			return nil, err
		}
	}
	a.batch = nil

	return &Result{
		DocIDs:             a.docIDs,
		Handle:             a.handle,
		Dimension:          a.dim,
		Mode:               model.CollectionOfFloats,
		Batches:            a.batches,
		VectorsPerTransfer: a.perTransfer,
	}, nil
}

// Handle returns the handle of the last successful transfer.
func (a *Accumulator) Handle() model.Handle {
	return a.handle
}

func (a *Accumulator) setState(s State) {
	if a.hooks.OnState != nil {
		a.hooks.OnState(s)
	}
}

func (a *Accumulator) notifyFlush(info FlushInfo) {
	if a.hooks.OnFlush != nil {
		a.hooks.OnFlush(info)
	}
}
