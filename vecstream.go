package vecstream

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/vecstream/internal/transfer"
	"github.com/hupe1980/vecstream/model"
	"github.com/hupe1980/vecstream/native"
	"github.com/hupe1980/vecstream/source"
)

type (
	// Result describes a completed stream: the doc ids in transfer order,
	// the native handle, the dimension and the serialization mode.
	Result = transfer.Result
	// State is the lifecycle state of a stream.
	State = transfer.State
	// Outcome reports whether an index was built or skipped.
	Outcome = transfer.Outcome
)

const (
	StateNotStarted   = transfer.StateNotStarted
	StateSizing       = transfer.StateSizing
	StateAccumulating = transfer.StateAccumulating
	StateFlushing     = transfer.StateFlushing
	StateFinalizing   = transfer.StateFinalizing
	StateTriggered    = transfer.StateTriggered
	StateSkippedEmpty = transfer.StateSkippedEmpty
	StateFailed       = transfer.StateFailed

	OutcomeSkipped = transfer.OutcomeSkipped
	OutcomeBuilt   = transfer.OutcomeBuilt
)

// SkipMessage is logged when a stream produced no vectors and index creation
// is skipped.
const SkipMessage = transfer.SkipMessage

// Report is returned by CreateIndex.
type Report struct {
	Result   *Result
	Outcome  Outcome
	Duration time.Duration
}

// Releaser frees native buffers. native.Memory implements it.
type Releaser interface {
	Release(h model.Handle) error
}

// Indexer streams vectors from a source into a native buffer and triggers
// index creation over it. Streams are independent; an Indexer may run
// several concurrently.
type Indexer struct {
	transferer native.Transferer
	builder    native.IndexBuilder
	metrics    MetricsCollector
	logger     *Logger
	budget     func() int64
	onState    func(State)

	mu      sync.Mutex
	closed  bool
	closers []func() error
}

// New creates an Indexer that transfers through t and builds with b.
func New(t native.Transferer, b native.IndexBuilder, optFns ...Option) *Indexer {
	opts := applyOptions(optFns)
	return &Indexer{
		transferer: t,
		builder:    b,
		metrics:    opts.metricsCollector,
		logger:     opts.logger,
		budget:     opts.budget,
		onState:    opts.onState,
	}
}

func (x *Indexer) pipeline(ctx context.Context) *transfer.Pipeline {
	return transfer.NewPipeline(transfer.Config{
		Transferer: x.transferer,
		Builder:    x.builder,
		Budget:     x.budget,
		Logger:     x.logger.Logger,
		Hooks: transfer.Hooks{
			OnState: x.onState,
			OnSized: func(dim int, perTransfer int64) {
				x.logger.DebugContext(ctx, "stream sized",
					"dimension", dim,
					"vectors_per_transfer", perTransfer,
				)
			},
			OnFlush: func(fi transfer.FlushInfo) {
				x.metrics.RecordTransfer(fi.Vectors, fi.Bytes, fi.Duration, fi.Err)
				x.logger.LogTransfer(ctx, fi.Batch, fi.Vectors, fi.Bytes, fi.Duration, fi.Err)
			},
		},
	})
}

func (x *Indexer) checkOpen() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return ErrClosed
	}
	return nil
}

// Transfer streams every live vector of src into the native layer without
// building an index. On a TransferError the caller owns the buffer named by
// its Handle.
func (x *Indexer) Transfer(ctx context.Context, src source.Source) (*Result, error) {
	if err := x.checkOpen(); err != nil {
		return nil, err
	}
	return x.run(ctx, x.pipeline(ctx), src)
}

func (x *Indexer) run(ctx context.Context, p *transfer.Pipeline, src source.Source) (*Result, error) {
	start := time.Now()
	res, err := p.Run(ctx, src)

	var vectors, batches int
	var perTransfer int64
	if res != nil {
		vectors, batches, perTransfer = len(res.DocIDs), res.Batches, res.VectorsPerTransfer
	}
	x.metrics.RecordStream(batches, vectors, time.Since(start), err)
	x.logger.LogStream(ctx, vectors, batches, perTransfer, err)
	return res, err
}

// CreateIndex streams src and hands the result to the index builder. An
// empty stream is not an error: the report's Outcome is OutcomeSkipped.
func (x *Indexer) CreateIndex(ctx context.Context, src source.Source, bc native.BuildContext) (*Report, error) {
	if err := x.checkOpen(); err != nil {
		return nil, err
	}

	start := time.Now()
	p := x.pipeline(ctx)
	logger := x.logger.WithSegment(bc.Segment, bc.Field)

	res, err := x.run(ctx, p, src)
	if err != nil {
		return nil, err
	}

	buildStart := time.Now()
	outcome, err := p.Trigger(ctx, bc, res)
	switch {
	case err != nil:
		x.metrics.RecordBuild(len(res.DocIDs), time.Since(buildStart), err)
		logger.LogBuild(ctx, len(res.DocIDs), time.Since(buildStart), err)
		return nil, err
	case outcome == OutcomeSkipped:
		x.metrics.RecordSkip()
	default:
		x.metrics.RecordBuild(len(res.DocIDs), time.Since(buildStart), nil)
		logger.LogBuild(ctx, len(res.DocIDs), time.Since(buildStart), nil)
	}

	return &Report{Result: res, Outcome: outcome, Duration: time.Since(start)}, nil
}

// Release frees the native buffer h if the transferer supports it. It is
// meant for handles returned by Transfer or carried by a TransferError or
// BuildError.
func (x *Indexer) Release(h model.Handle) error {
	if h.IsZero() {
		return nil
	}
	r, ok := x.transferer.(Releaser)
	if !ok {
		return nil
	}
	return r.Release(h)
}

// Close releases resources owned by the Indexer. Indexers created with New
// own nothing.
func (x *Indexer) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true

	var firstErr error
	for _, c := range x.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	x.closers = nil
	return firstErr
}
