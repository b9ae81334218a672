package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/hupe1980/vecstream/config"
	"github.com/hupe1980/vecstream/model"
	"github.com/hupe1980/vecstream/native"
	"github.com/hupe1980/vecstream/source"
)

// ErrPipelineReused is returned when Run is called on a pipeline that has
// already processed a stream.
var ErrPipelineReused = errors.New("transfer: pipeline already started")

// Config wires a Pipeline to its collaborators.
type Config struct {
	Transferer native.Transferer
	Builder    native.IndexBuilder
	// Budget returns the streaming memory budget in bytes. It is called once
	// per stream, when the first vector arrives. Defaults to
	// config.StreamingMemoryLimit.
	Budget func() int64
	Logger *slog.Logger
	Hooks  Hooks
}

// Pipeline runs one stream through the NotStarted → Sizing →
// Accumulating ⇄ Flushing → Finalizing → Triggered|SkippedEmpty states.
// Any failure moves it to Failed. A Pipeline is not reusable.
type Pipeline struct {
	cfg     Config
	logger  *slog.Logger
	state   atomic.Uint32
	started atomic.Bool
}

// NewPipeline creates a pipeline for a single stream.
func NewPipeline(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Budget == nil {
		cfg.Budget = config.StreamingMemoryLimit
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// State returns the current state. Safe to call from other goroutines.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) setState(s State) {
	p.state.Store(uint32(s))
	if p.cfg.Hooks.OnState != nil {
		p.cfg.Hooks.OnState(s)
	}
}

func (p *Pipeline) fail(err error) error {
	p.setState(StateFailed)
	return err
}

// Run streams every live vector of src into the native layer.
//
// ctx is passed to every transfer call; the pipeline itself does not check
// it between vectors.
func (p *Pipeline) Run(ctx context.Context, src source.Source) (*Result, error) {
	if !p.started.CompareAndSwap(false, true) {
		return nil, ErrPipelineReused
	}

	total := src.TotalLiveDocs()
	if total < 0 {
		return nil, p.fail(fmt.Errorf("%w: negative live doc count %d", ErrInvalidArgument, total))
	}

	if total == 0 {
		p.setState(StateFinalizing)
		return &Result{Mode: model.CollectionOfFloats}, nil
	}

	hooks := p.cfg.Hooks
	hooks.OnState = p.setState
	acc := NewAccumulator(p.cfg.Transferer, total, p.cfg.Budget, hooks)

	it, err := src.Iterator()
	if err != nil {
		return nil, p.fail(&SourceError{cause: err})
	}

	res, err := p.drain(ctx, it, acc)
	if cerr := it.Close(); cerr != nil && err == nil {
		err = &SourceError{cause: cerr}
	}
	if err != nil {
		return nil, p.fail(err)
	}

	if got := int64(len(res.DocIDs)); got != total {
		p.logger.WarnContext(ctx, "source yielded a different number of vectors than it reported",
			"reported", total, "yielded", got)
	}

	p.logger.DebugContext(ctx, "stream transferred",
		"docs", len(res.DocIDs),
		"dimension", res.Dimension,
		"batches", res.Batches,
		"vectors_per_transfer", res.VectorsPerTransfer,
	)
	return res, nil
}

func (p *Pipeline) drain(ctx context.Context, it source.Iterator, acc *Accumulator) (*Result, error) {
	for it.Next() {
		if err := acc.Add(ctx, it.DocID(), it.Vector()); err != nil {
			return nil, err
		}
	}
	if err := it.Err(); err != nil {
		return nil, &SourceError{cause: err}
	}

	p.setState(StateFinalizing)
	return acc.Finish(ctx)
}

// Trigger hands res to the index builder, or skips if nothing was transferred.
func (p *Pipeline) Trigger(ctx context.Context, bc native.BuildContext, res *Result) (Outcome, error) {
	outcome, err := Trigger(ctx, p.logger, p.cfg.Builder, bc, res)
	switch {
	case err != nil:
		p.setState(StateFailed)
	case outcome == OutcomeSkipped:
		p.setState(StateSkippedEmpty)
	default:
		p.setState(StateTriggered)
	}
	return outcome, err
}

// CreateIndex runs src through the pipeline and triggers the index build.
func (p *Pipeline) CreateIndex(ctx context.Context, src source.Source, bc native.BuildContext) (*Result, Outcome, error) {
	res, err := p.Run(ctx, src)
	if err != nil {
		return nil, OutcomeSkipped, err
	}
	outcome, err := p.Trigger(ctx, bc, res)
	return res, outcome, err
}
