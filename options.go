package vecstream

import (
	"log/slog"

	"github.com/hupe1980/vecstream/catalog"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	budget           func() int64
	onState          func(State)
	catalog          catalog.Catalog
}

// Option configures an Indexer.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vecstream.BasicMetricsCollector{}
//	idx := vecstream.New(transferer, builder, vecstream.WithMetricsCollector(metrics))
//	// ... stream ...
//	stats := metrics.GetStats()
//	fmt.Printf("Transfers: %d, Avg latency: %dns\n", stats.TransferCount, stats.TransferAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := vecstream.NewJSONLogger(slog.LevelInfo)
//	idx := vecstream.New(transferer, builder, vecstream.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMemoryBudget fixes the streaming memory budget in bytes instead of
// reading config.StreamingMemoryLimit. Non-positive values are ignored.
func WithMemoryBudget(bytes int64) Option {
	return func(o *options) {
		if bytes > 0 {
			o.budget = func() int64 { return bytes }
		}
	}
}

// WithBudgetFunc sets the function the streaming memory budget is read from.
// It is called once per stream.
func WithBudgetFunc(fn func() int64) Option {
	return func(o *options) {
		if fn != nil {
			o.budget = fn
		}
	}
}

// WithStateObserver registers fn to be called on every state transition of
// a stream. fn runs on the streaming goroutine.
func WithStateObserver(fn func(State)) Option {
	return func(o *options) {
		o.onState = fn
	}
}

// WithCatalog registers indexes built by Default in c.
func WithCatalog(c catalog.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
