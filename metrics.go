package vecstream

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus; see package metrics/prometheus.
type MetricsCollector interface {
	// RecordTransfer is called after each native transfer call.
	// vectors is the batch size, bytes the float payload size, err is nil
	// if successful.
	RecordTransfer(vectors int, bytes int64, duration time.Duration, err error)

	// RecordStream is called when a stream finishes. batches is the number
	// of transfer calls, vectors the number of streamed documents.
	RecordStream(batches, vectors int, duration time.Duration, err error)

	// RecordBuild is called after each index build.
	RecordBuild(vectors int, duration time.Duration, err error)

	// RecordSkip is called when index creation is skipped for an empty stream.
	RecordSkip()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTransfer(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordStream(int, int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordBuild(int, time.Duration, error)           {}
func (NoopMetricsCollector) RecordSkip()                                     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	TransferCount      atomic.Int64
	TransferErrors     atomic.Int64
	TransferVectors    atomic.Int64
	TransferBytes      atomic.Int64
	TransferTotalNanos atomic.Int64
	StreamCount        atomic.Int64
	StreamErrors       atomic.Int64
	BuildCount         atomic.Int64
	BuildErrors        atomic.Int64
	BuildTotalNanos    atomic.Int64
	SkipCount          atomic.Int64
}

// RecordTransfer implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTransfer(vectors int, bytes int64, duration time.Duration, err error) {
	b.TransferCount.Add(1)
	b.TransferTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.TransferErrors.Add(1)
		return
	}
	b.TransferVectors.Add(int64(vectors))
	b.TransferBytes.Add(bytes)
}

// RecordStream implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStream(_, _ int, _ time.Duration, err error) {
	b.StreamCount.Add(1)
	if err != nil {
		b.StreamErrors.Add(1)
	}
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(_ int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordSkip implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSkip() {
	b.SkipCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		TransferCount:    b.TransferCount.Load(),
		TransferErrors:   b.TransferErrors.Load(),
		TransferVectors:  b.TransferVectors.Load(),
		TransferBytes:    b.TransferBytes.Load(),
		TransferAvgNanos: avg(b.TransferTotalNanos.Load(), b.TransferCount.Load()),
		StreamCount:      b.StreamCount.Load(),
		StreamErrors:     b.StreamErrors.Load(),
		BuildCount:       b.BuildCount.Load(),
		BuildErrors:      b.BuildErrors.Load(),
		BuildAvgNanos:    avg(b.BuildTotalNanos.Load(), b.BuildCount.Load()),
		SkipCount:        b.SkipCount.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	TransferCount    int64
	TransferErrors   int64
	TransferVectors  int64
	TransferBytes    int64
	TransferAvgNanos int64
	StreamCount      int64
	StreamErrors     int64
	BuildCount       int64
	BuildErrors      int64
	BuildAvgNanos    int64
	SkipCount        int64
}
