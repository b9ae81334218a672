// Package prometheus exports vecstream metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, err := vsprom.New(reg, "vecstream")
//	idx := vecstream.New(t, b, vecstream.WithMetricsCollector(mc))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prometheus

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/vecstream"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Collector implements vecstream.MetricsCollector on Prometheus metrics.
type Collector struct {
	transfers       *prom.CounterVec
	vectors         prom.Counter
	bytes           prom.Counter
	transferLatency prom.Histogram
	streams         *prom.CounterVec
	streamBatches   prom.Histogram
	builds          *prom.CounterVec
	buildLatency    prom.Histogram
	skips           prom.Counter
}

var _ vecstream.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers its metrics with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func New(reg prom.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	c := &Collector{
		transfers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Native transfer calls by status.",
		}, []string{"status"}),
		vectors: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transferred_vectors_total",
			Help:      "Vectors handed to the native layer.",
		}),
		bytes: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transferred_bytes_total",
			Help:      "Float payload bytes handed to the native layer.",
		}),
		transferLatency: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Latency of native transfer calls.",
			Buckets:   prom.ExponentialBuckets(0.0001, 4, 10),
		}),
		streams: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "streams_total",
			Help:      "Completed streams by status.",
		}, []string{"status"}),
		streamBatches: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_batches",
			Help:      "Transfer calls per stream.",
			Buckets:   prom.ExponentialBuckets(1, 2, 12),
		}),
		builds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Index builds by status.",
		}, []string{"status"}),
		buildLatency: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_duration_seconds",
			Help:      "Latency of index builds.",
			Buckets:   prom.DefBuckets,
		}),
		skips: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "index_skips_total",
			Help:      "Index creations skipped because no vectors were streamed.",
		}),
	}

	for _, m := range []prom.Collector{
		c.transfers, c.vectors, c.bytes, c.transferLatency,
		c.streams, c.streamBatches, c.builds, c.buildLatency, c.skips,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusOK
}

// RecordTransfer implements vecstream.MetricsCollector.
func (c *Collector) RecordTransfer(vectors int, bytes int64, duration time.Duration, err error) {
	c.transfers.WithLabelValues(status(err)).Inc()
	c.transferLatency.Observe(duration.Seconds())
	if err == nil {
		c.vectors.Add(float64(vectors))
		c.bytes.Add(float64(bytes))
	}
}

// RecordStream implements vecstream.MetricsCollector.
func (c *Collector) RecordStream(batches, _ int, _ time.Duration, err error) {
	c.streams.WithLabelValues(status(err)).Inc()
	if err == nil {
		c.streamBatches.Observe(float64(batches))
	}
}

// RecordBuild implements vecstream.MetricsCollector.
func (c *Collector) RecordBuild(_ int, duration time.Duration, err error) {
	c.builds.WithLabelValues(status(err)).Inc()
	c.buildLatency.Observe(duration.Seconds())
}

// RecordSkip implements vecstream.MetricsCollector.
func (c *Collector) RecordSkip() {
	c.skips.Inc()
}
