package prometheus

import (
	"errors"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prom.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	return byName
}

// counter returns the value of the series of name whose "status" label is
// status, or of the only series if status is empty.
func counter(t *testing.T, families map[string]*dto.MetricFamily, name, status string) float64 {
	t.Helper()
	f, ok := families[name]
	require.True(t, ok, name)
	for _, m := range f.GetMetric() {
		if status == "" {
			return m.GetCounter().GetValue()
		}
		for _, l := range m.GetLabel() {
			if l.GetName() == "status" && l.GetValue() == status {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("no series %s{status=%q}", name, status)
	return 0
}

func TestCollector(t *testing.T) {
	reg := prom.NewRegistry()
	c, err := New(reg, "vs")
	require.NoError(t, err)

	c.RecordTransfer(4, 64, time.Millisecond, nil)
	c.RecordTransfer(4, 64, time.Millisecond, nil)
	c.RecordTransfer(4, 64, time.Millisecond, errors.New("boom"))
	c.RecordStream(2, 8, time.Second, nil)
	c.RecordBuild(8, time.Second, nil)
	c.RecordSkip()

	families := gather(t, reg)
	assert.InDelta(t, 2, counter(t, families, "vs_transfers_total", statusOK), 0)
	assert.InDelta(t, 1, counter(t, families, "vs_transfers_total", statusError), 0)
	assert.InDelta(t, 8, counter(t, families, "vs_transferred_vectors_total", ""), 0)
	assert.InDelta(t, 128, counter(t, families, "vs_transferred_bytes_total", ""), 0)
	assert.InDelta(t, 1, counter(t, families, "vs_streams_total", statusOK), 0)
	assert.InDelta(t, 1, counter(t, families, "vs_index_builds_total", statusOK), 0)
	assert.InDelta(t, 1, counter(t, families, "vs_index_skips_total", ""), 0)

	latency, ok := families["vs_transfer_duration_seconds"]
	require.True(t, ok)
	require.Len(t, latency.GetMetric(), 1)
	assert.Equal(t, uint64(3), latency.GetMetric()[0].GetHistogram().GetSampleCount())

	batches := families["vs_stream_batches"]
	require.NotNil(t, batches)
	assert.InDelta(t, 2, batches.GetMetric()[0].GetHistogram().GetSampleSum(), 0)
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prom.NewRegistry()
	_, err := New(reg, "vs")
	require.NoError(t, err)

	_, err = New(reg, "vs")
	require.Error(t, err)
}
