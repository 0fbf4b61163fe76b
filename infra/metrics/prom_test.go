package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/foodredist/core/factory"
	coremetrics "github.com/kilianp07/foodredist/core/metrics"
	"github.com/kilianp07/foodredist/core/model"
)

func TestPromSinkRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	start := time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC)
	require.NoError(t, sink.RecordRun(coremetrics.RunRecord{
		Status: "committed", StartedAt: start, Duration: time.Second,
		Allocations: 3, FailedItems: 1, AllocatedKG: 180, ShortfallKG: 10,
	}))
	require.NoError(t, sink.RecordRun(coremetrics.RunRecord{Status: "nothing_to_do"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runs.WithLabelValues("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runs.WithLabelValues("nothing_to_do")))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.allocations))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.failedItems))
	assert.Equal(t, 180.0, testutil.ToFloat64(sink.allocatedKG))
	assert.Equal(t, 10.0, testutil.ToFloat64(sink.shortfallKG))
	assert.Equal(t, float64(start.Unix()), testutil.ToFloat64(sink.lastRun))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.duration))
}

func TestPromSinkRecordAllocations(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, sink.RecordAllocations("r1", time.Now(), model.AllocationBatch{
		{CharityID: "c1", AllocatedKG: 10},
		{CharityID: "c1", AllocatedKG: 2.5},
		{CharityID: "c2", AllocatedKG: 4},
	}))
	assert.Equal(t, 12.5, testutil.ToFloat64(sink.charityKG.WithLabelValues("c1")))
	assert.Equal(t, 4.0, testutil.ToFloat64(sink.charityKG.WithLabelValues("c2")))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, first.RecordRun(coremetrics.RunRecord{Status: "committed", Allocations: 2}))
	assert.Equal(t, 2.0, testutil.ToFloat64(second.allocations))
}

func TestBuiltinFactories(t *testing.T) {
	s, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, s)

	s, err = coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "prometheus"}})
	require.NoError(t, err)
	assert.IsType(t, &PromSink{}, s)

	_, err = coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "statsd"}})
	assert.Error(t, err)
}
