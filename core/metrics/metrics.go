package metrics

import (
	"time"

	"github.com/kilianp07/foodredist/core/model"
)

// RunRecord summarises one pipeline run.
type RunRecord struct {
	RunID       string
	Status      string
	StartedAt   time.Time
	Duration    time.Duration
	Items       int
	FailedItems int
	Charities   int
	Allocations int
	RequestedKG float64
	AllocatedKG float64
	ShortfallKG float64
	Persisted   bool
}

// MetricsSink records run summaries.
type MetricsSink interface {
	RecordRun(rec RunRecord) error
}

// AllocationRecorder is implemented by sinks that keep per-allocation data.
type AllocationRecorder interface {
	RecordAllocations(runID string, at time.Time, batch model.AllocationBatch) error
}

// NopSink implements every recorder and does nothing.
type NopSink struct{}

func (NopSink) RecordRun(RunRecord) error                                        { return nil }
func (NopSink) RecordAllocations(string, time.Time, model.AllocationBatch) error { return nil }
