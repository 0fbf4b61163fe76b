package metrics

import (
	"errors"
	"time"

	"github.com/kilianp07/foodredist/core/model"
)

// MultiSink forwards every record to all of its sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink combines the given sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards to every sink. A failing sink does not stop the others.
func (m *MultiSink) RecordRun(rec RunRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordRun(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordAllocations forwards to the sinks that support it.
func (m *MultiSink) RecordAllocations(runID string, at time.Time, batch model.AllocationBatch) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(AllocationRecorder); ok {
			if err := rec.RecordAllocations(runID, at, batch); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
