package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/foodredist/core/metrics"
	"github.com/kilianp07/foodredist/core/model"
)

// PromSink exposes run summaries as Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	allocations prometheus.Counter
	failedItems prometheus.Counter
	allocatedKG prometheus.Counter
	shortfallKG prometheus.Counter
	lastRun     prometheus.Gauge
	charityKG   *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the metrics on reg. Collectors already
// registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodredist_runs_total",
		Help: "Redistribution runs by final status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "foodredist_run_duration_seconds",
		Help:    "Wall time of a redistribution run",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.allocations, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "foodredist_allocations_total",
		Help: "Allocations produced by runs",
	})); err != nil {
		return nil, err
	}
	if s.failedItems, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "foodredist_items_failed_total",
		Help: "Surplus items that could not be planned",
	})); err != nil {
		return nil, err
	}
	if s.allocatedKG, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "foodredist_allocated_kg_total",
		Help: "Kilograms allocated to charities",
	})); err != nil {
		return nil, err
	}
	if s.shortfallKG, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "foodredist_shortfall_kg_total",
		Help: "Kilograms of surplus left without a charity",
	})); err != nil {
		return nil, err
	}
	if s.lastRun, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "foodredist_last_run_timestamp_seconds",
		Help: "Start time of the last run",
	})); err != nil {
		return nil, err
	}
	if s.charityKG, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodredist_charity_allocated_kg_total",
		Help: "Kilograms committed per charity",
	}, []string{"charity_id"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun implements coremetrics.MetricsSink.
func (s *PromSink) RecordRun(rec coremetrics.RunRecord) error {
	s.runs.WithLabelValues(rec.Status).Inc()
	s.duration.Observe(rec.Duration.Seconds())
	s.allocations.Add(float64(rec.Allocations))
	s.failedItems.Add(float64(rec.FailedItems))
	s.allocatedKG.Add(rec.AllocatedKG)
	s.shortfallKG.Add(rec.ShortfallKG)
	if !rec.StartedAt.IsZero() {
		s.lastRun.Set(float64(rec.StartedAt.Unix()))
	}
	return nil
}

// RecordAllocations implements coremetrics.AllocationRecorder.
func (s *PromSink) RecordAllocations(_ string, _ time.Time, batch model.AllocationBatch) error {
	for _, a := range batch {
		s.charityKG.WithLabelValues(a.CharityID).Add(a.AllocatedKG)
	}
	return nil
}
