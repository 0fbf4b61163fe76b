package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/foodredist/config"
	"github.com/kilianp07/foodredist/core/allocation"
	"github.com/kilianp07/foodredist/core/events"
	coremetrics "github.com/kilianp07/foodredist/core/metrics"
	"github.com/kilianp07/foodredist/core/model"
	coremon "github.com/kilianp07/foodredist/core/monitoring"
	"github.com/kilianp07/foodredist/core/pipeline"
	"github.com/kilianp07/foodredist/core/store"
	"github.com/kilianp07/foodredist/infra/logger"
	_ "github.com/kilianp07/foodredist/infra/metrics" // registers the metrics sinks
	"github.com/kilianp07/foodredist/infra/monitoring"
	"github.com/kilianp07/foodredist/infra/mqtt"
	"github.com/kilianp07/foodredist/infra/snapshot"
	"github.com/kilianp07/foodredist/infra/sqlstore"
	"github.com/kilianp07/foodredist/internal/eventbus"
)

// ErrRunInProgress is returned by RunOnce while another run is executing.
var ErrRunInProgress = errors.New("a redistribution run is already in progress")

// Notifier tells charities about the pickups of a committed batch.
type Notifier interface {
	NotifyBatch(ctx context.Context, runID string, at time.Time, batch model.AllocationBatch) error
	Disconnect()
}

// Service wires the pipeline to its store, sources, sinks and notifier.
type Service struct {
	cfg      *config.Config
	log      logger.Logger
	loc      *time.Location
	now      func() time.Time
	store    *sqlstore.Store
	registry pipeline.CharityRegistry
	pipeline *pipeline.Pipeline
	sink     coremetrics.MetricsSink
	monitor  coremon.Monitor
	bus      *eventbus.TypedBus[events.Event]
	notifier Notifier

	runMu  sync.Mutex
	mu     sync.RWMutex
	latest *pipeline.RunResult
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now in the pipeline and the store.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithNotifier replaces the MQTT notifier built from the mqtt section.
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	loc, err := cfg.Engine.Location()
	if err != nil {
		return nil, err
	}
	s := &Service{cfg: cfg, log: logger.New("service"), loc: loc, now: time.Now}
	for _, o := range opts {
		o(s)
	}

	if s.monitor, err = monitoring.NewSentryMonitor(cfg.Sentry); err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	s.store, err = sqlstore.Open(ctx, cfg.Database,
		sqlstore.WithLocation(loc),
		sqlstore.WithClock(s.now),
		sqlstore.WithLogger(logger.New("sqlstore")))
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var source pipeline.SurplusSource = s.store
	s.registry = s.store
	if cfg.Source.Type == config.SourceFile {
		f := snapshot.NewFile(cfg.Source.Path, logger.New("snapshot"))
		source, s.registry = f, f
	}

	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		_ = s.store.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	s.bus = eventbus.NewTyped[events.Event](eventbus.DefaultBuffer)
	if s.notifier == nil && cfg.MQTT.Enabled() {
		n, err := mqtt.NewNotifier(cfg.MQTT, s.monitor)
		if err != nil {
			_ = s.store.Close()
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
		s.notifier = n
	}

	s.pipeline, err = pipeline.New(cfg.Engine, source, s.registry, s.store,
		pipeline.WithLogger(logger.New("pipeline")),
		pipeline.WithMetrics(s.sink),
		pipeline.WithMonitor(s.monitor),
		pipeline.WithEventBus(s.bus),
		pipeline.WithClock(s.now))
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// RunOnce executes one pipeline run unless another one is in progress. Once
// the batch is persisted, every charity in it is notified before RunOnce
// returns. A failed notice is logged and reported but does not fail the run.
func (s *Service) RunOnce(ctx context.Context) (pipeline.RunResult, error) {
	if !s.runMu.TryLock() {
		return pipeline.RunResult{}, ErrRunInProgress
	}
	defer s.runMu.Unlock()
	res, err := s.pipeline.Run(ctx)
	if err == nil && res.Persisted && s.notifier != nil {
		if nErr := s.notifier.NotifyBatch(ctx, res.RunID, res.StartedAt, res.Batch); nErr != nil {
			s.log.Errorf("run %s: pickup notices: %v", res.RunID, nErr)
		}
	}
	s.mu.Lock()
	s.latest = &res
	s.mu.Unlock()
	return res, err
}

// Latest returns the result of the last run, if any.
func (s *Service) Latest() (pipeline.RunResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return pipeline.RunResult{}, false
	}
	return *s.latest, true
}

// Allocations queries the redistribution log.
func (s *Service) Allocations(ctx context.Context, q store.Query) ([]store.Record, error) {
	return s.store.Query(ctx, q)
}

// Nearby looks up charities around a donor in the current registry.
func (s *Service) Nearby(ctx context.Context, q allocation.NearbyQuery) ([]allocation.Match, error) {
	charities, err := s.registry.Charities(ctx)
	if err != nil {
		return nil, err
	}
	return allocation.Nearby(charities, q, s.now().In(s.loc)), nil
}

// Seed writes a snapshot into the database.
func (s *Service) Seed(ctx context.Context, snap *snapshot.Snapshot) error {
	if err := s.store.UpsertCharities(ctx, snap.Charities, sqlstore.VerificationVerified); err != nil {
		return err
	}
	if err := s.store.UpsertCharities(ctx, snap.Unverified, "pending"); err != nil {
		return err
	}
	return s.store.UpsertSurplus(ctx, snap.Surplus)
}

// Ping checks the database connection.
func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// Run logs run events and, when engine.run_interval_seconds is set, runs the
// pipeline periodically. It blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	go s.logEvents(sub)

	interval := time.Duration(s.cfg.Engine.RunIntervalSeconds) * time.Second
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
				s.log.Errorf("scheduled run: %v", err)
			}
		}
	}
}

func (s *Service) logEvents(sub <-chan events.Event) {
	for ev := range sub {
		switch e := ev.(type) {
		case events.ItemFailed:
			s.log.Debugf("run %s: item %s failed: %v", e.RunID, e.ItemID, e.Err)
		case events.RunFinished:
			s.log.Debugf("run %s finished with status %s in %s", e.RunID, e.Status, e.Duration)
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("%d run events were dropped by slow subscribers", n)
	}
	s.bus.Close()
	if s.notifier != nil {
		s.notifier.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	s.monitor.Flush(2 * time.Second)
	return s.store.Close()
}
