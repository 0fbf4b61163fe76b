package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/foodredist/core/allocation"
	"github.com/kilianp07/foodredist/core/events"
	"github.com/kilianp07/foodredist/core/logger"
	"github.com/kilianp07/foodredist/core/metrics"
	"github.com/kilianp07/foodredist/core/model"
	"github.com/kilianp07/foodredist/core/monitoring"
	"github.com/kilianp07/foodredist/core/store"
	"github.com/kilianp07/foodredist/internal/eventbus"
)

// SurplusSource provides the surplus snapshot of a run.
type SurplusSource interface {
	SurplusItems(ctx context.Context) ([]model.SurplusItem, error)
}

// CharityRegistry provides the charity snapshot of a run.
type CharityRegistry interface {
	Charities(ctx context.Context) ([]model.Charity, error)
}

// Pipeline runs one redistribution pass: fetch both snapshots, plan every
// surplus item and persist the resulting batch in a single write.
type Pipeline struct {
	cfg      Config
	loc      *time.Location
	source   SurplusSource
	registry CharityRegistry
	store    store.AllocationStore
	filter   allocation.CandidateFilter
	planner  allocation.Planner
	log      logger.Logger
	metrics  metrics.MetricsSink
	monitor  monitoring.Monitor
	bus      *eventbus.TypedBus[events.Event]
	now      func() time.Time
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(p *Pipeline) { p.log = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.MetricsSink) Option { return func(p *Pipeline) { p.metrics = m } }

// WithMonitor sets the error monitor.
func WithMonitor(m monitoring.Monitor) Option { return func(p *Pipeline) { p.monitor = m } }

// WithEventBus publishes run events on bus.
func WithEventBus(bus *eventbus.TypedBus[events.Event]) Option {
	return func(p *Pipeline) { p.bus = bus }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// WithFilter replaces the radius filter built from the config.
func WithFilter(f allocation.CandidateFilter) Option { return func(p *Pipeline) { p.filter = f } }

// WithPlanner replaces the greedy planner.
func WithPlanner(pl allocation.Planner) Option { return func(p *Pipeline) { p.planner = pl } }

// New builds a pipeline. cfg defaults are applied on a copy.
func New(cfg Config, source SurplusSource, registry CharityRegistry, st store.AllocationStore, opts ...Option) (*Pipeline, error) {
	if source == nil || registry == nil || st == nil {
		return nil, errors.New("pipeline: source, registry and store are required")
	}
	cfg.SetDefaults()
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:      cfg,
		loc:      loc,
		source:   source,
		registry: registry,
		store:    st,
		filter:   allocation.NewRadiusFilter(cfg.MaxDistanceKM),
		planner:  allocation.GreedyPlanner{},
		log:      logger.NopLogger{},
		metrics:  metrics.NopSink{},
		monitor:  monitoring.NopMonitor{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Run executes one pass. The result is always returned; err is non-nil when
// a snapshot could not be fetched or the batch could not be persisted, and
// then wraps model.ErrUpstreamUnavailable.
func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	res := RunResult{RunID: uuid.NewString(), StartedAt: p.now().In(p.loc)}
	err := p.run(ctx, &res)
	p.finish(&res, err)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, res *RunResult) error {
	items, charities, err := p.fetch(ctx)
	if err != nil {
		res.Status = StatusUpstreamFailed
		p.monitor.CaptureException(err, monitoring.Tags("pipeline", res.RunID, ""))
		return err
	}
	charities = p.sanitize(charities)
	res.Charities = len(charities)
	if len(items) == 0 || len(charities) == 0 {
		res.Status = StatusNothingToDo
		p.log.Infof("run %s: nothing to do (%d surplus items, %d charities)", res.RunID, len(items), len(charities))
		return nil
	}
	p.publish(events.RunStarted{RunID: res.RunID, Items: len(items), Charities: len(charities), At: res.StartedAt})

	if p.cfg.CapacityMode == CapacityShared {
		res.Items = p.planShared(ctx, res.RunID, items, charities, res.StartedAt)
	} else {
		res.Items = p.planParallel(ctx, res.RunID, items, charities, res.StartedAt)
	}
	for _, o := range res.Items {
		if o.Err != nil {
			p.log.Warnw("surplus item not planned", map[string]any{"run_id": res.RunID, "item_id": o.ItemID, "error": o.Error})
			p.publish(events.ItemFailed{RunID: res.RunID, ItemID: o.ItemID, Err: o.Err})
			continue
		}
		res.RequestedKG += o.Plan.RequestedKG
		res.Batch = append(res.Batch, o.Plan.Allocations...)
	}
	res.AllocatedKG = res.Batch.Total()
	if len(res.Batch) == 0 {
		res.Status = StatusNoMatches
		return nil
	}

	persistCtx, cancel := context.WithTimeout(ctx, p.cfg.persistTimeout())
	defer cancel()
	if err := p.store.SaveBatch(persistCtx, res.RunID, res.StartedAt, res.Batch); err != nil {
		res.Status = StatusPersistFailed
		err = fmt.Errorf("%w: persist batch of %d allocations: %v", model.ErrUpstreamUnavailable, len(res.Batch), err)
		p.monitor.CaptureException(err, monitoring.Tags("pipeline", res.RunID, ""))
		return err
	}
	res.Persisted = true
	res.Status = StatusCommitted
	if rec, ok := p.metrics.(metrics.AllocationRecorder); ok {
		if err := rec.RecordAllocations(res.RunID, res.StartedAt, res.Batch); err != nil {
			p.log.Warnf("record allocations: %v", err)
		}
	}
	p.publish(events.BatchCommitted{RunID: res.RunID, At: res.StartedAt, Batch: res.Batch})
	return nil
}

// fetch reads both snapshots, each under its own deadline.
func (p *Pipeline) fetch(ctx context.Context) ([]model.SurplusItem, []model.Charity, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.fetchTimeout())
	items, err := p.source.SurplusItems(fetchCtx)
	cancel()
	if err != nil {
		return nil, nil, upstream("surplus snapshot", err)
	}
	fetchCtx, cancel = context.WithTimeout(ctx, p.cfg.fetchTimeout())
	charities, err := p.registry.Charities(fetchCtx)
	cancel()
	if err != nil {
		return nil, nil, upstream("charity snapshot", err)
	}
	return items, charities, nil
}

func upstream(what string, err error) error {
	if errors.Is(err, model.ErrUpstreamUnavailable) {
		return fmt.Errorf("fetch %s: %w", what, err)
	}
	return fmt.Errorf("%w: fetch %s: %v", model.ErrUpstreamUnavailable, what, err)
}

// sanitize drops registry entries that cannot be matched. The input slice is
// left untouched.
func (p *Pipeline) sanitize(charities []model.Charity) []model.Charity {
	out := make([]model.Charity, 0, len(charities))
	for _, c := range charities {
		if err := c.Validate(); err != nil {
			p.log.Warnf("skipping charity: %v", err)
			continue
		}
		out = append(out, c)
	}
	return out
}

// planParallel plans every item against the same read-only snapshot on a
// bounded worker pool. Each worker writes only the slot of its item.
func (p *Pipeline) planParallel(ctx context.Context, runID string, items []model.SurplusItem, charities []model.Charity, now time.Time) []ItemOutcome {
	outcomes := make([]ItemOutcome, len(items))
	jobs := make(chan int)
	workers := p.cfg.Workers
	if workers > len(items) {
		workers = len(items)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = p.planItem(ctx, runID, items[i], charities, now)
			}
		}()
	}
	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

// planShared plans items in order against a capacity ledger so that a
// charity is never promised more than its snapshot capacity across the run.
func (p *Pipeline) planShared(ctx context.Context, runID string, items []model.SurplusItem, charities []model.Charity, now time.Time) []ItemOutcome {
	ledger := make(map[string]float64, len(charities))
	for _, c := range charities {
		ledger[c.ID] = c.AvailableCapacityKG
	}
	view := make([]model.Charity, len(charities))
	outcomes := make([]ItemOutcome, len(items))
	for i, item := range items {
		for j, c := range charities {
			view[j] = c.WithCapacity(ledger[c.ID])
		}
		outcomes[i] = p.planItem(ctx, runID, item, view, now)
		for _, a := range outcomes[i].Plan.Allocations {
			ledger[a.CharityID] -= a.AllocatedKG
		}
	}
	return outcomes
}

// planItem validates, filters and plans a single item. Panics are turned
// into an item error.
func (p *Pipeline) planItem(ctx context.Context, runID string, item model.SurplusItem, charities []model.Charity, now time.Time) (out ItemOutcome) {
	out.ItemID = item.ID
	defer func() {
		if r := recover(); r != nil {
			out.Plan = allocation.Plan{}
			err := fmt.Errorf("planning item %q panicked: %v", item.ID, r)
			out.fail(err)
			p.monitor.CaptureException(err, monitoring.Tags("planner", runID, item.ID))
		}
	}()
	if err := ctx.Err(); err != nil {
		out.fail(fmt.Errorf("item %q not planned: %w", item.ID, err))
		return out
	}
	if err := item.Validate(); err != nil {
		out.fail(err)
		return out
	}
	candidates := p.filter.Filter(charities, item)
	out.Candidates = len(candidates)
	plan, err := p.planner.Plan(item, candidates, now)
	if err != nil {
		out.fail(err)
		return out
	}
	out.Plan = plan
	return out
}

func (p *Pipeline) finish(res *RunResult, err error) {
	res.FinishedAt = p.now().In(p.loc)
	if err != nil {
		res.Err = err
		res.Error = err.Error()
	}
	dur := res.FinishedAt.Sub(res.StartedAt)
	failed := len(res.Failed())
	if mErr := p.metrics.RecordRun(metrics.RunRecord{
		RunID:       res.RunID,
		Status:      string(res.Status),
		StartedAt:   res.StartedAt,
		Duration:    dur,
		Items:       len(res.Items),
		FailedItems: failed,
		Charities:   res.Charities,
		Allocations: len(res.Batch),
		RequestedKG: res.RequestedKG,
		AllocatedKG: res.AllocatedKG,
		ShortfallKG: res.ShortfallKG(),
		Persisted:   res.Persisted,
	}); mErr != nil {
		p.log.Warnf("record run metrics: %v", mErr)
	}
	p.publish(events.RunFinished{RunID: res.RunID, Status: string(res.Status), Duration: dur, Err: err})

	if err != nil {
		p.log.Errorf("run %s failed: %v", res.RunID, err)
		return
	}
	fields := map[string]any{
		"run_id":       res.RunID,
		"status":       res.Status,
		"items":        len(res.Items),
		"failed_items": failed,
		"allocations":  len(res.Batch),
		"allocated_kg": res.AllocatedKG,
		"shortfall_kg": res.ShortfallKG(),
		"duration_ms":  dur.Milliseconds(),
	}
	p.log.Infow("redistribution run finished", fields)
}

func (p *Pipeline) publish(e events.Event) {
	if p.bus != nil {
		p.bus.Publish(e)
	}
}
