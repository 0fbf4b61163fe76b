package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/foodredist/config"
	"github.com/kilianp07/foodredist/core/allocation"
	"github.com/kilianp07/foodredist/core/model"
	"github.com/kilianp07/foodredist/core/pipeline"
	"github.com/kilianp07/foodredist/core/store"
	"github.com/kilianp07/foodredist/infra/snapshot"
)

const mumbai = "../infra/snapshot/testdata/mumbai.yaml"

var tuesday = time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu      sync.Mutex
	batches map[string]model.AllocationBatch
	err     error
}

func (r *recordingNotifier) NotifyBatch(_ context.Context, runID string, _ time.Time, batch model.AllocationBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batches == nil {
		r.batches = map[string]model.AllocationBatch{}
	}
	r.batches[runID] = batch
	return r.err
}

func (r *recordingNotifier) Disconnect() {}

func newService(t *testing.T, source config.SourceConfig, opts ...Option) *Service {
	t.Helper()
	cfg := &config.Config{Source: source}
	cfg.Database.DSN = filepath.Join(t.TempDir(), "food.db")
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	opts = append([]Option{WithClock(func() time.Time { return tuesday })}, opts...)
	svc, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestRunOnceFromSnapshotFile(t *testing.T) {
	svc := newService(t, config.SourceConfig{Type: config.SourceFile, Path: mumbai})
	ctx := context.Background()

	_, ok := svc.Latest()
	assert.False(t, ok)

	res, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusCommitted, res.Status)
	require.Len(t, res.Batch, 1)
	assert.Equal(t, "annapurna", res.Batch[0].CharityID)
	assert.Equal(t, 80.0, res.Batch[0].AllocatedKG)

	latest, ok := svc.Latest()
	require.True(t, ok)
	assert.Equal(t, res.RunID, latest.RunID)

	recs, err := svc.Allocations(ctx, store.Query{RunID: res.RunID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "rice-0107", recs[0].ItemID)
}

func TestSeededDatabaseDeductsScheduledPickups(t *testing.T) {
	svc := newService(t, config.SourceConfig{})
	ctx := context.Background()
	snap, err := snapshot.Load(mumbai)
	require.NoError(t, err)
	require.NoError(t, svc.Seed(ctx, snap))

	first, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, first.Batch, 1)
	assert.Equal(t, 80.0, first.Batch[0].AllocatedKG)

	second, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, second.Batch, 1)
	assert.Equal(t, 40.0, second.Batch[0].AllocatedKG)
}

func TestRunOnceRejectsConcurrentRun(t *testing.T) {
	svc := newService(t, config.SourceConfig{Type: config.SourceFile, Path: mumbai})
	svc.runMu.Lock()
	defer svc.runMu.Unlock()
	_, err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestNearby(t *testing.T) {
	svc := newService(t, config.SourceConfig{Type: config.SourceFile, Path: mumbai})
	matches, err := svc.Nearby(context.Background(), allocation.NearbyQuery{
		Origin:     model.Coordinate{Lat: 19.1197, Lon: 72.8468},
		Categories: model.NewCategorySet("cooked_food"),
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "annapurna", matches[0].Charity.ID)
	assert.True(t, matches[0].OpenNow)
}

func TestRunReturnsOnCancel(t *testing.T) {
	svc := newService(t, config.SourceConfig{Type: config.SourceFile, Path: mumbai})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

// snapshotWithFailures writes one valid surplus item and n items with a
// non-positive quantity.
func snapshotWithFailures(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("charities:\n  - charity_id: annapurna\n    lat: 19.076\n    lon: 72.8777\n    accepted_categories: [cooked_food]\n    capacity_kg: 120\nsurplus:\n")
	b.WriteString("  - item_id: rice\n    lat: 19.1197\n    lon: 72.8468\n    categories: [cooked_food]\n    quantity_kg: 80\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "  - item_id: bad-%02d\n    lat: 19.1\n    lon: 72.8\n    categories: [cooked_food]\n    quantity_kg: 0\n", i)
	}
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunOnceNotifiesDespiteManyFailedItems(t *testing.T) {
	n := &recordingNotifier{}
	svc := newService(t, config.SourceConfig{Type: config.SourceFile, Path: snapshotWithFailures(t, 20)}, WithNotifier(n))

	res, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusCommitted, res.Status)
	assert.Len(t, res.Failed(), 20)

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Contains(t, n.batches, res.RunID)
	sent := n.batches[res.RunID]
	require.Len(t, sent, 1)
	assert.Equal(t, "annapurna", sent[0].CharityID)
	assert.Equal(t, 80.0, sent[0].AllocatedKG)
}

func TestRunOnceNotifierFailureKeepsRun(t *testing.T) {
	n := &recordingNotifier{err: errors.New("broker down")}
	svc := newService(t, config.SourceConfig{Type: config.SourceFile, Path: mumbai}, WithNotifier(n))

	res, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.Len(t, n.batches, 1)
}

func TestRunOnceBusySendsNoNotices(t *testing.T) {
	n := &recordingNotifier{}
	svc := newService(t, config.SourceConfig{Type: config.SourceFile, Path: snapshotWithFailures(t, 0)}, WithNotifier(n))
	svc.runMu.Lock()
	_, err := svc.RunOnce(context.Background())
	svc.runMu.Unlock()
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Empty(t, n.batches)
}
