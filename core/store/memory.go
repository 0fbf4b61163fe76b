package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/foodredist/core/model"
)

// MemoryStore keeps records in process. It backs dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	// Fail, when set, is returned by SaveBatch instead of writing.
	Fail error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// SaveBatch implements AllocationStore.
func (m *MemoryStore) SaveBatch(ctx context.Context, runID string, at time.Time, batch model.AllocationBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.records = append(m.records, ToRecords(runID, at, batch)...)
	return nil
}

// Query implements AllocationStore. Results are ordered by pickup time.
func (m *MemoryStore) Query(ctx context.Context, q Query) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.records {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledPickup.Before(out[j].ScheduledPickup) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Close implements AllocationStore.
func (m *MemoryStore) Close() error { return nil }
