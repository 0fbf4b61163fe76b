package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/foodredist/core/model"
)

// StatusScheduled marks a pickup that has been planned but not collected.
const StatusScheduled = "scheduled"

// Record is one persisted allocation.
type Record struct {
	ID              string    `json:"id"`
	RunID           string    `json:"run_id"`
	ItemID          string    `json:"item_id"`
	CharityID       string    `json:"charity_id"`
	CharityName     string    `json:"charity_name"`
	QuantityKG      float64   `json:"quantity_kg"`
	DistanceKM      float64   `json:"distance_km"`
	Contact         string    `json:"contact"`
	SurplusLocation string    `json:"surplus_location"`
	ScheduledPickup time.Time `json:"scheduled_pickup"`
	Status          string    `json:"status"`
}

// Query filters stored records. Zero fields are ignored.
type Query struct {
	Start     time.Time
	End       time.Time
	RunID     string
	ItemID    string
	CharityID string
	Limit     int
}

// AllocationStore persists allocation batches.
type AllocationStore interface {
	// SaveBatch writes the whole batch or nothing.
	SaveBatch(ctx context.Context, runID string, at time.Time, batch model.AllocationBatch) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// ToRecords converts a batch into scheduled records stamped with at.
func ToRecords(runID string, at time.Time, batch model.AllocationBatch) []Record {
	out := make([]Record, len(batch))
	for i, a := range batch {
		out[i] = Record{
			ID:              uuid.NewString(),
			RunID:           runID,
			ItemID:          a.ItemID,
			CharityID:       a.CharityID,
			CharityName:     a.CharityName,
			QuantityKG:      a.AllocatedKG,
			DistanceKM:      a.DistanceKM,
			Contact:         a.Contact,
			SurplusLocation: a.SurplusLocation,
			ScheduledPickup: at,
			Status:          StatusScheduled,
		}
	}
	return out
}

// Match reports whether r passes the filters of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.ScheduledPickup.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.ScheduledPickup.After(q.End) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.ItemID != "" && r.ItemID != q.ItemID {
		return false
	}
	if q.CharityID != "" && r.CharityID != q.CharityID {
		return false
	}
	return true
}
