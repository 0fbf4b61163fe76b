package allocation

import (
	"time"

	"github.com/kilianp07/foodredist/core/model"
)

// DefaultMaxDistanceKM is the pickup radius used when none is configured.
const DefaultMaxDistanceKM = 50.0

// Candidate is a charity that passed the distance, category and capacity
// filters for one surplus item.
type Candidate struct {
	Charity    model.Charity
	DistanceKM float64
}

// CandidateFilter narrows a charity snapshot to the candidates for one item.
// Implementations must not modify the snapshot.
type CandidateFilter interface {
	Filter(charities []model.Charity, item model.SurplusItem) []Candidate
}

// Planner splits an item's quantity across filtered candidates.
type Planner interface {
	Plan(item model.SurplusItem, candidates []Candidate, now time.Time) (Plan, error)
}

// Plan is the allocation outcome for a single surplus item.
type Plan struct {
	ItemID      string                `json:"item_id"`
	RequestedKG float64               `json:"requested_kg"`
	AllocatedKG float64               `json:"allocated_kg"`
	ShortfallKG float64               `json:"shortfall_kg"`
	Allocations model.AllocationBatch `json:"allocations"`
}

// Complete reports whether the whole requested quantity was allocated.
func (p Plan) Complete() bool { return p.ShortfallKG <= 0 }
