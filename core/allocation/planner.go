package allocation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/foodredist/core/model"
)

// GreedyPlanner allocates to the largest-capacity candidates first so that a
// surplus item is collected with as few pickups as possible. Equal
// capacities are broken by distance, then by charity ID.
type GreedyPlanner struct{}

// Plan implements Planner.
func (GreedyPlanner) Plan(item model.SurplusItem, candidates []Candidate, now time.Time) (Plan, error) {
	qty := item.QuantityKG
	if math.IsNaN(qty) || qty <= 0 {
		return Plan{}, fmt.Errorf("%w: item %q requested quantity %v must be positive", model.ErrInvalidInput, item.ID, qty)
	}
	plan := Plan{ItemID: item.ID, RequestedKG: qty}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Charity.AvailableCapacityKG != b.Charity.AvailableCapacityKG {
			return a.Charity.AvailableCapacityKG > b.Charity.AvailableCapacityKG
		}
		if a.DistanceKM != b.DistanceKM {
			return a.DistanceKM < b.DistanceKM
		}
		return a.Charity.ID < b.Charity.ID
	})

	origin := item.Origin.String()
	remaining := qty
	for _, c := range sorted {
		capacity := c.Charity.AvailableCapacityKG
		if !(capacity > 0) {
			continue
		}
		alloc := math.Min(remaining, capacity)
		plan.Allocations = append(plan.Allocations, model.Allocation{
			ItemID:          item.ID,
			CharityID:       c.Charity.ID,
			CharityName:     c.Charity.Name,
			AllocatedKG:     alloc,
			DistanceKM:      round2(c.DistanceKM),
			Contact:         c.Charity.Contact(),
			OperatingNow:    c.Charity.Schedule.IsOpen(now),
			SurplusLocation: origin,
		})
		remaining -= alloc
		if remaining <= 0 {
			break
		}
	}
	plan.AllocatedKG = plan.Allocations.Total()
	plan.ShortfallKG = math.Max(remaining, 0)
	return plan, nil
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
