package allocation

import (
	"github.com/kilianp07/foodredist/core/geo"
	"github.com/kilianp07/foodredist/core/model"
)

// RadiusFilter keeps charities within MaxDistanceKM of the item's origin that
// accept at least one of its categories and still have capacity left.
type RadiusFilter struct {
	MaxDistanceKM float64
}

// NewRadiusFilter returns a filter for the given radius. A non-positive
// radius falls back to DefaultMaxDistanceKM.
func NewRadiusFilter(maxKM float64) RadiusFilter {
	if maxKM <= 0 {
		maxKM = DefaultMaxDistanceKM
	}
	return RadiusFilter{MaxDistanceKM: maxKM}
}

// Filter implements CandidateFilter. The result keeps snapshot order.
func (f RadiusFilter) Filter(charities []model.Charity, item model.SurplusItem) []Candidate {
	if len(charities) == 0 || len(item.Categories) == 0 {
		return nil
	}
	maxKM := f.MaxDistanceKM
	if maxKM <= 0 {
		maxKM = DefaultMaxDistanceKM
	}
	dests := make([]model.Coordinate, len(charities))
	for i, c := range charities {
		dests[i] = c.Location
	}
	dists := geo.DistancesFrom(item.Origin, dests)

	var out []Candidate
	for i, c := range charities {
		if !(dists[i] <= maxKM) {
			continue
		}
		if !(c.AvailableCapacityKG > 0) {
			continue
		}
		if !c.AcceptedCategories.Intersects(item.Categories) {
			continue
		}
		out = append(out, Candidate{Charity: c, DistanceKM: dists[i]})
	}
	return out
}
