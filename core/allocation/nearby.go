package allocation

import (
	"sort"
	"time"

	"github.com/kilianp07/foodredist/core/geo"
	"github.com/kilianp07/foodredist/core/model"
)

// NearbyQuery describes a donor looking for a charity to drop food at.
type NearbyQuery struct {
	Origin        model.Coordinate
	Categories    model.CategorySet
	MinCapacityKG float64
	MaxDistanceKM float64
	OpenOnly      bool
}

// Match is a charity returned by Nearby.
type Match struct {
	Charity    model.Charity `json:"charity"`
	DistanceKM float64       `json:"distance_km"`
	OpenNow    bool          `json:"open_now"`
}

// Nearby lists the charities around q.Origin, closest first. An empty
// category set matches every charity.
func Nearby(charities []model.Charity, q NearbyQuery, now time.Time) []Match {
	maxKM := q.MaxDistanceKM
	if maxKM <= 0 {
		maxKM = DefaultMaxDistanceKM
	}
	var out []Match
	for _, c := range charities {
		if !(c.AvailableCapacityKG > 0) || c.AvailableCapacityKG < q.MinCapacityKG {
			continue
		}
		if len(q.Categories) > 0 && !c.AcceptedCategories.Intersects(q.Categories) {
			continue
		}
		d := geo.Distance(q.Origin, c.Location)
		if !(d <= maxKM) {
			continue
		}
		open := c.Schedule.IsOpen(now)
		if q.OpenOnly && !open {
			continue
		}
		out = append(out, Match{Charity: c, DistanceKM: round2(d), OpenNow: open})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKM != out[j].DistanceKM {
			return out[i].DistanceKM < out[j].DistanceKM
		}
		return out[i].Charity.ID < out[j].Charity.ID
	})
	return out
}
