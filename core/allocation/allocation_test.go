package allocation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/foodredist/core/model"
	"github.com/kilianp07/foodredist/core/schedule"
)

// Tuesday 10:00 UTC.
var now = time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC)

func charity(id string, capKG, lon float64, cats ...string) model.Charity {
	return model.Charity{
		ID:                  id,
		Name:                "Charity " + id,
		Location:            model.Coordinate{Lat: 0, Lon: lon},
		AcceptedCategories:  model.NewCategorySet(cats...),
		AvailableCapacityKG: capKG,
		Schedule:            schedule.OperatingSchedule{schedule.Daily: {"09:00-17:00"}},
		ContactPhone:        "555-" + id,
	}
}

func item(qty float64, cats ...string) model.SurplusItem {
	return model.SurplusItem{ID: "item-1", QuantityKG: qty, Categories: model.NewCategorySet(cats...)}
}

func ids(b model.AllocationBatch) []string {
	out := make([]string, len(b))
	for i, a := range b {
		out[i] = a.CharityID
	}
	return out
}

func TestRadiusFilterPredicates(t *testing.T) {
	charities := []model.Charity{
		charity("near", 10, 0.1, "dairy"),
		charity("far", 10, 0.5, "dairy"),
		charity("wrongcat", 10, 0.1, "bakery"),
		charity("full", 0, 0.1, "dairy"),
		charity("multi", 10, 0.2, "produce", "Dairy"),
	}
	got := NewRadiusFilter(50).Filter(charities, item(10, "dairy", "meat"))
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].Charity.ID)
	assert.Equal(t, "multi", got[1].Charity.ID)
	for _, c := range got {
		assert.LessOrEqual(t, c.DistanceKM, 50.0)
		assert.True(t, c.Charity.AcceptedCategories.Intersects(model.NewCategorySet("dairy", "meat")))
		assert.Greater(t, c.Charity.AvailableCapacityKG, 0.0)
	}
}

func TestRadiusFilterDefaultsAndEmptyInputs(t *testing.T) {
	assert.Equal(t, DefaultMaxDistanceKM, NewRadiusFilter(0).MaxDistanceKM)
	assert.Empty(t, NewRadiusFilter(50).Filter(nil, item(10, "dairy")))
	assert.Empty(t, NewRadiusFilter(50).Filter([]model.Charity{charity("a", 10, 0.1, "dairy")}, item(10)))

	wide := RadiusFilter{}
	assert.Len(t, wide.Filter([]model.Charity{charity("a", 10, 0.4, "dairy")}, item(10, "dairy")), 1)
}

func TestRadiusFilterNeverReturnsOutOfRange(t *testing.T) {
	var charities []model.Charity
	for i := 0; i < 40; i++ {
		charities = append(charities, charity(string(rune('a'+i%26))+string(rune('0'+i/26)), float64(i%3), float64(i)*0.02, "dairy"))
	}
	for _, radius := range []float64{1, 5, 25, 50} {
		for _, c := range NewRadiusFilter(radius).Filter(charities, item(10, "dairy")) {
			assert.LessOrEqual(t, c.DistanceKM, radius)
			assert.Greater(t, c.Charity.AvailableCapacityKG, 0.0)
		}
	}
}

func TestGreedyPlannerCapacityTieBrokenByDistance(t *testing.T) {
	cands := []Candidate{
		{Charity: charity("A", 100, 0, "dairy"), DistanceKM: 5},
		{Charity: charity("B", 100, 0, "dairy"), DistanceKM: 2},
	}
	plan, err := GreedyPlanner{}.Plan(item(150, "dairy"), cands, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, ids(plan.Allocations))
	assert.Equal(t, 100.0, plan.Allocations[0].AllocatedKG)
	assert.Equal(t, 50.0, plan.Allocations[1].AllocatedKG)
	assert.Equal(t, 150.0, plan.AllocatedKG)
	assert.True(t, plan.Complete())
	assert.Equal(t, "A", cands[0].Charity.ID, "input order untouched")
}

func TestGreedyPlannerUnderAllocation(t *testing.T) {
	cands := []Candidate{
		{Charity: charity("A", 100, 0, "dairy"), DistanceKM: 5},
		{Charity: charity("B", 100, 0, "dairy"), DistanceKM: 2},
	}
	plan, err := GreedyPlanner{}.Plan(item(300, "dairy"), cands, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, ids(plan.Allocations))
	assert.Equal(t, 200.0, plan.AllocatedKG)
	assert.Equal(t, 100.0, plan.ShortfallKG)
	assert.False(t, plan.Complete())
}

func TestGreedyPlannerLargestCapacityFirst(t *testing.T) {
	cands := []Candidate{
		{Charity: charity("A", 100, 0, "dairy"), DistanceKM: 5},
		{Charity: charity("B", 200, 0, "dairy"), DistanceKM: 2},
		{Charity: charity("C", 300, 0, "dairy"), DistanceKM: 40},
	}
	plan, err := GreedyPlanner{}.Plan(item(150, "dairy"), cands, now)
	require.NoError(t, err)
	require.Len(t, plan.Allocations, 1, "stops once the quantity is covered")
	assert.Equal(t, "C", plan.Allocations[0].CharityID)
	assert.Equal(t, 150.0, plan.Allocations[0].AllocatedKG)
}

func TestGreedyPlannerAllocationFields(t *testing.T) {
	c := charity("A", 100, 0, "dairy")
	c.ContactEmail = "a@example.org"
	it := item(10, "dairy")
	it.Origin = model.Coordinate{Lat: 19.076, Lon: 72.8777}
	plan, err := GreedyPlanner{}.Plan(it, []Candidate{{Charity: c, DistanceKM: 3.14159}}, now)
	require.NoError(t, err)
	a := plan.Allocations[0]
	assert.Equal(t, "item-1", a.ItemID)
	assert.Equal(t, "Charity A", a.CharityName)
	assert.Equal(t, 3.14, a.DistanceKM)
	assert.Equal(t, "555-A a@example.org", a.Contact)
	assert.True(t, a.OperatingNow)
	assert.Equal(t, "19.076,72.8777", a.SurplusLocation)

	closed, err := GreedyPlanner{}.Plan(it, []Candidate{{Charity: c, DistanceKM: 1}}, now.Add(10*time.Hour))
	require.NoError(t, err)
	assert.False(t, closed.Allocations[0].OperatingNow)
}

func TestGreedyPlannerRejectsNonPositiveQuantity(t *testing.T) {
	cands := []Candidate{{Charity: charity("A", 100, 0, "dairy"), DistanceKM: 1}}
	for _, q := range []float64{0, -5, math.NaN()} {
		_, err := GreedyPlanner{}.Plan(item(q, "dairy"), cands, now)
		assert.True(t, errors.Is(err, model.ErrInvalidInput), "quantity %v", q)
	}
}

func TestGreedyPlannerNoCandidates(t *testing.T) {
	plan, err := GreedyPlanner{}.Plan(item(10, "dairy"), nil, now)
	require.NoError(t, err)
	assert.Empty(t, plan.Allocations)
	assert.Equal(t, 10.0, plan.ShortfallKG)
}

func TestGreedyPlannerInvariants(t *testing.T) {
	cands := []Candidate{
		{Charity: charity("A", 12.5, 0, "x"), DistanceKM: 1},
		{Charity: charity("B", 7.25, 0, "x"), DistanceKM: 9},
		{Charity: charity("C", 30, 0, "x"), DistanceKM: 4},
		{Charity: charity("D", 0, 0, "x"), DistanceKM: 0.5},
	}
	total := 12.5 + 7.25 + 30
	for _, q := range []float64{0.1, 5, 12.5, 30, 42.75, 49.75, 60, 500} {
		plan, err := GreedyPlanner{}.Plan(item(q, "x"), cands, now)
		require.NoError(t, err)
		assert.LessOrEqual(t, plan.Allocations.Total(), q+1e-9)
		if total >= q {
			assert.InDelta(t, q, plan.AllocatedKG, 1e-9)
			assert.True(t, plan.Complete())
		} else {
			assert.InDelta(t, total, plan.AllocatedKG, 1e-9)
			assert.False(t, plan.Complete())
		}
		seen := map[string]bool{}
		for _, a := range plan.Allocations {
			assert.False(t, seen[a.CharityID], "charity reused within one item")
			seen[a.CharityID] = true
			assert.Greater(t, a.AllocatedKG, 0.0)
			for _, c := range cands {
				if c.Charity.ID == a.CharityID {
					assert.LessOrEqual(t, a.AllocatedKG, c.Charity.AvailableCapacityKG)
				}
			}
		}
	}
}

func TestNearby(t *testing.T) {
	charities := []model.Charity{
		charity("far", 50, 0.3, "cooked_food"),
		charity("near", 50, 0.05, "cooked_food"),
		charity("small", 5, 0.01, "cooked_food"),
		charity("veg", 50, 0.02, "vegetables"),
	}
	closed := charity("closed", 50, 0.04, "cooked_food")
	closed.Schedule = schedule.OperatingSchedule{schedule.Weekends: {"09:00-17:00"}}
	charities = append(charities, closed)

	got := Nearby(charities, NearbyQuery{
		Categories:    model.NewCategorySet("cooked_food"),
		MinCapacityKG: 10,
		MaxDistanceKM: 15,
	}, now)
	require.Len(t, got, 2)
	assert.Equal(t, "closed", got[0].Charity.ID)
	assert.False(t, got[0].OpenNow)
	assert.Equal(t, "near", got[1].Charity.ID)
	assert.True(t, got[1].OpenNow)

	open := Nearby(charities, NearbyQuery{Categories: model.NewCategorySet("cooked_food"), MaxDistanceKM: 50, OpenOnly: true}, now)
	assert.Equal(t, []string{"small", "near", "far"}, []string{open[0].Charity.ID, open[1].Charity.ID, open[2].Charity.ID})

	all := Nearby(charities, NearbyQuery{MaxDistanceKM: 50}, now)
	assert.Len(t, all, 5)
}
