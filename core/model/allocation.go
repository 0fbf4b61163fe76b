package model

import "gonum.org/v1/gonum/floats"

// Allocation assigns part of one surplus item to one charity.
type Allocation struct {
	ItemID          string  `json:"item_id"`
	CharityID       string  `json:"charity_id"`
	CharityName     string  `json:"charity_name"`
	AllocatedKG     float64 `json:"allocated_kg"`
	DistanceKM      float64 `json:"distance_km"`
	Contact         string  `json:"contact"`
	OperatingNow    bool    `json:"operating_now"`
	SurplusLocation string  `json:"surplus_location,omitempty"`
}

// AllocationBatch is the ordered list of allocations produced by one run.
type AllocationBatch []Allocation

// Total returns the allocated quantity in kilograms.
func (b AllocationBatch) Total() float64 {
	q := make([]float64, len(b))
	for i, a := range b {
		q[i] = a.AllocatedKG
	}
	return floats.Sum(q)
}

// Charities returns the distinct charity identifiers in first-seen order.
func (b AllocationBatch) Charities() []string {
	seen := make(map[string]struct{}, len(b))
	var out []string
	for _, a := range b {
		if _, ok := seen[a.CharityID]; ok {
			continue
		}
		seen[a.CharityID] = struct{}{}
		out = append(out, a.CharityID)
	}
	return out
}
