package model

import "fmt"

// SurplusItem is a quantity of perishable stock expected to exceed demand at
// a location. Items are produced by the forecasting side and are read-only
// once handed to the engine.
type SurplusItem struct {
	ID         string      `json:"item_id" validate:"required"`
	LocationID string      `json:"location_id,omitempty"`
	Categories CategorySet `json:"categories"`
	QuantityKG float64     `json:"quantity_kg" validate:"gt=0"`
	Origin     Coordinate  `json:"origin"`
}

// Validate checks that the item can be matched: it needs an identifier, a
// positive quantity and a valid origin.
func (s SurplusItem) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: surplus item %q: %v", ErrInvalidInput, s.ID, err)
	}
	return nil
}
