package model

import (
	"fmt"
	"strings"

	"github.com/kilianp07/foodredist/core/schedule"
)

// Charity is a verified recipient organization as seen in one registry
// snapshot. AvailableCapacityKG already accounts for the pickups scheduled
// earlier the same day.
type Charity struct {
	ID                  string                     `json:"charity_id" validate:"required"`
	Name                string                     `json:"name"`
	Location            Coordinate                 `json:"coordinate"`
	AcceptedCategories  CategorySet                `json:"accepted_categories"`
	AvailableCapacityKG float64                    `json:"available_capacity_kg" validate:"gte=0"`
	Schedule            schedule.OperatingSchedule `json:"operating_schedule"`
	ContactPhone        string                     `json:"contact_phone,omitempty"`
	ContactEmail        string                     `json:"contact_email,omitempty"`
}

// Validate rejects registry entries that cannot take part in matching.
func (c Charity) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: charity %q: %v", ErrDataQuality, c.ID, err)
	}
	return nil
}

// Contact joins the phone number and e-mail address.
func (c Charity) Contact() string {
	return strings.TrimSpace(c.ContactPhone + " " + c.ContactEmail)
}

// WithCapacity returns a copy of the charity carrying the given capacity.
func (c Charity) WithCapacity(kg float64) Charity {
	c.AvailableCapacityKG = kg
	return c
}
