package pipeline

import (
	"fmt"
	"time"

	"github.com/kilianp07/foodredist/core/allocation"
)

// CapacityMode controls whether capacity consumed by one item is visible to
// the next items of the same run.
type CapacityMode string

const (
	// CapacityPerItem plans every item against the snapshot capacity.
	CapacityPerItem CapacityMode = "per_item"
	// CapacityShared deducts each allocation from a run-wide ledger. Items
	// are then planned one after the other, in snapshot order.
	CapacityShared CapacityMode = "shared"
)

// Config holds the engine settings.
type Config struct {
	MaxDistanceKM         float64      `json:"max_distance_km" validate:"gte=0"`
	Workers               int          `json:"workers" validate:"gte=0"`
	CapacityMode          CapacityMode `json:"capacity_mode" validate:"omitempty,oneof=per_item shared"`
	Timezone              string       `json:"timezone"`
	FetchTimeoutSeconds   int          `json:"fetch_timeout_seconds" validate:"gte=0"`
	PersistTimeoutSeconds int          `json:"persist_timeout_seconds" validate:"gte=0"`
	RunIntervalSeconds    int          `json:"run_interval_seconds" validate:"gte=0"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.MaxDistanceKM <= 0 {
		c.MaxDistanceKM = allocation.DefaultMaxDistanceKM
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.CapacityMode == "" {
		c.CapacityMode = CapacityPerItem
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = 10
	}
	if c.PersistTimeoutSeconds <= 0 {
		c.PersistTimeoutSeconds = 10
	}
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) fetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c Config) persistTimeout() time.Duration {
	return time.Duration(c.PersistTimeoutSeconds) * time.Second
}
