// Package snapshot reads surplus and charity snapshots from a YAML or JSON
// file. It serves as a pipeline source for local runs and as the input of
// the seed command.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/foodredist/core/model"
	"github.com/kilianp07/foodredist/core/schedule"
	"github.com/kilianp07/foodredist/infra/logger"
)

type rawCharity struct {
	ID                 string  `yaml:"charity_id"`
	Name               string  `yaml:"name"`
	Lat                float64 `yaml:"lat"`
	Lon                float64 `yaml:"lon"`
	AcceptedCategories any     `yaml:"accepted_categories"`
	CapacityKG         float64 `yaml:"capacity_kg"`
	OperatingHours     any     `yaml:"operating_hours"`
	ContactPhone       string  `yaml:"contact_phone"`
	ContactEmail       string  `yaml:"contact_email"`
	VerificationStatus string  `yaml:"verification_status"`
}

type rawItem struct {
	ID         string  `yaml:"item_id"`
	LocationID string  `yaml:"location_id"`
	Lat        float64 `yaml:"lat"`
	Lon        float64 `yaml:"lon"`
	Categories any     `yaml:"categories"`
	QuantityKG float64 `yaml:"quantity_kg"`
}

type rawSnapshot struct {
	Charities []rawCharity `yaml:"charities"`
	Surplus   []rawItem    `yaml:"surplus"`
}

// Snapshot is a normalized file snapshot. Charities holds the verified
// entries (a missing status counts as verified); Unverified the others.
type Snapshot struct {
	Charities  []model.Charity
	Unverified []model.Charity
	Surplus    []model.SurplusItem
	// Warnings lists the data quality problems found while normalizing.
	Warnings []error
}

// Parse decodes a snapshot document. JSON input is accepted as YAML.
func Parse(data []byte) (*Snapshot, error) {
	var raw rawSnapshot
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", model.ErrDataQuality, err)
	}
	snap := &Snapshot{}
	for _, rc := range raw.Charities {
		c := model.Charity{
			ID:                  rc.ID,
			Name:                rc.Name,
			Location:            model.Coordinate{Lat: rc.Lat, Lon: rc.Lon},
			AvailableCapacityKG: rc.CapacityKG,
			ContactPhone:        rc.ContactPhone,
			ContactEmail:        rc.ContactEmail,
		}
		var err error
		if c.AcceptedCategories, err = model.CategoriesFromValue(rc.AcceptedCategories); err != nil {
			snap.Warnings = append(snap.Warnings, fmt.Errorf("charity %s: %w", rc.ID, err))
		}
		if c.Schedule, err = schedule.FromValue(rc.OperatingHours); err != nil {
			snap.Warnings = append(snap.Warnings, fmt.Errorf("charity %s: %w: %v", rc.ID, model.ErrDataQuality, err))
		}
		for _, bad := range c.Schedule.Invalid() {
			snap.Warnings = append(snap.Warnings, fmt.Errorf("charity %s: %w: range %q ignored", rc.ID, model.ErrDataQuality, bad))
		}
		status := strings.ToLower(strings.TrimSpace(rc.VerificationStatus))
		if status == "" || status == "verified" {
			snap.Charities = append(snap.Charities, c)
		} else {
			snap.Unverified = append(snap.Unverified, c)
		}
	}
	for _, ri := range raw.Surplus {
		it := model.SurplusItem{
			ID:         ri.ID,
			LocationID: ri.LocationID,
			QuantityKG: ri.QuantityKG,
			Origin:     model.Coordinate{Lat: ri.Lat, Lon: ri.Lon},
		}
		var err error
		if it.Categories, err = model.CategoriesFromValue(ri.Categories); err != nil {
			snap.Warnings = append(snap.Warnings, fmt.Errorf("surplus item %s: %w", ri.ID, err))
		}
		snap.Surplus = append(snap.Surplus, it)
	}
	return snap, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// File serves both pipeline snapshots from a file. The file is re-read on
// every call so edits are picked up by the next run.
type File struct {
	Path string
	Log  logger.Logger
}

// NewFile returns a file source logging data quality warnings on log.
func NewFile(path string, log logger.Logger) *File {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &File{Path: path, Log: log}
}

func (f *File) load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := Load(f.Path)
	if err != nil {
		return nil, err
	}
	for _, w := range snap.Warnings {
		f.Log.Warnf("%s: %v", f.Path, w)
	}
	return snap, nil
}

// SurplusItems implements pipeline.SurplusSource.
func (f *File) SurplusItems(ctx context.Context) ([]model.SurplusItem, error) {
	snap, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Surplus, nil
}

// Charities implements pipeline.CharityRegistry. Only verified charities
// are returned.
func (f *File) Charities(ctx context.Context) ([]model.Charity, error) {
	snap, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Charities, nil
}
