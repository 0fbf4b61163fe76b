package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/foodredist/core/model"
)

func TestLoadNormalizes(t *testing.T) {
	snap, err := Load("testdata/mumbai.yaml")
	require.NoError(t, err)

	require.Len(t, snap.Charities, 2)
	require.Len(t, snap.Unverified, 1)
	assert.Equal(t, "unlisted", snap.Unverified[0].ID)

	anna := snap.Charities[0]
	assert.Equal(t, []string{"cooked_food", "vegetables"}, anna.AcceptedCategories.Slice())
	assert.Equal(t, []string{"09:00-13:00", "15:00-19:00"}, anna.Schedule.Ranges(time.Tuesday))
	assert.True(t, anna.Schedule.IsOpen(time.Date(2025, 1, 11, 11, 0, 0, 0, time.UTC)))
	assert.Equal(t, "+91 22 5550 1234 desk@annapurna.example.org", anna.Contact())

	seva := snap.Charities[1]
	assert.True(t, seva.AcceptedCategories.Has("dairy"))
	assert.True(t, seva.Schedule.IsOpen(time.Date(2025, 1, 7, 19, 59, 0, 0, time.UTC)))

	require.Len(t, snap.Surplus, 2)
	assert.Equal(t, 80.0, snap.Surplus[0].QuantityKG)
	assert.Equal(t, "19.1197,72.8468", snap.Surplus[0].Origin.String())
	assert.Empty(t, snap.Surplus[1].Categories)

	require.Len(t, snap.Warnings, 2)
	for _, w := range snap.Warnings {
		assert.True(t, errors.Is(w, model.ErrDataQuality), w.Error())
	}
}

func TestParseJSON(t *testing.T) {
	snap, err := Parse([]byte(`{"charities":[{"charity_id":"c1","capacity_kg":5,"accepted_categories":["x"]}],
		"surplus":[{"item_id":"i1","categories":"x","quantity_kg":2}]}`))
	require.NoError(t, err)
	assert.Len(t, snap.Charities, 1)
	assert.True(t, snap.Surplus[0].Categories.Has("x"))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("charities: [unterminated"))
	assert.ErrorIs(t, err, model.ErrDataQuality)
}

func TestFileSource(t *testing.T) {
	f := NewFile("testdata/mumbai.yaml", nil)
	items, err := f.SurplusItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	charities, err := f.Charities(context.Background())
	require.NoError(t, err)
	assert.Len(t, charities, 2)

	_, err = NewFile("testdata/missing.yaml", nil).Charities(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Charities(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
