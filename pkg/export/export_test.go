package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/foodredist/core/store"
)

var records = []store.Record{{
	RunID: "r1", ItemID: "rice", CharityID: "annapurna", CharityName: "Annapurna, Andheri",
	QuantityKG: 80, DistanceKM: 5.81, SurplusLocation: "19.1197,72.8468",
	ScheduledPickup: time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC), Status: store.StatusScheduled,
}}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "csv", records))
	assert.Equal(t,
		"run_id,item_id,charity_id,charity_name,quantity_kg,distance_km,contact,surplus_location,scheduled_pickup,status\n"+
			"r1,rice,annapurna,\"Annapurna, Andheri\",80,5.81,,\"19.1197,72.8468\",2025-01-07T10:00:00Z,scheduled\n",
		buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "", nil))
	assert.JSONEq(t, `[]`, buf.String())

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, records))
	assert.Contains(t, buf.String(), `"charity_id": "annapurna"`)
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, "xml", records))
}
