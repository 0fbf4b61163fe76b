// Package export writes redistribution log records for reporting.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/foodredist/core/store"
)

// Header is the CSV column order.
var Header = []string{"run_id", "item_id", "charity_id", "charity_name", "quantity_kg", "distance_km", "contact", "surplus_location", "scheduled_pickup", "status"}

// WriteJSON writes the records to w as a JSON array.
func WriteJSON(w io.Writer, records []store.Record) error {
	if records == nil {
		records = []store.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteCSV writes the records to w with a header row.
func WriteCSV(w io.Writer, records []store.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.RunID,
			r.ItemID,
			r.CharityID,
			r.CharityName,
			strconv.FormatFloat(r.QuantityKG, 'f', -1, 64),
			strconv.FormatFloat(r.DistanceKM, 'f', -1, 64),
			r.Contact,
			r.SurplusLocation,
			r.ScheduledPickup.Format(time.RFC3339),
			r.Status,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write dispatches on format: "csv" or "json".
func Write(w io.Writer, format string, records []store.Record) error {
	switch format {
	case "csv":
		return WriteCSV(w, records)
	case "json", "":
		return WriteJSON(w, records)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
