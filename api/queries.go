package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/foodredist/core/allocation"
	"github.com/kilianp07/foodredist/core/model"
	"github.com/kilianp07/foodredist/core/store"
	"github.com/kilianp07/foodredist/pkg/export"
)

// allocations handles GET /api/allocations. start and end are RFC3339;
// format=csv returns a CSV attachment.
func (h *Handler) allocations(c *gin.Context) {
	q := store.Query{
		RunID:     c.Query("run_id"),
		ItemID:    c.Query("item_id"),
		CharityID: c.Query("charity_id"),
	}
	var err error
	if q.Start, err = timeParam(c, "start"); err != nil {
		badRequest(c, err)
		return
	}
	if q.End, err = timeParam(c, "end"); err != nil {
		badRequest(c, err)
		return
	}
	if s := c.Query("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 0 {
			badRequest(c, fmt.Errorf("invalid limit %q", s))
			return
		}
	}
	records, err := h.Engine.Allocations(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="allocations.csv"`)
		if err := export.WriteCSV(c.Writer, records); err != nil {
			h.Log.Errorf("write csv: %v", err)
		}
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	c.JSON(http.StatusOK, records)
}

// nearby handles GET /api/charities/nearby.
func (h *Handler) nearby(c *gin.Context) {
	var (
		q   allocation.NearbyQuery
		err error
	)
	if q.Origin.Lat, err = floatParam(c, "lat", true); err != nil {
		badRequest(c, err)
		return
	}
	if q.Origin.Lon, err = floatParam(c, "lon", true); err != nil {
		badRequest(c, err)
		return
	}
	if err = q.Origin.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	if q.MinCapacityKG, err = floatParam(c, "quantity", false); err != nil {
		badRequest(c, err)
		return
	}
	if q.MaxDistanceKM, err = floatParam(c, "max_km", false); err != nil {
		badRequest(c, err)
		return
	}
	if q.Categories, err = model.ParseCategories(c.Query("category")); err != nil {
		badRequest(c, err)
		return
	}
	if s := c.Query("open_now"); s != "" {
		if q.OpenOnly, err = strconv.ParseBool(s); err != nil {
			badRequest(c, fmt.Errorf("invalid open_now %q", s))
			return
		}
	}
	matches, err := h.Engine.Nearby(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if matches == nil {
		matches = []allocation.Match{}
	}
	c.JSON(http.StatusOK, matches)
}

func timeParam(c *gin.Context, name string) (time.Time, error) {
	s := c.Query(name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: want RFC3339", name, s)
	}
	return t, nil
}

func floatParam(c *gin.Context, name string, required bool) (float64, error) {
	s := c.Query(name)
	if s == "" {
		if required {
			return 0, fmt.Errorf("%s is required", name)
		}
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return f, nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
