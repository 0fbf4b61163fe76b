package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/foodredist/app"
)

// triggerRun handles POST /api/runs.
func (h *Handler) triggerRun(c *gin.Context) {
	res, err := h.Engine.RunOnce(c.Request.Context())
	switch {
	case errors.Is(err, app.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, res)
	default:
		c.JSON(http.StatusOK, res)
	}
}

// latestRun handles GET /api/runs/latest.
func (h *Handler) latestRun(c *gin.Context) {
	res, ok := h.Engine.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run yet"})
		return
	}
	c.JSON(http.StatusOK, res)
}
