// Package api exposes the redistribution engine over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/foodredist/core/allocation"
	"github.com/kilianp07/foodredist/core/pipeline"
	"github.com/kilianp07/foodredist/core/store"
	"github.com/kilianp07/foodredist/infra/logger"
)

// Engine is the part of app.Service the API serves.
type Engine interface {
	RunOnce(ctx context.Context) (pipeline.RunResult, error)
	Latest() (pipeline.RunResult, bool)
	Allocations(ctx context.Context, q store.Query) ([]store.Record, error)
	Nearby(ctx context.Context, q allocation.NearbyQuery) ([]allocation.Match, error)
	Ping(ctx context.Context) error
}

// Handler holds the route dependencies.
type Handler struct {
	Engine Engine
	Token  string
	Log    logger.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	if h.Log == nil {
		h.Log = logger.NopLogger{}
	}
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/healthz", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := r.Group("/api", h.auth())
	g.POST("/runs", h.triggerRun)
	g.GET("/runs/latest", h.latestRun)
	g.GET("/allocations", h.allocations)
	g.GET("/charities/nearby", h.nearby)
	return r
}

func (h *Handler) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Token != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader("Authorization")), []byte("Bearer "+h.Token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.Log.Debugf("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Engine.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
