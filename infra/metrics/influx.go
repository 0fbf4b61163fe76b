package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/shopspring/decimal"

	coremetrics "github.com/kilianp07/foodredist/core/metrics"
	"github.com/kilianp07/foodredist/core/model"
	"github.com/kilianp07/foodredist/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL     string        `json:"url"`
	Token   string        `json:"token"`
	Org     string        `json:"org"`
	Bucket  string        `json:"bucket"`
	Timeout time.Duration `json:"timeout"`
}

// InfluxSink writes run summaries and allocations to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	timeout  time.Duration
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given endpoint without checking it.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		timeout:  cfg.Timeout,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback checks the instance health and returns a NopSink
// when it is unreachable.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), sink.timeout)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one redistribution_run point.
func (s *InfluxSink) RecordRun(rec coremetrics.RunRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	p := write.NewPointWithMeasurement("redistribution_run").
		AddTag("run_id", rec.RunID).
		AddTag("status", rec.Status).
		AddField("items", rec.Items).
		AddField("failed_items", rec.FailedItems).
		AddField("charities", rec.Charities).
		AddField("allocations", rec.Allocations).
		AddField("requested_kg", round3(rec.RequestedKG)).
		AddField("allocated_kg", round3(rec.AllocatedKG)).
		AddField("shortfall_kg", round3(rec.ShortfallKG)).
		AddField("duration_ms", rec.Duration.Milliseconds()).
		AddField("persisted", rec.Persisted).
		SetTime(rec.StartedAt)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAllocations writes one allocation point per batch entry.
func (s *InfluxSink) RecordAllocations(runID string, at time.Time, batch model.AllocationBatch) error {
	if len(batch) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	points := make([]*write.Point, len(batch))
	for i, a := range batch {
		points[i] = write.NewPointWithMeasurement("allocation").
			AddTag("run_id", runID).
			AddTag("item_id", a.ItemID).
			AddTag("charity_id", a.CharityID).
			AddField("allocated_kg", round3(a.AllocatedKG)).
			AddField("distance_km", a.DistanceKM).
			AddField("operating_now", a.OperatingNow).
			SetTime(at)
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return decimal.NewFromFloat(f).Round(3).InexactFloat64()
}
