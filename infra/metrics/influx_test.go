package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/foodredist/core/metrics"
	"github.com/kilianp07/foodredist/core/model"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineRecorder) handler(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	l.mu.Lock()
	l.lines = append(l.lines, strings.Split(strings.TrimSpace(string(data)), "\n")...)
	l.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func TestInfluxSinkRecordRun(t *testing.T) {
	rec := &lineRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "tok", Org: "org", Bucket: "bucket"})
	defer sink.Close()
	start := time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC)
	require.NoError(t, sink.RecordRun(coremetrics.RunRecord{
		RunID: "r1", Status: "committed", StartedAt: start, Duration: 250 * time.Millisecond,
		Items: 3, Charities: 2, Allocations: 3, RequestedKG: 190, AllocatedKG: 180.12345, ShortfallKG: 9.87655, Persisted: true,
	}))

	p := write.NewPointWithMeasurement("redistribution_run").
		AddTag("run_id", "r1").
		AddTag("status", "committed").
		AddField("items", 3).
		AddField("failed_items", 0).
		AddField("charities", 2).
		AddField("allocations", 3).
		AddField("requested_kg", 190.0).
		AddField("allocated_kg", 180.123).
		AddField("shortfall_kg", 9.877).
		AddField("duration_ms", int64(250)).
		AddField("persisted", true).
		SetTime(start)
	require.Len(t, rec.lines, 1)
	assert.Equal(t, strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)), rec.lines[0])
}

func TestInfluxSinkRecordAllocations(t *testing.T) {
	rec := &lineRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Org: "org", Bucket: "bucket"})
	defer sink.Close()
	at := time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC)
	require.NoError(t, sink.RecordAllocations("r1", at, model.AllocationBatch{
		{ItemID: "i1", CharityID: "c1", AllocatedKG: 10, DistanceKM: 1.5, OperatingNow: true},
		{ItemID: "i1", CharityID: "c2", AllocatedKG: 5, DistanceKM: 3},
	}))
	require.Len(t, rec.lines, 2)
	assert.True(t, strings.HasPrefix(rec.lines[0], "allocation,run_id=r1,item_id=i1,charity_id=c1 "))
	assert.Contains(t, rec.lines[1], "operating_now=false")

	assert.NoError(t, sink.RecordAllocations("r1", at, nil))
	assert.Len(t, rec.lines, 2)
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Timeout: time.Second})
	assert.True(t, called)
	assert.IsType(t, coremetrics.NopSink{}, sink)
}
