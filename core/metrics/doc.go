// Package metrics defines how redistribution runs are reported to
// observability backends. Sinks are built from configuration through a
// factory registry; the Prometheus and InfluxDB implementations live in
// infra/metrics and register themselves on import. Several configured sinks
// are combined into a MultiSink.
package metrics
