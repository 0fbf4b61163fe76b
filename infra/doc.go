// Package infra holds the adapters behind the core interfaces: the SQL
// store, snapshot files, metrics sinks, the MQTT pickup notifier and error
// monitoring. Infra packages depend on core, never the reverse.
package infra
