// Package store defines where committed allocation batches go. The SQL
// implementation lives in infra/sqlstore.
package store
