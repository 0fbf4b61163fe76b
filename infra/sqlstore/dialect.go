package sqlstore

import (
	"fmt"
	"strings"
)

// dialect holds the statements that differ between database engines.
type dialect struct {
	driver string
	schema []string
	// upsert renders an insert that overwrites the row on a primary key
	// conflict.
	upsert func(table string, cols []string) string
}

var dialects = map[string]dialect{
	"sqlite": {
		driver: "sqlite",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS charities (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				lat REAL NOT NULL,
				lon REAL NOT NULL,
				accepted_categories TEXT NOT NULL DEFAULT '[]',
				capacity_kg REAL NOT NULL DEFAULT 0,
				operating_hours TEXT NOT NULL DEFAULT '',
				contact_phone TEXT NOT NULL DEFAULT '',
				contact_email TEXT NOT NULL DEFAULT '',
				verification_status TEXT NOT NULL DEFAULT 'pending'
			)`,
			`CREATE TABLE IF NOT EXISTS surplus_items (
				id TEXT PRIMARY KEY,
				location_id TEXT NOT NULL DEFAULT '',
				lat REAL NOT NULL,
				lon REAL NOT NULL,
				categories TEXT NOT NULL DEFAULT '[]',
				quantity_kg REAL NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS redistribution_logs (
				id TEXT PRIMARY KEY,
				run_id TEXT NOT NULL,
				item_id TEXT NOT NULL,
				charity_id TEXT NOT NULL,
				charity_name TEXT NOT NULL DEFAULT '',
				quantity_kg REAL NOT NULL,
				distance_km REAL NOT NULL,
				contact TEXT NOT NULL DEFAULT '',
				surplus_location TEXT NOT NULL DEFAULT '',
				scheduled_pickup INTEGER NOT NULL,
				status TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_logs_charity_pickup ON redistribution_logs (charity_id, scheduled_pickup)`,
		},
		upsert: func(table string, cols []string) string {
			set := make([]string, 0, len(cols)-1)
			for _, c := range cols[1:] {
				set = append(set, c+" = excluded."+c)
			}
			return insert(table, cols) + " ON CONFLICT(" + cols[0] + ") DO UPDATE SET " + strings.Join(set, ", ")
		},
	},
	"mysql": {
		driver: "mysql",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS charities (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				lat DOUBLE NOT NULL,
				lon DOUBLE NOT NULL,
				accepted_categories TEXT NOT NULL,
				capacity_kg DOUBLE NOT NULL DEFAULT 0,
				operating_hours TEXT NOT NULL,
				contact_phone VARCHAR(64) NOT NULL DEFAULT '',
				contact_email VARCHAR(255) NOT NULL DEFAULT '',
				verification_status VARCHAR(32) NOT NULL DEFAULT 'pending'
			)`,
			`CREATE TABLE IF NOT EXISTS surplus_items (
				id VARCHAR(64) PRIMARY KEY,
				location_id VARCHAR(64) NOT NULL DEFAULT '',
				lat DOUBLE NOT NULL,
				lon DOUBLE NOT NULL,
				categories TEXT NOT NULL,
				quantity_kg DOUBLE NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS redistribution_logs (
				id VARCHAR(36) PRIMARY KEY,
				run_id VARCHAR(36) NOT NULL,
				item_id VARCHAR(64) NOT NULL,
				charity_id VARCHAR(64) NOT NULL,
				charity_name VARCHAR(255) NOT NULL DEFAULT '',
				quantity_kg DOUBLE NOT NULL,
				distance_km DOUBLE NOT NULL,
				contact VARCHAR(255) NOT NULL DEFAULT '',
				surplus_location VARCHAR(64) NOT NULL DEFAULT '',
				scheduled_pickup BIGINT NOT NULL,
				status VARCHAR(32) NOT NULL,
				INDEX idx_logs_charity_pickup (charity_id, scheduled_pickup)
			)`,
		},
		upsert: func(table string, cols []string) string {
			set := make([]string, 0, len(cols)-1)
			for _, c := range cols[1:] {
				set = append(set, c+" = VALUES("+c+")")
			}
			return insert(table, cols) + " ON DUPLICATE KEY UPDATE " + strings.Join(set, ", ")
		},
	},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
	return d, nil
}

func insert(table string, cols []string) string {
	return "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
}
