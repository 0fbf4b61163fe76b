package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/foodredist/core/model"
	"github.com/kilianp07/foodredist/core/schedule"
	"github.com/kilianp07/foodredist/core/store"
	"github.com/kilianp07/foodredist/infra/logger"
)

// VerificationVerified is the only status whose charities are matched.
const VerificationVerified = "verified"

// Config selects the database.
type Config struct {
	// Driver is "sqlite" or "mysql".
	Driver string `json:"driver" validate:"omitempty,oneof=sqlite mysql"`
	// DSN is a file path for sqlite and a go-sql-driver DSN for mysql.
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns" validate:"gte=0"`
}

// SetDefaults applies a local sqlite file.
func (c *Config) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.DSN == "" && c.Driver == "sqlite" {
		c.DSN = "foodredist.db"
	}
}

// Store is the SQL backed surplus source, charity registry and allocation
// store.
type Store struct {
	db      *sql.DB
	dialect dialect
	loc     *time.Location
	now     func() time.Time
	log     logger.Logger
}

var _ store.AllocationStore = (*Store)(nil)

// Option customises a Store.
type Option func(*Store)

// WithLocation sets the time zone that defines "today" for capacity usage.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithLogger sets the logger used for data quality warnings.
func WithLogger(l logger.Logger) Option { return func(s *Store) { s.log = l } }

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	cfg.SetDefaults()
	d, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if d.driver == "sqlite" {
		// A single writer avoids SQLITE_BUSY on concurrent transactions.
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db, dialect: d, loc: time.UTC, now: time.Now, log: logger.NopLogger{}}
	for _, o := range opts {
		o(s)
	}
	if err := s.migrate(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.dialect.driver, err)
	}
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Charities returns the verified charities with today's scheduled pickups
// already subtracted from their capacity. Unparseable categories or
// operating hours degrade to an empty set or a closed schedule.
func (s *Store) Charities(ctx context.Context) ([]model.Charity, error) {
	used, err := s.usedToday(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, lat, lon, accepted_categories, capacity_kg,
		operating_hours, contact_phone, contact_email
		FROM charities WHERE verification_status = ? ORDER BY id`, VerificationVerified)
	if err != nil {
		return nil, fmt.Errorf("query charities: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []model.Charity
	for rows.Next() {
		var (
			c           model.Charity
			cats, hours string
			capacity    float64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Location.Lat, &c.Location.Lon, &cats, &capacity,
			&hours, &c.ContactPhone, &c.ContactEmail); err != nil {
			return nil, err
		}
		if c.AcceptedCategories, err = model.ParseCategories(cats); err != nil {
			s.log.Warnf("charity %s: %v", c.ID, err)
		}
		if c.Schedule, err = schedule.Parse(hours); err != nil {
			s.log.Warnf("charity %s: %v: %v", c.ID, model.ErrDataQuality, err)
		}
		c.AvailableCapacityKG = math.Max(capacity-used[c.ID], 0)
		out = append(out, c)
	}
	return out, rows.Err()
}

// usedToday sums the quantities scheduled per charity since local midnight.
func (s *Store) usedToday(ctx context.Context) (map[string]float64, error) {
	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)
	rows, err := s.db.QueryContext(ctx, `SELECT charity_id, SUM(quantity_kg) FROM redistribution_logs
		WHERE status = ? AND scheduled_pickup >= ? AND scheduled_pickup < ?
		GROUP BY charity_id`, store.StatusScheduled, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("query scheduled pickups: %w", err)
	}
	defer func() { _ = rows.Close() }()
	used := make(map[string]float64)
	for rows.Next() {
		var (
			id  string
			sum float64
		)
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		used[id] = sum
	}
	return used, rows.Err()
}

// SurplusItems returns the current surplus inventory ordered by ID.
func (s *Store) SurplusItems(ctx context.Context) ([]model.SurplusItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, location_id, lat, lon, categories, quantity_kg
		FROM surplus_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query surplus: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []model.SurplusItem
	for rows.Next() {
		var (
			it   model.SurplusItem
			cats string
		)
		if err := rows.Scan(&it.ID, &it.LocationID, &it.Origin.Lat, &it.Origin.Lon, &cats, &it.QuantityKG); err != nil {
			return nil, err
		}
		if it.Categories, err = model.ParseCategories(cats); err != nil {
			s.log.Warnf("surplus item %s: %v", it.ID, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// SaveBatch writes every allocation as a scheduled redistribution log in a
// single transaction.
func (s *Store) SaveBatch(ctx context.Context, runID string, at time.Time, batch model.AllocationBatch) (err error) {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rerr)
			}
		}
	}()
	stmt, err := tx.PrepareContext(ctx, insert("redistribution_logs", logColumns))
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range store.ToRecords(runID, at, batch) {
		if _, err = stmt.ExecContext(ctx, r.ID, r.RunID, r.ItemID, r.CharityID, r.CharityName,
			r.QuantityKG, r.DistanceKM, r.Contact, r.SurplusLocation, r.ScheduledPickup.Unix(), r.Status); err != nil {
			return fmt.Errorf("insert allocation %s/%s: %w", r.ItemID, r.CharityID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

var logColumns = []string{"id", "run_id", "item_id", "charity_id", "charity_name", "quantity_kg",
	"distance_km", "contact", "surplus_location", "scheduled_pickup", "status"}

// Query returns stored allocations ordered by pickup time.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	var args []any
	query := `SELECT id, run_id, item_id, charity_id, charity_name, quantity_kg, distance_km,
		contact, surplus_location, scheduled_pickup, status FROM redistribution_logs WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND scheduled_pickup >= ?`
		args = append(args, q.Start.Unix())
	}
	if !q.End.IsZero() {
		query += ` AND scheduled_pickup <= ?`
		args = append(args, q.End.Unix())
	}
	if q.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, q.RunID)
	}
	if q.ItemID != "" {
		query += ` AND item_id = ?`
		args = append(args, q.ItemID)
	}
	if q.CharityID != "" {
		query += ` AND charity_id = ?`
		args = append(args, q.CharityID)
	}
	query += ` ORDER BY scheduled_pickup, item_id, charity_id`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []store.Record
	for rows.Next() {
		var (
			r  store.Record
			ts int64
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.ItemID, &r.CharityID, &r.CharityName, &r.QuantityKG,
			&r.DistanceKM, &r.Contact, &r.SurplusLocation, &ts, &r.Status); err != nil {
			return nil, err
		}
		r.ScheduledPickup = time.Unix(ts, 0).In(s.loc)
		res = append(res, r)
	}
	return res, rows.Err()
}

// UpsertCharities inserts or replaces charities with the given verification
// status.
func (s *Store) UpsertCharities(ctx context.Context, charities []model.Charity, status string) error {
	cols := []string{"id", "name", "lat", "lon", "accepted_categories", "capacity_kg",
		"operating_hours", "contact_phone", "contact_email", "verification_status"}
	return s.upsertAll(ctx, "charities", cols, len(charities), func(i int) ([]any, error) {
		c := charities[i]
		cats, err := json.Marshal(c.AcceptedCategories)
		if err != nil {
			return nil, err
		}
		hours, err := json.Marshal(c.Schedule)
		if err != nil {
			return nil, err
		}
		return []any{c.ID, c.Name, c.Location.Lat, c.Location.Lon, string(cats), c.AvailableCapacityKG,
			string(hours), c.ContactPhone, c.ContactEmail, status}, nil
	})
}

// UpsertSurplus inserts or replaces surplus items.
func (s *Store) UpsertSurplus(ctx context.Context, items []model.SurplusItem) error {
	cols := []string{"id", "location_id", "lat", "lon", "categories", "quantity_kg"}
	return s.upsertAll(ctx, "surplus_items", cols, len(items), func(i int) ([]any, error) {
		it := items[i]
		cats, err := json.Marshal(it.Categories)
		if err != nil {
			return nil, err
		}
		return []any{it.ID, it.LocationID, it.Origin.Lat, it.Origin.Lon, string(cats), it.QuantityKG}, nil
	})
}

func (s *Store) upsertAll(ctx context.Context, table string, cols []string, n int, row func(int) ([]any, error)) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, s.dialect.upsert(table, cols))
	if err != nil {
		return fmt.Errorf("prepare %s upsert: %w", table, err)
	}
	defer func() { _ = stmt.Close() }()
	for i := 0; i < n; i++ {
		args, rerr := row(i)
		if rerr != nil {
			return rerr
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("upsert %s row %d: %w", table, i, err)
		}
	}
	return tx.Commit()
}
