package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/weathertrends/weathertrends/internal/forecast"
)

var (
	// ErrRunLocked means another pipeline run holds the run lock.
	ErrRunLocked = errors.New("another pipeline run is in progress")
)

// WriteError wraps a persistence failure. The whole batch it belongs to
// has been rolled back.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store readings: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// QueryError wraps an aggregation read failure.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query readings: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// runLockKey scopes the Postgres advisory lock to this application's
// pipeline runs.
const runLockKey = 0x77647461 // "wdta"

// Options configure the repository connection.
type Options struct {
	Driver string // "pgx" in production, "sqlite3" in tests
	DSN    string
	Schema string // optional; prefixes the weather_data table

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Repository persists normalized readings into the relational
// weather_data table and reads them back for aggregation. Rows are
// append-only; nothing mutates a row after insert.
type Repository struct {
	db     *sql.DB
	table  string
	schema string
	// advisory locks are a Postgres feature; other drivers fall back to
	// the in-process pipeline mutex only.
	advisoryLocks bool
	// lockConn pins the session holding the advisory lock; pg advisory
	// locks are session-scoped, so lock and unlock must run on the same
	// pooled connection.
	lockConn *sql.Conn
}

// Open connects, tunes the pool and validates connectivity early.
func Open(opts Options) (*Repository, error) {
	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return NewRepository(db, opts.Driver, opts.Schema), nil
}

// NewRepository wraps an existing connection. Exposed for tests that
// bring their own database handle.
func NewRepository(db *sql.DB, driver, schema string) *Repository {
	table := "weather_data"
	if schema != "" {
		table = schema + ".weather_data"
	}
	return &Repository{
		db:            db,
		table:         table,
		schema:        schema,
		advisoryLocks: driver == "pgx",
	}
}

// Close releases the underlying pool.
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// InitSchema creates the schema and table if they do not exist.
func (r *Repository) InitSchema(ctx context.Context) error {
	if r.schema != "" {
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", r.schema)); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	ddl := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		city                TEXT NOT NULL,
		temperature         FLOAT NOT NULL,
		humidity            INTEGER NOT NULL,
		weather_description TEXT NOT NULL,
		timestamp           TIMESTAMP NOT NULL
	)`, r.table)
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_weather_data_city_ts ON %s (city, timestamp)", r.table)
	if _, err := r.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// StoreReadings inserts a batch of readings in a single transaction.
// Either every reading in the batch becomes durable or none does; the
// first failed insert rolls the whole batch back and surfaces a
// *WriteError.
func (r *Repository) StoreReadings(ctx context.Context, readings []forecast.Reading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &WriteError{Err: err}
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := fmt.Sprintf(`
		INSERT INTO %s (city, temperature, humidity, weather_description, timestamp)
		VALUES ($1, $2, $3, $4, $5)`, r.table)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, &WriteError{Err: err}
	}
	defer stmt.Close()

	for _, rd := range readings {
		if _, err := stmt.ExecContext(ctx,
			rd.City, rd.Temperature, rd.Humidity, rd.Description, rd.Timestamp.UTC(),
		); err != nil {
			return 0, &WriteError{Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &WriteError{Err: err}
	}
	return len(readings), nil
}

// ReadWindow returns all rows with timestamp >= from, ordered by city
// then timestamp. Timestamps come back in UTC.
func (r *Repository) ReadWindow(ctx context.Context, from time.Time) ([]forecast.Reading, error) {
	query := fmt.Sprintf(`
		SELECT city, timestamp, temperature, humidity
		FROM %s
		WHERE timestamp >= $1
		ORDER BY city, timestamp`, r.table)

	rows, err := r.db.QueryContext(ctx, query, from.UTC())
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	defer rows.Close()

	var out []forecast.Reading
	for rows.Next() {
		var rd forecast.Reading
		if err := rows.Scan(&rd.City, &rd.Timestamp, &rd.Temperature, &rd.Humidity); err != nil {
			return nil, &QueryError{Err: err}
		}
		rd.Timestamp = rd.Timestamp.UTC()
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Err: err}
	}
	return out, nil
}

// AcquireRunLock takes the session-scoped advisory lock guarding
// pipeline runs. Returns ErrRunLocked without blocking when another
// session holds it. On drivers without advisory locks this is a no-op;
// the pipeline's in-process mutex is the only guard there.
func (r *Repository) AcquireRunLock(ctx context.Context) error {
	if !r.advisoryLocks {
		return nil
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return &QueryError{Err: err}
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", runLockKey).Scan(&acquired); err != nil {
		_ = conn.Close()
		return &QueryError{Err: err}
	}
	if !acquired {
		_ = conn.Close()
		return ErrRunLocked
	}

	r.lockConn = conn
	return nil
}

// ReleaseRunLock releases the advisory run lock and returns its
// connection to the pool.
func (r *Repository) ReleaseRunLock(ctx context.Context) error {
	if !r.advisoryLocks || r.lockConn == nil {
		return nil
	}

	conn := r.lockConn
	r.lockConn = nil

	_, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", runLockKey)
	if closeErr := conn.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return &QueryError{Err: err}
	}
	return nil
}
