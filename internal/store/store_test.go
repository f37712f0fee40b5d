package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/weathertrends/weathertrends/internal/forecast"
)

// Tests run against in-memory sqlite; the SQL is shared with the pgx
// path (numbered placeholders, ANSI DDL). Advisory locks degrade to a
// no-op on sqlite by design.
func setupRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	repo := NewRepository(db, "sqlite3", "")
	require.NoError(t, repo.InitSchema(context.Background()))
	return repo
}

func reading(city string, ts time.Time, temp float64, humidity int) forecast.Reading {
	return forecast.Reading{
		City:        city,
		Timestamp:   ts,
		Temperature: temp,
		Humidity:    humidity,
		Description: "scattered clouds",
	}
}

func TestStoreReadingsRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 8, 27, 9, 0, 0, 0, time.UTC)

	batch := []forecast.Reading{
		reading("Paris", base, 10.0, 70),
		reading("Paris", base.Add(3*time.Hour), 12.5, 65),
		reading("Berlin", base, 18.0, 55),
	}

	n, err := repo.StoreReadings(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	got, err := repo.ReadWindow(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by city then timestamp.
	require.Equal(t, "Berlin", got[0].City)
	require.Equal(t, "Paris", got[1].City)
	require.Equal(t, "Paris", got[2].City)
	require.True(t, got[1].Timestamp.Before(got[2].Timestamp))

	require.Equal(t, 18.0, got[0].Temperature)
	require.Equal(t, 55, got[0].Humidity)
	require.True(t, got[0].Timestamp.Equal(base))
}

func TestReadWindowExcludesOlderRows(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	cutoff := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)

	_, err := repo.StoreReadings(ctx, []forecast.Reading{
		reading("Paris", cutoff.Add(-24*time.Hour), 9.0, 80), // yesterday
		reading("Paris", cutoff.Add(9*time.Hour), 11.0, 70),  // today
	})
	require.NoError(t, err)

	got, err := repo.ReadWindow(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Timestamp.Equal(cutoff.Add(9*time.Hour)))
}

func TestStoreReadingsEmptyBatch(t *testing.T) {
	repo := setupRepo(t)

	n, err := repo.StoreReadings(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestStoreReadingsBatchIsAtomic(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	// Same shape as InitSchema plus a humidity range constraint so a
	// mid-batch insert can fail.
	_, err = db.Exec(`
	CREATE TABLE weather_data (
		city                TEXT NOT NULL,
		temperature         FLOAT NOT NULL,
		humidity            INTEGER NOT NULL CHECK (humidity BETWEEN 0 AND 100),
		weather_description TEXT NOT NULL,
		timestamp           TIMESTAMP NOT NULL
	)`)
	require.NoError(t, err)

	repo := NewRepository(db, "sqlite3", "")
	ctx := context.Background()
	base := time.Date(2025, 8, 27, 9, 0, 0, 0, time.UTC)

	_, err = repo.StoreReadings(ctx, []forecast.Reading{
		reading("Paris", base, 10.0, 70),
		reading("Paris", base.Add(3*time.Hour), 12.0, 150), // violates the check
		reading("Paris", base.Add(6*time.Hour), 11.0, 60),
	})

	var we *WriteError
	require.ErrorAs(t, err, &we)

	// No partial commit: the valid first row must not be visible.
	got, err := repo.ReadWindow(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRunLockIsNoOpWithoutAdvisorySupport(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AcquireRunLock(ctx))
	require.NoError(t, repo.ReleaseRunLock(ctx))
}

func TestSchemaQualifiesTableName(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	repo := NewRepository(db, "pgx", "weather")
	require.Equal(t, "weather.weather_data", repo.table)
	require.True(t, repo.advisoryLocks)

	repo = NewRepository(db, "sqlite3", "")
	require.Equal(t, "weather_data", repo.table)
	require.False(t, repo.advisoryLocks)
}

func TestQueryErrorWrapping(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Close()) // force failures

	repo := NewRepository(db, "sqlite3", "")

	_, err = repo.ReadWindow(context.Background(), time.Now())
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	require.Error(t, qe.Err)
}
