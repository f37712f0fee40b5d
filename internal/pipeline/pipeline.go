// Package pipeline orchestrates one fetch → normalize → persist →
// aggregate → render cycle. Both the interactive CLI and the daily
// scheduler are thin callers of Runner.Run; neither duplicates any
// stage logic.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weathertrends/weathertrends/internal/aggregate"
	"github.com/weathertrends/weathertrends/internal/forecast"
	"github.com/weathertrends/weathertrends/internal/provider"
	"github.com/weathertrends/weathertrends/internal/store"
)

var (
	// ErrRunInProgress means another run holds the pipeline lock in this
	// process or, via the store's advisory lock, in another one.
	ErrRunInProgress = errors.New("pipeline run already in progress")

	// ErrNoForecasts means every requested city failed at the fetch
	// stage; nothing was persisted. Recoverable: the interactive caller
	// re-prompts, the scheduler waits for the next trigger.
	ErrNoForecasts = errors.New("no city produced a forecast")
)

// Result summarizes one completed run.
type Result struct {
	RunID      string              `json:"runId"`
	Fetched    []string            `json:"fetched"`          // cities that produced readings
	Failed     map[string]string   `json:"failed,omitempty"` // city -> fetch failure
	Stored     int                 `json:"stored"`
	Aggregates []aggregate.CityDay `json:"aggregates"`
}

// Fetcher abstracts the forecast data source.
type Fetcher interface {
	FetchForecast(ctx context.Context, city string) (forecast.RawForecast, error)
}

// ReadingStore is the persistence contract the pipeline needs.
type ReadingStore interface {
	StoreReadings(ctx context.Context, readings []forecast.Reading) (int, error)
	ReadWindow(ctx context.Context, from time.Time) ([]forecast.Reading, error)
	AcquireRunLock(ctx context.Context) error
	ReleaseRunLock(ctx context.Context) error
}

// Renderer consumes the aggregated window and produces artifacts.
type Renderer interface {
	Render(days []aggregate.CityDay) error
}

// Runner wires the pipeline stages together.
type Runner struct {
	provider Fetcher
	repo     ReadingStore
	renderer Renderer
	log      *slog.Logger

	fetchTimeout time.Duration
	storeTimeout time.Duration
	horizon      int

	mu sync.Mutex // at most one active run per process
}

// NewRunner creates a Runner. Timeouts bound the fetch and persistence
// stages; horizon caps the number of distinct forecast dates aggregated.
func NewRunner(p Fetcher, repo ReadingStore, renderer Renderer,
	logger *slog.Logger, fetchTimeout, storeTimeout time.Duration, horizon int) *Runner {
	if horizon <= 0 {
		horizon = aggregate.DefaultHorizon
	}
	return &Runner{
		provider:     p,
		repo:         repo,
		renderer:     renderer,
		log:          logger,
		fetchTimeout: fetchTimeout,
		storeTimeout: storeTimeout,
		horizon:      horizon,
	}
}

// Run executes one full pipeline cycle for the given cities. Fetch
// failures are recoverable per city: the city is recorded in
// Result.Failed and the run continues with the rest. Schema, write,
// query and render errors abort the run. When no city produces a
// forecast, Run returns ErrNoForecasts without touching the database.
func (r *Runner) Run(ctx context.Context, cities []string) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	if err := r.repo.AcquireRunLock(ctx); err != nil {
		if errors.Is(err, store.ErrRunLocked) {
			return nil, ErrRunInProgress
		}
		return nil, err
	}
	defer func() {
		if err := r.repo.ReleaseRunLock(ctx); err != nil {
			r.log.Error("release run lock", "error", err)
		}
	}()

	res := &Result{
		RunID:  uuid.NewString(),
		Failed: make(map[string]string),
	}
	log := r.log.With("run_id", res.RunID)
	log.Info("pipeline run started", "cities", cities)

	var readings []forecast.Reading
	for _, city := range cities {
		batch, err := r.fetchCity(ctx, city)
		if err != nil {
			if provider.IsFetchError(err) {
				log.Warn("fetch failed; skipping city", "city", city, "error", err)
				res.Failed[city] = err.Error()
				continue
			}
			// SchemaError and anything unexpected are fatal for the run.
			log.Error("pipeline aborted", "city", city, "error", err)
			return nil, err
		}
		res.Fetched = append(res.Fetched, city)
		readings = append(readings, batch...)
	}

	if len(readings) == 0 {
		return res, ErrNoForecasts
	}

	stored, err := r.persist(ctx, readings)
	if err != nil {
		log.Error("pipeline aborted", "stage", "persist", "error", err)
		return nil, err
	}
	res.Stored = stored
	log.Info("readings persisted", "count", stored)

	days, err := r.Aggregates(ctx)
	if err != nil {
		log.Error("pipeline aborted", "stage", "aggregate", "error", err)
		return nil, err
	}
	res.Aggregates = days

	if err := r.renderer.Render(days); err != nil {
		log.Error("pipeline aborted", "stage", "render", "error", err)
		return nil, err
	}

	log.Info("pipeline run finished",
		"fetched", len(res.Fetched),
		"failed", len(res.Failed),
		"stored", res.Stored,
		"aggregates", len(res.Aggregates),
	)
	return res, nil
}

// Aggregates recomputes the current forecast window's daily aggregates
// from the store. Shared by the run cycle and the status API.
func (r *Runner) Aggregates(ctx context.Context) ([]aggregate.CityDay, error) {
	qctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	rows, err := r.repo.ReadWindow(qctx, todayUTC())
	if err != nil {
		return nil, err
	}
	return aggregate.Daily(rows, r.horizon), nil
}

func (r *Runner) fetchCity(ctx context.Context, city string) ([]forecast.Reading, error) {
	fctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	raw, err := r.provider.FetchForecast(fctx, city)
	if err != nil {
		return nil, err
	}
	return forecast.Normalize(raw)
}

func (r *Runner) persist(ctx context.Context, readings []forecast.Reading) (int, error) {
	sctx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	return r.repo.StoreReadings(sctx, readings)
}

func todayUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
