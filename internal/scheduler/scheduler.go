package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/weathertrends/weathertrends/internal/pipeline"
)

// Scheduler triggers one unattended pipeline run per day at a fixed
// wall-clock time. Trigger semantics are at-least-once-per-day at
// minute granularity, not precise-to-the-second.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    *pipeline.Runner
	cities    []string
	at        string // "HH:MM"
	log       *slog.Logger
}

// New creates a Scheduler firing daily at the given local time.
func New(runner *pipeline.Runner, cities []string, at string, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll() // a slow run must never overlap the next trigger
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		cities:    cities,
		at:        at,
		log:       logger,
	}
}

// Start schedules the daily job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 {
		s.log.Warn("no cities configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(1).Day().At(s.at).Do(func() {
		s.log.Info("scheduled pipeline run triggered", "cities", s.cities)

		res, err := s.runner.Run(context.Background(), s.cities)
		switch {
		case errors.Is(err, pipeline.ErrRunInProgress):
			s.log.Warn("skipping scheduled run; another run is active")
		case errors.Is(err, pipeline.ErrNoForecasts):
			s.log.Error("scheduled run fetched no forecasts", "failed", res.Failed)
		case err != nil:
			// Fatal stage failure; rely on tomorrow's trigger for recovery.
			s.log.Error("scheduled run aborted", "error", err)
		default:
			s.log.Info("scheduled run completed",
				"fetched", len(res.Fetched), "failed", len(res.Failed), "stored", res.Stored)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
