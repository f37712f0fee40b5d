package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/weathertrends/weathertrends/internal/chart"
	"github.com/weathertrends/weathertrends/internal/config"
	"github.com/weathertrends/weathertrends/internal/logging"
	"github.com/weathertrends/weathertrends/internal/pipeline"
	"github.com/weathertrends/weathertrends/internal/provider"
	"github.com/weathertrends/weathertrends/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "weathertrends",
	Short: "Fetch city weather forecasts, persist them and chart daily trends",
	Long: `weathertrends retrieves multi-day forecasts for configured cities,
stores the normalized readings in PostgreSQL and renders daily average
temperature and humidity trend charts.

Run it interactively with "run", or as a daily-scheduled service with "serve".`,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

// app bundles the wired components shared by the run and serve commands.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	repo   *store.Repository
	runner *pipeline.Runner
}

func (a *app) close() {
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.log.Error("close store", "error", err)
		}
	}
}

// buildApp loads configuration and wires provider, store, renderer and
// runner together.
func buildApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.AppEnv, cfg.LogLevel)

	repo, err := store.Open(store.Options{
		Driver:       "pgx",
		DSN:          cfg.DSN(),
		Schema:       cfg.DBSchema,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if err := repo.InitSchema(cmd.Context()); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	client := provider.NewClient(httpClient, cfg.APIKey, cfg.BaseURL)
	renderer := chart.NewRenderer(cfg.ChartDir, logger.With("component", "chart"))

	runner := pipeline.NewRunner(client, repo, renderer,
		logger.With("component", "pipeline"),
		cfg.HTTPTimeout, cfg.DBTimeout, 0)

	return &app{cfg: cfg, log: logger, repo: repo, runner: runner}, nil
}
