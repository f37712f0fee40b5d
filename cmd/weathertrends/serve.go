package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/weathertrends/weathertrends/internal/api"
	"github.com/weathertrends/weathertrends/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily scheduler and the status API",
	Long: `Starts the unattended mode: a daily trigger runs the pipeline for the
configured cities at the configured wall-clock time, and a small HTTP
API exposes current aggregates and a manual run trigger.`,
	RunE: serve,
}

func serve(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	sched := scheduler.New(a.runner, a.cfg.Cities, a.cfg.ScheduleAt, a.log.With("component", "scheduler"))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weathertrends",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weathertrends",
		})
	})

	api.RegisterRoutes(app, a.runner, a.cfg.Cities)

	go func() {
		if err := app.Listen(":" + a.cfg.Port); err != nil {
			a.log.Error("fiber server stopped", "error", err)
		}
	}()
	a.log.Info("serving", "port", a.cfg.Port, "schedule_at", a.cfg.ScheduleAt, "cities", a.cfg.Cities)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		a.log.Error("error during shutdown", "error", err)
	}
	return nil
}
