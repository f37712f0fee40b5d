package api

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/weathertrends/weathertrends/internal/aggregate"
	"github.com/weathertrends/weathertrends/internal/pipeline"
)

var validate = validator.New()

// RegisterRoutes wires the status API into the Fiber app. The API is a
// read/trigger surface over the same pipeline contract the CLI and the
// scheduler use.
func RegisterRoutes(app *fiber.App, runner *pipeline.Runner, defaultCities []string) {
	v1 := app.Group("/api/v1")

	v1.Get("/aggregates", func(c *fiber.Ctx) error {
		days, err := runner.Aggregates(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read aggregates")
		}

		if city := c.Query("city"); city != "" {
			filtered := make([]aggregate.CityDay, 0, len(days))
			for _, d := range days {
				if d.City == city {
					filtered = append(filtered, d)
				}
			}
			days = filtered
		}

		return c.JSON(fiber.Map{
			"aggregates": days,
			"summaries":  aggregate.Summaries(days),
		})
	})

	v1.Post("/runs", func(c *fiber.Ctx) error {
		var req runRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		if len(req.Cities) == 0 {
			req.Cities = defaultCities
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := runner.Run(c.Context(), req.Cities)
		switch {
		case errors.Is(err, pipeline.ErrRunInProgress):
			return fiber.NewError(fiber.StatusConflict, "a pipeline run is already in progress")
		case errors.Is(err, pipeline.ErrNoForecasts):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":  true,
				"failed": res.Failed,
			})
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, "pipeline run failed")
		}

		return c.JSON(res)
	})
}

// runRequest is the manual trigger body.
type runRequest struct {
	Cities []string `json:"cities" validate:"required,min=1,dive,required"`
}
