// Package chart pivots daily aggregates into city-by-date matrices and
// renders them as bar chart artifacts.
package chart

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/weathertrends/weathertrends/internal/aggregate"
)

// Artifact filenames are fixed; each run overwrites the previous charts.
const (
	TemperatureChartFile = "forecast_temperature_trends_by_city.png"
	HumidityChartFile    = "forecast_humidity_trends_by_city.png"
)

// RenderError is an artifact write failure (disk full, bad directory).
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render chart %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer writes trend charts into a target directory and logs a
// per-city summary of the window.
type Renderer struct {
	dir string
	log *slog.Logger
}

// NewRenderer creates a Renderer writing into dir ("." for the working
// directory, matching the original artifact location).
func NewRenderer(dir string, logger *slog.Logger) *Renderer {
	if dir == "" {
		dir = "."
	}
	return &Renderer{dir: dir, log: logger}
}

// Render emits the temperature and humidity charts for the given
// aggregates and logs each city's mean values across the window. An
// empty aggregate set yields valid but empty chart images, never an
// error.
func (r *Renderer) Render(days []aggregate.CityDay) error {
	tempPath := filepath.Join(r.dir, TemperatureChartFile)
	humPath := filepath.Join(r.dir, HumidityChartFile)

	if err := r.renderBars(tempPath, "Forecasted Daily Average Temperature Trends by City",
		days, func(d aggregate.CityDay) float64 { return d.AvgTemperature }); err != nil {
		return err
	}
	if err := r.renderBars(humPath, "Forecasted Daily Average Humidity Trends by City",
		days, func(d aggregate.CityDay) float64 { return d.AvgHumidity }); err != nil {
		return err
	}

	for _, s := range aggregate.Summaries(days) {
		r.log.Info("city forecast summary",
			"city", s.City,
			"avg_temperature_c", fmt.Sprintf("%.2f", s.AvgTemperature),
			"avg_humidity_pct", fmt.Sprintf("%.2f", s.AvgHumidity),
		)
	}
	if len(days) == 0 {
		r.log.Warn("no aggregates in window; wrote empty charts")
	}
	return nil
}

func (r *Renderer) renderBars(path, title string, days []aggregate.CityDay, value func(aggregate.CityDay) float64) error {
	if len(days) == 0 {
		return writeBlankPNG(path)
	}

	// One bar per (date, city), grouped by date.
	ordered := make([]aggregate.CityDay, len(days))
	copy(ordered, days)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].City < ordered[j].City
	})

	bars := make([]gochart.Value, 0, len(ordered))
	for _, d := range ordered {
		bars = append(bars, gochart.Value{
			Value: value(d),
			Label: fmt.Sprintf("%s %s", d.Date.Format("01-02"), d.City),
		})
	}

	graph := gochart.BarChart{
		Title:    title,
		Width:    1280,
		Height:   720,
		BarWidth: 40,
		Bars:     bars,
	}

	f, err := os.Create(path)
	if err != nil {
		return &RenderError{Path: path, Err: err}
	}
	if err := graph.Render(gochart.PNG, f); err != nil {
		_ = f.Close()
		return &RenderError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &RenderError{Path: path, Err: err}
	}
	return nil
}

// writeBlankPNG writes a valid empty chart so downstream consumers of
// the fixed filenames never see a stale or missing artifact.
func writeBlankPNG(path string) error {
	img := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	f, err := os.Create(path)
	if err != nil {
		return &RenderError{Path: path, Err: err}
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return &RenderError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &RenderError{Path: path, Err: err}
	}
	return nil
}
