package chart

import (
	"errors"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/weathertrends/weathertrends/internal/aggregate"
)

func testRenderer(t *testing.T) (*Renderer, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRenderer(dir, logger), dir
}

func assertValidPNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	if _, err := png.DecodeConfig(f); err != nil {
		t.Errorf("%s is not a valid PNG: %v", path, err)
	}
}

func sampleDays() []aggregate.CityDay {
	d1 := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	return []aggregate.CityDay{
		{City: "Paris", Date: d1, AvgTemperature: 11.0, AvgHumidity: 70},
		{City: "Paris", Date: d2, AvgTemperature: 13.5, AvgHumidity: 62},
		{City: "Berlin", Date: d1, AvgTemperature: 21.0, AvgHumidity: 41},
	}
}

func TestRenderWritesBothArtifacts(t *testing.T) {
	r, dir := testRenderer(t)

	if err := r.Render(sampleDays()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertValidPNG(t, filepath.Join(dir, TemperatureChartFile))
	assertValidPNG(t, filepath.Join(dir, HumidityChartFile))
}

func TestRenderEmptyAggregatesMustNotFail(t *testing.T) {
	r, dir := testRenderer(t)

	if err := r.Render(nil); err != nil {
		t.Fatalf("empty aggregate set must render without error, got: %v", err)
	}

	assertValidPNG(t, filepath.Join(dir, TemperatureChartFile))
	assertValidPNG(t, filepath.Join(dir, HumidityChartFile))
}

func TestRenderOverwritesPriorArtifacts(t *testing.T) {
	r, dir := testRenderer(t)
	tempPath := filepath.Join(dir, TemperatureChartFile)

	if err := os.WriteFile(tempPath, []byte("stale artifact"), 0o644); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	if err := r.Render(sampleDays()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertValidPNG(t, tempPath)
}

func TestRenderBadDirectory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRenderer(filepath.Join(t.TempDir(), "does", "not", "exist"), logger)

	err := r.Render(sampleDays())
	if err == nil {
		t.Fatal("expected a render error for a missing directory")
	}

	var re *RenderError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RenderError, got %T: %v", err, err)
	}
}
