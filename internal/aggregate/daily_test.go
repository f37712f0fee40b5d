package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/weathertrends/weathertrends/internal/forecast"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func reading(city string, ts time.Time, temp float64, humidity int) forecast.Reading {
	return forecast.Reading{City: city, Timestamp: ts, Temperature: temp, Humidity: humidity}
}

func TestDailyMeansSingleCitySingleDate(t *testing.T) {
	d := day(2025, 8, 27)
	rows := []forecast.Reading{
		reading("Paris", d.Add(9*time.Hour), 10.0, 70),
		reading("Paris", d.Add(12*time.Hour), 12.0, 60),
		reading("Paris", d.Add(15*time.Hour), 11.0, 80),
	}

	got := Daily(rows, DefaultHorizon)
	require.Len(t, got, 1)
	require.Equal(t, "Paris", got[0].City)
	require.True(t, got[0].Date.Equal(d))
	require.InDelta(t, 11.0, got[0].AvgTemperature, 1e-9)
	require.InDelta(t, 70.0, got[0].AvgHumidity, 1e-9)
}

func TestDailyGroupsByCityAndDate(t *testing.T) {
	d1 := day(2025, 8, 27)
	d2 := day(2025, 8, 28)
	rows := []forecast.Reading{
		reading("Paris", d1.Add(9*time.Hour), 10.0, 70),
		reading("Paris", d2.Add(9*time.Hour), 14.0, 50),
		reading("Berlin", d1.Add(9*time.Hour), 20.0, 40),
		reading("Berlin", d1.Add(12*time.Hour), 22.0, 42),
	}

	got := Daily(rows, DefaultHorizon)
	require.Len(t, got, 3)

	// Ordered by city then date.
	require.Equal(t, "Berlin", got[0].City)
	require.True(t, got[0].Date.Equal(d1))
	require.InDelta(t, 21.0, got[0].AvgTemperature, 1e-9)
	require.InDelta(t, 41.0, got[0].AvgHumidity, 1e-9)

	require.Equal(t, "Paris", got[1].City)
	require.True(t, got[1].Date.Equal(d1))
	require.Equal(t, "Paris", got[2].City)
	require.True(t, got[2].Date.Equal(d2))
}

func TestDailyTruncatesToEarliestDatesRegardlessOfInputOrder(t *testing.T) {
	// Eight distinct dates, deliberately shuffled: the horizon must keep
	// the six chronologically earliest, not the first six seen.
	var rows []forecast.Reading
	order := []int{7, 2, 5, 0, 6, 3, 1, 4}
	for _, offset := range order {
		d := day(2025, 8, 27).AddDate(0, 0, offset)
		rows = append(rows, reading("Paris", d.Add(9*time.Hour), float64(offset), 50))
	}

	got := Daily(rows, 6)
	require.Len(t, got, 6)

	for i, cd := range got {
		want := day(2025, 8, 27).AddDate(0, 0, i)
		require.True(t, cd.Date.Equal(want), "index %d: got %v, want %v", i, cd.Date, want)
	}
}

func TestDailyAtMostHorizonTimesCitiesGroups(t *testing.T) {
	var rows []forecast.Reading
	cities := []string{"Paris", "Berlin", "Oslo"}
	for _, city := range cities {
		for offset := 0; offset < 8; offset++ {
			d := day(2025, 8, 27).AddDate(0, 0, offset)
			rows = append(rows, reading(city, d.Add(9*time.Hour), 15.0, 50))
		}
	}

	got := Daily(rows, 6)
	require.Len(t, got, 6*len(cities))
}

func TestDailyEmptyInput(t *testing.T) {
	require.Nil(t, Daily(nil, 6))
	require.Nil(t, Daily([]forecast.Reading{}, 6))
}

func TestSummaries(t *testing.T) {
	days := []CityDay{
		{City: "Paris", Date: day(2025, 8, 27), AvgTemperature: 10.0, AvgHumidity: 70},
		{City: "Paris", Date: day(2025, 8, 28), AvgTemperature: 14.0, AvgHumidity: 50},
		{City: "Berlin", Date: day(2025, 8, 27), AvgTemperature: 20.0, AvgHumidity: 40},
	}

	got := Summaries(days)
	require.Len(t, got, 2)
	require.Equal(t, "Berlin", got[0].City)
	require.InDelta(t, 20.0, got[0].AvgTemperature, 1e-9)
	require.Equal(t, "Paris", got[1].City)
	require.InDelta(t, 12.0, got[1].AvgTemperature, 1e-9)
	require.InDelta(t, 60.0, got[1].AvgHumidity, 1e-9)
}

func TestSummariesEmpty(t *testing.T) {
	require.Empty(t, Summaries(nil))
}
