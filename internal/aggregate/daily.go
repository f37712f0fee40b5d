// Package aggregate derives per-city, per-date means from persisted
// forecast readings. It is purely in-memory; the store hands it the
// current forecast window and it hands matrices to the renderer.
package aggregate

import (
	"sort"
	"time"

	"github.com/weathertrends/weathertrends/internal/forecast"
)

// DefaultHorizon is the number of distinct forecast dates kept per run,
// matching the provider's roughly six-day horizon.
const DefaultHorizon = 6

// CityDay is the mean temperature and humidity for one city on one
// calendar date. Recomputed on every run, never persisted.
type CityDay struct {
	City           string    `json:"city"`
	Date           time.Time `json:"date"` // midnight UTC
	AvgTemperature float64   `json:"avgTemperature"`
	AvgHumidity    float64   `json:"avgHumidity"`
}

// CitySummary is a city's mean temperature and humidity across every
// date included in the window.
type CitySummary struct {
	City           string  `json:"city"`
	AvgTemperature float64 `json:"avgTemperature"`
	AvgHumidity    float64 `json:"avgHumidity"`
}

// Daily groups readings by (city, calendar date) and averages
// temperature and humidity per group. Distinct dates are sorted
// ascending before truncation to maxDates, so the horizon always keeps
// the chronologically earliest dates no matter what order rows arrive
// in. Results are ordered by city, then date.
func Daily(readings []forecast.Reading, maxDates int) []CityDay {
	if len(readings) == 0 {
		return nil
	}
	if maxDates <= 0 {
		maxDates = DefaultHorizon
	}

	// Collect distinct dates, oldest first.
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, r := range readings {
		d := r.Date()
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if len(dates) > maxDates {
		dates = dates[:maxDates]
	}

	included := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		included[d] = struct{}{}
	}

	type key struct {
		city string
		date time.Time
	}
	type acc struct {
		sumTemp     float64
		sumHumidity float64
		n           int
	}

	groups := make(map[key]*acc)
	for _, r := range readings {
		d := r.Date()
		if _, ok := included[d]; !ok {
			continue
		}
		k := key{city: r.City, date: d}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.sumTemp += r.Temperature
		a.sumHumidity += float64(r.Humidity)
		a.n++
	}

	out := make([]CityDay, 0, len(groups))
	for k, a := range groups {
		n := float64(a.n)
		out = append(out, CityDay{
			City:           k.city,
			Date:           k.date,
			AvgTemperature: a.sumTemp / n,
			AvgHumidity:    a.sumHumidity / n,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].City != out[j].City {
			return out[i].City < out[j].City
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Summaries collapses daily aggregates into one mean per city across
// all included dates, ordered by city.
func Summaries(days []CityDay) []CitySummary {
	type acc struct {
		sumTemp     float64
		sumHumidity float64
		n           int
	}

	byCity := make(map[string]*acc)
	var cities []string
	for _, d := range days {
		a, ok := byCity[d.City]
		if !ok {
			a = &acc{}
			byCity[d.City] = a
			cities = append(cities, d.City)
		}
		a.sumTemp += d.AvgTemperature
		a.sumHumidity += d.AvgHumidity
		a.n++
	}
	sort.Strings(cities)

	out := make([]CitySummary, 0, len(cities))
	for _, city := range cities {
		a := byCity[city]
		n := float64(a.n)
		out = append(out, CitySummary{
			City:           city,
			AvgTemperature: a.sumTemp / n,
			AvgHumidity:    a.sumHumidity / n,
		})
	}
	return out
}
