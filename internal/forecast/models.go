package forecast

import (
	"time"
)

// EntryTimeLayout is the timestamp format used by the provider's dt_txt field.
const EntryTimeLayout = "2006-01-02 15:04:05"

// RawForecast mirrors the provider's 5-day/3-hour forecast payload.
// Required fields are pointers so that schema drift (a missing field)
// is distinguishable from a legitimate zero value.
type RawForecast struct {
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	List []RawEntry `json:"list"`
}

// RawEntry is a single time-stamped forecast entry in the provider payload.
type RawEntry struct {
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	DtTxt string `json:"dt_txt"`
}

// Reading is one normalized (city, timestamp) weather observation.
// Immutable once produced; owned by the pipeline until persisted.
type Reading struct {
	City        string    `json:"city"`
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Temperature float64   `json:"temperatureC"`
	Humidity    int       `json:"humidityPercent"`
	Description string    `json:"description"`
}

// Date returns the reading's calendar date at midnight UTC.
func (r Reading) Date() time.Time {
	return time.Date(r.Timestamp.Year(), r.Timestamp.Month(), r.Timestamp.Day(), 0, 0, 0, 0, time.UTC)
}
