package forecast

import (
	"fmt"
	"time"
)

// SchemaError reports a provider payload that does not match the agreed
// contract. Schema drift is not tolerated silently; it aborts the run.
type SchemaError struct {
	Field string
	Entry int // index into the forecast list, -1 for payload-level fields
}

func (e *SchemaError) Error() string {
	if e.Entry < 0 {
		return fmt.Sprintf("malformed forecast payload: missing %s", e.Field)
	}
	return fmt.Sprintf("malformed forecast payload: entry %d missing %s", e.Entry, e.Field)
}

// Normalize flattens a provider forecast into one Reading per list entry,
// preserving entry order. It is pure: no I/O, deterministic for a given
// payload. Any entry with a missing required field fails the whole payload.
func Normalize(raw RawForecast) ([]Reading, error) {
	if raw.City.Name == "" {
		return nil, &SchemaError{Field: "city.name", Entry: -1}
	}

	readings := make([]Reading, 0, len(raw.List))
	for i, entry := range raw.List {
		if entry.Main.Temp == nil {
			return nil, &SchemaError{Field: "main.temp", Entry: i}
		}
		if entry.Main.Humidity == nil {
			return nil, &SchemaError{Field: "main.humidity", Entry: i}
		}
		if len(entry.Weather) == 0 {
			return nil, &SchemaError{Field: "weather[0].description", Entry: i}
		}
		if entry.DtTxt == "" {
			return nil, &SchemaError{Field: "dt_txt", Entry: i}
		}

		ts, err := time.ParseInLocation(EntryTimeLayout, entry.DtTxt, time.UTC)
		if err != nil {
			return nil, &SchemaError{Field: "dt_txt", Entry: i}
		}

		readings = append(readings, Reading{
			City:        raw.City.Name,
			Timestamp:   ts,
			Temperature: *entry.Main.Temp,
			Humidity:    *entry.Main.Humidity,
			Description: entry.Weather[0].Description,
		})
	}

	return readings, nil
}
