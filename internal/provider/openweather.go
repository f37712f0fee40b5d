package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/weathertrends/weathertrends/internal/forecast"
)

// DefaultBaseURL is the OpenWeatherMap 5-day/3-hour forecast endpoint.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5/forecast"

// Client fetches multi-day forecasts from OpenWeatherMap. One outbound
// request per call; failures are never retried, the caller decides what
// to do next. A circuit breaker sheds load while the provider is down.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a forecast client. baseURL falls back to
// DefaultBaseURL when empty.
func NewClient(httpClient *http.Client, apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  httpClient,
		circuit: cb,
	}
}

// apiError is the provider's error response body.
type apiError struct {
	Cod     any    `json:"cod"` // int or string depending on context
	Message string `json:"message"`
}

// FetchForecast requests the forecast for the given city. Resolution of
// the city name is delegated to the provider; no geocoding happens here.
// Errors are one of *NotFoundError, *ServiceError or *TransportError.
func (c *Client) FetchForecast(ctx context.Context, city string) (forecast.RawForecast, error) {
	var raw forecast.RawForecast

	if city == "" {
		return raw, &NotFoundError{City: city}
	}
	if c.apiKey == "" {
		return raw, &ServiceError{Status: http.StatusUnauthorized, Reason: "api key is not configured"}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return raw, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("appid", c.apiKey)
	q.Set("q", city)
	q.Set("units", "metric")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return raw, fmt.Errorf("create request: %w", err)
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, execErr := c.client.Do(req)
		if execErr != nil {
			return nil, &TransportError{Err: execErr}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return raw, &TransportError{Err: err}
		}
		return raw, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return raw, fmt.Errorf("unexpected result type from circuit breaker")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return raw, &NotFoundError{City: city}
	default:
		reason := resp.Status
		var apiErr apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
			reason = apiErr.Message
		}
		return raw, &ServiceError{Status: resp.StatusCode, Reason: reason}
	}

	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return raw, &ServiceError{Status: resp.StatusCode, Reason: fmt.Sprintf("decode response: %v", err)}
	}

	return raw, nil
}
