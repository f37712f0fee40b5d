package provider

import (
	"errors"
	"fmt"
)

// NotFoundError means the provider has no match for the requested city.
type NotFoundError struct {
	City string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("city %q not found", e.City)
}

// ServiceError is a non-2xx, non-404 provider response.
type ServiceError struct {
	Status int
	Reason string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("weather provider returned status %d: %s", e.Status, e.Reason)
}

// TransportError is a network-level failure, including timeouts and a
// tripped circuit breaker.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("weather provider unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err belongs to the fetch failure taxonomy.
// Fetch failures are recoverable by the caller (re-prompt or skip the
// city); everything else aborts the run.
func IsFetchError(err error) bool {
	var nf *NotFoundError
	var se *ServiceError
	var te *TransportError
	return errors.As(err, &nf) || errors.As(err, &se) || errors.As(err, &te)
}
