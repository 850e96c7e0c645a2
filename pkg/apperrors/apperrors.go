// Package apperrors defines the error taxonomy shared by the greenhouse services.
// Callers wrap these sentinels with fmt.Errorf("...: %w", ...) and test with errors.Is.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound reports a missing parameter, measurement, equipment or action.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateResource reports a uniqueness conflict (e.g. parameter kind already configured).
	ErrDuplicateResource = errors.New("already exists")
	// ErrInvalidArgument reports a request or event that can never succeed as-is.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrEquipmentNotAvailable reports that no active equipment of the required category exists.
	ErrEquipmentNotAvailable = errors.New("equipment not available")
	// ErrTransientPublish reports a broker-side failure that may succeed on retry.
	ErrTransientPublish = errors.New("transient publish failure")
	// ErrCircuitOpen reports a call short-circuited by an open circuit breaker.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrMalformedEvent reports an event payload that cannot be decoded.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrInvalidTransition reports an attempt to move an action out of a terminal state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// IsRetryable reports whether processing that failed with err may succeed on a later attempt.
// Malformed payloads and invalid arguments are permanent; everything else is treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrMalformedEvent),
		errors.Is(err, ErrInvalidTransition):
		return false
	}
	return true
}

// HTTPStatus maps an error to the status code surfaced by the HTTP handlers.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateResource), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrMalformedEvent):
		return http.StatusBadRequest
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrEquipmentNotAvailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
