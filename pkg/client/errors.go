package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client. Failures are always returned as
// values; nothing in this package panics across the API boundary, since a
// single failed backend call must never abort a whole caller turn.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// a retry backoff wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// APIError represents a non-2xx response from the Zuora API.
// Retryable statuses (429, 500, 502, 503, 504) only surface as an
// APIError once the retry budget is spent; permanent 4xx errors surface
// immediately without any retry.
type APIError struct {
	StatusCode int

	// Message is the human-readable message from the error body's
	// "message" field, or "HTTP <status>" when the body had none.
	Message string

	// Details is the decoded error body, if there was one.
	Details map[string]any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("zuora api error (status %d): %s", e.StatusCode, e.Message)
}

// IsPermanent reports whether the error is a non-retryable client error.
func (e *APIError) IsPermanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 429
}
