package client

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy is an explicit, injectable retry policy: attempt bound,
// backoff shape, and the status/method allow-lists. Keeping it a value
// makes the policy swappable and testable in isolation from real I/O.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts (including the first).
	MaxAttempts int

	// BackoffFactor is the backoff base in seconds; the wait before
	// attempt n+1 is BackoffFactor * 2^(n-1), jittered.
	BackoffFactor float64

	// MaxBackoff caps a single backoff wait.
	MaxBackoff time.Duration

	// Statuses is the set of transient response codes worth retrying.
	Statuses map[int]bool

	// Methods is the set of methods safe to retry. POST is included
	// because this system only ever creates catalog objects idempotently
	// keyed by name; a deployment without that guarantee removes POST
	// here instead of patching the executor.
	Methods map[string]bool
}

// DefaultRetryPolicy returns the standard policy: 3 attempts, 0.5s
// backoff base, retrying {429, 500, 502, 503, 504} on GET/POST/PUT.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BackoffFactor: 0.5,
		MaxBackoff:    30 * time.Second,
		Statuses: map[int]bool{
			http.StatusTooManyRequests:     true,
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
		Methods: map[string]bool{
			http.MethodGet:  true,
			http.MethodPost: true,
			http.MethodPut:  true,
		},
	}
}

// RetryableStatus reports whether a response code is worth retrying.
func (p RetryPolicy) RetryableStatus(code int) bool {
	return p.Statuses[code]
}

// RetryableMethod reports whether a method is safe to retry.
func (p RetryPolicy) RetryableMethod(method string) bool {
	return p.Methods[method]
}

// Backoff returns the wait before the next attempt after attempt n
// (1-based), with ±20% jitter to avoid thundering herds.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	base := p.BackoffFactor * math.Pow(2, float64(attempt-1))
	wait := time.Duration(base * float64(time.Second))
	if p.MaxBackoff > 0 && wait > p.MaxBackoff {
		wait = p.MaxBackoff
	}
	return time.Duration(float64(wait) * (0.8 + rand.Float64()*0.4))
}

// retryWithBackoff executes fn with exponential backoff retry logic.
// fn reports whether its failure is retryable; non-retryable failures
// return immediately. The backoff wait respects context cancellation.
func retryWithBackoff(ctx context.Context, policy RetryPolicy, logger zerolog.Logger, fn func() (retryable bool, err error)) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		retryable, err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !retryable {
			return lastErr
		}

		if attempt >= attempts {
			break
		}

		retriesTotal.Inc()
		wait := policy.Backoff(attempt)
		retryBackoffSeconds.Observe(wait.Seconds())

		logger.Debug().
			Int("attempt", attempt).
			Dur("backoff", wait).
			Err(err).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			logger.Warn().
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(wait):
		}
	}

	retryExhaustedTotal.Inc()
	logger.Warn().
		Int("max_attempts", attempts).
		Err(lastErr).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}
