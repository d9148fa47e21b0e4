package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fastPolicy keeps retry tests quick.
func fastPolicy(maxAttempts int) RetryPolicy {
	policy := DefaultRetryPolicy()
	policy.MaxAttempts = maxAttempts
	policy.BackoffFactor = 0.001
	return policy
}

func TestRetryWithBackoff_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastPolicy(3), zerolog.Nop(), func() (bool, error) {
		calls++
		return false, nil
	})

	if err != nil {
		t.Fatalf("retryWithBackoff() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastPolicy(3), zerolog.Nop(), func() (bool, error) {
		calls++
		if calls < 3 {
			return true, &APIError{StatusCode: 503, Message: "Service Unavailable"}
		}
		return false, nil
	})

	if err != nil {
		t.Fatalf("retryWithBackoff() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoff_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	wantErr := &APIError{StatusCode: 404, Message: "Not Found"}
	err := retryWithBackoff(context.Background(), fastPolicy(3), zerolog.Nop(), func() (bool, error) {
		calls++
		return false, wantErr
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
		t.Fatalf("retryWithBackoff() error = %v, want 404 APIError", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("permanent failure wrapped as ErrRetryExhausted")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent failure)", calls)
	}
}

func TestRetryWithBackoff_Exhaustion(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastPolicy(3), zerolog.Nop(), func() (bool, error) {
		calls++
		return true, &APIError{StatusCode: 503, Message: "Service Unavailable"}
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("retryWithBackoff() error = %v, want ErrRetryExhausted", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Error("exhaustion error does not unwrap to the last APIError")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (attempt bound)", calls)
	}
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	policy := fastPolicy(3)
	policy.BackoffFactor = 10 // long enough that cancellation wins the select

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- retryWithBackoff(ctx, policy, zerolog.Nop(), func() (bool, error) {
			calls++
			return true, &APIError{StatusCode: 503, Message: "Service Unavailable"}
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrContextCancelled) {
			t.Errorf("retryWithBackoff() error = %v, want ErrContextCancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retryWithBackoff() did not return after cancellation")
	}

	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancelled during first backoff)", calls)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	if policy.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", policy.MaxAttempts)
	}

	for _, code := range []int{429, 500, 502, 503, 504} {
		if !policy.RetryableStatus(code) {
			t.Errorf("RetryableStatus(%d) = false, want true", code)
		}
	}
	for _, code := range []int{400, 401, 403, 404, 409} {
		if policy.RetryableStatus(code) {
			t.Errorf("RetryableStatus(%d) = true, want false", code)
		}
	}

	for _, method := range []string{"GET", "POST", "PUT"} {
		if !policy.RetryableMethod(method) {
			t.Errorf("RetryableMethod(%q) = false, want true", method)
		}
	}
	if policy.RetryableMethod("DELETE") {
		t.Error("RetryableMethod(DELETE) = true, want false")
	}
}

func TestBackoff_GrowsExponentially(t *testing.T) {
	policy := RetryPolicy{BackoffFactor: 0.5, MaxBackoff: 30 * time.Second}

	// With ±20% jitter, expected centers are 0.5s, 1s, 2s.
	bounds := []struct {
		attempt  int
		min, max time.Duration
	}{
		{1, 400 * time.Millisecond, 600 * time.Millisecond},
		{2, 800 * time.Millisecond, 1200 * time.Millisecond},
		{3, 1600 * time.Millisecond, 2400 * time.Millisecond},
	}

	for _, b := range bounds {
		for i := 0; i < 20; i++ {
			wait := policy.Backoff(b.attempt)
			if wait < b.min || wait > b.max {
				t.Errorf("Backoff(%d) = %v, want within [%v, %v]", b.attempt, wait, b.min, b.max)
			}
		}
	}
}

func TestBackoff_Capped(t *testing.T) {
	policy := RetryPolicy{BackoffFactor: 0.5, MaxBackoff: 2 * time.Second}

	// 0.5 * 2^9 = 256s uncapped; cap plus jitter allows at most 2.4s.
	for i := 0; i < 20; i++ {
		if wait := policy.Backoff(10); wait > 2400*time.Millisecond {
			t.Errorf("Backoff(10) = %v, want capped near %v", wait, policy.MaxBackoff)
		}
	}
}
