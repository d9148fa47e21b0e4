package cache

import (
	"time"
)

// Entry represents a single cached API response.
// Entries are immutable once created: Set replaces the whole entry,
// nothing mutates one in place.
type Entry struct {
	// Value is the cached payload, stored as-is.
	Value any

	// CreatedAt is when the entry was stored.
	CreatedAt time.Time

	// ExpiresAt is when the entry becomes stale. Always >= CreatedAt.
	ExpiresAt time.Time
}

// IsExpired reports whether the entry has expired at time now.
func (e Entry) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TTL returns the remaining time until expiration at time now.
// Returns 0 if already expired.
func (e Entry) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
