package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is the fallback TTL when the store is created without one.
const DefaultTTL = 5 * time.Minute

// Stats is a point-in-time snapshot of cache statistics.
// The counters are monotonic for the life of the process; Clear removes
// entries but deliberately leaves the counters alone so the hit rate
// keeps describing the whole lifetime of the store.
type Stats struct {
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	Sets          uint64  `json:"sets"`
	Invalidations uint64  `json:"invalidations"`
	Expirations   uint64  `json:"expirations"`
	Size          int     `json:"size"`
	TotalRequests uint64  `json:"total_requests"`
	HitRate       float64 `json:"hit_rate"`
}

// Store is a thread-safe in-memory TTL cache for API responses.
//
// Every operation takes a single coarse lock for its full duration. That
// serializes cache access, which is fine: each operation is O(1)-ish and
// the surrounding network I/O dominates by orders of magnitude. Methods
// that need to write while reading (Get evicting an expired entry) run
// entirely under the one lock via unexported helpers.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry

	defaultTTL time.Duration
	logger     zerolog.Logger

	// now is replaceable in tests to simulate clock movement.
	now func() time.Time

	hits          uint64
	misses        uint64
	sets          uint64
	invalidations uint64
	expirations   uint64
}

// NewStore creates a new cache store. A defaultTTL <= 0 falls back to
// DefaultTTL (5 minutes).
func NewStore(defaultTTL time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Store{
		entries:    make(map[string]Entry),
		defaultTTL: defaultTTL,
		logger:     log.With().Str("component", "cache").Logger(),
		now:        time.Now,
	}
}

// DefaultTTL returns the TTL applied when Set is called without one.
func (s *Store) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Get retrieves the cached value for the given key.
// An expired entry is evicted as a side effect and reported as a miss;
// the eviction also counts as an expiration.
func (s *Store) Get(key Key) (any, bool) {
	k := key.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[k]
	if !ok {
		s.misses++
		cacheMisses.Inc()
		return nil, false
	}

	if entry.IsExpired(s.now()) {
		delete(s.entries, k)
		s.misses++
		s.expirations++
		cacheMisses.Inc()
		cacheExpirations.Inc()
		cacheEntries.Set(float64(len(s.entries)))
		s.logger.Debug().Str("key", k).Msg("Evicted expired entry on read")
		return nil, false
	}

	s.hits++
	cacheHits.Inc()
	return entry.Value, true
}

// Set stores a value under the given key. A ttl <= 0 uses the store's
// default. An existing entry for the same key is replaced unconditionally
// (last-write-wins, no merge).
func (s *Store) Set(key Key, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	k := key.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[k] = Entry{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	s.sets++
	cacheSets.Inc()
	cacheEntries.Set(float64(len(s.entries)))
}

// Invalidate removes entries matching the given method and endpoint
// prefix. An empty method matches every method; an empty prefix matches
// every endpoint. With both empty the whole store is cleared. The
// endpoint match is a prefix match on the key's clear-text endpoint
// segment only; the hash segments are never inspected, so a resource
// endpoint invalidates all its parameter variants at once.
// Returns the number of entries removed.
func (s *Store) Invalidate(method, endpointPrefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if method == "" && endpointPrefix == "" {
		return s.clearLocked()
	}

	removed := 0
	for k := range s.entries {
		keyMethod, keyEndpoint := splitKey(k)

		if method != "" && keyMethod != strings.ToUpper(method) {
			continue
		}
		if endpointPrefix != "" && !strings.HasPrefix(keyEndpoint, endpointPrefix) {
			continue
		}

		delete(s.entries, k)
		removed++
	}

	s.invalidations += uint64(removed)
	cacheInvalidations.Add(float64(removed))
	cacheEntries.Set(float64(len(s.entries)))

	if removed > 0 {
		s.logger.Debug().
			Str("method", method).
			Str("endpoint_prefix", endpointPrefix).
			Int("removed", removed).
			Msg("Invalidated cache entries")
	}

	return removed
}

// Clear removes every entry and returns the prior entry count.
// The statistics counters are not reset.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// clearLocked requires s.mu to be held.
func (s *Store) clearLocked() int {
	count := len(s.entries)
	s.entries = make(map[string]Entry)
	s.invalidations += uint64(count)
	cacheInvalidations.Add(float64(count))
	cacheEntries.Set(0)
	return count
}

// CleanupExpired removes every entry whose ExpiresAt has passed,
// independent of access. Intended to be called periodically by an
// external scheduler to bound memory growth from entries that are set
// but never read again. Returns the number of entries removed.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, entry := range s.entries {
		if entry.IsExpired(now) {
			delete(s.entries, k)
			removed++
		}
	}

	s.expirations += uint64(removed)
	cacheExpirations.Add(float64(removed))
	cacheEntries.Set(float64(len(s.entries)))

	return removed
}

// Stats returns a snapshot of the cache statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.hits + s.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(s.hits) / float64(total)
	}

	return Stats{
		Hits:          s.hits,
		Misses:        s.misses,
		Sets:          s.sets,
		Invalidations: s.invalidations,
		Expirations:   s.expirations,
		Size:          len(s.entries),
		TotalRequests: total,
		HitRate:       hitRate,
	}
}
