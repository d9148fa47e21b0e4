package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks cache hits.
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zuora_cache_hits_total",
			Help: "Total number of Zuora API cache hits",
		},
	)

	// cacheMisses tracks cache misses (including expired-entry evictions).
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zuora_cache_misses_total",
			Help: "Total number of Zuora API cache misses",
		},
	)

	// cacheSets tracks cache writes.
	cacheSets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zuora_cache_sets_total",
			Help: "Total number of Zuora API cache writes",
		},
	)

	// cacheInvalidations tracks entries removed by Invalidate and Clear.
	cacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zuora_cache_invalidations_total",
			Help: "Total number of Zuora API cache entries invalidated",
		},
	)

	// cacheExpirations tracks entries removed because their TTL passed.
	cacheExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zuora_cache_expirations_total",
			Help: "Total number of Zuora API cache entries expired",
		},
	)

	// cacheEntries tracks the current number of live entries.
	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zuora_cache_entries",
			Help: "Current number of entries in the Zuora API cache",
		},
	)
)
