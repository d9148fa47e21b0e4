package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// tokenFetches tracks successful token exchanges against the
	// identity endpoint. Cached-token adoptions do not count here; they
	// show up as cache hits instead.
	tokenFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zuora_token_fetches_total",
		Help: "Total number of successful OAuth token exchanges",
	})

	// tokenFailures tracks failed token exchanges (network errors and
	// non-2xx responses from the token endpoint).
	tokenFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zuora_token_failures_total",
		Help: "Total number of failed OAuth token exchanges",
	})
)
