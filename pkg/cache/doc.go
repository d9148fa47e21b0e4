// Package cache provides a thread-safe in-memory TTL cache for Zuora API
// responses.
//
// The store keys responses by their full request coordinates (method,
// endpoint, query parameters, body) and supports invalidation by method
// and endpoint prefix, which is how the client keeps cached GETs
// consistent after mutations.
//
// # Basic Usage
//
//	store := cache.NewStore(5 * time.Minute)
//
//	key := cache.Key{
//		Method:   "GET",
//		Endpoint: "/v1/catalog/products",
//		Params:   map[string]any{"pageSize": 50},
//	}
//
//	if value, ok := store.Get(key); ok {
//		// cache hit
//	}
//
//	store.Set(key, response, 0) // 0 = default TTL
//
// # Invalidation
//
//	// After mutating product 123, drop its GET entry and the list entry:
//	store.Invalidate("GET", "/v1/catalog/products/123")
//	store.Invalidate("GET", "/v1/catalog/products")
//
// The endpoint match is a prefix match on the clear-text endpoint segment
// of the key; the params/data hash segments are never inspected, so every
// parameter variant of an endpoint is invalidated together.
//
// # Key Format
//
// Keys serialize as METHOD:ENDPOINT[:params:<hash>][:data:<hash>] where
// each hash is the first 8 hex characters of an md5 digest over the
// sorted-key JSON form of the map. The truncation is an accepted,
// documented collision risk; see Key.String.
//
// # Statistics
//
// The store counts hits, misses, sets, invalidations and expirations for
// the life of the process. Clear removes entries but never resets the
// counters, so Stats().HitRate describes the store's whole lifetime. The
// same counters are exported as Prometheus metrics:
//
//   - zuora_cache_hits_total
//   - zuora_cache_misses_total
//   - zuora_cache_sets_total
//   - zuora_cache_invalidations_total
//   - zuora_cache_expirations_total
//   - zuora_cache_entries (gauge)
//
// # Token Storage
//
// The OAuth token manager persists its TokenRecord through this store
// under the reserved OAUTH:/oauth/token key. That is two logically
// separate caches (response cache, credential cache) deliberately sharing
// one TTL-eviction mechanism; the token is not a normal response-cache
// eviction candidate and invalidation by endpoint prefix never touches it
// unless asked to explicitly.
package cache
