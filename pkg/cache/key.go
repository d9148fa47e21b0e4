package cache

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a cached API response by its request coordinates.
type Key struct {
	// Method is the HTTP method (normalized to upper case).
	Method string

	// Endpoint is the API endpoint path (e.g. "/v1/catalog/products").
	Endpoint string

	// Params are the query parameters, if any.
	Params map[string]any

	// Body is the request body, if any (query-style POST endpoints
	// carry their filters in the body).
	Body map[string]any
}

// String generates a deterministic cache key string.
// Format: METHOD:ENDPOINT[:params:<hash>][:data:<hash>]
//
// The method and endpoint stay in clear text so Invalidate can match
// them by prefix; only the params and body collapse into hash segments.
// Maps are serialized with sorted keys before hashing, so semantically
// identical maps with different insertion order produce the same key.
//
// Example:
//
//	GET:/v1/catalog/products:params:1a2b3c4d
func (k Key) String() string {
	parts := []string{strings.ToUpper(k.Method), k.Endpoint}

	if len(k.Params) > 0 {
		parts = append(parts, "params:"+digest(k.Params))
	}
	if len(k.Body) > 0 {
		parts = append(parts, "data:"+digest(k.Body))
	}

	return strings.Join(parts, ":")
}

// digest hashes a parameter map into a short fixed-length segment.
// encoding/json sorts map keys, which gives the determinism Key needs.
//
// The digest is truncated to 8 hex characters. That is an accepted
// collision risk carried over from the key format this cache is
// compatible with; widening it would change the format for every key.
func digest(m map[string]any) string {
	data, err := json.Marshal(m)
	if err != nil {
		// Maps built from decoded JSON cannot fail to marshal; a caller
		// handing us a channel or func gets a degenerate but stable key.
		data = []byte(fmt.Sprintf("%v", m))
	}
	sum := md5.Sum(data)
	return fmt.Sprintf("%x", sum)[:8]
}

// method and endpoint extract the clear-text segments of a key string.
// Endpoints contain no ":", so splitting on it is unambiguous.
func splitKey(key string) (method, endpoint string) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) > 0 {
		method = parts[0]
	}
	if len(parts) > 1 {
		endpoint = parts[1]
	}
	return method, endpoint
}
