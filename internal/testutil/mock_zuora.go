// Package testutil provides testing utilities for the Zuora client.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock Zuora endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockZuora is a configurable mock Zuora server for testing. It serves
// a working OAuth token endpoint out of the box so client tests only
// configure the API paths they exercise.
type MockZuora struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	TokenRequests     int
	LastRequestHeader http.Header
}

// NewMockZuora creates a new mock Zuora server.
func NewMockZuora() *MockZuora {
	mock := &MockZuora{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.URL.Path == "/oauth/token" {
			mock.TokenRequests++
		}
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handlers
		if r.URL.Path == "/oauth/token" {
			mock.defaultTokenHandler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockZuora) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockZuora) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockZuora) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.TokenRequests = 0
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockZuora) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockZuora) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if resp.Headers["Content-Type"] == "" {
			w.Header().Set("Content-Type", "application/json")
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetStatusSequence configures a path to answer with the given status
// codes in order, then the success body with 200 once the sequence is
// exhausted. Useful for exercising retry behavior.
func (m *MockZuora) SetStatusSequence(path string, statuses []int, successBody string) {
	var mu sync.Mutex
	calls := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		index := calls
		calls++
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if index < len(statuses) {
			w.WriteHeader(statuses[index])
			w.Write([]byte(`{"message": "transient error"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(successBody))
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockZuora) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetTokenRequests returns the number of OAuth token exchanges.
func (m *MockZuora) GetTokenRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TokenRequests
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockZuora) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// defaultTokenHandler issues a test bearer token for any credentials.
func (m *MockZuora) defaultTokenHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"access_token": "test-token", "token_type": "bearer", "expires_in": 3600}`))
}

// defaultHandler provides a default Zuora-like success response.
func (m *MockZuora) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"success": true}`))
}

// NewSuccessResponse creates a standard 200 OK JSON response.
func NewSuccessResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message": "Resource not found"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewAuthFailureHandler rejects token exchanges with a 401.
func NewAuthFailureHandler() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Invalid client credentials"}`))
	}
}
