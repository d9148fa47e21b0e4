// Package client provides the authenticated Zuora API client with
// response caching, bounded retry, and cache invalidation on mutation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/catalogtools/zuora-catalog-client/pkg/auth"
	"github.com/catalogtools/zuora-catalog-client/pkg/cache"
	"github.com/catalogtools/zuora-catalog-client/pkg/observability"
)

// Result is a successful API response: the status code, the decoded JSON
// body, and the raw bytes for callers that want a typed decode.
type Result struct {
	StatusCode int
	Data       map[string]any
	Raw        json.RawMessage
}

// Client is the Zuora API client. It is safe for concurrent use; the
// underlying connection pool, cache store, and token manager are shared
// by all requests issued through one instance.
type Client struct {
	httpClient *http.Client
	cache      *cache.Store
	auth       *auth.Manager
	config     Config
	baseURL    string
	logger     zerolog.Logger
}

// New creates a new Zuora client. The caller owns the instance lifecycle:
// construct it once, inject it where needed, Close it when done.
func New(cfg Config) (*Client, error) {
	if cfg.Environment == "" {
		cfg.Environment = "sandbox"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	// Fill unset retry fields individually so a caller customizing only
	// the status or method sets keeps them.
	defaults := DefaultRetryPolicy()
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.Retry.BackoffFactor <= 0 {
		cfg.Retry.BackoffFactor = defaults.BackoffFactor
	}
	if cfg.Retry.MaxBackoff <= 0 {
		cfg.Retry.MaxBackoff = defaults.MaxBackoff
	}
	if cfg.Retry.Statuses == nil {
		cfg.Retry.Statuses = defaults.Statuses
	}
	if cfg.Retry.Methods == nil {
		cfg.Retry.Methods = defaults.Methods
	}

	baseURL := cfg.baseURL()
	store := cache.NewStore(cfg.CacheTTL)

	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolSize,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		cache: store,
		auth: auth.NewManager(store, auth.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			BaseURL:      baseURL,
			Timeout:      cfg.OAuthTimeout,
		}),
		config:  cfg,
		baseURL: baseURL,
		logger:  log.With().Str("component", "zuora-client").Logger(),
	}, nil
}

// Request performs an authenticated API call.
//
// A cacheable GET served from the cache returns immediately with no
// network call and no authentication check. Everything else acquires a
// bearer token first, then runs the HTTP call through the pooled
// transport with the configured retry policy. On a 2xx the decoded body
// is returned (and stored, for cacheable GETs); after a successful
// mutation the related GET entries are invalidated so cached reads stay
// consistent with the backend.
func (c *Client) Request(ctx context.Context, method, endpoint string, body, params map[string]any, cacheable bool) (*Result, error) {
	method = strings.ToUpper(method)
	key := cache.Key{Method: method, Endpoint: endpoint, Params: params, Body: body}

	ctx, span := observability.StartSpan(ctx, "zuora.request",
		attribute.String("http.method", method),
		attribute.String("zuora.endpoint", endpoint),
	)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	useCache := cacheable && method == http.MethodGet && c.config.CacheEnabled

	// Step 1: cached GET fast path.
	if useCache {
		if value, ok := c.cache.Get(key); ok {
			if result, ok := value.(*Result); ok {
				c.logger.Debug().
					Str("method", method).
					Str("endpoint", endpoint).
					Msg("Serving response from cache")
				span.SetAttributes(attribute.Bool("cache.hit", true))
				observability.EndSpan(span, nil)
				return result, nil
			}
		}
		span.SetAttributes(attribute.Bool("cache.hit", false))
	}

	// Step 2: token before network.
	token, err := c.auth.EnsureAuthenticated(ctx)
	if err != nil {
		errorsTotal.WithLabelValues("auth").Inc()
		observability.EndSpan(span, err)
		return nil, err
	}

	// Step 3: execute with retry.
	result, err := c.execute(ctx, method, endpoint, body, params, token)
	if err != nil {
		observability.EndSpan(span, err)
		return nil, err
	}

	// Step 4: fill the cache, or invalidate what the mutation staled.
	if useCache {
		c.cache.Set(key, result, 0)
	}
	if isMutation(method) {
		c.invalidateAfterMutation(method, endpoint)
	}

	observability.EndSpan(span, nil)
	return result, nil
}

// execute issues the HTTP call, retrying transient failures per policy.
func (c *Client) execute(ctx context.Context, method, endpoint string, body, params map[string]any, token string) (*Result, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	requestURL := c.baseURL + endpoint
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, fmt.Sprint(v))
		}
		requestURL += "?" + values.Encode()
	}

	methodRetryable := c.config.Retry.RetryableMethod(method)

	var result *Result
	retryErr := retryWithBackoff(ctx, c.config.Retry, c.logger, func() (bool, error) {
		var reqBody io.Reader
		if bodyBytes != nil {
			reqBody = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
		if err != nil {
			return false, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			errorsTotal.WithLabelValues("network").Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Warn().Err(err).
				Str("method", method).
				Str("endpoint", endpoint).
				Msg("HTTP request failed")
			return methodRetryable, fmt.Errorf("request %s %s: %w", method, endpoint, err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			errorsTotal.WithLabelValues("network").Inc()
			return methodRetryable, fmt.Errorf("read response body: %w", err)
		}

		requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			result = &Result{
				StatusCode: resp.StatusCode,
				Data:       decodeObject(respBody),
				Raw:        respBody,
			}
			return false, nil
		}

		apiErr := newAPIError(resp.StatusCode, respBody)
		retryable := c.config.Retry.RetryableStatus(resp.StatusCode) && methodRetryable
		if retryable {
			errorsTotal.WithLabelValues("transient").Inc()
		} else {
			errorsTotal.WithLabelValues("permanent").Inc()
		}

		c.logger.Warn().
			Str("method", method).
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Bool("retryable", retryable).
			Msg("Zuora API request error")

		return retryable, apiErr
	})

	if retryErr != nil {
		return nil, retryErr
	}
	return result, nil
}

// invalidateAfterMutation drops the GET entries a successful mutation has
// made stale: the mutated resource's own endpoint (all parameter
// variants, via the prefix match) and, for mutations of a specific
// resource, its parent list endpoint. Collection POSTs (creates) only
// invalidate the collection itself — their parent is a whole API
// namespace, not a list.
func (c *Client) invalidateAfterMutation(method, endpoint string) {
	if strings.Contains(endpoint, "/query") {
		// Query POSTs are reads in mutation clothing.
		return
	}

	removed := c.cache.Invalidate(http.MethodGet, endpoint)

	if method != http.MethodPost {
		if parent := path.Dir(endpoint); parent != "/" && parent != "." {
			removed += c.cache.Invalidate(http.MethodGet, parent)
		}
	}

	if removed > 0 {
		c.logger.Debug().
			Str("method", method).
			Str("endpoint", endpoint).
			Int("removed", removed).
			Msg("Invalidated cached reads after mutation")
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// decodeObject decodes a JSON object body into a map. Non-object or
// empty bodies yield nil; Result.Raw still carries the exact bytes.
func decodeObject(body []byte) map[string]any {
	if len(body) == 0 {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil
	}
	return data
}

// newAPIError builds an APIError from an error response, pulling the
// human-readable message from the body's "message" field when present.
func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
	}
	if details := decodeObject(body); details != nil {
		apiErr.Details = details
		if msg, ok := details["message"].(string); ok && msg != "" {
			apiErr.Message = msg
		}
	}
	return apiErr
}

// ConnectionStatus reports the outcome of a connectivity check.
// "Not connected" is a normal answer, not an error.
type ConnectionStatus struct {
	Connected   bool   `json:"connected"`
	Environment string `json:"environment"`
	BaseURL     string `json:"base_url"`
	Message     string `json:"message"`
}

// CheckConnection verifies connectivity, authenticating if needed.
func (c *Client) CheckConnection(ctx context.Context) ConnectionStatus {
	status := ConnectionStatus{
		Environment: c.config.Environment,
		BaseURL:     c.baseURL,
	}

	if _, ok := c.auth.Token(); ok {
		status.Connected = true
		status.Message = fmt.Sprintf("Connected to Zuora %s", strings.ToUpper(c.config.Environment))
		return status
	}

	if err := c.auth.Authenticate(ctx); err != nil {
		status.Message = err.Error()
		return status
	}

	status.Connected = true
	status.Message = fmt.Sprintf("Connected to Zuora %s", strings.ToUpper(c.config.Environment))
	return status
}

// Authenticate performs the OAuth exchange eagerly. Most callers can
// rely on the lazy authentication inside Request instead.
func (c *Client) Authenticate(ctx context.Context) error {
	return c.auth.Authenticate(ctx)
}

// Cache returns the underlying cache store (stats, manual invalidation).
func (c *Client) Cache() *cache.Store {
	return c.cache
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// Close releases pooled connections. The client must not be used after.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
