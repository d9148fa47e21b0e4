// Package auth owns the OAuth client-credentials handshake with the
// Zuora identity endpoint and the lifecycle of the resulting bearer
// token.
//
// The token is persisted through the shared cache store under the
// reserved OAUTH:/oauth/token key with a TTL equal to its margin-adjusted
// lifetime. That deliberately reuses the cache's TTL-eviction machinery
// for credential freshness: expiry is checked lazily on each access, with
// no background timer. It is two logically separate caches (responses,
// credentials) sharing one implementation — the token record is not a
// normal response-cache entry and no endpoint-prefix invalidation reaches
// it unless explicitly targeted.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/catalogtools/zuora-catalog-client/pkg/cache"
)

// ExpiryMargin is subtracted from the server-reported token lifetime so
// the token is refreshed before it actually expires. Covers clock skew
// and requests already in flight when the token goes stale.
const ExpiryMargin = 5 * time.Minute

// TokenKey is the reserved cache key for the OAuth token record.
var TokenKey = cache.Key{Method: "OAUTH", Endpoint: "/oauth/token"}

// ErrNotConfigured indicates the OAuth credentials are absent. It is an
// expected, handleable condition — callers surface it as "not configured"
// rather than treating it as fatal.
var ErrNotConfigured = errors.New("zuora credentials not configured")

// Error represents a failed token exchange: a non-2xx from the token
// endpoint or a network failure reaching it. "Not authenticated" is a
// value to handle, never a fault that propagates past the caller.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("zuora authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("zuora authentication failed (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// TokenRecord is a bearer token with its margin-adjusted expiry.
// Produced once per successful exchange and shared by every operation of
// the owning client instance.
type TokenRecord struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Config holds the token manager configuration.
type Config struct {
	ClientID     string
	ClientSecret string

	// BaseURL of the REST backend; the token endpoint is BaseURL+"/oauth/token".
	BaseURL string

	// Timeout for the token exchange call.
	Timeout time.Duration
}

// Manager owns the OAuth token lifecycle. It has two states,
// unauthenticated and authenticated, and the authenticated state lives
// entirely inside the cache store: token presence in the store means
// authenticated and fresh, absence (never set, or TTL-evicted) means
// unauthenticated. There is no separate token field to fall out of sync.
type Manager struct {
	cfg        Config
	store      *cache.Store
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewManager creates a token manager persisting through the given store.
func NewManager(store *cache.Store, cfg Config) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		cfg:   cfg,
		store: store,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.With().Str("component", "zuora-auth").Logger(),
	}
}

// IsConfigured reports whether OAuth credentials are present.
func (m *Manager) IsConfigured() bool {
	return m.cfg.ClientID != "" && m.cfg.ClientSecret != ""
}

// Token returns the current bearer token if one is present and fresh.
// The freshness check is the cache store's own TTL eviction.
func (m *Manager) Token() (string, bool) {
	value, ok := m.store.Get(TokenKey)
	if !ok {
		return "", false
	}
	record, ok := value.(TokenRecord)
	if !ok {
		return "", false
	}
	return record.AccessToken, true
}

// Authenticate obtains a bearer token. A fresh record already in the
// store is adopted directly without a network call (counted as a cache
// hit by the store); otherwise it performs the client-credentials
// exchange and persists the result with TTL equal to the margin-adjusted
// lifetime. Failures come back as ErrNotConfigured or *Error values.
func (m *Manager) Authenticate(ctx context.Context) error {
	if !m.IsConfigured() {
		return ErrNotConfigured
	}

	if _, ok := m.Token(); ok {
		m.logger.Debug().Msg("Adopted cached token, skipping exchange")
		return nil
	}

	form := url.Values{
		"client_id":     {m.cfg.ClientID},
		"client_secret": {m.cfg.ClientSecret},
		"grant_type":    {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.cfg.BaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		tokenFailures.Inc()
		m.logger.Warn().Err(err).Msg("Token exchange failed")
		return &Error{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := fmt.Sprintf("HTTP %d", resp.StatusCode)
		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
			message = body.Message
		}
		tokenFailures.Inc()
		m.logger.Warn().
			Int("status", resp.StatusCode).
			Str("message", message).
			Msg("Token endpoint rejected credentials")
		return &Error{StatusCode: resp.StatusCode, Message: message}
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		tokenFailures.Inc()
		return &Error{Err: fmt.Errorf("decode token response: %w", err)}
	}
	if body.AccessToken == "" {
		tokenFailures.Inc()
		return &Error{StatusCode: resp.StatusCode, Message: "token response missing access_token"}
	}

	// Tokens typically live ~1 hour; refresh ExpiryMargin early. A
	// server-reported lifetime at or under the margin keeps its full
	// lifetime instead: a non-positive TTL would discard the token on
	// arrival and re-exchange on every call.
	expiresIn := time.Duration(body.ExpiresIn) * time.Second
	if body.ExpiresIn <= 0 {
		expiresIn = time.Hour
	}
	lifetime := expiresIn - ExpiryMargin
	if lifetime <= 0 {
		lifetime = expiresIn
	}

	record := TokenRecord{
		AccessToken: body.AccessToken,
		ExpiresAt:   time.Now().Add(lifetime),
	}
	m.store.Set(TokenKey, record, lifetime)

	tokenFetches.Inc()
	m.logger.Info().
		Dur("lifetime", lifetime).
		Msg("Obtained Zuora access token")

	return nil
}

// EnsureAuthenticated returns a fresh bearer token, authenticating first
// if needed. Every executor call routes through this before issuing a
// request.
func (m *Manager) EnsureAuthenticated(ctx context.Context) (string, error) {
	if token, ok := m.Token(); ok {
		return token, nil
	}

	if err := m.Authenticate(ctx); err != nil {
		return "", err
	}

	token, ok := m.Token()
	if !ok {
		// Set then immediate TTL eviction can only happen with a
		// pathological server-reported lifetime.
		return "", &Error{Message: "token expired immediately after issue"}
	}
	return token, nil
}

// Invalidate drops the current token, forcing the next call to
// re-authenticate.
func (m *Manager) Invalidate() {
	m.store.Invalidate(TokenKey.Method, TokenKey.Endpoint)
}
