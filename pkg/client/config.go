package client

import (
	"time"

	"github.com/spf13/viper"
)

// Base URLs by environment.
var baseURLs = map[string]string{
	"sandbox":       "https://rest.apisandbox.zuora.com",
	"apisandbox":    "https://rest.apisandbox.zuora.com", // alias for sandbox
	"test":          "https://rest.test.zuora.com",
	"production":    "https://rest.na.zuora.com",
	"eu-sandbox":    "https://rest.sandbox.eu.zuora.com",
	"eu-production": "https://rest.eu.zuora.com",
}

// BaseURL maps an environment name to its REST base URL.
// Unknown environments fall back to sandbox.
func BaseURL(env string) string {
	if url, ok := baseURLs[env]; ok {
		return url
	}
	return baseURLs["sandbox"]
}

// Config holds the client configuration.
type Config struct {
	// OAuth client-credentials pair. Required for any network call;
	// a client without them still serves cached reads but reports
	// ErrNotConfigured on anything needing authentication.
	ClientID     string
	ClientSecret string

	// Environment selects the base URL (sandbox, test, production,
	// eu-sandbox, eu-production).
	Environment string

	// BaseURLOverride replaces the environment-derived base URL.
	// Used by tests to point at a local backend.
	BaseURLOverride string

	// Caching
	CacheEnabled bool
	CacheTTL     time.Duration

	// Retry
	Retry RetryPolicy

	// PoolSize is the maximum number of pooled connections per host.
	PoolSize int

	// Timeouts
	RequestTimeout time.Duration
	OAuthTimeout   time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		Environment:    "sandbox",
		CacheEnabled:   true,
		CacheTTL:       5 * time.Minute,
		Retry:          DefaultRetryPolicy(),
		PoolSize:       10,
		RequestTimeout: 15 * time.Second,
		OAuthTimeout:   10 * time.Second,
	}
}

// LoadConfig builds a Config from the environment:
//
//	ZUORA_CLIENT_ID                  OAuth client id
//	ZUORA_CLIENT_SECRET              OAuth client secret
//	ZUORA_ENV                        environment name (default "sandbox")
//	ZUORA_API_CACHE_ENABLED          default true
//	ZUORA_API_CACHE_TTL_SECONDS      default 300
//	ZUORA_API_RETRY_ATTEMPTS         default 3
//	ZUORA_API_RETRY_BACKOFF_FACTOR   default 0.5
//	ZUORA_API_CONNECTION_POOL_SIZE   default 10
//	ZUORA_API_REQUEST_TIMEOUT        seconds, default 15
//	ZUORA_OAUTH_TIMEOUT              seconds, default 10
func LoadConfig() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ZUORA_ENV", "sandbox")
	v.SetDefault("ZUORA_API_CACHE_ENABLED", true)
	v.SetDefault("ZUORA_API_CACHE_TTL_SECONDS", 300)
	v.SetDefault("ZUORA_API_RETRY_ATTEMPTS", 3)
	v.SetDefault("ZUORA_API_RETRY_BACKOFF_FACTOR", 0.5)
	v.SetDefault("ZUORA_API_CONNECTION_POOL_SIZE", 10)
	v.SetDefault("ZUORA_API_REQUEST_TIMEOUT", 15)
	v.SetDefault("ZUORA_OAUTH_TIMEOUT", 10)

	cfg := DefaultConfig()
	cfg.ClientID = v.GetString("ZUORA_CLIENT_ID")
	cfg.ClientSecret = v.GetString("ZUORA_CLIENT_SECRET")
	cfg.Environment = v.GetString("ZUORA_ENV")
	cfg.CacheEnabled = v.GetBool("ZUORA_API_CACHE_ENABLED")
	cfg.CacheTTL = time.Duration(v.GetInt("ZUORA_API_CACHE_TTL_SECONDS")) * time.Second
	cfg.Retry.MaxAttempts = v.GetInt("ZUORA_API_RETRY_ATTEMPTS")
	cfg.Retry.BackoffFactor = v.GetFloat64("ZUORA_API_RETRY_BACKOFF_FACTOR")
	cfg.PoolSize = v.GetInt("ZUORA_API_CONNECTION_POOL_SIZE")
	cfg.RequestTimeout = time.Duration(v.GetInt("ZUORA_API_REQUEST_TIMEOUT")) * time.Second
	cfg.OAuthTimeout = time.Duration(v.GetInt("ZUORA_OAUTH_TIMEOUT")) * time.Second

	return cfg
}

// baseURL resolves the effective base URL for this config.
func (c Config) baseURL() string {
	if c.BaseURLOverride != "" {
		return c.BaseURLOverride
	}
	return BaseURL(c.Environment)
}
