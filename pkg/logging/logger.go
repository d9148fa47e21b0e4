// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// SetupFromEnv configures the global logger from the environment:
//
//	ZUORA_LOG_LEVEL   debug, info, warn, error (default "info")
//	ZUORA_LOG_PRETTY  human-readable console output (default false)
func SetupFromEnv() zerolog.Logger {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("ZUORA_LOG_LEVEL", string(LevelInfo))
	v.SetDefault("ZUORA_LOG_PRETTY", false)

	return Setup(Config{
		Level:  LogLevel(v.GetString("ZUORA_LOG_LEVEL")),
		Pretty: v.GetBool("ZUORA_LOG_PRETTY"),
	})
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL, invalidation counts)
//   - Request flow (retry attempts, backoff durations)
//   - Token adoption from cache
//
// Info: Normal operation events
//   - Successful token exchanges
//   - Requests that succeeded after retry
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Transient API errors entering retry
//   - Rejected credentials at the token endpoint
//   - Retry exhaustion
//
// Error: Error conditions requiring attention
//   - Configuration errors at startup
//   - Service unavailability
//
// Context Fields:
//   - endpoint: Zuora endpoint path
//   - method: HTTP method
//   - status: HTTP status code
//   - attempt / backoff: retry progress
//   - removed: cache entries dropped by an invalidation
