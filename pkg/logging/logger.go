// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
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

	// Enabled turns regular logging on. When false only forced loggers emit.
	Enabled bool
}

var (
	enabled atomic.Bool
	forced  = zerolog.New(os.Stderr).With().Timestamp().Logger()
	gated   = disabledLogger()
)

func disabledLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// DefaultConfig returns a default logger configuration.
// Logging is off by default; failures still reach the forced logger.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Pretty:  false,
		Output:  os.Stderr,
		Enabled: false,
	}
}

// Setup configures the global zerolog logger.
// It is meant to be called once at process start.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	base := zerolog.New(output).With().Timestamp().Logger()
	forced = base
	enabled.Store(cfg.Enabled)

	logger := base
	if !cfg.Enabled {
		logger = base.Level(zerolog.Disabled)
	}

	// Set as global logger
	gated = logger
	log.Logger = logger

	return logger
}

// Enabled reports whether regular logging was turned on by Setup.
func Enabled() bool {
	return enabled.Load()
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

// ParseEnabled interprets an environment value such as "true", "1" or "on".
func ParseEnabled(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	switch value {
	case "on", "yes":
		return true
	}
	b, err := strconv.ParseBool(value)
	return err == nil && b
}

// NewLogger creates a new logger with the given component name.
// It is silent unless logging is enabled.
func NewLogger(component string) zerolog.Logger {
	return gated.With().Str("component", component).Logger()
}

// NewForcedLogger creates a component logger that emits even when logging is disabled.
// Use it for events that must always be visible, such as failed fetches.
func NewForcedLogger(component string) zerolog.Logger {
	return forced.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Worker claims and completions (worker_id, index)
//   - Successful fetches (url, status)
//
// Info: Normal operation events
//   - Batch start/complete (batch_id, items, concurrency, duration)
//
// Warn: Warning conditions that don't prevent operation
//   - Failed fetches (non-2xx or transport), forced
//   - Stats store errors (recording is best effort)
//
// Error: Error conditions requiring attention
//   - Dispatcher faults (operation panicked, batch aborted)
//   - Configuration errors
//
// Context Fields:
//   - batch_id: xid of the dispatched batch
//   - worker_id: index of the worker goroutine
//   - index: position of the item in the batch
//   - url: target URL
//   - status: HTTP status code
//   - error_class: Error classification (client, server, network)
//   - duration: Fetch or batch duration
