// Package logger builds the zerolog loggers used across the ledger
// services and carries them through request contexts.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey types the values this package stores in a context.
type ContextKey string

const (
	// LoggerKey holds the request-scoped logger.
	LoggerKey ContextKey = "logger"
)

// Output formats accepted by Configure.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

func console(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
}

func build(w io.Writer) zerolog.Context {
	return zerolog.New(w).With().Timestamp().Caller()
}

// New returns an info-level console logger on stdout.
func New() zerolog.Logger {
	return build(console(os.Stdout)).Logger()
}

// NewWithWriter returns a JSON logger on w, mostly for tests.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return build(w).Logger()
}

// Configure builds a logger for the given level ("debug", "info", ...) and
// format ("console" or "json") writing to w.
func Configure(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch strings.ToLower(format) {
	case "", FormatConsole:
		w = console(w)
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", format)
	}

	return build(w).Logger().Level(lvl), nil
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger stored by WithContext, or New() when
// there is none.
func FromContext(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return l
	}
	return New()
}

// WithFields returns a child logger carrying every key in fields.
func WithFields(logger zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	c := logger.With()
	for k, v := range fields {
		c = c.Interface(k, v)
	}
	return c.Logger()
}

// ForOwner tags a logger with the ledger owner.
func ForOwner(logger zerolog.Logger, owner string) zerolog.Logger {
	return logger.With().Str("owner", owner).Logger()
}
