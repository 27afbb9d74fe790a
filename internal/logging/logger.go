package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rendis/recipelint/pkg/schema"
)

// Config selects the level and encoding of the process logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output io.Writer
}

// New builds a logger wrapped in a CorrelationHandler.
// Output defaults to stderr so it never mixes with rendered results.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		inner = slog.NewTextHandler(out, opts)
	case "json":
		inner = slog.NewJSONHandler(out, opts)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "unknown log format %q (want text or json)", cfg.Format)
	}
	return slog.New(NewCorrelationHandler(inner)), nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, schema.NewErrorf(schema.ErrCodeConfig, "unknown log level %q", s)
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
