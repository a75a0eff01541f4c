package mcpimage

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger builds a structured logger for the orchestration core.
// Terminal output uses tint for readable, colorized development logs;
// pass json=true for machine-readable output in production.
func NewLogger(w io.Writer, level string, json bool) *slog.Logger {
	lvl := ParseLogLevel(level)
	if json {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
	}))
}

// ParseLogLevel maps a config string to a slog level. Unknown values
// fall back to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
