// Package logging builds the process-wide slog logger. Components take
// it through their constructors; nothing logs through slog's default.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a logger tagged with the service identity. The dev
// environment gets a text handler so local output stays readable; every
// other environment emits JSON for the log pipeline.
func NewLogger(level, serviceName, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if env == "dev" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h).With(
		slog.String("service", serviceName),
		slog.String("env", env),
	)
}

// parseLevel is forgiving: an unknown level falls back to info rather
// than failing startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
