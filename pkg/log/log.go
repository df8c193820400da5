// Package log configures slog loggers for the stagerun binaries and components.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(logLevel string) slog.Level {
	switch logLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger writing to w. Format "json" selects the JSON handler,
// anything else the text handler.
func New(w io.Writer, logLevel, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(logLevel)}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup installs a stderr logger as the process default and returns it.
// Only binaries should call it; components receive their logger explicitly.
func Setup(logLevel, format string) *slog.Logger {
	logger := New(os.Stderr, logLevel, format)
	slog.SetDefault(logger)

	return logger
}

// WithModule derives a logger tagged with the component name.
func WithModule(logger *slog.Logger, module string) *slog.Logger {
	if logger == nil {
		logger = Discard()
	}

	return logger.With("module", module)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// TimeIt logs the start of an operation and returns a function that logs its
// completion with the elapsed time.
//
//	defer log.TimeIt(ctx, logger, "stage install")()
func TimeIt(ctx context.Context, logger *slog.Logger, name string) func() {
	start := time.Now()
	logger.InfoContext(ctx, "Starting "+name)

	return func() {
		logger.InfoContext(ctx, "Finished "+name, "duration", time.Since(start).String())
	}
}
