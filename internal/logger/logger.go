// Package logger sets up the process wide slog logger from LOG_LEVEL and
// LOG_FORMAT.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// Setup builds the default logger writing to stderr and installs it as
// slog.Default, so views without their own Logger use it too.
func Setup() *slog.Logger {
	return SetupWriter(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// SetupWriter is Setup with explicit output and settings.
// level is debug, info, warn or error (info when unknown), format is json
// or text (text when unknown).
func SetupWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	defaultLogger = slog.New(h)
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

// ParseLevel maps a LOG_LEVEL value to a slog level
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// L returns the default logger, calling Setup on first use
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup()
	}
	return defaultLogger
}
