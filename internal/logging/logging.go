package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a LOG_LEVEL value to a slog level.
// Unknown values fall back to error, the production default.
func ParseLevel(l string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// New builds a text logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Init installs the default logger. LOG_LEVEL picks the level and LOG_FILE,
// when set, redirects output away from the terminal the room UI draws on.
// If LOG_FILE cannot be opened the logger stays on stderr and the error is
// returned.
func Init() error {
	level := ParseLevel(os.Getenv("LOG_LEVEL"))

	path := os.Getenv("LOG_FILE")
	if path == "" {
		slog.SetDefault(New(os.Stderr, level))
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		slog.SetDefault(New(os.Stderr, level))
		return fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(New(f, level))
	return nil
}
