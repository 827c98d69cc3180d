package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a text logger, or a JSON logger when LOG_FORMAT=json.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: slog.LevelInfo}
	if cfg == nil {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	opts.Level = parseLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
