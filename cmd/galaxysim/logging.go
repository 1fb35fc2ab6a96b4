package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/talgya/galaxy-sim/internal/config"
)

// newLogger builds the process logger. Format "auto" picks text on a terminal
// and JSON otherwise.
func newLogger(w io.Writer, cfg config.LoggingConfig, terminal bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	useJSON := false
	switch strings.ToLower(cfg.Format) {
	case "json":
		useJSON = true
	case "text":
	default:
		useJSON = !terminal
	}

	if useJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
