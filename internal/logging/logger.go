package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"racefeed/internal/config"
)

const logFilePrefix = "racefeed-"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Writer receives the console or JSON stream. Defaults to stderr so that
	// command output on stdout stays machine readable.
	Writer io.Writer
	// FilePath receives a JSON copy of every record when set.
	FilePath  string
	AddSource bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	addSource := opts.AddSource || level.Level() <= slog.LevelDebug

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		handler = newConsoleHandler(w, level, addSource)
	case "json":
		handler = newJSONHandler(w, level, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if path := strings.TrimSpace(opts.FilePath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		handler = newFanoutHandler(handler, newJSONHandler(file, level, addSource))
	}

	return slog.New(handler), nil
}

// NewFromConfig creates a logger from the [logging] section. When a log
// directory is configured, a dated JSON log file is written next to the
// console output.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	opts := Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		opts.FilePath = filepath.Join(dir, LogFileName(time.Now()))
	}
	return New(opts)
}

// LogFileName returns the dated log file name for the supplied time.
func LogFileName(now time.Time) string {
	return logFilePrefix + now.UTC().Format("20060102") + ".log"
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
