// Package logging assembles structured slog loggers and formatting helpers used
// across racefeed components.
//
// It owns the console/JSON handlers, level and output plumbing, and
// context-aware helpers so pipeline code tags log lines with the head row,
// stage and pass identifier automatically. A no-op logger is provided for tests
// and wiring code that cannot fail.
package logging
