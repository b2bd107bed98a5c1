// Package journal keeps a diagnostic history of pipeline passes.
//
// The journal is write-mostly: each finished pass is recorded once with its
// per-group outcomes, and the CLI reads the most recent passes back for the
// `history` command. Nothing in the pipeline reads the journal to make
// decisions; the spreadsheet status column stays the only source of truth.
package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"racefeed/internal/config"
)

// Pass is one recorded pipeline pass.
type Pass struct {
	ID               string
	Trigger          string
	StartedAt        time.Time
	FinishedAt       time.Time
	Result           string
	RowsLoaded       int
	Published        int
	Degraded         int
	Failed           int
	ValidationFailed int
	Error            string
	Groups           []Group
}

// Group is the recorded outcome of one submission group.
type Group struct {
	HeadRow  int
	RowID    string
	RaceName string
	Outcome  string
	Link     string
	Message  string
	Warnings int
}

// Duration returns how long the pass ran.
func (p Pass) Duration() time.Duration {
	if p.FinishedAt.Before(p.StartedAt) {
		return 0
	}
	return p.FinishedAt.Sub(p.StartedAt)
}

// Recorder persists passes.
type Recorder interface {
	RecordPass(ctx context.Context, pass Pass) error
	// RecentPasses returns up to limit passes, newest first. Group details
	// are included.
	RecentPasses(ctx context.Context, limit int) ([]Pass, error)
	Close() error
}

// Open returns the recorder selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Journal) (Recorder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		return OpenSQLite(ctx, cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("journal: unsupported driver %q", cfg.Driver)
	}
}
