package pipeline

import (
	"errors"
	"time"

	"racefeed/internal/journal"
	"racefeed/internal/notifications"
	"racefeed/internal/services"
	"racefeed/internal/submission"
)

// Outcome is the result of processing one submission group.
type Outcome string

const (
	OutcomePublished        Outcome = "published"
	OutcomeDegraded         Outcome = "degraded"
	OutcomeValidationFailed Outcome = "validation_failed"
	OutcomeFailed           Outcome = "failed"
)

// Pass results.
const (
	ResultCompleted   = "completed"
	ResultBatchFailed = "batch_failed"
)

// GroupResult records what happened to one group during a pass.
type GroupResult struct {
	HeadRow       int
	RowID         string
	RaceName      string
	VariantRows   []int
	Outcome       Outcome
	ProductID     int64
	TranslationID int64
	Link          string
	Warnings      []string
	Err           error
	Duration      time.Duration
}

// outcomeFor maps a group error and its warnings onto an Outcome.
func outcomeFor(err error, warnings int) Outcome {
	if err != nil {
		if services.Classify(err) == services.KindValidation {
			return OutcomeValidationFailed
		}
		return OutcomeFailed
	}
	if warnings > 0 {
		return OutcomeDegraded
	}
	return OutcomePublished
}

// PassSummary describes one pass.
type PassSummary struct {
	ID          string
	Trigger     string
	StartedAt   time.Time
	FinishedAt  time.Time
	RowsLoaded  int
	Groups      []GroupResult
	Terminators []submission.Terminator
	// Skipped counts rows outside any group.
	Skipped int
	// Err is set when the pass could not run at all.
	Err error
}

// Result reports ResultBatchFailed when the pass never reached its groups.
func (s PassSummary) Result() string {
	if s.Err != nil {
		return ResultBatchFailed
	}
	return ResultCompleted
}

// Duration is the wall time of the pass.
func (s PassSummary) Duration() time.Duration {
	if s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Count returns the number of groups with outcome o.
func (s PassSummary) Count(o Outcome) int {
	n := 0
	for _, g := range s.Groups {
		if g.Outcome == o {
			n++
		}
	}
	return n
}

// Stats condenses the summary for notifications.
func (s PassSummary) Stats() notifications.PassStats {
	return notifications.PassStats{
		Groups:           len(s.Groups),
		Published:        s.Count(OutcomePublished) + s.Count(OutcomeDegraded),
		Degraded:         s.Count(OutcomeDegraded),
		Failed:           s.Count(OutcomeFailed),
		ValidationFailed: s.Count(OutcomeValidationFailed),
		Duration:         s.Duration(),
	}
}

// JournalPass converts the summary into its journal record.
func (s PassSummary) JournalPass() journal.Pass {
	stats := s.Stats()
	pass := journal.Pass{
		ID:               s.ID,
		Trigger:          s.Trigger,
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
		Result:           s.Result(),
		RowsLoaded:       s.RowsLoaded,
		Published:        stats.Published,
		Degraded:         stats.Degraded,
		Failed:           stats.Failed,
		ValidationFailed: stats.ValidationFailed,
	}
	if s.Err != nil {
		pass.Error = s.Err.Error()
	}
	for _, g := range s.Groups {
		entry := journal.Group{
			HeadRow:  g.HeadRow,
			RowID:    g.RowID,
			RaceName: g.RaceName,
			Outcome:  string(g.Outcome),
			Link:     g.Link,
			Warnings: len(g.Warnings),
		}
		if g.Err != nil {
			entry.Message = g.Err.Error()
		} else if len(g.Warnings) > 0 {
			entry.Message = g.Warnings[0]
		}
		pass.Groups = append(pass.Groups, entry)
	}
	return pass
}

// ErrBatchFailed marks a pass that could not load its rows.
var ErrBatchFailed = errors.New("batch failed")

// ErrPassInProgress is returned when another pass holds the pass lock.
var ErrPassInProgress = errors.New("another pass is in progress")
