package api

import (
	"time"

	"racefeed/internal/journal"
	"racefeed/internal/pipeline"
	"racefeed/internal/scheduler"
)

// FromPassSummary converts an in-memory pass summary.
func FromPassSummary(s pipeline.PassSummary) Pass {
	stats := s.Stats()
	dto := Pass{
		ID:               s.ID,
		Trigger:          s.Trigger,
		Result:           s.Result(),
		StartedAt:        formatTime(s.StartedAt),
		FinishedAt:       formatTime(s.FinishedAt),
		DurationMS:       s.Duration().Milliseconds(),
		RowsLoaded:       s.RowsLoaded,
		Published:        stats.Published,
		Degraded:         stats.Degraded,
		Failed:           stats.Failed,
		ValidationFailed: stats.ValidationFailed,
		Groups:           make([]Group, 0, len(s.Groups)),
	}
	if s.Err != nil {
		dto.Error = s.Err.Error()
	}
	for _, term := range s.Terminators {
		dto.Terminators = append(dto.Terminators, term.Position)
	}
	for _, g := range s.Groups {
		group := Group{
			HeadRow:      g.HeadRow,
			RowID:        g.RowID,
			RaceName:     g.RaceName,
			VariantRows:  g.VariantRows,
			Outcome:      string(g.Outcome),
			ProductID:    g.ProductID,
			Link:         g.Link,
			Warnings:     g.Warnings,
			WarningCount: len(g.Warnings),
			DurationMS:   g.Duration.Milliseconds(),
		}
		if g.Err != nil {
			group.Error = g.Err.Error()
		}
		dto.Groups = append(dto.Groups, group)
	}
	return dto
}

// FromJournalPass converts a journaled pass.
func FromJournalPass(p journal.Pass) Pass {
	dto := Pass{
		ID:               p.ID,
		Trigger:          p.Trigger,
		Result:           p.Result,
		StartedAt:        formatTime(p.StartedAt),
		FinishedAt:       formatTime(p.FinishedAt),
		DurationMS:       p.Duration().Milliseconds(),
		RowsLoaded:       p.RowsLoaded,
		Published:        p.Published,
		Degraded:         p.Degraded,
		Failed:           p.Failed,
		ValidationFailed: p.ValidationFailed,
		Error:            p.Error,
		Groups:           make([]Group, 0, len(p.Groups)),
	}
	for _, g := range p.Groups {
		group := Group{
			HeadRow:      g.HeadRow,
			RowID:        g.RowID,
			RaceName:     g.RaceName,
			Outcome:      g.Outcome,
			Link:         g.Link,
			WarningCount: g.Warnings,
		}
		// Journaled groups keep one message: the error for failures, the first
		// warning otherwise.
		switch g.Outcome {
		case string(pipeline.OutcomeFailed), string(pipeline.OutcomeValidationFailed):
			group.Error = g.Message
		default:
			if g.Message != "" {
				group.Warnings = []string{g.Message}
			}
		}
		dto.Groups = append(dto.Groups, group)
	}
	return dto
}

// FromSchedulerStatus converts a scheduler snapshot.
func FromSchedulerStatus(s scheduler.Status) SchedulerStatus {
	dto := SchedulerStatus{
		Running:   s.Running,
		Passing:   s.Passing,
		NextRun:   formatTime(s.NextRun),
		LastError: s.LastError,
	}
	if s.LastPass != nil {
		pass := FromPassSummary(*s.LastPass)
		dto.LastPass = &pass
	}
	return dto
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
