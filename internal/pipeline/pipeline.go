package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"racefeed/internal/enrichment"
	"racefeed/internal/journal"
	"racefeed/internal/logging"
	"racefeed/internal/metrics"
	"racefeed/internal/notifications"
	"racefeed/internal/publish"
	"racefeed/internal/rowstore"
	"racefeed/internal/services"
	"racefeed/internal/submission"
)

// RowStore is the row store surface used by a pass.
type RowStore interface {
	LoadAll(ctx context.Context) ([]rowstore.Row, rowstore.Schema, error)
	WriteField(ctx context.Context, schema rowstore.Schema, position int, field string, value any) error
	WriteFields(ctx context.Context, schema rowstore.Schema, position int, updates ...rowstore.Update) error
}

// Enricher derives the generated fields of a head row.
type Enricher interface {
	Enrich(ctx context.Context, head rowstore.Row) (enrichment.Result, error)
}

// Publisher publishes one group to the catalog.
type Publisher interface {
	Publish(ctx context.Context, g submission.Group) (publish.Result, error)
}

var (
	_ RowStore  = (*rowstore.Store)(nil)
	_ Enricher  = (*enrichment.Enricher)(nil)
	_ Publisher = (*publish.Publisher)(nil)
)

// Deps are the collaborators of a Pipeline. Journal, Metrics and Notifier are
// optional.
type Deps struct {
	Store     RowStore
	Enricher  Enricher
	Publisher Publisher
	Journal   journal.Recorder
	Metrics   *metrics.Metrics
	Notifier  notifications.Service
	Logger    *slog.Logger
	// LockPath is the cross-process pass lock; empty disables it.
	LockPath string
	Now      func() time.Time
	NewID    func() string
}

// Pipeline runs passes.
type Pipeline struct {
	deps   Deps
	logger *slog.Logger
}

// New constructs a Pipeline.
func New(deps Deps) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.NewString() }
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	return &Pipeline{
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "pipeline"),
	}
}

// RunPass executes one pass. trigger names what started it (startup,
// schedule, manual, api, retry). The returned error wraps ErrBatchFailed when
// rows could not be loaded and is ErrPassInProgress when another pass holds
// the lock; group failures never surface here, they are in the summary.
func (p *Pipeline) RunPass(ctx context.Context, trigger string) (PassSummary, error) {
	summary := PassSummary{
		ID:        p.deps.NewID(),
		Trigger:   trigger,
		StartedAt: p.deps.Now(),
	}

	unlock, err := p.acquireLock()
	if err != nil {
		return summary, err
	}
	defer unlock()

	ctx = services.WithPassID(ctx, summary.ID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("pass started",
		logging.String("trigger", trigger),
		logging.String(logging.FieldEventType, "pass_started"),
	)

	rows, schema, err := p.deps.Store.LoadAll(ctx)
	if err != nil {
		summary.Err = err
		summary.FinishedAt = p.deps.Now()
		logging.ErrorWithContext(logger, "rows could not be loaded; pass abandoned", "pass_batch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check sheet credentials and connectivity"),
			logging.String(logging.FieldImpact, "no groups processed this pass"),
		)
		if nerr := p.deps.Notifier.NotifyBatchFailed(ctx, err); nerr != nil {
			p.notifyFailed(logger, nerr)
		}
		p.finish(ctx, summary)
		return summary, fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}
	summary.RowsLoaded = len(rows)

	scan := submission.Scan(rows)
	summary.Terminators = scan.Terminators
	summary.Skipped = scan.Skipped
	for _, term := range scan.Terminators {
		logging.WarnWithContext(logger, "row with unrecognised status ended a group", "group_terminator",
			logging.Int(logging.FieldRow, term.Position),
			logging.String("status", term.Status),
			logging.Int("head_row", term.HeadPosition),
			logging.String(logging.FieldErrorHint, "set STATUS to empty to make the row a variant, or to revised to make it a head"),
			logging.String(logging.FieldImpact, "row skipped and excluded from the group above it"),
		)
	}
	logger.Info("groups found",
		logging.Int("rows", len(rows)),
		logging.Int("groups", len(scan.Groups)),
		logging.Int("terminators", len(scan.Terminators)),
		logging.String(logging.FieldEventType, "groups_found"),
	)

	for _, g := range scan.Groups {
		if ctx.Err() != nil {
			logger.Warn("pass interrupted by shutdown",
				logging.Int("remaining_groups", len(scan.Groups)-len(summary.Groups)),
				logging.String(logging.FieldEventType, "pass_interrupted"),
			)
			break
		}
		result := p.processGroup(ctx, schema, g)
		summary.Groups = append(summary.Groups, result)
	}

	summary.FinishedAt = p.deps.Now()
	stats := summary.Stats()
	logger.Info("pass finished",
		logging.Int("groups", stats.Groups),
		logging.Int("published", stats.Published),
		logging.Int("degraded", stats.Degraded),
		logging.Int("failed", stats.Failed),
		logging.Int("validation_failed", stats.ValidationFailed),
		logging.Duration("duration", summary.Duration()),
		logging.String(logging.FieldEventType, "pass_finished"),
	)
	if err := p.deps.Notifier.NotifyPassCompleted(ctx, stats); err != nil {
		p.notifyFailed(logger, err)
	}
	p.finish(ctx, summary)
	return summary, nil
}

// acquireLock takes the cross-process pass lock.
func (p *Pipeline) acquireLock() (func(), error) {
	if strings.TrimSpace(p.deps.LockPath) == "" {
		return func() {}, nil
	}
	lock := flock.New(p.deps.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire pass lock: %w", err)
	}
	if !ok {
		return nil, ErrPassInProgress
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release pass lock",
				logging.Error(err),
				logging.String("lock", p.deps.LockPath),
			)
		}
	}, nil
}

// finish journals the pass and updates metrics.
func (p *Pipeline) finish(ctx context.Context, summary PassSummary) {
	logger := logging.WithContext(ctx, p.logger)
	p.deps.Metrics.ObservePass(summary.Result(), summary.Duration(), summary.FinishedAt)
	for _, g := range summary.Groups {
		p.deps.Metrics.ObserveGroup(string(g.Outcome))
	}
	if p.deps.Journal == nil {
		return
	}
	// The journal is diagnostic; a shutdown mid-pass should still record it.
	if err := p.deps.Journal.RecordPass(context.WithoutCancel(ctx), summary.JournalPass()); err != nil {
		logging.WarnWithContext(logger, "pass not journaled", "journal_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "pass missing from racefeed history"),
		)
	}
}

func (p *Pipeline) notifyFailed(logger *slog.Logger, err error) {
	logging.WarnWithContext(logger, "notification failed", "notification_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
	)
}

// processGroup runs enrichment, write-back, publish and the status write for
// one group. It never returns an error; the outcome is in the result.
func (p *Pipeline) processGroup(ctx context.Context, schema rowstore.Schema, g submission.Group) GroupResult {
	start := p.deps.Now()
	head := g.Head
	ctx = services.WithRow(ctx, head.Position)
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldRowID, head.ID()))
	result := GroupResult{
		HeadRow:     head.Position,
		RowID:       head.ID(),
		RaceName:    head.Get(rowstore.FieldRaceName),
		VariantRows: g.VariantPositions(),
	}
	logger.Info("group started",
		logging.Int("variants", len(g.Variants)),
		logging.String(logging.FieldEventType, "group_started"),
	)

	done := func(err error) GroupResult {
		result.Err = err
		result.Outcome = outcomeFor(err, len(result.Warnings))
		result.Duration = p.deps.Now().Sub(start)
		p.logGroup(ctx, logger, result)
		return result
	}

	enriched, err := p.deps.Enricher.Enrich(ctx, head)
	result.Warnings = append(result.Warnings, enriched.Warnings...)
	if err != nil {
		return done(err)
	}

	if err := p.deps.Store.WriteFields(ctx, schema, head.Position, enriched.Updates()...); err != nil {
		logging.WarnWithContext(logger, "derived fields not fully written back", "enrichment_writeback_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "sheet may lack generated text; the product still gets it"),
		)
		result.Warnings = append(result.Warnings, fmt.Sprintf("write back: %v", err))
	}
	enriched.Apply(&g.Head)

	published, err := p.deps.Publisher.Publish(ctx, g)
	result.ProductID = published.ProductID
	result.TranslationID = published.TranslationID
	result.Link = published.Link
	result.Warnings = append(result.Warnings, published.Warnings...)
	if err != nil {
		return done(err)
	}

	if err := p.deps.Store.WriteField(ctx, schema, head.Position, rowstore.FieldStatus, rowstore.PublishedStatus); err != nil {
		logging.ErrorWithContext(logger, "product published but status not advanced", "status_write_failed",
			logging.Int64("product_id", published.ProductID),
			logging.Error(err),
			logging.Alert("duplicate_product_risk"),
			logging.String(logging.FieldErrorHint, "set STATUS to Published by hand before the next pass"),
			logging.String(logging.FieldImpact, "the next pass will publish this race again"),
		)
		return done(fmt.Errorf("mark published: %w", err))
	}
	if err := p.deps.Store.WriteField(ctx, schema, head.Position, rowstore.FieldLink, published.Link); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("link write: %v", err))
	}
	return done(nil)
}

func (p *Pipeline) logGroup(ctx context.Context, logger *slog.Logger, result GroupResult) {
	attrs := []logging.Attr{
		logging.String("outcome", string(result.Outcome)),
		logging.Int("warnings", len(result.Warnings)),
		logging.Duration("duration", result.Duration),
	}
	switch result.Outcome {
	case OutcomePublished, OutcomeDegraded:
		attrs = append(attrs,
			logging.Int64("product_id", result.ProductID),
			logging.String("link", result.Link),
			logging.String(logging.FieldEventType, "group_done"),
		)
		logger.Info("group published", logging.Args(attrs...)...)
	case OutcomeValidationFailed:
		logging.WarnWithContext(logger, "group needs fixes in the sheet", "group_validation_failed",
			append(attrs,
				logging.Error(result.Err),
				logging.String(logging.FieldErrorHint, "fix the head row; it stays revised and is retried next pass"),
			)...,
		)
		if err := p.deps.Notifier.NotifyGroupFailed(ctx, result.HeadRow, result.RaceName, result.Err); err != nil {
			p.notifyFailed(logger, err)
		}
	default:
		logging.ErrorWithContext(logger, "group failed", "group_failed",
			append(attrs,
				logging.String("error_kind", string(services.Classify(result.Err))),
				logging.Error(result.Err),
				logging.String(logging.FieldImpact, "race not published; retried next pass"),
			)...,
		)
		if err := p.deps.Notifier.NotifyGroupFailed(ctx, result.HeadRow, result.RaceName, result.Err); err != nil {
			p.notifyFailed(logger, err)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) NotifyPassCompleted(context.Context, notifications.PassStats) error { return nil }
func (nopNotifier) NotifyGroupFailed(context.Context, int, string, error) error        { return nil }
func (nopNotifier) NotifyBatchFailed(context.Context, error) error                     { return nil }
func (nopNotifier) TestNotification(context.Context) error                             { return nil }
