package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"racefeed/internal/logging"
	"racefeed/internal/pipeline"
)

// Triggers.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerRetry    = "retry"
	TriggerAPI      = "api"
)

// ErrTriggerPending is returned when a triggered pass is already waiting.
var ErrTriggerPending = errors.New("a triggered pass is already pending")

// Runner runs one pass.
type Runner interface {
	RunPass(ctx context.Context, trigger string) (pipeline.PassSummary, error)
}

var _ Runner = (*pipeline.Pipeline)(nil)

// Scheduler runs passes on a timetable.
type Scheduler struct {
	runner  Runner
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
	trigger chan string

	// passMu serializes passes started by this process.
	passMu sync.Mutex

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	passing  string
	nextRun  time.Time
	lastPass *pipeline.PassSummary
	lastErr  error
}

// New constructs a Scheduler.
func New(runner Runner, opts Options, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:  runner,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "scheduler"),
		now:     time.Now,
		trigger: make(chan string, 1),
	}
}

// Start begins the schedule loop in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	// Without a startup pass the first slot is known now, so status reports
	// it as soon as Start returns.
	var first time.Time
	if !s.opts.RunOnStartup {
		first = s.opts.Next(s.now())
		s.nextRun = first
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.loop(runCtx, first)
	return nil
}

// Stop cancels the loop and waits for an in-flight pass to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// Trigger asks the loop to run a pass as soon as the current one, if any,
// finishes.
func (s *Scheduler) Trigger(source string) error {
	if source == "" {
		source = TriggerAPI
	}
	select {
	case s.trigger <- source:
		s.logger.Info("pass requested",
			logging.String("trigger", source),
			logging.String(logging.FieldEventType, "pass_requested"),
		)
		return nil
	default:
		return ErrTriggerPending
	}
}

// RunNow runs a pass synchronously. It returns pipeline.ErrPassInProgress
// instead of waiting when another pass is running.
func (s *Scheduler) RunNow(ctx context.Context, trigger string) (pipeline.PassSummary, error) {
	if !s.passMu.TryLock() {
		return pipeline.PassSummary{}, pipeline.ErrPassInProgress
	}
	defer s.passMu.Unlock()
	return s.run(ctx, trigger)
}

// loop waits for next, or the slot after now when next is zero.
func (s *Scheduler) loop(ctx context.Context, next time.Time) {
	defer s.wg.Done()

	if s.opts.RunOnStartup {
		s.runWithRetry(ctx, TriggerStartup)
	}
	for {
		if next.IsZero() {
			next = s.opts.Next(s.now())
		}
		s.setNextRun(next)
		s.logger.Info("next pass scheduled",
			logging.String("at", next.Format(time.RFC3339)),
			logging.String(logging.FieldEventType, "pass_scheduled"),
		)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runWithRetry(ctx, TriggerSchedule)
		case source := <-s.trigger:
			timer.Stop()
			s.runWithRetry(ctx, source)
		}
		next = time.Time{}
	}
}

// runWithRetry runs a pass and, after a batch failure, one quick retry.
func (s *Scheduler) runWithRetry(ctx context.Context, trigger string) {
	_, err := s.serialized(ctx, trigger)
	if !errors.Is(err, pipeline.ErrBatchFailed) || s.opts.QuickRetry <= 0 {
		return
	}
	s.setNextRun(s.now().Add(s.opts.QuickRetry))
	logging.WarnWithContext(s.logger, "pass failed before processing; quick retry scheduled", "quick_retry_scheduled",
		logging.Duration("delay", s.opts.QuickRetry),
		logging.String(logging.FieldImpact, "next attempt after the delay, then the regular schedule"),
	)
	timer := time.NewTimer(s.opts.QuickRetry)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		_, _ = s.serialized(ctx, TriggerRetry)
	case source := <-s.trigger:
		_, _ = s.serialized(ctx, source)
	}
}

func (s *Scheduler) serialized(ctx context.Context, trigger string) (pipeline.PassSummary, error) {
	s.passMu.Lock()
	defer s.passMu.Unlock()
	return s.run(ctx, trigger)
}

// run expects passMu to be held.
func (s *Scheduler) run(ctx context.Context, trigger string) (pipeline.PassSummary, error) {
	if ctx.Err() != nil {
		return pipeline.PassSummary{}, ctx.Err()
	}
	s.mu.Lock()
	s.passing = trigger
	s.mu.Unlock()

	summary, err := s.runner.RunPass(ctx, trigger)

	s.mu.Lock()
	s.passing = ""
	if !errors.Is(err, pipeline.ErrPassInProgress) {
		copy := summary
		s.lastPass = &copy
		s.lastErr = err
	}
	s.mu.Unlock()

	if errors.Is(err, pipeline.ErrPassInProgress) {
		s.logger.Info("pass skipped; another process holds the pass lock",
			logging.String("trigger", trigger),
			logging.String(logging.FieldEventType, "pass_skipped"),
		)
	}
	return summary, err
}

func (s *Scheduler) setNextRun(t time.Time) {
	s.mu.Lock()
	s.nextRun = t
	s.mu.Unlock()
}
