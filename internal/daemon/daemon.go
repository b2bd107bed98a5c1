package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"racefeed/internal/config"
	"racefeed/internal/journal"
	"racefeed/internal/logging"
	"racefeed/internal/metrics"
	"racefeed/internal/notifications"
	"racefeed/internal/scheduler"
)

// Daemon coordinates the scheduler and the HTTP API and enforces
// single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	scheduler *scheduler.Scheduler
	journal   journal.Recorder
	metrics   *metrics.Metrics
	notifier  notifications.Service

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	mu        sync.Mutex
	startedAt time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	LockFilePath string
	JournalPath  string
	Scheduler    scheduler.Status
}

// New constructs a daemon. rec, m and notifier may be nil.
func New(cfg *config.Config, sched *scheduler.Scheduler, rec journal.Recorder, m *metrics.Metrics, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || sched == nil {
		return nil, errors.New("daemon requires config and scheduler")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	lockPath := cfg.DaemonLockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		scheduler: sched,
		journal:   rec,
		metrics:   m,
		notifier:  notifier,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and starts the scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another racefeed daemon instance is already running")
	}

	if err := d.scheduler.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start scheduler: %w", err)
	}

	d.mu.Lock()
	d.startedAt = time.Now()
	d.mu.Unlock()
	d.running.Store(true)
	d.logger.Info("racefeed daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops the scheduler, waiting for an in-flight pass, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.scheduler.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("racefeed daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Run starts the daemon, serves the API until ctx is cancelled, then stops.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	defer d.Stop()

	srv := newAPIServer(d.cfg, d, d.logger)
	g, gctx := errgroup.WithContext(ctx)
	if srv != nil {
		g.Go(func() error { return srv.serve(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	started := d.startedAt
	d.mu.Unlock()
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    started,
		LockFilePath: d.lockPath,
		Scheduler:    d.scheduler.Status(),
	}
	if strings.EqualFold(d.cfg.Journal.Driver, "sqlite") {
		status.JournalPath = d.cfg.Journal.Path
	}
	return status
}

// RequestPass asks the scheduler for an immediate pass.
func (d *Daemon) RequestPass(source string) error {
	if !d.running.Load() {
		return errors.New("daemon not running")
	}
	return d.scheduler.Trigger(source)
}

// History returns the most recent journaled passes, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]journal.Pass, error) {
	if d.journal == nil {
		return nil, errors.New("run journal unavailable")
	}
	return d.journal.RecentPasses(ctx, limit)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
