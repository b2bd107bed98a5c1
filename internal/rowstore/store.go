package rowstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"racefeed/internal/logging"
	"racefeed/internal/retry"
	"racefeed/internal/services"
)

// ErrUnknownField reports a write to a field the header schema does not contain.
var ErrUnknownField = errors.New("unknown field")

// Connector opens connections to a backing spreadsheet.
type Connector interface {
	Name() string
	Connect(ctx context.Context) (Conn, error)
}

// Conn is an open spreadsheet connection.
type Conn interface {
	// Values returns the full grid, header row first.
	Values(ctx context.Context) ([][]string, error)
	// UpdateCell writes a single cell addressed by 1-based row and column.
	UpdateCell(ctx context.Context, row, col int, value any) error
	Close() error
}

// Options configures a Store.
type Options struct {
	CacheTTL        time.Duration
	LoadAttempts    int
	LoadBaseDelay   time.Duration
	UpdateAttempts  int
	UpdateBaseDelay time.Duration
	Logger          *slog.Logger
	// Sleep overrides retry waits (tests).
	Sleep func(ctx context.Context, d time.Duration) error
	// Now overrides the clock used for handle expiry (tests).
	Now func() time.Time
	// OnRetry observes retried operations ("load" or "write").
	OnRetry func(op string)
}

// handle is the cached connection. It is replaced when it expires or when a
// failure sets forceRefresh.
type handle struct {
	conn         Conn
	expiresAt    time.Time
	forceRefresh bool
}

// Store is the row store adapter.
type Store struct {
	connector Connector
	opts      Options
	logger    *slog.Logger

	mu     sync.Mutex
	handle *handle
}

// New constructs a Store over connector.
func New(connector Connector, opts Options) *Store {
	if opts.LoadAttempts <= 0 {
		opts.LoadAttempts = 1
	}
	if opts.UpdateAttempts <= 0 {
		opts.UpdateAttempts = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		connector: connector,
		opts:      opts,
		logger:    logging.NewComponentLogger(opts.Logger, "rowstore"),
	}
}

// Backend names the underlying connector.
func (s *Store) Backend() string {
	return s.connector.Name()
}

// LoadAll fetches every record and the header schema.
func (s *Store) LoadAll(ctx context.Context) ([]Row, Schema, error) {
	var grid [][]string
	policy := s.policy("load", s.opts.LoadAttempts, s.opts.LoadBaseDelay)
	err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		conn, err := s.conn(ctx)
		if err != nil {
			s.invalidate()
			return err
		}
		values, err := conn.Values(ctx)
		if err != nil {
			s.invalidate()
			return err
		}
		grid = values
		return nil
	})
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "row store load failed", "rowstore_load_failed",
			logging.String("backend", s.connector.Name()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check spreadsheet credentials and network access"),
		)
		return nil, Schema{}, services.Wrap(services.ErrConnectivity, "rowstore", "load", s.connector.Name(), err)
	}
	rows, schema := rowsFromGrid(grid)
	s.logger.Debug("rows loaded",
		logging.Int("rows", len(rows)),
		logging.Int("columns", schema.Len()),
		logging.String(logging.FieldEventType, "rowstore_loaded"),
	)
	return rows, schema, nil
}

// WriteField writes one cell of the row at position. A field missing from the
// schema is reported without touching the backend. A non-nil error means the
// write is not guaranteed to have happened.
func (s *Store) WriteField(ctx context.Context, schema Schema, position int, field string, value any) error {
	logger := logging.WithContext(ctx, s.logger)
	col, ok := schema.Column(field)
	if !ok {
		logging.ErrorWithContext(logger, "write to unknown field skipped", "rowstore_unknown_field",
			logging.String("field", field),
			logging.Int("position", position),
			logging.String(logging.FieldErrorHint, "add the column to the sheet header"),
		)
		return services.Wrap(services.ErrValidation, "rowstore", "write field", fmt.Sprintf("field %q", field), ErrUnknownField)
	}
	policy := s.policy("write", s.opts.UpdateAttempts, s.opts.UpdateBaseDelay)
	err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		conn, err := s.conn(ctx)
		if err != nil {
			s.invalidate()
			return err
		}
		if err := conn.UpdateCell(ctx, position, col, value); err != nil {
			s.invalidate()
			return err
		}
		return nil
	})
	if err != nil {
		logging.ErrorWithContext(logger, "cell write failed", "rowstore_write_failed",
			logging.String("field", field),
			logging.Int("position", position),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "value may be missing from the sheet; it will be retried on the next pass"),
		)
		return services.Wrap(services.ErrConnectivity, "rowstore", "write field", field, err)
	}
	return nil
}

// WriteFields applies WriteField for each update in order. Writes are not
// atomic: earlier updates stay applied when a later one fails.
func (s *Store) WriteFields(ctx context.Context, schema Schema, position int, updates ...Update) error {
	var errs []error
	for _, update := range updates {
		if err := s.WriteField(ctx, schema, position, update.Field, update.Value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases the cached connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil
	}
	err := s.handle.conn.Close()
	s.handle = nil
	return err
}

func (s *Store) conn(ctx context.Context) (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Now()
	if h := s.handle; h != nil && !h.forceRefresh && now.Before(h.expiresAt) {
		return h.conn, nil
	}
	if s.handle != nil {
		if err := s.handle.conn.Close(); err != nil {
			s.logger.Debug("closing stale connection failed", logging.Error(err))
		}
		s.handle = nil
	}
	conn, err := s.connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", s.connector.Name(), err)
	}
	s.handle = &handle{conn: conn, expiresAt: now.Add(s.opts.CacheTTL)}
	return conn, nil
}

func (s *Store) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil {
		s.handle.forceRefresh = true
	}
}

func (s *Store) policy(op string, attempts int, base time.Duration) retry.Policy {
	return retry.Policy{
		Attempts:  attempts,
		BaseDelay: base,
		Sleep:     s.opts.Sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logging.WarnWithContext(s.logger, "row store operation failed; retrying", "rowstore_retry",
				logging.String("op", op),
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.Error(err),
				logging.String(logging.FieldImpact, "pass is delayed until the sheet responds"),
			)
			if s.opts.OnRetry != nil {
				s.opts.OnRetry(op)
			}
		},
	}
}
