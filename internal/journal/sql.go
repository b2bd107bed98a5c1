package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLStore records passes in SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens (creating if needed) the journal database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal: sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: apply pragma %q: %w", pragma, err)
		}
	}
	return newSQLStore(ctx, db, dialectSQLite)
}

// OpenPostgres connects to the journal database at dsn.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("journal: postgres dsn is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: ping postgres: %w", err)
	}
	return newSQLStore(ctx, db, dialectPostgres)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d}
	if err := s.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites "?" placeholders as $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitStatements splits a migration file on semicolons. Migrations never
// contain semicolons inside literals.
func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func (s *SQLStore) applyMigrations(ctx context.Context) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("journal: read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("journal: ensure schema_migrations: %w", err)
	}
	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		var count int
		if err := tx.QueryRowContext(ctx, s.rebind("SELECT COUNT(1) FROM schema_migrations WHERE version = ?"), version).Scan(&count); err != nil {
			return fmt.Errorf("journal: scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("journal: read migration %s: %w", name, err)
		}
		for _, stmt := range splitStatements(string(data)) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("journal: apply migration %s: %w", version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO schema_migrations (version) VALUES (?)"), version); err != nil {
			return fmt.Errorf("journal: record migration %s: %w", version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal: commit migrations: %w", err)
	}
	return nil
}

// RecordPass inserts pass and its groups in one transaction.
func (s *SQLStore) RecordPass(ctx context.Context, pass Pass) error {
	if strings.TrimSpace(pass.ID) == "" {
		return errors.New("journal: pass id is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO passes (
            id, trigger_source, started_at, finished_at, result, rows_loaded,
            groups_total, published, degraded, failed, validation_failed, error_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		pass.ID,
		pass.Trigger,
		pass.StartedAt.UTC().Format(timeLayout),
		pass.FinishedAt.UTC().Format(timeLayout),
		pass.Result,
		pass.RowsLoaded,
		len(pass.Groups),
		pass.Published,
		pass.Degraded,
		pass.Failed,
		pass.ValidationFailed,
		nullableString(pass.Error),
	)
	if err != nil {
		return fmt.Errorf("journal: insert pass: %w", err)
	}
	insertGroup := s.rebind(`INSERT INTO pass_groups (
            pass_id, seq, head_row, row_id, race_name, outcome, link, message, warnings
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, g := range pass.Groups {
		if _, err := tx.ExecContext(ctx, insertGroup,
			pass.ID, i, g.HeadRow,
			nullableString(g.RowID), nullableString(g.RaceName), g.Outcome,
			nullableString(g.Link), nullableString(g.Message), g.Warnings,
		); err != nil {
			return fmt.Errorf("journal: insert group %d: %w", g.HeadRow, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal: commit: %w", err)
	}
	return nil
}

// RecentPasses returns up to limit passes, newest first.
func (s *SQLStore) RecentPasses(ctx context.Context, limit int) ([]Pass, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
            id, trigger_source, started_at, finished_at, result, rows_loaded,
            published, degraded, failed, validation_failed, error_message
        FROM passes ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query passes: %w", err)
	}
	var passes []Pass
	for rows.Next() {
		var (
			p                 Pass
			started, finished string
			errMsg            sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Trigger, &started, &finished, &p.Result, &p.RowsLoaded,
			&p.Published, &p.Degraded, &p.Failed, &p.ValidationFailed, &errMsg); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("journal: scan pass: %w", err)
		}
		p.StartedAt = parseTime(started)
		p.FinishedAt = parseTime(finished)
		p.Error = errMsg.String
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("journal: iterate passes: %w", err)
	}
	_ = rows.Close()

	for i := range passes {
		groups, err := s.groups(ctx, passes[i].ID)
		if err != nil {
			return nil, err
		}
		passes[i].Groups = groups
	}
	return passes, nil
}

func (s *SQLStore) groups(ctx context.Context, passID string) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
            head_row, row_id, race_name, outcome, link, message, warnings
        FROM pass_groups WHERE pass_id = ? ORDER BY seq`), passID)
	if err != nil {
		return nil, fmt.Errorf("journal: query groups: %w", err)
	}
	defer rows.Close()
	var out []Group
	for rows.Next() {
		var (
			g                          Group
			rowID, name, link, message sql.NullString
		)
		if err := rows.Scan(&g.HeadRow, &rowID, &name, &g.Outcome, &link, &message, &g.Warnings); err != nil {
			return nil, fmt.Errorf("journal: scan group: %w", err)
		}
		g.RowID = rowID.String
		g.RaceName = name.String
		g.Link = link.String
		g.Message = message.String
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate groups: %w", err)
	}
	return out, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
