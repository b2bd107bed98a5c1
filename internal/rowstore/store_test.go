package rowstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"racefeed/internal/retry"
	"racefeed/internal/services"
)

var testHeader = []string{FieldID, FieldStatus, FieldRaceName, FieldLink}

func newTestStore(t *testing.T, conn *MemoryConnector, mutate func(*Options)) (*Store, *time.Time) {
	t.Helper()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	opts := Options{
		CacheTTL:       5 * time.Minute,
		LoadAttempts:   3,
		UpdateAttempts: 3,
		Sleep:          retry.NoSleep,
		Now:            func() time.Time { return now },
	}
	if mutate != nil {
		mutate(&opts)
	}
	return New(conn, opts), &now
}

func TestLoadAllBuildsRowsWithPositions(t *testing.T) {
	conn := NewMemoryConnector(testHeader,
		[]string{"1", "Revised", " Lisbon 10k ", ""},
		[]string{"2"},
	)
	store, _ := newTestStore(t, conn, nil)

	rows, schema, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Position != 2 || rows[1].Position != 3 {
		t.Fatalf("unexpected positions %d %d", rows[0].Position, rows[1].Position)
	}
	if got := rows[0].Get(FieldRaceName); got != "Lisbon 10k" {
		t.Fatalf("expected trimmed race name, got %q", got)
	}
	if rows[0].Status() != StatusRevised {
		t.Fatalf("expected revised status, got %q", rows[0].Status())
	}
	if got := rows[1].Get(FieldRaceName); got != "" {
		t.Fatalf("short row should pad missing cells, got %q", got)
	}
	if col, ok := schema.Column(FieldLink); !ok || col != 4 {
		t.Fatalf("expected LINK RACEFINDER at column 4, got %d %v", col, ok)
	}
}

func TestStoreReusesHandleUntilExpiry(t *testing.T) {
	conn := NewMemoryConnector(testHeader, []string{"1", "", "A", ""})
	store, now := newTestStore(t, conn, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, _, err := store.LoadAll(ctx); err != nil {
			t.Fatalf("LoadAll: %v", err)
		}
	}
	if conn.Connects() != 1 {
		t.Fatalf("expected cached handle, got %d connects", conn.Connects())
	}

	*now = now.Add(6 * time.Minute)
	if _, _, err := store.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll after expiry: %v", err)
	}
	if conn.Connects() != 2 {
		t.Fatalf("expected reconnect after expiry, got %d connects", conn.Connects())
	}
}

func TestStoreForcesRefreshAfterFailure(t *testing.T) {
	conn := NewMemoryConnector(testHeader, []string{"1", "", "A", ""})
	var retried []string
	store, _ := newTestStore(t, conn, func(o *Options) {
		o.OnRetry = func(op string) { retried = append(retried, op) }
	})
	ctx := context.Background()

	if _, _, err := store.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	conn.FailNext(0, 1, 0)
	if _, _, err := store.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll should recover on retry: %v", err)
	}
	if conn.Connects() != 2 {
		t.Fatalf("expected failure to force a new connection, got %d", conn.Connects())
	}
	if len(retried) != 1 || retried[0] != "load" {
		t.Fatalf("expected one load retry, got %v", retried)
	}
}

func TestLoadAllExhaustedIsConnectivityError(t *testing.T) {
	conn := NewMemoryConnector(testHeader)
	conn.FailNext(5, 0, 0)
	store, _ := newTestStore(t, conn, nil)

	_, _, err := store.LoadAll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConnectivity) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
	if !errors.Is(err, ErrInjected) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
}

func TestWriteFieldUnknownFieldSkipsBackend(t *testing.T) {
	conn := NewMemoryConnector(testHeader, []string{"1", "", "A", ""})
	store, _ := newTestStore(t, conn, nil)
	ctx := context.Background()
	_, schema, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	err = store.WriteField(ctx, schema, 2, "NOT A COLUMN", "x")
	if !errors.Is(err, ErrUnknownField) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected unknown field validation error, got %v", err)
	}
	if len(conn.Updates()) != 0 {
		t.Fatalf("expected no backend writes, got %v", conn.Updates())
	}
}

func TestWriteFieldRetriesAndWrites(t *testing.T) {
	conn := NewMemoryConnector(testHeader, []string{"1", "revised", "A", ""})
	store, _ := newTestStore(t, conn, nil)
	ctx := context.Background()
	_, schema, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	conn.FailNext(0, 0, 2)
	if err := store.WriteField(ctx, schema, 2, FieldStatus, PublishedStatus); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	if got := conn.Cell(2, FieldStatus); got != PublishedStatus {
		t.Fatalf("expected status written, got %q", got)
	}
}

func TestWriteFieldsJoinsFailures(t *testing.T) {
	conn := NewMemoryConnector(testHeader, []string{"1", "revised", "A", ""})
	store, _ := newTestStore(t, conn, func(o *Options) { o.UpdateAttempts = 1 })
	ctx := context.Background()
	_, schema, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	conn.FailNext(0, 0, 1)
	err = store.WriteFields(ctx, schema, 2,
		Update{Field: FieldStatus, Value: PublishedStatus},
		Update{Field: FieldLink, Value: "https://example.com/p/1"},
		Update{Field: "MISSING", Value: "x"},
	)
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !errors.Is(err, services.ErrConnectivity) || !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected both failures joined, got %v", err)
	}
	if got := conn.Cell(2, FieldLink); got != "https://example.com/p/1" {
		t.Fatalf("later write should still apply, got %q", got)
	}
	if got := conn.Cell(2, FieldStatus); got != "revised" {
		t.Fatalf("failed write should leave status untouched, got %q", got)
	}
}

func TestNewSchemaFirstDuplicateWins(t *testing.T) {
	schema := NewSchema([]string{"A", " ", "B", "A"})
	if col, _ := schema.Column("A"); col != 1 {
		t.Fatalf("expected first A at column 1, got %d", col)
	}
	if schema.Has("") {
		t.Fatal("blank header should not be addressable")
	}
	if schema.Len() != 4 {
		t.Fatalf("expected 4 columns, got %d", schema.Len())
	}
}
