package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"racefeed/internal/config"
	"racefeed/internal/logging"
	"racefeed/internal/services"
)

func TestNewFromConfigWritesDatedFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello file", logging.String(logging.FieldEventType, "test"))

	path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName(time.Now()))
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", content, err)
	}
	if record["msg"] != "hello file" {
		t.Fatalf("unexpected message: %v", record["msg"])
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerPrefixesComponentPassAndRow(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRow(context.Background(), 12)
	ctx = services.WithPassID(ctx, "1a2b3c4d-5e6f")
	ctx = services.WithStage(ctx, "publish")
	componentLogger := logging.NewComponentLogger(logger, "publish")
	logging.WithContext(ctx, componentLogger).Info("product created", logging.Int64("product_id", 99))

	line := buf.String()
	for _, fragment := range []string{"INFO  publish[pass 1a2b3c4d row 12]: product created", "stage=publish", "product_id=99"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, "pass_id=") {
		t.Fatalf("pass id should only appear in the prefix: %q", line)
	}
}

func TestConsoleLoggerFlagsAlerts(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Error("status write failed", logging.Alert("duplicate_product_risk"), logging.String("detail", "a b"))

	line := buf.String()
	if !strings.Contains(line, "ERROR !duplicate_product_risk! status write failed") {
		t.Fatalf("alert not flagged: %q", line)
	}
	if !strings.Contains(line, `detail="a b"`) {
		t.Fatalf("expected quoted value: %q", line)
	}
}

func TestJSONLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logging.WarnWithContext(logger, "visible", "geocode_missing")

	text := buf.String()
	if strings.Contains(text, "hidden") {
		t.Fatalf("expected info record to be filtered: %q", text)
	}
	for _, fragment := range []string{`"event_type":"geocode_missing"`, `"impact"`, `"error_hint"`, `"level":"warn"`} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %s in %q", fragment, text)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestPruneLogsUsesFileNameDate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 7, 31, 9, 0, 0, 0, time.UTC)
	files := map[string]bool{
		"racefeed-20250601.log": false,
		"racefeed-20250701.log": true,
		"racefeed-20250731.log": true,
		"other-20200101.log":    true,
		"racefeed-garbage.log":  true,
	}
	for name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if removed := logging.PruneLogs(logging.NewNop(), dir, 30, now); removed != 1 {
		t.Fatalf("expected 1 file removed, got %d", removed)
	}
	for name, kept := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		if kept && err != nil {
			t.Fatalf("expected %s kept: %v", name, err)
		}
		if !kept && !os.IsNotExist(err) {
			t.Fatalf("expected %s removed, stat err=%v", name, err)
		}
	}
	if removed := logging.PruneLogs(logging.NewNop(), dir, 0, now); removed != 0 {
		t.Fatalf("retention 0 must disable pruning, removed %d", removed)
	}
}
