package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneLogs removes dated racefeed log files in dir whose file-name date is
// more than retentionDays before now, and reports how many were removed. A
// retentionDays value of 0 disables pruning. Files that do not follow the
// LogFileName pattern are left alone.
func PruneLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	y, m, d := now.UTC().AddDate(0, 0, -retentionDays).Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, logFilePrefix), ".log")
		day, err := time.Parse("20060102", stamp)
		if err != nil || !day.Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and paths.log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("old logs pruned",
			Int("removed", removed),
			Int("retention_days", retentionDays),
			String(FieldEventType, "logs_pruned"),
		)
	}
	return removed
}
