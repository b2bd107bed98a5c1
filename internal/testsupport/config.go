package testsupport

import (
	"path/filepath"
	"testing"

	"racefeed/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Journal and archive use in-memory drivers and generation runs in skip mode
// so no test reaches the network by accident.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Sheets.Backend = "xlsx"
	cfgVal.Sheets.XLSXPath = filepath.Join(base, "races.xlsx")
	cfgVal.Sheets.LoadBaseDelaySeconds = 0
	cfgVal.Sheets.UpdateBaseDelaySeconds = 0
	cfgVal.Generation.APIKey = "test"
	cfgVal.Generation.SkipAI = true
	cfgVal.Generation.SkipImage = true
	cfgVal.Catalog.URL = "http://catalog.invalid"
	cfgVal.Catalog.ConsumerKey = "ck_test"
	cfgVal.Catalog.ConsumerSecret = "cs_test"
	cfgVal.Catalog.BaseDelaySeconds = 0
	cfgVal.Schedule.RunOnStartup = false
	cfgVal.Schedule.QuickRetrySeconds = 0
	cfgVal.Journal.Driver = "memory"
	cfgVal.Journal.Path = filepath.Join(base, "state", "journal.db")
	cfgVal.Archive.Driver = "memory"
	cfgVal.Archive.Dir = filepath.Join(base, "state", "documents")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCatalogURL points the catalog client at url (usually an httptest server).
func WithCatalogURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.URL = url
	}
}

// WithJournalDriver overrides the journal driver.
func WithJournalDriver(driver string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Driver = driver
	}
}

// WithSystemPrompts writes both generation system prompts to files and
// enables generation.
func WithSystemPrompts(first, second string) ConfigOption {
	return func(b *configBuilder) {
		firstPath := filepath.Join(b.baseDir, "prompts", "first.txt")
		secondPath := filepath.Join(b.baseDir, "prompts", "second.txt")
		WriteFile(b.t, firstPath, first)
		WriteFile(b.t, secondPath, second)
		b.cfg.Generation.SystemPromptFile = firstPath
		b.cfg.Generation.SecondSystemPromptFile = secondPath
		b.cfg.Generation.SkipAI = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
