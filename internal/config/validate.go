package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"racefeed/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSheets(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSheets() error {
	switch c.Sheets.Backend {
	case "google":
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("sheets.spreadsheet_id is required. Set GOOGLE_SPREADSHEET_ID or edit %s (create with 'racefeed config init')", defaultConfigHint())
		}
		if c.Sheets.CredentialsFile == "" && c.Sheets.ServiceAccountJSON == "" {
			return errors.New("sheets.credentials_file or sheets.service_account_json must be set for the google backend")
		}
	case "xlsx":
		if strings.TrimSpace(c.Sheets.XLSXPath) == "" {
			return errors.New("sheets.xlsx_path must be set for the xlsx backend")
		}
	default:
		return fmt.Errorf("sheets.backend: unsupported value %q (want google or xlsx)", c.Sheets.Backend)
	}
	if c.Sheets.CacheTTLSeconds < 0 {
		return errors.New("sheets.cache_ttl_seconds must be >= 0")
	}
	if c.Sheets.LoadMaxAttempts <= 0 || c.Sheets.UpdateMaxAttempts <= 0 {
		return errors.New("sheets.load_max_attempts and sheets.update_max_attempts must be positive")
	}
	if c.Sheets.LoadBaseDelaySeconds < 0 || c.Sheets.UpdateBaseDelaySeconds < 0 {
		return errors.New("sheets delay settings must be >= 0")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	g := c.Generation
	if !g.SkipAI {
		if g.APIKey == "" {
			return fmt.Errorf("generation.api_key is required unless generation.skip_ai is set. Set OPENAI_API_KEY or edit %s", defaultConfigHint())
		}
		if strings.TrimSpace(g.TextModel) == "" || strings.TrimSpace(g.SecondModel) == "" {
			return errors.New("generation.text_model and generation.second_model must be set")
		}
	}
	if _, err := url.ParseRequestURI(g.BaseURL); err != nil {
		return fmt.Errorf("generation.base_url: %w", err)
	}
	for key, effort := range map[string]string{
		"generation.text_reasoning_effort":   g.TextReasoningEffort,
		"generation.second_reasoning_effort": g.SecondReasoningEffort,
	} {
		switch effort {
		case "", "minimal", "low", "medium", "high":
		default:
			return fmt.Errorf("%s: unsupported value %q", key, effort)
		}
	}
	return nil
}

func (c *Config) validateCatalog() error {
	cat := c.Catalog
	if cat.URL == "" {
		return fmt.Errorf("catalog.url is required. Set WP_URL or edit %s", defaultConfigHint())
	}
	if _, err := url.ParseRequestURI(cat.URL); err != nil {
		return fmt.Errorf("catalog.url: %w", err)
	}
	if cat.ConsumerKey == "" || cat.ConsumerSecret == "" {
		return errors.New("catalog.consumer_key and catalog.consumer_secret are required (WP_CONSUMER_KEY / WP_CONSUMER_SECRET)")
	}
	if cat.MaxAttempts <= 0 {
		return errors.New("catalog.max_attempts must be positive")
	}
	if cat.BaseDelaySeconds < 0 {
		return errors.New("catalog.base_delay_seconds must be >= 0")
	}
	if cat.RequestsPerSecond < 0 {
		return errors.New("catalog.requests_per_second must be >= 0")
	}
	if language.Normalize(cat.TranslationLanguage) == "" {
		return fmt.Errorf("catalog.translation_language %q is not a recognised language", cat.TranslationLanguage)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	s := c.Schedule
	if s.Hour < 0 || s.Hour > 23 {
		return errors.New("schedule.hour must be between 0 and 23")
	}
	if s.Minute < 0 || s.Minute > 59 {
		return errors.New("schedule.minute must be between 0 and 59")
	}
	if s.IntervalSeconds < 0 || s.QuickRetrySeconds < 0 {
		return errors.New("schedule intervals must be >= 0")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Journal.Driver {
	case "sqlite", "memory":
	case "postgres":
		if strings.TrimSpace(c.Journal.DSN) == "" {
			return errors.New("journal.dsn must be set when journal.driver is postgres")
		}
	default:
		return fmt.Errorf("journal.driver: unsupported value %q", c.Journal.Driver)
	}
	switch c.Archive.Driver {
	case "fs", "none":
	case "s3":
		if strings.TrimSpace(c.Archive.Bucket) == "" {
			return errors.New("archive.bucket must be set when archive.driver is s3")
		}
	default:
		return fmt.Errorf("archive.driver: unsupported value %q", c.Archive.Driver)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error", "critical":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func defaultConfigHint() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return "~/.config/racefeed/config.toml"
	}
	return path
}
