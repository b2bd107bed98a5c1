package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"racefeed/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSheets(); err != nil {
		return err
	}
	if err := c.normalizeGeneration(); err != nil {
		return err
	}
	c.normalizeGeocoding()
	if err := c.normalizeFetch(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	if err := c.normalizeSchedule(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	envString(&c.Paths.APIToken, "RACEFEED_API_TOKEN")
	return nil
}

func (c *Config) normalizeSheets() error {
	s := &c.Sheets
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = defaultSheetsBackend
	}
	envString(&s.SpreadsheetID, "GOOGLE_SPREADSHEET_ID")
	envOverrideString(&s.WorksheetName, "GOOGLE_WORKSHEET_NAME")
	envOverrideString(&s.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	envString(&s.ServiceAccountJSON, "GOOGLE_SERVICE_ACCOUNT_JSON")
	if err := envOverrideInt(&s.CacheTTLSeconds, "GOOGLE_SHEETS_CACHE_TTL_SEC"); err != nil {
		return err
	}
	if err := envOverrideInt(&s.UpdateMaxAttempts, "GOOGLE_SHEETS_UPDATE_MAX_ATTEMPTS"); err != nil {
		return err
	}
	if err := envOverrideFloat(&s.UpdateBaseDelaySeconds, "GOOGLE_SHEETS_UPDATE_BASE_DELAY_SEC"); err != nil {
		return err
	}
	var err error
	if s.CredentialsFile != "" {
		if s.CredentialsFile, err = expandPath(s.CredentialsFile); err != nil {
			return fmt.Errorf("sheets.credentials_file: %w", err)
		}
	}
	if s.XLSXPath, err = expandPath(s.XLSXPath); err != nil {
		return fmt.Errorf("sheets.xlsx_path: %w", err)
	}
	if strings.TrimSpace(s.WorksheetName) == "" {
		s.WorksheetName = defaultWorksheetName
	}
	return nil
}

func (c *Config) normalizeGeneration() error {
	g := &c.Generation
	envString(&g.APIKey, "OPENAI_API_KEY")
	envOverrideString(&g.TextModel, "OPENAI_TEXT_MODEL")
	envOverrideString(&g.SecondModel, "OPENAI_SECOND_MODEL")
	envOverrideString(&g.TextReasoningEffort, "OPENAI_TEXT_REASONING_EFFORT")
	envOverrideString(&g.SecondReasoningEffort, "OPENAI_SECOND_REASONING_EFFORT")
	envOverrideString(&g.SystemPromptFile, "OPENAI_SYSTEM_PROMPT_FILE")
	envOverrideString(&g.SecondSystemPromptFile, "OPENAI_SECOND_SYSTEM_PROMPT_FILE")
	if err := envOverrideFloatPtr(&g.TextTemperature, "OPENAI_TEXT_TEMPERATURE"); err != nil {
		return err
	}
	if err := envOverrideFloatPtr(&g.SecondTemperature, "OPENAI_SECOND_TEMPERATURE"); err != nil {
		return err
	}
	if err := envOverrideBool(&g.SkipAI, "SKIP_AI"); err != nil {
		return err
	}
	if err := envOverrideBool(&g.SkipImage, "SKIP_IMAGE"); err != nil {
		return err
	}
	g.BaseURL = strings.TrimRight(strings.TrimSpace(g.BaseURL), "/")
	if g.BaseURL == "" {
		g.BaseURL = defaultGenerationBaseURL
	}
	g.TextReasoningEffort = strings.ToLower(strings.TrimSpace(g.TextReasoningEffort))
	g.SecondReasoningEffort = strings.ToLower(strings.TrimSpace(g.SecondReasoningEffort))
	if strings.TrimSpace(g.TranslationModel) == "" {
		g.TranslationModel = defaultTranslationModel
	}
	if g.MaxInputChars <= 0 {
		g.MaxInputChars = defaultMaxInputChars
	}
	if strings.TrimSpace(g.PlaceholderImageURL) == "" {
		g.PlaceholderImageURL = defaultPlaceholderImageURL
	}
	var err error
	if g.SystemPromptFile, err = expandPath(strings.TrimSpace(g.SystemPromptFile)); err != nil {
		return fmt.Errorf("generation.system_prompt_file: %w", err)
	}
	if g.SecondSystemPromptFile, err = expandPath(strings.TrimSpace(g.SecondSystemPromptFile)); err != nil {
		return fmt.Errorf("generation.second_system_prompt_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeGeocoding() {
	envString(&c.Geocoding.APIKey, "OPENCAGE_API_KEY")
	if strings.TrimSpace(c.Geocoding.BaseURL) == "" {
		c.Geocoding.BaseURL = defaultGeocodingBaseURL
	}
	c.Geocoding.CountryCode = strings.ToLower(strings.TrimSpace(c.Geocoding.CountryCode))
	if c.Geocoding.Limit <= 0 {
		c.Geocoding.Limit = defaultGeocodingLimit
	}
}

func (c *Config) normalizeFetch() error {
	envOverrideString(&c.Fetch.UserAgent, "HTTP_FETCH_USER_AGENT")
	if value, ok := os.LookupEnv("HTTP_FETCH_RETRY_DELAYS_SEC"); ok {
		delays, err := parseFloatList(value)
		if err != nil {
			return fmt.Errorf("HTTP_FETCH_RETRY_DELAYS_SEC: %w", err)
		}
		c.Fetch.RetryDelays = delays
	}
	if strings.TrimSpace(c.Fetch.UserAgent) == "" {
		c.Fetch.UserAgent = defaultFetchUserAgent
	}
	if c.Fetch.MaxDocumentBytes <= 0 {
		c.Fetch.MaxDocumentBytes = defaultMaxDocumentBytes
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	cat := &c.Catalog
	envString(&cat.URL, "WP_URL")
	envString(&cat.AdminUser, "WP_ADMIN_USER")
	envString(&cat.AdminPass, "WP_ADMIN_PASS")
	envString(&cat.ConsumerKey, "WP_CONSUMER_KEY")
	envString(&cat.ConsumerSecret, "WP_CONSUMER_SECRET")
	if err := envOverrideInt(&cat.MaxAttempts, "WCAPI_MAX_ATTEMPTS"); err != nil {
		return err
	}
	if err := envOverrideFloat(&cat.BaseDelaySeconds, "WCAPI_BASE_DELAY_SEC"); err != nil {
		return err
	}
	if err := envOverrideInt(&cat.TimeoutSeconds, "WCAPI_TIMEOUT_SEC"); err != nil {
		return err
	}
	cat.URL = strings.TrimRight(strings.TrimSpace(cat.URL), "/")
	cat.EventBaseURL = strings.TrimRight(strings.TrimSpace(cat.EventBaseURL), "/")
	if code := language.Normalize(cat.TranslationLanguage); code != "" {
		cat.TranslationLanguage = code
	}
	if strings.TrimSpace(cat.EventCountry) == "" {
		cat.EventCountry = defaultEventCountry
	}
	return nil
}

func (c *Config) normalizeSchedule() error {
	s := &c.Schedule
	if err := envOverrideBool(&s.RunOnStartup, "RUN_ON_STARTUP"); err != nil {
		return err
	}
	if err := envOverrideInt(&s.IntervalSeconds, "SLEEP_SECONDS"); err != nil {
		return err
	}
	if err := envOverrideInt(&s.Hour, "SCHEDULED_HOUR"); err != nil {
		return err
	}
	if err := envOverrideInt(&s.Minute, "SCHEDULED_MINUTE"); err != nil {
		return err
	}
	envOverrideString(&s.Timezone, "TIMEZONE")
	s.Timezone = strings.TrimSpace(s.Timezone)
	if s.Timezone == "" {
		s.Timezone = "UTC"
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Journal.Driver = strings.ToLower(strings.TrimSpace(c.Journal.Driver))
	if c.Journal.Driver == "" {
		c.Journal.Driver = defaultJournalDriver
	}
	envString(&c.Journal.DSN, "RACEFEED_JOURNAL_DSN")
	var err error
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = filepath.Join(c.Paths.StateDir, "journal.db")
	}
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}

	c.Archive.Driver = strings.ToLower(strings.TrimSpace(c.Archive.Driver))
	if c.Archive.Driver == "" {
		c.Archive.Driver = defaultArchiveDriver
	}
	if strings.TrimSpace(c.Archive.Dir) == "" {
		c.Archive.Dir = filepath.Join(c.Paths.StateDir, "documents")
	}
	if c.Archive.Dir, err = expandPath(c.Archive.Dir); err != nil {
		return fmt.Errorf("archive.dir: %w", err)
	}
	c.Archive.Prefix = strings.Trim(strings.TrimSpace(c.Archive.Prefix), "/")
	return nil
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// envString fills an empty field from the first set environment variable.
func envString(field *string, keys ...string) {
	*field = strings.TrimSpace(*field)
	if *field != "" {
		return
	}
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*field = strings.TrimSpace(value)
			return
		}
	}
}

func envOverrideString(field *string, key string) {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		*field = strings.TrimSpace(value)
	}
}

func envOverrideInt(field *int, key string) error {
	value, ok := lookupNonEmpty(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: expected integer, got %q", key, value)
	}
	*field = parsed
	return nil
}

func envOverrideFloat(field *float64, key string) error {
	value, ok := lookupNonEmpty(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: expected number, got %q", key, value)
	}
	*field = parsed
	return nil
}

func envOverrideFloatPtr(field **float64, key string) error {
	value, ok := lookupNonEmpty(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: expected number, got %q", key, value)
	}
	*field = &parsed
	return nil
}

func envOverrideBool(field *bool, key string) error {
	value, ok := lookupNonEmpty(key)
	if !ok {
		return nil
	}
	parsed, err := parseBool(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*field = parsed
	return nil
}

func lookupNonEmpty(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on", "y":
		return true, nil
	case "0", "false", "no", "off", "n":
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %q", value)
	}
}

func parseFloatList(value string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("expected comma-separated numbers, got %q", value)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("negative delay %q", part)
		}
		out = append(out, parsed)
	}
	return out, nil
}
