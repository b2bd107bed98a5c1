package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Sheets selects and configures the row store backend.
type Sheets struct {
	Backend                string  `toml:"backend"` // google or xlsx
	SpreadsheetID          string  `toml:"spreadsheet_id"`
	WorksheetName          string  `toml:"worksheet_name"`
	CredentialsFile        string  `toml:"credentials_file"`
	ServiceAccountJSON     string  `toml:"service_account_json"`
	XLSXPath               string  `toml:"xlsx_path"`
	CacheTTLSeconds        int     `toml:"cache_ttl_seconds"`
	LoadMaxAttempts        int     `toml:"load_max_attempts"`
	LoadBaseDelaySeconds   float64 `toml:"load_base_delay_seconds"`
	UpdateMaxAttempts      int     `toml:"update_max_attempts"`
	UpdateBaseDelaySeconds float64 `toml:"update_base_delay_seconds"`
}

// Generation configures the text and image generation backend.
type Generation struct {
	APIKey                 string   `toml:"api_key"`
	BaseURL                string   `toml:"base_url"`
	TimeoutSeconds         int      `toml:"timeout_seconds"`
	TextModel              string   `toml:"text_model"`
	TextReasoningEffort    string   `toml:"text_reasoning_effort"`
	TextTemperature        *float64 `toml:"text_temperature"`
	SystemPromptFile       string   `toml:"system_prompt_file"`
	SecondModel            string   `toml:"second_model"`
	SecondReasoningEffort  string   `toml:"second_reasoning_effort"`
	SecondTemperature      *float64 `toml:"second_temperature"`
	SecondSystemPromptFile string   `toml:"second_system_prompt_file"`
	TranslationModel       string   `toml:"translation_model"`
	ImageModel             string   `toml:"image_model"`
	ImageSize              string   `toml:"image_size"`
	ImageQuality           string   `toml:"image_quality"`
	MaxInputChars          int      `toml:"max_input_chars"`
	SkipAI                 bool     `toml:"skip_ai"`
	SkipImage              bool     `toml:"skip_image"`
	PlaceholderImageURL    string   `toml:"placeholder_image_url"`
}

// Geocoding configures the OpenCage forward geocoder.
type Geocoding struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	CountryCode    string `toml:"country_code"`
	Language       string `toml:"language"`
	Limit          int    `toml:"limit"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Fetch configures document retrieval for website and regulations links.
type Fetch struct {
	UserAgent        string    `toml:"user_agent"`
	TimeoutSeconds   int       `toml:"timeout_seconds"`
	RetryDelays      []float64 `toml:"retry_delays_seconds"`
	MaxDocumentBytes int64     `toml:"max_document_bytes"`
}

// Catalog configures the WooCommerce/WordPress catalog.
type Catalog struct {
	URL                 string  `toml:"url"`
	ConsumerKey         string  `toml:"consumer_key"`
	ConsumerSecret      string  `toml:"consumer_secret"`
	AdminUser           string  `toml:"admin_user"`
	AdminPass           string  `toml:"admin_pass"`
	EventBaseURL        string  `toml:"event_base_url"`
	TranslationLanguage string  `toml:"translation_language"`
	EventCountry        string  `toml:"event_country"`
	MaxAttempts         int     `toml:"max_attempts"`
	BaseDelaySeconds    float64 `toml:"base_delay_seconds"`
	TimeoutSeconds      int     `toml:"timeout_seconds"`
	RequestsPerSecond   float64 `toml:"requests_per_second"`
}

// Schedule controls how the daemon triggers passes.
type Schedule struct {
	RunOnStartup      bool   `toml:"run_on_startup"`
	IntervalSeconds   int    `toml:"interval_seconds"`
	Hour              int    `toml:"hour"`
	Minute            int    `toml:"minute"`
	Timezone          string `toml:"timezone"`
	QuickRetrySeconds int    `toml:"quick_retry_seconds"`
}

// Journal configures the diagnostic run history.
type Journal struct {
	Driver string `toml:"driver"` // sqlite, postgres or memory
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

// Archive configures storage for downloaded regulation documents.
type Archive struct {
	Driver       string `toml:"driver"` // fs, s3 or none
	Dir          string `toml:"dir"`
	Bucket       string `toml:"bucket"`
	Prefix       string `toml:"prefix"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	UsePathStyle bool   `toml:"use_path_style"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	PassSummary    bool   `toml:"pass_summary"`
	GroupFailures  bool   `toml:"group_failures"`
	BatchFailures  bool   `toml:"batch_failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for racefeed.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and the daemon API bind address
//   - Sheets: the row store backend (Google Sheets or a local workbook)
//   - Generation: two-stage text generation, translation and images
//   - Geocoding: OpenCage lookups for event coordinates
//   - Fetch: website and regulations retrieval
//   - Catalog: WooCommerce REST credentials and retry budget
//   - Schedule: daemon pass timing and quick retry
//   - Journal: diagnostic pass history
//   - Archive: downloaded regulation documents
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Sheets        Sheets        `toml:"sheets"`
	Generation    Generation    `toml:"generation"`
	Geocoding     Geocoding     `toml:"geocoding"`
	Fetch         Fetch         `toml:"fetch"`
	Catalog       Catalog       `toml:"catalog"`
	Schedule      Schedule      `toml:"schedule"`
	Journal       Journal       `toml:"journal"`
	Archive       Archive       `toml:"archive"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/racefeed/config.toml")
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory is read first so its variables act as environment
// fallbacks. The returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads KEY=VALUE pairs without overriding variables that are
// already set in the process environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("racefeed.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories used by the CLI and daemon.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PassLockPath returns the file used to serialize passes across processes.
func (c *Config) PassLockPath() string {
	return filepath.Join(c.Paths.StateDir, "pass.lock")
}

// DaemonLockPath returns the file that guarantees a single daemon instance.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "daemon.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
