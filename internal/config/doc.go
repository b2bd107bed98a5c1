// Package config loads, normalizes, and validates racefeed configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours an optional .env file plus the
// environment variables the publishing pipeline has always used (OPENAI_API_KEY,
// GOOGLE_SPREADSHEET_ID, WP_URL, SKIP_AI, WCAPI_MAX_ATTEMPTS, ...). The Config
// value is passed explicitly to every component; nothing reads the environment
// after Load returns.
package config
