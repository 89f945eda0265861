package config

import (
	"time"
)

// Config is the root configuration of the export job
type Config struct {
	Fetch   FetchConfig   `toml:"fetch" yaml:"fetch"`
	Output  OutputConfig  `toml:"output" yaml:"output"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Ledger  LedgerConfig  `toml:"ledger" yaml:"ledger"`
}

// FetchConfig controls the openFDA query
type FetchConfig struct {
	BaseURL               string `toml:"base_url" yaml:"base_url"`
	AdvisoryCommittee     string `toml:"advisory_committee" yaml:"advisory_committee"`
	DaysBack              int    `toml:"days_back" yaml:"days_back"`
	MaxRecords            int    `toml:"max_records" yaml:"max_records"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	UserAgent             string `toml:"user_agent" yaml:"user_agent"`
}

// OutputConfig controls where the CSV lands
type OutputConfig struct {
	CSVPath string `toml:"csv_path" yaml:"csv_path"`
}

// LoggingConfig mirrors logger.Config
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // console, json
}

// LedgerConfig controls the optional SQLite run history
type LedgerConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

// Defaults
const (
	DefaultBaseURL           = "https://api.fda.gov/device/510k.json"
	DefaultAdvisoryCommittee = "radiology"
	DefaultDaysBack          = 1
	DefaultMaxRecords        = 1000
	DefaultTimeoutSeconds    = 30
	DefaultUserAgent         = "fda-radiology-bot/1.0"
	DefaultCSVPath           = "radiology_510k.csv"
	DefaultLedgerPath        = "data/ledger.db"
)

// Default returns the configuration used when no file is supplied. It queries
// yesterday's radiology clearances (up to 1000) and writes radiology_510k.csv
// in the working directory.
func Default() *Config {
	return &Config{
		Fetch: FetchConfig{
			BaseURL:               DefaultBaseURL,
			AdvisoryCommittee:     DefaultAdvisoryCommittee,
			DaysBack:              DefaultDaysBack,
			MaxRecords:            DefaultMaxRecords,
			RequestTimeoutSeconds: DefaultTimeoutSeconds,
			UserAgent:             DefaultUserAgent,
		},
		Output: OutputConfig{
			CSVPath: DefaultCSVPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Ledger: LedgerConfig{
			Enabled: false,
			Path:    DefaultLedgerPath,
		},
	}
}

// RequestTimeout returns the HTTP timeout as a duration
func (f FetchConfig) RequestTimeout() time.Duration {
	return time.Duration(f.RequestTimeoutSeconds) * time.Second
}
