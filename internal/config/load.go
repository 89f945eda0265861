package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding an optional config file path
const EnvConfigPath = "FDA510K_CONFIG"

// Load reads the config file at path over the defaults, then applies
// FDA510K_* environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".toml":
			if _, err := toml.Decode(string(data), c); err != nil {
				return nil, fmt.Errorf("failed to parse TOML config: %w", err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported config file extension: %q", ext)
		}
	}

	if err := applyEnvOverrides(c); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFromEnv loads the file named by FDA510K_CONFIG, or defaults when unset
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}

func applyEnvOverrides(c *Config) error {
	if v := os.Getenv("FDA510K_BASE_URL"); v != "" {
		c.Fetch.BaseURL = v
	}
	if v := os.Getenv("FDA510K_ADVISORY_COMMITTEE"); v != "" {
		c.Fetch.AdvisoryCommittee = v
	}
	if v := os.Getenv("FDA510K_OUTPUT"); v != "" {
		c.Output.CSVPath = v
	}
	if v := os.Getenv("FDA510K_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FDA510K_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("FDA510K_LEDGER_PATH"); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv("FDA510K_LEDGER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid FDA510K_LEDGER_ENABLED: %w", err)
		}
		c.Ledger.Enabled = enabled
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"FDA510K_DAYS_BACK", &c.Fetch.DaysBack},
		{"FDA510K_MAX_RECORDS", &c.Fetch.MaxRecords},
		{"FDA510K_TIMEOUT_SECONDS", &c.Fetch.RequestTimeoutSeconds},
	}
	for _, o := range ints {
		v := os.Getenv(o.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", o.key, err)
		}
		*o.dst = n
	}
	return nil
}

// Validate checks the values the job cannot run without
func (c *Config) Validate() error {
	switch {
	case c.Fetch.BaseURL == "":
		return fmt.Errorf("fetch.base_url must not be empty")
	case c.Fetch.AdvisoryCommittee == "":
		return fmt.Errorf("fetch.advisory_committee must not be empty")
	case c.Fetch.DaysBack < 1:
		return fmt.Errorf("fetch.days_back must be positive, got %d", c.Fetch.DaysBack)
	case c.Fetch.MaxRecords < 1:
		return fmt.Errorf("fetch.max_records must be positive, got %d", c.Fetch.MaxRecords)
	case c.Fetch.RequestTimeoutSeconds < 1:
		return fmt.Errorf("fetch.request_timeout_seconds must be positive, got %d", c.Fetch.RequestTimeoutSeconds)
	case c.Output.CSVPath == "":
		return fmt.Errorf("output.csv_path must not be empty")
	case c.Ledger.Enabled && c.Ledger.Path == "":
		return fmt.Errorf("ledger.path must be set when the ledger is enabled")
	}
	return nil
}
