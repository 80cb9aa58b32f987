package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Extractor  ExtractorConfig  `toml:"extractor"`
	Writer     WriterConfig     `toml:"writer"`
	Quota      QuotaConfig      `toml:"quota"`
	Journal    JournalConfig    `toml:"journal"`
	Identities []IdentityConfig `toml:"identity"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ExtractorConfig contains settings for the zero-cost metadata extractor proxy.
type ExtractorConfig struct {
	BaseURL         string  `toml:"base_url"`
	CacheTTLMinutes int     `toml:"cache_ttl_minutes"`
	RateLimit       float64 `toml:"rate_limit"` // requests per second
}

// WriterConfig contains settings for the remote write API proxy.
type WriterConfig struct {
	BaseURL string `toml:"base_url"`
}

// QuotaConfig contains the daily unit budget shared by all identities
// unless an identity overrides it.
type QuotaConfig struct {
	DailyBudget  int `toml:"daily_budget"`
	SafetyMargin int `toml:"safety_margin"`
}

// JournalConfig contains batch journal housekeeping settings.
type JournalConfig struct {
	RetentionDays int `toml:"retention_days"`
}

// IdentityConfig describes one set of remote API credentials.
//
// Identities sharing a group may substitute for one another when one
// exhausts its daily budget; failover never crosses group boundaries.
type IdentityConfig struct {
	Name        string `toml:"name"`
	Group       string `toml:"group"`
	Environment string `toml:"environment"`
	Priority    int    `toml:"priority"`
	TokenFile   string `toml:"token_file"`
	DailyBudget int    `toml:"daily_budget"` // optional per-identity override
}

// LoadConfig reads, parses and validates a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks identity uniqueness and fills in defaults.
func (c *Config) Validate() error {
	if c.Quota.DailyBudget <= 0 {
		c.Quota.DailyBudget = 10000
	}
	if c.Quota.SafetyMargin < 0 {
		return fmt.Errorf("%w: quota safety_margin must not be negative", ErrInvalidConfig)
	}
	if c.Journal.RetentionDays <= 0 {
		c.Journal.RetentionDays = 30
	}
	if c.Extractor.RateLimit <= 0 {
		c.Extractor.RateLimit = 5.0
	}
	if c.Extractor.CacheTTLMinutes <= 0 {
		c.Extractor.CacheTTLMinutes = 60
	}

	seen := make(map[string]struct{}, len(c.Identities))
	for i := range c.Identities {
		id := &c.Identities[i]
		if id.Name == "" {
			return fmt.Errorf("%w: identity %d has no name", ErrInvalidConfig, i)
		}
		if _, dup := seen[id.Name]; dup {
			return fmt.Errorf("%w: duplicate identity name %q", ErrInvalidConfig, id.Name)
		}
		seen[id.Name] = struct{}{}

		if id.Group == "" {
			return fmt.Errorf("%w: identity %q has no group", ErrInvalidConfig, id.Name)
		}
		if id.DailyBudget <= 0 {
			id.DailyBudget = c.Quota.DailyBudget
		}
	}

	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
