// Package config provides configuration loading and structs for the Miftah server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Data       DataConfig       `yaml:"data"`
	Storage    StorageConfig    `yaml:"storage"`
	Pagination PaginationConfig `yaml:"pagination"`
	Search     SearchConfig     `yaml:"search"`
	Retry      RetryConfig      `yaml:"retry"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if err := c.Pagination.Validate(); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	return nil
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns the listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig locates the corpus files. When Directory is empty the bundled
// corpus is used and file names are resolved inside it.
type DataConfig struct {
	Directory      string `yaml:"directory"`
	VersesCSV      string `yaml:"verses_csv"`
	VersesJSON     string `yaml:"verses_json"`
	NarrationsJSON string `yaml:"narrations_json"`
	FactsJSON      string `yaml:"facts_json"`
	// Watch reloads the corpus when files in Directory change.
	Watch bool `yaml:"watch"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	if c.Watch && c.Directory == "" {
		return fmt.Errorf("watch requires a data directory")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.VersesCSV, validation.Required),
		validation.Field(&c.VersesJSON, validation.Required),
		validation.Field(&c.NarrationsJSON, validation.Required),
		validation.Field(&c.FactsJSON, validation.Required),
	)
}

// StorageConfig holds paths for the user data database and the fuzzy index.
// An empty BleveIndexPath keeps the fuzzy index in memory.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// PaginationConfig holds the fixed page size of each dataset.
type PaginationConfig struct {
	Facts      int `yaml:"facts"`
	Verses     int `yaml:"verses"`
	Narrations int `yaml:"narrations"`
}

// Validate validates the pagination configuration.
func (c *PaginationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Facts, validation.Min(1)),
		validation.Field(&c.Verses, validation.Min(1)),
		validation.Field(&c.Narrations, validation.Min(1)),
	)
}

// SearchConfig holds unified search settings.
type SearchConfig struct {
	MaxResults      int   `yaml:"max_results"`
	HighlightWindow int   `yaml:"highlight_window"`
	MaxHighlights   int   `yaml:"max_highlights"`
	FuzzyFallback   *bool `yaml:"fuzzy_fallback"`
	Fuzziness       int   `yaml:"fuzziness"`
}

// FuzzyFallbackOrDefault returns whether zero-result queries are retried
// against the fuzzy index; defaults to true when unset.
func (c *SearchConfig) FuzzyFallbackOrDefault() bool {
	if c.FuzzyFallback != nil {
		return *c.FuzzyFallback
	}
	return true
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxResults, validation.Min(1)),
		validation.Field(&c.HighlightWindow, validation.Min(0)),
		validation.Field(&c.MaxHighlights, validation.Min(0)),
		validation.Field(&c.Fuzziness, validation.Min(0), validation.Max(2)),
	)
}

// RetryConfig holds the load retry budget. MaxAttempts includes the first try.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

// Validate validates the retry configuration.
func (c *RetryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxAttempts, validation.Min(1)),
		validation.Field(&c.BaseDelay, validation.Min(time.Duration(0))),
	)
}

// Load reads and parses the config file at path, expands environment variables
// and paths, applies defaults, and validates the result.
// Returns an error if the file cannot be read, parsed, or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Data.Directory = expandPath(cfg.Data.Directory, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
