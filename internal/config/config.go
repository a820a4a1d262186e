package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all decklist configuration.
type Config struct {
	Scryfall ScryfallConfig `yaml:"scryfall"`
	Batch    BatchConfig    `yaml:"batch"`
	Server   ServerConfig   `yaml:"server"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ScryfallConfig configures the card lookup.
type ScryfallConfig struct {
	BaseURL   string `yaml:"base_url"`
	Delay     string `yaml:"delay"` // pause after every lookup, e.g. "100ms"
	UserAgent string `yaml:"user_agent"`
}

// BatchConfig configures the convert command defaults.
type BatchConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ArchiveConfig configures the run archive.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	archive := "decklist.db"
	if home, err := os.UserHomeDir(); err == nil {
		archive = filepath.Join(home, ".decklist", "runs.db")
	}

	return &Config{
		Scryfall: ScryfallConfig{
			BaseURL:   "https://api.scryfall.com/cards/named",
			Delay:     "100ms",
			UserAgent: "decklist/1.0 (deck-analysis)",
		},
		Batch: BatchConfig{
			Input:  "decklist.txt",
			Output: "decklist_analysis.csv",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Archive: ArchiveConfig{
			Path: archive,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DECKLIST_SCRYFALL_URL"); v != "" {
		c.Scryfall.BaseURL = v
	}
	if v := os.Getenv("DECKLIST_DELAY"); v != "" {
		c.Scryfall.Delay = v
	}
	if v := os.Getenv("DECKLIST_DB"); v != "" {
		c.Archive.Path = v
	}
	if v := os.Getenv("DECKLIST_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DECKLIST_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for values the tool cannot run with.
func (c *Config) Validate() error {
	if c.Scryfall.BaseURL == "" {
		return fmt.Errorf("scryfall.base_url is required")
	}
	if _, err := c.LookupDelay(); err != nil {
		return err
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// LookupDelay parses the pause applied after every card lookup.
func (c *Config) LookupDelay() (time.Duration, error) {
	if c.Scryfall.Delay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Scryfall.Delay)
	if err != nil {
		return 0, fmt.Errorf("invalid scryfall.delay: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("scryfall.delay must not be negative, got %s", d)
	}
	return d, nil
}
