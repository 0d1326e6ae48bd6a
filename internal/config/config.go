// Package config loads specgate configuration from a YAML file, falling back
// to defaults when no file is present.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory when no
// --config flag is given.
const DefaultPath = ".specgate.yaml"

// Config represents specgate configuration options
type Config struct {
	// StateDir is the directory holding per-document pipeline state files
	StateDir string `yaml:"state_dir"`

	// HistoryDB is the path to the sqlite run-history database
	HistoryDB string `yaml:"history_db"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// MinWords is the minimum word count enforced by the MinimumLength check
	MinWords int `yaml:"min_words"`

	// VagueTermThreshold is the vague-term count above which VagueTermDensity fails
	VagueTermThreshold int `yaml:"vague_term_threshold"`

	// ExtraVagueTerms are project-specific terms appended to the built-in list
	ExtraVagueTerms []string `yaml:"extra_vague_terms"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		StateDir:           ".specgate/state",
		HistoryDB:          ".specgate/history.db",
		LogLevel:           "info",
		MinWords:           100,
		VagueTermThreshold: 3,
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks config values for consistency
func (c *Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("state_dir must not be empty")
	}
	if c.MinWords < 0 {
		return fmt.Errorf("min_words must not be negative, got %d", c.MinWords)
	}
	if c.VagueTermThreshold < 0 {
		return fmt.Errorf("vague_term_threshold must not be negative, got %d", c.VagueTermThreshold)
	}
	return nil
}
