package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds host-level settings for the action engine. The engine itself
// takes no configuration; everything here drives the hosts around it.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
	// DatabasePath overrides the default outcome database location.
	DatabasePath string `yaml:"database_path,omitempty"`
	// AutoApprove lists tool names the host approves without prompting.
	// The registry never self-approves; hosts apply this list.
	AutoApprove []string `yaml:"auto_approve,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{LogLevel: "info"}
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// AutoApproved reports whether tool is on the auto-approve list.
func (c *Config) AutoApproved(tool string) bool {
	for _, t := range c.AutoApprove {
		if t == tool {
			return true
		}
	}
	return false
}
