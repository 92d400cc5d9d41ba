// Package config provides configuration management for agentdesk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultListenAddr is the address the worker HTTP server binds to.
	DefaultListenAddr = "127.0.0.1:8377"
	// DefaultDebounceWindow is the notifier debounce window.
	DefaultDebounceWindow = 500 * time.Millisecond
	// DefaultContextWindow is assumed when the caller does not report a
	// model context window.
	DefaultContextWindow = 200000
)

// Config holds runtime configuration loaded from config.yaml.
type Config struct {
	ListenAddr    string `yaml:"listen_addr"`
	LogLevel      string `yaml:"log_level"`
	DebounceMs    int    `yaml:"debounce_ms"`
	ContextWindow int    `yaml:"context_window"`
	SearchEnabled bool   `yaml:"search_enabled"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ListenAddr:    DefaultListenAddr,
		LogLevel:      "info",
		DebounceMs:    int(DefaultDebounceWindow / time.Millisecond),
		ContextWindow: DefaultContextWindow,
		SearchEnabled: true,
	}
}

// DebounceWindow returns the configured debounce window as a duration.
func (c *Config) DebounceWindow() time.Duration {
	if c.DebounceMs <= 0 {
		return DefaultDebounceWindow
	}
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// DataDir returns the agentdesk data directory. AGENTDESK_DATA_DIR
// overrides the default of ~/.agentdesk.
func DataDir() string {
	if dir := os.Getenv("AGENTDESK_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".agentdesk")
}

// ConfigPath returns the path to the YAML config file.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// SearchIndexPath returns the path to the derived message search index.
func SearchIndexPath() string {
	return filepath.Join(DataDir(), "search.db")
}

// Load reads config.yaml from the data directory. A missing file yields
// the defaults (not an error); a malformed file is an error.
func Load() (*Config, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// EnsureDataDir creates the data directory if needed.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o755)
}

// EnsureConfig writes a default config.yaml if none exists.
func EnsureConfig() error {
	path := ConfigPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// EnsureAll initializes the data directory and config file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureConfig()
}
