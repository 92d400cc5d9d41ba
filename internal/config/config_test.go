// Package config provides configuration management for agentdesk.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func (s *ConfigSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	s.origDir = os.Getenv("AGENTDESK_DATA_DIR")
	os.Setenv("AGENTDESK_DATA_DIR", s.tempDir)
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("AGENTDESK_DATA_DIR", s.origDir)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultListenAddr, cfg.ListenAddr)
	s.Equal("info", cfg.LogLevel)
	s.Equal(500, cfg.DebounceMs)
	s.Equal(DefaultContextWindow, cfg.ContextWindow)
	s.True(cfg.SearchEnabled)
}

// TestDataDir tests the environment override.
func (s *ConfigSuite) TestDataDir() {
	s.Equal(s.tempDir, DataDir())
}

// TestPaths tests derived file locations.
func (s *ConfigSuite) TestPaths() {
	s.Equal(filepath.Join(s.tempDir, "config.yaml"), ConfigPath())
	s.Equal(filepath.Join(s.tempDir, "search.db"), SearchIndexPath())
}

// TestLoadMissing tests that an absent config yields the defaults.
func (s *ConfigSuite) TestLoadMissing() {
	cfg, err := Load()
	s.NoError(err)
	s.Equal(Default(), cfg)
}

// TestLoadOverrides tests that a config file overrides defaults while
// unset keys keep their default values.
func (s *ConfigSuite) TestLoadOverrides() {
	doc := "listen_addr: \"127.0.0.1:9000\"\ndebounce_ms: 250\n"
	s.Require().NoError(os.WriteFile(ConfigPath(), []byte(doc), 0o644))

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal("127.0.0.1:9000", cfg.ListenAddr)
	s.Equal(250, cfg.DebounceMs)
	s.Equal(250*time.Millisecond, cfg.DebounceWindow())
	s.Equal(DefaultContextWindow, cfg.ContextWindow) // untouched default
}

// TestLoadMalformed tests that a broken config is an error.
func (s *ConfigSuite) TestLoadMalformed() {
	s.Require().NoError(os.WriteFile(ConfigPath(), []byte("listen_addr: [unterminated"), 0o644))
	_, err := Load()
	s.Error(err)
}

// TestDebounceWindowFallback tests the non-positive guard.
func (s *ConfigSuite) TestDebounceWindowFallback() {
	cfg := &Config{DebounceMs: 0}
	s.Equal(DefaultDebounceWindow, cfg.DebounceWindow())
}

// TestEnsureAll tests data directory and config initialization.
func (s *ConfigSuite) TestEnsureAll() {
	s.Require().NoError(EnsureAll())

	info, err := os.Stat(DataDir())
	s.Require().NoError(err)
	s.True(info.IsDir())

	_, err = os.Stat(ConfigPath())
	s.NoError(err)

	// Second call leaves the existing file alone.
	s.NoError(EnsureAll())
}
