// Package config loads client settings from an optional YAML file and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tgienger/todochat/internal/db"
)

// DefaultAPIURL is the backend used when nothing else is configured
const DefaultAPIURL = "http://localhost:8000"

// Environment variables
const (
	EnvAPIURL   = "TODOCHAT_API_URL"
	EnvDBPath   = "TODOCHAT_DB"
	EnvLogLevel = "TODOCHAT_LOG_LEVEL"
)

// Config holds all client settings
type Config struct {
	APIURL   string `yaml:"api_url"`
	DBPath   string `yaml:"db_path"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the settings used when no file or env overrides exist
func DefaultConfig() *Config {
	cfg := &Config{
		APIURL:   DefaultAPIURL,
		LogLevel: "info",
	}
	if path, err := db.DefaultPath(); err == nil {
		cfg.DBPath = path
		cfg.LogFile = filepath.Join(filepath.Dir(path), "todochat.log")
	}
	return cfg
}

// DefaultPath returns the config file location under the XDG config directory
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "todochat", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks that the settings are usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api_url %q: %w", c.APIURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: want an absolute http(s) URL", c.APIURL)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is empty")
	}
	return nil
}
