package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join("/tmp/data", "todochat", "todochat.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join("/tmp/data", "todochat", "todochat.log"), cfg.LogFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "api_url: https://tasks.example.com/\nlog_level: debug\ndb_path: /tmp/x.db\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	t.Run("file values", func(t *testing.T) {
		t.Setenv(EnvAPIURL, "")
		t.Setenv(EnvDBPath, "")
		t.Setenv(EnvLogLevel, "")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://tasks.example.com", cfg.APIURL)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	})

	t.Run("env wins", func(t *testing.T) {
		t.Setenv(EnvAPIURL, "http://10.0.0.5:9000")
		t.Setenv(EnvDBPath, "/tmp/env.db")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "http://10.0.0.5:9000", cfg.APIURL)
		assert.Equal(t, "/tmp/env.db", cfg.DBPath)
	})
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "http", url: "http://localhost:8000"},
		{name: "https", url: "https://api.example.com"},
		{name: "relative", url: "/api", wantErr: true},
		{name: "ftp", url: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{APIURL: tt.url, DBPath: "/tmp/x.db"}
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
