package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := New(file, "debug")
	require.NoError(t, err)
	logger.Debug("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"hello"`), string(data))
}

func TestNewRespectsLevel(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")

	logger, err := New(file, "warn")
	require.NoError(t, err)
	logger.Info("quiet")
	logger.Warn("loud")
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "app.log"), "chatty")
	assert.Error(t, err)
}

func TestEmptyFileIsNop(t *testing.T) {
	logger, err := New("", "info")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestConsoleLevels(t *testing.T) {
	logger, err := Console("warn")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))

	_, err = Console("loud")
	assert.Error(t, err)
}
