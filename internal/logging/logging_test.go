package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fenilsonani/uploads-maintenance/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(&buf, "json", slog.LevelInfo)
	require.NoError(t, err)

	logger.Component("scanner").Info("scanned folder", "folder", "avatars", "files", 3)
	logger.Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scanned folder", entry["msg"])
	assert.Equal(t, "scanner", entry["component"])
	assert.Equal(t, "avatars", entry["folder"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewWriterUnknownFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, "xml", slog.LevelInfo)
	assert.Error(t, err)
}

func TestNewWritesRotatingFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "maintenance.log")
	logger, err := New(config.LogConfig{
		Level:      "info",
		Format:     "text",
		File:       logFile,
		MaxSizeMB:  1,
		MaxBackups: 1,
	}, true)
	require.NoError(t, err)

	logger.Debug("verbose enabled")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "verbose enabled")
}
