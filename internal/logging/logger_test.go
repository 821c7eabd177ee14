package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSONToConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: INFO, JSONFormat: true, Console: &buf})
	require.NoError(t, err)

	logger.slog.Debug("hidden")
	logger.slog.Info("scored member", "member_id", "u1", "score", 4.2)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "scored member", entry["msg"])
	assert.Equal(t, "u1", entry["member_id"])
}

func TestNewLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "run.log")

	var console bytes.Buffer
	logger, err := NewLogger(Config{Level: DEBUG, OutputFile: path, Console: &console})
	require.NoError(t, err)
	logger.slog.Warn("fallback used", "reason", "timeout")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fallback used")
	assert.Contains(t, console.String(), "reason=timeout")
}

func TestRotateIfNeeded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.log")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 64), 0644))

	logger, err := NewLogger(Config{OutputFile: path, MaxSize: 32, Console: &bytes.Buffer{}})
	require.NoError(t, err)
	defer logger.Close()

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "oversized log should be rotated to .1")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("DEBUG"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("whatever"))
}
