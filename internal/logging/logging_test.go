package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARNING "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", "json", &buf)
	log.Info("dropped")
	log.Warn("kept", "goal_id", "g1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "g1", entry["goal_id"])
	assert.Equal(t, "accountability-partner", entry["service"])
}

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	StdLogger(New("info", "text", &buf), slog.LevelWarn).Printf("cron %s", "skip")
	assert.Contains(t, buf.String(), "cron skip")
	assert.Contains(t, buf.String(), "level=WARN")
}
