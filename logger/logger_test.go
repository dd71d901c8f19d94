package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestWithSite(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	SetLogger(New(&buf, "info", false))
	defer SetLogger(prev)

	WithSite("example").Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "example", entry["site_id"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	SetLogger(New(&buf, "error", true))
	defer SetLogger(prev)

	Warn("dropped")
	assert.Empty(t, buf.String())
	Error("kept")
	assert.Contains(t, buf.String(), "kept")
}
