package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer, level Level) *DefaultLogger {
	l := New(LoggerConfig{Level: level, Output: buf})
	l.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{" warn ", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown", "loops", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, "[2024-01-02 03:04:05] WARN: shown loops=2\n", out)

	buf.Reset()
	l.SetLevel(DebugLevel)
	l.Debug("now shown")
	assert.Contains(t, buf.String(), "DEBUG: now shown")
}

func TestDefaultLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, DebugLevel)
	l.SetJSONOutput(true)

	l.Info("branch region", "begin", "bc_0", "end", "bc_18", "level", "ignored")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "branch region", entry["message"])
	assert.Equal(t, "bc_0", entry["begin"])
	assert.Equal(t, "bc_18", entry["end"])
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "plain", formatMessage("plain"))
	assert.Equal(t, "msg arg=x k=v", formatMessage("msg", "x", "k", "v"))
	assert.Equal(t, "msg k=2", formatMessage("msg", "k", 1, "k", 2))
	assert.True(t, strings.HasPrefix(formatMessage("msg", 42, "v"), "msg"))
}

func TestDefaultLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, InfoLevel)

	child := l.With("listing", "loop.lst")
	child.Info("restructured", "regions", 3)
	child.With("stage", "final").Warn("cache miss")
	child.Debug("hidden")

	assert.Equal(t,
		"[2024-01-02 03:04:05] INFO: restructured listing=loop.lst regions=3\n"+
			"[2024-01-02 03:04:05] WARN: cache miss listing=loop.lst stage=final\n",
		buf.String())

	buf.Reset()
	child.SetJSONOutput(true)
	child.Info("done", "listing", "override.lst")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "override.lst", entry["listing"])
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.NotPanics(t, func() {
		l.Debug("x", "k", "v")
		l.Error("y")
		l.SetLevel(DebugLevel)
		l.SetJSONOutput(true)
		l.With("k", "v").Info("z")
	})
}
