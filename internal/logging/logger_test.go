package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONRenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(slog.LevelInfo, FormatJSON, &buf)
	require.NoError(t, err)

	logger.Info("run failed", "error", errors.New("boom"), "graph_id", "g1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run failed", entry["msg"])
	assert.Equal(t, "boom", entry["err"])
	assert.Equal(t, "g1", entry["graph_id"])
	assert.NotContains(t, entry, "error")
}

func TestNew_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(slog.LevelWarn, FormatText, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "error", "x")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "err=x")
}

func TestNew_DefaultAndUnknownFormat(t *testing.T) {
	logger, err := New(slog.LevelInfo, "", &bytes.Buffer{})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = New(slog.LevelInfo, "JSON", &bytes.Buffer{})
	assert.NoError(t, err)

	_, err = New(slog.LevelInfo, "xml", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
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

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Error("discarded")
	assert.NotNil(t, logger)
}
