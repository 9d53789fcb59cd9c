package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records as JSON lines.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := &testHandler{
		buf:   h.buf,
		level: h.level,
		attrs: make([]slog.Attr, len(h.attrs)+len(attrs)),
	}
	copy(newH.attrs, h.attrs)
	copy(newH.attrs[len(h.attrs):], attrs)
	return newH
}

func (h *testHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *testHandler) getLastRecord() map[string]any {
	lines := bytes.Split(h.buf.Bytes(), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if len(lines[i]) > 0 {
			var m map[string]any
			if err := json.Unmarshal(lines[i], &m); err == nil {
				return m
			}
		}
	}
	return nil
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds run_id, graph_id, node and step", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		enriched := EnrichLogger(logger, "run-123", "graph-1", "process", 2)
		enriched.Info("test message")

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "run-123", record["run_id"])
		assert.Equal(t, "graph-1", record["graph_id"])
		assert.Equal(t, "process", record["node"])
		assert.Equal(t, float64(2), record["step"]) // JSON decodes ints as float64
		assert.Equal(t, "test message", record["msg"])
	})

	t.Run("nil logger returns nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "run-123", "g", "process", 1))
	})
}

func TestLogRunStart(t *testing.T) {
	h := newTestHandler()
	LogRunStart(slog.New(h), "run-456", "graph-9", 50)

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "graph run starting", record["msg"])
	assert.Equal(t, "run-456", record["run_id"])
	assert.Equal(t, "graph-9", record["graph_id"])
	assert.Equal(t, float64(50), record["max_steps"])
}

func TestLogRunComplete(t *testing.T) {
	h := newTestHandler()
	LogRunComplete(slog.New(h), "run-789", 123.5, 5)

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "graph run completed", record["msg"])
	assert.Equal(t, 123.5, record["duration_ms"])
	assert.Equal(t, float64(5), record["steps_executed"])
}

func TestLogRunError(t *testing.T) {
	h := newTestHandler()
	LogRunError(slog.New(h), "run-err", errors.New("connection failed"), 50.0, "process")

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "graph run failed", record["msg"])
	assert.Equal(t, "connection failed", record["error"])
	assert.Equal(t, "process", record["last_node"])
}

func TestLogStepLifecycle(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogStepStart(logger, "fetch", 0)
	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "step starting", record["msg"])
	assert.Equal(t, "fetch", record["node"])

	LogStepComplete(logger, "fetch", 0, 45.7)
	record = h.getLastRecord()
	assert.Equal(t, "step completed", record["msg"])
	assert.Equal(t, 45.7, record["duration_ms"])

	LogStepError(logger, "fetch", 1, errors.New("boom"))
	record = h.getLastRecord()
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "step failed", record["msg"])
	assert.Equal(t, "boom", record["error"])
	assert.Equal(t, float64(1), record["step"])
}

func TestLogRoute(t *testing.T) {
	h := newTestHandler()
	LogRoute(slog.New(h), "score", "detect", "conditional")

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "route selected", record["msg"])
	assert.Equal(t, "score", record["from"])
	assert.Equal(t, "detect", record["to"])
	assert.Equal(t, "conditional", record["edge"])
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogRunStart(nil, "r", "g", 1)
		LogRunComplete(nil, "r", 1, 1)
		LogRunError(nil, "r", errors.New("x"), 1, "n")
		LogStepStart(nil, "n", 0)
		LogStepComplete(nil, "n", 0, 1)
		LogStepError(nil, "n", 0, errors.New("x"))
		LogRoute(nil, "a", "b", "fixed")
	})
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	elapsed := done()

	assert.GreaterOrEqual(t, elapsed, 4.0)
	assert.Less(t, elapsed, 1000.0)
}
