package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest installs a manual-reader meter provider for one test.
func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	t.Cleanup(func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	})
	return reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumInt64(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64], got %T", m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetricsRecorder(t *testing.T) {
	setupMetricsTest(t)

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "Expected real metrics recorder, got noop")
}

func TestRecordStep(t *testing.T) {
	reader := setupMetricsTest(t)

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordStep(ctx, "extract", 10*time.Millisecond, nil)
	m.RecordStep(ctx, "extract", 12*time.Millisecond, nil)
	m.RecordStep(ctx, "score", 3*time.Millisecond, errors.New("bad input"))

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(3), sumInt64(t, findMetric(rm, "stepgraph.step.executions")))
	assert.Equal(t, int64(1), sumInt64(t, findMetric(rm, "stepgraph.step.errors")))

	latency := findMetric(rm, "stepgraph.step.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestRecordRun(t *testing.T) {
	reader := setupMetricsTest(t)

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRun(ctx, "completed", 20*time.Millisecond, 5)
	m.RecordRun(ctx, "failed", 5*time.Millisecond, 2)

	rm := collectMetrics(t, reader)

	runs := findMetric(rm, "stepgraph.run.count")
	assert.Equal(t, int64(2), sumInt64(t, runs))

	outcomes := map[string]int64{}
	for _, dp := range runs.Data.(metricdata.Sum[int64]).DataPoints {
		v, _ := dp.Attributes.Value("outcome")
		outcomes[v.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"completed": 1, "failed": 1}, outcomes)

	steps := findMetric(rm, "stepgraph.run.steps")
	require.NotNil(t, steps)
	hist, ok := steps.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range hist.DataPoints {
		total += dp.Sum
	}
	assert.Equal(t, int64(7), total)
}

func TestRecordRoute(t *testing.T) {
	reader := setupMetricsTest(t)

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordRoute(context.Background(), "score", "detect_issues")
	m.RecordRoute(context.Background(), "score", "end")

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumInt64(t, findMetric(rm, "stepgraph.route.decisions")))
}
