package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records stepgraph metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStep records one node execution with its duration and error status.
	RecordStep(ctx context.Context, node string, duration time.Duration, err error)

	// RecordRun records a finished run. outcome is "completed" or "failed".
	RecordRun(ctx context.Context, outcome string, duration time.Duration, steps int)

	// RecordRoute records a routing decision from one node to the next.
	RecordRoute(ctx context.Context, from, to string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	stepExecutions metric.Int64Counter
	stepLatency    metric.Float64Histogram
	stepErrors     metric.Int64Counter
	runs           metric.Int64Counter
	runLatency     metric.Float64Histogram
	runSteps       metric.Int64Histogram
	routes         metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("stepgraph")

	stepExecutions, err := meter.Int64Counter("stepgraph.step.executions",
		metric.WithDescription("Number of node executions"),
	)
	if err != nil {
		return nil, err
	}

	stepLatency, err := meter.Float64Histogram("stepgraph.step.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stepErrors, err := meter.Int64Counter("stepgraph.step.errors",
		metric.WithDescription("Number of failed node executions"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("stepgraph.run.count",
		metric.WithDescription("Number of graph runs"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram("stepgraph.run.latency_ms",
		metric.WithDescription("Graph run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	runSteps, err := meter.Int64Histogram("stepgraph.run.steps",
		metric.WithDescription("Steps executed per run"),
	)
	if err != nil {
		return nil, err
	}

	routes, err := meter.Int64Counter("stepgraph.route.decisions",
		metric.WithDescription("Number of routing decisions"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		stepExecutions: stepExecutions,
		stepLatency:    stepLatency,
		stepErrors:     stepErrors,
		runs:           runs,
		runLatency:     runLatency,
		runSteps:       runSteps,
		routes:         routes,
	}, nil
}

// NewMetricsRecorder returns a recorder backed by the global OTel meter
// provider. Falls back to NoopMetrics if instrument creation fails.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordStep records a node execution.
func (m *otelMetrics) RecordStep(ctx context.Context, node string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("node", node))

	m.stepExecutions.Add(ctx, 1, attrs)
	m.stepLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.stepErrors.Add(ctx, 1, attrs)
	}
}

// RecordRun records a finished run.
func (m *otelMetrics) RecordRun(ctx context.Context, outcome string, duration time.Duration, steps int) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))

	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.runSteps.Record(ctx, int64(steps), attrs)
}

// RecordRoute records a routing decision.
func (m *otelMetrics) RecordRoute(ctx context.Context, from, to string) {
	m.routes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
