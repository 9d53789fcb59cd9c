package stepgraph

import (
	"log/slog"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph/observability"
)

// DefaultMaxSteps is the step budget used when WithMaxSteps is not given.
const DefaultMaxSteps = 50

// StepHook is called after each step record is appended, in step order,
// on the goroutine running the graph.
type StepHook func(record StepRecord)

// runConfig holds configuration for one Run call.
type runConfig struct {
	maxSteps int
	runID    string
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	hooks    []StepHook
}

func defaultRunConfig() runConfig {
	return runConfig{
		maxSteps: DefaultMaxSteps,
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxSteps sets the step budget. Values below 1 are ignored.
// Default: 50
//
// A run still active when the counter reaches the budget fails with
// *BudgetExceededError. The budget is a safety net; routers that loop on
// purpose should bound their own iteration count below it.
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithRunID overrides the run identifier carried by the context.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithObservabilityLogger enables run and step logging on logger.
// Logging is off when no logger is configured.
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter provider.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder uses a specific recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans: one per run, one per step.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithStepHook registers a hook called after every step record.
func WithStepHook(h StepHook) RunOption {
	return func(c *runConfig) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}
