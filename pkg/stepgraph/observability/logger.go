// Package observability provides structured logging, metrics and tracing
// for stepgraph runs.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds run context to a logger.
// Returns a new logger with run_id, graph_id, node and step fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", "graph-1", "process", 2)
//	enriched.Info("doing work") // includes run_id, graph_id, node, step
func EnrichLogger(logger *slog.Logger, runID, graphID, node string, step int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("graph_id", graphID),
		slog.String("node", node),
		slog.Int("step", step),
	)
}

// LogRunStart logs the start of a run.
func LogRunStart(logger *slog.Logger, runID, graphID string, maxSteps int) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting",
		slog.String("run_id", runID),
		slog.String("graph_id", graphID),
		slog.Int("max_steps", maxSteps),
	)
}

// LogRunComplete logs successful run completion.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, steps int) {
	if logger == nil {
		return
	}
	logger.Info("graph run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps_executed", steps),
	)
}

// LogRunError logs run failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogStepStart logs the start of a node execution.
func LogStepStart(logger *slog.Logger, node string, step int) {
	if logger == nil {
		return
	}
	logger.Debug("step starting",
		slog.String("node", node),
		slog.Int("step", step),
	)
}

// LogStepComplete logs a finished node execution.
func LogStepComplete(logger *slog.Logger, node string, step int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("step completed",
		slog.String("node", node),
		slog.Int("step", step),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStepError logs a failed node execution.
func LogStepError(logger *slog.Logger, node string, step int, err error) {
	if logger == nil {
		return
	}
	logger.Error("step failed",
		slog.String("node", node),
		slog.Int("step", step),
		slog.String("error", err.Error()),
	)
}

// LogRoute logs the routing decision taken after a node.
func LogRoute(logger *slog.Logger, from, to, kind string) {
	if logger == nil {
		return
	}
	logger.Debug("route selected",
		slog.String("from", from),
		slog.String("to", to),
		slog.String("edge", kind),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
