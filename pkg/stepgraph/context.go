package stepgraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context provides execution context to steps and routers.
// It extends context.Context with the run's logger and identifiers.
//
// Context is immutable after creation. Run derives a context for each
// step with the node name, step number and an enriched logger.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run and node context.
	// Never returns nil.
	Logger() *slog.Logger

	// RunID returns the identifier of this run.
	RunID() string

	// GraphID returns the identifier of the graph being run.
	// Empty outside of Run.
	GraphID() string

	// NodeName returns the node currently executing, or the source node
	// while its router is evaluated.
	NodeName() string

	// Step returns the zero-based step number of the current node.
	Step() int
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger   *slog.Logger
	runID    string
	graphID  string
	nodeName string
	step     int
}

func (c *executionContext) Logger() *slog.Logger { return c.logger }
func (c *executionContext) RunID() string        { return c.runID }
func (c *executionContext) GraphID() string      { return c.graphID }
func (c *executionContext) NodeName() string     { return c.nodeName }
func (c *executionContext) Step() int            { return c.step }

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger handed to steps.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContextRunID sets the run identifier. A UUID is generated otherwise.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := stepgraph.NewContext(context.Background(),
//	    stepgraph.WithLogger(logger),
//	    stepgraph.WithContextRunID("run-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
	}
	for _, opt := range opts {
		opt(ec)
	}
	return ec
}

// forRun binds the context to a graph and run. Contexts not created by
// NewContext are wrapped so steps always see a full Context.
func forRun(ctx Context, graphID, runID string) *executionContext {
	base, ok := ctx.(*executionContext)
	if !ok {
		base = &executionContext{
			Context: ctx,
			logger:  ctx.Logger(),
			runID:   ctx.RunID(),
		}
		if base.logger == nil {
			base.logger = slog.Default()
		}
	}
	if runID == "" {
		runID = base.runID
	}
	return &executionContext{
		Context: base.Context,
		logger:  base.logger,
		runID:   runID,
		graphID: graphID,
	}
}

// withStep returns a derived context for one node execution.
func (c *executionContext) withStep(nodeName string, step int) *executionContext {
	return &executionContext{
		Context:  c.Context,
		logger:   c.logger.With("run_id", c.runID, "graph_id", c.graphID, "node", nodeName, "step", step),
		runID:    c.runID,
		graphID:  c.graphID,
		nodeName: nodeName,
		step:     step,
	}
}

// withSpan swaps the underlying context, keeping everything else. Used to
// carry tracing spans into steps.
func (c *executionContext) withSpan(ctx context.Context) *executionContext {
	cp := *c
	cp.Context = ctx
	return &cp
}
