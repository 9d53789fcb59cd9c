package stepgraph

import (
	"fmt"
	"time"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Run executes the graph from its start node.
//
// It returns the final state and the ordered step records. On error it
// returns the state at the point of failure together with every record
// appended before the failure, so callers can keep them for diagnostics.
//
// Execution flow, one node at a time:
//  1. Stop successfully if the current node is terminal (it does not run)
//  2. Fail with *NodeNotFoundError if the current name has no node
//  3. Execute the node and append a StepRecord with a state snapshot
//  4. Stop successfully if the node has no outgoing edge
//  5. Pick the next node from the fixed edge or the router
//
// A run still active after the step budget fails with *BudgetExceededError.
//
// Example:
//
//	ctx := stepgraph.NewContext(context.Background())
//	final, records, err := graph.Run(ctx, stepgraph.NewState(input),
//	    stepgraph.WithMaxSteps(20))
func (g *Graph) Run(ctx Context, initial *State, opts ...RunOption) (final *State, records []StepRecord, runErr error) {
	if initial == nil {
		initial = NewState(nil)
	}
	initial.normalize()

	if ctx == nil {
		return initial, nil, ErrNilContext
	}
	if g.start == "" {
		return initial, nil, ErrNoStart
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rc := forRun(ctx, g.id, cfg.runID)
	done := observability.TimedOperation()
	startedAt := time.Now()

	observability.LogRunStart(cfg.logger, rc.runID, g.id, cfg.maxSteps)

	spanCtx, runSpan := cfg.spans.StartRunSpan(rc.Context, g.id, rc.runID)
	rc = rc.withSpan(spanCtx)
	defer func() {
		cfg.spans.EndSpanWithError(runSpan, runErr)
	}()

	var lastNode string
	final, records, lastNode, runErr = g.traverse(rc, initial, &cfg)

	outcome := "completed"
	if runErr != nil {
		outcome = "failed"
		observability.LogRunError(cfg.logger, rc.runID, runErr, done(), lastNode)
	} else {
		observability.LogRunComplete(cfg.logger, rc.runID, done(), len(records))
	}
	cfg.metrics.RecordRun(rc, outcome, time.Since(startedAt), len(records))

	return final, records, runErr
}

// traverse is the state machine. It returns the last node it looked at so
// run-level logging can name it on failure.
func (g *Graph) traverse(rc *executionContext, state *State, cfg *runConfig) (*State, []StepRecord, string, error) {
	current := g.start
	records := make([]StepRecord, 0)
	step := 0

	for step < cfg.maxSteps {
		select {
		case <-rc.Done():
			return state, records, current, &CancellationError{Node: current, Cause: rc.Err()}
		default:
		}

		if g.IsTerminal(current) {
			return state, records, current, nil
		}

		node, ok := g.nodes[current]
		if !ok {
			return state, records, current, &NodeNotFoundError{Name: current, Step: step}
		}

		stepCtx := rc.withStep(current, step)

		var err error
		state, err = g.executeStep(stepCtx, node, state, cfg)
		if err != nil {
			return state, records, current, err
		}

		record := newStepRecord(step, current, state)
		records = append(records, record)
		for _, hook := range cfg.hooks {
			hook(record)
		}

		edge, ok := g.edges[current]
		if !ok {
			return state, records, current, nil
		}

		next, err := g.route(stepCtx, edge, state, cfg)
		if err != nil {
			return state, records, current, err
		}

		current = next
		step++
	}

	return state, records, current, &BudgetExceededError{Max: cfg.maxSteps, NextNode: current}
}

// executeStep runs one node with logging, metrics and an optional span.
func (g *Graph) executeStep(ctx *executionContext, node *Node, state *State, cfg *runConfig) (*State, error) {
	observability.LogStepStart(cfg.logger, node.Name(), ctx.step)

	spanCtx, span := cfg.spans.StartStepSpan(ctx.Context, node.Name(), ctx.step)
	nodeCtx := ctx.withSpan(spanCtx)

	start := time.Now()
	done := observability.TimedOperation()

	result, err := node.Execute(nodeCtx, state)

	cfg.metrics.RecordStep(spanCtx, node.Name(), time.Since(start), err)
	cfg.spans.EndSpanWithError(span, err)

	if err != nil {
		observability.LogStepError(cfg.logger, node.Name(), ctx.step, err)
		return result, err
	}
	observability.LogStepComplete(cfg.logger, node.Name(), ctx.step, done())

	result.normalize()
	return result, nil
}

// route resolves the destination of edge against the post-execution state.
func (g *Graph) route(ctx *executionContext, edge Edge, state *State, cfg *runConfig) (string, error) {
	var next string
	switch edge.Kind() {
	case EdgeFixed:
		next = edge.Target()
	case EdgeConditional:
		var err error
		next, err = edge.Router().Evaluate(ctx, state)
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("edge from %s has unknown kind %d", ctx.nodeName, edge.Kind())
	}

	observability.LogRoute(cfg.logger, ctx.nodeName, next, edge.Kind().String())
	cfg.metrics.RecordRoute(ctx, ctx.nodeName, next)
	cfg.spans.AddSpanEvent(ctx, "route",
		attribute.String("from", ctx.nodeName),
		attribute.String("to", next),
	)
	return next, nil
}
