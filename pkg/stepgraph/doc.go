/*
Package stepgraph executes directed graphs of named steps over a shared state.

# Overview

A Graph is a set of nodes, each wrapping a StepFunc, connected by edges.
An edge is either fixed (always the same destination) or conditional (a
Router inspects the state and names the next node). Run threads a single
*State through the graph one node at a time and records a StepRecord for
every node it executes.

# Basic Usage

	graph := stepgraph.NewBuilder().
	    Node("extract", extract, "Extract functions").
	    Node("score", score, "Compute a score").
	    Node("end", nil, "End marker").
	    Edge("extract", "score").
	    Edge("score", "end").
	    Start("extract").
	    End("end").
	    Build()

	ctx := stepgraph.NewContext(context.Background())
	final, records, err := graph.Run(ctx, stepgraph.NewState(map[string]any{"code": src}))

# Termination

A run stops successfully when:
  - the current node is marked terminal with SetEnd (the terminal node is
    never executed, so "end" nodes are placeholders), or
  - the node that just executed has no outgoing edge.

A run fails when the current name has no node (*NodeNotFoundError), a step
or router returns an error (passed through unchanged), or the run is still
active when the step budget is reached (*BudgetExceededError).

# Loops

Conditional edges may point back at earlier nodes:

	graph.AddConditionalEdge("attempt", func(ctx stepgraph.Context, s *stepgraph.State) (string, error) {
	    if s.Data["ok"] == true || s.Data["attempts"].(int) >= 3 {
	        return "end", nil
	    }
	    return "attempt", nil
	})

The step budget (WithMaxSteps, default 50) is a safety net, not an exit
path: a router should bound its own loop below the budget.

# Step Records

Each record holds the step number, node name, timestamp and a deep copy of
the state taken right after the node ran. Records returned alongside an
error cover every node that executed before the failure.

# Asynchronous Steps

Steps are ordinary blocking functions. A step that produces its result on a
channel is adapted with Await; the traversal does not continue until the
result arrives.

# Observability

	final, records, err := graph.Run(ctx, state,
	    stepgraph.WithObservabilityLogger(logger),
	    stepgraph.WithMetrics(true),
	    stepgraph.WithTracing(true))

# Thread Safety

  - Graph is NOT safe for concurrent mutation; build it, then share it
  - Run may be called concurrently on a built Graph
  - each run owns its State; runs never share state through the engine

# Subpackages

  - expr: constrained condition language for declarative edges
  - tools: registry of named steps and routers
  - definition: JSON/YAML/HCL graph definitions
  - runstore: run history stores (memory, SQLite, Redis)
  - observability: logging, metrics and tracing helpers
  - config: configuration loading
*/
package stepgraph
