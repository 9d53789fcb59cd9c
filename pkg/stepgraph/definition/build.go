package definition

import (
	"fmt"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/expr"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/tools"
)

// NoRouteError is returned by a conditional edge when no condition holds
// and the source has no unconditional fallback edge.
type NoRouteError struct {
	From string
}

// Error implements the error interface.
func (e *NoRouteError) Error() string {
	return fmt.Sprintf("no route from node '%s': no condition matched", e.From)
}

// ConditionError wraps an evaluation failure of an edge condition.
type ConditionError struct {
	From      string
	Condition string
	Err       error
}

// Error implements the error interface.
func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition %q on edge from '%s': %v", e.Condition, e.From, e.Err)
}

// Unwrap returns the evaluation error.
func (e *ConditionError) Unwrap() error {
	return e.Err
}

type buildConfig struct {
	graphID   string
	evaluator *expr.Evaluator
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// WithGraphID sets the identifier of the built graph. A UUID is generated
// otherwise.
func WithGraphID(id string) BuildOption {
	return func(c *buildConfig) {
		c.graphID = id
	}
}

// WithEvaluator compiles conditions with e, for custom operators.
func WithEvaluator(e *expr.Evaluator) BuildOption {
	return func(c *buildConfig) {
		if e != nil {
			c.evaluator = e
		}
	}
}

type guardedTarget struct {
	cond *expr.Expression
	to   string
}

// Build validates def and compiles it into a graph.
//
// Edges are grouped by source in declaration order:
//   - only fixed edges: each is added in turn, so the last one wins
//   - a router edge: the named router becomes the conditional edge
//   - conditional edges: the first condition that holds picks the target;
//     a fixed edge from the same source is the fallback (last one wins)
//
// Conditions are compiled here, so a malformed condition fails Build; it
// never reaches a run.
func Build(def *GraphDefinition, reg *tools.Registry, opts ...BuildOption) (*stepgraph.Graph, error) {
	if def == nil {
		return nil, &ValidationError{Field: "definition", Message: "is required"}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	cfg := buildConfig{evaluator: expr.New()}
	for _, opt := range opts {
		opt(&cfg)
	}

	var graphOpts []stepgraph.GraphOption
	if cfg.graphID != "" {
		graphOpts = append(graphOpts, stepgraph.WithGraphID(cfg.graphID))
	}
	b := stepgraph.NewBuilder(graphOpts...)

	for _, n := range def.Nodes {
		tool, ok := reg.Tool(n.Tool)
		if !ok {
			return nil, fmt.Errorf("node %q: %w: %s", n.Name, tools.ErrToolNotFound, n.Tool)
		}
		desc := n.Description
		if desc == "" {
			desc = tool.Description
		}
		b.Node(n.Name, tool.Func, desc)
	}

	order, bySource := groupEdges(def.Edges)
	for _, from := range order {
		group := bySource[from]

		if len(group) == 1 && group[0].Router != "" {
			fn, err := reg.Router(group[0].Router)
			if err != nil {
				return nil, fmt.Errorf("edge from %q: %w", from, err)
			}
			b.ConditionalEdge(from, fn)
			continue
		}

		var guarded []guardedTarget
		fallback := ""
		for _, e := range group {
			if e.Condition == "" {
				fallback = e.To
				continue
			}
			cond, err := cfg.evaluator.Compile(e.Condition)
			if err != nil {
				return nil, fmt.Errorf("edge %s -> %s: %w", e.From, e.To, err)
			}
			guarded = append(guarded, guardedTarget{cond: cond, to: e.To})
		}

		if len(guarded) == 0 {
			b.Edge(from, fallback)
			continue
		}
		b.ConditionalEdge(from, conditionRouter(from, guarded, fallback))
	}

	b.Start(def.StartNode)
	for _, end := range def.EndNodes {
		b.End(end)
	}
	return b.Build(), nil
}

func groupEdges(edges []EdgeDefinition) ([]string, map[string][]EdgeDefinition) {
	var order []string
	bySource := make(map[string][]EdgeDefinition)
	for _, e := range edges {
		if _, seen := bySource[e.From]; !seen {
			order = append(order, e.From)
		}
		bySource[e.From] = append(bySource[e.From], e)
	}
	return order, bySource
}

func conditionRouter(from string, guarded []guardedTarget, fallback string) stepgraph.RouterFunc {
	return func(_ stepgraph.Context, s *stepgraph.State) (string, error) {
		vars := ConditionVars(s)
		for _, g := range guarded {
			ok, err := g.cond.Eval(vars)
			if err != nil {
				return "", &ConditionError{From: from, Condition: g.cond.String(), Err: err}
			}
			if ok {
				return g.to, nil
			}
		}
		if fallback != "" {
			return fallback, nil
		}
		return "", &NoRouteError{From: from}
	}
}

// ConditionVars exposes a state to the condition language. Data keys are
// available directly; "data" and "metadata" name the two maps unless Data
// already uses those keys.
func ConditionVars(s *stepgraph.State) map[string]any {
	vars := make(map[string]any, len(s.Data)+2)
	for k, v := range s.Data {
		vars[k] = v
	}
	if _, ok := vars["data"]; !ok {
		vars["data"] = s.Data
	}
	if _, ok := vars["metadata"]; !ok {
		vars["metadata"] = s.Metadata
	}
	return vars
}
