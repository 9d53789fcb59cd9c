package stepgraph

import (
	"runtime/debug"
)

// RouterFunc picks the next node from the state left by the source node.
//
// The returned name does not have to exist when the edge is added; an
// unknown name fails the run only when traversal reaches it.
//
// Example:
//
//	func route(ctx stepgraph.Context, s *stepgraph.State) (string, error) {
//	    if s.Data["count"].(int) >= 3 {
//	        return "end", nil
//	    }
//	    return "work", nil
//	}
type RouterFunc func(ctx Context, state *State) (string, error)

// Router wraps a decision function for a conditional edge.
type Router struct {
	fn RouterFunc
}

// NewRouter wraps fn.
func NewRouter(fn RouterFunc) *Router {
	return &Router{fn: fn}
}

// Evaluate returns the name of the next node. Errors from the decision
// function are returned as-is; a panic becomes *PanicError.
func (r *Router) Evaluate(ctx Context, state *State) (next string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			next = ""
			err = &PanicError{
				Node:   ctx.NodeName(),
				Value:  rec,
				Stack:  string(debug.Stack()),
				Router: true,
			}
		}
	}()
	return r.fn(ctx, state)
}

// EdgeKind tags the variant held by an Edge.
type EdgeKind int

const (
	// EdgeFixed always leads to the same destination.
	EdgeFixed EdgeKind = iota
	// EdgeConditional asks a Router for the destination.
	EdgeConditional
)

// String returns the kind name.
func (k EdgeKind) String() string {
	switch k {
	case EdgeFixed:
		return "fixed"
	case EdgeConditional:
		return "conditional"
	default:
		return "unknown"
	}
}

// Edge is the outgoing routing rule of a node: either a fixed destination
// or a conditional Router.
type Edge struct {
	kind   EdgeKind
	to     string
	router *Router
}

// FixedEdge returns an edge that always leads to "to".
func FixedEdge(to string) Edge {
	return Edge{kind: EdgeFixed, to: to}
}

// ConditionalEdge returns an edge routed by r.
func ConditionalEdge(r *Router) Edge {
	return Edge{kind: EdgeConditional, router: r}
}

// Kind reports which variant the edge holds.
func (e Edge) Kind() EdgeKind {
	return e.kind
}

// Target returns the destination of a fixed edge, or "" for a conditional one.
func (e Edge) Target() string {
	return e.to
}

// Router returns the router of a conditional edge, or nil for a fixed one.
func (e Edge) Router() *Router {
	return e.router
}
