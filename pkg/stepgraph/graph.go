package stepgraph

import (
	"sort"

	"github.com/google/uuid"
)

// Graph holds nodes, edges, a start node and a set of terminal node names.
//
// Construction methods never validate cross-references: an edge may point
// at a node that is added later, or never. Missing names surface only when
// Run reaches them.
//
// Graph is NOT safe for concurrent mutation. Finish construction in one
// goroutine before sharing the graph; after that any number of goroutines
// may call Run concurrently.
type Graph struct {
	id        string
	nodes     map[string]*Node
	edges     map[string]Edge
	start     string
	terminals []string
}

// GraphOption configures a new Graph.
type GraphOption func(*Graph)

// WithGraphID sets the graph identifier instead of generating one.
func WithGraphID(id string) GraphOption {
	return func(g *Graph) {
		if id != "" {
			g.id = id
		}
	}
}

// NewGraph creates an empty graph with a generated identifier.
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{
		id:    uuid.New().String(),
		nodes: make(map[string]*Node),
		edges: make(map[string]Edge),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ID returns the graph identifier. Traversal does not use it.
func (g *Graph) ID() string {
	return g.id
}

// AddNode inserts or replaces the node at name.
func (g *Graph) AddNode(name string, fn StepFunc, description string) {
	g.nodes[name] = NewNode(name, fn, description)
}

// AddEdge inserts or replaces the outgoing edge of from with a fixed edge.
func (g *Graph) AddEdge(from, to string) {
	g.edges[from] = FixedEdge(to)
}

// AddConditionalEdge inserts or replaces the outgoing edge of from with a
// routed edge.
func (g *Graph) AddConditionalEdge(from string, fn RouterFunc) {
	g.edges[from] = ConditionalEdge(NewRouter(fn))
}

// SetStart sets the start node. The name is not checked here.
func (g *Graph) SetStart(name string) {
	g.start = name
}

// SetEnd marks name as terminal. Marking the same name twice is a no-op.
// Reaching a terminal ends the run without executing it.
func (g *Graph) SetEnd(name string) {
	if g.IsTerminal(name) {
		return
	}
	g.terminals = append(g.terminals, name)
}

// Start returns the start node name, or "" when unset.
func (g *Graph) Start() string {
	return g.start
}

// Terminals returns the terminal names in the order they were added.
func (g *Graph) Terminals() []string {
	out := make([]string, len(g.terminals))
	copy(out, g.terminals)
	return out
}

// IsTerminal reports whether name is a terminal.
func (g *Graph) IsTerminal(name string) bool {
	for _, t := range g.terminals {
		if t == name {
			return true
		}
	}
	return false
}

// HasNode reports whether a node named name exists.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Node returns the node named name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Edge returns the outgoing edge of from.
func (g *Graph) Edge(from string) (Edge, bool) {
	e, ok := g.edges[from]
	return e, ok
}

// NodeNames returns all node names in sorted order.
func (g *Graph) NodeNames() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of outgoing edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}
