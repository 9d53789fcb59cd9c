package stepgraph

// Builder assembles a Graph through chained calls.
//
// Example:
//
//	graph := stepgraph.NewBuilder().
//	    Node("fetch", fetch, "Fetch input").
//	    Node("process", process, "Process input").
//	    Edge("fetch", "process").
//	    Start("fetch").
//	    Build()
type Builder struct {
	graph *Graph
}

// NewBuilder starts a new graph.
func NewBuilder(opts ...GraphOption) *Builder {
	return &Builder{graph: NewGraph(opts...)}
}

// Node adds a node. See Graph.AddNode.
func (b *Builder) Node(name string, fn StepFunc, description string) *Builder {
	b.graph.AddNode(name, fn, description)
	return b
}

// Edge adds a fixed edge. See Graph.AddEdge.
func (b *Builder) Edge(from, to string) *Builder {
	b.graph.AddEdge(from, to)
	return b
}

// ConditionalEdge adds a routed edge. See Graph.AddConditionalEdge.
func (b *Builder) ConditionalEdge(from string, fn RouterFunc) *Builder {
	b.graph.AddConditionalEdge(from, fn)
	return b
}

// Start sets the start node.
func (b *Builder) Start(name string) *Builder {
	b.graph.SetStart(name)
	return b
}

// End marks a terminal node.
func (b *Builder) End(name string) *Builder {
	b.graph.SetEnd(name)
	return b
}

// Build returns the assembled graph.
func (b *Builder) Build() *Graph {
	return b.graph
}
