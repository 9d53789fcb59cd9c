package benchmarks

import (
	"testing"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/definition"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/tools"
)

// noopNode does minimal work to measure framework overhead.
func noopNode(_ stepgraph.Context, s *stepgraph.State) (*stepgraph.State, error) {
	return s, nil
}

// BenchmarkNewGraph measures graph creation overhead.
func BenchmarkNewGraph(b *testing.B) {
	for i := 0; i < b.N; i++ {
		stepgraph.NewGraph()
	}
}

// BenchmarkAddNode_10 measures adding 10 nodes.
func BenchmarkAddNode_10(b *testing.B) {
	for i := 0; i < b.N; i++ {
		graph := stepgraph.NewGraph()
		for j := 0; j < 10; j++ {
			graph.AddNode(nodeID(j), noopNode, "")
		}
	}
}

// BenchmarkAddNode_100 measures adding 100 nodes.
func BenchmarkAddNode_100(b *testing.B) {
	for i := 0; i < b.N; i++ {
		graph := stepgraph.NewGraph()
		for j := 0; j < 100; j++ {
			graph.AddNode(nodeID(j), noopNode, "")
		}
	}
}

// BenchmarkDefinitionBuild_10 builds a 10-node graph from a definition.
func BenchmarkDefinitionBuild_10(b *testing.B) {
	reg := tools.NewRegistry()
	reg.MustRegister("noop", noopNode, "")
	def := linearDefinition(10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := definition.Build(def, reg); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDefinitionBuild_Conditions builds a graph whose edges compile
// condition expressions.
func BenchmarkDefinitionBuild_Conditions(b *testing.B) {
	reg := tools.NewRegistry()
	reg.MustRegister("noop", noopNode, "")
	def := &definition.GraphDefinition{
		StartNode: "start",
		Nodes: []definition.NodeDefinition{
			{Name: "start", Tool: "noop"},
			{Name: "high", Tool: "noop"},
			{Name: "low", Tool: "noop"},
		},
		Edges: []definition.EdgeDefinition{
			{From: "start", To: "high", Condition: "score >= 80 and not flagged"},
			{From: "start", To: "low"},
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := definition.Build(def, reg); err != nil {
			b.Fatal(err)
		}
	}
}

// Helper functions

func nodeID(n int) string {
	return string(rune('a'+n%26)) + string(rune('0'+n/26%10))
}

func buildLinearGraph(n int) *stepgraph.Graph {
	b := stepgraph.NewBuilder()
	for i := 0; i < n; i++ {
		b.Node(nodeID(i), noopNode, "")
	}
	for i := 0; i < n-1; i++ {
		b.Edge(nodeID(i), nodeID(i+1))
	}
	return b.Start(nodeID(0)).Build()
}

func linearDefinition(n int) *definition.GraphDefinition {
	def := &definition.GraphDefinition{StartNode: nodeID(0)}
	for i := 0; i < n; i++ {
		def.Nodes = append(def.Nodes, definition.NodeDefinition{Name: nodeID(i), Tool: "noop"})
	}
	for i := 0; i < n-1; i++ {
		def.Edges = append(def.Edges, definition.EdgeDefinition{From: nodeID(i), To: nodeID(i + 1)})
	}
	return def
}

func buildBranchingGraph() *stepgraph.Graph {
	router := func(_ stepgraph.Context, s *stepgraph.State) (string, error) {
		if v, _ := s.Data["value"].(int); v%2 == 0 {
			return "even", nil
		}
		return "odd", nil
	}

	return stepgraph.NewBuilder().
		Node("start", noopNode, "").
		Node("even", noopNode, "").
		Node("odd", noopNode, "").
		Node("merge", noopNode, "").
		ConditionalEdge("start", router).
		Edge("even", "merge").
		Edge("odd", "merge").
		Start("start").
		Build()
}

func buildLoopGraph(iterations int) *stepgraph.Graph {
	loop := func(_ stepgraph.Context, s *stepgraph.State) (*stepgraph.State, error) {
		v, _ := s.Data["value"].(int)
		s.Data["value"] = v + 1
		return s, nil
	}
	router := func(_ stepgraph.Context, s *stepgraph.State) (string, error) {
		if v, _ := s.Data["value"].(int); v >= iterations {
			return "done", nil
		}
		return "loop", nil
	}

	return stepgraph.NewBuilder().
		Node("loop", loop, "").
		ConditionalEdge("loop", router).
		Start("loop").
		End("done").
		Build()
}
