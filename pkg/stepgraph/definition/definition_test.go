package definition

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/expr"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/tools"
)

func counterRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	reg.MustRegister("increment", func(_ stepgraph.Context, s *stepgraph.State) (*stepgraph.State, error) {
		n, _ := s.Data["count"].(int)
		s.Data["count"] = n + 1
		return s, nil
	}, "Adds one to count")
	reg.MustRegister("noop", stepgraph.Identity, "Does nothing")
	reg.MustRegisterRouter("until_three", func(_ stepgraph.Context, s *stepgraph.State) (string, error) {
		if s.Data["count"].(int) >= 3 {
			return "end", nil
		}
		return "inc", nil
	}, "Loops until count reaches three")
	return reg
}

func run(t *testing.T, g *stepgraph.Graph, data map[string]any) (*stepgraph.State, []stepgraph.StepRecord, error) {
	t.Helper()
	return g.Run(stepgraph.NewContext(context.Background()), stepgraph.NewState(data))
}

func names(records []stepgraph.StepRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.NodeName
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		def    GraphDefinition
		fields []string
	}{
		{
			name: "valid",
			def: GraphDefinition{
				Nodes:     []NodeDefinition{{Name: "a", Tool: "noop"}},
				Edges:     []EdgeDefinition{{From: "a", To: "end"}},
				StartNode: "a",
			},
		},
		{
			name:   "missing start",
			def:    GraphDefinition{Nodes: []NodeDefinition{{Name: "a", Tool: "noop"}}},
			fields: []string{"start_node"},
		},
		{
			name: "node without name and tool",
			def: GraphDefinition{
				Nodes:     []NodeDefinition{{}},
				StartNode: "a",
			},
			fields: []string{"nodes[0].name", "nodes[0].tool"},
		},
		{
			name: "edge without target",
			def: GraphDefinition{
				Edges:     []EdgeDefinition{{From: "a"}},
				StartNode: "a",
			},
			fields: []string{"edges[0].to_node"},
		},
		{
			name: "router edge with siblings",
			def: GraphDefinition{
				Edges: []EdgeDefinition{
					{From: "a", Router: "r"},
					{From: "a", To: "b"},
				},
				StartNode: "a",
			},
			fields: []string{"edges[0]"},
		},
		{
			name: "router edge with target",
			def: GraphDefinition{
				Edges:     []EdgeDefinition{{From: "a", Router: "r", To: "b"}},
				StartNode: "a",
			},
			fields: []string{"edges[0]"},
		},
		{
			name: "empty end node and source",
			def: GraphDefinition{
				Edges:     []EdgeDefinition{{To: "b"}},
				StartNode: "a",
				EndNodes:  []string{""},
			},
			fields: []string{"edges[0].from_node", "end_nodes[0]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)

			var got []string
			for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
				var ve *ValidationError
				require.True(t, errors.As(e, &ve))
				got = append(got, ve.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Unnamed Workflow", (&GraphDefinition{}).DisplayName())
	assert.Equal(t, "Review", (&GraphDefinition{Name: "Review"}).DisplayName())
}

func TestBuild_FixedEdges(t *testing.T) {
	def := &GraphDefinition{
		Nodes: []NodeDefinition{
			{Name: "a", Tool: "increment"},
			{Name: "b", Tool: "increment"},
			{Name: "c", Tool: "increment"},
		},
		Edges: []EdgeDefinition{
			{From: "a", To: "b"},
			{From: "a", To: "c"}, // last one wins
		},
		StartNode: "a",
	}

	g, err := Build(def, counterRegistry(t), WithGraphID("fixed"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", g.ID())

	final, records, err := run(t, g, map[string]any{"count": 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, names(records))
	assert.Equal(t, 2, final.Data["count"])
}

func TestBuild_DescriptionFallsBackToTool(t *testing.T) {
	def := &GraphDefinition{
		Nodes: []NodeDefinition{
			{Name: "a", Tool: "increment"},
			{Name: "b", Tool: "noop", Description: "Custom"},
		},
		StartNode: "a",
	}

	g, err := Build(def, counterRegistry(t))
	require.NoError(t, err)

	a, _ := g.Node("a")
	b, _ := g.Node("b")
	assert.Equal(t, "Adds one to count", a.Description())
	assert.Equal(t, "Custom", b.Description())
}

func TestBuild_NamedRouter(t *testing.T) {
	def := &GraphDefinition{
		Nodes:     []NodeDefinition{{Name: "inc", Tool: "increment"}},
		Edges:     []EdgeDefinition{{From: "inc", Router: "until_three"}},
		StartNode: "inc",
		EndNodes:  []string{"end"},
	}

	g, err := Build(def, counterRegistry(t))
	require.NoError(t, err)

	final, records, err := run(t, g, map[string]any{"count": 0})
	require.NoError(t, err)
	assert.Equal(t, 3, final.Data["count"])
	assert.Len(t, records, 3)
}

func TestBuild_Conditions(t *testing.T) {
	def := &GraphDefinition{
		Nodes: []NodeDefinition{
			{Name: "inc", Tool: "increment"},
			{Name: "high", Tool: "noop"},
			{Name: "low", Tool: "noop"},
		},
		Edges: []EdgeDefinition{
			{From: "inc", To: "high", Condition: "count >= 10"},
			{From: "inc", To: "low", Condition: "data['count'] < 3"},
			{From: "inc", To: "inc"},
		},
		StartNode: "inc",
	}

	g, err := Build(def, counterRegistry(t))
	require.NoError(t, err)

	tests := []struct {
		start    int
		expected []string
	}{
		{9, []string{"inc", "high"}},
		{0, []string{"inc", "low"}},
		// count 4 matches nothing and falls back to inc until it reaches 10.
		{4, []string{"inc", "inc", "inc", "inc", "inc", "inc", "high"}},
	}
	for _, tt := range tests {
		_, records, err := run(t, g, map[string]any{"count": tt.start})
		require.NoError(t, err)
		assert.Equal(t, tt.expected, names(records), "start %d", tt.start)
	}
}

func TestBuild_NoRoute(t *testing.T) {
	def := &GraphDefinition{
		Nodes: []NodeDefinition{{Name: "a", Tool: "noop"}},
		Edges: []EdgeDefinition{
			{From: "a", To: "b", Condition: "ready"},
		},
		StartNode: "a",
	}

	g, err := Build(def, counterRegistry(t))
	require.NoError(t, err)

	_, records, err := run(t, g, map[string]any{"ready": false})
	var noRoute *NoRouteError
	require.ErrorAs(t, err, &noRoute)
	assert.Equal(t, "a", noRoute.From)
	assert.Len(t, records, 1)
}

func TestBuild_ConditionEvalError(t *testing.T) {
	def := &GraphDefinition{
		Nodes:     []NodeDefinition{{Name: "a", Tool: "noop"}},
		Edges:     []EdgeDefinition{{From: "a", To: "b", Condition: "label > 3"}},
		StartNode: "a",
	}

	g, err := Build(def, counterRegistry(t))
	require.NoError(t, err)

	_, _, err = run(t, g, map[string]any{"label": "x"})
	var condErr *ConditionError
	require.ErrorAs(t, err, &condErr)
	assert.Equal(t, "label > 3", condErr.Condition)

	var evalErr *expr.EvalError
	assert.ErrorAs(t, err, &evalErr)
}

func TestBuild_Errors(t *testing.T) {
	reg := counterRegistry(t)

	t.Run("nil definition", func(t *testing.T) {
		_, err := Build(nil, reg)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := Build(&GraphDefinition{
			Nodes:     []NodeDefinition{{Name: "a", Tool: "missing"}},
			StartNode: "a",
		}, reg)
		assert.ErrorIs(t, err, tools.ErrToolNotFound)
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("unknown router", func(t *testing.T) {
		_, err := Build(&GraphDefinition{
			Nodes:     []NodeDefinition{{Name: "a", Tool: "noop"}},
			Edges:     []EdgeDefinition{{From: "a", Router: "missing"}},
			StartNode: "a",
		}, reg)
		assert.ErrorIs(t, err, tools.ErrRouterNotFound)
	})

	t.Run("bad condition", func(t *testing.T) {
		_, err := Build(&GraphDefinition{
			Nodes:     []NodeDefinition{{Name: "a", Tool: "noop"}},
			Edges:     []EdgeDefinition{{From: "a", To: "b", Condition: "__import__('os').system('x')"}},
			StartNode: "a",
		}, reg)
		var se *expr.SyntaxError
		assert.ErrorAs(t, err, &se)
	})

	t.Run("invalid shape", func(t *testing.T) {
		_, err := Build(&GraphDefinition{}, reg)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestBuild_CustomOperator(t *testing.T) {
	ev := expr.New(expr.WithCustomOperator("divisible_by", func(l, r any) bool {
		return int(expr.ToFloat64(l))%int(expr.ToFloat64(r)) == 0
	}))

	def := &GraphDefinition{
		Nodes: []NodeDefinition{
			{Name: "a", Tool: "noop"},
			{Name: "even", Tool: "noop"},
		},
		Edges:     []EdgeDefinition{{From: "a", To: "even", Condition: "n divisible_by 2"}},
		StartNode: "a",
	}

	_, err := Build(def, counterRegistry(t))
	require.Error(t, err)

	g, err := Build(def, counterRegistry(t), WithEvaluator(ev))
	require.NoError(t, err)

	_, records, err := run(t, g, map[string]any{"n": 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "even"}, names(records))
}

func TestConditionVars(t *testing.T) {
	s := stepgraph.NewState(map[string]any{"x": 1})
	s.Metadata["step"] = "extract"

	vars := ConditionVars(s)
	assert.Equal(t, 1, vars["x"])
	assert.Equal(t, s.Data, vars["data"])
	assert.Equal(t, s.Metadata, vars["metadata"])

	shadow := stepgraph.NewState(map[string]any{"data": "mine"})
	assert.Equal(t, "mine", ConditionVars(shadow)["data"])
}

const yamlDef = `
name: Counter
start_node: inc
end_nodes: [end]
nodes:
  - name: inc
    tool: increment
edges:
  - from_node: inc
    router: until_three
`

const jsonDef = `{
  "name": "Counter",
  "start_node": "inc",
  "end_nodes": ["end"],
  "nodes": [{"name": "inc", "tool": "increment"}],
  "edges": [{"from_node": "inc", "router": "until_three"}]
}`

const hclDef = `
name       = "Counter"
start_node = "inc"
end_nodes  = ["end"]

node "inc" {
  tool = "increment"
}

edge "inc" {
  router = "until_three"
}
`

func TestLoaders_Equivalent(t *testing.T) {
	fromYAML, err := FromYAML([]byte(yamlDef))
	require.NoError(t, err)
	fromJSON, err := FromJSON([]byte(jsonDef))
	require.NoError(t, err)
	fromHCL, err := FromHCL([]byte(hclDef), "counter.hcl")
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
	assert.Equal(t, fromJSON, fromHCL)

	g, err := Build(fromHCL, counterRegistry(t))
	require.NoError(t, err)
	final, _, err := run(t, g, map[string]any{"count": 0})
	require.NoError(t, err)
	assert.Equal(t, 3, final.Data["count"])
}

func TestFromHCL_Conditions(t *testing.T) {
	src := `
start_node = "a"

node "a" {
  tool        = "noop"
  description = "first"
}

edge "a" {
  to        = "b"
  condition = "score >= 70"
}

edge "a" {
  to = "a"
}
`
	def, err := FromHCL([]byte(src), "cond.hcl")
	require.NoError(t, err)
	assert.Equal(t, []NodeDefinition{{Name: "a", Tool: "noop", Description: "first"}}, def.Nodes)
	assert.Equal(t, []EdgeDefinition{
		{From: "a", To: "b", Condition: "score >= 70"},
		{From: "a", To: "a"},
	}, def.Edges)
}

func TestFromHCL_Errors(t *testing.T) {
	_, err := FromHCL([]byte(`node "a" {`), "broken.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.hcl")

	_, err = FromHCL([]byte(`node "a" { tool = "x" }`), "nostart.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"g.json": jsonDef,
		"g.yaml": yamlDef,
		"g.yml":  yamlDef,
		"g.hcl":  hclDef,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		def, err := FromFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, "Counter", def.Name, name)
	}

	bad := filepath.Join(dir, "g.toml")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o600))
	_, err := FromFile(bad)
	assert.ErrorContains(t, err, "unsupported")

	_, err = FromFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := FromJSON([]byte("{"))
	assert.Error(t, err)
	_, err = FromYAML([]byte("nodes: ["))
	assert.Error(t, err)
}
