// Package codereview is the built-in code review workflow: a handful of
// heuristics over Python source that loop until the quality score clears
// a threshold.
//
// State keys read: code, quality_threshold (default 70), iteration.
// State keys written: functions, function_count, complexity_issues,
// total_complexity, issues, issue_count, suggestions, quality_score,
// iteration. Every tool also sets Metadata["step"] to its own name.
package codereview

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/definition"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/expr"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/tools"
)

// GraphID is the id the server preloads the workflow under.
const GraphID = "code-review-default"

// Tool and router names.
const (
	ToolExtractFunctions    = "extract_functions"
	ToolCheckComplexity     = "check_complexity"
	ToolDetectIssues        = "detect_issues"
	ToolSuggestImprovements = "suggest_improvements"
	ToolCalculateQuality    = "calculate_quality_score"
	ToolNoop                = "noop"
	RouterAfterScore        = "route_after_score"
	EndNode                 = "end"
)

const (
	// DefaultQualityThreshold applies when the state has no quality_threshold.
	DefaultQualityThreshold = 70

	// MaxIterations caps how many times the score is calculated.
	MaxIterations = 3
)

// Register adds the workflow's tools and router to reg.
func Register(reg *tools.Registry) {
	reg.MustRegister(ToolExtractFunctions, ExtractFunctions, "Extract function definitions from code")
	reg.MustRegister(ToolCheckComplexity, CheckComplexity, "Check code complexity")
	reg.MustRegister(ToolDetectIssues, DetectIssues, "Detect basic code issues")
	reg.MustRegister(ToolSuggestImprovements, SuggestImprovements, "Generate improvement suggestions")
	reg.MustRegister(ToolCalculateQuality, CalculateQualityScore, "Calculate overall quality score")
	reg.MustRegister(ToolNoop, stepgraph.Identity, "Pass the state through unchanged")
	reg.MustRegisterRouter(RouterAfterScore, RouteAfterScore, "End once the score meets quality_threshold or after 3 iterations")
}

// NewBuilder returns the workflow wired directly from the step functions.
func NewBuilder() *stepgraph.Builder {
	return stepgraph.NewBuilder(stepgraph.WithGraphID(GraphID)).
		Node(ToolExtractFunctions, ExtractFunctions, "Extract function definitions from code").
		Node(ToolCheckComplexity, CheckComplexity, "Analyze code complexity").
		Node(ToolDetectIssues, DetectIssues, "Detect code smells and issues").
		Node(ToolSuggestImprovements, SuggestImprovements, "Generate improvement suggestions").
		Node(ToolCalculateQuality, CalculateQualityScore, "Calculate overall quality score").
		Node(EndNode, stepgraph.Identity, "End node").
		Edge(ToolExtractFunctions, ToolCheckComplexity).
		Edge(ToolCheckComplexity, ToolDetectIssues).
		Edge(ToolDetectIssues, ToolSuggestImprovements).
		Edge(ToolSuggestImprovements, ToolCalculateQuality).
		ConditionalEdge(ToolCalculateQuality, RouteAfterScore).
		Start(ToolExtractFunctions).
		End(EndNode)
}

// Definition returns the same workflow in declarative form, resolvable
// against a registry populated by Register.
func Definition() *definition.GraphDefinition {
	return &definition.GraphDefinition{
		Name:        "Code Review",
		Description: "Extract functions, score complexity and issues, loop until the quality score is acceptable",
		Nodes: []definition.NodeDefinition{
			{Name: ToolExtractFunctions, Tool: ToolExtractFunctions, Description: "Extract function definitions from code"},
			{Name: ToolCheckComplexity, Tool: ToolCheckComplexity, Description: "Analyze code complexity"},
			{Name: ToolDetectIssues, Tool: ToolDetectIssues, Description: "Detect code smells and issues"},
			{Name: ToolSuggestImprovements, Tool: ToolSuggestImprovements, Description: "Generate improvement suggestions"},
			{Name: ToolCalculateQuality, Tool: ToolCalculateQuality, Description: "Calculate overall quality score"},
			{Name: EndNode, Tool: ToolNoop, Description: "End node"},
		},
		Edges: []definition.EdgeDefinition{
			{From: ToolExtractFunctions, To: ToolCheckComplexity},
			{From: ToolCheckComplexity, To: ToolDetectIssues},
			{From: ToolDetectIssues, To: ToolSuggestImprovements},
			{From: ToolSuggestImprovements, To: ToolCalculateQuality},
			{From: ToolCalculateQuality, Router: RouterAfterScore},
		},
		StartNode: ToolExtractFunctions,
		EndNodes:  []string{EndNode},
	}
}

// ExtractFunctions records each def in code with its line count.
func ExtractFunctions(ctx stepgraph.Context, state *stepgraph.State) (*stepgraph.State, error) {
	code := stringValue(state.Data["code"])

	found := extractFunctions(code)
	functions := make([]map[string]any, 0, len(found))
	for _, fn := range found {
		functions = append(functions, map[string]any{"name": fn.Name, "lines": fn.Lines})
	}

	state.Data["functions"] = functions
	state.Data["function_count"] = len(functions)
	state.Metadata["step"] = ToolExtractFunctions
	ctx.Logger().Debug("functions extracted", "count", len(functions))
	return state, nil
}

// CheckComplexity scores each extracted function for length and nesting.
func CheckComplexity(_ stepgraph.Context, state *stepgraph.State) (*stepgraph.State, error) {
	code := stringValue(state.Data["code"])

	issues := []string{}
	total := 0
	functions := functionList(state.Data["functions"])
	for _, fn := range functions {
		info := functionInfo{
			Name:  stringValue(fn["name"]),
			Lines: intValue(fn["lines"], 0),
		}
		score, found := complexity(code, info)
		fn["complexity_score"] = score
		issues = append(issues, found...)
		total += score
	}

	state.Data["functions"] = functions
	state.Data["complexity_issues"] = issues
	state.Data["total_complexity"] = total
	state.Metadata["step"] = ToolCheckComplexity
	return state, nil
}

// DetectIssues runs the whole-file smell checks.
func DetectIssues(_ stepgraph.Context, state *stepgraph.State) (*stepgraph.State, error) {
	issues := detectIssues(stringValue(state.Data["code"]))

	state.Data["issues"] = issues
	state.Data["issue_count"] = len(issues)
	state.Metadata["step"] = ToolDetectIssues
	return state, nil
}

// SuggestImprovements turns complexity scores and issues into advice.
func SuggestImprovements(_ stepgraph.Context, state *stepgraph.State) (*stepgraph.State, error) {
	functions := functionList(state.Data["functions"])
	suggestions := []string{}

	for _, fn := range functions {
		if intValue(fn["complexity_score"], 0) > refactorComplexity {
			suggestions = append(suggestions,
				fmt.Sprintf("Refactor '%s' - break into smaller functions", stringValue(fn["name"])))
		}
	}

	for _, issue := range stringList(state.Data["issues"]) {
		lower := strings.ToLower(issue)
		if strings.Contains(lower, "docstring") {
			suggestions = append(suggestions, "Add docstrings to all functions and classes")
		}
		if strings.Contains(lower, "print statement") {
			suggestions = append(suggestions, "Replace print() with proper logging")
		}
		if strings.Contains(lower, "except") {
			suggestions = append(suggestions, "Use specific exception types in try-except blocks")
		}
	}

	if len(functions) > maxFunctions {
		suggestions = append(suggestions, "Consider splitting into multiple modules")
	}

	state.Data["suggestions"] = suggestions
	state.Metadata["step"] = ToolSuggestImprovements
	return state, nil
}

// CalculateQualityScore sets quality_score and bumps iteration.
func CalculateQualityScore(ctx stepgraph.Context, state *stepgraph.State) (*stepgraph.State, error) {
	score := qualityScore(
		intValue(state.Data["issue_count"], 0),
		intValue(state.Data["total_complexity"], 0),
	)
	iteration := intValue(state.Data["iteration"], 0) + 1

	state.Data["quality_score"] = score
	state.Data["iteration"] = iteration
	state.Metadata["step"] = ToolCalculateQuality
	ctx.Logger().Debug("quality scored", "score", score, "iteration", iteration)
	return state, nil
}

// RouteAfterScore ends the review once the score reaches the threshold or
// the iteration cap, and loops back to issue detection otherwise.
func RouteAfterScore(_ stepgraph.Context, state *stepgraph.State) (string, error) {
	score := numberValue(state.Data["quality_score"], 0)
	iteration := numberValue(state.Data["iteration"], 0)
	threshold := numberValue(state.Data["quality_threshold"], DefaultQualityThreshold)

	if score >= threshold || iteration >= MaxIterations {
		return EndNode, nil
	}
	return ToolDetectIssues, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// numberValue reads any numeric type, falling back to def for missing or
// non-numeric values.
func numberValue(v any, def float64) float64 {
	if f, ok := expr.AsNumber(v); ok {
		return f
	}
	return def
}

func intValue(v any, def int) int {
	return int(numberValue(v, float64(def)))
}

// functionList accepts the functions value as produced by ExtractFunctions
// or as decoded from JSON.
func functionList(v any) []map[string]any {
	switch list := v.(type) {
	case []map[string]any:
		return list
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
