package stepgraph

import (
	"context"
)

// Helper step functions

// increment adds one to Data["count"].
func increment(_ Context, s *State) (*State, error) {
	n, _ := s.Data["count"].(int)
	s.Data["count"] = n + 1
	return s, nil
}

// makeTrackingNode creates a step that records its execution.
func makeTrackingNode(name string, tracker *[]string) StepFunc {
	return func(_ Context, s *State) (*State, error) {
		*tracker = append(*tracker, name)
		visited, _ := s.Data["visited"].([]string)
		s.Data["visited"] = append(visited, name)
		return s, nil
	}
}

// makeFailingNode creates a step that returns the given error.
func makeFailingNode(err error) StepFunc {
	return func(_ Context, s *State) (*State, error) {
		return s, err
	}
}

// makePanicNode creates a step that panics with the given value.
func makePanicNode(value any) StepFunc {
	return func(_ Context, _ *State) (*State, error) {
		panic(value)
	}
}

// routeTo returns a router that always picks name.
func routeTo(name string) RouterFunc {
	return func(_ Context, _ *State) (string, error) {
		return name, nil
	}
}

// recordNames returns the node names of records in order.
func recordNames(records []StepRecord) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.NodeName
	}
	return names
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}
