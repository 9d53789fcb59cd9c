// Package definition describes graphs as data and compiles them into
// executable stepgraph graphs.
//
// A GraphDefinition names its steps by tool; Build resolves each tool
// through a tools.Registry. Edges are fixed, conditional (a condition in the
// expr language) or routed (a router registered by name). Nothing in a
// definition can execute code that was not registered beforehand.
//
// Definitions load from JSON, YAML or HCL:
//
//	def, err := definition.FromFile("review.hcl")
//	if err != nil {
//	    return err
//	}
//	graph, err := definition.Build(def, reg)
package definition

import (
	"errors"
	"fmt"
)

// DefaultName is used for definitions that do not set a name.
const DefaultName = "Unnamed Workflow"

// GraphDefinition is the declarative form of a graph.
type GraphDefinition struct {
	Name        string           `json:"name,omitempty" yaml:"name,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []NodeDefinition `json:"nodes" yaml:"nodes"`
	Edges       []EdgeDefinition `json:"edges" yaml:"edges"`
	StartNode   string           `json:"start_node" yaml:"start_node"`
	EndNodes    []string         `json:"end_nodes,omitempty" yaml:"end_nodes,omitempty"`
}

// NodeDefinition binds a node name to a registered tool.
type NodeDefinition struct {
	Name        string `json:"name" yaml:"name"`
	Tool        string `json:"tool" yaml:"tool"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// EdgeDefinition is one outgoing edge.
//
// Exactly one of these forms is allowed:
//   - To only: a fixed edge
//   - To and Condition: taken when the condition holds
//   - Router only: the registered router picks the destination
type EdgeDefinition struct {
	From      string `json:"from_node" yaml:"from_node"`
	To        string `json:"to_node,omitempty" yaml:"to_node,omitempty"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Router    string `json:"router,omitempty" yaml:"router,omitempty"`
}

// DisplayName returns Name, or DefaultName when it is empty.
func (d *GraphDefinition) DisplayName() string {
	if d.Name == "" {
		return DefaultName
	}
	return d.Name
}

// ValidationError reports one problem with a definition.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the definition's shape. It does not resolve tools or
// check that edge targets exist; unknown targets fail at run time.
//
// All problems are returned together, joined with errors.Join.
func (d *GraphDefinition) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if d.StartNode == "" {
		add("start_node", "is required")
	}

	for i, n := range d.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		if n.Name == "" {
			add(field+".name", "is required")
		}
		if n.Tool == "" {
			add(field+".tool", "is required")
		}
	}

	outgoing := make(map[string]int)
	for _, e := range d.Edges {
		outgoing[e.From]++
	}

	for i, e := range d.Edges {
		field := fmt.Sprintf("edges[%d]", i)
		if e.From == "" {
			add(field+".from_node", "is required")
		}
		switch {
		case e.Router != "":
			if e.To != "" || e.Condition != "" {
				add(field, "router edges must not set to_node or condition")
			}
			if outgoing[e.From] > 1 {
				add(field, "router edge must be the only edge from %q", e.From)
			}
		case e.To == "":
			add(field+".to_node", "is required")
		}
	}

	for i, end := range d.EndNodes {
		if end == "" {
			add(fmt.Sprintf("end_nodes[%d]", i), "must not be empty")
		}
	}

	return errors.Join(errs...)
}
