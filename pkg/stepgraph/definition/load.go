package definition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"
)

// FromFile loads a definition, choosing the format by extension.
// Supported extensions: .json, .yaml, .yml, .hcl
func FromFile(path string) (*GraphDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return FromJSON(data)
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".hcl":
		return FromHCL(data, path)
	default:
		return nil, fmt.Errorf("unsupported definition file extension: %s", ext)
	}
}

// FromJSON parses a JSON definition.
func FromJSON(data []byte) (*GraphDefinition, error) {
	var def GraphDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &def, nil
}

// FromYAML parses a YAML definition.
func FromYAML(data []byte) (*GraphDefinition, error) {
	var def GraphDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &def, nil
}

// hclDocument is the HCL shape of a definition:
//
//	name       = "review"
//	start_node = "extract"
//	end_nodes  = ["end"]
//
//	node "extract" {
//	  tool = "extract_functions"
//	}
//
//	edge "extract" {
//	  to = "score"
//	}
//
//	edge "score" {
//	  router = "route_after_score"
//	}
type hclDocument struct {
	Name        string    `hcl:"name,optional"`
	Description string    `hcl:"description,optional"`
	StartNode   string    `hcl:"start_node"`
	EndNodes    []string  `hcl:"end_nodes,optional"`
	Nodes       []hclNode `hcl:"node,block"`
	Edges       []hclEdge `hcl:"edge,block"`
}

type hclNode struct {
	Name        string `hcl:"name,label"`
	Tool        string `hcl:"tool"`
	Description string `hcl:"description,optional"`
}

type hclEdge struct {
	From      string `hcl:"from,label"`
	To        string `hcl:"to,optional"`
	Condition string `hcl:"condition,optional"`
	Router    string `hcl:"router,optional"`
}

// FromHCL parses an HCL definition. filename is used in diagnostics only.
func FromHCL(src []byte, filename string) (*GraphDefinition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL definition %s: %s", filename, diags.Error())
	}

	var doc hclDocument
	diags = gohcl.DecodeBody(file.Body, nil, &doc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL definition %s: %s", filename, diags.Error())
	}

	def := &GraphDefinition{
		Name:        doc.Name,
		Description: doc.Description,
		StartNode:   doc.StartNode,
		EndNodes:    doc.EndNodes,
		Nodes:       make([]NodeDefinition, 0, len(doc.Nodes)),
		Edges:       make([]EdgeDefinition, 0, len(doc.Edges)),
	}
	for _, n := range doc.Nodes {
		def.Nodes = append(def.Nodes, NodeDefinition(n))
	}
	for _, e := range doc.Edges {
		def.Edges = append(def.Edges, EdgeDefinition(e))
	}
	return def, nil
}
