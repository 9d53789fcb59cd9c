package server

import (
	"time"

	"github.com/randalmurphal/stepgraph/internal/codereview"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/registry"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/tools"
)

// GraphEntry is a graph registered with the server.
type GraphEntry struct {
	ID          string
	Name        string
	Description string
	Graph       *stepgraph.Graph
	CreatedAt   time.Time
}

// GraphStore holds the server's graphs by id. It is safe for concurrent use.
type GraphStore struct {
	entries *registry.Registry[string, GraphEntry]
}

// NewGraphStore creates an empty store.
func NewGraphStore() *GraphStore {
	return &GraphStore{entries: registry.New[string, GraphEntry]()}
}

// Put adds or replaces the entry with entry.ID.
func (s *GraphStore) Put(entry GraphEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.entries.Register(entry.ID, entry)
}

// Get returns the entry for id.
func (s *GraphStore) Get(id string) (GraphEntry, bool) {
	return s.entries.Get(id)
}

// Delete removes id and reports whether it was present.
func (s *GraphStore) Delete(id string) bool {
	return s.entries.Delete(id)
}

// List returns all entries ordered by id.
func (s *GraphStore) List() []GraphEntry {
	out := make([]GraphEntry, 0, s.entries.Len())
	s.entries.Range(func(_ string, e GraphEntry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Len returns the number of graphs.
func (s *GraphStore) Len() int {
	return s.entries.Len()
}

// PreloadDefaults registers the built-in workflow's tools in reg and its
// graph in graphs under codereview.GraphID.
func PreloadDefaults(graphs *GraphStore, reg *tools.Registry) {
	codereview.Register(reg)
	def := codereview.Definition()
	graphs.Put(GraphEntry{
		ID:          codereview.GraphID,
		Name:        def.Name,
		Description: def.Description,
		Graph:       codereview.NewBuilder().Build(),
	})
}
