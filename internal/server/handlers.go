package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/randalmurphal/stepgraph/internal/retry"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/definition"
	"github.com/randalmurphal/stepgraph/pkg/stepgraph/runstore"
)

// RunRequest is the body of POST /graph/run. A nil MaxSteps means the
// server default.
type RunRequest struct {
	GraphID      string         `json:"graph_id"`
	InitialState map[string]any `json:"initial_state"`
	MaxSteps     *int           `json:"max_steps"`
}

// RunResponse is returned by a successful POST /graph/run.
type RunResponse struct {
	RunID      string                 `json:"run_id"`
	GraphID    string                 `json:"graph_id"`
	FinalState stepgraph.State        `json:"final_state"`
	Logs       []stepgraph.StepRecord `json:"logs"`
	Status     runstore.Status        `json:"status"`
}

// StateResponse is returned by GET /graph/state/{run_id}.
type StateResponse struct {
	RunID        string                 `json:"run_id"`
	GraphID      string                 `json:"graph_id"`
	CurrentState stepgraph.State        `json:"current_state"`
	Status       runstore.Status        `json:"status"`
	Error        string                 `json:"error,omitempty"`
	Logs         []stepgraph.StepRecord `json:"logs"`
}

// CreateResponse is returned by POST /graph/create.
type CreateResponse struct {
	GraphID string `json:"graph_id"`
	Message string `json:"message"`
}

// GraphSummary is one entry of GET /graph/list.
type GraphSummary struct {
	GraphID   string `json:"graph_id"`
	Name      string `json:"name"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// GraphDetail is returned by GET /graph/{graph_id}.
type GraphDetail struct {
	GraphSummary
	Description string       `json:"description"`
	StartNode   string       `json:"start_node"`
	EndNodes    []string     `json:"end_nodes"`
	Nodes       []NodeDetail `json:"nodes"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NodeDetail describes one node of a graph.
type NodeDetail struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Workflow Engine API",
		"version": Version,
		"endpoints": map[string]string{
			"create_graph": "POST /graph/create",
			"list_graphs":  "GET /graph/list",
			"get_graph":    "GET /graph/{graph_id}",
			"delete_graph": "DELETE /graph/{graph_id}",
			"run_graph":    "POST /graph/run",
			"get_state":    "GET /graph/state/{run_id}",
			"list_runs":    "GET /runs/list",
			"list_tools":   "GET /tools",
			"health":       "GET /health",
			"metrics":      "GET /metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.List(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"graphs": s.graphs.Len(),
		"runs":   len(runs),
		"tools":  s.tools.Len(),
	})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":   s.tools.Descriptions(),
		"routers": s.tools.Routers(),
	})
}

func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	var def definition.GraphDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	graphID := uuid.New().String()
	graph, err := definition.Build(&def, s.tools, definition.WithGraphID(graphID))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := def.DisplayName()
	s.graphs.Put(GraphEntry{
		ID:          graphID,
		Name:        name,
		Description: def.Description,
		Graph:       graph,
	})
	s.logger.Info("graph created", "graph_id", graphID, "name", name, "nodes", graph.NodeCount())

	writeJSON(w, http.StatusOK, CreateResponse{
		GraphID: graphID,
		Message: fmt.Sprintf("Graph '%s' created successfully", name),
	})
}

func summarize(e GraphEntry) GraphSummary {
	return GraphSummary{
		GraphID:   e.ID,
		Name:      e.Name,
		NodeCount: e.Graph.NodeCount(),
		EdgeCount: e.Graph.EdgeCount(),
	}
}

func (s *Server) handleListGraphs(w http.ResponseWriter, _ *http.Request) {
	entries := s.graphs.List()
	out := make([]GraphSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, summarize(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"graphs": out})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "graph_id")
	entry, ok := s.graphs.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Graph '%s' not found", id))
		return
	}

	g := entry.Graph
	nodes := make([]NodeDetail, 0, g.NodeCount())
	for _, name := range g.NodeNames() {
		if n, ok := g.Node(name); ok {
			nodes = append(nodes, NodeDetail{Name: n.Name(), Description: n.Description()})
		}
	}
	writeJSON(w, http.StatusOK, GraphDetail{
		GraphSummary: summarize(entry),
		Description:  entry.Description,
		StartNode:    g.Start(),
		EndNodes:     g.Terminals(),
		Nodes:        nodes,
		CreatedAt:    entry.CreatedAt,
	})
}

func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "graph_id")
	if !s.graphs.Delete(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Graph '%s' not found", id))
		return
	}
	s.logger.Info("graph deleted", "graph_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRunGraph(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	maxSteps := s.cfg.DefaultMaxSteps
	if req.MaxSteps != nil {
		if *req.MaxSteps < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("max_steps must be at least 1, got %d", *req.MaxSteps))
			return
		}
		maxSteps = *req.MaxSteps
	}

	entry, ok := s.graphs.Get(req.GraphID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Graph '%s' not found", req.GraphID))
		return
	}

	runID := uuid.New().String()
	ctx := stepgraph.NewContext(r.Context(),
		stepgraph.WithLogger(s.logger),
		stepgraph.WithContextRunID(runID))

	started := time.Now()
	final, records, runErr := entry.Graph.Run(ctx, stepgraph.NewState(req.InitialState),
		stepgraph.WithMaxSteps(maxSteps),
		stepgraph.WithObservabilityLogger(s.logger))

	run := runstore.NewRecord(runID, entry.ID, started, final, records, runErr)
	s.metrics.RecordRun(string(run.Status), time.Since(started), len(records))

	// A client that disconnected cancels the run; its record is still saved.
	saveCtx := context.WithoutCancel(r.Context())
	attempts, err := retry.Do(saveCtx, s.cfg.saveRetry(), func(ctx context.Context) error {
		return s.runs.Save(ctx, run)
	})
	if attempts > 1 {
		s.logger.Warn("run save retried", "run_id", runID, "attempts", attempts)
	}
	if err != nil {
		s.logger.Error("failed to store run", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("store run: %v", err))
		return
	}

	if runErr != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Workflow execution failed: %v", runErr))
		return
	}

	writeJSON(w, http.StatusOK, RunResponse{
		RunID:      runID,
		GraphID:    entry.ID,
		FinalState: run.FinalState,
		Logs:       run.Logs,
		Status:     run.Status,
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "run_id")
	run, err := s.runs.Load(r.Context(), id)
	if errors.Is(err, runstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Run '%s' not found", id))
		return
	}
	if err != nil {
		s.logger.Error("failed to load run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StateResponse{
		RunID:        run.RunID,
		GraphID:      run.GraphID,
		CurrentState: run.FinalState,
		Status:       run.Status,
		Error:        run.Error,
		Logs:         run.Logs,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
