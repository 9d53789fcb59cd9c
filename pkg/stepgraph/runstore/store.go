// Package runstore keeps the history of graph runs: final state, step log
// and outcome, keyed by run ID.
//
// Three backends share one contract:
//   - MemoryStore for tests and single-process servers
//   - SQLiteStore for durable single-node deployments
//   - RedisStore for shared deployments, with optional expiry
package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/stepgraph/pkg/stepgraph"
)

// Sentinel errors for run store operations.
var (
	// ErrNotFound indicates a run doesn't exist.
	ErrNotFound = errors.New("run not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("run store closed")

	// ErrInvalidRun indicates a nil run or a run without an ID.
	ErrInvalidRun = errors.New("invalid run")
)

// Store persists runs. Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a run, replacing any run with the same ID.
	Save(ctx context.Context, run *Run) error

	// Load retrieves a run.
	// Returns ErrNotFound if the run doesn't exist.
	Load(ctx context.Context, runID string) (*Run, error)

	// List returns summaries of all runs, oldest first.
	// Returns an empty slice (not error) if there are no runs.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes a run.
	// Returns nil if the run doesn't exist.
	Delete(ctx context.Context, runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Status is the outcome of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one stored execution.
type Run struct {
	RunID      string                 `json:"run_id"`
	GraphID    string                 `json:"graph_id"`
	Status     Status                 `json:"status"`
	FinalState stepgraph.State        `json:"final_state"`
	Logs       []stepgraph.StepRecord `json:"logs"`
	Error      string                 `json:"error,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	FinishedAt time.Time              `json:"finished_at"`
}

// Summary is the listing view of a run.
type Summary struct {
	RunID     string    `json:"run_id"`
	GraphID   string    `json:"graph_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary returns the listing view of r.
func (r *Run) Summary() Summary {
	return Summary{
		RunID:     r.RunID,
		GraphID:   r.GraphID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

// NewRecord converts the output of Graph.Run into a Run. A non-nil runErr
// marks the run failed and keeps its message; the records gathered before
// the failure are kept either way.
//
// Example:
//
//	started := time.Now()
//	final, records, err := graph.Run(ctx, initial)
//	run := runstore.NewRecord(ctx.RunID(), graph.ID(), started, final, records, err)
//	_ = store.Save(ctx, run)
func NewRecord(runID, graphID string, createdAt time.Time, final *stepgraph.State, logs []stepgraph.StepRecord, runErr error) *Run {
	run := &Run{
		RunID:      runID,
		GraphID:    graphID,
		Status:     StatusCompleted,
		FinalState: final.Snapshot(),
		Logs:       logs,
		CreatedAt:  createdAt.UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if run.Logs == nil {
		run.Logs = []stepgraph.StepRecord{}
	}
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}
	return run
}

func validate(run *Run) error {
	if run == nil {
		return fmt.Errorf("%w: nil run", ErrInvalidRun)
	}
	if run.RunID == "" {
		return fmt.Errorf("%w: empty run id", ErrInvalidRun)
	}
	return nil
}

func encode(run *Run) ([]byte, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("marshal run: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Run, error) {
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &run, nil
}
