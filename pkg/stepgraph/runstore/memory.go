package runstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory run store.
// Data is lost when the process exits.
//
// Runs are kept in their JSON form so a loaded run never aliases the saved
// one, and values come back with the same types the other backends produce.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]storedRun
	closed bool
}

type storedRun struct {
	summary Summary
	data    []byte
}

// NewMemoryStore creates a new in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]storedRun),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, run *Run) error {
	if err := validate(run); err != nil {
		return err
	}
	data, err := encode(run)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.runs[run.RunID] = storedRun{summary: run.Summary(), data: data}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, runID string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	stored, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return decode(stored.data)
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := make([]Summary, 0, len(m.runs))
	for _, stored := range m.runs {
		out = append(out, stored.summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	return out, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.runs, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.runs = nil
	return nil
}
