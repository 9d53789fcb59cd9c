package stepgraph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph execution.
var (
	// ErrNoStart indicates Run was called before SetStart.
	ErrNoStart = errors.New("no start node defined")

	// ErrNodeNotFound indicates traversal reached a name with no node.
	ErrNodeNotFound = errors.New("node not found in graph")

	// ErrStepBudgetExceeded indicates the run was still active when the
	// step counter reached the budget.
	ErrStepBudgetExceeded = errors.New("exceeded max steps")

	// ErrNilContext indicates Run was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")
)

// NodeNotFoundError reports the unknown node and the step at which
// traversal reached it.
type NodeNotFoundError struct {
	// Name is the node name that has no node behind it.
	Name string
	// Step is the step counter when the lookup failed.
	Step int
}

// Error implements the error interface.
func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node '%s' not found in graph", e.Name)
}

// Unwrap returns ErrNodeNotFound for errors.Is support.
func (e *NodeNotFoundError) Unwrap() error {
	return ErrNodeNotFound
}

// BudgetExceededError reports a runaway run.
type BudgetExceededError struct {
	// Max is the configured step budget.
	Max int
	// NextNode is the node that would have executed next.
	NextNode string
}

// Error implements the error interface.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("workflow exceeded max steps (%d)", e.Max)
}

// Unwrap returns ErrStepBudgetExceeded for errors.Is support.
func (e *BudgetExceededError) Unwrap() error {
	return ErrStepBudgetExceeded
}

// PanicError captures a panic raised by a step or a router.
type PanicError struct {
	// Node is the node whose step (or router) panicked.
	Node string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
	// Router is true when the panic came from the node's router.
	Router bool
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	if e.Router {
		return fmt.Sprintf("router of node %s panicked: %v", e.Node, e.Value)
	}
	return fmt.Sprintf("node %s panicked: %v", e.Node, e.Value)
}

// CancellationError reports that the run's context ended between steps.
type CancellationError struct {
	// Node is the node that was about to execute.
	Node string
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before node %s: %v", e.Node, e.Cause)
}

// Unwrap returns the cause for errors.Is support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}
