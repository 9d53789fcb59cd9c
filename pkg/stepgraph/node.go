package stepgraph

import (
	"runtime/debug"
)

// StepFunc is the signature for node step functions.
//
// A step receives the current state and returns the state that becomes
// current for routing. Returning the same pointer after mutating it is
// fine; returning nil keeps the input state current.
//
// Example:
//
//	func increment(ctx stepgraph.Context, s *stepgraph.State) (*stepgraph.State, error) {
//	    n, _ := s.Data["count"].(int)
//	    s.Data["count"] = n + 1
//	    return s, nil
//	}
type StepFunc func(ctx Context, state *State) (*State, error)

// AsyncStepFunc is a step that completes later on the returned channel.
// Wrap it with Await to use it as a node.
type AsyncStepFunc func(ctx Context, state *State) <-chan StepResult

// StepResult is the outcome delivered by an AsyncStepFunc.
type StepResult struct {
	State *State
	Err   error
}

// Await adapts an asynchronous step into a StepFunc. The returned function
// blocks until the step delivers its result, so the traversal never moves
// on while a step is still in flight.
//
// If the channel is closed without a value the input state is kept. If the
// context is done first, the context error is returned.
func Await(fn AsyncStepFunc) StepFunc {
	return func(ctx Context, state *State) (*State, error) {
		ch := fn(ctx, state)
		if ch == nil {
			return state, nil
		}
		select {
		case res, ok := <-ch:
			if !ok {
				return state, nil
			}
			return res.State, res.Err
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// Identity returns its input unchanged. Useful as a placeholder node.
func Identity(_ Context, state *State) (*State, error) {
	return state, nil
}

// Node is a named, executable step.
type Node struct {
	name        string
	description string
	fn          StepFunc
}

// NewNode creates a node. A nil fn behaves like Identity.
func NewNode(name string, fn StepFunc, description string) *Node {
	return &Node{name: name, description: description, fn: fn}
}

// Name returns the node's routing key.
func (n *Node) Name() string {
	return n.name
}

// Description returns the human-readable description.
func (n *Node) Description() string {
	return n.description
}

// Execute runs the wrapped step against state.
//
// Errors returned by the step are passed through untouched. A panic is
// recovered and reported as *PanicError.
func (n *Node) Execute(ctx Context, state *State) (result *State, err error) {
	if n.fn == nil {
		return state, nil
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				Node:  n.name,
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()

	result, err = n.fn(ctx, state)
	if result == nil {
		result = state
	}
	return result, err
}
