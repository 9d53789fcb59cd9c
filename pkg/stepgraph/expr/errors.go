package expr

import "fmt"

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	// Pos is the byte offset into the source.
	Pos int
	// Msg describes the problem.
	Msg string
	// Src is the source text, when known.
	Src string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Src != "" {
		return fmt.Sprintf("expr: syntax error at offset %d in %q: %s", e.Pos, e.Src, e.Msg)
	}
	return fmt.Sprintf("expr: syntax error at offset %d: %s", e.Pos, e.Msg)
}

// EvalError reports an operator applied to values it cannot handle.
type EvalError struct {
	Op    string
	Left  any
	Right any
	// Pos is the byte offset of the operator, when known.
	Pos int
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("expr: cannot apply %s to %T and %T", e.Op, e.Left, e.Right)
}
