package expr

import (
	"strings"
)

// BinaryOp is a function that compares two values and returns a boolean result.
type BinaryOp func(left, right any) bool

// Evaluator compiles and evaluates expressions with optional custom operators.
type Evaluator struct {
	customOps map[string]BinaryOp
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCustomOperator registers a custom binary operator. name must be a
// plain identifier. Built-in operator and keyword names are ignored.
func WithCustomOperator(name string, fn BinaryOp) Option {
	return func(e *Evaluator) {
		if fn == nil || reserved[name] || !validIdent(name) {
			return
		}
		switch name {
		case "true", "false", "null", "nil":
			return
		}
		if e.customOps == nil {
			e.customOps = make(map[string]BinaryOp)
		}
		e.customOps[name] = fn
	}
}

// New creates a new Evaluator with the given options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compile parses src into a reusable Expression.
func (e *Evaluator) Compile(src string) (*Expression, error) {
	root, err := parse(src, e.customOps)
	if err != nil {
		if se, ok := err.(*SyntaxError); ok {
			se.Src = src
		}
		return nil, err
	}
	return &Expression{src: strings.TrimSpace(src), root: root}, nil
}

// Evaluate compiles and evaluates expr against vars in one call.
func (e *Evaluator) Evaluate(expr string, vars map[string]any) (bool, error) {
	compiled, err := e.Compile(expr)
	if err != nil {
		return false, err
	}
	return compiled.Eval(vars)
}

// Compile parses src with an evaluator built from opts.
//
// Example:
//
//	cond, err := expr.Compile("quality_score >= 70 or iteration >= 3")
//	if err != nil {
//	    return err
//	}
//	ok, err := cond.Eval(state.Data)
func Compile(src string, opts ...Option) (*Expression, error) {
	return New(opts...).Compile(src)
}

// Eval is a convenience function that evaluates an expression using
// the default evaluator (no custom operators).
func Eval(expr string, vars map[string]any) (bool, error) {
	return New().Evaluate(expr, vars)
}

// Expression is a compiled condition. It is immutable and safe for
// concurrent use.
type Expression struct {
	src  string
	root node
}

// String returns the source text.
func (x *Expression) String() string {
	return x.src
}

// Eval evaluates the expression and converts the result with IsTruthy.
func (x *Expression) Eval(vars map[string]any) (bool, error) {
	v, err := x.root.eval(vars)
	if err != nil {
		return false, err
	}
	return IsTruthy(v), nil
}

// Evaluate returns the raw result. A bare path evaluates to the value it
// points at; comparisons and logical operators evaluate to bool.
func (x *Expression) Evaluate(vars map[string]any) (any, error) {
	return x.root.eval(vars)
}

func (n literalNode) eval(_ map[string]any) (any, error) {
	return n.value, nil
}

func (n pathNode) eval(vars map[string]any) (any, error) {
	v, ok := vars[n.name]
	if !ok {
		return nil, nil
	}
	for _, seg := range n.segments {
		if seg.isIndex {
			v = index(v, seg.index)
		} else {
			v = field(v, seg.key)
		}
		if v == nil {
			return nil, nil
		}
	}
	return v, nil
}

func (n notNode) eval(vars map[string]any) (any, error) {
	v, err := n.x.eval(vars)
	if err != nil {
		return nil, err
	}
	return !IsTruthy(v), nil
}

func (n logicNode) eval(vars map[string]any) (any, error) {
	l, err := n.l.eval(vars)
	if err != nil {
		return nil, err
	}
	lt := IsTruthy(l)
	if n.and && !lt {
		return false, nil
	}
	if !n.and && lt {
		return true, nil
	}
	r, err := n.r.eval(vars)
	if err != nil {
		return nil, err
	}
	return IsTruthy(r), nil
}

func (n compareNode) eval(vars map[string]any) (any, error) {
	l, err := n.l.eval(vars)
	if err != nil {
		return nil, err
	}
	r, err := n.r.eval(vars)
	if err != nil {
		return nil, err
	}
	if n.custom != nil {
		return n.custom(l, r), nil
	}
	ok, err := Compare(l, r, n.op)
	if err != nil {
		if ee, isEval := err.(*EvalError); isEval {
			ee.Pos = n.pos
		}
		return nil, err
	}
	return ok, nil
}

func validIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}
