package expr

import (
	"fmt"
)

// node is a parsed expression tree element.
type node interface {
	eval(vars map[string]any) (any, error)
}

type literalNode struct {
	value any
}

type segment struct {
	key     string
	index   int
	isIndex bool
}

type pathNode struct {
	name     string
	segments []segment
}

type notNode struct {
	x node
}

type logicNode struct {
	and  bool
	l, r node
}

type compareNode struct {
	op     string
	l, r   node
	custom BinaryOp
	pos    int
}

// parser is a recursive-descent parser over a token slice.
type parser struct {
	toks      []token
	pos       int
	customOps map[string]BinaryOp
}

func parse(src string, customOps map[string]BinaryOp) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return literalNode{value: false}, nil
	}

	p := &parser{toks: toks, customOps: customOps}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.unexpected(tok)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isKeyword(word string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && tok.text == word
}

func (p *parser) unexpected(tok token) error {
	if tok.kind == tokEOF {
		return &SyntaxError{Pos: tok.pos, Msg: "unexpected end of expression"}
	}
	return &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = logicNode{and: false, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = logicNode{and: true, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	tok := p.peek()
	if (tok.kind == tokOp && tok.text == "!") || (tok.kind == tokIdent && tok.text == "not") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{x: x}, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	tok := p.peek()
	var op string
	var custom BinaryOp
	switch {
	case tok.kind == tokOp && tok.text != "!":
		op = tok.text
	case tok.kind == tokIdent && (tok.text == "contains" || tok.text == "in"):
		op = tok.text
	case tok.kind == tokIdent && p.customOps[tok.text] != nil:
		op = tok.text
		custom = p.customOps[tok.text]
	default:
		return left, nil
	}
	p.next()

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return compareNode{op: op, l: left, r: right, custom: custom, pos: tok.pos}, nil
}

var reserved = map[string]bool{
	"and": true, "or": true, "not": true, "contains": true, "in": true,
}

func (p *parser) parseOperand() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokString:
		return literalNode{value: tok.str}, nil
	case tokNumber:
		return literalNode{value: tok.num}, nil
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &SyntaxError{Pos: closing.pos, Msg: "expected ')'"}
		}
		return inner, nil
	case tokIdent:
		switch tok.text {
		case "true":
			return literalNode{value: true}, nil
		case "false":
			return literalNode{value: false}, nil
		case "null", "nil":
			return literalNode{value: nil}, nil
		}
		if reserved[tok.text] || p.customOps[tok.text] != nil {
			return nil, p.unexpected(tok)
		}
		return p.parsePath(tok.text)
	default:
		return nil, p.unexpected(tok)
	}
}

func (p *parser) parsePath(name string) (node, error) {
	path := pathNode{name: name}
	for {
		switch p.peek().kind {
		case tokDot:
			p.next()
			key := p.next()
			if key.kind != tokIdent {
				return nil, &SyntaxError{Pos: key.pos, Msg: "expected field name after '.'"}
			}
			path.segments = append(path.segments, segment{key: key.text})

		case tokLBracket:
			p.next()
			sub := p.next()
			switch {
			case sub.kind == tokString:
				path.segments = append(path.segments, segment{key: sub.str})
			case sub.kind == tokNumber:
				idx, ok := sub.num.(int64)
				if !ok {
					return nil, &SyntaxError{Pos: sub.pos, Msg: "index must be an integer"}
				}
				path.segments = append(path.segments, segment{index: int(idx), isIndex: true})
			default:
				return nil, &SyntaxError{Pos: sub.pos, Msg: "expected string or integer inside '[]'"}
			}
			if closing := p.next(); closing.kind != tokRBracket {
				return nil, &SyntaxError{Pos: closing.pos, Msg: "expected ']'"}
			}

		default:
			return path, nil
		}
	}
}
