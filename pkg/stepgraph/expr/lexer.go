package expr

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokDot
)

type token struct {
	kind tokenKind
	text string // identifier, operator or raw number text
	str  string // decoded value of a string literal
	num  any    // int64 or float64 for tokNumber
	pos  int
}

// lex splits src into tokens. The final token is always tokEOF.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == '[':
			toks = append(toks, token{kind: tokLBracket, text: "[", pos: i})
			i++
		case c == ']':
			toks = append(toks, token{kind: tokRBracket, text: "]", pos: i})
			i++
		case c == '.' && !(i+1 < len(src) && isDigit(src[i+1])):
			toks = append(toks, token{kind: tokDot, text: ".", pos: i})
			i++

		case c == '=' || c == '!' || c == '<' || c == '>':
			op := string(c)
			if i+1 < len(src) && src[i+1] == '=' {
				op += "="
			}
			if op == "=" {
				return nil, &SyntaxError{Pos: i, Msg: "unexpected '=' (use '==')"}
			}
			toks = append(toks, token{kind: tokOp, text: op, pos: i})
			i += len(op)

		case c == '\'' || c == '"':
			s, n, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, str: s, text: src[i : i+n], pos: i})
			i += n

		case isDigit(c) || c == '.' || (c == '-' && i+1 < len(src) && (isDigit(src[i+1]) || src[i+1] == '.')):
			tok, n, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i += n

		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})

		default:
			return nil, &SyntaxError{Pos: i, Msg: "unexpected character " + strconv.QuoteRune(rune(c))}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func lexString(src string, start int) (string, int, error) {
	quote := src[start]
	var b strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == quote:
			return b.String(), i - start + 1, nil
		case c == '\\':
			if i+1 >= len(src) {
				return "", 0, &SyntaxError{Pos: i, Msg: "unterminated escape"}
			}
			switch esc := src[i+1]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				return "", 0, &SyntaxError{Pos: i, Msg: "unknown escape \\" + string(esc)}
			}
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, &SyntaxError{Pos: start, Msg: "unterminated string"}
}

func lexNumber(src string, start int) (token, int, error) {
	i := start
	if src[i] == '-' {
		i++
	}
	isFloat := false
	for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
		if src[i] == '.' {
			if isFloat {
				return token{}, 0, &SyntaxError{Pos: i, Msg: "malformed number"}
			}
			isFloat = true
		}
		i++
	}
	if i < len(src) && isIdentStart(src[i]) {
		return token{}, 0, &SyntaxError{Pos: i, Msg: "malformed number"}
	}

	text := src[start:i]
	tok := token{kind: tokNumber, text: text, pos: start}
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, 0, &SyntaxError{Pos: start, Msg: "malformed number " + strconv.Quote(text)}
		}
		tok.num = f
	} else {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return token{}, 0, &SyntaxError{Pos: start, Msg: "malformed number " + strconv.Quote(text)}
		}
		tok.num = n
	}
	return tok, i - start, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
