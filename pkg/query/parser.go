package query

import (
	"fmt"
	"strings"

	"github.com/menmos/menmosd/pkg/menmoserr"
)

// Parse parses a query expression string into an Expression, per the
// grammar in the design's external interfaces section:
//
//	expr    := term (("&&"|"||") term)*
//	term    := "!" term | "(" expr ")" | field
//	field   := haskey | kv | tag
//	haskey  := "@" ident
//	kv      := ident "=" (ident | string)
//	tag     := ident | string
//	ident   := [A-Za-z_-][A-Za-z0-9_.-]*
//	string  := '"' [^"]* '"'
//
// An empty (all-whitespace) input parses to Empty. Whitespace is
// insignificant everywhere else.
func Parse(input string) (Expression, error) {
	if strings.TrimSpace(input) == "" {
		return Empty{}, nil
	}
	p := &parser{input: []rune(input)}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if !p.atEOF() {
		return nil, menmoserr.New(menmoserr.InvalidArgument,
			fmt.Sprintf("unexpected trailing input at offset %d", p.pos))
	}
	return expr, nil
}

type parser struct {
	input []rune
	pos   int
}

func (p *parser) atEOF() bool {
	return p.pos >= len(p.input)
}

func (p *parser) peek() rune {
	if p.atEOF() {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) skipWS() {
	for !p.atEOF() && isSpace(p.peek()) {
		p.pos++
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func (p *parser) errf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return menmoserr.New(menmoserr.InvalidArgument, fmt.Sprintf("%s at offset %d", msg, p.pos))
}

// parseExpr handles the left-associative, equal-precedence chain of
// "&&"/"||" terms. Callers who want a particular grouping of mixed
// operators must parenthesise; this parser applies whichever operator
// follows, left to right, with no precedence distinction.
func (p *parser) parseExpr() (Expression, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if p.tryConsume("&&") {
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = And{Left: left, Right: right}
			continue
		}
		if p.tryConsume("||") {
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = Or{Left: left, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *parser) tryConsume(tok string) bool {
	p.skipWS()
	runes := []rune(tok)
	if p.pos+len(runes) > len(p.input) {
		return false
	}
	for i, r := range runes {
		if p.input[p.pos+i] != r {
			return false
		}
	}
	p.pos += len(runes)
	return true
}

func (p *parser) parseTerm() (Expression, error) {
	p.skipWS()
	if p.peek() == '!' {
		p.pos++
		inner, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return Not{Inner: inner}, nil
	}
	if p.peek() == '(' {
		p.pos++
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if p.peek() != ')' {
			return nil, p.errf("expected ')'")
		}
		p.pos++
		return expr, nil
	}
	return p.parseField()
}

func (p *parser) parseField() (Expression, error) {
	p.skipWS()
	if p.peek() == '@' {
		p.pos++
		ident, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		return HasKey{Key: ident}, nil
	}

	first, err := p.parseIdentOrString()
	if err != nil {
		return nil, err
	}

	p.skipWS()
	if p.peek() == '=' {
		p.pos++
		second, err := p.parseIdentOrString()
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(first, parentKey) {
			return Parent{ID: second}, nil
		}
		return KeyValue{Key: first, Value: second}, nil
	}

	return Tag{Value: first}, nil
}

func (p *parser) parseIdentOrString() (string, error) {
	p.skipWS()
	if p.peek() == '"' {
		return p.parseString()
	}
	return p.parseIdent()
}

func (p *parser) parseIdent() (string, error) {
	p.skipWS()
	start := p.pos
	if p.atEOF() || !isIdentStart(p.peek()) {
		return "", p.errf("expected identifier")
	}
	p.pos++
	for !p.atEOF() && isIdentCont(p.peek()) {
		p.pos++
	}
	return string(p.input[start:p.pos]), nil
}

func (p *parser) parseString() (string, error) {
	if p.peek() != '"' {
		return "", p.errf("expected '\"'")
	}
	p.pos++
	start := p.pos
	for !p.atEOF() && p.peek() != '"' {
		p.pos++
	}
	if p.atEOF() {
		return "", p.errf("unterminated string")
	}
	s := string(p.input[start:p.pos])
	p.pos++ // closing quote
	return s, nil
}

func isIdentStart(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r == '_' || r == '-'
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9') || r == '.'
}

// Print renders expr back into the grammar Parse accepts, so that
// Parse(Print(e)) reproduces an equivalent Expression (invariant 6 in
// the design's testable properties).
func Print(expr Expression) string {
	switch e := expr.(type) {
	case Tag:
		return printAtom(e.Value)
	case KeyValue:
		return fmt.Sprintf("%s=%s", printAtom(e.Key), printAtom(e.Value))
	case HasKey:
		return "@" + e.Key
	case Parent:
		return fmt.Sprintf("%s=%s", parentKey, printAtom(e.ID))
	case Empty:
		return ""
	case And:
		return fmt.Sprintf("(%s) && (%s)", Print(e.Left), Print(e.Right))
	case Or:
		return fmt.Sprintf("(%s) || (%s)", Print(e.Left), Print(e.Right))
	case Not:
		return "!(" + Print(e.Inner) + ")"
	default:
		return ""
	}
}

func printAtom(s string) string {
	if isValidIdent(s) {
		return s
	}
	return fmt.Sprintf("%q", s)
}

func isValidIdent(s string) bool {
	if s == "" || !isIdentStart(rune(s[0])) {
		return false
	}
	for _, r := range s[1:] {
		if !isIdentCont(r) {
			return false
		}
	}
	return true
}
