// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package catalog

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/tomtom215/irods-gateway/internal/irods"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokComma
	tokLParen
	tokRParen
	tokOp
	tokOr
)

type token struct {
	kind tokenKind
	text string
}

// lex splits a GenQuery string into tokens. String literals are single
// quoted; there is no escape syntax.
func lex(input string) ([]token, error) {
	var toks []token
	rs := []rune(input)

	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case r == '\'':
			end := i + 1
			for end < len(rs) && rs[end] != '\'' {
				end++
			}
			if end == len(rs) {
				return nil, irods.NewError(irods.InputArgNotWellFormedErr, "unterminated string literal")
			}
			toks = append(toks, token{tokString, string(rs[i+1 : end])})
			i = end + 1
		case r == '|':
			if i+1 < len(rs) && rs[i+1] == '|' {
				toks = append(toks, token{tokOr, "||"})
				i += 2
				continue
			}
			return nil, irods.NewError(irods.InputArgNotWellFormedErr, "unexpected '|'")
		case r == '=' || r == '<' || r == '>' || r == '!':
			end := i + 1
			if end < len(rs) && (rs[end] == '=' || (r == '<' && rs[end] == '>')) {
				end++
			}
			op := string(rs[i:end])
			if op == "!" {
				return nil, irods.NewError(irods.InputArgNotWellFormedErr, "unexpected '!'")
			}
			toks = append(toks, token{tokOp, op})
			i = end
		case unicode.IsDigit(r) || r == '-':
			end := i + 1
			for end < len(rs) && (unicode.IsDigit(rs[end]) || rs[end] == '.') {
				end++
			}
			toks = append(toks, token{tokNumber, string(rs[i:end])})
			i = end
		case unicode.IsLetter(r) || r == '_':
			end := i + 1
			for end < len(rs) && (unicode.IsLetter(rs[end]) || unicode.IsDigit(rs[end]) || rs[end] == '_') {
				end++
			}
			toks = append(toks, token{tokIdent, string(rs[i:end])})
			i = end
		default:
			return nil, irods.NewError(irods.InputArgNotWellFormedErr, "unexpected character %q", r)
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}

// selection is one entry of the select list.
type selection struct {
	column string
	fn     string // "", count, sum, min, max, avg, order, order_desc
}

func (s selection) aggregate() bool {
	switch s.fn {
	case "count", "sum", "min", "max", "avg":
		return true
	}
	return false
}

// predicate is one comparison against a column.
type predicate struct {
	op     string // =, !=, <>, <, >, <=, >=, like, not like, in, not in, between
	values []string
}

// condition is a column with one or more alternative predicates.
type condition struct {
	column string
	any    []predicate
}

type genQuery struct {
	selects    []selection
	conditions []condition
	limit      int
	offset     int
}

var selectFunctions = map[string]bool{
	"count": true, "sum": true, "min": true, "max": true, "avg": true,
	"order": true, "order_desc": true, "order_asc": true,
}

type parser struct {
	toks   []token
	pos    int
	paging bool
}

// parseGenQuery parses a GenQuery string. paging enables trailing limit and
// offset clauses.
func parseGenQuery(input string, paging bool) (*genQuery, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, paging: paging}
	return p.parse()
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) keyword(word string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) fail(format string, args ...any) error {
	return irods.NewError(irods.InputArgNotWellFormedErr, format, args...)
}

func (p *parser) parse() (*genQuery, error) {
	if !p.keyword("select") {
		return nil, p.fail("query must start with select")
	}

	q := &genQuery{}
	for {
		sel, err := p.parseSelection()
		if err != nil {
			return nil, err
		}
		q.selects = append(q.selects, sel)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}

	if p.keyword("where") {
		for {
			cond, err := p.parseCondition()
			if err != nil {
				return nil, err
			}
			q.conditions = append(q.conditions, cond)
			if !p.keyword("and") {
				break
			}
		}
	}

	if p.paging {
		for {
			switch {
			case p.keyword("limit"):
				n, err := p.parseCount()
				if err != nil {
					return nil, err
				}
				q.limit = n
				continue
			case p.keyword("offset"):
				n, err := p.parseCount()
				if err != nil {
					return nil, err
				}
				q.offset = n
				continue
			}
			break
		}
	}

	if t := p.peek(); t.kind != tokEOF {
		return nil, p.fail("unexpected %q", t.text)
	}
	return q, nil
}

func (p *parser) parseCount() (int, error) {
	t := p.next()
	if t.kind != tokNumber {
		return 0, p.fail("expected a number, got %q", t.text)
	}
	n, err := strconv.Atoi(t.text)
	if err != nil || n < 0 {
		return 0, p.fail("invalid number %q", t.text)
	}
	return n, nil
}

func (p *parser) parseSelection() (selection, error) {
	t := p.next()
	if t.kind != tokIdent {
		return selection{}, p.fail("expected a column, got %q", t.text)
	}

	if p.peek().kind != tokLParen {
		return selection{column: strings.ToUpper(t.text)}, nil
	}

	fn := strings.ToLower(t.text)
	if !selectFunctions[fn] {
		return selection{}, p.fail("unknown function %q", t.text)
	}
	if fn == "order_asc" {
		fn = "order"
	}
	p.next()

	col := p.next()
	if col.kind != tokIdent {
		return selection{}, p.fail("expected a column, got %q", col.text)
	}
	if p.next().kind != tokRParen {
		return selection{}, p.fail("expected ')'")
	}
	return selection{column: strings.ToUpper(col.text), fn: fn}, nil
}

func (p *parser) parseCondition() (condition, error) {
	col := p.next()
	if col.kind != tokIdent {
		return condition{}, p.fail("expected a column, got %q", col.text)
	}
	cond := condition{column: strings.ToUpper(col.text)}

	for {
		pred, err := p.parsePredicate()
		if err != nil {
			return condition{}, err
		}
		cond.any = append(cond.any, pred)
		if p.peek().kind != tokOr {
			return cond, nil
		}
		p.next()
	}
}

func (p *parser) parsePredicate() (predicate, error) {
	t := p.peek()

	if t.kind == tokOp {
		p.next()
		op := t.text
		if op == "==" {
			op = "="
		}
		v, err := p.parseValue()
		if err != nil {
			return predicate{}, err
		}
		return predicate{op: op, values: []string{v}}, nil
	}

	negate := p.keyword("not")

	switch {
	case p.keyword("like"):
		v, err := p.parseValue()
		if err != nil {
			return predicate{}, err
		}
		op := "like"
		if negate {
			op = "not like"
		}
		return predicate{op: op, values: []string{v}}, nil

	case p.keyword("in"):
		if p.next().kind != tokLParen {
			return predicate{}, p.fail("expected '(' after in")
		}
		var values []string
		for {
			v, err := p.parseValue()
			if err != nil {
				return predicate{}, err
			}
			values = append(values, v)
			if p.peek().kind == tokComma {
				p.next()
				continue
			}
			break
		}
		if p.next().kind != tokRParen {
			return predicate{}, p.fail("expected ')' to close in list")
		}
		op := "in"
		if negate {
			op = "not in"
		}
		return predicate{op: op, values: values}, nil

	case !negate && p.keyword("between"):
		lo, err := p.parseValue()
		if err != nil {
			return predicate{}, err
		}
		hi, err := p.parseValue()
		if err != nil {
			return predicate{}, err
		}
		return predicate{op: "between", values: []string{lo, hi}}, nil
	}

	return predicate{}, p.fail("expected a comparison, got %q", t.text)
}

func (p *parser) parseValue() (string, error) {
	t := p.next()
	switch t.kind {
	case tokString, tokNumber:
		return t.text, nil
	}
	return "", p.fail("expected a value, got %q", t.text)
}
