// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"strconv"
	"strings"

	"carvel.dev/vtl/pkg/ast"
	"github.com/edwingeng/deque"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokLBrace
	tokRBrace
	tokComma
	tokColon
	tokDotDot
	tokAssign
	tokPipe
	tokOp
	tokWord
	tokNode
)

type token struct {
	kind  tokenKind
	start int
	end   int
	text  string
	// node is set for references, strings and numbers
	node ast.Node
}

type exprParser struct {
	p       *parser
	off     int
	lastEnd int
	tokens  deque.Deque
}

func (p *parser) newExprParser(off int) *exprParser {
	return &exprParser{p: p, off: off, lastEnd: off, tokens: deque.NewDeque()}
}

func (e *exprParser) peek() (token, error) {
	if e.tokens.Empty() {
		tok, err := e.lex()
		if err != nil {
			return token{}, err
		}
		e.tokens.PushBack(tok)
	}
	return e.tokens.Front().(token), nil
}

func (e *exprParser) next() (token, error) {
	tok, err := e.peek()
	if err != nil {
		return token{}, err
	}
	e.tokens.PopFront()
	e.lastEnd = tok.end
	return tok, nil
}

func (e *exprParser) expect(kind tokenKind, desc string) (token, error) {
	tok, err := e.next()
	if err != nil {
		return token{}, err
	}
	if tok.kind != kind {
		return token{}, e.p.errorf(tok.start, "Expected '%s', but found %s", desc, tok.describe())
	}
	return tok, nil
}

func (e *exprParser) span(start int) ast.Span {
	return ast.Span{Position: e.p.lines.position(start), Source: e.p.src[start:e.lastEnd]}
}

// parseArgs parses whitespace or comma separated expressions until closing token.
// "$ref = expr" pairs become assignments.
func (e *exprParser) parseArgs(closing tokenKind) ([]ast.Node, error) {
	var args []ast.Node

	for {
		tok, err := e.peek()
		if err != nil {
			return nil, err
		}

		switch {
		case tok.kind == closing:
			e.next()
			return args, nil
		case tok.kind == tokComma && len(args) > 0:
			e.next()
			continue
		case tok.kind == tokEOF:
			return nil, e.p.errorf(tok.start, "Missing closing ')'")
		}

		argStart := tok.start
		arg, err := e.parseExpr()
		if err != nil {
			return nil, err
		}

		tok, err = e.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokAssign {
			target, ok := arg.(*ast.Reference)
			if !ok {
				return nil, e.p.errorf(tok.start, "Expected reference on the left side of '=', but found %s", arg.Kind())
			}
			e.next()
			value, err := e.parseExpr()
			if err != nil {
				return nil, err
			}
			arg = &ast.Assignment{Span: e.span(argStart), Target: target, Value: value}
		}

		args = append(args, arg)
	}
}

func (e *exprParser) parseExpr() (ast.Node, error) {
	return e.parseBinary(0)
}

type opTable map[string]ast.BinaryOp

var binaryLevels = []opTable{
	{"||": ast.OpOr, "or": ast.OpOr},
	{"&&": ast.OpAnd, "and": ast.OpAnd},
	{"==": ast.OpEq, "eq": ast.OpEq, "!=": ast.OpNe, "ne": ast.OpNe},
	{"<": ast.OpLt, "lt": ast.OpLt, "<=": ast.OpLe, "le": ast.OpLe,
		">": ast.OpGt, "gt": ast.OpGt, ">=": ast.OpGe, "ge": ast.OpGe},
	{"+": ast.OpAdd, "-": ast.OpSub},
	{"*": ast.OpMul, "/": ast.OpDiv, "%": ast.OpMod},
}

func (e *exprParser) parseBinary(level int) (ast.Node, error) {
	if level >= len(binaryLevels) {
		return e.parseUnary()
	}

	first, err := e.peek()
	if err != nil {
		return nil, err
	}
	start := first.start

	left, err := e.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		tok, err := e.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind != tokOp && tok.kind != tokWord {
			return left, nil
		}
		op, found := binaryLevels[level][tok.text]
		if !found {
			return left, nil
		}
		e.next()

		right, err := e.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Span: e.span(start), Op: op, Left: left, Right: right}
	}
}

func (e *exprParser) parseUnary() (ast.Node, error) {
	tok, err := e.peek()
	if err != nil {
		return nil, err
	}

	switch {
	case (tok.kind == tokOp && tok.text == "!") || (tok.kind == tokWord && tok.text == "not"):
		e.next()
		operand, err := e.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Span: e.span(tok.start), Op: ast.OpNot, Operand: operand}, nil

	case tok.kind == tokOp && tok.text == "-":
		e.next()
		operand, err := e.parseUnary()
		if err != nil {
			return nil, err
		}
		// fold negative number literals so that they stay literals
		switch typedOperand := operand.(type) {
		case *ast.Integer:
			return &ast.Integer{Span: e.span(tok.start), Value: -typedOperand.Value}, nil
		case *ast.Float:
			return &ast.Float{Span: e.span(tok.start), Value: -typedOperand.Value}, nil
		}
		return &ast.Unary{Span: e.span(tok.start), Op: ast.OpNegate, Operand: operand}, nil
	}

	return e.parsePrimary()
}

func (e *exprParser) parsePrimary() (ast.Node, error) {
	tok, err := e.next()
	if err != nil {
		return nil, err
	}

	switch tok.kind {
	case tokNode:
		return tok.node, nil

	case tokWord:
		switch tok.text {
		case "true", "false":
			return &ast.Bool{Span: e.span(tok.start), Value: tok.text == "true"}, nil
		default:
			return &ast.Word{Span: e.span(tok.start), Value: e.p.intern(tok.text)}, nil
		}

	case tokLParen:
		inner, err := e.parseExpr()
		if err != nil {
			return nil, err
		}
		_, err = e.expect(tokRParen, ")")
		if err != nil {
			return nil, err
		}
		return inner, nil

	case tokLBracket:
		return e.parseListOrRange(tok.start)

	case tokLBrace:
		return e.parseMap(tok.start)

	default:
		return nil, e.p.errorf(tok.start, "Unexpected %s", tok.describe())
	}
}

func (e *exprParser) parseListOrRange(start int) (ast.Node, error) {
	tok, err := e.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokRBracket {
		e.next()
		return &ast.List{Span: e.span(start)}, nil
	}

	first, err := e.parseExpr()
	if err != nil {
		return nil, err
	}

	tok, err = e.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokDotDot {
		e.next()
		right, err := e.parseExpr()
		if err != nil {
			return nil, err
		}
		_, err = e.expect(tokRBracket, "]")
		if err != nil {
			return nil, err
		}
		return &ast.Range{Span: e.span(start), Left: first, Right: right}, nil
	}

	items := []ast.Node{first}
	for {
		tok, err := e.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokRBracket:
			return &ast.List{Span: e.span(start), Items: items}, nil
		case tokComma:
			item, err := e.parseExpr()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		default:
			return nil, e.p.errorf(tok.start, "Expected ',' or ']' in list, but found %s", tok.describe())
		}
	}
}

func (e *exprParser) parseMap(start int) (ast.Node, error) {
	result := &ast.Map{}

	tok, err := e.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokRBrace {
		e.next()
		result.Span = e.span(start)
		return result, nil
	}

	for {
		key, err := e.parseExpr()
		if err != nil {
			return nil, err
		}
		_, err = e.expect(tokColon, ":")
		if err != nil {
			return nil, err
		}
		value, err := e.parseExpr()
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, ast.MapEntry{Key: key, Value: value})

		tok, err := e.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokRBrace:
			result.Span = e.span(start)
			return result, nil
		case tokComma:
		default:
			return nil, e.p.errorf(tok.start, "Expected ',' or '}' in map, but found %s", tok.describe())
		}
	}
}

func (e *exprParser) lex() (token, error) {
	src, end := e.p.src, e.p.end

	for e.off < end && strings.IndexByte(" \t\r\n", src[e.off]) >= 0 {
		e.off++
	}
	if e.off >= end {
		return token{kind: tokEOF, start: end, end: end}, nil
	}

	start := e.off
	c := src[start]
	next := e.p.peekByte(start + 1)

	simple := func(kind tokenKind, length int) (token, error) {
		e.off += length
		return token{kind: kind, start: start, end: e.off, text: src[start:e.off]}, nil
	}

	switch {
	case c == '(':
		return simple(tokLParen, 1)
	case c == ')':
		return simple(tokRParen, 1)
	case c == '[':
		return simple(tokLBracket, 1)
	case c == ']':
		return simple(tokRBracket, 1)
	case c == '{':
		return simple(tokLBrace, 1)
	case c == '}':
		return simple(tokRBrace, 1)
	case c == ',':
		return simple(tokComma, 1)
	case c == ':':
		return simple(tokColon, 1)
	case c == '.' && next == '.':
		return simple(tokDotDot, 2)
	case c == '=' && next == '=':
		return simple(tokOp, 2)
	case c == '=':
		return simple(tokAssign, 1)
	case c == '!' && next == '=':
		return simple(tokOp, 2)
	case c == '!':
		return simple(tokOp, 1)
	case (c == '<' || c == '>') && next == '=':
		return simple(tokOp, 2)
	case c == '<' || c == '>':
		return simple(tokOp, 1)
	case c == '&' && next == '&':
		return simple(tokOp, 2)
	case c == '|' && next == '|':
		return simple(tokOp, 2)
	case c == '|':
		return simple(tokPipe, 1)
	case strings.IndexByte("+-*/%", c) >= 0:
		return simple(tokOp, 1)

	case c == '$' && e.p.isReferenceStart(start):
		ref, err := e.p.parseReferenceAt(start)
		if err != nil {
			return token{}, err
		}
		e.off = e.p.off
		return token{kind: tokNode, start: start, end: e.off, node: ref}, nil

	case c == '"' || c == '\'':
		str, strEnd, err := e.p.parseString(start)
		if err != nil {
			return token{}, err
		}
		e.off = strEnd
		return token{kind: tokNode, start: start, end: e.off, node: str}, nil

	case isDigit(c):
		return e.lexNumber(start)

	case isIdentStart(c):
		for e.off < end && isIdentPart(src[e.off]) {
			e.off++
		}
		return token{kind: tokWord, start: start, end: e.off, text: src[start:e.off]}, nil
	}

	return token{}, e.p.errorf(start, "Unexpected character '%c'", c)
}

func (e *exprParser) lexNumber(start int) (token, error) {
	src := e.p.src
	isFloat := false

	for e.off < e.p.end && isDigit(src[e.off]) {
		e.off++
	}
	// "1..3" is a range, not a float
	if e.p.peekByte(e.off) == '.' && isDigit(e.p.peekByte(e.off+1)) {
		isFloat = true
		e.off++
		for e.off < e.p.end && isDigit(src[e.off]) {
			e.off++
		}
	}

	text := src[start:e.off]
	span := ast.Span{Position: e.p.lines.position(start), Source: text}
	tok := token{kind: tokNode, start: start, end: e.off, text: text}

	if isFloat {
		val, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, e.p.errorf(start, "Parsing float '%s': %s", text, err)
		}
		tok.node = &ast.Float{Span: span, Value: val}
		return tok, nil
	}

	val, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, e.p.errorf(start, "Parsing integer '%s': %s", text, err)
	}
	tok.node = &ast.Integer{Span: span, Value: val}
	return tok, nil
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokNode:
		return t.node.Kind().String()
	default:
		return "'" + t.text + "'"
	}
}
