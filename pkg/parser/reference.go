// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"strings"

	"carvel.dev/vtl/pkg/ast"
	"carvel.dev/vtl/pkg/config"
)

func (p *parser) isReferenceStart(off int) bool {
	if p.peekByte(off) != '$' {
		return false
	}
	i := off + 1
	if p.peekByte(i) == '!' {
		i++
	}
	if p.peekByte(i) == '{' {
		i++
	}
	return isIdentStart(p.peekByte(i))
}

func (p *parser) parseReferenceAt(off int) (*ast.Reference, error) {
	return p.parseReference(off, off, 0)
}

// parseReference parses reference whose '$' is at dollarOff, preceded by
// escapes backslashes starting at nodeStart. Leaves p.off after the reference.
func (p *parser) parseReference(nodeStart, dollarOff, escapes int) (*ast.Reference, error) {
	ref := &ast.Reference{Escapes: escapes}
	i := dollarOff + 1

	if p.peekByte(i) == '!' {
		ref.Quiet = true
		i++
	}
	if p.peekByte(i) == '{' {
		ref.Formal = true
		i++
	}

	nameStart := i
	for i < p.end && isIdentPart(p.src[i]) {
		i++
	}
	ref.Root = p.intern(p.src[nameStart:i])

	for i < p.end {
		c := p.src[i]

		if c == '.' && isIdentStart(p.peekByte(i+1)) {
			segStart := i
			nameEnd := i + 1
			for nameEnd < p.end && isIdentPart(p.src[nameEnd]) {
				nameEnd++
			}
			seg := ast.Segment{
				Kind:     ast.SegmentProperty,
				Name:     p.intern(p.src[i+1 : nameEnd]),
				Position: p.lines.position(segStart),
			}
			i = nameEnd

			if p.peekByte(i) == '(' {
				expr := p.newExprParser(i + 1)
				args, err := expr.parseArgs(tokRParen)
				if err != nil {
					return nil, err
				}
				seg.Kind = ast.SegmentMethod
				seg.Args = args
				i = expr.lastEnd
			}

			seg.Source = p.src[segStart:i]
			ref.Segments = append(ref.Segments, seg)
			continue
		}

		if c == '[' {
			segStart := i
			expr := p.newExprParser(i + 1)
			index, err := expr.parseExpr()
			if err != nil {
				return nil, err
			}
			_, err = expr.expect(tokRBracket, "]")
			if err != nil {
				return nil, err
			}
			i = expr.lastEnd
			ref.Segments = append(ref.Segments, ast.Segment{
				Kind:     ast.SegmentIndex,
				Args:     []ast.Node{index},
				Source:   p.src[segStart:i],
				Position: p.lines.position(segStart),
			})
			continue
		}

		break
	}

	if ref.Formal {
		if p.peekByte(i) == '|' {
			expr := p.newExprParser(i + 1)
			alternate, err := expr.parseExpr()
			if err != nil {
				return nil, err
			}
			ref.Alternate = alternate
			i = expr.lastEnd
			_, err = expr.expect(tokRBrace, "}")
			if err != nil {
				return nil, err
			}
			i = expr.lastEnd
		} else {
			if p.peekByte(i) != '}' {
				return nil, p.errorf(dollarOff, "Expected '}' to close reference '%s'", p.src[dollarOff:i])
			}
			i++
		}
	}

	ref.Span = ast.Span{Position: p.lines.position(nodeStart), Source: p.src[dollarOff:i]}
	p.off = i
	return ref, nil
}

// parseString parses quoted literal starting at off, returning offset after it.
func (p *parser) parseString(off int) (*ast.String, int, error) {
	quote := p.src[off]
	i := off + 1

	var value []byte
	for {
		if i >= p.end {
			return nil, 0, p.errorf(off, "Unterminated string literal")
		}
		c := p.src[i]
		if c == quote {
			if p.peekByte(i+1) == quote {
				value = append(value, c)
				i += 2
				continue
			}
			break
		}
		value = append(value, c)
		i++
	}

	contentStart, contentEnd := off+1, i
	end := i + 1

	str := &ast.String{
		Span:  ast.Span{Position: p.lines.position(off), Source: p.src[off:end]},
		Value: string(value),
	}

	if quote == '"' && strings.ContainsAny(p.src[contentStart:contentEnd], "$#") {
		opts := p.opts
		opts.SpaceGobbling = config.SpaceGobblingNone

		sub := &parser{
			lines: p.lines,
			src:   p.src,
			start: contentStart,
			end:   contentEnd,
			off:   contentStart,
			opts:  opts,
			quote: quote,
		}
		parsed, _, err := sub.parseBlock(nil)
		if err != nil {
			return nil, 0, err
		}
		str.Interpolate = true
		str.Parsed = parsed
	}

	return str, end, nil
}
