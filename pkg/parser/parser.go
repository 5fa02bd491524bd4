// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"fmt"
	"strings"

	"carvel.dev/vtl/pkg/ast"
	"carvel.dev/vtl/pkg/config"
)

type Options struct {
	SpaceGobbling config.SpaceGobbling
	// Directives lists names (and kinds) of directives. Other
	// #name(...) constructs are parsed as macro calls.
	Directives map[string]ast.DirectiveKind
	// Intern, when set, is applied to names and text.
	Intern func(string) string
}

// DefaultDirectives returns kinds of built-in directives.
func DefaultDirectives() map[string]ast.DirectiveKind {
	return map[string]ast.DirectiveKind{
		"set":      ast.LineDirective,
		"break":    ast.LineDirective,
		"stop":     ast.LineDirective,
		"include":  ast.LineDirective,
		"parse":    ast.LineDirective,
		"evaluate": ast.LineDirective,
		"if":       ast.BlockDirective,
		"foreach":  ast.BlockDirective,
		"macro":    ast.BlockDirective,
		"define":   ast.BlockDirective,
	}
}

// directives that must be followed by arguments
var argsRequired = map[string]bool{
	"set": true, "if": true, "elseif": true, "foreach": true, "macro": true,
	"define": true, "include": true, "parse": true, "evaluate": true,
}

func Parse(name, src string, opts Options) (*ast.Template, error) {
	if opts.Directives == nil {
		opts.Directives = DefaultDirectives()
	}
	if len(opts.SpaceGobbling) == 0 {
		opts.SpaceGobbling = config.SpaceGobblingLines
	}

	p := &parser{
		lines: newLineIndex(name, src),
		src:   src,
		end:   len(src),
		opts:  opts,
	}

	body, term, err := p.parseBlock(nil)
	if err != nil {
		return nil, err
	}
	if term != nil {
		return nil, p.errorf(term.start, "Unexpected #%s", term.name)
	}

	return &ast.Template{
		Span: ast.Span{Position: p.lines.position(0), Source: src},
		Name: name,
		Body: body,
	}, nil
}

type parser struct {
	lines *lineIndex
	src   string
	start int
	end   int
	off   int
	opts  Options

	// quote is set when parsing contents of interpolated string literal
	quote byte
}

type terminator struct {
	name      string
	start     int
	end       int
	condition ast.Node
}

// parseBlock parses nodes until EOF or one of allowed terminators (#end, #else, #elseif).
func (p *parser) parseBlock(allowed map[string]bool) (*ast.Block, *terminator, error) {
	block := &ast.Block{Span: ast.Span{Position: p.lines.position(p.off)}}
	blockStart := p.off

	var text []byte
	textStart := p.off

	flush := func(textEnd int) {
		if len(text) > 0 {
			block.Nodes = append(block.Nodes, &ast.Text{
				Span:  ast.Span{Position: p.lines.position(textStart), Source: p.src[textStart:textEnd]},
				Value: p.intern(string(text)),
			})
		}
		text = nil
	}
	trimIndent := func(count int) {
		if count > 0 && count <= len(text) {
			text = text[:len(text)-count]
		}
	}

	for p.off < p.end {
		c := p.src[p.off]

		switch {
		case c == '\\':
			count := p.countBackslashes(p.off)
			after := p.off + count

			if after < p.end && p.src[after] == '$' && p.isReferenceStart(after) {
				flush(p.off)
				ref, err := p.parseReference(p.off, after, count)
				if err != nil {
					return nil, nil, err
				}
				block.Nodes = append(block.Nodes, ref)
				textStart = p.off
				continue
			}

			if after < p.end && p.src[after] == '#' {
				if dir, ok := p.directiveAt(after); ok {
					text = append(text, strings.Repeat("\\", count/2)...)
					if count%2 == 1 {
						// escaped directive renders as is
						text = append(text, p.src[after:dir.nameEnd]...)
						p.off = dir.nameEnd
					} else {
						p.off = after
					}
					continue
				}
			}

			text = append(text, p.src[p.off:after]...)
			p.off = after

		case c == '$' && p.isReferenceStart(p.off):
			flush(p.off)
			ref, err := p.parseReference(p.off, p.off, 0)
			if err != nil {
				return nil, nil, err
			}
			block.Nodes = append(block.Nodes, ref)
			textStart = p.off

		case c == '#' && p.peekByte(p.off+1) == '#':
			startOff := p.off
			lineEnd := strings.IndexByte(p.src[p.off:p.end], '\n')
			if lineEnd < 0 {
				p.off = p.end
			} else {
				p.off += lineEnd + 1
			}
			if indent, alone := p.aloneBefore(startOff); alone && p.gobblesLines() {
				trimIndent(indent)
			}

		case c == '#' && p.peekByte(p.off+1) == '*':
			startOff := p.off
			closing := strings.Index(p.src[p.off+2:p.end], "*#")
			if closing < 0 {
				return nil, nil, p.errorf(startOff, "Unterminated block comment")
			}
			p.off += 2 + closing + 2
			if p.gobblesLines() {
				indent, _ := p.gobble(startOff, "", false)
				trimIndent(indent)
			}

		case c == '#' && strings.HasPrefix(p.src[p.off:p.end], "#[["):
			closing := strings.Index(p.src[p.off+3:p.end], "]]#")
			if closing < 0 {
				return nil, nil, p.errorf(p.off, "Unterminated unparsed content")
			}
			text = append(text, p.src[p.off+3:p.off+3+closing]...)
			p.off += 3 + closing + 3

		case c == '#':
			dir, ok := p.directiveAt(p.off)
			if !ok {
				text = append(text, c)
				p.off++
				continue
			}

			switch dir.name {
			case "end", "else", "elseif":
				if !allowed[dir.name] {
					return nil, nil, p.errorf(p.off, "Unexpected #%s", dir.name)
				}
				term, indent, err := p.parseTerminator(dir)
				if err != nil {
					return nil, nil, err
				}
				trimIndent(indent)
				flush(dir.start)
				block.Source = p.src[blockStart:dir.start]
				return block, term, nil
			}

			directive, indent, err := p.parseDirective(dir)
			if err != nil {
				return nil, nil, err
			}
			trimIndent(indent)
			flush(dir.start)
			block.Nodes = append(block.Nodes, directive)
			textStart = p.off

		case p.quote != 0 && c == p.quote && p.peekByte(p.off+1) == p.quote:
			text = append(text, c)
			p.off += 2

		default:
			text = append(text, c)
			p.off++
		}
	}

	flush(p.off)
	block.Source = p.src[blockStart:p.off]
	return block, nil, nil
}

type directiveName struct {
	name       string
	blockMacro bool
	start      int
	nameEnd    int
}

// directiveAt recognizes #name, #{name} and #@name at off.
func (p *parser) directiveAt(off int) (directiveName, bool) {
	i := off + 1
	dir := directiveName{start: off}

	if p.peekByte(i) == '@' {
		dir.blockMacro = true
		i++
	}
	formal := p.peekByte(i) == '{'
	if formal {
		i++
	}
	if !isIdentStart(p.peekByte(i)) {
		return dir, false
	}
	nameStart := i
	for i < p.end && isIdentPart(p.src[i]) {
		i++
	}
	dir.name = p.src[nameStart:i]

	if formal {
		if p.peekByte(i) != '}' {
			return dir, false
		}
		i++
	}
	dir.nameEnd = i

	switch {
	case dir.blockMacro:
		return dir, p.peekByte(i) == '('
	case dir.name == "end" || dir.name == "else" || dir.name == "elseif":
		return dir, true
	}
	if _, found := p.opts.Directives[dir.name]; found {
		return dir, true
	}
	// macro calls need parentheses
	return dir, p.peekByte(i) == '('
}

// parseTerminator returns number of indentation bytes to be trimmed before it.
func (p *parser) parseTerminator(dir directiveName) (*terminator, int, error) {
	term := &terminator{name: dir.name, start: dir.start}
	p.off = dir.nameEnd

	if dir.name == "elseif" {
		args, err := p.parseDirectiveArgs(dir)
		if err != nil {
			return nil, 0, err
		}
		if len(args) != 1 {
			return nil, 0, p.errorf(dir.start, "Expected #elseif to have exactly one condition, but found %d", len(args))
		}
		term.condition = args[0]
	}

	term.end = p.off
	indent, _ := p.gobble(dir.start, dir.name, false)
	return term, indent, nil
}

// parseDirective returns number of indentation bytes to be trimmed before it.
func (p *parser) parseDirective(dir directiveName) (*ast.Directive, int, error) {
	p.off = dir.nameEnd

	directive := &ast.Directive{
		Name:       p.intern(dir.name),
		BlockMacro: dir.blockMacro,
	}

	kind, builtin := p.opts.Directives[dir.name]
	if dir.blockMacro {
		kind = ast.BlockDirective
	}
	isMacroCall := dir.blockMacro || !builtin

	if isMacroCall || argsRequired[dir.name] || p.nextOnLine(p.off) == '(' {
		args, err := p.parseDirectiveArgs(dir)
		if err != nil {
			return nil, 0, err
		}
		directive.HasArgs = true
		directive.Args = args
	}

	headerEnd := p.off
	directive.Span = ast.Span{Position: p.lines.position(dir.start), Source: p.src[dir.start:headerEnd]}

	indent, gobbled := p.gobble(dir.start, dir.name, isMacroCall && !dir.blockMacro)
	if gobbled {
		if lineIndent, alone := p.aloneBefore(dir.start); alone {
			directive.Indent = p.src[dir.start-lineIndent : dir.start]
		}
	}

	if kind != ast.BlockDirective {
		return directive, indent, nil
	}

	allowed := map[string]bool{"end": true}
	if dir.name == "if" && !dir.blockMacro {
		allowed["else"] = true
		allowed["elseif"] = true
	}

	body, term, err := p.parseBlock(allowed)
	if err != nil {
		return nil, 0, err
	}
	directive.Body = body

	for term != nil && term.name != "end" {
		branch := &ast.Branch{
			Span:      ast.Span{Position: p.lines.position(term.start), Source: p.src[term.start:term.end]},
			Name:      term.name,
			Condition: term.condition,
		}

		if term.name == "else" {
			allowed = map[string]bool{"end": true}
		}

		branch.Body, term, err = p.parseBlock(allowed)
		if err != nil {
			return nil, 0, err
		}
		directive.Branches = append(directive.Branches, branch)
	}

	if term == nil {
		return nil, 0, p.errorf(dir.start, "Missing #end for #%s", dir.name)
	}

	directive.Source = p.src[dir.start:term.end]
	return directive, indent, nil
}

func (p *parser) parseDirectiveArgs(dir directiveName) ([]ast.Node, error) {
	i := p.off
	for i < p.end && (p.src[i] == ' ' || p.src[i] == '\t') {
		i++
	}
	if p.peekByte(i) != '(' {
		return nil, p.errorf(dir.start, "Expected '(' after #%s", dir.name)
	}

	expr := p.newExprParser(i + 1)
	args, err := expr.parseArgs(tokRParen)
	if err != nil {
		return nil, err
	}
	p.off = expr.lastEnd
	return args, nil
}

// gobble consumes whitespace and newline following construct that started
// at start and ends at p.off. It returns number of indentation bytes
// preceding the construct that should be removed as well.
func (p *parser) gobble(start int, name string, macroCall bool) (int, bool) {
	if p.quote != 0 {
		return 0, false
	}

	indent, aloneBefore := p.aloneBefore(start)
	lineEnd, aloneAfter := p.aloneAfter(p.off)

	switch p.opts.SpaceGobbling {
	case config.SpaceGobblingLines, config.SpaceGobblingStructured:
		if aloneBefore && aloneAfter {
			p.off = lineEnd
			return indent, true
		}

	case config.SpaceGobblingBC:
		if macroCall || !aloneAfter {
			return 0, false
		}
		p.off = lineEnd
		if aloneBefore && name == "set" {
			return indent, true
		}
		return 0, true
	}

	return 0, false
}

func (p *parser) gobblesLines() bool {
	if p.quote != 0 {
		return false
	}
	mode := p.opts.SpaceGobbling
	return mode == config.SpaceGobblingLines || mode == config.SpaceGobblingStructured
}

// aloneBefore reports whether only spaces or tabs precede off on its line.
func (p *parser) aloneBefore(off int) (int, bool) {
	i := off - 1
	for i >= p.start && (p.src[i] == ' ' || p.src[i] == '\t') {
		i--
	}
	return off - 1 - i, i < p.start || p.src[i] == '\n'
}

// aloneAfter reports whether only spaces or tabs follow off on its line,
// returning offset of the next line.
func (p *parser) aloneAfter(off int) (int, bool) {
	i := off
	for i < p.end && (p.src[i] == ' ' || p.src[i] == '\t' || p.src[i] == '\r') {
		i++
	}
	if i >= p.end {
		return i, true
	}
	if p.src[i] == '\n' {
		return i + 1, true
	}
	return off, false
}

func (p *parser) countBackslashes(off int) int {
	i := off
	for i < p.end && p.src[i] == '\\' {
		i++
	}
	return i - off
}

func (p *parser) nextOnLine(off int) byte {
	for off < p.end && (p.src[off] == ' ' || p.src[off] == '\t') {
		off++
	}
	return p.peekByte(off)
}

func (p *parser) peekByte(off int) byte {
	if off < p.end {
		return p.src[off]
	}
	return 0
}

func (p *parser) intern(str string) string {
	if p.opts.Intern != nil {
		return p.opts.Intern(str)
	}
	return str
}

func (p *parser) errorf(off int, msg string, args ...interface{}) error {
	return Error{Position: p.lines.position(off), Msg: fmt.Sprintf(msg, args...)}
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
