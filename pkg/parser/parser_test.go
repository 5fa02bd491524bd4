// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package parser_test

import (
	"testing"

	"carvel.dev/vtl/pkg/ast"
	"carvel.dev/vtl/pkg/config"
	"carvel.dev/vtl/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) []ast.Node {
	return parseWith(t, src, config.SpaceGobblingLines)
}

func parseWith(t *testing.T, src string, gobbling config.SpaceGobbling) []ast.Node {
	tpl, err := parser.Parse("tpl.vtl", src, parser.Options{SpaceGobbling: gobbling})
	require.NoError(t, err)
	require.Equal(t, "tpl.vtl", tpl.Name)
	return tpl.Body.Nodes
}

func requireText(t *testing.T, node ast.Node, expected string) {
	text, ok := node.(*ast.Text)
	require.True(t, ok, "expected text node, but was %T", node)
	assert.Equal(t, expected, text.Value)
}

func TestParseTextAndReferences(t *testing.T) {
	nodes := parse(t, "Hello $name! ${user.first}$!{x}-$!y.")
	require.Len(t, nodes, 8)

	requireText(t, nodes[0], "Hello ")

	ref := nodes[1].(*ast.Reference)
	assert.Equal(t, "name", ref.Root)
	assert.Equal(t, "$name", ref.Literal())
	assert.True(t, ref.IsScalar())

	requireText(t, nodes[2], "! ")

	ref = nodes[3].(*ast.Reference)
	assert.True(t, ref.Formal)
	assert.False(t, ref.Quiet)
	assert.Equal(t, "user.first", ref.Name())
	assert.Equal(t, "${user.first}", ref.Literal())

	ref = nodes[4].(*ast.Reference)
	assert.True(t, ref.Formal)
	assert.True(t, ref.Quiet)
	assert.Equal(t, "$!{x}", ref.Literal())

	requireText(t, nodes[5], "-")

	ref = nodes[6].(*ast.Reference)
	assert.True(t, ref.Quiet)
	assert.Equal(t, "y", ref.Root)

	requireText(t, nodes[7], ".")
}

func TestParseReferenceSegments(t *testing.T) {
	nodes := parse(t, "$a.b.get('k', 2).size()[$i]")
	require.Len(t, nodes, 1)

	ref := nodes[0].(*ast.Reference)
	assert.Equal(t, "a", ref.Root)
	require.Len(t, ref.Segments, 4)

	assert.Equal(t, ast.SegmentProperty, ref.Segments[0].Kind)
	assert.Equal(t, "b", ref.Segments[0].Name)

	assert.Equal(t, ast.SegmentMethod, ref.Segments[1].Kind)
	assert.Equal(t, "get", ref.Segments[1].Name)
	require.Len(t, ref.Segments[1].Args, 2)
	assert.Equal(t, "k", ref.Segments[1].Args[0].(*ast.String).Value)
	assert.Equal(t, int64(2), ref.Segments[1].Args[1].(*ast.Integer).Value)
	assert.Equal(t, ".get('k', 2)", ref.Segments[1].Source)

	assert.Equal(t, ast.SegmentMethod, ref.Segments[2].Kind)
	assert.Empty(t, ref.Segments[2].Args)

	assert.Equal(t, ast.SegmentIndex, ref.Segments[3].Kind)
	assert.Equal(t, "i", ref.Segments[3].Args[0].(*ast.Reference).Root)

	assert.Equal(t, "a.b.get('k', 2).size()[$i]", ref.Name())
}

func TestParseAlternateValue(t *testing.T) {
	nodes := parse(t, "${title|'Untitled'}")
	require.Len(t, nodes, 1)

	ref := nodes[0].(*ast.Reference)
	assert.Equal(t, "title", ref.Root)
	assert.Equal(t, "Untitled", ref.Alternate.(*ast.String).Value)
	assert.Equal(t, "${title|'Untitled'}", ref.Literal())
}

func TestParseEscapes(t *testing.T) {
	nodes := parse(t, `\$a \\$b \#if \\#if(true)x#end $ 5 #`)

	ref := nodes[0].(*ast.Reference)
	assert.Equal(t, 1, ref.Escapes)
	requireText(t, nodes[1], " ")
	ref = nodes[2].(*ast.Reference)
	assert.Equal(t, 2, ref.Escapes)
	requireText(t, nodes[3], ` #if \`)

	dir := nodes[4].(*ast.Directive)
	assert.Equal(t, "if", dir.Name)

	requireText(t, nodes[5], " $ 5 #")
}

func TestParseIfBranches(t *testing.T) {
	nodes := parse(t, "#if($a)x#elseif($b)y#{else}z#end!")
	require.Len(t, nodes, 2)

	dir := nodes[0].(*ast.Directive)
	assert.Equal(t, "if", dir.Name)
	require.Len(t, dir.Args, 1)
	requireText(t, dir.Body.Nodes[0], "x")

	require.Len(t, dir.Branches, 2)
	assert.Equal(t, "elseif", dir.Branches[0].Name)
	assert.Equal(t, "b", dir.Branches[0].Condition.(*ast.Reference).Root)
	requireText(t, dir.Branches[0].Body.Nodes[0], "y")
	assert.Equal(t, "else", dir.Branches[1].Name)
	assert.Nil(t, dir.Branches[1].Condition)
	requireText(t, dir.Branches[1].Body.Nodes[0], "z")

	assert.Equal(t, "#if($a)x#elseif($b)y#{else}z#end", dir.Literal())
	requireText(t, nodes[1], "!")
}

func TestParseForeachArgs(t *testing.T) {
	nodes := parse(t, "#foreach($i in [1..3])$i#end")
	dir := nodes[0].(*ast.Directive)
	require.Len(t, dir.Args, 3)
	assert.Equal(t, "i", dir.Args[0].(*ast.Reference).Root)
	assert.Equal(t, "in", dir.Args[1].(*ast.Word).Value)

	rng := dir.Args[2].(*ast.Range)
	assert.Equal(t, int64(1), rng.Left.(*ast.Integer).Value)
	assert.Equal(t, int64(3), rng.Right.(*ast.Integer).Value)
}

func TestParseSetAndLiterals(t *testing.T) {
	nodes := parse(t, `#set($m = {"a": 1, 'b': [1, -2.5, true], "c": {}})`)
	dir := nodes[0].(*ast.Directive)
	require.Len(t, dir.Args, 1)

	assign := dir.Args[0].(*ast.Assignment)
	assert.Equal(t, "m", assign.Target.Root)

	m := assign.Value.(*ast.Map)
	require.Len(t, m.Entries, 3)
	assert.Equal(t, "a", m.Entries[0].Key.(*ast.String).Value)
	list := m.Entries[1].Value.(*ast.List)
	require.Len(t, list.Items, 3)
	assert.Equal(t, -2.5, list.Items[1].(*ast.Float).Value)
	assert.True(t, list.Items[2].(*ast.Bool).Value)
	assert.Empty(t, m.Entries[2].Value.(*ast.Map).Entries)
}

func TestParseOperatorPrecedence(t *testing.T) {
	nodes := parse(t, "#if($a + 2 * 3 == 7 && !$b or $c lt 2)#end")
	cond := nodes[0].(*ast.Directive).Args[0]

	or := cond.(*ast.Binary)
	assert.Equal(t, ast.OpOr, or.Op)
	assert.Equal(t, ast.OpLt, or.Right.(*ast.Binary).Op)

	and := or.Left.(*ast.Binary)
	assert.Equal(t, ast.OpAnd, and.Op)
	assert.Equal(t, ast.OpNot, and.Right.(*ast.Unary).Op)

	eq := and.Left.(*ast.Binary)
	assert.Equal(t, ast.OpEq, eq.Op)
	add := eq.Left.(*ast.Binary)
	assert.Equal(t, ast.OpAdd, add.Op)
	assert.Equal(t, ast.OpMul, add.Right.(*ast.Binary).Op)
	assert.Equal(t, "$a + 2 * 3", add.Literal())
}

func TestParseInterpolatedString(t *testing.T) {
	nodes := parse(t, `#set($s = "hi ""$name"" #if(true)!#end")`)
	str := nodes[0].(*ast.Directive).Args[0].(*ast.Assignment).Value.(*ast.String)
	assert.True(t, str.Interpolate)
	assert.Equal(t, `hi "$name" #if(true)!#end`, str.Value)

	require.Len(t, str.Parsed.Nodes, 4)
	requireText(t, str.Parsed.Nodes[0], `hi "`)
	assert.Equal(t, "name", str.Parsed.Nodes[1].(*ast.Reference).Root)
	requireText(t, str.Parsed.Nodes[2], `" `)
	assert.Equal(t, "if", str.Parsed.Nodes[3].(*ast.Directive).Name)

	nodes = parse(t, `#set($s = 'no $interpolation')`)
	str = nodes[0].(*ast.Directive).Args[0].(*ast.Assignment).Value.(*ast.String)
	assert.False(t, str.Interpolate)
	assert.Equal(t, "no $interpolation", str.Value)
}

func TestParseMacros(t *testing.T) {
	nodes := parse(t, "#macro(greet $who $greeting = 'Hello')$greeting $who#end#greet('Bob', 'Hi')#greet #@wrap()body#end")
	require.Len(t, nodes, 4)

	def := nodes[0].(*ast.Directive)
	assert.Equal(t, "macro", def.Name)
	require.Len(t, def.Args, 3)
	assert.Equal(t, "greet", def.Args[0].(*ast.Word).Value)
	assert.Equal(t, "who", def.Args[1].(*ast.Reference).Root)
	assert.Equal(t, "greeting", def.Args[2].(*ast.Assignment).Target.Root)

	call := nodes[1].(*ast.Directive)
	assert.Equal(t, "greet", call.Name)
	assert.True(t, call.HasArgs)
	assert.Len(t, call.Args, 2)
	assert.Nil(t, call.Body)

	requireText(t, nodes[2], "#greet ")

	blockCall := nodes[3].(*ast.Directive)
	assert.True(t, blockCall.BlockMacro)
	assert.Equal(t, "wrap", blockCall.Name)
	requireText(t, blockCall.Body.Nodes[0], "body")
}

func TestParseComments(t *testing.T) {
	nodes := parse(t, "a ## comment\nb#* block\ncomment *#c #[[$raw #if]]#")
	require.Len(t, nodes, 1)
	requireText(t, nodes[0], "a bc $raw #if")
}

func TestParseSpaceGobblingLines(t *testing.T) {
	nodes := parse(t, "  #if(true)\n  a\n  #end\nb\n  ## note\n#set($x = 1)\nc")
	require.Len(t, nodes, 4)

	dir := nodes[0].(*ast.Directive)
	assert.Equal(t, "  ", dir.Indent)
	require.Len(t, dir.Body.Nodes, 1)
	requireText(t, dir.Body.Nodes[0], "  a\n")

	requireText(t, nodes[1], "b\n")
	assert.Equal(t, "set", nodes[2].(*ast.Directive).Name)
	requireText(t, nodes[3], "c")

	nodes = parse(t, "x #if(true)\ny#end z")
	requireText(t, nodes[0], "x ")
	requireText(t, nodes[1].(*ast.Directive).Body.Nodes[0], "\ny")
	requireText(t, nodes[2], " z")
}

func TestParseSpaceGobblingNone(t *testing.T) {
	nodes := parseWith(t, "  #set($a = 1)\nX", config.SpaceGobblingNone)
	require.Len(t, nodes, 3)
	requireText(t, nodes[0], "  ")
	requireText(t, nodes[2], "\nX")
}

func TestParseSpaceGobblingBC(t *testing.T) {
	nodes := parseWith(t, "  #set($a = 1)\nX", config.SpaceGobblingBC)
	require.Len(t, nodes, 2)
	requireText(t, nodes[1], "X")

	nodes = parseWith(t, "  #if(true)\nX#end", config.SpaceGobblingBC)
	require.Len(t, nodes, 2)
	requireText(t, nodes[0], "  ")
	requireText(t, nodes[1].(*ast.Directive).Body.Nodes[0], "X")

	nodes = parseWith(t, "#m()\nX", config.SpaceGobblingBC)
	require.Len(t, nodes, 2)
	requireText(t, nodes[1], "\nX")
}

func TestParsePositions(t *testing.T) {
	nodes := parse(t, "line1\n  $ref.prop")
	ref := nodes[1].(*ast.Reference)
	assert.Equal(t, 2, ref.Pos().LineNum())
	assert.Equal(t, 3, ref.Pos().ColNum())
	assert.Equal(t, "  $ref.prop", ref.Pos().GetLine())
	assert.Equal(t, 7, ref.Segments[0].Position.ColNum())
}

func TestParseCustomDirectives(t *testing.T) {
	directives := parser.DefaultDirectives()
	directives["upper"] = ast.BlockDirective

	tpl, err := parser.Parse("tpl.vtl", "#upper x #end", parser.Options{Directives: directives})
	require.NoError(t, err)

	dir := tpl.Body.Nodes[0].(*ast.Directive)
	assert.Equal(t, "upper", dir.Name)
	assert.False(t, dir.HasArgs)
	requireText(t, dir.Body.Nodes[0], " x ")
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"#if(true)x":                  "Missing #end for #if at tpl.vtl:1:1",
		"x\n#end":                     "Unexpected #end at tpl.vtl:2:1",
		"#foreach($a in $b)#else#end": "Unexpected #else at tpl.vtl:1:19",
		"${a":                         "Expected '}' to close reference '${a' at tpl.vtl:1:1",
		"#set($a = )":                 "Unexpected ')' at tpl.vtl:1:11",
		"#set":                        "Expected '(' after #set at tpl.vtl:1:1",
		"#set($a = 'x)":               "Unterminated string literal at tpl.vtl:1:11",
		"#* open":                     "Unterminated block comment at tpl.vtl:1:1",
		"#set(1 = 2)":                 "Expected reference on the left side of '=', but found integer at tpl.vtl:1:8",
		"#m($a":                       "Missing closing ')' at tpl.vtl:1:6",
		"#if($a ; $b)#end":            "Unexpected character ';' at tpl.vtl:1:8",
	}

	for src, expectedErr := range cases {
		_, err := parser.Parse("tpl.vtl", src, parser.Options{})
		require.Error(t, err, src)
		assert.Equal(t, expectedErr, err.Error(), src)

		var parseErr parser.Error
		assert.ErrorAs(t, err, &parseErr)
	}
}
