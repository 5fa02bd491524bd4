// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ast

import (
	"carvel.dev/vtl/pkg/filepos"
)

type Kind int

const (
	KindTemplate Kind = iota
	KindBlock
	KindText
	KindReference
	KindDirective
	KindString
	KindInteger
	KindFloat
	KindBool
	KindList
	KindMap
	KindRange
	KindWord
	KindBinary
	KindUnary
	KindAssignment
)

var kindNames = map[Kind]string{
	KindTemplate:   "template",
	KindBlock:      "block",
	KindText:       "text",
	KindReference:  "reference",
	KindDirective:  "directive",
	KindString:     "string",
	KindInteger:    "integer",
	KindFloat:      "float",
	KindBool:       "boolean",
	KindList:       "list",
	KindMap:        "map",
	KindRange:      "range",
	KindWord:       "word",
	KindBinary:     "binary operator",
	KindUnary:      "unary operator",
	KindAssignment: "assignment",
}

func (k Kind) String() string {
	if name, found := kindNames[k]; found {
		return name
	}
	return "unknown"
}

type Node interface {
	Kind() Kind
	Pos() *filepos.Position
	// Literal returns source text of the node as it appeared in the template.
	Literal() string

	node()
}

var _ = []Node{&Template{}, &Block{}, &Text{}, &Reference{}, &Directive{},
	&String{}, &Integer{}, &Float{}, &Bool{}, &List{}, &Map{}, &Range{},
	&Word{}, &Binary{}, &Unary{}, &Assignment{}}

// Span is embedded into every node.
type Span struct {
	Position *filepos.Position
	Source   string
}

func (s Span) Pos() *filepos.Position {
	if s.Position == nil {
		return filepos.NewUnknownPosition()
	}
	return s.Position
}

func (s Span) Literal() string { return s.Source }

func (Span) node() {}

type Template struct {
	Span
	Name string
	Body *Block
}

type Block struct {
	Span
	Nodes []Node
}

type Text struct {
	Span
	Value string
}

type SegmentKind int

const (
	SegmentProperty SegmentKind = iota
	SegmentMethod
	SegmentIndex
)

// Segment is one link of reference chain: .name, .name(args) or [index].
type Segment struct {
	Kind     SegmentKind
	Name     string
	Args     []Node
	Source   string
	Position *filepos.Position
}

type Reference struct {
	Span
	// Escapes is the number of backslashes directly preceding '$'.
	Escapes   int
	Quiet     bool
	Formal    bool
	Root      string
	Segments  []Segment
	Alternate Node
}

// Name returns dotted name without escapes, quiet marker or braces.
func (r *Reference) Name() string {
	name := r.Root
	for _, seg := range r.Segments {
		name += seg.Source
	}
	return name
}

// IsScalar reports whether reference has no segments (e.g. $foo).
func (r *Reference) IsScalar() bool { return len(r.Segments) == 0 }

type DirectiveKind int

const (
	LineDirective DirectiveKind = iota
	BlockDirective
)

func (k DirectiveKind) String() string {
	if k == BlockDirective {
		return "BLOCK"
	}
	return "LINE"
}

type Directive struct {
	Span
	Name string
	// BlockMacro is set for #@name(...) body #end calls.
	BlockMacro bool
	// HasArgs distinguishes #name() from #name.
	HasArgs bool
	Args    []Node
	Body    *Block
	// Branches hold #elseif/#else parts of #if.
	Branches []*Branch
	// Indent is leading whitespace of a directive alone on its line.
	Indent string
}

type Branch struct {
	Span
	Name      string
	Condition Node
	Body      *Block
}

type String struct {
	Span
	Value       string
	Interpolate bool
	// Parsed is set for double quoted strings containing references or directives.
	Parsed *Block
}

type Integer struct {
	Span
	Value int64
}

type Float struct {
	Span
	Value float64
}

type Bool struct {
	Span
	Value bool
}

type List struct {
	Span
	Items []Node
}

type MapEntry struct {
	Key   Node
	Value Node
}

type Map struct {
	Span
	Entries []MapEntry
}

type Range struct {
	Span
	Left  Node
	Right Node
}

// Word is a bare identifier such as "in" of #foreach or macro name of #macro.
type Word struct {
	Span
	Value string
}

type BinaryOp int

const (
	OpOr BinaryOp = iota
	OpAnd
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

var binaryOpNames = []string{"||", "&&", "==", "!=", "<", "<=", ">", ">=", "+", "-", "*", "/", "%"}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// IsLogical reports whether operands of op are tested for truthiness.
func (op BinaryOp) IsLogical() bool { return op == OpOr || op == OpAnd }

type Binary struct {
	Span
	Op    BinaryOp
	Left  Node
	Right Node
}

type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNegate
)

func (op UnaryOp) String() string {
	if op == OpNot {
		return "!"
	}
	return "-"
}

type Unary struct {
	Span
	Op      UnaryOp
	Operand Node
}

type Assignment struct {
	Span
	Target *Reference
	Value  Node
}

func (*Template) Kind() Kind   { return KindTemplate }
func (*Block) Kind() Kind      { return KindBlock }
func (*Text) Kind() Kind       { return KindText }
func (*Reference) Kind() Kind  { return KindReference }
func (*Directive) Kind() Kind  { return KindDirective }
func (*String) Kind() Kind     { return KindString }
func (*Integer) Kind() Kind    { return KindInteger }
func (*Float) Kind() Kind      { return KindFloat }
func (*Bool) Kind() Kind       { return KindBool }
func (*List) Kind() Kind       { return KindList }
func (*Map) Kind() Kind        { return KindMap }
func (*Range) Kind() Kind      { return KindRange }
func (*Word) Kind() Kind       { return KindWord }
func (*Binary) Kind() Kind     { return KindBinary }
func (*Unary) Kind() Kind      { return KindUnary }
func (*Assignment) Kind() Kind { return KindAssignment }
