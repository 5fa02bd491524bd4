// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"strings"

	"carvel.dev/vtl/pkg/ast"
	"carvel.dev/vtl/pkg/config"
	"carvel.dev/vtl/pkg/filepos"
)

// Binder turns syntax tree of one template into evaluation nodes.
// Directives receive it in Init to bind their arguments and bodies.
// Binding is single threaded; bound nodes are shared by all renders.
type Binder struct {
	engine *Engine
	name   string
	// library is set when binding velocimacro.library templates
	library bool
	// dedent counts indentation removed by enclosing structured bodies
	dedent int
}

func newBinder(engine *Engine, name string) *Binder {
	return &Binder{engine: engine, name: name}
}

func (b *Binder) Engine() *Engine { return b.engine }

// TemplateName is the name of the template being bound. Macros
// defined inline are registered under it.
func (b *Binder) TemplateName() string { return b.name }

// InitError builds error that fails binding of the template.
func (b *Binder) InitError(pos *filepos.Position, msg string, args ...interface{}) error {
	return TemplateInitError{Position: pos, Msg: fmt.Sprintf(msg, args...)}
}

func (b *Binder) BindBlock(block *ast.Block) (Node, error) {
	if block == nil {
		return &blockNode{}, nil
	}

	result := &blockNode{}

	for _, node := range block.Nodes {
		bound, err := b.bindNode(node)
		if err != nil {
			return nil, err
		}
		if bound != nil {
			result.nodes = append(result.nodes, bound)
		}
	}

	return result, nil
}

// BindBody binds body of a block directive applying structured
// reindentation when configured.
func (b *Binder) BindBody(dir *ast.Directive, block *ast.Block) (Node, error) {
	if block != nil && b.engine.cfg.SpaceGobbling == config.SpaceGobblingStructured {
		var extra int
		block, extra = reindentBlock(dir, block, b.dedent)

		prevDedent := b.dedent
		b.dedent += extra
		defer func() { b.dedent = prevDedent }()
	}
	return b.BindBlock(block)
}

func (b *Binder) bindNode(node ast.Node) (Node, error) {
	switch typedNode := node.(type) {
	case *ast.Text:
		return &textNode{value: typedNode.Value}, nil

	case *ast.Reference:
		return b.bindReference(typedNode)

	case *ast.Directive:
		return b.bindDirective(typedNode)

	default:
		return nil, b.InitError(node.Pos(), "Unexpected %s '%s' in template body", node.Kind(), node.Literal())
	}
}

func (b *Binder) bindDirective(node *ast.Directive) (Node, error) {
	if !node.BlockMacro {
		if factory, found := b.engine.directiveFactory(node.Name); found {
			directive := factory()
			err := directive.Init(b, node)
			if err != nil {
				return nil, err
			}
			return directive, nil
		}
	}
	return b.bindMacroCall(node)
}

// BindExpr binds directive argument or any other expression.
func (b *Binder) BindExpr(node ast.Node) (Expr, error) {
	base := exprBase{literal: node.Literal(), pos: node.Pos()}

	switch typedNode := node.(type) {
	case *ast.Reference:
		return b.bindReference(typedNode)

	case *ast.String:
		if typedNode.Interpolate && typedNode.Parsed != nil {
			body, err := b.BindBlock(typedNode.Parsed)
			if err != nil {
				return nil, err
			}
			return &interpolatedStringNode{exprBase: base, body: body}, nil
		}
		return &constantNode{exprBase: base, value: typedNode.Value}, nil

	case *ast.Integer:
		return &constantNode{exprBase: base, value: typedNode.Value}, nil

	case *ast.Float:
		return &constantNode{exprBase: base, value: typedNode.Value}, nil

	case *ast.Bool:
		return &constantNode{exprBase: base, value: typedNode.Value}, nil

	case *ast.Word:
		return &constantNode{exprBase: base, value: typedNode.Value}, nil

	case *ast.List:
		items, err := b.bindExprs(typedNode.Items)
		if err != nil {
			return nil, err
		}
		return &listNode{exprBase: base, items: items}, nil

	case *ast.Map:
		result := &mapNode{exprBase: base}
		for _, entry := range typedNode.Entries {
			key, err := b.BindExpr(entry.Key)
			if err != nil {
				return nil, err
			}
			val, err := b.BindExpr(entry.Value)
			if err != nil {
				return nil, err
			}
			result.entries = append(result.entries, mapEntryNode{key: key, value: val})
		}
		return result, nil

	case *ast.Range:
		left, err := b.BindExpr(typedNode.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.BindExpr(typedNode.Right)
		if err != nil {
			return nil, err
		}
		return &rangeNode{exprBase: base, left: left, right: right}, nil

	case *ast.Binary:
		left, err := b.BindExpr(typedNode.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.BindExpr(typedNode.Right)
		if err != nil {
			return nil, err
		}
		return &binaryNode{exprBase: base, op: typedNode.Op, left: left, right: right}, nil

	case *ast.Unary:
		operand, err := b.BindExpr(typedNode.Operand)
		if err != nil {
			return nil, err
		}
		return &unaryNode{exprBase: base, op: typedNode.Op, operand: operand}, nil

	default:
		return nil, b.InitError(node.Pos(), "Unexpected %s '%s' in expression", node.Kind(), node.Literal())
	}
}

func (b *Binder) bindExprs(nodes []ast.Node) ([]Expr, error) {
	var result []Expr
	for _, node := range nodes {
		expr, err := b.BindExpr(node)
		if err != nil {
			return nil, err
		}
		result = append(result, expr)
	}
	return result, nil
}

func (b *Binder) bindReference(node *ast.Reference) (*referenceNode, error) {
	ref := &referenceNode{
		exprBase: exprBase{literal: node.Literal(), pos: node.Pos()},
		root:     node.Root,
		quiet:    node.Quiet,
		escapes:  node.Escapes,
	}

	for _, seg := range node.Segments {
		args, err := b.bindExprs(seg.Args)
		if err != nil {
			return nil, err
		}
		pos := seg.Position
		if pos == nil {
			pos = node.Pos()
		}
		ref.segments = append(ref.segments, &segmentNode{
			kind:    seg.Kind,
			name:    seg.Name,
			args:    args,
			literal: seg.Source,
			pos:     pos,
		})
	}

	if node.Alternate != nil {
		alternate, err := b.BindExpr(node.Alternate)
		if err != nil {
			return nil, err
		}
		ref.alternate = alternate
	}

	return ref, nil
}

// reindentBlock removes extra indentation of block directive body
// so that body lines are indented like the directive itself. dedent is
// indentation already removed by enclosing structured blocks.
func reindentBlock(dir *ast.Directive, block *ast.Block, dedent int) (*ast.Block, int) {
	extra := 0
	if len(block.Nodes) > 0 {
		first, ok := block.Nodes[0].(*ast.Text)
		if ok && first.Pos().ColNum() == 1 {
			bodyIndent := first.Value[:len(first.Value)-len(strings.TrimLeft(first.Value, " \t"))]
			if strings.HasPrefix(bodyIndent, dir.Indent) {
				extra = len(bodyIndent) - len(dir.Indent)
			}
		}
	}

	strip := dedent + extra
	if strip == 0 {
		return block, 0
	}

	result := &ast.Block{Span: block.Span}

	for _, node := range block.Nodes {
		text, ok := node.(*ast.Text)
		if !ok {
			result.Nodes = append(result.Nodes, node)
			continue
		}

		lines := strings.Split(text.Value, "\n")
		for i, line := range lines {
			if i > 0 || text.Pos().ColNum() == 1 {
				lines[i] = trimIndent(line, strip)
			}
		}

		result.Nodes = append(result.Nodes, &ast.Text{Span: text.Span, Value: strings.Join(lines, "\n")})
	}

	return result, extra
}

func trimIndent(line string, count int) string {
	i := 0
	for i < count && i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[i:]
}
