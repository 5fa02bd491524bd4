// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"io"

	"carvel.dev/vtl/pkg/ast"
	"carvel.dev/vtl/pkg/filepos"
)

// macroCallNode is #name(args) (or #@name(args) body #end) whose target
// macro is resolved at every render.
type macroCallNode struct {
	name    string
	source  string
	literal string
	pos     *filepos.Position
	args    []*macroArgSpec
	// body is set for block macro calls
	body Node
}

var _ Node = &macroCallNode{}

// macroArgSpec is bound argument expression of a macro call.
type macroArgSpec struct {
	expr Expr
	// constant arguments are computed once while binding
	constant bool
	value    interface{}
	ref      *referenceNode
}

func (b *Binder) bindMacroCall(node *ast.Directive) (Node, error) {
	call := &macroCallNode{
		name:    node.Name,
		source:  b.name,
		literal: node.Literal(),
		pos:     node.Pos(),
	}

	for _, arg := range node.Args {
		spec := &macroArgSpec{}

		switch typedArg := arg.(type) {
		case *ast.Bool, *ast.Integer, *ast.Float:
			spec.constant = true
		case *ast.Reference:
			ref, err := b.bindReference(typedArg)
			if err != nil {
				return nil, err
			}
			spec.ref = ref
		}

		if spec.ref != nil {
			spec.expr = spec.ref
		} else {
			expr, err := b.BindExpr(arg)
			if err != nil {
				return nil, err
			}
			spec.expr = expr
		}

		if spec.constant {
			c, ok := spec.expr.(*constantNode)
			if !ok {
				return nil, b.InitError(arg.Pos(), "Expected constant macro argument '%s'", arg.Literal())
			}
			spec.value = c.value
		}

		call.args = append(call.args, spec)
	}

	if node.BlockMacro {
		body, err := b.BindBody(node, node.Body)
		if err != nil {
			return nil, err
		}
		call.body = body
	}

	return call, nil
}

func (n *macroCallNode) Render(s *State, w io.Writer) error {
	proxy, found := s.engine.lookupMacro(n.name, n.source, s)
	if !found {
		s.Logger().Debugf("Macro '#%s' is not defined at %s", n.name, n.pos.AsCompactString())
		return writeStrings(w, n.literal)
	}
	return proxy.render(s, w, n)
}

// macroArg is value of a macro parameter during one call.
type macroArg struct {
	spec   *macroArgSpec
	caller *State
	// value is used when spec is nil (default values)
	value interface{}

	shadowed bool
	shadow   interface{}
}

// lookup re-evaluates dynamic argument against caller.
// Argument bound to undefined reference is reported as not found.
func (a *macroArg) lookup() (interface{}, bool, error) {
	switch {
	case a.shadowed:
		return a.shadow, true, nil
	case a.spec == nil:
		return a.value, true, nil
	case a.spec.constant:
		return a.spec.value, true, nil
	case a.spec.ref != nil:
		ref := a.spec.ref
		root, found, err := contextLookup(a.caller.ctx, ref.root)
		if err != nil {
			return nil, false, err
		}
		if !found && ref.alternate == nil {
			return nil, false, nil
		}
		val, err := ref.walk(a.caller, root, len(ref.segments), true)
		if err != nil {
			return nil, false, err
		}
		val, err = ref.applyAlternate(a.caller, val)
		return val, true, err
	default:
		val, err := a.spec.expr.Value(a.caller)
		return val, true, err
	}
}

// assign writes through to caller for reference arguments
// and shadows everything else.
func (a *macroArg) assign(value interface{}) error {
	if a.spec != nil && a.spec.ref != nil && a.spec.ref.escapes == 0 {
		ref := a.spec.ref
		if ref.isScalar() {
			return contextAssign(a.caller.ctx, ref.root, value)
		}
		if ref.segments[len(ref.segments)-1].kind != ast.SegmentMethod {
			return ref.setValue(a.caller, value, "")
		}
	}
	a.setShadow(value)
	return nil
}

func (a *macroArg) setShadow(value interface{}) interface{} {
	prev := a.shadow
	a.shadowed = true
	a.shadow = value
	return prev
}
