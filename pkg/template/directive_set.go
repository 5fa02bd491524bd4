// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"io"

	"carvel.dev/vtl/pkg/ast"
)

type setDirective struct {
	target *referenceNode
	value  Expr
}

var _ Directive = &setDirective{}

func (d *setDirective) Init(b *Binder, node *ast.Directive) error {
	if len(node.Args) != 1 {
		return b.InitError(node.Pos(), "Expected #set to be of form ($ref = value)")
	}
	assign, ok := node.Args[0].(*ast.Assignment)
	if !ok || assign.Target == nil {
		return b.InitError(node.Pos(), "Expected #set to be of form ($ref = value)")
	}

	segs := assign.Target.Segments
	if len(segs) > 0 && segs[len(segs)-1].Kind == ast.SegmentMethod {
		return b.InitError(node.Pos(), "Expected left side of #set to not end with method call, but was '%s'",
			assign.Target.Literal())
	}
	if assign.Target.Escapes > 0 {
		return b.InitError(node.Pos(), "Expected left side of #set to not be escaped")
	}

	var err error

	d.target, err = b.bindReference(assign.Target)
	if err != nil {
		return err
	}
	d.value, err = b.BindExpr(assign.Value)
	return err
}

func (d *setDirective) Render(s *State, _ io.Writer) error {
	val, err := d.value.Value(s)
	if err != nil {
		return err
	}
	if val == nil {
		s.Logger().Debugf("Right side of #set '%s' is null at %s", d.value.Literal(), d.value.Pos().AsCompactString())
	}
	return d.target.setValue(s, val, d.value.Literal())
}
