// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"io"

	"carvel.dev/vtl/pkg/ast"
)

// breakDirective ends nearest #foreach, or construct that pushed given scope.
type breakDirective struct {
	scope Expr
}

var _ Directive = &breakDirective{}

func (d *breakDirective) Init(b *Binder, node *ast.Directive) error {
	switch len(node.Args) {
	case 0:
		return nil
	case 1:
		var err error
		d.scope, err = b.BindExpr(node.Args[0])
		return err
	default:
		return b.InitError(node.Pos(), "Expected #break to have at most one argument, but found %d", len(node.Args))
	}
}

func (d *breakDirective) Render(s *State, _ io.Writer) error {
	if d.scope == nil {
		return newBreakNearestLoop()
	}
	val, err := d.scope.Value(s)
	if err != nil {
		return err
	}
	scope, ok := val.(*Scope)
	if !ok {
		return fmt.Errorf("Expected #break argument '%s' to be a scope, but was %T at %s",
			d.scope.Literal(), val, d.scope.Pos().AsCompactString())
	}
	return newStopScope(scope)
}

// stopDirective ends whole merge, or construct that pushed given scope.
type stopDirective struct {
	arg Expr
}

var _ Directive = &stopDirective{}

func (d *stopDirective) Init(b *Binder, node *ast.Directive) error {
	switch len(node.Args) {
	case 0:
		return nil
	case 1:
		var err error
		d.arg, err = b.BindExpr(node.Args[0])
		return err
	default:
		return b.InitError(node.Pos(), "Expected #stop to have at most one argument, but found %d", len(node.Args))
	}
}

func (d *stopDirective) Render(s *State, _ io.Writer) error {
	if d.arg == nil {
		return newStopAll("")
	}
	val, err := d.arg.Value(s)
	if err != nil {
		return err
	}
	if scope, ok := val.(*Scope); ok {
		return newStopScope(scope)
	}

	msg, err := s.asString(val)
	if err != nil {
		return err
	}
	s.Logger().Infof("#stop at %s: %s", d.arg.Pos().AsCompactString(), msg)
	return newStopAll(msg)
}
