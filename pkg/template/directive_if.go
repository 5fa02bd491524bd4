// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"io"

	"carvel.dev/vtl/pkg/ast"
)

type ifBranch struct {
	// condition is nil for #else
	condition Expr
	body      Node
}

type ifDirective struct {
	branches []ifBranch
}

var _ Directive = &ifDirective{}

func (d *ifDirective) Init(b *Binder, node *ast.Directive) error {
	if len(node.Args) != 1 {
		return b.InitError(node.Pos(), "Expected #if to have exactly one condition, but found %d", len(node.Args))
	}

	cond, err := b.BindExpr(node.Args[0])
	if err != nil {
		return err
	}
	body, err := b.BindBody(node, node.Body)
	if err != nil {
		return err
	}
	d.branches = append(d.branches, ifBranch{condition: cond, body: body})

	for _, branch := range node.Branches {
		var cond Expr
		if branch.Condition != nil {
			cond, err = b.BindExpr(branch.Condition)
			if err != nil {
				return err
			}
		}
		body, err := b.BindBody(node, branch.Body)
		if err != nil {
			return err
		}
		d.branches = append(d.branches, ifBranch{condition: cond, body: body})
	}

	return nil
}

func (d *ifDirective) Render(s *State, w io.Writer) error {
	for _, branch := range d.branches {
		if branch.condition != nil {
			ok, err := branch.condition.Evaluate(s)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		return branch.body.Render(s, w)
	}
	return nil
}
