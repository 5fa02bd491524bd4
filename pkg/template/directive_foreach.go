// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"io"

	"carvel.dev/vtl/pkg/ast"
	"carvel.dev/vtl/pkg/config"
)

const foreachScopeName = "foreach"

type foreachDirective struct {
	varName  string
	iterable Expr
	body     Node
	pos      string
}

var _ Directive = &foreachDirective{}

func (d *foreachDirective) Init(b *Binder, node *ast.Directive) error {
	const form = "Expected #foreach to be of form ($item in $items)"

	if len(node.Args) != 3 {
		return b.InitError(node.Pos(), form)
	}

	item, ok := node.Args[0].(*ast.Reference)
	if !ok || !item.IsScalar() || item.Escapes > 0 {
		return b.InitError(node.Pos(), "%s, but loop variable was '%s'", form, node.Args[0].Literal())
	}
	if word, ok := node.Args[1].(*ast.Word); !ok || word.Value != "in" {
		return b.InitError(node.Pos(), "%s, but missing 'in'", form)
	}

	var err error

	d.varName = item.Root
	d.pos = node.Pos().AsCompactString()

	d.iterable, err = b.BindExpr(node.Args[2])
	if err != nil {
		return err
	}
	d.body, err = b.BindBody(node, node.Body)
	return err
}

func (d *foreachDirective) Render(s *State, w io.Writer) error {
	var items interface{}
	var err error
	if rng, ok := d.iterable.(*rangeNode); ok {
		// ranges are iterated without materializing them
		items, err = rng.lazyValue(s)
	} else {
		items, err = d.iterable.Value(s)
	}
	if err != nil {
		return err
	}
	if items == nil {
		s.Logger().Debugf("Skipping #foreach over null '%s' at %s", d.iterable.Literal(), d.pos)
		return nil
	}

	iter, ok := s.engine.introspector.Iterator(items)
	if !ok {
		msg := fmt.Sprintf("Expected #foreach value '%s' to be iterable, but was %T", d.iterable.Literal(), items)
		if s.strict() {
			return fmt.Errorf("%s at %s", msg, d.pos)
		}
		s.Logger().Warningf("%s at %s", msg, d.pos)
		return nil
	}

	prevItem, hadItem, err := contextLookup(s.ctx, d.varName)
	if err != nil {
		return err
	}
	defer func() {
		if hadItem {
			s.ctx.Put(d.varName, prevItem)
		} else {
			s.ctx.Remove(d.varName)
		}
	}()

	scope, err := s.pushScope(config.ScopeForeach, foreachScopeName, "")
	if err != nil {
		return err
	}
	defer s.popScope(scope)

	maxLoops := s.Config().ForeachMaxLoops

	for count := 0; iter.HasNext(); count++ {
		if maxLoops > 0 && count >= maxLoops {
			s.Logger().Debugf("Reached foreach_max_loops of %d in #foreach at %s", maxLoops, d.pos)
			break
		}

		s.ctx.Put(d.varName, iter.Next())

		if scope != nil {
			scope.index = count
			scope.hasNext = iter.HasNext()
		}

		err := d.body.Render(s, w)
		if err != nil {
			if stop, ok := asStop(err); ok && (stop.stopsNearestLoop() || stop.isForScope(scope)) {
				return nil
			}
			return err
		}
	}

	return nil
}
