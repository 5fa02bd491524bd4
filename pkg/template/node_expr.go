// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"strings"

	"carvel.dev/vtl/pkg/introspect"
	"carvel.dev/vtl/pkg/orderedmap"
)

// constantNode holds values known at bind time (numbers, booleans,
// non-interpolated strings and words).
type constantNode struct {
	exprBase
	value interface{}
}

var _ Expr = &constantNode{}

func (n *constantNode) Value(*State) (interface{}, error) { return n.value, nil }
func (n *constantNode) Evaluate(s *State) (bool, error)   { return evaluateValue(s, n) }

type interpolatedStringNode struct {
	exprBase
	body Node
}

var _ Expr = &interpolatedStringNode{}

func (n *interpolatedStringNode) Value(s *State) (interface{}, error) {
	var buf strings.Builder
	err := n.body.Render(s, &buf)
	if err != nil {
		return nil, err
	}
	return buf.String(), nil
}

func (n *interpolatedStringNode) Evaluate(s *State) (bool, error) { return evaluateValue(s, n) }

type listNode struct {
	exprBase
	items []Expr
}

var _ Expr = &listNode{}

// Value returns new mutable list on each evaluation.
func (n *listNode) Value(s *State) (interface{}, error) {
	items := make([]interface{}, 0, len(n.items))
	for _, item := range n.items {
		val, err := item.Value(s)
		if err != nil {
			return nil, err
		}
		items = append(items, val)
	}
	return introspect.NewList(items...), nil
}

func (n *listNode) Evaluate(s *State) (bool, error) { return evaluateValue(s, n) }

type mapEntryNode struct {
	key   Expr
	value Expr
}

type mapNode struct {
	exprBase
	entries []mapEntryNode
}

var _ Expr = &mapNode{}

func (n *mapNode) Value(s *State) (interface{}, error) {
	result := orderedmap.NewMap()
	for _, entry := range n.entries {
		key, err := entry.key.Value(s)
		if err != nil {
			return nil, err
		}
		val, err := entry.value.Value(s)
		if err != nil {
			return nil, err
		}
		result.Set(key, val)
	}
	return result, nil
}

func (n *mapNode) Evaluate(s *State) (bool, error) { return evaluateValue(s, n) }

type rangeNode struct {
	exprBase
	left  Expr
	right Expr
}

var _ Expr = &rangeNode{}

func (n *rangeNode) Value(s *State) (interface{}, error) {
	result, err := n.lazyValue(s)
	if err != nil || result == nil || s.Config().ImmutableRanges {
		return result, err
	}
	list, err := result.(introspect.IntegerRange).AsList()
	if err != nil {
		return nil, fmt.Errorf("%w at %s", err, n.pos.AsCompactString())
	}
	return list, nil
}

// lazyValue returns range without materializing its items (nil
// for null bounds in lenient mode).
func (n *rangeNode) lazyValue(s *State) (interface{}, error) {
	bounds := make([]int, 2)
	for i, expr := range []Expr{n.left, n.right} {
		val, err := expr.Value(s)
		if err != nil {
			return nil, err
		}
		num, ok := introspect.AsInt(val)
		if !ok {
			if val == nil && !s.strict() {
				s.Logger().Debugf("Range bound '%s' is null at %s", expr.Literal(), n.pos.AsCompactString())
				return nil, nil
			}
			return nil, fmt.Errorf("Expected range bound '%s' to be an integer, but was %T at %s",
				expr.Literal(), val, n.pos.AsCompactString())
		}
		bounds[i] = num
	}

	result, err := introspect.NewIntegerRange(int64(bounds[0]), int64(bounds[1]))
	if err != nil {
		return nil, fmt.Errorf("%w at %s", err, n.pos.AsCompactString())
	}
	return result, nil
}

func (n *rangeNode) Evaluate(s *State) (bool, error) { return evaluateValue(s, n) }
