// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"io"

	"carvel.dev/vtl/pkg/filepos"
	"carvel.dev/vtl/pkg/introspect"
)

// Node is bound template content. Nodes are immutable after binding.
type Node interface {
	Render(s *State, w io.Writer) error
}

// Expr is bound expression (directive argument, reference,
// literal or operator).
type Expr interface {
	Value(s *State) (interface{}, error)
	// Evaluate returns value as boolean condition.
	Evaluate(s *State) (bool, error)
	Literal() string
	Pos() *filepos.Position
}

type exprBase struct {
	literal string
	pos     *filepos.Position
}

func (e exprBase) Literal() string        { return e.literal }
func (e exprBase) Pos() *filepos.Position { return e.pos }

// evaluateValue applies default conversion of value to condition.
func evaluateValue(s *State, expr Expr) (bool, error) {
	val, err := expr.Value(s)
	if err != nil {
		return false, err
	}
	return introspect.AsBoolean(val, s.checkEmpty()), nil
}

type blockNode struct {
	nodes []Node
}

var _ Node = &blockNode{}

func (b *blockNode) Render(s *State, w io.Writer) error {
	for _, node := range b.nodes {
		err := node.Render(s, w)
		if err != nil {
			return err
		}
	}
	return nil
}

type textNode struct {
	value string
}

var _ Node = &textNode{}

func (t *textNode) Render(_ *State, w io.Writer) error {
	_, err := io.WriteString(w, t.value)
	return err
}
