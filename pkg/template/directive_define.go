// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"io"
	"strings"

	"carvel.dev/vtl/pkg/ast"
	"carvel.dev/vtl/pkg/config"
)

// defineDirective places reference to its (unrendered) body into context.
type defineDirective struct {
	name string
	body Node
}

var _ Directive = &defineDirective{}

func (d *defineDirective) Init(b *Binder, node *ast.Directive) error {
	if len(node.Args) != 1 {
		return b.InitError(node.Pos(), "Expected #define to have exactly one argument, but found %d", len(node.Args))
	}
	ref, ok := node.Args[0].(*ast.Reference)
	if !ok || !ref.IsScalar() || ref.Escapes > 0 {
		return b.InitError(node.Pos(), "Expected #define argument to be a simple reference, but was '%s'", node.Args[0].Literal())
	}

	var err error

	d.name = ref.Root
	d.body, err = b.BindBody(node, node.Body)
	return err
}

func (d *defineDirective) Render(s *State, _ io.Writer) error {
	s.ctx.Put(d.name, &blockReference{
		body:      d.body,
		state:     s,
		maxDepth:  s.Config().DefineMaxDepth,
		literal:   "$" + d.name,
		control:   config.ScopeDefine,
		scopeName: "define",
	})
	return nil
}

// blockReference renders captured body in the state it was captured in.
// It backs #define values and $bodyContent of block macros.
type blockReference struct {
	body     Node
	state    *State
	maxDepth int
	literal  string

	// control enables scope pushed while rendering
	control   string
	scopeName string
}

var _ blockRenderer = &blockReference{}

func (r *blockReference) renderBlock(w io.Writer) error {
	depths := r.state.shared.defineDepth

	if depths[r] >= r.maxDepth {
		r.state.Logger().Warningf("Max recursion depth of %d reached rendering '%s'", r.maxDepth, r.literal)
		return nil
	}

	depths[r]++
	defer func() { depths[r]-- }()

	var scope *Scope
	if len(r.control) > 0 {
		var err error
		scope, err = r.state.pushScope(r.control, r.scopeName, r.literal)
		if err != nil {
			return err
		}
	}

	err := r.body.Render(r.state, w)

	r.state.popScope(scope)

	if stop, ok := asStop(err); ok && stop.isForScope(scope) {
		return nil
	}
	return err
}

// String serves host code (fmt, host method arguments). Templates
// coerce block references through State.asString instead.
func (r *blockReference) String() string {
	var buf strings.Builder
	err := r.renderBlock(&buf)
	if err != nil {
		r.state.Logger().Warningf("Rendering '%s': %s", r.literal, err)
	}
	return buf.String()
}
