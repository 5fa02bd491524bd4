// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"io"

	"carvel.dev/vtl/pkg/ast"
)

// macroDirective registers inline velocimacro when template is bound.
// It renders nothing.
type macroDirective struct{}

var _ Directive = &macroDirective{}

func (d *macroDirective) Init(b *Binder, node *ast.Directive) error {
	if len(node.Args) == 0 {
		return b.InitError(node.Pos(), "Expected #macro to have a name")
	}

	nameWord, ok := node.Args[0].(*ast.Word)
	if !ok {
		return b.InitError(node.Pos(), "Expected #macro name to be a word, but was '%s'", node.Args[0].Literal())
	}
	if _, found := b.engine.directiveFactory(nameWord.Value); found {
		return b.InitError(node.Pos(), "Expected #macro name '%s' to not be a directive name", nameWord.Value)
	}

	params, err := macroParams(b, node.Args[1:])
	if err != nil {
		return err
	}

	if !b.engine.cfg.Velocimacro.InlineAllowed && !b.library {
		b.engine.log.Warningf("Ignoring #macro '%s' at %s: inline macros are not allowed",
			nameWord.Value, node.Pos().AsCompactString())
		return nil
	}

	b.engine.addMacro(&macroProxy{
		name:    nameWord.Value,
		params:  params,
		header:  node,
		body:    node.Body,
		source:  b.name,
		library: b.library,
		pos:     node.Pos(),
	})
	return nil
}

func (d *macroDirective) Render(*State, io.Writer) error { return nil }

func macroParams(b *Binder, args []ast.Node) ([]macroParam, error) {
	var params []macroParam
	seen := map[string]struct{}{}

	for _, arg := range args {
		var param macroParam

		switch typedArg := arg.(type) {
		case *ast.Reference:
			if !typedArg.IsScalar() || typedArg.Escapes > 0 || typedArg.Alternate != nil {
				return nil, b.InitError(arg.Pos(), "Expected macro parameter '%s' to be a simple reference", arg.Literal())
			}
			param.name = typedArg.Root

		case *ast.Assignment:
			if !typedArg.Target.IsScalar() || typedArg.Target.Escapes > 0 {
				return nil, b.InitError(arg.Pos(), "Expected macro parameter '%s' to be a simple reference", arg.Literal())
			}
			param.name = typedArg.Target.Root
			param.def = typedArg.Value

		default:
			return nil, b.InitError(arg.Pos(), "Expected macro parameter '%s' to be a reference", arg.Literal())
		}

		if _, found := seen[param.name]; found {
			return nil, b.InitError(arg.Pos(), "Expected macro parameter '$%s' to be unique", param.name)
		}
		seen[param.name] = struct{}{}
		params = append(params, param)
	}

	return params, nil
}
