// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"io"

	"carvel.dev/vtl/pkg/ast"
	"carvel.dev/vtl/pkg/config"
	"carvel.dev/vtl/pkg/parser"
)

// resourceName evaluates directive argument into resource name.
// Empty name is returned (without error) for null in lenient mode.
func resourceName(s *State, directive string, arg Expr) (string, error) {
	val, err := arg.Value(s)
	if err != nil {
		return "", err
	}
	if val == nil {
		msg := fmt.Sprintf("Expected #%s argument '%s' to be non-null", directive, arg.Literal())
		if s.strict() {
			return "", fmt.Errorf("%s at %s", msg, arg.Pos().AsCompactString())
		}
		s.Logger().Warningf("%s at %s", msg, arg.Pos().AsCompactString())
		return "", nil
	}
	return s.asString(val)
}

// includeDirective writes resources without rendering them.
type includeDirective struct {
	args []Expr
}

var _ Directive = &includeDirective{}

func (d *includeDirective) Init(b *Binder, node *ast.Directive) error {
	if len(node.Args) == 0 {
		return b.InitError(node.Pos(), "Expected #include to have at least one argument")
	}
	var err error
	d.args, err = b.bindExprs(node.Args)
	return err
}

func (d *includeDirective) Render(s *State, w io.Writer) error {
	for _, arg := range d.args {
		name, err := resourceName(s, "include", arg)
		if err != nil {
			return err
		}
		if len(name) == 0 {
			continue
		}

		res, err := s.engine.resources.Load(name)
		if err != nil {
			return fmt.Errorf("Including '%s' at %s: %s", name, arg.Pos().AsCompactString(), err)
		}

		_, err = w.Write(res.Data)
		if err != nil {
			return err
		}
	}
	return nil
}

// parseDirective renders another template in current context and
// makes its macros visible for the rest of the merge.
type parseDirective struct {
	arg Expr
}

var _ Directive = &parseDirective{}

func (d *parseDirective) Init(b *Binder, node *ast.Directive) error {
	if len(node.Args) != 1 {
		return b.InitError(node.Pos(), "Expected #parse to have exactly one argument, but found %d", len(node.Args))
	}
	var err error
	d.arg, err = b.BindExpr(node.Args[0])
	return err
}

func (d *parseDirective) Render(s *State, w io.Writer) error {
	name, err := resourceName(s, "parse", d.arg)
	if err != nil || len(name) == 0 {
		return err
	}

	maxDepth := s.Config().ParseMaxDepth
	if s.parseDepth >= maxDepth {
		s.Logger().Warningf("Max #parse depth of %d reached at %s, skipping '%s'",
			maxDepth, d.arg.Pos().AsCompactString(), name)
		return nil
	}

	tpl, err := s.engine.GetTemplate(name)
	if err != nil {
		return fmt.Errorf("Parsing '%s' at %s: %s", name, d.arg.Pos().AsCompactString(), err)
	}

	s.shared.libraries = append(s.shared.libraries, tpl)

	child := s.withContext(s.ctx)
	child.parseDepth++

	scope, err := child.pushScope(config.ScopeParse, "parse", tpl.name)
	if err != nil {
		return err
	}

	err = tpl.root.Render(child, w)

	child.popScope(scope)

	if stop, ok := asStop(err); ok && stop.isForScope(scope) {
		return nil
	}
	return err
}

// evaluateDirective renders string value as template source.
type evaluateDirective struct {
	arg    Expr
	source string
}

var _ Directive = &evaluateDirective{}

func (d *evaluateDirective) Init(b *Binder, node *ast.Directive) error {
	if len(node.Args) != 1 {
		return b.InitError(node.Pos(), "Expected #evaluate to have exactly one argument, but found %d", len(node.Args))
	}
	var err error
	d.source = b.name
	d.arg, err = b.BindExpr(node.Args[0])
	return err
}

func (d *evaluateDirective) Render(s *State, w io.Writer) error {
	val, err := d.arg.Value(s)
	if err != nil || val == nil {
		return err
	}

	src, err := s.asString(val)
	if err != nil {
		return err
	}

	tree, err := parser.Parse(d.source, src, s.engine.parserOpts())
	if err != nil {
		return fmt.Errorf("Evaluating '%s' at %s: %s", d.arg.Literal(), d.arg.Pos().AsCompactString(), err)
	}

	root, err := newBinder(s.engine, d.source).BindBlock(tree.Body)
	if err != nil {
		return fmt.Errorf("Evaluating '%s' at %s: %s", d.arg.Literal(), d.arg.Pos().AsCompactString(), err)
	}

	scope, err := s.pushScope(config.ScopeEvaluate, "evaluate", d.source)
	if err != nil {
		return err
	}

	err = root.Render(s, w)

	s.popScope(scope)

	if stop, ok := asStop(err); ok && stop.isForScope(scope) {
		return nil
	}
	return err
}
