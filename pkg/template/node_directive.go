// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"io"

	"carvel.dev/vtl/pkg/ast"
)

// Directive is implemented by built-in and custom #directives.
// Init is called once when template is bound; Render may be called
// concurrently and must keep per render data in State or its context.
type Directive interface {
	Init(b *Binder, node *ast.Directive) error
	Render(s *State, w io.Writer) error
}

// DirectiveFactory returns new directive instance per occurrence in a template.
type DirectiveFactory func() Directive

type directiveEntry struct {
	kind    ast.DirectiveKind
	factory DirectiveFactory
}

var reservedDirectiveNames = map[string]struct{}{
	"end": {}, "else": {}, "elseif": {},
}

func builtinDirectives() map[string]directiveEntry {
	return map[string]directiveEntry{
		"set":      {ast.LineDirective, func() Directive { return &setDirective{} }},
		"if":       {ast.BlockDirective, func() Directive { return &ifDirective{} }},
		"foreach":  {ast.BlockDirective, func() Directive { return &foreachDirective{} }},
		"break":    {ast.LineDirective, func() Directive { return &breakDirective{} }},
		"stop":     {ast.LineDirective, func() Directive { return &stopDirective{} }},
		"macro":    {ast.BlockDirective, func() Directive { return &macroDirective{} }},
		"define":   {ast.BlockDirective, func() Directive { return &defineDirective{} }},
		"evaluate": {ast.LineDirective, func() Directive { return &evaluateDirective{} }},
		"include":  {ast.LineDirective, func() Directive { return &includeDirective{} }},
		"parse":    {ast.LineDirective, func() Directive { return &parseDirective{} }},
	}
}

// RegisterDirective adds custom directive (or replaces built-in one).
// Templates bound afterwards recognize #name as the directive
// instead of a macro call.
func (e *Engine) RegisterDirective(name string, kind ast.DirectiveKind, factory DirectiveFactory) error {
	if _, reserved := reservedDirectiveNames[name]; reserved || len(name) == 0 {
		return fmt.Errorf("Expected directive name '%s' to not be reserved", name)
	}
	if factory == nil {
		return fmt.Errorf("Expected directive '%s' to have non-nil factory", name)
	}

	e.directivesLock.Lock()
	defer e.directivesLock.Unlock()

	e.directives[name] = directiveEntry{kind: kind, factory: factory}
	return nil
}

func (e *Engine) directiveFactory(name string) (DirectiveFactory, bool) {
	e.directivesLock.RLock()
	defer e.directivesLock.RUnlock()

	entry, found := e.directives[name]
	return entry.factory, found
}

func (e *Engine) directiveKinds() map[string]ast.DirectiveKind {
	e.directivesLock.RLock()
	defer e.directivesLock.RUnlock()

	result := map[string]ast.DirectiveKind{}
	for name, entry := range e.directives {
		result[name] = entry.kind
	}
	return result
}
