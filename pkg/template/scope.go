// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"carvel.dev/vtl/pkg/orderedmap"
)

// Scope is placed into context under its name (e.g. $foreach, $macro)
// while construct that pushed it renders. It can hold arbitrary values
// ($foreach.put('k', v), $foreach.k) and stop rendering up to its owner
// ($foreach.stop()).
type Scope struct {
	name     string
	parent   *Scope
	replaced interface{}
	depth    int
	values   *orderedmap.Map
	info     string

	index   int
	hasNext bool
}

func (s *Scope) Name() string { return s.name }

// Parent returns scope of the same name that was active before this one.
func (s *Scope) Parent() *Scope { return s.parent }

// Topmost returns outermost scope of the same name.
func (s *Scope) Topmost() *Scope {
	top := s
	for top.parent != nil {
		top = top.parent
	}
	return top
}

// Depth is 1 for topmost scope.
func (s *Scope) Depth() int { return s.depth }

// Replaced returns non-scope value that occupied scope's name
// in context before topmost scope was pushed.
func (s *Scope) Replaced() interface{} { return s.replaced }

// Info describes construct that pushed the scope (e.g. macro name).
func (s *Scope) Info() string { return s.info }

// Stop stops rendering up to construct that pushed this scope.
func (s *Scope) Stop() error { return newStopScope(s) }

func (s *Scope) Get(key string) interface{} {
	val, _ := s.values.Get(key)
	return val
}

func (s *Scope) Put(key string, value interface{}) interface{} {
	return s.values.Put(key, value)
}

func (s *Scope) String() string { return "$" + s.name }

// Loop progress; only meaningful for $foreach scopes.
func (s *Scope) Index() int    { return s.index }
func (s *Scope) Count() int    { return s.index + 1 }
func (s *Scope) HasNext() bool { return s.hasNext }
func (s *Scope) First() bool   { return s.index == 0 }
func (s *Scope) Last() bool    { return !s.hasNext }

// pushScope places new scope into context under name if scope
// control enables it. Returned scope is nil when disabled.
func (s *State) pushScope(control, name, info string) (*Scope, error) {
	if !s.engine.cfg.ScopeEnabled(control) {
		return nil, nil
	}

	scope := &Scope{name: name, depth: 1, values: orderedmap.NewMap(), info: info}

	// value under name may be a lazily bound macro argument
	prev, _, err := contextLookup(s.ctx, name)
	if err != nil {
		return nil, err
	}
	if prevScope, ok := prev.(*Scope); ok {
		scope.parent = prevScope
		scope.replaced = prevScope.replaced
		scope.depth = prevScope.depth + 1
	} else {
		scope.replaced = prev
	}

	s.ctx.Put(name, scope)
	return scope, nil
}

func (s *State) popScope(scope *Scope) {
	if scope == nil {
		return
	}
	switch {
	case scope.parent != nil:
		s.ctx.Put(scope.name, scope.parent)
	case scope.replaced != nil:
		s.ctx.Put(scope.name, scope.replaced)
	default:
		s.ctx.Remove(scope.name)
	}
}
