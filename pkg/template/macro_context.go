// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"sort"
)

// macroContext is context of a macro body during one call. Parameters
// are resolved through their arguments; other names fall through
// to the caller's context.
type macroContext struct {
	caller *State
	args   map[string]*macroArg
	locals *MapContext
	// localScope keeps #set of non-parameters inside the macro
	localScope bool
}

var _ Context = &macroContext{}
var _ lookupContext = &macroContext{}
var _ assignContext = &macroContext{}

func newMacroContext(caller *State, localScope bool) *macroContext {
	return &macroContext{
		caller:     caller,
		args:       map[string]*macroArg{},
		locals:     NewContext(),
		localScope: localScope,
	}
}

func (c *macroContext) lookup(key string) (interface{}, bool, error) {
	if arg, found := c.args[key]; found {
		return arg.lookup()
	}
	if val, found := c.locals.Get(key); found {
		return val, true, nil
	}
	return contextLookup(c.caller.ctx, key)
}

func (c *macroContext) assign(key string, value interface{}) error {
	if arg, found := c.args[key]; found {
		return arg.assign(value)
	}
	if c.localScope || c.locals.ContainsKey(key) {
		c.locals.Put(key, value)
		return nil
	}
	return contextAssign(c.caller.ctx, key, value)
}

// Get serves host code holding the context (e.g. Renderable values).
// Template evaluation reads through lookup, which reports failures of
// lazily bound arguments (including *Stop signals) to the caller.
func (c *macroContext) Get(key string) (interface{}, bool) {
	val, found, err := c.lookup(key)
	if err != nil {
		c.caller.Logger().Debugf("Resolving macro context value '%s': %s", key, err)
		return nil, false
	}
	return val, found
}

func (c *macroContext) Put(key string, value interface{}) interface{} {
	if arg, found := c.args[key]; found {
		return arg.setShadow(value)
	}
	if c.localScope || c.locals.ContainsKey(key) {
		return c.locals.Put(key, value)
	}
	return c.caller.ctx.Put(key, value)
}

func (c *macroContext) ContainsKey(key string) bool {
	if _, found := c.args[key]; found {
		return true
	}
	return c.locals.ContainsKey(key) || c.caller.ctx.ContainsKey(key)
}

func (c *macroContext) Remove(key string) interface{} {
	if _, found := c.args[key]; found {
		prev, _ := c.Get(key)
		delete(c.args, key)
		return prev
	}
	if c.localScope || c.locals.ContainsKey(key) {
		return c.locals.Remove(key)
	}
	return c.caller.ctx.Remove(key)
}

func (c *macroContext) Keys() []string {
	seen := map[string]struct{}{}
	var keys []string

	add := func(key string) {
		if _, found := seen[key]; !found {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	var argNames []string
	for key := range c.args {
		argNames = append(argNames, key)
	}
	sort.Strings(argNames)

	for _, key := range argNames {
		add(key)
	}
	for _, key := range c.locals.Keys() {
		add(key)
	}
	for _, key := range c.caller.ctx.Keys() {
		add(key)
	}
	return keys
}
