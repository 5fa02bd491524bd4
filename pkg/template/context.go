// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"sort"

	"carvel.dev/vtl/pkg/orderedmap"
)

// Context holds variables visible to a template during a merge.
// Implementations do not need to be safe for concurrent use:
// each merge is expected to get its own context.
type Context interface {
	// Get returns value and whether key is present (value may be nil).
	Get(key string) (interface{}, bool)
	// Put returns previous value stored under key.
	Put(key string, value interface{}) interface{}
	ContainsKey(key string) bool
	Remove(key string) interface{}
	Keys() []string
}

type MapContext struct {
	values *orderedmap.Map
}

var _ Context = &MapContext{}

func NewContext() *MapContext {
	return &MapContext{values: orderedmap.NewMap()}
}

// NewContextFromMap copies vars sorted by key.
func NewContextFromMap(vars map[string]interface{}) *MapContext {
	ctx := NewContext()
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		ctx.Put(key, vars[key])
	}
	return ctx
}

func (c *MapContext) Get(key string) (interface{}, bool) { return c.values.Get(key) }

func (c *MapContext) Put(key string, value interface{}) interface{} {
	return c.values.Put(key, value)
}

func (c *MapContext) ContainsKey(key string) bool {
	_, found := c.values.Get(key)
	return found
}

func (c *MapContext) Remove(key string) interface{} {
	val, _ := c.values.Remove(key)
	return val
}

func (c *MapContext) Keys() []string {
	var keys []string
	c.values.Iterate(func(k, _ interface{}) {
		keys = append(keys, k.(string))
	})
	return keys
}

// LayeredContext keeps its own values on top of parent context.
// Reads fall through to parent; writes never do.
type LayeredContext struct {
	parent Context
	local  *MapContext
}

var _ Context = &LayeredContext{}
var _ lookupContext = &LayeredContext{}

func NewLayeredContext(parent Context) *LayeredContext {
	return &LayeredContext{parent: parent, local: NewContext()}
}

func (c *LayeredContext) Parent() Context { return c.parent }

func (c *LayeredContext) Get(key string) (interface{}, bool) {
	if val, found := c.local.Get(key); found {
		return val, true
	}
	return c.parent.Get(key)
}

func (c *LayeredContext) lookup(key string) (interface{}, bool, error) {
	if val, found := c.local.Get(key); found {
		return val, true, nil
	}
	return contextLookup(c.parent, key)
}

func (c *LayeredContext) Put(key string, value interface{}) interface{} {
	prev, found := c.local.Get(key)
	if !found {
		prev, _ = c.parent.Get(key)
	}
	c.local.Put(key, value)
	return prev
}

func (c *LayeredContext) ContainsKey(key string) bool {
	return c.local.ContainsKey(key) || c.parent.ContainsKey(key)
}

func (c *LayeredContext) Remove(key string) interface{} { return c.local.Remove(key) }

func (c *LayeredContext) Keys() []string {
	keys := c.local.Keys()
	for _, key := range c.parent.Keys() {
		if !c.local.ContainsKey(key) {
			keys = append(keys, key)
		}
	}
	return keys
}

// lookupContext is implemented by contexts whose values are computed
// (e.g. lazily bound macro arguments) and may fail.
type lookupContext interface {
	lookup(key string) (interface{}, bool, error)
}

// assignContext is implemented by contexts whose writes may fail
// (e.g. write-back of macro arguments into caller).
type assignContext interface {
	assign(key string, value interface{}) error
}

func contextLookup(ctx Context, key string) (interface{}, bool, error) {
	if typedCtx, ok := ctx.(lookupContext); ok {
		return typedCtx.lookup(key)
	}
	val, found := ctx.Get(key)
	return val, found, nil
}

func contextAssign(ctx Context, key string, value interface{}) error {
	if typedCtx, ok := ctx.(assignContext); ok {
		return typedCtx.assign(key, value)
	}
	ctx.Put(key, value)
	return nil
}
