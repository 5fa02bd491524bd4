// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package introspect

import (
	"fmt"
	"sort"

	"carvel.dev/vtl/pkg/orderedmap"
	"github.com/k14s/starlark-go/starlark"
	"github.com/k14s/starlark-go/starlarkstruct"
)

// Starlark resolves properties, methods, indexes and iteration
// over starlark values (e.g. produced by .star data files).
// Results are converted back into Go values.
type Starlark struct{}

var _ Introspector = Starlark{}

func NewStarlark() Starlark { return Starlark{} }

func (Starlark) Property(obj interface{}, name string) (Getter, bool) {
	if mapping, ok := obj.(starlark.Mapping); ok {
		val, found, err := mapping.Get(starlark.String(name))
		if err == nil && found {
			return func() (interface{}, error) { return NewStarlarkValue(val).AsGoValue(), nil }, true
		}
	}
	if attrs, ok := obj.(starlark.HasAttrs); ok {
		val, err := attrs.Attr(name)
		if err != nil || val == nil {
			return nil, false
		}
		if _, isCallable := val.(starlark.Callable); isCallable {
			return nil, false
		}
		return func() (interface{}, error) { return NewStarlarkValue(val).AsGoValue(), nil }, true
	}
	return nil, false
}

func (Starlark) Method(obj interface{}, name string, argCount int) (Method, bool) {
	attrs, ok := obj.(starlark.HasAttrs)
	if !ok {
		return nil, false
	}
	attr, err := attrs.Attr(name)
	if err != nil || attr == nil {
		return nil, false
	}
	callable, ok := attr.(starlark.Callable)
	if !ok {
		return nil, false
	}
	return func(args []interface{}) (interface{}, error) {
		var starlarkArgs starlark.Tuple
		for _, arg := range args {
			val, err := NewGoValue(arg).AsStarlarkValue()
			if err != nil {
				return nil, err
			}
			starlarkArgs = append(starlarkArgs, val)
		}
		thread := &starlark.Thread{Name: "vtl-method"}
		result, err := starlark.Call(thread, callable, starlarkArgs, nil)
		if err != nil {
			return nil, err
		}
		return NewStarlarkValue(result).AsGoValue(), nil
	}, true
}

func (Starlark) Setter(obj interface{}, name string) (Setter, bool) {
	switch typedObj := obj.(type) {
	case starlark.HasSetField:
		return func(value interface{}) error {
			val, err := NewGoValue(value).AsStarlarkValue()
			if err != nil {
				return err
			}
			return typedObj.SetField(name, val)
		}, true

	case starlark.HasSetKey:
		return func(value interface{}) error {
			val, err := NewGoValue(value).AsStarlarkValue()
			if err != nil {
				return err
			}
			return typedObj.SetKey(starlark.String(name), val)
		}, true
	}
	return nil, false
}

func (Starlark) Index(obj interface{}, index interface{}) (Getter, bool) {
	switch typedObj := obj.(type) {
	case starlark.Indexable:
		idx, ok := AsInt(index)
		if !ok {
			return nil, false
		}
		return func() (interface{}, error) {
			size := typedObj.Len()
			pos := idx
			if pos < 0 {
				pos += size
			}
			if pos < 0 || pos >= size {
				return nil, fmt.Errorf("Expected index %d to be within bounds (size %d)", idx, size)
			}
			return NewStarlarkValue(typedObj.Index(pos)).AsGoValue(), nil
		}, true

	case starlark.Mapping:
		key, err := NewGoValue(index).AsStarlarkValue()
		if err != nil {
			return nil, false
		}
		return func() (interface{}, error) {
			val, found, err := typedObj.Get(key)
			if err != nil || !found {
				return nil, err
			}
			return NewStarlarkValue(val).AsGoValue(), nil
		}, true
	}
	return nil, false
}

func (Starlark) SetIndex(obj interface{}, index interface{}) (Setter, bool) {
	switch typedObj := obj.(type) {
	case starlark.HasSetIndex:
		idx, ok := AsInt(index)
		if !ok {
			return nil, false
		}
		return func(value interface{}) error {
			val, err := NewGoValue(value).AsStarlarkValue()
			if err != nil {
				return err
			}
			return typedObj.SetIndex(idx, val)
		}, true

	case starlark.HasSetKey:
		return func(value interface{}) error {
			key, err := NewGoValue(index).AsStarlarkValue()
			if err != nil {
				return err
			}
			val, err := NewGoValue(value).AsStarlarkValue()
			if err != nil {
				return err
			}
			return typedObj.SetKey(key, val)
		}, true
	}
	return nil, false
}

// Iterator materializes iterable values since starlark
// iterators must be released via Done.
func (Starlark) Iterator(obj interface{}) (Iterator, bool) {
	iterable, ok := obj.(starlark.Iterable)
	if !ok {
		return nil, false
	}
	items, ok := NewStarlarkValue(iterable).AsGoValue().([]interface{})
	if !ok {
		return nil, false
	}
	return &sequenceIterator{seq: NewList(items...)}, true
}

// StarlarkValue converts starlark values into Go values
// (dicts and structs become *orderedmap.Map, sequences become []interface{}).
type StarlarkValue struct {
	val starlark.Value
}

func NewStarlarkValue(val starlark.Value) StarlarkValue {
	return StarlarkValue{val}
}

func (e StarlarkValue) AsGoValue() interface{} {
	return e.asInterface(e.val)
}

func (e StarlarkValue) asInterface(val starlark.Value) interface{} {
	switch typedVal := val.(type) {
	case nil, starlark.NoneType:
		return nil

	case starlark.Bool:
		return bool(typedVal)

	case starlark.String:
		return string(typedVal)

	case starlark.Int:
		if i1, ok := typedVal.Int64(); ok {
			return i1
		}
		if i2, ok := typedVal.Uint64(); ok {
			return i2
		}
		return typedVal.String()

	case starlark.Float:
		return float64(typedVal)

	case *starlark.Dict:
		result := orderedmap.NewMap()
		for _, item := range typedVal.Items() {
			result.Set(e.asInterface(item.Index(0)), e.asInterface(item.Index(1)))
		}
		return result

	case *starlarkstruct.Struct:
		// AttrNames is sorted, hence ordering is deterministic
		result := orderedmap.NewMap()
		for _, key := range typedVal.AttrNames() {
			v, err := typedVal.Attr(key)
			if err == nil {
				result.Set(key, e.asInterface(v))
			}
		}
		return result

	case starlark.Iterable:
		return e.iterableAsInterface(typedVal)

	default:
		// functions and other opaque values stay as they are
		return val
	}
}

func (e StarlarkValue) iterableAsInterface(iterable starlark.Iterable) interface{} {
	iter := iterable.Iterate()
	defer iter.Done()

	result := []interface{}{}
	var x starlark.Value
	for iter.Next(&x) {
		result = append(result, e.asInterface(x))
	}
	return result
}

// GoValue converts Go values into starlark values.
type GoValue struct {
	val interface{}
}

func NewGoValue(val interface{}) GoValue {
	return GoValue{val}
}

func (e GoValue) AsStarlarkValue() (starlark.Value, error) {
	return e.asStarlarkValue(e.val)
}

func (e GoValue) asStarlarkValue(val interface{}) (starlark.Value, error) {
	if typedVal, ok := val.(starlark.Value); ok {
		return typedVal, nil
	}
	if num, ok := AsNumber(val); ok {
		switch typedNum := num.(type) {
		case int64:
			return starlark.MakeInt64(typedNum), nil
		case float64:
			return starlark.Float(typedNum), nil
		}
	}

	switch typedVal := val.(type) {
	case nil:
		return starlark.None, nil

	case bool:
		return starlark.Bool(typedVal), nil

	case string:
		return starlark.String(typedVal), nil

	case *orderedmap.Map:
		result := &starlark.Dict{}
		err := typedVal.IterateErr(func(k, v interface{}) error {
			key, err := e.asStarlarkValue(k)
			if err != nil {
				return err
			}
			value, err := e.asStarlarkValue(v)
			if err != nil {
				return err
			}
			return result.SetKey(key, value)
		})
		return result, err

	case sequence:
		var items []starlark.Value
		for i := 0; i < typedVal.Len(); i++ {
			item, err := e.asStarlarkValue(typedVal.At(i))
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return starlark.NewList(items), nil

	case []interface{}:
		return e.asStarlarkValue(NewList(typedVal...))

	case map[string]interface{}:
		result := &starlark.Dict{}
		for _, k := range sortedKeys(typedVal) {
			value, err := e.asStarlarkValue(typedVal[k])
			if err != nil {
				return nil, err
			}
			if err := result.SetKey(starlark.String(k), value); err != nil {
				return nil, err
			}
		}
		return result, nil

	default:
		return nil, fmt.Errorf("Unable to convert value of type %T to starlark value", val)
	}
}

func sortedKeys(val map[string]interface{}) []string {
	var keys []string
	for k := range val {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
