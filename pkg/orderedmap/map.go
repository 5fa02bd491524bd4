// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package orderedmap

import (
	"encoding/json"
	"reflect"
)

type Map struct {
	items []MapItem
}

type MapItem struct {
	Key   interface{}
	Value interface{}
}

func NewMap() *Map {
	return &Map{}
}

func NewMapWithItems(items []MapItem) *Map {
	return &Map{items}
}

func (m *Map) Set(key, value interface{}) {
	m.Put(key, value)
}

// Put sets key to value and returns value previously held by the key (or nil).
func (m *Map) Put(key, value interface{}) interface{} {
	key = normalizeKey(key)
	for i, item := range m.items {
		if m.isKeyEq(item.Key, key) {
			prev := item.Value
			m.items[i].Value = value
			return prev
		}
	}
	m.items = append(m.items, MapItem{key, value})
	return nil
}

func (m *Map) Get(key interface{}) (interface{}, bool) {
	key = normalizeKey(key)
	for _, item := range m.items {
		if m.isKeyEq(item.Key, key) {
			return item.Value, true
		}
	}
	return nil, false
}

func (m *Map) Delete(key interface{}) bool {
	_, found := m.Remove(key)
	return found
}

// Remove deletes key and returns its previous value.
func (m *Map) Remove(key interface{}) (interface{}, bool) {
	key = normalizeKey(key)
	for i, item := range m.items {
		if m.isKeyEq(item.Key, key) {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return item.Value, true
		}
	}
	return nil, false
}

func (m *Map) isKeyEq(key1, key2 interface{}) bool {
	return reflect.DeepEqual(key1, key2)
}

func (m *Map) Keys() (keys []interface{}) {
	m.Iterate(func(k, _ interface{}) {
		keys = append(keys, k)
	})
	return
}

func (m *Map) Values() (values []interface{}) {
	m.Iterate(func(_, v interface{}) {
		values = append(values, v)
	})
	return
}

func (m *Map) Iterate(iterFunc func(k, v interface{})) {
	for _, item := range m.items {
		iterFunc(item.Key, item.Value)
	}
}

func (m *Map) IterateErr(iterFunc func(k, v interface{}) error) error {
	for _, item := range m.items {
		err := iterFunc(item.Key, item.Value)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

// Copy returns a shallow copy; values are shared.
func (m *Map) Copy() *Map {
	return &Map{items: append([]MapItem{}, m.items...)}
}

// Template integers come in several widths (int from literals, int64 from
// data files); keys are normalized so that $map.get(1) finds key 1 either way.
func normalizeKey(key interface{}) interface{} {
	switch typedKey := key.(type) {
	case int:
		return int64(typedKey)
	case int32:
		return int64(typedKey)
	case int8:
		return int64(typedKey)
	case int16:
		return int64(typedKey)
	case uint8:
		return int64(typedKey)
	case uint16:
		return int64(typedKey)
	case uint32:
		return int64(typedKey)
	default:
		return key
	}
}

// Below methods disallow marshaling of Map directly
var _ []json.Marshaler = []json.Marshaler{&Map{}}

func (*Map) MarshalYAML() (interface{}, error) { panic("Unexpected marshaling of *orderedmap.Map") }
func (*Map) MarshalJSON() ([]byte, error)      { panic("Unexpected marshaling of *orderedmap.Map") }
