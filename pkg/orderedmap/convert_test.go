// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package orderedmap_test

import (
	"reflect"
	"testing"

	"carvel.dev/vtl/pkg/orderedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromUnorderedMaps(t *testing.T) {
	inputA := map[string]interface{}{
		"key": []interface{}{map[string]interface{}{"nestedKey": "nestedValue"}},
	}
	inputB := map[string]interface{}{
		"key": []interface{}{map[string]interface{}{"nestedKey": "nestedValue"}},
	}

	orderedmap.FromUnorderedMaps(inputA)

	if !reflect.DeepEqual(inputA, inputB) {
		t.Errorf("Nested object was modified. Got: %v, Expected: %v", inputA, inputB)
	}
}

func TestFromUnorderedMapsSortsKeys(t *testing.T) {
	result := orderedmap.FromUnorderedMaps(map[string]interface{}{"b": 2, "a": 1, "c": 3})
	typedResult, ok := result.(*orderedmap.Map)
	require.True(t, ok)
	assert.Equal(t, []interface{}{"a", "b", "c"}, typedResult.Keys())
}

func TestMapPutRemove(t *testing.T) {
	m := orderedmap.NewMap()
	assert.Nil(t, m.Put("x", 1))
	assert.Nil(t, m.Put(2, "two"))
	assert.Equal(t, 1, m.Put("x", 10))

	val, found := m.Get(int64(2))
	require.True(t, found)
	assert.Equal(t, "two", val)

	assert.Equal(t, []interface{}{"x", int64(2)}, m.Keys())
	assert.Equal(t, []interface{}{10, "two"}, m.Values())

	prev, found := m.Remove("x")
	require.True(t, found)
	assert.Equal(t, 10, prev)
	assert.Equal(t, 1, m.Len())

	cp := m.Copy()
	cp.Set("y", 3)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 2, cp.Len())
}
