// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package introspect_test

import (
	"errors"
	"math"
	"testing"

	"carvel.dev/vtl/pkg/introspect"
	"carvel.dev/vtl/pkg/orderedmap"
	"github.com/k14s/starlark-go/starlark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	Name   string
	Age    int
	secret string
}

func (p *person) GetTitle() string          { return "Dr. " + p.Name }
func (p *person) IsAdult() bool             { return p.Age >= 18 }
func (p *person) Greet(other string) string { return "hi " + other + ", I am " + p.Name }
func (p *person) SetNickname(name string)   { p.secret = name }
func (p *person) Fail() (string, error)     { return "", errors.New("boom") }
func (p *person) Join(sep string, parts ...string) string {
	out := ""
	for i, part := range parts {
		if i > 0 {
			out += sep
		}
		out += part
	}
	return out
}

func mustGet(t *testing.T) func(getter introspect.Getter, ok bool) interface{} {
	return func(getter introspect.Getter, ok bool) interface{} {
		t.Helper()
		require.True(t, ok, "Expected member to resolve")
		val, err := getter()
		require.NoError(t, err)
		return val
	}
}

func TestReflectProperties(t *testing.T) {
	i := introspect.NewDefault()
	p := &person{Name: "Ada", Age: 36}

	assert.Equal(t, "Ada", mustGet(t)(i.Property(p, "name")))
	assert.Equal(t, 36, mustGet(t)(i.Property(p, "age")))
	assert.Equal(t, "Dr. Ada", mustGet(t)(i.Property(p, "title")))
	assert.Equal(t, true, mustGet(t)(i.Property(p, "adult")))

	_, ok := i.Property(p, "secret")
	assert.False(t, ok)
	_, ok = i.Property(p, "missing")
	assert.False(t, ok)
}

func TestReflectMethods(t *testing.T) {
	i := introspect.NewDefault()
	p := &person{Name: "Ada"}

	method, ok := i.Method(p, "greet", 1)
	require.True(t, ok)
	val, err := method([]interface{}{"Bob"})
	require.NoError(t, err)
	assert.Equal(t, "hi Bob, I am Ada", val)

	_, ok = i.Method(p, "greet", 2)
	assert.False(t, ok)

	method, ok = i.Method(p, "join", 3)
	require.True(t, ok)
	val, err = method([]interface{}{"-", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a-b", val)

	method, ok = i.Method(p, "fail", 0)
	require.True(t, ok)
	_, err = method(nil)
	require.EqualError(t, err, "boom")
}

func TestReflectSetters(t *testing.T) {
	i := introspect.NewDefault()
	p := &person{Name: "Ada"}

	setter, ok := i.Setter(p, "name")
	require.True(t, ok)
	require.NoError(t, setter("Grace"))
	assert.Equal(t, "Grace", p.Name)

	setter, ok = i.Setter(p, "age")
	require.True(t, ok)
	require.NoError(t, setter(int64(40)))
	assert.Equal(t, 40, p.Age)

	setter, ok = i.Setter(p, "nickname")
	require.True(t, ok)
	require.NoError(t, setter("g"))
	assert.Equal(t, "g", p.secret)

	m := orderedmap.NewMap()
	setter, ok = i.Setter(m, "key")
	require.True(t, ok)
	require.NoError(t, setter("val"))
	assert.Equal(t, "val", mustGet(t)(i.Property(m, "key")))

	goMap := map[string]interface{}{}
	setter, ok = i.Setter(goMap, "key")
	require.True(t, ok)
	require.NoError(t, setter(int64(1)))
	assert.Equal(t, int64(1), goMap["key"])
}

func TestMapsAndLists(t *testing.T) {
	i := introspect.NewDefault()

	m := orderedmap.NewMap()
	m.Set("a", int64(1))
	assert.Equal(t, int64(1), mustGet(t)(i.Property(m, "a")))
	assert.Nil(t, mustGet(t)(i.Property(m, "b")))
	assert.Equal(t, 1, mustGet(t)(i.Property(m, "size")))

	list := introspect.NewList(int64(1), "two")
	assert.Equal(t, 2, mustGet(t)(i.Property(list, "size")))
	assert.Equal(t, false, mustGet(t)(i.Property(list, "empty")))
	assert.Equal(t, "two", mustGet(t)(i.Index(list, int64(1))))
	assert.Equal(t, "two", mustGet(t)(i.Index(list, int64(-1))))

	getter, ok := i.Index(list, int64(5))
	require.True(t, ok)
	_, err := getter()
	require.EqualError(t, err, "Expected index 5 to be within list bounds (size 2)")

	method, ok := i.Method(list, "add", 1)
	require.True(t, ok)
	val, err := method([]interface{}{"three"})
	require.NoError(t, err)
	assert.Equal(t, true, val)
	assert.Equal(t, 3, list.Len())

	setter, ok := i.SetIndex(list, int64(0))
	require.True(t, ok)
	require.NoError(t, setter("one"))
	assert.Equal(t, "one", list.At(0))

	slice := []string{"x", "y"}
	assert.Equal(t, "y", mustGet(t)(i.Index(slice, 1)))
	method, ok = i.Method(slice, "contains", 1)
	require.True(t, ok)
	val, err = method([]interface{}{"x"})
	require.NoError(t, err)
	assert.Equal(t, true, val)
}

func TestStringMethods(t *testing.T) {
	i := introspect.NewDefault()

	call := func(obj interface{}, name string, args ...interface{}) interface{} {
		method, ok := i.Method(obj, name, len(args))
		require.True(t, ok, "Expected method '%s' to resolve", name)
		val, err := method(args)
		require.NoError(t, err)
		return val
	}

	assert.Equal(t, "ABC", call("abc", "toUpperCase"))
	assert.Equal(t, 3, call("héé", "length"))
	assert.Equal(t, "éé", call("héé", "substring", int64(1)))
	assert.Equal(t, 1, call("héé", "indexOf", "é"))
	assert.Equal(t, true, call("abc", "startsWith", "ab"))
	assert.Equal(t, "a-c", call("abc", "replace", "b", "-"))
	assert.Equal(t, "[a, b]", introspect.AsString(call("a,b", "split", ",")))
	assert.Equal(t, 3, mustGet(t)(i.Property("abc", "length")))
}

func TestIterators(t *testing.T) {
	i := introspect.NewDefault()

	collect := func(obj interface{}) []interface{} {
		iter, ok := i.Iterator(obj)
		require.True(t, ok)
		var result []interface{}
		for iter.HasNext() {
			result = append(result, iter.Next())
		}
		return result
	}

	rng, err := introspect.NewIntegerRange(5, 3)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(5), int64(4), int64(3)}, collect(rng))
	assert.Equal(t, []interface{}{"a", "b"}, collect([]string{"a", "b"}))
	assert.Equal(t, []interface{}{1, 2}, collect(map[string]int{"b": 2, "a": 1}))

	ch := make(chan int, 2)
	ch <- 1
	ch <- 2
	close(ch)
	assert.Equal(t, []interface{}{1, 2}, collect(ch))

	_, ok := i.Iterator(42)
	assert.False(t, ok)
}

func TestIntegerRangeBounds(t *testing.T) {
	for _, bounds := range [][2]int64{
		{0, math.MaxInt64},
		{math.MaxInt64, 0},
		{math.MinInt64, 0},
		{math.MinInt64, math.MaxInt64},
		{math.MaxInt64, math.MinInt64},
	} {
		_, err := introspect.NewIntegerRange(bounds[0], bounds[1])
		var sizeErr introspect.RangeSizeError
		require.ErrorAs(t, err, &sizeErr, "bounds %v", bounds)
		assert.Equal(t, math.MaxInt, sizeErr.Max)
	}

	rng, err := introspect.NewIntegerRange(math.MaxInt64-2, math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, 3, rng.Len())
	assert.Equal(t, int64(math.MaxInt64), rng.At(2))

	rng, err = introspect.NewIntegerRange(math.MinInt64, math.MinInt64+1)
	require.NoError(t, err)
	assert.Equal(t, 2, rng.Len())
	assert.Equal(t, int64(math.MinInt64), rng.At(0))

	rng, err = introspect.NewIntegerRange(1, 3000000000)
	require.NoError(t, err)
	assert.Equal(t, 3000000000, rng.Len())
	assert.Equal(t, int64(3000000000), rng.At(rng.Len()-1))

	_, err = rng.AsList()
	var sizeErr introspect.RangeSizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, introspect.MaxListRangeLen, sizeErr.Max)
	assert.EqualError(t, err, "Expected range [1..3000000000] to have at most 4194304 items")

	assert.Equal(t, math.MaxInt, introspect.IntegerRange{Left: 0, Right: math.MaxInt64}.Len())

	list, err := introspect.IntegerRange{Left: -1, Right: 1}.AsList()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(-1), int64(0), int64(1)}, list.Items())
}

func TestStarlarkValues(t *testing.T) {
	i := introspect.NewDefault()

	dict := &starlark.Dict{}
	require.NoError(t, dict.SetKey(starlark.String("name"), starlark.String("ada")))
	require.NoError(t, dict.SetKey(starlark.String("tags"), starlark.NewList([]starlark.Value{starlark.MakeInt(1)})))

	assert.Equal(t, "ada", mustGet(t)(i.Property(dict, "name")))
	assert.Equal(t, []interface{}{int64(1)}, mustGet(t)(i.Property(dict, "tags")))

	setter, ok := i.Setter(dict, "name")
	require.True(t, ok)
	require.NoError(t, setter("grace"))
	assert.Equal(t, "grace", mustGet(t)(i.Property(dict, "name")))

	list := starlark.NewList([]starlark.Value{starlark.String("a"), starlark.String("b")})
	assert.Equal(t, "b", mustGet(t)(i.Index(list, int64(-1))))

	method, ok := i.Method(list, "append", 1)
	require.True(t, ok)
	_, err := method([]interface{}{"c"})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Len())
}

func TestDuckTyping(t *testing.T) {
	assert.Equal(t, "", introspect.AsString(nil))
	assert.Equal(t, "1.0", introspect.AsString(1.0))
	assert.Equal(t, "1.5", introspect.AsString(1.5))
	assert.Equal(t, "[1, a]", introspect.AsString(introspect.NewList(int64(1), "a")))
	assert.Equal(t, "{a=1, b=2}", introspect.AsString(map[string]int{"b": 2, "a": 1}))

	assert.False(t, introspect.AsBoolean(nil, true))
	assert.False(t, introspect.AsBoolean("", true))
	assert.True(t, introspect.AsBoolean("", false))
	assert.False(t, introspect.AsBoolean(introspect.NewList(), true))
	assert.True(t, introspect.AsBoolean(int64(0), true))
	assert.True(t, introspect.AsBoolean(0.0, true))
	assert.False(t, introspect.AsBoolean(false, false))

	assert.True(t, introspect.Equal(int64(1), 1.0))
	assert.True(t, introspect.Equal(1, int64(1)))
	assert.False(t, introspect.Equal("1", int64(1)))
}
