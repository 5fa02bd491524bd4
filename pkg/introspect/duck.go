// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package introspect

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"carvel.dev/vtl/pkg/orderedmap"
	"github.com/k14s/starlark-go/starlark"
)

// AsString converts value into its textual form used for rendering.
// Nil becomes empty string.
func AsString(val interface{}) string {
	switch typedVal := val.(type) {
	case nil:
		return ""
	case string:
		return typedVal
	case []byte:
		return string(typedVal)
	case bool:
		return strconv.FormatBool(typedVal)
	case int:
		return strconv.Itoa(typedVal)
	case int64:
		return strconv.FormatInt(typedVal, 10)
	case int32:
		return strconv.FormatInt(int64(typedVal), 10)
	case uint64:
		return strconv.FormatUint(typedVal, 10)
	case float64:
		return formatFloat(typedVal)
	case float32:
		return formatFloat(float64(typedVal))
	case starlark.String:
		return string(typedVal)
	case starlark.Value:
		converted := NewStarlarkValue(typedVal).AsGoValue()
		if _, opaque := converted.(starlark.Value); opaque {
			return typedVal.String()
		}
		return AsString(converted)
	case fmt.Stringer:
		return typedVal.String()
	case error:
		return typedVal.Error()
	case *List:
		return formatSeq(typedVal)
	case IntegerRange:
		return formatSeq(typedVal)
	case *orderedmap.Map:
		var pieces []string
		typedVal.Iterate(func(k, v interface{}) {
			pieces = append(pieces, AsString(k)+"="+AsString(v))
		})
		return "{" + strings.Join(pieces, ", ") + "}"
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return formatSeq(reflectSeq{rv})
	case reflect.Map:
		var pieces []string
		for _, key := range sortedMapKeys(rv) {
			pieces = append(pieces, AsString(key.Interface())+"="+AsString(rv.MapIndex(key).Interface()))
		}
		return "{" + strings.Join(pieces, ", ") + "}"
	case reflect.Ptr:
		if rv.IsNil() {
			return ""
		}
	}
	return fmt.Sprintf("%v", val)
}

// Whole floats keep ".0" suffix so that their type stays visible in output.
func formatFloat(val float64) string {
	if math.IsInf(val, 0) || math.IsNaN(val) {
		return strconv.FormatFloat(val, 'g', -1, 64)
	}
	str := strconv.FormatFloat(val, 'f', -1, 64)
	if !strings.ContainsAny(str, ".e") {
		str += ".0"
	}
	return str
}

func formatSeq(seq sequence) string {
	pieces := make([]string, 0, seq.Len())
	for i := 0; i < seq.Len(); i++ {
		pieces = append(pieces, AsString(seq.At(i)))
	}
	return "[" + strings.Join(pieces, ", ") + "]"
}

// AsBoolean converts value for use as a condition. Nil and false are false.
// When checkEmpty is set, empty strings, collections and maps (and values
// whose string form is empty) are false as well. Numbers are never empty.
func AsBoolean(val interface{}, checkEmpty bool) bool {
	switch typedVal := val.(type) {
	case nil:
		return false
	case bool:
		return typedVal
	case starlark.Bool:
		return bool(typedVal)
	case starlark.NoneType:
		return false
	}
	if !checkEmpty {
		return true
	}
	return !IsEmpty(val)
}

// IsEmpty reports emptiness of strings, collections and maps.
// Numbers and booleans are never empty; nil always is.
func IsEmpty(val interface{}) bool {
	switch typedVal := val.(type) {
	case nil:
		return true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return false
	case string:
		return len(typedVal) == 0
	case sequence:
		return typedVal.Len() == 0
	case *orderedmap.Map:
		return typedVal.Len() == 0
	case starlark.NoneType:
		return true
	case starlark.Bool, starlark.Int, starlark.Float:
		return false
	case starlark.String:
		return len(typedVal) == 0
	case starlark.Sequence:
		return typedVal.Len() == 0
	case interface{ IsEmpty() bool }:
		return typedVal.IsEmpty()
	case interface{ Len() int }:
		return typedVal.Len() == 0
	case fmt.Stringer:
		return len(typedVal.String()) == 0
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String, reflect.Chan:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// AsNumber returns int64 or float64 form of numeric values.
func AsNumber(val interface{}) (interface{}, bool) {
	switch typedVal := val.(type) {
	case int:
		return int64(typedVal), true
	case int8:
		return int64(typedVal), true
	case int16:
		return int64(typedVal), true
	case int32:
		return int64(typedVal), true
	case int64:
		return typedVal, true
	case uint:
		return int64(typedVal), true
	case uint8:
		return int64(typedVal), true
	case uint16:
		return int64(typedVal), true
	case uint32:
		return int64(typedVal), true
	case uint64:
		if typedVal > math.MaxInt64 {
			return float64(typedVal), true
		}
		return int64(typedVal), true
	case float32:
		return float64(typedVal), true
	case float64:
		return typedVal, true
	case starlark.Int:
		if i, ok := typedVal.Int64(); ok {
			return i, true
		}
		return nil, false
	case starlark.Float:
		return float64(typedVal), true
	}
	return nil, false
}

// AsInt converts integral values (including integral floats) into int.
func AsInt(val interface{}) (int, bool) {
	num, ok := AsNumber(val)
	if !ok {
		if str, isStr := val.(string); isStr {
			i, err := strconv.Atoi(strings.TrimSpace(str))
			return i, err == nil
		}
		return 0, false
	}
	switch typedNum := num.(type) {
	case int64:
		return int(typedNum), true
	case float64:
		if typedNum == math.Trunc(typedNum) {
			return int(typedNum), true
		}
	}
	return 0, false
}

func sortedMapKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprintf("%v", keys[i].Interface()) < fmt.Sprintf("%v", keys[j].Interface())
	})
	return keys
}

type reflectSeq struct {
	rv reflect.Value
}

func (s reflectSeq) Len() int             { return s.rv.Len() }
func (s reflectSeq) At(i int) interface{} { return s.rv.Index(i).Interface() }
