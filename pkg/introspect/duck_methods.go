// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package introspect

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"carvel.dev/vtl/pkg/orderedmap"
)

// Equal compares values the way templates expect: numbers by value
// regardless of their Go type, everything else deeply.
func Equal(left, right interface{}) bool {
	leftNum, leftIsNum := AsNumber(left)
	rightNum, rightIsNum := AsNumber(right)
	if leftIsNum && rightIsNum {
		leftInt, leftIsInt := leftNum.(int64)
		rightInt, rightIsInt := rightNum.(int64)
		if leftIsInt && rightIsInt {
			return leftInt == rightInt
		}
		return toFloat(leftNum) == toFloat(rightNum)
	}
	if leftStr, ok := left.(string); ok {
		if rightStr, ok := right.(string); ok {
			return leftStr == rightStr
		}
	}
	return reflect.DeepEqual(left, right)
}

func toFloat(num interface{}) float64 {
	switch typedNum := num.(type) {
	case int64:
		return float64(typedNum)
	case float64:
		return typedNum
	}
	return 0
}

// duckMethod provides common methods (size, contains, get, ...) for
// strings, lists and maps that carry no such Go methods themselves.
func duckMethod(obj interface{}, name string, argCount int) (Method, bool) {
	switch typedObj := obj.(type) {
	case string:
		return stringMethod(typedObj, name, argCount)
	case *List:
		if method, ok := listMethod(typedObj, name, argCount); ok {
			return method, true
		}
		return sequenceMethod(typedObj, name, argCount)
	case sequence:
		return sequenceMethod(typedObj, name, argCount)
	case *orderedmap.Map:
		return orderedMapMethod(typedObj, name, argCount)
	}

	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return sequenceMethod(reflectSeq{rv}, name, argCount)
	case reflect.Map:
		return goMapMethod(rv, name, argCount)
	}
	return nil, false
}

func stringMethod(str string, name string, argCount int) (Method, bool) {
	strArg := func(args []interface{}) string { return AsString(args[0]) }

	switch {
	case name == "length" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return utf8.RuneCountInString(str), nil }, true

	case name == "isEmpty" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return len(str) == 0, nil }, true

	case name == "toString" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return str, nil }, true

	case name == "toUpperCase" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return strings.ToUpper(str), nil }, true

	case name == "toLowerCase" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return strings.ToLower(str), nil }, true

	case name == "trim" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return strings.TrimSpace(str), nil }, true

	case name == "contains" && argCount == 1:
		return func(args []interface{}) (interface{}, error) { return strings.Contains(str, strArg(args)), nil }, true

	case name == "startsWith" && argCount == 1:
		return func(args []interface{}) (interface{}, error) { return strings.HasPrefix(str, strArg(args)), nil }, true

	case name == "endsWith" && argCount == 1:
		return func(args []interface{}) (interface{}, error) { return strings.HasSuffix(str, strArg(args)), nil }, true

	case name == "equals" && argCount == 1:
		return func(args []interface{}) (interface{}, error) { return args[0] != nil && str == strArg(args), nil }, true

	case name == "equalsIgnoreCase" && argCount == 1:
		return func(args []interface{}) (interface{}, error) {
			return args[0] != nil && strings.EqualFold(str, strArg(args)), nil
		}, true

	case name == "concat" && argCount == 1:
		return func(args []interface{}) (interface{}, error) { return str + strArg(args), nil }, true

	case name == "indexOf" && argCount == 1:
		return func(args []interface{}) (interface{}, error) {
			idx := strings.Index(str, strArg(args))
			if idx < 0 {
				return -1, nil
			}
			return utf8.RuneCountInString(str[:idx]), nil
		}, true

	case name == "replace" && argCount == 2:
		return func(args []interface{}) (interface{}, error) {
			return strings.ReplaceAll(str, AsString(args[0]), AsString(args[1])), nil
		}, true

	case name == "split" && argCount == 1:
		return func(args []interface{}) (interface{}, error) {
			var items []interface{}
			for _, piece := range strings.Split(str, strArg(args)) {
				items = append(items, piece)
			}
			return NewList(items...), nil
		}, true

	case name == "charAt" && argCount == 1:
		return func(args []interface{}) (interface{}, error) {
			runes := []rune(str)
			idx, ok := AsInt(args[0])
			if !ok || idx < 0 || idx >= len(runes) {
				return nil, fmt.Errorf("Expected index '%s' to be within string bounds (length %d)", strArg(args), len(runes))
			}
			return string(runes[idx]), nil
		}, true

	case name == "substring" && argCount == 1:
		return func(args []interface{}) (interface{}, error) { return substring(str, args[0], nil) }, true

	case name == "substring" && argCount == 2:
		return func(args []interface{}) (interface{}, error) { return substring(str, args[0], args[1]) }, true
	}
	return nil, false
}

func substring(str string, beginArg, endArg interface{}) (interface{}, error) {
	runes := []rune(str)
	begin, ok := AsInt(beginArg)
	if !ok {
		return nil, fmt.Errorf("Expected substring begin index to be an integer, but was %T", beginArg)
	}
	end := len(runes)
	if endArg != nil {
		end, ok = AsInt(endArg)
		if !ok {
			return nil, fmt.Errorf("Expected substring end index to be an integer, but was %T", endArg)
		}
	}
	if begin < 0 || end > len(runes) || begin > end {
		return nil, fmt.Errorf("Expected substring range [%d, %d) to be within string bounds (length %d)", begin, end, len(runes))
	}
	return string(runes[begin:end]), nil
}

func sequenceMethod(seq sequence, name string, argCount int) (Method, bool) {
	switch {
	case name == "size" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return seq.Len(), nil }, true

	case name == "isEmpty" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return seq.Len() == 0, nil }, true

	case name == "get" && argCount == 1:
		return func(args []interface{}) (interface{}, error) { return sequenceAt(seq, args[0]) }, true

	case name == "contains" && argCount == 1:
		return func(args []interface{}) (interface{}, error) { return sequenceIndexOf(seq, args[0]) >= 0, nil }, true

	case name == "indexOf" && argCount == 1:
		return func(args []interface{}) (interface{}, error) { return sequenceIndexOf(seq, args[0]), nil }, true
	}
	return nil, false
}

func sequenceAt(seq sequence, index interface{}) (interface{}, error) {
	idx, ok := AsInt(index)
	if !ok {
		return nil, fmt.Errorf("Expected index to be an integer, but was %T", index)
	}
	size := seq.Len()
	pos := idx
	if pos < 0 {
		pos += size
	}
	if pos < 0 || pos >= size {
		return nil, fmt.Errorf("Expected index %d to be within list bounds (size %d)", idx, size)
	}
	return seq.At(pos), nil
}

func sequenceIndexOf(seq sequence, val interface{}) int {
	for i := 0; i < seq.Len(); i++ {
		if Equal(seq.At(i), val) {
			return i
		}
	}
	return -1
}

func listMethod(list *List, name string, argCount int) (Method, bool) {
	switch {
	case name == "add" && argCount == 1:
		return func(args []interface{}) (interface{}, error) {
			list.Add(args[0])
			return true, nil
		}, true

	case name == "add" && argCount == 2:
		return func(args []interface{}) (interface{}, error) {
			idx, ok := AsInt(args[0])
			if !ok {
				return nil, fmt.Errorf("Expected index to be an integer, but was %T", args[0])
			}
			return nil, list.Insert(idx, args[1])
		}, true

	case name == "addAll" && argCount == 1:
		return func(args []interface{}) (interface{}, error) {
			iter, ok := NewReflect().Iterator(args[0])
			if !ok {
				return nil, fmt.Errorf("Expected value of type %T to be iterable", args[0])
			}
			for iter.HasNext() {
				list.Add(iter.Next())
			}
			return true, nil
		}, true

	case name == "set" && argCount == 2:
		return func(args []interface{}) (interface{}, error) {
			idx, ok := AsInt(args[0])
			if !ok {
				return nil, fmt.Errorf("Expected index to be an integer, but was %T", args[0])
			}
			return list.Set(idx, args[1])
		}, true

	case name == "remove" && argCount == 1:
		return func(args []interface{}) (interface{}, error) {
			if idx, ok := args[0].(int64); ok {
				return list.RemoveAt(int(idx))
			}
			if idx, ok := args[0].(int); ok {
				return list.RemoveAt(idx)
			}
			pos := sequenceIndexOf(list, args[0])
			if pos < 0 {
				return false, nil
			}
			_, err := list.RemoveAt(pos)
			return err == nil, err
		}, true

	case name == "clear" && argCount == 0:
		return func([]interface{}) (interface{}, error) {
			list.Clear()
			return nil, nil
		}, true
	}
	return nil, false
}

func orderedMapMethod(m *orderedmap.Map, name string, argCount int) (Method, bool) {
	switch {
	case name == "get" && argCount == 1:
		return func(args []interface{}) (interface{}, error) {
			val, _ := m.Get(args[0])
			return val, nil
		}, true

	case name == "put" && argCount == 2:
		return func(args []interface{}) (interface{}, error) { return m.Put(args[0], args[1]), nil }, true

	case name == "remove" && argCount == 1:
		return func(args []interface{}) (interface{}, error) {
			val, _ := m.Remove(args[0])
			return val, nil
		}, true

	case name == "containsKey" && argCount == 1:
		return func(args []interface{}) (interface{}, error) {
			_, found := m.Get(args[0])
			return found, nil
		}, true

	case name == "containsValue" && argCount == 1:
		return func(args []interface{}) (interface{}, error) {
			return sequenceIndexOf(NewList(m.Values()...), args[0]) >= 0, nil
		}, true

	case name == "keySet" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return NewList(m.Keys()...), nil }, true

	case name == "values" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return NewList(m.Values()...), nil }, true

	case name == "size" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return m.Len(), nil }, true

	case name == "isEmpty" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return m.Len() == 0, nil }, true
	}
	return nil, false
}

func goMapMethod(rv reflect.Value, name string, argCount int) (Method, bool) {
	switch {
	case name == "get" && argCount == 1:
		return func(args []interface{}) (interface{}, error) { return mapIndex(rv, args[0]) }, true

	case name == "put" && argCount == 2:
		return func(args []interface{}) (interface{}, error) {
			prev, _ := mapIndex(rv, args[0])
			return prev, setMapIndex(rv, args[0], args[1])
		}, true

	case name == "containsKey" && argCount == 1:
		return func(args []interface{}) (interface{}, error) {
			key, err := convertArg(args[0], rv.Type().Key())
			if err != nil {
				return false, nil
			}
			return rv.MapIndex(key).IsValid(), nil
		}, true

	case name == "keySet" && argCount == 0:
		return func([]interface{}) (interface{}, error) {
			var keys []interface{}
			for _, key := range sortedMapKeys(rv) {
				keys = append(keys, key.Interface())
			}
			return NewList(keys...), nil
		}, true

	case name == "values" && argCount == 0:
		return func([]interface{}) (interface{}, error) {
			var values []interface{}
			for _, key := range sortedMapKeys(rv) {
				values = append(values, rv.MapIndex(key).Interface())
			}
			return NewList(values...), nil
		}, true

	case name == "size" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return rv.Len(), nil }, true

	case name == "isEmpty" && argCount == 0:
		return func([]interface{}) (interface{}, error) { return rv.Len() == 0, nil }, true
	}
	return nil, false
}

func mapIndex(rv reflect.Value, index interface{}) (interface{}, error) {
	key, err := convertArg(index, rv.Type().Key())
	if err != nil {
		return nil, err
	}
	val := rv.MapIndex(key)
	if !val.IsValid() {
		return nil, nil
	}
	return asInterface(val), nil
}

func setMapIndex(rv reflect.Value, index, value interface{}) error {
	if rv.IsNil() {
		return fmt.Errorf("Expected map to be initialized")
	}
	key, err := convertArg(index, rv.Type().Key())
	if err != nil {
		return err
	}
	val, err := convertArg(value, rv.Type().Elem())
	if err != nil {
		return err
	}
	rv.SetMapIndex(key, val)
	return nil
}
