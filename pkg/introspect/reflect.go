// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package introspect

import (
	"fmt"
	"reflect"
	"sync"
	"unicode"
	"unicode/utf8"

	"carvel.dev/vtl/pkg/orderedmap"
)

// Reflect resolves members of plain Go values: map keys, exported
// methods and fields, and the common methods of strings, lists and maps.
type Reflect struct {
	methods *sync.Map // methodKey -> int (-1 if missing)
}

var _ Introspector = Reflect{}

type methodKey struct {
	typ  reflect.Type
	name string
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func NewReflect() Reflect {
	return Reflect{methods: &sync.Map{}}
}

func (r Reflect) Property(obj interface{}, name string) (Getter, bool) {
	if obj == nil {
		return nil, false
	}

	switch typedObj := obj.(type) {
	case *orderedmap.Map:
		if val, found := typedObj.Get(name); found {
			return func() (interface{}, error) { return val, nil }, true
		}
		if getter, ok := r.duckProperty(obj, name); ok {
			return getter, true
		}
		return func() (interface{}, error) { return nil, nil }, true
	}

	rv := reflect.ValueOf(obj)

	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		key := reflect.ValueOf(name).Convert(rv.Type().Key())
		if val := rv.MapIndex(key); val.IsValid() {
			return func() (interface{}, error) { return asInterface(val), nil }, true
		}
		if getter, ok := r.duckProperty(obj, name); ok {
			return getter, true
		}
		return func() (interface{}, error) { return nil, nil }, true
	}

	upperName := capitalize(name)
	for _, candidate := range []string{upperName, "Get" + upperName, "Is" + upperName} {
		if method, ok := r.method(rv, candidate); ok && method.Type().NumIn() == 0 {
			return func() (interface{}, error) { return callReflect(method, nil) }, true
		}
	}

	if field, ok := structField(rv, upperName); ok {
		return func() (interface{}, error) { return asInterface(field), nil }, true
	}

	if method, ok := r.method(rv, "Get"); ok && method.Type().NumIn() == 1 &&
		method.Type().In(0).Kind() == reflect.String {
		return func() (interface{}, error) { return callReflect(method, []interface{}{name}) }, true
	}

	return r.duckProperty(obj, name)
}

func (r Reflect) duckProperty(obj interface{}, name string) (Getter, bool) {
	upperName := capitalize(name)
	for _, candidate := range []string{name, "get" + upperName, "is" + upperName} {
		if method, ok := duckMethod(obj, candidate, 0); ok {
			return func() (interface{}, error) { return method(nil) }, true
		}
	}
	return nil, false
}

func (r Reflect) Method(obj interface{}, name string, argCount int) (Method, bool) {
	if obj == nil {
		return nil, false
	}

	switch obj.(type) {
	case *List, *orderedmap.Map:
		if method, ok := duckMethod(obj, name, argCount); ok {
			return method, true
		}
	}

	rv := reflect.ValueOf(obj)
	for _, candidate := range []string{name, capitalize(name)} {
		method, ok := r.method(rv, candidate)
		if !ok {
			continue
		}
		numIn := method.Type().NumIn()
		if numIn == argCount || (method.Type().IsVariadic() && argCount >= numIn-1) {
			return func(args []interface{}) (interface{}, error) { return callReflect(method, args) }, true
		}
	}

	return duckMethod(obj, name, argCount)
}

func (r Reflect) Setter(obj interface{}, name string) (Setter, bool) {
	if obj == nil {
		return nil, false
	}

	if typedObj, ok := obj.(*orderedmap.Map); ok {
		return func(value interface{}) error {
			typedObj.Set(name, value)
			return nil
		}, true
	}

	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		return func(value interface{}) error { return setMapIndex(rv, name, value) }, true
	}

	upperName := capitalize(name)
	if method, ok := r.method(rv, "Set"+upperName); ok && method.Type().NumIn() == 1 {
		return func(value interface{}) error {
			_, err := callReflect(method, []interface{}{value})
			return err
		}, true
	}

	if field, ok := structField(rv, upperName); ok && field.CanSet() {
		return func(value interface{}) error {
			val, err := convertArg(value, field.Type())
			if err != nil {
				return err
			}
			field.Set(val)
			return nil
		}, true
	}

	if method, ok := r.method(rv, "Put"); ok && method.Type().NumIn() == 2 &&
		method.Type().In(0).Kind() == reflect.String {
		return func(value interface{}) error {
			_, err := callReflect(method, []interface{}{name, value})
			return err
		}, true
	}
	return nil, false
}

func (r Reflect) Index(obj interface{}, index interface{}) (Getter, bool) {
	switch typedObj := obj.(type) {
	case nil:
		return nil, false
	case *orderedmap.Map:
		return func() (interface{}, error) {
			val, _ := typedObj.Get(index)
			return val, nil
		}, true
	case sequence:
		return func() (interface{}, error) { return sequenceAt(typedObj, index) }, true
	case string:
		return func() (interface{}, error) {
			runes := []rune(typedObj)
			val, err := sequenceAt(reflectSeq{reflect.ValueOf(runes)}, index)
			if err != nil {
				return nil, err
			}
			return string(val.(rune)), nil
		}, true
	}

	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return func() (interface{}, error) { return sequenceAt(reflectSeq{rv}, index) }, true
	case reflect.Map:
		return func() (interface{}, error) { return mapIndex(rv, index) }, true
	}

	if method, ok := r.method(rv, "Get"); ok && method.Type().NumIn() == 1 {
		return func() (interface{}, error) { return callReflect(method, []interface{}{index}) }, true
	}
	return nil, false
}

func (r Reflect) SetIndex(obj interface{}, index interface{}) (Setter, bool) {
	switch typedObj := obj.(type) {
	case nil:
		return nil, false
	case *orderedmap.Map:
		return func(value interface{}) error {
			typedObj.Set(index, value)
			return nil
		}, true
	case *List:
		return func(value interface{}) error {
			idx, ok := AsInt(index)
			if !ok {
				return fmt.Errorf("Expected index to be an integer, but was %T", index)
			}
			if idx < 0 {
				idx += typedObj.Len()
			}
			_, err := typedObj.Set(idx, value)
			return err
		}, true
	}

	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Slice:
		return func(value interface{}) error {
			idx, ok := AsInt(index)
			if !ok {
				return fmt.Errorf("Expected index to be an integer, but was %T", index)
			}
			if idx < 0 {
				idx += rv.Len()
			}
			if idx < 0 || idx >= rv.Len() {
				return fmt.Errorf("Expected index %d to be within list bounds (size %d)", idx, rv.Len())
			}
			val, err := convertArg(value, rv.Type().Elem())
			if err != nil {
				return err
			}
			rv.Index(idx).Set(val)
			return nil
		}, true
	case reflect.Map:
		return func(value interface{}) error { return setMapIndex(rv, index, value) }, true
	}

	if method, ok := r.method(rv, "Put"); ok && method.Type().NumIn() == 2 {
		return func(value interface{}) error {
			_, err := callReflect(method, []interface{}{index, value})
			return err
		}, true
	}
	return nil, false
}

func (r Reflect) Iterator(obj interface{}) (Iterator, bool) {
	switch typedObj := obj.(type) {
	case nil:
		return nil, false
	case Iterator:
		return typedObj, true
	case sequence:
		return &sequenceIterator{seq: typedObj}, true
	case *orderedmap.Map:
		return &sequenceIterator{seq: NewList(typedObj.Values()...)}, true
	}

	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return &sequenceIterator{seq: reflectSeq{rv}}, true

	case reflect.Map:
		var values []interface{}
		for _, key := range sortedMapKeys(rv) {
			values = append(values, asInterface(rv.MapIndex(key)))
		}
		return &sequenceIterator{seq: NewList(values...)}, true

	case reflect.Chan:
		if rv.Type().ChanDir()&reflect.RecvDir == 0 {
			return nil, false
		}
		return &chanIterator{ch: rv}, true
	}
	return nil, false
}

func (r Reflect) method(rv reflect.Value, name string) (reflect.Value, bool) {
	if !rv.IsValid() {
		return reflect.Value{}, false
	}
	key := methodKey{rv.Type(), name}
	if idx, found := r.methods.Load(key); found {
		if idx.(int) < 0 {
			return reflect.Value{}, false
		}
		return rv.Method(idx.(int)), true
	}

	idx := -1
	if method, found := rv.Type().MethodByName(name); found {
		idx = method.Index
	}
	r.methods.Store(key, idx)
	if idx < 0 {
		return reflect.Value{}, false
	}
	return rv.Method(idx), true
}

func structField(rv reflect.Value, name string) (reflect.Value, bool) {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	field, found := rv.Type().FieldByName(name)
	if !found || field.PkgPath != "" {
		return reflect.Value{}, false
	}
	return rv.FieldByIndex(field.Index), true
}

func callReflect(method reflect.Value, args []interface{}) (interface{}, error) {
	methodType := method.Type()
	numIn := methodType.NumIn()

	in := make([]reflect.Value, 0, len(args))
	for i, arg := range args {
		var argType reflect.Type
		switch {
		case methodType.IsVariadic() && i >= numIn-1:
			argType = methodType.In(numIn - 1).Elem()
		case i < numIn:
			argType = methodType.In(i)
		default:
			return nil, fmt.Errorf("Expected %d arguments, but was %d", numIn, len(args))
		}
		val, err := convertArg(arg, argType)
		if err != nil {
			return nil, fmt.Errorf("Converting argument %d: %s", i+1, err)
		}
		in = append(in, val)
	}

	out := method.Call(in)

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if methodType.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return asInterface(out[0]), nil
	default:
		return asInterface(out[0]), asError(out[len(out)-1])
	}
}

func asError(val reflect.Value) error {
	if val.Type() != errorType || val.IsNil() {
		return nil
	}
	return val.Interface().(error)
}

func asInterface(val reflect.Value) interface{} {
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if val.IsNil() {
			return nil
		}
	}
	return val.Interface()
}

func convertArg(arg interface{}, typ reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch typ.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(typ), nil
		}
		return reflect.Value{}, fmt.Errorf("Expected value of type %s, but was null", typ)
	}

	val := reflect.ValueOf(arg)
	if val.Type().AssignableTo(typ) {
		return val, nil
	}

	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if num, ok := AsInt(arg); ok {
			return reflect.ValueOf(num).Convert(typ), nil
		}

	case reflect.Float32, reflect.Float64:
		if num, ok := AsNumber(arg); ok {
			return reflect.ValueOf(toFloat(num)).Convert(typ), nil
		}

	case reflect.String:
		return reflect.ValueOf(AsString(arg)).Convert(typ), nil

	case reflect.Slice:
		if list, ok := arg.(*List); ok && typ.Elem().Kind() == reflect.Interface {
			return reflect.ValueOf(list.Items()).Convert(typ), nil
		}

	default:
		if val.Type().ConvertibleTo(typ) {
			return val.Convert(typ), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("Expected value of type %s, but was %T", typ, arg)
}

func capitalize(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

type chanIterator struct {
	ch     reflect.Value
	next   reflect.Value
	peeked bool
	done   bool
}

func (i *chanIterator) HasNext() bool {
	if i.done {
		return false
	}
	if !i.peeked {
		val, ok := i.ch.Recv()
		if !ok {
			i.done = true
			return false
		}
		i.next = val
		i.peeked = true
	}
	return true
}

func (i *chanIterator) Next() interface{} {
	if !i.HasNext() {
		return nil
	}
	i.peeked = false
	return asInterface(i.next)
}
