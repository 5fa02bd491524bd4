// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package introspect

// Getter reads a resolved property or index.
type Getter func() (interface{}, error)

// Setter writes a resolved property or index.
type Setter func(value interface{}) error

// Method invokes a resolved method with already evaluated arguments.
type Method func(args []interface{}) (interface{}, error)

type Iterator interface {
	HasNext() bool
	Next() interface{}
}

type Introspector interface {
	Property(obj interface{}, name string) (Getter, bool)
	Method(obj interface{}, name string, argCount int) (Method, bool)
	Setter(obj interface{}, name string) (Setter, bool)
	Index(obj interface{}, index interface{}) (Getter, bool)
	SetIndex(obj interface{}, index interface{}) (Setter, bool)
	Iterator(obj interface{}) (Iterator, bool)
}

// Chain asks each introspector in order until one resolves.
type Chain []Introspector

var _ Introspector = Chain{}

// NewDefault returns introspector used by the engine unless configured otherwise.
func NewDefault() Chain {
	return Chain{NewStarlark(), NewReflect()}
}

func (c Chain) Property(obj interface{}, name string) (Getter, bool) {
	for _, i := range c {
		if getter, ok := i.Property(obj, name); ok {
			return getter, true
		}
	}
	return nil, false
}

func (c Chain) Method(obj interface{}, name string, argCount int) (Method, bool) {
	for _, i := range c {
		if method, ok := i.Method(obj, name, argCount); ok {
			return method, true
		}
	}
	return nil, false
}

func (c Chain) Setter(obj interface{}, name string) (Setter, bool) {
	for _, i := range c {
		if setter, ok := i.Setter(obj, name); ok {
			return setter, true
		}
	}
	return nil, false
}

func (c Chain) Index(obj interface{}, index interface{}) (Getter, bool) {
	for _, i := range c {
		if getter, ok := i.Index(obj, index); ok {
			return getter, true
		}
	}
	return nil, false
}

func (c Chain) SetIndex(obj interface{}, index interface{}) (Setter, bool) {
	for _, i := range c {
		if setter, ok := i.SetIndex(obj, index); ok {
			return setter, true
		}
	}
	return nil, false
}

func (c Chain) Iterator(obj interface{}) (Iterator, bool) {
	for _, i := range c {
		if iter, ok := i.Iterator(obj); ok {
			return iter, true
		}
	}
	return nil, false
}
