// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package introspect

import (
	"fmt"
	"math"
)

// List is a mutable list produced by list literals (e.g. [1, 2]).
type List struct {
	items []interface{}
}

func NewList(items ...interface{}) *List {
	return &List{items: items}
}

func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

func (l *List) At(i int) interface{} { return l.items[i] }

// Items returns underlying items; callers must not modify the result.
func (l *List) Items() []interface{} { return l.items }

func (l *List) Add(item interface{}) { l.items = append(l.items, item) }

func (l *List) Insert(i int, item interface{}) error {
	if i < 0 || i > len(l.items) {
		return fmt.Errorf("Expected index %d to be within list bounds (size %d)", i, len(l.items))
	}
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = item
	return nil
}

func (l *List) Set(i int, item interface{}) (interface{}, error) {
	if i < 0 || i >= len(l.items) {
		return nil, fmt.Errorf("Expected index %d to be within list bounds (size %d)", i, len(l.items))
	}
	prev := l.items[i]
	l.items[i] = item
	return prev, nil
}

func (l *List) RemoveAt(i int) (interface{}, error) {
	if i < 0 || i >= len(l.items) {
		return nil, fmt.Errorf("Expected index %d to be within list bounds (size %d)", i, len(l.items))
	}
	prev := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	return prev, nil
}

func (l *List) Clear() { l.items = nil }

// MaxListRangeLen limits number of items a range materializes into.
const MaxListRangeLen = 1 << 22

// RangeSizeError is returned for ranges with more items than allowed.
type RangeSizeError struct {
	Left  int64
	Right int64
	Max   int
}

func (e RangeSizeError) Error() string {
	return fmt.Sprintf("Expected range [%d..%d] to have at most %d items", e.Left, e.Right, e.Max)
}

// IntegerRange is an immutable inclusive range of integers, ascending
// or descending depending on order of its bounds.
type IntegerRange struct {
	Left  int64
	Right int64
}

func NewIntegerRange(left, right int64) (IntegerRange, error) {
	r := IntegerRange{Left: left, Right: right}
	if r.distance() >= uint64(math.MaxInt) {
		return IntegerRange{}, RangeSizeError{Left: left, Right: right, Max: math.MaxInt}
	}
	return r, nil
}

func (r IntegerRange) distance() uint64 {
	if r.Left <= r.Right {
		return uint64(r.Right) - uint64(r.Left)
	}
	return uint64(r.Left) - uint64(r.Right)
}

// Len saturates at math.MaxInt for ranges built without NewIntegerRange.
func (r IntegerRange) Len() int {
	dist := r.distance()
	if dist >= uint64(math.MaxInt) {
		return math.MaxInt
	}
	return int(dist) + 1
}

func (r IntegerRange) At(i int) interface{} {
	if r.Left <= r.Right {
		return r.Left + int64(i)
	}
	return r.Left - int64(i)
}

// AsList materializes range into mutable list.
func (r IntegerRange) AsList() (*List, error) {
	size := r.Len()
	if size > MaxListRangeLen {
		return nil, RangeSizeError{Left: r.Left, Right: r.Right, Max: MaxListRangeLen}
	}
	items := make([]interface{}, 0, size)
	for i := 0; i < size; i++ {
		items = append(items, r.At(i))
	}
	return NewList(items...), nil
}

type sequence interface {
	Len() int
	At(i int) interface{}
}

var _ = []sequence{&List{}, IntegerRange{}}

type sequenceIterator struct {
	seq sequence
	idx int
}

func (i *sequenceIterator) HasNext() bool { return i.idx < i.seq.Len() }

func (i *sequenceIterator) Next() interface{} {
	item := i.seq.At(i.idx)
	i.idx++
	return item
}
