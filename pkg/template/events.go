// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"html"
	"regexp"
	"sync"

	"carvel.dev/vtl/pkg/filepos"
	"carvel.dev/vtl/pkg/introspect"
)

// InvalidReferenceHandler is notified when reference cannot be resolved
// in lenient mode. Get and method handlers may provide substitute value
// by returning true.
type InvalidReferenceHandler interface {
	InvalidGet(ctx Context, reference string, object interface{}, property string, pos *filepos.Position) (interface{}, bool)
	InvalidSet(ctx Context, leftReference string, rightReference string, pos *filepos.Position)
	InvalidMethod(ctx Context, reference string, object interface{}, method string, pos *filepos.Position) (interface{}, bool)
}

// ReferenceInsertionHandler may transform values right before they are
// written to output. Handlers are chained in registration order.
type ReferenceInsertionHandler interface {
	InsertReference(ctx Context, reference string, value interface{}) interface{}
}

// EscapeHTMLReference escapes string values of references matching
// MatchPattern (all references when empty).
type EscapeHTMLReference struct {
	MatchPattern *regexp.Regexp
}

var _ ReferenceInsertionHandler = EscapeHTMLReference{}

func (h EscapeHTMLReference) InsertReference(_ Context, reference string, value interface{}) interface{} {
	if h.MatchPattern != nil && !h.MatchPattern.MatchString(reference) {
		return value
	}
	if value == nil {
		return nil
	}
	if _, ok := value.(blockRenderer); ok {
		return value
	}
	return html.EscapeString(introspect.AsString(value))
}

// InvalidReference describes one occurrence of unresolved reference.
type InvalidReference struct {
	Reference string
	Position  *filepos.Position
}

func (r InvalidReference) String() string {
	return fmt.Sprintf("%s at %s", r.Reference, r.Position.AsCompactString())
}

// InvalidReferenceReporter collects invalid references across merges.
// It is safe for concurrent use.
type InvalidReferenceReporter struct {
	lock sync.Mutex
	refs []InvalidReference
}

var _ InvalidReferenceHandler = &InvalidReferenceReporter{}

func (r *InvalidReferenceReporter) InvalidGet(_ Context, reference string, _ interface{}, _ string, pos *filepos.Position) (interface{}, bool) {
	r.add(reference, pos)
	return nil, false
}

func (r *InvalidReferenceReporter) InvalidSet(_ Context, leftReference string, _ string, pos *filepos.Position) {
	r.add(leftReference, pos)
}

func (r *InvalidReferenceReporter) InvalidMethod(_ Context, reference string, _ interface{}, _ string, pos *filepos.Position) (interface{}, bool) {
	r.add(reference, pos)
	return nil, false
}

func (r *InvalidReferenceReporter) Invalid() []InvalidReference {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]InvalidReference{}, r.refs...)
}

func (r *InvalidReferenceReporter) add(reference string, pos *filepos.Position) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.refs = append(r.refs, InvalidReference{Reference: reference, Position: pos})
}

func (s *State) invalidGet(reference string, object interface{}, property string, pos *filepos.Position) interface{} {
	for _, handler := range s.engine.invalidHandlers {
		if val, ok := handler.InvalidGet(s.ctx, reference, object, property, pos); ok {
			return val
		}
	}
	return nil
}

func (s *State) invalidSet(leftReference, rightReference string, pos *filepos.Position) {
	for _, handler := range s.engine.invalidHandlers {
		handler.InvalidSet(s.ctx, leftReference, rightReference, pos)
	}
}

func (s *State) invalidMethod(reference string, object interface{}, method string, pos *filepos.Position) interface{} {
	for _, handler := range s.engine.invalidHandlers {
		if val, ok := handler.InvalidMethod(s.ctx, reference, object, method, pos); ok {
			return val
		}
	}
	return nil
}

// insertReference passes value through insertion handlers. Block
// references are rendered first so that handlers see their output.
func (s *State) insertReference(reference string, value interface{}) (interface{}, error) {
	if len(s.engine.insertionHandlers) == 0 {
		return value, nil
	}
	if _, ok := value.(blockRenderer); ok {
		str, err := s.asString(value)
		if err != nil {
			return nil, err
		}
		value = str
	}
	for _, handler := range s.engine.insertionHandlers {
		value = handler.InsertReference(s.ctx, reference, value)
	}
	return value, nil
}
