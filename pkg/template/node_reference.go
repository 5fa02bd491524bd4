// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"io"
	"strings"

	"carvel.dev/vtl/pkg/ast"
	"carvel.dev/vtl/pkg/filepos"
	"carvel.dev/vtl/pkg/introspect"
	"carvel.dev/vtl/pkg/spell"
)

type segmentNode struct {
	kind    ast.SegmentKind
	name    string
	args    []Expr
	literal string
	pos     *filepos.Position
}

type referenceNode struct {
	exprBase
	root      string
	segments  []*segmentNode
	alternate Expr
	quiet     bool
	escapes   int
}

var _ Expr = &referenceNode{}
var _ Node = &referenceNode{}

// accessError keeps message readable while allowing
// classification via errors.Is.
type accessError struct {
	msg  string
	kind error
}

func (e accessError) Error() string { return e.msg }
func (e accessError) Unwrap() error { return e.kind }

func (r *referenceNode) isScalar() bool { return len(r.segments) == 0 }

// name returns dotted name of the reference up to (not including) segment idx.
func (r *referenceNode) name(idx int) string {
	name := "$" + r.root
	for _, seg := range r.segments[:idx] {
		name += seg.literal
	}
	return name
}

func (r *referenceNode) Value(s *State) (interface{}, error) {
	val, err := r.resolve(s, false)
	if err != nil {
		return nil, err
	}
	return r.applyAlternate(s, val)
}

func (r *referenceNode) Evaluate(s *State) (bool, error) {
	val, err := r.resolve(s, true)
	if err != nil {
		return false, err
	}
	val, err = r.applyAlternate(s, val)
	if err != nil {
		return false, err
	}
	return introspect.AsBoolean(val, s.checkEmpty()), nil
}

func (r *referenceNode) Render(s *State, w io.Writer) error {
	if r.escapes%2 == 1 {
		val, err := r.resolve(s, true)
		if err != nil {
			return err
		}
		if val != nil || s.Config().StrictEscape {
			return writeStrings(w, strings.Repeat("\\", r.escapes/2), r.literal)
		}
		return writeStrings(w, strings.Repeat("\\", r.escapes), r.literal)
	}

	val, err := r.Value(s)
	if err != nil {
		return err
	}

	if val == nil {
		switch {
		case r.quiet:
			return writeStrings(w, strings.Repeat("\\", r.escapes/2))
		case s.strict():
			return MethodInvocationError{
				Reference: r.literal,
				Position:  r.pos,
				Err:       accessError{fmt.Sprintf("Reference '%s' evaluated to null when attempting to render", r.literal), ErrNullValue},
			}
		default:
			return writeStrings(w, strings.Repeat("\\", r.escapes), r.literal)
		}
	}

	val, err = s.insertReference(r.literal, val)
	if err != nil {
		return err
	}

	err = writeStrings(w, strings.Repeat("\\", r.escapes/2))
	if err != nil {
		return err
	}
	return s.renderValue(val, w)
}

func (r *referenceNode) applyAlternate(s *State, val interface{}) (interface{}, error) {
	if r.alternate == nil {
		return val, nil
	}
	if val != nil && introspect.AsBoolean(val, s.checkEmpty()) {
		return val, nil
	}
	return r.alternate.Value(s)
}

// resolve looks up root and walks segments left to right. When testing,
// missing or null values yield nil without errors or events.
func (r *referenceNode) resolve(s *State, testing bool) (interface{}, error) {
	val, err := r.lookupRoot(s, testing)
	if err != nil || val == nil {
		return nil, err
	}
	return r.walk(s, val, len(r.segments), testing)
}

func (r *referenceNode) lookupRoot(s *State, testing bool) (interface{}, error) {
	val, found, err := contextLookup(s.ctx, r.root)
	if err != nil {
		return nil, err
	}
	if found {
		return val, nil
	}

	switch {
	case testing || r.alternate != nil:
		return nil, nil
	case s.strict():
		return nil, MethodInvocationError{
			Reference:  "$" + r.root,
			Method:     r.root,
			Position:   r.pos,
			Err:        ErrUndefinedReference,
			Suggestion: spell.Suggest(r.root, s.ctx.Keys()),
		}
	case r.quiet:
		return nil, nil
	default:
		s.Logger().Debugf("Undefined reference '%s' at %s", r.literal, r.pos.AsCompactString())
		return s.invalidGet(r.literal, nil, r.root, r.pos), nil
	}
}

func (r *referenceNode) walk(s *State, val interface{}, upTo int, testing bool) (interface{}, error) {
	var err error

	for i, seg := range r.segments[:upTo] {
		if val == nil {
			switch {
			case testing || r.alternate != nil:
				return nil, nil
			case s.strict():
				return nil, MethodInvocationError{
					Reference: r.literal,
					Method:    seg.name,
					Position:  seg.pos,
					Err: accessError{fmt.Sprintf("Attempted to access '%s' on null value '%s'",
						seg.literal, r.name(i)), ErrNullValue},
				}
			case r.quiet:
				return nil, nil
			default:
				s.Logger().Debugf("Null value '%s' in reference '%s' at %s", r.name(i), r.literal, seg.pos.AsCompactString())
				return s.invalidGet(r.literal, nil, seg.name, seg.pos), nil
			}
		}

		val, err = seg.execute(s, r, i, val, testing)
		if err != nil {
			return nil, err
		}
	}
	return val, nil
}

func (seg *segmentNode) execute(s *State, ref *referenceNode, idx int, obj interface{}, testing bool) (interface{}, error) {
	intro := s.engine.introspector

	switch seg.kind {
	case ast.SegmentProperty:
		getter, ok := intro.Property(obj, seg.name)
		if !ok {
			return seg.invalidAccess(s, ref, idx, obj, "property", testing)
		}
		return seg.invoke(ref, func() (interface{}, error) { return getter() })

	case ast.SegmentMethod:
		args, err := evalArgs(s, seg.args)
		if err != nil {
			return nil, err
		}
		method, ok := intro.Method(obj, seg.name, len(args))
		if !ok {
			return seg.invalidAccess(s, ref, idx, obj, "method", testing)
		}
		return seg.invoke(ref, func() (interface{}, error) { return method(args) })

	default:
		index, err := seg.args[0].Value(s)
		if err != nil {
			return nil, err
		}
		getter, ok := intro.Index(obj, index)
		if !ok {
			return seg.invalidAccess(s, ref, idx, obj, "index", testing)
		}
		return seg.invoke(ref, func() (interface{}, error) { return getter() })
	}
}

func (seg *segmentNode) invoke(ref *referenceNode, fn func() (interface{}, error)) (interface{}, error) {
	val, err := recoverInvoke(fn)
	if err != nil {
		if IsStop(err) {
			return nil, err
		}
		return nil, MethodInvocationError{
			Reference: ref.literal,
			Method:    seg.name,
			Position:  seg.pos,
			Err:       err,
		}
	}
	return val, nil
}

func (seg *segmentNode) invalidAccess(s *State, ref *referenceNode, idx int, obj interface{}, what string, testing bool) (interface{}, error) {
	if s.strict() {
		return nil, MethodInvocationError{
			Reference: ref.literal,
			Method:    seg.name,
			Position:  seg.pos,
			Err: accessError{fmt.Sprintf("Object '%s' (type %T) does not contain %s '%s'",
				ref.name(idx), obj, what, strings.TrimPrefix(seg.literal, ".")), ErrInvalidAccess},
		}
	}
	if testing || ref.quiet || ref.alternate != nil {
		return nil, nil
	}

	s.Logger().Debugf("Object '%s' (type %T) does not contain %s '%s' at %s",
		ref.name(idx), obj, what, seg.literal, seg.pos.AsCompactString())

	if seg.kind == ast.SegmentMethod {
		return s.invalidMethod(ref.literal, obj, seg.name, seg.pos), nil
	}
	return s.invalidGet(ref.literal, obj, seg.name, seg.pos), nil
}

// setValue assigns value to the target of reference (#set($a.b = v)).
func (r *referenceNode) setValue(s *State, value interface{}, rightLiteral string) error {
	if r.isScalar() {
		return contextAssign(s.ctx, r.root, value)
	}

	last := r.segments[len(r.segments)-1]

	obj, err := r.lookupRoot(s, false)
	if err != nil {
		return err
	}
	if obj != nil {
		obj, err = r.walk(s, obj, len(r.segments)-1, false)
		if err != nil {
			return err
		}
	}

	var setter introspect.Setter
	var ok bool

	if obj != nil {
		switch last.kind {
		case ast.SegmentIndex:
			index, err := last.args[0].Value(s)
			if err != nil {
				return err
			}
			setter, ok = s.engine.introspector.SetIndex(obj, index)
		default:
			setter, ok = s.engine.introspector.Setter(obj, last.name)
		}
	}

	if !ok {
		msg := fmt.Sprintf("Unable to set '%s' of '%s' (type %T)", strings.TrimPrefix(last.literal, "."),
			r.name(len(r.segments)-1), obj)
		if s.strict() {
			kind := ErrInvalidAccess
			if obj == nil {
				kind = ErrNullValue
			}
			return MethodInvocationError{Reference: r.literal, Method: last.name, Position: last.pos, Err: accessError{msg, kind}}
		}
		s.Logger().Warningf("%s at %s", msg, last.pos.AsCompactString())
		s.invalidSet(r.literal, rightLiteral, last.pos)
		return nil
	}

	_, err = recoverInvoke(func() (interface{}, error) { return nil, setter(value) })
	if err != nil {
		return MethodInvocationError{Reference: r.literal, Method: last.name, Position: last.pos, Err: err}
	}
	return nil
}

func evalArgs(s *State, exprs []Expr) ([]interface{}, error) {
	args := make([]interface{}, 0, len(exprs))
	for _, expr := range exprs {
		val, err := expr.Value(s)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	return args, nil
}

func (s *State) renderValue(val interface{}, w io.Writer) error {
	switch typedVal := val.(type) {
	case blockRenderer:
		return typedVal.renderBlock(w)
	case Renderable:
		return typedVal.Render(s.ctx, w)
	default:
		return writeStrings(w, introspect.AsString(val))
	}
}

// asString converts value to string. Block references are rendered,
// hence errors (including *Stop signals) raised by their bodies are returned.
func (s *State) asString(val interface{}) (string, error) {
	switch val.(type) {
	case blockRenderer, Renderable:
		var buf strings.Builder
		err := s.renderValue(val, &buf)
		if err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		return introspect.AsString(val), nil
	}
}

func writeStrings(w io.Writer, strs ...string) error {
	for _, str := range strs {
		if len(str) == 0 {
			continue
		}
		_, err := io.WriteString(w, str)
		if err != nil {
			return err
		}
	}
	return nil
}
