// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"carvel.dev/vtl/pkg/filepos"
)

var (
	// ErrUndefinedReference is wrapped when strict references are enabled
	// and reference root is not present in context.
	ErrUndefinedReference = errors.New("undefined reference")
	// ErrNullValue is wrapped when strict references are enabled and
	// null is rendered or dereferenced.
	ErrNullValue = errors.New("null value")
	// ErrInvalidAccess is wrapped when property, method or index
	// cannot be resolved on a value.
	ErrInvalidAccess = errors.New("invalid access")
)

// TemplateInitError is returned when template cannot be bound
// (e.g. malformed #set or #foreach arguments).
type TemplateInitError struct {
	Position *filepos.Position
	Msg      string
}

var _ error = TemplateInitError{}

func (e TemplateInitError) Error() string {
	return fmt.Sprintf("%s at %s", e.Msg, e.Position.AsCompactString())
}

func (e TemplateInitError) Pos() *filepos.Position { return e.Position }

// MethodInvocationError carries failure of resolving a reference segment
// or of invoking a host method.
type MethodInvocationError struct {
	Reference string
	Method    string
	Position  *filepos.Position
	Err       error
	// Suggestion is similarly named variable present in context
	Suggestion string
}

var _ error = MethodInvocationError{}

func (e MethodInvocationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUndefinedReference):
		msg := fmt.Sprintf("Variable '%s' has not been set at %s", e.Reference, e.Position.AsCompactString())
		if len(e.Suggestion) > 0 {
			msg += fmt.Sprintf(" (hint: did you mean '$%s'?)", e.Suggestion)
		}
		return msg
	case errors.Is(e.Err, ErrNullValue), errors.Is(e.Err, ErrInvalidAccess):
		return fmt.Sprintf("%s at %s", e.Err, e.Position.AsCompactString())
	default:
		return fmt.Sprintf("Invoking method '%s' in '%s' at %s: %s",
			e.Method, e.Reference, e.Position.AsCompactString(), e.Err)
	}
}

func (e MethodInvocationError) Unwrap() error          { return e.Err }
func (e MethodInvocationError) Pos() *filepos.Position { return e.Position }

// MacroOverflowError is returned when velocimacro calls nest deeper
// than velocimacro.max_depth.
type MacroOverflowError struct {
	Macro    string
	MaxDepth int
	Stack    []string
	Position *filepos.Position
}

var _ error = MacroOverflowError{}

func (e MacroOverflowError) Error() string {
	return fmt.Sprintf("Max calling depth of %d was exceeded in macro '%s' at %s (call stack: %s)",
		e.MaxDepth, e.Macro, e.Position.AsCompactString(), strings.Join(e.Stack, "->"))
}

func (e MacroOverflowError) Pos() *filepos.Position { return e.Position }

type positionedError interface {
	Pos() *filepos.Position
}

// RenderError decorates merge failure with the source line it happened at.
type RenderError struct {
	Template string
	Position *filepos.Position
	Line     string
	Err      error
}

var _ error = RenderError{}

func (e RenderError) Unwrap() error { return e.Err }

func (e RenderError) Error() string {
	topicLine := e.Err.Error()
	var otherLines []string

	if strings.Contains(topicLine, "\n") {
		lines := strings.Split(topicLine, "\n")
		topicLine = lines[0]
		otherLines = lines[1:]
	}

	result := []string{"", fmt.Sprintf("- %s", topicLine)}

	linePad := "    "
	result = append(result, linePad+"in "+e.Template)
	linePad += "  "

	if e.Position != nil && e.Position.IsKnown() {
		result = append(result, fmt.Sprintf("%s%s | %s", linePad, e.Position.AsCompactString(), e.Line))
	}

	if len(otherLines) > 0 {
		result = append(result, []string{"", "    reason:"}...)
		for _, line := range otherLines {
			result = append(result, fmt.Sprintf("     %s", line))
		}
	}

	return strings.Join(result, "\n")
}

// recoverInvoke calls host code converting panics into errors.
func recoverInvoke(fn func() (interface{}, error)) (val interface{}, resultErr error) {
	defer func() {
		if err := recover(); err != nil {
			if typedErr, ok := err.(error); ok {
				resultErr = fmt.Errorf("%s (backtrace: %s)", typedErr, debug.Stack())
			} else {
				resultErr = fmt.Errorf("(p) %v (backtrace: %s)", err, debug.Stack())
			}
		}
	}()
	return fn()
}
