// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"carvel.dev/vtl/pkg/config"
)

// Template is bound template. It may be merged any number of times,
// concurrently, as long as each merge gets its own context and writer.
type Template struct {
	engine *Engine
	name   string
	root   Node
}

func (t *Template) Name() string { return t.name }

// Merge renders template into w. #stop signals end rendering without
// error keeping already written output.
func (t *Template) Merge(ctx Context, w io.Writer) error {
	if t.engine.closed.IsSet() {
		return fmt.Errorf("Merging template '%s': engine is closed", t.name)
	}
	if ctx == nil {
		ctx = NewContext()
	}

	s := newState(t.engine, t, ctx)

	scope, err := s.pushScope(config.ScopeTemplate, "template", t.name)
	if err != nil {
		return t.renderError(err)
	}

	err = t.root.Render(s, w)

	s.popScope(scope)

	if err != nil {
		if stop, ok := asStop(err); ok {
			if len(stop.Message()) == 0 {
				t.engine.log.Debugf("Stopped merging template '%s'", t.name)
			}
			return nil
		}
		return t.renderError(err)
	}
	return nil
}

func (t *Template) renderError(err error) error {
	var renderErr RenderError
	if errors.As(err, &renderErr) {
		return err
	}

	result := RenderError{Template: t.name, Err: err}

	var posErr positionedError
	if errors.As(err, &posErr) {
		pos := posErr.Pos()
		if pos.IsKnown() {
			result.Position = pos
			result.Line = strings.TrimRight(pos.GetLine(), "\r")
		}
	}

	return result
}
