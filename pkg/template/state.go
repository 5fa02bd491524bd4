// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"io"

	"carvel.dev/vtl/pkg/config"
	"github.com/tliron/commonlog"
)

// State is per merge evaluation state. Constructs that change
// evaluation context (macro calls, #parse) derive child states;
// data shared by whole merge lives in mergeShared.
type State struct {
	engine *Engine
	ctx    Context
	// tpl is the template passed to Merge
	tpl *Template

	macroDepth int
	macroStack []string
	parseDepth int

	shared *mergeShared
}

type mergeShared struct {
	// libraries are templates included via #parse, most recent last
	libraries   []*Template
	defineDepth map[*blockReference]int
}

func newState(engine *Engine, tpl *Template, ctx Context) *State {
	return &State{
		engine: engine,
		ctx:    ctx,
		tpl:    tpl,
		shared: &mergeShared{defineDepth: map[*blockReference]int{}},
	}
}

func (s *State) Context() Context         { return s.ctx }
func (s *State) Engine() *Engine          { return s.engine }
func (s *State) Config() config.Runtime   { return s.engine.cfg }
func (s *State) Logger() commonlog.Logger { return s.engine.log }
func (s *State) strict() bool             { return s.engine.cfg.StrictReferences }
func (s *State) checkEmpty() bool         { return s.engine.cfg.CheckEmptyObjects }

func (s *State) withContext(ctx Context) *State {
	child := *s
	child.ctx = ctx
	return &child
}

// Renderable values render themselves into output
// instead of being converted to string.
type Renderable interface {
	Render(ctx Context, w io.Writer) error
}

// blockRenderer is implemented by #define and block macro body references
// which render in context they were captured in.
type blockRenderer interface {
	renderBlock(w io.Writer) error
}
