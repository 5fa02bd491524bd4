// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"carvel.dev/vtl/pkg/ast"
	"carvel.dev/vtl/pkg/config"
	"carvel.dev/vtl/pkg/filepos"
)

// globalMacroSource is namespace of library macros (and of inline
// macros unless velocimacro.inline_local_scope is enabled).
const globalMacroSource = ""

type macroKey struct {
	name   string
	source string
}

type macroRegistry struct {
	lock   sync.RWMutex
	macros map[macroKey]*macroProxy
}

func newMacroRegistry() *macroRegistry {
	return &macroRegistry{macros: map[macroKey]*macroProxy{}}
}

type macroParam struct {
	name string
	def  ast.Node
}

// macroProxy is a registered velocimacro. Its body is bound on first call
// and shared by all later calls and renders.
type macroProxy struct {
	name   string
	params []macroParam
	header *ast.Directive
	body   *ast.Block
	// source is name of the template that defined the macro
	source  string
	library bool
	pos     *filepos.Position

	lock     sync.Mutex
	compiled atomic.Pointer[compiledMacro]
}

type compiledMacro struct {
	body     Node
	defaults []Expr
}

func (p *macroProxy) compile(engine *Engine) (*compiledMacro, error) {
	if compiled := p.compiled.Load(); compiled != nil {
		return compiled, nil
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if compiled := p.compiled.Load(); compiled != nil {
		return compiled, nil
	}

	b := newBinder(engine, p.source)
	compiled := &compiledMacro{}

	var err error

	if p.header != nil {
		compiled.body, err = b.BindBody(p.header, p.body)
	} else {
		compiled.body, err = b.BindBlock(p.body)
	}
	if err != nil {
		return nil, fmt.Errorf("Compiling macro '%s': %s", p.name, err)
	}

	for _, param := range p.params {
		var def Expr
		if param.def != nil {
			def, err = b.BindExpr(param.def)
			if err != nil {
				return nil, fmt.Errorf("Compiling macro '%s': %s", p.name, err)
			}
		}
		compiled.defaults = append(compiled.defaults, def)
	}

	p.compiled.Store(compiled)
	return compiled, nil
}

func (p *macroProxy) render(s *State, w io.Writer, call *macroCallNode) error {
	vmCfg := s.Config().Velocimacro

	if s.macroDepth >= vmCfg.MaxDepth {
		return MacroOverflowError{
			Macro:    p.name,
			MaxDepth: vmCfg.MaxDepth,
			Stack:    append(append([]string{}, s.macroStack...), p.name),
			Position: call.pos,
		}
	}

	compiled, err := p.compile(s.engine)
	if err != nil {
		return err
	}

	if len(call.args) > len(p.params) {
		msg := fmt.Sprintf("Expected macro '%s' to be called with at most %d arguments, but was called with %d",
			p.name, len(p.params), len(call.args))
		if vmCfg.ArgumentsStrict {
			return fmt.Errorf("%s at %s", msg, call.pos.AsCompactString())
		}
		s.Logger().Debugf("%s at %s", msg, call.pos.AsCompactString())
	}

	mctx := newMacroContext(s, vmCfg.ContextLocalScope)
	child := s.withContext(mctx)
	child.macroDepth++
	child.macroStack = append(append([]string{}, s.macroStack...), p.name)

	for i, param := range p.params {
		switch {
		case i < len(call.args):
			mctx.args[param.name] = &macroArg{spec: call.args[i], caller: s}

		case compiled.defaults[i] != nil:
			val, err := compiled.defaults[i].Value(child)
			if err != nil {
				return err
			}
			mctx.args[param.name] = &macroArg{value: val}

		case vmCfg.ArgumentsStrict:
			return fmt.Errorf("Expected macro '%s' to be called with argument '$%s' at %s",
				p.name, param.name, call.pos.AsCompactString())
		}
	}

	control, scopeName := config.ScopeMacro, "macro"

	if call.body != nil {
		control, scopeName = config.ScopeBodyMacro, p.name
		mctx.locals.Put(vmCfg.BodyReference, &blockReference{
			body:     call.body,
			state:    s,
			maxDepth: vmCfg.MaxDepth,
			literal:  "$" + vmCfg.BodyReference,
		})
	}

	scope, err := child.pushScope(control, scopeName, p.name)
	if err != nil {
		return err
	}

	err = compiled.body.Render(child, w)

	child.popScope(scope)

	if stop, ok := asStop(err); ok && stop.isForScope(scope) {
		return nil
	}
	return err
}

func (e *Engine) addMacro(proxy *macroProxy) bool {
	key := macroKey{name: proxy.name, source: globalMacroSource}
	if !proxy.library && e.cfg.Velocimacro.InlineLocalScope {
		key.source = proxy.source
	}

	e.macros.lock.Lock()
	defer e.macros.lock.Unlock()

	existing, found := e.macros.macros[key]
	if found && existing.library && !proxy.library && !e.cfg.Velocimacro.InlineReplaceGlobal {
		e.log.Debugf("Ignoring macro '%s' defined in '%s' as it would replace library macro", proxy.name, proxy.source)
		return false
	}

	e.macros.macros[key] = proxy
	return true
}

// lookupMacro searches macros visible from call site in order: call site
// template, rendering template, #parse'd libraries (most recent first)
// and global namespace.
func (e *Engine) lookupMacro(name, callSite string, s *State) (*macroProxy, bool) {
	e.macros.lock.RLock()
	defer e.macros.lock.RUnlock()

	global, hasGlobal := e.macros.macros[macroKey{name: name, source: globalMacroSource}]
	if hasGlobal && global.library && !e.cfg.Velocimacro.InlineReplaceGlobal {
		return global, true
	}

	sources := []string{callSite}
	if s.tpl != nil {
		sources = append(sources, s.tpl.name)
	}
	for i := len(s.shared.libraries) - 1; i >= 0; i-- {
		sources = append(sources, s.shared.libraries[i].name)
	}

	for _, source := range sources {
		if source == globalMacroSource {
			continue
		}
		if proxy, found := e.macros.macros[macroKey{name: name, source: source}]; found {
			return proxy, true
		}
	}

	return global, hasGlobal
}

func (e *Engine) clearMacros() {
	e.macros.lock.Lock()
	defer e.macros.lock.Unlock()
	e.macros.macros = map[macroKey]*macroProxy{}
}
