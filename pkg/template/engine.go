// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"carvel.dev/vtl/pkg/config"
	"carvel.dev/vtl/pkg/intern"
	"carvel.dev/vtl/pkg/introspect"
	"carvel.dev/vtl/pkg/parser"
	"carvel.dev/vtl/pkg/resource"
	"carvel.dev/vtl/pkg/version"
	"github.com/tevino/abool/v2"
	"github.com/tliron/commonlog"
)

type Options struct {
	// Config defaults to config.Default()
	Config  *config.Runtime
	Loaders []resource.Loader
	Logger  commonlog.Logger
	// Introspector defaults to introspect.NewDefault()
	Introspector introspect.Introspector

	InvalidReferenceHandlers []InvalidReferenceHandler
	InsertionHandlers        []ReferenceInsertionHandler
}

// Engine owns caches shared by templates it produces: compiled
// templates, macro registry and string intern pool. It is safe
// for concurrent use.
type Engine struct {
	cfg          config.Runtime
	log          commonlog.Logger
	introspector introspect.Introspector

	invalidHandlers   []InvalidReferenceHandler
	insertionHandlers []ReferenceInsertionHandler

	resources *resource.Manager
	pool      *intern.Pool
	macros    *macroRegistry

	directivesLock sync.RWMutex
	directives     map[string]directiveEntry

	closed *abool.AtomicBool
}

func NewEngine(opts Options) (*Engine, error) {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("Validating config: %s", err)
	}
	err = cfg.CheckVersion(version.Version)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:               cfg,
		log:               opts.Logger,
		introspector:      opts.Introspector,
		invalidHandlers:   opts.InvalidReferenceHandlers,
		insertionHandlers: opts.InsertionHandlers,
		resources:         resource.NewManager(cfg.ModificationCheckInterval.Duration, opts.Loaders...),
		macros:            newMacroRegistry(),
		directives:        builtinDirectives(),
		closed:            abool.NewBool(false),
	}

	if e.log == nil {
		e.log = commonlog.GetLogger("vtl")
	}
	if e.introspector == nil {
		e.introspector = introspect.NewDefault()
	}
	if cfg.StringInterning {
		e.pool = intern.NewPool()
	}

	for _, name := range cfg.Velocimacro.Library {
		err := e.loadLibrary(name)
		if err != nil {
			return nil, err
		}
	}

	return e, nil
}

func (e *Engine) Config() config.Runtime       { return e.cfg }
func (e *Engine) Logger() commonlog.Logger     { return e.log }
func (e *Engine) Resources() *resource.Manager { return e.resources }

// GetTemplate loads template through resource loaders. Compiled templates
// are cached and recompiled when their resource is modified.
func (e *Engine) GetTemplate(name string) (*Template, error) {
	if e.closed.IsSet() {
		return nil, fmt.Errorf("Getting template '%s': engine is closed", name)
	}

	compiled, _, err := e.resources.Get(name, func(res *resource.Resource) (interface{}, error) {
		return e.compile(res.Name, string(res.Data), false)
	})
	if err != nil {
		return nil, fmt.Errorf("Loading template '%s': %s", name, err)
	}
	return compiled.(*Template), nil
}

// Parse compiles template from source. Result is not cached.
func (e *Engine) Parse(name, src string) (*Template, error) {
	if e.closed.IsSet() {
		return nil, fmt.Errorf("Parsing template '%s': engine is closed", name)
	}
	return e.compile(name, src, false)
}

// Evaluate renders src in ctx; logTag names the source in errors.
func (e *Engine) Evaluate(ctx Context, w io.Writer, logTag, src string) error {
	tpl, err := e.Parse(logTag, src)
	if err != nil {
		return err
	}
	return tpl.Merge(ctx, w)
}

// DefineMacro adds global macro. Parameter names may include leading '$'.
func (e *Engine) DefineMacro(name string, params []string, body string) error {
	if len(name) == 0 {
		return fmt.Errorf("Expected macro name to be non-empty")
	}
	if _, found := e.directiveFactory(name); found {
		return fmt.Errorf("Expected macro name '%s' to not be a directive name", name)
	}

	source := "macro:" + name

	tree, err := parser.Parse(source, body, e.parserOpts())
	if err != nil {
		return fmt.Errorf("Parsing body of macro '%s': %s", name, err)
	}

	proxy := &macroProxy{name: name, body: tree.Body, source: source, library: true, pos: tree.Pos()}
	for _, param := range params {
		proxy.params = append(proxy.params, macroParam{name: strings.TrimPrefix(param, "$")})
	}

	e.addMacro(proxy)
	return nil
}

// Close releases caches; templates of a closed engine fail to render.
func (e *Engine) Close() error {
	e.closed.Set()
	e.resources.Clear()
	e.clearMacros()
	e.pool.Reset()
	return nil
}

func (e *Engine) loadLibrary(name string) error {
	res, err := e.resources.Load(name)
	if err != nil {
		return fmt.Errorf("Loading macro library '%s': %s", name, err)
	}
	_, err = e.compile(res.Name, string(res.Data), true)
	if err != nil {
		return fmt.Errorf("Loading macro library '%s': %s", name, err)
	}
	return nil
}

func (e *Engine) compile(name, src string, library bool) (*Template, error) {
	tree, err := parser.Parse(name, src, e.parserOpts())
	if err != nil {
		return nil, err
	}

	b := newBinder(e, name)
	b.library = library

	root, err := b.BindBlock(tree.Body)
	if err != nil {
		return nil, err
	}

	return &Template{engine: e, name: name, root: root}, nil
}

func (e *Engine) parserOpts() parser.Options {
	return parser.Options{
		SpaceGobbling: e.cfg.SpaceGobbling,
		Directives:    e.directiveKinds(),
		Intern:        e.pool.Intern,
	}
}
