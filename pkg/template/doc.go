// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package template is the evaluation engine of vtl.

Templates are parsed once (see package parser), bound into evaluation
nodes (the init pass) and then merged any number of times against
different contexts:

	engine, err := template.NewEngine(template.Options{Loaders: loaders})
	tpl, err := engine.GetTemplate("index.vtl")
	err = tpl.Merge(template.NewContextFromMap(vars), os.Stdout)

Bound nodes never change after binding, hence a single *Template can be
merged concurrently as long as each merge gets its own Context and writer.
Per-merge data lives in the context and in *State only.

Control flow signals (#stop, #break, $foreach.stop()) travel as *Stop
error values and are caught by the construct that owns the targeted scope.
*/
package template
