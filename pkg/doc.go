// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package pkg is the collection of packages that make up the implementation of vtl.

Packages are organized into layers. Each package is imported only by the
layers above it.

In the inventory, below, individual packages are named alongside their coupling
with the other packages in the codebase.

	(# of dependents) => <package name> => (# of dependencies)

Where "# of dependents" is the count of packages that import the named package
and "# of dependencies" is the count of packages that this named package
imports.

# Entry Point

vtl is built into two executable formats:

	./cmd/vtl          // a command-line tool
	./cmd/vtl-lambda   // an AWS Lambda function serving the render API

Both executables share the HTTP render API:

	(1) => pkg/website => (0)

# Commands

vtl implements "render" (also the root command), "serve" and "version".

	(2) => pkg/cmd => (9)
	(1) => pkg/cmd/render => (5)

Render accepts data values from TOML, YAML, JSON and Starlark files as well
as from command line flags and environment variables:

	(2) => pkg/datavalues => (2)

# Templating

Template source is scanned and parsed into a syntax tree which is then bound
into a tree of renderable nodes. Nodes are rendered against a Context into
an io.Writer. Directives (#if, #foreach, #macro, ...) are pluggable.

	(2) => pkg/template => (10)
	(1) => pkg/parser => (3)
	(2) => pkg/ast => (1)

Templates are loaded by resource loaders (file system, in-memory strings)
and cached by resource.Manager with modification checks:

	(3) => pkg/resource => (0)

Method calls and property lookups on host values are resolved by an
Introspector, which caches reflection results per type:

	(2) => pkg/introspect => (1)

Engine behavior (strictness, space gobbling, macro limits, ...) is described
by a runtime configuration read from TOML:

	(4) => pkg/config => (0)

# Utilities

The remainder are domain-agnostic utilities that provide either an
application-level capability or a specialized piece of logic.

	(2) => pkg/cmd/ui => (0)
	(4) => pkg/orderedmap => (0)
	(3) => pkg/filepos => (0)
	(2) => pkg/version => (0)
	(1) => pkg/intern => (0)
	(1) => pkg/spell => (0)

# Dependencies

Each package's dependencies on other packages within this module are as follows
(if a package is not listed, it has no dependencies on other packages within
this module):

	pkg/cmd:
	- pkg/cmd/render
	- pkg/cmd/ui
	- pkg/config
	- pkg/datavalues
	- pkg/orderedmap
	- pkg/resource
	- pkg/template
	- pkg/version
	- pkg/website
	pkg/cmd/render:
	- pkg/cmd/ui
	- pkg/config
	- pkg/datavalues
	- pkg/resource
	- pkg/template
	pkg/template:
	- pkg/ast
	- pkg/config
	- pkg/filepos
	- pkg/intern
	- pkg/introspect
	- pkg/orderedmap
	- pkg/parser
	- pkg/resource
	- pkg/spell
	- pkg/version
	pkg/parser:
	- pkg/ast
	- pkg/config
	- pkg/filepos
	pkg/ast:
	- pkg/filepos
	pkg/datavalues:
	- pkg/introspect
	- pkg/orderedmap
	pkg/introspect:
	- pkg/orderedmap
*/
package pkg
