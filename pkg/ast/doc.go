// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package ast defines the syntax tree of a template.

The set of node kinds is closed: every node embeds Span (which carries the
source position and the exact source text of the node) and reports its Kind.
Trees are produced by package parser and consumed (read-only) by package
template, which binds them into evaluation nodes once per compiled template.
*/
package ast
