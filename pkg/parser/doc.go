// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package parser turns template source into an ast.Template.

Template text is scanned rune by rune for references ($name), directives
(#name(...)), comments (## and #* *#) and unparsed sections (#[[ ]]#).
Directive arguments and reference method arguments are parsed by a small
recursive descent expression parser fed by a token queue.

Whitespace around directives that are alone on their line is removed
according to the configured space gobbling mode.
*/
package parser
