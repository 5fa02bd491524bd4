// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package render implements the default "render" command: it collects
templates from files, directories or stdin, merges them against data
values and writes results to stdout or into an output directory.

It does not depend on cobra so that it can be used as a library.
*/
package render
