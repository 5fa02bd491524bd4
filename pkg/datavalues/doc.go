// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package datavalues reads variables that are made available to templates.

Values come from data files (.toml, .yaml, .yml, .json and .star) and from
key=value overrides given on the command line or via environment. Later
sources are deep merged on top of earlier ones; dotted keys (a.b.c=1) address
nested maps.
*/
package datavalues
