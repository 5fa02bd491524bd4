// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package orderedmap provides a map implementation where the order of keys is
maintained (unlike the native Go map).

Map literals in templates (e.g. {"a": 1, "b": 2}) evaluate to this map so
that iterating over them with #foreach and rendering them produce output
in insertion order, keeping rendering deterministic.
*/
package orderedmap
