// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package introspect resolves property access, method calls, index access and
iteration on arbitrary host values.

Templates reach into host objects through the Introspector interface only.
Reflect handles plain Go values (maps, slices, structs and their methods),
Starlark handles values produced by starlark scripts, and Chain combines
several introspectors, asking each in turn.

Besides host methods, common collection and string values answer a small set
of duck typed methods familiar to template authors (e.g. $list.size(),
$map.containsKey('k'), $name.toUpperCase()).
*/
package introspect
