// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package datavalues

import (
	"carvel.dev/vtl/pkg/orderedmap"
)

// Merge deep merges src into dst. Nested maps are merged key by key;
// any other value (including lists) replaces existing one.
func Merge(dst, src *orderedmap.Map) error {
	return src.IterateErr(func(key, val interface{}) error {
		srcMap, srcIsMap := val.(*orderedmap.Map)
		if srcIsMap {
			if existing, found := dst.Get(key); found {
				if dstMap, ok := existing.(*orderedmap.Map); ok {
					return Merge(dstMap, srcMap)
				}
			}
			dstMap := orderedmap.NewMap()
			dst.Set(key, dstMap)
			return Merge(dstMap, srcMap)
		}
		dst.Set(key, val)
		return nil
	})
}

// AsVars converts merged values into template variables.
func AsVars(vals *orderedmap.Map) map[string]interface{} {
	result := map[string]interface{}{}
	vals.Iterate(func(key, val interface{}) {
		if strKey, ok := key.(string); ok {
			result[strKey] = val
		}
	})
	return result
}
