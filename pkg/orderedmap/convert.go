// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package orderedmap

import (
	"fmt"
	"sort"
)

// FromUnorderedMaps converts nested Go maps (as produced by JSON, YAML or
// TOML decoders) into *Map values with keys sorted. Lists are copied so
// that object is never modified.
func FromUnorderedMaps(object interface{}) interface{} {
	switch typedObj := object.(type) {
	case map[string]interface{}:
		result := NewMap()
		for _, key := range sortedKeys(len(typedObj), func(add func(interface{})) {
			for k := range typedObj {
				add(k)
			}
		}) {
			result.Set(key, FromUnorderedMaps(typedObj[key.(string)]))
		}
		return result

	case map[interface{}]interface{}:
		result := NewMap()
		for _, key := range sortedKeys(len(typedObj), func(add func(interface{})) {
			for k := range typedObj {
				add(k)
			}
		}) {
			result.Set(key, FromUnorderedMaps(typedObj[key]))
		}
		return result

	case []interface{}:
		result := make([]interface{}, len(typedObj))
		for i, item := range typedObj {
			result[i] = FromUnorderedMaps(item)
		}
		return result

	case []map[string]interface{}:
		result := make([]interface{}, len(typedObj))
		for i, item := range typedObj {
			result[i] = FromUnorderedMaps(item)
		}
		return result

	default:
		return object
	}
}

func sortedKeys(size int, collect func(add func(interface{}))) []interface{} {
	keys := make([]interface{}, 0, size)
	collect(func(k interface{}) { keys = append(keys, k) })

	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
	return keys
}
