// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package datavalues

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"carvel.dev/vtl/pkg/introspect"
	"carvel.dev/vtl/pkg/orderedmap"
	"github.com/BurntSushi/toml"
	"github.com/k14s/starlark-go/starlark"
	"github.com/k14s/starlark-go/starlarkstruct"
	"gopkg.in/yaml.v3"
)

// LoadFile reads data file choosing format by its extension.
func LoadFile(path string) (*orderedmap.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Reading data values file '%s': %s", path, err)
	}
	return Parse(path, data)
}

// Parse decodes data file contents. Top level of a document must be a map.
func Parse(name string, data []byte) (*orderedmap.Map, error) {
	var result *orderedmap.Map
	var err error

	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		result, err = parseTOML(data)
	case ".yaml", ".yml", ".json":
		result, err = parseYAMLMap(data)
	case ".star":
		result, err = parseStarlark(name, data)
	default:
		return nil, fmt.Errorf("Unknown data values file type '%s' (expected .toml, .yaml, .yml, .json or .star)", name)
	}
	if err != nil {
		return nil, fmt.Errorf("Parsing data values file '%s': %s", name, err)
	}
	return result, nil
}

func parseTOML(data []byte) (*orderedmap.Map, error) {
	var vals map[string]interface{}

	_, err := toml.Decode(string(data), &vals)
	if err != nil {
		return nil, err
	}

	// TOML tables do not keep key order, hence keys are sorted
	return orderedmap.FromUnorderedMaps(vals).(*orderedmap.Map), nil
}

func parseYAMLMap(data []byte) (*orderedmap.Map, error) {
	val, err := ParseYAML(data)
	if err != nil {
		return nil, err
	}
	switch typedVal := val.(type) {
	case nil:
		return orderedmap.NewMap(), nil
	case *orderedmap.Map:
		return typedVal, nil
	default:
		return nil, fmt.Errorf("Expected top level value to be a map, but was %T", val)
	}
}

// ParseYAML decodes single YAML (or JSON) document keeping map key order.
func ParseYAML(data []byte) (interface{}, error) {
	var doc yaml.Node

	dec := yaml.NewDecoder(bytes.NewReader(data))
	err := dec.Decode(&doc)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return fromYAMLNode(&doc)
}

func fromYAMLNode(node *yaml.Node) (interface{}, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return fromYAMLNode(node.Content[0])

	case yaml.MappingNode:
		result := orderedmap.NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, err := fromYAMLNode(node.Content[i])
			if err != nil {
				return nil, err
			}
			val, err := fromYAMLNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			result.Set(introspect.AsString(key), val)
		}
		return result, nil

	case yaml.SequenceNode:
		result := []interface{}{}
		for _, item := range node.Content {
			val, err := fromYAMLNode(item)
			if err != nil {
				return nil, err
			}
			result = append(result, val)
		}
		return result, nil

	case yaml.AliasNode:
		return fromYAMLNode(node.Alias)

	default:
		var val interface{}
		err := node.Decode(&val)
		if err != nil {
			return nil, fmt.Errorf("Decoding value at line %d: %s", node.Line, err)
		}
		return val, nil
	}
}

// parseStarlark executes file and exports its public globals.
// Dicts, lists and scalars become plain values; structs and functions
// are kept as starlark values so that templates can call them.
func parseStarlark(name string, data []byte) (*orderedmap.Map, error) {
	thread := &starlark.Thread{Name: name}
	predeclared := starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	}

	globals, err := starlark.ExecFile(thread, name, data, predeclared)
	if err != nil {
		return nil, err
	}

	result := orderedmap.NewMap()

	for _, key := range globals.Keys() {
		if strings.HasPrefix(key, "_") {
			continue
		}
		val := globals[key]

		switch val.(type) {
		case *starlarkstruct.Struct, starlark.Callable:
			result.Set(key, val)
		default:
			result.Set(key, introspect.NewStarlarkValue(val).AsGoValue())
		}
	}

	return result, nil
}
