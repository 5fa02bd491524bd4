// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package datavalues

import (
	"fmt"
	"os"
	"strings"

	"carvel.dev/vtl/pkg/orderedmap"
)

// CmdFlags decouples this package from cobra.Command/flags concrete types.
type CmdFlags interface {
	StringArrayVar(p *[]string, name string, value []string, usage string)
	StringArrayVarP(p *[]string, name, shorthand string, value []string, usage string)
}

type Flags struct {
	Files []string

	EnvFromStrings []string
	EnvFromYAML    []string

	KVsFromStrings []string
	KVsFromYAML    []string
	KVsFromFiles   []string
}

func (s *Flags) Set(flags CmdFlags) {
	flags.StringArrayVar(&s.Files, "data-values-file", nil, "Read data values from file (.toml, .yaml, .yml, .json or .star) (can be specified multiple times)")

	flags.StringArrayVar(&s.EnvFromStrings, "data-values-env", nil, "Extract data values (as strings) from prefixed env vars (format: PREFIX for PREFIX_all__key1=str) (can be specified multiple times)")
	flags.StringArrayVar(&s.EnvFromYAML, "data-values-env-yaml", nil, "Extract data values (parsed as YAML) from prefixed env vars (format: PREFIX for PREFIX_all__key1=true) (can be specified multiple times)")

	flags.StringArrayVarP(&s.KVsFromStrings, "data-value", "v", nil, "Set specific data value to given value, as string (format: all.key1.subkey=123) (can be specified multiple times)")
	flags.StringArrayVar(&s.KVsFromYAML, "data-value-yaml", nil, "Set specific data value to given value, parsed as YAML (format: all.key1.subkey=true) (can be specified multiple times)")
	flags.StringArrayVar(&s.KVsFromFiles, "data-value-file", nil, "Set specific data value to given file contents, as string (format: all.key1.subkey=/file/path) (can be specified multiple times)")
}

type flagsSource struct {
	Values        []string
	TransformFunc func(string) (interface{}, error)
}

// Values merges all configured sources. Precedence (lowest first):
// data files, env vars, key=value flags, file contents flags.
func (s *Flags) Values() (*orderedmap.Map, error) {
	result := orderedmap.NewMap()

	for _, path := range s.Files {
		vals, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		err = Merge(result, vals)
		if err != nil {
			return nil, fmt.Errorf("Merging data values file '%s': %s", path, err)
		}
	}

	plainValFunc := func(rawVal string) (interface{}, error) { return rawVal, nil }

	yamlValFunc := func(rawVal string) (interface{}, error) {
		val, err := ParseYAML([]byte(rawVal))
		if err != nil {
			return nil, fmt.Errorf("Deserializing YAML value: %s", err)
		}
		return val, nil
	}

	var overrides []*orderedmap.Map

	for _, src := range []flagsSource{{s.EnvFromStrings, plainValFunc}, {s.EnvFromYAML, yamlValFunc}} {
		for _, envPrefix := range src.Values {
			vals, err := s.env(envPrefix, src.TransformFunc)
			if err != nil {
				return nil, fmt.Errorf("Extracting data values from env under prefix '%s': %s", envPrefix, err)
			}
			overrides = append(overrides, vals)
		}
	}

	// KVs and files take precedence over environment variables
	for _, src := range []flagsSource{{s.KVsFromStrings, plainValFunc}, {s.KVsFromYAML, yamlValFunc}} {
		for _, kv := range src.Values {
			vals, err := s.kv(kv, src.TransformFunc)
			if err != nil {
				return nil, fmt.Errorf("Extracting data value from KV: %s", err)
			}
			overrides = append(overrides, vals)
		}
	}

	for _, file := range s.KVsFromFiles {
		vals, err := s.file(file)
		if err != nil {
			return nil, fmt.Errorf("Extracting data value from file: %s", err)
		}
		overrides = append(overrides, vals)
	}

	nested, err := convertIntoNestedMap(overrides)
	if err != nil {
		return nil, err
	}

	err = Merge(result, nested)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Flags) env(prefix string, valueFunc func(string) (interface{}, error)) (*orderedmap.Map, error) {
	result := orderedmap.NewMap()

	for _, envVar := range os.Environ() {
		pieces := strings.SplitN(envVar, "=", 2)
		if len(pieces) != 2 {
			return nil, fmt.Errorf("Expected env variable to be key-value pair (format: key=value)")
		}

		if !strings.HasPrefix(pieces[0], prefix+"_") {
			continue
		}

		val, err := valueFunc(pieces[1])
		if err != nil {
			return nil, fmt.Errorf("Extracting data value from env variable '%s': %s", pieces[0], err)
		}

		// '__' gets translated into a '.' since periods may not be liked by shells
		result.Set(strings.Replace(strings.TrimPrefix(pieces[0], prefix+"_"), "__", ".", -1), val)
	}

	return result, nil
}

func (s *Flags) kv(kv string, valueFunc func(string) (interface{}, error)) (*orderedmap.Map, error) {
	pieces := strings.SplitN(kv, "=", 2)
	if len(pieces) != 2 || len(pieces[0]) == 0 {
		return nil, fmt.Errorf("Expected format key=value, but was '%s'", kv)
	}

	val, err := valueFunc(pieces[1])
	if err != nil {
		return nil, fmt.Errorf("Deserializing value for key '%s': %s", pieces[0], err)
	}

	result := orderedmap.NewMap()
	result.Set(pieces[0], val)
	return result, nil
}

func (s *Flags) file(kv string) (*orderedmap.Map, error) {
	pieces := strings.SplitN(kv, "=", 2)
	if len(pieces) != 2 {
		return nil, fmt.Errorf("Expected format key=/file/path")
	}

	contents, err := os.ReadFile(pieces[1])
	if err != nil {
		return nil, fmt.Errorf("Reading file '%s': %s", pieces[1], err)
	}

	result := orderedmap.NewMap()
	result.Set(pieces[0], string(contents))
	return result, nil
}

func convertIntoNestedMap(multipleVals []*orderedmap.Map) (*orderedmap.Map, error) {
	result := orderedmap.NewMap()
	for _, vals := range multipleVals {
		err := vals.IterateErr(func(key, val interface{}) error {
			keyPieces := strings.Split(key.(string), ".")
			currMap := result
			for _, keyPiece := range keyPieces[:len(keyPieces)-1] {
				subMap, found := currMap.Get(keyPiece)
				if found {
					if typedSubMap, ok := subMap.(*orderedmap.Map); ok {
						currMap = typedSubMap
					} else {
						return fmt.Errorf("Expected key '%s' to not conflict with other data values at piece '%s'", key, keyPiece)
					}
				} else {
					newCurrMap := orderedmap.NewMap()
					currMap.Set(keyPiece, newCurrMap)
					currMap = newCurrMap
				}
			}
			currMap.Set(keyPieces[len(keyPieces)-1], val)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
