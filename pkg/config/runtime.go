// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-version"
)

// SpaceGobbling controls how whitespace around directives is consumed.
type SpaceGobbling string

const (
	SpaceGobblingNone       SpaceGobbling = "none"
	SpaceGobblingBC         SpaceGobbling = "bc"
	SpaceGobblingLines      SpaceGobbling = "lines"
	SpaceGobblingStructured SpaceGobbling = "structured"
)

// Scope control names accepted in ScopeControl.
const (
	ScopeTemplate  = "template"
	ScopeMacro     = "macro"
	ScopeForeach   = "foreach"
	ScopeDefine    = "define"
	ScopeEvaluate  = "evaluate"
	ScopeParse     = "parse"
	ScopeBodyMacro = "body_macro"
)

var knownScopes = map[string]struct{}{
	ScopeTemplate: {}, ScopeMacro: {}, ScopeForeach: {}, ScopeDefine: {},
	ScopeEvaluate: {}, ScopeParse: {}, ScopeBodyMacro: {},
}

type Runtime struct {
	StrictReferences  bool `toml:"strict_references"`
	StrictEscape      bool `toml:"strict_escape"`
	StrictMath        bool `toml:"strict_math"`
	ImmutableRanges   bool `toml:"immutable_ranges"`
	CheckEmptyObjects bool `toml:"check_empty_objects"`
	StringInterning   bool `toml:"string_interning"`

	DefineMaxDepth  int `toml:"define_max_depth"`
	ParseMaxDepth   int `toml:"parse_max_depth"`
	ForeachMaxLoops int `toml:"foreach_max_loops"`

	SpaceGobbling SpaceGobbling `toml:"space_gobbling"`
	ScopeControl  []string      `toml:"scope_control"`

	// ModificationCheckInterval of 0 disables reloading of cached templates.
	ModificationCheckInterval Duration `toml:"modification_check_interval"`

	RequiredVersion string `toml:"required_version"`

	Velocimacro Velocimacro `toml:"velocimacro"`
}

type Velocimacro struct {
	Library             []string `toml:"library"`
	MaxDepth            int      `toml:"max_depth"`
	ArgumentsStrict     bool     `toml:"arguments_strict"`
	BodyReference       string   `toml:"body_reference"`
	InlineAllowed       bool     `toml:"inline_allowed"`
	InlineReplaceGlobal bool     `toml:"inline_replace_global"`
	InlineLocalScope    bool     `toml:"inline_local_scope"`
	ContextLocalScope   bool     `toml:"context_local_scope"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("Parsing duration '%s': %s", text, err)
	}
	d.Duration = dur
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() Runtime {
	return Runtime{
		CheckEmptyObjects: true,
		StringInterning:   true,
		DefineMaxDepth:    2,
		ParseMaxDepth:     10,
		ForeachMaxLoops:   -1,
		SpaceGobbling:     SpaceGobblingLines,
		ScopeControl:      []string{ScopeForeach},
		Velocimacro: Velocimacro{
			MaxDepth:      20,
			BodyReference: "bodyContent",
			InlineAllowed: true,
		},
	}
}

// Decode reads TOML on top of defaults.
func Decode(data []byte) (Runtime, error) {
	rt := Default()

	md, err := toml.Decode(string(data), &rt)
	if err != nil {
		return Runtime{}, fmt.Errorf("Unmarshaling runtime config: %s", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		var keys []string
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return Runtime{}, fmt.Errorf("Unmarshaling runtime config: unknown keys: %s", strings.Join(keys, ", "))
	}

	err = rt.Validate()
	if err != nil {
		return Runtime{}, err
	}
	return rt, nil
}

func Load(path string) (Runtime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Runtime{}, fmt.Errorf("Reading runtime config '%s': %s", path, err)
	}
	rt, err := Decode(data)
	if err != nil {
		return Runtime{}, fmt.Errorf("Loading runtime config '%s': %s", path, err)
	}
	return rt, nil
}

// Encode writes configuration in the same TOML shape Decode accepts.
func (r Runtime) Encode() ([]byte, error) {
	var buf bytes.Buffer
	err := toml.NewEncoder(&buf).Encode(r)
	if err != nil {
		return nil, fmt.Errorf("Marshaling runtime config: %s", err)
	}
	return buf.Bytes(), nil
}

func (r Runtime) Validate() error {
	switch r.SpaceGobbling {
	case SpaceGobblingNone, SpaceGobblingBC, SpaceGobblingLines, SpaceGobblingStructured:
	default:
		return fmt.Errorf("Expected space_gobbling to be one of none, bc, lines, structured, but was '%s'", r.SpaceGobbling)
	}
	for _, scope := range r.ScopeControl {
		if _, found := knownScopes[scope]; !found {
			return fmt.Errorf("Expected scope_control to contain known scope names, but found '%s'", scope)
		}
	}
	if r.DefineMaxDepth < 1 {
		return fmt.Errorf("Expected define_max_depth to be greater than 0, but was %d", r.DefineMaxDepth)
	}
	if r.ParseMaxDepth < 1 {
		return fmt.Errorf("Expected parse_max_depth to be greater than 0, but was %d", r.ParseMaxDepth)
	}
	if r.Velocimacro.MaxDepth < 1 {
		return fmt.Errorf("Expected velocimacro.max_depth to be greater than 0, but was %d", r.Velocimacro.MaxDepth)
	}
	if len(r.Velocimacro.BodyReference) == 0 {
		return fmt.Errorf("Expected velocimacro.body_reference to be non-empty")
	}
	if r.ModificationCheckInterval.Duration < 0 {
		return fmt.Errorf("Expected modification_check_interval to be non-negative")
	}
	return nil
}

// CheckVersion fails when running version does not satisfy required_version.
// Development builds (non-semver versions) are always accepted.
func (r Runtime) CheckVersion(running string) error {
	if len(r.RequiredVersion) == 0 {
		return nil
	}
	constraints, err := version.NewConstraint(r.RequiredVersion)
	if err != nil {
		return fmt.Errorf("Parsing required_version '%s': %s", r.RequiredVersion, err)
	}
	runningVer, err := version.NewVersion(running)
	if err != nil {
		return nil
	}
	if !constraints.Check(runningVer) {
		return fmt.Errorf("vtl version '%s' does not meet required_version '%s'", runningVer, r.RequiredVersion)
	}
	return nil
}

func (r Runtime) ScopeEnabled(name string) bool {
	for _, scope := range r.ScopeControl {
		if scope == name {
			return true
		}
	}
	return false
}
