// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"carvel.dev/vtl/pkg/cmd/render"
	"carvel.dev/vtl/pkg/cmd/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplates(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	return dir
}

func testUI() ui.UI {
	return ui.NewCustomWriterTTY(false, &bytes.Buffer{}, &bytes.Buffer{})
}

func TestRenderDirectory(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"index.vtl":    "#parse('_header.vtl')Hello $name!\n",
		"_header.vtl":  "#macro(bold $s)**$s**#end",
		"sub/page.vtl": "$name.toUpperCase()\n",
	})

	opts := render.NewOptions()
	opts.Files = []string{dir}
	opts.DataValuesFlags.KVsFromStrings = []string{"name=vtl"}

	in, err := opts.Input(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"index.vtl", "sub/page.vtl"}, in.Templates)

	out := opts.RunWithInput(in, testUI())
	require.NoError(t, out.Err)
	require.Len(t, out.Files, 2)

	assert.Equal(t, "index.vtl", out.Files[0].Name)
	assert.Equal(t, "Hello vtl!\n", string(out.Files[0].Data))
	assert.Equal(t, "VTL\n", string(out.Files[1].Data))
}

func TestRenderNonRecursive(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"a.vtl":     "a",
		"sub/b.vtl": "b",
	})

	opts := render.NewOptions()
	opts.Files = []string{dir}
	opts.Recursive = false

	in, err := opts.Input(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.vtl"}, in.Templates)
}

func TestRenderStdin(t *testing.T) {
	opts := render.NewOptions()
	opts.Files = []string{"-"}
	opts.DataValuesFlags.KVsFromYAML = []string{"x=[1, 2]"}

	in, err := opts.Input(strings.NewReader("#foreach($i in $x)$i;#end"))
	require.NoError(t, err)

	out := opts.RunWithInput(in, testUI())
	require.NoError(t, out.Err)
	require.Len(t, out.Files, 1)
	assert.Equal(t, "1;2;", string(out.Files[0].Data))
}

func TestRenderStrict(t *testing.T) {
	opts := render.NewOptions()
	opts.Files = []string{"-"}
	opts.Strict = true

	in, err := opts.Input(strings.NewReader("$missing"))
	require.NoError(t, err)

	out := opts.RunWithInput(in, testUI())
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "Variable '$missing' has not been set at stdin.vtl:1:1")
}

func TestRenderRuntimeConfig(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"runtime.toml": "strict_math = true\n[velocimacro]\nmax_depth = 3\n",
	})

	opts := render.NewOptions()
	opts.RuntimeConfigPath = filepath.Join(dir, "runtime.toml")
	opts.MacroLibraries = []string{"lib.vtl"}

	cfg, err := opts.RuntimeConfig()
	require.NoError(t, err)
	assert.True(t, cfg.StrictMath)
	assert.Equal(t, 3, cfg.Velocimacro.MaxDepth)
	assert.Equal(t, []string{"lib.vtl"}, cfg.Velocimacro.Library)
}

func TestRenderNoFiles(t *testing.T) {
	_, err := render.NewOptions().Input(strings.NewReader(""))
	require.EqualError(t, err, "Expected at least one template file or directory (use -f)")
}
