// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package e2e

import (
	"os"
	"path/filepath"
	"testing"

	"carvel.dev/vtl/pkg/cmd"
	"github.com/stretchr/testify/require"
)

func runVtl(t *testing.T, args ...string) {
	command := cmd.NewDefaultVtlCmd()
	command.SetArgs(args)
	require.NoError(t, command.Execute())
}

func TestSiteExample(t *testing.T) {
	outDir := t.TempDir()

	runVtl(t, "-f", "../../examples/site/templates",
		"--data-values-file", "../../examples/site/values.yaml",
		"--output-files", outDir)

	for _, name := range []string{"index.html", "about.txt"} {
		expected, err := os.ReadFile(filepath.Join("../../examples/site/expected", name))
		require.NoError(t, err)

		actual, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)

		require.Equal(t, string(expected), string(actual), "file %s", name)
	}

	_, err := os.Stat(filepath.Join(outDir, "_layout.vtl"))
	require.True(t, os.IsNotExist(err), "Expected partial template to not be rendered")
}

func TestSiteExampleOverrides(t *testing.T) {
	outDir := t.TempDir()

	runVtl(t, "render", "-f", "../../examples/site/templates/about.txt",
		"--data-values-file", "../../examples/site/values.yaml",
		"-v", "site.title=market",
		"--output-files", outDir)

	actual, err := os.ReadFile(filepath.Join(outDir, "about.txt"))
	require.NoError(t, err)
	require.Equal(t, "About MARKET\n", string(actual))
}

func TestStrictFailure(t *testing.T) {
	command := cmd.NewDefaultVtlCmd()
	command.SetArgs([]string{"-f", "../../examples/site/templates/about.txt", "--strict"})

	err := command.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "Variable '$site' has not been set at about.txt:1:7")
}
