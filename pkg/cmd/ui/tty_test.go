// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ui_test

import (
	"bytes"
	"fmt"
	"testing"

	"carvel.dev/vtl/pkg/cmd/ui"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestTTY(t *testing.T) {
	color.NoColor = true

	for _, debug := range []bool{false, true} {
		t.Run(fmt.Sprintf("debug=%t", debug), func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			tty := ui.NewCustomWriterTTY(debug, &stdout, &stderr)

			tty.Printf("out %d\n", 1)
			tty.Warnf("warn\n")
			tty.Debugf("debug\n")
			fmt.Fprintf(tty.DebugWriter(), "writer\n")

			assert.Equal(t, "out 1\n", stdout.String())
			if debug {
				assert.Equal(t, "warn\ndebug\nwriter\n", stderr.String())
			} else {
				assert.Equal(t, "warn\n", stderr.String())
			}
		})
	}
}
