// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"carvel.dev/vtl/pkg/cmd"
	uierrs "github.com/cppforlife/go-cli-ui/errors"
	"github.com/fatih/color"
)

func main() {
	command := cmd.NewDefaultVtlCmd()

	err := command.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("vtl: Error:"), uierrs.NewMultiLineError(err))
		os.Exit(1)
	}
}
