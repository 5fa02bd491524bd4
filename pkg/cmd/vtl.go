// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"carvel.dev/vtl/pkg/cmd/render"
	"carvel.dev/vtl/pkg/version"
	"github.com/cppforlife/cobrautil"
	"github.com/spf13/cobra"
)

type VtlOptions struct{}

func NewDefaultVtlOptions() *VtlOptions {
	return &VtlOptions{}
}

func NewDefaultVtlCmd() *cobra.Command {
	return NewVtlCmd(NewDefaultVtlOptions())
}

func NewVtlCmd(o *VtlOptions) *cobra.Command {
	cmd := NewRenderCmd(render.NewOptions())

	cmd.Use = "vtl"
	cmd.Aliases = nil
	cmd.Version = version.Version
	cmd.Short = "vtl renders Velocity-style templates"
	cmd.Long = `vtl renders Velocity-style templates.

Templates are given via -f (files, directories or '-' for stdin).
Variables come from data values files and flags.`

	// Affects children as well
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	// Disable docs header
	cmd.DisableAutoGenTag = true

	cmd.AddCommand(NewVersionCmd(NewVersionOptions()))
	cmd.AddCommand(NewRenderCmd(render.NewOptions()))
	cmd.AddCommand(NewServeCmd(NewServeOptions()))

	// Reconfigure Commands
	cobrautil.VisitCommands(cmd, cobrautil.ReconfigureCmdWithSubcmd,
		cobrautil.DisallowExtraArgs, cobrautil.WrapRunEForCmd(cobrautil.ResolveFlagsForCmd))

	return cmd
}
