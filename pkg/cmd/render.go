// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"carvel.dev/vtl/pkg/cmd/render"
	"github.com/spf13/cobra"
)

// NewRenderCmd constructs main vtl command. It lives outside of "render"
// package so that "render" package does not carry dependency on cobra.
func NewRenderCmd(o *render.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "render",
		Aliases: []string{"r"},
		Short:   "Render templates (default command; e.g. `vtl -f tpl.vtl`)",
		RunE:    func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	o.BindFlags(cmd.Flags())
	return cmd
}
