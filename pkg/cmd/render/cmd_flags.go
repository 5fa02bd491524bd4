// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"carvel.dev/vtl/pkg/datavalues"
)

// CmdFlags lists flag setters used by Options.BindFlags.
// cobra.Command.Flags() satisfies it.
type CmdFlags interface {
	datavalues.CmdFlags

	BoolVar(p *bool, name string, value bool, usage string)
	BoolVarP(p *bool, name, shorthand string, value bool, usage string)
	StringVar(p *string, name string, value string, usage string)
	StringVarP(p *string, name, shorthand string, value string, usage string)
}
