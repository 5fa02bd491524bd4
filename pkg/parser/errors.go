// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"fmt"

	"carvel.dev/vtl/pkg/filepos"
)

// Error describes malformed template source.
type Error struct {
	Position *filepos.Position
	Msg      string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s at %s", e.Msg, e.Position.AsCompactString())
}
