// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package filepos_test

import (
	"testing"

	"carvel.dev/vtl/pkg/filepos"
	"github.com/stretchr/testify/assert"
)

func TestPositionStrings(t *testing.T) {
	pos := filepos.NewPositionInFile(3, 7, "index.vtl")
	assert.Equal(t, "index.vtl:3:7", pos.AsCompactString())
	assert.Equal(t, "line index.vtl:3:7", pos.AsString())
	assert.Equal(t, "[template 'index.vtl', line 3, column 7]", pos.AsVelocityString())

	unknown := filepos.NewUnknownPositionInFile("index.vtl")
	assert.Equal(t, "index.vtl:?", unknown.AsCompactString())
	assert.Equal(t, 0, unknown.ColNum())
}

func TestPositionWithOffset(t *testing.T) {
	base := filepos.NewPositionInFile(10, 5, "outer.vtl")

	firstLine := filepos.NewPositionInFile(1, 3, "")
	shifted := firstLine.DeepCopyWithOffset(base)
	assert.Equal(t, 10, shifted.LineNum())
	assert.Equal(t, 7, shifted.ColNum())
	assert.Equal(t, "outer.vtl", shifted.GetFile())

	secondLine := filepos.NewPositionInFile(2, 3, "")
	shifted = secondLine.DeepCopyWithOffset(base)
	assert.Equal(t, 11, shifted.LineNum())
	assert.Equal(t, 3, shifted.ColNum())
}
