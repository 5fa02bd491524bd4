// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"sort"
	"strings"
	"unicode/utf8"

	"carvel.dev/vtl/pkg/filepos"
)

type lineIndex struct {
	name   string
	src    string
	starts []int
}

func newLineIndex(name, src string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{name: name, src: src, starts: starts}
}

func (l *lineIndex) position(off int) *filepos.Position {
	lineIdx := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > off }) - 1
	if lineIdx < 0 {
		lineIdx = 0
	}
	lineStart := l.starts[lineIdx]
	if off > len(l.src) {
		off = len(l.src)
	}

	pos := filepos.NewPositionInFile(lineIdx+1, utf8.RuneCountInString(l.src[lineStart:off])+1, l.name)

	lineEnd := strings.IndexByte(l.src[lineStart:], '\n')
	if lineEnd < 0 {
		pos.SetLine(l.src[lineStart:])
	} else {
		pos.SetLine(strings.TrimSuffix(l.src[lineStart:lineStart+lineEnd], "\r"))
	}
	return pos
}
