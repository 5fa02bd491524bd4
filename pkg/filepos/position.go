// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package filepos

import (
	"fmt"
)

type Position struct {
	lineNum *int // 1 based
	col     int  // 1 based; 0 when unknown
	file    string
	line    string
	known   bool
}

func NewPosition(lineNum int) *Position {
	if lineNum <= 0 {
		panic("Lines are 1 based")
	}
	return &Position{lineNum: &lineNum, known: true}
}

// NewPositionInFile returns the Position of line "lineNum", column "col" within the file "file"
func NewPositionInFile(lineNum, col int, file string) *Position {
	p := NewPosition(lineNum)
	p.col = col
	p.file = file
	return p
}

// NewUnknownPosition is equivalent of zero value *Position
func NewUnknownPosition() *Position {
	return &Position{}
}

// NewUnknownPositionInFile produces a Position of a known file at an unknown line.
func NewUnknownPositionInFile(file string) *Position {
	return &Position{file: file}
}

func (p *Position) SetFile(file string) { p.file = file }
func (p *Position) SetLine(line string) { p.line = line }

func (p *Position) IsKnown() bool { return p != nil && p.known }

func (p *Position) LineNum() int {
	if !p.IsKnown() {
		panic("Position is unknown")
	}
	if p.lineNum == nil {
		panic("Position was not properly initialized")
	}
	return *p.lineNum
}

// ColNum returns the 1 based column or 0 if column is not known.
func (p *Position) ColNum() int {
	if !p.IsKnown() {
		return 0
	}
	return p.col
}

func (p *Position) GetLine() string {
	if p == nil {
		return ""
	}
	return p.line
}

func (p *Position) GetFile() string {
	if p == nil {
		return ""
	}
	return p.file
}

func (p *Position) AsString() string {
	return "line " + p.AsCompactString()
}

func (p *Position) AsCompactString() string {
	filePrefix := p.GetFile()
	if len(filePrefix) > 0 {
		filePrefix += ":"
	}
	if p.IsKnown() {
		if p.col > 0 {
			return fmt.Sprintf("%s%d:%d", filePrefix, p.LineNum(), p.col)
		}
		return fmt.Sprintf("%s%d", filePrefix, p.LineNum())
	}
	return fmt.Sprintf("%s?", filePrefix)
}

// AsVelocityString formats position the way template authors expect
// to see it in logs: "[template 'name', line 3, column 7]".
func (p *Position) AsVelocityString() string {
	if !p.IsKnown() {
		return fmt.Sprintf("[template '%s']", p.GetFile())
	}
	return fmt.Sprintf("[template '%s', line %d, column %d]", p.file, p.LineNum(), p.col)
}

func (p *Position) As4DigitString() string {
	if p.IsKnown() {
		return fmt.Sprintf("%4d", p.LineNum())
	}
	return "????"
}

func (p *Position) DeepCopy() *Position {
	if p == nil {
		return nil
	}
	newPos := &Position{file: p.file, known: p.known, line: p.line, col: p.col}
	if p.lineNum != nil {
		lineVal := *p.lineNum
		newPos.lineNum = &lineVal
	}
	return newPos
}

// DeepCopyWithOffset shifts a position found in a nested source (e.g. an
// interpolated string literal) into the coordinates of the enclosing source.
// Column offset only applies on the first line of the nested source.
func (p *Position) DeepCopyWithOffset(base *Position) *Position {
	if !p.IsKnown() || !base.IsKnown() {
		return p.DeepCopy()
	}
	newPos := p.DeepCopy()
	newPos.file = base.file
	if *newPos.lineNum == 1 {
		newPos.col += base.col - 1
	}
	*newPos.lineNum += base.LineNum() - 1
	return newPos
}
