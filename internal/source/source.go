// Package source owns source text, byte-offset spans, and diagnostic
// formatting shared by every stage of the compiler pipeline.
package source

import (
	"sort"
	"strings"
)

// FileID identifies a source file within a compilation.
type FileID int

// Map owns the text of one source file and the precomputed line-start
// table used to translate byte offsets into line/column pairs.
type Map struct {
	ID         FileID
	Path       string
	Text       string
	lineStarts []int
}

// NewMap scans text once for newlines and builds the line-start table.
func NewMap(id FileID, path, text string) *Map {
	m := &Map{ID: id, Path: path, Text: text, lineStarts: []int{0}}
	for i, b := range text {
		if b == '\n' {
			m.lineStarts = append(m.lineStarts, i+1)
		}
	}
	return m
}

// LineCol converts a byte offset into a 1-based (line, column) pair.
// Column counts characters (runes), not bytes, from the start of the line.
func (m *Map) LineCol(offset int) (line, col int) {
	i := sort.Search(len(m.lineStarts), func(i int) bool {
		return m.lineStarts[i] > offset
	})
	line = i // lineStarts[i-1] <= offset < lineStarts[i]
	if line < 1 {
		line = 1
	}
	start := m.lineStarts[line-1]
	if start > len(m.Text) {
		start = len(m.Text)
	}
	if offset > len(m.Text) {
		offset = len(m.Text)
	}
	col = len([]rune(m.Text[start:offset])) + 1
	return line, col
}

// LineSnippet returns the text of a 1-based line, without its trailing newline.
func (m *Map) LineSnippet(line int) string {
	if line < 1 || line > len(m.lineStarts) {
		return ""
	}
	start := m.lineStarts[line-1]
	end := len(m.Text)
	if line < len(m.lineStarts) {
		end = m.lineStarts[line] - 1
	}
	if end < start {
		end = start
	}
	return strings.TrimRight(m.Text[start:end], "\r")
}

// LineCount returns the number of lines recorded for this file.
func (m *Map) LineCount() int { return len(m.lineStarts) }

// Span is a half-open byte range [Start, End) within one file.
type Span struct {
	File  FileID
	Start int
	End   int
}

// Merge returns the smallest span enclosing both a and b. Both must
// belong to the same file; Merge panics otherwise since a cross-file
// span would be meaningless to any caller.
func Merge(a, b Span) Span {
	if a.File != b.File {
		panic("source: cannot merge spans from different files")
	}
	s := a.Start
	if b.Start < s {
		s = b.Start
	}
	e := a.End
	if b.End > e {
		e = b.End
	}
	return Span{File: a.File, Start: s, End: e}
}

// Len reports the byte length of the span, with a floor of 1 so the
// diagnostic caret underline is always visible.
func (s Span) Len() int {
	n := s.End - s.Start
	if n < 1 {
		return 1
	}
	return n
}
