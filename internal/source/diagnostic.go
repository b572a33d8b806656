package source

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Phase names the compiler stage that raised a Diagnostic.
type Phase string

const (
	PhaseLex     Phase = "lex"
	PhaseParse   Phase = "parse"
	PhaseImport  Phase = "import"
	PhaseBind    Phase = "bind"
	PhaseLower   Phase = "lower"
	PhaseTarget  Phase = "target"
	PhaseCodegen Phase = "codegen"
)

// Diagnostic is the single error shape produced by the pipeline. Every
// stage reports at most one and the compiler stops at the first.
type Diagnostic struct {
	Phase   Phase
	Message string
	Span    Span
	Help    string
}

func (d *Diagnostic) Error() string {
	return d.Message
}

// Files resolves a FileID to its Map; it is the minimal interface a
// formatter needs, so callers can pass a *Program or a bare map.
type Files interface {
	File(FileID) *Map
}

// FileSet is the simplest Files implementation: a slice indexed by FileID.
type FileSet struct {
	Maps []*Map
}

func (fs *FileSet) File(id FileID) *Map {
	if int(id) < 0 || int(id) >= len(fs.Maps) {
		return nil
	}
	return fs.Maps[id]
}

func (fs *FileSet) Add(m *Map) FileID {
	m.ID = FileID(len(fs.Maps))
	fs.Maps = append(fs.Maps, m)
	return m.ID
}

// BaseDir, when non-empty, is used to relativize absolute paths in
// formatted diagnostics (see Format).
type BaseDir string

// Format renders a Diagnostic as:
//
//	<file>:<line>:<col>: <message>
//	<source-line>
//	<caret + underline>
//	help: <optional hint>
func Format(d *Diagnostic, files Files, base BaseDir) string {
	m := files.File(d.Span.File)
	if m == nil {
		return d.Message
	}
	startLine, startCol := m.LineCol(d.Span.Start)
	endLine, _ := m.LineCol(d.Span.End)

	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d: %s\n", normalizePath(m.Path, base), startLine, startCol, d.Message)
	b.WriteString(m.LineSnippet(startLine))
	b.WriteByte('\n')

	if startLine == endLine {
		b.WriteString(strings.Repeat(" ", startCol-1))
		b.WriteByte('^')
		for i := 1; i < d.Span.Len(); i++ {
			b.WriteByte('~')
		}
	} else {
		// Multi-line span: point a single caret at the first
		// non-whitespace character of the start line.
		line := m.LineSnippet(startLine)
		col := 0
		for i, r := range line {
			if r != ' ' && r != '\t' {
				col = i
				break
			}
		}
		b.WriteString(strings.Repeat(" ", col))
		b.WriteByte('^')
	}

	if d.Help != "" {
		fmt.Fprintf(&b, "\nhelp: %s", d.Help)
	}
	return b.String()
}

// FormatLoc renders a bare "<file>:<line>:<col>" reference to sp, with
// no snippet or caret. Used by the lowerer to stamp the diagnostic
// trap's __sh2_loc updates (spec.md §4.7) into the emitted script.
func FormatLoc(sp Span, files Files, base BaseDir) string {
	m := files.File(sp.File)
	if m == nil {
		return ""
	}
	line, col := m.LineCol(sp.Start)
	return fmt.Sprintf("%s:%d:%d", normalizePath(m.Path, base), line, col)
}

// normalizePath rewrites separators to forward slashes and, when an
// absolute path falls under base, relativizes it; otherwise any
// remaining absolute path collapses to its filename.
func normalizePath(path string, base BaseDir) string {
	path = filepath.ToSlash(path)
	if base == "" {
		return path
	}
	b := filepath.ToSlash(string(base))
	if filepath.IsAbs(path) {
		if rel, err := filepath.Rel(b, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
		return filepath.Base(path)
	}
	return path
}
