// Package loader resolves import directives across multiple source
// files into a single program: it reads the entry file, follows each
// import in declaration order, detects cycles in the file-level import
// graph, and merges function tables according to the aliasing rules.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sh2lang/sh2c/internal/ast"
	"github.com/sh2lang/sh2c/internal/lexer"
	"github.com/sh2lang/sh2c/internal/parser"
	"github.com/sh2lang/sh2c/internal/source"
)

// Program is the fully-resolved, import-merged input to the binder: the
// ordered list of every function reachable from the entry file, the
// entry file's own top-level statements (wrapped as func main() by the
// caller when non-empty), and the call-site resolution table each
// function's body should be checked against.
type Program struct {
	Functions []*ast.Func
	Entry     *ast.File
	EntryPath string

	// Scopes maps a function's source file (by absolute path) to the
	// name table that file's call sites resolve against: bare names
	// (own declarations plus flattened non-aliased imports) and
	// "alias.name" entries for each aliased import.
	Scopes map[string]*FileScope
}

// FileScope is the set of names one file's Callee strings may resolve
// through: a name written bare must be a key here, and a name written
// "alias.func" (produced by the parser as a single dotted Callee) must
// match one too.
type FileScope struct {
	Names map[string]*ast.Func
}

// fileResult is the memoized outcome of resolving one file: its own
// scope, plus the bare names it exposes to whatever imports it
// (the "own declarations and transitively flattened non-aliased
// imports" subset of its scope).
type fileResult struct {
	file    *ast.File
	absPath string
	scope   *FileScope
	bare    map[string]*ast.Func
}

// Loader owns the parse cache and in-progress set used for cycle
// detection while resolving one program.
type Loader struct {
	files *source.FileSet

	parsed  map[string]*fileResult
	loading map[string]bool

	functions []*ast.Func
	scopes    map[string]*FileScope
	err       *source.Diagnostic
}

// New creates a Loader that adds every parsed file's Map to files.
func New(files *source.FileSet) *Loader {
	return &Loader{
		files:   files,
		parsed:  make(map[string]*fileResult),
		loading: make(map[string]bool),
		scopes:  make(map[string]*FileScope),
	}
}

// Load reads and parses entryPath, recursively resolves its imports,
// and returns the merged program. Returns a nil Program and non-nil
// diagnostic on the first error encountered (read, parse, cycle, or
// name-collision).
func (l *Loader) Load(entryPath string) (*Program, *source.Diagnostic) {
	absEntry, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, &source.Diagnostic{Phase: source.PhaseImport, Message: fmt.Sprintf("cannot resolve entry path %q: %v", entryPath, err)}
	}

	res := l.resolveFile(absEntry, true, source.Span{})
	if l.err != nil {
		return nil, l.err
	}

	return &Program{
		Functions: l.functions,
		Entry:     res.file,
		EntryPath: absEntry,
		Scopes:    l.scopes,
	}, nil
}

func (l *Loader) fail(sp source.Span, msg, help string) {
	if l.err == nil {
		l.err = &source.Diagnostic{Phase: source.PhaseImport, Message: msg, Span: sp, Help: help}
	}
}

// resolveFile parses absPath (if not already cached) and resolves its
// own imports, returning the names it declares and the names it
// exposes bare to its importer. importSpan is the span of the import
// directive that reached this file, used for cycle/error diagnostics;
// it is zero for the entry file.
func (l *Loader) resolveFile(absPath string, isEntry bool, importSpan source.Span) *fileResult {
	if cached, ok := l.parsed[absPath]; ok {
		return cached
	}
	if l.loading[absPath] {
		l.fail(importSpan, fmt.Sprintf("import cycle detected: %s", absPath), "remove the circular import")
		return &fileResult{scope: &FileScope{Names: map[string]*ast.Func{}}, bare: map[string]*ast.Func{}}
	}
	l.loading[absPath] = true
	defer delete(l.loading, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		l.fail(importSpan, fmt.Sprintf("cannot read %q: %v", absPath, err), "")
		return &fileResult{scope: &FileScope{Names: map[string]*ast.Func{}}, bare: map[string]*ast.Func{}}
	}

	fileID := l.files.Add(source.NewMap(0, absPath, string(data)))
	lx := lexer.New(fileID, string(data))
	p := parser.New(fileID, lx, isEntry)
	file := p.ParseFile()
	if perr := p.Err(); perr != nil {
		if l.err == nil {
			l.err = perr
		}
		return &fileResult{file: file, scope: &FileScope{Names: map[string]*ast.Func{}}, bare: map[string]*ast.Func{}}
	}

	scope := &FileScope{Names: map[string]*ast.Func{}}
	bare := map[string]*ast.Func{}
	seenAlias := map[string]bool{}

	// Own declarations come first so collisions from imports point at
	// the import directive, not the original definition.
	for _, fn := range file.Funcs {
		if _, dup := bare[fn.Name]; dup {
			l.fail(fn.Span(), fmt.Sprintf("duplicate function name %q", fn.Name), "")
			continue
		}
		bare[fn.Name] = fn
		scope.Names[fn.Name] = fn
		l.functions = append(l.functions, fn)
	}

	dir := filepath.Dir(absPath)
	for _, imp := range file.Imports {
		if l.err != nil {
			break
		}
		importedAbs := filepath.Clean(filepath.Join(dir, imp.Path))
		imported := l.resolveFile(importedAbs, false, imp.Sp)
		if l.err != nil {
			break
		}
		if imp.Alias != "" {
			if seenAlias[imp.Alias] {
				l.fail(imp.Sp, fmt.Sprintf("alias %q already used in this file", imp.Alias), "use a different alias")
				break
			}
			seenAlias[imp.Alias] = true
			for name, fn := range imported.bare {
				scope.Names[imp.Alias+"."+name] = fn
			}
			continue
		}
		for name, fn := range imported.bare {
			if existing, dup := bare[name]; dup && existing != fn {
				l.fail(imp.Sp, fmt.Sprintf("duplicate function name %q (imported from %s)", name, importedAbs), "import it with 'as alias' to disambiguate")
				break
			}
			bare[name] = fn
			scope.Names[name] = fn
		}
	}

	res := &fileResult{file: file, absPath: absPath, scope: scope, bare: bare}
	l.parsed[absPath] = res
	l.scopes[absPath] = scope
	return res
}
