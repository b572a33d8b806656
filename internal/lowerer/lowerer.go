// Package lowerer implements the AST → IR pass (spec.md §4.6): builtin
// dispatch through two authoritative registries (expression builtins
// become dedicated IR nodes; prelude helpers pass through to a named
// ir.Call), named-argument validation, context restrictions on a
// handful of builtins, the target-capability gate, and the lowering of
// interpolated strings to concat chains.
package lowerer

import (
	"fmt"

	"github.com/sh2lang/sh2c/internal/ast"
	"github.com/sh2lang/sh2c/internal/ir"
	"github.com/sh2lang/sh2c/internal/loader"
	"github.com/sh2lang/sh2c/internal/source"
	"github.com/sh2lang/sh2c/internal/suggest"
	"github.com/sh2lang/sh2c/internal/target"
)

// varKind records how a let-bound name was produced, so a later field
// projection (r.status, p.flags, ...) knows which IR shape to emit.
type varKind int

const (
	varPlain varKind = iota
	varTryRun
	varParseArgs
)

// ctxKind threads the syntactic position an expression is lowered from
// down into lowerExpr, so the handful of context-restricted builtins
// (try_run, allow_fail-captures, find0/stdin_lines/glob, sudo's
// allow_fail) can check it without a second AST walk.
type ctxKind int

const (
	ctxNone ctxKind = iota
	ctxLetRHS
	ctxForIterable
	ctxStmt // sudo(...) as a bare statement segment
)

// Lowerer carries the per-compilation configuration and the single
// diagnostic a lowering pass may produce, plus the per-function state
// needed to resolve user-function calls and field projections.
type Lowerer struct {
	files  *source.FileSet
	base   source.BaseDir
	target target.Shell
	diag   bool

	prog *loader.Program

	curScope *loader.FileScope
	curNames []string // function's own declared names, for "did you mean"
	varKinds map[string]varKind
	listVars map[string]bool // let-bound names known to hold a list value
	boolVars map[string]bool // let-bound names known to hold a "1"/"0" bool

	err *source.Diagnostic
}

// Lower runs the lowering pass over every function loader.Program
// collected (plus the entry file's wrapped top-level statements, when
// present) and returns the resulting IR program, or the first
// diagnostic raised.
func Lower(prog *loader.Program, files *source.FileSet, base source.BaseDir, tgt target.Shell, diagnostics bool) (*ir.Program, *source.Diagnostic) {
	l := &Lowerer{files: files, base: base, target: tgt, diag: diagnostics, prog: prog}

	out := &ir.Program{}
	for _, fn := range prog.Functions {
		irFn := l.lowerFunc(fn)
		if l.failed() {
			return nil, l.err
		}
		out.Functions = append(out.Functions, irFn)
	}
	if len(prog.Entry.TopLevel) > 0 {
		irFn := l.lowerEntryTopLevel(prog.Entry)
		if l.failed() {
			return nil, l.err
		}
		out.Functions = append(out.Functions, irFn)
	}
	return out, l.err
}

func (l *Lowerer) fail(sp source.Span, phase source.Phase, msg, help string) {
	if l.err == nil {
		l.err = &source.Diagnostic{Phase: phase, Message: msg, Span: sp, Help: help}
	}
}

func (l *Lowerer) failLower(sp source.Span, msg, help string) { l.fail(sp, source.PhaseLower, msg, help) }
func (l *Lowerer) failTarget(sp source.Span, msg, help string) {
	l.fail(sp, source.PhaseTarget, msg, help)
}
func (l *Lowerer) failed() bool { return l.err != nil }

// loc renders sp as a "file:line:col" reference for the diagnostic
// trap, or "" when diagnostics are disabled for this compilation.
func (l *Lowerer) loc(sp source.Span) ir.Loc {
	if !l.diag {
		return ""
	}
	return source.FormatLoc(sp, l.files, l.base)
}

func (l *Lowerer) lowerFunc(fn *ast.Func) *ir.Function {
	path := ""
	if m := l.files.File(fn.SourceFile); m != nil {
		path = m.Path
	}
	l.curScope = l.prog.Scopes[path]
	l.curNames = nil
	l.varKinds = map[string]varKind{}
	l.listVars = map[string]bool{}
	l.boolVars = map[string]bool{}
	for _, p := range fn.Params {
		l.curNames = append(l.curNames, p.Name)
	}
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name
	}
	return &ir.Function{
		Name:     fn.Name,
		Params:   params,
		Commands: l.lowerBody(fn.Body),
		File:     path,
	}
}

// lowerEntryTopLevel synthesizes the implicit func main() an entry file
// with no explicit main wraps its statements in (spec.md §3, Function).
func (l *Lowerer) lowerEntryTopLevel(f *ast.File) *ir.Function {
	path := ""
	if m := l.files.File(f.ID); m != nil {
		path = m.Path
	}
	l.curScope = l.prog.Scopes[path]
	l.curNames = nil
	l.varKinds = map[string]varKind{}
	l.listVars = map[string]bool{}
	l.boolVars = map[string]bool{}
	return &ir.Function{
		Name:     "main",
		Commands: l.lowerBody(f.TopLevel),
		File:     path,
	}
}

func (l *Lowerer) resolveCallee(name string) (*ast.Func, bool) {
	if l.curScope == nil {
		return nil, false
	}
	fn, ok := l.curScope.Names[name]
	return fn, ok
}

func (l *Lowerer) undefinedFunc(name string, sp source.Span) {
	help := ""
	if s := suggest.ForName(name, l.curNames); s != "" {
		help = fmt.Sprintf("did you mean '%s'?", s)
	}
	l.failLower(sp, fmt.Sprintf("undefined function '%s'", name), help)
}
