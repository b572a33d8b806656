// Package binder walks the AST once, per function, tracking a stack of
// lexical scope frames to enforce the source language's variable
// declaration policy (spec.md §4.5): `let` introduces a name in the
// current frame, `set` requires a prior `let` in some enclosing frame,
// and a handful of constructs (if/else, case with a wildcard arm, for,
// each_line) have their own promotion rules for what becomes visible
// after the construct closes.
package binder

import (
	"fmt"

	"github.com/sh2lang/sh2c/internal/ast"
	"github.com/sh2lang/sh2c/internal/loader"
	"github.com/sh2lang/sh2c/internal/source"
	"github.com/sh2lang/sh2c/internal/suggest"
)

// frame is one lexical scope: the names it declares directly, each
// mapped to its declaration span (used to annotate "prior declaration"
// help text on a later error).
type frame struct {
	declared map[string]source.Span
}

func newFrame() *frame { return &frame{declared: map[string]source.Span{}} }

type Binder struct {
	stack []*frame
	names []string // every name ever declared, for "did you mean" suggestions
	err   *source.Diagnostic
}

// Bind checks every function in prog (plus its wrapped entry, if the
// entry file has top-level statements) against the variable policy.
// Returns the first violation found, or nil if the program is clean.
func Bind(prog *loader.Program) *source.Diagnostic {
	b := &Binder{}
	for _, fn := range prog.Functions {
		b.bindFunc(fn)
		if b.err != nil {
			return b.err
		}
	}
	if len(prog.Entry.TopLevel) > 0 {
		b.bindBody(prog.Entry.TopLevel, nil)
	}
	return b.err
}

func (b *Binder) fail(sp source.Span, msg, help string) {
	if b.err == nil {
		b.err = &source.Diagnostic{Phase: source.PhaseBind, Message: msg, Span: sp, Help: help}
	}
}

func (b *Binder) failed() bool { return b.err != nil }

func (b *Binder) push() *frame {
	f := newFrame()
	b.stack = append(b.stack, f)
	return f
}

func (b *Binder) pop() *frame {
	f := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return f
}

func (b *Binder) top() *frame { return b.stack[len(b.stack)-1] }

// lookup searches every active frame, innermost first, for name's
// declaration span.
func (b *Binder) lookup(name string) (source.Span, bool) {
	for i := len(b.stack) - 1; i >= 0; i-- {
		if sp, ok := b.stack[i].declared[name]; ok {
			return sp, true
		}
	}
	return source.Span{}, false
}

func (b *Binder) declareTop(name string, sp source.Span) {
	b.top().declared[name] = sp
	b.names = append(b.names, name)
}

func (b *Binder) declareLet(name string, sp source.Span) {
	if prior, ok := b.top().declared[name]; ok {
		_ = prior
		b.fail(sp, fmt.Sprintf("'%s' is already declared in this scope", name),
			fmt.Sprintf("did you mean to use 'set %s = ...'?", name))
		return
	}
	b.declareTop(name, sp)
}

func (b *Binder) checkSet(name string, sp source.Span) {
	if _, ok := b.lookup(name); ok {
		return
	}
	help := fmt.Sprintf("did you mean to use 'let %s = ...'?", name)
	if s := suggest.ForName(name, b.names); s != "" {
		help = fmt.Sprintf("'%s' is not declared; did you mean '%s'? (or did you mean 'let %s = ...'?)", name, s, name)
	}
	b.fail(sp, fmt.Sprintf("'%s' is not declared in any enclosing scope", name), help)
}

func (b *Binder) checkUse(name string, sp source.Span) {
	if _, ok := b.lookup(name); ok {
		return
	}
	help := ""
	if s := suggest.ForName(name, b.names); s != "" {
		help = fmt.Sprintf("did you mean '%s'?", s)
	}
	b.fail(sp, fmt.Sprintf("use of undeclared variable '%s'", name), help)
}

func (b *Binder) bindFunc(fn *ast.Func) {
	b.push()
	for _, p := range fn.Params {
		b.declareTop(p.Name, p.Span)
	}
	b.bindStmts(fn.Body)
	b.pop()
}

// bindBody runs stmts in a fresh child frame and returns the names that
// frame declared directly (used by if/case merge rules). parentDeclared
// is ignored; it exists only to document call sites that pass an outer
// frame's pre-existing declarations are already visible via the stack.
func (b *Binder) bindBody(stmts []ast.Stmt, _ *frame) map[string]source.Span {
	f := b.push()
	b.bindStmts(stmts)
	b.pop()
	return f.declared
}

func (b *Binder) bindStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		if b.failed() {
			return
		}
		b.bindStmt(s)
	}
}

func (b *Binder) bindStmt(s ast.Stmt) {
	switch v := s.(type) {
	case *ast.LetStmt:
		b.walkExpr(v.Value)
		if !b.failed() {
			b.declareLet(v.Name, v.Span())
		}
	case *ast.SetStmt:
		b.walkExpr(v.Value)
		if !b.failed() {
			b.checkSet(v.Name, v.Span())
		}
	case *ast.PrintStmt:
		b.walkExpr(v.Value)
	case *ast.RunStmt:
		for _, a := range v.Args {
			b.walkExpr(a)
		}
	case *ast.ShStmt:
		b.walkExpr(v.Command)
	case *ast.IfStmt:
		b.bindIf(v)
	case *ast.WhileStmt:
		b.walkExpr(v.Cond)
		b.bindBody(v.Body, nil)
	case *ast.ForStmt:
		b.bindFor(v)
	case *ast.CaseStmt:
		b.bindCase(v)
	case *ast.BreakStmt, *ast.ContinueStmt:
	case *ast.ReturnStmt:
		if v.Value != nil {
			b.walkExpr(v.Value)
		}
	case *ast.ExitStmt:
		if v.Code != nil {
			b.walkExpr(v.Code)
		}
	case *ast.CallStmt:
		b.walkExpr(v.Call)
	case *ast.RequireStmt:
		for _, a := range v.Names {
			b.walkExpr(a)
		}
	case *ast.SubshellStmt:
		b.bindBody(v.Body, nil)
	case *ast.GroupStmt:
		b.bindBody(v.Body, nil)
	case *ast.TryCatchStmt:
		b.bindBody(v.Try, nil)
		b.bindBody(v.Catch, nil)
	case *ast.LogicSeqStmt:
		b.bindStmt(v.Left)
		if !b.failed() {
			b.bindStmt(v.Right)
		}
	case *ast.PipeStmt:
		b.bindPipe(v)
	case *ast.WithRedirectStmt:
		b.walkRedirectTarget(v.Stdin)
		b.walkRedirectTarget(v.Stdout)
		b.walkRedirectTarget(v.Stderr)
		b.bindBody(v.Body, nil)
	case *ast.WithEnvStmt:
		for _, e := range v.Entries {
			b.walkExpr(e.Value)
		}
		b.bindBody(v.Body, nil)
	case *ast.WithCwdStmt:
		b.walkExpr(v.Path)
		b.bindBody(v.Body, nil)
	case *ast.WithLogStmt:
		b.walkExpr(v.Path)
		b.bindBody(v.Body, nil)
	case *ast.ExportStmt:
		if v.Value != nil {
			b.walkExpr(v.Value)
		}
	case *ast.UnsetStmt:
	case *ast.SourceStmt:
		b.walkExpr(v.Path)
	case *ast.ExecStmt:
		for _, a := range v.Args {
			b.walkExpr(a)
		}
	case *ast.SpawnStmt:
		if rs, ok := v.Inner.(*ast.RunStmt); ok {
			for _, a := range rs.Args {
				b.walkExpr(a)
			}
		}
		b.declareLet(v.BindName, v.Span())
	case *ast.WaitStmt:
		if v.Target != nil {
			b.walkExpr(v.Target)
		}
	case *ast.WriteFileStmt:
		b.walkExpr(v.Path)
		b.walkExpr(v.Content)
	case *ast.SaveEnvfileStmt:
		b.walkExpr(v.Path)
		for _, e := range v.Entries {
			b.walkExpr(e.Value)
		}
	case *ast.ExprStmt:
		b.walkExpr(v.X)
	}
}

func (b *Binder) walkRedirectTarget(t *ast.RedirectTarget) {
	if t == nil {
		return
	}
	if t.File != nil {
		b.walkExpr(t.File)
	}
}

// bindIf implements the merge rule: a name declared directly in every
// arm (then, every elif, and a terminal else) is promoted into the
// enclosing scope once the if/elif/else chain closes.
func (b *Binder) bindIf(v *ast.IfStmt) {
	b.walkExpr(v.Cond)
	thenDeclared := b.bindBody(v.Then, nil)
	if b.failed() {
		return
	}
	if len(v.Else) == 0 {
		return
	}
	if len(v.Else) == 1 {
		if elif, ok := v.Else[0].(*ast.IfStmt); ok {
			elifPromoted := b.bindElifChain(elif)
			if elifPromoted != nil {
				b.promote(intersect(thenDeclared, elifPromoted))
			}
			return
		}
	}
	elseDeclared := b.bindBody(v.Else, nil)
	if b.failed() {
		return
	}
	b.promote(intersect(thenDeclared, elseDeclared))
}

// bindElifChain binds one elif arm and recurses; it returns the set of
// names promotable out of THIS elif (and everything after it) when the
// chain eventually reaches a plain else, or nil if it does not.
func (b *Binder) bindElifChain(v *ast.IfStmt) map[string]source.Span {
	declared := b.bindBody(v.Then, nil)
	if b.failed() {
		return nil
	}
	if len(v.Else) == 0 {
		return nil
	}
	if len(v.Else) == 1 {
		if next, ok := v.Else[0].(*ast.IfStmt); ok {
			rest := b.bindElifChain(next)
			if rest == nil {
				return nil
			}
			return intersect(declared, rest)
		}
	}
	elseDeclared := b.bindBody(v.Else, nil)
	if b.failed() {
		return nil
	}
	return intersect(declared, elseDeclared)
}

func (b *Binder) bindCase(v *ast.CaseStmt) {
	b.walkExpr(v.Subject)
	var wildcard bool
	var sets []map[string]source.Span
	for _, arm := range v.Arms {
		if arm.Wildcard {
			wildcard = true
		}
		d := b.bindBody(arm.Body, nil)
		if b.failed() {
			return
		}
		sets = append(sets, d)
	}
	if !wildcard || len(sets) == 0 {
		return
	}
	merged := sets[0]
	for _, s := range sets[1:] {
		merged = intersect(merged, s)
	}
	b.promote(merged)
}

// bindFor declares the loop variable(s) directly into the CURRENT
// (enclosing) frame before binding the body in its own child frame, so
// the variable is both visible in the body and persists after the loop
// closes, per spec.md's explicit rule.
func (b *Binder) bindFor(v *ast.ForStmt) {
	b.walkExpr(v.Iterable)
	if b.failed() {
		return
	}
	b.declareTop(v.Var, v.Span())
	if v.KeyVar != "" {
		b.declareTop(v.KeyVar, v.Span())
	}
	b.bindBody(v.Body, nil)
}

func (b *Binder) bindPipe(v *ast.PipeStmt) {
	for i := range v.Segs {
		seg := &v.Segs[i]
		switch {
		case seg.Run != nil:
			for _, a := range seg.Run.Args {
				b.walkExpr(a)
			}
		case seg.Sudo != nil:
			for _, a := range seg.Sudo.Args {
				b.walkExpr(a)
			}
		case seg.Block != nil:
			b.bindBody(seg.Block, nil)
		case seg.EachLine != nil:
			b.declareTop(seg.EachLine.Var, v.Span())
			b.bindBody(seg.EachLine.Body, nil)
		}
		if b.failed() {
			return
		}
	}
}

// promote copies every entry of declared into the CURRENT top frame
// (the scope enclosing the construct that computed it).
func (b *Binder) promote(declared map[string]source.Span) {
	for name, sp := range declared {
		b.top().declared[name] = sp
		b.names = append(b.names, name)
	}
}

func intersect(a, b map[string]source.Span) map[string]source.Span {
	out := map[string]source.Span{}
	for name, sp := range a {
		if _, ok := b[name]; ok {
			out[name] = sp
		}
	}
	return out
}

// walkExpr recurses through an expression checking every Ident use
// against the active scope stack. arg/argc/argv0/args/status and
// environment/filesystem builtins need no declaration and are not
// Idents, so they fall straight through.
func (b *Binder) walkExpr(e ast.Expr) {
	if e == nil || b.failed() {
		return
	}
	switch v := e.(type) {
	case *ast.Ident:
		b.checkUse(v.Name, v.Span())
	case *ast.StringLit, *ast.IntLit, *ast.BoolLit, *ast.ArgC, *ast.Argv0, *ast.Args, *ast.StatusCall:
	case *ast.ListLit:
		for _, el := range v.Elems {
			b.walkExpr(el)
		}
	case *ast.MapLit:
		for _, en := range v.Entries {
			b.walkExpr(en.Value)
		}
	case *ast.EnvRef:
		if !v.Static {
			b.walkExpr(v.Name)
		}
	case *ast.ArgRef:
		if v.Index != nil {
			b.walkExpr(v.Index)
		}
	case *ast.BinOp:
		b.walkExpr(v.Left)
		b.walkExpr(v.Right)
	case *ast.Not:
		b.walkExpr(v.X)
	case *ast.Concat:
		b.walkExpr(v.Left)
		b.walkExpr(v.Right)
	case *ast.FSPredicate:
		b.walkExpr(v.Path)
	case *ast.StringOp:
		for _, a := range v.Args {
			b.walkExpr(a)
		}
	case *ast.InterpString:
		for _, f := range v.Fragments {
			if f.IsHole {
				b.walkExpr(f.Expr)
			}
		}
	case *ast.Call:
		for _, a := range v.Args {
			b.walkExpr(a)
		}
		for _, n := range v.Named {
			b.walkExpr(n.Value)
		}
	case *ast.Capture:
		for _, seg := range v.Segments {
			for _, a := range seg.Args {
				b.walkExpr(a)
			}
		}
	case *ast.CmdSubst:
	case *ast.TryRunField:
		b.walkExpr(v.Recv)
	case *ast.TryRun:
		for _, a := range v.Args {
			b.walkExpr(a)
		}
	case *ast.Misc:
		for _, a := range v.Args {
			b.walkExpr(a)
		}
		for _, n := range v.Named {
			b.walkExpr(n.Value)
		}
	case *ast.Index:
		b.walkExpr(v.Recv)
		b.walkExpr(v.Key)
	}
}
