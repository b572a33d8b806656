package lowerer

import (
	"github.com/sh2lang/sh2c/internal/ast"
	"github.com/sh2lang/sh2c/internal/ir"
)

func (l *Lowerer) lowerBody(stmts []ast.Stmt) []ir.Cmd {
	var out []ir.Cmd
	for _, s := range stmts {
		if l.failed() {
			return out
		}
		out = append(out, l.lowerStmt(s)...)
	}
	return out
}

// trackLetKind updates the lowerer's per-function typing hints
// (varKinds/listVars/boolVars) for a newly let-bound name, so later
// field projections and condition lowering pick the right IR shape.
func (l *Lowerer) trackLetKind(name string, rhs ast.Expr) {
	delete(l.varKinds, name)
	delete(l.listVars, name)
	delete(l.boolVars, name)
	switch v := rhs.(type) {
	case *ast.TryRun:
		l.varKinds[name] = varTryRun
	case *ast.Misc:
		switch v.Name {
		case "parse_args":
			l.varKinds[name] = varParseArgs
		case "glob", "find0", "stdin_lines":
			l.listVars[name] = true
		}
	case *ast.ListLit:
		l.listVars[name] = true
	case *ast.StringOp:
		switch v.Kind {
		case "split":
			l.listVars[name] = true
		case "contains", "contains_line", "starts_with":
			l.boolVars[name] = true
		}
	case *ast.BinOp:
		switch v.Op {
		case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
			l.boolVars[name] = true
		}
	case *ast.Not, *ast.FSPredicate, *ast.BoolLit:
		l.boolVars[name] = true
	}
}

func (l *Lowerer) lowerStmt(s ast.Stmt) []ir.Cmd {
	if l.failed() {
		return nil
	}
	switch n := s.(type) {
	case *ast.LetStmt:
		l.trackLetKind(n.Name, n.Value)
		return []ir.Cmd{&ir.Assign{Name: n.Name, Value: l.lowerExpr(n.Value, ctxLetRHS), Loc: l.loc(n.Sp)}}
	case *ast.SetStmt:
		l.trackLetKind(n.Name, n.Value)
		return []ir.Cmd{&ir.Assign{Name: n.Name, Value: l.lowerExpr(n.Value, ctxNone), Loc: l.loc(n.Sp)}}
	case *ast.PrintStmt:
		v := l.lowerExpr(n.Value, ctxNone)
		if n.ToStderr {
			return []ir.Cmd{&ir.PrintErr{X: v}}
		}
		return []ir.Cmd{&ir.Print{X: v}}
	case *ast.RunStmt:
		return []ir.Cmd{&ir.Exec{Args: l.lowerRunArgv(n.Name, n.Args), AllowFail: n.HasAllowFail && n.AllowFail, Loc: l.loc(n.Sp)}}
	case *ast.ShStmt:
		return []ir.Cmd{&ir.Raw{X: l.lowerExpr(n.Command, ctxNone), Loc: l.loc(n.Sp)}}
	case *ast.IfStmt:
		return []ir.Cmd{l.lowerIf(n)}
	case *ast.WhileStmt:
		return []ir.Cmd{&ir.While{Cond: l.lowerCond(n.Cond), Body: l.lowerBody(n.Body)}}
	case *ast.ForStmt:
		return []ir.Cmd{l.lowerFor(n)}
	case *ast.CaseStmt:
		return []ir.Cmd{l.lowerCase(n)}
	case *ast.BreakStmt:
		return []ir.Cmd{&ir.Break{}}
	case *ast.ContinueStmt:
		return []ir.Cmd{&ir.Continue{}}
	case *ast.ReturnStmt:
		var v ir.Val
		if n.Value != nil {
			v = l.lowerExpr(n.Value, ctxNone)
		}
		return []ir.Cmd{&ir.Return{X: v}}
	case *ast.ExitStmt:
		var v ir.Val
		if n.Code != nil {
			v = l.lowerExpr(n.Code, ctxNone)
		}
		return []ir.Cmd{&ir.Exit{Code: v}}
	case *ast.CallStmt:
		if _, ok := l.resolveCallee(n.Call.Callee); !ok {
			l.undefinedFunc(n.Call.Callee, n.Sp)
			return nil
		}
		args := make([]ir.Val, len(n.Call.Args))
		for i, a := range n.Call.Args {
			args[i] = l.lowerExpr(a, ctxNone)
		}
		return []ir.Cmd{&ir.CallCmd{Name: n.Call.Callee, Args: args}}
	case *ast.RequireStmt:
		names := make([]ir.Val, len(n.Names))
		for i, a := range n.Names {
			names[i] = l.lowerExpr(a, ctxNone)
		}
		return []ir.Cmd{&ir.Require{Names: names}}
	case *ast.SubshellStmt:
		return []ir.Cmd{&ir.Subshell{Body: l.lowerBody(n.Body)}}
	case *ast.GroupStmt:
		return []ir.Cmd{&ir.Group{Body: l.lowerBody(n.Body)}}
	case *ast.TryCatchStmt:
		return []ir.Cmd{&ir.TryCatch{Try: l.lowerBody(n.Try), Catch: l.lowerBody(n.Catch)}}
	case *ast.LogicSeqStmt:
		left, right := l.lowerStmt(n.Left), l.lowerStmt(n.Right)
		if n.Op == "&&" {
			return []ir.Cmd{&ir.AndThen{Left: left, Right: right}}
		}
		return []ir.Cmd{&ir.OrElse{Left: left, Right: right}}
	case *ast.PipeStmt:
		return []ir.Cmd{l.lowerPipe(n)}
	case *ast.WithRedirectStmt:
		return []ir.Cmd{&ir.WithRedirect{
			Stdout: l.lowerRedirectOut(n.Stdout),
			Stderr: l.lowerRedirectOut(n.Stderr),
			Stdin:  l.lowerRedirectIn(n.Stdin),
			Body:   l.lowerBody(n.Body),
		}}
	case *ast.WithEnvStmt:
		entries := make([]ir.MapEntry, len(n.Entries))
		for i, e := range n.Entries {
			entries[i] = ir.MapEntry{Key: e.Key, Value: l.lowerExpr(e.Value, ctxNone)}
		}
		return []ir.Cmd{&ir.WithEnv{Bindings: entries, Body: l.lowerBody(n.Body)}}
	case *ast.WithCwdStmt:
		return []ir.Cmd{&ir.WithCwd{Path: l.lowerExpr(n.Path, ctxNone), Body: l.lowerBody(n.Body)}}
	case *ast.WithLogStmt:
		return []ir.Cmd{&ir.WithLog{Path: l.lowerExpr(n.Path, ctxNone), Append: n.HasAppend && n.Append, Body: l.lowerBody(n.Body)}}
	case *ast.ExportStmt:
		var v ir.Val
		if n.Value != nil {
			v = l.lowerExpr(n.Value, ctxNone)
		}
		return []ir.Cmd{&ir.Export{Name: n.Name, Value: v}}
	case *ast.UnsetStmt:
		return []ir.Cmd{&ir.Unset{Name: n.Name}}
	case *ast.SourceStmt:
		return []ir.Cmd{&ir.Source{Path: l.lowerExpr(n.Path, ctxNone)}}
	case *ast.ExecStmt:
		argv := []ir.Val{&ir.Literal{S: n.Name}}
		for _, a := range n.Args {
			argv = append(argv, l.lowerExpr(a, ctxNone))
		}
		return []ir.Cmd{&ir.ExecReplace{Args: argv, Loc: l.loc(n.Sp)}}
	case *ast.SpawnStmt:
		return []ir.Cmd{&ir.Spawn{BindName: n.BindName, Inner: l.lowerSpawnInner(n.Inner)}}
	case *ast.WaitStmt:
		return []ir.Cmd{&ir.Wait{All: n.All, Target: l.lowerExpr(n.Target, ctxNone), AllowFail: n.HasAllowFail && n.AllowFail}}
	case *ast.WriteFileStmt:
		return []ir.Cmd{&ir.WriteFile{Path: l.lowerExpr(n.Path, ctxNone), Content: l.lowerExpr(n.Content, ctxNone), Append: n.Append}}
	case *ast.SaveEnvfileStmt:
		entries := make([]ir.MapEntry, len(n.Entries))
		for i, e := range n.Entries {
			entries[i] = ir.MapEntry{Key: e.Key, Value: l.lowerExpr(e.Value, ctxNone)}
		}
		return []ir.Cmd{&ir.SaveEnvfile{Path: l.lowerExpr(n.Path, ctxNone), Entries: entries}}
	case *ast.ExprStmt:
		return l.lowerExprStmt(n)
	default:
		l.failLower(s.Span(), "unsupported statement", "")
		return nil
	}
}

// lowerRunArgv handles the RunStmt Name/Args asymmetry: Name is set
// only when the parser saw a literal string as the first positional
// argument (splitNameArgs); otherwise Args already carries the dynamic
// command-name expression as its first element.
func (l *Lowerer) lowerRunArgv(name string, args []ast.Expr) []ir.Val {
	var argv []ir.Val
	if name != "" {
		argv = append(argv, &ir.Literal{S: name})
	}
	for _, a := range args {
		argv = append(argv, l.lowerExpr(a, ctxNone))
	}
	return argv
}

func (l *Lowerer) lowerExprStmt(n *ast.ExprStmt) []ir.Cmd {
	switch x := n.X.(type) {
	case *ast.Misc:
		switch x.Name {
		case "log_info":
			return []ir.Cmd{&ir.Log{Level: ir.LogInfo, Msg: l.lowerExpr(firstArg(x.Args), ctxNone)}}
		case "log_warn":
			return []ir.Cmd{&ir.Log{Level: ir.LogWarn, Msg: l.lowerExpr(firstArg(x.Args), ctxNone)}}
		case "log_error":
			return []ir.Cmd{&ir.Log{Level: ir.LogError, Msg: l.lowerExpr(firstArg(x.Args), ctxNone)}}
		}
	case *ast.Call:
		if _, ok := l.resolveCallee(x.Callee); ok {
			args := make([]ir.Val, len(x.Args))
			for i, a := range x.Args {
				args[i] = l.lowerExpr(a, ctxNone)
			}
			return []ir.Cmd{&ir.CallCmd{Name: x.Callee, Args: args}}
		}
		l.undefinedFunc(x.Callee, x.Sp)
		return nil
	}
	l.failLower(n.Sp, "expression has no effect as a statement", "")
	return nil
}

func firstArg(args []ast.Expr) ast.Expr {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

// lowerIf flattens the elif-chain-as-nested-Else-IfStmt shape the
// parser builds into a flat ir.If{Then, Elifs, Else}.
func (l *Lowerer) lowerIf(n *ast.IfStmt) *ir.If {
	out := &ir.If{Cond: l.lowerCond(n.Cond), Then: l.lowerBody(n.Then)}
	rest := n.Else
	for len(rest) == 1 {
		elif, ok := rest[0].(*ast.IfStmt)
		if !ok {
			break
		}
		out.Elifs = append(out.Elifs, ir.ElifArm{Cond: l.lowerCond(elif.Cond), Body: l.lowerBody(elif.Then)})
		rest = elif.Else
	}
	out.Else = l.lowerBody(rest)
	return out
}

func (l *Lowerer) lowerFor(n *ast.ForStmt) ir.Cmd {
	if n.KeyVar != "" {
		l.requireBash(n.Sp, "for (k, v) in map")
		id, ok := n.Iterable.(*ast.Ident)
		if !ok {
			l.failLower(n.Sp, "for (k, v) in ... requires a map variable", "")
			return &ir.ForMap{}
		}
		return &ir.ForMap{KeyVar: n.KeyVar, ValVar: n.Var, Map: id.Name, Body: l.lowerBody(n.Body)}
	}
	if lst, ok := n.Iterable.(*ast.ListLit); ok {
		elems := make([]ir.Val, len(lst.Elems))
		for i, e := range lst.Elems {
			elems[i] = l.lowerExpr(e, ctxNone)
		}
		return &ir.For{Var: n.Var, Iterable: ir.ForIterable{Kind: ir.ForList, List: elems}, Body: l.lowerBody(n.Body)}
	}
	lines := l.lowerExpr(n.Iterable, ctxForIterable)
	return &ir.For{Var: n.Var, Iterable: ir.ForIterable{Kind: ir.ForLines, Lines: lines}, Body: l.lowerBody(n.Body)}
}

func isGlobPattern(s string) bool {
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			return true
		}
	}
	return false
}

func (l *Lowerer) lowerCase(n *ast.CaseStmt) *ir.Case {
	arms := make([]ir.CaseArm, len(n.Arms))
	for i, a := range n.Arms {
		if a.Wildcard {
			arms[i] = ir.CaseArm{Patterns: []ir.Pattern{{Kind: ir.PatternWildcard, Text: "_"}}, Body: l.lowerBody(a.Body)}
			continue
		}
		pats := make([]ir.Pattern, len(a.Patterns))
		for j, p := range a.Patterns {
			kind := ir.PatternLiteral
			if isGlobPattern(p) {
				kind = ir.PatternGlob
			}
			pats[j] = ir.Pattern{Kind: kind, Text: p}
		}
		arms[i] = ir.CaseArm{Patterns: pats, Body: l.lowerBody(a.Body)}
	}
	return &ir.Case{Expr: l.lowerExpr(n.Subject, ctxNone), Arms: arms}
}

func (l *Lowerer) lowerRedirectOut(rt *ast.RedirectTarget) []ir.RedirectOutTarget {
	if rt == nil {
		return nil
	}
	var out []ir.RedirectOutTarget
	if rt.HasFile {
		out = append(out, ir.RedirectOutTarget{Kind: ir.RedirectFile, Path: l.lowerExpr(rt.File, ctxNone), Append: rt.Append})
	}
	if rt.ToStderr {
		out = append(out, ir.RedirectOutTarget{Kind: ir.RedirectToStderr})
	}
	if rt.ToStdout {
		out = append(out, ir.RedirectOutTarget{Kind: ir.RedirectToStdout})
	}
	if rt.InheritStdout {
		out = append(out, ir.RedirectOutTarget{Kind: ir.RedirectInheritStdout})
	}
	return out
}

func (l *Lowerer) lowerRedirectIn(rt *ast.RedirectTarget) *ir.RedirectInTarget {
	if rt == nil {
		return nil
	}
	if rt.HasHeredoc {
		return &ir.RedirectInTarget{Kind: ir.RedirectInHeredoc, Heredoc: rt.Heredoc}
	}
	if rt.HasFile {
		return &ir.RedirectInTarget{Kind: ir.RedirectInFile, Path: l.lowerExpr(rt.File, ctxNone)}
	}
	return nil
}

// lowerSpawnInner lowers spawn(...)'s wrapped invocation — a bare
// run(...) or a single-segment sudo(...) pipeline — to the *ir.Exec
// codegen expects behind a backgrounded `&`.
func (l *Lowerer) lowerSpawnInner(s ast.Stmt) ir.Cmd {
	switch n := s.(type) {
	case *ast.RunStmt:
		return &ir.Exec{Args: l.lowerRunArgv(n.Name, n.Args), AllowFail: n.HasAllowFail && n.AllowFail, Loc: l.loc(n.Sp)}
	case *ast.PipeStmt:
		if len(n.Segs) == 1 && n.Segs[0].Sudo != nil {
			return &ir.Exec{Args: l.sudoArgv(n.Segs[0].Sudo, n.Sp, ctxStmt), Loc: l.loc(n.Sp)}
		}
	}
	l.failLower(s.Span(), "spawn(...) may only wrap run(...) or sudo(...)", "")
	return &ir.Exec{}
}

// lowerPipe splits a statement-level pipeline into the portable
// argv-shaped ir.Pipe (every segment is run/sudo) or the Bash-only
// ir.PipeBlocks (any segment is a block or each_line).
func (l *Lowerer) lowerPipe(n *ast.PipeStmt) ir.Cmd {
	blocky := false
	for _, seg := range n.Segs {
		if seg.Block != nil || seg.EachLine != nil {
			blocky = true
			break
		}
	}
	if !blocky {
		segs := make([]ir.PipeSeg, len(n.Segs))
		stmtCtx := ctxNone
		if len(n.Segs) == 1 {
			stmtCtx = ctxStmt
		}
		for i, seg := range n.Segs {
			switch {
			case seg.Run != nil:
				segs[i] = ir.PipeSeg{Args: l.lowerRunArgv(seg.Run.Name, seg.Run.Args), AllowFail: seg.Run.HasAllowFail && seg.Run.AllowFail}
			case seg.Sudo != nil:
				segs[i] = ir.PipeSeg{Args: l.sudoArgv(seg.Sudo, n.Sp, stmtCtx)}
			}
		}
		return &ir.Pipe{Segs: segs, Loc: l.loc(n.Sp)}
	}
	l.requireBash(n.Sp, "each_line/block pipeline segment")
	blocks := make([][]ir.Cmd, len(n.Segs))
	for i, seg := range n.Segs {
		switch {
		case seg.Run != nil:
			blocks[i] = []ir.Cmd{&ir.Exec{Args: l.lowerRunArgv(seg.Run.Name, seg.Run.Args), AllowFail: seg.Run.HasAllowFail && seg.Run.AllowFail, Loc: l.loc(n.Sp)}}
		case seg.Sudo != nil:
			blocks[i] = []ir.Cmd{&ir.Exec{Args: l.sudoArgv(seg.Sudo, n.Sp, ctxNone), Loc: l.loc(n.Sp)}}
		case seg.Block != nil:
			blocks[i] = l.lowerBody(seg.Block)
		case seg.EachLine != nil:
			blocks[i] = []ir.Cmd{&ir.For{
				Var:      seg.EachLine.Var,
				Iterable: ir.ForIterable{Kind: ir.ForLines, Lines: &ir.StdinLines{}},
				Body:     l.lowerBody(seg.EachLine.Body),
			}}
		}
	}
	return &ir.PipeBlocks{Blocks: blocks, Loc: l.loc(n.Sp)}
}
