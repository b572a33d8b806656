package lowerer

import (
	"github.com/sh2lang/sh2c/internal/ast"
	"github.com/sh2lang/sh2c/internal/ir"
	"github.com/sh2lang/sh2c/internal/parser"
	"github.com/sh2lang/sh2c/internal/source"
)

// lowerExpr lowers one ast.Expr to its ir.Val. ctx threads the
// syntactic position (let RHS, for-iterable, bare statement) down to
// the handful of builtins whose validity depends on it.
func (l *Lowerer) lowerExpr(e ast.Expr, ctx ctxKind) ir.Val {
	if l.failed() || e == nil {
		return &ir.Literal{}
	}
	switch n := e.(type) {
	case *ast.StringLit:
		return &ir.Literal{S: n.Value}
	case *ast.IntLit:
		return &ir.Number{V: n.Value}
	case *ast.BoolLit:
		return &ir.Bool{V: n.Value}
	case *ast.ListLit:
		elems := make([]ir.Val, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = l.lowerExpr(el, ctxNone)
		}
		return &ir.List{Elems: elems}
	case *ast.MapLit:
		l.requireBash(n.Sp, "map literal")
		entries := make([]ir.MapEntry, len(n.Entries))
		for i, me := range n.Entries {
			entries[i] = ir.MapEntry{Key: me.Key, Value: l.lowerExpr(me.Value, ctxNone)}
		}
		return &ir.MapLiteral{Entries: entries}
	case *ast.Ident:
		return &ir.Var{Name: n.Name}
	case *ast.EnvRef:
		if n.Static {
			return &ir.EnvDot{Name: n.StaticName}
		}
		return &ir.Env{Name: l.lowerExpr(n.Name, ctxNone)}
	case *ast.ArgRef:
		if lit, ok := n.Index.(*ast.IntLit); ok && lit.Value >= 1 {
			return &ir.Arg{N: lit.Value}
		}
		return &ir.ArgDynamic{Index: l.lowerExpr(n.Index, ctxNone)}
	case *ast.ArgC:
		return &ir.ArgC{}
	case *ast.Argv0:
		return &ir.Argv0{}
	case *ast.Args:
		return &ir.Args{}
	case *ast.StatusCall:
		return &ir.Status{}
	case *ast.BinOp:
		return l.lowerBinOp(n)
	case *ast.Not:
		return &ir.Not{X: l.lowerCond(n.X)}
	case *ast.Concat:
		return &ir.Concat{Left: l.lowerExpr(n.Left, ctxNone), Right: l.lowerExpr(n.Right, ctxNone)}
	case *ast.FSPredicate:
		return &ir.FSPredicate{Kind: ir.FSPredicateKind(n.Kind), Path: l.lowerExpr(n.Path, ctxNone)}
	case *ast.StringOp:
		return l.lowerStringOp(n)
	case *ast.InterpString:
		return l.lowerInterp(n)
	case *ast.Call:
		return l.lowerCallExpr(n)
	case *ast.Capture:
		return l.lowerCapture(n, ctx)
	case *ast.CmdSubst:
		return l.lowerCmdSubst(n)
	case *ast.TryRunField:
		return l.lowerTryRunField(n)
	case *ast.TryRun:
		if ctx != ctxLetRHS {
			l.failLower(n.Sp, "try_run(...) must be bound directly by 'let'", "write: let r = try_run(...)")
			return &ir.Literal{}
		}
		argv := []ir.Val{&ir.Literal{S: n.Name}}
		for _, a := range n.Args {
			argv = append(argv, l.lowerExpr(a, ctxNone))
		}
		return &ir.TryRun{Segs: argv}
	case *ast.Misc:
		return l.lowerMisc(n, ctx)
	case *ast.Index:
		if id, ok := n.Recv.(*ast.Ident); ok {
			l.requireBash(n.Sp, "map indexing")
			return &ir.MapIndex{Map: id.Name, Key: l.lowerExpr(n.Key, ctxNone)}
		}
		return &ir.Index{List: l.lowerExpr(n.Recv, ctxNone), Index: l.lowerExpr(n.Key, ctxNone)}
	default:
		l.failLower(e.Span(), "unsupported expression", "")
		return &ir.Literal{}
	}
}

// lowerCond lowers e for use directly as a boolean test (an if/while
// condition, or a logical operand): a variable already known to hold
// "1"/"0" renders through ir.BoolVar instead of a truthiness test on a
// plain ir.Var.
func (l *Lowerer) lowerCond(e ast.Expr) ir.Val {
	if id, ok := e.(*ast.Ident); ok && l.boolVars[id.Name] {
		return &ir.BoolVar{Name: id.Name}
	}
	return l.lowerExpr(e, ctxNone)
}

func (l *Lowerer) lowerBinOp(n *ast.BinOp) ir.Val {
	switch n.Op {
	case "+":
		return &ir.Arith{Left: l.lowerExpr(n.Left, ctxNone), Op: ir.ArithAdd, Right: l.lowerExpr(n.Right, ctxNone)}
	case "-":
		return &ir.Arith{Left: l.lowerExpr(n.Left, ctxNone), Op: ir.ArithSub, Right: l.lowerExpr(n.Right, ctxNone)}
	case "*":
		return &ir.Arith{Left: l.lowerExpr(n.Left, ctxNone), Op: ir.ArithMul, Right: l.lowerExpr(n.Right, ctxNone)}
	case "/":
		return &ir.Arith{Left: l.lowerExpr(n.Left, ctxNone), Op: ir.ArithDiv, Right: l.lowerExpr(n.Right, ctxNone)}
	case "%":
		return &ir.Arith{Left: l.lowerExpr(n.Left, ctxNone), Op: ir.ArithMod, Right: l.lowerExpr(n.Right, ctxNone)}
	case "==":
		return &ir.Compare{Left: l.lowerExpr(n.Left, ctxNone), Op: ir.CmpEq, Right: l.lowerExpr(n.Right, ctxNone)}
	case "!=":
		return &ir.Compare{Left: l.lowerExpr(n.Left, ctxNone), Op: ir.CmpNe, Right: l.lowerExpr(n.Right, ctxNone)}
	case "<":
		return &ir.Compare{Left: l.lowerExpr(n.Left, ctxNone), Op: ir.CmpLt, Right: l.lowerExpr(n.Right, ctxNone)}
	case ">":
		return &ir.Compare{Left: l.lowerExpr(n.Left, ctxNone), Op: ir.CmpGt, Right: l.lowerExpr(n.Right, ctxNone)}
	case "<=":
		return &ir.Compare{Left: l.lowerExpr(n.Left, ctxNone), Op: ir.CmpLe, Right: l.lowerExpr(n.Right, ctxNone)}
	case ">=":
		return &ir.Compare{Left: l.lowerExpr(n.Left, ctxNone), Op: ir.CmpGe, Right: l.lowerExpr(n.Right, ctxNone)}
	case "&&":
		return &ir.And{Left: l.lowerCond(n.Left), Right: l.lowerCond(n.Right)}
	case "||":
		return &ir.Or{Left: l.lowerCond(n.Left), Right: l.lowerCond(n.Right)}
	default:
		l.failLower(n.Sp, "unsupported operator '"+n.Op+"'", "")
		return &ir.Literal{}
	}
}

// isListExpr is the static heuristic deciding contains(x, ...)'s first
// argument shape: a list literal, a split(...) result, or a variable
// previously let-bound from either.
func (l *Lowerer) isListExpr(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.ListLit:
		return true
	case *ast.StringOp:
		return v.Kind == "split"
	case *ast.Ident:
		return l.listVars[v.Name]
	}
	return false
}

func (l *Lowerer) lowerStringOp(n *ast.StringOp) ir.Val {
	arg := func(i int) ast.Expr {
		if i < len(n.Args) {
			return n.Args[i]
		}
		return nil
	}
	switch n.Kind {
	case "len":
		return &ir.Len{X: l.lowerExpr(arg(0), ctxNone)}
	case "contains":
		if l.isListExpr(arg(0)) {
			l.requireBash(n.Sp, "contains(list, ...)")
			return &ir.ContainsList{List: l.lowerExpr(arg(0), ctxNone), Needle: l.lowerExpr(arg(1), ctxNone)}
		}
		return &ir.ContainsSubstring{Haystack: l.lowerExpr(arg(0), ctxNone), Needle: l.lowerExpr(arg(1), ctxNone)}
	case "contains_line":
		return &ir.ContainsLine{File: l.lowerExpr(arg(0), ctxNone), Needle: l.lowerExpr(arg(1), ctxNone)}
	case "starts_with":
		return &ir.StartsWith{Text: l.lowerExpr(arg(0), ctxNone), Prefix: l.lowerExpr(arg(1), ctxNone)}
	case "split":
		return &ir.Split{S: l.lowerExpr(arg(0), ctxNone), Delim: l.lowerExpr(arg(1), ctxNone)}
	case "lines":
		return &ir.Lines{X: l.lowerExpr(arg(0), ctxNone)}
	default:
		l.failLower(n.Sp, "unsupported string operation '"+n.Kind+"'", "")
		return &ir.Literal{}
	}
}

func (l *Lowerer) lowerInterp(n *ast.InterpString) ir.Val {
	if len(n.Fragments) == 0 {
		return &ir.Literal{}
	}
	fragVal := func(f ast.InterpFragment) ir.Val {
		if f.IsHole {
			return l.lowerExpr(f.Expr, ctxNone)
		}
		return &ir.Literal{S: f.Text}
	}
	var out ir.Val = fragVal(n.Fragments[0])
	for _, f := range n.Fragments[1:] {
		out = &ir.Concat{Left: out, Right: fragVal(f)}
	}
	return out
}

func (l *Lowerer) lowerCallExpr(n *ast.Call) ir.Val {
	if _, ok := l.resolveCallee(n.Callee); ok {
		args := make([]ir.Val, len(n.Args))
		for i, a := range n.Args {
			args[i] = l.lowerExpr(a, ctxNone)
		}
		return &ir.FuncCall{Name: n.Callee, Args: args}
	}
	l.undefinedFunc(n.Callee, n.Sp)
	return &ir.Literal{}
}

// lowerCmdSubst re-parses a `$(...)` body's raw captured text as the
// single sh2 expression it denotes (a plain or sudo-wrapped call,
// capture-shaped) and lowers the result as a capture-equivalent value.
func (l *Lowerer) lowerCmdSubst(n *ast.CmdSubst) ir.Val {
	expr, diag := parser.ParseStandaloneExpr(n.Sp.File, n.Command)
	if diag != nil {
		l.failLower(n.Sp, "invalid $(...) body: "+diag.Message, "")
		return &ir.Literal{}
	}
	call, ok := expr.(*ast.Call)
	if !ok {
		l.failLower(n.Sp, "$(...) must contain a single command call", "")
		return &ir.Literal{}
	}
	if call.Callee == "sudo" {
		spec := sudoSpecFromCallArgs(call.Args, call.Named)
		return &ir.Capture{Segs: [][]ir.Val{l.sudoArgv(spec, n.Sp, ctxLetRHS)}}
	}
	argv := []ir.Val{&ir.Literal{S: call.Callee}}
	for _, a := range call.Args {
		argv = append(argv, l.lowerExpr(a, ctxNone))
	}
	return &ir.Capture{Segs: [][]ir.Val{argv}}
}

func (l *Lowerer) lowerTryRunField(n *ast.TryRunField) ir.Val {
	id, ok := n.Recv.(*ast.Ident)
	if !ok {
		l.failLower(n.Sp, "field projection requires a variable bound by try_run or parse_args", "")
		return &ir.Literal{}
	}
	kind := ir.TryRunFieldKind(n.Field)
	switch l.varKinds[id.Name] {
	case varTryRun:
		return &ir.TryRunField{Var: id.Name, Field: kind}
	case varParseArgs:
		switch n.Field {
		case "flags":
			return &ir.ArgsFlags{X: &ir.Var{Name: id.Name}}
		case "positionals":
			return &ir.ArgsPositionals{X: &ir.Var{Name: id.Name}}
		}
		return &ir.TryRunField{Var: id.Name, Field: kind}
	default:
		l.failLower(n.Sp, "'"+id.Name+"' was not bound by try_run or parse_args", "")
		return &ir.Literal{}
	}
}

func (l *Lowerer) lowerCapture(n *ast.Capture, ctx ctxKind) ir.Val {
	if n.HasAllowFail && n.AllowFail && ctx != ctxLetRHS {
		l.failLower(n.Sp, "capture(..., allow_fail=true) must be bound directly by 'let'", "write: let r = capture(..., allow_fail=true)")
	}
	segs := make([][]ir.Val, len(n.Segments))
	for i, seg := range n.Segments {
		segs[i] = l.lowerCaptureSegment(seg, n.Sp)
	}
	return &ir.Capture{Segs: segs, AllowFail: n.HasAllowFail && n.AllowFail}
}

func (l *Lowerer) lowerCaptureSegment(seg ast.CaptureSeg, sp source.Span) []ir.Val {
	if seg.Name == "sudo" {
		spec := sudoSpecFromCallArgs(seg.Args, seg.Named)
		return l.sudoArgv(spec, sp, ctxLetRHS)
	}
	argv := []ir.Val{&ir.Literal{S: seg.Name}}
	for _, a := range seg.Args {
		argv = append(argv, l.lowerExpr(a, ctxNone))
	}
	return argv
}

// lowerMisc dispatches the ast.Misc catch-all: builtins with a
// dedicated IR node, plus the SPEC_FULL.md prelude-helper recoveries
// that fall through to a plain ir.Call.
func (l *Lowerer) lowerMisc(n *ast.Misc, ctx ctxKind) ir.Val {
	arg := func(i int) ast.Expr {
		if i < len(n.Args) {
			return n.Args[i]
		}
		return nil
	}
	if restrictedMisc[n.Name] && ctx != ctxLetRHS && ctx != ctxForIterable {
		l.failLower(n.Sp, "'"+n.Name+"(...)' is only valid as a for-loop iterable or the RHS of a single let", "")
		return &ir.Literal{}
	}
	switch n.Name {
	case "which":
		return &ir.Which{Name: l.lowerExpr(arg(0), ctxNone)}
	case "home":
		return &ir.Home{}
	case "path_join":
		parts := make([]ir.Val, len(n.Args))
		for i, a := range n.Args {
			parts[i] = l.lowerExpr(a, ctxNone)
		}
		return &ir.PathJoin{Parts: parts}
	case "read_file":
		return &ir.ReadFile{Path: l.lowerExpr(arg(0), ctxNone)}
	case "load_envfile":
		return &ir.LoadEnvfile{Path: l.lowerExpr(arg(0), ctxNone)}
	case "json_kv":
		return &ir.JsonKv{JSON: l.lowerExpr(arg(0), ctxNone), Key: l.lowerExpr(arg(1), ctxNone)}
	case "matches":
		return &ir.Matches{Text: l.lowerExpr(arg(0), ctxNone), Pattern: l.lowerExpr(arg(1), ctxNone)}
	case "parse_args":
		if ctx != ctxLetRHS {
			l.failLower(n.Sp, "parse_args() must be bound directly by 'let'", "write: let p = parse_args()")
		}
		return &ir.ParseArgs{}
	case "stdin_lines":
		return &ir.StdinLines{}
	case "glob":
		l.requireBash(n.Sp, "glob")
		return &ir.Glob{Pattern: l.lowerExpr(arg(0), ctxNone)}
	case "find0":
		l.requireBash(n.Sp, "find0")
		f := &ir.Find0{}
		allowed := []string{"dir", "name", "type", "maxdepth"}
		named := l.checkNamedArgs(n.Named, allowed, "find0", n.Sp)
		if na, ok := named["dir"]; ok {
			f.Dir, f.HasDir = l.lowerExpr(na.Value, ctxNone), true
		}
		if na, ok := named["name"]; ok {
			f.Name, f.HasName = l.lowerExpr(na.Value, ctxNone), true
		}
		if na, ok := named["type"]; ok {
			f.Type, f.HasType = l.wantString(na, "find0"), true
		}
		if na, ok := named["maxdepth"]; ok {
			f.Maxdepth, f.HasMaxdepth = l.lowerExpr(na.Value, ctxNone), true
		}
		return f
	case "confirm":
		allowed := []string{"default"}
		named := l.checkNamedArgs(n.Named, allowed, "confirm", n.Sp)
		c := &ir.Confirm{Prompt: l.lowerExpr(arg(0), ctxNone)}
		if na, ok := named["default"]; ok {
			c.Default = l.wantBool(na, "confirm")
		}
		return c
	case "trim", "before", "after", "replace", "coalesce", "default":
		args := make([]ir.Val, len(n.Args))
		for i, a := range n.Args {
			args[i] = l.lowerExpr(a, ctxNone)
		}
		return &ir.Call{Name: n.Name, Args: args}
	case "log_info", "log_warn", "log_error":
		// Expression position is a misuse (these are statement
		// builtins per stmt.go's ExprStmt intercept) but still lowers
		// to something codegen can render rather than panicking.
		return &ir.Call{Name: n.Name, Args: []ir.Val{l.lowerExpr(arg(0), ctxNone)}}
	case "uid":
		return &ir.Uid{}
	case "ppid":
		return &ir.Ppid{}
	case "pid":
		return &ir.Pid{}
	default:
		l.failLower(n.Sp, "unsupported builtin '"+n.Name+"'", "")
		return &ir.Literal{}
	}
}

// sudoSpecFromCallArgs builds an *ast.SudoSpec from a parsed sudo(...)
// call's positional and named arguments — the lowering-time twin of
// the parser's own sudoSpecFromArgs, needed because capture(sudo(...))
// and $(sudo(...)) reach the lowerer as a plain ast.Call/ast.CaptureSeg
// rather than a pre-built ast.PipeSeg.
func sudoSpecFromCallArgs(args []ast.Expr, named []ast.NamedArg) *ast.SudoSpec {
	var name string
	rest := args
	if len(args) > 0 {
		if s, ok := args[0].(*ast.StringLit); ok {
			name = s.Value
			rest = args[1:]
		}
	}
	spec := &ast.SudoSpec{Name: name, Args: rest}
	for _, na := range named {
		switch na.Name {
		case "user":
			if s, ok := na.Value.(*ast.StringLit); ok {
				spec.User, spec.HasUser = s.Value, true
			}
		case "n":
			spec.N, spec.HasN = na.Value, true
		case "allow_fail":
			if b, ok := na.Value.(*ast.BoolLit); ok {
				spec.AllowFail, spec.HasAllowFail = b.Value, true
			}
		case "env_keep":
			if lst, ok := na.Value.(*ast.ListLit); ok {
				for _, el := range lst.Elems {
					if s, ok := el.(*ast.StringLit); ok {
						spec.EnvKeep = append(spec.EnvKeep, s.Value)
					}
				}
			}
		}
	}
	return spec
}
