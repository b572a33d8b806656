package parser

import (
	"github.com/sh2lang/sh2c/internal/ast"
	"github.com/sh2lang/sh2c/internal/source"
	"github.com/sh2lang/sh2c/internal/token"
)

func (p *Parser) parseStmt() ast.Stmt {
	var s ast.Stmt
	switch p.cur.Type {
	case token.LET:
		s = p.parseLet()
	case token.SET:
		s = p.parseSet()
	case token.PRINT:
		s = p.parsePrint(false)
	case token.PRINT_ERR:
		s = p.parsePrint(true)
	case token.IF:
		s = p.parseIf()
	case token.WHILE:
		s = p.parseWhile()
	case token.FOR:
		s = p.parseFor()
	case token.CASE:
		s = p.parseCase()
	case token.BREAK:
		sp := p.cur.Span
		p.next()
		s = &ast.BreakStmt{Base: ast.Base{Sp: sp}}
	case token.CONTINUE:
		sp := p.cur.Span
		p.next()
		s = &ast.ContinueStmt{Base: ast.Base{Sp: sp}}
	case token.RETURN:
		s = p.parseReturn()
	case token.EXIT:
		s = p.parseExit()
	case token.SH:
		s = p.parseSh()
	case token.RUN:
		s = p.parseRunAsStmtOrPipe()
	case token.SUDO:
		s = p.parseSudoAsStmtOrPipe()
	case token.SUBSHELL:
		s = p.parseSubshell()
	case token.GROUP:
		s = p.parseGroup()
	case token.TRY:
		s = p.parseTryCatch()
	case token.WITH:
		s = p.parseWith()
	case token.EXPORT:
		s = p.parseExport()
	case token.UNSET:
		s = p.parseUnset()
	case token.SOURCE:
		s = p.parseSource()
	case token.EXEC:
		s = p.parseExec()
	case token.SEMI:
		sp := p.cur.Span
		p.fail(sp, "unexpected statement separator", "remove the stray ';'")
		return nil
	default:
		s = p.parseExprOrPipeOrLogicStmt()
	}
	return s
}

func (p *Parser) parseLet() ast.Stmt {
	start := p.cur.Span
	p.next()
	if !p.expect(token.IDENT) {
		return nil
	}
	name := p.cur.Literal
	p.next()
	if !p.expectAndAdvance(token.ASSIGN) {
		return nil
	}
	if p.curIs(token.SPAWN) {
		return p.parseSpawn(start, name)
	}
	val := p.parseExpression(LOWEST)
	if val == nil {
		return nil
	}
	return &ast.LetStmt{Base: ast.Base{Sp: source.Merge(start, val.Span())}, Name: name, Value: val}
}

// parseSpawn parses the RHS of `let name = spawn(...)`. spawn's sole
// allowed argument is a run(...) invocation; it is bound by let by
// convention, so SpawnStmt is produced directly rather than an Expr.
func (p *Parser) parseSpawn(start source.Span, bindName string) ast.Stmt {
	p.next() // consume 'spawn'
	if !p.expectAndAdvance(token.LPAREN) {
		return nil
	}
	if !p.curIs(token.RUN) {
		p.fail(p.cur.Span, "spawn(...) requires a run(...) argument", "wrap the command in run(...)")
		return nil
	}
	runExpr := p.parseExpression(LOWEST)
	if runExpr == nil {
		return nil
	}
	call, ok := runExpr.(*ast.Call)
	if !ok || call.Callee != "run" {
		p.fail(start, "spawn(...) requires a run(...) argument", "wrap the command in run(...)")
		return nil
	}
	if _, has := namedBool(call.Named, "allow_fail"); has {
		p.fail(call.Span(), "allow_fail belongs to wait(...), not spawn(...)", "move allow_fail to the wait() call")
		return nil
	}
	inner := callToRunStmt(call)
	end := p.cur.Span
	if !p.expectAndAdvance(token.RPAREN) {
		return nil
	}
	return &ast.SpawnStmt{Base: ast.Base{Sp: source.Merge(start, end)}, BindName: bindName, Inner: inner}
}

func (p *Parser) parseSet() ast.Stmt {
	start := p.cur.Span
	p.next()
	if !p.expect(token.IDENT) {
		return nil
	}
	name := p.cur.Literal
	p.next()
	if !p.expectAndAdvance(token.ASSIGN) {
		return nil
	}
	val := p.parseExpression(LOWEST)
	if val == nil {
		return nil
	}
	return &ast.SetStmt{Base: ast.Base{Sp: source.Merge(start, val.Span())}, Name: name, Value: val}
}

func (p *Parser) parsePrint(toStderr bool) ast.Stmt {
	start := p.cur.Span
	p.next()
	if !p.expectAndAdvance(token.LPAREN) {
		return nil
	}
	val := p.parseExpression(LOWEST)
	if val == nil {
		return nil
	}
	end := p.cur.Span
	if !p.expectAndAdvance(token.RPAREN) {
		return nil
	}
	return &ast.PrintStmt{Base: ast.Base{Sp: source.Merge(start, end)}, ToStderr: toStderr, Value: val}
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.cur.Span
	p.next()
	cond := p.parseExpression(LOWEST)
	if cond == nil {
		return nil
	}
	then, end := p.parseBlock()
	if p.failed() {
		return nil
	}
	stmt := &ast.IfStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Cond: cond, Then: then, Else: nil}
	if p.curIs(token.ELIF) {
		elifStart := p.cur.Span
		p.next()
		elifCond := p.parseExpression(LOWEST)
		if elifCond == nil {
			return nil
		}
		elifThen, elifEnd := p.parseBlock()
		if p.failed() {
			return nil
		}
		elifStmt := &ast.IfStmt{Base: ast.Base{Sp: source.Merge(elifStart, elifEnd)}, Cond: elifCond, Then: elifThen, Else: nil}
		p.chainElif(elifStmt)
		stmt.Else = []ast.Stmt{elifStmt}
		return stmt
	}
	if p.curIs(token.ELSE) {
		p.next()
		elseBody, elseEnd := p.parseBlock()
		stmt.Else = elseBody
		stmt.Sp = source.Merge(stmt.Sp, elseEnd)
	}
	return stmt
}

// chainElif recursively attaches further elif/else clauses onto an
// already-parsed elif IfStmt.
func (p *Parser) chainElif(cur *ast.IfStmt) {
	if p.curIs(token.ELIF) {
		elifStart := p.cur.Span
		p.next()
		cond := p.parseExpression(LOWEST)
		if cond == nil {
			return
		}
		body, end := p.parseBlock()
		if p.failed() {
			return
		}
		next := &ast.IfStmt{Base: ast.Base{Sp: source.Merge(elifStart, end)}, Cond: cond, Then: body, Else: nil}
		p.chainElif(next)
		cur.Else = []ast.Stmt{next}
		return
	}
	if p.curIs(token.ELSE) {
		p.next()
		body, end := p.parseBlock()
		cur.Else = body
		cur.Sp = source.Merge(cur.Sp, end)
	}
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.cur.Span
	p.next()
	cond := p.parseExpression(LOWEST)
	if cond == nil {
		return nil
	}
	body, end := p.parseBlock()
	return &ast.WhileStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Cond: cond, Body: body}
}

func (p *Parser) parseFor() ast.Stmt {
	start := p.cur.Span
	p.next()
	varName := ""
	keyVar := ""
	if p.curIs(token.LPAREN) {
		p.next()
		if !p.expect(token.IDENT) {
			return nil
		}
		keyVar = p.cur.Literal
		p.next()
		if !p.expectAndAdvance(token.COMMA) {
			return nil
		}
		if !p.expect(token.IDENT) {
			return nil
		}
		varName = p.cur.Literal
		p.next()
		if !p.expectAndAdvance(token.RPAREN) {
			return nil
		}
	} else {
		if !p.expect(token.IDENT) {
			return nil
		}
		varName = p.cur.Literal
		p.next()
	}
	if !p.expectAndAdvance(token.IN) {
		return nil
	}
	iter := p.parseExpression(LOWEST)
	if iter == nil {
		return nil
	}
	body, end := p.parseBlock()
	return &ast.ForStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Var: varName, KeyVar: keyVar, Iterable: iter, Body: body}
}

func (p *Parser) parseCase() ast.Stmt {
	start := p.cur.Span
	p.next()
	subj := p.parseExpression(LOWEST)
	if subj == nil {
		return nil
	}
	if !p.expectAndAdvance(token.LBRACE) {
		return nil
	}
	var arms []ast.CaseArm
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) && !p.failed() {
		p.skipSeparators()
		if p.curIs(token.RBRACE) {
			break
		}
		var arm ast.CaseArm
		for {
			if p.curIs(token.IDENT) && p.cur.Literal == "_" {
				arm.Wildcard = true
				p.next()
			} else if p.expect(token.STRING) {
				arm.Patterns = append(arm.Patterns, p.cur.Literal)
				p.next()
			} else {
				return nil
			}
			if p.curIs(token.COMMA) {
				p.next()
				continue
			}
			break
		}
		body, _ := p.parseBlock()
		arm.Body = body
		arms = append(arms, arm)
		p.skipSeparators()
	}
	end := p.cur.Span
	p.expectAndAdvance(token.RBRACE)
	return &ast.CaseStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Subject: subj, Arms: arms}
}

func (p *Parser) parseReturn() ast.Stmt {
	start := p.cur.Span
	p.next()
	if p.curIs(token.RBRACE) || p.curIs(token.SEMI) || p.curIs(token.EOF) {
		return &ast.ReturnStmt{Base: ast.Base{Sp: start}, Value: nil}
	}
	val := p.parseExpression(LOWEST)
	if val == nil {
		return nil
	}
	return &ast.ReturnStmt{Base: ast.Base{Sp: source.Merge(start, val.Span())}, Value: val}
}

func (p *Parser) parseExit() ast.Stmt {
	start := p.cur.Span
	p.next()
	if p.curIs(token.RBRACE) || p.curIs(token.SEMI) || p.curIs(token.EOF) {
		return &ast.ExitStmt{Base: ast.Base{Sp: start}, Code: nil}
	}
	val := p.parseExpression(LOWEST)
	if val == nil {
		return nil
	}
	return &ast.ExitStmt{Base: ast.Base{Sp: source.Merge(start, val.Span())}, Code: val}
}

func (p *Parser) parseSh() ast.Stmt {
	start := p.cur.Span
	p.next()
	if !p.expectAndAdvance(token.LPAREN) {
		return nil
	}
	cmd := p.parseExpression(LOWEST)
	if cmd == nil {
		return nil
	}
	end := p.cur.Span
	if !p.expectAndAdvance(token.RPAREN) {
		return nil
	}
	return &ast.ShStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Command: cmd}
}

func (p *Parser) parseSubshell() ast.Stmt {
	start := p.cur.Span
	p.next()
	body, end := p.parseBlock()
	return &ast.SubshellStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Body: body}
}

func (p *Parser) parseGroup() ast.Stmt {
	start := p.cur.Span
	p.next()
	body, end := p.parseBlock()
	return &ast.GroupStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Body: body}
}

func (p *Parser) parseTryCatch() ast.Stmt {
	start := p.cur.Span
	p.next()
	tryBody, _ := p.parseBlock()
	if !p.expectAndAdvance(token.CATCH) {
		return nil
	}
	catchBody, catchEnd := p.parseBlock()
	return &ast.TryCatchStmt{Base: ast.Base{Sp: source.Merge(start, catchEnd)}, Try: tryBody, Catch: catchBody}
}

func (p *Parser) parseExport() ast.Stmt {
	start := p.cur.Span
	p.next()
	if !p.expect(token.IDENT) {
		return nil
	}
	name := p.cur.Literal
	end := p.cur.Span
	p.next()
	var val ast.Expr
	if p.curIs(token.ASSIGN) {
		p.next()
		val = p.parseExpression(LOWEST)
		if val == nil {
			return nil
		}
		end = val.Span()
	}
	return &ast.ExportStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Name: name, Value: val}
}

func (p *Parser) parseUnset() ast.Stmt {
	start := p.cur.Span
	p.next()
	if !p.expect(token.IDENT) {
		return nil
	}
	name := p.cur.Literal
	end := p.cur.Span
	p.next()
	return &ast.UnsetStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Name: name}
}

func (p *Parser) parseSource() ast.Stmt {
	start := p.cur.Span
	p.next()
	if !p.expectAndAdvance(token.LPAREN) {
		return nil
	}
	path := p.parseExpression(LOWEST)
	if path == nil {
		return nil
	}
	end := p.cur.Span
	if !p.expectAndAdvance(token.RPAREN) {
		return nil
	}
	return &ast.SourceStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Path: path}
}

func (p *Parser) parseExec() ast.Stmt {
	start := p.cur.Span
	p.next()
	if !p.expectAndAdvance(token.LPAREN) {
		return nil
	}
	if !p.expect(token.STRING) {
		return nil
	}
	name := p.cur.Literal
	p.next()
	var args []ast.Expr
	for p.curIs(token.COMMA) {
		p.next()
		a := p.parseExpression(LOWEST)
		if a == nil {
			return nil
		}
		args = append(args, a)
	}
	end := p.cur.Span
	if !p.expectAndAdvance(token.RPAREN) {
		return nil
	}
	return &ast.ExecStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Name: name, Args: args}
}

// parseExprOrPipeOrLogicStmt handles the statement forms that begin
// with an arbitrary expression: a bare call, `a && b` / `a || b`
// sequences, and pipelines `expr | expr | ...`. write_file/save_envfile/
// wait calls parse as ordinary Call expressions and are turned into
// their own statement kinds by parseCallOrPipeSegStmt.
func (p *Parser) parseExprOrPipeOrLogicStmt() ast.Stmt {
	start := p.cur.Span
	first := p.parseCallOrPipeSegStmt()
	if first == nil {
		return nil
	}
	if p.curIs(token.PIPE) {
		segs := []ast.PipeSeg{p.stmtToPipeSeg(first)}
		for p.curIs(token.PIPE) {
			p.next()
			seg := p.parsePipeSeg()
			if seg == nil {
				return nil
			}
			segs = append(segs, *seg)
		}
		return &ast.PipeStmt{Base: ast.Base{Sp: source.Merge(start, p.cur.Span)}, Segs: segs}
	}
	if p.curIs(token.AND) || p.curIs(token.OR) {
		op := string(p.cur.Type)
		p.next()
		right := p.parseStmt()
		if right == nil {
			return nil
		}
		return &ast.LogicSeqStmt{Base: ast.Base{Sp: source.Merge(start, right.Span())}, Op: op, Left: first, Right: right}
	}
	return first
}

// parseCallOrPipeSegStmt parses a single expression-statement: a call
// (possibly `let x = spawn(run(...))`-free bare form), wrapping it in
// the right Stmt kind.
func (p *Parser) parseCallOrPipeSegStmt() ast.Stmt {
	start := p.cur.Span
	// Stop below '&&'/'||' so a statement-level sequence is left for
	// parseExprOrPipeOrLogicStmt.
	expr := p.parseExpression(LOGIC_AND)
	if expr == nil {
		return nil
	}
	switch e := expr.(type) {
	case *ast.Call:
		if e.Callee == "run" {
			return callToRunStmt(e)
		}
		if e.Callee == "wait" || e.Callee == "wait_all" {
			return callToWaitStmt(e)
		}
		if e.Callee == "write_file" {
			return callToWriteFile(e, false)
		}
		if e.Callee == "append_file" {
			return callToWriteFile(e, true)
		}
		if e.Callee == "save_envfile" {
			return callToSaveEnvfile(e)
		}
		if e.Callee == "sudo" {
			return callToSudoStmt(e)
		}
		if e.Callee == "require" {
			return &ast.RequireStmt{Base: ast.Base{Sp: e.Span()}, Names: e.Args}
		}
		return &ast.CallStmt{Base: ast.Base{Sp: e.Span()}, Call: e}
	default:
		return &ast.ExprStmt{Base: ast.Base{Sp: source.Merge(start, expr.Span())}, X: expr}
	}
}

// parseRunAsStmtOrPipe and parseSudoAsStmtOrPipe are the parseStmt
// dispatch targets for statements that begin with the `run`/`sudo`
// keywords; both keywords parse as ordinary Call expressions (see
// expr.go's parseBuiltinCall), so the generic expression/pipe/logic
// handling in parseExprOrPipeOrLogicStmt covers them directly.
func (p *Parser) parseRunAsStmtOrPipe() ast.Stmt  { return p.parseExprOrPipeOrLogicStmt() }
func (p *Parser) parseSudoAsStmtOrPipe() ast.Stmt { return p.parseExprOrPipeOrLogicStmt() }

// stmtToPipeSeg converts the first segment of a pipeline (parsed as an
// ordinary statement before any '|' was seen) into a PipeSeg.
func (p *Parser) stmtToPipeSeg(s ast.Stmt) ast.PipeSeg {
	switch v := s.(type) {
	case *ast.RunStmt:
		return ast.PipeSeg{Run: v}
	case *ast.PipeStmt:
		if len(v.Segs) == 1 && v.Segs[0].Sudo != nil {
			return v.Segs[0]
		}
	}
	p.fail(s.Span(), "a pipeline must start with run(...) or sudo(...)", "")
	return ast.PipeSeg{}
}

// parsePipeSeg parses one segment following a '|': a brace block, an
// each_line terminator, or another run(...)/sudo(...) invocation.
func (p *Parser) parsePipeSeg() *ast.PipeSeg {
	if p.curIs(token.LBRACE) {
		body, _ := p.parseBlock()
		return &ast.PipeSeg{Block: body}
	}
	if p.curIs(token.EACH_LINE) {
		p.next()
		if !p.expect(token.IDENT) {
			return nil
		}
		varName := p.cur.Literal
		p.next()
		body, _ := p.parseBlock()
		return &ast.PipeSeg{EachLine: &ast.EachLineSeg{Var: varName, Body: body}}
	}
	stmt := p.parseCallOrPipeSegStmt()
	if stmt == nil {
		return nil
	}
	seg := p.stmtToPipeSeg(stmt)
	return &seg
}

// callToSudoStmt converts a `sudo(name, args..., user=..., n=...,
// env_keep=[...])` Call into a single-segment pipe statement, since
// there is no dedicated bare-sudo statement kind.
func callToSudoStmt(c *ast.Call) *ast.PipeStmt {
	seg := ast.PipeSeg{Sudo: sudoSpecFromArgs(c.Args, c.Named)}
	return &ast.PipeStmt{Base: ast.Base{Sp: c.Span()}, Segs: []ast.PipeSeg{seg}}
}

// sudoSpecFromArgs builds a SudoSpec from a sudo(...) call's positional
// and named arguments, shared by the bare-statement form and the
// capture(sudo(...)) pipeline-segment form.
func sudoSpecFromArgs(args []ast.Expr, named []ast.NamedArg) *ast.SudoSpec {
	name, rest := splitNameArgs(args)
	user, hasUser := namedString(named, "user")
	allow, hasAllow := namedBool(named, "allow_fail")
	var n ast.Expr
	hasN := false
	var envKeep []string
	for _, na := range named {
		if na.Name == "n" {
			n = na.Value
			hasN = true
		}
		if na.Name == "env_keep" {
			if lst, ok := na.Value.(*ast.ListLit); ok {
				for _, el := range lst.Elems {
					if s, ok := el.(*ast.StringLit); ok {
						envKeep = append(envKeep, s.Value)
					}
				}
			}
		}
	}
	return &ast.SudoSpec{Name: name, Args: rest, User: user, HasUser: hasUser, N: n, HasN: hasN, EnvKeep: envKeep, AllowFail: allow, HasAllowFail: hasAllow}
}

func callToRunStmt(c *ast.Call) *ast.RunStmt {
	name, args := splitNameArgs(c.Args)
	allow, has := namedBool(c.Named, "allow_fail")
	return &ast.RunStmt{Base: ast.Base{Sp: c.Span()}, Name: name, Args: args, AllowFail: allow, HasAllowFail: has}
}

func callToWaitStmt(c *ast.Call) *ast.WaitStmt {
	all := c.Callee == "wait_all"
	var target ast.Expr
	if len(c.Args) > 0 {
		target = c.Args[0]
	}
	allow, has := namedBool(c.Named, "allow_fail")
	return &ast.WaitStmt{Base: ast.Base{Sp: c.Span()}, All: all, Target: target, AllowFail: allow, HasAllowFail: has}
}

func callToWriteFile(c *ast.Call, appendMode bool) *ast.WriteFileStmt {
	var path, content ast.Expr
	if len(c.Args) > 0 {
		path = c.Args[0]
	}
	if len(c.Args) > 1 {
		content = c.Args[1]
	}
	return &ast.WriteFileStmt{Base: ast.Base{Sp: c.Span()}, Path: path, Content: content, Append: appendMode}
}

func callToSaveEnvfile(c *ast.Call) *ast.SaveEnvfileStmt {
	var path ast.Expr
	if len(c.Args) > 0 {
		path = c.Args[0]
	}
	var entries []ast.MapEntry
	if len(c.Args) > 1 {
		if m, ok := c.Args[1].(*ast.MapLit); ok {
			entries = m.Entries
		}
	}
	return &ast.SaveEnvfileStmt{Base: ast.Base{Sp: c.Span()}, Path: path, Entries: entries}
}

// splitNameArgs extracts the argv0 (first positional) from the rest,
// matching run(name, args...) shape.
func splitNameArgs(args []ast.Expr) (string, []ast.Expr) {
	if len(args) == 0 {
		return "", nil
	}
	if lit, ok := args[0].(*ast.StringLit); ok {
		return lit.Value, args[1:]
	}
	return "", args
}

func namedBool(named []ast.NamedArg, name string) (bool, bool) {
	for _, n := range named {
		if n.Name == name {
			if b, ok := n.Value.(*ast.BoolLit); ok {
				return b.Value, true
			}
		}
	}
	return false, false
}

func namedString(named []ast.NamedArg, name string) (string, bool) {
	for _, n := range named {
		if n.Name == name {
			if s, ok := n.Value.(*ast.StringLit); ok {
				return s.Value, true
			}
		}
	}
	return "", false
}
