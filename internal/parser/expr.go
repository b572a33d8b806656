package parser

import (
	"fmt"
	"strconv"

	"github.com/sh2lang/sh2c/internal/ast"
	"github.com/sh2lang/sh2c/internal/lexer"
	"github.com/sh2lang/sh2c/internal/source"
	"github.com/sh2lang/sh2c/internal/suggest"
	"github.com/sh2lang/sh2c/internal/token"
)

// fsPredicates, stringOps and miscBuiltins classify bare-identifier
// builtin calls into their dedicated AST node kinds. Anything not
// listed here (and not one of arg/argc/argv0/args/status/try_run/
// capture) falls through to a generic Call, resolved as a user
// function or a prelude helper during lowering.
var fsPredicates = map[string]bool{
	"exists": true, "is_dir": true, "is_file": true, "is_symlink": true,
	"is_exec": true, "is_readable": true, "is_writable": true, "is_non_empty": true,
}

var stringOps = map[string]bool{
	"len": true, "contains": true, "contains_line": true, "starts_with": true,
	"split": true, "lines": true,
}

var miscBuiltins = map[string]bool{
	"which": true, "home": true, "path_join": true, "read_file": true,
	"load_envfile": true, "json_kv": true, "matches": true, "parse_args": true,
	"glob": true, "find0": true, "stdin_lines": true, "confirm": true,

	// SPEC_FULL.md §4: prelude helpers recovered from original_source/
	// that the distillation folded out of the grammar.
	"trim": true, "before": true, "after": true, "replace": true,
	"coalesce": true, "default": true,
	"log_info": true, "log_warn": true, "log_error": true,
	"uid": true, "ppid": true, "pid": true,
}

// parseExpression is the Pratt-style entry point: parse a prefix
// expression, then keep folding in infix/postfix operators whose
// precedence exceeds the caller's floor.
func (p *Parser) parseExpression(precedence int) ast.Expr {
	left := p.parsePrefix()
	if left == nil || p.failed() {
		return left
	}
	for !p.failed() && precedence < p.curPrecedence() {
		switch p.cur.Type {
		case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
			token.AND, token.OR,
			token.EQ, token.NOT_EQ, token.LT, token.GT, token.LT_EQ, token.GT_EQ:
			left = p.parseBinOp(left)
		case token.AMP:
			left = p.parseConcat(left)
		case token.DOT:
			left = p.parseDotOrField(left)
		case token.LBRACKET:
			left = p.parseIndex(left)
		default:
			return left
		}
		if left == nil {
			return nil
		}
	}
	return left
}

// parseBinOp consumes p.cur as the operator (already positioned there
// by the caller) and parses the right-hand side at the operator's own
// precedence. Comparison is non-associative: if another comparison
// operator immediately follows, that is a diagnostic rather than a
// silent left-associative chain.
func (p *Parser) parseBinOp(left ast.Expr) ast.Expr {
	opTok := p.cur
	isComparison := comparisonOps[opTok.Type]
	prec := p.curPrecedence()
	p.next()
	right := p.parseExpression(prec)
	if right == nil {
		return nil
	}
	node := &ast.BinOp{
		Base:  ast.Base{Sp: source.Merge(left.Span(), right.Span())},
		Op:    string(opTok.Type),
		Left:  left,
		Right: right,
	}
	if isComparison && comparisonOps[p.cur.Type] {
		p.fail(p.cur.Span, "comparison operators cannot be chained", "parenthesize one comparison, or join them with && / ||")
		return nil
	}
	return node
}

func (p *Parser) parseConcat(left ast.Expr) ast.Expr {
	ampTok := p.cur
	if ampTok.NoSpaceBefore || ampTok.NoSpaceAfter {
		p.fail(ampTok.Span, "missing whitespace around '&'", "write 'a & b', not 'a&b'")
		return nil
	}
	p.next()
	right := p.parseExpression(CONCAT)
	if right == nil {
		return nil
	}
	return &ast.Concat{Base: ast.Base{Sp: source.Merge(left.Span(), right.Span())}, Left: left, Right: right}
}

func (p *Parser) parseIndex(left ast.Expr) ast.Expr {
	p.next() // consume '['
	key := p.parseExpression(LOWEST)
	if key == nil {
		return nil
	}
	end := p.cur.Span
	if !p.expectAndAdvance(token.RBRACKET) {
		return nil
	}
	return &ast.Index{Base: ast.Base{Sp: source.Merge(left.Span(), end)}, Recv: left, Key: key}
}

// parseDotOrField handles `alias.func(args)` (a namespaced user-function
// call) and `recv.field` (projecting a field off a try_run result).
func (p *Parser) parseDotOrField(left ast.Expr) ast.Expr {
	p.next() // consume '.'
	if !p.expect(token.IDENT) {
		return nil
	}
	name := p.cur.Literal
	nameSpan := p.cur.Span
	if id, ok := left.(*ast.Ident); ok && p.peekIs(token.LPAREN) {
		p.next() // move onto '('
		args, named, end := p.parseCallArgs()
		return &ast.Call{Base: ast.Base{Sp: source.Merge(id.Span(), end)}, Callee: id.Name + "." + name, Args: args, Named: named}
	}
	p.next() // consume field name
	return &ast.TryRunField{Base: ast.Base{Sp: source.Merge(left.Span(), nameSpan)}, Recv: left, Field: name}
}

// parseCallArgs parses `( arg, name = arg, ... )`; entry requires
// p.cur == '('. Returns the positional args, named args, and the span
// of the closing paren.
func (p *Parser) parseCallArgs() ([]ast.Expr, []ast.NamedArg, source.Span) {
	p.next() // consume '('
	var args []ast.Expr
	var named []ast.NamedArg
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) && !p.failed() {
		if p.curIs(token.IDENT) && p.peekIs(token.ASSIGN) {
			nameTok := p.cur
			p.next() // consume name
			p.next() // consume '='
			val := p.parseExpression(LOWEST)
			if val == nil {
				return args, named, p.cur.Span
			}
			named = append(named, ast.NamedArg{Name: nameTok.Literal, Value: val, Span: source.Merge(nameTok.Span, val.Span())})
		} else {
			val := p.parseExpression(LOWEST)
			if val == nil {
				return args, named, p.cur.Span
			}
			args = append(args, val)
		}
		if p.curIs(token.COMMA) {
			p.next()
			continue
		}
		break
	}
	end := p.cur.Span
	p.expectAndAdvance(token.RPAREN)
	return args, named, end
}

func (p *Parser) parsePrefix() ast.Expr {
	switch p.cur.Type {
	case token.INT:
		return p.parseIntLit()
	case token.STRING:
		lit := p.cur
		p.next()
		return &ast.StringLit{Base: ast.Base{Sp: lit.Span}, Value: lit.Literal, Raw: false}
	case token.RAW:
		lit := p.cur
		p.next()
		return &ast.StringLit{Base: ast.Base{Sp: lit.Span}, Value: lit.Literal, Raw: true}
	case token.INTERP:
		return p.parseInterp()
	case token.BOOL:
		lit := p.cur
		p.next()
		return &ast.BoolLit{Base: ast.Base{Sp: lit.Span}, Value: lit.Literal == "true"}
	case token.BANG:
		return p.parseNot()
	case token.LPAREN:
		return p.parseGroupedExpr()
	case token.LBRACKET:
		return p.parseListLit(p.cur.Span)
	case token.LBRACE:
		return p.parseMapLit(p.cur.Span)
	case token.DOLLARP:
		tok := p.cur
		p.next()
		return &ast.CmdSubst{Base: ast.Base{Sp: tok.Span}, Command: tok.Literal}
	case token.ENV:
		return p.parseEnvRef()
	case token.RUN:
		return p.parseBuiltinCall("run")
	case token.SUDO:
		return p.parseBuiltinCall("sudo")
	case token.IDENT, token.CAPTURE, token.WAIT:
		return p.parseIdentExpr()
	case token.ARROW:
		p.fail(p.cur.Span, "'->' is reserved and may not be used", "")
		return nil
	default:
		help := ""
		if p.curIs(token.IDENT) {
			if s := suggest.ForKeyword(p.cur.Literal); s != "" {
				help = fmt.Sprintf("did you mean '%s'?", s)
			}
		}
		p.fail(p.cur.Span, fmt.Sprintf("unexpected token %q in expression", p.cur.Literal), help)
		return nil
	}
}

func (p *Parser) parseIntLit() ast.Expr {
	tok := p.cur
	v, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		p.fail(tok.Span, fmt.Sprintf("integer literal %q overflows", tok.Literal), "")
		return nil
	}
	p.next()
	return &ast.IntLit{Base: ast.Base{Sp: tok.Span}, Value: v}
}

func (p *Parser) parseNot() ast.Expr {
	start := p.cur.Span
	p.next()
	x := p.parseExpression(UNARY_NOT)
	if x == nil {
		return nil
	}
	return &ast.Not{Base: ast.Base{Sp: source.Merge(start, x.Span())}, X: x}
}

func (p *Parser) parseGroupedExpr() ast.Expr {
	p.next() // consume '('
	e := p.parseExpression(LOWEST)
	if e == nil {
		return nil
	}
	if !p.expectAndAdvance(token.RPAREN) {
		return nil
	}
	return e
}

func (p *Parser) parseListLit(start source.Span) ast.Expr {
	p.next() // consume '['
	var elems []ast.Expr
	for !p.curIs(token.RBRACKET) && !p.curIs(token.EOF) && !p.failed() {
		e := p.parseExpression(LOWEST)
		if e == nil {
			return nil
		}
		elems = append(elems, e)
		if p.curIs(token.COMMA) {
			p.next()
			continue
		}
		break
	}
	end := p.cur.Span
	if !p.expectAndAdvance(token.RBRACKET) {
		return nil
	}
	return &ast.ListLit{Base: ast.Base{Sp: source.Merge(start, end)}, Elems: elems}
}

func (p *Parser) parseMapLit(start source.Span) ast.Expr {
	p.next() // consume '{'
	var entries []ast.MapEntry
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) && !p.failed() {
		if !p.curIs(token.IDENT) && !p.curIs(token.STRING) {
			p.fail(p.cur.Span, fmt.Sprintf("expected a map key, found %q", p.cur.Literal), "")
			return nil
		}
		key := p.cur.Literal
		p.next()
		if !p.expectAndAdvance(token.COLON) {
			return nil
		}
		val := p.parseExpression(LOWEST)
		if val == nil {
			return nil
		}
		entries = append(entries, ast.MapEntry{Key: key, Value: val})
		if p.curIs(token.COMMA) {
			p.next()
			continue
		}
		break
	}
	end := p.cur.Span
	if !p.expectAndAdvance(token.RBRACE) {
		return nil
	}
	return &ast.MapLit{Base: ast.Base{Sp: source.Merge(start, end)}, Entries: entries}
}

// parseInterp turns an already-lexed INTERP token's fragment sequence
// into an InterpString, recursively parsing each `{ expr }` hole's raw
// text as its own expression.
func (p *Parser) parseInterp() ast.Expr {
	tok := p.cur
	var frags []ast.InterpFragment
	for _, f := range tok.Fragments {
		if !f.IsHole {
			frags = append(frags, ast.InterpFragment{IsHole: false, Text: f.Text})
			continue
		}
		subLexer := lexer.New(p.file, f.Text)
		subParser := New(p.file, subLexer, true)
		e := subParser.parseExpression(LOWEST)
		if subParser.Err() != nil {
			if p.err == nil {
				p.err = subParser.Err()
			}
			return nil
		}
		if e == nil {
			p.fail(f.Span, "empty interpolation hole", "")
			return nil
		}
		frags = append(frags, ast.InterpFragment{IsHole: true, Expr: e})
	}
	p.next()
	return &ast.InterpString{Base: ast.Base{Sp: tok.Span}, Fragments: frags}
}

func (p *Parser) parseEnvRef() ast.Expr {
	start := p.cur.Span
	p.next() // consume 'env'
	if p.curIs(token.DOT) {
		p.next()
		if !p.expect(token.IDENT) {
			return nil
		}
		name := p.cur.Literal
		end := p.cur.Span
		p.next()
		return &ast.EnvRef{Base: ast.Base{Sp: source.Merge(start, end)}, StaticName: name, Static: true}
	}
	if !p.expect(token.LPAREN) {
		return nil
	}
	args, _, end := p.parseCallArgs()
	var nameExpr ast.Expr
	if len(args) > 0 {
		nameExpr = args[0]
	}
	return &ast.EnvRef{Base: ast.Base{Sp: source.Merge(start, end)}, Name: nameExpr, Static: false}
}

// parseBuiltinCall handles the builtins lexed as reserved keywords
// (run, sudo) rather than plain identifiers, producing the same
// generic Call shape the statement layer expects to pattern-match on.
func (p *Parser) parseBuiltinCall(name string) ast.Expr {
	start := p.cur.Span
	p.next() // consume the keyword
	if !p.expect(token.LPAREN) {
		return nil
	}
	args, named, end := p.parseCallArgs()
	return &ast.Call{Base: ast.Base{Sp: source.Merge(start, end)}, Callee: name, Args: args, Named: named}
}

func (p *Parser) parseIdentExpr() ast.Expr {
	start := p.cur.Span
	name := p.cur.Literal
	if !p.peekIs(token.LPAREN) {
		p.next()
		switch name {
		case "argc":
			return &ast.ArgC{Base: ast.Base{Sp: start}}
		case "argv0":
			return &ast.Argv0{Base: ast.Base{Sp: start}}
		case "args":
			return &ast.Args{Base: ast.Base{Sp: start}}
		default:
			return &ast.Ident{Base: ast.Base{Sp: start}, Name: name}
		}
	}
	p.next() // move onto '('
	switch {
	case name == "arg":
		args, _, end := p.parseCallArgs()
		var idx ast.Expr
		if len(args) > 0 {
			idx = args[0]
		}
		return &ast.ArgRef{Base: ast.Base{Sp: source.Merge(start, end)}, Index: idx}
	case name == "status":
		_, _, end := p.parseCallArgs()
		return &ast.StatusCall{Base: ast.Base{Sp: source.Merge(start, end)}}
	case name == "try_run":
		args, _, end := p.parseCallArgs()
		fn, rest := splitNameArgs(args)
		return &ast.TryRun{Base: ast.Base{Sp: source.Merge(start, end)}, Name: fn, Args: rest}
	case name == "capture":
		return p.parseCapture(start)
	case fsPredicates[name]:
		args, _, end := p.parseCallArgs()
		var path ast.Expr
		if len(args) > 0 {
			path = args[0]
		}
		return &ast.FSPredicate{Base: ast.Base{Sp: source.Merge(start, end)}, Kind: name, Path: path}
	case stringOps[name]:
		args, _, end := p.parseCallArgs()
		return &ast.StringOp{Base: ast.Base{Sp: source.Merge(start, end)}, Kind: name, Args: args}
	case miscBuiltins[name]:
		args, named, end := p.parseCallArgs()
		return &ast.Misc{Base: ast.Base{Sp: source.Merge(start, end)}, Name: name, Args: args, Named: named}
	default:
		args, named, end := p.parseCallArgs()
		return &ast.Call{Base: ast.Base{Sp: source.Merge(start, end)}, Callee: name, Args: args, Named: named}
	}
}

// parseCaptureSeg parses one argv-shaped segment of a capture
// pipeline: `name(args...)` or `sudo(args...)`. Entry requires
// p.cur == IDENT or the sudo keyword.
func (p *Parser) parseCaptureSeg() *ast.CaptureSeg {
	if !p.curIs(token.SUDO) && !p.expect(token.IDENT) {
		return nil
	}
	name := p.cur.Literal
	p.next()
	if !p.expect(token.LPAREN) {
		return nil
	}
	args, named, _ := p.parseCallArgs()
	return &ast.CaptureSeg{Name: name, Args: args, Named: named}
}

// parseCapture parses `capture(seg | seg | ..., allow_fail=true)`.
// Entry requires p.cur == '(' (already positioned by parseIdentExpr).
func (p *Parser) parseCapture(start source.Span) ast.Expr {
	p.next() // consume '('
	seg := p.parseCaptureSeg()
	if seg == nil {
		return nil
	}
	segs := []ast.CaptureSeg{*seg}
	for p.curIs(token.PIPE) {
		p.next()
		s := p.parseCaptureSeg()
		if s == nil {
			return nil
		}
		segs = append(segs, *s)
	}
	allow, has := false, false
	for p.curIs(token.COMMA) {
		p.next()
		if p.curIs(token.IDENT) && p.cur.Literal == "allow_fail" && p.peekIs(token.ASSIGN) {
			p.next()
			p.next()
			if !p.curIs(token.BOOL) {
				p.fail(p.cur.Span, "allow_fail expects a boolean literal", "")
				return nil
			}
			allow = p.cur.Literal == "true"
			has = true
			p.next()
		} else {
			break
		}
	}
	end := p.cur.Span
	if !p.expectAndAdvance(token.RPAREN) {
		return nil
	}
	return &ast.Capture{Base: ast.Base{Sp: source.Merge(start, end)}, Segments: segs, AllowFail: allow, HasAllowFail: has}
}
