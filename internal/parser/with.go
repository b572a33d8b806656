package parser

import (
	"fmt"

	"github.com/sh2lang/sh2c/internal/ast"
	"github.com/sh2lang/sh2c/internal/source"
	"github.com/sh2lang/sh2c/internal/token"
)

// parseWith dispatches `with env|cwd|log|redirect { ... } { body }`.
func (p *Parser) parseWith() ast.Stmt {
	start := p.cur.Span
	p.next() // consume 'with'
	switch p.cur.Type {
	case token.ENV:
		return p.parseWithEnv(start)
	case token.CWD:
		return p.parseWithCwd(start)
	case token.LOG:
		return p.parseWithLog(start)
	case token.REDIRECT:
		return p.parseWithRedirect(start)
	default:
		p.fail(p.cur.Span, fmt.Sprintf("expected 'env', 'cwd', 'log' or 'redirect' after 'with', found %q", p.cur.Literal), "")
		return nil
	}
}

func (p *Parser) parseWithEnv(start source.Span) ast.Stmt {
	p.next() // consume 'env'
	if !p.expectAndAdvance(token.LBRACE) {
		return nil
	}
	var entries []ast.MapEntry
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) && !p.failed() {
		if !p.curIs(token.IDENT) {
			p.fail(p.cur.Span, fmt.Sprintf("expected an environment variable name, found %q", p.cur.Literal), "")
			return nil
		}
		name := p.cur.Literal
		p.next()
		if !p.expectAndAdvance(token.COLON) {
			return nil
		}
		val := p.parseExpression(LOWEST)
		if val == nil {
			return nil
		}
		entries = append(entries, ast.MapEntry{Key: name, Value: val})
		if p.curIs(token.COMMA) {
			p.next()
			continue
		}
		break
	}
	if !p.expectAndAdvance(token.RBRACE) {
		return nil
	}
	body, end := p.parseBlock()
	return &ast.WithEnvStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Entries: entries, Body: body}
}

func (p *Parser) parseWithCwd(start source.Span) ast.Stmt {
	p.next() // consume 'cwd'
	if !p.expectAndAdvance(token.LPAREN) {
		return nil
	}
	path := p.parseExpression(LOWEST)
	if path == nil {
		return nil
	}
	if !p.expectAndAdvance(token.RPAREN) {
		return nil
	}
	body, end := p.parseBlock()
	return &ast.WithCwdStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Path: path, Body: body}
}

func (p *Parser) parseWithLog(start source.Span) ast.Stmt {
	p.next() // consume 'log'
	if !p.expectAndAdvance(token.LPAREN) {
		return nil
	}
	path := p.parseExpression(LOWEST)
	if path == nil {
		return nil
	}
	appendVal, hasAppend := false, false
	for p.curIs(token.COMMA) {
		p.next()
		if p.curIs(token.IDENT) && p.cur.Literal == "append" && p.peekIs(token.ASSIGN) {
			p.next()
			p.next()
			if !p.curIs(token.BOOL) {
				p.fail(p.cur.Span, "append expects a boolean literal", "")
				return nil
			}
			appendVal = p.cur.Literal == "true"
			hasAppend = true
			p.next()
		} else {
			break
		}
	}
	if !p.expectAndAdvance(token.RPAREN) {
		return nil
	}
	body, end := p.parseBlock()
	return &ast.WithLogStmt{Base: ast.Base{Sp: source.Merge(start, end)}, Path: path, Append: appendVal, HasAppend: hasAppend, Body: body}
}

func (p *Parser) parseWithRedirect(start source.Span) ast.Stmt {
	p.next() // consume 'redirect'
	if !p.expectAndAdvance(token.LBRACE) {
		return nil
	}
	stmt := &ast.WithRedirectStmt{}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) && !p.failed() {
		var slot **ast.RedirectTarget
		switch p.cur.Type {
		case token.STDIN:
			slot = &stmt.Stdin
		case token.STDOUT:
			slot = &stmt.Stdout
		case token.STDERR:
			slot = &stmt.Stderr
		default:
			p.fail(p.cur.Span, fmt.Sprintf("expected 'stdin', 'stdout' or 'stderr', found %q", p.cur.Literal), "")
			return nil
		}
		p.next()
		if !p.expectAndAdvance(token.COLON) {
			return nil
		}
		target := p.parseRedirectTarget()
		if target == nil {
			return nil
		}
		*slot = target
		if p.curIs(token.COMMA) {
			p.next()
			continue
		}
		break
	}
	if !p.expectAndAdvance(token.RBRACE) {
		return nil
	}
	body, end := p.parseBlock()
	stmt.Sp = source.Merge(start, end)
	stmt.Body = body
	return stmt
}

// parseRedirectTarget parses one side of a redirect spec:
// `file(expr, append=true)`, `heredoc("...")`, `stderr`, `stdout`,
// `inherit_stdout`, or a list combining a file with `inherit_stdout`.
// For such a list both targets are recorded; codegen emits them as
// successive redirections, so the output goes to the file only and is
// not duplicated to the inherited stdout.
func (p *Parser) parseRedirectTarget() *ast.RedirectTarget {
	switch p.cur.Type {
	case token.FILE:
		p.next()
		if !p.expectAndAdvance(token.LPAREN) {
			return nil
		}
		path := p.parseExpression(LOWEST)
		if path == nil {
			return nil
		}
		appendVal := false
		for p.curIs(token.COMMA) {
			p.next()
			if p.curIs(token.IDENT) && p.cur.Literal == "append" && p.peekIs(token.ASSIGN) {
				p.next()
				p.next()
				appendVal = p.curIs(token.BOOL) && p.cur.Literal == "true"
				p.next()
			} else {
				break
			}
		}
		if !p.expectAndAdvance(token.RPAREN) {
			return nil
		}
		return &ast.RedirectTarget{File: path, Append: appendVal, HasFile: true}
	case token.HEREDOC:
		p.next()
		if !p.expectAndAdvance(token.LPAREN) {
			return nil
		}
		if !p.expect(token.STRING) {
			return nil
		}
		body := p.cur.Literal
		p.next()
		if !p.expectAndAdvance(token.RPAREN) {
			return nil
		}
		return &ast.RedirectTarget{Heredoc: body, HasHeredoc: true}
	case token.STDOUT:
		p.next()
		return &ast.RedirectTarget{ToStdout: true}
	case token.STDERR:
		p.next()
		return &ast.RedirectTarget{ToStderr: true}
	case token.INHERIT_STDOUT:
		p.next()
		return &ast.RedirectTarget{InheritStdout: true}
	case token.LBRACKET:
		p.next()
		target := &ast.RedirectTarget{}
		for !p.curIs(token.RBRACKET) && !p.curIs(token.EOF) && !p.failed() {
			part := p.parseRedirectTarget()
			if part == nil {
				return nil
			}
			if part.HasFile {
				target.File = part.File
				target.Append = part.Append
				target.HasFile = true
			}
			if part.InheritStdout {
				target.InheritStdout = true
			}
			if part.ToStdout {
				target.ToStdout = true
			}
			if part.ToStderr {
				target.ToStderr = true
			}
			if p.curIs(token.COMMA) {
				p.next()
				continue
			}
			break
		}
		if !p.expectAndAdvance(token.RBRACKET) {
			return nil
		}
		return target
	default:
		p.fail(p.cur.Span, fmt.Sprintf("expected a redirect target, found %q", p.cur.Literal), "")
		return nil
	}
}
