// Package parser is a hand-written recursive-descent (Pratt-style for
// expressions) parser that turns a token stream into an AST.
package parser

import (
	"fmt"

	"github.com/sh2lang/sh2c/internal/ast"
	"github.com/sh2lang/sh2c/internal/lexer"
	"github.com/sh2lang/sh2c/internal/source"
	"github.com/sh2lang/sh2c/internal/suggest"
	"github.com/sh2lang/sh2c/internal/token"
)

// precedence levels, low to high.
const (
	_ int = iota
	LOWEST
	CONCAT
	LOGIC_OR
	LOGIC_AND
	UNARY_NOT
	COMPARISON
	ADDITIVE
	MULTIPLICATIVE
	POSTFIX
)

var precedences = map[token.Type]int{
	token.AMP:      CONCAT,
	token.OR:       LOGIC_OR,
	token.AND:      LOGIC_AND,
	token.EQ:       COMPARISON,
	token.NOT_EQ:   COMPARISON,
	token.LT:       COMPARISON,
	token.GT:       COMPARISON,
	token.LT_EQ:    COMPARISON,
	token.GT_EQ:    COMPARISON,
	token.PLUS:     ADDITIVE,
	token.MINUS:    ADDITIVE,
	token.STAR:     MULTIPLICATIVE,
	token.SLASH:    MULTIPLICATIVE,
	token.PERCENT:  MULTIPLICATIVE,
	token.DOT:      POSTFIX,
	token.LBRACKET: POSTFIX,
	token.LPAREN:   POSTFIX,
}

var comparisonOps = map[token.Type]bool{
	token.EQ: true, token.NOT_EQ: true, token.LT: true,
	token.GT: true, token.LT_EQ: true, token.GT_EQ: true,
}

// Parser is a Pratt-style parser over one file's token stream. Its
// funcs field collects the function names ParseFile has seen, for
// "did you mean" suggestions.
type Parser struct {
	file source.FileID
	l    *lexer.Lexer

	cur  token.Token
	peek token.Token

	err     *source.Diagnostic
	funcs   []string // names seen so far, for "did you mean"
	isEntry bool
}

func New(file source.FileID, l *lexer.Lexer, isEntry bool) *Parser {
	p := &Parser{file: file, l: l, isEntry: isEntry}
	p.next()
	p.next()
	return p
}

// Err returns the first diagnostic raised, if any. The parser stops at
// the first error per the one-error-per-compilation contract.
func (p *Parser) Err() *source.Diagnostic { return p.err }

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
	if lerr := p.l.Err(); lerr != nil && p.err == nil {
		p.err = &source.Diagnostic{Phase: source.PhaseLex, Message: lerr.Message, Span: lerr.Span, Help: lerr.Help}
	}
}

func (p *Parser) fail(sp source.Span, msg, help string) {
	if p.err == nil {
		p.err = &source.Diagnostic{Phase: source.PhaseParse, Message: msg, Span: sp, Help: help}
	}
}

func (p *Parser) failed() bool { return p.err != nil }

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peek.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.cur.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek.Type == t }

func (p *Parser) expect(t token.Type) bool {
	if p.curIs(t) {
		return true
	}
	help := ""
	if p.curIs(token.IDENT) {
		if s := suggest.ForKeyword(p.cur.Literal); s != "" {
			help = fmt.Sprintf("did you mean '%s'?", s)
		}
	}
	p.fail(p.cur.Span, fmt.Sprintf("expected %s, found %q", t, p.cur.Literal), help)
	return false
}

func (p *Parser) expectAndAdvance(t token.Type) bool {
	if !p.expect(t) {
		return false
	}
	p.next()
	return true
}

// skipSeparators consumes any run of ';' statement separators (the
// lexer skips newlines as whitespace, so none reach the parser).
// Multiple and trailing semicolons are allowed.
func (p *Parser) skipSeparators() {
	for p.curIs(token.SEMI) {
		p.next()
	}
}

// ParseStandaloneExpr parses s as a single, complete expression. It
// exists for the lowerer's `$(...)` rewrite: the lexer captures a
// command substitution's body as raw text (lexer.go's
// readCmdSubstBody), and the lowerer re-parses that text as the sh2
// expression it denotes (spec.md: `$(...)` is sugar for `capture(...)`).
func ParseStandaloneExpr(file source.FileID, s string) (ast.Expr, *source.Diagnostic) {
	p := New(file, lexer.New(file, s), false)
	e := p.parseExpression(LOWEST)
	if p.err == nil && !p.curIs(token.EOF) {
		p.fail(p.cur.Span, fmt.Sprintf("unexpected %q after expression", p.cur.Literal), "")
	}
	return e, p.err
}

// ParseFile parses one complete source file.
func (p *Parser) ParseFile() *ast.File {
	f := &ast.File{ID: p.file}

	for !p.curIs(token.EOF) && !p.failed() {
		p.skipSeparators()
		if p.curIs(token.EOF) {
			break
		}
		switch {
		case p.curIs(token.IMPORT):
			if imp := p.parseImport(); imp != nil {
				f.Imports = append(f.Imports, imp)
			}
		case p.curIs(token.FUNC):
			if fn := p.parseFunc(); fn != nil {
				fn.SourceFile = p.file
				p.funcs = append(p.funcs, fn.Name)
				f.Funcs = append(f.Funcs, fn)
			}
		default:
			if !p.isEntry {
				p.fail(p.cur.Span, "only 'import' and 'func' may appear at the top level of an imported file", "move top-level statements into func main()")
				return f
			}
			stmt := p.parseStmt()
			if stmt != nil {
				f.TopLevel = append(f.TopLevel, stmt)
			}
		}
		if p.failed() {
			return f
		}
	}
	return f
}

func (p *Parser) parseImport() *ast.ImportDecl {
	start := p.cur.Span
	p.next() // consume 'import'
	if !p.expect(token.STRING) {
		return nil
	}
	path := p.cur.Literal
	end := p.cur.Span
	p.next()
	alias := ""
	if p.curIs(token.AS) {
		p.next()
		if !p.expect(token.IDENT) {
			return nil
		}
		alias = p.cur.Literal
		end = p.cur.Span
		p.next()
	}
	return &ast.ImportDecl{Path: path, Alias: alias, Sp: source.Merge(start, end)}
}

func (p *Parser) parseFunc() *ast.Func {
	start := p.cur.Span
	p.next() // consume 'func'
	if !p.expect(token.IDENT) {
		return nil
	}
	name := p.cur.Literal
	p.next()
	if !p.expectAndAdvance(token.LPAREN) {
		return nil
	}
	var params []ast.Param
	for !p.curIs(token.RPAREN) {
		if !p.expect(token.IDENT) {
			return nil
		}
		params = append(params, ast.Param{Name: p.cur.Literal, Span: p.cur.Span})
		p.next()
		if p.curIs(token.COMMA) {
			p.next()
		} else {
			break
		}
	}
	if !p.expectAndAdvance(token.RPAREN) {
		return nil
	}
	body, end := p.parseBlock()
	return &ast.Func{Name: name, Params: params, Body: body, Sp: source.Merge(start, end)}
}

// parseBlock parses `{ stmt* }` and returns the statements plus the
// span of the closing brace.
func (p *Parser) parseBlock() ([]ast.Stmt, source.Span) {
	if !p.expectAndAdvance(token.LBRACE) {
		return nil, p.cur.Span
	}
	var stmts []ast.Stmt
	for {
		p.skipSeparators()
		if p.curIs(token.RBRACE) || p.curIs(token.EOF) || p.failed() {
			break
		}
		s := p.parseStmt()
		if p.failed() {
			return stmts, p.cur.Span
		}
		if s != nil {
			stmts = append(stmts, s)
		}
		p.skipSeparators()
	}
	end := p.cur.Span
	p.expectAndAdvance(token.RBRACE)
	return stmts, end
}
