package lexer

import (
	"testing"

	"github.com/sh2lang/sh2c/internal/source"
	"github.com/sh2lang/sh2c/internal/token"
)

func TestBasicTokens(t *testing.T) {
	input := `= + - ! * / % < > ( ) { } [ ] : , . ;`

	expected := []token.Type{
		token.ASSIGN, token.PLUS, token.MINUS, token.BANG, token.STAR,
		token.SLASH, token.PERCENT, token.LT, token.GT, token.LPAREN, token.RPAREN,
		token.LBRACE, token.RBRACE, token.LBRACKET, token.RBRACKET,
		token.COLON, token.COMMA, token.DOT, token.SEMI,
		token.EOF,
	}

	l := New(0, input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp {
			t.Fatalf("test[%d] - wrong type. expected=%s, got=%s (literal=%q)", i, exp, tok.Type, tok.Literal)
		}
	}
}

func TestMultiCharOperators(t *testing.T) {
	input := `== != <= >= && || $(`

	expected := []struct {
		typ token.Type
		lit string
	}{
		{token.EQ, "=="}, {token.NOT_EQ, "!="}, {token.LT_EQ, "<="},
		{token.GT_EQ, ">="}, {token.AND, "&&"}, {token.OR, "||"},
	}

	l := New(0, input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ || tok.Literal != exp.lit {
			t.Fatalf("test[%d] - expected %s(%q), got %s(%q)", i, exp.typ, exp.lit, tok.Type, tok.Literal)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := `func let set if elif else while for in case break continue return exit true false import as`

	expected := []token.Type{
		token.FUNC, token.LET, token.SET, token.IF, token.ELIF, token.ELSE,
		token.WHILE, token.FOR, token.IN, token.CASE, token.BREAK, token.CONTINUE,
		token.RETURN, token.EXIT, token.BOOL, token.BOOL, token.IMPORT, token.AS,
	}

	l := New(0, input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp {
			t.Fatalf("test[%d] - expected %s, got %s (literal=%q)", i, exp, tok.Type, tok.Literal)
		}
	}
}

func TestCookedStringEscapes(t *testing.T) {
	l := New(0, `"a\nb\tc\\d\"e"`)
	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	want := "a\nb\tc\\d\"e"
	if tok.Literal != want {
		t.Errorf("Literal = %q, want %q", tok.Literal, want)
	}
	if tok.StrForm != token.FormCooked {
		t.Errorf("StrForm = %v, want FormCooked", tok.StrForm)
	}
}

func TestCookedStringDollarAndBraceAreLiteral(t *testing.T) {
	// spec.md §4.2: $ and { are not interpretation triggers in a cooked string.
	l := New(0, `"${Package}\n"`)
	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	if tok.Literal != "${Package}\n" {
		t.Errorf("Literal = %q, want %q", tok.Literal, "${Package}\n")
	}
}

func TestRawStringNoEscapes(t *testing.T) {
	l := New(0, `r"a\nb"`)
	tok := l.NextToken()
	if tok.Type != token.RAW {
		t.Fatalf("expected RAW, got %s", tok.Type)
	}
	if tok.Literal != `a\nb` {
		t.Errorf("Literal = %q, want %q", tok.Literal, `a\nb`)
	}
}

func TestTripleQuotedAllowsNewlines(t *testing.T) {
	l := New(0, "\"\"\"line1\nline2\"\"\"")
	tok := l.NextToken()
	if tok.Type != token.STRING {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	if tok.Literal != "line1\nline2" {
		t.Errorf("Literal = %q, want %q", tok.Literal, "line1\nline2")
	}
}

func TestUnterminatedStringDiagnoses(t *testing.T) {
	l := New(0, `"no closing quote`)
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok.Type)
	}
	if l.Err() == nil {
		t.Fatal("expected a lex error")
	}
}

func TestInterpolatedStringFragments(t *testing.T) {
	l := New(0, `$"got: {x} done"`)
	tok := l.NextToken()
	if tok.Type != token.INTERP {
		t.Fatalf("expected INTERP, got %s", tok.Type)
	}
	if len(tok.Fragments) != 3 {
		t.Fatalf("expected 3 fragments, got %d: %+v", len(tok.Fragments), tok.Fragments)
	}
	if tok.Fragments[0].IsHole || tok.Fragments[0].Text != "got: " {
		t.Errorf("fragment[0] = %+v, want literal %q", tok.Fragments[0], "got: ")
	}
	if !tok.Fragments[1].IsHole || tok.Fragments[1].Text != "x" {
		t.Errorf("fragment[1] = %+v, want hole %q", tok.Fragments[1], "x")
	}
	if tok.Fragments[2].IsHole || tok.Fragments[2].Text != " done" {
		t.Errorf("fragment[2] = %+v, want literal %q", tok.Fragments[2], " done")
	}
}

func TestInterpolatedStringEscapedBraces(t *testing.T) {
	l := New(0, `$"\{literal\}"`)
	tok := l.NextToken()
	if tok.Type != token.INTERP {
		t.Fatalf("expected INTERP, got %s", tok.Type)
	}
	if len(tok.Fragments) != 1 || tok.Fragments[0].Text != "{literal}" {
		t.Fatalf("fragments = %+v, want single literal %q", tok.Fragments, "{literal}")
	}
}

func TestInterpolatedStringQuoteInHoleIsError(t *testing.T) {
	l := New(0, `$"{ "x" }"`)
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok.Type)
	}
	if l.Err() == nil {
		t.Fatal("expected a lex error for quoting inside a hole")
	}
}

func TestCommandSubstitutionBody(t *testing.T) {
	l := New(0, `$(echo "a)b" (nested))`)
	tok := l.NextToken()
	if tok.Type != token.DOLLARP {
		t.Fatalf("expected DOLLARP, got %s", tok.Type)
	}
	want := `echo "a)b" (nested)`
	if tok.Literal != want {
		t.Errorf("Literal = %q, want %q", tok.Literal, want)
	}
}

func TestConcatOperatorSpacing(t *testing.T) {
	// "a & b" has whitespace on both sides of '&'.
	l := New(0, `a & b`)
	l.NextToken() // a
	amp := l.NextToken()
	if amp.Type != token.AMP {
		t.Fatalf("expected AMP, got %s", amp.Type)
	}
	if amp.NoSpaceBefore || amp.NoSpaceAfter {
		t.Errorf("expected whitespace recorded on both sides, got %+v", amp)
	}
}

func TestConcatOperatorMissingSpaceIsFlagged(t *testing.T) {
	l := New(0, `a&b`)
	l.NextToken() // a
	amp := l.NextToken()
	if amp.Type != token.AMP {
		t.Fatalf("expected AMP, got %s", amp.Type)
	}
	if !amp.NoSpaceBefore || !amp.NoSpaceAfter {
		t.Errorf("expected missing whitespace recorded on both sides, got %+v", amp)
	}
}

func TestCommentsToEndOfLine(t *testing.T) {
	l := New(0, "let x = 1 # trailing comment\nlet y = 2 // also a comment\n")
	var types []token.Type
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		types = append(types, tok.Type)
	}
	want := []token.Type{
		token.LET, token.IDENT, token.ASSIGN, token.INT,
		token.LET, token.IDENT, token.ASSIGN, token.INT,
	}
	if len(types) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(types), types, len(want))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestSpansPointIntoSource(t *testing.T) {
	l := New(3, "let")
	tok := l.NextToken()
	want := source.Span{File: 3, Start: 0, End: 3}
	if tok.Span != want {
		t.Errorf("Span = %+v, want %+v", tok.Span, want)
	}
}

func TestArrowIsLexedAsOperator(t *testing.T) {
	// §4.2: '->' is reserved; the parser (not the lexer) rejects it at
	// statement level.
	l := New(0, "->")
	tok := l.NextToken()
	if tok.Type != token.ARROW {
		t.Fatalf("expected ARROW, got %s", tok.Type)
	}
}
