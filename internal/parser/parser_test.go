package parser

import (
	"testing"

	"github.com/sh2lang/sh2c/internal/ast"
	"github.com/sh2lang/sh2c/internal/lexer"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	p := New(0, lexer.New(0, src), true)
	f := p.ParseFile()
	if p.Err() != nil {
		t.Fatalf("unexpected parse error: %s", p.Err().Message)
	}
	return f
}

func TestParseFuncWithParams(t *testing.T) {
	f := parse(t, `func greet(name) { print("hi" & name) }`)
	if len(f.Funcs) != 1 {
		t.Fatalf("got %d funcs, want 1", len(f.Funcs))
	}
	fn := f.Funcs[0]
	if fn.Name != "greet" {
		t.Errorf("Name = %q, want greet", fn.Name)
	}
	if len(fn.Params) != 1 || fn.Params[0].Name != "name" {
		t.Fatalf("Params = %+v, want [name]", fn.Params)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("Body has %d stmts, want 1", len(fn.Body))
	}
	if _, ok := fn.Body[0].(*ast.PrintStmt); !ok {
		t.Errorf("Body[0] = %T, want *ast.PrintStmt", fn.Body[0])
	}
}

func TestParseTopLevelEntryFile(t *testing.T) {
	f := parse(t, `print("hi")`)
	if len(f.Funcs) != 0 {
		t.Fatalf("got %d funcs, want 0", len(f.Funcs))
	}
	if len(f.TopLevel) != 1 {
		t.Fatalf("TopLevel has %d stmts, want 1", len(f.TopLevel))
	}
}

func TestParseImportWithAlias(t *testing.T) {
	f := parse(t, `import "lib/util" as util
func main() { }`)
	if len(f.Imports) != 1 {
		t.Fatalf("got %d imports, want 1", len(f.Imports))
	}
	if f.Imports[0].Path != "lib/util" || f.Imports[0].Alias != "util" {
		t.Errorf("Import = %+v, want {lib/util util}", f.Imports[0])
	}
}

func TestParseLetAndSet(t *testing.T) {
	f := parse(t, `func main() { let x = 1; set x = 2 }`)
	body := f.Funcs[0].Body
	if _, ok := body[0].(*ast.LetStmt); !ok {
		t.Errorf("body[0] = %T, want *ast.LetStmt", body[0])
	}
	if _, ok := body[1].(*ast.SetStmt); !ok {
		t.Errorf("body[1] = %T, want *ast.SetStmt", body[1])
	}
}

func TestParseConcatPrecedenceLowerThanComparison(t *testing.T) {
	// Concat binds more loosely than comparison, so `"a" & x == "b"`
	// parses as "a" & (x == "b"): the top-level expression is a Concat.
	f := parse(t, `func main() { let r = "a" & x == "b" }`)
	let := f.Funcs[0].Body[0].(*ast.LetStmt)
	if _, ok := let.Value.(*ast.Concat); !ok {
		t.Fatalf("Value = %T, want *ast.Concat", let.Value)
	}
}

func TestParseNamedArguments(t *testing.T) {
	f := parse(t, `func main() { run("cmd", allow_fail=true) }`)
	run, ok := f.Funcs[0].Body[0].(*ast.RunStmt)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.RunStmt", f.Funcs[0].Body[0])
	}
	if !run.HasAllowFail || !run.AllowFail {
		t.Errorf("AllowFail = %v/%v, want true/true", run.HasAllowFail, run.AllowFail)
	}
}

func TestParseChainedComparisonIsError(t *testing.T) {
	p := New(0, lexer.New(0, `func main() { if a == b == c { } }`), true)
	p.ParseFile()
	if p.Err() == nil {
		t.Fatal("expected a parse error for chained comparison")
	}
}

func TestParseSemicolonWhereExpressionExpectedIsError(t *testing.T) {
	p := New(0, lexer.New(0, `func main() { let x = ; }`), true)
	p.ParseFile()
	if p.Err() == nil {
		t.Fatal("expected a parse error for a bare statement separator")
	}
}

func TestParseIfElifElse(t *testing.T) {
	f := parse(t, `func main() {
		if a == "1" {
			print("one")
		} elif a == "2" {
			print("two")
		} else {
			print("other")
		}
	}`)
	ifStmt, ok := f.Funcs[0].Body[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.IfStmt", f.Funcs[0].Body[0])
	}
	// An elif chains as a single nested *IfStmt in Else.
	if len(ifStmt.Else) != 1 {
		t.Fatalf("got %d else stmts, want 1 (the elif chain)", len(ifStmt.Else))
	}
	elif, ok := ifStmt.Else[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("Else[0] = %T, want *ast.IfStmt (elif)", ifStmt.Else[0])
	}
	if len(elif.Else) != 1 {
		t.Fatalf("elif has %d else stmts, want 1 (the else body)", len(elif.Else))
	}
	if _, ok := elif.Else[0].(*ast.PrintStmt); !ok {
		t.Errorf("elif.Else[0] = %T, want *ast.PrintStmt", elif.Else[0])
	}
}

func TestParseStandaloneExprForCmdSubst(t *testing.T) {
	e, diag := ParseStandaloneExpr(0, `capture("echo", "hi")`)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %s", diag.Message)
	}
	if _, ok := e.(*ast.Capture); !ok {
		t.Fatalf("got %T, want *ast.Capture", e)
	}
}
