package binder

import (
	"testing"

	"github.com/sh2lang/sh2c/internal/lexer"
	"github.com/sh2lang/sh2c/internal/loader"
	"github.com/sh2lang/sh2c/internal/parser"
	"github.com/sh2lang/sh2c/internal/source"
)

func bindSrc(t *testing.T, src string) *source.Diagnostic {
	t.Helper()
	p := parser.New(0, lexer.New(0, src), true)
	f := p.ParseFile()
	if perr := p.Err(); perr != nil {
		t.Fatalf("unexpected parse error: %s", perr.Message)
	}
	prog := &loader.Program{Functions: f.Funcs, Entry: f}
	return Bind(prog)
}

func TestBindLetThenUseIsOK(t *testing.T) {
	if d := bindSrc(t, `func main() { let x = "a"; print(x) }`); d != nil {
		t.Fatalf("unexpected diagnostic: %s", d.Message)
	}
}

func TestBindSetWithoutLetFails(t *testing.T) {
	d := bindSrc(t, `func main() { set x = 1 }`)
	if d == nil {
		t.Fatal("expected a bind error")
	}
	if d.Phase != "bind" {
		t.Errorf("Phase = %q, want bind", d.Phase)
	}
}

func TestBindDuplicateLetInSameScopeFails(t *testing.T) {
	d := bindSrc(t, `func main() { let x = 1; let x = 2 }`)
	if d == nil {
		t.Fatal("expected a duplicate-declaration error")
	}
}

func TestBindUndeclaredUseSuggestsNearMiss(t *testing.T) {
	d := bindSrc(t, `func main() { let count = 1; print(coutn) }`)
	if d == nil {
		t.Fatal("expected an undeclared-variable error")
	}
	if d.Help == "" {
		t.Error("expected a 'did you mean' suggestion in Help")
	}
}

func TestBindIfElseMergePromotesCommonName(t *testing.T) {
	// x is declared in both arms, so it must be visible after the if closes.
	if d := bindSrc(t, `func main() {
		if 1 == 1 { let x = "a" } else { let x = "b" }
		print(x)
	}`); d != nil {
		t.Fatalf("unexpected diagnostic: %s", d.Message)
	}
}

func TestBindIfWithoutElseDoesNotPromote(t *testing.T) {
	d := bindSrc(t, `func main() {
		if 1 == 1 { let x = "a" }
		print(x)
	}`)
	if d == nil {
		t.Fatal("expected x to be out of scope after an if with no else")
	}
}

func TestBindIfOneArmMissingDeclarationDoesNotPromote(t *testing.T) {
	d := bindSrc(t, `func main() {
		if 1 == 1 { let x = "a" } else { print("b") }
		print(x)
	}`)
	if d == nil {
		t.Fatal("expected x to be out of scope since the else arm never declares it")
	}
}

func TestBindForLoopVariablePersistsAfterLoop(t *testing.T) {
	if d := bindSrc(t, `func main() {
		for i in ["a", "b"] { print(i) }
		print(i)
	}`); d != nil {
		t.Fatalf("unexpected diagnostic: %s", d.Message)
	}
}

func TestBindCaseWildcardMergePromotesCommonName(t *testing.T) {
	if d := bindSrc(t, `func main() {
		case "x" {
			"a" { let y = "1" }
			_ { let y = "2" }
		}
		print(y)
	}`); d != nil {
		t.Fatalf("unexpected diagnostic: %s", d.Message)
	}
}

func TestBindParamsAreVisibleInBody(t *testing.T) {
	if d := bindSrc(t, `func greet(name) { print(name) }
func main() { greet("x") }`); d != nil {
		t.Fatalf("unexpected diagnostic: %s", d.Message)
	}
}
