package lowerer

import (
	"testing"

	"github.com/sh2lang/sh2c/internal/ast"
	"github.com/sh2lang/sh2c/internal/ir"
	"github.com/sh2lang/sh2c/internal/lexer"
	"github.com/sh2lang/sh2c/internal/loader"
	"github.com/sh2lang/sh2c/internal/parser"
	"github.com/sh2lang/sh2c/internal/source"
	"github.com/sh2lang/sh2c/internal/target"
)

// lowerSrc builds a single-file loader.Program the way loader.Load
// would for a file with no imports, then runs the lowerer directly.
func lowerSrc(t *testing.T, src string, tgt target.Shell) (*ir.Program, *source.Diagnostic) {
	t.Helper()
	files := &source.FileSet{}
	fileID := files.Add(source.NewMap(0, "main.sh2", src))
	p := parser.New(fileID, lexer.New(fileID, src), true)
	f := p.ParseFile()
	if perr := p.Err(); perr != nil {
		t.Fatalf("unexpected parse error: %s", perr.Message)
	}
	names := map[string]*ast.Func{}
	for _, fn := range f.Funcs {
		names[fn.Name] = fn
	}
	prog := &loader.Program{
		Functions: f.Funcs,
		Entry:     f,
		EntryPath: "main.sh2",
		Scopes:    map[string]*loader.FileScope{"main.sh2": {Names: names}},
	}
	return Lower(prog, files, "", tgt, true)
}

func TestLowerPrintProducesPrintCmd(t *testing.T) {
	prog, diag := lowerSrc(t, `func main() { print("hi") }`, target.Bash)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %s", diag.Message)
	}
	if len(prog.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if len(fn.Commands) != 1 {
		t.Fatalf("got %d commands, want 1", len(fn.Commands))
	}
	pr, ok := fn.Commands[0].(*ir.Print)
	if !ok {
		t.Fatalf("Commands[0] = %T, want *ir.Print", fn.Commands[0])
	}
	lit, ok := pr.X.(*ir.Literal)
	if !ok || lit.S != "hi" {
		t.Errorf("Print.X = %#v, want Literal{hi}", pr.X)
	}
}

func TestLowerTopLevelEntryFileSynthesizesMain(t *testing.T) {
	prog, diag := lowerSrc(t, `print("hi")`, target.Bash)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %s", diag.Message)
	}
	if len(prog.Functions) != 1 || prog.Functions[0].Name != "main" {
		t.Fatalf("Functions = %+v, want a synthesized 'main'", prog.Functions)
	}
}

func TestLowerMapLiteralUnderBashIsAllowed(t *testing.T) {
	_, diag := lowerSrc(t, `func main() { let m = {"a": "b"}; print(m["a"]) }`, target.Bash)
	if diag != nil {
		t.Fatalf("unexpected diagnostic under bash target: %s", diag.Message)
	}
}

func TestLowerMapLiteralUnderPosixIsRejected(t *testing.T) {
	_, diag := lowerSrc(t, `func main() { let m = {"a": "b"}; print(m["a"]) }`, target.Posix)
	if diag == nil {
		t.Fatal("expected a target diagnostic for a map literal under posix")
	}
	if diag.Phase != source.PhaseTarget {
		t.Errorf("Phase = %q, want target", diag.Phase)
	}
}

func TestLowerGlobUnderPosixIsRejected(t *testing.T) {
	_, diag := lowerSrc(t, `func main() { let xs = glob("*.txt"); print(xs) }`, target.Posix)
	if diag == nil {
		t.Fatal("expected a target diagnostic for glob() under posix")
	}
	if diag.Phase != source.PhaseTarget {
		t.Errorf("Phase = %q, want target", diag.Phase)
	}
}

func TestLowerTryRunProducesTryRunNode(t *testing.T) {
	prog, diag := lowerSrc(t, `func main() { let r = try_run("echo", "hi"); print(r.status) }`, target.Bash)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %s", diag.Message)
	}
	fn := prog.Functions[0]
	if len(fn.Commands) < 1 {
		t.Fatal("expected at least one command")
	}
	assign, ok := fn.Commands[0].(*ir.Assign)
	if !ok {
		t.Fatalf("Commands[0] = %T, want *ir.Assign", fn.Commands[0])
	}
	if _, ok := assign.Value.(*ir.TryRun); !ok {
		t.Errorf("Assign.Value = %T, want *ir.TryRun", assign.Value)
	}
}

func TestLowerIfProducesIfCmd(t *testing.T) {
	prog, diag := lowerSrc(t, `func main() {
		if 1 == 1 { print("a") } else { print("b") }
	}`, target.Bash)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %s", diag.Message)
	}
	if _, ok := prog.Functions[0].Commands[0].(*ir.If); !ok {
		t.Fatalf("Commands[0] = %T, want *ir.If", prog.Functions[0].Commands[0])
	}
}

func TestLowerUserFunctionCallResolvesAcrossFunctions(t *testing.T) {
	prog, diag := lowerSrc(t, `func greet(name) { print(name) }
func main() { greet("x") }`, target.Bash)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %s", diag.Message)
	}
	if len(prog.Functions) != 2 {
		t.Fatalf("got %d functions, want 2", len(prog.Functions))
	}
}
