package sh2c

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sh2lang/sh2c/internal/target"
)

func writeSrc(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.sh2")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func compileOK(t *testing.T, src string, tgt target.Shell) string {
	t.Helper()
	path := writeSrc(t, src)
	res, diag := Compile(path, Options{Target: tgt, Mode: ModeEmitSh})
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %s", diag.Message)
	}
	return res.Script
}

func TestCompileHelloWorld(t *testing.T) {
	script := compileOK(t, `func main(){ print("hi") }`, target.Bash)
	if !strings.HasPrefix(script, "#!/usr/bin/env bash\n") {
		t.Fatalf("script does not start with the bash shebang:\n%s", script)
	}
	if !strings.Contains(script, "printf '%s\\n' 'hi'") {
		t.Errorf("script does not print the quoted literal 'hi':\n%s", script)
	}
	if !strings.Contains(script, `main "$@"`) {
		t.Errorf("script does not invoke main with forwarded args:\n%s", script)
	}
}

func TestCompilePosixShebang(t *testing.T) {
	script := compileOK(t, `func main(){ print("hi") }`, target.Posix)
	if !strings.HasPrefix(script, "#!/bin/sh\n") {
		t.Fatalf("script does not start with the posix shebang:\n%s", script)
	}
}

func TestCompileLiteralNeverReachesOuterShellUnquoted(t *testing.T) {
	// spec.md §8 scenario 2: a literal containing shell-expansion syntax
	// must reach the child process exactly as written, never interpreted
	// by the outer shell. We assert it on the generated text: the
	// argument is rendered through the quoter, never as a bare token.
	script := compileOK(t, `func main(){ run("dpkg-query","-W","-f","${Package}\n","bash") }`, target.Bash)
	if !strings.Contains(script, `'${Package}`) {
		t.Errorf("literal '${Package}' was not single-quoted in the output:\n%s", script)
	}
}

func TestCompileTryRunFields(t *testing.T) {
	script := compileOK(t, `func main(){ let r = try_run("sh","-c","echo out; exit 7"); print(r.status); print(r.stdout) }`, target.Bash)
	if !strings.Contains(script, "__sh2_r_status") {
		t.Errorf("expected a status capture variable for r, got:\n%s", script)
	}
	if !strings.Contains(script, "__sh2_r_stdout") {
		t.Errorf("expected a stdout capture variable for r, got:\n%s", script)
	}
}

func TestCompileShEscapeHatch(t *testing.T) {
	script := compileOK(t, `func main(){ sh("echo RAW: $FOO") }`, target.Bash)
	if !strings.Contains(script, "bash -c") {
		t.Errorf("sh() did not lower to 'bash -c':\n%s", script)
	}
	if !strings.Contains(script, "_'") && !strings.Contains(script, `' _`) {
		t.Errorf("sh() did not pass '_' as $0:\n%s", script)
	}
}

func TestCompileAllowFailCapturesStatus(t *testing.T) {
	script := compileOK(t, `func main(){ run("sh","-c","exit 3",allow_fail=true); print(status()) }`, target.Bash)
	if !strings.Contains(script, "__sh2_status") {
		t.Errorf("expected the shared status() variable to appear:\n%s", script)
	}
}

func TestCompilePipelineAllowFailDoesNotPromoteStatus(t *testing.T) {
	// spec.md §5: an allow_fail segment's failure is observed but
	// never promoted to the pipeline's own status, on either target;
	// this needs the per-segment status-file capture path, not a bare
	// `|` pipeline.
	src := `func main(){ run("false",allow_fail=true) | run("cat") }`
	for _, tgt := range []target.Shell{target.Bash, target.Posix} {
		script := compileOK(t, src, tgt)
		if !strings.Contains(script, "__sh2_pstatus") {
			t.Errorf("%s: expected the general pipeline status-capture path, got:\n%s", tgt, script)
		}
		if !strings.Contains(script, "mktemp -d") {
			t.Errorf("%s: expected each segment's status to be captured via a temp dir, got:\n%s", tgt, script)
		}
	}
}

func TestCompilePipelineFastPathUnderBashWithoutAllowFail(t *testing.T) {
	// Without any allow_fail segment, Bash's native `pipefail` already
	// gives the right status, so no status-capture machinery is needed.
	script := compileOK(t, `func main(){ run("false") | run("cat") }`, target.Bash)
	if strings.Contains(script, "__sh2_pstatus") {
		t.Errorf("expected the plain-pipe fast path under bash, got:\n%s", script)
	}
	if !strings.Contains(script, "false | cat") {
		t.Errorf("expected a plain '|' pipeline, got:\n%s", script)
	}
}

func TestCompileWaitAllReportsFirstNonzeroInListOrder(t *testing.T) {
	src := `func main(){
		let p1 = spawn(run("true"))
		let p2 = spawn(run("false"))
		wait_all([p1, p2])
	}`
	script := compileOK(t, src, target.Bash)
	if !strings.Contains(script, "for __sh2_wpid in $__sh2_wlist") {
		t.Errorf("expected wait_all to iterate its pid list in order, got:\n%s", script)
	}
	if !strings.Contains(script, "__sh2_wstatus") {
		t.Errorf("expected wait_all to track a first-nonzero status variable, got:\n%s", script)
	}
}

func TestCompileTryRunDoesNotAbortScript(t *testing.T) {
	// try_run must never abort the script even under `set -e` (spec.md
	// §4.3/§8); the assignment has to be shielded as an if-condition.
	script := compileOK(t, `func main(){ let r = try_run("sh","-c","exit 7"); print(r.status) }`, target.Bash)
	if !strings.Contains(script, "if __sh2_r_stdout=$(") {
		t.Errorf("expected try_run's capture to be guarded by an if, got:\n%s", script)
	}
}

func TestCompileArithWithNonTrivialOperandsEmitsNoDoubleDollar(t *testing.T) {
	// A command-substitution-shaped or quoted-variable operand must
	// not get a spurious leading '$' on top of its own rendering
	// (that form, `$"..."`/`$'...'`, is bash's locale-string/ANSI-C
	// quote syntax, never valid inside `$(( ))`).
	cases := []string{
		`func main(){ let n = len("hi") + 1; print(n) }`,
		`func main(){ let n = arg(1) + arg(2); print(n) }`,
		`func main(){ let n = status() + 1; print(n) }`,
	}
	for _, src := range cases {
		script := compileOK(t, src, target.Bash)
		if strings.Contains(script, `$"`) || strings.Contains(script, `$'`) {
			t.Errorf("arithmetic operand produced a double-dollar form:\n%s", script)
		}
	}
}

func TestCompileDeterministic(t *testing.T) {
	src := `func main(){
		let x = 1
		if x == 1 { print("one") } else { print("other") }
		for i in ["a", "b", "c"] { print(i) }
	}`
	a := compileOK(t, src, target.Bash)
	b := compileOK(t, src, target.Bash)
	if a != b {
		t.Errorf("compiling identical source twice produced different output")
	}
}

func TestCompilePosixRejectsBashOnlyFeature(t *testing.T) {
	path := writeSrc(t, `func main(){ let m = {"a": "b"}; print(m["a"]) }`)
	_, diag := Compile(path, Options{Target: target.Posix, Mode: ModeEmitSh})
	if diag == nil {
		t.Fatal("expected a target-capability diagnostic for a map literal under posix")
	}
	if diag.Phase != "target" {
		t.Errorf("diagnostic phase = %q, want \"target\"", diag.Phase)
	}
}

func TestCompileUndeclaredSetIsBindError(t *testing.T) {
	path := writeSrc(t, `func main(){ set x = 1 }`)
	_, diag := Compile(path, Options{Target: target.Bash, Mode: ModeEmitSh})
	if diag == nil {
		t.Fatal("expected a bind error for 'set' with no preceding 'let'")
	}
	if diag.Phase != "bind" {
		t.Errorf("diagnostic phase = %q, want \"bind\"", diag.Phase)
	}
	if diag.Help == "" {
		t.Error("expected a 'did you mean let x = ...?' hint")
	}
}

func TestCompileCheckModeProducesNoScript(t *testing.T) {
	path := writeSrc(t, `func main(){ print("hi") }`)
	res, diag := Compile(path, Options{Target: target.Bash, Mode: ModeCheck})
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %s", diag.Message)
	}
	if res.Script != "" {
		t.Errorf("ModeCheck produced a script: %q", res.Script)
	}
}

func TestCompileImportCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.sh2")
	b := filepath.Join(dir, "b.sh2")
	if err := os.WriteFile(a, []byte(`import "b.sh2"
func main(){ }`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte(`import "a.sh2"
func helper(){ }`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, diag := Compile(a, Options{Target: target.Bash, Mode: ModeEmitSh})
	if diag == nil {
		t.Fatal("expected an import cycle diagnostic")
	}
	if !strings.Contains(diag.Message, "cycle") {
		t.Errorf("diagnostic message = %q, want it to mention a cycle", diag.Message)
	}
}

func TestCompileDiagnosticFormatting(t *testing.T) {
	path := writeSrc(t, "func main(){ set x = 1 }")
	_, diag := Compile(path, Options{Target: target.Bash, Mode: ModeEmitSh})
	if diag == nil {
		t.Fatal("expected a diagnostic")
	}
	if diag.Message == "" {
		t.Error("diagnostic has no message")
	}
	if diag.Span.Start == 0 && diag.Span.End == 0 {
		t.Error("diagnostic span was never set")
	}
}
