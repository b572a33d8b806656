package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sh2lang/sh2c/internal/source"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSingleFileNoImports(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.sh2", `func main() { print("hi") }`)

	l := New(&source.FileSet{})
	prog, diag := l.Load(entry)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %s", diag.Message)
	}
	if len(prog.Functions) != 1 || prog.Functions[0].Name != "main" {
		t.Fatalf("Functions = %+v, want [main]", prog.Functions)
	}
}

func TestLoadMergesBareImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.sh2", `func helper() { print("h") }`)
	entry := writeFile(t, dir, "main.sh2", `import "util.sh2"
func main() { helper() }`)

	l := New(&source.FileSet{})
	prog, diag := l.Load(entry)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %s", diag.Message)
	}
	if len(prog.Functions) != 2 {
		t.Fatalf("got %d functions, want 2 (main + helper)", len(prog.Functions))
	}
	entryScope := prog.Scopes[prog.EntryPath]
	if _, ok := entryScope.Names["helper"]; !ok {
		t.Error("entry file's scope does not expose bare 'helper' from the import")
	}
}

func TestLoadAliasedImportRequiresDottedName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.sh2", `func helper() { print("h") }`)
	entry := writeFile(t, dir, "main.sh2", `import "util.sh2" as util
func main() { util.helper() }`)

	l := New(&source.FileSet{})
	prog, diag := l.Load(entry)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %s", diag.Message)
	}
	entryScope := prog.Scopes[prog.EntryPath]
	if _, ok := entryScope.Names["helper"]; ok {
		t.Error("aliased import must not expose a bare name")
	}
	if _, ok := entryScope.Names["util.helper"]; !ok {
		t.Error("aliased import must expose 'util.helper'")
	}
}

func TestLoadImportCycleIsDetected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sh2", `import "b.sh2"
func fromA() { }`)
	entry := writeFile(t, dir, "b.sh2", `import "a.sh2"
func fromB() { }`)

	l := New(&source.FileSet{})
	_, diag := l.Load(entry)
	if diag == nil {
		t.Fatal("expected an import cycle diagnostic")
	}
	if diag.Phase != source.PhaseImport {
		t.Errorf("Phase = %q, want import", diag.Phase)
	}
}

func TestLoadDuplicateBareNameWithoutAliasFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sh2", `func shared() { print("a") }`)
	writeFile(t, dir, "b.sh2", `func shared() { print("b") }`)
	entry := writeFile(t, dir, "main.sh2", `import "a.sh2"
import "b.sh2"
func main() { shared() }`)

	l := New(&source.FileSet{})
	_, diag := l.Load(entry)
	if diag == nil {
		t.Fatal("expected a duplicate-name diagnostic")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	dir := t.TempDir()
	l := New(&source.FileSet{})
	_, diag := l.Load(filepath.Join(dir, "does-not-exist.sh2"))
	if diag == nil {
		t.Fatal("expected a diagnostic for a missing entry file")
	}
	if diag.Phase != source.PhaseImport {
		t.Errorf("Phase = %q, want import", diag.Phase)
	}
}
