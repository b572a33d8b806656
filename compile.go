// Package sh2c compiles sh2, a small safe scripting language, to POSIX
// sh or Bash. Compile is the single entry point for callers (the module
// builds no CLI binary); everything else in this module is an internal
// pipeline stage.
package sh2c

import (
	"fmt"

	"github.com/sh2lang/sh2c/internal/binder"
	"github.com/sh2lang/sh2c/internal/codegen"
	"github.com/sh2lang/sh2c/internal/ir"
	"github.com/sh2lang/sh2c/internal/loader"
	"github.com/sh2lang/sh2c/internal/lowerer"
	"github.com/sh2lang/sh2c/internal/source"
	"github.com/sh2lang/sh2c/internal/target"
)

// Mode selects what Compile returns (spec.md §6's four compile modes):
// the fully rendered shell script, a debug dump of one of the two
// intermediate representations, or a diagnostics-only check.
type Mode int

const (
	ModeEmitSh Mode = iota
	ModeEmitAST
	ModeEmitIR
	ModeCheck
)

// Options configures one compilation.
type Options struct {
	Target             target.Shell
	Mode               Mode
	BaseDir            source.BaseDir
	IncludeDiagnostics bool // install the __sh2_loc diagnostic trap
}

// Result is what Compile returns for a successful run. Script is empty
// for ModeCheck.
type Result struct {
	Script string
}

// Compile reads entryPath and every file it imports, resolves and
// type-checks variable usage, lowers to IR, and (unless Mode is
// ModeCheck) renders the target shell dialect.
func Compile(entryPath string, opts Options) (*Result, *source.Diagnostic) {
	files := &source.FileSet{}

	ld := loader.New(files)
	prog, diag := ld.Load(entryPath)
	if diag != nil {
		return nil, diag
	}

	if diag := binder.Bind(prog); diag != nil {
		return nil, diag
	}

	if opts.Mode == ModeEmitAST {
		return &Result{Script: dumpAST(prog)}, nil
	}

	irProg, diag := lowerer.Lower(prog, files, opts.BaseDir, opts.Target, opts.IncludeDiagnostics)
	if diag != nil {
		return nil, diag
	}

	switch opts.Mode {
	case ModeCheck:
		return &Result{}, nil
	case ModeEmitIR:
		return &Result{Script: dumpIR(irProg)}, nil
	}

	script, err := codegen.Generate(irProg, opts.Target, opts.IncludeDiagnostics)
	if err != nil {
		return nil, &source.Diagnostic{Phase: source.PhaseCodegen, Message: err.Error()}
	}
	return &Result{Script: script}, nil
}

// dumpAST renders every resolved function's syntax tree with Go's
// struct-printer verb rather than a bespoke pretty-printer; --emit=ast
// is a debugging aid, not part of the stable output contract.
func dumpAST(prog *loader.Program) string {
	var b []byte
	for _, fn := range prog.Functions {
		b = fmt.Appendf(b, "%+v\n", fn)
	}
	if len(prog.Entry.TopLevel) > 0 {
		b = fmt.Appendf(b, "main: %+v\n", prog.Entry.TopLevel)
	}
	return string(b)
}

func dumpIR(prog *ir.Program) string {
	var b []byte
	for _, fn := range prog.Functions {
		b = fmt.Appendf(b, "%+v\n", fn)
	}
	return string(b)
}
