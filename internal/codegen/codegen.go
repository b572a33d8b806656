// Package codegen walks a lowered ir.Program and renders it as POSIX
// sh or Bash source text (spec.md §4.7). It is the mirror image of
// internal/lowerer: lowerer turns syntax into typed IR, codegen turns
// typed IR back into syntax, one dialect at a time.
package codegen

import (
	"strconv"
	"strings"

	"github.com/sh2lang/sh2c/internal/ir"
	"github.com/sh2lang/sh2c/internal/prelude"
	"github.com/sh2lang/sh2c/internal/target"
)

// Generator holds the per-compilation state a full ir.Program render
// accumulates: which target dialect to emit, whether the diagnostic
// trap is active, and which prelude helpers ended up used.
type Generator struct {
	tgt  target.Shell
	diag bool
	used prelude.Set
	q    Quoter
}

func New(tgt target.Shell, diag bool) *Generator {
	return &Generator{tgt: tgt, diag: diag, used: prelude.Set{}}
}

// Generate renders prog to shell source and runs it through Lint
// before returning. The script is returned even when Lint fails, so a
// caller with --emit=sh can still inspect the bad output.
func Generate(prog *ir.Program, tgt target.Shell, diag bool) (string, error) {
	g := New(tgt, diag)
	return g.generate(prog)
}

func (g *Generator) generate(prog *ir.Program) (string, error) {
	// Functions are rendered first so the walk can mark every prelude
	// helper it touches before the helper section is assembled.
	var body strings.Builder
	for _, fn := range prog.Functions {
		g.renderFunction(&body, fn)
		body.WriteString("\n")
	}

	var out strings.Builder
	out.WriteString(g.shebang())
	if g.tgt == target.Bash {
		out.WriteString("set -euo pipefail\n")
	} else {
		out.WriteString("set -eu\n")
	}
	out.WriteString("\n")

	if g.diag {
		out.WriteString("__sh2_loc=\n")
		if g.tgt == target.Bash {
			out.WriteString("__sh2_err() { echo \"Error in ${__sh2_loc:-<unknown>}\" >&2; }\n")
			out.WriteString("trap '__sh2_err' ERR\n")
		}
		out.WriteString("\n")
	}

	if helpers := prelude.Render(g.used); helpers != "" {
		out.WriteString(helpers)
	}

	out.WriteString(body.String())

	if hasMain(prog) {
		out.WriteString("main \"$@\"\n")
	}

	script := out.String()
	if err := Lint(script, g.tgt); err != nil {
		return script, err
	}
	return script, nil
}

func hasMain(prog *ir.Program) bool {
	for _, fn := range prog.Functions {
		if fn.Name == "main" {
			return true
		}
	}
	return false
}

func (g *Generator) shebang() string {
	if g.tgt == target.Bash {
		return "#!/usr/bin/env bash\n"
	}
	return "#!/bin/sh\n"
}

func (g *Generator) renderFunction(out *strings.Builder, fn *ir.Function) {
	out.WriteString(fn.Name)
	out.WriteString("() {\n")
	for i, p := range fn.Params {
		out.WriteString("\t")
		out.WriteString(p)
		out.WriteString("=$")
		out.WriteString(strconv.Itoa(i + 1))
		out.WriteString("\n")
	}
	g.renderCmds(out, fn.Commands, "\t")
	out.WriteString("}\n")
}
