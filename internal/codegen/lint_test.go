package codegen

import (
	"strings"
	"testing"

	"github.com/sh2lang/sh2c/internal/target"
)

func TestLintAcceptsPlainPosixScript(t *testing.T) {
	script := "#!/bin/sh\nprintf '%s\\n' 'hi'\n"
	if err := Lint(script, target.Posix); err != nil {
		t.Errorf("unexpected lint failure: %v", err)
	}
}

func TestLintRejectsBashArrayUnderPosix(t *testing.T) {
	script := "#!/bin/sh\ndeclare -a x\n"
	err := Lint(script, target.Posix)
	if err == nil {
		t.Fatal("expected a lint error for 'declare' under posix")
	}
	if !strings.Contains(err.Error(), "bash-only construct") {
		t.Errorf("error = %v, want it to name the bash-only construct", err)
	}
}

func TestLintRejectsDoubleBracketUnderPosix(t *testing.T) {
	script := "#!/bin/sh\nif [[ -n \"$x\" ]]; then :; fi\n"
	if err := Lint(script, target.Posix); err == nil {
		t.Fatal("expected a lint error for [[ ]] under posix")
	}
}

func TestLintAllowsBashArrayUnderBash(t *testing.T) {
	script := "#!/usr/bin/env bash\ndeclare -a x=(1 2 3)\n"
	if err := Lint(script, target.Bash); err != nil {
		t.Errorf("unexpected lint failure for bash target: %v", err)
	}
}

func TestLintCatchesStructurallyInvalidShell(t *testing.T) {
	script := "#!/usr/bin/env bash\nif true; then\n"
	if err := Lint(script, target.Bash); err == nil {
		t.Fatal("expected a structural parse error for an unterminated if")
	}
}
