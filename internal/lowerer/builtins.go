package lowerer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sh2lang/sh2c/internal/ast"
	"github.com/sh2lang/sh2c/internal/ir"
	"github.com/sh2lang/sh2c/internal/source"
)

// restrictedMisc names a handful of misc builtins that are only valid in a
// narrow syntactic position (spec.md §4.6): the RHS of a single let, or
// a for-loop's iterable. try_run and allow_fail-captures carry the
// same restriction but aren't ast.Misc, so they're checked separately
// in lowerExpr.
var restrictedMisc = map[string]bool{
	"find0": true, "stdin_lines": true, "glob": true,
}

// preludeBuiltins are ast.Misc names with no dedicated ir.Val: they
// lower straight to ir.Call{Name, Args}, one runtime helper per name
// (spec.md §4.8 plus the SPEC_FULL.md §4 recoveries).
var preludeBuiltins = map[string]bool{
	"trim": true, "before": true, "after": true, "replace": true,
	"coalesce": true, "default": true,
}

func namedLookup(named []ast.NamedArg, name string) (ast.Expr, bool) {
	for _, n := range named {
		if n.Name == name {
			return n.Value, true
		}
	}
	return nil, false
}

// checkNamedArgs enforces at-most-once-per-name and rejects any name
// outside allowed, returning a name->value map for callers to pull
// literal values from. callName is used only for diagnostic text.
func (l *Lowerer) checkNamedArgs(named []ast.NamedArg, allowed []string, callName string, sp source.Span) map[string]ast.NamedArg {
	allowedSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = true
	}
	seen := map[string]ast.NamedArg{}
	for _, n := range named {
		if !allowedSet[n.Name] {
			sort.Strings(allowed)
			l.failLower(n.Span, fmt.Sprintf("%s: unknown named argument '%s'", callName, n.Name),
				fmt.Sprintf("supported: %s", strings.Join(allowed, ", ")))
			return seen
		}
		if _, dup := seen[n.Name]; dup {
			l.failLower(n.Span, fmt.Sprintf("%s: named argument '%s' given more than once", callName, n.Name), "")
			return seen
		}
		seen[n.Name] = n
	}
	return seen
}

func litBool(e ast.Expr) (bool, bool) {
	b, ok := e.(*ast.BoolLit)
	if !ok {
		return false, false
	}
	return b.Value, true
}

func litString(e ast.Expr) (string, bool) {
	s, ok := e.(*ast.StringLit)
	if !ok {
		return "", false
	}
	return s.Value, true
}

func litInt(e ast.Expr) (int64, bool) {
	n, ok := e.(*ast.IntLit)
	if !ok {
		return 0, false
	}
	return n.Value, true
}

func litStringList(e ast.Expr) ([]string, bool) {
	lst, ok := e.(*ast.ListLit)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(lst.Elems))
	for _, el := range lst.Elems {
		s, ok := el.(*ast.StringLit)
		if !ok {
			return nil, false
		}
		out = append(out, s.Value)
	}
	return out, true
}

// wantBool resolves a required-literal-kind named argument, failing
// lowering with a kind-mismatch diagnostic when the value isn't the
// literal kind the builtin expects (spec.md §4.6: named values must be
// literal, never a variable or expression).
func (l *Lowerer) wantBool(na ast.NamedArg, callName string) bool {
	v, ok := litBool(na.Value)
	if !ok {
		l.failLower(na.Value.Span(), fmt.Sprintf("%s: '%s' must be a literal bool", callName, na.Name), "")
		return false
	}
	return v
}

func (l *Lowerer) wantString(na ast.NamedArg, callName string) string {
	v, ok := litString(na.Value)
	if !ok {
		l.failLower(na.Value.Span(), fmt.Sprintf("%s: '%s' must be a literal string", callName, na.Name), "")
		return ""
	}
	return v
}

func (l *Lowerer) wantInt(na ast.NamedArg, callName string) int64 {
	v, ok := litInt(na.Value)
	if !ok {
		l.failLower(na.Value.Span(), fmt.Sprintf("%s: '%s' must be a literal int", callName, na.Name), "")
		return 0
	}
	return v
}

func (l *Lowerer) wantStringList(na ast.NamedArg, callName string) []string {
	v, ok := litStringList(na.Value)
	if !ok {
		l.failLower(na.Value.Span(), fmt.Sprintf("%s: '%s' must be a literal list of strings", callName, na.Name), "")
		return nil
	}
	return v
}

// sudoArgv expands a sudo invocation's accumulated flags and wrapped
// command into the literal argv codegen renders — sudo has no
// dedicated IR node (lowerer.go); it's just another []ir.Val argv.
func (l *Lowerer) sudoArgv(spec *ast.SudoSpec, sp source.Span, ctx ctxKind) []ir.Val {
	argv := []ir.Val{&ir.Literal{S: "sudo"}}
	if spec.HasN {
		if b, ok := litBool(spec.N); ok && b {
			argv = append(argv, &ir.Literal{S: "-n"})
		} else if !ok {
			l.failLower(spec.N.Span(), "sudo: 'n' must be a literal bool", "")
		}
	}
	if spec.HasUser {
		argv = append(argv, &ir.Literal{S: "-u"}, &ir.Literal{S: spec.User})
	}
	if len(spec.EnvKeep) > 0 {
		argv = append(argv, &ir.Literal{S: "--preserve-env=" + strings.Join(spec.EnvKeep, ",")})
	}
	if spec.HasAllowFail && ctx != ctxStmt {
		l.failLower(sp, "sudo: 'allow_fail' is only valid in statement position, not inside capture(...)", "")
	}
	argv = append(argv, &ir.Literal{S: "--"})
	if spec.Name != "" {
		argv = append(argv, &ir.Literal{S: spec.Name})
	}
	for _, a := range spec.Args {
		argv = append(argv, l.lowerExpr(a, ctxNone))
	}
	return argv
}
