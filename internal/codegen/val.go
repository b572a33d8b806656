package codegen

import (
	"strconv"
	"strings"

	"github.com/sh2lang/sh2c/internal/ir"
)

// renderArgv joins a sequence of Vals into a space-separated argv,
// each word individually quoted by renderVal.
func (g *Generator) renderArgv(vals []ir.Val) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = g.renderVal(v)
	}
	return strings.Join(parts, " ")
}

// boolToStr lifts a test expression (as renderCond would produce) into
// a command substitution yielding the runtime bool encoding "1"/"0".
func boolToStr(cond string) string {
	return `"$(if ` + cond + `; then printf 1; else printf 0; fi)"`
}

// renderVal renders v as a single already-quoted shell word, suitable
// for direct use as an assignment RHS or an argv element.
func (g *Generator) renderVal(v ir.Val) string {
	switch n := v.(type) {
	case *ir.Literal:
		return g.q.Quote(n.S)
	case *ir.Var:
		return g.q.QuoteVar("$" + n.Name)
	case *ir.BoolVar:
		return g.q.QuoteVar("$" + n.Name)
	case *ir.Number:
		return strconv.FormatInt(n.V, 10)
	case *ir.Bool:
		if n.V {
			return "1"
		}
		return "0"
	case *ir.Concat:
		return g.renderVal(n.Left) + g.renderVal(n.Right)
	case *ir.Arith:
		return `"$(( ` + g.renderArith(n.Left) + " " + string(n.Op) + " " + g.renderArith(n.Right) + ` ))"`
	case *ir.Compare, *ir.And, *ir.Or, *ir.Not, *ir.FSPredicate,
		*ir.ContainsList, *ir.ContainsSubstring, *ir.ContainsLine, *ir.StartsWith, *ir.Matches:
		return boolToStr(g.renderCond(v))
	case *ir.Len:
		return `"$(printf '%s' ` + g.renderVal(n.X) + ` | wc -c | tr -d ' ')"`
	case *ir.Arg:
		return g.q.QuoteVar("$" + strconv.FormatInt(n.N, 10))
	case *ir.ArgDynamic:
		g.used.Use("arg_by_index")
		return `"$(__sh2_arg_by_index ` + g.renderVal(n.Index) + ` "$@")"`
	case *ir.Args:
		return `"$@"`
	case *ir.ArgC:
		return g.q.QuoteVar("$#")
	case *ir.Argv0:
		return g.q.QuoteVar("$0")
	case *ir.Status:
		return g.q.QuoteVar("$__sh2_status")
	case *ir.Pid:
		return g.q.QuoteVar("$$")
	case *ir.Uid:
		return `"$(id -u)"`
	case *ir.Ppid:
		return g.q.QuoteVar("$PPID")
	case *ir.Env:
		return `"$(__sh2_env_name=` + g.renderVal(n.Name) + `; eval printf '%s' "\"\$$__sh2_env_name\"")"`
	case *ir.EnvDot:
		return g.q.QuoteVar("${" + n.Name + ":-}")
	case *ir.List:
		parts := make([]string, len(n.Elems))
		for i, e := range n.Elems {
			parts[i] = g.renderVal(e)
		}
		return `"$(printf '%s\n' ` + strings.Join(parts, " ") + `)"`
	case *ir.MapLiteral:
		// Only reachable outside the Assign special case this file
		// doesn't otherwise handle; render as a newline list of
		// "key=value" pairs as a best effort.
		parts := make([]string, len(n.Entries))
		for i, e := range n.Entries {
			parts[i] = g.q.Quote(e.Key + "=") + g.renderVal(e.Value)
		}
		return `"$(printf '%s\n' ` + strings.Join(parts, " ") + `)"`
	case *ir.MapIndex:
		return g.q.QuoteVar("${" + n.Map + "[" + g.renderMapKey(n.Key) + "]}")
	case *ir.Call:
		g.used.Use(n.Name)
		return `"$(__sh2_` + n.Name + " " + g.renderArgv(n.Args) + `)"`
	case *ir.FuncCall:
		return `"$(` + n.Name + " " + g.renderArgv(n.Args) + `)"`
	case *ir.Which:
		g.used.Use("which")
		return `"$(__sh2_which ` + g.renderVal(n.Name) + `)"`
	case *ir.Home:
		g.used.Use("home")
		return `"$(__sh2_home)"`
	case *ir.PathJoin:
		g.used.Use("path_join")
		return `"$(__sh2_path_join ` + g.renderArgv(n.Parts) + `)"`
	case *ir.ReadFile:
		g.used.Use("read_file")
		return `"$(__sh2_read_file ` + g.renderVal(n.Path) + `)"`
	case *ir.LoadEnvfile:
		g.used.Use("load_envfile")
		return `"$(__sh2_load_envfile ` + g.renderVal(n.Path) + `)"`
	case *ir.JsonKv:
		g.used.Use("json_kv")
		return `"$(__sh2_json_kv ` + g.renderVal(n.JSON) + " " + g.renderVal(n.Key) + `)"`
	case *ir.ParseArgs:
		g.used.Use("parse_args")
		return `"$(__sh2_parse_args "$@")"`
	case *ir.StdinLines:
		return `"$(cat)"`
	case *ir.Find0:
		return g.renderFind0AsLines(n)
	case *ir.Glob:
		return g.renderGlobAsLines(n)
	case *ir.ArgsFlags:
		return g.q.QuoteVar("$__sh2_flags")
	case *ir.ArgsPositionals:
		return g.q.QuoteVar("$__sh2_positionals")
	case *ir.Confirm:
		g.used.Use("confirm")
		def := "0"
		if n.Default {
			def = "1"
		}
		return boolToStr("__sh2_confirm " + g.renderVal(n.Prompt) + " " + def)
	case *ir.Split:
		g.used.Use("split")
		return `"$(__sh2_split ` + g.renderVal(n.S) + " " + g.renderVal(n.Delim) + `)"`
	case *ir.Lines:
		return g.renderVal(n.X)
	case *ir.Index:
		return `"$(printf '%s\n' ` + g.renderVal(n.List) + ` | sed -n "$(( ` + g.renderArith(n.Index) + ` + 1 ))p")"`
	case *ir.Capture:
		return g.renderCaptureVal(n)
	case *ir.TryRun:
		// Falls back to a plain capture of stdout; the status/stderr
		// halves are only reachable through a let binding, which
		// cmd.go's Assign case intercepts before this is ever called.
		return g.renderCaptureVal(&ir.Capture{Segs: [][]ir.Val{n.Segs}})
	case *ir.TryRunField:
		return g.renderTryRunField(n)
	default:
		return `""`
	}
}

// renderArith renders v for use inside a `$(( ))` arithmetic context,
// where variable reads don't need the leading $ and nested arithmetic
// doesn't need re-wrapping.
func (g *Generator) renderArith(v ir.Val) string {
	switch n := v.(type) {
	case *ir.Var:
		return "$" + n.Name
	case *ir.BoolVar:
		return "$" + n.Name
	case *ir.Number:
		return strconv.FormatInt(n.V, 10)
	case *ir.Arith:
		return "(" + g.renderArith(n.Left) + " " + string(n.Op) + " " + g.renderArith(n.Right) + ")"
	default:
		// Every other Val already renders as a complete, valid
		// arithmetic operand on its own: a command substitution
		// (`len`, `arg(n)`/`arg(expr)`, `env(...)`, `status()`, a
		// user/prelude call, a capture, ...) is already numeric in
		// `$(( ))` context, and a `"$name"`/`"${...}"` variable read
		// only needs the double quotes stripped to match the bare
		// `$name` form the Var/BoolVar cases above use — prepending a
		// further `$` (as this case used to) produces `$"$(...)"` or
		// `$"$name"`, bash's locale-string/ANSI-C-quote syntax, never
		// valid inside arithmetic.
		s := g.renderVal(v)
		if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
			return s[1 : len(s)-1]
		}
		return s
	}
}

func (g *Generator) renderMapKey(v ir.Val) string {
	if lit, ok := v.(*ir.Literal); ok {
		return lit.S
	}
	return g.renderArith(v)
}

// renderCond renders v as a bare test expression usable directly after
// `if`/`while` (no surrounding command substitution).
func (g *Generator) renderCond(v ir.Val) string {
	switch n := v.(type) {
	case *ir.Compare:
		switch n.Op {
		case ir.CmpEq:
			return "[ " + g.renderVal(n.Left) + " = " + g.renderVal(n.Right) + " ]"
		case ir.CmpNe:
			return "[ " + g.renderVal(n.Left) + " != " + g.renderVal(n.Right) + " ]"
		case ir.CmpLt:
			return "[ " + g.renderVal(n.Left) + " -lt " + g.renderVal(n.Right) + " ]"
		case ir.CmpLe:
			return "[ " + g.renderVal(n.Left) + " -le " + g.renderVal(n.Right) + " ]"
		case ir.CmpGt:
			return "[ " + g.renderVal(n.Left) + " -gt " + g.renderVal(n.Right) + " ]"
		case ir.CmpGe:
			return "[ " + g.renderVal(n.Left) + " -ge " + g.renderVal(n.Right) + " ]"
		}
	case *ir.And:
		return g.renderCond(n.Left) + " && " + g.renderCond(n.Right)
	case *ir.Or:
		return g.renderCond(n.Left) + " || " + g.renderCond(n.Right)
	case *ir.Not:
		return "! " + g.renderCond(n.X)
	case *ir.FSPredicate:
		flag := fsFlag(n.Kind)
		return "[ " + flag + " " + g.renderVal(n.Path) + " ]"
	case *ir.BoolVar:
		return "[ " + g.q.QuoteVar("$"+n.Name) + " = 1 ]"
	case *ir.Bool:
		if n.V {
			return "true"
		}
		return "false"
	case *ir.ContainsList:
		g.used.Use("contains_list")
		return "__sh2_contains_list " + g.renderVal(n.List) + " " + g.renderVal(n.Needle)
	case *ir.ContainsSubstring:
		g.used.Use("contains_substr")
		return "__sh2_contains_substr " + g.renderVal(n.Haystack) + " " + g.renderVal(n.Needle)
	case *ir.ContainsLine:
		g.used.Use("contains_line")
		return "__sh2_contains_line " + g.renderVal(n.File) + " " + g.renderVal(n.Needle)
	case *ir.StartsWith:
		g.used.Use("starts_with")
		return "__sh2_starts_with " + g.renderVal(n.Text) + " " + g.renderVal(n.Prefix)
	case *ir.Matches:
		g.used.Use("matches")
		return "__sh2_matches " + g.renderVal(n.Text) + " " + g.renderVal(n.Pattern)
	}
	// Fallback: test the rendered value for non-emptiness (truthiness).
	return "[ -n " + g.renderVal(v) + " ]"
}

func fsFlag(k ir.FSPredicateKind) string {
	switch k {
	case ir.PredExists:
		return "-e"
	case ir.PredIsDir:
		return "-d"
	case ir.PredIsFile:
		return "-f"
	case ir.PredIsSymlink:
		return "-L"
	case ir.PredIsExec:
		return "-x"
	case ir.PredIsReadable:
		return "-r"
	case ir.PredIsWritable:
		return "-w"
	case ir.PredIsNonEmpty:
		return "-s"
	default:
		return "-e"
	}
}

func (g *Generator) renderCaptureVal(c *ir.Capture) string {
	segs := make([]string, len(c.Segs))
	for i, seg := range c.Segs {
		segs[i] = g.renderArgv(seg)
	}
	inner := strings.Join(segs, " | ")
	if c.AllowFail {
		return `"$(` + inner + ` || true)"`
	}
	return `"$(` + inner + `)"`
}

func (g *Generator) renderFind0AsLines(n *ir.Find0) string {
	g.used.Use("find0")
	dir := `'.'`
	if n.HasDir {
		dir = g.renderVal(n.Dir)
	}
	name := `''`
	if n.HasName {
		name = g.renderVal(n.Name)
	}
	typ := `''`
	if n.HasType {
		typ = g.q.Quote(n.Type)
	}
	maxdepth := `''`
	if n.HasMaxdepth {
		maxdepth = g.renderVal(n.Maxdepth)
	}
	return `"$(__sh2_find0 ` + dir + " " + name + " " + typ + " " + maxdepth + ` | tr '\0' '\n')"`
}

func (g *Generator) renderGlobAsLines(n *ir.Glob) string {
	pat := g.renderVal(n.Pattern)
	return `"$(for __sh2_g in ` + pat + `; do [ -e "$__sh2_g" ] && printf '%s\n' "$__sh2_g"; done)"`
}

func (g *Generator) renderTryRunField(n *ir.TryRunField) string {
	switch n.Field {
	case ir.FieldStatus:
		return g.q.QuoteVar("$__sh2_" + n.Var + "_status")
	case ir.FieldStdout:
		return g.q.QuoteVar("$__sh2_" + n.Var + "_stdout")
	case ir.FieldStderr:
		return g.q.QuoteVar("$__sh2_" + n.Var + "_stderr")
	case ir.FieldFlags:
		return g.q.QuoteVar("$__sh2_flags")
	case ir.FieldPositionals:
		return g.q.QuoteVar("$__sh2_positionals")
	default:
		return `""`
	}
}
