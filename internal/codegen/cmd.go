package codegen

import (
	"strconv"
	"strings"

	"github.com/sh2lang/sh2c/internal/ir"
	"github.com/sh2lang/sh2c/internal/target"
)

func (g *Generator) renderCmds(out *strings.Builder, cmds []ir.Cmd, indent string) {
	for _, c := range cmds {
		g.renderCmd(out, c, indent)
	}
}

func (g *Generator) writeLoc(out *strings.Builder, indent, loc string) {
	if g.diag && loc != "" {
		out.WriteString(indent + "__sh2_loc=" + g.q.Quote(loc) + "\n")
	}
}

// guardedLine emits a single external-command line, wrapped in the
// POSIX target's explicit diagnostic guard when diagnostics are on
// (spec.md §4.7); under Bash the installed ERR trap covers it instead.
func (g *Generator) guardedLine(out *strings.Builder, indent, argv string) {
	if g.diag && g.tgt == target.Posix {
		out.WriteString(indent + "if ! " + argv + "; then echo \"Error in ${__sh2_loc:-<unknown>}\" >&2; exit 1; fi\n")
		return
	}
	out.WriteString(indent + argv + "\n")
}

func (g *Generator) allowFailLine(out *strings.Builder, indent, argv string) {
	out.WriteString(indent + "if " + argv + "; then\n")
	out.WriteString(indent + "\t__sh2_status=0\n")
	out.WriteString(indent + "else\n")
	out.WriteString(indent + "\t__sh2_status=$?\n")
	out.WriteString(indent + "fi\n")
}

func (g *Generator) renderCmd(out *strings.Builder, c ir.Cmd, indent string) {
	switch n := c.(type) {
	case *ir.Assign:
		g.writeLoc(out, indent, n.Loc)
		g.renderAssign(out, indent, n)

	case *ir.Exec:
		g.writeLoc(out, indent, n.Loc)
		argv := g.renderArgv(n.Args)
		if n.AllowFail {
			g.allowFailLine(out, indent, argv)
		} else {
			g.guardedLine(out, indent, argv)
		}

	case *ir.Print:
		out.WriteString(indent + "printf '%s\\n' " + g.renderVal(n.X) + "\n")

	case *ir.PrintErr:
		out.WriteString(indent + "printf '%s\\n' " + g.renderVal(n.X) + " >&2\n")

	case *ir.If:
		g.renderIf(out, indent, n)

	case *ir.Pipe:
		g.writeLoc(out, indent, n.Loc)
		g.renderPipe(out, indent, n)

	case *ir.PipeBlocks:
		g.writeLoc(out, indent, n.Loc)
		g.renderPipeBlocks(out, indent, n)

	case *ir.Case:
		g.renderCase(out, indent, n)

	case *ir.For:
		g.renderFor(out, indent, n)

	case *ir.ForMap:
		g.renderForMap(out, indent, n)

	case *ir.While:
		out.WriteString(indent + "while " + g.renderCond(n.Cond) + "; do\n")
		g.renderCmds(out, n.Body, indent+"\t")
		out.WriteString(indent + "done\n")

	case *ir.Break:
		out.WriteString(indent + "break\n")

	case *ir.Continue:
		out.WriteString(indent + "continue\n")

	case *ir.Return:
		if n.X == nil {
			out.WriteString(indent + "return\n")
		} else {
			out.WriteString(indent + "printf '%s' " + g.renderVal(n.X) + "\n" + indent + "return\n")
		}

	case *ir.Require:
		g.used.Use("require")
		out.WriteString(indent + "__sh2_require " + g.renderArgv(n.Names) + "\n")

	case *ir.Exit:
		out.WriteString(indent + "exit " + g.renderArith(n.Code) + "\n")

	case *ir.WithEnv:
		g.renderWithEnv(out, indent, n)

	case *ir.WithLog:
		g.renderWithLog(out, indent, n)

	case *ir.WithCwd:
		g.renderWithCwd(out, indent, n)

	case *ir.WriteFile:
		g.used.Use("write_file")
		app := "0"
		if n.Append {
			app = "1"
		}
		out.WriteString(indent + "printf '%s' " + g.renderVal(n.Content) + " | __sh2_write_file " + g.renderVal(n.Path) + " " + app + "\n")

	case *ir.Log:
		g.renderLog(out, indent, n)

	case *ir.Raw:
		// sh(...) is the one intentional escape hatch (spec.md §4.7):
		// the payload is rendered through the quoter exactly like any
		// other literal, but handed to an inner shell via -c rather
		// than executed as a word of the outer script, so outer-shell
		// expansion rules never apply to it — only the inner shell's
		// own expansion of the payload text does.
		g.writeLoc(out, indent, n.Loc)
		shellCmd := "bash"
		if g.tgt == target.Posix {
			shellCmd = "sh"
		}
		out.WriteString(indent + shellCmd + " -c " + g.renderVal(n.X) + " _\n")

	case *ir.CallCmd:
		out.WriteString(indent + n.Name + " " + g.renderArgv(n.Args) + "\n")

	case *ir.Subshell:
		out.WriteString(indent + "(\n")
		g.renderCmds(out, n.Body, indent+"\t")
		out.WriteString(indent + ")\n")

	case *ir.Group:
		out.WriteString(indent + "{\n")
		g.renderCmds(out, n.Body, indent+"\t")
		out.WriteString(indent + "}\n")

	case *ir.WithRedirect:
		g.renderWithRedirect(out, indent, n)

	case *ir.Spawn:
		g.renderSpawn(out, indent, n)

	case *ir.Wait:
		g.renderWait(out, indent, n)

	case *ir.TryCatch:
		out.WriteString(indent + "if (\n")
		g.renderCmds(out, n.Try, indent+"\t")
		out.WriteString(indent + "); then\n")
		out.WriteString(indent + "\t:\n")
		out.WriteString(indent + "else\n")
		g.renderCmds(out, n.Catch, indent+"\t")
		out.WriteString(indent + "fi\n")

	case *ir.AndThen:
		g.renderSeqJoin(out, indent, n.Left, n.Right, "&&")

	case *ir.OrElse:
		g.renderSeqJoin(out, indent, n.Left, n.Right, "||")

	case *ir.Export:
		if n.Value == nil {
			out.WriteString(indent + "export " + n.Name + "\n")
		} else {
			out.WriteString(indent + "export " + n.Name + "=" + g.renderVal(n.Value) + "\n")
		}

	case *ir.Unset:
		out.WriteString(indent + "unset " + n.Name + "\n")

	case *ir.Source:
		out.WriteString(indent + ". " + g.renderVal(n.Path) + "\n")

	case *ir.ExecReplace:
		g.writeLoc(out, indent, n.Loc)
		out.WriteString(indent + "exec " + g.renderArgv(n.Args) + "\n")

	case *ir.SaveEnvfile:
		g.renderSaveEnvfile(out, indent, n)
	}
}

func (g *Generator) renderAssign(out *strings.Builder, indent string, n *ir.Assign) {
	switch rhs := n.Value.(type) {
	case *ir.TryRun:
		// try_run must never abort the script (spec.md §4.3/§8): a
		// bare `x=$(cmd)` assignment is a simple command, so under
		// `set -e` a failing cmd would abort right here before the
		// status is captured. Guarding the assignment as an `if`
		// condition exempts it from errexit, same as the allow_fail
		// capture case below.
		g.used.Use("tmpfile")
		argv := g.renderArgv(rhs.Segs)
		tmp := "__sh2_" + n.Name + "_errf"
		out.WriteString(indent + tmp + "=\"$(__sh2_tmpfile)\"\n")
		out.WriteString(indent + "if __sh2_" + n.Name + "_stdout=$(" + argv + " 2>\"$" + tmp + "\"); then\n")
		out.WriteString(indent + "\t__sh2_" + n.Name + "_status=0\n")
		out.WriteString(indent + "else\n")
		out.WriteString(indent + "\t__sh2_" + n.Name + "_status=$?\n")
		out.WriteString(indent + "fi\n")
		out.WriteString(indent + "__sh2_" + n.Name + "_stderr=$(cat -- \"$" + tmp + "\")\n")
		out.WriteString(indent + "rm -f -- \"$" + tmp + "\"\n")

	case *ir.ParseArgs:
		g.used.Use("parse_args")
		out.WriteString(indent + "__sh2_parse_args \"$@\"\n")
		out.WriteString(indent + n.Name + "=1\n")

	case *ir.Capture:
		if rhs.AllowFail {
			argv := g.joinSegs(rhs.Segs)
			out.WriteString(indent + "if " + n.Name + "=$(" + argv + "); then\n")
			out.WriteString(indent + "\t__sh2_status=0\n")
			out.WriteString(indent + "else\n")
			out.WriteString(indent + "\t__sh2_status=$?\n")
			out.WriteString(indent + "fi\n")
			return
		}
		out.WriteString(indent + n.Name + "=" + g.renderVal(rhs) + "\n")

	case *ir.MapLiteral:
		parts := make([]string, len(rhs.Entries))
		for i, e := range rhs.Entries {
			parts[i] = "[" + g.q.Quote(e.Key) + "]=" + g.renderVal(e.Value)
		}
		out.WriteString(indent + "declare -A " + n.Name + "=(" + strings.Join(parts, " ") + ")\n")

	default:
		out.WriteString(indent + n.Name + "=" + g.renderVal(n.Value) + "\n")
	}
}

func (g *Generator) joinSegs(segs [][]ir.Val) string {
	// Renders an allow_fail capture's segments as one `a | b | c`
	// pipeline for the guarded assignment, as renderCaptureVal does.
	parts := make([]string, len(segs))
	for i, seg := range segs {
		parts[i] = g.renderArgv(seg)
	}
	return strings.Join(parts, " | ")
}

func (g *Generator) renderIf(out *strings.Builder, indent string, n *ir.If) {
	out.WriteString(indent + "if " + g.renderCond(n.Cond) + "; then\n")
	g.renderCmds(out, n.Then, indent+"\t")
	for _, e := range n.Elifs {
		out.WriteString(indent + "elif " + g.renderCond(e.Cond) + "; then\n")
		g.renderCmds(out, e.Body, indent+"\t")
	}
	if len(n.Else) > 0 {
		out.WriteString(indent + "else\n")
		g.renderCmds(out, n.Else, indent+"\t")
	}
	out.WriteString(indent + "fi\n")
}

// renderPipe emits a statement-level pipeline (spec.md §5): the
// pipeline's exit status is the rightmost non-zero status among
// segments not marked allow_fail; an allow_fail segment's failure is
// observed but never promoted to the pipeline's own status.
//
// When no segment allows failure, Bash's native `set -o pipefail`
// (set in the script preamble) already gives the right answer, so the
// fast path emits a plain `|` pipeline. Bash with an allow_fail
// segment, and every POSIX pipeline regardless of allow_fail (POSIX
// has no pipefail), fall through to the general form: each segment
// runs inside a subshell that records its own status to a file, and
// the statuses are inspected right-to-left once the pipeline exits.
func (g *Generator) renderPipe(out *strings.Builder, indent string, n *ir.Pipe) {
	anyAllowFail := false
	for _, seg := range n.Segs {
		if seg.AllowFail {
			anyAllowFail = true
			break
		}
	}
	if g.tgt == target.Bash && !anyAllowFail {
		parts := make([]string, len(n.Segs))
		for i, seg := range n.Segs {
			parts[i] = g.renderArgv(seg.Args)
		}
		g.guardedLine(out, indent, strings.Join(parts, " | "))
		return
	}
	g.renderPipeWithStatusCapture(out, indent, n)
}

func (g *Generator) renderPipeWithStatusCapture(out *strings.Builder, indent string, n *ir.Pipe) {
	const dir = "__sh2_pd"
	out.WriteString(indent + dir + "=$(mktemp -d)\n")

	parts := make([]string, len(n.Segs))
	for i, seg := range n.Segs {
		idx := strconv.Itoa(i + 1)
		parts[i] = "( set +e; " + g.renderArgv(seg.Args) + "; echo $? > \"$" + dir + "/" + idx + "\" )"
	}
	out.WriteString(indent + strings.Join(parts, " | ") + "\n")

	out.WriteString(indent + "__sh2_pstatus=0\n")
	out.WriteString(indent + "__sh2_pdone=0\n")
	for i := len(n.Segs); i >= 1; i-- {
		if n.Segs[i-1].AllowFail {
			continue
		}
		idx := strconv.Itoa(i)
		out.WriteString(indent + "if [ \"$__sh2_pdone\" -eq 0 ]; then\n")
		out.WriteString(indent + "\t__sh2_ps=$(cat \"$" + dir + "/" + idx + "\")\n")
		out.WriteString(indent + "\tif [ \"$__sh2_ps\" -ne 0 ]; then __sh2_pstatus=$__sh2_ps; __sh2_pdone=1; fi\n")
		out.WriteString(indent + "fi\n")
	}
	out.WriteString(indent + "rm -rf \"$" + dir + "\"\n")
	g.guardedLine(out, indent, "( exit \"$__sh2_pstatus\" )")
}

func (g *Generator) renderPipeBlocks(out *strings.Builder, indent string, n *ir.PipeBlocks) {
	out.WriteString(indent + "{\n")
	for i, block := range n.Blocks {
		out.WriteString(indent + "\t(\n")
		g.renderCmds(out, block, indent+"\t\t")
		out.WriteString(indent + "\t)")
		if i < len(n.Blocks)-1 {
			out.WriteString(" |\n")
		} else {
			out.WriteString("\n")
		}
	}
	out.WriteString(indent + "}\n")
}

func (g *Generator) renderCase(out *strings.Builder, indent string, n *ir.Case) {
	out.WriteString(indent + "case " + g.renderVal(n.Expr) + " in\n")
	for _, arm := range n.Arms {
		pats := make([]string, len(arm.Patterns))
		for i, p := range arm.Patterns {
			pats[i] = renderPattern(p)
		}
		out.WriteString(indent + "\t" + strings.Join(pats, "|") + ")\n")
		g.renderCmds(out, arm.Body, indent+"\t\t")
		out.WriteString(indent + "\t\t;;\n")
	}
	out.WriteString(indent + "esac\n")
}

func renderPattern(p ir.Pattern) string {
	if p.Kind == ir.PatternWildcard {
		return "*"
	}
	return Quoter{}.Quote(p.Text)
}

func (g *Generator) renderFor(out *strings.Builder, indent string, n *ir.For) {
	switch n.Iterable.Kind {
	case ir.ForList:
		parts := make([]string, len(n.Iterable.List))
		for i, v := range n.Iterable.List {
			parts[i] = g.renderVal(v)
		}
		out.WriteString(indent + "for " + n.Var + " in " + strings.Join(parts, " ") + "; do\n")
		g.renderCmds(out, n.Body, indent+"\t")
		out.WriteString(indent + "done\n")
	case ir.ForLines:
		if _, ok := n.Iterable.Lines.(*ir.StdinLines); ok {
			out.WriteString(indent + "while IFS= read -r " + n.Var + "; do\n")
			g.renderCmds(out, n.Body, indent+"\t")
			out.WriteString(indent + "done\n")
			return
		}
		out.WriteString(indent + "printf '%s\\n' " + g.renderVal(n.Iterable.Lines) + " | {\n")
		out.WriteString(indent + "\twhile IFS= read -r " + n.Var + "; do\n")
		g.renderCmds(out, n.Body, indent+"\t\t")
		out.WriteString(indent + "\tdone\n")
		out.WriteString(indent + "}\n")
	}
}

func (g *Generator) renderForMap(out *strings.Builder, indent string, n *ir.ForMap) {
	out.WriteString(indent + "for " + n.KeyVar + " in \"${!" + n.Map + "[@]}\"; do\n")
	out.WriteString(indent + "\t" + n.ValVar + "=\"${" + n.Map + "[$" + n.KeyVar + "]}\"\n")
	g.renderCmds(out, n.Body, indent+"\t")
	out.WriteString(indent + "done\n")
}

func (g *Generator) renderWithEnv(out *strings.Builder, indent string, n *ir.WithEnv) {
	out.WriteString(indent + "(\n")
	for _, b := range n.Bindings {
		out.WriteString(indent + "\texport " + b.Key + "=" + g.renderVal(b.Value) + "\n")
	}
	g.renderCmds(out, n.Body, indent+"\t")
	out.WriteString(indent + ")\n")
}

func (g *Generator) renderWithLog(out *strings.Builder, indent string, n *ir.WithLog) {
	op := ">"
	if n.Append {
		op = ">>"
	}
	out.WriteString(indent + "{\n")
	g.renderCmds(out, n.Body, indent+"\t")
	out.WriteString(indent + "} " + op + " " + g.renderVal(n.Path) + " 2>&1\n")
}

func (g *Generator) renderWithCwd(out *strings.Builder, indent string, n *ir.WithCwd) {
	out.WriteString(indent + "(\n")
	out.WriteString(indent + "\tcd -- " + g.renderVal(n.Path) + "\n")
	g.renderCmds(out, n.Body, indent+"\t")
	out.WriteString(indent + ")\n")
}

func (g *Generator) renderLog(out *strings.Builder, indent string, n *ir.Log) {
	var name string
	switch n.Level {
	case ir.LogWarn:
		name = "log_warn"
	case ir.LogError:
		name = "log_error"
	default:
		name = "log_info"
	}
	g.used.Use(name)
	out.WriteString(indent + "__sh2_" + name + " " + g.renderVal(n.Msg) + "\n")
}

func (g *Generator) renderWithRedirect(out *strings.Builder, indent string, n *ir.WithRedirect) {
	out.WriteString(indent + "{\n")
	g.renderCmds(out, n.Body, indent+"\t")
	out.WriteString(indent + "}")
	for _, t := range n.Stdout {
		out.WriteString(renderOutRedirect(g, t, 1))
	}
	for _, t := range n.Stderr {
		out.WriteString(renderOutRedirect(g, t, 2))
	}
	if n.Stdin != nil {
		switch n.Stdin.Kind {
		case ir.RedirectInFile:
			out.WriteString(" < " + g.renderVal(n.Stdin.Path))
		case ir.RedirectInHeredoc:
			out.WriteString(" <<'EOF'\n" + n.Stdin.Heredoc + "\nEOF")
		}
	}
	out.WriteString("\n")
}

func renderOutRedirect(g *Generator, t ir.RedirectOutTarget, fd int) string {
	fdStr := "1"
	if fd == 2 {
		fdStr = "2"
	}
	switch t.Kind {
	case ir.RedirectToStdout:
		return " " + fdStr + ">&1"
	case ir.RedirectToStderr:
		return " " + fdStr + ">&2"
	case ir.RedirectInheritStdout:
		return " " + fdStr + ">&1"
	default:
		op := ">"
		if t.Append {
			op = ">>"
		}
		return " " + fdStr + op + g.renderVal(t.Path)
	}
}

func (g *Generator) renderSpawn(out *strings.Builder, indent string, n *ir.Spawn) {
	exec, ok := n.Inner.(*ir.Exec)
	if !ok {
		return
	}
	g.writeLoc(out, indent, exec.Loc)
	out.WriteString(indent + g.renderArgv(exec.Args) + " &\n")
	out.WriteString(indent + n.BindName + "=$!\n")
}

func (g *Generator) renderWait(out *strings.Builder, indent string, n *ir.Wait) {
	if n.All {
		g.renderWaitAll(out, indent, n)
		return
	}
	if n.AllowFail {
		out.WriteString(indent + "if wait " + g.renderVal(n.Target) + "; then\n")
		out.WriteString(indent + "\t__sh2_status=0\n")
		out.WriteString(indent + "else\n")
		out.WriteString(indent + "\t__sh2_status=$?\n")
		out.WriteString(indent + "fi\n")
		return
	}
	g.guardedLine(out, indent, "wait "+g.renderVal(n.Target))
}

// renderWaitAll implements wait_all([pid1, pid2, ...]) (spec.md §5):
// the reported status is the first non-zero status in list order, not
// chronological completion order. Every pid is still joined (no early
// return) so a later background job's failure is never missed; pids
// are plain decimal numbers, so iterating the newline-joined list with
// an unquoted `for` splits on them safely without risking word-split
// surprises on real user data.
func (g *Generator) renderWaitAll(out *strings.Builder, indent string, n *ir.Wait) {
	out.WriteString(indent + "__sh2_wlist=" + g.renderVal(n.Target) + "\n")
	out.WriteString(indent + "__sh2_wstatus=0\n")
	out.WriteString(indent + "__sh2_wdone=0\n")
	out.WriteString(indent + "for __sh2_wpid in $__sh2_wlist; do\n")
	out.WriteString(indent + "\tif wait \"$__sh2_wpid\"; then __sh2_ws=0; else __sh2_ws=$?; fi\n")
	out.WriteString(indent + "\tif [ \"$__sh2_wdone\" -eq 0 ] && [ \"$__sh2_ws\" -ne 0 ]; then __sh2_wstatus=$__sh2_ws; __sh2_wdone=1; fi\n")
	out.WriteString(indent + "done\n")
	if n.AllowFail {
		out.WriteString(indent + "__sh2_status=$__sh2_wstatus\n")
		return
	}
	g.guardedLine(out, indent, "( exit \"$__sh2_wstatus\" )")
}

func (g *Generator) renderSeqJoin(out *strings.Builder, indent string, left, right []ir.Cmd, op string) {
	// AndThen/OrElse wrap single-command arms (the binder only allows
	// run/capture/sudo forms either side, spec.md §4.4); render each
	// arm's lone command joined by the shell operator.
	lhs := g.renderSingle(left)
	rhs := g.renderSingle(right)
	out.WriteString(indent + lhs + " " + op + " " + rhs + "\n")
}

func (g *Generator) renderSingle(cmds []ir.Cmd) string {
	if len(cmds) != 1 {
		return ":"
	}
	switch n := cmds[0].(type) {
	case *ir.Exec:
		return g.renderArgv(n.Args)
	default:
		return ":"
	}
}

func (g *Generator) renderSaveEnvfile(out *strings.Builder, indent string, n *ir.SaveEnvfile) {
	g.used.Use("save_envfile")
	args := make([]string, 0, len(n.Entries)*2+1)
	args = append(args, g.renderVal(n.Path))
	for _, e := range n.Entries {
		args = append(args, g.q.Quote(e.Key), g.renderVal(e.Value))
	}
	out.WriteString(indent + "__sh2_save_envfile " + strings.Join(args, " ") + "\n")
}
