// Package ir defines the typed intermediate representation the lowerer
// produces and the code generator consumes. Unlike the AST, IR nodes
// carry no parser-grammar shape: each Val/Cmd variant is the smallest
// unit codegen needs to emit one shell construct.
package ir

// Loc is the optional "file:line:col" string injected into a Cmd for
// the diagnostic-trap's __sh2_loc assignment (spec.md §4.7). Empty
// when diagnostics are disabled or span info was stripped.
type Loc = string

// ---------- Values ----------

type Val interface{ valNode() }

// Literal is an opaque, already-resolved string rendered through the
// quoter verbatim (never re-interpreted).
type Literal struct{ S string }

func (*Literal) valNode() {}

// Var is a plain shell variable read, rendered "$name" or "${name}".
type Var struct{ Name string }

func (*Var) valNode() {}

// Concat is the '&' operator: two values rendered adjacently.
type Concat struct{ Left, Right Val }

func (*Concat) valNode() {}

type ArithOp string

const (
	ArithAdd ArithOp = "+"
	ArithSub ArithOp = "-"
	ArithMul ArithOp = "*"
	ArithDiv ArithOp = "/"
	ArithMod ArithOp = "%"
)

type Arith struct {
	Left  Val
	Op    ArithOp
	Right Val
}

func (*Arith) valNode() {}

type CompareOp string

const (
	CmpEq  CompareOp = "=="
	CmpNe  CompareOp = "!="
	CmpLt  CompareOp = "<"
	CmpLe  CompareOp = "<="
	CmpGt  CompareOp = ">"
	CmpGe  CompareOp = ">="
)

type Compare struct {
	Left  Val
	Op    CompareOp
	Right Val
}

func (*Compare) valNode() {}

type And struct{ Left, Right Val }

func (*And) valNode() {}

type Or struct{ Left, Right Val }

func (*Or) valNode() {}

type Not struct{ X Val }

func (*Not) valNode() {}

// FSPredicateKind mirrors ast.FSPredicate.Kind.
type FSPredicateKind string

const (
	PredExists      FSPredicateKind = "exists"
	PredIsDir       FSPredicateKind = "is_dir"
	PredIsFile      FSPredicateKind = "is_file"
	PredIsSymlink   FSPredicateKind = "is_symlink"
	PredIsExec      FSPredicateKind = "is_exec"
	PredIsReadable  FSPredicateKind = "is_readable"
	PredIsWritable  FSPredicateKind = "is_writable"
	PredIsNonEmpty  FSPredicateKind = "is_non_empty"
)

type FSPredicate struct {
	Kind FSPredicateKind
	Path Val
}

func (*FSPredicate) valNode() {}

// BoolVar marks a variable already known to hold "1"/"0" so codegen can
// emit `[ "$v" = 1 ]` instead of a non-empty string test.
type BoolVar struct{ Name string }

func (*BoolVar) valNode() {}

type Bool struct{ V bool }

func (*Bool) valNode() {}

type Number struct{ V int64 }

func (*Number) valNode() {}

// Len is the `len(s)` string-length builtin.
type Len struct{ X Val }

func (*Len) valNode() {}

// Arg is `arg(n)` for a literal n >= 1: lowers to the positional
// parameter directly ("$n").
type Arg struct{ N int64 }

func (*Arg) valNode() {}

// ArgDynamic is `arg(0)` or `arg(<expr>)`: lowers to a call into the
// runtime helper that validates the index.
type ArgDynamic struct{ Index Val }

func (*ArgDynamic) valNode() {}

type Args struct{}

func (*Args) valNode() {}

type ArgC struct{}

func (*ArgC) valNode() {}

type Argv0 struct{}

func (*Argv0) valNode() {}

// Status reads the last allow_fail-captured exit status.
type Status struct{}

func (*Status) valNode() {}

// Pid/Uid/Ppid are process-identity reads (SPEC_FULL.md §4).
type Pid struct{}

func (*Pid) valNode() {}

type Uid struct{}

func (*Uid) valNode() {}

type Ppid struct{}

func (*Ppid) valNode() {}

// Env is `env(expr)` (dynamic name); EnvDot is `env.NAME` (static name).
type Env struct{ Name Val }

func (*Env) valNode() {}

type EnvDot struct{ Name string }

func (*EnvDot) valNode() {}

// List is a literal list value, valid only where the target permits
// list-typed data (POSIX gates most uses; see lowerer/target_gate.go).
type List struct{ Elems []Val }

func (*List) valNode() {}

// MapEntry is one key/value pair of a MapLiteral.
type MapEntry struct {
	Key   string
	Value Val
}

// MapLiteral is a Bash-only associative-array literal.
type MapLiteral struct{ Entries []MapEntry }

func (*MapLiteral) valNode() {}

// MapIndex reads one entry of a named associative-array variable.
type MapIndex struct {
	Map string
	Key Val
}

func (*MapIndex) valNode() {}

// Call is the fallback shape for a builtin that passes through to a
// named prelude helper (SPEC_FULL.md §4's trim/before/after/replace/
// coalesce, among others): codegen renders it as `__sh2_<Name> <args...>`.
// Reaching this node for any name NOT in the prelude registry is a
// compiler bug (see lowerer/builtins.go).
type Call struct {
	Name string
	Args []Val
}

func (*Call) valNode() {}

// FuncCall is a user-defined function invoked in expression position:
// codegen renders it as a command substitution over the function call,
// capturing its stdout the same way capture(...) does.
type FuncCall struct {
	Name string
	Args []Val
}

func (*FuncCall) valNode() {}

type Which struct{ Name Val }

func (*Which) valNode() {}

type Home struct{}

func (*Home) valNode() {}

type PathJoin struct{ Parts []Val }

func (*PathJoin) valNode() {}

type ReadFile struct{ Path Val }

func (*ReadFile) valNode() {}

type LoadEnvfile struct{ Path Val }

func (*LoadEnvfile) valNode() {}

type JsonKv struct {
	JSON Val
	Key  Val
}

func (*JsonKv) valNode() {}

type Matches struct{ Text, Pattern Val }

func (*Matches) valNode() {}

type ParseArgs struct{}

func (*ParseArgs) valNode() {}

// StdinLines reads stdin as a newline-separated stream; valid only as a
// for-loop iterable or the RHS of a single let (restrictedMisc in
// lowerer/builtins.go).
type StdinLines struct{}

func (*StdinLines) valNode() {}

// Find0 runs `find` with a NUL-separated output, feeding a for-loop or a
// single let binding. Bash-only: codegen runs __sh2_find0 in a command
// substitution and turns its NUL separators into newlines with tr.
type Find0 struct {
	Dir         Val
	HasDir      bool
	Name        Val
	HasName     bool
	Type        string
	HasType     bool
	Maxdepth    Val
	HasMaxdepth bool
}

func (*Find0) valNode() {}

// Glob expands a shell glob pattern into a newline-separated list of
// matches (nullglob semantics: zero matches yields zero lines).
type Glob struct{ Pattern Val }

func (*Glob) valNode() {}

// ArgsFlags/ArgsPositionals project the two halves of parse_args()'s
// result (spec.md's `.flags`/`.positionals` TryRunField projections
// reused for parse_args, which shares the same result shape).
type ArgsFlags struct{ X Val }

func (*ArgsFlags) valNode() {}

type ArgsPositionals struct{ X Val }

func (*ArgsPositionals) valNode() {}

type Confirm struct {
	Prompt  Val
	Default bool
}

func (*Confirm) valNode() {}

type ContainsList struct{ List, Needle Val }

func (*ContainsList) valNode() {}

type ContainsSubstring struct{ Haystack, Needle Val }

func (*ContainsSubstring) valNode() {}

type ContainsLine struct{ File, Needle Val }

func (*ContainsLine) valNode() {}

type StartsWith struct{ Text, Prefix Val }

func (*StartsWith) valNode() {}

type Split struct{ S, Delim Val }

func (*Split) valNode() {}

type Lines struct{ X Val }

func (*Lines) valNode() {}

// Index reads one element of a list-typed value (POSIX gate applies).
type Index struct {
	List  Val
	Index Val
}

func (*Index) valNode() {}

// Capture is `capture(...)` / `try_run(...)`'s stdout half: runs a
// command (or pipeline) and yields its captured stdout.
type Capture struct {
	Segs      [][]Val
	AllowFail bool
}

func (*Capture) valNode() {}

// TryRun runs a command and captures status/stdout/stderr together; the
// three are always bound by codegen as separate shell variables
// (__sh2_<name>_status/_stdout/_stderr), read back by TryRunField.
type TryRun struct{ Segs []Val }

func (*TryRun) valNode() {}

// TryRunField reads one of the five fields materialized by a prior
// TryRun/ParseArgs binding.
type TryRunFieldKind string

const (
	FieldStatus      TryRunFieldKind = "status"
	FieldStdout      TryRunFieldKind = "stdout"
	FieldStderr      TryRunFieldKind = "stderr"
	FieldFlags       TryRunFieldKind = "flags"
	FieldPositionals TryRunFieldKind = "positionals"
)

type TryRunField struct {
	Var   string // the let-bound name the try_run/parse_args result lives under
	Field TryRunFieldKind
}

func (*TryRunField) valNode() {}

// ---------- Commands ----------

type Cmd interface{ cmdNode() }

// Assign is `name=value` (quoted per Val kind); Loc, when non-empty, is
// rendered as a preceding __sh2_loc update for the diagnostic trap.
type Assign struct {
	Name  string
	Value Val
	Loc   Loc
}

func (*Assign) cmdNode() {}

// Exec is one external command invocation as a statement.
type Exec struct {
	Args      []Val
	AllowFail bool
	Loc       Loc
}

func (*Exec) cmdNode() {}

type Print struct{ X Val }

func (*Print) cmdNode() {}

type PrintErr struct{ X Val }

func (*PrintErr) cmdNode() {}

type ElifArm struct {
	Cond Val
	Body []Cmd
}

type If struct {
	Cond  Val
	Then  []Cmd
	Elifs []ElifArm
	Else  []Cmd
}

func (*If) cmdNode() {}

// PipeSeg is one segment of a statement-level pipeline: argv plus
// whether its status is allowed to fail without promoting.
type PipeSeg struct {
	Args      []Val
	AllowFail bool
}

type Pipe struct {
	Segs []PipeSeg
	Loc  Loc
}

func (*Pipe) cmdNode() {}

// PipeBlocks is a pipeline whose segments are brace-blocks of
// statements (Bash-only each_line / block segments) rather than bare
// argv invocations.
type PipeBlocks struct {
	Blocks [][]Cmd
	Loc    Loc
}

func (*PipeBlocks) cmdNode() {}

type PatternKind int

const (
	PatternLiteral PatternKind = iota
	PatternGlob
	PatternWildcard
)

type Pattern struct {
	Kind PatternKind
	Text string
}

type CaseArm struct {
	Patterns []Pattern
	Body     []Cmd
}

type Case struct {
	Expr Val
	Arms []CaseArm
}

func (*Case) cmdNode() {}

// ForIterableKind selects between a precomputed list, a newline-stream
// source (stdin_lines/find0/glob), and a map (ForMap is separate).
type ForIterableKind int

const (
	ForList ForIterableKind = iota
	ForLines
)

type ForIterable struct {
	Kind  ForIterableKind
	List  []Val // ForList
	Lines Val   // ForLines: a Val that renders a newline-separated stream
}

type For struct {
	Var      string
	Iterable ForIterable
	Body     []Cmd
}

func (*For) cmdNode() {}

// ForMap is `for (k, v) in map { ... }` — Bash-only.
type ForMap struct {
	KeyVar string
	ValVar string
	Map    string
	Body   []Cmd
}

func (*ForMap) cmdNode() {}

type While struct {
	Cond Val
	Body []Cmd
}

func (*While) cmdNode() {}

type Break struct{}

func (*Break) cmdNode() {}

type Continue struct{}

func (*Continue) cmdNode() {}

type Return struct{ X Val }

func (*Return) cmdNode() {}

type Require struct{ Names []Val }

func (*Require) cmdNode() {}

type Exit struct{ Code Val }

func (*Exit) cmdNode() {}

type WithEnv struct {
	Bindings []MapEntry
	Body     []Cmd
}

func (*WithEnv) cmdNode() {}

type WithLog struct {
	Path   Val
	Append bool
	Body   []Cmd
}

func (*WithLog) cmdNode() {}

type WithCwd struct {
	Path Val
	Body []Cmd
}

func (*WithCwd) cmdNode() {}

type WriteFile struct {
	Path    Val
	Content Val
	Append  bool
}

func (*WriteFile) cmdNode() {}

type LogLevel int

const (
	LogInfo LogLevel = iota
	LogWarn
	LogError
)

type Log struct {
	Level LogLevel
	Msg   Val
}

func (*Log) cmdNode() {}

// Raw is sh()'s escape hatch: codegen quotes the X payload and passes it
// to `bash -c` (or `sh -c`) with `_` as $0.
type Raw struct {
	X   Val
	Loc Loc
}

func (*Raw) cmdNode() {}

// CallCmd is a user-function statement call (argv of shell-function
// invocation, not an external command).
type CallCmd struct {
	Name string
	Args []Val
}

func (*CallCmd) cmdNode() {}

type Subshell struct{ Body []Cmd }

func (*Subshell) cmdNode() {}

type Group struct{ Body []Cmd }

func (*Group) cmdNode() {}

type RedirectOutKind int

const (
	RedirectFile RedirectOutKind = iota
	RedirectToStdout
	RedirectToStderr
	RedirectInheritStdout
)

type RedirectOutTarget struct {
	Kind   RedirectOutKind
	Path   Val
	Append bool
}

type RedirectInKind int

const (
	RedirectInFile RedirectInKind = iota
	RedirectInHeredoc
)

type RedirectInTarget struct {
	Kind    RedirectInKind
	Path    Val
	Heredoc string
}

type WithRedirect struct {
	Stdout []RedirectOutTarget
	Stderr []RedirectOutTarget
	Stdin  *RedirectInTarget
	Body   []Cmd
}

func (*WithRedirect) cmdNode() {}

type Spawn struct {
	BindName string
	Inner    Cmd // *Exec, always
}

func (*Spawn) cmdNode() {}

type Wait struct {
	All       bool
	Target    Val
	AllowFail bool
}

func (*Wait) cmdNode() {}

type TryCatch struct {
	Try   []Cmd
	Catch []Cmd
}

func (*TryCatch) cmdNode() {}

type AndThen struct{ Left, Right []Cmd }

func (*AndThen) cmdNode() {}

type OrElse struct{ Left, Right []Cmd }

func (*OrElse) cmdNode() {}

type Export struct {
	Name  string
	Value Val // nil to export an existing variable
}

func (*Export) cmdNode() {}

type Unset struct{ Name string }

func (*Unset) cmdNode() {}

type Source struct{ Path Val }

func (*Source) cmdNode() {}

type ExecReplace struct {
	Args []Val
	Loc  Loc
}

func (*ExecReplace) cmdNode() {}

type SaveEnvfile struct {
	Path    Val
	Entries []MapEntry
}

func (*SaveEnvfile) cmdNode() {}

// ---------- Top level ----------

type Function struct {
	Name     string
	Params   []string
	Commands []Cmd
	File     string
}

type Program struct {
	Functions []*Function
}
