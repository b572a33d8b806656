// Package prelude holds the fixed catalog of __sh2_-prefixed runtime
// helper shell functions codegen may inline (spec.md §4.8). Each
// helper is emitted at most once per compilation, gated by use.
package prelude

import (
	"sort"
	"strings"
)

// entry pairs one helper's shell source with the other helpers it
// calls, so Render can pull in transitive dependencies.
type entry struct {
	name string
	deps []string
	src  string
}

// order is the catalog in declaration order; Render preserves this
// order for whichever subset ends up used, so output is deterministic
// regardless of the order helpers were first requested in.
var order = []string{
	"arg_by_index", "sh_probe", "contains_line", "contains_substr",
	"split", "path_join", "home", "which", "require", "tmpfile",
	"read_file", "write_file", "load_envfile", "save_envfile",
	"parse_args", "confirm", "log_info", "log_warn", "log_error",
	"find0", "json_kv",
	"trim", "before", "after", "replace", "coalesce", "default",
	"contains_list", "starts_with", "matches",
}

var catalog = map[string]entry{
	"arg_by_index": {name: "arg_by_index", src: `__sh2_arg_by_index() {
	i=$1; shift
	case $i in ''|*[!0-9]*|0) echo "error: arg($i): index must be a positive integer" >&2; exit 1 ;;
	esac
	if [ "$i" -gt "$#" ]; then
		echo "error: arg($i): out of range (argc=$#)" >&2
		exit 1
	fi
	eval "echo \"\${$i}\""
}`},

	"sh_probe": {name: "sh_probe", src: `__sh2_sh_probe() {
	( set +e; eval "$1" )
	return $?
}`},

	"contains_line": {name: "contains_line", src: `__sh2_contains_line() {
	grep -Fxq -- "$2" "$1" 2>/dev/null
}`},

	"contains_substr": {name: "contains_substr", src: `__sh2_contains_substr() {
	case "$1" in *"$2"*) return 0 ;; esac
	return 1
}`},

	"split": {name: "split", src: `__sh2_split() {
	awk -v FS="$2" '{ for (i=1;i<=NF;i++) print $i }' <<EOF
$1
EOF
}`},

	"path_join": {name: "path_join", src: `__sh2_path_join() {
	out=""
	for p in "$@"; do
		case "$p" in /*) out=$p ;; *)
			if [ -z "$out" ]; then out=$p
			else out=${out%/}/$p
			fi ;;
		esac
	done
	printf '%s\n' "$out"
}`},

	"home": {name: "home", src: `__sh2_home() {
	printf '%s\n' "${HOME%/}"
}`},

	"which": {name: "which", src: `__sh2_which() {
	command -v -- "$1" 2>/dev/null || true
}`},

	"require": {name: "require", deps: []string{"which"}, src: `__sh2_require() {
	missing=""
	for name in "$@"; do
		if [ -z "$(__sh2_which "$name")" ]; then
			missing="$missing $name"
		fi
	done
	if [ -n "$missing" ]; then
		echo "error: missing required command(s):$missing" >&2
		exit 1
	fi
}`},

	"tmpfile": {name: "tmpfile", src: `__sh2_tmpfile() {
	mktemp "${TMPDIR:-/tmp}/sh2.XXXXXX"
}`},

	"read_file": {name: "read_file", src: `__sh2_read_file() {
	cat -- "$1"
}`},

	"write_file": {name: "write_file", src: `__sh2_write_file() {
	path=$1; shift
	append=$1; shift
	if [ "$append" = 1 ]; then
		cat >> "$path"
	else
		cat > "$path"
	fi
}`},

	"load_envfile": {name: "load_envfile", src: `__sh2_load_envfile() {
	set -a
	# shellcheck disable=SC1090
	. "$1"
	set +a
}`},

	"save_envfile": {name: "save_envfile", src: `__sh2_save_envfile() {
	path=$1; shift
	: > "$path"
	while [ "$#" -ge 2 ]; do
		printf '%s=%s\n' "$1" "$2" >> "$path"
		shift 2
	done
}`},

	"parse_args": {name: "parse_args", src: `__sh2_parse_args() {
	__sh2_flags=""
	__sh2_positionals=""
	for a in "$@"; do
		case "$a" in
			--*)
				if [ -z "$__sh2_flags" ]; then __sh2_flags="$a"
				else __sh2_flags="$__sh2_flags
$a"
				fi ;;
			*)
				if [ -z "$__sh2_positionals" ]; then __sh2_positionals="$a"
				else __sh2_positionals="$__sh2_positionals
$a"
				fi ;;
		esac
	done
}`},

	"confirm": {name: "confirm", src: `__sh2_confirm() {
	prompt=$1; default=$2
	suffix="[y/N]"
	[ "$default" = 1 ] && suffix="[Y/n]"
	printf '%s %s ' "$prompt" "$suffix" >&2
	read -r reply || reply=""
	case "$reply" in
		"") [ "$default" = 1 ] && return 0 || return 1 ;;
		y|Y|yes|Yes) return 0 ;;
		*) return 1 ;;
	esac
}`},

	"log_info":  {name: "log_info", src: logFn("log_info", "info")},
	"log_warn":  {name: "log_warn", src: logFn("log_warn", "warn")},
	"log_error": {name: "log_error", src: logFn("log_error", "error")},

	"find0": {name: "find0", src: `__sh2_find0() {
	dir=$1; name=$2; type=$3; maxdepth=$4
	set -- find "$dir"
	[ -n "$maxdepth" ] && set -- "$@" -maxdepth "$maxdepth"
	[ -n "$name" ] && set -- "$@" -name "$name"
	[ -n "$type" ] && set -- "$@" -type "$type"
	"$@" -print0
}`},

	"json_kv": {name: "json_kv", src: `__sh2_json_kv() {
	printf '%s' "$1" | sed -n 's/.*"'"$2"'"[[:space:]]*:[[:space:]]*"\([^"]*\)".*/\1/p' | head -n1
}`},

	"trim": {name: "trim", src: `__sh2_trim() {
	s=$1
	s=${s#"${s%%[![:space:]]*}"}
	s=${s%"${s##*[![:space:]]}"}
	printf '%s' "$s"
}`},

	"before": {name: "before", src: `__sh2_before() {
	case "$1" in
		*"$2"*) printf '%s' "${1%%"$2"*}" ;;
		*) printf '%s' "$1" ;;
	esac
}`},

	"after": {name: "after", src: `__sh2_after() {
	case "$1" in
		*"$2"*) printf '%s' "${1#*"$2"}" ;;
		*) printf '%s' "" ;;
	esac
}`},

	"replace": {name: "replace", src: `__sh2_replace() {
	s=$1; old=$2; new=$3
	out=""
	while :; do
		case "$s" in
			*"$old"*)
				out="$out${s%%"$old"*}$new"
				s=${s#*"$old"}
				;;
			*) out="$out$s"; break ;;
		esac
	done
	printf '%s' "$out"
}`},

	"coalesce": {name: "coalesce", src: `__sh2_coalesce() {
	for v in "$@"; do
		if [ -n "$v" ]; then
			printf '%s' "$v"
			return 0
		fi
	done
}`},

	"default": {name: "default", src: `__sh2_default() {
	if [ -n "$1" ]; then printf '%s' "$1"; else printf '%s' "$2"; fi
}`},

	"contains_list": {name: "contains_list", src: `__sh2_contains_list() {
	list=$1; needle=$2
	old_ifs=$IFS
	IFS='
'
	for item in $list; do
		IFS=$old_ifs
		[ "$item" = "$needle" ] && return 0
		IFS='
'
	done
	IFS=$old_ifs
	return 1
}`},

	"starts_with": {name: "starts_with", src: `__sh2_starts_with() {
	case "$1" in "$2"*) return 0 ;; esac
	return 1
}`},

	"matches": {name: "matches", src: `__sh2_matches() {
	printf '%s' "$1" | grep -Eq -- "$2"
}`},
}

func logFn(name, level string) string {
	return `__sh2_` + name + `() {
	printf '[` + level + `] %s\n' "$1" >&2
}`
}

// Set tracks which helpers a compilation used; codegen marks one as it
// emits the IR node that needs it.
type Set map[string]bool

func (s Set) Use(name string) { s[name] = true }

// Render returns the shell source for every used helper (plus its
// transitive deps), each separated by a blank line, in catalog order.
func Render(used Set) string {
	need := map[string]bool{}
	var add func(string)
	add = func(name string) {
		if need[name] {
			return
		}
		e, ok := catalog[name]
		if !ok {
			return
		}
		need[name] = true
		for _, d := range e.deps {
			add(d)
		}
	}
	names := make([]string, 0, len(used))
	for n := range used {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		add(n)
	}

	var b strings.Builder
	for _, n := range order {
		if !need[n] {
			continue
		}
		b.WriteString(catalog[n].src)
		b.WriteString("\n\n")
	}
	return b.String()
}
