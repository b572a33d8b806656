package codegen

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/sh2lang/sh2c/internal/target"
)

// posixBashisms are textual fingerprints of constructs that must never
// appear in POSIX output (spec.md §4.7's "never emit" list). This is a
// fast first pass; Lint's structural parse below catches anything
// textual matching misses.
var posixBashisms = []string{
	"[[", "]]", "declare ", "local ", "[@]", "[*]", "<(", ">(", "set -o pipefail", "<<<", "=(",
}

// Lint runs the post-emission purity check (spec.md §7's
// CodegenLintError): a textual scan for the banned bash-only
// fingerprints, followed by a structural parse of the emitted script
// under the target's own language variant. A structural parse failure
// under Bash means the generator produced outright invalid shell (an
// internal bug); under POSIX it also catches anything array/process-
// substitution-shaped that slipped past the textual scan.
func Lint(script string, tgt target.Shell) error {
	if tgt == target.Posix {
		for _, bad := range posixBashisms {
			if strings.Contains(script, bad) {
				return fmt.Errorf("posix output contains a bash-only construct: %q", bad)
			}
		}
	}
	variant := syntax.LangBash
	if tgt == target.Posix {
		variant = syntax.LangPOSIX
	}
	parser := syntax.NewParser(syntax.Variant(variant))
	if _, err := parser.Parse(strings.NewReader(script), "sh2c-output"); err != nil {
		return fmt.Errorf("emitted script failed validation under %s: %w", tgt, err)
	}
	return nil
}
