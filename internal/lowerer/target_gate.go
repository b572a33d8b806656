package lowerer

import (
	"github.com/sh2lang/sh2c/internal/source"
	"github.com/sh2lang/sh2c/internal/target"
)

// requireBash rejects a Bash-only construct when compiling for POSIX
// (spec.md §4.6's target capability gate): the gate fires here, during
// lowering, so codegen is never asked to emit something the target
// shell can't run.
func (l *Lowerer) requireBash(sp source.Span, feature string) {
	if l.target == target.Posix {
		l.failTarget(sp, "'"+feature+"' requires the bash target", "compile with --target bash, or avoid this construct")
	}
}
