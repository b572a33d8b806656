package codegen

import "strings"

// Quoter renders a literal shell word. It is deliberately single-quote
// only (spec.md §4.7): a single-quoted word is never re-interpreted by
// the shell, so no escaping discipline beyond closing-quote splicing
// is needed.
type Quoter struct{}

// Quote wraps s in single quotes, splicing out any embedded single
// quote as '\'' (close quote, escaped literal quote, reopen quote).
func (Quoter) Quote(s string) string {
	if s == "" {
		return "''"
	}
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			b.WriteString(`'\''`)
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// QuoteVar renders a variable read, always double-quoted (spec.md
// §4.7: never a raw unquoted $var in a position a dynamic value could
// reach).
func (Quoter) QuoteVar(expr string) string {
	return `"` + expr + `"`
}
