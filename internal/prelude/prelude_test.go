package prelude

import "testing"

func TestRenderEmptySetIsEmptyString(t *testing.T) {
	if got := Render(Set{}); got != "" {
		t.Errorf("Render(empty) = %q, want empty string", got)
	}
}

func TestRenderIncludesTransitiveDeps(t *testing.T) {
	s := Set{}
	s.Use("require")
	out := Render(s)
	if !containsAll(out, "__sh2_require()", "__sh2_which()") {
		t.Errorf("Render(require) did not pull in its 'which' dependency:\n%s", out)
	}
}

func TestRenderOrderIsCatalogOrderRegardlessOfUseOrder(t *testing.T) {
	a := Set{}
	a.Use("trim")
	a.Use("arg_by_index")
	b := Set{}
	b.Use("arg_by_index")
	b.Use("trim")
	if Render(a) != Render(b) {
		t.Error("Render order depends on Set insertion order, want catalog order only")
	}
	out := Render(a)
	idxArg := indexOf(out, "__sh2_arg_by_index")
	idxTrim := indexOf(out, "__sh2_trim")
	if idxArg < 0 || idxTrim < 0 || idxArg > idxTrim {
		t.Errorf("expected arg_by_index before trim in catalog order, got positions %d, %d", idxArg, idxTrim)
	}
}

func TestRenderUnknownNameIsIgnored(t *testing.T) {
	s := Set{}
	s.Use("not_a_real_helper")
	if got := Render(s); got != "" {
		t.Errorf("Render(unknown) = %q, want empty string", got)
	}
}

func TestRenderEachHelperOnlyOnce(t *testing.T) {
	s := Set{}
	s.Use("require")
	s.Use("which")
	out := Render(s)
	if n := countOccurrences(out, "__sh2_which()"); n != 1 {
		t.Errorf("__sh2_which() rendered %d times, want 1", n)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if indexOf(s, sub) < 0 {
			return false
		}
	}
	return true
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func countOccurrences(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
