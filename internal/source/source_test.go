package source

import "testing"

func TestLineCol(t *testing.T) {
	m := NewMap(0, "f.sh2", "func main() {\n  print(\"hi\")\n}\n")

	tests := []struct {
		offset   int
		wantLine int
		wantCol  int
	}{
		{0, 1, 1},
		{5, 1, 6},
		{14, 2, 1},
		{16, 2, 3},
	}
	for _, tt := range tests {
		line, col := m.LineCol(tt.offset)
		if line != tt.wantLine || col != tt.wantCol {
			t.Errorf("LineCol(%d) = (%d,%d), want (%d,%d)", tt.offset, line, col, tt.wantLine, tt.wantCol)
		}
	}
}

func TestLineColMultibyte(t *testing.T) {
	// "café" has 4 runes but 5 bytes; the column after the string must
	// count characters, not bytes.
	m := NewMap(0, "f.sh2", `print("café")`+"\n")
	line, col := m.LineCol(len(`print("café")`))
	if line != 1 || col != 14 {
		t.Errorf("LineCol at end = (%d,%d), want (1,14)", line, col)
	}
}

func TestLineSnippet(t *testing.T) {
	m := NewMap(0, "f.sh2", "a\nbb\nccc")
	if got := m.LineSnippet(2); got != "bb" {
		t.Errorf("LineSnippet(2) = %q, want %q", got, "bb")
	}
	if got := m.LineSnippet(3); got != "ccc" {
		t.Errorf("LineSnippet(3) = %q, want %q", got, "ccc")
	}
	if got := m.LineSnippet(99); got != "" {
		t.Errorf("LineSnippet(99) = %q, want empty", got)
	}
}

func TestMerge(t *testing.T) {
	a := Span{File: 0, Start: 5, End: 10}
	b := Span{File: 0, Start: 2, End: 7}
	got := Merge(a, b)
	want := Span{File: 0, Start: 2, End: 10}
	if got != want {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}

func TestMergeCrossFilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Merge across files did not panic")
		}
	}()
	Merge(Span{File: 0, Start: 0, End: 1}, Span{File: 1, Start: 0, End: 1})
}

func TestSpanLenFloor(t *testing.T) {
	if got := (Span{Start: 5, End: 5}).Len(); got != 1 {
		t.Errorf("zero-width span Len() = %d, want 1", got)
	}
	if got := (Span{Start: 5, End: 8}).Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestFormat(t *testing.T) {
	fs := &FileSet{}
	id := fs.Add(NewMap(0, "/repo/src/main.sh2", "print(\"hi\")\n"))
	d := &Diagnostic{
		Phase:   PhaseLex,
		Message: "unterminated string",
		Span:    Span{File: id, Start: 6, End: 11},
	}
	got := Format(d, fs, "/repo")
	want := "src/main.sh2:1:7: unterminated string\n" +
		"print(\"hi\")\n" +
		"      ^~~~~"
	if got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatWithHelp(t *testing.T) {
	fs := &FileSet{}
	id := fs.Add(NewMap(0, "main.sh2", "set x = 1\n"))
	d := &Diagnostic{
		Phase:   PhaseBind,
		Message: "undeclared variable 'x'",
		Span:    Span{File: id, Start: 4, End: 5},
		Help:    "did you mean to use 'let x = ...'?",
	}
	got := Format(d, fs, "")
	if got[len(got)-len(d.Help):] != d.Help {
		t.Errorf("Format() did not end with help text: %q", got)
	}
}

func TestNormalizePathOutsideBase(t *testing.T) {
	fs := &FileSet{}
	id := fs.Add(NewMap(0, "/other/place/x.sh2", "print(\"x\")\n"))
	d := &Diagnostic{Span: Span{File: id, Start: 0, End: 1}, Message: "m"}
	got := Format(d, fs, "/repo")
	if got[:7] != "x.sh2:1" {
		t.Errorf("Format() = %q, want path collapsed to basename", got)
	}
}
