package ir

import "testing"

func TestStripSpansClearsTopLevelLoc(t *testing.T) {
	f := &Function{
		Name: "main",
		File: "main.sh2",
		Commands: []Cmd{
			&Assign{Name: "x", Value: &Literal{S: "1"}, Loc: "main.sh2:1:1"},
			&Exec{Args: []Val{&Literal{S: "echo"}}, Loc: "main.sh2:2:1"},
		},
	}
	f.StripSpans()

	if f.File != "" {
		t.Errorf("File = %q, want empty", f.File)
	}
	if got := f.Commands[0].(*Assign).Loc; got != "" {
		t.Errorf("Assign.Loc = %q, want empty", got)
	}
	if got := f.Commands[1].(*Exec).Loc; got != "" {
		t.Errorf("Exec.Loc = %q, want empty", got)
	}
}

func TestStripSpansRecursesIntoNestedBodies(t *testing.T) {
	f := &Function{
		Name: "main",
		Commands: []Cmd{
			&If{
				Cond: &Literal{S: "1"},
				Then: []Cmd{&Assign{Name: "a", Loc: "x:1:1"}},
				Elifs: []ElifArm{
					{Cond: &Literal{S: "0"}, Body: []Cmd{&Assign{Name: "b", Loc: "x:2:1"}}},
				},
				Else: []Cmd{&Assign{Name: "c", Loc: "x:3:1"}},
			},
		},
	}
	f.StripSpans()

	ifCmd := f.Commands[0].(*If)
	if got := ifCmd.Then[0].(*Assign).Loc; got != "" {
		t.Errorf("Then[0].Loc = %q, want empty", got)
	}
	if got := ifCmd.Elifs[0].Body[0].(*Assign).Loc; got != "" {
		t.Errorf("Elifs[0].Body[0].Loc = %q, want empty", got)
	}
	if got := ifCmd.Else[0].(*Assign).Loc; got != "" {
		t.Errorf("Else[0].Loc = %q, want empty", got)
	}
}

func TestStripSpansIsFixedPoint(t *testing.T) {
	f := &Function{
		Name: "main",
		File: "x.sh2",
		Commands: []Cmd{
			&Spawn{Inner: &Exec{Args: []Val{&Literal{S: "sleep"}}, Loc: "x.sh2:1:1"}},
		},
	}
	f.StripSpans()
	first := f.Commands[0].(*Spawn).Inner.(*Exec).Loc
	f.StripSpans()
	second := f.Commands[0].(*Spawn).Inner.(*Exec).Loc
	if first != second || first != "" {
		t.Errorf("StripSpans not idempotent: first=%q second=%q", first, second)
	}
}
