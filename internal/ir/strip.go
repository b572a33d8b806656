package ir

// StripSpans clears every Loc field reachable from a Function, recursing
// into nested command bodies. It is idempotent: StripSpans(StripSpans(f))
// observes the same tree as StripSpans(f) (spec.md §8, "span stripping is
// a fixed point") since every Loc it touches is already "" after one pass.
func (f *Function) StripSpans() {
	f.File = ""
	stripCmds(f.Commands)
}

func stripCmds(cmds []Cmd) {
	for _, c := range cmds {
		stripCmd(c)
	}
}

func stripCmd(c Cmd) {
	switch v := c.(type) {
	case *Assign:
		v.Loc = ""
	case *Exec:
		v.Loc = ""
	case *Pipe:
		v.Loc = ""
	case *PipeBlocks:
		v.Loc = ""
		for _, b := range v.Blocks {
			stripCmds(b)
		}
	case *ExecReplace:
		v.Loc = ""
	case *Raw:
		v.Loc = ""
	case *If:
		stripCmds(v.Then)
		for i := range v.Elifs {
			stripCmds(v.Elifs[i].Body)
		}
		stripCmds(v.Else)
	case *While:
		stripCmds(v.Body)
	case *For:
		stripCmds(v.Body)
	case *ForMap:
		stripCmds(v.Body)
	case *Case:
		for _, a := range v.Arms {
			stripCmds(a.Body)
		}
	case *WithEnv:
		stripCmds(v.Body)
	case *WithLog:
		stripCmds(v.Body)
	case *WithCwd:
		stripCmds(v.Body)
	case *Subshell:
		stripCmds(v.Body)
	case *Group:
		stripCmds(v.Body)
	case *WithRedirect:
		stripCmds(v.Body)
	case *Spawn:
		stripCmd(v.Inner)
	case *TryCatch:
		stripCmds(v.Try)
		stripCmds(v.Catch)
	case *AndThen:
		stripCmds(v.Left)
		stripCmds(v.Right)
	case *OrElse:
		stripCmds(v.Left)
		stripCmds(v.Right)
	}
}
