package wasmir

import (
	"testing"

	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
)

func newTestProgram(t *testing.T) *mvbc.Program {
	t.Helper()
	return mvbc.NewProgram()
}

// buildFunc registers code as a function body and returns its wasmir.Func.
func buildFunc(t *testing.T, prog *mvbc.Program, code []mvbc.Instr) *Func {
	t.Helper()
	f := &mvbc.Function{Code: code}
	fid := prog.InternFunction(f)
	f.Name = prog.Strings.Intern("f")
	got, err := Build(prog, prog.FunctionByID(fid))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return got
}

func TestBuildStraightLine(t *testing.T) {
	prog := newTestProgram(t)
	f := buildFunc(t, prog, []mvbc.Instr{
		{Op: mvbc.OpLdU64, Imm: 42},
		{Op: mvbc.OpRet},
	})
	if len(f.Blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(f.Blocks))
	}
	if f.Blocks[0].Term.Kind != TermReturn {
		t.Fatalf("expected TermReturn, got %v", f.Blocks[0].Term.Kind)
	}
}

// TestBuildIfElseStructures builds `if (true) { x=1 } else { x=2 }` as
// Move would emit it: BranchIfFalse skips into the else arm, the then
// arm ends with an unconditional Branch to the join point.
func TestBuildIfElseStructures(t *testing.T) {
	prog := newTestProgram(t)
	code := []mvbc.Instr{
		/*0*/ {Op: mvbc.OpLdTrue},
		/*1*/ {Op: mvbc.OpBranchIfFalse, BranchTarget: 4},
		/*2*/ {Op: mvbc.OpLdU64, Imm: 1},
		/*3*/ {Op: mvbc.OpBranch, BranchTarget: 5},
		/*4*/ {Op: mvbc.OpLdU64, Imm: 2},
		/*5*/ {Op: mvbc.OpRet},
	}
	f := buildFunc(t, prog, code)
	if len(f.Blocks) != 4 {
		t.Fatalf("expected 4 basic blocks, got %d", len(f.Blocks))
	}
	Simplify(f)

	nodes := Structure(f)
	if len(nodes) == 0 || nodes[0].Kind != NodeBlock {
		t.Fatalf("expected the join point to open a wrapping block, got %+v", nodes)
	}
	elseWrap := nodes[0].Body
	if len(elseWrap) == 0 || elseWrap[0].Kind != NodeBlock {
		t.Fatalf("expected the else arm to open a second wrapping block inside the join block, got %+v", elseWrap)
	}
	loopBody := elseWrap[0].Body
	if len(loopBody) < 2 || loopBody[1].Kind != NodeIf {
		t.Fatalf("expected the condition block to end in a structured if, got %+v", loopBody)
	}
	ifNode := loopBody[1]
	if len(ifNode.Then) != 0 {
		t.Fatalf("expected the true arm to be a pure fallthrough, got %+v", ifNode.Then)
	}
	if len(ifNode.Else) != 1 || ifNode.Else[0].Kind != NodeBr {
		t.Fatalf("expected the false arm to branch to the else block, got %+v", ifNode.Else)
	}
}

// TestBuildWhileLoopStructures builds `while (i < 10) { i = i + 1 }`.
func TestBuildWhileLoopStructures(t *testing.T) {
	prog := newTestProgram(t)
	code := []mvbc.Instr{
		/*0*/ {Op: mvbc.OpCopyLoc, Index: 0},
		/*1*/ {Op: mvbc.OpLdU64, Imm: 10},
		/*2*/ {Op: mvbc.OpLt},
		/*3*/ {Op: mvbc.OpBranchIfFalse, BranchTarget: 8},
		/*4*/ {Op: mvbc.OpCopyLoc, Index: 0},
		/*5*/ {Op: mvbc.OpLdU64, Imm: 1},
		/*6*/ {Op: mvbc.OpAdd, Index: 6},
		/*7*/ {Op: mvbc.OpBranch, BranchTarget: 0},
		/*8*/ {Op: mvbc.OpRet},
	}
	f := buildFunc(t, prog, code)
	if len(f.Blocks) != 3 {
		t.Fatalf("expected 3 basic blocks (header/body/after), got %d", len(f.Blocks))
	}
	Simplify(f)

	nodes := Structure(f)
	if len(nodes) == 0 || nodes[0].Kind != NodeBlock {
		t.Fatalf("expected the after-loop join to open a wrapping block, got %+v", nodes)
	}
	if len(nodes[0].Body) != 1 || nodes[0].Body[0].Kind != NodeLoop {
		t.Fatalf("expected a single loop inside the wrapping block, got %+v", nodes[0].Body)
	}
	loop := nodes[0].Body[0]
	var sawContinue, sawBreak bool
	for _, n := range loop.Body {
		if n.Kind == NodeBr && n.Target == loop.Label {
			sawContinue = true
		}
	}
	for _, n := range loop.Body {
		if n.Kind == NodeIf {
			for _, e := range n.Else {
				if e.Kind == NodeBr && e.Target == nodes[0].Label {
					sawBreak = true
				}
			}
		}
	}
	if !sawContinue {
		t.Fatalf("expected a back-edge branch to the loop header, got %+v", loop.Body)
	}
	if !sawBreak {
		t.Fatalf("expected the false arm of the condition to break out of the loop, got %+v", loop.Body)
	}
}
