package wasmir

import (
	"fmt"
	"sort"

	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
)

func isControlFlow(op mvbc.Opcode) bool {
	switch op {
	case mvbc.OpBranch, mvbc.OpBranchIf, mvbc.OpBranchIfFalse,
		mvbc.OpRet, mvbc.OpAbort, mvbc.OpVariantSwitch:
		return true
	default:
		return false
	}
}

// Build splits f's flat, branch-offset-addressed instruction stream
// into a CFG of basic blocks with structured Terminators. f must
// already be monomorphized (no TypeParam-bearing operands survive).
func Build(prog *mvbc.Program, f *mvbc.Function) (*Func, error) {
	if f.IsNative {
		return nil, fmt.Errorf("wasmir: cannot build a CFG for native function %q", prog.Strings.MustLookup(f.Name))
	}
	code := f.Code
	if len(code) == 0 {
		return nil, fmt.Errorf("wasmir: function %q has an empty body", prog.Strings.MustLookup(f.Name))
	}

	leaders := map[int]bool{0: true}
	for i, ins := range code {
		switch ins.Op {
		case mvbc.OpBranch, mvbc.OpBranchIf, mvbc.OpBranchIfFalse:
			leaders[ins.BranchTarget] = true
			if i+1 < len(code) {
				leaders[i+1] = true
			}
		case mvbc.OpVariantSwitch:
			for _, t := range ins.VariantTargets {
				leaders[t] = true
			}
			if i+1 < len(code) {
				leaders[i+1] = true
			}
		case mvbc.OpRet, mvbc.OpAbort:
			if i+1 < len(code) {
				leaders[i+1] = true
			}
		}
	}

	offsets := make([]int, 0, len(leaders))
	for off := range leaders {
		if off >= 0 && off < len(code) {
			offsets = append(offsets, off)
		}
	}
	sort.Ints(offsets)

	idAt := make(map[int]BlockID, len(offsets))
	for i, off := range offsets {
		idAt[off] = BlockID(i)
	}
	blockFor := func(off int) (BlockID, error) {
		id, ok := idAt[off]
		if !ok {
			return 0, fmt.Errorf("wasmir: branch target %d in %q is not a valid instruction offset",
				off, "<function>")
		}
		return id, nil
	}

	blocks := make([]*Block, 0, len(offsets))
	for i, start := range offsets {
		end := len(code)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		b := &Block{ID: idAt[start]}
		j := start
		for ; j < end; j++ {
			ins := code[j]
			if isControlFlow(ins.Op) {
				break
			}
			b.Instrs = append(b.Instrs, ins)
		}
		if j == end {
			// Fell through to the next leader without an explicit
			// control-flow instruction: implicit fallthrough Goto.
			if end >= len(code) {
				return nil, fmt.Errorf("wasmir: function %q falls off the end of its body without a terminator",
					prog.Strings.MustLookup(f.Name))
			}
			target, err := blockFor(end)
			if err != nil {
				return nil, err
			}
			b.Term = Terminator{Kind: TermGoto, Goto: target}
			blocks = append(blocks, b)
			continue
		}

		ins := code[j]
		term, err := buildTerminator(ins, blockFor, end)
		if err != nil {
			return nil, err
		}
		b.Term = term
		blocks = append(blocks, b)
	}

	entry, err := blockFor(0)
	if err != nil {
		return nil, err
	}
	return &Func{
		ID:      f.ID,
		Name:    prog.Strings.MustLookup(f.Name),
		Params:  f.Params,
		Locals:  f.Locals,
		Results: f.Results,
		Blocks:  blocks,
		Entry:   entry,
	}, nil
}

func buildTerminator(ins mvbc.Instr, blockFor func(int) (BlockID, error), fallthroughOff int) (Terminator, error) {
	switch ins.Op {
	case mvbc.OpRet:
		return Terminator{Kind: TermReturn}, nil
	case mvbc.OpAbort:
		return Terminator{Kind: TermAbort, AbortCode: ins.AbortCode}, nil
	case mvbc.OpBranch:
		target, err := blockFor(ins.BranchTarget)
		if err != nil {
			return Terminator{}, err
		}
		return Terminator{Kind: TermGoto, Goto: target}, nil
	case mvbc.OpBranchIf, mvbc.OpBranchIfFalse:
		target, err := blockFor(ins.BranchTarget)
		if err != nil {
			return Terminator{}, err
		}
		fall, err := blockFor(fallthroughOff)
		if err != nil {
			return Terminator{}, err
		}
		if ins.Op == mvbc.OpBranchIf {
			return Terminator{Kind: TermIf, If: IfTerm{Then: target, Else: fall}}, nil
		}
		return Terminator{Kind: TermIf, If: IfTerm{Then: fall, Else: target}}, nil
	case mvbc.OpVariantSwitch:
		cases := make([]BlockID, len(ins.VariantTargets))
		for i, t := range ins.VariantTargets {
			id, err := blockFor(t)
			if err != nil {
				return Terminator{}, err
			}
			cases[i] = id
		}
		return Terminator{Kind: TermSwitch, Switch: SwitchTerm{Cases: cases}}, nil
	default:
		return Terminator{}, fmt.Errorf("wasmir: opcode %d is not a terminator", ins.Op)
	}
}

// BuildModule builds a CFG for every function in fns.
func BuildModule(prog *mvbc.Program, fns []*mvbc.Function) (*Module, error) {
	mod := &Module{Funcs: make([]*Func, 0, len(fns))}
	for _, f := range fns {
		if f.IsNative {
			continue // internal/objectmodel supplies the body directly to codegen
		}
		cf, err := Build(prog, f)
		if err != nil {
			return nil, err
		}
		Simplify(cf)
		mod.Funcs = append(mod.Funcs, cf)
	}
	return mod, nil
}
