package wasmir

import "github.com/rather-labs/move-stylus-poc/internal/mvbc"

// NodeKind enumerates the shapes Structure can produce.
type NodeKind uint8

const (
	// NodeSeq is a straight run of instructions with no control effect.
	NodeSeq NodeKind = iota
	// NodeIf lowers a TermIf: Then/Else are the structured bodies
	// taken for a true/false condition. An empty arm means "fall
	// through past this If node" rather than "do nothing then jump".
	NodeIf
	// NodeLoop opens a `loop` scope; Body executes once per iteration,
	// and an enclosed NodeBr targeting Label restarts it.
	NodeLoop
	// NodeBlock opens a `block` scope; a NodeBr targeting Label
	// exits it, resuming right after this node in the parent sequence.
	NodeBlock
	// NodeBr is an unconditional branch to an enclosing Loop or Block
	// scope named by Target.
	NodeBr
	// NodeBrTable dispatches on the enum tag already popped off the
	// operand stack; Cases[i] is the scope to branch to for tag i.
	NodeBrTable
	NodeReturn
	NodeAbort
)

// Node is one entry of a structured control-flow tree. Which fields
// are meaningful depends on Kind, mirroring wasmir.Instr's own
// one-struct-many-shapes style.
type Node struct {
	Kind NodeKind

	Instrs []mvbc.Instr // NodeSeq

	Then []Node // NodeIf
	Else []Node // NodeIf

	Label BlockID // NodeLoop, NodeBlock: the scope's identity
	Body  []Node  // NodeLoop, NodeBlock

	Target BlockID // NodeBr: the enclosing scope to jump to

	Cases []BlockID // NodeBrTable

	AbortCode uint64 // NodeAbort
}

// Structure turns f's CFG into a nested block/loop/if tree.
//
// This is not a full multi-shape relooper: rather than computing the
// minimal nesting for every branch (as e.g. LLVM's CFGStackify does),
// every basic block's forward branch targets get a wrapping NodeBlock
// opened at the start of whichever range currently contains it. That
// is occasionally more deeply nested than necessary, but it is
// correct for any reducible CFG without needing a second pass to
// prove minimality — a tradeoff worth making when nothing downstream
// of this package gets to run through an actual WASM validator before
// this repository ships.
func Structure(f *Func) []Node {
	pos := make(map[BlockID]int, len(f.Blocks))
	for i, b := range f.Blocks {
		pos[b.ID] = i
	}
	ext := loopExtents(f, pos)
	byPos := f.Blocks

	var build func(lo, hi int) []Node
	var linear func(lo, hi int) []Node

	forwardTargetsIn := func(lo, hi int) []int {
		seen := make(map[int]bool)
		var out []int
		for p := lo; p < hi; p++ {
			for _, s := range successors(byPos[p]) {
				sp := pos[s]
				if sp == p+1 {
					continue // plain fallthrough, edgeNode never emits a Br for it
				}
				if sp > p && sp < hi && !seen[sp] {
					seen[sp] = true
					out = append(out, sp)
				}
			}
		}
		// insertion order above is not sorted; sort ascending.
		for i := 1; i < len(out); i++ {
			for j := i; j > 0 && out[j-1] > out[j]; j-- {
				out[j-1], out[j] = out[j], out[j-1]
			}
		}
		return out
	}

	var buildNested func(lo, hi int, targets []int) []Node
	buildNested = func(lo, hi int, targets []int) []Node {
		if len(targets) == 0 {
			return linear(lo, hi)
		}
		last := targets[len(targets)-1]
		inner := buildNested(lo, last, targets[:len(targets)-1])
		wrapped := Node{Kind: NodeBlock, Label: byPos[last].ID, Body: inner}
		rest := linear(last, hi)
		return append([]Node{wrapped}, rest...)
	}

	build = func(lo, hi int) []Node {
		return buildNested(lo, hi, forwardTargetsIn(lo, hi))
	}

	edgeNode := func(target BlockID, curPos int) []Node {
		if pos[target] == curPos+1 {
			return nil
		}
		return []Node{{Kind: NodeBr, Target: target}}
	}

	// blockNode lowers one block's own Instrs and Term, without
	// considering whether p is a loop header — used both for ordinary
	// blocks and, from the loop branch below, for a header block once
	// its Loop wrapper has already been opened.
	blockNode := func(p int) []Node {
		b := byPos[p]
		switch b.Term.Kind {
		case TermReturn:
			return []Node{{Kind: NodeSeq, Instrs: b.Instrs}, {Kind: NodeReturn}}
		case TermAbort:
			return []Node{{Kind: NodeSeq, Instrs: b.Instrs}, {Kind: NodeAbort, AbortCode: b.Term.AbortCode}}
		case TermGoto:
			out := []Node{{Kind: NodeSeq, Instrs: b.Instrs}}
			return append(out, edgeNode(b.Term.Goto, p)...)
		case TermIf:
			return []Node{
				{Kind: NodeSeq, Instrs: b.Instrs},
				{Kind: NodeIf, Then: edgeNode(b.Term.If.Then, p), Else: edgeNode(b.Term.If.Else, p)},
			}
		case TermSwitch:
			return []Node{
				{Kind: NodeSeq, Instrs: b.Instrs},
				{Kind: NodeBrTable, Cases: append([]BlockID(nil), b.Term.Switch.Cases...)},
			}
		default:
			return []Node{{Kind: NodeSeq, Instrs: b.Instrs}}
		}
	}

	linear = func(lo, hi int) []Node {
		var out []Node
		p := lo
		for p < hi {
			if end, ok := ext[p]; ok {
				loopEnd := end
				if loopEnd >= hi {
					loopEnd = hi - 1
				}
				// The header itself (p) is lowered here directly, not
				// re-dispatched through build/linear, since it is the
				// very block that made ext[p] match in the first
				// place — recursing on [p, loopEnd+1) again would
				// just rediscover the same loop and never terminate.
				body := append(blockNode(p), build(p+1, loopEnd+1)...)
				out = append(out, Node{Kind: NodeLoop, Label: byPos[p].ID, Body: body})
				p = loopEnd + 1
				continue
			}
			out = append(out, blockNode(p)...)
			p++
		}
		return out
	}

	return build(0, len(f.Blocks))
}

// loopExtents maps each loop header's position to the last position
// (inclusive) belonging to its body, found from the farthest back-edge
// targeting it.
func loopExtents(f *Func, pos map[BlockID]int) map[int]int {
	ext := make(map[int]int)
	for _, b := range f.Blocks {
		p := pos[b.ID]
		for _, s := range successors(b) {
			sp := pos[s]
			if sp <= p {
				if cur, ok := ext[sp]; !ok || p > cur {
					ext[sp] = p
				}
			}
		}
	}
	return ext
}
