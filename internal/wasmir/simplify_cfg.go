package wasmir

// Simplify folds trivial goto-only chains into their predecessor and
// drops unreachable blocks, run to a fixpoint. Mirrors the shape of a
// classic simplify-CFG pass: fewer, larger blocks make the structurer
// in structure.go produce shallower nesting.
func Simplify(f *Func) {
	for {
		if !mergeGotoChains(f) {
			break
		}
	}
	dropUnreachable(f)
}

func predecessorCounts(f *Func) map[BlockID]int {
	counts := make(map[BlockID]int, len(f.Blocks))
	for _, b := range f.Blocks {
		for _, s := range successors(b) {
			counts[s]++
		}
	}
	return counts
}

func successors(b *Block) []BlockID {
	switch b.Term.Kind {
	case TermGoto:
		return []BlockID{b.Term.Goto}
	case TermIf:
		return []BlockID{b.Term.If.Then, b.Term.If.Else}
	case TermSwitch:
		return b.Term.Switch.Cases
	default:
		return nil
	}
}

// mergeGotoChains merges any block A --goto--> B where B has exactly
// one predecessor into A, and reports whether it changed anything.
// Only forward merges are considered: a goto to an earlier (or equal)
// block is a loop's back edge, not a simplification opportunity, and
// folding it away would erase the loop.
func mergeGotoChains(f *Func) bool {
	preds := predecessorCounts(f)
	byID := make(map[BlockID]*Block, len(f.Blocks))
	pos := make(map[BlockID]int, len(f.Blocks))
	for i, b := range f.Blocks {
		byID[b.ID] = b
		pos[b.ID] = i
	}

	changed := false
	out := make([]*Block, 0, len(f.Blocks))
	absorbed := make(map[BlockID]bool)
	for _, a := range f.Blocks {
		if absorbed[a.ID] {
			continue
		}
		for a.Term.Kind == TermGoto {
			target := a.Term.Goto
			if target == a.ID || target == f.Entry || preds[target] != 1 || pos[target] <= pos[a.ID] {
				break
			}
			b := byID[target]
			if b == nil {
				break
			}
			a.Instrs = append(a.Instrs, b.Instrs...)
			a.Term = b.Term
			absorbed[b.ID] = true
			changed = true
		}
		out = append(out, a)
	}
	f.Blocks = out
	return changed
}

func dropUnreachable(f *Func) {
	reachable := map[BlockID]bool{f.Entry: true}
	worklist := []BlockID{f.Entry}
	byID := make(map[BlockID]*Block, len(f.Blocks))
	for _, b := range f.Blocks {
		byID[b.ID] = b
	}
	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]
		b := byID[id]
		if b == nil {
			continue
		}
		for _, s := range successors(b) {
			if !reachable[s] {
				reachable[s] = true
				worklist = append(worklist, s)
			}
		}
	}
	out := f.Blocks[:0]
	for _, b := range f.Blocks {
		if reachable[b.ID] {
			out = append(out, b)
		}
	}
	f.Blocks = out
}
