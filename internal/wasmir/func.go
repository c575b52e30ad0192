package wasmir

import (
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// Func is one monomorphized function's control-flow graph, still in
// Move's stack-machine instruction set but split into basic blocks
// with structured Terminators instead of raw code-offset branches.
type Func struct {
	ID      mvbc.FunctionID
	Name    string
	Params  []mvbc.Param
	Locals  []mvbc.Param
	Results []types.TypeID

	Blocks []*Block // in code-offset order; Blocks[0].ID == Entry
	Entry  BlockID
}

// BlockByID returns the block with the given ID, or nil.
func (f *Func) BlockByID(id BlockID) *Block {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Module is wasmir's output: every reachable, monomorphized function
// lowered to a CFG.
type Module struct {
	Funcs []*Func
}
