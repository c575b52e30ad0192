// Package wasmir builds a control-flow graph over each monomorphized
// function's flat instruction stream, then structures that graph into
// a nested block/loop/if tree codegen can walk directly into
// WebAssembly's structured control instructions.
package wasmir

import "github.com/rather-labs/move-stylus-poc/internal/mvbc"

// BlockID identifies a basic block within one Func's body, and also
// doubles as a structured-tree scope label once Structure runs: a
// Block/Loop node's Label is the ID of the basic block it was built
// around, and Br nodes name their target the same way.
type BlockID int

// Block is a maximal straight-line run of non-control-flow
// instructions ending in exactly one Terminator. Instrs never
// contains a branch, call-return, or abort opcode; those live in
// Term.
type Block struct {
	ID     BlockID
	Instrs []mvbc.Instr
	Term   Terminator
}
