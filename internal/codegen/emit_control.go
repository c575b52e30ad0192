package codegen

import (
	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
	"github.com/rather-labs/move-stylus-poc/internal/wasmir"
)

// emitNodes walks one structured-tree level (internal/wasmir.Structure's
// output), translating each Node into the WASM structured control
// instruction it names. labels is the stack of BlockID a NodeBr/
// NodeBrTable target resolves against, innermost last.
func emitNodes(b *wasmenc.Builder, labels []wasmir.BlockID, nodes []wasmir.Node, ctx *funcCtx) error {
	for i := range nodes {
		n := nodes[i]
		switch n.Kind {
		case wasmir.NodeSeq:
			if err := emitInstrs(b, n.Instrs, ctx); err != nil {
				return err
			}

		case wasmir.NodeIf:
			b.If(wasmenc.BlockType{Empty: true})
			if err := emitNodes(b, labels, n.Then, ctx); err != nil {
				return err
			}
			if len(n.Else) > 0 {
				b.Else()
				if err := emitNodes(b, labels, n.Else, ctx); err != nil {
					return err
				}
			}
			b.End()

		case wasmir.NodeBlock:
			b.Block(wasmenc.BlockType{Empty: true})
			if err := emitNodes(b, withLabel(labels, n.Label), n.Body, ctx); err != nil {
				return err
			}
			b.End()

		case wasmir.NodeLoop:
			b.Loop(wasmenc.BlockType{Empty: true})
			if err := emitNodes(b, withLabel(labels, n.Label), n.Body, ctx); err != nil {
				return err
			}
			b.End()

		case wasmir.NodeBr:
			b.Br(depthOf(labels, n.Target))

		case wasmir.NodeBrTable:
			// The enum's tag byte was already read onto the stack by
			// this node's preceding NodeSeq (emitInstr's OpVariantSwitch
			// handling, see emit_instr.go) — br_table just needs the
			// relative depths.
			targets := make([]uint32, len(n.Cases))
			for i, c := range n.Cases {
				targets[i] = depthOf(labels, c)
			}
			def := targets[len(targets)-1]
			b.BrTable(targets, def)

		case wasmir.NodeReturn:
			b.Return()

		case wasmir.NodeAbort:
			b.I32Const(int32(uint32(n.AbortCode)))
			b.Call(ctx.env.FuncIndex("rt_abort"))
			b.Unreachable()
		}
	}
	return nil
}

func withLabel(labels []wasmir.BlockID, l wasmir.BlockID) []wasmir.BlockID {
	out := make([]wasmir.BlockID, len(labels)+1)
	copy(out, labels)
	out[len(labels)] = l
	return out
}

func depthOf(labels []wasmir.BlockID, target wasmir.BlockID) uint32 {
	for i := len(labels) - 1; i >= 0; i-- {
		if labels[i] == target {
			return uint32(len(labels) - 1 - i)
		}
	}
	panic("codegen: branch target not found in enclosing scope stack")
}
