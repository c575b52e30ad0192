package codegen

import (
	"github.com/rather-labs/move-stylus-poc/internal/layout"
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
)

// frame is one function's local-variable storage: a single rt_alloc'd
// block addressed as framePtr+offset, an alloca-per-local model
// adapted because WASM has no stack-allocation instruction of its own.
//
// A slot's size comes from its WasmRepr, not layout.TypeLayout.MemSize:
// a local of a heap-represented type (U128, a struct, a vector) holds
// only the i32 pointer that is its WASM-stack value, exactly like a
// struct field of the same type would if this backend ever boxed
// fields — it does not, see computeStructLayout, but a local slot
// always does. MemSize governs the allocation Pack/CopyLoc materializes
// the pointee into, not the pointer slot itself.
type frame struct {
	offsets []int
	reprs   []layout.WasmRepr
	size    int
}

func alignUp(off, align int) int {
	if align <= 1 {
		return off
	}
	if rem := off % align; rem != 0 {
		return off + (align - rem)
	}
	return off
}

func buildFrame(le *layout.Engine, locals []mvbc.Param) (frame, error) {
	fr := frame{
		offsets: make([]int, len(locals)),
		reprs:   make([]layout.WasmRepr, len(locals)),
	}
	off := 0
	for i, p := range locals {
		l, err := le.LayoutOf(p.Type)
		if err != nil {
			return frame{}, err
		}
		size, align := 4, 4
		if l.Repr == layout.ReprI64 {
			size, align = 8, 8
		}
		off = alignUp(off, align)
		fr.offsets[i] = off
		fr.reprs[i] = l.Repr
		off += size
	}
	fr.size = off
	return fr, nil
}
