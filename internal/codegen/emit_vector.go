package codegen

import (
	"github.com/rather-labs/move-stylus-poc/internal/layout"
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
)

// emitVec dispatches the eight vector opcodes to internal/runtime's
// rt_vec_* bodies (internal/runtime/vector.go), each parameterized by
// the element type's MemSize: vectors embed elements inline in their
// backing buffer the same way struct fields do, so codegen — not the
// runtime — is the one place that knows an element's size.
func emitVec(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	el, err := ctx.le.LayoutOf(ins.ResolvedType)
	if err != nil {
		return err
	}
	switch ins.Op {
	case mvbc.OpVecPack:
		return emitVecPack(b, ctx, el, int(ins.Imm))
	case mvbc.OpVecUnpack:
		return emitVecUnpack(b, ctx, el, int(ins.Imm))
	case mvbc.OpVecLen:
		b.Call(ctx.env.FuncIndex("rt_vec_len"))
	case mvbc.OpVecImmBorrow, mvbc.OpVecMutBorrow:
		return emitVecBorrow(b, ctx, el)
	case mvbc.OpVecPushBack:
		return emitVecPushBack(b, ctx, el)
	case mvbc.OpVecPopBack:
		b.I32Const(int32(el.MemSize))
		b.Call(ctx.env.FuncIndex("rt_vec_pop_back"))
		emitLoadValueAt(b, el)
	case mvbc.OpVecSwap:
		b.I32Const(int32(el.MemSize))
		b.Call(ctx.env.FuncIndex("rt_vec_swap"))
	default:
		return unsupportedf(ctx.fnName(), "opcode %d has no vector lowering", ins.Op)
	}
	return nil
}

// emitVecPack builds a vector literal of n compile-time-known elements.
// Move pushes element operands in declaration order, so the stack top
// is the last one; rt_vec_push_back only ever appends, so elements
// must be handed to it in forward order. Rather than juggle n
// concurrently-live WASM locals (out of reach once n exceeds this
// backend's small scratch pool), operands are first staged — in
// whatever order they come off the stack — into a scratch heap buffer
// addressed by a fixed offset per index, then replayed into the
// vector index 0 upward.
func emitVecPack(b *wasmenc.Builder, ctx *funcCtx, el layout.TypeLayout, n int) error {
	if n == 0 {
		b.I32Const(int32(el.MemSize))
		b.Call(ctx.env.FuncIndex("rt_vec_new"))
		return nil
	}

	b.I32Const(int32(n * el.MemSize))
	b.Call(ctx.env.FuncIndex("rt_alloc"))
	b.LocalSet(ctx.scratch1) // staging buffer base

	for i := n - 1; i >= 0; i-- {
		if err := ctx.popFieldInto(b, ctx.scratch1, i*el.MemSize, el); err != nil {
			return err
		}
	}

	b.I32Const(int32(el.MemSize))
	b.Call(ctx.env.FuncIndex("rt_vec_new"))
	b.LocalSet(ctx.scratch0) // hdr

	for i := 0; i < n; i++ {
		b.LocalGet(ctx.scratch0)
		b.I32Const(int32(el.MemSize))
		b.Call(ctx.env.FuncIndex("rt_vec_push_back"))
		ctx.pushFieldFrom(b, ctx.scratch1, i*el.MemSize, el)
		emitStoreValueOnStack(b, ctx, el)
	}

	b.LocalGet(ctx.scratch0)
	return nil
}

// emitVecUnpack is VecPack's inverse: pop the vector, then push its n
// elements' values back onto the operand stack in original order.
func emitVecUnpack(b *wasmenc.Builder, ctx *funcCtx, el layout.TypeLayout, n int) error {
	b.LocalSet(ctx.scratch0) // hdr
	for i := 0; i < n; i++ {
		b.LocalGet(ctx.scratch0)
		b.I32Const(int32(i))
		b.I32Const(int32(el.MemSize))
		b.Call(ctx.env.FuncIndex("rt_vec_borrow"))
		emitLoadValueAt(b, el)
	}
	return nil
}

// emitVecBorrow consumes [hdr, idx] and produces a reference tagged
// by the element's representation, matching the field-embedding rule
// BorrowField uses (see emit_refs.go): a scalar-repr element needs a
// Load/Store through the returned address, a heap-repr element's
// address already is its value.
func emitVecBorrow(b *wasmenc.Builder, ctx *funcCtx, el layout.TypeLayout) error {
	b.I32Const(int32(el.MemSize))
	b.Call(ctx.env.FuncIndex("rt_vec_borrow"))
	out := refTag{Kind: tagForRepr(el.Repr)}
	if el.Repr == layout.ReprHeapPtr {
		out = refTag{Kind: refEmbedded, Size: el.MemSize}
	}
	ctx.pushRef(out)
	return nil
}

// emitVecPushBack consumes Move's push_back(v: &mut vector<T>, e: T)
// operand order [hdr, value] (value on top): the value is staged
// through a one-element buffer so its bytes survive the rt_vec_push_back
// call before being written into the freshly grown slot.
func emitVecPushBack(b *wasmenc.Builder, ctx *funcCtx, el layout.TypeLayout) error {
	b.I32Const(int32(el.MemSize))
	b.Call(ctx.env.FuncIndex("rt_alloc"))
	b.LocalSet(ctx.scratch1)
	if err := ctx.popFieldInto(b, ctx.scratch1, 0, el); err != nil {
		return err
	}

	b.I32Const(int32(el.MemSize))
	b.Call(ctx.env.FuncIndex("rt_vec_push_back"))
	ctx.pushFieldFrom(b, ctx.scratch1, 0, el)
	emitStoreValueOnStack(b, ctx, el)
	return nil
}

// emitStoreValueOnStack consumes [destAddr, srcValue] (as left by a
// pushFieldFrom call) and writes srcValue into destAddr: a direct
// store for scalar reprs, a byte clone for heap-repr elements whose
// "value" is itself a source pointer.
func emitStoreValueOnStack(b *wasmenc.Builder, ctx *funcCtx, el layout.TypeLayout) {
	switch el.Repr {
	case layout.ReprI64:
		b.Mem(wasmenc.OpI64Store, wasmenc.MemArg{Align: 3})
	case layout.ReprHeapPtr:
		b.I32Const(int32(el.MemSize))
		b.Call(ctx.env.FuncIndex("rt_clone_bytes"))
	default:
		b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2})
	}
}

// emitLoadValueAt reads the value addressed by the pointer already on
// the stack: scalar elements Load their word, heap-repr elements are
// already addresses (the embedded-value convention).
func emitLoadValueAt(b *wasmenc.Builder, el layout.TypeLayout) {
	switch el.Repr {
	case layout.ReprI64:
		b.Mem(wasmenc.OpI64Load, wasmenc.MemArg{Align: 3})
	case layout.ReprHeapPtr:
		// already the value's address.
	default:
		b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
	}
}
