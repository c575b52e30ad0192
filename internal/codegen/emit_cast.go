package codegen

import (
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
)

// emitCast lowers OpCastU8..OpCastU256.
// srcWidth is not carried on the instruction directly — Move's cast
// opcodes only name the destination width — so the source class is
// recovered from ins.Width, which internal/mvbc's loader fills from
// the width byte each cast instruction carries in this backend's
// bytecode format.
func emitCast(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr, dstWidth int) error {
	srcClass := classify(ins.Width)
	dstClass := classify(dstWidth)

	switch {
	case srcClass == classI32 && dstClass == classI32:
		return emitCastI32ToI32(b, ctx, ins.Width, dstWidth)
	case srcClass == classI32 && dstClass == classI64:
		b.Raw(wasmenc.OpI64ExtendI32U)
	case srcClass == classI32 && dstClass == classWide:
		return emitCastNarrowToWide(b, ctx, dstWidth, false)
	case srcClass == classI64 && dstClass == classI32:
		return emitCastI64ToI32(b, ctx, dstWidth)
	case srcClass == classI64 && dstClass == classI64:
		// no-op: both are the u64 native representation.
	case srcClass == classI64 && dstClass == classWide:
		return emitCastNarrowToWide(b, ctx, dstWidth, true)
	case srcClass == classWide && dstClass == classI32:
		return emitCastWideToNarrow(b, ctx, ins.Width, dstWidth, false)
	case srcClass == classWide && dstClass == classI64:
		return emitCastWideToNarrow(b, ctx, ins.Width, dstWidth, true)
	case srcClass == classWide && dstClass == classWide:
		return emitCastWideToWide(b, ctx, ins.Width, dstWidth)
	default:
		return unsupportedf(ctx.fnName(), "cast from width %d to %d has no lowering", ins.Width, dstWidth)
	}
	return nil
}

// emitCastI32ToI32 narrows or widens within the shared i32 register
// class (u8/u16/u32 all live as a full i32 word): widening is a no-op,
// narrowing must abort if any of the discarded high bits are set.
func emitCastI32ToI32(b *wasmenc.Builder, ctx *funcCtx, srcWidth, dstWidth int) error {
	if dstWidth >= srcWidth {
		return nil
	}
	b.LocalTee(ctx.scratch0)
	b.I32Const(int32(maxUnsigned(dstWidth)))
	b.Raw(wasmenc.OpI32GtU)
	b.If(wasmenc.BlockType{Empty: true})
	emitAbort(b, ctx)
	b.End()
	b.LocalGet(ctx.scratch0)
	return nil
}

// emitCastI64ToI32 narrows u64 down to an i32-class width, aborting if
// the discarded high bits (or the low bits above dstWidth) are set.
func emitCastI64ToI32(b *wasmenc.Builder, ctx *funcCtx, dstWidth int) error {
	b.LocalTee(ctx.scratchI64)
	b.I64Const(int64(maxUnsigned(dstWidth)))
	b.Raw(wasmenc.OpI64GtU)
	b.If(wasmenc.BlockType{Empty: true})
	emitAbort(b, ctx)
	b.End()
	b.LocalGet(ctx.scratchI64)
	b.Raw(wasmenc.OpI32WrapI64)
	return nil
}

// emitCastNarrowToWide widens an i32- or i64-class value into a
// 128/256-bit heap buffer: allocate it (fresh rt_alloc memory is zero,
// internal/runtime/object.go's zeroing convention), then store just
// the low word.
func emitCastNarrowToWide(b *wasmenc.Builder, ctx *funcCtx, dstWidth int, fromI64 bool) error {
	if fromI64 {
		b.LocalSet(ctx.scratchI64)
	} else {
		b.LocalSet(ctx.scratch0)
	}
	b.I32Const(int32(dstWidth / 8))
	b.Call(ctx.env.FuncIndex("rt_alloc"))
	b.LocalTee(ctx.scratch1)
	if fromI64 {
		b.LocalGet(ctx.scratchI64)
		b.Mem(wasmenc.OpI64Store, wasmenc.MemArg{Align: 3})
	} else {
		b.LocalGet(ctx.scratch0)
		b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2})
	}
	b.LocalGet(ctx.scratch1)
	return nil
}

// emitCastWideToNarrow narrows a 128/256-bit buffer down to an i32- or
// i64-class value, aborting unless every byte above dstWidth is zero.
func emitCastWideToNarrow(b *wasmenc.Builder, ctx *funcCtx, srcWidth, dstWidth int, toI64 bool) error {
	keepBytes := dstWidth / 8
	b.LocalSet(ctx.scratch0) // src ptr
	emitWideRangeIsZero(b, ctx, ctx.scratch0, keepBytes, srcWidth/8)
	b.Raw(wasmenc.OpI32Eqz)
	b.If(wasmenc.BlockType{Empty: true})
	emitAbort(b, ctx)
	b.End()

	b.LocalGet(ctx.scratch0)
	if toI64 {
		b.Mem(wasmenc.OpI64Load, wasmenc.MemArg{Align: 3})
	} else {
		b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
	}
	return nil
}

// emitCastWideToWide handles 128<->256 casts: widening clones into a
// larger zeroed buffer, narrowing clones the low bytes after checking
// the discarded high bytes are all zero.
func emitCastWideToWide(b *wasmenc.Builder, ctx *funcCtx, srcWidth, dstWidth int) error {
	if dstWidth == srcWidth {
		return nil
	}
	if dstWidth > srcWidth {
		b.LocalSet(ctx.scratch0) // src ptr
		b.I32Const(int32(dstWidth / 8))
		b.Call(ctx.env.FuncIndex("rt_alloc"))
		b.LocalTee(ctx.scratch1)
		b.LocalGet(ctx.scratch0)
		b.I32Const(int32(srcWidth / 8))
		b.Call(ctx.env.FuncIndex("rt_clone_bytes"))
		b.LocalGet(ctx.scratch1)
		return nil
	}

	b.LocalSet(ctx.scratch0) // src ptr
	emitWideRangeIsZero(b, ctx, ctx.scratch0, dstWidth/8, srcWidth/8)
	b.Raw(wasmenc.OpI32Eqz)
	b.If(wasmenc.BlockType{Empty: true})
	emitAbort(b, ctx)
	b.End()

	b.I32Const(int32(dstWidth / 8))
	b.Call(ctx.env.FuncIndex("rt_alloc"))
	b.LocalTee(ctx.scratch1)
	b.LocalGet(ctx.scratch0)
	b.I32Const(int32(dstWidth / 8))
	b.Call(ctx.env.FuncIndex("rt_clone_bytes"))
	b.LocalGet(ctx.scratch1)
	return nil
}

// emitWideRangeIsZero pushes 1 iff every byte of ptrLocal in
// [from,to) is zero, via a compile-time-unrolled byte scan (from/to
// are both known widths at codegen time, never more than 32 bytes).
func emitWideRangeIsZero(b *wasmenc.Builder, ctx *funcCtx, ptrLocal uint32, from, to int) {
	b.I32Const(1)
	b.LocalSet(ctx.scratch1) // accumulator
	for i := from; i < to; i++ {
		b.LocalGet(ptrLocal)
		b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{Offset: uint32(i)})
		b.Raw(wasmenc.OpI32Eqz)
		b.LocalGet(ctx.scratch1)
		b.Raw(wasmenc.OpI32And)
		b.LocalSet(ctx.scratch1)
	}
	b.LocalGet(ctx.scratch1)
}
