package codegen

import (
	"github.com/rather-labs/move-stylus-poc/internal/layout"
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
)

func emitInstrs(b *wasmenc.Builder, instrs []mvbc.Instr, ctx *funcCtx) error {
	for _, ins := range instrs {
		if err := emitInstr(b, ins, ctx); err != nil {
			return err
		}
	}
	return nil
}

func emitInstr(b *wasmenc.Builder, ins mvbc.Instr, ctx *funcCtx) error {
	switch ins.Op {
	case mvbc.OpNop:
		// nothing.

	case mvbc.OpPop:
		b.Drop()

	case mvbc.OpLdConst:
		return emitLdConst(b, ins, ctx)

	case mvbc.OpLdTrue:
		b.I32Const(1)
	case mvbc.OpLdFalse:
		b.I32Const(0)
	case mvbc.OpLdU8, mvbc.OpLdU16, mvbc.OpLdU32:
		b.I32Const(int32(ins.Imm))
	case mvbc.OpLdU64:
		b.I64Const(int64(ins.Imm))
	case mvbc.OpLdU128:
		return emitLdWideImm(b, ctx, ins.ImmWide, 16)
	case mvbc.OpLdU256:
		return emitLdWideImm(b, ctx, ins.ImmWide, 32)

	case mvbc.OpCopyLoc:
		return emitCopyLoc(b, ins, ctx)
	case mvbc.OpMoveLoc:
		ctx.loadLocal(b, int(ins.Index))
	case mvbc.OpStLoc:
		ctx.storeLocal(b, int(ins.Index))

	case mvbc.OpBorrowLoc:
		ctx.emitBorrowLoc(b, int(ins.Index))
	case mvbc.OpBorrowField, mvbc.OpBorrowFieldGeneric:
		return emitBorrowFieldInstr(b, ctx, ins)
	case mvbc.OpReadRef:
		ctx.emitReadRef(b)
	case mvbc.OpWriteRef:
		ctx.emitWriteRef(b)
	case mvbc.OpFreezeRef:
		ctx.emitFreezeRef()

	case mvbc.OpAdd, mvbc.OpSub, mvbc.OpMul, mvbc.OpDiv, mvbc.OpMod,
		mvbc.OpBitAnd, mvbc.OpBitOr, mvbc.OpBitXor, mvbc.OpShl, mvbc.OpShr,
		mvbc.OpEq, mvbc.OpNeq, mvbc.OpLt, mvbc.OpLe, mvbc.OpGt, mvbc.OpGe:
		return emitArith(b, ctx, ins)
	case mvbc.OpNot:
		b.Raw(wasmenc.OpI32Eqz)

	case mvbc.OpCastU8:
		return emitCast(b, ctx, ins, 8)
	case mvbc.OpCastU16:
		return emitCast(b, ctx, ins, 16)
	case mvbc.OpCastU32:
		return emitCast(b, ctx, ins, 32)
	case mvbc.OpCastU64:
		return emitCast(b, ctx, ins, 64)
	case mvbc.OpCastU128:
		return emitCast(b, ctx, ins, 128)
	case mvbc.OpCastU256:
		return emitCast(b, ctx, ins, 256)

	case mvbc.OpCall:
		b.Call(ctx.env.FuncIndex(FuncSymbol(ctx.prog, ins.FuncTarget)))
	case mvbc.OpCallGeneric:
		return invariantf(ctx.fnName(), "CallGeneric survived monomorphization")

	case mvbc.OpNativeCall:
		return emitNativeCall(b, ctx, ins)

	case mvbc.OpPack, mvbc.OpPackGeneric:
		return emitPack(b, ctx, ins)
	case mvbc.OpUnpack, mvbc.OpUnpackGeneric:
		return emitUnpack(b, ctx, ins)
	case mvbc.OpPackVariant, mvbc.OpPackVariantGeneric:
		return emitPackVariant(b, ctx, ins)
	case mvbc.OpUnpackVariant, mvbc.OpUnpackVariantGeneric:
		return emitUnpackVariant(b, ctx, ins)
	case mvbc.OpVariantSwitch:
		// The enum pointer is already on the stack (evaluated by the
		// instruction just before this one); read its tag byte so the
		// enclosing NodeBrTable has something to dispatch on.
		b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{})

	case mvbc.OpVecPack, mvbc.OpVecLen, mvbc.OpVecImmBorrow, mvbc.OpVecMutBorrow,
		mvbc.OpVecPushBack, mvbc.OpVecPopBack, mvbc.OpVecSwap, mvbc.OpVecUnpack:
		return emitVec(b, ctx, ins)

	default:
		return unsupportedf(ctx.fnName(), "opcode %d has no codegen lowering", ins.Op)
	}
	return nil
}

func (c *funcCtx) fnName() string {
	name, _ := c.prog.Strings.Lookup(c.fn.Name)
	return name
}

func decodeLEUint(bs []byte) uint64 {
	var v uint64
	for i, byteVal := range bs {
		if i >= 8 {
			break
		}
		v |= uint64(byteVal) << (8 * i)
	}
	return v
}

func emitLdConst(b *wasmenc.Builder, ins mvbc.Instr, ctx *funcCtx) error {
	mod := ctx.prog.ModuleByID(ctx.fn.Module)
	if mod == nil || int(ins.Index) >= len(mod.Consts) {
		return invariantf(ctx.fnName(), "LdConst references an out-of-range constant pool index")
	}
	cst := mod.Consts[ins.Index]
	l, err := ctx.le.LayoutOf(cst.Type)
	if err != nil {
		return err
	}
	switch l.Repr {
	case layout.ReprI32:
		b.I32Const(int32(decodeLEUint(cst.Bytes)))
	case layout.ReprI64:
		b.I64Const(int64(decodeLEUint(cst.Bytes)))
	default:
		addr := ctx.env.EmitData(cst.Bytes)
		b.I32Const(int32(l.MemSize))
		b.Call(ctx.env.FuncIndex("rt_alloc"))
		b.LocalTee(ctx.scratch0)
		b.I32Const(int32(addr))
		b.I32Const(int32(l.MemSize))
		b.Call(ctx.env.FuncIndex("rt_clone_bytes"))
		b.LocalGet(ctx.scratch0)
	}
	return nil
}

// emitLdWideImm materializes a U128/U256 literal, byte-identical
// across every call site, as a Data segment cloned fresh on each
// execution (the same aliasing concern as emitLdConst's heap branch).
func emitLdWideImm(b *wasmenc.Builder, ctx *funcCtx, bytes []byte, size int) error {
	buf := make([]byte, size)
	copy(buf, bytes)
	addr := ctx.env.EmitData(buf)
	b.I32Const(int32(size))
	b.Call(ctx.env.FuncIndex("rt_alloc"))
	b.LocalTee(ctx.scratch0)
	b.I32Const(int32(addr))
	b.I32Const(int32(size))
	b.Call(ctx.env.FuncIndex("rt_clone_bytes"))
	b.LocalGet(ctx.scratch0)
	return nil
}

// emitCopyLoc duplicates a local's value. Scalar-represented locals
// need nothing beyond a load (WASM values are copies by nature);
// heap-represented locals must clone their pointee, since two Move
// stack slots holding the same struct/vector/wide-int pointer would
// let a WriteRef through one alias the other.
func emitCopyLoc(b *wasmenc.Builder, ins mvbc.Instr, ctx *funcCtx) error {
	idx := int(ins.Index)
	if ctx.fr.reprs[idx] != layout.ReprHeapPtr {
		ctx.loadLocal(b, idx)
		return nil
	}
	l, err := ctx.le.LayoutOf(ctx.fn.Locals[idx].Type)
	if err != nil {
		return err
	}
	if !l.Copyable {
		return invariantf(ctx.fnName(), "CopyLoc on a local of a non-Copy type")
	}
	ctx.loadLocal(b, idx)
	b.LocalSet(ctx.scratch0)
	b.I32Const(int32(l.MemSize))
	b.Call(ctx.env.FuncIndex("rt_alloc"))
	b.LocalTee(ctx.scratch1)
	b.LocalGet(ctx.scratch0)
	b.I32Const(int32(l.MemSize))
	b.Call(ctx.env.FuncIndex("rt_clone_bytes"))
	b.LocalGet(ctx.scratch1)
	return nil
}

func emitBorrowFieldInstr(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	l, err := ctx.le.LayoutOf(ins.ResolvedType)
	if err != nil {
		return err
	}
	info, ok := ctx.tin.StructInfo(ins.ResolvedType)
	if !ok || int(ins.Index) >= len(info.Fields) {
		return invariantf(ctx.fnName(), "BorrowField references an unknown field")
	}
	fl, err := ctx.le.LayoutOf(info.Fields[ins.Index].Type)
	if err != nil {
		return err
	}
	ctx.emitBorrowField(b, l.FieldOffsets[ins.Index], fl.Repr, fl.MemSize)
	return nil
}
