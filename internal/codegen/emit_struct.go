package codegen

import (
	"github.com/rather-labs/move-stylus-poc/internal/layout"
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/types"
	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
)

// emitPack lowers Pack/PackGeneric: n = len(fields) values already sit
// on the operand stack in declaration order (so the top of stack is
// the last-declared field), and a single struct buffer is allocated
// once and filled field by field to avoid needing len(fields)
// concurrently-live WASM locals — this backend keeps only the
// destination pointer live (ctx.scratch2) across the whole sequence,
// staging each popped value through scratch0/scratchI64 and writing
// it to its offset immediately, one field at a time.
func emitPack(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	l, err := ctx.le.LayoutOf(ins.ResolvedType)
	if err != nil {
		return err
	}
	info, ok := ctx.tin.StructInfo(ins.ResolvedType)
	if !ok {
		return invariantf(ctx.fnName(), "Pack references an unknown struct")
	}

	b.I32Const(int32(l.MemSize))
	b.Call(ctx.env.FuncIndex("rt_alloc"))
	b.LocalSet(ctx.scratch2)

	for i := len(info.Fields) - 1; i >= 0; i-- {
		fl, err := ctx.le.LayoutOf(info.Fields[i].Type)
		if err != nil {
			return err
		}
		if err := ctx.popFieldInto(b, ctx.scratch2, l.FieldOffsets[i], fl); err != nil {
			return err
		}
	}

	// A key-ability object's identity lives in the reserved [0,32)
	// prefix (internal/layout's computeStructLayout), separate from the
	// `id: UID` field's own storage as field 0 — keep the two in sync
	// so rt_object_delete/rt_object_set_owner see the value Move code
	// just packed into `id`.
	if l.IsObject && len(info.Fields) > 0 {
		b.LocalGet(ctx.scratch2)
		b.LocalGet(ctx.scratch2)
		b.I32Const(int32(l.FieldOffsets[0]))
		b.Raw(wasmenc.OpI32Add)
		b.I32Const(32)
		b.Call(ctx.env.FuncIndex("rt_clone_bytes"))
	}

	b.LocalGet(ctx.scratch2)
	return nil
}

// popFieldInto pops the value on top of the stack and writes it into
// destBase+offset: a direct store for scalar reprs, a byte clone for
// heap-repr fields (the popped value is itself a source pointer under
// this backend's field-embedding convention).
func (c *funcCtx) popFieldInto(b *wasmenc.Builder, destBase uint32, offset int, fl layout.TypeLayout) error {
	switch fl.Repr {
	case layout.ReprI64:
		b.LocalSet(c.scratchI64)
		b.LocalGet(destBase)
		if offset != 0 {
			b.I32Const(int32(offset))
			b.Raw(wasmenc.OpI32Add)
		}
		b.LocalGet(c.scratchI64)
		b.Mem(wasmenc.OpI64Store, wasmenc.MemArg{Align: 3})
	case layout.ReprHeapPtr:
		b.LocalSet(c.scratch0) // source pointer
		b.LocalGet(destBase)
		if offset != 0 {
			b.I32Const(int32(offset))
			b.Raw(wasmenc.OpI32Add)
		}
		b.LocalGet(c.scratch0)
		b.I32Const(int32(fl.MemSize))
		b.Call(c.env.FuncIndex("rt_clone_bytes"))
	default:
		b.LocalSet(c.scratch0)
		b.LocalGet(destBase)
		if offset != 0 {
			b.I32Const(int32(offset))
			b.Raw(wasmenc.OpI32Add)
		}
		b.LocalGet(c.scratch0)
		b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2})
	}
	return nil
}

// emitUnpack is Pack's inverse: pop the struct pointer and push every
// field's value back onto the stack in declaration order.
func emitUnpack(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	info, ok := ctx.tin.StructInfo(ins.ResolvedType)
	if !ok {
		return invariantf(ctx.fnName(), "Unpack references an unknown struct")
	}
	l, err := ctx.le.LayoutOf(ins.ResolvedType)
	if err != nil {
		return err
	}
	b.LocalSet(ctx.scratch2)
	for i := range info.Fields {
		fl, err := ctx.le.LayoutOf(info.Fields[i].Type)
		if err != nil {
			return err
		}
		ctx.pushFieldFrom(b, ctx.scratch2, l.FieldOffsets[i], fl)
	}
	return nil
}

func (c *funcCtx) pushFieldFrom(b *wasmenc.Builder, base uint32, offset int, fl layout.TypeLayout) {
	b.LocalGet(base)
	if offset != 0 {
		b.I32Const(int32(offset))
		b.Raw(wasmenc.OpI32Add)
	}
	switch fl.Repr {
	case layout.ReprI64:
		b.Mem(wasmenc.OpI64Load, wasmenc.MemArg{Align: 3})
	case layout.ReprHeapPtr:
		// already the field's address, the embedded-value convention.
	default:
		b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
	}
}

// variantFieldOffsets recomputes one enum variant's own field layout
// (internal/layout only exposes the enum's overall MemSize/PayloadOffset,
// sized for the widest variant, not each variant's individual field
// offsets) using the same sequential-packing rule internal/layout/pack.go
// applies, so codegen and the layout engine never disagree about how a
// variant's fields sit relative to each other.
func variantFieldOffsets(le *layout.Engine, fieldTypes []types.TypeID) ([]int, error) {
	offsets := make([]int, len(fieldTypes))
	off := 0
	for i, ft := range fieldTypes {
		fl, err := le.LayoutOf(ft)
		if err != nil {
			return nil, err
		}
		off = alignUp(off, fl.MemAlign)
		offsets[i] = off
		off += fl.MemSize
	}
	return offsets, nil
}

func emitPackVariant(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	l, err := ctx.le.LayoutOf(ins.ResolvedType)
	if err != nil {
		return err
	}
	info, ok := ctx.tin.EnumInfo(ins.ResolvedType)
	if !ok || ins.VariantIndex >= len(info.Variants) {
		return invariantf(ctx.fnName(), "PackVariant references an unknown variant")
	}
	variant := info.Variants[ins.VariantIndex]
	fieldTypes := make([]types.TypeID, len(variant.Fields))
	for i, f := range variant.Fields {
		fieldTypes[i] = f.Type
	}
	relOffsets, err := variantFieldOffsets(ctx.le, fieldTypes)
	if err != nil {
		return err
	}

	b.I32Const(int32(l.MemSize))
	b.Call(ctx.env.FuncIndex("rt_alloc"))
	b.LocalSet(ctx.scratch2)

	b.LocalGet(ctx.scratch2)
	b.I32Const(int32(ins.VariantIndex))
	b.Mem(wasmenc.OpI32Store8, wasmenc.MemArg{})

	for i := len(fieldTypes) - 1; i >= 0; i-- {
		fl, err := ctx.le.LayoutOf(fieldTypes[i])
		if err != nil {
			return err
		}
		if err := ctx.popFieldInto(b, ctx.scratch2, l.PayloadOffset+relOffsets[i], fl); err != nil {
			return err
		}
	}

	b.LocalGet(ctx.scratch2)
	return nil
}

func emitUnpackVariant(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	l, err := ctx.le.LayoutOf(ins.ResolvedType)
	if err != nil {
		return err
	}
	info, ok := ctx.tin.EnumInfo(ins.ResolvedType)
	if !ok || ins.VariantIndex >= len(info.Variants) {
		return invariantf(ctx.fnName(), "UnpackVariant references an unknown variant")
	}
	variant := info.Variants[ins.VariantIndex]
	fieldTypes := make([]types.TypeID, len(variant.Fields))
	for i, f := range variant.Fields {
		fieldTypes[i] = f.Type
	}
	relOffsets, err := variantFieldOffsets(ctx.le, fieldTypes)
	if err != nil {
		return err
	}

	b.LocalSet(ctx.scratch2)
	for i := range fieldTypes {
		fl, err := ctx.le.LayoutOf(fieldTypes[i])
		if err != nil {
			return err
		}
		ctx.pushFieldFrom(b, ctx.scratch2, l.PayloadOffset+relOffsets[i], fl)
	}
	return nil
}
