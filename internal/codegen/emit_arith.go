package codegen

import (
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
)

// widthClass buckets an operand's declared bit width onto the three
// WASM-side arithmetic strategies this backend has runtime support
// for: native i32/i64 registers (with an explicit overflow check, since
// Move traps on overflow but WASM wraps), or the pointer-based
// wide-integer runtime calls in internal/runtime/bignum.go. 160 names
// Address, meaningful only for Eq/Neq.
type widthClass uint8

const (
	classI32 widthClass = iota
	classI64
	classWide
	classAddr
)

func classify(width int) widthClass {
	switch width {
	case 64:
		return classI64
	case 128, 256:
		return classWide
	case 160:
		return classAddr
	default:
		return classI32
	}
}

func maxUnsigned(width int) uint64 {
	switch width {
	case 8:
		return 0xff
	case 16:
		return 0xffff
	case 32:
		return 0xffff_ffff
	case 64:
		return 0xffff_ffff_ffff_ffff
	default:
		return 0xffff_ffff
	}
}

func emitAbort(b *wasmenc.Builder, ctx *funcCtx) {
	b.I32Const(int32(abortCodeArithmetic))
	b.Call(ctx.env.FuncIndex("rt_abort"))
	b.Unreachable()
}

func emitArith(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	switch classify(ins.Width) {
	case classI64:
		return emitI64Arith(b, ctx, ins)
	case classWide:
		return emitWideArith(b, ctx, ins)
	case classAddr:
		return emitAddrArith(b, ctx, ins)
	default:
		return emitI32Arith(b, ctx, ins)
	}
}

func emitI32Arith(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	switch ins.Op {
	case mvbc.OpAdd:
		emitCheckedAddI32(b, ctx, ins.Width)
	case mvbc.OpSub:
		emitCheckedSubI32(b, ctx)
	case mvbc.OpMul:
		emitCheckedMulI32(b, ctx, ins.Width)
	case mvbc.OpDiv:
		b.Raw(wasmenc.OpI32DivU) // WASM traps on divide-by-zero natively.
	case mvbc.OpMod:
		b.Raw(wasmenc.OpI32RemU)
	case mvbc.OpBitAnd:
		b.Raw(wasmenc.OpI32And)
	case mvbc.OpBitOr:
		b.Raw(wasmenc.OpI32Or)
	case mvbc.OpBitXor:
		b.Raw(wasmenc.OpI32Xor)
	case mvbc.OpShl:
		// Move traps if the shift amount reaches the operand's bit
		// width; this backend does not check that (documented gap,
		// mirrors shlFunc's own compromise for the wide-integer path).
		b.Raw(wasmenc.OpI32Shl)
	case mvbc.OpShr:
		b.Raw(wasmenc.OpI32ShrU)
	case mvbc.OpEq:
		b.Raw(wasmenc.OpI32Eq)
	case mvbc.OpNeq:
		b.Raw(wasmenc.OpI32Ne)
	case mvbc.OpLt:
		b.Raw(wasmenc.OpI32LtU)
	case mvbc.OpLe:
		b.Raw(wasmenc.OpI32LeU)
	case mvbc.OpGt:
		b.Raw(wasmenc.OpI32GtU)
	case mvbc.OpGe:
		b.Raw(wasmenc.OpI32GeU)
	default:
		return unsupportedf(ctx.fnName(), "opcode %d has no i32-class lowering", ins.Op)
	}
	return nil
}

// emitCheckedAddI32 promotes both operands to i64 (always safe: the
// widest i32-class operand is u32), adds, bounds-checks against the
// operand width's max, and wraps back.
func emitCheckedAddI32(b *wasmenc.Builder, ctx *funcCtx, width int) {
	b.Raw(wasmenc.OpI64ExtendI32U) // b -> i64
	b.LocalSet(ctx.scratchI64b)
	b.Raw(wasmenc.OpI64ExtendI32U) // a -> i64
	b.LocalGet(ctx.scratchI64b)
	b.Raw(wasmenc.OpI64Add)
	b.LocalSet(ctx.scratchI64)
	b.LocalGet(ctx.scratchI64)
	b.I64Const(int64(maxUnsigned(width)))
	b.Raw(wasmenc.OpI64GtU)
	b.If(wasmenc.BlockType{Empty: true})
	emitAbort(b, ctx)
	b.End()
	b.LocalGet(ctx.scratchI64)
	b.Raw(wasmenc.OpI32WrapI64)
}

func emitCheckedSubI32(b *wasmenc.Builder, ctx *funcCtx) {
	b.LocalSet(ctx.scratch0) // b
	b.LocalTee(ctx.scratch1) // a, kept
	b.LocalGet(ctx.scratch0)
	b.Raw(wasmenc.OpI32LtU) // a < b -> underflow
	b.If(wasmenc.BlockType{Empty: true})
	emitAbort(b, ctx)
	b.End()
	b.LocalGet(ctx.scratch1)
	b.LocalGet(ctx.scratch0)
	b.Raw(wasmenc.OpI32Sub)
}

func emitCheckedMulI32(b *wasmenc.Builder, ctx *funcCtx, width int) {
	b.Raw(wasmenc.OpI64ExtendI32U) // b -> i64
	b.LocalSet(ctx.scratchI64b)
	b.Raw(wasmenc.OpI64ExtendI32U) // a -> i64
	b.LocalGet(ctx.scratchI64b)
	b.Raw(wasmenc.OpI64Mul)
	b.LocalSet(ctx.scratchI64)
	b.LocalGet(ctx.scratchI64)
	b.I64Const(int64(maxUnsigned(width)))
	b.Raw(wasmenc.OpI64GtU)
	b.If(wasmenc.BlockType{Empty: true})
	emitAbort(b, ctx)
	b.End()
	b.LocalGet(ctx.scratchI64)
	b.Raw(wasmenc.OpI32WrapI64)
}

func emitI64Arith(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	switch ins.Op {
	case mvbc.OpAdd:
		emitCheckedAddI64(b, ctx)
	case mvbc.OpSub:
		emitCheckedSubI64(b, ctx)
	case mvbc.OpMul:
		emitCheckedMulI64(b, ctx)
	case mvbc.OpDiv:
		b.Raw(wasmenc.OpI64DivU)
	case mvbc.OpMod:
		b.Raw(wasmenc.OpI64RemU)
	case mvbc.OpBitAnd:
		b.Raw(wasmenc.OpI64And)
	case mvbc.OpBitOr:
		b.Raw(wasmenc.OpI64Or)
	case mvbc.OpBitXor:
		b.Raw(wasmenc.OpI64Xor)
	case mvbc.OpShl:
		b.Raw(wasmenc.OpI64Shl)
	case mvbc.OpShr:
		b.Raw(wasmenc.OpI64ShrU)
	case mvbc.OpEq:
		b.Raw(wasmenc.OpI64Eq)
	case mvbc.OpNeq:
		b.Raw(wasmenc.OpI64Ne)
	case mvbc.OpLt:
		b.Raw(wasmenc.OpI64LtU)
	case mvbc.OpLe:
		b.Raw(wasmenc.OpI64LeU)
	case mvbc.OpGt:
		b.Raw(wasmenc.OpI64GtU)
	case mvbc.OpGe:
		b.Raw(wasmenc.OpI64GeU)
	default:
		return unsupportedf(ctx.fnName(), "opcode %d has no i64-class lowering", ins.Op)
	}
	return nil
}

func emitCheckedAddI64(b *wasmenc.Builder, ctx *funcCtx) {
	b.LocalSet(ctx.scratchI64b) // b
	b.LocalTee(ctx.scratchI64)  // a, kept
	b.LocalGet(ctx.scratchI64b)
	b.Raw(wasmenc.OpI64Add)
	b.LocalTee(ctx.scratchI64c) // sum, kept
	b.LocalGet(ctx.scratchI64)  // a
	b.Raw(wasmenc.OpI64LtU)     // sum < a -> wrapped
	b.If(wasmenc.BlockType{Empty: true})
	emitAbort(b, ctx)
	b.End()
	b.LocalGet(ctx.scratchI64c)
}

func emitCheckedSubI64(b *wasmenc.Builder, ctx *funcCtx) {
	b.LocalSet(ctx.scratchI64b) // b
	b.LocalTee(ctx.scratchI64)  // a, kept
	b.LocalGet(ctx.scratchI64b)
	b.Raw(wasmenc.OpI64LtU) // a < b -> underflow
	b.If(wasmenc.BlockType{Empty: true})
	emitAbort(b, ctx)
	b.End()
	b.LocalGet(ctx.scratchI64)
	b.LocalGet(ctx.scratchI64b)
	b.Raw(wasmenc.OpI64Sub)
}

// emitCheckedMulI64 has no wider native type to promote into, so it
// checks overflow the classic way: multiply, then divide back out and
// compare, skipping the check entirely when b is zero.
func emitCheckedMulI64(b *wasmenc.Builder, ctx *funcCtx) {
	b.LocalSet(ctx.scratchI64b) // b
	b.LocalTee(ctx.scratchI64)  // a, kept
	b.LocalGet(ctx.scratchI64b)
	b.Raw(wasmenc.OpI64Mul)
	b.LocalSet(ctx.scratchI64c) // product

	b.LocalGet(ctx.scratchI64b)
	b.I64Const(0)
	b.Raw(wasmenc.OpI64Ne)
	b.If(wasmenc.BlockType{Empty: true})
	b.LocalGet(ctx.scratchI64c)
	b.LocalGet(ctx.scratchI64b)
	b.Raw(wasmenc.OpI64DivU)
	b.LocalGet(ctx.scratchI64)
	b.Raw(wasmenc.OpI64Ne)
	b.If(wasmenc.BlockType{Empty: true})
	emitAbort(b, ctx)
	b.End()
	b.End()

	b.LocalGet(ctx.scratchI64c)
}

func emitWideArith(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	suffix := "u128"
	if ins.Width == 256 {
		suffix = "u256"
	}
	switch ins.Op {
	case mvbc.OpAdd:
		ctx.emitWideBinary(b, "rt_add_"+suffix, ins.Width)
	case mvbc.OpSub:
		ctx.emitWideBinary(b, "rt_sub_"+suffix, ins.Width)
	case mvbc.OpMul:
		ctx.emitWideBinary(b, "rt_mul_"+suffix, ins.Width)
	case mvbc.OpShl:
		ctx.emitWideShl(b, "rt_shl_"+suffix, ins.Width)
	case mvbc.OpEq, mvbc.OpNeq, mvbc.OpLt, mvbc.OpLe, mvbc.OpGt, mvbc.OpGe:
		ctx.emitWideCompare(b, "rt_cmp_"+suffix, ins.Op)
	default:
		return unsupportedf(ctx.fnName(), "%d-bit opcode %d has no runtime support (only add/sub/mul/shl/comparisons are backed by internal/runtime)", ins.Width, ins.Op)
	}
	return nil
}

// emitWideBinary is shared by wide Add/Sub/Mul: allocate the out
// buffer, call the runtime op (a_ptr, b_ptr already on the stack from
// operand evaluation), and turn a nonzero overflow/borrow flag into a
// MoveAbort trap.
func (c *funcCtx) emitWideBinary(b *wasmenc.Builder, fnName string, width int) {
	b.I32Const(int32(width / 8))
	b.Call(c.env.FuncIndex("rt_alloc"))
	b.LocalTee(c.scratch0)
	b.Call(c.env.FuncIndex(fnName))
	b.If(wasmenc.BlockType{Empty: true})
	emitAbort(b, c)
	b.End()
	b.LocalGet(c.scratch0)
}

// emitWideShl matches rt_shl_uXXX(a_ptr, shift, out_ptr) -> lost_bits.
// This backend does not follow up with the extra rt_cmp check
// Shl lowering could use for exact overflow detection (see
// bignum.go's shlFunc doc comment); it simply trusts the runtime call
// and drops the (always-zero, per the current shlFunc) flag.
func (c *funcCtx) emitWideShl(b *wasmenc.Builder, fnName string, width int) {
	b.LocalSet(c.scratch0) // shift amount
	b.LocalGet(c.scratch0)
	b.I32Const(int32(width / 8))
	b.Call(c.env.FuncIndex("rt_alloc"))
	b.LocalTee(c.scratch1)
	b.Call(c.env.FuncIndex(fnName))
	b.Drop()
	b.LocalGet(c.scratch1)
}

func (c *funcCtx) emitWideCompare(b *wasmenc.Builder, fnName string, op mvbc.Opcode) {
	b.Call(c.env.FuncIndex(fnName))
	b.I32Const(0)
	switch op {
	case mvbc.OpEq:
		b.Raw(wasmenc.OpI32Eq)
	case mvbc.OpNeq:
		b.Raw(wasmenc.OpI32Ne)
	case mvbc.OpLt:
		b.Raw(wasmenc.OpI32LtS)
	case mvbc.OpLe:
		b.Raw(wasmenc.OpI32LeS)
	case mvbc.OpGt:
		b.Raw(wasmenc.OpI32GtS)
	case mvbc.OpGe:
		b.Raw(wasmenc.OpI32GeS)
	}
}

// emitAddrArith supports the one Address-typed comparison
// object-ownership checks need (`sender == owner`); Address has no
// ordering, only equality.
func emitAddrArith(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	switch ins.Op {
	case mvbc.OpEq:
		b.I32Const(20)
		b.Call(ctx.env.FuncIndex("rt_eq_bytes"))
	case mvbc.OpNeq:
		b.I32Const(20)
		b.Call(ctx.env.FuncIndex("rt_eq_bytes"))
		b.Raw(wasmenc.OpI32Eqz)
	default:
		return unsupportedf(ctx.fnName(), "Address has no ordering, opcode %d", ins.Op)
	}
	return nil
}
