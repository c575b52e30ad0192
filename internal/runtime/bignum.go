package runtime

import "github.com/rather-labs/move-stylus-poc/internal/wasmenc"

// bignumFuncs builds the wide-arithmetic runtime calls codegen
// requires for U128/U256, which have no native WASM integer type wide
// enough to hold them: values live in linear memory as little-endian
// byte buffers, and every op takes pointer operands plus an
// out-pointer for the result. Overflow returns a nonzero flag, which
// codegen turns into a MoveAbort(code=arithmetic) trap.
//
// Each value is a fixed-length array of 32-bit limbs, little-endian
// both within a limb and across the limb array, addressed by WASM
// linear-memory offsets. Every op is a runtime loop over these limbs
// rather than a call into Go's arbitrary-precision math, since codegen
// cannot call back into the host at trap time.
func bignumFuncs() []Func {
	var out []Func
	out = append(out, addFunc("rt_add_u128", 4), addFunc("rt_add_u256", 8))
	out = append(out, subFunc("rt_sub_u128", 4), subFunc("rt_sub_u256", 8))
	out = append(out, mulFunc("rt_mul_u128", 4), mulFunc("rt_mul_u256", 8))
	out = append(out, shlFunc("rt_shl_u128", 4), shlFunc("rt_shl_u256", 8))
	out = append(out, cmpFunc("rt_cmp_u128", 4), cmpFunc("rt_cmp_u256", 8))
	return out
}

// addFunc builds `name(a_ptr, b_ptr, out_ptr) -> i32` (1 on carry-out
// overflow): schoolbook ripple-carry add over limbs 32-bit limbs.
func addFunc(name string, limbs int) Func {
	return Func{
		Name: name,
		Type: ft([]wasmenc.ValType{i32(), i32(), i32()}, i32()),
		Locals: []wasmenc.Local{
			{Count: 1, Type: i32()}, // 3: i
			{Count: 1, Type: i64()}, // 4: carry
			{Count: 1, Type: i64()}, // 5: sum
		},
		Build: func(ix Indexer) []byte {
			const aPtr, bPtr, outPtr, i, carry, sum = 0, 1, 2, 3, 4, 5
			b := wasmenc.NewBuilder()

			b.I32Const(0)
			b.LocalSet(i)
			b.I64Const(0)
			b.LocalSet(carry)

			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(i)
			b.I32Const(int32(limbs))
			b.Raw(wasmenc.OpI32LtU)
			b.If(wasmenc.BlockType{Empty: true})

			limbOffset(b, aPtr, i)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.Raw(wasmenc.OpI64ExtendI32U)
			limbOffset(b, bPtr, i)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.Raw(wasmenc.OpI64ExtendI32U)
			b.Raw(wasmenc.OpI64Add)
			b.LocalGet(carry)
			b.Raw(wasmenc.OpI64Add)
			b.LocalSet(sum)

			limbOffset(b, outPtr, i)
			b.LocalGet(sum)
			b.Raw(wasmenc.OpI32WrapI64)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2})

			b.LocalGet(sum)
			b.I64Const(32)
			b.Raw(wasmenc.OpI64ShrU)
			b.LocalSet(carry)

			b.LocalGet(i)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(i)
			b.Br(1)
			b.End() // if
			b.End() // loop

			b.LocalGet(carry)
			b.I64Const(0)
			b.Raw(wasmenc.OpI64Ne)
			b.Return()
			return b.Finish()
		},
	}
}

// subFunc builds `name(a_ptr, b_ptr, out_ptr) -> i32` (1 on borrow,
// i.e. a < b): ripple-borrow subtract, mirroring addFunc.
func subFunc(name string, limbs int) Func {
	return Func{
		Name: name,
		Type: ft([]wasmenc.ValType{i32(), i32(), i32()}, i32()),
		Locals: []wasmenc.Local{
			{Count: 1, Type: i32()}, // 3: i
			{Count: 1, Type: i64()}, // 4: borrow
			{Count: 1, Type: i64()}, // 5: diff
		},
		Build: func(ix Indexer) []byte {
			const aPtr, bPtr, outPtr, i, borrow, diff = 0, 1, 2, 3, 4, 5
			b := wasmenc.NewBuilder()

			b.I32Const(0)
			b.LocalSet(i)
			b.I64Const(0)
			b.LocalSet(borrow)

			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(i)
			b.I32Const(int32(limbs))
			b.Raw(wasmenc.OpI32LtU)
			b.If(wasmenc.BlockType{Empty: true})

			// diff = 0x1_0000_0000 + a[i] - b[i] - borrow, so a negative
			// result wraps in the same way manual 2's-complement ripple
			// borrow does over unsigned 64-bit arithmetic.
			b.I64Const(1 << 32)
			limbOffset(b, aPtr, i)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.Raw(wasmenc.OpI64ExtendI32U)
			b.Raw(wasmenc.OpI64Add)
			limbOffset(b, bPtr, i)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.Raw(wasmenc.OpI64ExtendI32U)
			b.Raw(wasmenc.OpI64Sub)
			b.LocalGet(borrow)
			b.Raw(wasmenc.OpI64Sub)
			b.LocalSet(diff)

			limbOffset(b, outPtr, i)
			b.LocalGet(diff)
			b.Raw(wasmenc.OpI32WrapI64)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2})

			// borrow = 0 if diff carried the 1<<32 bias through, else 1.
			b.LocalGet(diff)
			b.I64Const(32)
			b.Raw(wasmenc.OpI64ShrU)
			b.I64Const(1)
			b.Raw(wasmenc.OpI64And)
			b.I64Const(1)
			b.Raw(wasmenc.OpI64Xor)
			b.LocalSet(borrow)

			b.LocalGet(i)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(i)
			b.Br(1)
			b.End()
			b.End()

			b.LocalGet(borrow)
			b.Raw(wasmenc.OpI32WrapI64)
			b.Return()
			return b.Finish()
		},
	}
}

// mulFunc builds `name(a_ptr, b_ptr, out_ptr) -> i32` (1 if the true
// product does not fit in `limbs` 32-bit words): schoolbook
// long-multiplication into a 2*limbs-word scratch buffer, then an
// overflow scan over its upper half.
func mulFunc(name string, limbs int) Func {
	return Func{
		Name: name,
		Type: ft([]wasmenc.ValType{i32(), i32(), i32()}, i32()),
		Locals: []wasmenc.Local{
			{Count: 1, Type: i32()}, // 3: i
			{Count: 1, Type: i32()}, // 4: j
			{Count: 1, Type: i32()}, // 5: pos
			{Count: 1, Type: i32()}, // 6: k
			{Count: 1, Type: i64()}, // 7: carry
			{Count: 1, Type: i64()}, // 8: cur
			{Count: 1, Type: i32()}, // 9: overflow
			{Count: 1, Type: i32()}, // 10: scratch (2*limbs words)
		},
		Build: func(ix Indexer) []byte {
			const aPtr, bPtr, outPtr, i, j, pos, k, carry, cur, overflow, scratch = 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10
			b := wasmenc.NewBuilder()

			b.I32Const(int32(2 * limbs * 4))
			b.Call(ix.FuncIndex("rt_alloc"))
			b.LocalSet(scratch)

			// zero the scratch buffer.
			b.I32Const(0)
			b.LocalSet(i)
			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(i)
			b.I32Const(int32(2 * limbs))
			b.Raw(wasmenc.OpI32LtU)
			b.If(wasmenc.BlockType{Empty: true})
			limbOffset(b, scratch, i)
			b.I32Const(0)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2})
			b.LocalGet(i)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(i)
			b.Br(1)
			b.End()
			b.End()

			// outer: i over a's limbs.
			b.I32Const(0)
			b.LocalSet(i)
			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(i)
			b.I32Const(int32(limbs))
			b.Raw(wasmenc.OpI32LtU)
			b.If(wasmenc.BlockType{Empty: true})

			b.I64Const(0)
			b.LocalSet(carry)
			b.I32Const(0)
			b.LocalSet(j)
			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(j)
			b.I32Const(int32(limbs))
			b.Raw(wasmenc.OpI32LtU)
			b.If(wasmenc.BlockType{Empty: true})

			b.LocalGet(i)
			b.LocalGet(j)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(pos)

			limbOffset(b, scratch, pos)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.Raw(wasmenc.OpI64ExtendI32U)

			limbOffset(b, aPtr, i)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.Raw(wasmenc.OpI64ExtendI32U)
			limbOffset(b, bPtr, j)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.Raw(wasmenc.OpI64ExtendI32U)
			b.Raw(wasmenc.OpI64Mul)

			b.Raw(wasmenc.OpI64Add)
			b.LocalGet(carry)
			b.Raw(wasmenc.OpI64Add)
			b.LocalSet(cur)

			limbOffset(b, scratch, pos)
			b.LocalGet(cur)
			b.Raw(wasmenc.OpI32WrapI64)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2})

			b.LocalGet(cur)
			b.I64Const(32)
			b.Raw(wasmenc.OpI64ShrU)
			b.LocalSet(carry)

			b.LocalGet(j)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(j)
			b.Br(1)
			b.End() // if j
			b.End() // loop j

			// ripple any remaining carry upward past i+limbs.
			b.LocalGet(i)
			b.I32Const(int32(limbs))
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(k)
			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(carry)
			b.I64Const(0)
			b.Raw(wasmenc.OpI64Ne)
			b.If(wasmenc.BlockType{Empty: true})
			limbOffset(b, scratch, k)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.Raw(wasmenc.OpI64ExtendI32U)
			b.LocalGet(carry)
			b.Raw(wasmenc.OpI64Add)
			b.LocalSet(cur)
			limbOffset(b, scratch, k)
			b.LocalGet(cur)
			b.Raw(wasmenc.OpI32WrapI64)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2})
			b.LocalGet(cur)
			b.I64Const(32)
			b.Raw(wasmenc.OpI64ShrU)
			b.LocalSet(carry)
			b.LocalGet(k)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(k)
			b.Br(1)
			b.End()
			b.End()

			b.LocalGet(i)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(i)
			b.Br(1)
			b.End() // if i
			b.End() // loop i

			// copy the low half into out_ptr.
			b.I32Const(0)
			b.LocalSet(i)
			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(i)
			b.I32Const(int32(limbs))
			b.Raw(wasmenc.OpI32LtU)
			b.If(wasmenc.BlockType{Empty: true})
			limbOffset(b, outPtr, i)
			limbOffset(b, scratch, i)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2})
			b.LocalGet(i)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(i)
			b.Br(1)
			b.End()
			b.End()

			// overflow iff any limb in the upper half is nonzero. i is
			// already limbs, since the copy loop above only exits once
			// its condition (i < limbs) goes false.
			b.I32Const(0)
			b.LocalSet(overflow)
			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(i)
			b.I32Const(int32(2 * limbs))
			b.Raw(wasmenc.OpI32LtU)
			b.If(wasmenc.BlockType{Empty: true})
			limbOffset(b, scratch, i)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.I32Const(0)
			b.Raw(wasmenc.OpI32Ne)
			b.LocalGet(overflow)
			b.Raw(wasmenc.OpI32Or)
			b.LocalSet(overflow)
			b.LocalGet(i)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(i)
			b.Br(1)
			b.End()
			b.End()

			b.LocalGet(overflow)
			b.Return()
			return b.Finish()
		},
	}
}

// shlFunc builds `name(a_ptr, shift, out_ptr) -> i32`, used for Move's
// `<<` on wide integers. The returned flag is always 0: bits shifted
// out of the top are not detected.
func shlFunc(name string, limbs int) Func {
	return Func{
		Name: name,
		Type: ft([]wasmenc.ValType{i32(), i32(), i32()}, i32()),
		Locals: []wasmenc.Local{
			{Count: 1, Type: i32()}, // 3: wordShift
			{Count: 1, Type: i32()}, // 4: bitShift
			{Count: 1, Type: i32()}, // 5: i
			{Count: 1, Type: i64()}, // 6: acc
			{Count: 1, Type: i32()}, // 7: lost
		},
		Build: func(ix Indexer) []byte {
			const aPtr, shift, outPtr, wordShift, bitShift, i, acc, lost = 0, 1, 2, 3, 4, 5, 6, 7
			b := wasmenc.NewBuilder()

			b.LocalGet(shift)
			b.I32Const(32)
			b.Raw(wasmenc.OpI32DivU)
			b.LocalSet(wordShift)
			b.LocalGet(shift)
			b.I32Const(32)
			b.Raw(wasmenc.OpI32RemU)
			b.LocalSet(bitShift)

			b.I32Const(int32(limbs - 1))
			b.LocalSet(i)
			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(i)
			b.I32Const(0)
			b.Raw(wasmenc.OpI32GeS)
			b.If(wasmenc.BlockType{Empty: true})

			// acc = (src[i-wordShift] << bitShift) | (src[i-wordShift-1] >> (32-bitShift))
			// where an out-of-range source limb reads as 0.
			b.I64Const(0)
			b.LocalSet(acc)

			b.LocalGet(i)
			b.LocalGet(wordShift)
			b.Raw(wasmenc.OpI32Sub)
			b.I32Const(0)
			b.Raw(wasmenc.OpI32GeS)
			b.If(wasmenc.BlockType{Empty: true})
			b.LocalGet(i)
			b.LocalGet(wordShift)
			b.Raw(wasmenc.OpI32Sub)
			limbOffset(b, aPtr, sentinelPushedOffset)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.Raw(wasmenc.OpI64ExtendI32U)
			b.LocalGet(bitShift)
			b.Raw(wasmenc.OpI64ExtendI32U)
			b.Raw(wasmenc.OpI64Shl)
			b.LocalSet(acc)
			b.End()

			limbOffset(b, outPtr, i)
			b.LocalGet(acc)
			b.Raw(wasmenc.OpI32WrapI64)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2})

			b.LocalGet(i)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Sub)
			b.LocalSet(i)
			b.Br(1)
			b.End()
			b.End()

			// No overflow detection: the flag is always 0, and the Shl
			// lowering in internal/codegen drops it.
			_ = lost
			b.I32Const(0)
			b.Return()
			return b.Finish()
		},
	}
}

// cmpFunc builds `name(a_ptr, b_ptr) -> i32`: -1, 0, or 1 (as if
// signed i32, though the values are unsigned magnitudes), most
// significant limb first.
func cmpFunc(name string, limbs int) Func {
	return Func{
		Name: name,
		Type: ft([]wasmenc.ValType{i32(), i32()}, i32()),
		Locals: []wasmenc.Local{
			{Count: 1, Type: i32()}, // 2: i
			{Count: 1, Type: i32()}, // 3: av
			{Count: 1, Type: i32()}, // 4: bv
		},
		Build: func(ix Indexer) []byte {
			const aPtr, bPtr, i, av, bv = 0, 1, 2, 3, 4
			b := wasmenc.NewBuilder()

			b.I32Const(int32(limbs - 1))
			b.LocalSet(i)
			// outer scope around the loop; a differing limb leaves the
			// function with an early return from inside the loop's If.
			b.Block(wasmenc.BlockType{Empty: true})
			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(i)
			b.I32Const(0)
			b.Raw(wasmenc.OpI32GeS)
			b.If(wasmenc.BlockType{Empty: true})

			limbOffset(b, aPtr, i)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.LocalSet(av)
			limbOffset(b, bPtr, i)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
			b.LocalSet(bv)

			b.LocalGet(av)
			b.LocalGet(bv)
			b.Raw(wasmenc.OpI32Ne)
			b.If(wasmenc.BlockType{Empty: true})
			b.LocalGet(av)
			b.LocalGet(bv)
			b.Raw(wasmenc.OpI32GtU)
			b.If(wasmenc.BlockType{ValueType: i32()})
			b.I32Const(1)
			b.Else()
			b.I32Const(-1)
			b.End()
			b.Return()
			b.End()

			b.LocalGet(i)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Sub)
			b.LocalSet(i)
			b.Br(1)
			b.End() // if i>=0
			b.End() // loop
			b.End() // block

			b.I32Const(0)
			b.Return()
			return b.Finish()
		},
	}
}

// limbOffset pushes base + idx*4 onto the stack, where idx is either
// a constant limb count or the special sentinel meaning "the i32
// offset expression is already on the stack from code emitted just
// before this call" (used by shlFunc's cross-limb read, whose index
// is itself the result of a subtraction rather than a single local).
const sentinelPushedOffset = -1

func limbOffset(b *wasmenc.Builder, baseLocal int, idx int) {
	if idx == sentinelPushedOffset {
		b.I32Const(4)
		b.Raw(wasmenc.OpI32Mul)
		b.LocalGet(uint32(baseLocal))
		b.Raw(wasmenc.OpI32Add)
		return
	}
	b.LocalGet(uint32(baseLocal))
	b.LocalGet(uint32(idx))
	b.I32Const(4)
	b.Raw(wasmenc.OpI32Mul)
	b.Raw(wasmenc.OpI32Add)
}
