package runtime

import "github.com/rather-labs/move-stylus-poc/internal/wasmenc"

// eqBytesFunc builds rt_eq_bytes(a_ptr, b_ptr, len) -> i32(1/0), a
// byte-for-byte comparison internal/codegen's Address-class Eq/Neq
// lowering calls into: Address is 20 bytes, too wide
// for a single i32/i64 compare and not backed by the bignum limb
// helpers in bignum.go, which are sized 128/256 bits only.
func eqBytesFunc() Func {
	return Func{
		Name: "rt_eq_bytes",
		Type: ft([]wasmenc.ValType{i32(), i32(), i32()}, i32()),
		Locals: []wasmenc.Local{
			{Count: 1, Type: i32()}, // 3: i
		},
		Build: func(ix Indexer) []byte {
			const aPtr, bPtr, length, i = 0, 1, 2, 3
			b := wasmenc.NewBuilder()

			b.I32Const(0)
			b.LocalSet(i)
			b.Block(wasmenc.BlockType{Empty: true})
			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(i)
			b.LocalGet(length)
			b.Raw(wasmenc.OpI32LtU)
			b.If(wasmenc.BlockType{Empty: true})

			b.LocalGet(aPtr)
			b.LocalGet(i)
			b.Raw(wasmenc.OpI32Add)
			b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{})
			b.LocalGet(bPtr)
			b.LocalGet(i)
			b.Raw(wasmenc.OpI32Add)
			b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{})
			b.Raw(wasmenc.OpI32Ne)
			b.If(wasmenc.BlockType{Empty: true})
			b.I32Const(0)
			b.Return()
			b.End()

			b.LocalGet(i)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(i)
			b.Br(1)
			b.End() // if
			b.End() // loop
			b.End() // block

			b.I32Const(1)
			b.Return()
			return b.Finish()
		},
	}
}
