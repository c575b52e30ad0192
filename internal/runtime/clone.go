package runtime

import "github.com/rather-labs/move-stylus-poc/internal/wasmenc"

// cloneFunc builds `rt_clone_bytes(dst, src, len)`, a byte-serial
// copy used by CopyLoc on heap-represented values (
// "copy/move discipline": a CopyLoc of a struct/vector/wide-int must
// deep-clone its backing bytes so the two locals never alias) and by
// vector growth to relocate an existing backing buffer.
func cloneFunc() Func {
	return Func{
		Name:   "rt_clone_bytes",
		Type:   ft([]wasmenc.ValType{i32(), i32(), i32()}),
		Locals: []wasmenc.Local{{Count: 1, Type: i32()}},
		Build: func(ix Indexer) []byte {
			const dst, src, length, i = 0, 1, 2, 3
			b := wasmenc.NewBuilder()

			b.I32Const(0)
			b.LocalSet(i)
			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(i)
			b.LocalGet(length)
			b.Raw(wasmenc.OpI32LtU)
			b.If(wasmenc.BlockType{Empty: true})

			b.LocalGet(dst)
			b.LocalGet(i)
			b.Raw(wasmenc.OpI32Add)
			b.LocalGet(src)
			b.LocalGet(i)
			b.Raw(wasmenc.OpI32Add)
			b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{})
			b.Mem(wasmenc.OpI32Store8, wasmenc.MemArg{})

			b.LocalGet(i)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(i)
			b.Br(1)
			b.End()
			b.End()
			return b.Finish()
		},
	}
}
