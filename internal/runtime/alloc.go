package runtime

import "github.com/rather-labs/move-stylus-poc/internal/wasmenc"

// allocFunc builds `rt_alloc(size: i32) -> i32`, the bump-arena
// allocator every heap-representable Move value (U128/U256, vectors,
// structs, enums, objects) is placed with. It never frees intra-
// transaction: a Stylus contract call is one WASM instantiation, so
// there is no allocator work to do beyond bumping a cursor and growing
// linear memory when the current page runs out, the same shortcut any
// short-lived arena allocator takes.
func allocFunc() Func {
	// locals: 0=size (param), 1=cur, 2=next, 3=curPages, 4=needPages
	return Func{
		Name:   "rt_alloc",
		Type:   ft([]wasmenc.ValType{i32()}, i32()),
		Locals: []wasmenc.Local{{Count: 4, Type: i32()}},
		Build: func(ix Indexer) []byte {
			b := wasmenc.NewBuilder()
			const size, cur, next, curPages, needPages = 0, 1, 2, 3, 4

			b.GlobalGet(bumpPtrGlobal)
			b.LocalSet(cur)

			b.LocalGet(cur)
			b.LocalGet(size)
			b.Raw(wasmenc.OpI32Add)
			// 8-byte align every allocation so heap pointers are always
			// safe to reinterpret as i64/u128 head words.
			b.I32Const(7)
			b.Raw(wasmenc.OpI32Add)
			b.I32Const(^int32(7))
			b.Raw(wasmenc.OpI32And)
			b.LocalSet(next)

			// Grow memory while next exceeds the current page boundary.
			b.MemorySize()
			b.LocalSet(curPages)

			b.LocalGet(next)
			b.I32Const(pageSize)
			b.Raw(wasmenc.OpI32DivU)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(needPages)

			b.LocalGet(needPages)
			b.LocalGet(curPages)
			b.Raw(wasmenc.OpI32GtU)
			b.If(wasmenc.BlockType{Empty: true})
			b.LocalGet(needPages)
			b.LocalGet(curPages)
			b.Raw(wasmenc.OpI32Sub)
			b.MemoryGrow()
			b.Drop()
			b.End()

			b.LocalGet(next)
			b.GlobalSet(bumpPtrGlobal)

			b.LocalGet(cur)
			b.Return()
			return b.Finish()
		},
	}
}
