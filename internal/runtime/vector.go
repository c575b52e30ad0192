package runtime

import "github.com/rather-labs/move-stylus-poc/internal/wasmenc"

// Vector heap layout ("vector op lowering"): a fixed
// 12-byte header `{len: i32, cap: i32, elems_ptr: i32}` followed
// separately by an elems buffer holding cap*elemSize bytes, grown by
// amortized doubling. elemSize is not stored in the header: it is a
// static property of a vector's monomorphized element type, so
// codegen passes it as a constant elem_size operand to each rt_vec_*
// call rather than have the runtime rediscover it.
const (
	vecHeaderLen      = 0
	vecHeaderCap      = 4
	vecHeaderElemsPtr = 8
	vecHeaderSize     = 12
)

func vectorFuncs() []Func {
	return []Func{
		vecNewFunc(),
		vecLenFunc(),
		vecBorrowFunc(),
		vecPushBackFunc(),
		vecPopBackFunc(),
		vecSwapFunc(),
	}
}

// vecNewFunc builds `rt_vec_new(elem_size: i32) -> i32`, returning a
// freshly allocated empty vector header with a small initial capacity.
func vecNewFunc() Func {
	const initialCap = 4
	return Func{
		Name:   "rt_vec_new",
		Type:   ft([]wasmenc.ValType{i32()}, i32()),
		Locals: []wasmenc.Local{{Count: 1, Type: i32()}},
		Build: func(ix Indexer) []byte {
			const elemSize, hdr = 0, 1
			b := wasmenc.NewBuilder()

			b.I32Const(vecHeaderSize)
			b.Call(ix.FuncIndex("rt_alloc"))
			b.LocalSet(hdr)

			b.LocalGet(hdr)
			b.I32Const(0)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2, Offset: vecHeaderLen})

			b.LocalGet(hdr)
			b.I32Const(initialCap)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2, Offset: vecHeaderCap})

			b.LocalGet(hdr)
			b.I32Const(initialCap)
			b.LocalGet(elemSize)
			b.Raw(wasmenc.OpI32Mul)
			b.Call(ix.FuncIndex("rt_alloc"))
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2, Offset: vecHeaderElemsPtr})

			b.LocalGet(hdr)
			b.Return()
			return b.Finish()
		},
	}
}

func vecLenFunc() Func {
	return Func{
		Name: "rt_vec_len",
		Type: ft([]wasmenc.ValType{i32()}, i32()),
		Build: func(ix Indexer) []byte {
			b := wasmenc.NewBuilder()
			b.LocalGet(0)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2, Offset: vecHeaderLen})
			b.Return()
			return b.Finish()
		},
	}
}

// vecBorrowFunc builds `rt_vec_borrow(hdr, idx, elem_size) -> i32`,
// returning a pointer into the backing buffer, or trapping via
// unreachable when idx is out of bounds (bounds-check
// trap; the runtime checks every index).
func vecBorrowFunc() Func {
	return Func{
		Name: "rt_vec_borrow",
		Type: ft([]wasmenc.ValType{i32(), i32(), i32()}, i32()),
		Build: func(ix Indexer) []byte {
			const hdr, idx, elemSize = 0, 1, 2
			b := wasmenc.NewBuilder()

			b.LocalGet(idx)
			b.LocalGet(hdr)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2, Offset: vecHeaderLen})
			b.Raw(wasmenc.OpI32GeU)
			b.If(wasmenc.BlockType{Empty: true})
			b.Unreachable()
			b.End()

			b.LocalGet(hdr)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2, Offset: vecHeaderElemsPtr})
			b.LocalGet(idx)
			b.LocalGet(elemSize)
			b.Raw(wasmenc.OpI32Mul)
			b.Raw(wasmenc.OpI32Add)
			b.Return()
			return b.Finish()
		},
	}
}

// vecPushBackFunc builds `rt_vec_push_back(hdr, elem_size) -> i32`,
// growing the backing buffer (amortized doubling) if needed and
// returning a pointer to the newly appended (uninitialized) slot for
// the caller to write the element's bytes into.
func vecPushBackFunc() Func {
	return Func{
		Name:   "rt_vec_push_back",
		Type:   ft([]wasmenc.ValType{i32(), i32()}, i32()),
		Locals: []wasmenc.Local{{Count: 3, Type: i32()}},
		Build: func(ix Indexer) []byte {
			const hdr, elemSize, curLen, curCap, newElems = 0, 1, 2, 3, 4
			b := wasmenc.NewBuilder()

			b.LocalGet(hdr)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2, Offset: vecHeaderLen})
			b.LocalSet(curLen)
			b.LocalGet(hdr)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2, Offset: vecHeaderCap})
			b.LocalSet(curCap)

			b.LocalGet(curLen)
			b.LocalGet(curCap)
			b.Raw(wasmenc.OpI32GeU)
			b.If(wasmenc.BlockType{Empty: true})

			b.LocalGet(hdr)
			b.LocalGet(curCap)
			b.I32Const(2)
			b.Raw(wasmenc.OpI32Mul)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2, Offset: vecHeaderCap})

			b.LocalGet(curCap)
			b.I32Const(2)
			b.Raw(wasmenc.OpI32Mul)
			b.LocalGet(elemSize)
			b.Raw(wasmenc.OpI32Mul)
			b.Call(ix.FuncIndex("rt_alloc"))
			b.LocalSet(newElems)

			// copy curLen*elemSize bytes from the old buffer via
			// rt_clone_bytes, then repoint elems_ptr at the new buffer.
			b.LocalGet(newElems)
			b.LocalGet(hdr)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2, Offset: vecHeaderElemsPtr})
			b.LocalGet(curLen)
			b.LocalGet(elemSize)
			b.Raw(wasmenc.OpI32Mul)
			b.Call(ix.FuncIndex("rt_clone_bytes"))

			b.LocalGet(hdr)
			b.LocalGet(newElems)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2, Offset: vecHeaderElemsPtr})
			b.End()

			b.LocalGet(hdr)
			b.LocalGet(curLen)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2, Offset: vecHeaderLen})

			b.LocalGet(hdr)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2, Offset: vecHeaderElemsPtr})
			b.LocalGet(curLen)
			b.LocalGet(elemSize)
			b.Raw(wasmenc.OpI32Mul)
			b.Raw(wasmenc.OpI32Add)
			b.Return()
			return b.Finish()
		},
	}
}

// vecPopBackFunc builds `rt_vec_pop_back(hdr, elem_size) -> i32`
// (pointer to the removed element's bytes, still valid until the next
// push), trapping on an empty vector.
func vecPopBackFunc() Func {
	return Func{
		Name: "rt_vec_pop_back",
		Type: ft([]wasmenc.ValType{i32(), i32()}, i32()),
		Build: func(ix Indexer) []byte {
			const hdr, elemSize = 0, 1
			b := wasmenc.NewBuilder()

			b.LocalGet(hdr)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2, Offset: vecHeaderLen})
			b.I32Const(0)
			b.Raw(wasmenc.OpI32Eq)
			b.If(wasmenc.BlockType{Empty: true})
			b.Unreachable()
			b.End()

			b.LocalGet(hdr)
			b.LocalGet(hdr)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2, Offset: vecHeaderLen})
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Sub)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2, Offset: vecHeaderLen})

			b.LocalGet(hdr)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2, Offset: vecHeaderElemsPtr})
			b.LocalGet(hdr)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2, Offset: vecHeaderLen})
			b.LocalGet(elemSize)
			b.Raw(wasmenc.OpI32Mul)
			b.Raw(wasmenc.OpI32Add)
			b.Return()
			return b.Finish()
		},
	}
}

// vecSwapFunc builds `rt_vec_swap(hdr, i, j, elem_size)`, exchanging
// two elements byte-for-byte through a single i32 local, with no
// allocation.
func vecSwapFunc() Func {
	return Func{
		Name:   "rt_vec_swap",
		Type:   ft([]wasmenc.ValType{i32(), i32(), i32(), i32()}),
		Locals: []wasmenc.Local{{Count: 3, Type: i32()}},
		Build: func(ix Indexer) []byte {
			const hdr, iIdx, jIdx, elemSize, elemsPtr, k, tmp = 0, 1, 2, 3, 4, 5, 6
			b := wasmenc.NewBuilder()

			b.LocalGet(hdr)
			b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2, Offset: vecHeaderElemsPtr})
			b.LocalSet(elemsPtr)

			b.I32Const(0)
			b.LocalSet(k)
			b.Loop(wasmenc.BlockType{Empty: true})
			b.LocalGet(k)
			b.LocalGet(elemSize)
			b.Raw(wasmenc.OpI32LtU)
			b.If(wasmenc.BlockType{Empty: true})

			// tmp = byte at i; overwrite byte at i with byte at j; write
			// tmp to byte at j. One byte per iteration keeps this
			// generic over any elemSize without a second scratch alloc.
			b.LocalGet(elemsPtr)
			b.LocalGet(iIdx)
			b.LocalGet(elemSize)
			b.Raw(wasmenc.OpI32Mul)
			b.LocalGet(k)
			b.Raw(wasmenc.OpI32Add)
			b.Raw(wasmenc.OpI32Add)
			b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{})
			b.LocalSet(tmp)

			b.LocalGet(elemsPtr)
			b.LocalGet(iIdx)
			b.LocalGet(elemSize)
			b.Raw(wasmenc.OpI32Mul)
			b.LocalGet(k)
			b.Raw(wasmenc.OpI32Add)
			b.Raw(wasmenc.OpI32Add)
			b.LocalGet(elemsPtr)
			b.LocalGet(jIdx)
			b.LocalGet(elemSize)
			b.Raw(wasmenc.OpI32Mul)
			b.LocalGet(k)
			b.Raw(wasmenc.OpI32Add)
			b.Raw(wasmenc.OpI32Add)
			b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{})
			b.Mem(wasmenc.OpI32Store8, wasmenc.MemArg{})

			b.LocalGet(elemsPtr)
			b.LocalGet(jIdx)
			b.LocalGet(elemSize)
			b.Raw(wasmenc.OpI32Mul)
			b.LocalGet(k)
			b.Raw(wasmenc.OpI32Add)
			b.Raw(wasmenc.OpI32Add)
			b.LocalGet(tmp)
			b.Mem(wasmenc.OpI32Store8, wasmenc.MemArg{})

			b.LocalGet(k)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.LocalSet(k)
			b.Br(1)
			b.End()
			b.End()
			return b.Finish()
		},
	}
}
