package runtime

import "github.com/rather-labs/move-stylus-poc/internal/wasmenc"

// storageFuncs wraps the vm_hooks storage host imports with the
// pointer bookkeeping codegen's struct/object lowering needs: a
// 32-byte storage slot in, a freshly allocated 32-byte value out (or
// vice versa for a store), plus a hashed-slot derivation for an
// object's dynamic fields (SPEC_FULL.md §5 "storage encoding":
// keccak256(uid || field_tag) selects the slot a dynamic field lives
// at, the same indirection scheme Solidity's own dynamic mappings use).
func storageFuncs() []Func {
	return []Func{storageLoadFunc(), storageStoreFunc(), objectFieldSlotFunc()}
}

func storageLoadFunc() Func {
	return Func{
		Name:   "rt_storage_load_slot",
		Type:   ft([]wasmenc.ValType{i32()}, i32()),
		Locals: []wasmenc.Local{{Count: 1, Type: i32()}},
		Build: func(ix Indexer) []byte {
			const slotPtr, outPtr = 0, 1
			b := wasmenc.NewBuilder()

			b.I32Const(32)
			b.Call(ix.FuncIndex("rt_alloc"))
			b.LocalSet(outPtr)

			b.LocalGet(slotPtr)
			b.LocalGet(outPtr)
			b.Call(ix.FuncIndex("storage_load_bytes32"))

			b.LocalGet(outPtr)
			b.Return()
			return b.Finish()
		},
	}
}

func storageStoreFunc() Func {
	return Func{
		Name: "rt_storage_store_slot",
		Type: ft([]wasmenc.ValType{i32(), i32()}),
		Build: func(ix Indexer) []byte {
			b := wasmenc.NewBuilder()
			b.LocalGet(0)
			b.LocalGet(1)
			b.Call(ix.FuncIndex("storage_store_bytes32"))
			return b.Finish()
		},
	}
}

// objectFieldSlotFunc builds `rt_object_field_slot(uid_ptr, tag_ptr) -> i32`,
// hashing the 32-byte object UID and a 32-byte field tag together
// through the `native_keccak256` host hook to get a stable per-field
// storage slot, mirroring the way object::new-allocated dynamic
// fields are addressed (Objects, §4.5).
func objectFieldSlotFunc() Func {
	return Func{
		Name:   "rt_object_field_slot",
		Type:   ft([]wasmenc.ValType{i32(), i32()}, i32()),
		Locals: []wasmenc.Local{{Count: 2, Type: i32()}},
		Build: func(ix Indexer) []byte {
			const uidPtr, tagPtr, scratch, outPtr = 0, 1, 2, 3
			b := wasmenc.NewBuilder()

			b.I32Const(64)
			b.Call(ix.FuncIndex("rt_alloc"))
			b.LocalSet(scratch)

			b.LocalGet(scratch)
			b.LocalGet(uidPtr)
			b.I32Const(32)
			b.Call(ix.FuncIndex("rt_clone_bytes"))

			b.LocalGet(scratch)
			b.I32Const(32)
			b.Raw(wasmenc.OpI32Add)
			b.LocalGet(tagPtr)
			b.I32Const(32)
			b.Call(ix.FuncIndex("rt_clone_bytes"))

			b.I32Const(32)
			b.Call(ix.FuncIndex("rt_alloc"))
			b.LocalSet(outPtr)

			b.LocalGet(scratch)
			b.I32Const(64)
			b.LocalGet(outPtr)
			b.Call(ix.FuncIndex("native_keccak256"))

			b.LocalGet(outPtr)
			b.Return()
			return b.Finish()
		},
	}
}
