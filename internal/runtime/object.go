package runtime

import (
	"github.com/rather-labs/move-stylus-poc/internal/objectmodel"
	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
)

// objectFuncs supports internal/objectmodel's lowering of `object::new`,
// `object::delete`, and the three `transfer::*` ownership natives. A
// UID is a 32-byte value derived from the
// transaction's sender and a per-transaction monotonic counter kept in
// global 1 (bumpPtrGlobal is global 0); ownership is a single-byte tag
// stored at storage slot keccak256(uid || "owner") via
// rt_object_field_slot, one of three OwnerTag values from
// internal/objectmodel.
func objectFuncs() []Func {
	return []Func{objectNewFunc(), objectDeleteFunc(), objectSetOwnerFunc()}
}

const objectCounterGlobal = 1

// objectNewFunc builds `rt_object_new() -> i32`, returning a pointer
// to a freshly allocated 32-byte UID buffer: msg_sender's 20 bytes
// followed by the low 12 bytes of an incrementing per-call counter,
// matching the "address-derived, collision-free identifier" shape
// asks a UID to have without mandating a specific scheme.
func objectNewFunc() Func {
	return Func{
		Name:   "rt_object_new",
		Type:   ft(nil, i32()),
		Locals: []wasmenc.Local{{Count: 1, Type: i32()}},
		Build: func(ix Indexer) []byte {
			const uidPtr = 0
			b := wasmenc.NewBuilder()

			b.I32Const(32)
			b.Call(ix.FuncIndex("rt_alloc"))
			b.LocalSet(uidPtr)

			b.LocalGet(uidPtr)
			b.Call(ix.FuncIndex("msg_sender")) // writes 20 bytes at uidPtr

			for i := 0; i < 12; i++ {
				b.LocalGet(uidPtr)
				b.GlobalGet(objectCounterGlobal)
				if i > 0 {
					b.I32Const(int32(8 * i))
					b.Raw(wasmenc.OpI32ShrU)
				}
				b.Mem(wasmenc.OpI32Store8, wasmenc.MemArg{Offset: uint32(20 + i)})
			}

			b.GlobalGet(objectCounterGlobal)
			b.I32Const(1)
			b.Raw(wasmenc.OpI32Add)
			b.GlobalSet(objectCounterGlobal)

			b.LocalGet(uidPtr)
			b.Return()
			return b.Finish()
		},
	}
}

// objectDeleteFunc builds `rt_object_delete(uid_ptr)`, zeroing the
// object's owner slot so a later transfer/read observes it as gone.
// Move's `key`-ability objects have no destructor to run beyond this:
// field storage the object owned is left as-is, matching the original
// object model's "deleting the UID abandons its fields" semantics.
// Deleting is itself an ownership-sensitive write, so it goes through
// the same owner check a transfer does.
func objectDeleteFunc() Func {
	return Func{
		Name:   "rt_object_delete",
		Type:   ft([]wasmenc.ValType{i32()}),
		Locals: []wasmenc.Local{{Count: 5, Type: i32()}},
		Build: func(ix Indexer) []byte {
			const uidPtr, existingPtr, senderPtr, tail, eqRes, zeroAcc = 0, 1, 2, 3, 4, 5
			b := wasmenc.NewBuilder()

			emitOwnerCheck(b, ix, uidPtr, existingPtr, senderPtr, tail, eqRes, zeroAcc)

			b.LocalGet(uidPtr)
			ownerTag(b)
			b.Call(ix.FuncIndex("rt_object_field_slot"))
			b.I32Const(32)
			b.Call(ix.FuncIndex("rt_alloc")) // zeroed scratch (fresh alloc)
			b.Call(ix.FuncIndex("rt_storage_store_slot"))
			return b.Finish()
		},
	}
}

// objectSetOwnerFunc builds `rt_object_set_owner(uid_ptr, tag: i32, addr_ptr)`,
// writing a 32-byte storage word whose first byte is the OwnerTag and
// whose remaining bytes are the target address for OwnerAddress (zero
// otherwise). addr_ptr may be a null (0) pointer for share/freeze.
func objectSetOwnerFunc() Func {
	return Func{
		Name:   "rt_object_set_owner",
		Type:   ft([]wasmenc.ValType{i32(), i32(), i32()}),
		Locals: []wasmenc.Local{{Count: 7, Type: i32()}},
		Build: func(ix Indexer) []byte {
			const uidPtr, tag, addrPtr, slotPtr, valPtr = 0, 1, 2, 3, 4
			const existingPtr, senderPtr, tail, eqRes, zeroAcc = 5, 6, 7, 8, 9
			b := wasmenc.NewBuilder()

			emitOwnerCheck(b, ix, uidPtr, existingPtr, senderPtr, tail, eqRes, zeroAcc)

			b.LocalGet(uidPtr)
			ownerTag(b)
			b.Call(ix.FuncIndex("rt_object_field_slot"))
			b.LocalSet(slotPtr)

			b.I32Const(32)
			b.Call(ix.FuncIndex("rt_alloc"))
			b.LocalSet(valPtr)

			b.LocalGet(valPtr)
			b.LocalGet(tag)
			b.Mem(wasmenc.OpI32Store8, wasmenc.MemArg{})

			b.LocalGet(addrPtr)
			b.I32Const(0)
			b.Raw(wasmenc.OpI32Ne)
			b.If(wasmenc.BlockType{Empty: true})
			b.LocalGet(valPtr)
			b.I32Const(12)
			b.Raw(wasmenc.OpI32Add)
			b.LocalGet(addrPtr)
			b.I32Const(20)
			b.Call(ix.FuncIndex("rt_clone_bytes"))
			b.End()

			b.LocalGet(slotPtr)
			b.LocalGet(valPtr)
			b.Call(ix.FuncIndex("rt_storage_store_slot"))
			return b.Finish()
		},
	}
}

// abortCodeStorageRule is the fixed MoveAbort code an ownership-rule
// violation traps with: writing or deleting a frozen object,
// transferring a shared object, or a non-owner writing/transferring an
// owned object.
const abortCodeStorageRule = 0xfffd

// emitOwnerCheck reads the owner-tag slot the UID at uidPtr resolves
// to and traps unless the caller is allowed to write it: the existing
// tag must not be OwnerFrozen or OwnerShared, and if it is
// OwnerAddress the stored address must either be all-zero (the object
// has never had an owner assigned) or equal msg_sender. existingPtr,
// senderPtr, tail, eqRes, and zeroAcc are scratch locals the caller
// reserves and does not otherwise use across this call.
func emitOwnerCheck(b *wasmenc.Builder, ix Indexer, uidPtr, existingPtr, senderPtr, tail, eqRes, zeroAcc uint32) {
	b.LocalGet(uidPtr)
	ownerTag(b)
	b.Call(ix.FuncIndex("rt_object_field_slot"))
	b.Call(ix.FuncIndex("rt_storage_load_slot"))
	b.LocalSet(existingPtr)

	b.LocalGet(existingPtr)
	b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{})
	b.I32Const(int32(objectmodel.OwnerFrozen))
	b.Raw(wasmenc.OpI32Eq)
	b.LocalGet(existingPtr)
	b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{})
	b.I32Const(int32(objectmodel.OwnerShared))
	b.Raw(wasmenc.OpI32Eq)
	b.Raw(wasmenc.OpI32Or)
	b.If(wasmenc.BlockType{Empty: true})
	emitStorageTrap(b, ix)
	b.End()

	b.I32Const(20)
	b.Call(ix.FuncIndex("rt_alloc"))
	b.LocalSet(senderPtr)
	b.LocalGet(senderPtr)
	b.Call(ix.FuncIndex("msg_sender"))

	b.LocalGet(existingPtr)
	b.I32Const(12)
	b.Raw(wasmenc.OpI32Add)
	b.LocalTee(tail)
	b.LocalGet(senderPtr)
	b.I32Const(20)
	b.Call(ix.FuncIndex("rt_eq_bytes"))
	b.LocalSet(eqRes)

	emitBytesAllZero(b, tail, zeroAcc, 20)

	b.LocalGet(eqRes)
	b.Raw(wasmenc.OpI32Or)
	b.Raw(wasmenc.OpI32Eqz)
	b.If(wasmenc.BlockType{Empty: true})
	emitStorageTrap(b, ix)
	b.End()
}

// emitBytesAllZero pushes 1 iff every byte of ptrLocal in [0,n) is
// zero, via a compile-time-unrolled scan (n is always 20 here, one
// address). accLocal is scratch the caller reserves.
func emitBytesAllZero(b *wasmenc.Builder, ptrLocal, accLocal uint32, n int) {
	b.I32Const(1)
	b.LocalSet(accLocal)
	for i := 0; i < n; i++ {
		b.LocalGet(ptrLocal)
		b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{Offset: uint32(i)})
		b.Raw(wasmenc.OpI32Eqz)
		b.LocalGet(accLocal)
		b.Raw(wasmenc.OpI32And)
		b.LocalSet(accLocal)
	}
	b.LocalGet(accLocal)
}

func emitStorageTrap(b *wasmenc.Builder, ix Indexer) {
	b.I32Const(int32(abortCodeStorageRule))
	b.Call(ix.FuncIndex("rt_abort"))
	b.Unreachable()
}

// ownerTag pushes ownerTagPtr, the fixed address of the "owner" field
// tag, instead of allocating the tag bytes on every call.
// This is only ever called from within another Func's Build, so it
// shares that function's own locals implicitly through the stack.
func ownerTag(b *wasmenc.Builder) {
	// A tag only needs to be stable and distinct from other field
	// tags this backend derives (dynamic Move fields use their own
	// name bytes the same way); "owner" is reserved for this one
	// object-model use.
	b.I32Const(int32(ownerTagPtr))
}

// ownerTagPtr is a fixed low-memory address reserved for the
// constant 5-byte ASCII "owner" tag, which internal/driver writes
// there through a Data segment rather than allocating it dynamically
// on every call.
const ownerTagPtr = 8
