package abi

import "github.com/rather-labs/move-stylus-poc/internal/wasmenc"

// This file emits the actual WASM instructions internal/router's
// entrypoint uses to cross the Solidity ABI boundary:
// Solidity words are 32-byte, big-endian, right-aligned for integers;
// this backend's own linear-memory integers are little-endian (WASM's
// native byte order). Every decode/encode helper below is a byte
// reversal plus a width-appropriate load/store, expressed directly as
// wasmenc.Builder calls since the router runs before internal/codegen
// has any monomorphic Move body to translate — there is nothing to
// dispatch on beyond the static ABI type record the router already
// computed from the entry function's signature.
//
// base is a compile-time linear-memory address (the router always
// addresses its fixed calldata/output scratch buffers this way, never
// through a runtime-computed pointer), so every helper below bakes it
// in as an I32Const rather than threading a local.

// EmitDecodeI32 reads the 4 low-order bytes of the big-endian word at
// base+wordOffset (byte-reversing them) and pushes an i32.
func EmitDecodeI32(b *wasmenc.Builder, base, wordOffset int) {
	// Byte i of the little-endian i32 comes from byte (wordOffset+31-i)
	// of the big-endian word, for i in 0..3.
	for i := 0; i < 4; i++ {
		b.I32Const(int32(base))
		b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{Offset: uint32(wordOffset + 31 - i)})
		if i > 0 {
			b.I32Const(int32(8 * i))
			b.Raw(wasmenc.OpI32Shl)
			b.Raw(wasmenc.OpI32Or)
		}
	}
}

// EmitDecodeI64 is EmitDecodeI32's 8-byte counterpart, pushing an i64.
func EmitDecodeI64(b *wasmenc.Builder, base, wordOffset int) {
	for i := 0; i < 8; i++ {
		b.I32Const(int32(base))
		b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{Offset: uint32(wordOffset + 31 - i)})
		b.Raw(wasmenc.OpI64ExtendI32U)
		if i > 0 {
			b.I64Const(int64(8 * i))
			b.Raw(wasmenc.OpI64Shl)
			b.Raw(wasmenc.OpI64Or)
		}
	}
}

// EmitDecodeHeapWord allocates a 32-byte little-endian buffer (via
// rt_alloc, called at rtAllocIdx) and byte-reverses the word at
// base+wordOffset into it, pushing the new buffer's pointer. Used for
// u128/u256/address, all of which live as heap pointers in this
// backend's WasmRepr (layout classification).
func EmitDecodeHeapWord(b *wasmenc.Builder, base, wordOffset int, outLocal uint32, rtAllocIdx uint32) {
	b.I32Const(32)
	b.Call(rtAllocIdx)
	b.LocalSet(outLocal)
	for i := 0; i < 32; i++ {
		b.LocalGet(outLocal)
		b.I32Const(int32(base))
		b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{Offset: uint32(wordOffset + 31 - i)})
		b.Mem(wasmenc.OpI32Store8, wasmenc.MemArg{Offset: uint32(i)})
	}
	b.LocalGet(outLocal)
}

// EmitEncodeI32 stores an i32 value (from valueLocal) as a big-endian
// 32-byte word at base+wordOffset, zero-filling the high-order 28 bytes.
func EmitEncodeI32(b *wasmenc.Builder, valueLocal uint32, base, wordOffset int) {
	for i := 0; i < 28; i++ {
		b.I32Const(int32(base))
		b.I32Const(0)
		b.Mem(wasmenc.OpI32Store8, wasmenc.MemArg{Offset: uint32(wordOffset + i)})
	}
	for i := 0; i < 4; i++ {
		b.I32Const(int32(base))
		b.LocalGet(valueLocal)
		if i > 0 {
			b.I32Const(int32(8 * i))
			b.Raw(wasmenc.OpI32ShrU)
		}
		b.Mem(wasmenc.OpI32Store8, wasmenc.MemArg{Offset: uint32(wordOffset + 31 - i)})
	}
}

// EmitEncodeI64 is EmitEncodeI32's 8-byte counterpart.
func EmitEncodeI64(b *wasmenc.Builder, valueLocal uint32, base, wordOffset int) {
	for i := 0; i < 24; i++ {
		b.I32Const(int32(base))
		b.I32Const(0)
		b.Mem(wasmenc.OpI32Store8, wasmenc.MemArg{Offset: uint32(wordOffset + i)})
	}
	for i := 0; i < 8; i++ {
		b.I32Const(int32(base))
		b.LocalGet(valueLocal)
		if i > 0 {
			b.I64Const(int64(8 * i))
			b.Raw(wasmenc.OpI64ShrU)
		}
		b.Raw(wasmenc.OpI32WrapI64)
		b.Mem(wasmenc.OpI32Store8, wasmenc.MemArg{Offset: uint32(wordOffset + 31 - i)})
	}
}

// EmitEncodeHeapWord byte-reverses the 32-byte little-endian buffer at
// srcLocal into base+wordOffset (the inverse of EmitDecodeHeapWord).
func EmitEncodeHeapWord(b *wasmenc.Builder, srcLocal uint32, base, wordOffset int) {
	for i := 0; i < 32; i++ {
		b.I32Const(int32(base))
		b.LocalGet(srcLocal)
		b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{Offset: uint32(i)})
		b.Mem(wasmenc.OpI32Store8, wasmenc.MemArg{Offset: uint32(wordOffset + 31 - i)})
	}
}
