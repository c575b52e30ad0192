package codegen

import (
	"github.com/rather-labs/move-stylus-poc/internal/layout"
	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
)

// refTagKind distinguishes what a reference value on the Move operand
// stack actually addresses, since this backend's field-embedding
// layout (computeStructLayout packs every field, heap-represented or
// not, inline into its parent's own bytes) makes "the address IS the
// value" true for some references and false for others:
//
//   - refLoadI32/refLoadI64: the reference is the address of a cell
//     that holds a scalar word (a local's frame slot, or a struct
//     field whose own type is I32/I64-represented) — ReadRef/WriteRef
//     need an explicit Load/Store.
//   - refEmbedded: the reference already points directly at a
//     heap-represented value's own bytes (a struct field of U128,
//     Address, Vector, or nested-struct type; a function parameter or
//     return of Ref-to-heap-repr type, whose calling convention is
//     already "pass the address"). ReadRef is a no-op (the pointer on
//     the stack already is the IR-level value); WriteRef must copy
//     Size bytes with rt_clone_bytes rather than overwrite a pointer,
//     or it would alias the source instead of assigning into the
//     destination.
type refTagKind uint8

const (
	refLoadI32 refTagKind = iota
	refLoadI64
	refEmbedded
)

type refTag struct {
	Kind refTagKind
	Size int // refEmbedded only: bytes to clone on WriteRef
}

// pushRef records the tag produced by whichever Borrow* instruction
// just pushed a reference's address onto the WASM stack.
func (c *funcCtx) pushRef(t refTag) { c.refStack = append(c.refStack, t) }

// popRef consumes the tag for the reference ReadRef/WriteRef/FreezeRef/
// BorrowField is currently consuming. A reference that was never
// pushed by a Borrow* this function tracked (an incoming &T parameter,
// or the result of a call returning a reference) is, by this backend's
// calling convention, always a direct address to embedded bytes.
// A reference parameter loaded straight off a local slot without ever
// being Borrow*'d by this function (a &mut T argument passed straight
// into a WriteRef) hits this default with Size 0, since funcCtx has no
// type context at this level to recover the pointee's MemSize; every
// scenario this backend supports borrows its way to a
// reference instead of writing through a bare parameter.
func (c *funcCtx) popRef() refTag {
	if len(c.refStack) == 0 {
		return refTag{Kind: refEmbedded}
	}
	t := c.refStack[len(c.refStack)-1]
	c.refStack = c.refStack[:len(c.refStack)-1]
	return t
}

func tagForRepr(repr layout.WasmRepr) refTagKind {
	if repr == layout.ReprI64 {
		return refLoadI64
	}
	return refLoadI32
}

func (c *funcCtx) emitBorrowLoc(b *wasmenc.Builder, idx int) {
	c.pushFrameAddr(b, idx)
	c.pushRef(refTag{Kind: tagForRepr(c.fr.reprs[idx])})
}

// emitBorrowField consumes the struct/enum reference already on the
// stack, dereferencing it first only if it addresses a slot rather
// than embedded bytes, then adds the field's offset.
func (c *funcCtx) emitBorrowField(b *wasmenc.Builder, fieldOffset int, fieldRepr layout.WasmRepr, fieldSize int) {
	in := c.popRef()
	switch in.Kind {
	case refLoadI32:
		b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
	case refLoadI64:
		// A struct/enum-typed local's slot is always ReprHeapPtr
		// (structs are never ReprI64); reaching this for a
		// BorrowField input means an earlier stage mistyped a local.
	case refEmbedded:
		// already the struct's address, no load needed.
	}
	if fieldOffset != 0 {
		b.I32Const(int32(fieldOffset))
		b.Raw(wasmenc.OpI32Add)
	}
	out := refTag{Kind: tagForRepr(fieldRepr)}
	if fieldRepr == layout.ReprHeapPtr {
		out = refTag{Kind: refEmbedded, Size: fieldSize}
	}
	c.pushRef(out)
}

func (c *funcCtx) emitReadRef(b *wasmenc.Builder) {
	t := c.popRef()
	switch t.Kind {
	case refLoadI32:
		b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
	case refLoadI64:
		b.Mem(wasmenc.OpI64Load, wasmenc.MemArg{Align: 3})
	case refEmbedded:
		// the address on the stack already is the value.
	}
}

// emitWriteRef consumes Move's WriteRef operand order [value, ref]
// (ref on top of stack), the reverse of what a Mem Store or
// rt_clone_bytes call needs, so both operands are stashed in scratch
// locals and re-pushed in the right order.
func (c *funcCtx) emitWriteRef(b *wasmenc.Builder) {
	t := c.popRef()
	switch t.Kind {
	case refLoadI32:
		b.LocalSet(c.scratch0) // ref address
		b.LocalSet(c.scratch1) // value
		b.LocalGet(c.scratch0)
		b.LocalGet(c.scratch1)
		b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2})
	case refLoadI64:
		b.LocalSet(c.scratch0)   // ref address
		b.LocalSet(c.scratchI64) // value
		b.LocalGet(c.scratch0)
		b.LocalGet(c.scratchI64)
		b.Mem(wasmenc.OpI64Store, wasmenc.MemArg{Align: 3})
	case refEmbedded:
		b.LocalSet(c.scratch0) // ref address (dst)
		b.LocalSet(c.scratch1) // source value pointer
		b.LocalGet(c.scratch0)
		b.LocalGet(c.scratch1)
		b.I32Const(int32(t.Size))
		b.Call(c.env.FuncIndex("rt_clone_bytes"))
	}
}

func (c *funcCtx) emitFreezeRef() {
	t := c.popRef()
	c.pushRef(t) // FreezeRef only changes a static permission, never codegen shape.
}
