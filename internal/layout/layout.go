// Package layout implements Type lowering (T): for each
// concrete post-monomorphization Move type it computes the WASM-side
// value representation, in-memory footprint, and Solidity ABI
// encoding class.
package layout

import (
	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// WasmRepr is the operand-stack/local representation a value of a
// given type takes inside the generated WASM function bodies.
type WasmRepr uint8

const (
	// ReprI32 covers Bool and U8..U32: values small enough to live in
	// a native i32 local/stack slot.
	ReprI32 WasmRepr = iota
	// ReprI64 covers U64.
	ReprI64
	// ReprHeapPtr covers U128, U256, Address, Vector, Struct, Enum,
	// and every Ref: an i32 offset into linear memory.
	ReprHeapPtr
	// ReprPair covers the rare two-word host-shim shape (ptr, len)
	// used only at the boundary with vm_hooks raw byte buffers, never
	// for ordinary Move values.
	ReprPair
)

// AbiClass distinguishes fixed-length Solidity ABI encodings from
// those requiring a head/tail split.
type AbiClass uint8

const (
	AbiStatic AbiClass = iota
	AbiDynamic
)

// TypeLayout is the computed layout of one concrete type.
type TypeLayout struct {
	Repr WasmRepr

	MemSize  int // bytes, little-endian, natural alignment
	MemAlign int

	AbiClass AbiClass
	// AbiWords is the number of 32-byte ABI words a Static value
	// occupies; meaningless for AbiDynamic (head is always one word,
	// an offset).
	AbiWords int

	Copyable bool

	// FieldOffsets/FieldAligns are populated for KindStruct only, one
	// entry per declared field, in declaration order.
	FieldOffsets []int
	FieldAligns  []int

	// Struct-with-key layouts (objects) reserve the leading UID word;
	// UIDOffset is always 0 when IsObject is true.
	IsObject  bool
	UIDOffset int

	// PayloadOffset is meaningful for KindEnum layouts only: the byte
	// offset where the active variant's fields begin, after the tag.
	PayloadOffset int
}

// Engine computes and memoizes TypeLayouts for a Target.
type Engine struct {
	Target Target
	Types  *types.Interner

	cache *cache
}

// New constructs a layout Engine for the given target and interner.
func New(target Target, typesIn *types.Interner) *Engine {
	return &Engine{Target: target, Types: typesIn, cache: newCache()}
}

type layoutState struct {
	stack []types.TypeID
	index map[types.TypeID]int
}

func newLayoutState() *layoutState {
	return &layoutState{index: make(map[types.TypeID]int, 32)}
}

// LayoutOf computes (and caches) the layout of a concrete type.
func (e *Engine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	if e == nil {
		return TypeLayout{MemSize: 0, MemAlign: 1}, nil
	}
	if e.cache == nil {
		e.cache = newCache()
	}
	layout, err := e.layoutOf(t, newLayoutState())
	if err != nil {
		return layout, err
	}
	return layout, nil
}

func (e *Engine) layoutOf(t types.TypeID, state *layoutState) (TypeLayout, *Error) {
	if cached, ok := e.cache.get(t); ok {
		return cached.Layout, cached.Err
	}
	if e.Types.HasTypeParam(t) {
		err := &Error{Kind: ErrHasTypeParam, Type: t}
		e.cache.put(t, cacheEntry{Err: err})
		return TypeLayout{}, err
	}
	if idx, ok := state.index[t]; ok {
		cycle := append([]types.TypeID(nil), state.stack[idx:]...)
		cycle = append(cycle, t)
		err := &Error{Kind: ErrRecursiveUnsized, Type: t, Cycle: cycle}
		e.cache.put(t, cacheEntry{Err: err})
		return TypeLayout{}, err
	}
	state.index[t] = len(state.stack)
	state.stack = append(state.stack, t)
	l, err := e.computeLayout(t, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, t)

	e.cache.put(t, cacheEntry{Layout: l, Err: err})
	return l, err
}

// SizeOf returns the byte size of t.
func (e *Engine) SizeOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.MemSize, err
}

// AlignOf returns the byte alignment requirement of t.
func (e *Engine) AlignOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.MemAlign, err
}

func alignUp(off, align int) int {
	if align <= 1 {
		return off
	}
	rem := off % align
	if rem == 0 {
		return off
	}
	return off + (align - rem)
}
