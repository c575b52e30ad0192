// Package router synthesizes the Stylus entrypoint (R):
// `user_entrypoint(args_len: i32) -> i32`, its compile-time selector
// table, and the `init`/One-Time-Witness constructor convention.
// Grounded on original_source's `hostio/entrypoint_router.rs` and
// `constructor.rs` for the exact protocol this package reproduces
// (selector read, table lookup, fallback to SelectorNotFound; the OTW
// argument-shape convention), reimplemented against
// internal/wasmenc/internal/abi instead of the original's `walrus`
// WASM-building crate.
package router

import (
	"strings"

	"github.com/rather-labs/move-stylus-poc/internal/abi"
	"github.com/rather-labs/move-stylus-poc/internal/diag"
	"github.com/rather-labs/move-stylus-poc/internal/layout"
	"github.com/rather-labs/move-stylus-poc/internal/strtab"
	"github.com/rather-labs/move-stylus-poc/internal/types"
	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
)

// Indexer resolves a function name (a runtime call, a host import, or
// a codegen-emitted symbol) to its slot in the final module's
// function index space. internal/driver is the sole implementation.
type Indexer interface {
	FuncIndex(name string) uint32
}

// EntryFunc describes one publicly callable Move function the router
// must expose behind a selector, already reduced to what the router
// needs: its ABI-visible parameter/result layouts and the function
// index internal/codegen assigned its compiled body.
type EntryFunc struct {
	Name         string
	Selector     [4]byte
	FuncIndex    uint32
	ParamLayouts []layout.TypeLayout
	ResultLayout *layout.TypeLayout // nil for a unit-returning function
}

// calldataBufPtr is the fixed linear-memory address read_args writes
// the raw calldata into; it is a constant rather than a global since
// user_entrypoint never recurses.
const calldataBufPtr = 0x40

// revertSelectorNotFound is the fixed abort code MoveAbort/the
// entrypoint's negative-length convention uses when no
// selector in the table matches.
const revertSelectorNotFound = int32(-1) // bit pattern 0xffff_ffff

// BuildEntrypoint assembles `user_entrypoint(args_len: i32) -> i32`:
// read calldata, dispatch by 4-byte selector, decode/invoke/encode,
// or revert(SelectorNotFound) on a miss (steps 1-4).
func BuildEntrypoint(ix Indexer, entries []EntryFunc) wasmenc.Code {
	b := wasmenc.NewBuilder()
	// locals: 0=argsLen(param), 1=selector, 2=scratch results...
	const argsLen, selector = 0, 1

	b.LocalGet(argsLen)
	b.Call(ix.FuncIndex("read_args_at_fixed_addr")) // driver wires this to copy into calldataBufPtr

	for i := 0; i < 4; i++ {
		if i == 0 {
			b.I32Const(calldataBufPtr)
			b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{})
		} else {
			b.I32Const(calldataBufPtr)
			b.Mem(wasmenc.OpI32Load8U, wasmenc.MemArg{Offset: uint32(i)})
			b.I32Const(int32(8 * (3 - i)))
			b.Raw(wasmenc.OpI32Shl)
			b.Raw(wasmenc.OpI32Or)
		}
	}
	b.LocalSet(selector)

	for _, e := range entries {
		sel := int32(uint32(e.Selector[0])<<24 | uint32(e.Selector[1])<<16 | uint32(e.Selector[2])<<8 | uint32(e.Selector[3]))
		b.LocalGet(selector)
		b.I32Const(sel)
		b.Raw(wasmenc.OpI32Eq)
		b.If(wasmenc.BlockType{Empty: true})
		emitDispatch(b, ix, e)
		b.End()
	}

	// Fell through every entry without matching: revert(SelectorNotFound).
	b.I32Const(revertSelectorNotFound)
	b.Return()

	return wasmenc.Code{
		// 1: selector, 2: heap-decode scratch, 3: i32 result scratch,
		// 4: i64 result scratch — one function body serves every
		// entry, so both result-width scratch locals are declared
		// even though any single dispatch branch only touches one.
		Locals: []wasmenc.Local{
			{Count: 3, Type: wasmenc.I32},
			{Count: 1, Type: wasmenc.I64},
		},
		Body: b.Finish(),
	}
}

// emitDispatch decodes e's arguments out of the calldata buffer
// (4-byte selector then one 32-byte ABI word per static parameter —
// a dynamic parameter is rejected earlier, when internal/driver builds
// the entry table, so emitDispatch only ever sees static-class
// arguments), calls the compiled function, encodes its result, and
// returns its length from user_entrypoint.
func emitDispatch(b *wasmenc.Builder, ix Indexer, e EntryFunc) {
	argsPtr := calldataBufPtr + 4
	for i, pl := range e.ParamLayouts {
		wordOff := argsPtr + i*abi.WordSize
		switch pl.Repr {
		case layout.ReprI32:
			abi.EmitDecodeI32(b, 0, wordOff)
		case layout.ReprI64:
			abi.EmitDecodeI64(b, 0, wordOff)
		default:
			// ReprHeapPtr: allocate + byte-reverse into a fresh buffer.
			// Local slot 2 is reserved scratch across this whole
			// function body; a router accepting more than one heap
			// argument per call would need to widen this pool.
			abi.EmitDecodeHeapWord(b, 0, wordOff, 2, ix.FuncIndex("rt_alloc"))
		}
	}

	b.Call(e.FuncIndex)

	if e.ResultLayout == nil {
		b.I32Const(0)
		b.Return()
		return
	}

	outPtr := calldataBufPtr + 4 + len(e.ParamLayouts)*abi.WordSize
	switch e.ResultLayout.Repr {
	case layout.ReprI32:
		b.LocalSet(3)
		abi.EmitEncodeI32(b, 3, 0, outPtr)
	case layout.ReprI64:
		b.LocalSet(4)
		abi.EmitEncodeI64(b, 4, 0, outPtr)
	default:
		b.LocalSet(2)
		abi.EmitEncodeHeapWord(b, 2, 0, outPtr)
	}

	b.I32Const(int32(outPtr))
	b.I32Const(abi.WordSize)
	b.Call(ix.FuncIndex("write_result"))
	b.I32Const(int32(abi.WordSize))
	b.Return()
}

// ConstructorKind classifies a module's `init`, if any, per the
// constructor convention below.
type ConstructorKind uint8

const (
	NoConstructor ConstructorKind = iota
	ConstructorPlain                // init(&mut TxContext)
	ConstructorWithOTW               // init(OTW, &mut TxContext)
	ConstructorInvalid                // present but wrong shape: BadInit
)

// ClassifyInit inspects a candidate `init` function's parameter types
// against the OTW convention: a zero-field, drop-only struct named
// after the module (uppercased) followed by &mut TxContext, or
// &mut TxContext alone.
func ClassifyInit(tin *types.Interner, names *strtab.Interner, moduleNameUpper string, params []types.TypeID) (ConstructorKind, *diag.ReportBuilder) {
	switch len(params) {
	case 1:
		if isTxContextRef(tin, params[0]) {
			return ConstructorPlain, nil
		}
		return ConstructorInvalid, nil
	case 2:
		if !IsOTWShape(tin, names, moduleNameUpper, params[0]) || !isTxContextRef(tin, params[1]) {
			return ConstructorInvalid, nil
		}
		return ConstructorWithOTW, nil
	default:
		return ConstructorInvalid, nil
	}
}

func isTxContextRef(tin *types.Interner, id types.TypeID) bool {
	t, ok := tin.Lookup(id)
	if !ok || t.Kind != types.KindRef || !t.Mutable {
		return false
	}
	inner, ok := tin.StructInfo(t.Elem)
	return ok && inner != nil
}

// IsOTWShape reports whether id names a valid one-time-witness struct
// for a module named moduleNameUpper: zero fields, exactly the drop
// ability, and a struct name equal to the module name uppercased.
func IsOTWShape(tin *types.Interner, names *strtab.Interner, moduleNameUpper string, id types.TypeID) bool {
	info, ok := tin.StructInfo(id)
	if !ok {
		return false
	}
	structName, ok := names.Lookup(info.Name)
	if !ok || strings.ToUpper(structName) != moduleNameUpper {
		return false
	}
	return len(info.Fields) == 0 && info.Abilities == types.AbilityDrop
}

// CheckUnusedOTW implements Open Question (b): a module
// that declares an OTW-shaped struct but no matching `init` only
// warns (RouterOTWUnused), it is never rejected.
func CheckUnusedOTW(r diag.Reporter, at diag.Location, hasOTWStruct bool, kind ConstructorKind) {
	if hasOTWStruct && kind != ConstructorWithOTW {
		diag.ReportWarning(r, diag.RouterOTWUnused, at,
			"module declares a one-time-witness struct but no init(OTW, &mut TxContext) consumes it").Emit()
	}
}
