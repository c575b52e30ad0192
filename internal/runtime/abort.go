package runtime

import "github.com/rather-labs/move-stylus-poc/internal/wasmenc"

// AbortCodeAddr is the fixed linear-memory word rt_abort records a
// Move abort code into immediately before its caller emits an
// Unreachable trap (internal/codegen's emitAbort and its NodeAbort
// handling both follow this call with one). A host embedding this
// module catches the trap and inspects this word rather than
// expecting a return value, since a WASM trap unwinds before any
// return path (including user_entrypoint's own negative-length-on-
// revert convention) ever runs.
const AbortCodeAddr = 0x20

// abortFunc builds `rt_abort(code: i32)`, the one place every
// overflow check and explicit Move `abort` funnels through before
// trapping. Grounded on rt_alloc's shape in alloc.go: a small,
// allocation-free body with no control flow of its own.
func abortFunc() Func {
	return Func{
		Name: "rt_abort",
		Type: ft([]wasmenc.ValType{i32()}),
		Build: func(ix Indexer) []byte {
			b := wasmenc.NewBuilder()
			b.I32Const(int32(AbortCodeAddr))
			b.LocalGet(0)
			b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{})
			return b.Finish()
		},
	}
}
