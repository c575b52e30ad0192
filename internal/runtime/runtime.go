// Package runtime supplies the Move-to-Stylus runtime layer (R,
//): the bump allocator, wide-integer arithmetic, vector
// primitives, the storage codec, and event emission, each compiled
// once as an ordinary WASM function body that internal/codegen calls
// into instead of inlining at every use site. It also declares the
// Stylus `vm_hooks` host imports every one of those bodies (and the
// router's entrypoint) ultimately bottoms out in.
package runtime

import "github.com/rather-labs/move-stylus-poc/internal/wasmenc"

// Func is one runtime-supplied function: a name codegen and the
// router resolve calls by, its WASM signature, and a body builder
// that receives the function index space so it can call sibling
// runtime functions and host imports by index.
type Func struct {
	Name string
	Type wasmenc.FuncType
	// Locals lists any function-local declarations beyond the
	// parameters implied by Type.Params (wasmenc.Code.Locals).
	Locals []wasmenc.Local
	Build  func(ix Indexer) []byte
}

// Indexer resolves a runtime/host function name to its WASM
// function-index-space slot. internal/driver is the only
// implementation: it owns the final index assignment once imports,
// runtime functions, codegen output, and the router entrypoint are
// all laid out.
type Indexer interface {
	FuncIndex(name string) uint32
}

// bumpPtrGlobal is the index, within the emitted module's Global
// section, of the mutable i32 bump-allocator cursor. internal/driver
// always allocates this as global 0 so every runtime body can assume
// it without threading the index through Func.Build.
const bumpPtrGlobal = 0

// pageSize is the WASM linear-memory page size (64 KiB), used by
// rt_alloc to decide when memory.grow is required.
const pageSize = 65536

// Functions returns every runtime-supplied WASM function body, in a
// stable order internal/driver assigns consecutive function indices
// to (immediately after the host imports).
func Functions() []Func {
	fns := []Func{allocFunc(), cloneFunc(), eqBytesFunc(), abortFunc()}
	fns = append(fns, bignumFuncs()...)
	fns = append(fns, vectorFuncs()...)
	fns = append(fns, storageFuncs()...)
	fns = append(fns, objectFuncs()...)
	fns = append(fns, eventFunc())
	return fns
}

func i32() wasmenc.ValType { return wasmenc.I32 }
func i64() wasmenc.ValType { return wasmenc.I64 }

func ft(params []wasmenc.ValType, results ...wasmenc.ValType) wasmenc.FuncType {
	return wasmenc.FuncType{Params: params, Results: results}
}
