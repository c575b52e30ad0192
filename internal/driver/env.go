package driver

import (
	"fmt"

	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
)

// calldataBufPtr mirrors router.calldataBufPtr: the fixed linear-memory
// address the router's entrypoint decodes ABI words from. Duplicated
// here (router's constant is unexported) rather than threaded through
// an exported accessor, since the two packages must agree on a single
// magic number anyway and a getter would not make that agreement any
// safer.
const calldataBufPtr = 0x40

// staticDataBase is the first address internal/driver hands out to
// EmitData. Everything below it is reserved scratch space the router
// and the codec helpers in internal/abi address directly: the decoded
// calldata buffer at calldataBufPtr, plus headroom for the decoded
// argument/result words emitDispatch writes past it. 4 KiB comfortably
// covers the router's own []byte reads and writes for any entry
// function; rt_alloc's bump cursor never starts below wherever the
// last constant-pool byte landed (compileProgram initializes global 0
// to that address rounded up to 8).
const staticDataBase = 0x1000

// moduleEnv assigns every callable a slot in the emitted module's
// function index space and every constant-pool blob a linear-memory
// address. Its FuncIndex method alone satisfies codegen.Env,
// runtime.Indexer, and router.Indexer (all three ask for the same
// thing), and its EmitData method additionally satisfies codegen.Env.
//
// Index assignment happens in two phases: register first (every
// import, runtime function, synthesized helper, and compiled Move
// function gets its index up front), then build bodies (so a runtime
// function can call one that is registered after it in Functions()'s
// list) — the same
// forward-reference problem any single-pass linker with mutually
// recursive definitions has to solve.
type moduleEnv struct {
	funcIdx  map[string]uint32
	nextFunc uint32

	imports   []wasmenc.Import
	types     []wasmenc.FuncType
	functions []uint32 // TypeIdx per defined (non-import) function
	code      []wasmenc.Code

	data       []wasmenc.Data
	dataCursor uint32
}

func newModuleEnv() *moduleEnv {
	return &moduleEnv{
		funcIdx:    make(map[string]uint32),
		dataCursor: staticDataBase,
	}
}

// FuncIndex resolves name to its assigned function-index-space slot.
// Every caller (codegen, runtime bodies, the router) only ever asks
// for a name this env already registered in phase one; an unknown
// name is always a wiring bug in the driver, not a user error, so it
// panics rather than threading an error through every Build callback.
func (e *moduleEnv) FuncIndex(name string) uint32 {
	idx, ok := e.funcIdx[name]
	if !ok {
		panic(fmt.Sprintf("driver: no function registered under %q", name))
	}
	return idx
}

// EmitData places bytes at the next free static address and returns
// it. Addresses only ever grow; repeated identical content is not
// deduplicated (codegen.Env's contract explicitly allows this).
func (e *moduleEnv) EmitData(bytes []byte) uint32 {
	addr := e.dataCursor
	e.data = append(e.data, wasmenc.Data{
		Offset: constExprI32(int32(addr)),
		Init:   bytes,
	})
	e.dataCursor += uint32(len(bytes))
	return addr
}

// registerImport assigns the next function index to a host import and
// records its FuncType, in the order the Import section will list it.
func (e *moduleEnv) registerImport(field string, ft wasmenc.FuncType) {
	typeIdx := e.internType(ft)
	e.imports = append(e.imports, wasmenc.Import{
		Module:  "vm_hooks",
		Field:   field,
		Kind:    wasmenc.ImportFunc,
		TypeIdx: typeIdx,
	})
	e.funcIdx[field] = e.nextFunc
	e.nextFunc++
}

// reserveDefined assigns the next function index to a locally-defined
// function under name, without yet knowing its body (phase one).
func (e *moduleEnv) reserveDefined(name string, ft wasmenc.FuncType) {
	typeIdx := e.internType(ft)
	e.functions = append(e.functions, typeIdx)
	e.funcIdx[name] = e.nextFunc
	e.nextFunc++
}

// setBody installs name's already-built Code at the slot reserveDefined
// assigned it (phase two). name must already have been reserved.
func (e *moduleEnv) setBody(name string, code wasmenc.Code) {
	idx, ok := e.funcIdx[name]
	if !ok {
		panic(fmt.Sprintf("driver: setBody for unregistered function %q", name))
	}
	slot := int(idx) - len(e.imports)
	for len(e.code) <= slot {
		e.code = append(e.code, wasmenc.Code{})
	}
	e.code[slot] = code
}

// internType appends ft to the Type section, without deduplication
// (codegen.Env's comment on EmitData already established this backend
// does not bother pooling identical content; the Type section follows
// the same rule for simplicity).
func (e *moduleEnv) internType(ft wasmenc.FuncType) uint32 {
	idx := uint32(len(e.types))
	e.types = append(e.types, ft)
	return idx
}

// constExprI32 builds a constant-expression instruction stream for a
// Data/Global offset: a bare i32.const followed by end, the only shape
// this backend's static addresses ever need.
func constExprI32(v int32) []byte {
	b := wasmenc.NewBuilder()
	b.I32Const(v)
	return b.Finish()
}
