// Package codegen implements instruction selection (C): lowering one
// monomorphized function's structured control-flow tree
// (internal/wasmir's output) plus its original Move instruction stream
// into a WASM function body, targeting internal/wasmenc's binary
// encoder and WASM's structured block/loop/if control instructions.
package codegen

import (
	"github.com/rather-labs/move-stylus-poc/internal/layout"
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/types"
	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
	"github.com/rather-labs/move-stylus-poc/internal/wasmir"
)

// Env resolves the two things a function body needs from the rest of
// the module that codegen itself does not own: the final index of a
// runtime/host/sibling-function call target, and a place to put
// constant-pool bytes this function's LdConst instructions reference.
// internal/driver is the sole implementation, once it has laid out
// imports, runtime functions, and every compiled function body.
type Env interface {
	FuncIndex(name string) uint32
	// EmitData places bytes in the module's linear memory (backed by a
	// Data segment internal/driver assembles) and returns the address
	// they were placed at. Repeated calls with byte-identical content
	// are not deduplicated — every LdConst site gets its own segment.
	EmitData(bytes []byte) uint32
}

// abortCodeArithmetic is the fixed MoveAbort code this
// backend raises for a checked-arithmetic trap the source bytecode did
// not itself request via OpAbort (overflow, div/mod by zero already
// traps natively in WASM, a narrowing cast that does not fit).
const abortCodeArithmetic = 0xfffe

// funcCtx carries one function's emission state: everything that does
// not change opcode to opcode, threaded through the Node/Instr walk
// instead of returned and re-passed.
type funcCtx struct {
	env  Env
	le   *layout.Engine
	tin  *types.Interner
	prog *mvbc.Program
	fn   *mvbc.Function
	fr   frame

	// Reserved WASM locals, laid out right after the incoming
	// parameters: framePtr holds this call's bump-allocated local
	// frame; scratch0/1/2 (i32) and scratchI64 give every emit_*.go
	// helper somewhere to stash an operand mid-sequence without
	// fighting over a single slot (wide-arithmetic and
	// object-model natives each need at least one).
	framePtr, scratch0, scratch1, scratch2                uint32
	scratchI64, scratchI64b, scratchI64c                  uint32

	// refStack tracks the refTag produced by the most recent Borrow*
	// instruction still unconsumed by a matching ReadRef/WriteRef/
	// BorrowField/FreezeRef — see emit_refs.go.
	refStack []refTag
}

func (c *funcCtx) pushFrameAddr(b *wasmenc.Builder, localIdx int) {
	b.LocalGet(c.framePtr)
	if off := c.fr.offsets[localIdx]; off != 0 {
		b.I32Const(int32(off))
		b.Raw(wasmenc.OpI32Add)
	}
}

func (c *funcCtx) loadLocal(b *wasmenc.Builder, idx int) {
	c.pushFrameAddr(b, idx)
	if c.fr.reprs[idx] == layout.ReprI64 {
		b.Mem(wasmenc.OpI64Load, wasmenc.MemArg{Align: 3})
	} else {
		b.Mem(wasmenc.OpI32Load, wasmenc.MemArg{Align: 2})
	}
}

// storeLocal consumes the single value already on the stack (StLoc's
// operand, or an incoming parameter at function entry) and writes it
// into local idx's frame slot.
func (c *funcCtx) storeLocal(b *wasmenc.Builder, idx int) {
	if c.fr.reprs[idx] == layout.ReprI64 {
		b.LocalSet(c.scratchI64)
		c.pushFrameAddr(b, idx)
		b.LocalGet(c.scratchI64)
		b.Mem(wasmenc.OpI64Store, wasmenc.MemArg{Align: 3})
		return
	}
	b.LocalSet(c.scratch0)
	c.pushFrameAddr(b, idx)
	b.LocalGet(c.scratch0)
	b.Mem(wasmenc.OpI32Store, wasmenc.MemArg{Align: 2})
}

func valTypeOf(r layout.WasmRepr) wasmenc.ValType {
	if r == layout.ReprI64 {
		return wasmenc.I64
	}
	return wasmenc.I32
}

// FuncSymbol names the function id resolves to in Env's namespace, the
// convention internal/driver uses to assign it a function index.
func FuncSymbol(prog *mvbc.Program, id mvbc.FunctionID) string {
	fn := prog.FunctionByID(id)
	mod := prog.ModuleByID(fn.Module)
	modName, _ := prog.Strings.Lookup(mod.Name)
	fnName, _ := prog.Strings.Lookup(fn.Name)
	return modName + "::" + fnName
}

// FuncTypeOf computes mf's WASM signature without emitting a body:
// every parameter's and result's WasmRepr (i32 or i64), the same rule
// EmitFunction applies internally. internal/driver calls this to
// register a function's Type/Function-section slot before any body
// exists, so a forward OpCall from an earlier-registered function can
// already resolve this one's index.
func FuncTypeOf(le *layout.Engine, mf *mvbc.Function) (wasmenc.FuncType, error) {
	paramTypes := make([]wasmenc.ValType, len(mf.Params))
	for i, p := range mf.Params {
		l, err := le.LayoutOf(p.Type)
		if err != nil {
			return wasmenc.FuncType{}, err
		}
		paramTypes[i] = valTypeOf(l.Repr)
	}
	resultTypes := make([]wasmenc.ValType, len(mf.Results))
	for i, rt := range mf.Results {
		l, err := le.LayoutOf(rt)
		if err != nil {
			return wasmenc.FuncType{}, err
		}
		resultTypes[i] = valTypeOf(l.Repr)
	}
	return wasmenc.FuncType{Params: paramTypes, Results: resultTypes}, nil
}

// EmitFunction lowers one monomorphized function to a WASM FuncType +
// Code entry: allocate its frame, spill incoming parameters into it,
// walk wasmir.Structure's node tree, and close the body.
func EmitFunction(env Env, le *layout.Engine, tin *types.Interner, prog *mvbc.Program, wf *wasmir.Func, mf *mvbc.Function) (wasmenc.FuncType, wasmenc.Code, error) {
	fr, err := buildFrame(le, mf.Locals)
	if err != nil {
		return wasmenc.FuncType{}, wasmenc.Code{}, err
	}

	ft, err := FuncTypeOf(le, mf)
	if err != nil {
		return wasmenc.FuncType{}, wasmenc.Code{}, err
	}
	numParams := len(mf.Params)

	ctx := &funcCtx{
		env: env, le: le, tin: tin, prog: prog, fn: mf, fr: fr,
		framePtr:    uint32(numParams),
		scratch0:    uint32(numParams + 1),
		scratch1:    uint32(numParams + 2),
		scratch2:    uint32(numParams + 3),
		scratchI64:  uint32(numParams + 4),
		scratchI64b: uint32(numParams + 5),
		scratchI64c: uint32(numParams + 6),
	}

	b := wasmenc.NewBuilder()
	b.I32Const(int32(fr.size))
	b.Call(env.FuncIndex("rt_alloc"))
	b.LocalSet(ctx.framePtr)
	for i := 0; i < numParams; i++ {
		b.LocalGet(uint32(i))
		ctx.storeLocal(b, i)
	}

	nodes := wasmir.Structure(wf)
	if err := emitNodes(b, nil, nodes, ctx); err != nil {
		return wasmenc.FuncType{}, wasmenc.Code{}, err
	}

	code := wasmenc.Code{
		Locals: []wasmenc.Local{
			{Count: 4, Type: wasmenc.I32},
			{Count: 3, Type: wasmenc.I64},
		},
		Body: b.Finish(),
	}
	return ft, code, nil
}
