package driver

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/rather-labs/move-stylus-poc/internal/abi"
	"github.com/rather-labs/move-stylus-poc/internal/diag"
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// buildArithProgram assembles, by hand, a one-module program exposing
// three public entries: an identity function, an iterative Fibonacci,
// and a u64 add that can be driven into Move's overflow trap. It skips
// L entirely (there is no bytecode file to parse) and hands
// compileProgram exactly the *mvbc.Program the loader would have
// produced, the same shortcut internal/mono's and internal/wasmir's
// own tests take for exercising later stages in isolation.
func buildArithProgram(t *testing.T) *mvbc.Program {
	t.Helper()
	prog := mvbc.NewProgram()
	b := prog.Types.Builtins()

	echo := &mvbc.Function{
		Visibility: mvbc.VisibilityPublic,
		Params:     []mvbc.Param{{Type: b.U64}},
		Results:    []types.TypeID{b.U64},
		Code: []mvbc.Instr{
			{Op: mvbc.OpCopyLoc, Index: 0},
			{Op: mvbc.OpRet},
		},
	}
	echo.Locals = echo.Params
	echoID := prog.InternFunction(echo)
	echo.Name = prog.Strings.Intern("echo")

	// fibonacci(n): iterative, locals 0=n 1=a 2=b 3=i 4=tmp.
	fib := &mvbc.Function{
		Visibility: mvbc.VisibilityPublic,
		Params:     []mvbc.Param{{Type: b.U64}},
		Results:    []types.TypeID{b.U64},
		Code: []mvbc.Instr{
			/*0*/ {Op: mvbc.OpLdU64, Imm: 0},
			/*1*/ {Op: mvbc.OpStLoc, Index: 1},
			/*2*/ {Op: mvbc.OpLdU64, Imm: 1},
			/*3*/ {Op: mvbc.OpStLoc, Index: 2},
			/*4*/ {Op: mvbc.OpLdU64, Imm: 0},
			/*5*/ {Op: mvbc.OpStLoc, Index: 3},
			/*6*/ {Op: mvbc.OpCopyLoc, Index: 3},
			/*7*/ {Op: mvbc.OpCopyLoc, Index: 0},
			/*8*/ {Op: mvbc.OpLt, Width: 64},
			/*9*/ {Op: mvbc.OpBranchIfFalse, BranchTarget: 23},
			/*10*/ {Op: mvbc.OpCopyLoc, Index: 1},
			/*11*/ {Op: mvbc.OpCopyLoc, Index: 2},
			/*12*/ {Op: mvbc.OpAdd, Width: 64},
			/*13*/ {Op: mvbc.OpStLoc, Index: 4},
			/*14*/ {Op: mvbc.OpCopyLoc, Index: 2},
			/*15*/ {Op: mvbc.OpStLoc, Index: 1},
			/*16*/ {Op: mvbc.OpCopyLoc, Index: 4},
			/*17*/ {Op: mvbc.OpStLoc, Index: 2},
			/*18*/ {Op: mvbc.OpCopyLoc, Index: 3},
			/*19*/ {Op: mvbc.OpLdU64, Imm: 1},
			/*20*/ {Op: mvbc.OpAdd, Width: 64},
			/*21*/ {Op: mvbc.OpStLoc, Index: 3},
			/*22*/ {Op: mvbc.OpBranch, BranchTarget: 6},
			/*23*/ {Op: mvbc.OpCopyLoc, Index: 1},
			/*24*/ {Op: mvbc.OpRet},
		},
	}
	fib.Locals = []mvbc.Param{{Type: b.U64}, {Type: b.U64}, {Type: b.U64}, {Type: b.U64}, {Type: b.U64}}
	fibID := prog.InternFunction(fib)
	fib.Name = prog.Strings.Intern("fibonacci")

	addOverflow := &mvbc.Function{
		Visibility: mvbc.VisibilityPublic,
		Params:     []mvbc.Param{{Type: b.U64}, {Type: b.U64}},
		Results:    []types.TypeID{b.U64},
		Code: []mvbc.Instr{
			{Op: mvbc.OpCopyLoc, Index: 0},
			{Op: mvbc.OpCopyLoc, Index: 1},
			{Op: mvbc.OpAdd, Width: 64},
			{Op: mvbc.OpRet},
		},
	}
	addOverflow.Locals = addOverflow.Params
	addID := prog.InternFunction(addOverflow)
	addOverflow.Name = prog.Strings.Intern("add_u64")

	mod := &mvbc.Module{
		Name:  prog.Strings.Intern("arith"),
		Funcs: []mvbc.FunctionID{echoID, fibID, addID},
	}
	mod.ID = 1
	prog.Modules = append(prog.Modules, mod)
	prog.Root = mod.ID
	echo.Module, fib.Module, addOverflow.Module = mod.ID, mod.ID, mod.ID

	return prog
}

// wazeroHarness instantiates a compiled module against a minimal
// vm_hooks host, grounded on the fixed calldata/output buffer protocol
// internal/router's BuildEntrypoint and internal/driver's env.go agree
// on (calldataBufPtr = 0x40, one 32-byte ABI word per argument).
type wazeroHarness struct {
	ctx     context.Context
	rt      wazero.Runtime
	mod     api.Module
	calldata []byte
	result   []byte
}

func newWazeroHarness(t *testing.T, wasm []byte) *wazeroHarness {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	h := &wazeroHarness{ctx: ctx, rt: rt}

	_, err := rt.NewHostModuleBuilder("vm_hooks").
		NewFunctionBuilder().WithFunc(h.readArgs).Export("read_args").
		NewFunctionBuilder().WithFunc(h.writeResult).Export("write_result").
		NewFunctionBuilder().WithFunc(h.storageLoad).Export("storage_load_bytes32").
		NewFunctionBuilder().WithFunc(h.storageStore).Export("storage_store_bytes32").
		NewFunctionBuilder().WithFunc(h.emitLog).Export("emit_log").
		NewFunctionBuilder().WithFunc(h.msgSender).Export("msg_sender").
		NewFunctionBuilder().WithFunc(h.msgValue).Export("msg_value").
		NewFunctionBuilder().WithFunc(h.blockNumber).Export("block_number").
		NewFunctionBuilder().WithFunc(h.blockBasefee).Export("block_basefee").
		NewFunctionBuilder().WithFunc(h.blockGasLimit).Export("block_gas_limit").
		NewFunctionBuilder().WithFunc(h.blockTimestamp).Export("block_timestamp").
		NewFunctionBuilder().WithFunc(h.chainID).Export("chain_id").
		NewFunctionBuilder().WithFunc(h.txGasPrice).Export("tx_gas_price").
		NewFunctionBuilder().WithFunc(h.nativeKeccak256).Export("native_keccak256").
		Instantiate(ctx)
	if err != nil {
		t.Fatalf("instantiating vm_hooks host module: %v", err)
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
	guest, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		t.Fatalf("InstantiateModule: %v", err)
	}
	h.mod = guest
	return h
}

// call writes selector+args into the fixed calldata buffer, invokes
// user_entrypoint, and returns the bytes written through write_result.
func (h *wazeroHarness) call(t *testing.T, selector [4]byte, words ...[32]byte) ([]byte, error) {
	t.Helper()
	buf := append([]byte{}, selector[:]...)
	for _, w := range words {
		buf = append(buf, w[:]...)
	}
	h.calldata = buf
	h.result = nil

	fn := h.mod.ExportedFunction("user_entrypoint")
	_, err := fn.Call(h.ctx, uint64(len(buf)))
	return h.result, err
}

func (h *wazeroHarness) readArgs(ctx context.Context, m api.Module, dst uint32) {
	m.Memory().Write(dst, h.calldata)
}

func (h *wazeroHarness) writeResult(ctx context.Context, m api.Module, ptr, length uint32) {
	data, ok := m.Memory().Read(ptr, length)
	if ok {
		h.result = append([]byte(nil), data...)
	}
}

func (h *wazeroHarness) storageLoad(ctx context.Context, m api.Module, key, dst uint32)   {}
func (h *wazeroHarness) storageStore(ctx context.Context, m api.Module, key, val uint32)  {}
func (h *wazeroHarness) emitLog(ctx context.Context, m api.Module, data, dataLen, topics, topicsLen uint32) {
}
func (h *wazeroHarness) msgSender(ctx context.Context, m api.Module, dst uint32) {}
func (h *wazeroHarness) msgValue(ctx context.Context, m api.Module, dst uint32) {}
func (h *wazeroHarness) blockNumber(ctx context.Context, m api.Module) uint64  { return 1 }
func (h *wazeroHarness) blockBasefee(ctx context.Context, m api.Module, dst uint32) {}
func (h *wazeroHarness) blockGasLimit(ctx context.Context, m api.Module) uint64 { return 30_000_000 }
func (h *wazeroHarness) blockTimestamp(ctx context.Context, m api.Module) uint64 { return 0 }
func (h *wazeroHarness) chainID(ctx context.Context, m api.Module) uint64      { return 42161 }
func (h *wazeroHarness) txGasPrice(ctx context.Context, m api.Module, dst uint32) {}
func (h *wazeroHarness) nativeKeccak256(ctx context.Context, m api.Module, inPtr, inLen, outPtr uint32) {
}

func u64Word(v uint64) [32]byte {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], v)
	return abi.PadWord(raw[:])
}

func selectorFor(t *testing.T, entries []SelectorEntry, name string) [4]byte {
	t.Helper()
	for _, e := range entries {
		if e.Name == name {
			return e.Selector
		}
	}
	t.Fatalf("no selector emitted for %q", name)
	return [4]byte{}
}

func TestCompileAndRunEchoIdempotence(t *testing.T) {
	prog := buildArithProgram(t)
	result, err := compileProgram(prog, diag.NopReporter{})
	if err != nil {
		t.Fatalf("compileProgram: %v", err)
	}

	h := newWazeroHarness(t, result.Wasm)
	sel := selectorFor(t, result.Selectors, "echo")
	out, err := h.call(t, sel, u64Word(12345))
	if err != nil {
		t.Fatalf("calling echo: %v", err)
	}
	want := u64Word(12345)
	if len(out) != 32 || [32]byte(out[:32]) != want {
		t.Fatalf("echo(12345) = %x, want %x", out, want)
	}
}

func TestCompileAndRunFibonacci(t *testing.T) {
	prog := buildArithProgram(t)
	result, err := compileProgram(prog, diag.NopReporter{})
	if err != nil {
		t.Fatalf("compileProgram: %v", err)
	}

	h := newWazeroHarness(t, result.Wasm)
	sel := selectorFor(t, result.Selectors, "fibonacci")

	cases := []struct{ n, want uint64 }{
		{0, 0},
		{1, 1},
		{10, 55},
	}
	for _, c := range cases {
		out, err := h.call(t, sel, u64Word(c.n))
		if err != nil {
			t.Fatalf("fibonacci(%d): %v", c.n, err)
		}
		want := u64Word(c.want)
		if len(out) != 32 || [32]byte(out[:32]) != want {
			t.Fatalf("fibonacci(%d) = %x, want %x", c.n, out, want)
		}
	}
}

func TestCompileAndRunAddOverflowTraps(t *testing.T) {
	prog := buildArithProgram(t)
	result, err := compileProgram(prog, diag.NopReporter{})
	if err != nil {
		t.Fatalf("compileProgram: %v", err)
	}

	h := newWazeroHarness(t, result.Wasm)
	sel := selectorFor(t, result.Selectors, "add_u64")

	if _, err := h.call(t, sel, u64Word(1), u64Word(2)); err != nil {
		t.Fatalf("add_u64(1,2) should not trap: %v", err)
	}
	if _, err := h.call(t, sel, u64Word(^uint64(0)), u64Word(1)); err == nil {
		t.Fatalf("add_u64(u64::MAX, 1) should trap on overflow, got no error")
	}
}
