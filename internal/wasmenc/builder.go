package wasmenc

import "fmt"

// scopeKind distinguishes the three structured control instructions
// for depth-balance validation.
type scopeKind byte

const (
	scopeBlock scopeKind = iota
	scopeLoop
	scopeIf
)

// Builder assembles one function's instruction stream, tracking the
// block/loop/if nesting depth as it goes so it can catch a codegen bug
// before the bytes ever reach a WASM host: a stray Else or a branch
// past the outermost scope panics when it is emitted, an unclosed
// scope panics at Finish. Operand types are checked separately by
// ValidateModule.
type Builder struct {
	w      writer
	scopes []scopeKind
}

// NewBuilder starts a fresh function body.
func NewBuilder() *Builder { return &Builder{} }

// Depth reports how many structured scopes are currently open; codegen
// uses this to translate a wasmir.NodeBr's target label into a
// relative branch depth (Depth() - depthWhenScopeOpened - 1... the
// exact arithmetic lives in internal/codegen, which is the only
// caller with the label bookkeeping to compute it).
func (b *Builder) Depth() int { return len(b.scopes) }

func (b *Builder) op(o Op) { b.w.byte(byte(o)) }

func (b *Builder) Block(bt BlockType) {
	b.op(OpBlock)
	bt.encode(&b.w)
	b.scopes = append(b.scopes, scopeBlock)
}

func (b *Builder) Loop(bt BlockType) {
	b.op(OpLoop)
	bt.encode(&b.w)
	b.scopes = append(b.scopes, scopeLoop)
}

func (b *Builder) If(bt BlockType) {
	b.op(OpIf)
	bt.encode(&b.w)
	b.scopes = append(b.scopes, scopeIf)
}

// Else switches the current If scope to its false arm. Panics if the
// innermost open scope is not an If — a codegen bug, not a user error.
func (b *Builder) Else() {
	if len(b.scopes) == 0 || b.scopes[len(b.scopes)-1] != scopeIf {
		panic("wasmenc: Else with no matching If scope open")
	}
	b.op(OpElse)
}

// End closes the innermost open scope.
func (b *Builder) End() {
	if len(b.scopes) == 0 {
		panic("wasmenc: End with no scope open")
	}
	b.scopes = b.scopes[:len(b.scopes)-1]
	b.op(OpEnd)
}

// Br emits an unconditional branch to the scope depth levels out from
// the innermost (0 = the scope currently open).
func (b *Builder) Br(depth uint32) {
	b.checkDepth(depth)
	b.op(OpBr)
	b.w.uleb128(uint64(depth))
}

func (b *Builder) BrIf(depth uint32) {
	b.checkDepth(depth)
	b.op(OpBrIf)
	b.w.uleb128(uint64(depth))
}

func (b *Builder) BrTable(targets []uint32, defaultTarget uint32) {
	for _, t := range targets {
		b.checkDepth(t)
	}
	b.checkDepth(defaultTarget)
	b.op(OpBrTable)
	vec(&b.w, targets, func(w *writer, t uint32) { w.uleb128(uint64(t)) })
	b.w.uleb128(uint64(defaultTarget))
}

func (b *Builder) checkDepth(depth uint32) {
	if int(depth) >= len(b.scopes) {
		panic(fmt.Sprintf("wasmenc: branch depth %d exceeds %d open scopes", depth, len(b.scopes)))
	}
}

func (b *Builder) Unreachable() { b.op(OpUnreachable) }
func (b *Builder) Nop()         { b.op(OpNop) }
func (b *Builder) Return()      { b.op(OpReturn) }
func (b *Builder) Drop()        { b.op(OpDrop) }
func (b *Builder) Select()      { b.op(OpSelect) }

func (b *Builder) Call(funcIdx uint32) {
	b.op(OpCall)
	b.w.uleb128(uint64(funcIdx))
}

func (b *Builder) CallIndirect(typeIdx, tableIdx uint32) {
	b.op(OpCallIndirect)
	b.w.uleb128(uint64(typeIdx))
	b.w.uleb128(uint64(tableIdx))
}

func (b *Builder) LocalGet(idx uint32) { b.idxOp(OpLocalGet, idx) }
func (b *Builder) LocalSet(idx uint32) { b.idxOp(OpLocalSet, idx) }
func (b *Builder) LocalTee(idx uint32) { b.idxOp(OpLocalTee, idx) }
func (b *Builder) GlobalGet(idx uint32) { b.idxOp(OpGlobalGet, idx) }
func (b *Builder) GlobalSet(idx uint32) { b.idxOp(OpGlobalSet, idx) }

func (b *Builder) idxOp(o Op, idx uint32) {
	b.op(o)
	b.w.uleb128(uint64(idx))
}

func (b *Builder) I32Const(v int32) {
	b.op(OpI32Const)
	b.w.sleb128(int64(v))
}

func (b *Builder) I64Const(v int64) {
	b.op(OpI64Const)
	b.w.sleb128(v)
}

// Mem emits a load/store instruction with its alignment/offset immediate.
func (b *Builder) Mem(o Op, m MemArg) {
	b.op(o)
	b.w.uleb128(uint64(m.Align))
	b.w.uleb128(uint64(m.Offset))
}

// Raw appends a bare opcode with no immediate (every arithmetic,
// comparison, and conversion instruction in opcode.go).
func (b *Builder) Raw(o Op) { b.op(o) }

func (b *Builder) MemorySize() { b.op(OpMemorySize); b.w.byte(0x00) }
func (b *Builder) MemoryGrow() { b.op(OpMemoryGrow); b.w.byte(0x00) }

// Finish closes the implicit function-level block and returns the
// encoded body. Panics if any explicit scope opened by Block/Loop/If
// was never closed — that is always a codegen defect, not recoverable
// input.
func (b *Builder) Finish() []byte {
	if len(b.scopes) != 0 {
		panic(fmt.Sprintf("wasmenc: %d scope(s) still open at Finish", len(b.scopes)))
	}
	b.op(OpEnd)
	return b.w.Bytes()
}
