package wasmenc

import "fmt"

// ValidateModule runs a structural pass over m before it is serialized:
// every index a section carries (type indices, function indices in the
// combined import+defined space, global/memory indices) must resolve
// within the module, and every function body's instruction stream must
// balance its declared type's stack effect. Builder.Finish already
// catches an unclosed or over-branched scope as codegen emits a body;
// this pass catches the class of bug Builder cannot see on its own —
// a wrong operand count or type reaching an instruction, or a function
// falling through without leaving its declared result on the stack.
//
// This is not a general WASM validator: it only understands the fixed
// numeric-only instruction subset opcode.go names (no floats, tables,
// or reference types), which is everything this backend's Builder is
// able to emit in the first place. A function's own result arity may
// still be more than one value (Move functions can return a tuple),
// even though no Block/Loop/If this backend opens ever does.
func ValidateModule(m *Module) error {
	if err := validateSections(m); err != nil {
		return err
	}
	funcTypes := m.funcIndexSpace()
	definedStart := len(funcTypes) - len(m.Code)
	for i, code := range m.Code {
		ft := m.Types[m.Functions[i]]
		if err := validateFuncBody(ft, code, funcTypes, m.Types); err != nil {
			return fmt.Errorf("wasmenc: function %d: %w", definedStart+i, err)
		}
	}
	return nil
}

// funcIndexSpace returns the TypeIdx of every function in the shared
// function index space the binary format defines: host imports first,
// in declaration order, followed by this module's own defined
// functions — the same order Module.Encode assigns call targets in.
func (m *Module) funcIndexSpace() []uint32 {
	out := make([]uint32, 0, len(m.Imports)+len(m.Functions))
	for _, im := range m.Imports {
		if im.Kind == ImportFunc {
			out = append(out, im.TypeIdx)
		}
	}
	return append(out, m.Functions...)
}

func validateSections(m *Module) error {
	if len(m.Functions) != len(m.Code) {
		return fmt.Errorf("wasmenc: %d function section entries but %d code entries", len(m.Functions), len(m.Code))
	}
	for i, tidx := range m.Functions {
		if int(tidx) >= len(m.Types) {
			return fmt.Errorf("wasmenc: function %d: type index %d out of range", i, tidx)
		}
	}
	for i, im := range m.Imports {
		if im.Kind == ImportFunc && int(im.TypeIdx) >= len(m.Types) {
			return fmt.Errorf("wasmenc: import %d (%s.%s): type index %d out of range", i, im.Module, im.Field, im.TypeIdx)
		}
	}

	var totalFuncs uint32
	for _, im := range m.Imports {
		if im.Kind == ImportFunc {
			totalFuncs++
		}
	}
	totalFuncs += uint32(len(m.Functions))

	if m.HasStart && m.Start >= totalFuncs {
		return fmt.Errorf("wasmenc: start function index %d out of range", m.Start)
	}
	for i, e := range m.Exports {
		switch e.Kind {
		case ExportFunc:
			if e.Index >= totalFuncs {
				return fmt.Errorf("wasmenc: export %d (%q): function index %d out of range", i, e.Name, e.Index)
			}
		case ExportMemory:
			if int(e.Index) >= len(m.Memories) {
				return fmt.Errorf("wasmenc: export %d (%q): memory index %d out of range", i, e.Name, e.Index)
			}
		case ExportGlobal:
			if int(e.Index) >= len(m.Globals) {
				return fmt.Errorf("wasmenc: export %d (%q): global index %d out of range", i, e.Name, e.Index)
			}
		}
	}
	for i, g := range m.Globals {
		if len(g.Init) == 0 || g.Init[len(g.Init)-1] != byte(OpEnd) {
			return fmt.Errorf("wasmenc: global %d: init expression missing End terminator", i)
		}
	}
	for i, d := range m.Data {
		if len(d.Offset) == 0 || d.Offset[len(d.Offset)-1] != byte(OpEnd) {
			return fmt.Errorf("wasmenc: data segment %d: offset expression missing End terminator", i)
		}
	}
	return nil
}

// ctrlFrame is one entry of the stack-checker's control-flow stack,
// tracking enough of the enclosing Block/Loop/If to check a branch or
// End against it: the operand-stack height at entry (results below
// this height are untouched by the frame) and whether this frame's
// code path has gone unreachable (after Unreachable/Return/Br/BrTable,
// the operand stack becomes polymorphic until the next End/Else).
type ctrlFrame struct {
	op          Op
	results     []ValType
	height      int
	unreachable bool
}

// labelArity is the operand types a branch targeting this frame must
// leave behind: a loop's label targets its start (no result carried,
// since this backend never gives a loop block-type params), a
// block/if's label targets its end (the block's own result types).
func (f *ctrlFrame) labelArity() []ValType {
	if f.op == OpLoop {
		return nil
	}
	return f.results
}

// funcValidator walks one function body's encoded instruction stream,
// maintaining an abstract operand-type stack alongside the control
// frame stack, per the same push/pop discipline a WASM engine's own
// validator runs at module load.
type funcValidator struct {
	locals    []ValType
	funcTypes []uint32
	types     []FuncType

	stack  []ValType
	frames []ctrlFrame
}

func validateFuncBody(ft FuncType, code Code, funcTypes []uint32, types []FuncType) error {
	locals := append(append([]ValType{}, ft.Params...), expandLocals(code.Locals)...)
	v := &funcValidator{locals: locals, funcTypes: funcTypes, types: types}
	v.pushFrame(OpBlock, ft.Results)

	r := &bodyReader{b: code.Body}
	for {
		if r.done() {
			return fmt.Errorf("instruction stream ended without a matching End")
		}
		op, err := r.readByte()
		if err != nil {
			return err
		}
		done, err := v.step(Op(op), r)
		if err != nil {
			return err
		}
		if done {
			break
		}
	}
	if !r.done() {
		return fmt.Errorf("%d trailing byte(s) after function-level End", len(r.b)-r.pos)
	}
	return nil
}

func expandLocals(decls []Local) []ValType {
	var out []ValType
	for _, d := range decls {
		for i := uint32(0); i < d.Count; i++ {
			out = append(out, d.Type)
		}
	}
	return out
}

// blockResults resolves a structured control instruction's BlockType
// to the result types its End leaves on the stack. A type-index block
// (multi-value params+results) is resolved against the module's own
// Type section; this backend's Builder never actually emits one (every
// Block/Loop/If it opens carries Empty or a single ValueType), but the
// function-level pseudo-block validateFuncBody opens can have any
// arity, since Move functions may return more than one value.
func (v *funcValidator) blockResults(bt BlockType) []ValType {
	switch {
	case bt.HasIdx:
		return v.types[bt.TypeIdx].Results
	case bt.Empty:
		return nil
	default:
		return []ValType{bt.ValueType}
	}
}

func (v *funcValidator) pushFrame(op Op, results []ValType) {
	v.frames = append(v.frames, ctrlFrame{op: op, results: results, height: len(v.stack)})
}

func (v *funcValidator) top() *ctrlFrame { return &v.frames[len(v.frames)-1] }

func (v *funcValidator) push(t ValType) { v.stack = append(v.stack, t) }

// pop removes and returns the top operand, honoring the current
// frame's polymorphic-unreachable state: once a frame has gone
// unreachable, popping past its own height yields a wildcard that
// satisfies any expected type instead of underflowing.
func (v *funcValidator) pop() (ValType, bool, error) {
	f := v.top()
	if len(v.stack) == f.height {
		if f.unreachable {
			return 0, true, nil
		}
		return 0, false, fmt.Errorf("operand stack underflow")
	}
	t := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return t, false, nil
}

func (v *funcValidator) popExpect(want ValType) error {
	got, wildcard, err := v.pop()
	if err != nil {
		return err
	}
	if !wildcard && got != want {
		return fmt.Errorf("expected %s on the operand stack, found %s", want, got)
	}
	return nil
}

func (v *funcValidator) popResults(results []ValType) error {
	for i := len(results) - 1; i >= 0; i-- {
		if err := v.popExpect(results[i]); err != nil {
			return err
		}
	}
	return nil
}

// setUnreachable discards every operand pushed since the current
// frame opened and marks it polymorphic, the effect Unreachable,
// Return, Br, and BrTable all have on the code that follows them up
// to the next Else/End.
func (v *funcValidator) setUnreachable() {
	f := v.top()
	v.stack = v.stack[:f.height]
	f.unreachable = true
}

// branchTo checks a branch targeting the frame `depth` levels out from
// the innermost, requiring the operand stack currently hold that
// frame's label arity (without consuming the frame itself, since the
// branch does not close it).
func (v *funcValidator) branchTo(depth uint32) error {
	if int(depth) >= len(v.frames) {
		return fmt.Errorf("branch depth %d exceeds %d open frame(s)", depth, len(v.frames))
	}
	f := &v.frames[len(v.frames)-1-int(depth)]
	arity := f.labelArity()
	for i := len(arity) - 1; i >= 0; i-- {
		got, wildcard, err := v.pop()
		if err != nil {
			return fmt.Errorf("branch to depth %d: %w", depth, err)
		}
		if !wildcard && got != arity[i] {
			return fmt.Errorf("branch to depth %d: expected %s, found %s", depth, arity[i], got)
		}
	}
	for _, t := range arity {
		v.push(t)
	}
	return nil
}

func (v ValType) String() string {
	switch v {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "unknown"
	}
}

// step decodes and checks one instruction, returning done=true once
// the function-level block's own End has been consumed.
func (v *funcValidator) step(op Op, r *bodyReader) (bool, error) {
	switch op {
	case OpUnreachable:
		v.setUnreachable()
	case OpNop:
		// no operand effect.
	case OpBlock, OpLoop, OpIf:
		bt, err := r.readBlockType()
		if err != nil {
			return false, err
		}
		if op == OpIf {
			if err := v.popExpect(I32); err != nil {
				return false, fmt.Errorf("if condition: %w", err)
			}
		}
		v.pushFrame(op, v.blockResults(bt))
	case OpElse:
		f := v.top()
		if err := v.popResults(f.results); err != nil {
			return false, fmt.Errorf("else: %w", err)
		}
		if len(v.stack) != f.height {
			return false, fmt.Errorf("else: %d unconsumed operand(s) left on the then-branch", len(v.stack)-f.height)
		}
		f.unreachable = false
	case OpEnd:
		f := v.top()
		if err := v.popResults(f.results); err != nil {
			return false, fmt.Errorf("end: %w", err)
		}
		if len(v.stack) != f.height {
			return false, fmt.Errorf("end: %d unconsumed operand(s) left in block", len(v.stack)-f.height)
		}
		closed := *f
		v.frames = v.frames[:len(v.frames)-1]
		if len(v.frames) == 0 {
			return true, nil
		}
		for _, t := range closed.results {
			v.push(t)
		}
	case OpBr:
		depth, err := r.readU32()
		if err != nil {
			return false, err
		}
		if err := v.branchTo(depth); err != nil {
			return false, err
		}
		v.setUnreachable()
	case OpBrIf:
		depth, err := r.readU32()
		if err != nil {
			return false, err
		}
		if err := v.popExpect(I32); err != nil {
			return false, fmt.Errorf("br_if condition: %w", err)
		}
		if err := v.branchTo(depth); err != nil {
			return false, err
		}
	case OpBrTable:
		count, err := r.readU32()
		if err != nil {
			return false, err
		}
		targets := make([]uint32, count)
		for i := range targets {
			if targets[i], err = r.readU32(); err != nil {
				return false, err
			}
		}
		def, err := r.readU32()
		if err != nil {
			return false, err
		}
		if err := v.popExpect(I32); err != nil {
			return false, fmt.Errorf("br_table index: %w", err)
		}
		for _, t := range targets {
			if err := v.branchTo(t); err != nil {
				return false, err
			}
		}
		if err := v.branchTo(def); err != nil {
			return false, err
		}
		v.setUnreachable()
	case OpReturn:
		if err := v.branchTo(uint32(len(v.frames) - 1)); err != nil {
			return false, fmt.Errorf("return: %w", err)
		}
		v.setUnreachable()
	case OpCall:
		idx, err := r.readU32()
		if err != nil {
			return false, err
		}
		if int(idx) >= len(v.funcTypes) {
			return false, fmt.Errorf("call: function index %d out of range", idx)
		}
		ft := v.types[v.funcTypes[idx]]
		for i := len(ft.Params) - 1; i >= 0; i-- {
			if err := v.popExpect(ft.Params[i]); err != nil {
				return false, fmt.Errorf("call %d: %w", idx, err)
			}
		}
		for _, res := range ft.Results {
			v.push(res)
		}
	case OpCallIndirect:
		return false, fmt.Errorf("call_indirect is not lowered by this backend")
	case OpDrop:
		if _, _, err := v.pop(); err != nil {
			return false, fmt.Errorf("drop: %w", err)
		}
	case OpSelect:
		if err := v.popExpect(I32); err != nil {
			return false, fmt.Errorf("select condition: %w", err)
		}
		b, wildcard, err := v.pop()
		if err != nil {
			return false, fmt.Errorf("select: %w", err)
		}
		a, wildcardA, err := v.pop()
		if err != nil {
			return false, fmt.Errorf("select: %w", err)
		}
		if !wildcard && !wildcardA && a != b {
			return false, fmt.Errorf("select: arms have mismatched types %s/%s", a, b)
		}
		if wildcard {
			v.push(a)
		} else {
			v.push(b)
		}
	case OpLocalGet, OpLocalSet, OpLocalTee:
		idx, err := r.readU32()
		if err != nil {
			return false, err
		}
		if int(idx) >= len(v.locals) {
			return false, fmt.Errorf("local index %d out of range", idx)
		}
		t := v.locals[idx]
		switch op {
		case OpLocalGet:
			v.push(t)
		case OpLocalSet:
			if err := v.popExpect(t); err != nil {
				return false, fmt.Errorf("local.set %d: %w", idx, err)
			}
		case OpLocalTee:
			if err := v.popExpect(t); err != nil {
				return false, fmt.Errorf("local.tee %d: %w", idx, err)
			}
			v.push(t)
		}
	case OpGlobalGet, OpGlobalSet:
		if _, err := r.readU32(); err != nil {
			return false, err
		}
		// internal/driver only ever declares i32 globals; codegen
		// never emits a global access against any other type.
		if op == OpGlobalGet {
			v.push(I32)
		} else if err := v.popExpect(I32); err != nil {
			return false, fmt.Errorf("global.set: %w", err)
		}
	case OpI32Const:
		if _, err := r.readI64(); err != nil {
			return false, err
		}
		v.push(I32)
	case OpI64Const:
		if _, err := r.readI64(); err != nil {
			return false, err
		}
		v.push(I64)
	case OpMemorySize:
		if _, err := r.readByte(); err != nil {
			return false, err
		}
		v.push(I32)
	case OpMemoryGrow:
		if _, err := r.readByte(); err != nil {
			return false, err
		}
		if err := v.popExpect(I32); err != nil {
			return false, fmt.Errorf("memory.grow: %w", err)
		}
		v.push(I32)
	default:
		if isMemOp(op) {
			return false, v.stepMem(op, r)
		}
		if err := v.stepNumeric(op); err != nil {
			return false, err
		}
	}
	return false, nil
}

func isMemOp(op Op) bool {
	switch op {
	case OpI32Load, OpI64Load, OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
		OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U,
		OpI32Store, OpI64Store, OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
		return true
	default:
		return false
	}
}

func (v *funcValidator) stepMem(op Op, r *bodyReader) error {
	if _, err := r.readU32(); err != nil { // align
		return err
	}
	if _, err := r.readU32(); err != nil { // offset
		return err
	}
	switch op {
	case OpI32Store, OpI32Store8, OpI32Store16:
		if err := v.popExpect(I32); err != nil {
			return fmt.Errorf("%v: value: %w", op, err)
		}
	case OpI64Store, OpI64Store8, OpI64Store16, OpI64Store32:
		if err := v.popExpect(I64); err != nil {
			return fmt.Errorf("%v: value: %w", op, err)
		}
	}
	if err := v.popExpect(I32); err != nil {
		return fmt.Errorf("%v: address: %w", op, err)
	}
	switch op {
	case OpI32Load, OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U:
		v.push(I32)
	case OpI64Load, OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U:
		v.push(I64)
	}
	return nil
}

// stepNumeric handles every arithmetic/comparison/conversion opcode:
// none of them carries an immediate, and each one's stack effect is
// determined entirely by its class (i32 unary/binary/compare, i64
// unary/binary/compare, or a narrowing/widening conversion between
// the two).
func (v *funcValidator) stepNumeric(op Op) error {
	switch op {
	case OpI32Eqz:
		return v.unaryOp(I32, I32)
	case OpI32Eq, OpI32Ne, OpI32LtS, OpI32LtU, OpI32GtS, OpI32GtU, OpI32LeS, OpI32LeU, OpI32GeS, OpI32GeU:
		return v.binaryOp(I32, I32, I32)
	case OpI64Eqz:
		return v.unaryOp(I64, I32)
	case OpI64Eq, OpI64Ne, OpI64LtS, OpI64LtU, OpI64GtS, OpI64GtU, OpI64LeS, OpI64LeU, OpI64GeS, OpI64GeU:
		return v.binaryOp(I64, I64, I32)
	case OpI32Add, OpI32Sub, OpI32Mul, OpI32DivS, OpI32DivU, OpI32RemS, OpI32RemU,
		OpI32And, OpI32Or, OpI32Xor, OpI32Shl, OpI32ShrS, OpI32ShrU, OpI32Rotl, OpI32Rotr:
		return v.binaryOp(I32, I32, I32)
	case OpI64Add, OpI64Sub, OpI64Mul, OpI64DivS, OpI64DivU, OpI64RemS, OpI64RemU,
		OpI64And, OpI64Or, OpI64Xor, OpI64Shl, OpI64ShrS, OpI64ShrU, OpI64Rotl, OpI64Rotr:
		return v.binaryOp(I64, I64, I64)
	case OpI32WrapI64:
		return v.unaryOp(I64, I32)
	case OpI64ExtendI32S, OpI64ExtendI32U:
		return v.unaryOp(I32, I64)
	default:
		return fmt.Errorf("unrecognized opcode 0x%02x", byte(op))
	}
}

func (v *funcValidator) unaryOp(in, out ValType) error {
	if err := v.popExpect(in); err != nil {
		return err
	}
	v.push(out)
	return nil
}

func (v *funcValidator) binaryOp(lhs, rhs, out ValType) error {
	if err := v.popExpect(rhs); err != nil {
		return err
	}
	if err := v.popExpect(lhs); err != nil {
		return err
	}
	v.push(out)
	return nil
}

// bodyReader decodes the LEB128-encoded operands of an already-emitted
// instruction stream, the inverse of writer's encoders.
type bodyReader struct {
	b   []byte
	pos int
}

func (r *bodyReader) done() bool { return r.pos >= len(r.b) }

func (r *bodyReader) readByte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, fmt.Errorf("truncated instruction stream")
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *bodyReader) readU32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

// readI64 decodes a signed LEB128 value, used for both i32.const and
// i64.const immediates (i32.const's payload is sign-extended the same
// way, then narrowed by the caller) and for the depth-index style
// operands this backend only ever encodes as small non-negative values.
func (r *bodyReader) readI64() (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.readByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

func (r *bodyReader) readBlockType() (BlockType, error) {
	if r.pos >= len(r.b) {
		return BlockType{}, fmt.Errorf("truncated block type")
	}
	first := r.b[r.pos]
	if first == 0x40 {
		r.pos++
		return BlockType{Empty: true}, nil
	}
	switch ValType(first) {
	case I32, I64, F32, F64:
		r.pos++
		return BlockType{ValueType: ValType(first)}, nil
	}
	idx, err := r.readI64()
	if err != nil {
		return BlockType{}, err
	}
	return BlockType{HasIdx: true, TypeIdx: uint32(idx)}, nil
}

func (o Op) String() string {
	return fmt.Sprintf("opcode 0x%02x", byte(o))
}
