package wasmenc

// ValType is a WASM value type byte (only the numeric types this
// backend ever needs to name: Stylus contracts have no reference or
// vector types on the wire).
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

// BlockType selects a structured control instruction's signature.
// Empty: true means "no result" (0x40); ValueType carries exactly one
// result type; TypeIdx indexes the Type section for multi-value
// signatures (this backend never emits those, but the shape is kept
// for completeness against the spec grammar).
type BlockType struct {
	Empty     bool
	ValueType ValType
	TypeIdx   uint32
	HasIdx    bool
}

func (bt BlockType) encode(w *writer) {
	switch {
	case bt.HasIdx:
		w.sleb128(int64(bt.TypeIdx))
	case bt.Empty:
		w.byte(0x40)
	default:
		w.byte(byte(bt.ValueType))
	}
}

// FuncType is one entry of the Type section.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (ft FuncType) encode(w *writer) {
	w.byte(0x60)
	vec(w, ft.Params, func(w *writer, v ValType) { w.byte(byte(v)) })
	vec(w, ft.Results, func(w *writer, v ValType) { w.byte(byte(v)) })
}

// Limits describes a memory or table's size range.
type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
}

func (l Limits) encode(w *writer) {
	if l.HasMax {
		w.byte(0x01)
		w.uleb128(uint64(l.Min))
		w.uleb128(uint64(l.Max))
		return
	}
	w.byte(0x00)
	w.uleb128(uint64(l.Min))
}

// ImportKind tags which description an Import carries.
type ImportKind byte

const (
	ImportFunc ImportKind = iota
	ImportTable
	ImportMemory
	ImportGlobal
)

// Import is one entry of the Import section: a host function this
// module expects the embedder (Stylus's hostio ABI) to supply.
type Import struct {
	Module, Field string
	Kind          ImportKind
	TypeIdx       uint32 // ImportFunc
	Mem           Limits // ImportMemory
	GlobalType    ValType
	GlobalMutable bool
}

func (im Import) encode(w *writer) {
	w.name(im.Module)
	w.name(im.Field)
	w.byte(byte(im.Kind))
	switch im.Kind {
	case ImportFunc:
		w.uleb128(uint64(im.TypeIdx))
	case ImportMemory:
		im.Mem.encode(w)
	case ImportGlobal:
		w.byte(byte(im.GlobalType))
		if im.GlobalMutable {
			w.byte(0x01)
		} else {
			w.byte(0x00)
		}
	default:
		panic("wasmenc: table imports are not used by this backend")
	}
}

// Global is one entry of the Global section: a mutable or constant
// value initialized by a single constant-expression instruction
// stream (Init must already end in an End opcode).
type Global struct {
	Type    ValType
	Mutable bool
	Init    []byte
}

func (g Global) encode(w *writer) {
	w.byte(byte(g.Type))
	if g.Mutable {
		w.byte(0x01)
	} else {
		w.byte(0x00)
	}
	w.bytes(g.Init)
}

// ExportKind tags which index space an Export names.
type ExportKind byte

const (
	ExportFunc ExportKind = iota
	ExportTable
	ExportMemory
	ExportGlobal
)

// Export is one entry of the Export section — a name the Stylus
// entrypoint router or the ABI's Solidity-visible surface resolves by.
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

func (e Export) encode(w *writer) {
	w.name(e.Name)
	w.byte(byte(e.Kind))
	w.uleb128(uint64(e.Index))
}

// Data is one entry of the Data section: bytes to place in linear
// memory at a constant-expression offset when the module instantiates
// (used for constant pool literals and string data).
type Data struct {
	MemIdx uint32
	Offset []byte // constant-expression instruction stream, End-terminated
	Init   []byte
}

func (d Data) encode(w *writer) {
	w.uleb128(uint64(d.MemIdx))
	w.bytes(d.Offset)
	w.uleb128Int(len(d.Init))
	w.bytes(d.Init)
}

// Local is one run-length entry of a function body's local declarations.
type Local struct {
	Count uint32
	Type  ValType
}

// Code is one entry of the Code section: a function's locals plus its
// already-encoded instruction stream (produced by Builder.Finish).
type Code struct {
	Locals []Local
	Body   []byte
}

func (c Code) encode(w *writer) {
	withSizePrefix(w, -1, func(inner *writer) {
		vec(inner, c.Locals, func(w *writer, l Local) {
			w.uleb128(uint64(l.Count))
			w.byte(byte(l.Type))
		})
		inner.bytes(c.Body)
	})
}
