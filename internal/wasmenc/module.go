package wasmenc

// Section ids, in the fixed order the binary format requires them to
// appear (the Code section, for instance, must always follow Function
// and Memory even though Function bodies are logically paired with
// Function section entries).
const (
	sectionCustom = iota
	sectionType
	sectionImport
	sectionFunction
	sectionTable
	sectionMemory
	sectionGlobal
	sectionExport
	sectionStart
	sectionElement
	sectionCode
	sectionData
)

var magic = [4]byte{0x00, 0x61, 0x73, 0x6d}
var version = [4]byte{0x01, 0x00, 0x00, 0x00}

// Module is the full contents of a WASM binary module, laid out the
// way internal/driver assembles it: one FuncType per distinct
// signature, one Import per required Stylus hostio, one Function
// entry (a TypeIdx) and one Code entry per emitted function, in
// matching order.
type Module struct {
	Types     []FuncType
	Imports   []Import
	Functions []uint32 // TypeIdx per locally-defined function, Function section
	Memories  []Limits
	Globals   []Global
	Exports   []Export
	Start     uint32
	HasStart  bool
	Code      []Code
	Data      []Data
}

// Encode serializes m into a complete WASM binary module.
func (m *Module) Encode() []byte {
	w := &writer{}
	w.bytes(magic[:])
	w.bytes(version[:])

	if len(m.Types) > 0 {
		withSizePrefix(w, sectionType, func(w *writer) {
			vec(w, m.Types, func(w *writer, ft FuncType) { ft.encode(w) })
		})
	}
	if len(m.Imports) > 0 {
		withSizePrefix(w, sectionImport, func(w *writer) {
			vec(w, m.Imports, func(w *writer, im Import) { im.encode(w) })
		})
	}
	if len(m.Functions) > 0 {
		withSizePrefix(w, sectionFunction, func(w *writer) {
			vec(w, m.Functions, func(w *writer, idx uint32) { w.uleb128(uint64(idx)) })
		})
	}
	if len(m.Memories) > 0 {
		withSizePrefix(w, sectionMemory, func(w *writer) {
			vec(w, m.Memories, func(w *writer, l Limits) { l.encode(w) })
		})
	}
	if len(m.Globals) > 0 {
		withSizePrefix(w, sectionGlobal, func(w *writer) {
			vec(w, m.Globals, func(w *writer, g Global) { g.encode(w) })
		})
	}
	if len(m.Exports) > 0 {
		withSizePrefix(w, sectionExport, func(w *writer) {
			vec(w, m.Exports, func(w *writer, e Export) { e.encode(w) })
		})
	}
	if m.HasStart {
		withSizePrefix(w, sectionStart, func(w *writer) {
			w.uleb128(uint64(m.Start))
		})
	}
	if len(m.Code) > 0 {
		withSizePrefix(w, sectionCode, func(w *writer) {
			vec(w, m.Code, func(w *writer, c Code) { c.encode(w) })
		})
	}
	if len(m.Data) > 0 {
		withSizePrefix(w, sectionData, func(w *writer) {
			vec(w, m.Data, func(w *writer, d Data) { d.encode(w) })
		})
	}
	return w.Bytes()
}
