// Package wasmenc assembles a WebAssembly binary module from the
// pieces codegen produces: function types, memory/global declarations,
// exports, and per-function code bodies. There is no ecosystem library
// in the retrieval pack that emits raw WASM binaries as a standalone
// concern (wazero, also in this module's dependency graph, is an
// embedding *runtime*, not an encoder) so this layer is hand-written,
// mirroring the encode/decode symmetry of internal/mvbc's own cursor.
package wasmenc

import "encoding/binary"

// writer accumulates a WASM binary module or one of its sections.
// It is the encode-side mirror of internal/mvbc's cursor.
type writer struct {
	buf []byte
}

func (w *writer) Bytes() []byte { return w.buf }
func (w *writer) Len() int      { return len(w.buf) }

func (w *writer) byte(b byte) { w.buf = append(w.buf, b) }

func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) u32le(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.bytes(b[:])
}

// uleb128 appends an unsigned LEB128 varint, the framing used for
// every count and index in a WASM binary module (matches
// mvbc.cursor.uleb128's decode shape in reverse).
func (w *writer) uleb128(v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.byte(b)
		if v == 0 {
			return
		}
	}
}

func (w *writer) uleb128Int(v int) { w.uleb128(uint64(v)) }

// sleb128 appends a signed LEB128 varint, used by i32.const/i64.const
// immediates and by block types.
func (w *writer) sleb128(v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			w.byte(b)
			return
		}
		b |= 0x80
		w.byte(b)
	}
}

// name appends a length-prefixed UTF-8 string (WASM's `name` production).
func (w *writer) name(s string) {
	w.uleb128Int(len(s))
	w.bytes([]byte(s))
}

// vec appends count then invokes each of the encode funcs, matching
// the `vec(B)` grammar production used throughout the binary format.
func vec[T any](w *writer, items []T, encode func(*writer, T)) {
	w.uleb128Int(len(items))
	for _, it := range items {
		encode(w, it)
	}
}

// withSizePrefix runs body against a fresh writer, then appends the
// section/sub-blob id (if id >= 0), the encoded byte length, and the
// bytes themselves onto w — every WASM section and every function
// code entry is framed this way.
func withSizePrefix(w *writer, id int, body func(*writer)) {
	inner := &writer{}
	body(inner)
	if id >= 0 {
		w.byte(byte(id))
	}
	w.uleb128Int(inner.Len())
	w.bytes(inner.Bytes())
}
