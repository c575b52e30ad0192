package mvbc

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// wireBuilder assembles bytecode-format bytes by hand, mirroring the
// table order reader.go expects. Loader tests build inputs this way
// instead of depending on a separate encoder, since nothing else in
// this program produces the wire format (it only ever arrives from an
// external Move compiler).
type wireBuilder struct{ buf bytes.Buffer }

func (b *wireBuilder) uleb(v uint64) {
	for {
		byt := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			byt |= 0x80
		}
		b.buf.WriteByte(byt)
		if v == 0 {
			return
		}
	}
}

func (b *wireBuilder) str(s string) {
	b.uleb(uint64(len(s)))
	b.buf.WriteString(s)
}

func (b *wireBuilder) header(version uint32) {
	b.buf.Write(Magic[:])
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], version)
	b.buf.Write(v[:])
}

// emptyModuleBytes builds a well-formed, minimal single-module program: one
// address, one identifier naming it, a self module handle, and every
// other table empty.
func emptyModuleBytes(t *testing.T) []byte {
	t.Helper()
	var b wireBuilder
	b.header(SupportedVersion)
	b.uleb(1) // addresses
	b.buf.Write(make([]byte, 16))
	b.uleb(1) // identifiers
	b.str("m")
	b.uleb(1) // module handles
	b.uleb(0) // addr idx
	b.uleb(0) // name idx
	b.uleb(0) // struct handles
	b.uleb(0) // function handles
	b.uleb(0) // signatures
	b.uleb(0) // constants
	b.uleb(0) // struct defs
	b.uleb(0) // enum defs
	b.uleb(0) // function defs
	return b.buf.Bytes()
}

func TestLoadEmptyModule(t *testing.T) {
	prog := NewProgram()
	m, err := Load(prog, emptyModuleBytes(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Funcs) != 0 || len(m.Structs) != 0 || len(m.Enums) != 0 {
		t.Fatalf("expected an empty module, got %+v", m)
	}
	if got, want := prog.Strings.MustLookup(m.Name), "m"; got != want {
		t.Fatalf("module name = %q, want %q", got, want)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	data := emptyModuleBytes(t)
	data[0] ^= 0xff
	if _, err := Load(NewProgram(), data); err == nil {
		t.Fatalf("expected an error for corrupted magic header")
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	var b wireBuilder
	b.header(SupportedVersion + 1)
	if _, err := Load(NewProgram(), b.buf.Bytes()); err == nil {
		t.Fatalf("expected an error for an unsupported version")
	}
}

func TestLoadResolvesCrossModuleFunctionHandle(t *testing.T) {
	prog := NewProgram()

	// Dependency module "dep" with one public function "answer() -> u64".
	var dep wireBuilder
	dep.header(SupportedVersion)
	dep.uleb(1)
	dep.buf.Write(make([]byte, 16))
	dep.uleb(2) // identifiers: "dep", "answer"
	dep.str("dep")
	dep.str("answer")
	dep.uleb(1) // module handles: self
	dep.uleb(0)
	dep.uleb(0)
	dep.uleb(0) // struct handles
	dep.uleb(1) // function handles: answer
	dep.uleb(0) // module handle idx
	dep.uleb(1) // name idx
	dep.uleb(0) // params sig idx (empty signature below)
	dep.uleb(1) // returns sig idx
	dep.uleb(0) // type param count
	dep.uleb(2) // signatures: [empty], [u64]
	dep.uleb(0) // sig 0: 0 tokens
	dep.uleb(1) // sig 1: 1 token
	dep.buf.WriteByte(byte(TagU64))
	dep.uleb(0) // constants
	dep.uleb(0) // struct defs
	dep.uleb(0) // enum defs
	dep.uleb(1) // function defs: answer
	dep.uleb(0) // handle idx
	dep.buf.WriteByte(byte(VisibilityPublic))
	dep.buf.WriteByte(0) // isEntry
	dep.uleb(0)           // type param count
	dep.buf.WriteByte(0)  // isNative
	dep.uleb(0)           // locals sig idx (reuse empty sig 0)
	dep.uleb(2)           // code: LdU64 7, Ret
	dep.buf.WriteByte(byte(OpLdU64))
	var imm [8]byte
	binary.LittleEndian.PutUint64(imm[:], 7)
	dep.buf.Write(imm[:])
	dep.buf.WriteByte(byte(OpRet))

	depMod, err := Load(prog, dep.buf.Bytes())
	if err != nil {
		t.Fatalf("loading dependency: %v", err)
	}
	if len(depMod.Funcs) != 1 {
		t.Fatalf("expected dependency to export one function")
	}

	// Root module defines its own "run" function that calls dep::answer().
	var root wireBuilder
	root.header(SupportedVersion)
	root.uleb(2) // addresses: root's own, dep's (both all-zero in this test)
	root.buf.Write(make([]byte, 16))
	root.buf.Write(make([]byte, 16))
	root.uleb(4) // identifiers: "root", "dep", "answer", "run"
	root.str("root")
	root.str("dep")
	root.str("answer")
	root.str("run")
	root.uleb(2) // module handles: self, dep
	root.uleb(0)
	root.uleb(0)
	root.uleb(1) // dep's address index
	root.uleb(1) // dep's name index ("dep")
	root.uleb(0) // struct handles
	root.uleb(2) // function handles: [0] dep::answer, [1] self::run
	root.uleb(1) // module handle idx -> dep
	root.uleb(2) // name idx -> "answer"
	root.uleb(0) // params sig idx (empty)
	root.uleb(1) // returns sig idx
	root.uleb(0) // type param count
	root.uleb(0) // module handle idx -> self
	root.uleb(3) // name idx -> "run"
	root.uleb(0) // params sig idx (empty)
	root.uleb(1) // returns sig idx
	root.uleb(0) // type param count
	root.uleb(2) // signatures: [empty], [u64]
	root.uleb(0)
	root.uleb(1)
	root.buf.WriteByte(byte(TagU64))
	root.uleb(0) // constants
	root.uleb(0) // struct defs
	root.uleb(0) // enum defs
	root.uleb(1) // function defs: run
	root.uleb(1) // handle idx -> self::run
	root.buf.WriteByte(byte(VisibilityPrivate))
	root.buf.WriteByte(0) // isEntry
	root.uleb(0)          // type param count
	root.buf.WriteByte(0) // isNative
	root.uleb(0)          // locals sig idx (empty)
	root.uleb(2)          // code: Call dep::answer, Ret
	root.buf.WriteByte(byte(OpCall))
	root.uleb(0) // function handle idx -> dep::answer
	root.buf.WriteByte(byte(OpRet))

	rootMod, err := Load(prog, root.buf.Bytes())
	if err != nil {
		t.Fatalf("loading root: %v", err)
	}
	if len(rootMod.Funcs) != 1 {
		t.Fatalf("expected root to define one function")
	}
	f := prog.FunctionByID(rootMod.Funcs[0])
	if len(f.Code) != 2 || f.Code[0].Op != OpCall {
		t.Fatalf("expected root's body to contain a resolved OpCall, got %+v", f.Code)
	}
	if f.Code[0].FuncTarget != depMod.Funcs[0] {
		t.Fatalf("cross-module call did not resolve to the dependency's function")
	}
}
