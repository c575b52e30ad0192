package mvbc

import (
	"testing"

	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// sigTok is a small tree describing one signature token for tests that
// need to hand-assemble an init function's parameter signature; it
// covers just the tags these tests exercise (TagU64, TagStruct,
// TagMutableReference).
type sigTok struct {
	tag  TypeTag
	idx  int // TagStruct: struct handle index
	elem *sigTok
}

func writeSigTok(b *wireBuilder, t sigTok) {
	b.buf.WriteByte(byte(t.tag))
	switch t.tag {
	case TagStruct:
		b.uleb(uint64(t.idx))
	case TagMutableReference, TagReference:
		writeSigTok(b, *t.elem)
	}
}

func mutRefTo(structIdx int) sigTok {
	return sigTok{tag: TagMutableReference, elem: &sigTok{tag: TagStruct, idx: structIdx}}
}

// initTestStruct describes one struct handle these tests declare
// ahead of init's own signature.
type initTestStruct struct {
	name      string
	abilities byte
}

// initModuleBytes assembles a minimal single-module program declaring
// structs, then a private "init" function whose parameter signature is
// paramToks, matching the table order reader.go expects. Every other
// table (constants, struct defs, enum defs) stays empty: init's shape
// is all validateInit inspects, and marking init native lets these
// tests skip writing a function body.
func initModuleBytes(moduleName string, structs []initTestStruct, paramToks []sigTok) []byte {
	var b wireBuilder
	b.header(SupportedVersion)

	b.uleb(1) // addresses
	b.buf.Write(make([]byte, 16))

	ids := append([]string{moduleName}, "init")
	for _, s := range structs {
		ids = append(ids, s.name)
	}
	b.uleb(uint64(len(ids)))
	for _, id := range ids {
		b.str(id)
	}
	// identifiers: [0]=module name, [1]="init", [2..]=struct names in order

	b.uleb(1) // module handles: self
	b.uleb(0) // addr idx
	b.uleb(0) // name idx -> module name

	b.uleb(uint64(len(structs))) // struct handles
	for _, s := range structs {
		b.uleb(0) // module handle idx -> self
		b.uleb(uint64(indexOfIdentifier(ids, s.name)))
		b.buf.WriteByte(s.abilities)
		b.uleb(0) // type param count
	}

	b.uleb(1) // function handles: init
	b.uleb(0) // module handle idx -> self
	b.uleb(uint64(indexOfIdentifier(ids, "init")))
	b.uleb(1) // params sig idx
	b.uleb(0) // returns sig idx -> empty
	b.uleb(0) // type param count

	b.uleb(2) // signatures: [0]=empty (returns), [1]=init's params
	b.uleb(0) // sig 0: 0 tokens
	b.uleb(uint64(len(paramToks)))
	for _, t := range paramToks {
		writeSigTok(&b, t)
	}

	b.uleb(0) // constants
	b.uleb(0) // struct defs
	b.uleb(0) // enum defs

	b.uleb(1) // function defs: init
	b.uleb(0) // handle idx -> self::init
	b.buf.WriteByte(byte(VisibilityPrivate))
	b.buf.WriteByte(0) // isEntry
	b.uleb(0)          // type param count
	b.buf.WriteByte(1) // isNative -> no code to write
	b.uleb(0)          // locals sig idx (unused, native has no code)

	return b.buf.Bytes()
}

func indexOfIdentifier(ids []string, name string) int {
	for i, s := range ids {
		if s == name {
			return i
		}
	}
	panic("identifier not found: " + name)
}

func TestValidateInitPlainAccepted(t *testing.T) {
	structs := []initTestStruct{{name: "TxContext", abilities: 0}}
	data := initModuleBytes("counter", structs, []sigTok{mutRefTo(0)})
	if _, err := Load(NewProgram(), data); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestValidateInitWithMatchingOTWAccepted(t *testing.T) {
	structs := []initTestStruct{
		{name: "TxContext", abilities: 0},
		{name: "COUNTER", abilities: byte(types.AbilityDrop)},
	}
	otw := sigTok{tag: TagStruct, idx: 1}
	data := initModuleBytes("counter", structs, []sigTok{otw, mutRefTo(0)})
	if _, err := Load(NewProgram(), data); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestValidateInitRejectsMismatchedOTWName(t *testing.T) {
	structs := []initTestStruct{
		{name: "TxContext", abilities: 0},
		{name: "WRONGNAME", abilities: byte(types.AbilityDrop)},
	}
	otw := sigTok{tag: TagStruct, idx: 1}
	data := initModuleBytes("counter", structs, []sigTok{otw, mutRefTo(0)})
	_, err := Load(NewProgram(), data)
	assertBadInit(t, err)
}

func TestValidateInitRejectsNonOTWFirstArg(t *testing.T) {
	structs := []initTestStruct{{name: "TxContext", abilities: 0}}
	// init(u64, &mut TxContext): the first argument isn't a struct at all.
	data := initModuleBytes("counter", structs, []sigTok{{tag: TagU64}, mutRefTo(0)})
	_, err := Load(NewProgram(), data)
	assertBadInit(t, err)
}

func TestValidateInitRejectsWrongArity(t *testing.T) {
	structs := []initTestStruct{{name: "TxContext", abilities: 0}}
	// init(&mut TxContext, &mut TxContext, &mut TxContext): neither 1 nor 2 params.
	data := initModuleBytes("counter", structs, []sigTok{mutRefTo(0), mutRefTo(0), mutRefTo(0)})
	_, err := Load(NewProgram(), data)
	assertBadInit(t, err)
}

func assertBadInit(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a BadInit error, got none")
	}
	le, ok := err.(*LoadError)
	if !ok {
		t.Fatalf("expected a *LoadError, got %T: %v", err, err)
	}
	if le.Kind != ErrBadInit {
		t.Fatalf("expected ErrBadInit, got %v: %v", le.Kind, le)
	}
}
