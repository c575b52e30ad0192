package types

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/rather-labs/move-stylus-poc/internal/strtab"
)

// typeKey is the structural hash key used to deduplicate Type values
// that carry no side-table payload (primitives, vectors, refs,
// type params). Struct/enum/tuple instances are deduplicated by their
// side-table content instead, since Payload alone is already unique
// per registration call.
type typeKey Type

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins

	structs []StructInfo
	enums   []EnumInfo
	tuples  [][]TypeID
}

// NewInterner constructs an interner seeded with every Move primitive.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey]TypeID, 64),
	}
	in.structs = append(in.structs, StructInfo{})
	in.enums = append(in.enums, EnumInfo{})
	in.tuples = append(in.tuples, nil)

	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.U8 = in.Intern(Type{Kind: KindU8})
	in.builtins.U16 = in.Intern(Type{Kind: KindU16})
	in.builtins.U32 = in.Intern(Type{Kind: KindU32})
	in.builtins.U64 = in.Intern(Type{Kind: KindU64})
	in.builtins.U128 = in.Intern(Type{Kind: KindU128})
	in.builtins.U256 = in.Intern(Type{Kind: KindU256})
	in.builtins.Address = in.Intern(Type{Kind: KindAddress})
	in.builtins.Signer = in.Intern(Type{Kind: KindSigner})
	in.builtins.Unit = in.InternTuple(nil)
	return in
}

// Builtins returns the TypeIDs of pre-interned primitives.
func (in *Interner) Builtins() Builtins { return in.builtins }

// Intern ensures the provided descriptor has a stable TypeID. Only
// valid for kinds without a side-table payload identity
// (primitives, Vector, Ref, TypeParam); use RegisterStruct/
// RegisterEnum/InternTuple for the others.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	value, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("types: interner overflow: %w", err))
	}
	id := TypeID(value)
	in.types = append(in.types, t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for id.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics if id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Errorf("types: invalid TypeID %d", id))
	}
	return t
}

// Vector interns Vector(elem).
func (in *Interner) Vector(elem TypeID) TypeID {
	return in.internRaw(Type{Kind: KindVector, Elem: elem})
}

// Ref interns Ref(elem, mutable).
func (in *Interner) Ref(elem TypeID, mutable bool) TypeID {
	return in.internRaw(Type{Kind: KindRef, Elem: elem, Mutable: mutable})
}

// TypeParam interns the n-th generic parameter placeholder.
func (in *Interner) TypeParam(n uint32) TypeID {
	return in.internRaw(Type{Kind: KindTypeParam, ParamIndex: n})
}

// InternTuple interns an ordered tuple of element types (function
// return shape; the zero-length tuple is Move's "unit").
func (in *Interner) InternTuple(elems []TypeID) TypeID {
	for id := TypeID(1); int(id) < len(in.types); id++ {
		t := in.types[id]
		if t.Kind != KindTuple {
			continue
		}
		if tupleEqual(in.tuples[t.Payload], elems) {
			return id
		}
	}
	slot, err := safecast.Conv[uint32](len(in.tuples))
	if err != nil {
		panic(fmt.Errorf("types: tuple table overflow: %w", err))
	}
	in.tuples = append(in.tuples, cloneTypeIDs(elems))
	return in.internRaw(Type{Kind: KindTuple, Payload: slot})
}

// TupleElems returns a copy of the tuple's element types.
func (in *Interner) TupleElems(id TypeID) []TypeID {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindTuple || int(t.Payload) >= len(in.tuples) {
		return nil
	}
	return cloneTypeIDs(in.tuples[t.Payload])
}

func tupleEqual(a, b []TypeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneTypeIDs(a []TypeID) []TypeID {
	if len(a) == 0 {
		return nil
	}
	out := make([]TypeID, len(a))
	copy(out, a)
	return out
}

// Names is threaded in from the caller's strtab.Interner so struct/enum
// metadata can carry human-readable names without this package owning
// string storage.
type Names = strtab.Interner
