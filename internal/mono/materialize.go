package mono

import "github.com/rather-labs/move-stylus-poc/internal/types"

// materializer fills in the field/variant lists of struct and enum
// instances produced by substType, so every concrete instantiation
// carries its own fully-substituted field types instead of the
// template's TypeParam placeholders. Guarded by seen sets since a
// generic struct's fields can reference other generic structs,
// including (bounded) self-reference through a Ref indirection.
type materializer struct {
	types        *types.Interner
	seenStructs  map[types.TypeID]bool
	seenEnums    map[types.TypeID]bool
}

func newMaterializer(in *types.Interner) *materializer {
	return &materializer{
		types:       in,
		seenStructs: make(map[types.TypeID]bool),
		seenEnums:   make(map[types.TypeID]bool),
	}
}

func (mz *materializer) materialize(id types.TypeID) {
	t, ok := mz.types.Lookup(id)
	if !ok {
		return
	}
	switch t.Kind {
	case types.KindStruct:
		mz.materializeStruct(id)
	case types.KindEnum:
		mz.materializeEnum(id)
	case types.KindVector, types.KindRef:
		mz.materialize(t.Elem)
	case types.KindTuple:
		for _, e := range mz.types.TupleElems(id) {
			mz.materialize(e)
		}
	}
}

func (mz *materializer) materializeStruct(id types.TypeID) {
	if mz.seenStructs[id] {
		return
	}
	mz.seenStructs[id] = true
	info, ok := mz.types.StructInfo(id)
	if !ok || len(info.TypeArgs) == 0 {
		return
	}
	fields := make([]types.StructField, len(info.Fields))
	for i, f := range info.Fields {
		fields[i] = types.StructField{Name: f.Name, Type: substType(mz.types, f.Type, info.TypeArgs)}
	}
	mz.types.SetStructFields(id, fields)
	for _, f := range fields {
		mz.materialize(f.Type)
	}
}

func (mz *materializer) materializeEnum(id types.TypeID) {
	if mz.seenEnums[id] {
		return
	}
	mz.seenEnums[id] = true
	info, ok := mz.types.EnumInfo(id)
	if !ok || len(info.TypeArgs) == 0 {
		return
	}
	variants := make([]types.EnumVariant, len(info.Variants))
	for i, v := range info.Variants {
		fields := make([]types.StructField, len(v.Fields))
		for j, f := range v.Fields {
			fields[j] = types.StructField{Name: f.Name, Type: substType(mz.types, f.Type, info.TypeArgs)}
		}
		variants[i] = types.EnumVariant{Name: v.Name, Fields: fields}
	}
	mz.types.SetEnumVariants(id, variants)
	for _, v := range variants {
		for _, f := range v.Fields {
			mz.materialize(f.Type)
		}
	}
}
