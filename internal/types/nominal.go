package types

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/rather-labs/move-stylus-poc/internal/strtab"
)

// Ability is one of Move's ability flags relevant to the object model
// and to codegen's copy/move discipline.
type Ability uint8

const (
	AbilityCopy Ability = 1 << iota
	AbilityDrop
	AbilityStore
	AbilityKey
)

func (a Ability) Has(x Ability) bool { return a&x != 0 }

// StructField describes one field of a nominal struct, in declaration
// order: field order in memory and ABI equals declaration order.
type StructField struct {
	Name strtab.StringID
	Type TypeID
}

// StructInfo stores metadata for a struct type, keyed by its Payload
// slot in the interner's struct table.
type StructInfo struct {
	Name      strtab.StringID
	Module    strtab.StringID
	Abilities Ability
	Fields    []StructField
	TypeArgs  []TypeID // concrete args for a generic instantiation, else nil
}

// RegisterStruct allocates a nominal struct type slot (pre-monomorphization
// generic template or already-concrete struct) and returns its TypeID.
func (in *Interner) RegisterStruct(info StructInfo) TypeID {
	slot, err := safecast.Conv[uint32](len(in.structs))
	if err != nil {
		panic(fmt.Errorf("types: struct table overflow: %w", err))
	}
	in.structs = append(in.structs, cloneStructInfo(info))
	return in.internRaw(Type{Kind: KindStruct, Payload: slot})
}

// SetStructFields fills in a struct's field list after its slot was
// pre-registered, allowing mutually-referencing struct handles within
// one module to resolve before any field list is finalized.
func (in *Interner) SetStructFields(id TypeID, fields []StructField) {
	info, ok := in.StructInfo(id)
	if !ok {
		return
	}
	info.Fields = append([]StructField(nil), fields...)
}

// StructInfo returns metadata for the provided struct TypeID.
func (in *Interner) StructInfo(id TypeID) (*StructInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindStruct || int(t.Payload) >= len(in.structs) {
		return nil, false
	}
	return &in.structs[t.Payload], true
}

// FindStructInstance returns a struct TypeID whose name and type
// arguments already match, used by monomorphization to avoid
// re-registering the same instantiation twice.
func (in *Interner) FindStructInstance(name strtab.StringID, args []TypeID) (TypeID, bool) {
	for id := TypeID(1); int(id) < len(in.types); id++ {
		if in.types[id].Kind != KindStruct {
			continue
		}
		info := &in.structs[in.types[id].Payload]
		if info.Name != name || !tupleEqual(info.TypeArgs, args) {
			continue
		}
		return id, true
	}
	return NoTypeID, false
}

func cloneStructInfo(info StructInfo) StructInfo {
	out := info
	out.Fields = append([]StructField(nil), info.Fields...)
	out.TypeArgs = cloneTypeIDs(info.TypeArgs)
	return out
}

// EnumVariant is one tagged variant of an enum, holding an ordered
// field tuple; variants are numbered from 0 in declaration order.
type EnumVariant struct {
	Name   strtab.StringID
	Fields []StructField
}

// EnumInfo stores metadata for an enum type.
type EnumInfo struct {
	Name     strtab.StringID
	Module   strtab.StringID
	Variants []EnumVariant
	TypeArgs []TypeID
}

// RegisterEnum allocates a nominal enum type slot and returns its TypeID.
func (in *Interner) RegisterEnum(info EnumInfo) TypeID {
	slot, err := safecast.Conv[uint32](len(in.enums))
	if err != nil {
		panic(fmt.Errorf("types: enum table overflow: %w", err))
	}
	in.enums = append(in.enums, cloneEnumInfo(info))
	return in.internRaw(Type{Kind: KindEnum, Payload: slot})
}

// SetEnumVariants fills in an enum's variant list after its slot was
// pre-registered (mirrors SetStructFields).
func (in *Interner) SetEnumVariants(id TypeID, variants []EnumVariant) {
	info, ok := in.EnumInfo(id)
	if !ok {
		return
	}
	clone := make([]EnumVariant, len(variants))
	for i, v := range variants {
		clone[i] = EnumVariant{Name: v.Name, Fields: append([]StructField(nil), v.Fields...)}
	}
	info.Variants = clone
}

// EnumInfo returns metadata for the provided enum TypeID.
func (in *Interner) EnumInfo(id TypeID) (*EnumInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindEnum || int(t.Payload) >= len(in.enums) {
		return nil, false
	}
	return &in.enums[t.Payload], true
}

func (in *Interner) FindEnumInstance(name strtab.StringID, args []TypeID) (TypeID, bool) {
	for id := TypeID(1); int(id) < len(in.types); id++ {
		if in.types[id].Kind != KindEnum {
			continue
		}
		info := &in.enums[in.types[id].Payload]
		if info.Name != name || !tupleEqual(info.TypeArgs, args) {
			continue
		}
		return id, true
	}
	return NoTypeID, false
}

func cloneEnumInfo(info EnumInfo) EnumInfo {
	out := info
	out.Variants = make([]EnumVariant, len(info.Variants))
	for i, v := range info.Variants {
		out.Variants[i] = EnumVariant{Name: v.Name, Fields: append([]StructField(nil), v.Fields...)}
	}
	out.TypeArgs = cloneTypeIDs(info.TypeArgs)
	return out
}
