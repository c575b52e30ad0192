// Package types implements the Move type universe: the
// tagged variant of primitive widths, references, vectors, structs,
// enums, generics, and tuples, behind a structural interner.
package types

import "fmt"

// TypeID uniquely identifies a type inside the Interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates every supported shape of the Move type universe.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindU256
	KindAddress
	KindSigner
	KindVector
	KindStruct
	KindEnum
	KindRef
	KindTypeParam
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindU128:
		return "u128"
	case KindU256:
		return "u256"
	case KindAddress:
		return "address"
	case KindSigner:
		return "signer"
	case KindVector:
		return "vector"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindRef:
		return "ref"
	case KindTypeParam:
		return "type_param"
	case KindTuple:
		return "tuple"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any supported Move type.
//
// Elem is the vector/reference element type. Payload indexes into the
// interner's side-tables (StructInfo/EnumInfo/tuple element lists)
// depending on Kind. Mutable applies only to KindRef. ParamIndex
// applies only to KindTypeParam.
type Type struct {
	Kind      Kind
	Elem      TypeID
	Payload   uint32
	Mutable   bool
	ParamIndex uint32
}

// IsPrimitive reports whether t is a scalar Move primitive.
func (t Type) IsPrimitive() bool {
	switch t.Kind {
	case KindBool, KindU8, KindU16, KindU32, KindU64, KindU128, KindU256, KindAddress, KindSigner:
		return true
	default:
		return false
	}
}

// IsInteger reports whether t is one of Move's unsigned integer widths.
func (t Type) IsInteger() bool {
	switch t.Kind {
	case KindU8, KindU16, KindU32, KindU64, KindU128, KindU256:
		return true
	default:
		return false
	}
}

// IntegerBits returns the bit width of an integer kind, or 0.
func (k Kind) IntegerBits() int {
	switch k {
	case KindU8:
		return 8
	case KindU16:
		return 16
	case KindU32:
		return 32
	case KindU64:
		return 64
	case KindU128:
		return 128
	case KindU256:
		return 256
	default:
		return 0
	}
}

// Builtins holds TypeIDs of every primitive, pre-interned by NewInterner.
type Builtins struct {
	Invalid TypeID
	Bool    TypeID
	U8      TypeID
	U16     TypeID
	U32     TypeID
	U64     TypeID
	U128    TypeID
	U256    TypeID
	Address TypeID
	Signer  TypeID
	Unit    TypeID // empty tuple, Move function return-shape sentinel
}
