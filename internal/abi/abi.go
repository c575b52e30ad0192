// Package abi implements the Solidity ABI encode/decode rules Move
// values are marshalled through at the Stylus entrypoint boundary,
// plus Keccak-256 selector and event-topic derivation, both via
// go-ethereum/crypto. A Move u128/u256 travels through this boundary
// as an already-byte-order-corrected buffer (internal/runtime/bignum.go
// does the wide-integer arithmetic, in linear memory), so this package
// only ever pads or byte-reverses bytes; it never needs a host-side
// big-integer type of its own.
package abi

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rather-labs/move-stylus-poc/internal/layout"
	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// WordSize is the Solidity ABI's fixed word width.
const WordSize = 32

// Selector derives the 4-byte Stylus/Solidity function selector for
// name(argType1,argType2,...): Keccak-256 of the canonical signature
// string, first four bytes.
func Selector(name string, argSignatures []string) [4]byte {
	sig := name + "(" + joinSignatures(argSignatures) + ")"
	hash := crypto.Keccak256([]byte(sig))
	var out [4]byte
	copy(out[:], hash[:4])
	return out
}

func joinSignatures(sigs []string) string {
	out := ""
	for i, s := range sigs {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// CanonicalTypeName returns the Solidity-style canonical type name a
// Move type maps onto for selector/signature purposes.
// Move has no direct analogue for Solidity's fixed-size arrays or
// tuples-as-structs ABI names, so structs are named by their
// tuple-of-field-types expansion, matching how Solidity itself encodes
// struct parameters when no named ABI type exists on the wire.
func CanonicalTypeName(in *types.Interner, t types.TypeID) (string, error) {
	ty, ok := in.Lookup(t)
	if !ok {
		return "", fmt.Errorf("abi: unknown type#%d", t)
	}
	switch ty.Kind {
	case types.KindBool:
		return "bool", nil
	case types.KindU8:
		return "uint8", nil
	case types.KindU16:
		return "uint16", nil
	case types.KindU32:
		return "uint32", nil
	case types.KindU64:
		return "uint64", nil
	case types.KindU128:
		return "uint128", nil
	case types.KindU256:
		return "uint256", nil
	case types.KindAddress:
		return "address", nil
	case types.KindSigner:
		return "address", nil
	case types.KindVector:
		elemName, err := CanonicalTypeName(in, ty.Elem)
		if err != nil {
			return "", err
		}
		if ty.Elem == in.Builtins().U8 {
			return "bytes", nil
		}
		return elemName + "[]", nil
	case types.KindStruct:
		info, ok := in.StructInfo(t)
		if !ok {
			return "", fmt.Errorf("abi: dangling struct type#%d", t)
		}
		parts := make([]string, len(info.Fields))
		for i, f := range info.Fields {
			name, err := CanonicalTypeName(in, f.Type)
			if err != nil {
				return "", err
			}
			parts[i] = name
		}
		return "(" + joinSignatures(parts) + ")", nil
	case types.KindTuple:
		elems := in.TupleElems(t)
		parts := make([]string, len(elems))
		for i, e := range elems {
			name, err := CanonicalTypeName(in, e)
			if err != nil {
				return "", err
			}
			parts[i] = name
		}
		return "(" + joinSignatures(parts) + ")", nil
	default:
		return "", fmt.Errorf("abi: %s has no ABI type name", ty.Kind)
	}
}

// EventTopic derives the anonymous event's signature-hash topic (the
// same rule Solidity uses for topic 0 of a non-anonymous log): the
// full Keccak-256 digest of `EventName(fieldType1,fieldType2,...)`,
// not truncated to four bytes.
func EventTopic(in *types.Interner, name string, structType types.TypeID) ([32]byte, error) {
	info, ok := in.StructInfo(structType)
	if !ok {
		return [32]byte{}, fmt.Errorf("abi: event type#%d is not a struct", structType)
	}
	sigs := make([]string, len(info.Fields))
	for i, f := range info.Fields {
		s, err := CanonicalTypeName(in, f.Type)
		if err != nil {
			return [32]byte{}, err
		}
		sigs[i] = s
	}
	hash := crypto.Keccak256([]byte(name + "(" + joinSignatures(sigs) + ")"))
	var out [32]byte
	copy(out[:], hash)
	return out, nil
}

// IsDynamic reports whether t's Solidity ABI encoding needs the
// head/tail split: any vector, and any struct that itself contains a
// dynamic field, recursively.
func IsDynamic(le *layout.Engine, t types.TypeID) (bool, error) {
	l, err := le.LayoutOf(t)
	if err != nil {
		return false, err
	}
	return l.AbiClass == layout.AbiDynamic, nil
}

// PadWord returns b left-padded with zero bytes to a full 32-byte ABI
// word, matching Solidity's big-endian, left-padded integer word
// convention. Move's own in-memory integers are little-endian; this
// padding function is only ever used on already-byte-order-corrected
// input.
func PadWord(b []byte) [WordSize]byte {
	var out [WordSize]byte
	if len(b) >= WordSize {
		copy(out[:], b[len(b)-WordSize:])
		return out
	}
	copy(out[WordSize-len(b):], b)
	return out
}
