// Package objectmodel implements the Stylus-framework object rules:
// recognizing the small set of
// natives Move code calls by fully-qualified name (never by ordinary
// dispatch, since they have no bytecode body to translate) and
// enforcing the UID/shared/frozen/owned storage discipline those
// natives establish. Grounded on original_source's
// `native_functions/*.rs`, which recognizes exactly this same name
// set to special-case lowering in the original Rust compiler; this
// package reimplements the recognition table and the lowering targets
// against internal/runtime's Go-authored WASM bodies instead of the
// original's native Rust intrinsics.
package objectmodel

import "github.com/rather-labs/move-stylus-poc/internal/strtab"

// Native identifies one recognized fully-qualified native function.
type Native uint8

const (
	NotNative Native = iota
	ObjectNew
	ObjectDelete
	TransferTransfer
	TransferShareObject
	TransferFreezeObject
	TransferPublicTransfer
	TxContextSender
	TxContextEpoch
	EventEmit
)

// RuntimeCall names the internal/runtime function a Native lowers to.
// Object lifecycle transitions (share/freeze/transfer) fold into a
// single storage write of the object's ownership tag, so they share
// one runtime entry point parameterized by the tag internal/codegen
// bakes in as a constant operand (shared/frozen/owned are three
// values of the same discriminant, not three separate mechanisms).
func (n Native) RuntimeCall() string {
	switch n {
	case ObjectNew:
		return "rt_object_new"
	case ObjectDelete:
		return "rt_object_delete"
	case TransferTransfer, TransferShareObject, TransferFreezeObject, TransferPublicTransfer:
		return "rt_object_set_owner"
	case TxContextSender:
		return "msg_sender"
	case TxContextEpoch:
		return "block_number"
	case EventEmit:
		return "rt_emit_event"
	default:
		return ""
	}
}

// OwnerTag is the storage discriminant internal/codegen passes to
// rt_object_set_owner for the three transfer::* natives.
type OwnerTag uint8

const (
	OwnerAddress OwnerTag = iota // transfer/public_transfer: owned by a specific address
	OwnerShared
	OwnerFrozen
)

func (n Native) OwnerTag() (OwnerTag, bool) {
	switch n {
	case TransferTransfer, TransferPublicTransfer:
		return OwnerAddress, true
	case TransferShareObject:
		return OwnerShared, true
	case TransferFreezeObject:
		return OwnerFrozen, true
	default:
		return 0, false
	}
}

// qualifiedName is a module::function pair, the granularity
// original_source's native table keys recognition on.
type qualifiedName struct {
	Module   string
	Function string
}

var table = map[qualifiedName]Native{
	{"object", "new"}:                     ObjectNew,
	{"object", "delete"}:                  ObjectDelete,
	{"transfer", "transfer"}:              TransferTransfer,
	{"transfer", "share_object"}:          TransferShareObject,
	{"transfer", "freeze_object"}:         TransferFreezeObject,
	{"transfer", "public_transfer"}:       TransferPublicTransfer,
	{"tx_context", "sender"}:              TxContextSender,
	{"tx_context", "epoch"}:               TxContextEpoch,
	{"event", "emit"}:                     EventEmit,
}

// Recognize looks up whether (moduleName, fnName) is a stylus-framework
// native. Strings are resolved from the loader's shared interner so
// this package never has to carry its own string table.
func Recognize(strings *strtab.Interner, moduleName, fnName strtab.StringID) Native {
	mod, ok := strings.Lookup(moduleName)
	if !ok {
		return NotNative
	}
	fn, ok := strings.Lookup(fnName)
	if !ok {
		return NotNative
	}
	return table[qualifiedName{Module: mod, Function: fn}]
}

// IsNative reports whether a function's declared module/name pair
// names a recognized native, independent of its IsNative bytecode
// flag. The loader does not call it; an unrecognized native is
// reported as UnsupportedFeature by internal/codegen when a call to
// it is emitted.
func IsNative(strings *strtab.Interner, moduleName, fnName strtab.StringID) bool {
	return Recognize(strings, moduleName, fnName) != NotNative
}
