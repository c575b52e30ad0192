package layout

import "github.com/rather-labs/move-stylus-poc/internal/types"

// vectorHeaderSize/Align describe the heap record
// {len: u32, cap: u32, elems_ptr: i32} every vector value is
// represented by.
const (
	vectorHeaderSize  = 12
	vectorHeaderAlign = 4
)

func (e *Engine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *Error) {
	t := e.Types.MustLookup(id)
	copyable := e.Types.Copyable(id)

	switch t.Kind {
	case types.KindBool, types.KindU8:
		return TypeLayout{Repr: ReprI32, MemSize: 1, MemAlign: 1, AbiClass: AbiStatic, AbiWords: 1, Copyable: copyable}, nil
	case types.KindU16:
		return TypeLayout{Repr: ReprI32, MemSize: 2, MemAlign: 2, AbiClass: AbiStatic, AbiWords: 1, Copyable: copyable}, nil
	case types.KindU32:
		return TypeLayout{Repr: ReprI32, MemSize: 4, MemAlign: 4, AbiClass: AbiStatic, AbiWords: 1, Copyable: copyable}, nil
	case types.KindU64:
		return TypeLayout{Repr: ReprI64, MemSize: 8, MemAlign: 8, AbiClass: AbiStatic, AbiWords: 1, Copyable: copyable}, nil
	case types.KindU128:
		return TypeLayout{Repr: ReprHeapPtr, MemSize: 16, MemAlign: 8, AbiClass: AbiStatic, AbiWords: 1, Copyable: copyable}, nil
	case types.KindU256:
		return TypeLayout{Repr: ReprHeapPtr, MemSize: 32, MemAlign: 8, AbiClass: AbiStatic, AbiWords: 1, Copyable: copyable}, nil
	case types.KindAddress:
		return TypeLayout{Repr: ReprHeapPtr, MemSize: 20, MemAlign: 4, AbiClass: AbiStatic, AbiWords: 1, Copyable: copyable}, nil
	case types.KindSigner:
		// Signer carries the same 20-byte payload as Address but is
		// never ABI-encoded directly (it is a capability, not a value
		// a Solidity caller can pass in).
		return TypeLayout{Repr: ReprHeapPtr, MemSize: 20, MemAlign: 4, AbiClass: AbiStatic, AbiWords: 1, Copyable: false}, nil

	case types.KindVector:
		if _, err := e.layoutOf(t.Elem, state); err != nil {
			return TypeLayout{}, err
		}
		return TypeLayout{
			Repr:     ReprHeapPtr,
			MemSize:  vectorHeaderSize,
			MemAlign: vectorHeaderAlign,
			AbiClass: AbiDynamic,
			Copyable: false,
		}, nil

	case types.KindRef:
		return TypeLayout{Repr: ReprHeapPtr, MemSize: e.Target.PtrSize, MemAlign: e.Target.PtrAlign, AbiClass: AbiStatic, AbiWords: 1, Copyable: true}, nil

	case types.KindTuple:
		return e.computeTupleLayout(id, state)

	case types.KindStruct:
		return e.computeStructLayout(id, state, copyable)

	case types.KindEnum:
		return e.computeEnumLayout(id, state)

	default:
		return TypeLayout{}, &Error{Kind: ErrHasTypeParam, Type: id}
	}
}

func (e *Engine) computeTupleLayout(id types.TypeID, state *layoutState) (TypeLayout, *Error) {
	elems := e.Types.TupleElems(id)
	if len(elems) == 0 {
		return TypeLayout{Repr: ReprI32, MemSize: 0, MemAlign: 1, AbiClass: AbiStatic, AbiWords: 0, Copyable: true}, nil
	}
	return e.packSequential(elems, state)
}

func (e *Engine) computeStructLayout(id types.TypeID, state *layoutState, copyable bool) (TypeLayout, *Error) {
	info, ok := e.Types.StructInfo(id)
	if !ok {
		return TypeLayout{}, &Error{Kind: ErrHasTypeParam, Type: id}
	}
	isObject := info.Abilities.Has(types.AbilityKey)

	fieldTypes := make([]types.TypeID, len(info.Fields))
	for i, f := range info.Fields {
		fieldTypes[i] = f.Type
	}

	startOffset := 0
	if isObject {
		startOffset = 32 // UID reserves the first 32 bytes (Objects)
	}
	l, err := e.packSequentialFrom(fieldTypes, state, startOffset)
	if err != nil {
		return TypeLayout{}, err
	}
	l.Copyable = copyable
	l.IsObject = isObject
	if isObject {
		l.UIDOffset = 0
		if l.MemAlign < 4 {
			l.MemAlign = 4
		}
	}
	// A struct with only static fields is Static; any dynamic field
	// makes the whole struct Dynamic (, recursively).
	return l, nil
}

func (e *Engine) computeEnumLayout(id types.TypeID, state *layoutState) (TypeLayout, *Error) {
	info, ok := e.Types.EnumInfo(id)
	if !ok {
		return TypeLayout{}, &Error{Kind: ErrHasTypeParam, Type: id}
	}
	maxPayload := 0
	abi := AbiStatic
	for _, v := range info.Variants {
		fieldTypes := make([]types.TypeID, len(v.Fields))
		for i, f := range v.Fields {
			fieldTypes[i] = f.Type
		}
		vl, err := e.packSequential(fieldTypes, state)
		if err != nil {
			return TypeLayout{}, err
		}
		if vl.MemSize > maxPayload {
			maxPayload = vl.MemSize
		}
		if vl.AbiClass == AbiDynamic {
			abi = AbiDynamic
		}
	}
	// Tag byte plus the widest variant payload,
	// tag-aligned at offset 0 and payload word-aligned right after.
	payloadOffset := alignUp(1, 4)
	total := payloadOffset + maxPayload
	return TypeLayout{
		Repr:          ReprHeapPtr,
		MemSize:       total,
		MemAlign:      4,
		AbiClass:      abi,
		Copyable:      false,
		PayloadOffset: payloadOffset,
	}, nil
}
