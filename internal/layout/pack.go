package layout

import "github.com/rather-labs/move-stylus-poc/internal/types"

// packSequential lays out an ordered sequence of field/element types
// starting at offset 0 ("concatenation of field
// encodings padded to 32" when every field is Static; head/tail
// otherwise).
func (e *Engine) packSequential(elems []types.TypeID, state *layoutState) (TypeLayout, *Error) {
	return e.packSequentialFrom(elems, state, 0)
}

func (e *Engine) packSequentialFrom(elems []types.TypeID, state *layoutState, startOffset int) (TypeLayout, *Error) {
	offset := startOffset
	align := 1
	if startOffset > 0 {
		align = 4
	}
	abi := AbiStatic
	abiWords := 0
	offsets := make([]int, len(elems))
	aligns := make([]int, len(elems))

	for i, elemID := range elems {
		el, err := e.layoutOf(elemID, state)
		if err != nil {
			return TypeLayout{}, err
		}
		offset = alignUp(offset, el.MemAlign)
		offsets[i] = offset
		aligns[i] = el.MemAlign
		offset += el.MemSize
		if el.MemAlign > align {
			align = el.MemAlign
		}
		if el.AbiClass == AbiDynamic {
			abi = AbiDynamic
		} else {
			abiWords += el.AbiWords
		}
	}
	size := alignUp(offset, align)
	if abi == AbiDynamic {
		abiWords = 0
	}
	return TypeLayout{
		Repr:         reprForAggregate(size),
		MemSize:      size,
		MemAlign:     align,
		AbiClass:     abi,
		AbiWords:     abiWords,
		FieldOffsets: offsets,
		FieldAligns:  aligns,
	}, nil
}

// reprForAggregate picks the value-stack representation for a packed
// aggregate: anything wider than one native word is heap-represented.
func reprForAggregate(size int) WasmRepr {
	if size <= 4 {
		return ReprI32
	}
	return ReprHeapPtr
}
