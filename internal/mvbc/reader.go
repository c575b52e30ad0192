package mvbc

import (
	"bytes"
	"fmt"
)

// parseRawModule decodes the bytecode file's on-disk layout: a magic
// header, a version, and ULEB128-framed tables in a fixed order.
func parseRawModule(data []byte) (*rawModule, error) {
	c := newCursor(data)
	magic, err := c.bytes(4)
	if err != nil {
		return nil, badBytecode("<unknown>", "truncated header")
	}
	if !bytes.Equal(magic, Magic[:]) {
		return nil, badBytecode("<unknown>", "bad magic header")
	}
	version, err := c.u32()
	if err != nil {
		return nil, badBytecode("<unknown>", "truncated version")
	}
	if version != SupportedVersion {
		return nil, badBytecode("<unknown>", fmt.Sprintf("unsupported bytecode version %d", version))
	}

	m := &rawModule{Version: version}

	if m.Addresses, err = readAddresses(c); err != nil {
		return nil, err
	}
	if m.Identifiers, err = readIdentifiers(c); err != nil {
		return nil, err
	}
	if m.ModuleHandles, err = readModuleHandles(c); err != nil {
		return nil, err
	}
	if m.StructHandles, err = readStructHandles(c); err != nil {
		return nil, err
	}
	if m.FunctionHandles, err = readFunctionHandles(c); err != nil {
		return nil, err
	}
	if m.Signatures, err = readSignaturePool(c); err != nil {
		return nil, err
	}
	if m.Constants, err = readConstantPool(c); err != nil {
		return nil, err
	}
	if m.StructDefs, err = readStructDefs(c); err != nil {
		return nil, err
	}
	if m.EnumDefs, err = readEnumDefs(c); err != nil {
		return nil, err
	}
	if m.FunctionDefs, err = readFunctionDefs(c); err != nil {
		return nil, err
	}
	if c.remaining() != 0 {
		return nil, badBytecode("<unknown>", fmt.Sprintf("%d trailing bytes after last table", c.remaining()))
	}
	return m, nil
}

func readAddresses(c *cursor) ([][16]byte, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return nil, badBytecode("<unknown>", "bad address pool length")
	}
	out := make([][16]byte, n)
	for i := 0; i < n; i++ {
		b, err := c.bytes(16)
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated address entry")
		}
		copy(out[i][:], b)
	}
	return out, nil
}

func readIdentifiers(c *cursor) ([]string, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return nil, badBytecode("<unknown>", "bad identifier pool length")
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		s, err := c.str()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated identifier")
		}
		out[i] = s
	}
	return out, nil
}

func readModuleHandles(c *cursor) ([]rawModuleHandle, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return nil, badBytecode("<unknown>", "bad module handle count")
	}
	out := make([]rawModuleHandle, n)
	for i := 0; i < n; i++ {
		addrIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated module handle")
		}
		nameIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated module handle")
		}
		out[i] = rawModuleHandle{AddrIdx: addrIdx, NameIdx: nameIdx}
	}
	return out, nil
}

func readStructHandles(c *cursor) ([]rawStructHandle, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return nil, badBytecode("<unknown>", "bad struct handle count")
	}
	out := make([]rawStructHandle, n)
	for i := 0; i < n; i++ {
		modIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated struct handle")
		}
		nameIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated struct handle")
		}
		abilities, err := c.byte()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated struct handle")
		}
		tp, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated struct handle")
		}
		out[i] = rawStructHandle{ModuleHandleIdx: modIdx, NameIdx: nameIdx, Abilities: abilities, TypeParamCount: tp}
	}
	return out, nil
}

func readFunctionHandles(c *cursor) ([]rawFunctionHandle, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return nil, badBytecode("<unknown>", "bad function handle count")
	}
	out := make([]rawFunctionHandle, n)
	for i := 0; i < n; i++ {
		modIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated function handle")
		}
		nameIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated function handle")
		}
		paramsIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated function handle")
		}
		returnsIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated function handle")
		}
		tp, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated function handle")
		}
		out[i] = rawFunctionHandle{
			ModuleHandleIdx: modIdx, NameIdx: nameIdx,
			ParamsSigIdx: paramsIdx, ReturnsSigIdx: returnsIdx, TypeParamCount: tp,
		}
	}
	return out, nil
}

func readSigToken(c *cursor) (rawSigToken, error) {
	tagByte, err := c.byte()
	if err != nil {
		return rawSigToken{}, badBytecode("<unknown>", "truncated signature token")
	}
	tag := TypeTag(tagByte)
	switch tag {
	case TagBool, TagU8, TagU64, TagU128, TagAddress, TagSigner, TagU16, TagU32, TagU256:
		return rawSigToken{Tag: tag}, nil
	case TagVector, TagReference, TagMutableReference:
		elem, err := readSigToken(c)
		if err != nil {
			return rawSigToken{}, err
		}
		return rawSigToken{Tag: tag, Elem: &elem}, nil
	case TagTypeParam:
		idx, err := c.uleb128Int()
		if err != nil {
			return rawSigToken{}, badBytecode("<unknown>", "truncated type param token")
		}
		return rawSigToken{Tag: tag, ParamIndex: idx}, nil
	case TagStruct:
		idx, err := c.uleb128Int()
		if err != nil {
			return rawSigToken{}, badBytecode("<unknown>", "truncated struct token")
		}
		return rawSigToken{Tag: tag, StructIdx: idx}, nil
	case TagStructInst:
		idx, err := c.uleb128Int()
		if err != nil {
			return rawSigToken{}, badBytecode("<unknown>", "truncated struct-inst token")
		}
		argc, err := c.uleb128Int()
		if err != nil {
			return rawSigToken{}, badBytecode("<unknown>", "truncated struct-inst token")
		}
		args := make([]rawSigToken, argc)
		for i := 0; i < argc; i++ {
			args[i], err = readSigToken(c)
			if err != nil {
				return rawSigToken{}, err
			}
		}
		return rawSigToken{Tag: tag, StructIdx: idx, TypeArgs: args}, nil
	default:
		return rawSigToken{}, badBytecode("<unknown>", fmt.Sprintf("unknown type tag %d", tagByte))
	}
}

func readSignaturePool(c *cursor) ([]rawSignature, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return nil, badBytecode("<unknown>", "bad signature pool count")
	}
	out := make([]rawSignature, n)
	for i := 0; i < n; i++ {
		count, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated signature")
		}
		tokens := make([]rawSigToken, count)
		for j := 0; j < count; j++ {
			tokens[j], err = readSigToken(c)
			if err != nil {
				return nil, err
			}
		}
		out[i] = rawSignature{Tokens: tokens}
	}
	return out, nil
}

func readConstantPool(c *cursor) ([]rawConstant, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return nil, badBytecode("<unknown>", "bad constant pool count")
	}
	out := make([]rawConstant, n)
	for i := 0; i < n; i++ {
		tok, err := readSigToken(c)
		if err != nil {
			return nil, err
		}
		length, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated constant length")
		}
		data, err := c.bytes(length)
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated constant data")
		}
		out[i] = rawConstant{Type: tok, Bytes: append([]byte(nil), data...)}
	}
	return out, nil
}

func readFieldDefs(c *cursor) ([]rawFieldDef, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return nil, badBytecode("<unknown>", "bad field count")
	}
	out := make([]rawFieldDef, n)
	for i := 0; i < n; i++ {
		nameIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated field def")
		}
		tok, err := readSigToken(c)
		if err != nil {
			return nil, err
		}
		out[i] = rawFieldDef{NameIdx: nameIdx, Type: tok}
	}
	return out, nil
}

func readStructDefs(c *cursor) ([]rawStructDef, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return nil, badBytecode("<unknown>", "bad struct def count")
	}
	out := make([]rawStructDef, n)
	for i := 0; i < n; i++ {
		handleIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated struct def")
		}
		fields, err := readFieldDefs(c)
		if err != nil {
			return nil, err
		}
		out[i] = rawStructDef{HandleIdx: handleIdx, Fields: fields}
	}
	return out, nil
}

// readInstr decodes one instruction. Every opcode's operand shape is
// fixed by its kind; this switch is the single place that knowledge
// lives on the read side.
func readInstr(c *cursor) (rawInstr, error) {
	opByte, err := c.byte()
	if err != nil {
		return rawInstr{}, badBytecode("<unknown>", "truncated instruction stream")
	}
	op := Opcode(opByte)
	instr := rawInstr{Op: op}

	readTypeArgs := func() ([]rawSigToken, error) {
		n, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated type argument list")
		}
		args := make([]rawSigToken, n)
		for i := 0; i < n; i++ {
			if args[i], err = readSigToken(c); err != nil {
				return nil, err
			}
		}
		return args, nil
	}

	switch op {
	case OpNop, OpPop, OpLdTrue, OpLdFalse, OpReadRef, OpWriteRef, OpFreezeRef,
		OpNot, OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe, OpRet:
		// No operand.

	case OpLdU8:
		b, err := c.byte()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated u8 literal")
		}
		instr.Imm = uint64(b)
	case OpLdU16:
		v, err := c.u16()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated u16 literal")
		}
		instr.Imm = uint64(v)
	case OpLdU32:
		v, err := c.u32()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated u32 literal")
		}
		instr.Imm = uint64(v)
	case OpLdU64:
		v, err := c.u64()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated u64 literal")
		}
		instr.Imm = v
	case OpLdU128:
		b, err := c.u128()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated u128 literal")
		}
		instr.ImmWide = append([]byte(nil), b...)
	case OpLdU256:
		b, err := c.u256()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated u256 literal")
		}
		instr.ImmWide = append([]byte(nil), b...)

	case OpLdConst, OpCopyLoc, OpMoveLoc, OpStLoc, OpBorrowLoc,
		OpVecLen, OpVecImmBorrow, OpVecMutBorrow, OpVecPushBack, OpVecPopBack, OpVecSwap:
		idx, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated index operand")
		}
		instr.Index = idx

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr,
		OpCastU8, OpCastU16, OpCastU32, OpCastU64, OpCastU128, OpCastU256:
		w, err := c.byte()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated width operand")
		}
		instr.Index = int(w)

	case OpBranch, OpBranchIf, OpBranchIfFalse:
		target, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated branch target")
		}
		instr.BranchTarget = target

	case OpAbort:
		code, err := c.uleb128()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated abort code")
		}
		instr.AbortCode = code

	case OpCall, OpNativeCall:
		idx, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated call target")
		}
		instr.FuncHandle = idx
	case OpCallGeneric:
		idx, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated call target")
		}
		instr.FuncHandle = idx
		if instr.TypeArgs, err = readTypeArgs(); err != nil {
			return rawInstr{}, err
		}

	case OpPack, OpUnpack:
		idx, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated struct target")
		}
		instr.StructDefIdx = idx
	case OpPackGeneric, OpUnpackGeneric:
		idx, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated struct target")
		}
		instr.StructDefIdx = idx
		if instr.TypeArgs, err = readTypeArgs(); err != nil {
			return rawInstr{}, err
		}

	case OpBorrowField, OpBorrowFieldGeneric:
		sIdx, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated field-borrow target")
		}
		fIdx, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated field-borrow field index")
		}
		instr.StructDefIdx = sIdx
		instr.Index = fIdx
		if op == OpBorrowFieldGeneric {
			if instr.TypeArgs, err = readTypeArgs(); err != nil {
				return rawInstr{}, err
			}
		}

	case OpPackVariant, OpUnpackVariant:
		eIdx, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated enum target")
		}
		vIdx, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated variant index")
		}
		instr.EnumDefIdx = eIdx
		instr.VariantIndex = vIdx
	case OpPackVariantGeneric, OpUnpackVariantGeneric:
		eIdx, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated enum target")
		}
		vIdx, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated variant index")
		}
		instr.EnumDefIdx = eIdx
		instr.VariantIndex = vIdx
		if instr.TypeArgs, err = readTypeArgs(); err != nil {
			return rawInstr{}, err
		}

	case OpVariantSwitch:
		eIdx, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated enum target")
		}
		n, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated variant target count")
		}
		targets := make([]int, n)
		for i := 0; i < n; i++ {
			if targets[i], err = c.uleb128Int(); err != nil {
				return rawInstr{}, badBytecode("<unknown>", "truncated variant target")
			}
		}
		instr.EnumDefIdx = eIdx
		instr.VariantTargets = targets

	case OpVecPack, OpVecUnpack:
		elem, err := readSigToken(c)
		if err != nil {
			return rawInstr{}, err
		}
		n, err := c.uleb128Int()
		if err != nil {
			return rawInstr{}, badBytecode("<unknown>", "truncated vector arity")
		}
		instr.TypeArgs = []rawSigToken{elem}
		instr.Index = n

	default:
		return rawInstr{}, badBytecode("<unknown>", fmt.Sprintf("unknown opcode %d", opByte))
	}
	return instr, nil
}

func readCode(c *cursor) ([]rawInstr, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return nil, badBytecode("<unknown>", "truncated code length")
	}
	out := make([]rawInstr, n)
	for i := 0; i < n; i++ {
		if out[i], err = readInstr(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readFunctionDefs(c *cursor) ([]rawFunctionDef, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return nil, badBytecode("<unknown>", "bad function def count")
	}
	out := make([]rawFunctionDef, n)
	for i := 0; i < n; i++ {
		handleIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated function def")
		}
		visByte, err := c.byte()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated function def")
		}
		isEntryByte, err := c.byte()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated function def")
		}
		tp, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated function def")
		}
		isNativeByte, err := c.byte()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated function def")
		}
		localsSigIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated function def")
		}
		var code []rawInstr
		if isNativeByte == 0 {
			if code, err = readCode(c); err != nil {
				return nil, err
			}
		}
		out[i] = rawFunctionDef{
			HandleIdx:      handleIdx,
			Visibility:     Visibility(visByte),
			IsEntry:        isEntryByte != 0,
			IsNative:       isNativeByte != 0,
			TypeParamCount: tp,
			LocalsSigIdx:   localsSigIdx,
			Code:           code,
		}
	}
	return out, nil
}

func readEnumDefs(c *cursor) ([]rawEnumDef, error) {
	n, err := c.uleb128Int()
	if err != nil {
		return nil, badBytecode("<unknown>", "bad enum def count")
	}
	out := make([]rawEnumDef, n)
	for i := 0; i < n; i++ {
		nameIdx, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated enum def")
		}
		tp, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated enum def")
		}
		vc, err := c.uleb128Int()
		if err != nil {
			return nil, badBytecode("<unknown>", "truncated enum def")
		}
		variants := make([]rawVariantDef, vc)
		for j := 0; j < vc; j++ {
			vNameIdx, err := c.uleb128Int()
			if err != nil {
				return nil, badBytecode("<unknown>", "truncated enum variant")
			}
			fields, err := readFieldDefs(c)
			if err != nil {
				return nil, err
			}
			variants[j] = rawVariantDef{NameIdx: vNameIdx, Fields: fields}
		}
		out[i] = rawEnumDef{NameIdx: nameIdx, TypeParamCount: tp, Variants: variants}
	}
	return out, nil
}
