package mvbc

import (
	"fmt"

	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// Load parses one bytecode file and links it into prog. Dependencies
// named by the module's "use" edges must already be present in prog:
// the module graph is loaded bottom-up, dependencies before
// dependents. The caller determines that order; Load itself only
// fails with ErrUnresolvedHandle if it isn't respected.
func Load(prog *Program, data []byte) (*Module, error) {
	raw, err := parseRawModule(data)
	if err != nil {
		return nil, err
	}
	if len(raw.ModuleHandles) == 0 {
		return nil, badBytecode("<unknown>", "module has no self handle")
	}

	// Convention: a module's own handle is always ModuleHandles[0].
	selfHandle := raw.ModuleHandles[0]
	if selfHandle.AddrIdx < 0 || selfHandle.AddrIdx >= len(raw.Addresses) {
		return nil, badBytecode("<unknown>", "self module handle: address index out of range")
	}
	selfName, err := (&resolveContext{}).identifier(selfHandle.NameIdx, raw.Identifiers)
	if err != nil {
		return nil, err
	}
	var selfAddr Address
	copy(selfAddr[:], raw.Addresses[selfHandle.AddrIdx][:])

	label := fmt.Sprintf("%x::%s", selfAddr, selfName)
	ctx := &resolveContext{
		prog:     prog,
		label:    label,
		selfAddr: selfAddr,
		selfName: prog.Strings.Intern(selfName),
	}

	if err := resolveModuleHandles(ctx, raw); err != nil {
		return nil, err
	}
	if err := resolveStructHandles(ctx, raw); err != nil {
		return nil, err
	}
	if err := resolveFunctionHandles(ctx, raw); err != nil {
		return nil, err
	}

	m := &Module{Addr: selfAddr, Name: ctx.selfName}
	prog.internModule(m)

	for i, h := range raw.ModuleHandles {
		if i == 0 {
			continue
		}
		if !ctx.modules[i].IsSelf {
			m.Uses = append(m.Uses, ctx.modules[i].Loaded)
		}
		_ = h
	}

	for _, rc := range raw.Constants {
		tid, err := ctx.resolveSigToken(rc.Type)
		if err != nil {
			return nil, err
		}
		m.Consts = append(m.Consts, Constant{Type: tid, Bytes: append([]byte(nil), rc.Bytes...)})
	}

	structDefGID := make([]StructID, len(raw.StructDefs))
	for i, sd := range raw.StructDefs {
		if sd.HandleIdx < 0 || sd.HandleIdx >= len(raw.StructHandles) {
			return nil, badBytecode(label, "struct def: handle index out of range")
		}
		handle := raw.StructHandles[sd.HandleIdx]
		nameStr, err := ctx.identifier(handle.NameIdx, raw.Identifiers)
		if err != nil {
			return nil, err
		}
		fields, params, err := resolveFieldDefs(ctx, prog, raw, sd.Fields)
		if err != nil {
			return nil, err
		}
		tid := ctx.structTID[sd.HandleIdx]
		prog.Types.SetStructFields(tid, fields)

		def := &StructDef{
			Module:     m.ID,
			Name:       prog.Strings.Intern(nameStr),
			Abilities:  types.Ability(handle.Abilities),
			TypeParams: handle.TypeParamCount,
			Fields:     params,
			TypeID:     tid,
		}
		sid := prog.internStruct(def)
		ctx.structGID[sd.HandleIdx] = sid
		structDefGID[i] = sid
		m.Structs = append(m.Structs, sid)
	}

	enumDefGID := make([]EnumID, len(raw.EnumDefs))
	for i, ed := range raw.EnumDefs {
		nameStr, err := ctx.identifier(ed.NameIdx, raw.Identifiers)
		if err != nil {
			return nil, err
		}
		nameID := prog.Strings.Intern(nameStr)

		variants := make([]types.EnumVariant, len(ed.Variants))
		variantDefs := make([]EnumVariantDef, len(ed.Variants))
		for j, v := range ed.Variants {
			vNameStr, err := ctx.identifier(v.NameIdx, raw.Identifiers)
			if err != nil {
				return nil, err
			}
			vNameID := prog.Strings.Intern(vNameStr)
			fields, params, err := resolveFieldDefs(ctx, prog, raw, v.Fields)
			if err != nil {
				return nil, err
			}
			variants[j] = types.EnumVariant{Name: vNameID, Fields: fields}
			variantDefs[j] = EnumVariantDef{Name: vNameID, Fields: params}
		}

		tid := prog.Types.RegisterEnum(types.EnumInfo{
			Name:     nameID,
			Module:   ctx.selfName,
			Variants: variants,
		})
		def := &EnumDef{
			Module:     m.ID,
			Name:       nameID,
			TypeParams: ed.TypeParamCount,
			Variants:   variantDefs,
			TypeID:     tid,
		}
		eid := prog.internEnum(def)
		enumDefGID[i] = eid
		m.Enums = append(m.Enums, eid)
	}

	for _, fd := range raw.FunctionDefs {
		if fd.HandleIdx < 0 || fd.HandleIdx >= len(raw.FunctionHandles) {
			return nil, badBytecode(label, "function def: handle index out of range")
		}
		handle := raw.FunctionHandles[fd.HandleIdx]
		fid := ctx.funcGID[fd.HandleIdx]
		f := prog.FunctionByID(fid)
		if f == nil {
			return nil, badBytecode(label, "function def: handle resolved to no function")
		}

		params, err := resolveParamList(ctx, prog, raw, handle.ParamsSigIdx)
		if err != nil {
			return nil, err
		}
		results, err := ctx.resolveSignature(sigAt(raw, handle.ReturnsSigIdx))
		if err != nil {
			return nil, err
		}
		locals, err := resolveParamList(ctx, prog, raw, fd.LocalsSigIdx)
		if err != nil {
			return nil, err
		}

		f.Module = m.ID
		f.Visibility = fd.Visibility
		f.IsEntry = fd.IsEntry
		f.IsNative = fd.IsNative
		f.Params = params
		f.Locals = append(append([]Param(nil), params...), locals...)
		f.Results = results

		nameStr, err := ctx.identifier(handle.NameIdx, raw.Identifiers)
		if err == nil && nameStr == "init" {
			m.Init = fid
		}

		if !fd.IsNative {
			code, err := resolveCode(ctx, fd.Code, structDefGID, enumDefGID)
			if err != nil {
				return nil, err
			}
			f.Code = code
		}
		m.Funcs = append(m.Funcs, fid)
	}

	if err := validateInit(prog, m); err != nil {
		return nil, err
	}
	if err := validateGenericArity(prog, m); err != nil {
		return nil, err
	}

	return m, nil
}

func sigAt(raw *rawModule, idx int) rawSignature {
	if idx < 0 || idx >= len(raw.Signatures) {
		return rawSignature{}
	}
	return raw.Signatures[idx]
}

func resolveParamList(ctx *resolveContext, prog *Program, raw *rawModule, sigIdx int) ([]Param, error) {
	tids, err := ctx.resolveSignature(sigAt(raw, sigIdx))
	if err != nil {
		return nil, err
	}
	out := make([]Param, len(tids))
	for i, t := range tids {
		out[i] = Param{Type: t}
	}
	return out, nil
}

func resolveFieldDefs(ctx *resolveContext, prog *Program, raw *rawModule, fields []rawFieldDef) ([]types.StructField, []Param, error) {
	sf := make([]types.StructField, len(fields))
	params := make([]Param, len(fields))
	for i, fd := range fields {
		nameStr, err := ctx.identifier(fd.NameIdx, raw.Identifiers)
		if err != nil {
			return nil, nil, err
		}
		nameID := prog.Strings.Intern(nameStr)
		t, err := ctx.resolveSigToken(fd.Type)
		if err != nil {
			return nil, nil, err
		}
		sf[i] = types.StructField{Name: nameID, Type: t}
		params[i] = Param{Name: nameID, Type: t}
	}
	return sf, params, nil
}

func resolveTypeArgList(ctx *resolveContext, toks []rawSigToken) ([]types.TypeID, error) {
	out := make([]types.TypeID, len(toks))
	for i, t := range toks {
		resolved, err := ctx.resolveSigToken(t)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func resolveCode(ctx *resolveContext, raw []rawInstr, structDefGID []StructID, enumDefGID []EnumID) ([]Instr, error) {
	out := make([]Instr, len(raw))
	for i, ri := range raw {
		instr := Instr{
			Op:           ri.Op,
			Imm:          ri.Imm,
			ImmWide:      ri.ImmWide,
			BranchTarget: ri.BranchTarget,
			AbortCode:    ri.AbortCode,
		}
		switch ri.Op {
		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr,
			OpCastU8, OpCastU16, OpCastU32, OpCastU64, OpCastU128, OpCastU256:
			instr.Width = ri.Index
		default:
			instr.Index = uint32(ri.Index)
		}
		if ri.Op == OpCall || ri.Op == OpNativeCall || ri.Op == OpCallGeneric {
			if ri.FuncHandle < 0 || ri.FuncHandle >= len(ctx.funcGID) {
				return nil, badBytecode(ctx.label, "instruction: function handle index out of range")
			}
			instr.FuncTarget = ctx.funcGID[ri.FuncHandle]
		}
		switch ri.Op {
		case OpPack, OpUnpack, OpPackGeneric, OpUnpackGeneric, OpBorrowField, OpBorrowFieldGeneric:
			if ri.StructDefIdx < 0 || ri.StructDefIdx >= len(structDefGID) {
				return nil, badBytecode(ctx.label, "instruction: struct def index out of range")
			}
			instr.StructTarget = structDefGID[ri.StructDefIdx]
		}
		switch ri.Op {
		case OpPackVariant, OpUnpackVariant, OpPackVariantGeneric, OpUnpackVariantGeneric, OpVariantSwitch:
			if ri.EnumDefIdx < 0 || ri.EnumDefIdx >= len(enumDefGID) {
				return nil, badBytecode(ctx.label, "instruction: enum def index out of range")
			}
			instr.EnumTarget = enumDefGID[ri.EnumDefIdx]
			instr.VariantIndex = ri.VariantIndex
			instr.VariantTargets = ri.VariantTargets
		}
		if len(ri.TypeArgs) > 0 {
			args, err := resolveTypeArgList(ctx, ri.TypeArgs)
			if err != nil {
				return nil, err
			}
			instr.TypeArgs = args
		}
		out[i] = instr
	}
	return out, nil
}
