package mvbc

import (
	"fmt"

	"github.com/rather-labs/move-stylus-poc/internal/strtab"
	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// moduleRef is a handle-table entry resolved to either "this module
// being loaded" or an already-loaded dependency: dependencies are
// loaded before dependents, so external handles always resolve
// against a populated Program.
type moduleRef struct {
	Addr   Address
	Name   strtab.StringID
	IsSelf bool
	Loaded ModuleID // valid when !IsSelf
}

// resolveContext carries everything needed to turn a rawModule's
// handle-indexed signatures into globally-interned TypeIDs and IDs.
type resolveContext struct {
	prog  *Program
	label string // module label used in diagnostics, e.g. "0x1::coin"

	selfAddr Address
	selfName strtab.StringID

	modules   []moduleRef
	structTID []types.TypeID // per struct-handle index
	structGID []StructID     // per struct-handle index, NoStructID for external
	funcGID   []FunctionID   // per function-handle index
}

func (ctx *resolveContext) identifier(idx int, ids []string) (string, error) {
	if idx < 0 || idx >= len(ids) {
		return "", badBytecode(ctx.label, fmt.Sprintf("identifier index %d out of range", idx))
	}
	return ids[idx], nil
}

// resolveModuleHandles builds ctx.modules, matching each handle
// against the module currently being loaded or a dependency already
// present in the program's module index.
func resolveModuleHandles(ctx *resolveContext, raw *rawModule) error {
	ctx.modules = make([]moduleRef, len(raw.ModuleHandles))
	for i, h := range raw.ModuleHandles {
		if h.AddrIdx < 0 || h.AddrIdx >= len(raw.Addresses) {
			return badBytecode(ctx.label, "module handle: address index out of range")
		}
		name, err := ctx.identifier(h.NameIdx, raw.Identifiers)
		if err != nil {
			return err
		}
		var addr Address
		copy(addr[:], raw.Addresses[h.AddrIdx][:])
		nameID := ctx.prog.Strings.Intern(name)

		if addr == ctx.selfAddr && nameID == ctx.selfName {
			ctx.modules[i] = moduleRef{Addr: addr, Name: nameID, IsSelf: true}
			continue
		}
		byName, ok := ctx.prog.moduleIndex[addr]
		if !ok {
			return unresolvedHandle(ctx.label, fmt.Sprintf("dependency module %x::%s not loaded", addr, name))
		}
		modID, ok := byName[nameID]
		if !ok {
			return unresolvedHandle(ctx.label, fmt.Sprintf("dependency module %x::%s not loaded", addr, name))
		}
		ctx.modules[i] = moduleRef{Addr: addr, Name: nameID, Loaded: modID}
	}
	return nil
}

// resolveStructHandles registers a placeholder struct type for every
// self-defined struct handle (fields filled in later once the struct
// def table is decoded) and binds external handles directly to the
// dependency's already-resolved struct.
func resolveStructHandles(ctx *resolveContext, raw *rawModule) error {
	ctx.structTID = make([]types.TypeID, len(raw.StructHandles))
	ctx.structGID = make([]StructID, len(raw.StructHandles))
	for i, h := range raw.StructHandles {
		if h.ModuleHandleIdx < 0 || h.ModuleHandleIdx >= len(ctx.modules) {
			return badBytecode(ctx.label, "struct handle: module handle index out of range")
		}
		mod := ctx.modules[h.ModuleHandleIdx]
		name, err := ctx.identifier(h.NameIdx, raw.Identifiers)
		if err != nil {
			return err
		}
		nameID := ctx.prog.Strings.Intern(name)

		if mod.IsSelf {
			tid := ctx.prog.Types.RegisterStruct(types.StructInfo{
				Name:      nameID,
				Module:    mod.Name,
				Abilities: types.Ability(h.Abilities),
			})
			ctx.structTID[i] = tid
			ctx.structGID[i] = NoStructID // filled once the matching StructDef is seen
			continue
		}
		found, ok := findStruct(ctx.prog, mod.Loaded, nameID)
		if !ok {
			return unresolvedHandle(ctx.label, fmt.Sprintf("struct %s::%s not found in dependency", mustString(ctx.prog, mod.Name), name))
		}
		ctx.structTID[i] = found.TypeID
		ctx.structGID[i] = found.ID
	}
	return nil
}

// resolveFunctionHandles assigns a global FunctionID to every handle:
// self-defined functions get a placeholder entry (its body is filled
// in once the matching FunctionDef is decoded); external functions
// bind directly to the dependency's already-loaded function.
func resolveFunctionHandles(ctx *resolveContext, raw *rawModule) error {
	ctx.funcGID = make([]FunctionID, len(raw.FunctionHandles))
	for i, h := range raw.FunctionHandles {
		if h.ModuleHandleIdx < 0 || h.ModuleHandleIdx >= len(ctx.modules) {
			return badBytecode(ctx.label, "function handle: module handle index out of range")
		}
		mod := ctx.modules[h.ModuleHandleIdx]
		name, err := ctx.identifier(h.NameIdx, raw.Identifiers)
		if err != nil {
			return err
		}
		nameID := ctx.prog.Strings.Intern(name)

		if mod.IsSelf {
			ctx.funcGID[i] = ctx.prog.internFunction(&Function{
				Name:       nameID,
				TypeParams: h.TypeParamCount,
			})
			continue
		}
		found, ok := findFunction(ctx.prog, mod.Loaded, nameID)
		if !ok {
			return unresolvedHandle(ctx.label, fmt.Sprintf("function %s::%s not found in dependency", mustString(ctx.prog, mod.Name), name))
		}
		ctx.funcGID[i] = found.ID
	}
	return nil
}

func findStruct(prog *Program, mod ModuleID, name strtab.StringID) (*StructDef, bool) {
	m := prog.ModuleByID(mod)
	if m == nil {
		return nil, false
	}
	for _, sid := range m.Structs {
		if s := prog.StructByID(sid); s != nil && s.Name == name {
			return s, true
		}
	}
	return nil, false
}

func findFunction(prog *Program, mod ModuleID, name strtab.StringID) (*Function, bool) {
	m := prog.ModuleByID(mod)
	if m == nil {
		return nil, false
	}
	for _, fid := range m.Funcs {
		if f := prog.FunctionByID(fid); f != nil && f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func mustString(prog *Program, id strtab.StringID) string {
	return prog.Strings.MustLookup(id)
}

// resolveSigToken turns one wire-format signature token into an
// interned TypeID, instantiating generic structs eagerly as symbolic
// (unsubstituted) instances that internal/mono later specializes in
// place via SetStructFields.
func (ctx *resolveContext) resolveSigToken(tok rawSigToken) (types.TypeID, error) {
	b := ctx.prog.Types.Builtins()
	switch tok.Tag {
	case TagBool:
		return b.Bool, nil
	case TagU8:
		return b.U8, nil
	case TagU16:
		return b.U16, nil
	case TagU32:
		return b.U32, nil
	case TagU64:
		return b.U64, nil
	case TagU128:
		return b.U128, nil
	case TagU256:
		return b.U256, nil
	case TagAddress:
		return b.Address, nil
	case TagSigner:
		return b.Signer, nil
	case TagVector:
		elem, err := ctx.resolveSigToken(*tok.Elem)
		if err != nil {
			return types.NoTypeID, err
		}
		return ctx.prog.Types.Vector(elem), nil
	case TagReference, TagMutableReference:
		elem, err := ctx.resolveSigToken(*tok.Elem)
		if err != nil {
			return types.NoTypeID, err
		}
		return ctx.prog.Types.Ref(elem, tok.Tag == TagMutableReference), nil
	case TagTypeParam:
		return ctx.prog.Types.TypeParam(uint32(tok.ParamIndex)), nil
	case TagStruct:
		if tok.StructIdx < 0 || tok.StructIdx >= len(ctx.structTID) {
			return types.NoTypeID, badBytecode(ctx.label, "struct token: handle index out of range")
		}
		return ctx.structTID[tok.StructIdx], nil
	case TagStructInst:
		if tok.StructIdx < 0 || tok.StructIdx >= len(ctx.structTID) {
			return types.NoTypeID, badBytecode(ctx.label, "struct-inst token: handle index out of range")
		}
		args := make([]types.TypeID, len(tok.TypeArgs))
		for i, a := range tok.TypeArgs {
			resolved, err := ctx.resolveSigToken(a)
			if err != nil {
				return types.NoTypeID, err
			}
			args[i] = resolved
		}
		return ctx.resolveStructInstance(tok.StructIdx, args)
	default:
		return types.NoTypeID, badBytecode(ctx.label, fmt.Sprintf("unresolvable type tag %d", tok.Tag))
	}
}

func (ctx *resolveContext) resolveStructInstance(handleIdx int, args []types.TypeID) (types.TypeID, error) {
	tmplID := ctx.structTID[handleIdx]
	info, ok := ctx.prog.Types.StructInfo(tmplID)
	if !ok {
		return types.NoTypeID, unresolvedHandle(ctx.label, "generic instantiation of unresolved struct")
	}
	if id, ok := ctx.prog.Types.FindStructInstance(info.Name, args); ok {
		return id, nil
	}
	return ctx.prog.Types.RegisterStruct(types.StructInfo{
		Name:      info.Name,
		Module:    info.Module,
		Abilities: info.Abilities,
		Fields:    info.Fields,
		TypeArgs:  args,
	}), nil
}

func (ctx *resolveContext) resolveSignature(sig rawSignature) ([]types.TypeID, error) {
	out := make([]types.TypeID, len(sig.Tokens))
	for i, tok := range sig.Tokens {
		resolved, err := ctx.resolveSigToken(tok)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}
