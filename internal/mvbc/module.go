package mvbc

import (
	"github.com/rather-labs/move-stylus-poc/internal/strtab"
	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// Address is a Move 16-byte account address.
type Address [16]byte

// Module is one node of the module graph: an account address plus a
// UTF-8 name, owning interned function/struct/enum/constant tables.
type Module struct {
	ID      ModuleID
	Addr    Address
	Name    strtab.StringID
	Uses    []ModuleID // outgoing "use" edges module graph
	Funcs   []FunctionID
	Structs []StructID
	Enums   []EnumID
	Consts  []Constant

	// Init, if valid, is the module's constructor entrypoint
	//; it is only set when the loader accepted the
	// function's signature as a constructor shape.
	Init FunctionID
}

// Constant is one entry of a module's constant pool.
type Constant struct {
	Type  types.TypeID
	Bytes []byte // BCS-style little-endian encoding of the literal
}

// Param is one parameter or local slot: a name (debug-only) and type.
type Param struct {
	Name strtab.StringID
	Type types.TypeID
}

// Function is a resolved function definition. TypeParams counts the
// function's own generic arity; Code is nil for
// natives recognized by internal/objectmodel.
type Function struct {
	ID         FunctionID
	Module     ModuleID
	Name       strtab.StringID
	Visibility Visibility
	IsEntry    bool
	TypeParams int
	Params     []Param
	Locals     []Param // includes Params as the first len(Params) slots
	Results    []types.TypeID
	Code       []Instr
	IsNative   bool
}

// StructDef is a resolved struct definition (pre- or post-monomorphization
// depending on pipeline stage; the loader only ever produces generic
// templates when TypeParams > 0).
type StructDef struct {
	ID         StructID
	Module     ModuleID
	Name       strtab.StringID
	Abilities  types.Ability
	TypeParams int
	Fields     []Param
	TypeID     types.TypeID // registered in the shared types.Interner
}

// EnumDef is a resolved enum definition.
type EnumDef struct {
	ID         EnumID
	Module     ModuleID
	Name       strtab.StringID
	TypeParams int
	Variants   []EnumVariantDef
	TypeID     types.TypeID
}

// EnumVariantDef is one variant of an enum, numbered by its index in
// Variants, numbered from 0 in declaration order.
type EnumVariantDef struct {
	Name   strtab.StringID
	Fields []Param
}

// Program is the loader's output: every Module plus deduplicated
// global function/struct/enum tables ("Output").
type Program struct {
	Strings *strtab.Interner
	Types   *types.Interner

	Modules   []*Module
	Functions []*Function // index 0 unused, FunctionID is the index
	Structs   []*StructDef
	Enums     []*EnumDef

	moduleIndex map[Address]map[strtab.StringID]ModuleID
	Root        ModuleID
}

// NewProgram constructs an empty interning arena with reserved zero slots.
func NewProgram() *Program {
	return &Program{
		Strings:     strtab.New(),
		Types:       types.NewInterner(),
		Functions:   []*Function{nil},
		Structs:     []*StructDef{nil},
		Enums:       []*EnumDef{nil},
		moduleIndex: make(map[Address]map[strtab.StringID]ModuleID),
	}
}

func (p *Program) internModule(m *Module) ModuleID {
	id := ModuleID(len(p.Modules) + 1)
	m.ID = id
	p.Modules = append(p.Modules, m)
	byName, ok := p.moduleIndex[m.Addr]
	if !ok {
		byName = make(map[strtab.StringID]ModuleID)
		p.moduleIndex[m.Addr] = byName
	}
	byName[m.Name] = id
	return id
}

// ModuleByID returns the module for id, or nil.
func (p *Program) ModuleByID(id ModuleID) *Module {
	if id == NoModuleID || int(id) > len(p.Modules) {
		return nil
	}
	return p.Modules[id-1]
}

// FunctionByID returns the function for id, or nil.
func (p *Program) FunctionByID(id FunctionID) *Function {
	if !id.IsValid() || int(id) >= len(p.Functions) {
		return nil
	}
	return p.Functions[id]
}

// StructByID returns the struct definition for id, or nil.
func (p *Program) StructByID(id StructID) *StructDef {
	if !id.IsValid() || int(id) >= len(p.Structs) {
		return nil
	}
	return p.Structs[id]
}

// EnumByID returns the enum definition for id, or nil.
func (p *Program) EnumByID(id EnumID) *EnumDef {
	if !id.IsValid() || int(id) >= len(p.Enums) {
		return nil
	}
	return p.Enums[id]
}

func (p *Program) internFunction(f *Function) FunctionID {
	id := FunctionID(len(p.Functions))
	f.ID = id
	p.Functions = append(p.Functions, f)
	return id
}

// InternFunction registers a new function (a monomorphized instance,
// typically) and returns its program-wide FunctionID. Exported for
// internal/mono, which is the only stage that adds functions after
// loading.
func (p *Program) InternFunction(f *Function) FunctionID {
	return p.internFunction(f)
}

func (p *Program) internStruct(s *StructDef) StructID {
	id := StructID(len(p.Structs))
	s.ID = id
	p.Structs = append(p.Structs, s)
	return id
}

func (p *Program) internEnum(e *EnumDef) EnumID {
	id := EnumID(len(p.Enums))
	e.ID = id
	p.Enums = append(p.Enums, e)
	return id
}
