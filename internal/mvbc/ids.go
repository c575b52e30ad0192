// Package mvbc implements the Loader stage (L): it
// parses the Move bytecode file format, resolves every handle into an
// interned global entity, and produces a linked IR that later stages
// never need to re-resolve.
package mvbc

// FunctionID identifies a function across the whole loaded program
// (root module + transitive dependencies), after handle resolution.
type FunctionID uint32

// StructID identifies a struct definition across the whole program.
type StructID uint32

// EnumID identifies an enum definition across the whole program.
type EnumID uint32

// ConstantID identifies a pool constant within its owning module.
type ConstantID uint32

// ModuleID identifies a loaded module.
type ModuleID uint32

const (
	NoFunctionID FunctionID = 0
	NoStructID   StructID   = 0
	NoEnumID     EnumID     = 0
	NoModuleID   ModuleID   = 0
)

func (id FunctionID) IsValid() bool { return id != NoFunctionID }
func (id StructID) IsValid() bool   { return id != NoStructID }
func (id EnumID) IsValid() bool     { return id != NoEnumID }
func (id ModuleID) IsValid() bool   { return id != NoModuleID }
