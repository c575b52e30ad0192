package driver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rather-labs/move-stylus-poc/internal/abi"
	"github.com/rather-labs/move-stylus-poc/internal/layout"
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// ModuleReport is L+T's answer for one loaded module: its function,
// struct, and enum tables, each carrying whatever T managed to compute
// for it. `movewasm inspect` renders these without ever reaching
// monomorphization or codegen.
type ModuleReport struct {
	Name      string
	IsRoot    bool
	Functions []FunctionReport
	Structs   []StructReport
	Enums     []EnumReport
}

// FunctionReport summarizes one function's signature.
type FunctionReport struct {
	Name       string
	Visibility string
	IsNative   bool
	IsInit     bool
	Params     []string
	Results    []string
}

// StructReport summarizes one struct's fields and, when the struct is
// already concrete (TypeParams == 0), its computed memory layout.
type StructReport struct {
	Name       string
	TypeParams int
	Fields     []FieldReport
	MemSize    int
	MemAlign   int
	IsObject   bool
	LayoutErr  string // non-empty when T could not lay the struct out (generic template, unresolved field type)
}

// FieldReport is one struct field, plus its byte offset when a layout
// was computed for the enclosing struct.
type FieldReport struct {
	Name   string
	Type   string
	Offset int
}

// EnumReport summarizes one enum's variants.
type EnumReport struct {
	Name       string
	TypeParams int
	Variants   []string
}

// Inspect runs L+T over modulePath and depPaths and renders every
// linked module's contents, walking each module's declarations
// without ever running codegen.
func Inspect(modulePath string, depPaths []string) ([]ModuleReport, error) {
	prog, err := LoadProgram(modulePath, depPaths)
	if err != nil {
		return nil, err
	}
	le := layout.New(layout.Wasm32Stylus(), prog.Types)

	reports := make([]ModuleReport, len(prog.Modules))
	for i, mod := range prog.Modules {
		reports[i] = inspectModule(le, prog, mod)
	}
	return reports, nil
}

func inspectModule(le *layout.Engine, prog *mvbc.Program, mod *mvbc.Module) ModuleReport {
	name, _ := prog.Strings.Lookup(mod.Name)
	rep := ModuleReport{Name: name, IsRoot: mod.ID == prog.Root}

	for _, fid := range mod.Funcs {
		fn := prog.FunctionByID(fid)
		if fn == nil {
			continue
		}
		fname, _ := prog.Strings.Lookup(fn.Name)
		rep.Functions = append(rep.Functions, FunctionReport{
			Name:       fname,
			Visibility: visibilityName(fn.Visibility),
			IsNative:   fn.IsNative,
			IsInit:     mod.Init.IsValid() && mod.Init == fid,
			Params:     typeNames(prog, fn.Params),
			Results:    typeNamesOf(prog, fn.Results),
		})
	}

	for _, sid := range mod.Structs {
		sd := prog.StructByID(sid)
		if sd == nil {
			continue
		}
		rep.Structs = append(rep.Structs, inspectStruct(le, prog, sd))
	}

	for _, eid := range mod.Enums {
		ed := prog.EnumByID(eid)
		if ed == nil {
			continue
		}
		ename, _ := prog.Strings.Lookup(ed.Name)
		variants := make([]string, len(ed.Variants))
		for i, v := range ed.Variants {
			vname, _ := prog.Strings.Lookup(v.Name)
			variants[i] = fmt.Sprintf("%s(%s)", vname, joinTypeNames(typeNames(prog, v.Fields)))
		}
		rep.Enums = append(rep.Enums, EnumReport{Name: ename, TypeParams: ed.TypeParams, Variants: variants})
	}

	return rep
}

func inspectStruct(le *layout.Engine, prog *mvbc.Program, sd *mvbc.StructDef) StructReport {
	sname, _ := prog.Strings.Lookup(sd.Name)
	rep := StructReport{Name: sname, TypeParams: sd.TypeParams}

	for _, f := range sd.Fields {
		fname, _ := prog.Strings.Lookup(f.Name)
		tname, err := abi.CanonicalTypeName(prog.Types, f.Type)
		if err != nil {
			tname = "?"
		}
		rep.Fields = append(rep.Fields, FieldReport{Name: fname, Type: tname})
	}

	l, err := le.LayoutOf(sd.TypeID)
	if err != nil {
		var lerr *layout.Error
		if errors.As(err, &lerr) {
			rep.LayoutErr = lerr.Error()
		} else {
			rep.LayoutErr = err.Error()
		}
		return rep
	}
	rep.MemSize = l.MemSize
	rep.MemAlign = l.MemAlign
	rep.IsObject = l.IsObject
	for i := range rep.Fields {
		if i < len(l.FieldOffsets) {
			rep.Fields[i].Offset = l.FieldOffsets[i]
		}
	}
	return rep
}

func visibilityName(v mvbc.Visibility) string {
	switch v {
	case mvbc.VisibilityPublic:
		return "public"
	case mvbc.VisibilityFriend:
		return "friend"
	default:
		return "private"
	}
}

func typeNames(prog *mvbc.Program, params []mvbc.Param) []string {
	out := make([]string, len(params))
	for i, p := range params {
		name, err := abi.CanonicalTypeName(prog.Types, p.Type)
		if err != nil {
			name = "?"
		}
		out[i] = name
	}
	return out
}

func typeNamesOf(prog *mvbc.Program, ids []types.TypeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		name, err := abi.CanonicalTypeName(prog.Types, id)
		if err != nil {
			name = "?"
		}
		out[i] = name
	}
	return out
}

func joinTypeNames(names []string) string {
	return strings.Join(names, ",")
}
