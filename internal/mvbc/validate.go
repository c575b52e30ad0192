package mvbc

import (
	"strings"

	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// validateInit enforces the constructor shape the router (internal/router)
// depends on: a private "init" function taking either just a mutable
// TxContext reference, or a one-time-witness struct followed by one.
func validateInit(prog *Program, m *Module) error {
	if !m.Init.IsValid() {
		return nil
	}
	f := prog.FunctionByID(m.Init)
	if f == nil {
		return nil
	}
	label := moduleLabel(prog, m)

	if f.Visibility != VisibilityPrivate {
		return badInit(label, "init", "init must be a private function")
	}
	if f.TypeParams != 0 {
		return badInit(label, "init", "init must not be generic")
	}
	if len(f.Params) != 1 && len(f.Params) != 2 {
		return badInit(label, "init", "init must take either (&mut TxContext) or (OTW, &mut TxContext)")
	}

	last := f.Params[len(f.Params)-1]
	lastTy, ok := prog.Types.Lookup(last.Type)
	if !ok || lastTy.Kind != types.KindRef || !lastTy.Mutable {
		return badInit(label, "init", "init's last parameter must be a mutable reference")
	}

	if len(f.Params) == 2 {
		otw := f.Params[0]
		otwTy, ok := prog.Types.Lookup(otw.Type)
		if !ok || otwTy.Kind != types.KindStruct {
			return badInit(label, "init", "one-time witness parameter must be a struct")
		}
		info, ok := prog.Types.StructInfo(otw.Type)
		if !ok {
			return badInit(label, "init", "one-time witness parameter must be a struct")
		}
		if info.Module != m.Name {
			return badInit(label, "init", "one-time witness struct must be declared in this module")
		}
		otwName := prog.Strings.MustLookup(info.Name)
		if otwName != strings.ToUpper(label) {
			return badInit(label, "init", "one-time witness struct name must equal the module name in upper case")
		}
		if len(info.Fields) != 0 {
			return badInit(label, "init", "one-time witness struct must have no fields")
		}
		if info.Abilities != types.AbilityDrop {
			return badInit(label, "init", "one-time witness struct must have exactly the drop ability")
		}
	}
	return nil
}

// validateGenericArity checks that every generic call, pack, and
// variant-pack instruction supplies exactly as many type arguments as
// its target declares.
func validateGenericArity(prog *Program, m *Module) error {
	label := moduleLabel(prog, m)
	for _, fid := range m.Funcs {
		f := prog.FunctionByID(fid)
		if f == nil {
			continue
		}
		for _, instr := range f.Code {
			switch instr.Op {
			case OpCallGeneric:
				target := prog.FunctionByID(instr.FuncTarget)
				if target == nil {
					return unresolvedHandle(label, "call target vanished after resolution")
				}
				if len(instr.TypeArgs) != target.TypeParams {
					return badBytecode(label, "generic call: type argument count does not match callee arity")
				}
			case OpPackGeneric, OpUnpackGeneric, OpBorrowFieldGeneric:
				target := prog.StructByID(instr.StructTarget)
				if target == nil {
					return unresolvedHandle(label, "struct target vanished after resolution")
				}
				if len(instr.TypeArgs) != target.TypeParams {
					return badBytecode(label, "generic struct op: type argument count does not match struct arity")
				}
			case OpPackVariantGeneric, OpUnpackVariantGeneric:
				target := prog.EnumByID(instr.EnumTarget)
				if target == nil {
					return unresolvedHandle(label, "enum target vanished after resolution")
				}
				if len(instr.TypeArgs) != target.TypeParams {
					return badBytecode(label, "generic enum op: type argument count does not match enum arity")
				}
			}
		}
	}
	return nil
}

func moduleLabel(prog *Program, m *Module) string {
	name := prog.Strings.MustLookup(m.Name)
	return name
}
