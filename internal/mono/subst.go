package mono

import "github.com/rather-labs/move-stylus-poc/internal/types"

// substType replaces every TypeParam(n) reachable from id with args[n],
// re-interning composite types as needed. Non-generic types (including
// already-concrete struct/enum instances) are returned unchanged.
func substType(in *types.Interner, id types.TypeID, args []types.TypeID) types.TypeID {
	t, ok := in.Lookup(id)
	if !ok {
		return id
	}
	switch t.Kind {
	case types.KindTypeParam:
		if int(t.ParamIndex) < len(args) {
			return args[t.ParamIndex]
		}
		return id
	case types.KindVector:
		elem := substType(in, t.Elem, args)
		if elem == t.Elem {
			return id
		}
		return in.Vector(elem)
	case types.KindRef:
		elem := substType(in, t.Elem, args)
		if elem == t.Elem {
			return id
		}
		return in.Ref(elem, t.Mutable)
	case types.KindTuple:
		elems := in.TupleElems(id)
		changed := false
		out := make([]types.TypeID, len(elems))
		for i, e := range elems {
			out[i] = substType(in, e, args)
			if out[i] != e {
				changed = true
			}
		}
		if !changed {
			return id
		}
		return in.InternTuple(out)
	case types.KindStruct:
		return substStructInstance(in, id, args)
	case types.KindEnum:
		return substEnumInstance(in, id, args)
	default:
		return id
	}
}

// substStructInstance re-instantiates a generic struct reference under
// the caller's substitution environment. A struct with no type
// arguments of its own is already concrete and returned unchanged.
func substStructInstance(in *types.Interner, id types.TypeID, args []types.TypeID) types.TypeID {
	info, ok := in.StructInfo(id)
	if !ok || len(info.TypeArgs) == 0 {
		return id
	}
	newArgs := make([]types.TypeID, len(info.TypeArgs))
	changed := false
	for i, a := range info.TypeArgs {
		newArgs[i] = substType(in, a, args)
		if newArgs[i] != a {
			changed = true
		}
	}
	if !changed {
		return id
	}
	if existing, ok := in.FindStructInstance(info.Name, newArgs); ok {
		return existing
	}
	return in.RegisterStruct(types.StructInfo{
		Name:      info.Name,
		Module:    info.Module,
		Abilities: info.Abilities,
		Fields:    info.Fields,
		TypeArgs:  newArgs,
	})
}

func substEnumInstance(in *types.Interner, id types.TypeID, args []types.TypeID) types.TypeID {
	info, ok := in.EnumInfo(id)
	if !ok || len(info.TypeArgs) == 0 {
		return id
	}
	newArgs := make([]types.TypeID, len(info.TypeArgs))
	changed := false
	for i, a := range info.TypeArgs {
		newArgs[i] = substType(in, a, args)
		if newArgs[i] != a {
			changed = true
		}
	}
	if !changed {
		return id
	}
	if existing, ok := in.FindEnumInstance(info.Name, newArgs); ok {
		return existing
	}
	return in.RegisterEnum(types.EnumInfo{
		Name:     info.Name,
		Module:   info.Module,
		Variants: info.Variants,
		TypeArgs: newArgs,
	})
}
