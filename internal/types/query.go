package types

// HasTypeParam reports whether t (or any type reachable through its
// structure) still mentions a TypeParam. Post-monomorphization types
// must answer false.
func (in *Interner) HasTypeParam(id TypeID) bool {
	return in.hasTypeParam(id, make(map[TypeID]bool))
}

func (in *Interner) hasTypeParam(id TypeID, seen map[TypeID]bool) bool {
	if id == NoTypeID || seen[id] {
		return false
	}
	seen[id] = true
	t, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch t.Kind {
	case KindTypeParam:
		return true
	case KindVector, KindRef:
		return in.hasTypeParam(t.Elem, seen)
	case KindTuple:
		for _, e := range in.TupleElems(id) {
			if in.hasTypeParam(e, seen) {
				return true
			}
		}
		return false
	case KindStruct:
		info, ok := in.StructInfo(id)
		if !ok {
			return false
		}
		for _, a := range info.TypeArgs {
			if in.hasTypeParam(a, seen) {
				return true
			}
		}
		if len(info.TypeArgs) == 0 {
			for _, f := range info.Fields {
				if in.hasTypeParam(f.Type, seen) {
					return true
				}
			}
		}
		return false
	case KindEnum:
		info, ok := in.EnumInfo(id)
		if !ok {
			return false
		}
		for _, a := range info.TypeArgs {
			if in.hasTypeParam(a, seen) {
				return true
			}
		}
		if len(info.TypeArgs) == 0 {
			for _, v := range info.Variants {
				for _, f := range v.Fields {
					if in.hasTypeParam(f.Type, seen) {
						return true
					}
				}
			}
		}
		return false
	default:
		return false
	}
}

// Copyable reports whether t's ability set includes `copy`
// (layout classification: copyable drives duplicate
// semantics in codegen).
func (in *Interner) Copyable(id TypeID) bool {
	t, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch t.Kind {
	case KindBool, KindU8, KindU16, KindU32, KindU64, KindU128, KindU256, KindAddress:
		return true
	case KindSigner:
		return false
	case KindVector:
		return in.Copyable(t.Elem)
	case KindStruct:
		info, ok := in.StructInfo(id)
		return ok && info.Abilities.Has(AbilityCopy)
	case KindEnum:
		// Enums in this subset are drop-only (Open Question a);
		// copy is never granted.
		return false
	case KindRef:
		return true // reference values themselves are always copyable
	default:
		return false
	}
}
