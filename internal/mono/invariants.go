package mono

import (
	"fmt"

	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// CheckNoTypeParams asserts that after monomorphization,
// no function's parameter, local, result, or instruction-operand type
// may still mention a TypeParam. A violation here means Run rewrote an
// instruction without substituting through the caller's environment,
// and is a bug in this package rather than a malformed input program.
func CheckNoTypeParams(in *types.Interner, result *Result) error {
	for _, f := range result.Functions {
		if bad, ok := firstTypeParam(in, f); ok {
			return fmt.Errorf("mono: type parameter leaked into function #%d via type#%d", f.ID, bad)
		}
	}
	return nil
}

func firstTypeParam(in *types.Interner, f *mvbc.Function) (types.TypeID, bool) {
	for _, p := range f.Params {
		if in.HasTypeParam(p.Type) {
			return p.Type, true
		}
	}
	for _, l := range f.Locals {
		if in.HasTypeParam(l.Type) {
			return l.Type, true
		}
	}
	for _, r := range f.Results {
		if in.HasTypeParam(r) {
			return r, true
		}
	}
	for _, ins := range f.Code {
		if ins.ResolvedType != types.NoTypeID && in.HasTypeParam(ins.ResolvedType) {
			return ins.ResolvedType, true
		}
		for _, t := range ins.TypeArgs {
			if in.HasTypeParam(t) {
				return t, true
			}
		}
	}
	return types.NoTypeID, false
}
