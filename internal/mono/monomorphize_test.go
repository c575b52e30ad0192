package mono

import (
	"testing"

	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/types"
)

func TestMonomorphizeGenericIdentity(t *testing.T) {
	prog := mvbc.NewProgram()
	b := prog.Types.Builtins()

	idTmpl := &mvbc.Function{
		TypeParams: 1,
		Params:     []mvbc.Param{{Type: prog.Types.TypeParam(0)}},
		Results:    []types.TypeID{prog.Types.TypeParam(0)},
		Code: []mvbc.Instr{
			{Op: mvbc.OpCopyLoc, Index: 0},
			{Op: mvbc.OpRet},
		},
	}
	idID := prog.InternFunction(idTmpl)
	idTmpl.Locals = idTmpl.Params

	entry := &mvbc.Function{
		Results: []types.TypeID{b.U64},
		Code: []mvbc.Instr{
			{Op: mvbc.OpLdU64, Imm: 42},
			{Op: mvbc.OpCallGeneric, FuncTarget: idID, TypeArgs: []types.TypeID{b.U64}},
			{Op: mvbc.OpRet},
		},
	}
	entryID := prog.InternFunction(entry)

	mo := New(prog)
	result, err := mo.Run([]mvbc.FunctionID{entryID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := CheckNoTypeParams(prog.Types, result); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
	if len(result.Functions) != 2 {
		t.Fatalf("expected entry + one specialization, got %d", len(result.Functions))
	}

	var call *mvbc.Instr
	for i := range entry.Code {
		if entry.Code[i].Op == mvbc.OpCall {
			call = &entry.Code[i]
		}
	}
	if call == nil {
		t.Fatalf("OpCallGeneric was not rewritten to OpCall")
	}
	specialized := prog.FunctionByID(call.FuncTarget)
	if specialized.Results[0] != b.U64 {
		t.Fatalf("specialized id() did not substitute T -> u64")
	}
	if specialized.Params[0].Type != b.U64 {
		t.Fatalf("specialized id() parameter did not substitute T -> u64")
	}
}

func TestMonomorphizeReusesIdenticalInstantiation(t *testing.T) {
	prog := mvbc.NewProgram()
	b := prog.Types.Builtins()

	idTmpl := &mvbc.Function{
		TypeParams: 1,
		Params:     []mvbc.Param{{Type: prog.Types.TypeParam(0)}},
		Results:    []types.TypeID{prog.Types.TypeParam(0)},
		Code:       []mvbc.Instr{{Op: mvbc.OpRet}},
	}
	idID := prog.InternFunction(idTmpl)

	entry := &mvbc.Function{
		Code: []mvbc.Instr{
			{Op: mvbc.OpCallGeneric, FuncTarget: idID, TypeArgs: []types.TypeID{b.U64}},
			{Op: mvbc.OpCallGeneric, FuncTarget: idID, TypeArgs: []types.TypeID{b.U64}},
			{Op: mvbc.OpRet},
		},
	}
	entryID := prog.InternFunction(entry)

	mo := New(prog)
	result, err := mo.Run([]mvbc.FunctionID{entryID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Functions) != 2 {
		t.Fatalf("expected exactly one specialization to be shared, got %d functions", len(result.Functions))
	}
	if entry.Code[0].FuncTarget != entry.Code[1].FuncTarget {
		t.Fatalf("two calls with identical type arguments produced different instantiations")
	}
}
