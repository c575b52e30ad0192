package mono

import (
	"fmt"

	"github.com/rather-labs/move-stylus-poc/internal/diag"
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// Result is Monomorphization's output: every function reachable from
// the entry set, specialized so that none of its locals, parameters,
// results, or operand types mention a TypeParam.
// Reachability is a side effect of the worklist below rather than a
// separate mark-sweep pass: a template only gets an instance, and an
// instance only gets queued, when something on the reachable frontier
// actually calls it.
type Result struct {
	Functions      []*mvbc.Function
	EntryPoints    []mvbc.FunctionID
	Instantiations *InstantiationMap
}

type queued struct {
	template mvbc.FunctionID
	instance mvbc.FunctionID
	args     []types.TypeID
}

// Monomorphizer runs one monomorphization pass over a loaded Program.
type Monomorphizer struct {
	prog  *mvbc.Program
	mat   *materializer
	insts *InstantiationMap

	funcCache map[Key]mvbc.FunctionID
	filled    map[mvbc.FunctionID]bool
	queue     []queued
	order     []mvbc.FunctionID
}

// New prepares a Monomorphizer bound to prog. prog gains new
// Function entries for every generic instantiation Run discovers.
func New(prog *mvbc.Program) *Monomorphizer {
	return &Monomorphizer{
		prog:      prog,
		mat:       newMaterializer(prog.Types),
		insts:     newInstantiationMap(),
		funcCache: make(map[Key]mvbc.FunctionID),
		filled:    make(map[mvbc.FunctionID]bool),
	}
}

// Run monomorphizes every function reachable from entryPoints (the
// driver passes the root module's public functions plus its `init`)
// and returns only the specialized, TypeParam-free
// functions codegen needs to emit.
func (mo *Monomorphizer) Run(entryPoints []mvbc.FunctionID) (*Result, error) {
	for _, fid := range entryPoints {
		if _, err := mo.instanceFor(fid, nil, diag.Location{}, mvbc.NoFunctionID); err != nil {
			return nil, err
		}
	}
	for len(mo.queue) > 0 {
		item := mo.queue[0]
		mo.queue = mo.queue[1:]
		if err := mo.fillBody(item); err != nil {
			return nil, err
		}
	}

	funcs := make([]*mvbc.Function, 0, len(mo.order))
	for _, fid := range mo.order {
		if f := mo.prog.FunctionByID(fid); f != nil {
			funcs = append(funcs, f)
		}
	}
	entries := make([]mvbc.FunctionID, len(entryPoints))
	for i, fid := range entryPoints {
		entries[i] = mo.funcCache[newKey(fid, nil)]
	}
	return &Result{Functions: funcs, EntryPoints: entries, Instantiations: mo.insts}, nil
}

// instanceFor returns the concrete FunctionID for (template, args),
// registering a new Function in prog and enqueueing its body for
// translation the first time this pair is seen. A template with zero
// type parameters is its own sole instance.
func (mo *Monomorphizer) instanceFor(template mvbc.FunctionID, args []types.TypeID, at diag.Location, caller mvbc.FunctionID) (mvbc.FunctionID, error) {
	key := newKey(template, args)
	if id, ok := mo.funcCache[key]; ok {
		mo.insts.record(key, args, id, at, caller)
		return id, nil
	}

	tmpl := mo.prog.FunctionByID(template)
	if tmpl == nil {
		return mvbc.NoFunctionID, fmt.Errorf("mono: unknown function template #%d", template)
	}
	if tmpl.TypeParams != len(args) {
		return mvbc.NoFunctionID, fmt.Errorf("mono: %s expects %d type argument(s), got %d",
			mo.prog.Strings.MustLookup(tmpl.Name), tmpl.TypeParams, len(args))
	}

	var instanceID mvbc.FunctionID
	if len(args) == 0 {
		instanceID = template
	} else {
		instance := &mvbc.Function{
			Module:     tmpl.Module,
			Name:       tmpl.Name,
			Visibility: tmpl.Visibility,
			IsEntry:    tmpl.IsEntry,
			IsNative:   tmpl.IsNative,
			Params:     substParamList(mo.prog.Types, tmpl.Params, args),
			Locals:     substParamList(mo.prog.Types, tmpl.Locals, args),
			Results:    substTypeList(mo.prog.Types, tmpl.Results, args),
		}
		instanceID = mo.prog.InternFunction(instance)
	}

	mo.funcCache[key] = instanceID
	mo.insts.record(key, args, instanceID, at, caller)
	if !mo.filled[instanceID] {
		mo.filled[instanceID] = true
		mo.order = append(mo.order, instanceID)
		mo.queue = append(mo.queue, queued{template: template, instance: instanceID, args: args})
	}
	return instanceID, nil
}

func (mo *Monomorphizer) fillBody(item queued) error {
	tmpl := mo.prog.FunctionByID(item.template)
	if tmpl.IsNative {
		return nil // internal/objectmodel supplies the body
	}
	instance := mo.prog.FunctionByID(item.instance)
	code := make([]mvbc.Instr, len(tmpl.Code))
	for i, ins := range tmpl.Code {
		rewritten, err := mo.rewriteInstr(ins, item.args, item.template)
		if err != nil {
			return err
		}
		code[i] = rewritten
	}
	instance.Code = code
	return nil
}

func (mo *Monomorphizer) rewriteInstr(ins mvbc.Instr, callerArgs []types.TypeID, caller mvbc.FunctionID) (mvbc.Instr, error) {
	at := diag.Location{}
	switch ins.Op {
	case mvbc.OpCall, mvbc.OpNativeCall:
		target, err := mo.instanceFor(ins.FuncTarget, nil, at, caller)
		if err != nil {
			return mvbc.Instr{}, err
		}
		ins.FuncTarget = target
		return ins, nil

	case mvbc.OpCallGeneric:
		args := substTypeList(mo.prog.Types, ins.TypeArgs, callerArgs)
		target, err := mo.instanceFor(ins.FuncTarget, args, at, caller)
		if err != nil {
			return mvbc.Instr{}, err
		}
		ins.Op = mvbc.OpCall
		ins.FuncTarget = target
		ins.TypeArgs = nil
		return ins, nil

	case mvbc.OpPack, mvbc.OpUnpack:
		ins.ResolvedType = mo.structDefType(ins.StructTarget)
		return ins, nil
	case mvbc.OpPackGeneric, mvbc.OpUnpackGeneric, mvbc.OpBorrowFieldGeneric:
		args := substTypeList(mo.prog.Types, ins.TypeArgs, callerArgs)
		resolved := mo.instantiateStruct(ins.StructTarget, args)
		mo.mat.materialize(resolved)
		ins.Op = downgradeOpcode(ins.Op)
		ins.ResolvedType = resolved
		ins.TypeArgs = nil
		return ins, nil
	case mvbc.OpBorrowField:
		ins.ResolvedType = mo.structDefType(ins.StructTarget)
		return ins, nil

	case mvbc.OpPackVariant, mvbc.OpUnpackVariant:
		ins.ResolvedType = mo.enumDefType(ins.EnumTarget)
		return ins, nil
	case mvbc.OpPackVariantGeneric, mvbc.OpUnpackVariantGeneric:
		args := substTypeList(mo.prog.Types, ins.TypeArgs, callerArgs)
		resolved := mo.instantiateEnum(ins.EnumTarget, args)
		mo.mat.materialize(resolved)
		ins.Op = downgradeOpcode(ins.Op)
		ins.ResolvedType = resolved
		ins.TypeArgs = nil
		return ins, nil

	case mvbc.OpVecPack, mvbc.OpVecUnpack:
		if len(ins.TypeArgs) == 1 {
			ins.TypeArgs = []types.TypeID{substType(mo.prog.Types, ins.TypeArgs[0], callerArgs)}
		}
		return ins, nil

	default:
		return ins, nil
	}
}

func (mo *Monomorphizer) structDefType(id mvbc.StructID) types.TypeID {
	if def := mo.prog.StructByID(id); def != nil {
		return def.TypeID
	}
	return types.NoTypeID
}

func (mo *Monomorphizer) enumDefType(id mvbc.EnumID) types.TypeID {
	if def := mo.prog.EnumByID(id); def != nil {
		return def.TypeID
	}
	return types.NoTypeID
}

func (mo *Monomorphizer) instantiateStruct(id mvbc.StructID, args []types.TypeID) types.TypeID {
	def := mo.prog.StructByID(id)
	if def == nil || len(args) == 0 {
		if def != nil {
			return def.TypeID
		}
		return types.NoTypeID
	}
	info, ok := mo.prog.Types.StructInfo(def.TypeID)
	if !ok {
		return def.TypeID
	}
	if existing, ok := mo.prog.Types.FindStructInstance(info.Name, args); ok {
		return existing
	}
	return mo.prog.Types.RegisterStruct(types.StructInfo{
		Name:      info.Name,
		Module:    info.Module,
		Abilities: info.Abilities,
		Fields:    info.Fields,
		TypeArgs:  args,
	})
}

func (mo *Monomorphizer) instantiateEnum(id mvbc.EnumID, args []types.TypeID) types.TypeID {
	def := mo.prog.EnumByID(id)
	if def == nil || len(args) == 0 {
		if def != nil {
			return def.TypeID
		}
		return types.NoTypeID
	}
	info, ok := mo.prog.Types.EnumInfo(def.TypeID)
	if !ok {
		return def.TypeID
	}
	if existing, ok := mo.prog.Types.FindEnumInstance(info.Name, args); ok {
		return existing
	}
	return mo.prog.Types.RegisterEnum(types.EnumInfo{
		Name:     info.Name,
		Module:   info.Module,
		Variants: info.Variants,
		TypeArgs: args,
	})
}

func downgradeOpcode(op mvbc.Opcode) mvbc.Opcode {
	switch op {
	case mvbc.OpPackGeneric:
		return mvbc.OpPack
	case mvbc.OpUnpackGeneric:
		return mvbc.OpUnpack
	case mvbc.OpBorrowFieldGeneric:
		return mvbc.OpBorrowField
	case mvbc.OpPackVariantGeneric:
		return mvbc.OpPackVariant
	case mvbc.OpUnpackVariantGeneric:
		return mvbc.OpUnpackVariant
	default:
		return op
	}
}

func substParamList(in *types.Interner, params []mvbc.Param, args []types.TypeID) []mvbc.Param {
	out := make([]mvbc.Param, len(params))
	for i, p := range params {
		out[i] = mvbc.Param{Name: p.Name, Type: substType(in, p.Type, args)}
	}
	return out
}

func substTypeList(in *types.Interner, list []types.TypeID, args []types.TypeID) []types.TypeID {
	out := make([]types.TypeID, len(list))
	for i, t := range list {
		out[i] = substType(in, t, args)
	}
	return out
}
