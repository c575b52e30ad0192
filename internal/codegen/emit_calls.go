package codegen

import (
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/objectmodel"
	"github.com/rather-labs/move-stylus-poc/internal/wasmenc"
)

// emitNativeCall lowers the fixed Stylus-framework native set
// internal/objectmodel recognizes: object lifecycle,
// tx_context accessors, and event emission. These have no Move
// bytecode body — FuncTarget names the declaration site only, used
// here purely to recover which module::function pair was called.
func emitNativeCall(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	fn := ctx.prog.FunctionByID(ins.FuncTarget)
	mod := ctx.prog.ModuleByID(fn.Module)
	native := objectmodel.Recognize(ctx.prog.Strings, mod.Name, fn.Name)

	switch native {
	case objectmodel.ObjectNew:
		// object::new(ctx: &TxContext): UID — the UID derives from
		// msg_sender and a per-call counter (rt_object_new), never from
		// the TxContext argument itself, which is dropped unread.
		b.Drop()
		b.Call(ctx.env.FuncIndex(native.RuntimeCall()))

	case objectmodel.ObjectDelete:
		// object::delete(obj: T) — the object's embedded UID sits at
		// offset 0 (internal/layout's computeStructLayout reserves the
		// object's first 32 bytes for it), so obj's own address already
		// is the uid_ptr rt_object_delete wants.
		b.Call(ctx.env.FuncIndex(native.RuntimeCall()))

	case objectmodel.TransferTransfer, objectmodel.TransferPublicTransfer:
		tag, _ := native.OwnerTag()
		b.LocalSet(ctx.scratch0) // recipient address, popped off the top
		// obj's address (uid_ptr) is left on the stack underneath.
		b.I32Const(int32(tag))
		b.LocalGet(ctx.scratch0)
		b.Call(ctx.env.FuncIndex(native.RuntimeCall()))

	case objectmodel.TransferShareObject, objectmodel.TransferFreezeObject:
		tag, _ := native.OwnerTag()
		b.I32Const(int32(tag))
		b.I32Const(0) // no target address for shared/frozen ownership
		b.Call(ctx.env.FuncIndex(native.RuntimeCall()))

	case objectmodel.TxContextSender:
		// tx_context::sender(ctx: &TxContext): address
		b.Drop()
		b.I32Const(20)
		b.Call(ctx.env.FuncIndex("rt_alloc"))
		b.LocalTee(ctx.scratch0)
		b.Call(ctx.env.FuncIndex(native.RuntimeCall()))
		b.LocalGet(ctx.scratch0)

	case objectmodel.TxContextEpoch:
		// tx_context::epoch(ctx: &TxContext): u64 — this backend has no
		// distinct epoch counter, so the chain's block number stands in
		// for it, the same substitution objectmodel's doc comment on
		// RuntimeCall documents.
		b.Drop()
		b.Call(ctx.env.FuncIndex(native.RuntimeCall()))

	case objectmodel.EventEmit:
		return emitEventEmit(b, ctx, ins)

	default:
		modStr, _ := ctx.prog.Strings.Lookup(mod.Name)
		fnStr, _ := ctx.prog.Strings.Lookup(fn.Name)
		return unsupportedf(ctx.fnName(), "%s::%s is not a recognized Stylus-framework native", modStr, fnStr)
	}
	return nil
}

// emitEventEmit lowers event::emit<T>(payload: T): payload's address
// and its monomorphized MemSize are exactly what rt_emit_event needs
// as (data_ptr, data_len), since event payloads carry no ability that
// would make them scalar-represented.
func emitEventEmit(b *wasmenc.Builder, ctx *funcCtx, ins mvbc.Instr) error {
	l, err := ctx.le.LayoutOf(ins.ResolvedType)
	if err != nil {
		return err
	}
	b.I32Const(int32(l.MemSize))
	b.Call(ctx.env.FuncIndex("rt_emit_event"))
	return nil
}
