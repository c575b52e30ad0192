package runtime

import "github.com/rather-labs/move-stylus-poc/internal/wasmenc"

// eventFunc builds `rt_emit_event(data_ptr, data_len)`, forwarding an
// already-ABI-encoded event payload (internal/abi does the encoding;
// internal/objectmodel lowers `event::emit` to this call) straight to
// the `emit_log` host hook with zero topics — Move events have no
// indexed-topic concept, so every event is logged as pure data,
// mirroring how the original Sui-style `event::emit` has no equivalent
// to Solidity's indexed parameters.
func eventFunc() Func {
	return Func{
		Name: "rt_emit_event",
		Type: ft([]wasmenc.ValType{i32(), i32()}),
		Build: func(ix Indexer) []byte {
			b := wasmenc.NewBuilder()
			b.LocalGet(0)
			b.LocalGet(1)
			b.I32Const(0) // topics_ptr, unused
			b.I32Const(0) // num_topics
			b.Call(ix.FuncIndex("emit_log"))
			return b.Finish()
		},
	}
}
