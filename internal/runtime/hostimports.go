package runtime

import "github.com/rather-labs/move-stylus-poc/internal/wasmenc"

// HostFunc names one Stylus `vm_hooks` import: the boundary this
// backend's emitted module never implements itself, only declares.
// internal/driver turns each of these into a wasmenc.Import in the
// "vm_hooks" module namespace, occupying the first slots of the
// function index space.
type HostFunc struct {
	Field string
	Type  wasmenc.FuncType
}

// HostImports lists every vm_hooks import this backend's runtime and
// router layers call into. Every wide-pointer argument/result is an
// i32 offset into the module's own linear memory; the embedder reads
// or writes through it exactly as the Arbitrum Stylus ABI defines.
func HostImports() []HostFunc {
	return []HostFunc{
		{"read_args", ft([]wasmenc.ValType{i32()})},
		{"write_result", ft([]wasmenc.ValType{i32(), i32()})},
		{"storage_load_bytes32", ft([]wasmenc.ValType{i32(), i32()})},
		{"storage_store_bytes32", ft([]wasmenc.ValType{i32(), i32()})},
		{"emit_log", ft([]wasmenc.ValType{i32(), i32(), i32(), i32()})},
		{"msg_sender", ft([]wasmenc.ValType{i32()})},
		{"msg_value", ft([]wasmenc.ValType{i32()})},
		{"block_number", ft(nil, i64())},
		{"block_basefee", ft([]wasmenc.ValType{i32()})},
		{"block_gas_limit", ft(nil, i64())},
		{"block_timestamp", ft(nil, i64())},
		{"chain_id", ft(nil, i64())},
		{"tx_gas_price", ft([]wasmenc.ValType{i32()})},
		{"native_keccak256", ft([]wasmenc.ValType{i32(), i32(), i32()})},
	}
}
