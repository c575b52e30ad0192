package layout

// Target describes the addressable-memory properties of the emitted
// WASM module. Stylus's WASM32 model is the only target implemented.
type Target struct {
	Triple   string
	PtrSize  int // bytes; 4 for wasm32 linear-memory addresses
	PtrAlign int
}

// Wasm32Stylus is the only supported target: 32-bit linear-memory
// pointers, as required by the Arbitrum Stylus ABI.
func Wasm32Stylus() Target {
	return Target{
		Triple:   "wasm32-unknown-stylus",
		PtrSize:  4,
		PtrAlign: 4,
	}
}
