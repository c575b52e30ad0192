package driver

import (
	"crypto/sha256"
)

// Digest is a fixed 256-bit content hash. The compile cache keys on
// exactly this (module bytes, dependency digests) composition rather
// than on a mutable timestamp, so a rebuild with unchanged bytecode
// always hits the cache regardless of mtimes.
type Digest [32]byte

// Combine folds content's hash together with zero or more dependency
// digests, in the order given. Callers are responsible for supplying
// a deterministic dependency order.
func Combine(content []byte, deps ...Digest) Digest {
	h := sha256.New()
	h.Write(content)
	for _, d := range deps {
		h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
