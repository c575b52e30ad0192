// Package mono implements the Monomorphization stage (M):
// every generic function, struct, and enum is eagerly specialized for
// each concrete tuple of type arguments it is used with, so codegen
// never has to pass a runtime type dictionary.
package mono

import (
	"strconv"
	"strings"

	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// Key identifies one instantiation of a generic function: the
// template it came from plus its normalized type arguments.
type Key struct {
	Fn   mvbc.FunctionID
	Args string
}

func newKey(fn mvbc.FunctionID, args []types.TypeID) Key {
	return Key{Fn: fn, Args: argsKey(args)}
}

// argsKey renders a type-argument tuple as a stable map key. TypeID is
// already a deduplicated interner handle, so distinct instantiations
// with structurally equal arguments always collide onto the same key.
func argsKey(args []types.TypeID) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	return b.String()
}
