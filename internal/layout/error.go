package layout

import (
	"fmt"
	"strings"

	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// ErrorKind enumerates the ways layout computation can fail.
type ErrorKind uint8

const (
	// ErrRecursiveUnsized indicates a type cycle with no vector/object
	// indirection to break it (says layout is tree-shaped;
	// a cycle here means the loader let through an invalid struct).
	ErrRecursiveUnsized ErrorKind = iota + 1
	// ErrOverflow indicates a type's memory footprint exceeds what a
	// 32-bit WASM linear-memory offset can address.
	ErrOverflow
	// ErrHasTypeParam indicates layout was requested for a type that
	// is not yet concrete.
	ErrHasTypeParam
)

// Error represents a failure computing a TypeLayout.
type Error struct {
	Kind  ErrorKind
	Type  types.TypeID
	Cycle []types.TypeID
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrRecursiveUnsized:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive type has infinite size (type#%d)", e.Type)
		}
		parts := make([]string, 0, len(e.Cycle))
		for _, id := range e.Cycle {
			parts = append(parts, fmt.Sprintf("type#%d", id))
		}
		return fmt.Sprintf("recursive type has infinite size (cycle: %s)", strings.Join(parts, " -> "))
	case ErrOverflow:
		return fmt.Sprintf("layout overflow: type#%d exceeds addressable size", e.Type)
	case ErrHasTypeParam:
		return fmt.Sprintf("layout requested for non-concrete type#%d", e.Type)
	default:
		return fmt.Sprintf("layout error kind=%d type#%d", e.Kind, e.Type)
	}
}
