package diag

import "fmt"

// Location pins a diagnostic to the module/function context it came
// from. Move bytecode carries no source spans once loaded, so a
// module/function/offset triple is the finest-grained position a
// diagnostic can point at.
type Location struct {
	Module   string
	Function string
	Offset   int // bytecode offset within Function, -1 if not applicable
}

func (l Location) String() string {
	switch {
	case l.Module == "":
		return "<unknown>"
	case l.Function == "":
		return l.Module
	case l.Offset < 0:
		return fmt.Sprintf("%s::%s", l.Module, l.Function)
	default:
		return fmt.Sprintf("%s::%s@%d", l.Module, l.Function, l.Offset)
	}
}
