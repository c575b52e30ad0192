package mvbc

import "fmt"

// ErrorKind partitions the loader's fatal error taxonomy.
type ErrorKind uint8

const (
	ErrBadBytecode ErrorKind = iota
	ErrUnresolvedHandle
	ErrBadInit
	ErrUnsupportedFeature
)

// LoadError is the loader's CompileError variant: every
// kind carries the module/function context it was raised in.
type LoadError struct {
	Kind     ErrorKind
	Module   string
	Function string
	Detail   string
}

func (e *LoadError) Error() string {
	loc := e.Module
	if e.Function != "" {
		loc = fmt.Sprintf("%s::%s", e.Module, e.Function)
	}
	switch e.Kind {
	case ErrBadBytecode:
		return fmt.Sprintf("bad bytecode (%s): %s", loc, e.Detail)
	case ErrUnresolvedHandle:
		return fmt.Sprintf("unresolved handle (%s): %s", loc, e.Detail)
	case ErrBadInit:
		return fmt.Sprintf("bad init (%s): %s", loc, e.Detail)
	case ErrUnsupportedFeature:
		return fmt.Sprintf("unsupported feature (%s): %s", loc, e.Detail)
	default:
		return fmt.Sprintf("load error (%s): %s", loc, e.Detail)
	}
}

func badBytecode(module, detail string) *LoadError {
	return &LoadError{Kind: ErrBadBytecode, Module: module, Detail: detail}
}

func unresolvedHandle(module, detail string) *LoadError {
	return &LoadError{Kind: ErrUnresolvedHandle, Module: module, Detail: detail}
}

func unsupportedFeature(module, fn, detail string) *LoadError {
	return &LoadError{Kind: ErrUnsupportedFeature, Module: module, Function: fn, Detail: detail}
}

func badInit(module, fn, detail string) *LoadError {
	return &LoadError{Kind: ErrBadInit, Module: module, Function: fn, Detail: detail}
}
