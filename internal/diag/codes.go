package diag

import "fmt"

// Code partitions diagnostics by pipeline stage, reserving one
// thousand-numbered block per compiler phase.
type Code uint16

const (
	UnknownCode Code = 0

	// Loader (L): 1000-1999
	LoadInfo             Code = 1000
	LoadBadBytecode      Code = 1001
	LoadUnresolvedHandle Code = 1002
	LoadBadInit          Code = 1003
	LoadUnsupportedEnum  Code = 1004

	// Layout (T): 2000-2999
	LayoutInfo         Code = 2000
	LayoutOverflow     Code = 2001
	LayoutRecursive    Code = 2002
	LayoutBadAbiClass  Code = 2003

	// Monomorphization (M): 3000-3999
	MonoInfo           Code = 3000
	MonoMaxDepth       Code = 3001
	MonoUnresolvedType Code = 3002

	// Codegen (C): 4000-4999
	CodegenInfo               Code = 4000
	CodegenUnsupportedFeature Code = 4001
	CodegenStackImbalance     Code = 4002
	CodegenInternalInvariant  Code = 4003

	// Router/runtime (R): 5000-5999
	RouterInfo         Code = 5000
	RouterOTWUnused    Code = 5001
	RouterBadSelector  Code = 5002
	RouterDuplicateFn  Code = 5003
	RouterUnsupportedSignature Code = 5004

	// Project/driver: 6000-6999
	ProjInfo           Code = 6000
	ProjMissingDep     Code = 6001
	ProjCyclicModules  Code = 6002
)

func (c Code) String() string {
	return fmt.Sprintf("M%04d", uint16(c))
}
