package wasmir

// TermKind enumerates the ways one basic block hands control to
// another.
type TermKind uint8

const (
	TermNone TermKind = iota
	// TermReturn ends the function, returning the values already on
	// the operand stack (their count/types come from the owning
	// Func.Results).
	TermReturn
	// TermAbort ends the function abnormally with a Move abort code
	//; codegen lowers this to a Stylus revert.
	TermAbort
	// TermGoto is an unconditional jump.
	TermGoto
	// TermIf branches on the boolean already popped off the operand
	// stack by the source OpBranchIf/OpBranchIfFalse.
	TermIf
	// TermSwitch dispatches on an enum's variant tag (OpVariantSwitch).
	TermSwitch
)

// Terminator ends a Block.
type Terminator struct {
	Kind TermKind

	Goto BlockID // TermGoto

	If IfTerm // TermIf

	Switch SwitchTerm // TermSwitch

	AbortCode uint64 // TermAbort
}

// IfTerm names the block reached when the condition is true and the
// block reached when it is false, independent of whether the source
// bytecode used OpBranchIf or OpBranchIfFalse to express it.
type IfTerm struct {
	Then BlockID
	Else BlockID
}

// SwitchTerm dispatches on an enum discriminant; Cases[i] is the
// target for variant tag i.
type SwitchTerm struct {
	Cases []BlockID
}
