package mvbc

import "github.com/rather-labs/move-stylus-poc/internal/types"

// Opcode enumerates every Move bytecode instruction this loader
// understands and internal/codegen knows how to select an
// instruction sequence for.
type Opcode uint8

const (
	OpNop Opcode = iota

	// Stack/local manipulation.
	OpPop
	OpLdConst // operand: ConstIdx into the owning module's constant pool
	OpLdTrue
	OpLdFalse
	OpLdU8
	OpLdU16
	OpLdU32
	OpLdU64
	OpLdU128
	OpLdU256
	OpCopyLoc
	OpMoveLoc
	OpStLoc
	OpBorrowLoc
	OpBorrowField
	OpBorrowFieldGeneric
	OpReadRef
	OpWriteRef
	OpFreezeRef

	// Arithmetic / bitwise / comparison, operating on the stack's top
	// one or two operands; Width records the operand's integer width.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpNot // boolean not
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpCastU8
	OpCastU16
	OpCastU32
	OpCastU64
	OpCastU128
	OpCastU256

	// Control flow.
	OpBranch
	OpBranchIf
	OpBranchIfFalse
	OpRet
	OpAbort

	// Calls.
	OpCall
	OpCallGeneric

	// Struct/enum.
	OpPack
	OpPackGeneric
	OpUnpack
	OpUnpackGeneric
	OpPackVariant
	OpPackVariantGeneric
	OpUnpackVariant
	OpUnpackVariantGeneric
	OpVariantSwitch

	// Vector.
	OpVecPack
	OpVecLen
	OpVecImmBorrow
	OpVecMutBorrow
	OpVecPushBack
	OpVecPopBack
	OpVecSwap
	OpVecUnpack

	// Stylus-framework natives, lowered directly by internal/objectmodel
	// rather than through ordinary call codegen.
	OpNativeCall
)

// Instr is one bytecode instruction. Not every field is meaningful
// for every Opcode; codegen consults only the fields its opcode
// defines, mirroring the shape of the source format's variable-length
// operand instructions.
type Instr struct {
	Op Opcode

	// Local/const/field/variant indices.
	Index uint32
	// Immediate integer literal. OpLdU8..OpLdU64 use the low bits of Imm;
	// OpLdU128/OpLdU256 carry their full width as a little-endian
	// ImmWide instead, since it does not fit in a uint64. Non-integer
	// literals (vectors, addresses, byte strings) go through the
	// constant pool via OpLdConst.
	Imm     uint64
	ImmWide []byte

	// Struct/enum/function targets, resolved to global IDs by the loader.
	StructTarget StructID
	EnumTarget   EnumID
	FuncTarget   FunctionID
	VariantIndex int

	// Generic instantiation arguments, present on the *Generic opcodes
	// before internal/mono rewrites them away.
	TypeArgs []types.TypeID

	// ResolvedType is filled in by internal/mono for struct/enum pack,
	// unpack, and field-borrow instructions: the concrete (TypeParam-free)
	// struct or enum instance this instruction operates on. Codegen reads
	// layouts from ResolvedType rather than re-deriving them from
	// StructTarget/EnumTarget, which continue to name the generic
	// template shared by every instantiation.
	ResolvedType types.TypeID

	// Branch targets are code offsets within the owning function,
	// exactly as stored in the bytecode.
	BranchTarget      int
	VariantTargets    []int // OpVariantSwitch: one target per variant tag

	// Width records the operand integer width for arithmetic/cast ops.
	Width int

	// AbortCode is the immediate abort code for a user assert.
	AbortCode uint64
}
