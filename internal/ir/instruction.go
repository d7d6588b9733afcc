package ir

import (
	"github.com/medihbt/remusys-ir-sub003/internal/arena"
	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

// Instruction is a single IR operation: a flattened tagged-union struct
// carrying explicit Use/JumpTarget arena edges as persisted list state, so
// every operand edge is indexed in reverse.
//
// Every Instruction is itself a value with SSA identity: the
// ValueSSA(Inst, self) wrapping its `self` handle is what other
// instructions' Use records point at, threaded through `users`.
type Instruction struct {
	opcode     Opcode
	self       InstID
	parent     BlockID
	resultType types.ID

	// operands is the ordered list of this instruction's own Use edges,
	// threaded via Use.ownerLink.
	operands arena.ListState
	// users is the reverse list of Use edges elsewhere in the module whose
	// target is this instruction's result value, threaded via Use.userLink.
	users arena.ListState
	// jumpTargets is the ordered list of this terminator's JumpTarget
	// edges, threaded via JumpTarget.ownerLink. Empty for non-terminators.
	jumpTargets arena.ListState

	// blockLink places this instruction in its parent block's instruction
	// list.
	blockLink arena.Node

	// Opcode-specific payload: a handful of generic fields reused across
	// families rather than one struct type per op.
	icmpCond  ICmpCond
	fcmpCond  FCmpCond
	castKind  CastKind
	alignLog2 uint8    // byte alignment, log2, for Load/Store/Alloca.
	auxType   types.ID // Store's stored-value type; Alloca/GEP's pointee/base type; Cast's source type.

	// edgeOperands pairs 1:1 with `operands` for OpEdgePhi: operand i's
	// incoming value arrived along edgeOperands[i]. Critical-edge splitting
	// does not rewrite them: it moves an edge with RetargetJumpTarget, which
	// keeps the edge's JumpTargID.
	edgeOperands []JumpTargID
}

func (i *Instruction) blockLinks() *arena.Node { return &i.blockLink }

// Opcode returns the instruction's operation tag.
func (i *Instruction) Opcode() Opcode { return i.opcode }

// Self returns this instruction's own handle, i.e. the identity that
// ValueSSA.InstID() returns when a Use targets this instruction's result.
func (i *Instruction) Self() InstID { return i.self }

// Parent returns the block this instruction currently belongs to.
func (i *Instruction) Parent() BlockID { return i.parent }

// ResultType returns the type of the value this instruction produces, or
// types.Void for instructions with no result (Store, Ret, terminators).
func (i *Instruction) ResultType() types.ID { return i.resultType }

// Value returns the ValueSSA that other instructions reference when they
// use this instruction's result.
func (i *Instruction) Value() ValueSSA { return InstValue(i.resultType, i.self) }

func (i *Instruction) ICmpCond() ICmpCond { return i.icmpCond }
func (i *Instruction) FCmpCond() FCmpCond { return i.fcmpCond }
func (i *Instruction) CastKind() CastKind { return i.castKind }
func (i *Instruction) Alignment() uint64  { return uint64(1) << i.alignLog2 }
func (i *Instruction) AuxType() types.ID  { return i.auxType }

// EdgeOf returns the predecessor edge that operand index k of an OpEdgePhi
// arrived along. Panics if called on any other opcode.
func (i *Instruction) EdgeOf(k int) JumpTargID {
	if i.opcode != OpEdgePhi {
		panic("ir: EdgeOf called on non-edgephi instruction")
	}
	return i.edgeOperands[k]
}

// NumOperands returns the number of Use edges owned by this instruction.
func (i *Instruction) NumOperands() int { return i.operands.Length }

// NumJumpTargets returns the number of successor edges owned by this
// terminator (0 for non-terminators).
func (i *Instruction) NumJumpTargets() int { return i.jumpTargets.Length }

// NumUsers returns how many Use edges elsewhere reference this
// instruction's result value.
func (i *Instruction) NumUsers() int { return i.users.Length }
