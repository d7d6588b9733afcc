package ir

import "github.com/medihbt/remusys-ir-sub003/internal/types"

// Builder is a thin convenience layer over Module's low-level New*/Add*
// primitives, one method per opcode.
// It always inserts at the tail of the given block; callers that
// need mid-block insertion (lowering passes) use Module directly.
type Builder struct {
	M *Module
}

// NewBuilder wraps m.
func NewBuilder(m *Module) *Builder { return &Builder{M: m} }

func (b *Builder) emit(block BlockID, inst Instruction) InstID {
	id := b.M.NewInstruction(inst)
	b.M.AppendInstruction(block, id)
	return id
}

// BinOp emits an integer binary operator.
func (b *Builder) BinOp(block BlockID, op Opcode, typ types.ID, lhs, rhs ValueSSA) InstID {
	if !op.IsIntBinOp() {
		panic("ir: BinOp called with non-integer opcode " + op.String())
	}
	id := b.emit(block, Instruction{opcode: op, resultType: typ})
	b.M.AddUse(id, UseBinLHS, lhs, 0)
	b.M.AddUse(id, UseBinRHS, rhs, 0)
	return id
}

// FBinOp emits a floating-point binary operator.
func (b *Builder) FBinOp(block BlockID, op Opcode, typ types.ID, lhs, rhs ValueSSA) InstID {
	if !op.IsFloatBinOp() {
		panic("ir: FBinOp called with non-float opcode " + op.String())
	}
	id := b.emit(block, Instruction{opcode: op, resultType: typ})
	b.M.AddUse(id, UseBinLHS, lhs, 0)
	b.M.AddUse(id, UseBinRHS, rhs, 0)
	return id
}

// Icmp emits an integer comparison, always of type i1.
func (b *Builder) Icmp(block BlockID, cond ICmpCond, i1Type types.ID, lhs, rhs ValueSSA) InstID {
	id := b.emit(block, Instruction{opcode: OpIcmp, resultType: i1Type, icmpCond: cond})
	b.M.AddUse(id, UseBinLHS, lhs, 0)
	b.M.AddUse(id, UseBinRHS, rhs, 0)
	return id
}

// Fcmp emits a floating-point comparison, always of type i1.
func (b *Builder) Fcmp(block BlockID, cond FCmpCond, i1Type types.ID, lhs, rhs ValueSSA) InstID {
	id := b.emit(block, Instruction{opcode: OpFcmp, resultType: i1Type, fcmpCond: cond})
	b.M.AddUse(id, UseBinLHS, lhs, 0)
	b.M.AddUse(id, UseBinRHS, rhs, 0)
	return id
}

// Cast emits a value conversion.
func (b *Builder) Cast(block BlockID, kind CastKind, srcType, dstType types.ID, src ValueSSA) InstID {
	id := b.emit(block, Instruction{opcode: OpCast, resultType: dstType, castKind: kind, auxType: srcType})
	b.M.AddUse(id, UseCastSource, src, 0)
	return id
}

// Load emits a memory load through ptr, aligned to 1<<alignLog2 bytes.
func (b *Builder) Load(block BlockID, typ types.ID, ptr ValueSSA, alignLog2 uint8) InstID {
	id := b.emit(block, Instruction{opcode: OpLoad, resultType: typ, alignLog2: alignLog2})
	b.M.AddUse(id, UseLoadPointer, ptr, 0)
	return id
}

// Store emits a memory store of src through ptr.
func (b *Builder) Store(block BlockID, srcType types.ID, src, ptr ValueSSA, alignLog2 uint8) InstID {
	id := b.emit(block, Instruction{opcode: OpStore, resultType: types.Void, alignLog2: alignLog2, auxType: srcType})
	b.M.AddUse(id, UseStoreSource, src, 0)
	b.M.AddUse(id, UseStoreTarget, ptr, 0)
	return id
}

// Alloca emits a fixed-size stack allocation of pointeeType, returning a
// pointer. Size is derived from pointeeType at lowering time; there is no
// count operand here, dynamic allocation is deferred (see OpDynAlloca).
func (b *Builder) Alloca(block BlockID, ptrType, pointeeType types.ID, alignLog2 uint8) InstID {
	return b.emit(block, Instruction{opcode: OpAlloca, resultType: ptrType, auxType: pointeeType, alignLog2: alignLog2})
}

// GEP emits a pointer-arithmetic step over baseType, with one index operand
// per indices entry.
func (b *Builder) GEP(block BlockID, resultPtrType, baseType types.ID, base ValueSSA, indices []ValueSSA) InstID {
	id := b.emit(block, Instruction{opcode: OpGEP, resultType: resultPtrType, auxType: baseType})
	b.M.AddUse(id, UseGepBase, base, 0)
	for i, idx := range indices {
		b.M.AddUse(id, UseGepIndex, idx, uint32(i))
	}
	return id
}

// Select emits a value-level conditional (cond must be i1).
func (b *Builder) Select(block BlockID, typ types.ID, cond, ifTrue, ifFalse ValueSSA) InstID {
	id := b.emit(block, Instruction{opcode: OpSelect, resultType: typ})
	b.M.AddUse(id, UseSelectCond, cond, 0)
	b.M.AddUse(id, UseSelectTrue, ifTrue, 0)
	b.M.AddUse(id, UseSelectFalse, ifFalse, 0)
	return id
}

// Phi emits a pre-split SSA merge point: one (value, predecessor-block)
// pair per incoming edge. Phi is rewritten to EdgePhi by the φ-elimination
// pass; frontends build Phi, the pipeline never does.
func (b *Builder) Phi(block BlockID, typ types.ID, incoming []PhiIncoming) InstID {
	id := b.emit(block, Instruction{opcode: OpPhi, resultType: typ})
	for i, inc := range incoming {
		b.M.AddUse(id, UsePhiIncomingValue, inc.Value, uint32(i))
		b.M.AddUse(id, UsePhiIncomingBlock, BlockValue(inc.Block), uint32(i))
	}
	return id
}

// PhiIncoming is one incoming edge of a Phi.
type PhiIncoming struct {
	Value ValueSSA
	Block BlockID
}

// EdgePhi emits the edge-indexed canonical merge point that φ-elimination
// produces. Incoming pairs are added afterward via
// Module.AddEdgePhiIncoming once the corresponding JumpTargID edges exist.
func (b *Builder) EdgePhi(block BlockID, typ types.ID) InstID {
	return b.emit(block, Instruction{opcode: OpEdgePhi, resultType: typ})
}

// EdgePhiBefore emits an edge-indexed merge point immediately before at,
// used by φ-elimination to replace a Phi in place so block order and the
// phis-only-at-head invariant are never disturbed.
func (b *Builder) EdgePhiBefore(at InstID, typ types.ID) InstID {
	id := b.M.NewInstruction(Instruction{opcode: OpEdgePhi, resultType: typ})
	b.M.InsertInstructionBefore(at, id)
	return id
}

// Call emits a direct or indirect call. retType is types.Void for a
// void-returning callee.
func (b *Builder) Call(block BlockID, retType types.ID, callee ValueSSA, args []ValueSSA) InstID {
	id := b.emit(block, Instruction{opcode: OpCall, resultType: retType})
	b.M.AddUse(id, UseCallCallee, callee, 0)
	for i, a := range args {
		b.M.AddUse(id, UseCallArg, a, uint32(i))
	}
	return id
}

// Ret emits a return terminator. Pass ir.None for `ret void`.
func (b *Builder) Ret(block BlockID, value ValueSSA) InstID {
	id := b.emit(block, Instruction{opcode: OpRet, resultType: types.Void})
	if !value.IsNone() {
		b.M.AddUse(id, UseRetValue, value, 0)
	}
	return id
}

// Jump emits an unconditional branch terminator.
func (b *Builder) Jump(block BlockID, target BlockID) InstID {
	id := b.emit(block, Instruction{opcode: OpJump, resultType: types.Void})
	b.M.AddJumpTarget(id, JumpTargetJump, target, 0, 0)
	return id
}

// Br emits a conditional branch terminator; cond must be i1.
func (b *Builder) Br(block BlockID, cond ValueSSA, ifTrue, ifFalse BlockID) InstID {
	id := b.emit(block, Instruction{opcode: OpBr, resultType: types.Void})
	b.M.AddUse(id, UseBranchCond, cond, 0)
	b.M.AddJumpTarget(id, JumpTargetBrTrue, ifTrue, 0, 0)
	b.M.AddJumpTarget(id, JumpTargetBrFalse, ifFalse, 0, 0)
	return id
}

// SwitchCase is one value->block arm of a Switch.
type SwitchCase struct {
	Lo, Hi uint64 // equal for a single-value case.
	Target BlockID
}

// Switch emits a multiway branch terminator. default_ is mandatory: the
// canonical Switch always carries a non-optional default arm.
func (b *Builder) Switch(block BlockID, value ValueSSA, default_ BlockID, cases []SwitchCase) InstID {
	id := b.emit(block, Instruction{opcode: OpSwitch, resultType: types.Void})
	b.M.AddUse(id, UseSwitchValue, value, 0)
	b.M.AddJumpTarget(id, JumpTargetSwitchDefault, default_, 0, 0)
	for _, c := range cases {
		b.M.AddJumpTarget(id, JumpTargetSwitchCase, c.Target, c.Lo, c.Hi)
	}
	return id
}

// Unreachable emits the "this point can never execute" terminator.
func (b *Builder) Unreachable(block BlockID) InstID {
	return b.emit(block, Instruction{opcode: OpUnreachable, resultType: types.Void})
}
