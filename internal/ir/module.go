package ir

import (
	"github.com/medihbt/remusys-ir-sub003/internal/arena"
	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

// moduleGlobalsListID is the fixed List identifier for a Module's top-level
// global declaration order; there is exactly one such list per module, so
// it needs no per-instance uniqueness, only a value no real Global handle
// will ever collide with.
const moduleGlobalsListID = arena.Handle(arena.NullHandle - 1)

// Module is the top-level compilation unit: the type context plus every
// arena that backs the IR graph. It owns the wiring helpers
// that keep the forward operand lists, reverse user lists, and
// predecessor/successor edges mutually consistent — this is the one place
// that is allowed to reach into the unexported ownerLink/userLink/predLink
// fields of Use, JumpTarget, Instruction, Block, and Global.
type Module struct {
	Types *types.Context

	insts       arena.Arena[Instruction]
	blocks      arena.Arena[Block]
	globals     arena.Arena[Global]
	uses        arena.Arena[Use]
	jumpTargets arena.Arena[JumpTarget]
	constExprs  arena.Arena[ConstExpr]

	globalOrder arena.ListState
}

// NewModule creates an empty module over a fresh type context.
func NewModule() *Module {
	return &Module{Types: types.NewContext()}
}

// --- Arena accessors -------------------------------------------------

func (m *Module) Inst(id InstID) *Instruction     { return m.insts.Get(arena.Handle(id)) }
func (m *Module) BlockOf(id BlockID) *Block       { return m.blocks.Get(arena.Handle(id)) }
func (m *Module) GlobalOf(id GlobalID) *Global    { return m.globals.Get(arena.Handle(id)) }
func (m *Module) UseOf(id UseID) *Use             { return m.uses.Get(arena.Handle(id)) }
func (m *Module) JumpTargetOf(id JumpTargID) *JumpTarget {
	return m.jumpTargets.Get(arena.Handle(id))
}
func (m *Module) ConstExprOf(id ConstExprID) *ConstExpr {
	return m.constExprs.Get(arena.Handle(id))
}

// --- list-view constructors -------------------------------------------

func (m *Module) operandsOf(inst *Instruction) *arena.List[Use] {
	return arena.Resume(&m.uses, arena.Handle(inst.self), (*Use).ownerLinks, inst.operands)
}

func (m *Module) usersOfInst(inst *Instruction) *arena.List[Use] {
	return arena.Resume(&m.uses, arena.Handle(inst.self), (*Use).userLinks, inst.users)
}

func (m *Module) usersOfGlobal(g *Global) *arena.List[Use] {
	return arena.Resume(&m.uses, arena.Handle(g.self), (*Use).userLinks, g.users)
}

func (m *Module) usersOfConstExpr(c *ConstExpr, self ConstExprID) *arena.List[Use] {
	return arena.Resume(&m.uses, arena.Handle(self), (*Use).userLinks, c.users)
}

func (m *Module) jumpTargetsOf(inst *Instruction) *arena.List[JumpTarget] {
	return arena.Resume(&m.jumpTargets, arena.Handle(inst.self), (*JumpTarget).ownerLinks, inst.jumpTargets)
}

func (m *Module) predsOf(b *Block) *arena.List[JumpTarget] {
	return arena.Resume(&m.jumpTargets, arena.Handle(b.self), (*JumpTarget).predLinks, b.preds)
}

func (m *Module) instructionsOf(b *Block) *arena.List[Instruction] {
	return arena.Resume(&m.insts, arena.Handle(b.self), (*Instruction).blockLinks, b.instructions)
}

func (m *Module) blocksOf(g *Global) *arena.List[Block] {
	return arena.Resume(&m.blocks, arena.Handle(g.self), (*Block).funcLinks, g.blocks)
}

func (m *Module) globalsList() *arena.List[Global] {
	return arena.Resume(&m.globals, moduleGlobalsListID, (*Global).moduleLinks, m.globalOrder)
}

// --- edge wiring --------------------------------------------------------

// AddUse creates a Use edge: operand `kind`/`index` of `owner`, referencing
// `target`. It appends the edge to owner's ordered operand list and, when
// target denotes an identity-bearing value (Inst/Global/ConstExpr), to that
// value's reverse user list.
func (m *Module) AddUse(owner InstID, kind UseKind, target ValueSSA, index uint32) UseID {
	h := m.uses.Alloc(Use{kind: kind, owner: owner, target: target, index: index})
	use := m.uses.Get(h)

	ownerInst := m.Inst(owner)
	ops := m.operandsOf(ownerInst)
	ops.PushBack(h)
	ops.Save(&ownerInst.operands)

	m.linkUserList(target, h, use)
	return UseID(h)
}

// linkUserList appends use h to target's reverse user list, if target is an
// identity-bearing kind that maintains one.
func (m *Module) linkUserList(target ValueSSA, h arena.Handle, use *Use) {
	switch target.Kind() {
	case ValueInst:
		inst := m.Inst(target.InstID())
		lst := m.usersOfInst(inst)
		lst.PushBack(h)
		lst.Save(&inst.users)
	case ValueGlobal:
		g := m.GlobalOf(target.GlobalID())
		lst := m.usersOfGlobal(g)
		lst.PushBack(h)
		lst.Save(&g.users)
	case ValueConstExpr:
		id := target.ConstExprID()
		c := m.ConstExprOf(id)
		lst := m.usersOfConstExpr(c, id)
		lst.PushBack(h)
		lst.Save(&c.users)
	default:
		// ConstData/AggrZero/FuncArg/Block carry no reverse user list.
	}
}

// RemoveUse detaches and frees a Use edge, unplugging it from both lists it
// may belong to.
func (m *Module) RemoveUse(id UseID) {
	h := arena.Handle(id)
	use := m.UseOf(id)
	owner := m.Inst(use.owner)

	ops := m.operandsOf(owner)
	ops.Unplug(h)
	ops.Save(&owner.operands)

	m.unlinkUserList(use.target, h)
	m.uses.Free(h)
}

func (m *Module) unlinkUserList(target ValueSSA, h arena.Handle) {
	switch target.Kind() {
	case ValueInst:
		inst := m.Inst(target.InstID())
		lst := m.usersOfInst(inst)
		lst.Unplug(h)
		lst.Save(&inst.users)
	case ValueGlobal:
		g := m.GlobalOf(target.GlobalID())
		lst := m.usersOfGlobal(g)
		lst.Unplug(h)
		lst.Save(&g.users)
	case ValueConstExpr:
		id := target.ConstExprID()
		c := m.ConstExprOf(id)
		lst := m.usersOfConstExpr(c, id)
		lst.Unplug(h)
		lst.Save(&c.users)
	}
}

// AddJumpTarget creates a terminator successor edge from owner to target,
// appending it to owner's ordered jump-target list and to target's reverse
// predecessor list.
func (m *Module) AddJumpTarget(owner InstID, kind JumpTargetKind, target BlockID, caseLo, caseHi uint64) JumpTargID {
	h := m.jumpTargets.Alloc(JumpTarget{kind: kind, owner: owner, target: target, caseLo: caseLo, caseHi: caseHi})
	jt := m.jumpTargets.Get(h)

	ownerInst := m.Inst(owner)
	jts := m.jumpTargetsOf(ownerInst)
	jts.PushBack(h)
	jts.Save(&ownerInst.jumpTargets)

	targetBlock := m.BlockOf(target)
	preds := m.predsOf(targetBlock)
	preds.PushBack(h)
	preds.Save(&targetBlock.preds)

	_ = jt
	return JumpTargID(h)
}

// RemoveJumpTarget detaches and frees a successor edge.
func (m *Module) RemoveJumpTarget(id JumpTargID) {
	h := arena.Handle(id)
	jt := m.JumpTargetOf(id)

	owner := m.Inst(jt.owner)
	jts := m.jumpTargetsOf(owner)
	jts.Unplug(h)
	jts.Save(&owner.jumpTargets)

	target := m.BlockOf(jt.target)
	preds := m.predsOf(target)
	preds.Unplug(h)
	preds.Save(&target.preds)

	m.jumpTargets.Free(h)
}

// RetargetJumpTarget moves an existing edge to a new target block, used by
// critical-edge splitting to redirect a terminator at the freshly inserted
// block. The edge keeps its identity (JumpTargID), which is what makes
// EdgePhi's edge-indexed operands still valid after the move.
func (m *Module) RetargetJumpTarget(id JumpTargID, newTarget BlockID) {
	jt := m.JumpTargetOf(id)
	h := arena.Handle(id)

	oldTarget := m.BlockOf(jt.target)
	oldPreds := m.predsOf(oldTarget)
	oldPreds.Unplug(h)
	oldPreds.Save(&oldTarget.preds)

	jt.target = newTarget
	newBlock := m.BlockOf(newTarget)
	newPreds := m.predsOf(newBlock)
	newPreds.PushBack(h)
	newPreds.Save(&newBlock.preds)
}

// ReplaceUses rewrites every existing Use edge referencing old to reference
// new instead, relinking each affected edge onto new's reverse user list
// while keeping its identity (UseID, kind, index) intact. Used by
// φ-elimination to redirect a Phi's users onto its replacement EdgePhi.
func (m *Module) ReplaceUses(old, new ValueSSA) {
	for _, uid := range m.Users(old) {
		h := arena.Handle(uid)
		u := m.UseOf(uid)
		m.unlinkUserList(old, h)
		u.target = new
		m.linkUserList(new, h, u)
	}
}

// RetargetPhiIncomingBlock rewrites a UsePhiIncomingBlock operand's target
// block in place, used by critical-edge splitting to move a plain Phi's
// incoming-edge reference from the original predecessor to the relay block
// spliced between it and the Phi's owning block. Block-kind Use targets
// carry no reverse user list (see linkUserList), so this is a plain field
// write rather than an unlink/relink.
func (m *Module) RetargetPhiIncomingBlock(use UseID, newBlock BlockID) {
	u := m.UseOf(use)
	if u.kind != UsePhiIncomingBlock {
		panic("ir: RetargetPhiIncomingBlock called on a non-phi-incoming-block use")
	}
	u.target = BlockValue(newBlock)
}

// --- instruction / block / global construction --------------------------

// NewInstruction allocates inst in the module's instruction arena, stamping
// its own handle into self, but does not insert it into any block yet.
func (m *Module) NewInstruction(inst Instruction) InstID {
	h := m.insts.Alloc(inst)
	ip := m.insts.Get(h)
	ip.self = InstID(h)
	return InstID(h)
}

// AppendInstruction inserts inst at the tail of block's instruction list.
func (m *Module) AppendInstruction(block BlockID, inst InstID) {
	b := m.BlockOf(block)
	i := m.Inst(inst)
	i.parent = block
	lst := m.instructionsOf(b)
	lst.PushBack(arena.Handle(inst))
	lst.Save(&b.instructions)
}

// InsertInstructionBefore inserts inst immediately before at in at's block.
func (m *Module) InsertInstructionBefore(at InstID, inst InstID) {
	target := m.Inst(at)
	b := m.BlockOf(target.parent)
	i := m.Inst(inst)
	i.parent = target.parent
	lst := m.instructionsOf(b)
	lst.InsertBefore(arena.Handle(inst), arena.Handle(at))
	lst.Save(&b.instructions)
}

// RemoveInstruction unplugs inst from its block's instruction list. The
// instruction's Use/JumpTarget edges are left intact; callers that are
// deleting the instruction entirely are expected to also drop its operands
// via RemoveUse/RemoveJumpTarget (dce.go does both).
func (m *Module) RemoveInstruction(inst InstID) {
	i := m.Inst(inst)
	b := m.BlockOf(i.parent)
	lst := m.instructionsOf(b)
	lst.Unplug(arena.Handle(inst))
	lst.Save(&b.instructions)
	i.parent = NullBlockID
}

// NewBlock allocates an empty block belonging to fn, appending it to fn's
// block list.
func (m *Module) NewBlock(fn GlobalID) BlockID {
	h := m.blocks.Alloc(Block{parent: fn})
	b := m.blocks.Get(h)
	b.self = BlockID(h)

	g := m.GlobalOf(fn)
	lst := m.blocksOf(g)
	lst.PushBack(h)
	lst.Save(&g.blocks)
	return BlockID(h)
}

// NewFunction declares a function global with the given signature and
// appends it to the module's declaration order.
func (m *Module) NewFunction(name string, linkage Linkage, sig types.ID, numArgs uint32) GlobalID {
	h := m.globals.Alloc(Global{kind: GlobalFunction, name: name, linkage: linkage, typ: sig, numArg: numArgs})
	g := m.globals.Get(h)
	g.self = GlobalID(h)
	m.appendGlobal(h)
	return GlobalID(h)
}

// NewVariable declares a data global.
func (m *Module) NewVariable(name string, linkage Linkage, typ types.ID, readOnly bool, init ValueSSA, hasInit bool) GlobalID {
	h := m.globals.Alloc(Global{kind: GlobalVariable, name: name, linkage: linkage, typ: typ, readOnly: readOnly, initializer: init, hasInit: hasInit})
	g := m.globals.Get(h)
	g.self = GlobalID(h)
	m.appendGlobal(h)
	return GlobalID(h)
}

func (m *Module) appendGlobal(h arena.Handle) {
	lst := m.globalsList()
	lst.PushBack(h)
	lst.Save(&m.globalOrder)
}

// RemoveGlobal detaches id from the module's declaration order and frees
// its arena slot. It does not touch the global's blocks/instructions or
// any Use still pointing at it — callers (DCEGlobals) are expected to run
// GC afterwards to reclaim those.
func (m *Module) RemoveGlobal(id GlobalID) {
	h := arena.Handle(id)
	lst := m.globalsList()
	lst.Unplug(h)
	lst.Save(&m.globalOrder)
	m.globals.Free(h)
}

// Globals returns the module's global declarations in declaration order.
func (m *Module) Globals() []GlobalID {
	hs := m.globalsList().ToSlice()
	out := make([]GlobalID, len(hs))
	for i, h := range hs {
		out[i] = GlobalID(h)
	}
	return out
}

// Blocks returns fn's blocks in list order.
func (m *Module) Blocks(fn GlobalID) []BlockID {
	g := m.GlobalOf(fn)
	hs := m.blocksOf(g).ToSlice()
	out := make([]BlockID, len(hs))
	for i, h := range hs {
		out[i] = BlockID(h)
	}
	return out
}

// Instructions returns block's instructions in list order.
func (m *Module) Instructions(block BlockID) []InstID {
	b := m.BlockOf(block)
	hs := m.instructionsOf(b).ToSlice()
	out := make([]InstID, len(hs))
	for i, h := range hs {
		out[i] = InstID(h)
	}
	return out
}

// Operands returns inst's operand Use edges in order.
func (m *Module) Operands(inst InstID) []UseID {
	i := m.Inst(inst)
	hs := m.operandsOf(i).ToSlice()
	out := make([]UseID, len(hs))
	for i, h := range hs {
		out[i] = UseID(h)
	}
	return out
}

// JumpTargets returns a terminator's successor edges in order.
func (m *Module) JumpTargets(inst InstID) []JumpTargID {
	i := m.Inst(inst)
	hs := m.jumpTargetsOf(i).ToSlice()
	out := make([]JumpTargID, len(hs))
	for i, h := range hs {
		out[i] = JumpTargID(h)
	}
	return out
}

// Predecessors returns block's incoming edges.
func (m *Module) Predecessors(block BlockID) []JumpTargID {
	b := m.BlockOf(block)
	hs := m.predsOf(b).ToSlice()
	out := make([]JumpTargID, len(hs))
	for i, h := range hs {
		out[i] = JumpTargID(h)
	}
	return out
}

// Users returns the Use edges that reference value v, if v is an
// identity-bearing kind that maintains a reverse user list.
func (m *Module) Users(v ValueSSA) []UseID {
	var lst *arena.List[Use]
	switch v.Kind() {
	case ValueInst:
		lst = m.usersOfInst(m.Inst(v.InstID()))
	case ValueGlobal:
		lst = m.usersOfGlobal(m.GlobalOf(v.GlobalID()))
	case ValueConstExpr:
		id := v.ConstExprID()
		lst = m.usersOfConstExpr(m.ConstExprOf(id), id)
	default:
		return nil
	}
	hs := lst.ToSlice()
	out := make([]UseID, len(hs))
	for i, h := range hs {
		out[i] = UseID(h)
	}
	return out
}

// AddEdgePhiIncoming appends one (edge, value) pair to an OpEdgePhi
// instruction: a UseEdgePhiIncomingValue Use referencing value, paired
// positionally with the JumpTargID of the predecessor edge it arrived
// along. EdgePhi is indexed by edge identity, which critical-edge splitting
// keeps (it moves edges with RetargetJumpTarget), so splitting leaves
// edgeOperands unchanged.
func (m *Module) AddEdgePhiIncoming(owner InstID, edge JumpTargID, value ValueSSA) UseID {
	i := m.Inst(owner)
	if i.opcode != OpEdgePhi {
		panic("ir: AddEdgePhiIncoming called on non-edgephi instruction")
	}
	idx := uint32(len(i.edgeOperands))
	i.edgeOperands = append(i.edgeOperands, edge)
	return m.AddUse(owner, UseEdgePhiIncomingValue, value, idx)
}

// NewConstExpr interns an aggregate constant literal.
func (m *Module) NewConstExpr(kind ConstExprKind, typ types.ID, elements []ValueSSA) ConstExprID {
	h := m.constExprs.Alloc(ConstExpr{kind: kind, typ: typ, elements: elements})
	return ConstExprID(h)
}
