package ir

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/medihbt/remusys-ir-sub003/internal/arena"
)

// GC performs a mark-sweep collection pass over m: anything reachable from
// the module's declared globals (their blocks, those blocks' instructions,
// and any constant-expression literal referenced along the way) is kept;
// everything else — principally instructions detached by RemoveInstruction,
// which frees no arena storage on its own — is freed. Handles are not
// stable across a GC
// call that actually compacts: every cross-reference this package knows
// about is rewritten through the arenas' redirection maps before returning.
//
// Liveness bitmaps are kept in bitset.BitSet rather than a Go map[Handle]bool:
// arena handles are dense small integers, so a bitset is both the more
// memory-efficient and the more idiomatic structure here.
func GC(m *Module) {
	liveBlocks := bitset.New(uint(m.blocks.Cap()))
	liveInsts := bitset.New(uint(m.insts.Cap()))
	liveConstExprs := bitset.New(uint(m.constExprs.Cap()))

	for _, gid := range m.Globals() {
		g := m.GlobalOf(gid)
		if g.Kind() == GlobalFunction {
			for _, bid := range m.Blocks(gid) {
				liveBlocks.Set(uint(bid))
				for _, iid := range m.Instructions(bid) {
					liveInsts.Set(uint(iid))
					markOperandConstExprs(m, iid, liveConstExprs)
				}
			}
		} else if v, ok := g.Initializer(); ok {
			markValueConstExpr(m, v, liveConstExprs)
		}
	}

	sweepInstructions(m, liveInsts)
	sweepBlocks(m, liveBlocks)
	sweepConstExprs(m, liveConstExprs)

	redirectInsts := m.insts.Compact()
	redirectBlocks := m.blocks.Compact()
	redirectConstExprs := m.constExprs.Compact()
	redirectUses := m.uses.Compact()
	redirectJumpTargets := m.jumpTargets.Compact()

	rewriteHandles(m, redirectInsts, redirectBlocks, redirectConstExprs, redirectUses, redirectJumpTargets)
}

func markOperandConstExprs(m *Module, iid InstID, live *bitset.BitSet) {
	for _, uid := range m.Operands(iid) {
		markValueConstExpr(m, m.UseOf(uid).target, live)
	}
}

func markValueConstExpr(m *Module, v ValueSSA, live *bitset.BitSet) {
	if v.Kind() != ValueConstExpr {
		return
	}
	id := v.ConstExprID()
	if live.Test(uint(id)) {
		return
	}
	live.Set(uint(id))
	for _, elem := range m.ConstExprOf(id).elements {
		markValueConstExpr(m, elem, live)
	}
}

func sweepInstructions(m *Module, live *bitset.BitSet) {
	var orphans []InstID
	m.insts.ForEach(func(h arena.Handle, inst *Instruction) {
		if !live.Test(uint(h)) {
			orphans = append(orphans, InstID(h))
		}
	})
	for _, iid := range orphans {
		freeOrphanInstruction(m, iid)
	}
}

// freeOrphanInstruction releases an instruction's owned Use and JumpTarget
// edges (detaching each from whatever reverse list it still occupies) and
// then the instruction record itself.
func freeOrphanInstruction(m *Module, iid InstID) {
	inst := m.Inst(iid)
	for _, uid := range m.Operands(iid) {
		u := m.UseOf(uid)
		// A target already freed (a global DCEGlobals removed, or an orphan
		// swept earlier in this loop) has no user list left to detach from.
		live := true
		switch u.target.Kind() {
		case ValueInst:
			live = m.insts.Live(arena.Handle(u.target.InstID()))
		case ValueGlobal:
			live = m.globals.Live(arena.Handle(u.target.GlobalID()))
		}
		if live {
			m.unlinkUserList(u.target, arena.Handle(uid))
		}
		m.uses.Free(arena.Handle(uid))
	}
	for _, jid := range m.JumpTargets(iid) {
		jt := m.JumpTargetOf(jid)
		target := m.BlockOf(jt.target)
		preds := m.predsOf(target)
		preds.Unplug(arena.Handle(jid))
		preds.Save(&target.preds)
		m.jumpTargets.Free(arena.Handle(jid))
	}
	_ = inst
	m.insts.Free(arena.Handle(iid))
}

// sweepBlocks frees any block not reachable from a currently-declared
// function global: a block orphaned by DCEGlobals removing its owning
// function (or, in principle, any future block-level unplug) would
// otherwise leak in the blocks arena forever, since Compact only
// renumbers surviving entries rather than discarding unreferenced ones.
func sweepBlocks(m *Module, live *bitset.BitSet) {
	var orphans []BlockID
	m.blocks.ForEach(func(h arena.Handle, _ *Block) {
		if !live.Test(uint(h)) {
			orphans = append(orphans, BlockID(h))
		}
	})
	for _, bid := range orphans {
		m.blocks.Free(arena.Handle(bid))
	}
}

func sweepConstExprs(m *Module, live *bitset.BitSet) {
	var orphans []ConstExprID
	m.constExprs.ForEach(func(h arena.Handle, _ *ConstExpr) {
		if !live.Test(uint(h)) {
			orphans = append(orphans, ConstExprID(h))
		}
	})
	for _, id := range orphans {
		m.constExprs.Free(arena.Handle(id))
	}
}

// rewriteHandles applies each arena's Compact() redirection map to every
// cross-reference field this package threads handles through: both the
// "logical" fields (self/parent/owner/target) and the raw prev/next/
// parentList triples inside every Node embedded in a Use, JumpTarget,
// Instruction, or Block. Any record type added to internal/ir that stores
// a Handle of its own must gain an entry here or GC will silently corrupt
// it after the first Compact (see DESIGN.md).
func rewriteHandles(m *Module,
	insts, blocks, constExprs map[arena.Handle]arena.Handle,
	uses, jumpTargets map[arena.Handle]arena.Handle,
) {
	redirectListState := func(s *arena.ListState, elems map[arena.Handle]arena.Handle) {
		s.Head = redirect(elems, s.Head)
		s.Tail = redirect(elems, s.Tail)
	}

	m.insts.ForEach(func(_ arena.Handle, inst *Instruction) {
		inst.self = InstID(redirect(insts, arena.Handle(inst.self)))
		inst.parent = BlockID(redirect(blocks, arena.Handle(inst.parent)))
		redirectListState(&inst.operands, uses)
		redirectListState(&inst.users, uses)
		redirectListState(&inst.jumpTargets, jumpTargets)
		inst.blockLink.Redirect(insts, blocks)
		for i, e := range inst.edgeOperands {
			inst.edgeOperands[i] = JumpTargID(redirect(jumpTargets, arena.Handle(e)))
		}
	})
	m.blocks.ForEach(func(_ arena.Handle, b *Block) {
		b.self = BlockID(redirect(blocks, arena.Handle(b.self)))
		redirectListState(&b.instructions, insts)
		redirectListState(&b.preds, jumpTargets)
		b.funcLink.Redirect(blocks, nil) // globals arena is never compacted.
	})
	m.globals.ForEach(func(_ arena.Handle, g *Global) {
		// Every global keeps a reverse user list over the Use arena, not
		// just functions — a variable's address-of uses live there too.
		redirectListState(&g.users, uses)
		if g.kind == GlobalFunction {
			redirectListState(&g.blocks, blocks)
		}
	})
	m.uses.ForEach(func(_ arena.Handle, u *Use) {
		u.owner = InstID(redirect(insts, arena.Handle(u.owner)))
		u.target = redirectValue(u.target, insts, blocks, constExprs)
		u.ownerLink.Redirect(uses, insts)
		u.userLink.Redirect(uses, targetIDTable(u.target, insts, constExprs))
	})
	m.jumpTargets.ForEach(func(_ arena.Handle, jt *JumpTarget) {
		jt.owner = InstID(redirect(insts, arena.Handle(jt.owner)))
		jt.target = BlockID(redirect(blocks, arena.Handle(jt.target)))
		jt.ownerLink.Redirect(jumpTargets, insts)
		jt.predLink.Redirect(jumpTargets, blocks)
	})
	m.constExprs.ForEach(func(_ arena.Handle, c *ConstExpr) {
		redirectListState(&c.users, uses)
		for i, e := range c.elements {
			c.elements[i] = redirectValue(e, insts, blocks, constExprs)
		}
	})
}

// targetIDTable picks the redirection map matching whichever arena a Use's
// reverse-list parentList id was drawn from (the target's own identity
// handle), mirroring linkUserList's dispatch.
func targetIDTable(target ValueSSA, insts, constExprs map[arena.Handle]arena.Handle) map[arena.Handle]arena.Handle {
	switch target.Kind() {
	case ValueInst:
		return insts
	case ValueConstExpr:
		return constExprs
	default:
		// ValueGlobal: globals arena is never compacted, id stays stable.
		return nil
	}
}

func redirect(table map[arena.Handle]arena.Handle, h arena.Handle) arena.Handle {
	if h.IsNull() {
		return arena.NullHandle
	}
	if nh, ok := table[h]; ok {
		return nh
	}
	return h
}

func redirectValue(v ValueSSA, insts, blocks, constExprs map[arena.Handle]arena.Handle) ValueSSA {
	switch v.Kind() {
	case ValueInst:
		return InstValue(v.Type(), InstID(redirect(insts, arena.Handle(v.InstID()))))
	case ValueBlock:
		return BlockValue(BlockID(redirect(blocks, arena.Handle(v.BlockID()))))
	case ValueConstExpr:
		return ConstExprValue(v.Type(), ConstExprID(redirect(constExprs, arena.Handle(v.ConstExprID()))))
	default:
		return v
	}
}
