package lower

import (
	"sort"

	"github.com/medihbt/remusys-ir-sub003/internal/ir"
)

// EliminatePhis rewrites every Phi instruction in fn into the edge-indexed
// EdgePhi form instruction selection expects, matching each (value,
// predecessor-block) pair to the JumpTargID of the edge actually carrying
// it. Must run after BreakCriticalEdges, whose relay blocks guarantee every
// predecessor edge here is safe to treat as a single, unshared source for
// the value.
//
// Returns the number of Phi instructions rewritten.
func EliminatePhis(m *ir.Module, fn ir.GlobalID) int {
	b := ir.NewBuilder(m)
	count := 0
	for _, bid := range m.Blocks(fn) {
		for _, iid := range m.Instructions(bid) {
			if m.Inst(iid).Opcode() != ir.OpPhi {
				break // Phi/EdgePhi only ever appear at a block's head.
			}
			eliminateOnePhi(m, b, bid, iid)
			count++
		}
	}
	return count
}

type phiIncoming struct {
	value ir.ValueSSA
	block ir.BlockID
}

func eliminateOnePhi(m *ir.Module, b *ir.Builder, bid ir.BlockID, old ir.InstID) {
	inst := m.Inst(old)
	typ := inst.ResultType()

	incoming := map[uint32]phiIncoming{}
	for _, uid := range m.Operands(old) {
		use := m.UseOf(uid)
		p := incoming[use.Index()]
		switch use.Kind() {
		case ir.UsePhiIncomingValue:
			p.value = use.Target()
		case ir.UsePhiIncomingBlock:
			p.block = use.Target().BlockID()
		}
		incoming[use.Index()] = p
	}
	indices := make([]uint32, 0, len(incoming))
	for idx := range incoming {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	newID := b.EdgePhiBefore(old, typ)
	for _, idx := range indices {
		p := incoming[idx]
		edge := edgeFromTo(m, p.block, bid)
		m.AddEdgePhiIncoming(newID, edge, p.value)
	}

	m.ReplaceUses(ir.InstValue(typ, old), ir.InstValue(typ, newID))
	for _, uid := range m.Operands(old) {
		m.RemoveUse(uid)
	}
	m.RemoveInstruction(old)
}

// edgeFromTo finds the JumpTargID of the (only) edge running from block
// `from` to block `to`, panicking if none exists: a Phi incoming pair
// naming a block that doesn't actually branch to the Phi's block is a
// malformed IR graph that Check should have already rejected upstream.
func edgeFromTo(m *ir.Module, from, to ir.BlockID) ir.JumpTargID {
	for _, jid := range m.Predecessors(to) {
		if m.Inst(m.JumpTargetOf(jid).Owner()).Parent() == from {
			return jid
		}
	}
	panic("lower: phi incoming block has no matching predecessor edge")
}
