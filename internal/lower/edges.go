// Package lower implements the four-pass IR-to-MIR lowering pipeline:
// critical-edge splitting, φ-elimination with instruction selection,
// spill-everywhere register allocation, and stack materialization /
// pre-asm.
package lower

import "github.com/medihbt/remusys-ir-sub003/internal/ir"

// criticalEdge is one A->B edge (possibly carrying several same-endpoint
// JumpTarget edges, when a Switch has multiple case values jumping to the
// same block) that needs a relay block spliced in.
type criticalEdge struct {
	from ir.BlockID
	to   ir.BlockID
	jts  []ir.JumpTargID
}

// BreakCriticalEdges splits every critical edge in fn: an edge A->B is
// critical when A ends in a terminator with more than one successor and B
// has more than one predecessor and begins with a Phi or EdgePhi. Splitting
// these before instruction selection means phi elimination never needs to
// place a parallel-copy on an edge shared with another of A's successors.
// The pass is two-phase: collect all critical edges for the function
// first, then splice relay blocks, so a pred's own edge set is never
// mutated while it is being scanned.
//
// Returns the number of relay blocks inserted.
func BreakCriticalEdges(m *ir.Module, fn ir.GlobalID) int {
	var edges []criticalEdge
	for _, from := range m.Blocks(fn) {
		edges = append(edges, findCriticalEdgesForBlock(m, from)...)
	}
	for _, e := range edges {
		splitEdge(m, fn, e)
	}
	return len(edges)
}

func findCriticalEdgesForBlock(m *ir.Module, from ir.BlockID) []criticalEdge {
	term := terminatorOf(m, from)
	if term.IsNull() {
		return nil
	}
	targets := m.JumpTargets(term)
	if len(targets) < 2 {
		return nil
	}

	var order []ir.BlockID
	byTo := map[ir.BlockID][]ir.JumpTargID{}
	for _, jid := range targets {
		to := m.JumpTargetOf(jid).Target()
		if !isCriticalDestination(m, to) {
			continue
		}
		if _, seen := byTo[to]; !seen {
			order = append(order, to)
		}
		byTo[to] = append(byTo[to], jid)
	}

	edges := make([]criticalEdge, 0, len(order))
	for _, to := range order {
		edges = append(edges, criticalEdge{from: from, to: to, jts: byTo[to]})
	}
	return edges
}

// isCriticalDestination reports whether a multi-predecessor, phi-bearing
// block makes every edge landing on it critical.
func isCriticalDestination(m *ir.Module, to ir.BlockID) bool {
	b := m.BlockOf(to)
	if b.NumPreds() < 2 {
		return false
	}
	return blockHasPhi(m, to)
}

func blockHasPhi(m *ir.Module, b ir.BlockID) bool {
	for _, iid := range m.Instructions(b) {
		switch m.Inst(iid).Opcode() {
		case ir.OpPhi, ir.OpEdgePhi:
			return true
		default:
			// Phi/EdgePhi only ever appear at a block's head; once we
			// reach a non-phi instruction there are no more to find.
			return false
		}
	}
	return false
}

func terminatorOf(m *ir.Module, b ir.BlockID) ir.InstID {
	insts := m.Instructions(b)
	if len(insts) == 0 {
		return ir.NullInstID
	}
	last := insts[len(insts)-1]
	if !m.Inst(last).Opcode().IsTerminator() {
		return ir.NullInstID
	}
	return last
}

// splitEdge inserts a relay block "from -> mid -> to" and redirects every
// JumpTarget edge in e.jts to mid, then fixes up to's Phi/EdgePhi
// instructions so their incoming-edge bookkeeping still points at a live
// predecessor. EdgePhi needs no rewrite at all: its incoming pairs are
// indexed by JumpTargID, and RetargetJumpTarget preserves that identity
// across the move. Plain Phi is still
// predecessor-block indexed, so its UsePhiIncomingBlock operand referencing
// `from` is rewritten to `mid`.
func splitEdge(m *ir.Module, fn ir.GlobalID, e criticalEdge) {
	mid := m.NewBlock(fn)
	b := ir.NewBuilder(m)
	b.Jump(mid, e.to)

	for _, jid := range e.jts {
		m.RetargetJumpTarget(jid, mid)
	}

	for _, iid := range m.Instructions(e.to) {
		switch m.Inst(iid).Opcode() {
		case ir.OpPhi:
			retargetPhiIncomingBlock(m, iid, e.from, mid)
		case ir.OpEdgePhi:
			// Indexed by JumpTargID, already fixed up by RetargetJumpTarget.
		default:
			return
		}
	}
}

func retargetPhiIncomingBlock(m *ir.Module, phi ir.InstID, from, mid ir.BlockID) {
	for _, uid := range m.Operands(phi) {
		use := m.UseOf(uid)
		if use.Kind() != ir.UsePhiIncomingBlock {
			continue
		}
		if use.Target().BlockID() != from {
			continue
		}
		m.RetargetPhiIncomingBlock(uid, mid)
	}
}
