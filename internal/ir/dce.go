package ir

// DCE removes instructions with no side effects and no users, repeatedly,
// until a fixpoint: deleting a dead instruction can make its own operands'
// producers dead in turn, so one pass is not enough. The reverse user
// lists make "has no users" an O(1) check instead of a full-module use
// scan.
func DCE(m *Module, fn GlobalID) int {
	removed := 0
	for {
		progress := false
		for _, bid := range m.Blocks(fn) {
			for _, iid := range m.Instructions(bid) {
				inst := m.Inst(iid)
				if !isDeadCandidate(inst) {
					continue
				}
				if inst.NumUsers() != 0 {
					continue
				}
				dropOperands(m, iid)
				m.RemoveInstruction(iid)
				removed++
				progress = true
			}
		}
		if !progress {
			break
		}
	}
	return removed
}

// isDeadCandidate reports whether inst may be deleted if unused: every
// opcode except terminators and Store/Call, which the pass must never
// remove purely on a missing-users check since they are kept for their
// side effects, not their result value.
func isDeadCandidate(inst *Instruction) bool {
	switch inst.opcode {
	case OpStore, OpCall:
		return false
	default:
		return !inst.opcode.IsTerminator()
	}
}

func dropOperands(m *Module, iid InstID) {
	for _, uid := range m.Operands(iid) {
		m.RemoveUse(uid)
	}
}

// DCEGlobals removes dead globals: starting from every global whose
// linkage is not Internal
// (those are always kept, since an external or weak symbol may be
// referenced outside this module), transitively mark every global
// reachable from a kept one's instructions or initializer, discard the
// rest, and finish with a full mark-sweep GC pass so a circular dead set
// — two Internal globals referencing only each other, which a plain
// reference-count check alone cannot detect, since each still shows one
// live user — is caught by the trace instead.
func DCEGlobals(m *Module) int {
	live := map[GlobalID]bool{}
	var worklist []GlobalID
	for _, gid := range m.Globals() {
		g := m.GlobalOf(gid)
		if g.Linkage() == LinkageInternal {
			continue
		}
		live[gid] = true
		worklist = append(worklist, gid)
	}
	for len(worklist) > 0 {
		gid := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		g := m.GlobalOf(gid)
		if g.Kind() == GlobalFunction {
			for _, bid := range m.Blocks(gid) {
				for _, iid := range m.Instructions(bid) {
					for _, uid := range m.Operands(iid) {
						markGlobalValue(m, m.UseOf(uid).target, live, &worklist)
					}
				}
			}
		} else if v, ok := g.Initializer(); ok {
			markGlobalValue(m, v, live, &worklist)
		}
	}

	removed := 0
	for _, gid := range m.Globals() {
		if live[gid] {
			continue
		}
		m.RemoveGlobal(gid)
		removed++
	}
	GC(m)
	return removed
}

// markGlobalValue walks v for a referenced GlobalID, descending through
// constant-expression aggregates (an array of function pointers, say)
// the same way markValueConstExpr does for GC's own instruction-operand
// scan, but recording globals instead of constant expressions.
func markGlobalValue(m *Module, v ValueSSA, live map[GlobalID]bool, worklist *[]GlobalID) {
	switch v.Kind() {
	case ValueGlobal:
		gid := v.GlobalID()
		if live[gid] {
			return
		}
		live[gid] = true
		*worklist = append(*worklist, gid)
	case ValueConstExpr:
		for _, e := range m.ConstExprOf(v.ConstExprID()).elements {
			markGlobalValue(m, e, live, worklist)
		}
	}
}
