package ir

// Dominance is the classic iterative dominator-set computation over a
// function's CFG, used by checkDominance (check.go) to validate the
// dominating-definition invariant, and available to any other caller that
// wants a dominance query without re-deriving it.
type Dominance struct {
	order  []BlockID
	idx    map[BlockID]int
	domSet []map[BlockID]bool
	idom   []BlockID
}

// ComputeDominance runs the standard iterative data-flow fixpoint: each
// block's dominator set starts as "everything" (except the entry block,
// whose set is itself), then repeatedly tightens to
// {b} ∪ (∩ dom(pred) for pred in preds(b)) until no set changes.
func ComputeDominance(m *Module, fn GlobalID) *Dominance {
	blocks := m.Blocks(fn)
	d := &Dominance{order: blocks, idx: make(map[BlockID]int, len(blocks))}
	for i, b := range blocks {
		d.idx[b] = i
	}
	all := make(map[BlockID]bool, len(blocks))
	for _, b := range blocks {
		all[b] = true
	}

	d.domSet = make([]map[BlockID]bool, len(blocks))
	entry := blocks[0]
	for i, b := range blocks {
		if b == entry {
			d.domSet[i] = map[BlockID]bool{entry: true}
		} else {
			d.domSet[i] = cloneSet(all)
		}
	}

	changed := true
	for changed {
		changed = false
		for i, b := range blocks {
			if b == entry {
				continue
			}
			preds := predecessorBlocks(m, b)
			var next map[BlockID]bool
			for _, p := range preds {
				pi, ok := d.idx[p]
				if !ok {
					continue
				}
				if next == nil {
					next = cloneSet(d.domSet[pi])
				} else {
					intersectInPlace(next, d.domSet[pi])
				}
			}
			if next == nil {
				next = map[BlockID]bool{}
			}
			next[b] = true
			if !setsEqual(next, d.domSet[i]) {
				d.domSet[i] = next
				changed = true
			}
		}
	}

	d.idom = make([]BlockID, len(blocks))
	for i, b := range blocks {
		if b == entry {
			d.idom[i] = NullBlockID
			continue
		}
		d.idom[i] = immediateDominator(d, b)
	}
	return d
}

func predecessorBlocks(m *Module, b BlockID) []BlockID {
	var out []BlockID
	for _, jid := range m.Predecessors(b) {
		jt := m.JumpTargetOf(jid)
		out = append(out, m.Inst(jt.owner).parent)
	}
	return out
}

// Dominates reports whether a dominates b (reflexively: a dominates a).
func (d *Dominance) Dominates(a, b BlockID) bool {
	i, ok := d.idx[b]
	if !ok {
		return false
	}
	return d.domSet[i][a]
}

// IDom returns b's immediate dominator, or NullBlockID for the entry block.
func (d *Dominance) IDom(b BlockID) BlockID {
	i, ok := d.idx[b]
	if !ok {
		return NullBlockID
	}
	return d.idom[i]
}

func immediateDominator(d *Dominance, b BlockID) BlockID {
	i := d.idx[b]
	best := NullBlockID
	bestDepth := -1
	for cand := range d.domSet[i] {
		if cand == b {
			continue
		}
		depth := len(d.domSet[d.idx[cand]])
		if depth > bestDepth {
			bestDepth, best = depth, cand
		}
	}
	return best
}

func cloneSet(s map[BlockID]bool) map[BlockID]bool {
	out := make(map[BlockID]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersectInPlace(a, b map[BlockID]bool) {
	for k := range a {
		if !b[k] {
			delete(a, k)
		}
	}
}

func setsEqual(a, b map[BlockID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
