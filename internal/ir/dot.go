package ir

import (
	"fmt"
	"io"
)

// WriteDOT renders a function's control-flow graph as Graphviz DOT, for
// eyeballing the CFG when a textual dump gets hard to follow.
func WriteDOT(w io.Writer, m *Module, fn GlobalID) error {
	g := m.GlobalOf(fn)
	if _, err := fmt.Fprintf(w, "digraph %q {\n", g.Name()); err != nil {
		return err
	}
	num := NumberFunction(m, fn)
	for _, bid := range m.Blocks(fn) {
		label := blockLabel(m, num, bid)
		if _, err := fmt.Fprintf(w, "  bb%d [shape=box, label=%q];\n", num.Block(bid), label); err != nil {
			return err
		}
	}
	for _, bid := range m.Blocks(fn) {
		inst := lastInstruction(m, bid)
		if inst == nil {
			continue
		}
		for _, jid := range m.JumpTargets(inst.self) {
			jt := m.JumpTargetOf(jid)
			if _, err := fmt.Fprintf(w, "  bb%d -> bb%d [label=%q];\n",
				num.Block(bid), num.Block(jt.target), jt.kind.String()); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func lastInstruction(m *Module, bid BlockID) *Instruction {
	insts := m.Instructions(bid)
	if len(insts) == 0 {
		return nil
	}
	return m.Inst(insts[len(insts)-1])
}

func blockLabel(m *Module, num *Numbering, bid BlockID) string {
	label := fmt.Sprintf("bb%d", num.Block(bid))
	for _, iid := range m.Instructions(bid) {
		s, err := instructionString(m, num, m.Inst(iid))
		if err != nil {
			continue
		}
		label += "\\l" + s
	}
	return label + "\\l"
}
