package mir

import (
	"fmt"
	"io"
	"strings"
)

// Write renders a module as GNU AArch64 assembly text, one line per
// instruction. The backend stops at assembly text; no binary encoding is
// performed.
func Write(w io.Writer, m *Module) error {
	tables := map[string]*SwitchTable{}
	for _, fid := range m.Funcs() {
		if err := writeFunction(w, m, fid, tables); err != nil {
			return err
		}
	}
	if len(tables) > 0 {
		if _, err := fmt.Fprintln(w, "\t.section .rodata"); err != nil {
			return err
		}
		for _, t := range tables {
			if err := writeSwitchTable(w, t); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFunction(w io.Writer, m *Module, fid FuncID, tables map[string]*SwitchTable) error {
	f := m.Func(fid)
	if _, err := fmt.Fprintf(w, "\t.text\n\t.globl %s\n%s:\n", f.name, f.name); err != nil {
		return err
	}
	for _, bid := range m.Blocks(fid) {
		b := m.BlockOf(bid)
		if _, err := fmt.Fprintf(w, "%s:\n", b.label); err != nil {
			return err
		}
		for _, iid := range m.Instructions(bid) {
			inst := m.Inst(iid)
			if t := switchTableOf(inst); t != nil {
				tables[t.Label] = t
			}
			line, err := instructionString(m, inst)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "\t%s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}

func switchTableOf(inst *Instruction) *SwitchTable {
	for _, o := range inst.operands {
		if o.Kind() == OperandSwitchTable {
			return o.SwitchTable()
		}
	}
	return nil
}

func writeSwitchTable(w io.Writer, t *SwitchTable) error {
	if _, err := fmt.Fprintf(w, "%s:\n", t.Label); err != nil {
		return err
	}
	for _, target := range t.Targets {
		if _, err := fmt.Fprintf(w, "\t.quad %s\n", target); err != nil {
			return err
		}
	}
	return nil
}

func instructionString(m *Module, inst *Instruction) (string, error) {
	if inst.opcode == OpComment {
		return "// " + inst.comment, nil
	}
	ops := make([]string, 0, len(inst.operands))
	for _, o := range inst.operands {
		ops = append(ops, operandString(inst, o))
	}
	suffix := ""
	if inst.comment != "" {
		suffix = "\t// " + inst.comment
	}

	switch inst.opcode {
	case OpBCond:
		return fmt.Sprintf("b.%s %s%s", inst.cond, m.BlockOf(inst.target).Label(), suffix), nil
	case OpB:
		return fmt.Sprintf("b %s%s", m.BlockOf(inst.target).Label(), suffix), nil
	case OpCSel, OpCSet:
		return fmt.Sprintf("%s %s, %s%s", inst.opcode, strings.Join(ops, ", "), inst.cond, suffix), nil
	case OpLdr, OpLdrsw:
		return fmt.Sprintf("%s %s, [%s, #%d]%s", inst.opcode, ops[0], ops[1], inst.memOffset, suffix), nil
	case OpStr:
		return fmt.Sprintf("%s %s, [%s, #%d]%s", inst.opcode, ops[0], ops[1], inst.memOffset, suffix), nil
	case OpLdp, OpStp:
		switch inst.addrMode {
		case AddrPreIndex:
			return fmt.Sprintf("%s %s, %s, [%s, #%d]!%s", inst.opcode, ops[0], ops[1], ops[2], inst.memOffset, suffix), nil
		case AddrPostIndex:
			return fmt.Sprintf("%s %s, %s, [%s], #%d%s", inst.opcode, ops[0], ops[1], ops[2], inst.memOffset, suffix), nil
		default:
			return fmt.Sprintf("%s %s, %s, [%s, #%d]%s", inst.opcode, ops[0], ops[1], ops[2], inst.memOffset, suffix), nil
		}
	case OpMovK:
		// Instruction selection packs MovK's shift amount into the high bits
		// of its immediate operand (imm | shift<<16); decode it back out
		// into the `, lsl #n` GNU syntax rather than printing a raw packed
		// immediate that would assemble to nonsense.
		imm := inst.operands[1].Imm()
		return fmt.Sprintf("movk %s, #%d, lsl #%d%s", ops[0], imm&0xffff, (imm>>16)&0xffff, suffix), nil
	case OpRet:
		return "ret" + suffix, nil
	case OpBr:
		return fmt.Sprintf("br %s%s", ops[0], suffix), nil
	case OpBL:
		return fmt.Sprintf("bl %s%s", ops[0], suffix), nil
	case OpComment:
		return "// " + inst.comment, nil
	default:
		return fmt.Sprintf("%s %s%s", inst.opcode, strings.Join(ops, ", "), suffix), nil
	}
}

func operandString(inst *Instruction, o Operand) string {
	switch o.Kind() {
	case OperandPhysReg:
		return o.PhysReg().StringAtWidth(uint8(o.Sub().Bits()))
	case OperandVReg:
		return fmt.Sprintf("%%v%d", o.VReg().Index())
	case OperandImm:
		return fmt.Sprintf("#%d", o.Imm())
	case OperandSymbol:
		name, off := o.Symbol()
		if off == 0 {
			return name
		}
		return fmt.Sprintf("%s+%d", name, off)
	case OperandSwitchTable:
		return o.SwitchTable().Label
	case OperandPState:
		return "nzcv"
	default:
		return "<none>"
	}
}
