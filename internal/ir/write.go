package ir

import (
	"fmt"
	"io"
	"strings"

	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

// Write renders the module as an LLVM-ish textual IR: one line per
// instruction, %N SSA names. The output is meant for debugging and
// golden-file tests, not for round-tripping back into a Module.
func Write(w io.Writer, m *Module) error {
	for _, gid := range m.Globals() {
		g := m.GlobalOf(gid)
		var err error
		if g.Kind() == GlobalFunction {
			err = writeFunction(w, m, g)
		} else {
			err = writeVariable(w, m, g)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeVariable(w io.Writer, m *Module, g *Global) error {
	qualifier := "global"
	if g.readOnly {
		qualifier = "constant"
	}
	init := "zeroinitializer"
	if v, ok := g.Initializer(); ok {
		init = valueString(m, nil, v)
	}
	_, err := fmt.Fprintf(w, "@%s = %s %s %s %s\n", g.name, g.linkage, qualifier, m.Types.TypeString(g.typ), init)
	return err
}

func writeFunction(w io.Writer, m *Module, g *Global) error {
	sig := m.Types.Get(g.typ)
	retTy := sig.Ret()
	if _, err := fmt.Fprintf(w, "function %s @%s(%d args) -> %s {\n", g.linkage, g.name, g.NumArgs(), m.Types.TypeString(retTy)); err != nil {
		return err
	}
	num := NumberFunction(m, g.self)
	for _, bid := range m.Blocks(g.self) {
		if err := writeBlock(w, m, num, bid); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func writeBlock(w io.Writer, m *Module, num *Numbering, bid BlockID) error {
	if _, err := fmt.Fprintf(w, "bb%d:\n", num.Block(bid)); err != nil {
		return err
	}
	for _, iid := range m.Instructions(bid) {
		if err := writeInstruction(w, m, num, iid); err != nil {
			return err
		}
	}
	return nil
}

func writeInstruction(w io.Writer, m *Module, num *Numbering, iid InstID) error {
	inst := m.Inst(iid)
	line, err := instructionString(m, num, inst)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "  %s\n", line)
	return err
}

func instructionString(m *Module, num *Numbering, inst *Instruction) (string, error) {
	result := ""
	if inst.resultType != types.InvalidID && inst.resultType != types.Void {
		result = fmt.Sprintf("%%%d = ", num.Inst(inst.self))
	}
	ops := operandStrings(m, num, inst)

	switch inst.opcode {
	case OpIcmp:
		return fmt.Sprintf("%sicmp.%s %s, %s", result, inst.icmpCond, ops[0], ops[1]), nil
	case OpFcmp:
		return fmt.Sprintf("%sfcmp.%s %s, %s", result, inst.fcmpCond, ops[0], ops[1]), nil
	case OpCast:
		return fmt.Sprintf("%s%s %s to %s", result, inst.castKind, ops[0], m.Types.TypeString(inst.resultType)), nil
	case OpLoad:
		return fmt.Sprintf("%sload %s, align %d", result, ops[0], inst.Alignment()), nil
	case OpStore:
		return fmt.Sprintf("store %s to %s, align %d", ops[0], ops[1], inst.Alignment()), nil
	case OpAlloca:
		return fmt.Sprintf("%salloca %s, align %d", result, m.Types.TypeString(inst.auxType), inst.Alignment()), nil
	case OpGEP:
		return fmt.Sprintf("%sgetelementptr %s, %s", result, m.Types.TypeString(inst.auxType), strings.Join(ops, ", ")), nil
	case OpSelect:
		return fmt.Sprintf("%sselect %s, %s, %s", result, ops[0], ops[1], ops[2]), nil
	case OpPhi:
		return fmt.Sprintf("%sphi %s", result, strings.Join(phiPairStrings(m, inst, num, false), ", ")), nil
	case OpEdgePhi:
		return fmt.Sprintf("%sedgephi %s", result, strings.Join(phiPairStrings(m, inst, num, true), ", ")), nil
	case OpCall:
		return fmt.Sprintf("%scall %s(%s)", result, ops[0], strings.Join(ops[1:], ", ")), nil
	case OpRet:
		if len(ops) == 0 {
			return "ret void", nil
		}
		return fmt.Sprintf("ret %s", ops[0]), nil
	case OpJump:
		return fmt.Sprintf("jump bb%d", num.Block(firstJumpTarget(m, inst))), nil
	case OpBr:
		targets := m.JumpTargets(inst.self)
		t0 := m.JumpTargetOf(targets[0])
		t1 := m.JumpTargetOf(targets[1])
		return fmt.Sprintf("br %s, bb%d, bb%d", ops[0], num.Block(t0.target), num.Block(t1.target)), nil
	case OpSwitch:
		return fmt.Sprintf("switch %s %s", ops[0], switchArmsString(m, num, inst)), nil
	case OpUnreachable:
		return "unreachable", nil
	default:
		if inst.opcode.IsIntBinOp() || inst.opcode.IsFloatBinOp() {
			return fmt.Sprintf("%s%s %s, %s", result, inst.opcode, ops[0], ops[1]), nil
		}
		return "", fmt.Errorf("ir: write: unhandled opcode %s", inst.opcode)
	}
}

func firstJumpTarget(m *Module, inst *Instruction) BlockID {
	targets := m.JumpTargets(inst.self)
	return m.JumpTargetOf(targets[0]).target
}

func switchArmsString(m *Module, num *Numbering, inst *Instruction) string {
	targets := m.JumpTargets(inst.self)
	var arms []string
	for _, tid := range targets {
		t := m.JumpTargetOf(tid)
		if t.kind == JumpTargetSwitchDefault {
			arms = append(arms, fmt.Sprintf("default: bb%d", num.Block(t.target)))
			continue
		}
		arms = append(arms, fmt.Sprintf("%d: bb%d", t.caseLo, num.Block(t.target)))
	}
	return "[" + strings.Join(arms, ", ") + "]"
}

func phiPairStrings(m *Module, inst *Instruction, num *Numbering, isEdge bool) []string {
	uses := m.Operands(inst.self)
	var out []string
	if isEdge {
		for i, uid := range uses {
			u := m.UseOf(uid)
			edge := inst.edgeOperands[i]
			out = append(out, fmt.Sprintf("[%s, edge%d]", valueString(m, num, u.target), uint32(edge)))
		}
		return out
	}
	// Phi interleaves value/block Use pairs sharing the same index.
	pairs := map[uint32][2]ValueSSA{}
	for _, uid := range uses {
		u := m.UseOf(uid)
		p := pairs[u.index]
		if u.kind == UsePhiIncomingValue {
			p[0] = u.target
		} else {
			p[1] = u.target
		}
		pairs[u.index] = p
	}
	for i := uint32(0); i < uint32(len(pairs)); i++ {
		p := pairs[i]
		out = append(out, fmt.Sprintf("[%s, bb%d]", valueString(m, num, p[0]), num.Block(p[1].BlockID())))
	}
	return out
}

func operandStrings(m *Module, num *Numbering, inst *Instruction) []string {
	uses := m.Operands(inst.self)
	out := make([]string, 0, len(uses))
	for _, uid := range uses {
		out = append(out, valueString(m, num, m.UseOf(uid).target))
	}
	return out
}

// valueString renders a ValueSSA for the textual dump. An instruction
// reference prints through num so it matches the exact "%N" name that
// instruction's own definition line was numbered with — an earlier
// revision printed the raw, module-global InstID handle instead
// (`%v<handle>`), which never agreed with the `%N = ...` a reader would
// have just seen on that instruction's def line.
func valueString(m *Module, num *Numbering, v ValueSSA) string {
	switch v.Kind() {
	case ValueNone:
		return "none"
	case ValueConstData:
		return fmt.Sprintf("%s %d", m.Types.TypeString(v.Type()), v.ConstBits())
	case ValueConstExpr:
		return fmt.Sprintf("constexpr%d", v.ConstExprID())
	case ValueAggrZero:
		return fmt.Sprintf("%s zeroinitializer", m.Types.TypeString(v.Type()))
	case ValueFuncArg:
		_, idx := v.FuncArgOf()
		return fmt.Sprintf("%%%d", idx)
	case ValueBlock:
		if num == nil {
			return fmt.Sprintf("bb<%d>", uint32(v.BlockID()))
		}
		return fmt.Sprintf("bb%d", num.Block(v.BlockID()))
	case ValueInst:
		if num == nil {
			return fmt.Sprintf("%%v%d", uint32(v.InstID()))
		}
		return fmt.Sprintf("%%%d", num.Inst(v.InstID()))
	case ValueGlobal:
		return fmt.Sprintf("@g%d", uint32(v.GlobalID()))
	default:
		return "<invalid>"
	}
}
