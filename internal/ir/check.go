package ir

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

// Check validates every structural invariant on a Module — operand counts,
// operand types, terminator placement, phi incoming sets, switch case
// uniqueness, call arity, dominance — collecting every violation found
// rather than stopping at the first. Check never mutates the module.
func Check(m *Module) error {
	var errs error
	for _, gid := range m.Globals() {
		g := m.GlobalOf(gid)
		if g.Kind() != GlobalFunction {
			errs = multierr.Append(errs, checkVariable(m, g))
			continue
		}
		errs = multierr.Append(errs, checkFunction(m, g))
	}
	return errs
}

func checkVariable(m *Module, g *Global) error {
	v, ok := g.Initializer()
	if !ok {
		return nil
	}
	if !typesCompatible(m, v.Type(), g.typ) {
		return fmt.Errorf("global @%s: initializer type %s does not match declared type %s",
			g.name, m.Types.TypeString(v.Type()), m.Types.TypeString(g.typ))
	}
	return nil
}

func checkFunction(m *Module, g *Global) error {
	var errs error
	blocks := m.Blocks(g.self)
	if len(blocks) == 0 {
		return fmt.Errorf("function @%s: declared with no blocks", g.name)
	}
	for _, bid := range blocks {
		errs = multierr.Append(errs, checkBlock(m, g, bid))
	}
	errs = multierr.Append(errs, checkDominance(m, g))
	return errs
}

// checkDominance validates the dominating-definition rule for every
// operand that names another instruction's
// result: same-block uses must come after their definition, cross-block
// uses require the defining block to dominate the using block per
// ComputeDominance. Phi/EdgePhi instructions are exempt from having their
// own operands checked here — a phi's incoming value need only dominate
// the end of the corresponding predecessor block, which is a different
// (and, for EdgePhi, already edge-validated) condition from dominating the
// phi's own block.
func checkDominance(m *Module, g *Global) error {
	blocks := m.Blocks(g.self)
	dom := ComputeDominance(m, g.self)
	var errs error
	for _, bid := range blocks {
		insts := m.Instructions(bid)
		posInBlock := make(map[InstID]int, len(insts))
		for i, iid := range insts {
			posInBlock[iid] = i
		}
		for pos, iid := range insts {
			inst := m.Inst(iid)
			if inst.opcode == OpPhi || inst.opcode == OpEdgePhi {
				continue
			}
			for _, uid := range m.Operands(iid) {
				target := m.UseOf(uid).target
				if target.Kind() != ValueInst {
					continue
				}
				defIID := target.InstID()
				defBlock := m.Inst(defIID).parent
				if defBlock == bid {
					if defPos, ok := posInBlock[defIID]; !ok || defPos >= pos {
						errs = multierr.Append(errs, fmt.Errorf(
							"function @%s: %%%d does not dominate its use at %%%d (defined later in the same block)",
							g.name, uint32(defIID), uint32(iid)))
					}
					continue
				}
				if !dom.Dominates(defBlock, bid) {
					errs = multierr.Append(errs, fmt.Errorf(
						"function @%s: %%%d's block does not dominate its use at %%%d",
						g.name, uint32(defIID), uint32(iid)))
				}
			}
		}
	}
	return errs
}

func checkBlock(m *Module, g *Global, bid BlockID) error {
	insts := m.Instructions(bid)
	if len(insts) == 0 {
		return fmt.Errorf("function @%s: block bb%d has no instructions", g.name, uint32(bid))
	}
	var errs error
	for i, iid := range insts {
		inst := m.Inst(iid)
		isLast := i == len(insts)-1
		if inst.opcode.IsTerminator() != isLast {
			if isLast {
				errs = multierr.Append(errs, fmt.Errorf(
					"function @%s bb%d: last instruction %s is not a terminator", g.name, uint32(bid), inst.opcode))
			} else {
				errs = multierr.Append(errs, fmt.Errorf(
					"function @%s bb%d: terminator %s is not the last instruction", g.name, uint32(bid), inst.opcode))
			}
		}
		errs = multierr.Append(errs, checkInstruction(m, g, inst))
	}
	return errs
}

func checkInstruction(m *Module, g *Global, inst *Instruction) error {
	if inst.opcode == OpDynAlloca {
		return fmt.Errorf("function @%s: %%%d uses reserved opcode dynalloca (dynamic allocation is out of scope)",
			g.name, uint32(inst.self))
	}

	switch {
	case inst.opcode.IsIntBinOp():
		return checkSameType(m, inst, "binop")
	case inst.opcode.IsFloatBinOp():
		if !m.Types.IsFloat(inst.resultType) {
			return fmt.Errorf("%%%d: %s requires a floating-point result type, got %s",
				uint32(inst.self), inst.opcode, m.Types.TypeString(inst.resultType))
		}
		return checkSameType(m, inst, "fbinop")
	case inst.opcode == OpIcmp, inst.opcode == OpFcmp:
		if inst.resultType != types.I1 {
			return fmt.Errorf("%%%d: %s must produce i1, got %s", uint32(inst.self), inst.opcode, m.Types.TypeString(inst.resultType))
		}
	case inst.opcode == OpStore:
		uses := m.Operands(inst.self)
		src := m.UseOf(uses[0]).target
		if !typesCompatible(m, src.Type(), inst.auxType) {
			return fmt.Errorf("%%%d: store value type %s does not match declared %s",
				uint32(inst.self), m.Types.TypeString(src.Type()), m.Types.TypeString(inst.auxType))
		}
	case inst.opcode == OpAlloca:
		if !m.Types.IsPointer(inst.resultType) {
			return fmt.Errorf("%%%d: alloca must produce a pointer, got %s", uint32(inst.self), m.Types.TypeString(inst.resultType))
		}
	case inst.opcode == OpSwitch:
		return checkSwitch(m, inst)
	case inst.opcode == OpBr:
		targets := m.JumpTargets(inst.self)
		if len(targets) != 2 {
			return fmt.Errorf("%%%d: br must have exactly two jump targets, has %d", uint32(inst.self), len(targets))
		}
	case inst.opcode == OpPhi:
		return checkPhi(m, inst)
	case inst.opcode == OpCall:
		return checkCall(m, inst)
	case inst.opcode == OpCast:
		return checkCast(m, inst)
	case inst.opcode == OpGEP:
		return checkGEP(m, inst)
	case inst.opcode == OpSelect:
		return checkSelect(m, inst)
	}
	return nil
}

// checkCast validates a cast's source/destination type classes against its
// subkind: extensions and truncations stay within one class, the
// conversion kinds cross between the integer and float classes in the
// direction their name says, and the pointer kinds pair a pointer with an
// integer. The source operand must also carry the type the instruction
// declares it was cast from.
func checkCast(m *Module, inst *Instruction) error {
	uses := m.Operands(inst.self)
	if len(uses) != 1 {
		return fmt.Errorf("%%%d: cast must have exactly one operand, has %d", uint32(inst.self), len(uses))
	}
	src := m.UseOf(uses[0]).target
	if !typesCompatible(m, src.Type(), inst.auxType) {
		return fmt.Errorf("%%%d: cast operand type %s does not match declared source type %s",
			uint32(inst.self), m.Types.TypeString(src.Type()), m.Types.TypeString(inst.auxType))
	}

	srcT, dstT := inst.auxType, inst.resultType
	classErr := func(srcClass, dstClass string) error {
		return fmt.Errorf("%%%d: %s requires %s source and %s destination, got %s -> %s",
			uint32(inst.self), inst.castKind, srcClass, dstClass,
			m.Types.TypeString(srcT), m.Types.TypeString(dstT))
	}
	switch inst.castKind {
	case CastSExt, CastZExt, CastTrunc:
		if !m.Types.IsInt(srcT) || !m.Types.IsInt(dstT) {
			return classErr("integer", "integer")
		}
	case CastFPExt, CastFPTrunc:
		if !m.Types.IsFloat(srcT) || !m.Types.IsFloat(dstT) {
			return classErr("floating-point", "floating-point")
		}
	case CastFPToSI, CastFPToUI:
		if !m.Types.IsFloat(srcT) || !m.Types.IsInt(dstT) {
			return classErr("floating-point", "integer")
		}
	case CastSIToFP, CastUIToFP:
		if !m.Types.IsInt(srcT) || !m.Types.IsFloat(dstT) {
			return classErr("integer", "floating-point")
		}
	case CastPtrToInt:
		if !m.Types.IsPointer(srcT) || !m.Types.IsInt(dstT) {
			return classErr("pointer", "integer")
		}
	case CastIntToPtr:
		if !m.Types.IsInt(srcT) || !m.Types.IsPointer(dstT) {
			return classErr("integer", "pointer")
		}
	case CastBitCast:
		// Reinterprets bits; any sized class pairing is allowed.
	default:
		return fmt.Errorf("%%%d: cast has invalid subkind", uint32(inst.self))
	}
	return nil
}

// checkGEP validates an address computation: pointer base and result,
// integer indices, and an aggregate base type whenever there is more than
// the initial array-style index to step through.
func checkGEP(m *Module, inst *Instruction) error {
	uses := m.Operands(inst.self)
	if len(uses) < 2 {
		return fmt.Errorf("%%%d: gep needs a base and at least one index, has %d operand(s)", uint32(inst.self), len(uses))
	}
	var errs error
	base := m.UseOf(uses[0]).target
	if !m.Types.IsPointer(base.Type()) {
		errs = multierr.Append(errs, fmt.Errorf(
			"%%%d: gep base has type %s, expected a pointer", uint32(inst.self), m.Types.TypeString(base.Type())))
	}
	if !m.Types.IsPointer(inst.resultType) {
		errs = multierr.Append(errs, fmt.Errorf(
			"%%%d: gep must produce a pointer, got %s", uint32(inst.self), m.Types.TypeString(inst.resultType)))
	}
	for i, uid := range uses[1:] {
		idx := m.UseOf(uid).target
		if !m.Types.IsInt(idx.Type()) {
			errs = multierr.Append(errs, fmt.Errorf(
				"%%%d: gep index %d has type %s, expected an integer", uint32(inst.self), i, m.Types.TypeString(idx.Type())))
		}
	}
	// The first index steps the base pointer itself; every further index
	// walks into the pointee, which must therefore be an aggregate.
	if len(uses) > 2 && !m.Types.IsAggregate(inst.auxType) {
		errs = multierr.Append(errs, fmt.Errorf(
			"%%%d: gep steps into base type %s, which is not an aggregate", uint32(inst.self), m.Types.TypeString(inst.auxType)))
	}
	return errs
}

// checkSelect validates an i1 condition and that both value arms carry the
// declared result type.
func checkSelect(m *Module, inst *Instruction) error {
	uses := m.Operands(inst.self)
	if len(uses) != 3 {
		return fmt.Errorf("%%%d: select must have exactly three operands, has %d", uint32(inst.self), len(uses))
	}
	var errs error
	cond := m.UseOf(uses[0]).target
	if cond.Type() != types.I1 {
		errs = multierr.Append(errs, fmt.Errorf(
			"%%%d: select condition has type %s, expected i1", uint32(inst.self), m.Types.TypeString(cond.Type())))
	}
	for _, uid := range uses[1:] {
		arm := m.UseOf(uid).target
		if !typesCompatible(m, arm.Type(), inst.resultType) {
			errs = multierr.Append(errs, fmt.Errorf(
				"%%%d: select arm type %s does not match result type %s",
				uint32(inst.self), m.Types.TypeString(arm.Type()), m.Types.TypeString(inst.resultType)))
		}
	}
	return errs
}

// checkSwitch validates that a switch's default arm is present and every
// case literal is pairwise distinct.
func checkSwitch(m *Module, inst *Instruction) error {
	targets := m.JumpTargets(inst.self)
	if len(targets) == 0 || m.JumpTargetOf(targets[0]).kind != JumpTargetSwitchDefault {
		return fmt.Errorf("%%%d: switch is missing its mandatory default arm", uint32(inst.self))
	}
	var errs error
	type literal struct{ lo, hi uint64 }
	seen := map[literal]bool{}
	for _, jtid := range targets[1:] {
		jt := m.JumpTargetOf(jtid)
		if jt.kind != JumpTargetSwitchCase {
			continue
		}
		lit := literal{jt.caseLo, jt.caseHi}
		if seen[lit] {
			errs = multierr.Append(errs, fmt.Errorf(
				"%%%d: switch has duplicate case literal %d", uint32(inst.self), lit.lo))
		}
		seen[lit] = true
	}
	return errs
}

// checkPhi validates that a Phi's incoming-block set equals its block's
// predecessor set, as sets (no missing predecessor, no extra
// block, duplicates collapse rather than doubling the requirement).
func checkPhi(m *Module, inst *Instruction) error {
	predBlocks := map[BlockID]bool{}
	for _, jtid := range m.Predecessors(inst.parent) {
		owner := m.Inst(m.JumpTargetOf(jtid).owner)
		predBlocks[owner.parent] = true
	}

	incoming := map[BlockID]bool{}
	for _, uid := range m.Operands(inst.self) {
		u := m.UseOf(uid)
		if u.kind != UsePhiIncomingBlock {
			continue
		}
		incoming[u.target.BlockID()] = true
	}

	var errs error
	for b := range predBlocks {
		if !incoming[b] {
			errs = multierr.Append(errs, fmt.Errorf(
				"%%%d: phi is missing an incoming value for predecessor bb%d", uint32(inst.self), uint32(b)))
		}
	}
	for b := range incoming {
		if !predBlocks[b] {
			errs = multierr.Append(errs, fmt.Errorf(
				"%%%d: phi names bb%d as incoming, which is not a predecessor of its block", uint32(inst.self), uint32(b)))
		}
	}
	return errs
}

// checkCall validates a direct call's argument count and per-argument types
// against its callee's declared signature. An indirect call (callee not a
// ValueGlobal) has no statically known signature to check against, so it is
// left to instruction selection's own AAPCS64 argument-count panics.
func checkCall(m *Module, inst *Instruction) error {
	uses := m.Operands(inst.self)
	callee := m.UseOf(uses[0]).target
	if callee.Kind() != ValueGlobal {
		return nil
	}
	g := m.GlobalOf(callee.GlobalID())
	if g.Kind() != GlobalFunction {
		return fmt.Errorf("%%%d: call target @%s is not a function", uint32(inst.self), g.name)
	}

	params := m.Types.FuncParams(g.typ)
	args := uses[1:]
	if len(args) != len(params) {
		return fmt.Errorf("%%%d: call to @%s passes %d argument(s), signature declares %d",
			uint32(inst.self), g.name, len(args), len(params))
	}
	var errs error
	for i, uid := range args {
		argType := m.UseOf(uid).target.Type()
		if !typesCompatible(m, argType, params[i]) {
			errs = multierr.Append(errs, fmt.Errorf(
				"%%%d: call to @%s argument %d has type %s, signature declares %s",
				uint32(inst.self), g.name, i, m.Types.TypeString(argType), m.Types.TypeString(params[i])))
		}
	}
	retType := m.Types.FuncRet(g.typ)
	if !typesCompatible(m, inst.resultType, retType) {
		errs = multierr.Append(errs, fmt.Errorf(
			"%%%d: call to @%s result type %s does not match signature return type %s",
			uint32(inst.self), g.name, m.Types.TypeString(inst.resultType), m.Types.TypeString(retType)))
	}
	return errs
}

func checkSameType(m *Module, inst *Instruction, label string) error {
	uses := m.Operands(inst.self)
	lhs, rhs := m.UseOf(uses[0]).target, m.UseOf(uses[1]).target
	if lhs.Type() != inst.resultType || rhs.Type() != inst.resultType {
		return fmt.Errorf("%%%d: %s operand types must match result type %s",
			uint32(inst.self), label, m.Types.TypeString(inst.resultType))
	}
	return nil
}

func typesCompatible(m *Module, a, b types.ID) bool {
	if a == b {
		return true
	}
	// AggrZero and ConstData carry no intrinsic type identity beyond what
	// the caller stamped on them, so a single-zero-width mismatch is still
	// rejected here rather than silently coerced.
	return false
}
