package lower

import (
	"fmt"

	"github.com/medihbt/remusys-ir-sub003/internal/ir"
	"github.com/medihbt/remusys-ir-sub003/internal/mir"
	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

// SelectFunction lowers fn's IR into a new mir.Function, the second half of
// pass 2 (instruction selection). Must run after EliminatePhis: every merge
// point is expected to already be in edge-indexed OpEdgePhi form, since this
// pass reads Phi-incoming values as parallel copies inserted at the tail of
// each predecessor block rather than as a positional Phi.
//
// Argument passing is register-only: stack-spilled call arguments beyond
// x0-x7/d0-d7 are not supported.
func SelectFunction(m *ir.Module, mm *mir.Module, fn ir.GlobalID) mir.FuncID {
	g := m.GlobalOf(fn)
	s := &Selector{
		IR:    m,
		MM:    mm,
		Types: m.Types,
		fn:    fn,

		blocks: map[ir.BlockID]mir.BlockID{},
		vregs:  map[ir.InstID]mir.VReg{},
	}
	s.mfn = mm.NewFunction(g.Name())
	s.allocateBlocksAndVRegs()
	s.classifyArgs(g)

	s.b = mir.NewBuilder(mm, mir.NullBlockID)
	for _, bid := range m.Blocks(fn) {
		s.b.SetBlock(s.blocks[bid])
		s.pending = nil
		s.selectBlock(bid)
	}
	return s.mfn
}

// Selector carries the per-function state instruction selection threads
// through: the IR-value -> MIR-operand maps built by the prepass below, the
// AAPCS64 argument register assignment, and the one NZCV-fusion "pending
// comparison" slot used for NZCV fusion.
type Selector struct {
	IR    *ir.Module
	MM    *mir.Module
	Types *types.Context

	fn  ir.GlobalID
	mfn mir.FuncID
	b   *mir.Builder

	blocks map[ir.BlockID]mir.BlockID
	vregs  map[ir.InstID]mir.VReg
	// argRegs maps a FuncArg index to the physical register AAPCS64
	// assigns it; built once by classifyArgs since argument classification
	// depends only on the function signature, not on how an argument is
	// used.
	argRegs map[uint32]mir.Operand

	localCounter  int
	switchCounter int
	pending       *pendingCompare
}

// pendingCompare is an Icmp/Fcmp instruction whose NZCV-setting Cmp/FCmp has
// not yet been emitted: instruction selection defers materializing it until
// either a directly-adjacent conditional branch/select consumes the flags
// directly (fusion) or some other instruction forces it to be flushed into
// an explicit i1 boolean via CSet.
type pendingCompare struct {
	inst ir.InstID
	typ  types.ID

	isFloat bool
	icond   ir.ICmpCond
	fcond   ir.FCmpCond

	lhs, rhs mir.Operand
}

// allocateBlocksAndVRegs is pass 2b's own prepass: it creates fn's mir
// blocks and hands out a vreg for every non-void instruction result before
// any opcode is dispatched, so later dispatch code can resolve a forward
// reference (a value used before its defining block is lowered, as in a
// loop back-edge) by map lookup alone.
func (s *Selector) allocateBlocksAndVRegs() {
	for i, bid := range s.IR.Blocks(s.fn) {
		s.blocks[bid] = s.MM.NewBlock(s.mfn, fmt.Sprintf(".Lbb%d", i))
		for _, iid := range s.IR.Instructions(bid) {
			inst := s.IR.Inst(iid)
			if inst.Opcode() == ir.OpPhi {
				panic("lower: selector: unresolved Phi reached instruction selection, run EliminatePhis first")
			}
			if inst.ResultType() == types.Void {
				continue
			}
			s.vregs[iid] = s.MM.NewVReg(s.mfn, s.classOf(inst.ResultType()))
		}
	}
}

// classifyArgs assigns each parameter its AAPCS64 register. Argument
// passing is register-only: stack-spilled arguments beyond x0-x7/d0-d7
// are rejected at selection time.
func (s *Selector) classifyArgs(g *ir.Global) {
	params := s.Types.FuncParams(g.Type())
	s.argRegs = make(map[uint32]mir.Operand, len(params))
	var ints, floats uint8
	for idx, pt := range params {
		if s.Types.IsFloat(pt) {
			if floats > 7 {
				panic("lower: selector: more than 8 floating-point arguments is unsupported (AAPCS64 stack-passed arguments out of scope)")
			}
			s.argRegs[uint32(idx)] = mir.PhysRegOperand(mir.NewPhysReg(floats, mir.RegClassFloat), s.subRegOf(pt), 0)
			floats++
			continue
		}
		if ints > 7 {
			panic("lower: selector: more than 8 integer/pointer arguments is unsupported (AAPCS64 stack-passed arguments out of scope)")
		}
		s.argRegs[uint32(idx)] = mir.PhysRegOperand(mir.NewPhysReg(ints, mir.RegClassInt), s.subRegOf(pt), 0)
		ints++
	}
}

func (s *Selector) subRegOf(t types.ID) mir.SubRegIndex {
	if s.Types.SizeOf(t) > 4 {
		return mir.Full64
	}
	return mir.Full32
}

// classOf maps an IR type to the register file a value of that type is
// carried in — the decision the allocator's reserved scratch windows
// (X8-X15 vs D8-D15) are keyed by.
func (s *Selector) classOf(t types.ID) mir.RegClass {
	if s.Types.IsFloat(t) {
		return mir.RegClassFloat
	}
	return mir.RegClassInt
}

// classOfOperand recovers the register file an already-built operand lives
// in, used by freshLike to allocate a same-class scratch vreg without
// threading an IR type through every call site.
func classOfOperand(o mir.Operand) mir.RegClass {
	switch o.Kind() {
	case mir.OperandVReg:
		return o.VReg().Class()
	case mir.OperandPhysReg:
		return o.PhysReg().Class()
	default:
		return mir.RegClassInt
	}
}

// defOf returns the def-side operand for inst's pre-allocated result vreg.
func (s *Selector) defOf(inst ir.InstID, typ types.ID) mir.Operand {
	vr, ok := s.vregs[inst]
	if !ok {
		panic("lower: selector: no vreg allocated for instruction result")
	}
	return mir.VRegOperand(vr, s.subRegOf(typ), mir.UseFlagDef)
}

func asUse(o mir.Operand) mir.Operand {
	switch o.Kind() {
	case mir.OperandVReg:
		return mir.VRegOperand(o.VReg(), o.Sub(), mir.UseFlagUse)
	case mir.OperandPhysReg:
		return mir.PhysRegOperand(o.PhysReg(), o.Sub(), mir.UseFlagUse)
	default:
		return o
	}
}

func (s *Selector) freshLike(o mir.Operand) mir.Operand {
	return mir.VRegOperand(s.MM.NewVReg(s.mfn, classOfOperand(o)), o.Sub(), mir.UseFlagDef)
}

// resolve turns an IR value into a register (or immediate) operand usable
// as a source in the current block, materializing constants, global
// addresses and deferred comparisons on demand.
func (s *Selector) resolve(v ir.ValueSSA) mir.Operand {
	switch v.Kind() {
	case ir.ValueConstData:
		return s.materializeConst(v)
	case ir.ValueFuncArg:
		_, idx := v.FuncArgOf()
		reg, ok := s.argRegs[idx]
		if !ok {
			panic("lower: selector: FuncArg index out of the classified argument range")
		}
		return mir.PhysRegOperand(reg.PhysReg(), reg.Sub(), mir.UseFlagUse)
	case ir.ValueInst:
		return s.resolveInst(v.InstID(), v.Type())
	case ir.ValueGlobal:
		return s.materializeGlobalAddr(v)
	default:
		panic(fmt.Sprintf("lower: selector: cannot resolve a %s value as a register operand", v.Kind()))
	}
}

func (s *Selector) resolveInst(iid ir.InstID, typ types.ID) mir.Operand {
	if s.pending != nil && s.pending.inst == iid {
		s.flushPending()
	}
	vr, ok := s.vregs[iid]
	if !ok {
		panic("lower: selector: no vreg allocated for instruction result")
	}
	return mir.VRegOperand(vr, s.subRegOf(typ), mir.UseFlagUse)
}

// emitMovImm materializes a constant bit pattern into dst via a MOVZ
// followed by one MOVK per nonzero 16-bit window above it. The high bits
// of MovK's immediate operand carry the shift amount, decoded by the
// textual writer.
func (s *Selector) emitMovImm(dst mir.Operand, bits uint64, sub mir.SubRegIndex) {
	windows := int(sub.Bits()) / 16
	wrote := false
	for i := 0; i < windows; i++ {
		w := uint16(bits >> uint(i*16))
		if w == 0 && wrote {
			continue
		}
		if !wrote {
			s.b.MovImm(dst, int64(w))
			wrote = true
			continue
		}
		s.b.MovK(dst, int64(w)|int64(i*16)<<16)
	}
	if !wrote {
		s.b.MovImm(dst, 0)
	}
}

func (s *Selector) materializeConst(v ir.ValueSSA) mir.Operand {
	typ := v.Type()
	if s.Types.IsFloat(typ) {
		tmp := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
		s.emitMovImm(tmp, v.ConstBits(), mir.Full64)
		dst := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassFloat), s.subRegOf(typ), mir.UseFlagDef)
		s.b.Unary(mir.OpFMov, dst, asUse(tmp))
		return asUse(dst)
	}
	dst := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassInt), s.subRegOf(typ), mir.UseFlagDef)
	s.emitMovImm(dst, v.ConstBits(), s.subRegOf(typ))
	return asUse(dst)
}

func (s *Selector) materializeGlobalAddr(v ir.ValueSSA) mir.Operand {
	g := s.IR.GlobalOf(v.GlobalID())
	dst := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
	s.b.Adrp(dst, g.Name())
	s.b.AddSymbolLo(dst, asUse(dst), g.Name())
	return asUse(dst)
}

func icmpCondToMIR(c ir.ICmpCond) mir.Cond {
	switch c {
	case ir.ICmpEq:
		return mir.CondEQ
	case ir.ICmpNe:
		return mir.CondNE
	case ir.ICmpSlt:
		return mir.CondLT
	case ir.ICmpSle:
		return mir.CondLE
	case ir.ICmpSgt:
		return mir.CondGT
	case ir.ICmpSge:
		return mir.CondGE
	case ir.ICmpUlt:
		return mir.CondLO
	case ir.ICmpUle:
		return mir.CondLS
	case ir.ICmpUgt:
		return mir.CondHI
	case ir.ICmpUge:
		return mir.CondHS
	default:
		panic("lower: selector: invalid icmp condition")
	}
}

func fcmpCondToMIR(c ir.FCmpCond) mir.Cond {
	switch c {
	case ir.FCmpOeq:
		return mir.CondEQ
	case ir.FCmpOne:
		return mir.CondNE
	case ir.FCmpOlt:
		return mir.CondMI
	case ir.FCmpOle:
		return mir.CondLS
	case ir.FCmpOgt:
		return mir.CondGT
	case ir.FCmpOge:
		return mir.CondGE
	default:
		panic("lower: selector: invalid fcmp condition")
	}
}

func (s *Selector) condOf(p *pendingCompare) mir.Cond {
	if p.isFloat {
		return fcmpCondToMIR(p.fcond)
	}
	return icmpCondToMIR(p.icond)
}

func (s *Selector) emitCompare(p *pendingCompare) {
	if p.isFloat {
		s.b.Cmp(mir.OpFCmp, p.lhs, p.rhs)
		return
	}
	s.b.Cmp(mir.OpCmpReg, p.lhs, p.rhs)
}

// flushPending materializes the deferred comparison into an explicit i1
// boolean, used whenever its value escapes to a consumer other than a
// directly-adjacent conditional branch or select.
func (s *Selector) flushPending() {
	p := s.pending
	s.pending = nil
	s.emitCompare(p)
	dst := s.defOf(p.inst, p.typ)
	s.b.CSet(dst, s.condOf(p))
}

// isFusableCond reports whether condUse references the pending comparison
// as its sole user — the condition NZCV fusion requires before skipping
// the explicit boolean materialization.
func (s *Selector) isFusableCond(condUse *ir.Use) bool {
	if s.pending == nil {
		return false
	}
	t := condUse.Target()
	if t.Kind() != ir.ValueInst || t.InstID() != s.pending.inst {
		return false
	}
	return len(s.IR.Users(ir.InstValue(s.pending.typ, s.pending.inst))) == 1
}

func (s *Selector) deferCompare(iid ir.InstID, inst *ir.Instruction) {
	if s.pending != nil {
		s.flushPending()
	}
	ops := s.IR.Operands(iid)
	lhs := s.resolve(s.IR.UseOf(ops[0]).Target())
	rhs := s.resolve(s.IR.UseOf(ops[1]).Target())
	p := &pendingCompare{inst: iid, typ: inst.ResultType(), lhs: lhs, rhs: rhs}
	if inst.Opcode() == ir.OpFcmp {
		p.isFloat = true
		p.fcond = inst.FCmpCond()
	} else {
		p.icond = inst.ICmpCond()
	}
	s.pending = p
}

// selectBlock dispatches every instruction of bid in order, except OpEdgePhi
// (whose value arrives via the parallel copies emitEdgeCopies inserts at
// each predecessor's terminator, never via a dispatch of its own).
func (s *Selector) selectBlock(bid ir.BlockID) {
	for _, iid := range s.IR.Instructions(bid) {
		inst := s.IR.Inst(iid)
		switch inst.Opcode() {
		case ir.OpEdgePhi:
			continue
		case ir.OpIcmp, ir.OpFcmp:
			s.deferCompare(iid, inst)
			continue
		}

		switch inst.Opcode() {
		case ir.OpBr:
			s.selectBr(inst)
			continue
		case ir.OpSelect:
			s.selectSelect(iid, inst)
			continue
		}

		if s.pending != nil {
			s.flushPending()
		}
		s.dispatch(iid, inst)
	}
	if s.pending != nil {
		s.flushPending()
	}
}

func (s *Selector) dispatch(iid ir.InstID, inst *ir.Instruction) {
	op := inst.Opcode()
	switch {
	case op.IsIntBinOp():
		s.selectBinOp(iid, inst)
	case op.IsFloatBinOp():
		s.selectFBinOp(iid, inst)
	case op == ir.OpCast:
		s.selectCast(iid, inst)
	case op == ir.OpLoad:
		s.selectLoad(iid, inst)
	case op == ir.OpStore:
		s.selectStore(inst)
	case op == ir.OpAlloca:
		s.selectAlloca(iid, inst)
	case op == ir.OpGEP:
		s.selectGEP(iid, inst)
	case op == ir.OpCall:
		s.selectCall(iid, inst)
	case op == ir.OpRet:
		s.selectRet(inst)
	case op == ir.OpJump:
		s.selectJump(inst)
	case op == ir.OpSwitch:
		s.selectSwitch(inst)
	case op == ir.OpUnreachable:
		s.b.Comment("unreachable")
	default:
		panic("lower: selector: unhandled opcode " + op.String())
	}
}

var intBinOpcode = map[ir.Opcode]mir.Opcode{
	ir.OpAdd: mir.OpAddReg, ir.OpSub: mir.OpSubReg, ir.OpMul: mir.OpMul,
	ir.OpSDiv: mir.OpSDiv, ir.OpUDiv: mir.OpUDiv,
	ir.OpAnd: mir.OpAndReg, ir.OpOr: mir.OpOrrReg, ir.OpXor: mir.OpEorReg,
	ir.OpShl: mir.OpLsl, ir.OpLShr: mir.OpLsr, ir.OpAShr: mir.OpAsr,
}

var floatBinOpcode = map[ir.Opcode]mir.Opcode{
	ir.OpFAdd: mir.OpFAdd, ir.OpFSub: mir.OpFSub, ir.OpFMul: mir.OpFMul, ir.OpFDiv: mir.OpFDiv,
}

func (s *Selector) selectBinOp(iid ir.InstID, inst *ir.Instruction) {
	ops := s.IR.Operands(iid)
	lhs := s.resolve(s.IR.UseOf(ops[0]).Target())
	rhs := s.resolve(s.IR.UseOf(ops[1]).Target())
	dst := s.defOf(iid, inst.ResultType())

	if op := inst.Opcode(); op == ir.OpSRem || op == ir.OpURem {
		s.selectRem(op, dst, lhs, rhs)
		return
	}
	mop, ok := intBinOpcode[inst.Opcode()]
	if !ok {
		panic("lower: selector: unhandled integer binop " + inst.Opcode().String())
	}
	s.b.BinOp(mop, dst, lhs, rhs)
}

// selectRem synthesizes SRem/URem from SDiv/UDiv, Mul and Sub: AArch64
// has no remainder instruction.
func (s *Selector) selectRem(op ir.Opcode, dst, lhs, rhs mir.Operand) {
	divOp := mir.OpSDiv
	if op == ir.OpURem {
		divOp = mir.OpUDiv
	}
	q := s.freshLike(dst)
	s.b.BinOp(divOp, q, lhs, rhs)
	prod := s.freshLike(dst)
	s.b.BinOp(mir.OpMul, prod, asUse(q), rhs)
	s.b.BinOp(mir.OpSubReg, dst, lhs, asUse(prod))
}

func (s *Selector) selectFBinOp(iid ir.InstID, inst *ir.Instruction) {
	if inst.Opcode() == ir.OpFRem {
		s.selectFRem(iid, inst)
		return
	}
	ops := s.IR.Operands(iid)
	lhs := s.resolve(s.IR.UseOf(ops[0]).Target())
	rhs := s.resolve(s.IR.UseOf(ops[1]).Target())
	dst := s.defOf(iid, inst.ResultType())
	mop, ok := floatBinOpcode[inst.Opcode()]
	if !ok {
		panic("lower: selector: unhandled float binop " + inst.Opcode().String())
	}
	s.b.BinOp(mop, dst, lhs, rhs)
}

// selectFRem has no AArch64 instruction counterpart, so it lowers to a
// call against the platform libm (fmodf for f32, fmod for f64).
func (s *Selector) selectFRem(iid ir.InstID, inst *ir.Instruction) {
	ops := s.IR.Operands(iid)
	lhs := s.resolve(s.IR.UseOf(ops[0]).Target())
	rhs := s.resolve(s.IR.UseOf(ops[1]).Target())
	sub := s.subRegOf(inst.ResultType())

	d0 := mir.PhysRegOperand(mir.NewPhysReg(0, mir.RegClassFloat), sub, mir.UseFlagDef)
	s.b.Unary(mir.OpFMov, d0, lhs)
	d1 := mir.PhysRegOperand(mir.NewPhysReg(1, mir.RegClassFloat), sub, mir.UseFlagDef)
	s.b.Unary(mir.OpFMov, d1, rhs)

	sym := "fmod"
	if inst.ResultType() == types.F32 {
		sym = "fmodf"
	}
	s.b.BL(sym)

	dst := s.defOf(iid, inst.ResultType())
	ret := mir.PhysRegOperand(mir.NewPhysReg(0, mir.RegClassFloat), sub, mir.UseFlagUse)
	s.b.Unary(mir.OpFMov, dst, ret)
}

func (s *Selector) selectCast(iid ir.InstID, inst *ir.Instruction) {
	ops := s.IR.Operands(iid)
	src := s.resolve(s.IR.UseOf(ops[0]).Target())
	dst := s.defOf(iid, inst.ResultType())
	switch inst.CastKind() {
	case ir.CastSExt:
		s.b.Unary(mir.OpSxt, dst, src)
	case ir.CastZExt:
		s.b.Unary(mir.OpUxt, dst, src)
	case ir.CastTrunc, ir.CastPtrToInt, ir.CastIntToPtr:
		s.b.Unary(mir.OpMovReg, dst, src)
	case ir.CastBitCast:
		if s.Types.IsFloat(inst.AuxType()) != s.Types.IsFloat(inst.ResultType()) {
			s.b.Unary(mir.OpFMov, dst, src)
		} else {
			s.b.Unary(mir.OpMovReg, dst, src)
		}
	case ir.CastFPExt, ir.CastFPTrunc:
		s.b.Unary(mir.OpFCvt, dst, src)
	case ir.CastFPToSI:
		s.b.Unary(mir.OpFCvtZS, dst, src)
	case ir.CastFPToUI:
		s.b.Unary(mir.OpFCvtZU, dst, src)
	case ir.CastSIToFP:
		s.b.Unary(mir.OpSCvtF, dst, src)
	case ir.CastUIToFP:
		s.b.Unary(mir.OpUCvtF, dst, src)
	default:
		panic("lower: selector: unhandled cast kind " + inst.CastKind().String())
	}
}

func (s *Selector) selectLoad(iid ir.InstID, inst *ir.Instruction) {
	ops := s.IR.Operands(iid)
	ptr := s.resolve(s.IR.UseOf(ops[0]).Target())
	dst := s.defOf(iid, inst.ResultType())
	s.b.Ldr(mir.OpLdr, dst, ptr, 0)
}

func (s *Selector) selectStore(inst *ir.Instruction) {
	ops := s.IR.Operands(inst.Self())
	src := s.resolve(s.IR.UseOf(ops[0]).Target())
	ptr := s.resolve(s.IR.UseOf(ops[1]).Target())
	s.b.Str(src, ptr, 0)
}

// selectAlloca emits a placeholder frame-pointer-relative add, tagged with a
// "local:" comment carrying the key, byte size and alignment that pass 4
// (stack materialization) parses back out of Instruction.Comment() to
// reserve the local's slot and patch the real offset in via
// Instruction.SetOperand once the frame layout is known.
func (s *Selector) selectAlloca(iid ir.InstID, inst *ir.Instruction) {
	s.localCounter++
	key := fmt.Sprintf("local.%d", s.localCounter)
	size := s.Types.SizeOf(inst.AuxType())
	align := inst.Alignment() // Alignment() already folds align-log2=0 into 1 byte.
	dst := s.defOf(iid, inst.ResultType())
	fp := mir.PhysRegOperand(mir.NewPhysReg(mir.RegFP, mir.RegClassInt), mir.Full64, mir.UseFlagUse)
	id := s.b.BinOp(mir.OpAddImm, dst, fp, mir.ImmOperand(0))
	s.MM.Inst(id).SetComment(fmt.Sprintf("local:%s:size=%d:align=%d", key, size, align))
}

// selectGEP walks the pointer/array/struct stepping chain with
// types.ElemOf/FieldOffset, folding constant-index steps into a running
// byte offset and only emitting multiply/add pairs for the variable-index
// steps a runtime array subscript needs.
func (s *Selector) selectGEP(iid ir.InstID, inst *ir.Instruction) {
	ops := s.IR.Operands(iid)
	base := s.resolve(s.IR.UseOf(ops[0]).Target())
	curType := inst.AuxType()

	var constOff int64
	var acc mir.Operand
	hasAcc := false

	for _, uid := range ops[1:] {
		idxVal := s.IR.UseOf(uid).Target()
		if t := s.Types.Get(curType); t.Kind() == types.KindStructAlias {
			curType = t.Aliasee()
		}
		switch s.Types.Get(curType).Kind() {
		case types.KindStruct:
			field := int(idxVal.ConstBits())
			off, ftype := s.Types.FieldOffset(curType, field)
			constOff += int64(off)
			curType = ftype
		case types.KindPointer, types.KindArray:
			elem := s.Types.ElemOf(curType)
			size := int64(s.Types.SizeOf(elem))
			if idxVal.Kind() == ir.ValueConstData {
				constOff += int64(idxVal.ConstBits()) * size
			} else {
				idxOp := s.resolve(idxVal)
				sizeOp := s.immReg64(size)
				step := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
				s.b.BinOp(mir.OpMul, step, idxOp, sizeOp)
				if hasAcc {
					sum := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
					s.b.BinOp(mir.OpAddReg, sum, acc, asUse(step))
					acc = asUse(sum)
				} else {
					acc = asUse(step)
					hasAcc = true
				}
			}
			curType = elem
		default:
			panic("lower: selector: GEP step into non-aggregate type " + s.Types.Get(curType).Kind().String())
		}
	}

	dst := s.defOf(iid, inst.ResultType())
	cur := base
	if hasAcc {
		tmp := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
		s.b.BinOp(mir.OpAddReg, tmp, cur, acc)
		cur = asUse(tmp)
	}
	if constOff != 0 {
		s.b.BinOp(mir.OpAddImm, dst, cur, mir.ImmOperand(constOff))
	} else {
		s.b.Unary(mir.OpMovReg, dst, cur)
	}
}

func (s *Selector) immReg64(v int64) mir.Operand {
	dst := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
	s.emitMovImm(dst, uint64(v), mir.Full64)
	return asUse(dst)
}

func (s *Selector) selectSelect(iid ir.InstID, inst *ir.Instruction) {
	ops := s.IR.Operands(iid)
	condUse := s.IR.UseOf(ops[0])
	trueUse := s.IR.UseOf(ops[1])
	falseUse := s.IR.UseOf(ops[2])
	dst := s.defOf(iid, inst.ResultType())

	if s.isFusableCond(condUse) {
		p := s.pending
		s.pending = nil
		s.emitCompare(p)
		s.b.CSel(dst, s.resolve(trueUse.Target()), s.resolve(falseUse.Target()), s.condOf(p))
		return
	}
	if s.pending != nil {
		s.flushPending()
	}
	cond := s.resolve(condUse.Target())
	s.b.Cmp(mir.OpCmpImm, cond, mir.ImmOperand(0))
	s.b.CSel(dst, s.resolve(trueUse.Target()), s.resolve(falseUse.Target()), mir.CondNE)
}

func (s *Selector) selectCall(iid ir.InstID, inst *ir.Instruction) {
	ops := s.IR.Operands(iid)
	calleeUse := s.IR.UseOf(ops[0])

	var ints, floats uint8
	for _, uid := range ops[1:] {
		use := s.IR.UseOf(uid)
		target := use.Target()
		val := s.resolve(target)
		typ := target.Type()
		if s.Types.IsFloat(typ) {
			if floats > 7 {
				panic("lower: selector: call with more than 8 floating-point arguments is unsupported (AAPCS64 stack-passed arguments out of scope)")
			}
			dst := mir.PhysRegOperand(mir.NewPhysReg(floats, mir.RegClassFloat), s.subRegOf(typ), mir.UseFlagDef)
			s.b.Unary(mir.OpFMov, dst, val)
			floats++
			continue
		}
		if ints > 7 {
			panic("lower: selector: call with more than 8 integer/pointer arguments is unsupported (AAPCS64 stack-passed arguments out of scope)")
		}
		dst := mir.PhysRegOperand(mir.NewPhysReg(ints, mir.RegClassInt), s.subRegOf(typ), mir.UseFlagDef)
		s.b.Unary(mir.OpMovReg, dst, val)
		ints++
	}

	callee := calleeUse.Target()
	if callee.Kind() == ir.ValueGlobal {
		g := s.IR.GlobalOf(callee.GlobalID())
		s.b.BL(g.Name())
	} else {
		s.b.BLR(s.resolve(callee))
	}

	if inst.ResultType() == types.Void {
		return
	}
	dst := s.defOf(iid, inst.ResultType())
	movOp := mir.OpMovReg
	class := mir.RegClassInt
	if s.Types.IsFloat(inst.ResultType()) {
		movOp = mir.OpFMov
		class = mir.RegClassFloat
	}
	ret := mir.PhysRegOperand(mir.NewPhysReg(0, class), s.subRegOf(inst.ResultType()), mir.UseFlagUse)
	s.b.Unary(movOp, dst, ret)
}

func (s *Selector) selectRet(inst *ir.Instruction) {
	ops := s.IR.Operands(inst.Self())
	if len(ops) > 0 {
		use := s.IR.UseOf(ops[0])
		target := use.Target()
		typ := target.Type()
		val := s.resolve(target)
		movOp := mir.OpMovReg
		class := mir.RegClassInt
		if s.Types.IsFloat(typ) {
			movOp = mir.OpFMov
			class = mir.RegClassFloat
		}
		dst := mir.PhysRegOperand(mir.NewPhysReg(0, class), s.subRegOf(typ), mir.UseFlagDef)
		s.b.Unary(movOp, dst, val)
	}
	s.b.Ret()
}

func (s *Selector) selectJump(inst *ir.Instruction) {
	s.emitEdgeCopies(inst.Self())
	jts := s.IR.JumpTargets(inst.Self())
	s.b.B(s.blocks[s.IR.JumpTargetOf(jts[0]).Target()])
}

func (s *Selector) selectBr(inst *ir.Instruction) {
	ops := s.IR.Operands(inst.Self())
	condUse := s.IR.UseOf(ops[0])
	jts := s.IR.JumpTargets(inst.Self())
	trueB := s.blocks[s.IR.JumpTargetOf(jts[0]).Target()]
	falseB := s.blocks[s.IR.JumpTargetOf(jts[1]).Target()]

	s.emitEdgeCopies(inst.Self())

	if s.isFusableCond(condUse) {
		p := s.pending
		s.pending = nil
		s.emitCompare(p)
		s.b.BCond(s.condOf(p), trueB)
		s.b.B(falseB)
		return
	}
	if s.pending != nil {
		s.flushPending()
	}
	cond := s.resolve(condUse.Target())
	s.b.Cmp(mir.OpCmpImm, cond, mir.ImmOperand(0))
	s.b.BCond(mir.CondNE, trueB)
	s.b.B(falseB)
}

// switchTableMinCases and switchTableDensityPercent gate jump-table
// dispatch: below minCases a compare
// chain is already cheap to branch-predict and shorter to emit, and below
// the density threshold a table would spend more .rodata on default-filler
// entries than it saves in comparisons.
const (
	switchTableMinCases       = 4
	switchTableDensityPercent = 50
)

type switchCase struct {
	lit    uint64
	target ir.BlockID
}

// selectSwitch lowers to either a jump table read through an indirect
// branch or a linear compare-and-branch chain, picking the table once the
// case set is dense enough to make it worthwhile (trySelectSwitchTable
// decides). Case ranges (lo != hi) are out of scope for both paths; only
// single-value cases are supported today.
func (s *Selector) selectSwitch(inst *ir.Instruction) {
	ops := s.IR.Operands(inst.Self())
	val := s.resolve(s.IR.UseOf(ops[0]).Target())

	s.emitEdgeCopies(inst.Self())

	jts := s.IR.JumpTargets(inst.Self())
	var defaultTarget ir.BlockID
	var cases []switchCase
	for _, jid := range jts {
		jt := s.IR.JumpTargetOf(jid)
		if jt.Kind() == ir.JumpTargetSwitchDefault {
			defaultTarget = jt.Target()
			continue
		}
		lo, hi := jt.CaseValue()
		if lo != hi {
			panic("lower: selector: switch case ranges are not implemented, only single-value cases")
		}
		cases = append(cases, switchCase{lit: lo, target: jt.Target()})
	}

	if s.trySelectSwitchTable(val, cases, defaultTarget) {
		return
	}
	for _, c := range cases {
		s.b.Cmp(mir.OpCmpImm, val, mir.ImmOperand(int64(c.lit)))
		s.b.BCond(mir.CondEQ, s.blocks[c.target])
	}
	s.b.B(s.blocks[defaultTarget])
}

// trySelectSwitchTable emits a density-based jump table for cases (base
// address via the same Adrp/AddSymbolLo pair materializeGlobalAddr uses for
// a global's address, indexed with one Lsl+Ldr, dispatched through Br) and
// reports whether it did so; on false, selectSwitch falls back to a
// compare-and-branch chain instead. A value outside [lo, hi] is routed to
// defaultTarget by an unsigned bounds check (CondHI) before the table load,
// so the table itself never needs a default-filled entry beyond the span.
func (s *Selector) trySelectSwitchTable(val mir.Operand, cases []switchCase, defaultTarget ir.BlockID) bool {
	if len(cases) < switchTableMinCases {
		return false
	}
	lo, hi := cases[0].lit, cases[0].lit
	for _, c := range cases {
		if c.lit < lo {
			lo = c.lit
		}
		if c.lit > hi {
			hi = c.lit
		}
	}
	span := hi - lo + 1
	if span == 0 || span > uint64(len(cases))*100/switchTableDensityPercent {
		return false
	}

	defaultLabel := s.MM.BlockOf(s.blocks[defaultTarget]).Label()
	targets := make([]string, span)
	for i := range targets {
		targets[i] = defaultLabel
	}
	for _, c := range cases {
		targets[c.lit-lo] = s.MM.BlockOf(s.blocks[c.target]).Label()
	}
	table := &mir.SwitchTable{
		Label:   fmt.Sprintf(".Lswitch%d", s.switchCounter),
		Targets: targets,
	}
	s.switchCounter++

	idx := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
	s.b.BinOp(mir.OpSubImm, idx, val, mir.ImmOperand(int64(lo)))
	s.b.Cmp(mir.OpCmpImm, asUse(idx), mir.ImmOperand(int64(span-1)))
	s.b.BCond(mir.CondHI, s.blocks[defaultTarget])

	base := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
	s.b.Adrp(base, table.Label)
	s.b.AddSymbolLo(base, asUse(base), table.Label)

	offset := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
	s.b.BinOp(mir.OpLsl, offset, asUse(idx), mir.ImmOperand(3))

	addr := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
	s.b.BinOp(mir.OpAddReg, addr, asUse(base), asUse(offset))

	entry := mir.VRegOperand(s.MM.NewVReg(s.mfn, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
	s.b.LdrSwitchTable(entry, asUse(addr), 0, table)

	s.b.Br(asUse(entry))
	return true
}

// emitEdgeCopies emits, into the current (predecessor) block, one mov per
// EdgePhi incoming value carried by term's outgoing edges: this is how
// EdgePhi's value is actually materialized, since EdgePhi itself is skipped
// at dispatch time. The copy is inserted at the edge's source, which is
// safe because one IR block lowers to exactly one mir block.
func (s *Selector) emitEdgeCopies(term ir.InstID) {
	for _, jid := range s.IR.JumpTargets(term) {
		target := s.IR.JumpTargetOf(jid).Target()
		for _, iid := range s.IR.Instructions(target) {
			inst := s.IR.Inst(iid)
			if inst.Opcode() != ir.OpEdgePhi {
				break
			}
			for k, uid := range s.IR.Operands(iid) {
				if inst.EdgeOf(k) != jid {
					continue
				}
				src := s.resolve(s.IR.UseOf(uid).Target())
				dst := s.defOf(iid, inst.ResultType())
				movOp := mir.OpMovReg
				if s.Types.IsFloat(inst.ResultType()) {
					movOp = mir.OpFMov
				}
				s.b.Unary(movOp, dst, src)
			}
		}
	}
}
