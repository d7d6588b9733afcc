package mir

// Builder appends machine instructions to a function block one opcode at a
// time, mirroring internal/ir.Builder's emit-per-opcode shape so instruction
// selection (internal/lower's pass 2) reads as a continuation of the same
// authoring idiom as IR construction rather than a second API to learn.
type Builder struct {
	M     *Module
	Block BlockID
}

// NewBuilder returns a Builder appending to block.
func NewBuilder(m *Module, block BlockID) *Builder { return &Builder{M: m, Block: block} }

// SetBlock redirects subsequent emission to block, used when a selector
// moves on to the next IR block's lowering.
func (b *Builder) SetBlock(block BlockID) { b.Block = block }

func (b *Builder) emit(op Opcode, operands []Operand) *Instruction {
	id := b.M.Append(b.Block, Instruction{opcode: op, operands: operands})
	return b.M.Inst(id)
}

// BinOp emits a three-operand register arithmetic instruction (add/sub/mul/
// div/and/orr/eor/lsl/lsr/asr), dst first by convention.
func (b *Builder) BinOp(op Opcode, dst, lhs, rhs Operand) InstID {
	return b.emit(op, []Operand{dst, lhs, rhs}).self
}

// Unary emits a two-operand instruction (mvn/neg/fneg/sign- and zero-extend/
// int-float conversions/mov).
func (b *Builder) Unary(op Opcode, dst, src Operand) InstID {
	return b.emit(op, []Operand{dst, src}).self
}

// Cmp emits a flag-setting comparison; its only operands are the compared
// values, the NZCV def is implicit (the selector tracks the last flag
// writer itself rather than modeling NZCV as an explicit operand).
func (b *Builder) Cmp(op Opcode, lhs, rhs Operand) InstID {
	return b.emit(op, []Operand{lhs, rhs}).self
}

// CSel emits a conditional select consuming the flags set by the most
// recently selected comparison.
func (b *Builder) CSel(dst, whenTrue, whenFalse Operand, cond Cond) InstID {
	inst := b.emit(OpCSel, []Operand{dst, whenTrue, whenFalse})
	inst.cond = cond
	return inst.self
}

// CSet emits a conditional set (dst = cond ? 1 : 0).
func (b *Builder) CSet(dst Operand, cond Cond) InstID {
	inst := b.emit(OpCSet, []Operand{dst})
	inst.cond = cond
	return inst.self
}

// MovImm emits a MOVZ (the selector is responsible for MOVK chaining when an
// immediate needs more than one 16-bit window).
func (b *Builder) MovImm(dst Operand, imm int64) InstID {
	return b.emit(OpMovZ, []Operand{dst, ImmOperand(imm)}).self
}

// MovK emits a MOVK into one 16-bit window of dst, shift expressed via imm's
// encoding convention (selector-owned, this only records the operand).
func (b *Builder) MovK(dst Operand, imm int64) InstID {
	return b.emit(OpMovK, []Operand{dst, ImmOperand(imm)}).self
}

// Ldr emits a load (Ldr/Ldrsw) from [base, #offset].
func (b *Builder) Ldr(op Opcode, dst, base Operand, offset int64) InstID {
	inst := b.emit(op, []Operand{dst, base})
	inst.memOffset = offset
	return inst.self
}

// Str emits a store of src to [base, #offset].
func (b *Builder) Str(src, base Operand, offset int64) InstID {
	inst := b.emit(OpStr, []Operand{src, base})
	inst.memOffset = offset
	return inst.self
}

// LdrSwitchTable emits a load of a jump-table entry from [base, #offset]
// and carries a trailing SwitchTableOperand referencing t: the textual
// writer's switchTableOf scan picks this up to collect t into .rodata
// without needing a dedicated marker opcode.
// The extra operand carries no register class
// (IsReg is false), so regalloc's vreg rewrite and Defs()/Uses() both skip
// it, and the Ldr format string only ever reads the first two operands.
func (b *Builder) LdrSwitchTable(dst, base Operand, offset int64, t *SwitchTable) InstID {
	inst := b.emit(OpLdr, []Operand{dst, base, SwitchTableOperand(t)})
	inst.memOffset = offset
	return inst.self
}

// Adrp loads the page address of sym into dst.
func (b *Builder) Adrp(dst Operand, sym string) InstID {
	return b.emit(OpAdrp, []Operand{dst, SymbolOperand(sym, 0)}).self
}

// AddSymbolLo completes an Adrp/add pair by adding sym's page offset to
// base, materializing sym's full address in dst.
func (b *Builder) AddSymbolLo(dst, base Operand, sym string) InstID {
	return b.emit(OpAddSymbolLo, []Operand{dst, base, SymbolOperand(sym, 0)}).self
}

// B emits an unconditional intra-function branch.
func (b *Builder) B(target BlockID) InstID {
	inst := b.emit(OpB, nil)
	inst.target = target
	return inst.self
}

// BCond emits a conditional branch on cond.
func (b *Builder) BCond(cond Cond, target BlockID) InstID {
	inst := b.emit(OpBCond, nil)
	inst.cond = cond
	inst.target = target
	return inst.self
}

// BL emits a direct call to sym.
func (b *Builder) BL(sym string) InstID {
	return b.emit(OpBL, []Operand{SymbolOperand(sym, 0)}).self
}

// BLR emits an indirect call through a register operand.
func (b *Builder) BLR(target Operand) InstID {
	return b.emit(OpBLR, []Operand{target}).self
}

// Br emits an indirect jump (jump-table dispatch), through a register
// operand loaded from a SwitchTable entry.
func (b *Builder) Br(target Operand) InstID {
	return b.emit(OpBr, []Operand{target}).self
}

// Ret emits a function return.
func (b *Builder) Ret() InstID {
	return b.emit(OpRet, nil).self
}

// Comment emits a standalone annotation pseudo-instruction, used by
// instruction selection to mark an unreachable point in the textual dump.
// Spill/reload code is annotated through Instruction.SetComment instead.
func (b *Builder) Comment(text string) InstID {
	inst := b.emit(OpComment, nil)
	inst.comment = text
	return inst.self
}

// MakeLdr and MakeStr build a detached load/store Instruction without
// appending it anywhere, for passes that splice instructions into the
// middle of an already-selected block (spill/reload insertion,
// prologue/epilogue emission) rather than at a Builder's tail cursor.
func MakeLdr(op Opcode, dst, base Operand, offset int64, comment string) Instruction {
	return Instruction{opcode: op, operands: []Operand{dst, base}, memOffset: offset, comment: comment}
}

func MakeStr(src, base Operand, offset int64, comment string) Instruction {
	return Instruction{opcode: OpStr, operands: []Operand{src, base}, memOffset: offset, comment: comment}
}

// MakeStpPreIndex and MakeLdpPostIndex build the detached load/store-pair
// writeback forms the prologue/epilogue uses to save/restore the
// frame-pointer/link-register pair: `stp s1, s2, [base, #off]!` pushes the
// pair while adjusting base, `ldp d1, d2, [base], #off` pops it. The
// writeback immediate is the pair's own 16 bytes regardless of frame size,
// so these never run out of STP/LDP's 7-bit scaled encoding range the way
// a single large fixed offset would.
func MakeStpPreIndex(s1, s2, base Operand, offset int64, comment string) Instruction {
	return Instruction{opcode: OpStp, operands: []Operand{s1, s2, base}, memOffset: offset, addrMode: AddrPreIndex, comment: comment}
}

func MakeLdpPostIndex(d1, d2, base Operand, offset int64, comment string) Instruction {
	return Instruction{opcode: OpLdp, operands: []Operand{d1, d2, base}, memOffset: offset, addrMode: AddrPostIndex, comment: comment}
}

// MakeBinOp builds a detached three-operand register instruction, used by
// stack materialization for a SUB/ADD SP adjustment whose immediate
// exceeds the 12-bit encoding range and must go through a reserved
// temporary.
func MakeBinOp(op Opcode, dst, lhs, rhs Operand) Instruction {
	return Instruction{opcode: op, operands: []Operand{dst, lhs, rhs}}
}

// MakeUnary builds a detached two-operand instruction (e.g. a MOVZ/MOVK
// materializing an out-of-range frame size into a scratch register).
func MakeUnary(op Opcode, dst, src Operand) Instruction {
	return Instruction{opcode: op, operands: []Operand{dst, src}}
}

// MakeComment builds a detached standalone comment pseudo-instruction.
func MakeComment(text string) Instruction {
	return Instruction{opcode: OpComment, comment: text}
}
