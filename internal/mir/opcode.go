package mir

// Opcode identifies an AArch64 machine instruction mnemonic family. This
// is a curated subset of A64 sufficient for the lowering pipeline's output
// (integer and double-precision float arithmetic, memory, control flow,
// moves) rather than the full ISA.
type Opcode uint16

const (
	OpInvalid Opcode = iota

	// Integer data processing.
	OpAddReg
	OpAddImm
	OpSubReg
	OpSubImm
	OpMul
	OpSDiv
	OpUDiv
	OpAndReg
	OpOrrReg
	OpEorReg
	OpLsl
	OpLsr
	OpAsr
	OpMvn
	OpNeg

	// Float arithmetic (double precision, matching IEEE f64 ValueSSA).
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFNeg

	// Comparisons / flag producers.
	OpCmpReg
	OpCmpImm
	OpFCmp

	// Conditional select / set, consuming NZCV.
	OpCSel
	OpCSet

	// Moves.
	OpMovReg
	OpMovZ
	OpMovN
	OpMovK
	OpFMov

	// Extend / truncate.
	OpSxt
	OpUxt
	OpSCvtF
	OpUCvtF
	OpFCvtZS
	OpFCvtZU
	OpFCvt // between float widths.

	// Memory.
	OpLdr
	OpStr
	OpLdrsw
	OpLdp
	OpStp

	// Addressing.
	OpAdrp
	OpAddSymbolLo

	// Control flow.
	OpB
	OpBCond
	OpBL
	OpBLR
	OpRet
	OpBr // indirect jump, used by jump-table dispatch.

	// Pseudo-instructions.
	OpComment // annotation no-op, textual output only.
)

func (o Opcode) String() string {
	switch o {
	case OpAddReg:
		return "add"
	case OpAddImm:
		return "add"
	case OpSubReg:
		return "sub"
	case OpSubImm:
		return "sub"
	case OpMul:
		return "mul"
	case OpSDiv:
		return "sdiv"
	case OpUDiv:
		return "udiv"
	case OpAndReg:
		return "and"
	case OpOrrReg:
		return "orr"
	case OpEorReg:
		return "eor"
	case OpLsl:
		return "lsl"
	case OpLsr:
		return "lsr"
	case OpAsr:
		return "asr"
	case OpMvn:
		return "mvn"
	case OpNeg:
		return "neg"
	case OpFAdd:
		return "fadd"
	case OpFSub:
		return "fsub"
	case OpFMul:
		return "fmul"
	case OpFDiv:
		return "fdiv"
	case OpFNeg:
		return "fneg"
	case OpCmpReg, OpCmpImm:
		return "cmp"
	case OpFCmp:
		return "fcmp"
	case OpCSel:
		return "csel"
	case OpCSet:
		return "cset"
	case OpMovReg:
		return "mov"
	case OpMovZ:
		return "movz"
	case OpMovN:
		return "movn"
	case OpMovK:
		return "movk"
	case OpFMov:
		return "fmov"
	case OpSxt:
		return "sxt"
	case OpUxt:
		return "uxt"
	case OpSCvtF:
		return "scvtf"
	case OpUCvtF:
		return "ucvtf"
	case OpFCvtZS:
		return "fcvtzs"
	case OpFCvtZU:
		return "fcvtzu"
	case OpFCvt:
		return "fcvt"
	case OpLdr:
		return "ldr"
	case OpStr:
		return "str"
	case OpLdrsw:
		return "ldrsw"
	case OpLdp:
		return "ldp"
	case OpStp:
		return "stp"
	case OpAdrp:
		return "adrp"
	case OpAddSymbolLo:
		return "add"
	case OpB:
		return "b"
	case OpBCond:
		return "b"
	case OpBL:
		return "bl"
	case OpBLR:
		return "blr"
	case OpRet:
		return "ret"
	case OpBr:
		return "br"
	case OpComment:
		return "//"
	default:
		return "<invalid>"
	}
}

// IsTerminator reports whether o ends a block.
func (o Opcode) IsTerminator() bool {
	switch o {
	case OpB, OpBCond, OpRet, OpBr:
		return true
	default:
		return false
	}
}

// Cond is an AArch64 condition code driving B.cond/CSEL/CSET, produced by
// the NZCV flags a preceding Cmp/FCmp instruction set.
type Cond byte

const (
	CondEQ Cond = iota
	CondNE
	CondHS // unsigned >=
	CondLO // unsigned <
	CondMI // negative
	CondPL // positive or zero
	CondVS
	CondVC
	CondHI
	CondLS
	CondGE
	CondLT
	CondGT
	CondLE
	CondAL
)

func (c Cond) String() string {
	names := [...]string{"eq", "ne", "hs", "lo", "mi", "pl", "vs", "vc", "hi", "ls", "ge", "lt", "gt", "le", "al"}
	if int(c) < len(names) {
		return names[c]
	}
	return "al"
}
