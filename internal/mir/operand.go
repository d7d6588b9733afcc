package mir

import "fmt"

// OperandKind tags an Operand cell's variant.
type OperandKind byte

const (
	OperandNone OperandKind = iota
	OperandPhysReg
	OperandVReg
	OperandImm
	OperandSymbol
	OperandSwitchTable
	OperandPState
)

// Operand is a flattened operand cell: a kind tag plus union-ish payload
// fields, one of which is meaningful per kind.
type Operand struct {
	kind OperandKind

	phys PhysReg
	vreg VReg
	sub  SubRegIndex
	use  UseFlags

	imm int64

	symbol string
	offset int64

	switchTable *SwitchTable
}

// PhysRegOperand builds a physical-register operand.
func PhysRegOperand(r PhysReg, sub SubRegIndex, use UseFlags) Operand {
	return Operand{kind: OperandPhysReg, phys: r, sub: sub, use: use}
}

// VRegOperand builds a virtual-register operand, valid before regalloc.
func VRegOperand(v VReg, sub SubRegIndex, use UseFlags) Operand {
	return Operand{kind: OperandVReg, vreg: v, sub: sub, use: use}
}

// ImmOperand builds an immediate operand.
func ImmOperand(v int64) Operand { return Operand{kind: OperandImm, imm: v} }

// SymbolOperand builds a PC-relative or absolute symbol reference
// (function/global address), optionally with a constant byte offset.
func SymbolOperand(name string, offset int64) Operand {
	return Operand{kind: OperandSymbol, symbol: name, offset: offset}
}

// SwitchTableOperand references a jump-table literal in .rodata (switch
// lowering emits a table rather than a comparison chain once the case set
// crosses a density threshold).
func SwitchTableOperand(t *SwitchTable) Operand {
	return Operand{kind: OperandSwitchTable, switchTable: t}
}

// PStateOperand references the NZCV condition-flags register. No builder
// attaches it: flag-setting instructions and conditional branches/selects
// leave their NZCV def/use implicit.
func PStateOperand(use UseFlags) Operand {
	return Operand{kind: OperandPState, use: use}
}

func (o Operand) Kind() OperandKind { return o.kind }
func (o Operand) PhysReg() PhysReg  { o.mustBe(OperandPhysReg); return o.phys }
func (o Operand) VReg() VReg        { o.mustBe(OperandVReg); return o.vreg }
func (o Operand) Sub() SubRegIndex  { return o.sub }
func (o Operand) UseFlags() UseFlags {
	return o.use
}
func (o Operand) Imm() int64 { o.mustBe(OperandImm); return o.imm }
func (o Operand) Symbol() (string, int64) {
	o.mustBe(OperandSymbol)
	return o.symbol, o.offset
}
func (o Operand) SwitchTable() *SwitchTable { o.mustBe(OperandSwitchTable); return o.switchTable }

// IsReg reports whether the operand denotes a register (physical or
// virtual), the two kinds regalloc's rewrite pass needs to treat alike.
func (o Operand) IsReg() bool { return o.kind == OperandPhysReg || o.kind == OperandVReg }

func (o Operand) mustBe(k OperandKind) {
	if o.kind != k {
		panic(fmt.Sprintf("mir: Operand accessor requires kind %d, got %d", k, o.kind))
	}
}

// WithPhysReg returns a copy of a VReg operand rewritten to a physical
// register, preserving sub-register view and use flags. Used by the
// spill-everywhere allocator's rewrite step.
func (o Operand) WithPhysReg(r PhysReg) Operand {
	o.kind = OperandPhysReg
	o.phys = r
	o.vreg = NullVReg
	return o
}

// SwitchTable is a jump-table literal pool entry: one target block label
// per contiguous case value, emitted into .rodata by the textual writer.
type SwitchTable struct {
	Label   string
	Targets []string // block labels, in case-value order.
}
