package mir

import "github.com/medihbt/remusys-ir-sub003/internal/arena"

// InstID is a handle into a Module's instruction arena.
type InstID arena.Handle

func (h InstID) IsNull() bool { return arena.Handle(h).IsNull() }

const NullInstID = InstID(arena.NullHandle)

// Instruction is a flattened AArch64 machine instruction: an opcode plus
// an ordered operand list (dest operands, when present, always come
// first). Operands are a slice since Call/Ldp/Stp/Switch lowering need a
// variable operand count.
type Instruction struct {
	self   InstID
	parent BlockID

	opcode   Opcode
	operands []Operand

	cond Cond // OpBCond/OpCSel/OpCSet.

	memOffset int64    // OpLdr/OpStr/OpLdrsw immediate offset from the base register.
	addrMode  AddrMode // OpLdp/OpStp addressing form for memOffset.

	target  BlockID // OpB/OpBCond/OpBr direct intra-function target.
	comment string  // OpComment payload, and an optional trailing annotation on any instruction.

	blockLink arena.Node
}

func (i *Instruction) blockLinks() *arena.Node { return &i.blockLink }

func (i *Instruction) Self() InstID      { return i.self }
func (i *Instruction) Parent() BlockID   { return i.parent }
func (i *Instruction) Opcode() Opcode    { return i.opcode }
func (i *Instruction) Operands() []Operand { return i.operands }
func (i *Instruction) Cond() Cond        { return i.cond }
func (i *Instruction) MemOffset() int64  { return i.memOffset }
func (i *Instruction) AddrMode() AddrMode { return i.addrMode }
func (i *Instruction) Target() BlockID   { return i.target }
func (i *Instruction) Comment() string   { return i.comment }

// SetComment attaches a trailing assembly comment (e.g. "// spill %12"),
// used by the register allocator to annotate inserted spill code so a
// reader of the textual dump can tell generated reloads from selected
// code.
func (i *Instruction) SetComment(c string) { i.comment = c }

// AddrMode selects how a load/store-pair's memOffset combines with its
// base register. BaseOffset is the plain [base, #off] form; PreIndex
// writes back base+off before the access ([base, #off]!); PostIndex
// accesses at base and writes back base+off afterwards ([base], #off).
// The writeback forms keep the immediate small and constant (the pair
// save/restore only ever steps by the pair's own 16 bytes), so they stay
// encodable no matter how large the surrounding frame grows.
type AddrMode byte

const (
	AddrBaseOffset AddrMode = iota
	AddrPreIndex
	AddrPostIndex
)

// SetOpcode rewrites the operation in place, used by stack materialization
// to flip a placeholder ADD-immediate into its SUB-immediate or
// register-form sibling once the sign and magnitude of the real frame
// offset are known.
func (i *Instruction) SetOpcode(op Opcode) { i.opcode = op }

// SetOperand overwrites operand index k in place, used by stack
// materialization (pass 4) to patch a placeholder immediate emitted at
// selection time once the real frame-relative offset is known, and by the
// register allocator's rewrite step to replace a vreg operand with its
// assigned physical register.
func (i *Instruction) SetOperand(k int, o Operand) { i.operands[k] = o }

// SetMemOffset overwrites a load/store's base-relative displacement in
// place, used by stack materialization (pass 4) to patch a placeholder
// spill/reload/local-address offset once the frame's slot map is known.
func (i *Instruction) SetMemOffset(off int64) { i.memOffset = off }

// Defs returns the register operands this instruction writes to: those
// whose UseFlags include UseFlagDef.
func (i *Instruction) Defs() []Operand {
	var out []Operand
	for _, o := range i.operands {
		if o.IsReg() && o.UseFlags().Has(UseFlagDef) {
			out = append(out, o)
		}
	}
	return out
}

// Uses returns the operands this instruction reads.
func (i *Instruction) Uses() []Operand {
	var out []Operand
	for _, o := range i.operands {
		if o.IsReg() && o.UseFlags().Has(UseFlagUse) {
			out = append(out, o)
		}
	}
	return out
}
