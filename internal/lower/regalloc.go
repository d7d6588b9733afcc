package lower

import (
	"fmt"

	"github.com/medihbt/remusys-ir-sub003/internal/mir"
)

// reservedGPR and reservedFPR are the fixed scratch windows the
// spill-everywhere allocator reloads into: X8-X15 for GPR, D8-D15 for
// FPR. A spilled vreg never keeps a register across two
// instructions: every use gets a reload immediately before it and every
// def gets a spill immediately after, both through one of these windows.
var (
	reservedGPR = [...]uint8{mir.RegTmp0, 9, 10, 11, 12, 13, 14, mir.RegTmp1}
	reservedFPR = [...]uint8{mir.RegTmp0, 9, 10, 11, 12, 13, 14, mir.RegTmp1}
)

// AllocateRegisters runs the spill-everywhere strategy over every
// instruction of fn: every virtual-register operand is rewritten to a
// reserved physical temporary, with a stack-slot reload inserted ahead of
// a use and a stack-slot spill inserted after a def. The temporary cursor
// resets per instruction and panics if an instruction needs more
// than the eight-register reserved window per class — no selected
// instruction in this backend has that many distinct vreg operands of one
// class, so a panic here means a selector bug, not a legitimate program.
//
// Slot assignment itself (the actual frame-relative byte offset each vreg
// spills to) is deferred to stack materialization (pass 4): this pass only
// ever addresses a spill slot through a placeholder `[x29, #0]` tagged with
// a "spill:<vreg>" comment stack materialization resolves, the same
// two-phase convention selectAlloca already uses for locals.
func AllocateRegisters(mm *mir.Module, fn mir.FuncID) {
	ra := &regAllocator{mm: mm, fn: fn}
	for _, bid := range mm.Blocks(fn) {
		ra.allocateBlock(bid)
	}
}

type regAllocator struct {
	mm *mir.Module
	fn mir.FuncID
}

func (ra *regAllocator) allocateBlock(bid mir.BlockID) {
	// Snapshot the instruction list before mutating it: InsertBefore/After
	// splice new instructions into the same block list this range was
	// read from, and a live iterator would re-visit the reloads/spills
	// this pass itself just inserted.
	for _, iid := range ra.mm.Instructions(bid) {
		ra.allocateInst(iid)
	}
}

// scratchCursor hands out reserved temporaries from a fixed window,
// resetting per instruction and panicking on overrun.
type scratchCursor struct {
	gpr, fpr int
}

func (c *scratchCursor) next(class mir.RegClass) mir.PhysReg {
	if class == mir.RegClassFloat {
		if c.fpr >= len(reservedFPR) {
			panic("lower: regalloc: exhausted reserved FPR scratch window for one instruction")
		}
		r := mir.NewPhysReg(reservedFPR[c.fpr], mir.RegClassFloat)
		c.fpr++
		return r
	}
	if c.gpr >= len(reservedGPR) {
		panic("lower: regalloc: exhausted reserved GPR scratch window for one instruction")
	}
	r := mir.NewPhysReg(reservedGPR[c.gpr], mir.RegClassInt)
	c.gpr++
	return r
}

func (ra *regAllocator) allocateInst(iid mir.InstID) {
	inst := ra.mm.Inst(iid)
	if inst.Opcode() == mir.OpComment {
		return
	}
	var cursor scratchCursor
	ops := inst.Operands()
	for k, op := range ops {
		if op.Kind() != mir.OperandVReg {
			continue
		}
		v := op.VReg()
		temp := cursor.next(v.Class())
		physOp := op.WithPhysReg(temp)
		inst.SetOperand(k, physOp)

		if op.UseFlags().Has(mir.UseFlagUse) {
			reload := mir.MakeLdr(mir.OpLdr,
				mir.PhysRegOperand(temp, op.Sub(), mir.UseFlagDef),
				framePointerOperand(), 0,
				spillComment("reload", v))
			ra.mm.InsertBefore(iid, reload)
		}
		if op.UseFlags().Has(mir.UseFlagDef) {
			spill := mir.MakeStr(
				mir.PhysRegOperand(temp, op.Sub(), mir.UseFlagUse),
				framePointerOperand(), 0,
				spillComment("spill", v))
			ra.mm.InsertAfter(iid, spill)
		}
	}
}

func framePointerOperand() mir.Operand {
	return mir.PhysRegOperand(mir.NewPhysReg(mir.RegFP, mir.RegClassInt), mir.Full64, mir.UseFlagUse)
}

// spillComment tags a reload/spill instruction with the vreg it addresses,
// encoding the register class as a one-letter prefix so the full VReg
// (class bit included) round-trips through SpillSlotComment: stack
// materialization keys its offset map by the exact VReg value selection
// produced, not just its dense index.
func spillComment(verb string, v mir.VReg) string {
	tag := "i"
	if v.Class() == mir.RegClassFloat {
		tag = "f"
	}
	return fmt.Sprintf("%s %s%%v%d", verb, tag, v.Index())
}

// SpillSlotComment recovers the vreg a regalloc-inserted reload/spill
// comment names, used by stack materialization to patch its placeholder
// offset once the frame layout is known.
func SpillSlotComment(text string) (mir.VReg, bool) {
	var tag string
	var n uint32
	if _, err := fmt.Sscanf(text, "reload %1s%%v%d", &tag, &n); err == nil {
		return vregFromTag(tag, n), true
	}
	if _, err := fmt.Sscanf(text, "spill %1s%%v%d", &tag, &n); err == nil {
		return vregFromTag(tag, n), true
	}
	return mir.NullVReg, false
}

func vregFromTag(tag string, n uint32) mir.VReg {
	class := mir.RegClassInt
	if tag == "f" {
		class = mir.RegClassFloat
	}
	return mir.MakeVReg(n, class)
}
