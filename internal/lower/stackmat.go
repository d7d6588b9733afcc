package lower

import (
	"fmt"
	"sort"
	"strings"

	"github.com/medihbt/remusys-ir-sub003/internal/mir"
)

// frameAlign is AAPCS64's stack-alignment requirement at every public
// function boundary. A package variable rather than a
// const so a driver's config can override it (SetFrameAlignment); the
// AAPCS64-mandated default of 16 never changes unless the caller asks.
var frameAlign = int64(16)

// SetFrameAlignment overrides the frame-alignment requirement pass 4
// rounds every frame size up to. n must be a positive power of two, the
// same constraint AAPCS64 itself places on the default of 16.
func SetFrameAlignment(n int64) {
	if n <= 0 || n&(n-1) != 0 {
		panic("lower: SetFrameAlignment: alignment must be a positive power of two")
	}
	frameAlign = n
}

// frameAdjustImmLimit is the largest immediate SUB/ADD's 12-bit unsigned
// encoding can hold unshifted. A frame past this materializes into
// frameTmpReg instead.
const frameAdjustImmLimit = int64(4095)

// frameTmpReg is the scratch register frame-size materialization uses,
// distinct from the regalloc reserved window since the prologue/epilogue
// run outside any instruction regalloc ever rewrites.
const frameTmpReg = 16 // x16 / ip0

// savedPairBytes is the stp/ldp x29,x30 pair the prologue pushes.
const savedPairBytes = 16

type localInfo struct {
	key   string
	size  uint64
	align uint64
}

// MaterializeStack is lowering pass 4: it computes fn's StackLayout from the
// placeholder local-address and spill/reload instructions passes 2 and 3
// left behind, patches every placeholder to its real frame-relative
// offset, and emits the prologue/epilogue frame-adjustment sequence
// (save FP/LR, frame-pointer setup, body reservation; mirrored in reverse
// for the epilogue).
func MaterializeStack(mm *mir.Module, fn mir.FuncID) *mir.StackLayout {
	locals, spills, hasCall := scanPlaceholders(mm, fn)
	layout := planLayout(locals, spills, hasCall)
	mm.Func(fn).SetLayout(layout)
	patchPlaceholders(mm, fn, layout)
	if len(layout.CalleeSaved) > 0 {
		emitPrologue(mm, fn, layout)
		emitEpilogues(mm, fn, layout)
	}
	assertOffsetsEncodable(mm, fn)
	return layout
}

// scanPlaceholders walks every instruction of fn once, collecting the
// locals selectAlloca tagged, the vregs regalloc spilled, and whether the
// function makes any call (a call clobbers the link register, which the
// prologue must then preserve even for an otherwise frameless function).
func scanPlaceholders(mm *mir.Module, fn mir.FuncID) ([]localInfo, []mir.VReg, bool) {
	var locals []localInfo
	seenLocal := map[string]bool{}
	seenSpill := map[mir.VReg]bool{}
	var spills []mir.VReg
	hasCall := false

	for _, bid := range mm.Blocks(fn) {
		for _, iid := range mm.Instructions(bid) {
			inst := mm.Inst(iid)
			switch inst.Opcode() {
			case mir.OpBL, mir.OpBLR:
				hasCall = true
			}
			if key, size, align, ok := parseLocalComment(inst.Comment()); ok {
				if !seenLocal[key] {
					seenLocal[key] = true
					locals = append(locals, localInfo{key: key, size: size, align: align})
				}
				continue
			}
			if v, ok := SpillSlotComment(inst.Comment()); ok {
				if !seenSpill[v] {
					seenSpill[v] = true
					spills = append(spills, v)
				}
			}
		}
	}
	// Deterministic slot order independent of block/instruction iteration,
	// so the same IR always lowers to the same frame layout.
	sort.Slice(spills, func(i, j int) bool { return spills[i] < spills[j] })
	return locals, spills, hasCall
}

// planLayout assigns every spill slot and local a frame-pointer-relative
// offset. The frame has two regions: a growing-down area for spills and
// locals addressed through FP, and a fixed 16-byte area above it holding
// the saved caller FP/LR pair FP itself points at.
func planLayout(locals []localInfo, spills []mir.VReg, hasCall bool) *mir.StackLayout {
	spillOffsets := map[mir.VReg]int64{}
	localOffsets := map[string]int64{}

	var pos uint64 // byte position from the bottom of the frame (= SP).
	for _, v := range spills {
		spillOffsets[v] = int64(pos) // patched to an FP-relative offset below.
		pos += 8
	}
	for _, l := range locals {
		if l.align == 0 {
			l.align = 1
		}
		pos = alignUp(pos, l.align)
		localOffsets[l.key] = int64(pos)
		pos += l.size
	}

	bodyBytes := int64(pos)
	needsFrame := bodyBytes > 0 || hasCall
	layout := &mir.StackLayout{
		SpillOffsets: spillOffsets,
		LocalOffsets: localOffsets,
	}
	if !needsFrame {
		return layout
	}

	layout.CalleeSaved = []mir.PhysReg{
		mir.NewPhysReg(mir.RegFP, mir.RegClassInt),
		mir.NewPhysReg(mir.RegLR, mir.RegClassInt),
	}
	layout.FrameSize = alignUp64(bodyBytes+savedPairBytes, frameAlign)

	// FP sits savedPairBytes below the frame's top, so every body offset
	// (measured up from SP) becomes negative once rebased onto FP.
	fpFromSP := layout.FrameSize - savedPairBytes
	for v, off := range spillOffsets {
		spillOffsets[v] = off - fpFromSP
	}
	for k, off := range localOffsets {
		localOffsets[k] = off - fpFromSP
	}
	return layout
}

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

func alignUp64(v, align int64) int64 {
	return (v + align - 1) / align * align
}

// patchPlaceholders rewrites every selectAlloca address-of-local add and
// every regalloc spill/reload load/store to the real frame offset planLayout
// computed. An offset the instruction's immediate form cannot carry is
// split through frameTmpReg instead of written verbatim.
func patchPlaceholders(mm *mir.Module, fn mir.FuncID, layout *mir.StackLayout) {
	for _, bid := range mm.Blocks(fn) {
		for _, iid := range mm.Instructions(bid) {
			inst := mm.Inst(iid)
			if key, _, _, ok := parseLocalComment(inst.Comment()); ok {
				patchLocalAddr(mm, iid, layout.LocalOffsets[key])
				continue
			}
			if v, ok := SpillSlotComment(inst.Comment()); ok {
				patchSpillAccess(mm, iid, layout.Offset(v))
			}
		}
	}
}

// patchLocalAddr resolves a `add dst, x29, #0` local-address placeholder:
// the offset's sign picks ADD vs SUB, and a magnitude past the 12-bit
// immediate goes through frameTmpReg in register form.
func patchLocalAddr(mm *mir.Module, iid mir.InstID, off int64) {
	inst := mm.Inst(iid)
	mag, immOp, regOp := off, mir.OpAddImm, mir.OpAddReg
	if off < 0 {
		mag, immOp, regOp = -off, mir.OpSubImm, mir.OpSubReg
	}
	if mag <= frameAdjustImmLimit {
		inst.SetOpcode(immOp)
		inst.SetOperand(2, mir.ImmOperand(mag))
		return
	}
	for _, s := range movImmChain(frameTmpOperand(mir.UseFlagDef), uint64(mag)) {
		mm.InsertBefore(iid, s)
	}
	inst.SetOpcode(regOp)
	inst.SetOperand(2, frameTmpOperand(mir.UseFlagUse))
}

// patchSpillAccess resolves a spill/reload load or store's FP-relative
// offset. A slot too far below FP for either direct addressing form gets
// its address computed into frameTmpReg first, and the access goes through
// that with a zero displacement.
func patchSpillAccess(mm *mir.Module, iid mir.InstID, off int64) {
	inst := mm.Inst(iid)
	if ldrStrOffsetEncodable(off) {
		inst.SetMemOffset(off)
		return
	}
	mag, op := off, mir.OpAddReg
	if off < 0 {
		mag, op = -off, mir.OpSubReg
	}
	fp := mir.PhysRegOperand(mir.NewPhysReg(mir.RegFP, mir.RegClassInt), mir.Full64, mir.UseFlagUse)
	seq := movImmChain(frameTmpOperand(mir.UseFlagDef), uint64(mag))
	seq = append(seq, mir.MakeBinOp(op, frameTmpOperand(mir.UseFlagDef), fp, frameTmpOperand(mir.UseFlagUse)))
	for _, s := range seq {
		mm.InsertBefore(iid, s)
	}
	inst.SetOperand(1, frameTmpOperand(mir.UseFlagUse))
	inst.SetMemOffset(0)
}

func frameTmpOperand(use mir.UseFlags) mir.Operand {
	return mir.PhysRegOperand(mir.NewPhysReg(frameTmpReg, mir.RegClassInt), mir.Full64, use)
}

// ldrStrOffsetEncodable reports whether a 64-bit load/store can carry off
// directly: the signed 9-bit unscaled form covers [-256, 255], the
// unsigned scaled form covers non-negative multiples of 8 up to 32760.
func ldrStrOffsetEncodable(off int64) bool {
	if off >= -256 && off <= 255 {
		return true
	}
	return off >= 0 && off%8 == 0 && off/8 <= 4095
}

// pairOffsetEncodable reports whether an Ldp/Stp can carry off: a signed
// 7-bit value scaled by 8, i.e. [-512, 504] in steps of 8.
func pairOffsetEncodable(off int64) bool {
	return off%8 == 0 && off/8 >= -64 && off/8 <= 63
}

// assertOffsetsEncodable is the pass's postcondition sweep: any memory
// displacement still outside its instruction's encoding range at this
// point indicates a lowering bug, which is fatal rather than something to
// hand the assembler.
func assertOffsetsEncodable(mm *mir.Module, fn mir.FuncID) {
	for _, bid := range mm.Blocks(fn) {
		for _, iid := range mm.Instructions(bid) {
			inst := mm.Inst(iid)
			switch inst.Opcode() {
			case mir.OpLdr, mir.OpLdrsw, mir.OpStr:
				if !ldrStrOffsetEncodable(inst.MemOffset()) {
					panic(fmt.Sprintf("lower: stack materialization left out-of-range load/store offset %d", inst.MemOffset()))
				}
			case mir.OpLdp, mir.OpStp:
				if !pairOffsetEncodable(inst.MemOffset()) {
					panic(fmt.Sprintf("lower: stack materialization left out-of-range pair offset %d", inst.MemOffset()))
				}
			}
		}
	}
}

// emitPrologue inserts the frame-setup sequence ahead of fn's entry block's
// first instruction: STP x29,x30,[SP,#-16]!; ADD x29,SP,#0; then SUB
// SP,SP,#body for the spill/local region. Pushing the pair with a
// pre-indexed store keeps its displacement at a constant -16 no matter how
// large the frame body grows — a single STP at the top of a full-frame SUB
// would exceed STP's 7-bit scaled immediate past a 504-byte frame. A
// function always has at least one block with at least a terminator, so
// there is always an anchor to insert before.
func emitPrologue(mm *mir.Module, fn mir.FuncID, layout *mir.StackLayout) {
	blocks := mm.Blocks(fn)
	entry := blocks[0]
	anchor := mm.Instructions(entry)[0]

	sp := spOperand(mir.UseFlagUse)
	fpDef := mir.PhysRegOperand(mir.NewPhysReg(mir.RegFP, mir.RegClassInt), mir.Full64, mir.UseFlagDef)

	seq := []mir.Instruction{
		mir.MakeStpPreIndex(
			mir.PhysRegOperand(mir.NewPhysReg(mir.RegFP, mir.RegClassInt), mir.Full64, mir.UseFlagUse),
			mir.PhysRegOperand(mir.NewPhysReg(mir.RegLR, mir.RegClassInt), mir.Full64, mir.UseFlagUse),
			sp, -savedPairBytes, "save frame"),
		mir.MakeBinOp(mir.OpAddImm, fpDef, sp, mir.ImmOperand(0)),
	}
	if body := layout.FrameSize - savedPairBytes; body > 0 {
		seq = append(seq, adjustSP(mir.OpSubReg, body)...)
	}
	for _, inst := range seq {
		mm.InsertBefore(anchor, inst)
	}
}

// emitEpilogues inserts the mirrored frame-teardown sequence ahead of every
// OpRet in fn: ADD SP,SP,#body; LDP x29,x30,[SP],#16.
func emitEpilogues(mm *mir.Module, fn mir.FuncID, layout *mir.StackLayout) {
	sp := spOperand(mir.UseFlagUse)
	for _, bid := range mm.Blocks(fn) {
		for _, iid := range mm.Instructions(bid) {
			if mm.Inst(iid).Opcode() != mir.OpRet {
				continue
			}
			var seq []mir.Instruction
			if body := layout.FrameSize - savedPairBytes; body > 0 {
				seq = adjustSP(mir.OpAddReg, body)
			}
			seq = append(seq, mir.MakeLdpPostIndex(
				mir.PhysRegOperand(mir.NewPhysReg(mir.RegFP, mir.RegClassInt), mir.Full64, mir.UseFlagDef),
				mir.PhysRegOperand(mir.NewPhysReg(mir.RegLR, mir.RegClassInt), mir.Full64, mir.UseFlagDef),
				sp, savedPairBytes, "restore frame"))
			for _, inst := range seq {
				mm.InsertBefore(iid, inst)
			}
		}
	}
}

func spOperand(use mir.UseFlags) mir.Operand {
	return mir.PhysRegOperand(mir.NewPhysReg(mir.RegSP, mir.RegClassInt), mir.Full64, use)
}

// adjustSP builds the instruction sequence adding (op==OpAddReg) or
// subtracting (op==OpSubReg) n bytes to/from SP. A frame under the 12-bit
// immediate limit folds into one immediate-form instruction; a larger one
// first materializes n into frameTmpReg via a
// MOVZ/MOVK chain and uses the register-form opcode against that.
func adjustSP(op mir.Opcode, n int64) []mir.Instruction {
	sp := spOperand(mir.UseFlagUse)
	spDef := spOperand(mir.UseFlagDef)
	immOp, regOp := mir.OpSubImm, mir.OpSubReg
	if op == mir.OpAddReg {
		immOp, regOp = mir.OpAddImm, mir.OpAddReg
	}
	return addImmOrReg(spDef, sp, n, immOp, regOp)
}

// addImmOrReg builds `dst = src <op> n`, folding into one immediate-form
// instruction when n fits the 12-bit encoding and otherwise materializing n
// into frameTmpReg first and using the register-form opcode.
func addImmOrReg(dst, src mir.Operand, n int64, immOp, regOp mir.Opcode) []mir.Instruction {
	if n <= frameAdjustImmLimit {
		return []mir.Instruction{mir.MakeBinOp(immOp, dst, src, mir.ImmOperand(n))}
	}
	tmpDef := mir.PhysRegOperand(mir.NewPhysReg(frameTmpReg, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
	tmpUse := mir.PhysRegOperand(mir.NewPhysReg(frameTmpReg, mir.RegClassInt), mir.Full64, mir.UseFlagUse)
	seq := movImmChain(tmpDef, uint64(n))
	return append(seq, mir.MakeBinOp(regOp, dst, src, tmpUse))
}

// movImmChain builds the MOVZ/MOVK sequence materializing n into reg,
// mirroring the selector's emitMovImm.
func movImmChain(reg mir.Operand, n uint64) []mir.Instruction {
	var out []mir.Instruction
	wrote := false
	for i := 0; i < 4; i++ {
		w := uint16(n >> uint(i*16))
		if w == 0 && wrote {
			continue
		}
		if !wrote {
			out = append(out, mir.MakeUnary(mir.OpMovZ, reg, mir.ImmOperand(int64(w))))
			wrote = true
			continue
		}
		out = append(out, mir.MakeUnary(mir.OpMovK, reg, mir.ImmOperand(int64(w)|int64(i*16)<<16)))
	}
	if !wrote {
		out = append(out, mir.MakeUnary(mir.OpMovZ, reg, mir.ImmOperand(0)))
	}
	return out
}

func parseLocalComment(c string) (key string, size, align uint64, ok bool) {
	rest, found := strings.CutPrefix(c, "local:")
	if !found {
		return "", 0, 0, false
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 3 {
		return "", 0, 0, false
	}
	if _, err := fmt.Sscanf(parts[1], "size=%d", &size); err != nil {
		return "", 0, 0, false
	}
	if _, err := fmt.Sscanf(parts[2], "align=%d", &align); err != nil {
		return "", 0, 0, false
	}
	return parts[0], size, align, true
}
