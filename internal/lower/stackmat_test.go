package lower_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medihbt/remusys-ir-sub003/internal/ir"
	"github.com/medihbt/remusys-ir-sub003/internal/lower"
	"github.com/medihbt/remusys-ir-sub003/internal/mir"
	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

// buildLocalFunction builds `f() { %p = alloca [n x i8]; store 0, %p; ret }`
// so selection leaves a local placeholder behind and regalloc has spill
// traffic, giving stack materialization a real frame to lay out.
func buildLocalFunction(t *testing.T, n uint64) (*ir.Module, ir.GlobalID) {
	t.Helper()
	m := ir.NewModule()
	arr := m.Types.Array(types.I8, n)
	ptr := m.Types.Pointer(arr)
	sig := m.Types.Func(nil, types.Void)
	fn := m.NewFunction("with_local", ir.LinkageExternal, sig, 0)
	entry := m.NewBlock(fn)

	b := ir.NewBuilder(m)
	p := b.Alloca(entry, ptr, arr, 0)
	b.Store(entry, types.I8, ir.ConstData(types.I8, 0), ir.InstValue(ptr, p), 0)
	b.Ret(entry, ir.None)

	require.NoError(t, ir.Check(m))
	return m, fn
}

func lowerThroughRegalloc(t *testing.T, m *ir.Module, fn ir.GlobalID) (*mir.Module, mir.FuncID) {
	t.Helper()
	mm := mir.NewModule()
	mfn := lower.SelectFunction(m, mm, fn)
	lower.AllocateRegisters(mm, mfn)
	return mm, mfn
}

func opcodesOf(mm *mir.Module, bid mir.BlockID) []mir.Opcode {
	var out []mir.Opcode
	for _, iid := range mm.Instructions(bid) {
		out = append(out, mm.Inst(iid).Opcode())
	}
	return out
}

func TestMaterializeStack_EmitsFrameAndMirroredEpilogue(t *testing.T) {
	m, fn := buildLocalFunction(t, 64)
	mm, mfn := lowerThroughRegalloc(t, m, fn)

	layout := lower.MaterializeStack(mm, mfn)
	require.Greater(t, layout.FrameSize, int64(0))
	require.Zero(t, layout.FrameSize%16, "frame size must stay 16-byte aligned")
	require.Len(t, layout.CalleeSaved, 2, "a framed leaf still saves the FP/LR pair")

	entry := mm.Blocks(mfn)[0]
	ops := opcodesOf(mm, entry)

	// Prologue order: STP x29,x30,[sp,#-16]!; ADD x29,SP,#0; SUB SP,#body —
	// before any selected code.
	require.Equal(t, mir.OpStp, ops[0])
	require.Equal(t, mir.OpAddImm, ops[1])
	require.Equal(t, mir.OpSubImm, ops[2])

	stp := mm.Inst(mm.Instructions(entry)[0])
	require.Equal(t, mir.AddrPreIndex, stp.AddrMode())
	require.Equal(t, int64(-16), stp.MemOffset())

	// Epilogue mirrors it immediately ahead of the return.
	require.Equal(t, mir.OpRet, ops[len(ops)-1])
	require.Equal(t, mir.OpLdp, ops[len(ops)-2])
	require.Equal(t, mir.OpAddImm, ops[len(ops)-3])

	insts := mm.Instructions(entry)
	ldp := mm.Inst(insts[len(insts)-2])
	require.Equal(t, mir.AddrPostIndex, ldp.AddrMode())
	require.Equal(t, int64(16), ldp.MemOffset())
}

// requireOffsetsEncodable re-checks the pass's own postcondition from the
// outside: every load/store displacement left in fn must fit its
// instruction's immediate encoding.
func requireOffsetsEncodable(t *testing.T, mm *mir.Module, mfn mir.FuncID) {
	t.Helper()
	for _, bid := range mm.Blocks(mfn) {
		for _, iid := range mm.Instructions(bid) {
			inst := mm.Inst(iid)
			off := inst.MemOffset()
			switch inst.Opcode() {
			case mir.OpLdr, mir.OpLdrsw, mir.OpStr:
				ok := (off >= -256 && off <= 255) || (off >= 0 && off%8 == 0 && off/8 <= 4095)
				require.True(t, ok, "load/store offset %d is not encodable", off)
			case mir.OpLdp, mir.OpStp:
				require.Zero(t, off%8, "pair offset %d must be 8-byte scaled", off)
				require.GreaterOrEqual(t, off, int64(-512))
				require.LessOrEqual(t, off, int64(504))
			}
		}
	}
}

func TestMaterializeStack_RebasesSpillSlotsOntoFramePointer(t *testing.T) {
	m, fn := buildLocalFunction(t, 16)
	mm, mfn := lowerThroughRegalloc(t, m, fn)

	layout := lower.MaterializeStack(mm, mfn)
	requireOffsetsEncodable(t, mm, mfn)
	require.NotEmpty(t, layout.SpillOffsets)
	for v, off := range layout.SpillOffsets {
		require.Negative(t, off, "spill slot for %v must sit below the saved FP/LR pair", v)
		require.Equal(t, off, layout.Offset(v))
	}
	for key, off := range layout.LocalOffsets {
		require.Negative(t, off, "local %q must sit below the saved FP/LR pair", key)
	}
}

// TestMaterializeStack_LargeFrameFallsBackToRegisterForm covers the
// 12-bit-immediate overflow path: a ~5000-byte frame cannot fold into
// `sub sp, sp, #imm`, so the pass materializes the size into x16 via
// MOVZ/MOVK and adjusts SP with the register-form SUB.
func TestMaterializeStack_LargeFrameFallsBackToRegisterForm(t *testing.T) {
	m, fn := buildLocalFunction(t, 5000)
	mm, mfn := lowerThroughRegalloc(t, m, fn)

	layout := lower.MaterializeStack(mm, mfn)
	require.Greater(t, layout.FrameSize, int64(4095))

	entry := mm.Blocks(mfn)[0]
	ops := opcodesOf(mm, entry)

	// The pair save stays a constant-offset pre-indexed push, the body
	// adjustment goes MOVZ into x16 then register-form SUB.
	require.Equal(t, mir.OpStp, ops[0])
	require.Equal(t, int64(-16), mm.Inst(mm.Instructions(entry)[0]).MemOffset())
	require.Contains(t, ops[:5], mir.OpMovZ)
	require.Contains(t, ops[:5], mir.OpSubReg)
	requireOffsetsEncodable(t, mm, mfn)
}

func TestMaterializeStack_FramelessFunctionIsLeftUntouched(t *testing.T) {
	m := ir.NewModule()
	sig := m.Types.Func(nil, types.Void)
	fn := m.NewFunction("empty", ir.LinkageExternal, sig, 0)
	entry := m.NewBlock(fn)
	ir.NewBuilder(m).Ret(entry, ir.None)
	require.NoError(t, ir.Check(m))

	mm, mfn := lowerThroughRegalloc(t, m, fn)
	layout := lower.MaterializeStack(mm, mfn)

	require.Zero(t, layout.FrameSize)
	require.Empty(t, layout.CalleeSaved)
	for _, op := range opcodesOf(mm, mm.Blocks(mfn)[0]) {
		require.NotContains(t, []mir.Opcode{mir.OpSubImm, mir.OpSubReg, mir.OpStp, mir.OpLdp}, op,
			"an empty function must not grow a frame")
	}
}
