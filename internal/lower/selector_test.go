package lower_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medihbt/remusys-ir-sub003/internal/ir"
	"github.com/medihbt/remusys-ir-sub003/internal/lower"
	"github.com/medihbt/remusys-ir-sub003/internal/mir"
	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

func buildIcmpBranchFunction(t *testing.T) (*ir.Module, ir.GlobalID) {
	t.Helper()
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.I32, types.I32}, types.I32)
	fn := m.NewFunction("pick_min", ir.LinkageExternal, sig, 2)

	entry := m.NewBlock(fn)
	thenB := m.NewBlock(fn)
	elseB := m.NewBlock(fn)

	b := ir.NewBuilder(m)
	a0 := ir.FuncArg(types.I32, fn, 0)
	a1 := ir.FuncArg(types.I32, fn, 1)

	cmp := b.Icmp(entry, ir.ICmpSlt, types.I1, a0, a1)
	b.Br(entry, ir.InstValue(types.I1, cmp), thenB, elseB)
	b.Ret(thenB, a0)
	b.Ret(elseB, a1)

	n := lower.BreakCriticalEdges(m, fn)
	require.Equal(t, 0, n)
	require.NoError(t, ir.Check(m))
	return m, fn
}

func TestSelectFunction_FusesIcmpIntoBranch(t *testing.T) {
	m, fn := buildIcmpBranchFunction(t)
	mm := mir.NewModule()
	mfn := lower.SelectFunction(m, mm, fn)

	blocks := mm.Blocks(mfn)
	entryInsts := mm.Instructions(blocks[0])

	var sawCmp, sawBCond, sawCSet bool
	for _, iid := range entryInsts {
		switch mm.Inst(iid).Opcode() {
		case mir.OpCmpReg:
			sawCmp = true
		case mir.OpBCond:
			require.True(t, sawCmp, "BCond must follow its fused Cmp")
			sawBCond = true
		case mir.OpCSet:
			sawCSet = true
		}
	}
	require.True(t, sawCmp, "expected a Cmp to be emitted")
	require.True(t, sawBCond, "expected a BCond to be emitted")
	require.False(t, sawCSet, "a branch directly consuming the icmp must not materialize a CSet")
}

func buildAllocaFunction(t *testing.T) (*ir.Module, ir.GlobalID) {
	t.Helper()
	m := ir.NewModule()
	sig := m.Types.Func(nil, types.I32)
	fn := m.NewFunction("make_local", ir.LinkageExternal, sig, 0)
	entry := m.NewBlock(fn)

	b := ir.NewBuilder(m)
	ptrT := m.Types.Pointer(types.I32)
	slot := b.Alloca(entry, ptrT, types.I32, 2)
	loaded := b.Load(entry, types.I32, ir.InstValue(ptrT, slot), 2)
	b.Ret(entry, ir.InstValue(types.I32, loaded))

	require.NoError(t, ir.Check(m))
	return m, fn
}

func TestSelectFunction_TagsAllocaPlaceholderWithLocalComment(t *testing.T) {
	m, fn := buildAllocaFunction(t)
	mm := mir.NewModule()
	mfn := lower.SelectFunction(m, mm, fn)

	var found bool
	for _, bid := range mm.Blocks(mfn) {
		for _, iid := range mm.Instructions(bid) {
			inst := mm.Inst(iid)
			if inst.Opcode() == mir.OpAddImm && strings.HasPrefix(inst.Comment(), "local:") {
				found = true
			}
		}
	}
	require.True(t, found, "expected alloca lowering to leave a local:-tagged placeholder add")
}

func buildSRemFunction(t *testing.T) (*ir.Module, ir.GlobalID) {
	t.Helper()
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.I32, types.I32}, types.I32)
	fn := m.NewFunction("mod", ir.LinkageExternal, sig, 2)
	entry := m.NewBlock(fn)

	b := ir.NewBuilder(m)
	a0 := ir.FuncArg(types.I32, fn, 0)
	a1 := ir.FuncArg(types.I32, fn, 1)
	rem := b.BinOp(entry, ir.OpSRem, types.I32, a0, a1)
	b.Ret(entry, ir.InstValue(types.I32, rem))

	require.NoError(t, ir.Check(m))
	return m, fn
}

func TestSelectFunction_SynthesizesSRemAsDivMulSub(t *testing.T) {
	m, fn := buildSRemFunction(t)
	mm := mir.NewModule()
	mfn := lower.SelectFunction(m, mm, fn)

	var opcodes []mir.Opcode
	for _, bid := range mm.Blocks(mfn) {
		for _, iid := range mm.Instructions(bid) {
			opcodes = append(opcodes, mm.Inst(iid).Opcode())
		}
	}

	idxDiv, idxMul, idxSub := -1, -1, -1
	for i, op := range opcodes {
		switch op {
		case mir.OpSDiv:
			idxDiv = i
		case mir.OpMul:
			idxMul = i
		case mir.OpSubReg:
			idxSub = i
		}
	}
	require.NotEqual(t, -1, idxDiv, "srem must synthesize an sdiv")
	require.NotEqual(t, -1, idxMul, "srem must synthesize a mul")
	require.NotEqual(t, -1, idxSub, "srem must synthesize a sub")
	require.True(t, idxDiv < idxMul && idxMul < idxSub, "srem synthesis must emit sdiv, then mul, then sub in order")
}
