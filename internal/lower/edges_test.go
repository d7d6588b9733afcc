package lower_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medihbt/remusys-ir-sub003/internal/ir"
	"github.com/medihbt/remusys-ir-sub003/internal/lower"
	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

// buildCriticalEdgeFunction builds:
//
//	entry: br cond, then, merge   (entry has two successors)
//	then:  jump merge
//	merge: phi i32 [%a, entry], [%b, then]   (merge has two preds, one critical)
//	       ret
//
// entry->merge is critical: entry has 2 succs, merge has 2 preds and a phi.
func buildCriticalEdgeFunction(t *testing.T) (*ir.Module, ir.GlobalID, ir.BlockID, ir.BlockID, ir.BlockID, ir.InstID) {
	t.Helper()
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.I1, types.I32, types.I32}, types.I32)
	fn := m.NewFunction("pick", ir.LinkageExternal, sig, 3)

	entry := m.NewBlock(fn)
	thenB := m.NewBlock(fn)
	merge := m.NewBlock(fn)

	b := ir.NewBuilder(m)
	cond := ir.FuncArg(types.I1, fn, 0)
	a := ir.FuncArg(types.I32, fn, 1)
	bArg := ir.FuncArg(types.I32, fn, 2)

	b.Br(entry, cond, thenB, merge)
	b.Jump(thenB, merge)

	phi := b.Phi(merge, types.I32, []ir.PhiIncoming{
		{Value: a, Block: entry},
		{Value: bArg, Block: thenB},
	})
	b.Ret(merge, ir.InstValue(types.I32, phi))

	return m, fn, entry, thenB, merge, phi
}

func TestBreakCriticalEdges_SplitsEntryToMergeEdge(t *testing.T) {
	m, fn, entry, thenB, merge, phi := buildCriticalEdgeFunction(t)
	require.NoError(t, ir.Check(m))

	require.Equal(t, 2, m.BlockOf(merge).NumPreds())

	n := lower.BreakCriticalEdges(m, fn)
	require.Equal(t, 1, n)
	require.NoError(t, ir.Check(m))

	// merge still has exactly two preds, but neither is entry directly
	// anymore: the direct entry->merge edge now lands on a fresh relay
	// block.
	require.Equal(t, 2, m.BlockOf(merge).NumPreds())
	for _, jid := range m.Predecessors(merge) {
		owner := m.Inst(m.JumpTargetOf(jid).Owner()).Parent()
		require.NotEqual(t, entry, owner)
	}

	// the phi's incoming-block operand that used to reference entry now
	// references the relay block, not entry, and not thenB.
	var sawRelay bool
	for _, uid := range m.Operands(phi) {
		use := m.UseOf(uid)
		if use.Kind() != ir.UsePhiIncomingBlock {
			continue
		}
		blk := use.Target().BlockID()
		require.NotEqual(t, entry, blk)
		if blk != thenB {
			sawRelay = true
		}
	}
	require.True(t, sawRelay, "expected one phi incoming-block operand retargeted to the relay block")

	// entry's Br still has two successors, one of which is the relay block.
	entryInsts := m.Instructions(entry)
	brInst := entryInsts[len(entryInsts)-1]
	targets := m.JumpTargets(brInst)
	require.Len(t, targets, 2)
}

func TestBreakCriticalEdges_NoOpWhenNoCriticalEdges(t *testing.T) {
	m, fn, _ := buildAddFunctionForLowerTest(t)
	n := lower.BreakCriticalEdges(m, fn)
	require.Equal(t, 0, n)
}

func buildAddFunctionForLowerTest(t *testing.T) (*ir.Module, ir.GlobalID, ir.BlockID) {
	t.Helper()
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.I32, types.I32}, types.I32)
	fn := m.NewFunction("add", ir.LinkageExternal, sig, 2)
	entry := m.NewBlock(fn)

	b := ir.NewBuilder(m)
	a0 := ir.FuncArg(types.I32, fn, 0)
	a1 := ir.FuncArg(types.I32, fn, 1)
	sum := b.BinOp(entry, ir.OpAdd, types.I32, a0, a1)
	b.Ret(entry, ir.InstValue(types.I32, sum))
	return m, fn, entry
}
