package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medihbt/remusys-ir-sub003/internal/ir"
	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

func buildSnapshotFixture(t *testing.T) *ir.Module {
	t.Helper()
	m := ir.NewModule()

	arrType := m.Types.Array(types.I32, 3)
	lit := m.NewConstExpr(ir.ConstExprArray, arrType, []ir.ValueSSA{
		ir.ConstData(types.I32, 1),
		ir.ConstData(types.I32, 2),
		ir.ConstData(types.I32, 3),
	})
	m.NewVariable("table", ir.LinkageExternal, arrType, true,
		ir.ConstExprValue(arrType, lit), true)

	sig := m.Types.Func([]types.ID{types.I1, types.I32}, types.I32)
	fn := m.NewFunction("pick", ir.LinkageExternal, sig, 2)
	entry := m.NewBlock(fn)
	thenB := m.NewBlock(fn)
	elseB := m.NewBlock(fn)
	merge := m.NewBlock(fn)

	b := ir.NewBuilder(m)
	cond := ir.FuncArg(types.I1, fn, 0)
	a1 := ir.FuncArg(types.I32, fn, 1)
	b.Br(entry, cond, thenB, elseB)
	b.Jump(thenB, merge)
	b.Jump(elseB, merge)
	phi := b.Phi(merge, types.I32, []ir.PhiIncoming{
		{Value: a1, Block: thenB},
		{Value: ir.ConstData(types.I32, 7), Block: elseB},
	})
	b.Ret(merge, ir.InstValue(types.I32, phi))

	require.NoError(t, ir.Check(m))
	return m
}

func TestSnapshot_FlattensGlobalsBlocksAndInstructions(t *testing.T) {
	m := buildSnapshotFixture(t)
	snap := ir.Snapshot(m)

	require.Len(t, snap.Globals, 2)
	require.Equal(t, "table", snap.Globals[0].Name)
	require.Equal(t, "pick", snap.Globals[1].Name)

	table := snap.Globals[0]
	require.Equal(t, ir.GlobalVariable, table.Kind)
	require.True(t, table.ReadOnly)
	require.True(t, table.HasInit)
	require.Equal(t, ir.ValueConstExpr, table.Init.Kind)
	require.Len(t, snap.Exprs, 1)
	require.Len(t, snap.Exprs[table.Init.Expr].Elements, 3)

	pick := snap.Globals[1]
	require.Equal(t, ir.GlobalFunction, pick.Kind)
	require.Equal(t, uint32(2), pick.NumArgs)
	require.Len(t, pick.Blocks, 4)
	require.Len(t, snap.Blocks, 4)

	// Block and instruction numbering is dense: every block's instruction
	// references land inside the inst slice and name this block as parent.
	for _, cb := range pick.Blocks {
		block := snap.Blocks[cb]
		require.Equal(t, ir.CompactGlobalID(1), block.Parent)
		require.NotEmpty(t, block.Insts)
		for _, ci := range block.Insts {
			require.Less(t, int(ci), len(snap.Insts))
			require.Equal(t, cb, snap.Insts[ci].Parent)
		}
	}
}

func TestSnapshot_ResolvesBranchTargetsAndPhiOperands(t *testing.T) {
	m := buildSnapshotFixture(t)
	snap := ir.Snapshot(m)

	pick := snap.Globals[1]
	entry := snap.Blocks[pick.Blocks[0]]
	br := snap.Insts[entry.Insts[len(entry.Insts)-1]]
	require.Equal(t, ir.OpBr, br.Opcode)
	require.Len(t, br.Targets, 2)
	require.Equal(t, pick.Blocks[1], br.Targets[0].Block)
	require.Equal(t, pick.Blocks[2], br.Targets[1].Block)

	merge := snap.Blocks[pick.Blocks[3]]
	phi := snap.Insts[merge.Insts[0]]
	require.Equal(t, ir.OpPhi, phi.Opcode)
	var valueKinds []ir.ValueKind
	for _, op := range phi.Operands {
		if op.Kind == ir.UsePhiIncomingValue {
			valueKinds = append(valueKinds, op.Value.Kind)
		}
		if op.Kind == ir.UsePhiIncomingBlock {
			require.Contains(t, []ir.CompactBlockID{pick.Blocks[1], pick.Blocks[2]}, op.Value.Block)
		}
	}
	require.Equal(t, []ir.ValueKind{ir.ValueFuncArg, ir.ValueConstData}, valueKinds)
}

func TestSnapshot_IsFrozenAcrossLaterMutationAndGC(t *testing.T) {
	m := buildSnapshotFixture(t)
	snap := ir.Snapshot(m)
	instsBefore := len(snap.Insts)

	// Mutate the source after the fact: orphan an instruction and compact.
	fn := m.Globals()[1]
	entry := m.Blocks(fn)[0]
	b := ir.NewBuilder(m)
	orphan := b.BinOp(entry, ir.OpAdd, types.I32, ir.ConstData(types.I32, 1), ir.ConstData(types.I32, 2))
	m.RemoveInstruction(orphan)
	ir.GC(m)

	require.Len(t, snap.Insts, instsBefore)
	require.Equal(t, "pick", snap.Globals[1].Name)
	require.Len(t, snap.Blocks, 4)
}
