package main

import (
	"github.com/medihbt/remusys-ir-sub003/internal/ir"
	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

// buildDemoModule constructs a small but structurally interesting module
// via the builder API. There is no textual-IR parser, only a writer, so
// the CLI driver has no file format to read from — it exercises the
// library the same way internal/lower's own tests do.
//
// pick_min(a, b) picks the smaller of two ints; branch_diamond(a, b, c)
// branches on c to either a+b or a-b and merges the two through a phi. The
// diamond's edges are all non-critical (each arm has a single predecessor
// and a single successor), so critical-edge splitting inserts no block.
func buildDemoModule() *ir.Module {
	m := ir.NewModule()
	buildPickMin(m)
	buildBranchDiamond(m)
	return m
}

func buildPickMin(m *ir.Module) ir.GlobalID {
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
	return fn
}

func buildBranchDiamond(m *ir.Module) ir.GlobalID {
	sig := m.Types.Func([]types.ID{types.I32, types.I32, types.I1}, types.I32)
	fn := m.NewFunction("branch_diamond", ir.LinkageExternal, sig, 3)
	entry := m.NewBlock(fn)
	thenB := m.NewBlock(fn)
	elseB := m.NewBlock(fn)
	merge := m.NewBlock(fn)

	b := ir.NewBuilder(m)
	a0 := ir.FuncArg(types.I32, fn, 0)
	a1 := ir.FuncArg(types.I32, fn, 1)
	cond := ir.FuncArg(types.I1, fn, 2)

	b.Br(entry, cond, thenB, elseB)
	sum := b.BinOp(thenB, ir.OpAdd, types.I32, a0, a1)
	b.Jump(thenB, merge)
	diff := b.BinOp(elseB, ir.OpSub, types.I32, a0, a1)
	b.Jump(elseB, merge)

	phi := b.Phi(merge, types.I32, []ir.PhiIncoming{
		{Block: thenB, Value: ir.InstValue(types.I32, sum)},
		{Block: elseB, Value: ir.InstValue(types.I32, diff)},
	})
	b.Ret(merge, ir.InstValue(types.I32, phi))
	return fn
}
