package ir_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medihbt/remusys-ir-sub003/internal/ir"
	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

func buildAddFunction(t *testing.T) (*ir.Module, ir.GlobalID, ir.BlockID) {
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

func TestBuilder_BasicFunctionChecks(t *testing.T) {
	m, _, _ := buildAddFunction(t)
	require.NoError(t, ir.Check(m))
}

func TestWrite_RendersAddAndRet(t *testing.T) {
	m, _, _ := buildAddFunction(t)
	var buf bytes.Buffer
	require.NoError(t, ir.Write(&buf, m))
	out := buf.String()
	require.Contains(t, out, "function external @add")
	require.Contains(t, out, "%2 = add %0, %1")
	require.Contains(t, out, "ret %2")
}

func TestCheck_RejectsMissingTerminator(t *testing.T) {
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.I32}, types.I32)
	fn := m.NewFunction("identity", ir.LinkageExternal, sig, 1)
	entry := m.NewBlock(fn)
	b := ir.NewBuilder(m)
	b.BinOp(entry, ir.OpAdd, types.I32, ir.FuncArg(types.I32, fn, 0), ir.FuncArg(types.I32, fn, 0))

	err := ir.Check(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "is not a terminator")
}

func TestCheck_RejectsDuplicateSwitchCaseLiterals(t *testing.T) {
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.I32}, types.Void)
	fn := m.NewFunction("pick", ir.LinkageExternal, sig, 1)
	entry := m.NewBlock(fn)
	caseA := m.NewBlock(fn)
	caseB := m.NewBlock(fn)
	def := m.NewBlock(fn)

	b := ir.NewBuilder(m)
	v := ir.FuncArg(types.I32, fn, 0)
	b.Switch(entry, v, def, []ir.SwitchCase{
		{Lo: 1, Hi: 1, Target: caseA},
		{Lo: 1, Hi: 1, Target: caseB},
	})
	b.Unreachable(caseA)
	b.Unreachable(caseB)
	b.Unreachable(def)

	err := ir.Check(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate case literal")
}

func TestCheck_RejectsPhiWithIncomingBlockSetMismatchingPredecessors(t *testing.T) {
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.I32}, types.I32)
	fn := m.NewFunction("bad_phi", ir.LinkageExternal, sig, 1)
	entry := m.NewBlock(fn)
	thenB := m.NewBlock(fn)
	elseB := m.NewBlock(fn)
	merge := m.NewBlock(fn)

	b := ir.NewBuilder(m)
	cond := ir.FuncArg(types.I1, fn, 0)
	a0 := ir.FuncArg(types.I32, fn, 0)
	b.Br(entry, cond, thenB, elseB)
	b.Jump(thenB, merge)
	b.Jump(elseB, merge)

	// merge's real predecessors are {thenB, elseB}, but this phi names
	// entry (which only reaches thenB/elseB, never merge directly) instead
	// of elseB. This must fail the incoming-set check both ways: elseB
	// missing, entry extra.
	phi := b.Phi(merge, types.I32, []ir.PhiIncoming{
		{Value: a0, Block: thenB},
		{Value: a0, Block: entry},
	})
	b.Ret(merge, ir.InstValue(types.I32, phi))

	err := ir.Check(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing an incoming value")
	require.Contains(t, err.Error(), "not a predecessor")
}

func TestCheck_AcceptsPhiWithMatchingPredecessorSet(t *testing.T) {
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.I1, types.I32}, types.I32)
	fn := m.NewFunction("good_phi", ir.LinkageExternal, sig, 2)
	entry := m.NewBlock(fn)
	thenB := m.NewBlock(fn)
	elseB := m.NewBlock(fn)
	merge := m.NewBlock(fn)

	b := ir.NewBuilder(m)
	cond := ir.FuncArg(types.I1, fn, 0)
	a0 := ir.FuncArg(types.I32, fn, 1)
	b.Br(entry, cond, thenB, elseB)
	b.Jump(thenB, merge)
	b.Jump(elseB, merge)

	phi := b.Phi(merge, types.I32, []ir.PhiIncoming{
		{Value: a0, Block: thenB},
		{Value: a0, Block: elseB},
	})
	b.Ret(merge, ir.InstValue(types.I32, phi))

	require.NoError(t, ir.Check(m))
}

func TestCheck_RejectsCallArityMismatch(t *testing.T) {
	m := ir.NewModule()
	calleeSig := m.Types.Func([]types.ID{types.I32, types.I32}, types.I32)
	callee := m.NewFunction("add2", ir.LinkageExternal, calleeSig, 2)
	calleeEntry := m.NewBlock(callee)
	b := ir.NewBuilder(m)
	sum := b.BinOp(calleeEntry, ir.OpAdd, types.I32, ir.FuncArg(types.I32, callee, 0), ir.FuncArg(types.I32, callee, 1))
	b.Ret(calleeEntry, ir.InstValue(types.I32, sum))

	callerSig := m.Types.Func(nil, types.I32)
	caller := m.NewFunction("caller", ir.LinkageExternal, callerSig, 0)
	entry := m.NewBlock(caller)
	call := b.Call(entry, types.I32, ir.GlobalValue(calleeSig, callee), []ir.ValueSSA{ir.ConstData(types.I32, 1)})
	b.Ret(entry, ir.InstValue(types.I32, call))

	err := ir.Check(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "passes 1 argument(s), signature declares 2")
}

func TestCheck_RejectsCallArgumentTypeMismatch(t *testing.T) {
	m := ir.NewModule()
	calleeSig := m.Types.Func([]types.ID{types.I32}, types.I32)
	callee := m.NewFunction("identity", ir.LinkageExternal, calleeSig, 1)
	centry := m.NewBlock(callee)
	b := ir.NewBuilder(m)
	b.Ret(centry, ir.FuncArg(types.I32, callee, 0))

	callerSig := m.Types.Func(nil, types.I32)
	caller := m.NewFunction("caller", ir.LinkageExternal, callerSig, 0)
	entry := m.NewBlock(caller)
	call := b.Call(entry, types.I32, ir.GlobalValue(calleeSig, callee), []ir.ValueSSA{ir.ConstData(types.I64, 1)})
	b.Ret(entry, ir.InstValue(types.I32, call))

	err := ir.Check(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "argument 0 has type")
}

func TestDCE_RemovesUnusedPureInstruction(t *testing.T) {
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.I32}, types.I32)
	fn := m.NewFunction("f", ir.LinkageExternal, sig, 1)
	entry := m.NewBlock(fn)
	b := ir.NewBuilder(m)

	arg := ir.FuncArg(types.I32, fn, 0)
	dead := b.BinOp(entry, ir.OpAdd, types.I32, arg, arg)
	_ = dead
	live := b.BinOp(entry, ir.OpMul, types.I32, arg, arg)
	b.Ret(entry, ir.InstValue(types.I32, live))

	before := len(m.Instructions(entry))
	removed := ir.DCE(m, fn)
	require.Equal(t, 1, removed)
	require.Equal(t, before-1, len(m.Instructions(entry)))
}

func TestDominance_DiamondCFG(t *testing.T) {
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.I1}, types.I32)
	fn := m.NewFunction("f", ir.LinkageExternal, sig, 1)
	entry := m.NewBlock(fn)
	thenB := m.NewBlock(fn)
	elseB := m.NewBlock(fn)
	merge := m.NewBlock(fn)

	b := ir.NewBuilder(m)
	cond := ir.FuncArg(types.I1, fn, 0)
	b.Br(entry, cond, thenB, elseB)
	b.Jump(thenB, merge)
	b.Jump(elseB, merge)
	b.Ret(merge, ir.ConstData(types.I32, 0))

	dom := ir.ComputeDominance(m, fn)
	require.True(t, dom.Dominates(entry, merge))
	require.False(t, dom.Dominates(thenB, merge))
	require.Equal(t, entry, dom.IDom(merge))
	require.Equal(t, entry, dom.IDom(thenB))
}

func TestDCEGlobals_KeepsExportedAndRemovesUnreferencedInternal(t *testing.T) {
	m, _, _ := buildAddFunction(t) // "add", external

	deadSig := m.Types.Func([]types.ID{types.I32}, types.I32)
	dead := m.NewFunction("unused_helper", ir.LinkageInternal, deadSig, 1)
	deadEntry := m.NewBlock(dead)
	ir.NewBuilder(m).Ret(deadEntry, ir.FuncArg(types.I32, dead, 0))

	before := len(m.Globals())
	removed := ir.DCEGlobals(m)
	require.Equal(t, 1, removed)
	require.Equal(t, before-1, len(m.Globals()))
	require.NoError(t, ir.Check(m))
}

func TestDCEGlobals_CollectsCircularDeadInternalPair(t *testing.T) {
	m, _, entry := buildAddFunction(t) // "add", external, kept as a live root
	sig := m.Types.Func(nil, types.Void)

	a := m.NewFunction("a_internal", ir.LinkageInternal, sig, 0)
	bFn := m.NewFunction("b_internal", ir.LinkageInternal, sig, 0)
	aEntry := m.NewBlock(a)
	bEntry := m.NewBlock(bFn)

	bld := ir.NewBuilder(m)
	// a calls b, b calls a: each has exactly one user, so a plain
	// reference-count check alone would keep both forever.
	bld.Call(aEntry, types.Void, ir.GlobalValue(sig, bFn), nil)
	bld.Ret(aEntry, ir.None)
	bld.Call(bEntry, types.Void, ir.GlobalValue(sig, a), nil)
	bld.Ret(bEntry, ir.None)

	_ = entry
	before := len(m.Globals())
	removed := ir.DCEGlobals(m)
	require.Equal(t, 2, removed)
	require.Equal(t, before-2, len(m.Globals()))
	require.NoError(t, ir.Check(m))
}

func TestGC_CollectsOrphanedInstruction(t *testing.T) {
	m, fn, entry := buildAddFunction(t)
	b := ir.NewBuilder(m)
	orphan := b.BinOp(entry, ir.OpAdd, types.I32, ir.FuncArg(types.I32, fn, 0), ir.FuncArg(types.I32, fn, 0))
	m.RemoveInstruction(orphan)

	require.NoError(t, ir.Check(m))
	ir.GC(m)
	require.NoError(t, ir.Check(m))

	var buf bytes.Buffer
	require.NoError(t, ir.Write(&buf, m))
	require.True(t, strings.Contains(buf.String(), "ret"))
}

func TestCheck_RejectsCastClassMismatch(t *testing.T) {
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.F64}, types.I32)
	fn := m.NewFunction("trunc_float", ir.LinkageExternal, sig, 1)
	entry := m.NewBlock(fn)
	b := ir.NewBuilder(m)

	// Trunc is an integer-to-integer cast; feeding it a float source must
	// be rejected as a class mismatch.
	c := b.Cast(entry, ir.CastTrunc, types.F64, types.I32, ir.FuncArg(types.F64, fn, 0))
	b.Ret(entry, ir.InstValue(types.I32, c))

	err := ir.Check(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires integer source")
}

func TestCheck_RejectsCastOperandNotMatchingDeclaredSource(t *testing.T) {
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.I16}, types.I64)
	fn := m.NewFunction("widen", ir.LinkageExternal, sig, 1)
	entry := m.NewBlock(fn)
	b := ir.NewBuilder(m)

	// Declared source type i32, actual operand i16.
	c := b.Cast(entry, ir.CastSExt, types.I32, types.I64, ir.FuncArg(types.I16, fn, 0))
	b.Ret(entry, ir.InstValue(types.I64, c))

	err := ir.Check(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not match declared source type")
}

func TestCheck_AcceptsWellTypedCastGEPAndSelect(t *testing.T) {
	m := ir.NewModule()
	arr := m.Types.Array(types.I32, 4)
	ptrArr := m.Types.Pointer(arr)
	ptrI32 := m.Types.Pointer(types.I32)
	sig := m.Types.Func([]types.ID{types.I1, types.I64, ptrArr}, types.I64)
	fn := m.NewFunction("mixed", ir.LinkageExternal, sig, 3)
	entry := m.NewBlock(fn)
	b := ir.NewBuilder(m)

	cond := ir.FuncArg(types.I1, fn, 0)
	n := ir.FuncArg(types.I64, fn, 1)
	base := ir.FuncArg(ptrArr, fn, 2)
	gep := b.GEP(entry, ptrI32, arr, base, []ir.ValueSSA{
		ir.ConstData(types.I64, 0),
		n,
	})
	_ = gep
	sel := b.Select(entry, types.I64, cond, n, ir.ConstData(types.I64, 9))
	widened := b.Cast(entry, ir.CastSExt, types.I64, types.I64, ir.InstValue(types.I64, sel))
	b.Ret(entry, ir.InstValue(types.I64, widened))

	require.NoError(t, ir.Check(m))
}

func TestCheck_RejectsGEPWithNonIntegerIndex(t *testing.T) {
	m := ir.NewModule()
	arr := m.Types.Array(types.I32, 4)
	ptrArr := m.Types.Pointer(arr)
	ptrI32 := m.Types.Pointer(types.I32)
	sig := m.Types.Func([]types.ID{ptrArr, types.F64}, ptrI32)
	fn := m.NewFunction("bad_gep", ir.LinkageExternal, sig, 2)
	entry := m.NewBlock(fn)
	b := ir.NewBuilder(m)

	gep := b.GEP(entry, ptrI32, arr, ir.FuncArg(ptrArr, fn, 0), []ir.ValueSSA{
		ir.ConstData(types.I64, 0),
		ir.FuncArg(types.F64, fn, 1),
	})
	b.Ret(entry, ir.InstValue(ptrI32, gep))

	err := ir.Check(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected an integer")
}

func TestCheck_RejectsSelectWithNonBoolCondition(t *testing.T) {
	m := ir.NewModule()
	sig := m.Types.Func([]types.ID{types.I32, types.I32}, types.I32)
	fn := m.NewFunction("bad_select", ir.LinkageExternal, sig, 2)
	entry := m.NewBlock(fn)
	b := ir.NewBuilder(m)

	sel := b.Select(entry, types.I32, ir.FuncArg(types.I32, fn, 0),
		ir.FuncArg(types.I32, fn, 1), ir.ConstData(types.I32, 0))
	b.Ret(entry, ir.InstValue(types.I32, sel))

	err := ir.Check(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected i1")
}

func TestGC_KeepsGlobalUserListsTraversableAfterCompaction(t *testing.T) {
	m, fn, _ := buildAddFunction(t)
	sig := m.GlobalOf(fn).Type()
	b := ir.NewBuilder(m)

	// A dead internal helper declared before the caller, so its Use records
	// sit below the caller's in the Use arena: sweeping it forces compaction
	// to renumber the caller's Use handles downward rather than leaving them
	// in place.
	dead := m.NewFunction("dead", ir.LinkageInternal, m.Types.Func(nil, types.Void), 0)
	deadEntry := m.NewBlock(dead)
	b.Call(deadEntry, types.I32, ir.GlobalValue(sig, fn), []ir.ValueSSA{
		ir.ConstData(types.I32, 3), ir.ConstData(types.I32, 4),
	})
	b.Ret(deadEntry, ir.None)

	caller := m.NewFunction("caller", ir.LinkageExternal, m.Types.Func(nil, types.I32), 0)
	entry := m.NewBlock(caller)
	call := b.Call(entry, types.I32, ir.GlobalValue(sig, fn), []ir.ValueSSA{
		ir.ConstData(types.I32, 1), ir.ConstData(types.I32, 2),
	})
	b.Ret(entry, ir.InstValue(types.I32, call))

	require.Equal(t, 1, ir.DCEGlobals(m))

	// The callee's reverse user list must still walk to the surviving call
	// through post-compaction handles.
	users := m.Users(ir.GlobalValue(sig, fn))
	require.Len(t, users, 1)
	use := m.UseOf(users[0])
	require.Equal(t, ir.OpCall, m.Inst(use.Owner()).Opcode())
	require.NoError(t, ir.Check(m))
}
