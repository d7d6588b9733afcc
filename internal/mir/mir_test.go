package mir_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medihbt/remusys-ir-sub003/internal/mir"
)

func TestModule_BuildAndWriteSimpleFunction(t *testing.T) {
	m := mir.NewModule()
	fn := m.NewFunction("add")
	entry := m.NewBlock(fn, "add")

	x0def := mir.PhysRegOperand(mir.NewPhysReg(0, mir.RegClassInt), mir.Full64, mir.UseFlagDef)
	x0use := mir.PhysRegOperand(mir.NewPhysReg(0, mir.RegClassInt), mir.Full64, mir.UseFlagUse)
	x1use := mir.PhysRegOperand(mir.NewPhysReg(1, mir.RegClassInt), mir.Full64, mir.UseFlagUse)

	b := mir.NewBuilder(m, entry)
	b.BinOp(mir.OpAddReg, x0def, x0use, x1use)
	b.Ret()

	var buf bytes.Buffer
	require.NoError(t, mir.Write(&buf, m))
	out := buf.String()
	require.Contains(t, out, ".globl add")
	require.Contains(t, out, "add:")
	require.Contains(t, out, "add x0, x0, x1")
	require.Contains(t, out, "ret")
}

func TestPhysReg_SubRegisterWidths(t *testing.T) {
	r := mir.NewPhysReg(3, mir.RegClassInt)
	require.Equal(t, "x3", r.StringAtWidth(64))
	require.Equal(t, "w3", r.StringAtWidth(32))

	d := mir.NewPhysReg(4, mir.RegClassFloat)
	require.Equal(t, "d4", d.StringAtWidth(64))
	require.Equal(t, "s4", d.StringAtWidth(32))
}

func TestSubRegIndex_PacksWidthAndOffset(t *testing.T) {
	s := mir.NewSubRegIndex(5, 0)
	require.Equal(t, uint32(32), s.Bits())
	require.Equal(t, uint8(0), s.ByteOffset())
}
