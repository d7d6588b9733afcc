package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

// This file lives in package ir (not ir_test) because OpDynAlloca has no
// Builder constructor by design — the reserved opcode can only be produced
// by setting the unexported field directly, which only this package can do.
func TestCheck_RejectsDynAlloca(t *testing.T) {
	m := NewModule()
	sig := m.Types.Func(nil, types.Void)
	fn := m.NewFunction("f", LinkageExternal, sig, 0)
	entry := m.NewBlock(fn)

	id := m.NewInstruction(Instruction{opcode: OpDynAlloca, resultType: types.Void})
	m.AppendInstruction(entry, id)
	NewBuilder(m).Unreachable(entry)

	err := Check(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "reserved opcode dynalloca")
}
