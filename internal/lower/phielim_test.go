package lower_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medihbt/remusys-ir-sub003/internal/ir"
	"github.com/medihbt/remusys-ir-sub003/internal/lower"
)

func TestEliminatePhis_RewritesPhiToEdgePhi(t *testing.T) {
	m, fn, _, _, merge, phi := buildCriticalEdgeFunction(t)
	lower.BreakCriticalEdges(m, fn)
	require.NoError(t, ir.Check(m))

	n := lower.EliminatePhis(m, fn)
	require.Equal(t, 1, n)
	require.NoError(t, ir.Check(m))

	insts := m.Instructions(merge)
	require.Equal(t, ir.OpEdgePhi, m.Inst(insts[0]).Opcode())

	// the old Phi instruction is gone and nothing still references it.
	require.Empty(t, m.Users(ir.InstValue(m.Inst(insts[0]).ResultType(), phi)))

	edgePhi := insts[0]
	preds := m.Predecessors(merge)
	require.Len(t, preds, 2)
	require.Equal(t, len(preds), len(m.Operands(edgePhi)))

	for k := 0; k < len(preds); k++ {
		edge := m.Inst(edgePhi).EdgeOf(k)
		found := false
		for _, jid := range preds {
			if jid == edge {
				found = true
			}
		}
		require.True(t, found, "edgephi operand %d references an edge that is not one of merge's predecessors", k)
	}
}
