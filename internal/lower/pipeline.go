package lower

import (
	"github.com/sirupsen/logrus"

	"github.com/medihbt/remusys-ir-sub003/internal/ir"
	"github.com/medihbt/remusys-ir-sub003/internal/mir"
)

// Pipeline runs the four ordered lowering passes over every function of
// an ir.Module, producing a mir.Module ready for textual assembly
// emission. Per-pass progress is logged at Debug level; the ir/mir core
// packages themselves stay silent.
type Pipeline struct {
	IR  *ir.Module
	Log *logrus.Logger
}

// NewPipeline returns a Pipeline logging at logrus's default level. Callers
// that want quieter output should replace Log after construction.
func NewPipeline(m *ir.Module) *Pipeline {
	return &Pipeline{IR: m, Log: logrus.StandardLogger()}
}

// Run lowers every function global in m into mm, in four passes per
// function: critical-edge splitting, φ-elimination + instruction
// selection, spill-everywhere register allocation, and stack
// materialization. Declarations (functions with no block list) are
// skipped: there is nothing to lower for an external symbol.
func (p *Pipeline) Run() *mir.Module {
	mm := mir.NewModule()
	for _, gid := range p.IR.Globals() {
		g := p.IR.GlobalOf(gid)
		if g.Kind() != ir.GlobalFunction || g.NumBlocks() == 0 {
			continue
		}
		p.runFunction(mm, gid)
	}
	return mm
}

func (p *Pipeline) runFunction(mm *mir.Module, fn ir.GlobalID) {
	name := p.IR.GlobalOf(fn).Name()
	log := p.Log.WithField("func", name)

	split := BreakCriticalEdges(p.IR, fn)
	log.WithFields(logrus.Fields{"pass": "critical-edge-split", "blocks_inserted": split}).Debug("lowering pass complete")

	phis := EliminatePhis(p.IR, fn)
	log.WithFields(logrus.Fields{"pass": "phi-elimination", "phis_rewritten": phis}).Debug("lowering pass complete")

	fid := SelectFunction(p.IR, mm, fn)
	log.WithFields(logrus.Fields{
		"pass":   "instruction-selection",
		"blocks": len(mm.Blocks(fid)),
	}).Debug("lowering pass complete")

	AllocateRegisters(mm, fid)
	log.WithField("pass", "register-allocation").Debug("lowering pass complete")

	layout := MaterializeStack(mm, fid)
	log.WithFields(logrus.Fields{
		"pass":  "stack-materialization",
		"frame": layout.FrameSize,
	}).Debug("lowering pass complete")
}
