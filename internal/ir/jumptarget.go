package ir

import "github.com/medihbt/remusys-ir-sub003/internal/arena"

// JumpTargetKind tags the role of a terminator's successor edge.
type JumpTargetKind byte

const (
	JumpTargetInvalid JumpTargetKind = iota
	JumpTargetJump
	JumpTargetBrTrue
	JumpTargetBrFalse
	JumpTargetSwitchDefault
	JumpTargetSwitchCase
)

// String implements fmt.Stringer.
func (k JumpTargetKind) String() string {
	switch k {
	case JumpTargetJump:
		return "jump"
	case JumpTargetBrTrue:
		return "br-true"
	case JumpTargetBrFalse:
		return "br-false"
	case JumpTargetSwitchDefault:
		return "switch-default"
	case JumpTargetSwitchCase:
		return "switch-case"
	default:
		return "invalid"
	}
}

// JumpTarget is an edge from a terminator to a successor block. Like Use,
// it is threaded onto two lists: `ownerLink` orders it among the owning
// terminator's jump targets, `predLink` places it in the target block's
// reverse predecessor list. `caseLo`/`caseHi` hold
// an inclusive `[lo, hi]` case-value range for JumpTargetSwitchCase, split
// into two uint64 halves since Go has no native i128; today's selector
// only accepts single-value cases (lo == hi), but the checker and the
// jump-target representation both carry the general range.
type JumpTarget struct {
	kind      JumpTargetKind
	owner     InstID
	target    BlockID
	caseLo    uint64
	caseHi    uint64

	ownerLink arena.Node
	predLink  arena.Node
}

func (j *JumpTarget) ownerLinks() *arena.Node { return &j.ownerLink }
func (j *JumpTarget) predLinks() *arena.Node  { return &j.predLink }

func (j *JumpTarget) Kind() JumpTargetKind { return j.kind }
func (j *JumpTarget) Owner() InstID        { return j.owner }
func (j *JumpTarget) Target() BlockID      { return j.target }
func (j *JumpTarget) CaseValue() (lo, hi uint64) { return j.caseLo, j.caseHi }
