package ir

import "github.com/medihbt/remusys-ir-sub003/internal/arena"

// UseKind tags why an instruction references a value.
type UseKind byte

const (
	UseKindInvalid UseKind = iota
	UseBinLHS
	UseBinRHS
	UseRetValue
	UseBranchCond
	UseStoreSource
	UseStoreTarget
	UseLoadPointer
	UseAllocaAlign // unused placeholder operand kind reserved for future align-as-value support.
	UseGepBase
	UseGepIndex
	UseArrayElem
	UseSelectCond
	UseSelectTrue
	UseSelectFalse
	UsePhiIncomingValue
	UsePhiIncomingBlock
	UseEdgePhiIncomingValue
	UseCallCallee
	UseCallArg
	UseSwitchValue
	UseCastSource
)

// String implements fmt.Stringer.
func (k UseKind) String() string {
	switch k {
	case UseBinLHS:
		return "lhs"
	case UseBinRHS:
		return "rhs"
	case UseRetValue:
		return "ret-value"
	case UseBranchCond:
		return "br-cond"
	case UseStoreSource:
		return "store-source"
	case UseStoreTarget:
		return "store-target"
	case UseLoadPointer:
		return "load-pointer"
	case UseGepBase:
		return "gep-base"
	case UseGepIndex:
		return "gep-index"
	case UseArrayElem:
		return "array-elem"
	case UseSelectCond:
		return "select-cond"
	case UseSelectTrue:
		return "select-true"
	case UseSelectFalse:
		return "select-false"
	case UsePhiIncomingValue:
		return "phi-incoming-value"
	case UsePhiIncomingBlock:
		return "phi-incoming-block"
	case UseEdgePhiIncomingValue:
		return "edgephi-incoming-value"
	case UseCallCallee:
		return "call-callee"
	case UseCallArg:
		return "call-arg"
	case UseSwitchValue:
		return "switch-value"
	case UseCastSource:
		return "cast-source"
	default:
		return "invalid"
	}
}

// Use is a single operand edge: instruction `owner`, tagged `kind`,
// pointing at `target`. It is threaded onto two independent lists at once:
// `ownerLink` is its position in owner's ordered operand sequence,
// `userLink` is its position in target's reverse user list.
// `index` records the position for PhiIncomingValue(n)/GepIndex(n)/CallArg(n)
// style kinds that carry a numbered sub-kind.
type Use struct {
	kind   UseKind
	owner  InstID
	target ValueSSA
	index  uint32

	ownerLink arena.Node
	userLink  arena.Node
}

func (u *Use) ownerLinks() *arena.Node { return &u.ownerLink }
func (u *Use) userLinks() *arena.Node  { return &u.userLink }

func (u *Use) Kind() UseKind      { return u.kind }
func (u *Use) Owner() InstID      { return u.owner }
func (u *Use) Target() ValueSSA   { return u.target }
func (u *Use) Index() uint32      { return u.index }
