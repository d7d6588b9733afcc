package mir

import "github.com/medihbt/remusys-ir-sub003/internal/arena"

// BlockID is a handle into a Module's block arena.
type BlockID arena.Handle

func (h BlockID) IsNull() bool { return arena.Handle(h).IsNull() }

const NullBlockID = BlockID(arena.NullHandle)

// Block is an ordered instruction list within a Function, using the same
// arena.List idiom internal/ir establishes so both IR layers share one
// mental model of "list membership via Handle".
type Block struct {
	self   BlockID
	parent FuncID
	label  string // e.g. ".Lbb3", set by Module.NewBlock.

	instructions arena.ListState
	funcLink     arena.Node
}

func (b *Block) funcLinks() *arena.Node { return &b.funcLink }

func (b *Block) Self() BlockID  { return b.self }
func (b *Block) Parent() FuncID { return b.parent }
func (b *Block) Label() string  { return b.label }
