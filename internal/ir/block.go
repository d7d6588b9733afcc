package ir

import "github.com/medihbt/remusys-ir-sub003/internal/arena"

// Block is a basic block: an ordered instruction list ending in exactly one
// terminator, plus a reverse predecessor list of the JumpTarget edges that
// target it. Predecessors are an arena-indexed JumpTarget list, so
// predecessor removal during critical-edge splitting is O(1) rather than a
// slice scan.
type Block struct {
	self   BlockID
	parent GlobalID // owning function

	instructions arena.ListState // Instruction list, threaded via blockLink.
	preds        arena.ListState // JumpTarget list, threaded via predLink.

	funcLink arena.Node // position in the owning function's block list.
}

func (b *Block) funcLinks() *arena.Node { return &b.funcLink }

// Self returns this block's own handle.
func (b *Block) Self() BlockID { return b.self }

// Parent returns the function this block belongs to.
func (b *Block) Parent() GlobalID { return b.parent }

// Value returns the ValueSSA identifying this block, used as the target of
// UsePhiIncomingBlock operands.
func (b *Block) Value() ValueSSA { return BlockValue(b.self) }

// NumInstructions returns how many instructions this block currently holds.
func (b *Block) NumInstructions() int { return b.instructions.Length }

// NumPreds returns how many predecessor edges currently target this block.
func (b *Block) NumPreds() int { return b.preds.Length }

// IsEntry reports whether this block has no predecessors recorded yet,
// which is true of a function's entry block and of any block that has been
// disconnected by dead-code elimination but not yet collected.
func (b *Block) IsEntry() bool { return b.preds.Length == 0 }
