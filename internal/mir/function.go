package mir

import "github.com/medihbt/remusys-ir-sub003/internal/arena"

// FuncID is a handle into a Module's function arena.
type FuncID arena.Handle

func (h FuncID) IsNull() bool { return arena.Handle(h).IsNull() }

const NullFuncID = FuncID(arena.NullHandle)

// StackLayout is the per-function frame description pass 4 (stack
// materialization) computes: total frame size, the callee-saved registers
// the prologue/epilogue must save/restore, and the byte offset (from the
// frame pointer) of every spill slot and stack-allocated local.
type StackLayout struct {
	FrameSize     int64
	CalleeSaved   []PhysReg
	SpillOffsets  map[VReg]int64 // byte offset from FP, negative (grows down).
	LocalOffsets  map[string]int64
	OutgoingArgsz int64 // space reserved for stack-passed call arguments.
}

// Offset returns the frame-pointer-relative offset of a spilled vreg,
// panicking if none was assigned (a programming error: every vreg that
// survives past pass 3 must have a slot).
func (s *StackLayout) Offset(v VReg) int64 {
	off, ok := s.SpillOffsets[v]
	if !ok {
		panic("mir: no spill slot assigned for vreg")
	}
	return off
}

// Function is a machine-level function: an ordered Block list, a
// StackLayout computed by pass 4, and the virtual-register count pass 2's
// instruction selector handed out (pass 3 allocates over exactly this
// range).
type Function struct {
	self    FuncID
	name    string
	blocks  arena.ListState
	numVReg uint32
	layout  *StackLayout // nil until pass 4 runs.

	moduleLink arena.Node
}

func (f *Function) Self() FuncID         { return f.self }
func (f *Function) Name() string         { return f.name }
func (f *Function) NumVRegs() uint32     { return f.numVReg }
func (f *Function) Layout() *StackLayout { return f.layout }
func (f *Function) SetLayout(l *StackLayout) { f.layout = l }
