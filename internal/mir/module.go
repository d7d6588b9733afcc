package mir

import "github.com/medihbt/remusys-ir-sub003/internal/arena"

// Module is the machine-level compilation unit: one arena per record kind,
// mirroring internal/ir.Module's shape so the lowering pipeline's four
// passes (internal/lower) read as a natural continuation of the same
// arena/list idiom rather than a different programming model per IR layer.
type Module struct {
	funcs arena.Arena[Function]
	blocks arena.Arena[Block]
	insts arena.Arena[Instruction]

	funcOrder arena.ListState
}

const moduleFuncsListID = arena.Handle(arena.NullHandle - 1)

func NewModule() *Module { return &Module{} }

func (m *Module) Func(id FuncID) *Function   { return m.funcs.Get(arena.Handle(id)) }
func (m *Module) BlockOf(id BlockID) *Block  { return m.blocks.Get(arena.Handle(id)) }
func (m *Module) Inst(id InstID) *Instruction { return m.insts.Get(arena.Handle(id)) }

func (m *Module) instructionsOf(b *Block) *arena.List[Instruction] {
	return arena.Resume(&m.insts, arena.Handle(b.self), (*Instruction).blockLinks, b.instructions)
}

func (m *Module) blocksOf(f *Function) *arena.List[Block] {
	return arena.Resume(&m.blocks, arena.Handle(f.self), (*Block).funcLinks, f.blocks)
}

func (m *Module) funcsList() *arena.List[Function] {
	return arena.Resume(&m.funcs, moduleFuncsListID, funcModuleLinks, m.funcOrder)
}

// funcModuleLinks is a free function rather than a method because
// Function has no moduleLink field of its own: functions are few enough
// per module that a plain ListState on Module, threaded through a
// synthetic Node stored alongside each Function record, is overkill; the
// arena.List still needs an accessor, so this wraps a per-record field
// added purely for that purpose.
func funcModuleLinks(f *Function) *arena.Node { return &f.moduleLink }

// NewFunction declares an empty function.
func (m *Module) NewFunction(name string) FuncID {
	h := m.funcs.Alloc(Function{name: name})
	f := m.funcs.Get(h)
	f.self = FuncID(h)
	lst := m.funcsList()
	lst.PushBack(h)
	lst.Save(&m.funcOrder)
	return FuncID(h)
}

// Funcs returns the module's functions in declaration order.
func (m *Module) Funcs() []FuncID {
	hs := m.funcsList().ToSlice()
	out := make([]FuncID, len(hs))
	for i, h := range hs {
		out[i] = FuncID(h)
	}
	return out
}

// NewBlock allocates an empty block appended to fn's block list, with a
// display label derived from its position.
func (m *Module) NewBlock(fn FuncID, label string) BlockID {
	h := m.blocks.Alloc(Block{parent: fn, label: label})
	b := m.blocks.Get(h)
	b.self = BlockID(h)
	f := m.Func(fn)
	lst := m.blocksOf(f)
	lst.PushBack(h)
	lst.Save(&f.blocks)
	return BlockID(h)
}

// Blocks returns fn's blocks in order.
func (m *Module) Blocks(fn FuncID) []BlockID {
	f := m.Func(fn)
	hs := m.blocksOf(f).ToSlice()
	out := make([]BlockID, len(hs))
	for i, h := range hs {
		out[i] = BlockID(h)
	}
	return out
}

// Append inserts inst at the tail of block.
func (m *Module) Append(block BlockID, inst Instruction) InstID {
	h := m.insts.Alloc(inst)
	ip := m.insts.Get(h)
	ip.self = InstID(h)
	ip.parent = block
	b := m.BlockOf(block)
	lst := m.instructionsOf(b)
	lst.PushBack(h)
	lst.Save(&b.instructions)
	return InstID(h)
}

// InsertBefore splices inst into at's block immediately before at, used by
// register allocation (pass 3) to insert a reload ahead of the instruction
// that consumes it and by stack materialization (pass 4) to insert the
// prologue's register-save sequence ahead of a function's first real
// instruction.
func (m *Module) InsertBefore(at InstID, inst Instruction) InstID {
	target := m.Inst(at)
	b := m.BlockOf(target.parent)
	h := m.insts.Alloc(inst)
	ip := m.insts.Get(h)
	ip.self = InstID(h)
	ip.parent = target.parent
	lst := m.instructionsOf(b)
	lst.InsertBefore(arena.Handle(h), arena.Handle(at))
	lst.Save(&b.instructions)
	return InstID(h)
}

// InsertAfter splices inst immediately after at, used by pass 3 to insert a
// spill following the instruction that defines it.
func (m *Module) InsertAfter(at InstID, inst Instruction) InstID {
	target := m.Inst(at)
	b := m.BlockOf(target.parent)
	h := m.insts.Alloc(inst)
	ip := m.insts.Get(h)
	ip.self = InstID(h)
	ip.parent = target.parent
	lst := m.instructionsOf(b)
	lst.InsertAfter(arena.Handle(h), arena.Handle(at))
	lst.Save(&b.instructions)
	return InstID(h)
}

// PrependToBlock inserts inst at the head of block, before any instruction
// already emitted there. Pass 4 does not use it: its prologue goes in
// through InsertBefore on the entry block's first instruction.
func (m *Module) PrependToBlock(block BlockID, inst Instruction) InstID {
	b := m.BlockOf(block)
	h := m.insts.Alloc(inst)
	ip := m.insts.Get(h)
	ip.self = InstID(h)
	ip.parent = block
	lst := m.instructionsOf(b)
	lst.PushFront(arena.Handle(h))
	lst.Save(&b.instructions)
	return InstID(h)
}

// NewVReg hands out the next virtual register for fn (instruction
// selection's only source of fresh vregs), tagged with the register file
// it lives in; the allocator's reserved scratch windows are per-class.
func (m *Module) NewVReg(fn FuncID, class RegClass) VReg {
	f := m.Func(fn)
	v := VReg(f.numVReg)
	f.numVReg++
	if class == RegClassFloat {
		v |= vregClassBit
	}
	return v
}

// Instructions returns block's instructions in order.
func (m *Module) Instructions(block BlockID) []InstID {
	b := m.BlockOf(block)
	hs := m.instructionsOf(b).ToSlice()
	out := make([]InstID, len(hs))
	for i, h := range hs {
		out[i] = InstID(h)
	}
	return out
}
