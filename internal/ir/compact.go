package ir

import "github.com/medihbt/remusys-ir-sub003/internal/types"

// CompactIR is a frozen, flat snapshot of a Module: plain slices of
// globals, constant expressions, blocks, and instructions, cross-linked by
// dense uint32 indices instead of arena handles. It shares no storage with
// the live module — every operand vector is an owned copy — so a snapshot
// stays valid across later mutation and GC of the source, and concurrent
// readers may shard it across goroutines without synchronization.
//
// Edges here are forward-only: reverse user lists and predecessor lists
// are not carried, since a frozen reader can rebuild them in one pass and
// they would otherwise double the snapshot's size.
type CompactIR struct {
	Types *types.Context

	Globals []CompactGlobal
	Exprs   []CompactExpr
	Blocks  []CompactBlock
	Insts   []CompactInst
}

// Dense indices into a CompactIR's slices. The all-ones value is the null
// sentinel for optional references.
type (
	CompactGlobalID uint32
	CompactBlockID  uint32
	CompactInstID   uint32
	CompactExprID   uint32
)

const (
	NullCompactGlobalID = CompactGlobalID(^uint32(0))
	NullCompactBlockID  = CompactBlockID(^uint32(0))
	NullCompactInstID   = CompactInstID(^uint32(0))
	NullCompactExprID   = CompactExprID(^uint32(0))
)

// CompactValue mirrors ValueSSA with dense indices in place of arena
// handles. Kind selects which reference field is meaningful.
type CompactValue struct {
	Kind ValueKind
	Type types.ID

	Bits   uint64          // ValueConstData
	Expr   CompactExprID   // ValueConstExpr
	Fn     CompactGlobalID // ValueFuncArg
	Index  uint32          // ValueFuncArg
	Block  CompactBlockID  // ValueBlock
	Inst   CompactInstID   // ValueInst
	Global CompactGlobalID // ValueGlobal
}

// CompactGlobal is one module-level declaration. Blocks is nil for a
// declaration-only function and for every variable.
type CompactGlobal struct {
	Kind    GlobalKind
	Name    string
	Linkage Linkage
	Type    types.ID

	NumArgs uint32
	Blocks  []CompactBlockID

	ReadOnly bool
	Init     CompactValue
	HasInit  bool
}

// CompactExpr is one aggregate constant literal.
type CompactExpr struct {
	Kind     ConstExprKind
	Type     types.ID
	Elements []CompactValue
}

// CompactBlock is one basic block: its owning function and its ordered
// instruction list. The last instruction is the terminator.
type CompactBlock struct {
	Parent CompactGlobalID
	Insts  []CompactInstID
}

// CompactOperand is one frozen Use edge.
type CompactOperand struct {
	Kind  UseKind
	Index uint32
	Value CompactValue
}

// CompactTarget is one frozen successor edge of a terminator.
type CompactTarget struct {
	Kind   JumpTargetKind
	Block  CompactBlockID
	CaseLo uint64
	CaseHi uint64
}

// CompactEdge identifies one predecessor edge of an EdgePhi's block: the
// predecessor block plus the ordinal of the edge among that block's
// terminator targets. Edge identity survives the flattening this way even
// when one predecessor reaches the block through several switch arms.
type CompactEdge struct {
	Pred      CompactBlockID
	TargetIdx uint32
}

// CompactInst is one frozen instruction.
type CompactInst struct {
	Opcode     Opcode
	ResultType types.ID
	Parent     CompactBlockID

	Operands []CompactOperand
	Targets  []CompactTarget

	// Edges pairs 1:1 with Operands for OpEdgePhi; nil otherwise.
	Edges []CompactEdge

	ICmpCond  ICmpCond
	FCmpCond  FCmpCond
	CastKind  CastKind
	AlignLog2 uint8
	AuxType   types.ID
}

// Snapshot freezes m into a CompactIR. It is a read-only pass over the live
// graph: globals keep declaration order, blocks keep function order,
// instructions keep block order, and only constant expressions reachable
// from some frozen value are carried over.
func Snapshot(m *Module) *CompactIR {
	s := &snapshotter{
		m:       m,
		out:     &CompactIR{Types: m.Types},
		globals: map[GlobalID]CompactGlobalID{},
		blocks:  map[BlockID]CompactBlockID{},
		insts:   map[InstID]CompactInstID{},
		exprs:   map[ConstExprID]CompactExprID{},
	}
	s.run()
	return s.out
}

type snapshotter struct {
	m   *Module
	out *CompactIR

	globals map[GlobalID]CompactGlobalID
	blocks  map[BlockID]CompactBlockID
	insts   map[InstID]CompactInstID
	exprs   map[ConstExprID]CompactExprID
}

// run numbers every global, block, and instruction first, then fills in
// record bodies, so forward references (a branch to a later block, a call
// to a later function) resolve by map lookup alone.
func (s *snapshotter) run() {
	order := s.m.Globals()
	for _, gid := range order {
		s.globals[gid] = CompactGlobalID(len(s.out.Globals))
		s.out.Globals = append(s.out.Globals, CompactGlobal{})
		g := s.m.GlobalOf(gid)
		if g.Kind() != GlobalFunction {
			continue
		}
		for _, bid := range s.m.Blocks(gid) {
			s.blocks[bid] = CompactBlockID(len(s.out.Blocks))
			s.out.Blocks = append(s.out.Blocks, CompactBlock{})
			for _, iid := range s.m.Instructions(bid) {
				s.insts[iid] = CompactInstID(len(s.out.Insts))
				s.out.Insts = append(s.out.Insts, CompactInst{})
			}
		}
	}
	for _, gid := range order {
		s.freezeGlobal(gid)
	}
}

func (s *snapshotter) freezeGlobal(gid GlobalID) {
	g := s.m.GlobalOf(gid)
	cg := &s.out.Globals[s.globals[gid]]
	cg.Kind = g.Kind()
	cg.Name = g.Name()
	cg.Linkage = g.Linkage()
	cg.Type = g.Type()

	switch g.Kind() {
	case GlobalFunction:
		cg.NumArgs = uint32(g.NumArgs())
		for _, bid := range s.m.Blocks(gid) {
			cg.Blocks = append(cg.Blocks, s.blocks[bid])
			s.freezeBlock(gid, bid)
		}
	case GlobalVariable:
		cg.ReadOnly = g.ReadOnly()
		init, ok := g.Initializer()
		cg.HasInit = ok
		if ok {
			cg.Init = s.freezeValue(init)
		}
	}
}

func (s *snapshotter) freezeBlock(fn GlobalID, bid BlockID) {
	cb := &s.out.Blocks[s.blocks[bid]]
	cb.Parent = s.globals[fn]
	for _, iid := range s.m.Instructions(bid) {
		cb.Insts = append(cb.Insts, s.insts[iid])
		s.freezeInst(bid, iid)
	}
}

func (s *snapshotter) freezeInst(bid BlockID, iid InstID) {
	inst := s.m.Inst(iid)
	ci := &s.out.Insts[s.insts[iid]]
	ci.Opcode = inst.Opcode()
	ci.ResultType = inst.ResultType()
	ci.Parent = s.blocks[bid]
	ci.ICmpCond = inst.icmpCond
	ci.FCmpCond = inst.fcmpCond
	ci.CastKind = inst.castKind
	ci.AlignLog2 = inst.alignLog2
	ci.AuxType = inst.auxType

	for _, uid := range s.m.Operands(iid) {
		u := s.m.UseOf(uid)
		ci.Operands = append(ci.Operands, CompactOperand{
			Kind:  u.Kind(),
			Index: u.Index(),
			Value: s.freezeValue(u.Target()),
		})
	}
	for _, jid := range s.m.JumpTargets(iid) {
		jt := s.m.JumpTargetOf(jid)
		lo, hi := jt.CaseValue()
		ci.Targets = append(ci.Targets, CompactTarget{
			Kind:   jt.Kind(),
			Block:  s.blocks[jt.Target()],
			CaseLo: lo,
			CaseHi: hi,
		})
	}
	if inst.Opcode() == OpEdgePhi {
		for k := range ci.Operands {
			ci.Edges = append(ci.Edges, s.freezeEdge(inst.EdgeOf(k)))
		}
	}
}

// freezeEdge resolves a live JumpTargID to (pred block, ordinal among the
// pred terminator's targets).
func (s *snapshotter) freezeEdge(jid JumpTargID) CompactEdge {
	jt := s.m.JumpTargetOf(jid)
	owner := s.m.Inst(jt.Owner())
	for k, sibling := range s.m.JumpTargets(jt.Owner()) {
		if sibling == jid {
			return CompactEdge{Pred: s.blocks[owner.Parent()], TargetIdx: uint32(k)}
		}
	}
	panic("ir: edge-phi incoming edge not found on its own terminator")
}

func (s *snapshotter) freezeValue(v ValueSSA) CompactValue {
	cv := CompactValue{
		Kind:   v.Kind(),
		Type:   v.Type(),
		Expr:   NullCompactExprID,
		Fn:     NullCompactGlobalID,
		Block:  NullCompactBlockID,
		Inst:   NullCompactInstID,
		Global: NullCompactGlobalID,
	}
	switch v.Kind() {
	case ValueConstData:
		cv.Bits = v.ConstBits()
	case ValueConstExpr:
		cv.Expr = s.freezeExpr(v.ConstExprID())
	case ValueFuncArg:
		fn, idx := v.FuncArgOf()
		cv.Fn = s.globals[fn]
		cv.Index = idx
	case ValueBlock:
		cv.Block = s.blocks[v.BlockID()]
	case ValueInst:
		cv.Inst = s.insts[v.InstID()]
	case ValueGlobal:
		cv.Global = s.globals[v.GlobalID()]
	}
	return cv
}

// freezeExpr carries one constant expression over, recursing into element
// values so nested aggregates land in the snapshot too. Deduplicated per
// live handle: an expression shared by several users freezes once.
func (s *snapshotter) freezeExpr(eid ConstExprID) CompactExprID {
	if ce, ok := s.exprs[eid]; ok {
		return ce
	}
	id := CompactExprID(len(s.out.Exprs))
	s.exprs[eid] = id
	s.out.Exprs = append(s.out.Exprs, CompactExpr{})

	e := s.m.ConstExprOf(eid)
	frozen := CompactExpr{Kind: e.Kind(), Type: e.Type()}
	for _, elem := range e.Elements() {
		frozen.Elements = append(frozen.Elements, s.freezeValue(elem))
	}
	s.out.Exprs[id] = frozen
	return id
}
