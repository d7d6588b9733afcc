package ir

import (
	"github.com/medihbt/remusys-ir-sub003/internal/arena"
	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

// GlobalKind tags whether a Global is a function or a data variable.
type GlobalKind byte

const (
	GlobalInvalid GlobalKind = iota
	GlobalFunction
	GlobalVariable
)

func (k GlobalKind) String() string {
	switch k {
	case GlobalFunction:
		return "function"
	case GlobalVariable:
		return "variable"
	default:
		return "invalid"
	}
}

// Linkage mirrors the handful of linkage classes a lowering pipeline needs
// to tell apart: whether a definition is visible outside the module and
// whether the linker may discard an unreferenced one.
type Linkage byte

const (
	LinkageInternal Linkage = iota
	LinkageExternal
	LinkageWeak
)

func (l Linkage) String() string {
	switch l {
	case LinkageInternal:
		return "internal"
	case LinkageExternal:
		return "external"
	case LinkageWeak:
		return "weak"
	default:
		return "invalid"
	}
}

// Global is a module-level named entity: either a Function (an ordered
// Block list under a signature) or a Variable (typed storage with an
// optional constant initializer).
type Global struct {
	kind    GlobalKind
	self    GlobalID
	name    string
	linkage Linkage
	typ     types.ID // Variable's storage type, or Function's types.Func signature.

	// Function-only fields.
	blocks arena.ListState // ordered Block list.
	numArg uint32

	// Variable-only fields.
	readOnly    bool
	initializer ValueSSA
	hasInit     bool

	// users is the reverse Use list of address-of references to this
	// global.
	users arena.ListState

	moduleLink arena.Node // position in the module's global declaration order.
}

func (g *Global) moduleLinks() *arena.Node { return &g.moduleLink }

func (g *Global) Kind() GlobalKind { return g.kind }
func (g *Global) Self() GlobalID   { return g.self }
func (g *Global) Name() string     { return g.name }
func (g *Global) Linkage() Linkage { return g.linkage }
func (g *Global) Type() types.ID   { return g.typ }

// Value returns the ValueSSA other instructions reference when they take
// this global's address.
func (g *Global) Value() ValueSSA { return GlobalValue(g.typ, g.self) }

func (g *Global) mustBeKind(k GlobalKind) {
	if g.kind != k {
		panic("ir: Global method requires kind " + k.String() + ", got " + g.kind.String())
	}
}

// NumArgs returns a function's argument count. Panics on a Variable.
func (g *Global) NumArgs() int {
	g.mustBeKind(GlobalFunction)
	return int(g.numArg)
}

// NumBlocks returns a function's current block count. Panics on a Variable.
func (g *Global) NumBlocks() int {
	g.mustBeKind(GlobalFunction)
	return g.blocks.Length
}

// ReadOnly reports whether a Variable is a constant. Panics on a Function.
func (g *Global) ReadOnly() bool {
	g.mustBeKind(GlobalVariable)
	return g.readOnly
}

// Initializer returns a Variable's constant initializer and whether one is
// present (an uninitialized Variable is zero-filled, per AggrZero/ConstData
// conventions). Panics on a Function.
func (g *Global) Initializer() (ValueSSA, bool) {
	g.mustBeKind(GlobalVariable)
	return g.initializer, g.hasInit
}
