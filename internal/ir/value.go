// Package ir implements the SSA value/instruction graph: ValueSSA,
// Use/JumpTarget edges, instructions, blocks, globals, reverse indices,
// value numbering, the textual writer, the structural checker, and the
// mark-sweep garbage collector.
package ir

import (
	"fmt"

	"github.com/medihbt/remusys-ir-sub003/internal/arena"
	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

// ValueKind tags the variant of a ValueSSA.
type ValueKind byte

const (
	// ValueNone is the sentinel "no value" — e.g. Ret's operand for `ret void`.
	ValueNone ValueKind = iota
	// ValueConstData is an inline integer/float bit pattern with a width.
	ValueConstData
	// ValueConstExpr references a constant-expression arena record (array
	// or struct aggregate literal).
	ValueConstExpr
	// ValueAggrZero is the canonical zero value of an aggregate type.
	ValueAggrZero
	// ValueFuncArg is the index-th parameter of a function.
	ValueFuncArg
	// ValueBlock references a basic block (used as a Phi incoming-block
	// operand or a BlockAddress-like value; jump targets use JumpTarget,
	// not this variant, for the actual CFG edges).
	ValueBlock
	// ValueInst references the result of a (non-void) instruction.
	ValueInst
	// ValueGlobal references a Global (function or variable).
	ValueGlobal
)

// String implements fmt.Stringer.
func (k ValueKind) String() string {
	switch k {
	case ValueNone:
		return "none"
	case ValueConstData:
		return "const"
	case ValueConstExpr:
		return "constexpr"
	case ValueAggrZero:
		return "zeroinitializer"
	case ValueFuncArg:
		return "arg"
	case ValueBlock:
		return "block"
	case ValueInst:
		return "inst"
	case ValueGlobal:
		return "global"
	default:
		return "invalid"
	}
}

// ValueSSA is the closed tagged union over every kind of SSA value. It is a
// plain value type (not itself arena-allocated): only the identity-bearing
// variants (ConstExpr, FuncArg, Block, Inst, Global) carry a handle that
// must be live-or-null; ConstData and AggrZero carry no handle and compare
// by value.
type ValueSSA struct {
	kind ValueKind
	typ  types.ID

	// ValueConstData
	bits uint64

	// ValueConstExpr
	expr ConstExprID

	// ValueFuncArg
	fn    GlobalID
	index uint32

	// ValueBlock
	block BlockID

	// ValueInst
	inst InstID

	// ValueGlobal
	global GlobalID
}

// None is the canonical sentinel ValueSSA.
var None = ValueSSA{kind: ValueNone}

// ConstData builds an inline constant value of type typ.
func ConstData(typ types.ID, bits uint64) ValueSSA {
	return ValueSSA{kind: ValueConstData, typ: typ, bits: bits}
}

// ConstExprValue builds a reference to a constant-expression arena record.
func ConstExprValue(typ types.ID, id ConstExprID) ValueSSA {
	return ValueSSA{kind: ValueConstExpr, typ: typ, expr: id}
}

// AggrZero builds the canonical zero value of an aggregate type.
func AggrZero(typ types.ID) ValueSSA {
	return ValueSSA{kind: ValueAggrZero, typ: typ}
}

// FuncArg builds a reference to the index-th parameter of fn.
func FuncArg(typ types.ID, fn GlobalID, index uint32) ValueSSA {
	return ValueSSA{kind: ValueFuncArg, typ: typ, fn: fn, index: index}
}

// BlockValue builds a reference to a block (used by Phi incoming-block
// operands, never as a jump-target — those go through JumpTarget).
func BlockValue(id BlockID) ValueSSA {
	return ValueSSA{kind: ValueBlock, block: id}
}

// InstValue builds a reference to the result of inst, typed typ.
func InstValue(typ types.ID, inst InstID) ValueSSA {
	return ValueSSA{kind: ValueInst, typ: typ, inst: inst}
}

// GlobalValue builds a reference to a global, typed typ (a pointer type
// for both functions and variables).
func GlobalValue(typ types.ID, id GlobalID) ValueSSA {
	return ValueSSA{kind: ValueGlobal, typ: typ, global: id}
}

func (v ValueSSA) Kind() ValueKind { return v.kind }
func (v ValueSSA) Type() types.ID  { return v.typ }
func (v ValueSSA) IsNone() bool    { return v.kind == ValueNone }

func (v ValueSSA) ConstBits() uint64 {
	mustBeKind(v, ValueConstData)
	return v.bits
}

func (v ValueSSA) ConstExprID() ConstExprID {
	mustBeKind(v, ValueConstExpr)
	return v.expr
}

func (v ValueSSA) FuncArgOf() (GlobalID, uint32) {
	mustBeKind(v, ValueFuncArg)
	return v.fn, v.index
}

func (v ValueSSA) BlockID() BlockID {
	mustBeKind(v, ValueBlock)
	return v.block
}

func (v ValueSSA) InstID() InstID {
	mustBeKind(v, ValueInst)
	return v.inst
}

func (v ValueSSA) GlobalID() GlobalID {
	mustBeKind(v, ValueGlobal)
	return v.global
}

func mustBeKind(v ValueSSA, k ValueKind) {
	if v.kind != k {
		panic(fmt.Sprintf("ir: ValueSSA accessor called on kind %s, expected %s", v.kind, k))
	}
}

// Equal reports whether two ValueSSA refer to the same value identity (for
// ConstData, this means same bits and type — constants don't carry arena
// identity).
func (v ValueSSA) Equal(o ValueSSA) bool {
	if v.kind != o.kind || v.typ != o.typ {
		return false
	}
	switch v.kind {
	case ValueNone:
		return true
	case ValueConstData:
		return v.bits == o.bits
	case ValueConstExpr:
		return v.expr == o.expr
	case ValueAggrZero:
		return true
	case ValueFuncArg:
		return v.fn == o.fn && v.index == o.index
	case ValueBlock:
		return v.block == o.block
	case ValueInst:
		return v.inst == o.inst
	case ValueGlobal:
		return v.global == o.global
	default:
		return false
	}
}

// Handle IDs for the arena-backed graph records. Each wraps arena.Handle so
// the Go type system keeps a BlockID from being passed where an InstID is
// expected, even though both are uint32 under the hood.
type (
	BlockID     arena.Handle
	InstID      arena.Handle
	GlobalID    arena.Handle
	UseID       arena.Handle
	JumpTargID  arena.Handle
	ConstExprID arena.Handle
)

func (h BlockID) IsNull() bool     { return arena.Handle(h).IsNull() }
func (h InstID) IsNull() bool      { return arena.Handle(h).IsNull() }
func (h GlobalID) IsNull() bool    { return arena.Handle(h).IsNull() }
func (h UseID) IsNull() bool       { return arena.Handle(h).IsNull() }
func (h JumpTargID) IsNull() bool  { return arena.Handle(h).IsNull() }
func (h ConstExprID) IsNull() bool { return arena.Handle(h).IsNull() }

const (
	NullBlockID     = BlockID(arena.NullHandle)
	NullInstID      = InstID(arena.NullHandle)
	NullGlobalID    = GlobalID(arena.NullHandle)
	NullUseID       = UseID(arena.NullHandle)
	NullJumpTargID  = JumpTargID(arena.NullHandle)
	NullConstExprID = ConstExprID(arena.NullHandle)
)
