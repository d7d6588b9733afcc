// Package types implements the interned value-type context shared by the IR
// and MIR graphs: void, sized integers, IEEE float32/float64, pointer,
// array, struct, struct-alias, function, and fixed-width vector types, with
// size/alignment queries.
package types

import "fmt"

// Kind tags the variant of a Type.
type Kind byte

const (
	KindInvalid Kind = iota
	KindVoid
	KindInt
	KindFloat32
	KindFloat64
	KindPointer
	KindArray
	KindStruct
	KindStructAlias
	KindFunc
	KindVector
)

// ID is an interned, comparable reference to a Type record. Two IDs compare
// equal iff the Context that produced them considers the types structurally
// equal (the Context deduplicates on intern).
type ID uint32

const InvalidID ID = 0

// Type is the immutable, interned record for one value type.
type Type struct {
	kind Kind

	// KindInt
	bits uint32

	// KindPointer, KindArray
	elem ID
	// KindArray
	length uint64

	// KindStruct
	fields []ID
	// KindStructAlias
	name    string
	aliasee ID

	// KindFunc
	params []ID
	ret    ID

	// KindVector
	lane  ID
	lanes uint32
}

// Kind returns the variant tag of t.
func (t *Type) Kind() Kind { return t.kind }

// IntBits returns the bit-width of an integer type; panics otherwise.
func (t *Type) IntBits() uint32 {
	t.mustBe(KindInt)
	return t.bits
}

// Elem returns the pointee (KindPointer) or element (KindArray) type.
func (t *Type) Elem() ID {
	if t.kind != KindPointer && t.kind != KindArray {
		panic(fmt.Sprintf("types: Elem on non-pointer/array type %s", t.kind))
	}
	return t.elem
}

// ArrayLength returns the element count of a KindArray type.
func (t *Type) ArrayLength() uint64 {
	t.mustBe(KindArray)
	return t.length
}

// Fields returns the ordered field types of a KindStruct type.
func (t *Type) Fields() []ID {
	t.mustBe(KindStruct)
	return t.fields
}

// Aliasee returns the underlying type of a KindStructAlias type.
func (t *Type) Aliasee() ID {
	t.mustBe(KindStructAlias)
	return t.aliasee
}

// Name returns the alias name of a KindStructAlias type.
func (t *Type) Name() string {
	t.mustBe(KindStructAlias)
	return t.name
}

// Params returns the parameter types of a KindFunc type.
func (t *Type) Params() []ID {
	t.mustBe(KindFunc)
	return t.params
}

// Ret returns the return type of a KindFunc type.
func (t *Type) Ret() ID {
	t.mustBe(KindFunc)
	return t.ret
}

// Lane returns the per-lane element type of a KindVector type.
func (t *Type) Lane() ID {
	t.mustBe(KindVector)
	return t.lane
}

// Lanes returns the lane count of a KindVector type.
func (t *Type) Lanes() uint32 {
	t.mustBe(KindVector)
	return t.lanes
}

func (t *Type) mustBe(k Kind) {
	if t.kind != k {
		panic(fmt.Sprintf("types: expected %s, got %s", k, t.kind))
	}
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindFloat32:
		return "float"
	case KindFloat64:
		return "double"
	case KindPointer:
		return "ptr"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindStructAlias:
		return "structalias"
	case KindFunc:
		return "func"
	case KindVector:
		return "vector"
	default:
		return "invalid"
	}
}
