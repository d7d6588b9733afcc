package types

import "fmt"

// Context interns Type records: constructing the "same" type twice (e.g.
// Int(32) called from two different functions) returns the same ID, so
// callers can compare IDs directly for type equality.
type Context struct {
	types []*Type
	// byKey maps a structural fingerprint string to its ID, so repeated
	// construction of equal aggregate/function types is deduplicated.
	byKey map[string]ID
}

// NewContext returns a Context pre-populated with the singleton Void, I1,
// I8, I16, I32, I64, F32, F64 types at the well-known IDs below. Every
// Context interns them in the same order on construction, so these
// constants are valid against any Context value, not just one particular
// instance.
func NewContext() *Context {
	c := &Context{byKey: map[string]ID{}}
	c.types = append(c.types, nil) // index 0 == InvalidID, never resolves.
	c.intern("void", &Type{kind: KindVoid})
	c.Int(1)
	c.Int(8)
	c.Int(16)
	c.Int(32)
	c.Int(64)
	c.intern("f32", &Type{kind: KindFloat32, bits: 32})
	c.intern("f64", &Type{kind: KindFloat64, bits: 64})
	return c
}

// Well-known IDs, valid against any Context produced by NewContext: the
// constructor always interns them first, in this order.
const (
	Void ID = 1 + iota
	I1
	I8
	I16
	I32
	I64
	F32
	F64
)

func (c *Context) intern(key string, t *Type) ID {
	if id, ok := c.byKey[key]; ok {
		return id
	}
	id := ID(len(c.types))
	c.types = append(c.types, t)
	c.byKey[key] = id
	return id
}

// Get resolves id to its Type record. Panics on InvalidID or an
// out-of-range id, mirroring the arena "use-after-free is a bug" contract.
func (c *Context) Get(id ID) *Type {
	if id == InvalidID || int(id) >= len(c.types) {
		panic("types: dereference of invalid type ID")
	}
	return c.types[id]
}

// Int returns (interning if needed) the n-bit integer type.
func (c *Context) Int(bits uint32) ID {
	return c.intern(fmt.Sprintf("i%d", bits), &Type{kind: KindInt, bits: bits})
}

// Pointer returns the pointer-to-elem type. Remusys pointers are opaque:
// no provenance distinctions beyond the pointee type.
func (c *Context) Pointer(elem ID) ID {
	return c.intern(fmt.Sprintf("ptr<%d>", elem), &Type{kind: KindPointer, elem: elem})
}

// Array returns the [length x elem] array type.
func (c *Context) Array(elem ID, length uint64) ID {
	return c.intern(fmt.Sprintf("arr<%d,%d>", elem, length),
		&Type{kind: KindArray, elem: elem, length: length})
}

// Struct returns an anonymous struct type with the given ordered fields.
func (c *Context) Struct(fields []ID) ID {
	key := "struct<"
	for _, f := range fields {
		key += fmt.Sprintf("%d,", f)
	}
	key += ">"
	fieldsCopy := append([]ID(nil), fields...)
	return c.intern(key, &Type{kind: KindStruct, fields: fieldsCopy})
}

// StructAlias returns a named alias for an existing (struct) type. Two
// aliases with the same name but different aliasees are distinct types, to
// match LLVM's named-type semantics.
func (c *Context) StructAlias(name string, aliasee ID) ID {
	return c.intern(fmt.Sprintf("alias<%s,%d>", name, aliasee),
		&Type{kind: KindStructAlias, name: name, aliasee: aliasee})
}

// Func returns a function type (args..., ret).
func (c *Context) Func(params []ID, ret ID) ID {
	key := fmt.Sprintf("fn<%d;", ret)
	for _, p := range params {
		key += fmt.Sprintf("%d,", p)
	}
	key += ">"
	paramsCopy := append([]ID(nil), params...)
	return c.intern(key, &Type{kind: KindFunc, params: paramsCopy, ret: ret})
}

// Vector returns a fixed-width vector of lanes x lane.
func (c *Context) Vector(lane ID, lanes uint32) ID {
	return c.intern(fmt.Sprintf("vec<%d,%d>", lane, lanes),
		&Type{kind: KindVector, lane: lane, lanes: lanes})
}

// SizeOf returns the size in bytes of id, per AArch64 LP64 layout rules:
// integers round up to the next byte, struct fields are laid out in order
// with natural alignment padding, arrays are elem-size * length, pointers
// are always 8 bytes.
func (c *Context) SizeOf(id ID) uint64 {
	t := c.Get(id)
	switch t.kind {
	case KindVoid:
		return 0
	case KindInt:
		return uint64((t.bits + 7) / 8)
	case KindFloat32:
		return 4
	case KindFloat64:
		return 8
	case KindPointer:
		return 8
	case KindArray:
		return c.SizeOf(t.elem) * t.length
	case KindStruct:
		size, align := c.layoutStruct(t.fields)
		return alignUp(size, align)
	case KindStructAlias:
		return c.SizeOf(t.aliasee)
	case KindVector:
		return c.SizeOf(t.lane) * uint64(t.lanes)
	case KindFunc:
		panic("types: SizeOf on a function type")
	default:
		panic("types: SizeOf on invalid type")
	}
}

// AlignOf returns the natural alignment in bytes of id.
func (c *Context) AlignOf(id ID) uint64 {
	t := c.Get(id)
	switch t.kind {
	case KindVoid:
		return 1
	case KindInt, KindFloat32, KindFloat64, KindPointer:
		sz := c.SizeOf(id)
		if sz == 0 {
			return 1
		}
		return sz
	case KindArray:
		return c.AlignOf(t.elem)
	case KindStruct:
		_, align := c.layoutStruct(t.fields)
		return align
	case KindStructAlias:
		return c.AlignOf(t.aliasee)
	case KindVector:
		// Natural vector alignment is its full size, capped at 16 bytes
		// (AArch64 Q-register width) the way AAPCS64 aligns composite
		// vector arguments.
		sz := c.SizeOf(id)
		if sz > 16 {
			return 16
		}
		return sz
	default:
		panic("types: AlignOf on invalid type")
	}
}

func (c *Context) layoutStruct(fields []ID) (size, align uint64) {
	align = 1
	for _, f := range fields {
		fa := c.AlignOf(f)
		if fa > align {
			align = fa
		}
		size = alignUp(size, fa)
		size += c.SizeOf(f)
	}
	return size, align
}

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// IsInt, IsFloat, IsAggregate classify a type for the structural checker's
// type-class checks (casts constrain source/destination classes per opcode
// rather than naming exact types).
func (c *Context) IsInt(id ID) bool     { return c.Get(id).kind == KindInt }
func (c *Context) IsFloat(id ID) bool   { k := c.Get(id).kind; return k == KindFloat32 || k == KindFloat64 }
func (c *Context) IsPointer(id ID) bool { return c.Get(id).kind == KindPointer }

func (c *Context) IsAggregate(id ID) bool {
	k := c.Get(id).kind
	return k == KindArray || k == KindStruct || k == KindStructAlias || k == KindVector
}

// FuncParams returns a function type's parameter types, in declaration
// order. Used by instruction selection to classify each argument into the
// AAPCS64 integer or floating-point register file.
func (c *Context) FuncParams(id ID) []ID {
	t := c.Get(id)
	if t.kind != KindFunc {
		panic("types: FuncParams on a non-function type")
	}
	return t.params
}

// FuncRet returns a function type's return type.
func (c *Context) FuncRet(id ID) ID {
	t := c.Get(id)
	if t.kind != KindFunc {
		panic("types: FuncRet on a non-function type")
	}
	return t.ret
}

// ElemOf returns a pointer or array type's pointee/element type. Used by
// GEP lowering to walk down one index level at a time.
func (c *Context) ElemOf(id ID) ID {
	t := c.Get(id)
	if t.kind != KindPointer && t.kind != KindArray {
		panic("types: ElemOf on a type with no single element")
	}
	return t.elem
}

// FieldOffset returns a struct field's byte offset and type, per the same
// natural-alignment layout SizeOf/AlignOf use.
func (c *Context) FieldOffset(id ID, field int) (uint64, ID) {
	t := c.Get(id)
	if t.kind != KindStruct {
		panic("types: FieldOffset on a non-struct type")
	}
	var off uint64
	align := uint64(1)
	for i, f := range t.fields {
		fa := c.AlignOf(f)
		if fa > align {
			align = fa
		}
		off = alignUp(off, fa)
		if i == field {
			return off, f
		}
		off += c.SizeOf(f)
	}
	panic("types: FieldOffset index out of range")
}

// TypeString renders id in an LLVM-ish surface syntax for the textual
// writer: "i32", "ptr", "[4 x i8]", "{ i8, i32 }", "%Name".
func (c *Context) TypeString(id ID) string {
	t := c.Get(id)
	switch t.kind {
	case KindVoid:
		return "void"
	case KindInt:
		return fmt.Sprintf("i%d", t.bits)
	case KindFloat32:
		return "f32"
	case KindFloat64:
		return "f64"
	case KindPointer:
		return "ptr"
	case KindArray:
		return fmt.Sprintf("[%d x %s]", t.length, c.TypeString(t.elem))
	case KindStruct:
		s := "{ "
		for i, f := range t.fields {
			if i > 0 {
				s += ", "
			}
			s += c.TypeString(f)
		}
		return s + " }"
	case KindStructAlias:
		return "%" + t.name
	case KindFunc:
		s := c.TypeString(t.ret) + " ("
		for i, p := range t.params {
			if i > 0 {
				s += ", "
			}
			s += c.TypeString(p)
		}
		return s + ")"
	case KindVector:
		return fmt.Sprintf("<%d x %s>", t.lanes, c.TypeString(t.lane))
	default:
		return "<invalid>"
	}
}
