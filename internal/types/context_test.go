package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContext_WellKnownIDs(t *testing.T) {
	c := NewContext()
	require.Equal(t, KindVoid, c.Get(Void).Kind())
	require.Equal(t, uint32(32), c.Get(I32).IntBits())
	require.Equal(t, uint64(4), c.SizeOf(I32))
	require.Equal(t, uint64(8), c.SizeOf(I64))
	require.Equal(t, uint64(8), c.SizeOf(F64))
}

func TestContext_Interning(t *testing.T) {
	c := NewContext()
	p1 := c.Pointer(I32)
	p2 := c.Pointer(I32)
	require.Equal(t, p1, p2, "same pointee should intern to the same ID")

	p3 := c.Pointer(I64)
	require.NotEqual(t, p1, p3)
}

func TestContext_StructLayout(t *testing.T) {
	c := NewContext()
	// struct { i8, i32 } should pad to { i8, pad3, i32 } = 8 bytes, align 4.
	s := c.Struct([]ID{I8, I32})
	require.Equal(t, uint64(8), c.SizeOf(s))
	require.Equal(t, uint64(4), c.AlignOf(s))
}

func TestContext_ArraySize(t *testing.T) {
	c := NewContext()
	a := c.Array(I32, 10)
	require.Equal(t, uint64(40), c.SizeOf(a))
}

func TestContext_StructAlias(t *testing.T) {
	c := NewContext()
	s := c.Struct([]ID{I32, I32})
	alias := c.StructAlias("Point", s)
	require.Equal(t, s, c.Get(alias).Aliasee())
	require.Equal(t, c.SizeOf(s), c.SizeOf(alias))
}

func TestContext_FuncType(t *testing.T) {
	c := NewContext()
	fn := c.Func([]ID{I32, I32}, I32)
	require.Equal(t, KindFunc, c.Get(fn).Kind())
	require.Len(t, c.Get(fn).Params(), 2)
	require.Panics(t, func() { c.SizeOf(fn) })
}
