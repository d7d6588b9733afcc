package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArena_AllocGetFree(t *testing.T) {
	a := New[int]()
	h1 := a.Alloc(10)
	h2 := a.Alloc(20)
	require.Equal(t, 10, *a.Get(h1))
	require.Equal(t, 20, *a.Get(h2))
	require.Equal(t, 2, a.Len())

	a.Free(h1)
	require.False(t, a.Live(h1))
	require.Equal(t, 1, a.Len())
	require.Panics(t, func() { a.Get(h1) })

	h3 := a.Alloc(30)
	require.Equal(t, h1, h3, "freed slot should be recycled")
	require.Equal(t, 30, *a.Get(h3))
}

func TestArena_FreeIdempotentOnNull(t *testing.T) {
	a := New[int]()
	a.Free(NullHandle) // must not panic.
	require.Equal(t, 0, a.Len())
}

func TestArena_Compact(t *testing.T) {
	a := New[string]()
	h0 := a.Alloc("a")
	h1 := a.Alloc("b")
	h2 := a.Alloc("c")
	a.Free(h1)

	redirect := a.Compact()
	require.Equal(t, 2, a.Len())
	require.Contains(t, redirect, h0)
	require.Contains(t, redirect, h2)
	require.NotContains(t, redirect, h1)

	require.Equal(t, "a", *a.Get(redirect[h0]))
	require.Equal(t, "c", *a.Get(redirect[h2]))
}

type linkedInt struct {
	v int
	n Node
}

func (l *linkedInt) Links() *Node { return &l.n }

func TestList_PushAndUnplug(t *testing.T) {
	a := New[linkedInt]()
	listID := a.Alloc(linkedInt{v: -1}) // sentinel owner handle for the list id.
	l := NewListWithAccessor[linkedInt](a, listID, func(v *linkedInt) *Node { return v.Links() })

	h1 := a.Alloc(linkedInt{v: 1})
	h2 := a.Alloc(linkedInt{v: 2})
	h3 := a.Alloc(linkedInt{v: 3})
	l.PushBack(h1)
	l.PushBack(h2)
	l.PushBack(h3)

	require.Equal(t, []Handle{h1, h2, h3}, l.ToSlice())

	l.Unplug(h2)
	require.Equal(t, []Handle{h1, h3}, l.ToSlice())
	require.Equal(t, 2, l.Len())

	// Idempotent on an already-detached node.
	l.Unplug(h2)
	require.Equal(t, 2, l.Len())

	l.InsertAfter(h2, h1)
	require.Equal(t, []Handle{h1, h2, h3}, l.ToSlice())
}

func TestList_UnplugFromWrongListPanics(t *testing.T) {
	a := New[linkedInt]()
	id1 := a.Alloc(linkedInt{v: -1})
	id2 := a.Alloc(linkedInt{v: -2})
	l1 := NewListWithAccessor[linkedInt](a, id1, func(v *linkedInt) *Node { return v.Links() })
	l2 := NewListWithAccessor[linkedInt](a, id2, func(v *linkedInt) *Node { return v.Links() })

	h := a.Alloc(linkedInt{v: 1})
	l1.PushBack(h)
	require.Panics(t, func() { l2.Unplug(h) })
}

func TestDisjointSet_CycleDetection(t *testing.T) {
	d := NewDisjointSet()
	a, b, c := Handle(0), Handle(1), Handle(2)
	d.Add(a)
	d.Add(b)
	d.Add(c)
	d.Union(a, b)
	require.True(t, d.Connected(a, b))
	require.False(t, d.Connected(a, c))
	d.Union(b, c)
	require.True(t, d.Connected(a, c))
}
