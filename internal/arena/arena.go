// Package arena implements the slab-allocated handle storage used by both
// the IR and MIR graphs: records are never addressed by pointer, only by a
// stable integer Handle, so that the garbage collector can compact storage
// and rewrite every edge through a redirection map without invalidating
// anything a caller is holding on to mid-mutation.
package arena

// Handle is a stable, dense-ish integer reference into an Arena. The zero
// value is a valid handle (slot 0); use NullHandle for "no value".
type Handle uint32

// NullHandle is the sentinel for "no handle", following the convention that
// the maximum representable integer never denotes a live slot.
const NullHandle Handle = ^Handle(0)

// IsNull reports whether h is the null sentinel.
func (h Handle) IsNull() bool { return h == NullHandle }

const slabSize = 256

type slab[T any] [slabSize]T

// Arena is a generic slab allocator: O(1) Alloc, Get, and Free, with freed
// slots recycled via a free-list. T is never deallocated at the Go level;
// Free only marks the slot dead and links it into the free-list.
type Arena[T any] struct {
	slabs []*slab[T]
	alive []bool
	free  []Handle
	count int
}

// New returns an empty Arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Alloc stores v in a fresh or recycled slot and returns its Handle.
func (a *Arena[T]) Alloc(v T) Handle {
	var h Handle
	if n := len(a.free); n > 0 {
		h = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		h = Handle(len(a.alive))
		a.alive = append(a.alive, false)
		if int(h)%slabSize == 0 {
			a.slabs = append(a.slabs, new(slab[T]))
		}
	}
	*a.slotPtr(h) = v
	a.alive[h] = true
	a.count++
	return h
}

func (a *Arena[T]) slotPtr(h Handle) *T {
	s := a.slabs[int(h)/slabSize]
	return &s[int(h)%slabSize]
}

// Get returns a mutable pointer to the record at h. It panics if h refers to
// a freed or out-of-range slot: dereferencing a non-null, non-live handle is
// a programming error, not a recoverable condition.
func (a *Arena[T]) Get(h Handle) *T {
	if !a.Live(h) {
		panic("arena: use-after-free or invalid handle dereference")
	}
	return a.slotPtr(h)
}

// Live reports whether h currently refers to a live (allocated, not freed)
// slot. A null handle is never live.
func (a *Arena[T]) Live(h Handle) bool {
	if h.IsNull() || int(h) >= len(a.alive) {
		return false
	}
	return a.alive[h]
}

// Free marks h's slot dead and recycles it for a future Alloc. Freeing an
// already-dead or null handle is a no-op.
func (a *Arena[T]) Free(h Handle) {
	if h.IsNull() || !a.Live(h) {
		return
	}
	var zero T
	*a.slotPtr(h) = zero
	a.alive[h] = false
	a.free = append(a.free, h)
	a.count--
}

// Len returns the number of currently-live records.
func (a *Arena[T]) Len() int { return a.count }

// Cap returns the number of slots ever allocated, live or not; this is the
// exclusive upper bound on handle values currently in use by ForEach.
func (a *Arena[T]) Cap() int { return len(a.alive) }

// ForEach calls f for every live handle in ascending order. f must not
// Alloc or Free on the same arena during iteration.
func (a *Arena[T]) ForEach(f func(Handle, *T)) {
	for i, alive := range a.alive {
		if alive {
			f(Handle(i), a.slotPtr(Handle(i)))
		}
	}
}

// Compact rebuilds the arena so that live records occupy the dense handle
// range [0, Len()), in the order ForEach would have visited them, and
// returns the old->new handle redirection map. This is the mechanism the
// GC (internal/ir/gc) uses to shrink storage after a mark-sweep pass;
// Handle stability is not guaranteed across a call to Compact.
func (a *Arena[T]) Compact() map[Handle]Handle {
	redirect := make(map[Handle]Handle, a.count)
	newSlabs := []*slab[T]{}
	newAlive := make([]bool, 0, a.count)
	next := Handle(0)
	for i, alive := range a.alive {
		if !alive {
			continue
		}
		if int(next)%slabSize == 0 {
			newSlabs = append(newSlabs, new(slab[T]))
		}
		newSlabs[int(next)/slabSize][int(next)%slabSize] = *a.slotPtr(Handle(i))
		newAlive = append(newAlive, true)
		redirect[Handle(i)] = next
		next++
	}
	a.slabs = newSlabs
	a.alive = newAlive
	a.free = nil
	return redirect
}
