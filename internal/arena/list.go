package arena

// Node is the intrusive link cell embedded in any record that can belong to
// a List. parentList lets unplug refuse to detach a node that belongs to a
// different list than the one asked.
type Node struct {
	prev, next Handle
	parentList Handle
}

// Linked is implemented by arena records with exactly one Node to thread
// onto a List. Records that must belong to two independent lists at once
// (e.g. a Use is simultaneously a member of its owning instruction's
// ordered operand sequence and of its target's reverse user list) should
// use NewListWithAccessor with two distinct Node fields instead.
type Linked interface {
	Links() *Node
}

// List is an intrusive, handle-keyed doubly-linked list over the records of
// an Arena[T]. Unlike a slice-backed list, push/insert/unplug are O(1) and
// never move other elements, which is what lets blocks hold huge
// instruction lists that splice cheaply during lowering.
//
// Every List owns a synthetic sentinel handle identifying it, purely so
// unplug can tell "belongs to this list" from "belongs to another list"
// apart; it is set on every node inserted through this List value.
type List[T any] struct {
	id         Handle
	arena      *Arena[T]
	links      func(*T) *Node
	head, tail Handle
	length     int
}

// NewList creates an empty list over arena, identified by id (the caller
// picks a unique Handle per logical list, e.g. the owning block's handle).
func NewList[T Linked](arena *Arena[T], id Handle) *List[T] {
	return NewListWithAccessor[T](arena, id, func(v *T) *Node { return any(v).(Linked).Links() })
}

// NewListWithAccessor is NewList generalized to an explicit Node selector,
// so a single record type can be threaded onto more than one independent
// List by giving each List a different field.
func NewListWithAccessor[T any](arena *Arena[T], id Handle, links func(*T) *Node) *List[T] {
	return &List[T]{id: id, arena: arena, links: links, head: NullHandle, tail: NullHandle}
}

// ListState is the persistent (head, tail, length) triple of a List, for
// records that need many independent lists over one shared Arena[T] — e.g.
// every value-identity record (instruction, global, constant expression)
// owns its own reverse "user list" of Use edges, all drawn from one Use
// arena. Storing a ListState field on the record and wrapping it in a
// transient List via Resume/Save avoids allocating a List object per
// record up front.
type ListState struct {
	Head, Tail Handle
	Length     int
}

// Resume reconstructs a List view over an existing ListState, so operations
// can continue exactly where a previous List value left off. A ListState
// with Length 0, including the zero value, resumes as an empty list.
func Resume[T any](arena *Arena[T], id Handle, links func(*T) *Node, s ListState) *List[T] {
	l := &List[T]{id: id, arena: arena, links: links, head: s.Head, tail: s.Tail, length: s.Length}
	if s.Length == 0 {
		l.head, l.tail = NullHandle, NullHandle
	}
	return l
}

// Save captures the current (head, tail, length) of l back into s.
func (l *List[T]) Save(s *ListState) {
	s.Head, s.Tail, s.Length = l.head, l.tail, l.length
}

// Len returns the number of nodes currently in the list.
func (l *List[T]) Len() int { return l.length }

// Front returns the first node's handle, or NullHandle if empty.
func (l *List[T]) Front() Handle { return l.head }

// Back returns the last node's handle, or NullHandle if empty.
func (l *List[T]) Back() Handle { return l.tail }

// Next returns the handle following h in this list, or NullHandle at the
// tail.
func (l *List[T]) Next(h Handle) Handle { return l.links(l.arena.Get(h)).next }

// Prev returns the handle preceding h in this list, or NullHandle at the
// head.
func (l *List[T]) Prev(h Handle) Handle { return l.links(l.arena.Get(h)).prev }

func (l *List[T]) link(h Handle) *Node {
	n := l.links(l.arena.Get(h))
	n.parentList = l.id
	return n
}

// PushBack appends h to the tail of the list.
func (l *List[T]) PushBack(h Handle) {
	n := l.link(h)
	n.prev, n.next = l.tail, NullHandle
	if !l.tail.IsNull() {
		l.links(l.arena.Get(l.tail)).next = h
	} else {
		l.head = h
	}
	l.tail = h
	l.length++
}

// PushFront prepends h to the head of the list.
func (l *List[T]) PushFront(h Handle) {
	n := l.link(h)
	n.prev, n.next = NullHandle, l.head
	if !l.head.IsNull() {
		l.links(l.arena.Get(l.head)).prev = h
	} else {
		l.tail = h
	}
	l.head = h
	l.length++
}

// InsertBefore inserts h immediately before at, which must already be a
// member of this list.
func (l *List[T]) InsertBefore(h, at Handle) {
	if at.IsNull() {
		l.PushBack(h)
		return
	}
	atNode := l.links(l.arena.Get(at))
	prev := atNode.prev
	n := l.link(h)
	n.prev, n.next = prev, at
	atNode.prev = h
	if prev.IsNull() {
		l.head = h
	} else {
		l.links(l.arena.Get(prev)).next = h
	}
	l.length++
}

// InsertAfter inserts h immediately after at, which must already be a
// member of this list.
func (l *List[T]) InsertAfter(h, at Handle) {
	if at.IsNull() {
		l.PushFront(h)
		return
	}
	atNode := l.links(l.arena.Get(at))
	next := atNode.next
	n := l.link(h)
	n.prev, n.next = at, next
	atNode.next = h
	if next.IsNull() {
		l.tail = h
	} else {
		l.links(l.arena.Get(next)).prev = h
	}
	l.length++
}

// Unplug removes h from the list. It is idempotent on an already-detached
// node (one whose parentList is NullHandle) and panics if h claims membership
// in a *different* list: a node belongs to at most
// one list, and Unplug must not silently corrupt that other list.
func (l *List[T]) Unplug(h Handle) {
	n := l.links(l.arena.Get(h))
	if n.parentList != l.id {
		if n.parentList.IsNull() {
			return // already detached: idempotent.
		}
		panic("arena: unplug of a node belonging to another list")
	}
	prev, next := n.prev, n.next
	if prev.IsNull() {
		l.head = next
	} else {
		l.links(l.arena.Get(prev)).next = next
	}
	if next.IsNull() {
		l.tail = prev
	} else {
		l.links(l.arena.Get(next)).prev = prev
	}
	n.prev, n.next, n.parentList = NullHandle, NullHandle, NullHandle
	l.length--
}

// ForEach visits every handle in the list from front to back. f must not
// mutate the list's topology during iteration.
func (l *List[T]) ForEach(f func(Handle)) {
	for h := l.head; !h.IsNull(); h = l.Next(h) {
		f(h)
	}
}

// ToSlice materializes the list's handles in order; intended for debugging
// and tests, not for hot paths.
func (l *List[T]) ToSlice() []Handle {
	out := make([]Handle, 0, l.length)
	l.ForEach(func(h Handle) { out = append(out, h) })
	return out
}

// Redirect rewrites n's prev/next through elemRedirect (the Compact()
// redirection map of the arena this Node's list threads through) and its
// parentList id through idRedirect (the redirection map of whatever arena
// the owning List's id is drawn from, or nil if that arena was not
// compacted). Used by GC after Arena.Compact to keep intrusive lists
// consistent once the handles they reference have moved.
func (n *Node) Redirect(elemRedirect, idRedirect map[Handle]Handle) {
	n.prev = redirectHandle(elemRedirect, n.prev)
	n.next = redirectHandle(elemRedirect, n.next)
	n.parentList = redirectHandle(idRedirect, n.parentList)
}

func redirectHandle(table map[Handle]Handle, h Handle) Handle {
	if h.IsNull() || table == nil {
		return h
	}
	if nh, ok := table[h]; ok {
		return nh
	}
	return h
}
