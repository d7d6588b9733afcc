package arena

// DisjointSet is a union-find over Handle, for grouping handles into
// connected components — e.g. detecting cycles among (dst <- src) copy
// pairs before sequentializing them. Two handles are in the same set iff
// union has connected them, directly or transitively.
type DisjointSet struct {
	parent map[Handle]Handle
	rank   map[Handle]int
}

// NewDisjointSet returns an empty DisjointSet.
func NewDisjointSet() *DisjointSet {
	return &DisjointSet{parent: map[Handle]Handle{}, rank: map[Handle]int{}}
}

// Add ensures h is known to the set, as its own singleton component.
func (d *DisjointSet) Add(h Handle) {
	if _, ok := d.parent[h]; !ok {
		d.parent[h] = h
		d.rank[h] = 0
	}
}

// Find returns the representative of h's component, path-compressing along
// the way. h must have been added via Add.
func (d *DisjointSet) Find(h Handle) Handle {
	p, ok := d.parent[h]
	if !ok {
		panic("arena: Find on handle not added to DisjointSet")
	}
	if p == h {
		return h
	}
	root := d.Find(p)
	d.parent[h] = root
	return root
}

// Union merges the components containing a and b.
func (d *DisjointSet) Union(a, b Handle) {
	ra, rb := d.Find(a), d.Find(b)
	if ra == rb {
		return
	}
	if d.rank[ra] < d.rank[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	if d.rank[ra] == d.rank[rb] {
		d.rank[ra]++
	}
}

// Connected reports whether a and b are in the same component.
func (d *DisjointSet) Connected(a, b Handle) bool {
	return d.Find(a) == d.Find(b)
}
