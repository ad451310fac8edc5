package blueprint

import (
	"fmt"
	"maps"
	"slices"

	"github.com/l1jgo/draftsman/internal/core/ecs"
)

// Container is the ordered list of children of one Group. Key bookkeeping is
// rebuilt together with every list mutation, so KeyToIndex and IndexToKey are
// always inverse maps over the items that carry an ID.
type Container struct {
	owner      *Group
	items      []Node
	keyToIndex map[string]int
	indexToKey map[int]string
	handles    map[ecs.EntityID]int
	pool       *ecs.EntityPool
}

func newContainer(owner *Group) *Container {
	return &Container{
		owner:      owner,
		keyToIndex: make(map[string]int),
		indexToKey: make(map[int]string),
		handles:    make(map[ecs.EntityID]int),
		pool:       ecs.NewEntityPool(),
	}
}

type insertOptions struct {
	noCopy bool
	merge  bool
}

type InsertOption func(*insertOptions)

// NoCopy inserts the node itself instead of a deep copy. The node must not
// belong to another container.
func NoCopy() InsertOption { return func(o *insertOptions) { o.noCopy = true } }

// Merge folds incoming entities into coinciding mergeable ones instead of
// keeping both.
func Merge() InsertOption { return func(o *insertOptions) { o.merge = true } }

func (c *Container) Len() int { return len(c.items) }

// Items returns a snapshot of the children in order.
func (c *Container) Items() []Node { return slices.Clone(c.items) }

func (c *Container) KeyToIndex() map[string]int { return maps.Clone(c.keyToIndex) }
func (c *Container) IndexToKey() map[int]string { return maps.Clone(c.indexToKey) }

func (c *Container) resolve(i int) (int, error) {
	if i < 0 {
		i += len(c.items)
	}
	if i < 0 || i >= len(c.items) {
		return 0, fmt.Errorf("index %d of %d: %w", i, len(c.items), ErrNotFound)
	}
	return i, nil
}

// At returns the i-th child. Negative indices count from the end.
func (c *Container) At(i int) (Node, error) {
	i, err := c.resolve(i)
	if err != nil {
		return nil, err
	}
	return c.items[i], nil
}

// Lookup returns the child whose ID is id.
func (c *Container) Lookup(id string) (Node, error) {
	i, ok := c.keyToIndex[id]
	if !ok {
		return nil, fmt.Errorf("id %q: %w", id, ErrNotFound)
	}
	return c.items[i], nil
}

// ByHandle returns the child issued the given handle.
func (c *Container) ByHandle(h ecs.EntityID) (Node, bool) {
	if !c.pool.Alive(h) {
		return nil, false
	}
	i, ok := c.handles[h]
	if !ok {
		return nil, false
	}
	return c.items[i], true
}

func (c *Container) lookupKey(k Key) (Node, error) {
	if k.byName {
		return c.Lookup(k.name)
	}
	return c.At(k.index)
}

// Get follows a path of keys, descending into nested groups.
func (c *Container) Get(keys ...Key) (Node, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty key path: %w", ErrInvalidArgument)
	}
	n, err := c.lookupKey(keys[0])
	if err != nil || len(keys) == 1 {
		return n, err
	}
	g, ok := n.(*Group)
	if !ok {
		return nil, fmt.Errorf("%v is not a group: %w", keys[0], ErrNotFound)
	}
	return g.entities.Get(keys[1:]...)
}

// Contains reports whether n is a child, or with recursive set, a descendant.
func (c *Container) Contains(n Node, recursive bool) bool {
	n = unwrap(n)
	if n == nil {
		return false
	}
	for _, it := range c.items {
		if it == n {
			return true
		}
		if g, ok := it.(*Group); ok && recursive && g.entities.Contains(n, true) {
			return true
		}
	}
	return false
}

func (c *Container) indexOf(n Node) int {
	return slices.Index(c.items, n)
}

// Append inserts n at the end.
func (c *Container) Append(n Node, opts ...InsertOption) (Node, error) {
	return c.Insert(len(c.items), n, opts...)
}

// Add builds an entity of the named kind and appends it without copying.
func (c *Container) Add(name string, opts ...EntityOption) (*Entity, error) {
	e, err := NewEntity(c.owner.cat, name, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := c.Insert(len(c.items), e, NoCopy()); err != nil {
		return nil, err
	}
	return e, nil
}

// Insert places n before position i (clamped, negative counts from the end)
// and returns the node that now lives in the container. Unless NoCopy is
// given the container receives a deep copy. With Merge, an entity that
// coincides with a mergeable one already in the tree is folded into it and
// the existing entity is returned.
func (c *Container) Insert(i int, n Node, opts ...InsertOption) (Node, error) {
	var o insertOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.noCopy && o.merge {
		return nil, fmt.Errorf("merge requires a copy: %w", ErrInvalidArgument)
	}
	n = unwrap(n)
	if n == nil {
		return nil, fmt.Errorf("nil node: %w", ErrInvalidArgument)
	}
	if o.noCopy {
		if err := c.checkAdoptable(n); err != nil {
			return nil, err
		}
	}
	if id := n.ID(); id != "" {
		if _, dup := c.keyToIndex[id]; dup {
			return nil, fmt.Errorf("id %q: %w", id, ErrDuplicateID)
		}
	}

	node := n
	if !o.noCopy {
		cp, err := cloneNode(n)
		if err != nil {
			return nil, err
		}
		node = cp
	}

	if o.merge {
		if survivor := c.mergeInto(node); survivor != nil {
			return survivor, nil
		}
	}

	i = c.clampInsert(i)
	root := c.owner.root()
	idx := root.entityIndex()
	c.items = slices.Insert(c.items, i, node)
	c.attach(node)
	c.rebuildKeys()
	root.admit(idx, node)
	return node, nil
}

func (c *Container) clampInsert(i int) int {
	if i < 0 {
		i += len(c.items)
		if i < 0 {
			i = 0
		}
	}
	if i > len(c.items) {
		i = len(c.items)
	}
	return i
}

// checkAdoptable rejects nodes that are owned elsewhere or would create a cycle.
func (c *Container) checkAdoptable(n Node) error {
	if n.Parent() != nil {
		return fmt.Errorf("node already belongs to a group: %w", ErrInvalidArgument)
	}
	g, ok := n.(*Group)
	if !ok {
		return nil
	}
	if g.document {
		return fmt.Errorf("document root cannot be nested: %w", ErrInvalidArgument)
	}
	for p := c.owner; p != nil; p = p.parent {
		if p == g {
			return fmt.Errorf("group cannot contain itself: %w", ErrInvalidArgument)
		}
	}
	return nil
}

// Set replaces the i-th child. Duplicate and overlap checks only consider the
// other children. Merge is not accepted.
func (c *Container) Set(i int, n Node, opts ...InsertOption) (Node, error) {
	var o insertOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.merge {
		return nil, fmt.Errorf("set does not merge: %w", ErrInvalidArgument)
	}
	i, err := c.resolve(i)
	if err != nil {
		return nil, err
	}
	n = unwrap(n)
	if n == nil {
		return nil, fmt.Errorf("nil node: %w", ErrInvalidArgument)
	}
	if o.noCopy {
		if err := c.checkAdoptable(n); err != nil {
			return nil, err
		}
	}
	if id := n.ID(); id != "" {
		if j, dup := c.keyToIndex[id]; dup && j != i {
			return nil, fmt.Errorf("id %q: %w", id, ErrDuplicateID)
		}
	}
	node := n
	if !o.noCopy {
		cp, err := cloneNode(n)
		if err != nil {
			return nil, err
		}
		node = cp
	}

	old := c.items[i]
	c.detach(old)
	root := c.owner.root()
	idx := root.entityIndex()
	c.items[i] = node
	c.attach(node)
	c.rebuildKeys()
	root.admit(idx, node)
	return node, nil
}

// Remove detaches and returns the i-th child. Wires that point at removed
// entities are left in place and stop resolving.
func (c *Container) Remove(i int) (Node, error) {
	i, err := c.resolve(i)
	if err != nil {
		return nil, err
	}
	n := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	c.detach(n)
	c.rebuildKeys()
	return n, nil
}

func (c *Container) RemoveKey(id string) (Node, error) {
	i, ok := c.keyToIndex[id]
	if !ok {
		return nil, fmt.Errorf("id %q: %w", id, ErrNotFound)
	}
	return c.Remove(i)
}

// Pop removes and returns the last child.
func (c *Container) Pop() (Node, error) {
	if len(c.items) == 0 {
		return nil, fmt.Errorf("pop from empty group: %w", ErrNotFound)
	}
	return c.Remove(len(c.items) - 1)
}

// Delete removes the children in [start, end). Bounds follow slice
// expression rules after negative values are counted from the end, and are
// clamped to the list.
func (c *Container) Delete(start, end int) {
	clamp := func(v int) int {
		if v < 0 {
			v += len(c.items)
		}
		return max(0, min(v, len(c.items)))
	}
	start, end = clamp(start), clamp(end)
	if start >= end {
		return
	}
	removed := slices.Clone(c.items[start:end])
	c.items = slices.Delete(c.items, start, end)
	for _, n := range removed {
		c.detach(n)
	}
	c.rebuildKeys()
}

func (c *Container) removeNode(n Node) {
	if i := c.indexOf(n); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
		c.detach(n)
		c.rebuildKeys()
	}
}

// RecursiveRemove removes e from wherever it sits below this container,
// severs every wire in the tree that ends at it, and removes the groups the
// removal left empty, up to but excluding this container's own group.
func (c *Container) RecursiveRemove(e *Entity) error {
	if e == nil || !c.Contains(e, true) {
		return fmt.Errorf("entity not in group: %w", ErrInvalidArgument)
	}
	root := c.owner.root()
	for _, leaf := range root.Flatten() {
		leaf.rewriteAssociations(func(a Association) (Association, bool) {
			return a, !a.Refers(e)
		})
	}
	if root.onSever != nil {
		root.onSever(e)
	}

	parent := e.parent
	parent.entities.removeNode(e)
	for g := parent; g != c.owner && g.parent != nil && g.entities.Len() == 0; {
		up := g.parent
		up.entities.removeNode(g)
		g = up
	}
	return nil
}

func (c *Container) rekey(n Node, id string) error {
	b := n.base()
	if b.id == id {
		return nil
	}
	if id != "" {
		if _, dup := c.keyToIndex[id]; dup {
			return fmt.Errorf("id %q: %w", id, ErrDuplicateID)
		}
	}
	b.id = id
	c.rebuildKeys()
	return nil
}

func (c *Container) rebuildKeys() {
	clear(c.keyToIndex)
	clear(c.indexToKey)
	clear(c.handles)
	for i, n := range c.items {
		b := n.base()
		c.handles[b.handle] = i
		if b.id == "" {
			continue
		}
		c.keyToIndex[b.id] = i
		c.indexToKey[i] = b.id
	}
}

// attach makes n a child of the owner and issues its handle.
func (c *Container) attach(n Node) {
	b := n.base()
	b.parent = c.owner
	b.handle = c.pool.Create()
	if g, ok := n.(*Group); ok {
		g.index = nil
		g.bus = nil
	}
}

// detach unregisters n from the root index and releases its handle. A
// detached group becomes the root of its own tree. Every entity leaving the
// tree is restamped, so wires into n from the rest of the tree go stale while
// wires between n's own entities follow the new stamp.
func (c *Container) detach(n Node) {
	leaves := leavesOf(n)
	if root := c.owner.root(); root.index != nil {
		for _, e := range leaves {
			root.index.Remove(e)
		}
	}
	b := n.base()
	c.pool.Destroy(b.handle)
	b.handle = 0
	b.parent = nil

	inside := make(map[*Entity]bool, len(leaves))
	for _, e := range leaves {
		inside[e] = true
		e.gen++
	}
	if _, ok := n.(*Group); !ok {
		return
	}
	restamp := func(a Association) (Association, bool) {
		if t := a.ref.Value(); t != nil && inside[t] && t.gen == a.gen+1 {
			return mustAssociate(t), true
		}
		return a, true
	}
	for _, e := range leaves {
		e.rewriteAssociations(restamp)
	}
}

// unwrap maps a *Document to its root group.
func unwrap(n Node) Node {
	if n == nil {
		return nil
	}
	switch t := n.(type) {
	case *Document:
		if t == nil {
			return nil
		}
		return t.Group
	case *Group:
		if t == nil {
			return nil
		}
	case *Entity:
		if t == nil {
			return nil
		}
	}
	return n
}
