package grid

import (
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeUnknownGrid = "grid-unknown"
	ErrTypeDuplicate   = "grid-duplicate"
	ErrTypeCycle       = "grid-cycle"
	ErrTypeHasChildren = "grid-has-children"
	ErrTypeRoot        = "grid-root"
)

type node struct {
	grid     Grid
	parent   ID
	children []ID
	origin   LocalOrigin
}

// Tree is the hierarchy of grids. Nodes are stored in an arena and refer to
// each other by ID. There is exactly one root, the only node without parent.
type Tree struct {
	mutex sync.RWMutex
	root  ID
	nodes map[ID]*node
}

func NewTree(root ID, g Grid) *Tree {
	return &Tree{
		root: root,
		nodes: map[ID]*node{
			root: {grid: g, origin: newLocalOrigin()},
		},
	}
}

func (t *Tree) Root() ID {
	return t.root
}

func (t *Tree) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return len(t.nodes)
}

func (t *Tree) Contains(id ID) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	_, ok := t.nodes[id]
	return ok
}

func (t *Tree) Get(id ID) (Grid, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return Grid{}, false
	}
	return n.grid, true
}

// Parent returns the parent of a grid. It returns false for the root and
// unknown grids.
func (t *Tree) Parent(id ID) (ID, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	n, ok := t.nodes[id]
	if !ok || id == t.root {
		return 0, false
	}
	return n.parent, true
}

// Children returns the children of a grid in insertion order.
func (t *Tree) Children(id ID) []ID {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return append([]ID(nil), n.children...)
}

// Siblings returns the other children of the grid parent.
func (t *Tree) Siblings(id ID) []ID {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	n, ok := t.nodes[id]
	if !ok || id == t.root {
		return nil
	}

	parent := t.nodes[n.parent]
	siblings := make([]ID, 0, len(parent.children))
	for _, c := range parent.children {
		if c != id {
			siblings = append(siblings, c)
		}
	}
	return siblings
}

// Depth returns the number of edges between the grid and the root.
func (t *Tree) Depth(id ID) (int, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if _, ok := t.nodes[id]; !ok {
		return 0, false
	}

	depth := 0
	for id != t.root {
		id = t.nodes[id].parent
		depth++
	}
	return depth, true
}

// Insert adds a grid as the last child of parent.
func (t *Tree) Insert(id, parent ID, g Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.nodes[id]; ok {
		return errors.New("grid is already in the tree").
			WithType(ErrTypeDuplicate).
			WithTag("grid_id", id)
	}

	p, ok := t.nodes[parent]
	if !ok {
		return errors.New("parent grid not found").
			WithType(ErrTypeUnknownGrid).
			WithTag("grid_id", id).
			WithTag("parent_id", parent)
	}

	t.nodes[id] = &node{grid: g, parent: parent, origin: newLocalOrigin()}
	p.children = append(p.children, id)
	return nil
}

// Attach moves a grid and its descendants under another parent. Attaching a
// grid under itself or one of its descendants is rejected, as is moving the
// root. A rejected edit leaves the tree unchanged.
func (t *Tree) Attach(id, parent ID) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return errors.New("grid not found").
			WithType(ErrTypeUnknownGrid).
			WithTag("grid_id", id)
	}

	if id == t.root {
		return errors.New("root grid cannot be attached").
			WithType(ErrTypeRoot).
			WithTag("grid_id", id)
	}

	p, ok := t.nodes[parent]
	if !ok {
		return errors.New("parent grid not found").
			WithType(ErrTypeUnknownGrid).
			WithTag("grid_id", id).
			WithTag("parent_id", parent)
	}

	for a := parent; ; a = t.nodes[a].parent {
		if a == id {
			return errors.New("attaching grid would create a cycle").
				WithType(ErrTypeCycle).
				WithTag("grid_id", id).
				WithTag("parent_id", parent)
		}
		if a == t.root {
			break
		}
	}

	if n.parent == parent {
		return nil
	}

	old := t.nodes[n.parent]
	old.children = removeID(old.children, id)
	n.parent = parent
	p.children = append(p.children, id)
	return nil
}

// Detach removes a grid without children from the tree.
func (t *Tree) Detach(id ID) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return errors.New("grid not found").
			WithType(ErrTypeUnknownGrid).
			WithTag("grid_id", id)
	}

	if id == t.root {
		return errors.New("root grid cannot be detached").
			WithType(ErrTypeRoot).
			WithTag("grid_id", id)
	}

	if len(n.children) != 0 {
		return errors.New("grid has children").
			WithType(ErrTypeHasChildren).
			WithTag("grid_id", id).
			WithTag("children", len(n.children))
	}

	p := t.nodes[n.parent]
	p.children = removeID(p.children, id)
	delete(t.nodes, id)
	return nil
}

// SetGrid replaces the properties of a grid.
func (t *Tree) SetGrid(id ID, g Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return errors.New("grid not found").
			WithType(ErrTypeUnknownGrid).
			WithTag("grid_id", id)
	}
	n.grid = g
	return nil
}

// IsAncestor reports whether a is a strict ancestor of id.
func (t *Tree) IsAncestor(a, id ID) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if _, ok := t.nodes[id]; !ok {
		return false
	}

	for id != t.root {
		id = t.nodes[id].parent
		if id == a {
			return true
		}
	}
	return false
}

// Walk visits the grids breadth first from the root. Parents are always
// visited before their children.
func (t *Tree) Walk(fn func(id ID, g Grid)) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	queue := []ID{t.root}
	for len(queue) != 0 {
		id := queue[0]
		queue = queue[1:]

		n := t.nodes[id]
		fn(id, n.grid)
		queue = append(queue, n.children...)
	}
}

func (t *Tree) LocalOrigin(id ID) (LocalOrigin, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return LocalOrigin{}, false
	}
	return n.origin, true
}

// SetLocalOrigin stores the floating origin as seen from a grid. The
// unchanged flag of the stored value is computed against the previous one.
func (t *Tree) SetLocalOrigin(id ID, lo LocalOrigin) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return
	}

	lo.unchanged = lo.Equal(n.origin)
	n.origin = lo
}

func removeID(ids []ID, id ID) []ID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
