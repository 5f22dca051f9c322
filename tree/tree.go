// Package tree implements hierarchical binary documents: named nodes with an
// opaque content blob and an ordered list of children.
//
// Nodes live in a Tree arena and are addressed by Node handles. Parent and
// sibling links are plain indices into the arena, only the children lists
// express ownership.
//
// Wire format (pre-order, recursive):
//
//	+-------------+----------------+---------------------------------------+
//	| name (blob) | content (blob) | children (sector block, one per node) |
//	+-------------+----------------+---------------------------------------+
package tree

import (
	"errors"

	"github.com/bsm/binser"
)

var (
	// ErrAlreadyParented is returned when attaching a node which already has
	// a parent. Detach it first.
	ErrAlreadyParented = errors.New("tree: node already has a parent")

	// ErrNotFound is returned by strict child lookups.
	ErrNotFound = errors.New("tree: node not found")

	// ErrNoParent is returned when adding a sibling to a node without parent.
	ErrNoParent = errors.New("tree: node has no parent")

	// ErrCycle is returned when a node would become its own ancestor.
	ErrCycle = errors.New("tree: node would become its own ancestor")

	// ErrForeignNode is returned when linking nodes of different trees.
	ErrForeignNode = errors.New("tree: node belongs to a different tree")
)

const none = -1

type entry struct {
	name    string
	content content

	parent     int
	prev, next int
	children   []int
}

// content is either pending (produce set) or materialized.
type content struct {
	data    []byte
	produce func(*binser.Writer) error
	err     error
}

// Tree is an arena of nodes. The zero value is ready to use.
//
// Tree is not safe for concurrent use.
type Tree struct {
	nodes []entry
}

// New returns an empty tree.
func New() *Tree { return new(Tree) }

// Len returns the number of nodes allocated in the tree, attached or not.
func (t *Tree) Len() int { return len(t.nodes) }

// NewNode creates a node with empty content. The children must belong to t
// and must not have a parent yet.
func (t *Tree) NewNode(name string, children ...Node) (Node, error) {
	return t.newNode(name, content{}, children)
}

// NewNodeContent creates a node with the given content.
func (t *Tree) NewNodeContent(name string, data []byte, children ...Node) (Node, error) {
	return t.newNode(name, content{data: data}, children)
}

// NewNodeFunc creates a node whose content is produced by fn. fn runs once,
// the first time the content is read or the node is encoded.
func (t *Tree) NewNodeFunc(name string, fn func(*binser.Writer) error, children ...Node) (Node, error) {
	return t.newNode(name, content{produce: fn}, children)
}

// NewNodeEncodable creates a node whose content is the lazily encoded v.
func (t *Tree) NewNodeEncodable(name string, v binser.Encodable, children ...Node) (Node, error) {
	return t.NewNodeFunc(name, v.EncodeTo, children...)
}

func (t *Tree) newNode(name string, c content, children []Node) (Node, error) {
	seen := make(map[int]struct{}, len(children))
	for _, child := range children {
		if err := t.checkOrphan(child); err != nil {
			return Node{}, err
		}
		if _, ok := seen[child.id]; ok {
			return Node{}, ErrAlreadyParented
		}
		seen[child.id] = struct{}{}
	}

	id := len(t.nodes)
	t.nodes = append(t.nodes, entry{
		name:    name,
		content: c,
		parent:  none,
		prev:    none,
		next:    none,
	})

	if len(children) != 0 {
		ids := make([]int, len(children))
		for i, child := range children {
			ids[i] = child.id
			t.nodes[child.id].parent = id
		}
		t.nodes[id].children = ids
		t.relink(id)
	}
	return Node{t: t, id: id}, nil
}

// checkOrphan verifies that n can be attached to a node of t.
func (t *Tree) checkOrphan(n Node) error {
	if n.t != t {
		return ErrForeignNode
	}
	if t.nodes[n.id].parent != none {
		return ErrAlreadyParented
	}
	return nil
}

// truncate drops all nodes allocated since the arena had n entries. Those
// nodes must not be linked to older ones.
func (t *Tree) truncate(n int) {
	clear(t.nodes[n:])
	t.nodes = t.nodes[:n]
}

// relink recomputes the sibling links of all children of id.
func (t *Tree) relink(id int) {
	children := t.nodes[id].children
	for i, cid := range children {
		c := &t.nodes[cid]
		c.prev, c.next = none, none
		if i > 0 {
			c.prev = children[i-1]
		}
		if i+1 < len(children) {
			c.next = children[i+1]
		}
	}
}

// insert attaches child to parent at position pos.
func (t *Tree) insert(parent, pos int, child Node) error {
	if err := t.checkOrphan(child); err != nil {
		return err
	}
	for id := parent; id != none; id = t.nodes[id].parent {
		if id == child.id {
			return ErrCycle
		}
	}

	p := &t.nodes[parent]
	p.children = append(p.children, none)
	copy(p.children[pos+1:], p.children[pos:])
	p.children[pos] = child.id

	t.nodes[child.id].parent = parent
	t.relink(parent)
	return nil
}

// materialize runs a pending content producer, at most once.
func (t *Tree) materialize(id int) ([]byte, error) {
	if fn := t.nodes[id].content.produce; fn != nil {
		t.nodes[id].content.produce = nil

		w := binser.NewBufferWriter(nil)
		err := fn(w.Writer)

		// fn may have grown the arena, so index again
		c := &t.nodes[id].content
		if err != nil {
			c.err = err
		} else {
			c.data = w.Finalize()
		}
	}

	c := t.nodes[id].content
	return c.data, c.err
}
