package tree

import (
	"iter"

	"github.com/bsm/binser"
	"github.com/pkg/errors"
)

// Node is a handle to a node within a Tree. Handles are comparable, two
// handles are equal if they refer to the same node. The zero value refers to
// no node.
type Node struct {
	t  *Tree
	id int
}

func (n Node) entry() *entry { return &n.t.nodes[n.id] }

func (n Node) handle(id int) (Node, bool) {
	if id == none {
		return Node{}, false
	}
	return Node{t: n.t, id: id}, true
}

// IsZero returns true if n refers to no node.
func (n Node) IsZero() bool { return n.t == nil }

// Tree returns the tree the node belongs to.
func (n Node) Tree() *Tree { return n.t }

// Name returns the node name.
func (n Node) Name() string { return n.entry().name }

// Parent returns the parent node, if any.
func (n Node) Parent() (Node, bool) { return n.handle(n.entry().parent) }

// NextSibling returns the node following n in its parent's children.
func (n Node) NextSibling() (Node, bool) { return n.handle(n.entry().next) }

// PreviousSibling returns the node preceding n in its parent's children.
func (n Node) PreviousSibling() (Node, bool) { return n.handle(n.entry().prev) }

// NumChildren returns the number of children.
func (n Node) NumChildren() int { return len(n.entry().children) }

// Children returns the children in order.
func (n Node) Children() []Node {
	ids := n.entry().children
	nodes := make([]Node, len(ids))
	for i, id := range ids {
		nodes[i] = Node{t: n.t, id: id}
	}
	return nodes
}

// ChildAt returns the i-th child or ErrNotFound.
func (n Node) ChildAt(i int) (Node, error) {
	ids := n.entry().children
	if i < 0 || i >= len(ids) {
		return Node{}, errors.Wrapf(ErrNotFound, "no child at %d", i)
	}
	return Node{t: n.t, id: ids[i]}, nil
}

// Child returns the first child with the given name or ErrNotFound.
func (n Node) Child(name string) (Node, error) {
	child, ok := n.LookupChild(name)
	if !ok {
		return Node{}, errors.Wrapf(ErrNotFound, "no child named %q", name)
	}
	return child, nil
}

// LookupChild returns the first child with the given name.
func (n Node) LookupChild(name string) (Node, bool) {
	for _, id := range n.entry().children {
		if n.t.nodes[id].name == name {
			return Node{t: n.t, id: id}, true
		}
	}
	return Node{}, false
}

// AddChild appends child to the children of n. The child must belong to the
// same tree, must not have a parent and must not be an ancestor of n.
func (n Node) AddChild(child Node) error {
	return n.t.insert(n.id, n.NumChildren(), child)
}

// RemoveChild detaches child from n. It returns false if child is not a
// child of n.
func (n Node) RemoveChild(child Node) bool {
	if child.t != n.t || child.entry().parent != n.id {
		return false
	}

	e := n.entry()
	for i, id := range e.children {
		if id == child.id {
			e.children = append(e.children[:i], e.children[i+1:]...)
			break
		}
	}

	c := child.entry()
	c.parent, c.prev, c.next = none, none, none
	n.t.relink(n.id)
	return true
}

// Detach removes n from its parent. It returns false if n has no parent.
func (n Node) Detach() bool {
	parent, ok := n.Parent()
	if !ok {
		return false
	}
	return parent.RemoveChild(n)
}

// AddSiblingBefore inserts sibling directly before n in its parent's
// children.
func (n Node) AddSiblingBefore(sibling Node) error {
	parent, pos, err := n.position()
	if err != nil {
		return err
	}
	return n.t.insert(parent, pos, sibling)
}

// AddSiblingAfter inserts sibling directly after n in its parent's children.
func (n Node) AddSiblingAfter(sibling Node) error {
	parent, pos, err := n.position()
	if err != nil {
		return err
	}
	return n.t.insert(parent, pos+1, sibling)
}

func (n Node) position() (int, int, error) {
	parent := n.entry().parent
	if parent == none {
		return none, 0, ErrNoParent
	}

	for i, id := range n.t.nodes[parent].children {
		if id == n.id {
			return parent, i, nil
		}
	}
	panic("tree: broken parent link")
}

// Descendants returns all nodes below n, depth-first in pre-order. The tree
// must not be modified while iterating.
func (n Node) Descendants() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		n.walk(yield)
	}
}

func (n Node) walk(yield func(Node) bool) bool {
	for _, id := range n.entry().children {
		child := Node{t: n.t, id: id}
		if !yield(child) || !child.walk(yield) {
			return false
		}
	}
	return true
}

// Content returns the node content. A pending producer runs on first
// access, its result (or error) is kept.
func (n Node) Content() ([]byte, error) {
	return n.t.materialize(n.id)
}

// ContentPending returns true if the content producer has not run yet.
func (n Node) ContentPending() bool {
	return n.entry().content.produce != nil
}

// ContentReader returns a reader over the node content.
func (n Node) ContentReader() (*binser.Reader, error) {
	p, err := n.Content()
	if err != nil {
		return nil, err
	}
	return binser.NewBytesReader(p, nil), nil
}

// SetContent replaces the node content.
func (n Node) SetContent(p []byte) {
	n.entry().content = content{data: p}
}

// SetContentFunc replaces the node content with a pending producer.
func (n Node) SetContentFunc(fn func(*binser.Writer) error) {
	n.entry().content = content{produce: fn}
}

// ContentWriter returns a writer which replaces the node content with
// everything written to it once it is closed.
func (n Node) ContentWriter() *binser.Writer {
	return binser.NewWriter(&contentSink{node: n, buf: binser.NewBuffer(0)}, &binser.WriterOptions{OwnStream: true})
}

type contentSink struct {
	node Node
	buf  *binser.Buffer
}

func (s *contentSink) Write(p []byte) (int, error) { return s.buf.Write(p) }

func (s *contentSink) Close() error {
	s.node.SetContent(s.buf.Bytes())
	return nil
}
