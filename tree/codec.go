package tree

import (
	"github.com/bsm/binser"
	"github.com/pkg/errors"
)

// EncodeTo writes n and all its descendants to w. Pending content is
// materialized on the way. It implements binser.Encodable.
func (n Node) EncodeTo(w *binser.Writer) error {
	data, err := n.Content()
	if err != nil {
		return err
	}

	if err := w.WriteString(n.Name()); err != nil {
		return err
	}
	if err := w.WriteByteSequence(data); err != nil {
		return err
	}

	children := n.Children()
	fns := make([]func(*binser.Writer) error, len(children))
	for i, child := range children {
		fns[i] = child.EncodeTo
	}
	return w.WriteSectors(fns...)
}

// ReadNode decodes a node with all its descendants from r into t and
// returns the (parentless) root. On failure t is left as it was.
func (t *Tree) ReadNode(r *binser.Reader) (Node, error) {
	mark := t.Len()
	node, err := t.readNode(r)
	if err != nil {
		t.truncate(mark)
	}
	return node, err
}

func (t *Tree) readNode(r *binser.Reader) (Node, error) {
	name, err := r.ReadString()
	if err != nil {
		return Node{}, err
	}
	data, err := r.ReadByteSequence()
	if err != nil {
		return Node{}, err
	}
	sectors, err := r.ReadSectors()
	if err != nil {
		return Node{}, err
	}
	return t.build(name, data, sectors)
}

// TryReadNode is the tolerant variant of ReadNode. It reports ok=false if r
// ends before the node is complete. Child sectors are complete by
// construction, so a truncated child is an error.
func (t *Tree) TryReadNode(r *binser.Reader) (Node, bool, error) {
	mark := t.Len()
	node, ok, err := t.tryReadNode(r)
	if !ok {
		t.truncate(mark)
	}
	return node, ok, err
}

func (t *Tree) tryReadNode(r *binser.Reader) (Node, bool, error) {
	name, ok, err := r.TryReadString()
	if !ok {
		return Node{}, false, err
	}
	data, ok, err := r.TryReadByteSequence()
	if !ok {
		return Node{}, false, err
	}
	sectors, ok, err := r.TryReadSectors()
	if !ok {
		return Node{}, false, err
	}

	node, err := t.build(name, data, sectors)
	if err != nil {
		return Node{}, false, err
	}
	return node, true, nil
}

func (t *Tree) build(name string, data []byte, sectors []*binser.Reader) (Node, error) {
	children := make([]Node, 0, len(sectors))
	for _, sector := range sectors {
		child, err := t.readChild(sector)
		if err != nil {
			return Node{}, err
		}
		children = append(children, child)
	}
	return t.NewNodeContent(name, append([]byte{}, data...), children...)
}

func (t *Tree) readChild(sector *binser.Reader) (Node, error) {
	child, err := t.ReadNode(sector)
	if errors.Is(err, binser.ErrInsufficientData) {
		return Node{}, errors.Wrap(binser.ErrMalformed, "truncated child sector")
	} else if err != nil {
		return Node{}, err
	}

	rest, err := sector.ReadToEnd()
	if err != nil {
		return Node{}, err
	} else if len(rest) != 0 {
		return Node{}, errors.Wrapf(binser.ErrMalformed, "%d trailing bytes in child sector", len(rest))
	}
	return child, nil
}

// Marshal encodes n and its descendants.
func Marshal(n Node) ([]byte, error) {
	w := binser.NewBufferWriter(nil)
	if err := n.EncodeTo(w.Writer); err != nil {
		return nil, err
	}
	return w.Finalize(), nil
}

// Unmarshal decodes a node into a new tree. Trailing bytes are rejected.
func Unmarshal(p []byte) (Node, error) {
	r := binser.NewBytesReader(p, nil)

	node, err := New().ReadNode(r)
	if err != nil {
		return Node{}, err
	}

	rest, err := r.ReadToEnd()
	if err != nil {
		return Node{}, err
	} else if len(rest) != 0 {
		return Node{}, errors.Wrapf(binser.ErrMalformed, "%d trailing bytes", len(rest))
	}
	return node, nil
}
