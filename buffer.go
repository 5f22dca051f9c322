package binser

// headroom is the number of bytes kept free in front of the live region of
// a fresh buffer so that small prepends never relocate.
const headroom = 8

// Buffer is a contiguous byte buffer which can grow at both ends. Only the
// bytes in the live region, data[off:off+n], are considered written.
//
// Buffer is not safe for concurrent use.
type Buffer struct {
	data []byte // backing storage, len(data) is the capacity
	off  int    // index of the first live byte
	n    int    // number of live bytes
}

// NewBuffer returns an empty buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = defaultInitialSize
	}
	return &Buffer{data: make([]byte, capacity), off: frontRoom(capacity)}
}

func frontRoom(capacity int) int {
	if x := capacity / 2; x < headroom {
		return x
	}
	return headroom
}

// Len returns the number of live bytes.
func (b *Buffer) Len() int { return b.n }

// Cap returns the capacity of the backing storage.
func (b *Buffer) Cap() int { return len(b.data) }

// Bytes returns the live region. The slice aliases the buffer storage and is
// only valid until the next mutation.
func (b *Buffer) Bytes() []byte {
	end := b.off + b.n
	return b.data[b.off:end:end]
}

// Write implements io.Writer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Append(p)
	return len(p), nil
}

// Append appends p to the end of the live region.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	if b.off+b.n+len(p) > len(b.data) {
		b.growEnd(len(p))
	}
	copy(b.data[b.off+b.n:], p)
	b.n += len(p)
}

// Prepend inserts p in front of the live region.
func (b *Buffer) Prepend(p []byte) {
	if len(p) == 0 {
		return
	}
	if len(p) > b.off {
		b.growFront(len(p))
	}
	b.off -= len(p)
	copy(b.data[b.off:], p)
	b.n += len(p)
}

// Reset discards the live region but keeps the backing storage.
func (b *Buffer) Reset() {
	b.off = frontRoom(len(b.data))
	b.n = 0
}

// growEnd reallocates so at least sz more bytes fit behind the live region.
// The live region keeps its offset.
func (b *Buffer) growEnd(sz int) {
	size := 2*len(b.data) + sz
	if min := b.off + b.n + sz; size < min {
		size = min
	}

	data := make([]byte, size)
	copy(data[b.off:], b.data[b.off:b.off+b.n])
	b.data = data
}

// growFront reallocates so at least sz more bytes fit in front of the live
// region. The live region is re-centred, leaving equal room at both ends.
func (b *Buffer) growFront(sz int) {
	need := b.n + sz
	size := 2*len(b.data) + sz
	if size < 2*need {
		size = 2 * need
	}

	off := (size-need)/2 + sz
	data := make([]byte, size)
	copy(data[off:], b.data[b.off:b.off+b.n])
	b.data = data
	b.off = off
}
