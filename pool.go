package binser

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb/util"
)

// BufferPool leases reusable byte slices. A slice returned by Get is owned
// by the caller until it is handed back through Put and must not be touched
// afterwards. Putting the same slice twice is a caller error.
type BufferPool interface {
	// Get returns a slice of length n.
	Get(n int) []byte
	// Put returns a slice to the pool.
	Put(p []byte)
}

// DefaultPool is the pool used when no other pool is configured.
var DefaultPool = NewSyncPool()

// NewSyncPool returns a pool backed by a sync.Pool. It is safe for
// concurrent use.
func NewSyncPool() BufferPool {
	return new(syncPool)
}

// NewTieredPool returns a pool which keeps separate size classes around
// the given baseline size. It is safe for concurrent use.
func NewTieredPool(baseline int) BufferPool {
	return util.NewBufferPool(baseline)
}

type syncPool struct{ p sync.Pool }

func (s *syncPool) Get(sz int) []byte {
	if v := s.p.Get(); v != nil {
		if p := *(v.(*[]byte)); sz <= cap(p) {
			return p[:sz]
		}
	}
	return make([]byte, sz)
}

func (s *syncPool) Put(p []byte) {
	if cap(p) != 0 {
		s.p.Put(&p)
	}
}

// --------------------------------------------------------------------

// PooledBuffer is an append-only buffer backed by slices leased from a
// BufferPool. Growing leases a larger slice and returns the old one. The
// current lease is returned by Release, after which the buffer fails with
// ErrDisposed.
type PooledBuffer struct {
	pool BufferPool
	buf  []byte // leased slice, nil once released
	n    int    // bytes written
}

// NewPooledBuffer leases an initial slice of at least size bytes from pool.
// A nil pool selects DefaultPool.
func NewPooledBuffer(pool BufferPool, size int) *PooledBuffer {
	if pool == nil {
		pool = DefaultPool
	}
	if size < 1 {
		size = defaultInitialSize
	}
	return &PooledBuffer{pool: pool, buf: pool.Get(size)}
}

// Len returns the number of bytes written.
func (b *PooledBuffer) Len() int { return b.n }

// Bytes returns the written bytes. The slice aliases leased memory and must
// not be used after Release. Once released it returns nil; Write reports
// ErrDisposed.
func (b *PooledBuffer) Bytes() []byte {
	if b.buf == nil {
		return nil
	}
	return b.buf[:b.n:b.n]
}

// Write implements io.Writer.
func (b *PooledBuffer) Write(p []byte) (int, error) {
	if b.buf == nil {
		return 0, ErrDisposed
	}

	if b.n+len(p) > len(b.buf) {
		next := b.pool.Get(2*len(b.buf) + len(p))
		copy(next, b.buf[:b.n])
		b.pool.Put(b.buf)
		b.buf = next
	}

	copy(b.buf[b.n:], p)
	b.n += len(p)
	return len(p), nil
}

// Release returns the leased slice to the pool. Subsequent calls are no-ops.
func (b *PooledBuffer) Release() {
	if b.buf != nil {
		b.pool.Put(b.buf)
		b.buf = nil
	}
}

// detach transfers ownership of the lease to the caller.
func (b *PooledBuffer) detach() ([]byte, BufferPool) {
	p := b.buf
	b.buf = nil
	if p == nil {
		return nil, b.pool
	}
	return p[:b.n], b.pool
}
