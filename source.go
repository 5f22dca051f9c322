package binser

import (
	"io"

	"github.com/pkg/errors"
)

// source is the backing store of a Reader.
type source interface {
	// next returns exactly n bytes and advances, or errShort without
	// advancing if fewer remain.
	next(n int) ([]byte, error)
	// read copies up to len(p) bytes into p.
	read(p []byte) (int, error)
	// rest drains everything up to the logical end.
	rest() ([]byte, error)
	// reset rewinds to the position recorded at construction.
	reset() error
	close() error
}

// bytesSource reads from an in-memory slice.
type bytesSource struct {
	p   []byte
	pos int

	pool BufferPool // owner of p, if leased
}

func (s *bytesSource) next(n int) ([]byte, error) {
	if len(s.p)-s.pos < n {
		return nil, errShort
	}

	v := s.p[s.pos : s.pos+n : s.pos+n]
	s.pos += n

	if s.pool != nil {
		return append([]byte(nil), v...), nil
	}
	return v, nil
}

func (s *bytesSource) read(p []byte) (int, error) {
	if s.pos >= len(s.p) {
		return 0, io.EOF
	}

	n := copy(p, s.p[s.pos:])
	s.pos += n
	return n, nil
}

func (s *bytesSource) rest() ([]byte, error) {
	v := s.p[s.pos:]
	s.pos = len(s.p)

	if s.pool != nil {
		return append([]byte{}, v...), nil
	}
	return v, nil
}

func (s *bytesSource) reset() error {
	s.pos = 0
	return nil
}

func (s *bytesSource) close() error {
	if s.pool != nil && s.p != nil {
		s.pool.Put(s.p)
	}
	s.p = nil
	s.pos = 0
	return nil
}

// --------------------------------------------------------------------

// streamSource reads from an io.Reader. Bytes pulled from the stream but not
// yet consumed are kept in buf[lo:hi], so a failed tolerant read does not
// lose them.
type streamSource struct {
	r     io.Reader
	chunk int

	buf    []byte
	lo, hi int

	rewind func() error // nil if the stream cannot be reset
	closer io.Closer    // nil if the stream is not owned
}

func newStreamSource(r io.Reader, o *ReaderOptions) *streamSource {
	s := &streamSource{r: r, chunk: o.ChunkSize}

	if sk, ok := r.(io.Seeker); ok {
		if origin, err := sk.Seek(0, io.SeekCurrent); err == nil {
			s.rewind = func() error {
				_, err := sk.Seek(origin, io.SeekStart)
				return err
			}
		}
	}
	if c, ok := r.(io.Closer); ok && o.OwnStream {
		s.closer = c
	}
	return s
}

func (s *streamSource) buffered() int { return s.hi - s.lo }

// fill pulls from the stream until n bytes are buffered or the stream ends.
// The buffer grows with the data that actually arrives, never with n alone.
func (s *streamSource) fill(n int) error {
	for s.buffered() < n {
		want := min(n-s.buffered(), max(s.chunk, len(s.buf)))
		if want < s.chunk {
			want = s.chunk
		}
		s.reserve(want)

		m, err := s.r.Read(s.buf[s.hi : s.hi+want])
		s.hi += m

		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
	return nil
}

// reserve makes room for want more bytes behind hi.
func (s *streamSource) reserve(want int) {
	if s.hi+want <= len(s.buf) {
		return
	}

	live := s.buffered()
	if live+want > len(s.buf) {
		buf := make([]byte, 2*len(s.buf)+want)
		copy(buf, s.buf[s.lo:s.hi])
		s.buf = buf
	} else {
		copy(s.buf, s.buf[s.lo:s.hi])
	}
	s.lo, s.hi = 0, live
}

func (s *streamSource) next(n int) ([]byte, error) {
	if err := s.fill(n); err != nil {
		return nil, err
	}
	if s.buffered() < n {
		return nil, errShort
	}

	v := make([]byte, n)
	copy(v, s.buf[s.lo:])
	s.lo += n
	return v, nil
}

func (s *streamSource) read(p []byte) (int, error) {
	if s.buffered() != 0 {
		n := copy(p, s.buf[s.lo:s.hi])
		s.lo += n
		return n, nil
	}
	return s.r.Read(p)
}

func (s *streamSource) rest() ([]byte, error) {
	acc := NewBuffer(s.buffered() + s.chunk)
	acc.Append(s.buf[s.lo:s.hi])
	s.lo, s.hi = 0, 0

	if _, err := io.CopyBuffer(acc, onlyReader{s.r}, make([]byte, s.chunk)); err != nil {
		return nil, err
	}
	return acc.Bytes(), nil
}

func (s *streamSource) reset() error {
	if s.rewind == nil {
		return errors.Wrap(ErrUnsupported, "stream is not seekable")
	}
	if err := s.rewind(); err != nil {
		return err
	}

	s.lo, s.hi = 0, 0
	return nil
}

func (s *streamSource) close() error {
	s.lo, s.hi = 0, 0
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// onlyReader hides io.WriterTo so that io.CopyBuffer honours the chunk size.
type onlyReader struct{ io.Reader }
