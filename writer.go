package binser

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
)

// Writer instances encode values onto a backing store. Every typed helper
// is lowered to Write, the single raw write path, so closed writers reject
// all operations alike.
//
// Writer is not safe for concurrent use.
type Writer struct {
	w io.Writer
	o *WriterOptions

	closer func() error // invoked once by Close, may be nil
	closed bool
	tmp    [8]byte // scratch buffer
}

// NewWriter wraps a stream and returns a Writer. The stream is only closed
// by Close if WriterOptions.OwnStream is set.
func NewWriter(w io.Writer, o *WriterOptions) *Writer {
	o = o.norm()

	var closer func() error
	if c, ok := w.(io.Closer); ok && o.OwnStream {
		closer = c.Close
	}
	return newWriter(w, o, closer)
}

func newWriter(w io.Writer, o *WriterOptions, closer func() error) *Writer {
	return &Writer{w: w, o: o, closer: closer}
}

// Write implements io.Writer. It is the only path through which bytes reach
// the backing store.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	return w.w.Write(p)
}

// Close closes the writer. Subsequent writes fail with ErrClosed, repeated
// calls to Close are no-ops.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.closer != nil {
		return w.closer()
	}
	return nil
}

// WriteBytes writes p verbatim, without a length prefix.
func (w *Writer) WriteBytes(p []byte) error {
	_, err := w.Write(p)
	return err
}

// WriteStream copies src into the writer in chunks of WriterOptions.ChunkSize
// until src is exhausted and returns the number of bytes copied.
func (w *Writer) WriteStream(src io.Reader) (int64, error) {
	if w.closed {
		return 0, ErrClosed
	}

	chunk := w.o.Pool.Get(w.o.ChunkSize)
	defer w.o.Pool.Put(chunk)

	var total int64
	for {
		n, err := src.Read(chunk)
		if n > 0 {
			if werr := w.WriteBytes(chunk[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		} else if err != nil {
			return total, err
		}
	}
}

// Stream returns a stream which writes through w. Closing the stream closes
// w only if closeParent is true, otherwise it just detaches the stream.
func (w *Writer) Stream(closeParent bool) io.WriteCloser {
	return &nestedWriter{w: w, closeParent: closeParent}
}

// Encode writes v.
func (w *Writer) Encode(v Encodable) error {
	if w.closed {
		return ErrClosed
	}
	return v.EncodeTo(w)
}

// WriteBool writes a boolean as a single byte.
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteUint8(1)
	}
	return w.WriteUint8(0)
}

// WriteInt8 writes a signed 8 bit integer.
func (w *Writer) WriteInt8(v int8) error { return w.WriteUint8(uint8(v)) }

// WriteUint8 writes an unsigned 8 bit integer.
func (w *Writer) WriteUint8(v uint8) error {
	w.tmp[0] = v
	return w.WriteBytes(w.tmp[:1])
}

// WriteInt16 writes a signed 16 bit integer.
func (w *Writer) WriteInt16(v int16) error { return w.WriteUint16(uint16(v)) }

// WriteUint16 writes an unsigned 16 bit integer.
func (w *Writer) WriteUint16(v uint16) error {
	binary.LittleEndian.PutUint16(w.tmp[:], v)
	return w.WriteBytes(w.tmp[:2])
}

// WriteInt32 writes a signed 32 bit integer.
func (w *Writer) WriteInt32(v int32) error { return w.WriteUint32(uint32(v)) }

// WriteUint32 writes an unsigned 32 bit integer.
func (w *Writer) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(w.tmp[:], v)
	return w.WriteBytes(w.tmp[:4])
}

// WriteInt64 writes a signed 64 bit integer.
func (w *Writer) WriteInt64(v int64) error { return w.WriteUint64(uint64(v)) }

// WriteUint64 writes an unsigned 64 bit integer.
func (w *Writer) WriteUint64(v uint64) error {
	binary.LittleEndian.PutUint64(w.tmp[:], v)
	return w.WriteBytes(w.tmp[:8])
}

// WriteFloat32 writes a 32 bit IEEE-754 float.
func (w *Writer) WriteFloat32(v float32) error { return w.WriteUint32(math.Float32bits(v)) }

// WriteFloat64 writes a 64 bit IEEE-754 float.
func (w *Writer) WriteFloat64(v float64) error { return w.WriteUint64(math.Float64bits(v)) }

// WriteByteSequence writes p as a length-prefixed blob.
func (w *Writer) WriteByteSequence(p []byte) error {
	if err := w.writeLen(len(p)); err != nil {
		return err
	}
	return w.WriteBytes(p)
}

// WriteString writes s as a length-prefixed blob using the configured
// text encoding.
func (w *Writer) WriteString(s string) error {
	return w.WriteStringEncoding(s, w.o.Encoding)
}

// WriteStringEncoding writes s as a length-prefixed blob using enc.
func (w *Writer) WriteStringEncoding(s string, enc encoding.Encoding) error {
	p, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return errors.Wrapf(err, "binser: cannot encode %q", s)
	}
	return w.WriteByteSequence(p)
}

// WriteInt16Sequence writes a count-prefixed sequence of int16 values.
func (w *Writer) WriteInt16Sequence(items []int16) error {
	return WriteSequence(w, items, (*Writer).WriteInt16)
}

// WriteInt32Sequence writes a count-prefixed sequence of int32 values.
func (w *Writer) WriteInt32Sequence(items []int32) error {
	return WriteSequence(w, items, (*Writer).WriteInt32)
}

// WriteInt64Sequence writes a count-prefixed sequence of int64 values.
func (w *Writer) WriteInt64Sequence(items []int64) error {
	return WriteSequence(w, items, (*Writer).WriteInt64)
}

func (w *Writer) writeLen(n int) error {
	if n > math.MaxInt32 {
		return errors.Errorf("binser: length %d exceeds int32 range", n)
	}
	return w.WriteInt32(int32(n))
}

// WriteSequence writes the number of items followed by each item, encoded
// by fn.
func WriteSequence[T any](w *Writer, items []T, fn func(*Writer, T) error) error {
	if err := w.writeLen(len(items)); err != nil {
		return err
	}
	for _, item := range items {
		if err := fn(w, item); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------

// BufferWriter is a Writer backed by a growable in-memory Buffer.
type BufferWriter struct {
	*Writer
	buf *Buffer
}

// NewBufferWriter returns a writer over a fresh Buffer.
func NewBufferWriter(o *WriterOptions) *BufferWriter {
	o = o.norm()
	buf := NewBuffer(o.InitialSize)
	return &BufferWriter{Writer: newWriter(buf, o, nil), buf: buf}
}

// Bytes returns the bytes written so far. The slice aliases the buffer.
func (w *BufferWriter) Bytes() []byte { return w.buf.Bytes() }

// Len returns the number of bytes written so far.
func (w *BufferWriter) Len() int { return w.buf.Len() }

// Finalize closes the writer and returns the written bytes.
func (w *BufferWriter) Finalize() []byte {
	_ = w.Close()
	return w.buf.Bytes()
}

// --------------------------------------------------------------------

// PoolWriter is a Writer backed by a PooledBuffer. Its lease must be given
// back with Release, or handed over to a Reader.
type PoolWriter struct {
	*Writer
	buf *PooledBuffer
}

// NewPoolWriter returns a writer over memory leased from WriterOptions.Pool.
func NewPoolWriter(o *WriterOptions) *PoolWriter {
	o = o.norm()
	buf := NewPooledBuffer(o.Pool, o.InitialSize)
	return &PoolWriter{Writer: newWriter(buf, o, nil), buf: buf}
}

// Len returns the number of bytes written so far.
func (w *PoolWriter) Len() int { return w.buf.Len() }

// Finalize closes the writer and returns the written bytes. The slice
// aliases leased memory and is invalid after Release.
func (w *PoolWriter) Finalize() ([]byte, error) {
	_ = w.Close()

	p := w.buf.Bytes()
	if p == nil {
		return nil, ErrDisposed
	}
	return p, nil
}

// Release closes the writer and returns the lease to the pool.
func (w *PoolWriter) Release() {
	_ = w.Close()
	w.buf.Release()
}

// Reader closes the writer and returns a Reader over the written bytes.
// The reader takes over the lease and returns it on Close.
func (w *PoolWriter) Reader(o *ReaderOptions) *Reader {
	_ = w.Close()

	p, pool := w.buf.detach()
	return NewPooledReader(p, pool, o)
}

// --------------------------------------------------------------------

type nestedWriter struct {
	w           *Writer
	closeParent bool
	closed      bool
}

func (s *nestedWriter) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return s.w.Write(p)
}

func (s *nestedWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.closeParent {
		return s.w.Close()
	}
	return nil
}
