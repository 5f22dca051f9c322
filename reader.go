package binser

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
)

// Reader instances decode values from a backing store in forward-only order.
//
// Strict methods fail with ErrInsufficientData when fewer bytes remain than
// needed. Their Try* counterparts report the same condition as ok=false and
// a nil error instead; all other failures, ErrNegativeLength in particular,
// are returned as errors by both.
//
// A failed fixed-size try read (TryReadBytes, TryReadInt32, ...) leaves the
// cursor where it was. Composite try reads are not atomic: when
// TryReadByteSequence, TryReadString, TryReadSectors or TryReadSequence
// report ok=false, the length prefix and any items decoded so far remain
// consumed.
//
// Reader is not safe for concurrent use.
type Reader struct {
	src    source
	o      *ReaderOptions
	closed bool
}

// NewReader wraps a stream and returns a Reader. If the stream is an
// io.Seeker, Reset rewinds to the stream position observed here. The stream
// is only closed by Close if ReaderOptions.OwnStream is set.
func NewReader(r io.Reader, o *ReaderOptions) *Reader {
	o = o.norm()
	return &Reader{src: newStreamSource(r, o), o: o}
}

// NewBytesReader returns a Reader over p. Returned byte slices alias p.
func NewBytesReader(p []byte, o *ReaderOptions) *Reader {
	return &Reader{src: &bytesSource{p: p}, o: o.norm()}
}

// NewPooledReader returns a Reader over p, which was leased from pool. The
// reader owns p from now on and returns it to pool on Close. Returned byte
// slices are copies.
func NewPooledReader(p []byte, pool BufferPool, o *ReaderOptions) *Reader {
	if pool == nil {
		pool = DefaultPool
	}
	return &Reader{src: &bytesSource{p: p, pool: pool}, o: o.norm()}
}

// Read implements io.Reader. It reads up to len(p) bytes and is the raw
// primitive nested streams and overlays are built on.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrDisposed
	}
	return r.src.read(p)
}

// Close closes the reader. Subsequent reads fail with ErrDisposed, repeated
// calls to Close are no-ops.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.src.close()
}

// Reset rewinds the reader to its initial position. Stream-backed readers
// need a seekable stream and fail with ErrUnsupported otherwise.
func (r *Reader) Reset() error {
	if r.closed {
		return ErrDisposed
	}
	return r.src.reset()
}

// ReadToEnd returns everything from the cursor up to the end of data. Once
// exhausted, it returns an empty result.
func (r *Reader) ReadToEnd() ([]byte, error) {
	if r.closed {
		return nil, ErrDisposed
	}
	return r.src.rest()
}

// Stream returns a stream which reads through r. Closing the stream closes
// r only if closeParent is true.
func (r *Reader) Stream(closeParent bool) io.ReadCloser {
	return &nestedReader{r: r, closeParent: closeParent}
}

// EncodeTo copies the remaining bytes to w. It implements Encodable.
func (r *Reader) EncodeTo(w *Writer) error {
	p, err := r.ReadToEnd()
	if err != nil {
		return err
	}
	return w.WriteBytes(p)
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	p, ok, err := r.next(n)
	if err != nil {
		return nil, err
	} else if !ok {
		return nil, errors.Wrapf(ErrInsufficientData, "reading %d bytes", n)
	}
	return p, nil
}

// TryReadBytes reads exactly n bytes or reports ok=false if fewer remain.
func (r *Reader) TryReadBytes(n int) ([]byte, bool, error) {
	return r.next(n)
}

func (r *Reader) next(n int) ([]byte, bool, error) {
	if n < 0 {
		return nil, false, errors.Wrapf(ErrNegativeLength, "reading %d bytes", n)
	}
	if r.closed {
		return nil, false, ErrDisposed
	}

	p, err := r.src.next(n)
	if err == errShort {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// ReadByte reads a single byte. It implements io.ByteReader.
// At the end of data it returns io.EOF.
func (r *Reader) ReadByte() (byte, error) {
	v, ok, err := r.TryReadUint8()
	if err != nil {
		return 0, err
	} else if !ok {
		return 0, io.EOF
	}
	return v, nil
}

// ReadBool reads a single byte boolean.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	return v != 0, err
}

// TryReadBool is the tolerant variant of ReadBool.
func (r *Reader) TryReadBool() (bool, bool, error) {
	v, ok, err := r.TryReadUint8()
	return v != 0, ok, err
}

// ReadInt8 reads a signed 8 bit integer.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

// TryReadInt8 is the tolerant variant of ReadInt8.
func (r *Reader) TryReadInt8() (int8, bool, error) {
	v, ok, err := r.TryReadUint8()
	return int8(v), ok, err
}

// ReadUint8 reads an unsigned 8 bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	p, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// TryReadUint8 is the tolerant variant of ReadUint8.
func (r *Reader) TryReadUint8() (uint8, bool, error) {
	p, ok, err := r.TryReadBytes(1)
	if !ok {
		return 0, false, err
	}
	return p[0], true, nil
}

// ReadInt16 reads a signed 16 bit integer.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// TryReadInt16 is the tolerant variant of ReadInt16.
func (r *Reader) TryReadInt16() (int16, bool, error) {
	v, ok, err := r.TryReadUint16()
	return int16(v), ok, err
}

// ReadUint16 reads an unsigned 16 bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	p, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

// TryReadUint16 is the tolerant variant of ReadUint16.
func (r *Reader) TryReadUint16() (uint16, bool, error) {
	p, ok, err := r.TryReadBytes(2)
	if !ok {
		return 0, false, err
	}
	return binary.LittleEndian.Uint16(p), true, nil
}

// ReadInt32 reads a signed 32 bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// TryReadInt32 is the tolerant variant of ReadInt32.
func (r *Reader) TryReadInt32() (int32, bool, error) {
	v, ok, err := r.TryReadUint32()
	return int32(v), ok, err
}

// ReadUint32 reads an unsigned 32 bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	p, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

// TryReadUint32 is the tolerant variant of ReadUint32.
func (r *Reader) TryReadUint32() (uint32, bool, error) {
	p, ok, err := r.TryReadBytes(4)
	if !ok {
		return 0, false, err
	}
	return binary.LittleEndian.Uint32(p), true, nil
}

// ReadInt64 reads a signed 64 bit integer.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// TryReadInt64 is the tolerant variant of ReadInt64.
func (r *Reader) TryReadInt64() (int64, bool, error) {
	v, ok, err := r.TryReadUint64()
	return int64(v), ok, err
}

// ReadUint64 reads an unsigned 64 bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	p, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

// TryReadUint64 is the tolerant variant of ReadUint64.
func (r *Reader) TryReadUint64() (uint64, bool, error) {
	p, ok, err := r.TryReadBytes(8)
	if !ok {
		return 0, false, err
	}
	return binary.LittleEndian.Uint64(p), true, nil
}

// ReadFloat32 reads a 32 bit IEEE-754 float.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// TryReadFloat32 is the tolerant variant of ReadFloat32.
func (r *Reader) TryReadFloat32() (float32, bool, error) {
	v, ok, err := r.TryReadUint32()
	return math.Float32frombits(v), ok, err
}

// ReadFloat64 reads a 64 bit IEEE-754 float.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// TryReadFloat64 is the tolerant variant of ReadFloat64.
func (r *Reader) TryReadFloat64() (float64, bool, error) {
	v, ok, err := r.TryReadUint64()
	return math.Float64frombits(v), ok, err
}

// ReadByteSequence reads a length-prefixed blob.
func (r *Reader) ReadByteSequence() ([]byte, error) {
	n, err := r.readCount()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(n)
}

// TryReadByteSequence is the tolerant variant of ReadByteSequence.
func (r *Reader) TryReadByteSequence() ([]byte, bool, error) {
	n, ok, err := r.tryReadCount()
	if !ok {
		return nil, false, err
	}
	return r.TryReadBytes(n)
}

// ReadString reads a length-prefixed string using the configured text
// encoding.
func (r *Reader) ReadString() (string, error) {
	return r.ReadStringEncoding(r.o.Encoding)
}

// TryReadString is the tolerant variant of ReadString.
func (r *Reader) TryReadString() (string, bool, error) {
	return r.TryReadStringEncoding(r.o.Encoding)
}

// ReadStringEncoding reads a length-prefixed string using enc.
func (r *Reader) ReadStringEncoding(enc encoding.Encoding) (string, error) {
	p, err := r.ReadByteSequence()
	if err != nil {
		return "", err
	}
	return decodeString(p, enc)
}

// TryReadStringEncoding is the tolerant variant of ReadStringEncoding.
func (r *Reader) TryReadStringEncoding(enc encoding.Encoding) (string, bool, error) {
	p, ok, err := r.TryReadByteSequence()
	if !ok {
		return "", false, err
	}

	s, err := decodeString(p, enc)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

func decodeString(p []byte, enc encoding.Encoding) (string, error) {
	s, err := enc.NewDecoder().Bytes(p)
	if err != nil {
		return "", errors.Wrap(err, "binser: cannot decode string")
	}
	return string(s), nil
}

// ReadInt16Sequence reads a count-prefixed sequence of int16 values.
func (r *Reader) ReadInt16Sequence() ([]int16, error) {
	return ReadSequence(r, (*Reader).ReadInt16)
}

// TryReadInt16Sequence is the tolerant variant of ReadInt16Sequence.
func (r *Reader) TryReadInt16Sequence() ([]int16, bool, error) {
	return TryReadSequence(r, (*Reader).TryReadInt16)
}

// ReadInt32Sequence reads a count-prefixed sequence of int32 values.
func (r *Reader) ReadInt32Sequence() ([]int32, error) {
	return ReadSequence(r, (*Reader).ReadInt32)
}

// TryReadInt32Sequence is the tolerant variant of ReadInt32Sequence.
func (r *Reader) TryReadInt32Sequence() ([]int32, bool, error) {
	return TryReadSequence(r, (*Reader).TryReadInt32)
}

// ReadInt64Sequence reads a count-prefixed sequence of int64 values.
func (r *Reader) ReadInt64Sequence() ([]int64, error) {
	return ReadSequence(r, (*Reader).ReadInt64)
}

// TryReadInt64Sequence is the tolerant variant of ReadInt64Sequence.
func (r *Reader) TryReadInt64Sequence() ([]int64, bool, error) {
	return TryReadSequence(r, (*Reader).TryReadInt64)
}

func (r *Reader) readCount() (int, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return 0, err
	} else if n < 0 {
		return 0, errors.Wrapf(ErrNegativeLength, "decoded %d", n)
	}
	return int(n), nil
}

func (r *Reader) tryReadCount() (int, bool, error) {
	n, ok, err := r.TryReadInt32()
	if !ok {
		return 0, false, err
	} else if n < 0 {
		return 0, false, errors.Wrapf(ErrNegativeLength, "decoded %d", n)
	}
	return int(n), true, nil
}

// ReadSequence reads a count followed by that many items, each decoded by fn.
func ReadSequence[T any](r *Reader, fn func(*Reader) (T, error)) ([]T, error) {
	n, err := r.readCount()
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, capHint(n))
	for i := 0; i < n; i++ {
		item, err := fn(r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// TryReadSequence is the tolerant variant of ReadSequence. It stops at the
// first item fn cannot decode.
func TryReadSequence[T any](r *Reader, fn func(*Reader) (T, bool, error)) ([]T, bool, error) {
	n, ok, err := r.tryReadCount()
	if !ok {
		return nil, false, err
	}

	items := make([]T, 0, capHint(n))
	for i := 0; i < n; i++ {
		item, ok, err := fn(r)
		if !ok {
			return nil, false, err
		}
		items = append(items, item)
	}
	return items, true, nil
}

// --------------------------------------------------------------------

type nestedReader struct {
	r           *Reader
	closeParent bool
	closed      bool
}

func (s *nestedReader) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrDisposed
	}
	return s.r.Read(p)
}

func (s *nestedReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.closeParent {
		return s.r.Close()
	}
	return nil
}
