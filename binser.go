package binser

import (
	"errors"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrInsufficientData is returned by strict reads when fewer bytes remain
	// than were requested.
	ErrInsufficientData = errors.New("binser: insufficient data")

	// ErrNegativeLength is returned when a decoded length or count prefix is
	// negative. Tolerant reads return it too, it indicates a corrupt stream.
	ErrNegativeLength = errors.New("binser: negative length prefix")

	// ErrClosed is returned when writing to a closed writer.
	ErrClosed = errors.New("binser: writer closed")

	// ErrDisposed is returned when using a reader or pooled buffer after it
	// was closed or released.
	ErrDisposed = errors.New("binser: disposed")

	// ErrUnsupported is returned for operations the backing store cannot
	// perform, e.g. resetting a non-seekable stream.
	ErrUnsupported = errors.New("binser: unsupported operation")

	// ErrMalformed is returned when framed data is structurally invalid.
	ErrMalformed = errors.New("binser: malformed data")
)

// errShort is the internal end-of-data signal, mapped to ErrInsufficientData
// by strict reads and to ok=false by tolerant ones.
var errShort = errors.New("binser: short read")

const (
	defaultChunkSize   = 1 << 10
	defaultInitialSize = 16
)

// DefaultEncoding is the text encoding used for strings unless configured
// otherwise. It maps every character to exactly one byte and is ASCII
// compatible.
var DefaultEncoding encoding.Encoding = charmap.ISO8859_1

// Encodable is implemented by values which know how to write themselves.
type Encodable interface {
	EncodeTo(w *Writer) error
}

// EncodableFunc adapts a function to the Encodable interface.
type EncodableFunc func(w *Writer) error

// EncodeTo implements Encodable.
func (f EncodableFunc) EncodeTo(w *Writer) error { return f(w) }

// --------------------------------------------------------------------

// WriterOptions define writer specific options.
type WriterOptions struct {
	// Encoding is the text encoding applied by WriteString.
	// Default: DefaultEncoding.
	Encoding encoding.Encoding

	// ChunkSize is the size of the chunks used by WriteStream.
	// Default: 1KiB.
	ChunkSize int

	// OwnStream closes the backing stream (if it is an io.Closer) when
	// the writer is closed.
	// Default: false.
	OwnStream bool

	// Pool is the buffer pool used by pool-backed writers.
	// Default: DefaultPool.
	Pool BufferPool

	// InitialSize is the initial capacity of buffer-backed writers.
	// Default: 16.
	InitialSize int
}

func (o *WriterOptions) norm() *WriterOptions {
	var oo WriterOptions
	if o != nil {
		oo = *o
	}

	if oo.Encoding == nil {
		oo.Encoding = DefaultEncoding
	}
	if oo.ChunkSize < 1 {
		oo.ChunkSize = defaultChunkSize
	}
	if oo.Pool == nil {
		oo.Pool = DefaultPool
	}
	if oo.InitialSize < 1 {
		oo.InitialSize = defaultInitialSize
	}

	return &oo
}

// ReaderOptions define reader specific options.
type ReaderOptions struct {
	// Encoding is the text encoding applied by ReadString.
	// Default: DefaultEncoding.
	Encoding encoding.Encoding

	// ChunkSize is the size of the chunks pulled from streams by ReadToEnd.
	// Default: 1KiB.
	ChunkSize int

	// OwnStream closes the backing stream (if it is an io.Closer) when
	// the reader is closed.
	// Default: false.
	OwnStream bool
}

func (o *ReaderOptions) norm() *ReaderOptions {
	var oo ReaderOptions
	if o != nil {
		oo = *o
	}

	if oo.Encoding == nil {
		oo.Encoding = DefaultEncoding
	}
	if oo.ChunkSize < 1 {
		oo.ChunkSize = defaultChunkSize
	}

	return &oo
}
