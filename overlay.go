package binser

import (
	"io"

	"github.com/pkg/errors"
)

// WriterTransform wraps a byte sink with a transforming one, e.g. a
// compressor or an encrypting stream. Closing the returned stream must
// flush all pending output to w.
type WriterTransform func(w io.Writer) (io.WriteCloser, error)

// ReaderTransform wraps a byte source with a transforming one, e.g. a
// decompressor or a decrypting stream. If the returned stream implements
// io.Closer, it is closed with the overlay.
type ReaderTransform func(r io.Reader) (io.Reader, error)

// Overlay returns a Writer whose bytes pass through t before they reach w.
// The transform is created on the first write, or on Close if nothing was
// written. The overlay must be closed before w's output is complete. Closing
// the overlay does not close w.
func (w *Writer) Overlay(t WriterTransform) *Writer {
	o := *w.o
	o.OwnStream = false

	lw := &lazyWriter{parent: w, transform: t}
	return newWriter(lw, &o, lw.Close)
}

// Overlay returns a Reader whose bytes are read from r through t. The
// transform is created on the first read. Resetting the overlay resets r
// and re-creates the transform. Closing the overlay does not close r.
func (r *Reader) Overlay(t ReaderTransform) *Reader {
	o := *r.o
	o.OwnStream = false

	lr := &lazyReader{parent: r, transform: t}
	src := newStreamSource(lr, &o)
	src.rewind = lr.reset
	src.closer = lr
	return &Reader{src: src, o: &o}
}

type lazyWriter struct {
	parent    *Writer
	transform WriterTransform

	stream io.WriteCloser
	err    error
}

func (l *lazyWriter) init() error {
	if l.stream == nil && l.err == nil {
		l.stream, l.err = l.transform(l.parent.Stream(false))
		if l.err == nil && l.stream == nil {
			l.err = errors.New("binser: transform returned no stream")
		}
	}
	return l.err
}

func (l *lazyWriter) Write(p []byte) (int, error) {
	if err := l.init(); err != nil {
		return 0, err
	}
	return l.stream.Write(p)
}

func (l *lazyWriter) Close() error {
	if err := l.init(); err != nil {
		return err
	}
	return l.stream.Close()
}

type lazyReader struct {
	parent    *Reader
	transform ReaderTransform

	stream io.Reader
	err    error
}

func (l *lazyReader) init() error {
	if l.stream == nil && l.err == nil {
		l.stream, l.err = l.transform(l.parent.Stream(false))
		if l.err == nil && l.stream == nil {
			l.err = errors.New("binser: transform returned no stream")
		}
	}
	return l.err
}

func (l *lazyReader) Read(p []byte) (int, error) {
	if err := l.init(); err != nil {
		return 0, err
	}
	return l.stream.Read(p)
}

func (l *lazyReader) reset() error {
	if err := l.parent.Reset(); err != nil {
		return err
	}

	err := l.Close()
	l.stream, l.err = nil, nil
	return err
}

func (l *lazyReader) Close() error {
	if c, ok := l.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
