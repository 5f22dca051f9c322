package binser_test

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"

	"github.com/bsm/binser"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// xorCodec flips every byte, counting how often it was instantiated.
type xorCodec struct {
	writers, readers int
}

func (c *xorCodec) Writer(w io.Writer) (io.WriteCloser, error) {
	c.writers++
	return &xorWriter{w: w}, nil
}

func (c *xorCodec) Reader(r io.Reader) (io.Reader, error) {
	c.readers++
	return &xorReader{r: r}, nil
}

type xorWriter struct {
	w      io.Writer
	closed bool
}

func (x *xorWriter) Write(p []byte) (int, error) {
	q := make([]byte, len(p))
	for i, c := range p {
		q[i] = c ^ 0xff
	}
	return x.w.Write(q)
}

func (x *xorWriter) Close() error {
	x.closed = true
	return nil
}

type xorReader struct{ r io.Reader }

func (x *xorReader) Read(p []byte) (int, error) {
	n, err := x.r.Read(p)
	for i := 0; i < n; i++ {
		p[i] ^= 0xff
	}
	return n, err
}

var _ = Describe("Overlay", func() {
	var codec *xorCodec
	var parent *binser.BufferWriter

	BeforeEach(func() {
		codec = new(xorCodec)
		parent = binser.NewBufferWriter(nil)
	})

	It("should transform written bytes", func() {
		w := parent.Overlay(codec.Writer)
		Expect(w.WriteUint8(0x0f)).To(Succeed())
		Expect(w.WriteInt16(0)).To(Succeed())
		Expect(w.Close()).To(Succeed())

		Expect(parent.Bytes()).To(Equal([]byte{0xf0, 0xff, 0xff}))
		Expect(codec.writers).To(Equal(1))
	})

	It("should initialize lazily", func() {
		w := parent.Overlay(codec.Writer)
		Expect(codec.writers).To(Equal(0))

		Expect(w.WriteUint8(1)).To(Succeed())
		Expect(w.WriteUint8(2)).To(Succeed())
		Expect(codec.writers).To(Equal(1))
	})

	It("should initialize on close", func() {
		w := binser.NewBufferWriter(nil)
		Expect(w.Overlay(func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		}).Close()).To(Succeed())

		// an empty but valid gzip stream
		zr, err := gzip.NewReader(bytes.NewReader(w.Bytes()))
		Expect(err).NotTo(HaveOccurred())
		Expect(io.ReadAll(zr)).To(BeEmpty())
	})

	It("should not close the parent", func() {
		w := parent.Overlay(codec.Writer)
		Expect(w.WriteUint8(1)).To(Succeed())
		Expect(w.Close()).To(Succeed())
		Expect(w.Close()).To(Succeed())
		Expect(w.WriteUint8(2)).To(MatchError(binser.ErrClosed))

		Expect(parent.WriteUint8(3)).To(Succeed())
		Expect(parent.Bytes()).To(Equal([]byte{0xfe, 3}))
	})

	It("should propagate transform errors", func() {
		w := parent.Overlay(func(io.Writer) (io.WriteCloser, error) {
			return nil, errors.New("boom")
		})
		Expect(w.WriteUint8(1)).To(MatchError("boom"))
		Expect(w.Close()).To(MatchError("boom"))

		w = parent.Overlay(func(io.Writer) (io.WriteCloser, error) { return nil, nil })
		Expect(w.WriteUint8(1)).To(HaveOccurred())
	})

	It("should read through transforms", func() {
		w := parent.Overlay(codec.Writer)
		Expect(w.WriteString("hello")).To(Succeed())
		Expect(w.WriteInt64Sequence([]int64{1, 2, 3})).To(Succeed())
		Expect(w.Close()).To(Succeed())
		Expect(parent.WriteInt32(-1)).To(Succeed())

		r := binser.NewBytesReader(parent.Finalize(), nil)
		o := r.Overlay(codec.Reader)
		Expect(codec.readers).To(Equal(0))

		Expect(o.ReadString()).To(Equal("hello"))
		Expect(o.ReadInt64Sequence()).To(Equal([]int64{1, 2, 3}))
		Expect(codec.readers).To(Equal(1))
	})

	It("should reset the parent and the transform", func() {
		w := parent.Overlay(codec.Writer)
		Expect(w.WriteInt32(5)).To(Succeed())
		Expect(w.Close()).To(Succeed())

		r := binser.NewBytesReader(parent.Finalize(), nil)
		o := r.Overlay(codec.Reader)
		Expect(o.ReadInt32()).To(Equal(int32(5)))
		_, ok, err := o.TryReadInt32()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		Expect(o.Reset()).To(Succeed())
		Expect(o.ReadInt32()).To(Equal(int32(5)))
		Expect(codec.readers).To(Equal(2))
	})

	It("should not close the parent reader", func() {
		r := binser.NewBytesReader([]byte{0xfe, 0x02}, nil)
		o := r.Overlay(codec.Reader)
		Expect(o.ReadUint8()).To(Equal(uint8(1)))
		Expect(o.Close()).To(Succeed())

		_, err := o.ReadUint8()
		Expect(err).To(MatchError(binser.ErrDisposed))

		Expect(r.Reset()).To(Succeed())
		Expect(r.ReadUint8()).To(Equal(uint8(0xfe)))
	})

	It("should stack", func() {
		inner := new(xorCodec)
		w := parent.Overlay(inner.Writer)
		ww := w.Overlay(codec.Writer)
		Expect(ww.WriteUint8(0x0f)).To(Succeed())
		Expect(ww.Close()).To(Succeed())
		Expect(w.Close()).To(Succeed())

		// two flips cancel out
		Expect(parent.Bytes()).To(Equal([]byte{0x0f}))

		r := binser.NewBytesReader(parent.Finalize(), nil)
		Expect(r.Overlay(inner.Reader).Overlay(codec.Reader).ReadUint8()).To(Equal(uint8(0x0f)))
	})
})
