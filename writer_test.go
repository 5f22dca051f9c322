package binser_test

import (
	"bytes"
	"math"
	"strings"
	"testing/iotest"

	"github.com/bsm/binser"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"golang.org/x/text/encoding/unicode"
)

var _ = Describe("Writer", func() {
	var subject *binser.BufferWriter

	BeforeEach(func() {
		subject = binser.NewBufferWriter(nil)
	})

	It("should write scalars little-endian", func() {
		Expect(subject.WriteBool(true)).To(Succeed())
		Expect(subject.WriteBool(false)).To(Succeed())
		Expect(subject.WriteInt8(-1)).To(Succeed())
		Expect(subject.WriteUint8(7)).To(Succeed())
		Expect(subject.WriteInt16(-2)).To(Succeed())
		Expect(subject.WriteUint16(0x0102)).To(Succeed())
		Expect(subject.WriteInt32(-2)).To(Succeed())
		Expect(subject.WriteUint32(0x01020304)).To(Succeed())
		Expect(subject.WriteInt64(1)).To(Succeed())
		Expect(subject.WriteUint64(math.MaxUint64)).To(Succeed())
		Expect(subject.WriteFloat32(1)).To(Succeed())
		Expect(subject.WriteFloat64(-2)).To(Succeed())

		Expect(subject.Finalize()).To(Equal([]byte{
			1,
			0,
			0xff,
			7,
			0xfe, 0xff,
			0x02, 0x01,
			0xfe, 0xff, 0xff, 0xff,
			0x04, 0x03, 0x02, 0x01,
			1, 0, 0, 0, 0, 0, 0, 0,
			0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
			0x00, 0x00, 0x80, 0x3f,
			0, 0, 0, 0, 0, 0, 0, 0xc0,
		}))
	})

	It("should write byte sequences", func() {
		Expect(subject.WriteByteSequence([]byte("abc"))).To(Succeed())
		Expect(subject.WriteByteSequence(nil)).To(Succeed())
		Expect(subject.Bytes()).To(Equal(concat(le32(3), []byte("abc"), le32(0))))
		Expect(subject.Len()).To(Equal(11))
	})

	It("should write strings with one byte per character", func() {
		Expect(subject.WriteString("hélloÿ")).To(Succeed())
		Expect(subject.Bytes()).To(Equal(concat(le32(6), []byte{'h', 0xe9, 'l', 'l', 'o', 0xff})))
	})

	It("should reject characters outside the encoding", func() {
		Expect(subject.WriteString("€")).NotTo(Succeed())
		Expect(subject.Len()).To(Equal(0))
	})

	It("should write strings with custom encodings", func() {
		Expect(subject.WriteStringEncoding("€", unicode.UTF8)).To(Succeed())
		Expect(subject.Bytes()).To(Equal(concat(le32(3), []byte("€"))))

		subject = binser.NewBufferWriter(&binser.WriterOptions{Encoding: unicode.UTF8})
		Expect(subject.WriteString("€")).To(Succeed())
		Expect(subject.Bytes()).To(Equal(concat(le32(3), []byte("€"))))
	})

	It("should write sequences", func() {
		Expect(subject.WriteInt16Sequence([]int16{1, -1})).To(Succeed())
		Expect(subject.WriteInt32Sequence(nil)).To(Succeed())
		Expect(subject.WriteInt64Sequence([]int64{2})).To(Succeed())
		Expect(binser.WriteSequence(subject.Writer, []string{"a", "bc"}, (*binser.Writer).WriteString)).To(Succeed())

		Expect(subject.Bytes()).To(Equal(concat(
			le32(2), []byte{1, 0, 0xff, 0xff},
			le32(0),
			le32(1), []byte{2, 0, 0, 0, 0, 0, 0, 0},
			le32(2), le32(1), []byte("a"), le32(2), []byte("bc"),
		)))
	})

	It("should write raw bytes", func() {
		Expect(subject.WriteBytes([]byte("raw"))).To(Succeed())
		n, err := subject.Write([]byte("data"))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(4))
		Expect(string(subject.Bytes())).To(Equal("rawdata"))
	})

	It("should copy streams in chunks", func() {
		subject = binser.NewBufferWriter(&binser.WriterOptions{ChunkSize: 3})
		data := strings.Repeat("0123456789", 10)

		n, err := subject.WriteStream(iotest.HalfReader(strings.NewReader(data)))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(100)))
		Expect(string(subject.Bytes())).To(Equal(data))
	})

	It("should propagate stream errors", func() {
		_, err := subject.WriteStream(iotest.ErrReader(iotest.ErrTimeout))
		Expect(err).To(MatchError(iotest.ErrTimeout))
	})

	It("should encode values", func() {
		v := binser.EncodableFunc(func(w *binser.Writer) error {
			return w.WriteInt32(9)
		})
		Expect(subject.Encode(v)).To(Succeed())
		Expect(subject.Bytes()).To(Equal(le32(9)))
	})

	It("should reject writes after close", func() {
		Expect(subject.WriteInt32(1)).To(Succeed())
		Expect(subject.Close()).To(Succeed())
		Expect(subject.Close()).To(Succeed())

		Expect(subject.WriteInt32(2)).To(MatchError(binser.ErrClosed))
		Expect(subject.WriteString("x")).To(MatchError(binser.ErrClosed))
		Expect(subject.WriteSectorBytes([]byte("x"))).To(MatchError(binser.ErrClosed))
		Expect(subject.Encode(binser.EncodableFunc(func(*binser.Writer) error { return nil }))).To(MatchError(binser.ErrClosed))
		_, err := subject.WriteStream(strings.NewReader("x"))
		Expect(err).To(MatchError(binser.ErrClosed))

		Expect(subject.Bytes()).To(Equal(le32(1)))
	})

	It("should finalize", func() {
		Expect(subject.WriteUint8(1)).To(Succeed())
		Expect(subject.Finalize()).To(Equal([]byte{1}))
		Expect(subject.WriteUint8(2)).To(MatchError(binser.ErrClosed))
	})

	Describe("streams", func() {
		It("should only close owned streams", func() {
			rec := new(closeRecorder)
			w := binser.NewWriter(rec, nil)
			Expect(w.WriteUint8(1)).To(Succeed())
			Expect(w.Close()).To(Succeed())
			Expect(rec.closed).To(Equal(0))
			Expect(w.WriteUint8(2)).To(MatchError(binser.ErrClosed))

			rec = new(closeRecorder)
			w = binser.NewWriter(rec, &binser.WriterOptions{OwnStream: true})
			Expect(w.Close()).To(Succeed())
			Expect(w.Close()).To(Succeed())
			Expect(rec.closed).To(Equal(1))
		})

		It("should write to plain streams", func() {
			var buf bytes.Buffer
			w := binser.NewWriter(&buf, nil)
			Expect(w.WriteString("abc")).To(Succeed())
			Expect(buf.Bytes()).To(Equal(concat(le32(3), []byte("abc"))))
		})

		It("should fail on disposed backing stores", func() {
			buf := binser.NewPooledBuffer(nil, 0)
			buf.Release()

			w := binser.NewWriter(buf, nil)
			Expect(w.WriteUint8(1)).To(MatchError(binser.ErrDisposed))
		})
	})

	Describe("nested streams", func() {
		It("should detach without closing the parent", func() {
			s := subject.Stream(false)
			_, err := s.Write([]byte("ab"))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Close()).To(Succeed())
			Expect(s.Close()).To(Succeed())

			_, err = s.Write([]byte("cd"))
			Expect(err).To(MatchError(binser.ErrClosed))

			Expect(subject.WriteBytes([]byte("ef"))).To(Succeed())
			Expect(string(subject.Bytes())).To(Equal("abef"))
		})

		It("should close the parent on request", func() {
			s := subject.Stream(true)
			_, err := s.Write([]byte("ab"))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Close()).To(Succeed())

			Expect(subject.WriteBytes([]byte("ef"))).To(MatchError(binser.ErrClosed))
			Expect(string(subject.Bytes())).To(Equal("ab"))
		})
	})
})

var _ = Describe("PoolWriter", func() {
	var subject *binser.PoolWriter
	var pool *countingPool

	BeforeEach(func() {
		pool = new(countingPool)
		subject = binser.NewPoolWriter(&binser.WriterOptions{Pool: pool, InitialSize: 4})
	})

	It("should write and finalize", func() {
		Expect(subject.WriteString("hello")).To(Succeed())
		Expect(subject.Len()).To(Equal(9))

		p, err := subject.Finalize()
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(concat(le32(5), []byte("hello"))))

		subject.Release()
		Expect(pool.puts).To(Equal(pool.gets))
	})

	It("should reject writes after release", func() {
		subject.Release()
		subject.Release()
		Expect(pool.puts).To(Equal(1))

		Expect(subject.WriteInt32(1)).To(MatchError(binser.ErrClosed))
		_, err := subject.Finalize()
		Expect(err).To(MatchError(binser.ErrDisposed))
	})

	It("should hand the lease over to readers", func() {
		Expect(subject.WriteInt32(42)).To(Succeed())

		r := subject.Reader(nil)
		subject.Release()
		Expect(pool.puts).To(Equal(0))

		v, err := r.ReadInt32()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(int32(42)))

		Expect(r.Close()).To(Succeed())
		Expect(r.Close()).To(Succeed())
		Expect(pool.puts).To(Equal(1))
	})
})
