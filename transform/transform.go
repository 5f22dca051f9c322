// Package transform provides byte transforms which can be layered over
// binser writers and readers with Overlay.
package transform

import (
	"compress/flate"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/bsm/binser"
	"github.com/golang/snappy"
	"golang.org/x/crypto/chacha20"
)

// Codec pairs the writing and the reading half of a transform.
type Codec struct {
	Writer binser.WriterTransform
	Reader binser.ReaderTransform
}

// Snappy compresses using the snappy framing format.
func Snappy() Codec {
	return Codec{
		Writer: func(w io.Writer) (io.WriteCloser, error) {
			return snappy.NewBufferedWriter(w), nil
		},
		Reader: func(r io.Reader) (io.Reader, error) {
			return snappy.NewReader(r), nil
		},
	}
}

// Gzip compresses using gzip at the given level.
func Gzip(level int) Codec {
	return Codec{
		Writer: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, level)
		},
		Reader: func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		},
	}
}

// Deflate compresses using raw deflate at the given level.
func Deflate(level int) Codec {
	return Codec{
		Writer: func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, level)
		},
		Reader: func(r io.Reader) (io.Reader, error) {
			return flate.NewReader(r), nil
		},
	}
}

// Compression returns a compression codec by name: "snappy", "gzip" or
// "deflate".
func Compression(name string) (Codec, error) {
	switch name {
	case "snappy":
		return Snappy(), nil
	case "gzip":
		return Gzip(gzip.DefaultCompression), nil
	case "deflate":
		return Deflate(flate.DefaultCompression), nil
	}
	return Codec{}, fmt.Errorf("transform: unknown compression %q", name)
}

// AES encrypts with AES in CTR mode. The key must be 16, 24 or 32 bytes
// long. A random IV is written as a length-prefixed blob in front of the
// cipher text.
func AES(key []byte) (Codec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return Codec{}, err
	}

	return streamCodec(block.BlockSize(), func(iv []byte) (cipher.Stream, error) {
		return cipher.NewCTR(block, iv), nil
	}), nil
}

// ChaCha20 encrypts with XChaCha20. The key must be 32 bytes long. A random
// nonce is written as a length-prefixed blob in front of the cipher text.
func ChaCha20(key []byte) (Codec, error) {
	if len(key) != chacha20.KeySize {
		return Codec{}, fmt.Errorf("transform: invalid chacha20 key size %d", len(key))
	}

	return streamCodec(chacha20.NonceSizeX, func(nonce []byte) (cipher.Stream, error) {
		return chacha20.NewUnauthenticatedCipher(key, nonce)
	}), nil
}

func streamCodec(ivSize int, newStream func(iv []byte) (cipher.Stream, error)) Codec {
	return Codec{
		Writer: func(w io.Writer) (io.WriteCloser, error) {
			iv := make([]byte, ivSize)
			if _, err := io.ReadFull(rand.Reader, iv); err != nil {
				return nil, err
			}

			stream, err := newStream(iv)
			if err != nil {
				return nil, err
			}
			if err := binser.NewWriter(w, nil).WriteByteSequence(iv); err != nil {
				return nil, err
			}
			return cipher.StreamWriter{S: stream, W: w}, nil
		},
		Reader: func(r io.Reader) (io.Reader, error) {
			// a chunk size of 1 stops the header reader from consuming
			// cipher text
			iv, err := binser.NewReader(r, &binser.ReaderOptions{ChunkSize: 1}).ReadByteSequence()
			if err != nil {
				return nil, err
			}
			if len(iv) != ivSize {
				return nil, fmt.Errorf("transform: invalid iv size %d", len(iv))
			}

			stream, err := newStream(iv)
			if err != nil {
				return nil, err
			}
			return cipher.StreamReader{S: stream, R: r}, nil
		},
	}
}
