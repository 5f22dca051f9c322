// Command binnode packs directories into binary node files and dumps them.
// Names are stored as UTF-8.
//
//	binnode pack [-z snappy|gzip|deflate] [-key HEX] -o OUT DIR
//	binnode dump [-z snappy|gzip|deflate] [-key HEX] FILE
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bsm/binser"
	"github.com/bsm/binser/transform"
	"github.com/bsm/binser/tree"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	var run func(*zap.Logger, *options, []string) error
	switch os.Args[1] {
	case "pack":
		run = pack
	case "dump":
		run = dump
	default:
		usage()
	}

	opts := new(options)
	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	fs.StringVar(&opts.Compression, "z", "", "compression: snappy, gzip or deflate")
	fs.StringVar(&opts.Key, "key", "", "hex encoded 32 byte chacha20 key")
	fs.StringVar(&opts.Output, "o", "", "output file (pack only)")
	fs.BoolVar(&opts.Verbose, "v", false, "verbose logging")
	_ = fs.Parse(os.Args[2:])

	logger, err := newLogger(opts.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger, opts, fs.Args()); err != nil {
		logger.Fatal(os.Args[1]+" failed", zap.Error(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: binnode pack|dump [-z CODEC] [-key HEX] [-o OUT] PATH")
	os.Exit(2)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

type options struct {
	Compression string
	Key         string
	Output      string
	Verbose     bool
}

// codecs returns the configured transforms, innermost (closest to the file)
// first.
func (o *options) codecs() ([]transform.Codec, error) {
	var codecs []transform.Codec

	if o.Key != "" {
		key, err := hex.DecodeString(o.Key)
		if err != nil {
			return nil, err
		}
		c, err := transform.ChaCha20(key)
		if err != nil {
			return nil, err
		}
		codecs = append(codecs, c)
	}

	if o.Compression != "" {
		c, err := transform.Compression(o.Compression)
		if err != nil {
			return nil, err
		}
		codecs = append(codecs, c)
	}
	return codecs, nil
}

// --------------------------------------------------------------------

func pack(logger *zap.Logger, opts *options, args []string) error {
	if len(args) != 1 || opts.Output == "" {
		usage()
	}
	dir := args[0]

	codecs, err := opts.codecs()
	if err != nil {
		return err
	}

	t := tree.New()
	root, err := packDir(logger, t, dir)
	if err != nil {
		return err
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		return err
	}

	writers := []*binser.Writer{binser.NewWriter(f, &binser.WriterOptions{
		Encoding:  unicode.UTF8,
		OwnStream: true,
	})}
	for _, c := range codecs {
		writers = append(writers, writers[len(writers)-1].Overlay(c.Writer))
	}

	if err := writers[len(writers)-1].Encode(root); err != nil {
		_ = f.Close()
		return err
	}
	for i := len(writers) - 1; i >= 0; i-- {
		if err := writers[i].Close(); err != nil {
			_ = f.Close()
			return err
		}
	}

	logger.Info("packed",
		zap.String("dir", dir),
		zap.String("output", opts.Output),
		zap.Int("nodes", t.Len()),
	)
	return nil
}

func packDir(logger *zap.Logger, t *tree.Tree, dir string) (tree.Node, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return tree.Node{}, err
	}

	children := make([]tree.Node, 0, len(entries))
	for _, ent := range entries {
		path := filepath.Join(dir, ent.Name())

		var child tree.Node
		switch {
		case ent.IsDir():
			child, err = packDir(logger, t, path)
		case ent.Type().IsRegular():
			child, err = t.NewNodeFunc(ent.Name(), fileContent(path))
		default:
			logger.Debug("skipping", zap.String("path", path))
			continue
		}
		if err != nil {
			return tree.Node{}, err
		}
		children = append(children, child)
	}

	logger.Debug("packed directory", zap.String("path", dir), zap.Int("entries", len(children)))
	return t.NewNode(filepath.Base(dir), children...)
}

func fileContent(path string) func(*binser.Writer) error {
	return func(w *binser.Writer) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = w.WriteStream(f)
		return err
	}
}

// --------------------------------------------------------------------

func dump(logger *zap.Logger, opts *options, args []string) error {
	if len(args) != 1 {
		usage()
	}

	codecs, err := opts.codecs()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}

	r := binser.NewReader(f, &binser.ReaderOptions{
		Encoding:  unicode.UTF8,
		OwnStream: true,
	})
	defer r.Close()

	readers := []*binser.Reader{r}
	for _, c := range codecs {
		readers = append(readers, readers[len(readers)-1].Overlay(c.Reader))
	}
	defer func() {
		for i := len(readers) - 1; i > 0; i-- {
			_ = readers[i].Close()
		}
	}()

	t := tree.New()
	root, err := t.ReadNode(readers[len(readers)-1])
	if err != nil {
		return err
	}

	logger.Debug("decoded", zap.String("file", args[0]), zap.Int("nodes", t.Len()))
	return printNode(os.Stdout, root, 0)
}

func printNode(w io.Writer, n tree.Node, depth int) error {
	data, err := n.Content()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%s (%d bytes)\n", strings.Repeat("  ", depth), n.Name(), len(data)); err != nil {
		return err
	}

	for _, child := range n.Children() {
		if err := printNode(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}
