package binser

// WriteSectors writes a sector block. Each function fills one sector through
// its own scratch writer, so sectors are framed independently of each other.
func (w *Writer) WriteSectors(fns ...func(*Writer) error) error {
	if err := w.writeLen(len(fns)); err != nil {
		return err
	}

	for _, fn := range fns {
		if err := w.writeSector(fn); err != nil {
			return err
		}
	}
	return nil
}

// WriteSectorBytes writes a sector block with pre-encoded sectors.
func (w *Writer) WriteSectorBytes(sectors ...[]byte) error {
	if err := w.writeLen(len(sectors)); err != nil {
		return err
	}

	for _, p := range sectors {
		if err := w.WriteByteSequence(p); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeSector(fn func(*Writer) error) error {
	o := *w.o
	o.OwnStream = false

	sw := NewPoolWriter(&o)
	defer sw.Release()

	if err := fn(sw.Writer); err != nil {
		return err
	}

	p, err := sw.Finalize()
	if err != nil {
		return err
	}
	return w.WriteByteSequence(p)
}

// ReadSectors reads a sector block. Every sector is copied into a Reader of
// its own, positioned at its start and independent of r.
func (r *Reader) ReadSectors() ([]*Reader, error) {
	n, err := r.readCount()
	if err != nil {
		return nil, err
	}

	sectors := make([]*Reader, 0, capHint(n))
	for i := 0; i < n; i++ {
		p, err := r.ReadByteSequence()
		if err != nil {
			return nil, err
		}
		sectors = append(sectors, r.sector(p))
	}
	return sectors, nil
}

// TryReadSectors is the tolerant variant of ReadSectors.
func (r *Reader) TryReadSectors() ([]*Reader, bool, error) {
	n, ok, err := r.tryReadCount()
	if !ok {
		return nil, false, err
	}

	sectors := make([]*Reader, 0, capHint(n))
	for i := 0; i < n; i++ {
		p, ok, err := r.TryReadByteSequence()
		if !ok {
			return nil, false, err
		}
		sectors = append(sectors, r.sector(p))
	}
	return sectors, true, nil
}

func (r *Reader) sector(p []byte) *Reader {
	q := make([]byte, len(p))
	copy(q, p)
	return NewBytesReader(q, &ReaderOptions{Encoding: r.o.Encoding, ChunkSize: r.o.ChunkSize})
}

// capHint bounds pre-allocation for counts read from untrusted input.
func capHint(n int) int {
	if n > 1024 {
		return 1024
	}
	return n
}
