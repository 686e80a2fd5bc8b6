package ngramblock

import (
	"io"

	"github.com/cespare/xxhash/v2"
	nberrors "github.com/kneserney/ngramblock/errors"
	"github.com/kneserney/ngramblock/internal/bitpack"
)

// Record is one n-gram and its payload, the unit the block codec reads
// from and writes to a run.
type Record struct {
	Words   []WordID
	Payload uint64
}

// RecordIterator is the ordered source of records Writer.WriteRun
// consumes. Implementations must yield records in cmp's order.
type RecordIterator interface {
	// Next advances to the next record, reporting whether one exists.
	Next() bool
	// Record returns the current record. Valid only after Next returns
	// true, and only until the next call to Next.
	Record() Record
}

type accumulatorIterator struct {
	acc *Accumulator
	idx int
}

// NewAccumulatorIterator adapts a sorted Accumulator into a
// RecordIterator over its entries in ngram_id order.
func NewAccumulatorIterator(acc *Accumulator) RecordIterator {
	return &accumulatorIterator{acc: acc, idx: -1}
}

func (it *accumulatorIterator) Next() bool {
	it.idx++
	return it.idx < it.acc.Size()
}

func (it *accumulatorIterator) Record() Record {
	id := NgramID(it.idx)
	return Record{Words: it.acc.NgramAt(id), Payload: it.acc.PayloadAt(id)}
}

type writerConfig struct {
	blockBytes int
}

// WriterOption configures NewWriter.
type WriterOption func(*writerConfig)

// WithBlockBytes overrides DefaultBlockBytes.
func WithBlockBytes(n int) WriterOption {
	return func(c *writerConfig) { c.blockBytes = n }
}

// Writer appends ordered runs of n-grams to an output byte stream as
// fixed-size, bit-packed, front-coded blocks. A Writer is
// single-threaded; concurrency across spill files is the driver's
// responsibility, achieved by giving each worker its own Writer and
// output stream.
type Writer struct {
	dst        io.Writer
	order      int
	blockBytes int
	payloadCap int // blockBytes - blockHeaderBytes, in bytes

	bw   *bitpack.Writer
	prev []WordID

	blocksWritten  int
	recordsWritten int64

	checksum *xxhash.Digest
}

// NewWriter returns a Writer that appends to dst. order is the n-gram
// order N shared by every run this Writer will be asked to write; N is
// not persisted in the stream and must be tracked out of band by the
// driver.
func NewWriter(dst io.Writer, order int, opts ...WriterOption) (*Writer, error) {
	if order < 1 || order > MaxOrder {
		return nil, nberrors.ErrInvalidOrder
	}
	cfg := writerConfig{blockBytes: DefaultBlockBytes}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.blockBytes <= blockHeaderBytes {
		return nil, nberrors.ErrInvalidBlockSize
	}

	return &Writer{
		dst:        dst,
		order:      order,
		blockBytes: cfg.blockBytes,
		payloadCap: cfg.blockBytes - blockHeaderBytes,
		bw:         bitpack.NewWriter(cfg.blockBytes - blockHeaderBytes),
		checksum:   xxhash.New(),
	}, nil
}

// BlocksWritten returns the number of blocks appended so far across all
// WriteRun calls.
func (w *Writer) BlocksWritten() int { return w.blocksWritten }

// RecordsWritten returns the number of records appended so far across
// all WriteRun calls.
func (w *Writer) RecordsWritten() int64 { return w.recordsWritten }

// Checksum returns the xxHash64 of every byte appended so far. A block
// file's length must stay an exact multiple of the block size with no
// trailing region, so this value is not written to the file; the driver
// persists it out of band if it wants one.
func (w *Writer) Checksum() uint64 { return w.checksum.Sum64() }

// WriteRun appends it, an ordered run of n-grams under comparator cmp, to
// the output stream as one or more fixed-size blocks. stats.MaxWordID and
// stats.MaxPayload size this run's header widths w and v; every record in
// it must have a word id <= stats.MaxWordID and a payload <=
// stats.MaxPayload, and must arrive already ordered by cmp (WriteRun
// checks this and returns ErrInvariantViolation on a violation).
func (w *Writer) WriteRun(it RecordIterator, cmp Comparator, stats Stats) error {
	if cmp.Order() != w.order {
		return nberrors.ErrOrderMismatch
	}

	wWidth := wordWidth(stats.MaxWordID)
	vWidth := payloadWidth(stats.MaxPayload)
	lWidth := lcpWidth(w.order)
	worst := worstCaseRecordBits(w.order, wWidth, vWidth, lWidth)
	if worst > w.payloadCap*8 {
		return nberrors.ErrInvalidBlockSize
	}

	w.bw.Reset()
	w.prev = nil
	var n uint64
	opened := false

	flush := func() error {
		if err := w.flushBlock(wWidth, vWidth, n); err != nil {
			return err
		}
		w.bw.Reset()
		w.prev = nil
		n = 0
		return nil
	}

	for it.Next() {
		rec := it.Record()
		if len(rec.Words) != w.order {
			return nberrors.ErrOrderMismatch
		}

		remaining := w.payloadCap*8 - w.bw.BitsWritten()
		if opened && remaining < worst {
			if err := flush(); err != nil {
				return err
			}
		}
		opened = true

		if w.prev == nil {
			for i := 0; i < w.order; i++ {
				w.bw.WriteBits(uint64(rec.Words[i]), wWidth)
			}
			w.bw.WriteBits(rec.Payload, vWidth)
		} else {
			if cmp.Compare(w.prev, rec.Words) >= 0 {
				return nberrors.ErrInvariantViolation
			}
			lcp := cmp.LCP(w.prev, rec.Words)
			if lcp >= w.order {
				return nberrors.ErrInvariantViolation
			}
			w.bw.WriteBits(uint64(lcp), lWidth)
			if lcp == 0 {
				for i := 0; i < w.order; i++ {
					w.bw.WriteBits(uint64(rec.Words[i]), wWidth)
				}
			} else {
				for idx := cmp.Advance(cmp.Begin(), lcp); idx != cmp.End(); idx = cmp.Next(idx) {
					w.bw.WriteBits(uint64(rec.Words[idx]), wWidth)
				}
			}
			w.bw.WriteBits(rec.Payload, vWidth)
		}

		if w.prev == nil {
			w.prev = make([]WordID, w.order)
		}
		copy(w.prev, rec.Words)
		n++
		w.recordsWritten++
	}

	if opened {
		return flush()
	}
	return nil
}

// flushBlock pads the current block to blockBytes, patches its header,
// and appends it to dst. The final block of a run is always padded out
// too, so readers can address blocks at fixed offsets.
func (w *Writer) flushBlock(wWidth, vWidth int, n uint64) error {
	payload := w.bw.Bytes()
	if len(payload) > w.payloadCap {
		return nberrors.ErrInvalidBlockSize
	}

	block := make([]byte, w.blockBytes)
	encodeBlockHeader(blockHeader{w: byte(wWidth), v: byte(vWidth), n: n}, block)
	copy(block[blockHeaderBytes:], payload)
	// the rest of block is already zero from make([]byte, ...)

	if _, err := w.dst.Write(block); err != nil {
		return err
	}
	_, _ = w.checksum.Write(block)
	w.blocksWritten++
	return nil
}
