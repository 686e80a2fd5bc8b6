package ngramblock

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	nberrors "github.com/kneserney/ngramblock/errors"
	"github.com/kneserney/ngramblock/internal/bitpack"
	"github.com/kneserney/ngramblock/internal/diskhint"
)

// RecordSource is the pull-based contract every block codec reader and
// the MergeReader present: Next advances, Words/Payload expose the
// current record. Words aliases an internal scratch buffer and is only
// valid until the next call to Next.
type RecordSource interface {
	Next() (bool, error)
	Words() []WordID
	Payload() uint64
}

// BlockReader decodes one front-coded block's records in order. It owns
// no I/O: data must be exactly one block, header included.
type BlockReader struct {
	order int
	cmp   Comparator

	w, v, l int
	n       uint64
	idx     uint64

	br      *bitpack.Reader
	back    []WordID
	payload uint64
}

// NewBlockReader decodes data's header and prepares to walk its records.
// data must be exactly one block (blockHeaderBytes header followed by
// the block's payload region).
func NewBlockReader(data []byte, order int, cmp Comparator) (*BlockReader, error) {
	if cmp.Order() != order {
		return nil, nberrors.ErrOrderMismatch
	}
	if len(data) < blockHeaderBytes {
		return nil, nberrors.ErrShortBlock
	}
	hdr := decodeBlockHeader(data[:blockHeaderBytes])
	w := int(hdr.w)
	v := int(hdr.v)
	l := lcpWidth(order)

	payload := data[blockHeaderBytes:]
	worst := worstCaseRecordBits(order, w, v, l)
	if worst > len(payload)*8 {
		return nil, nberrors.ErrMalformedBlock
	}
	if minRunBits(hdr.n, order, w, v, l) > uint64(len(payload))*8 {
		return nil, nberrors.ErrMalformedBlock
	}

	return &BlockReader{
		order: order,
		cmp:   cmp,
		w:     w,
		v:     v,
		l:     l,
		n:     hdr.n,
		br:    bitpack.NewReader(payload),
		back:  make([]WordID, order),
	}, nil
}

// NumRecords returns the record count declared in the block's header.
func (r *BlockReader) NumRecords() uint64 { return r.n }

// Next decodes the next record into the reader's scratch buffer.
func (r *BlockReader) Next() (bool, error) {
	if r.idx >= r.n {
		return false, nil
	}

	if r.idx == 0 {
		for i := 0; i < r.order; i++ {
			r.back[i] = WordID(r.br.ReadBits(r.w))
		}
	} else {
		lcp := int(r.br.ReadBits(r.l))
		if lcp >= r.order {
			return false, nberrors.ErrInvariantViolation
		}
		if lcp == 0 {
			for i := 0; i < r.order; i++ {
				r.back[i] = WordID(r.br.ReadBits(r.w))
			}
		} else {
			for idx := r.cmp.Advance(r.cmp.Begin(), lcp); idx != r.cmp.End(); idx = r.cmp.Next(idx) {
				r.back[idx] = WordID(r.br.ReadBits(r.w))
			}
		}
	}
	r.payload = r.br.ReadBits(r.v)
	r.idx++
	return true, nil
}

// Words returns the current record's n-gram. The returned slice aliases
// the reader's scratch buffer and is invalidated by the next Next call.
func (r *BlockReader) Words() []WordID { return r.back }

// Payload returns the current record's payload.
func (r *BlockReader) Payload() uint64 { return r.payload }

// FileReader walks every record of every block in a block file, in
// file order, via a zero-copy mmap of the whole file (grounded on the
// teacher's Open/OpenFile use of edsrzf/mmap-go). The file's length must
// be an exact multiple of blockBytes.
type FileReader struct {
	f          *os.File
	mm         mmap.MMap
	data       []byte
	blockBytes int
	order      int
	cmp        Comparator

	pos int
	cur *BlockReader

	blocksRead int
}

// OpenFile mmaps f for reading and prepares to walk its blocks.
func OpenFile(f *os.File, order int, cmp Comparator, blockBytes int) (*FileReader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size()%int64(blockBytes) != 0 {
		return nil, nberrors.ErrMalformedBlock
	}

	diskhint.AdviseSequentialRead(int(f.Fd()), 0, info.Size())

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}

	return &FileReader{
		f:          f,
		mm:         mm,
		data:       mm,
		blockBytes: blockBytes,
		order:      order,
		cmp:        cmp,
	}, nil
}

// BlocksRead returns the number of blocks fully consumed so far.
func (fr *FileReader) BlocksRead() int { return fr.blocksRead }

// Next advances to the next record, opening the next block when the
// current one is exhausted.
func (fr *FileReader) Next() (bool, error) {
	for {
		if fr.cur != nil {
			ok, err := fr.cur.Next()
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
			fr.cur = nil
			fr.blocksRead++
		}

		if fr.pos >= len(fr.data) {
			return false, nil
		}
		end := fr.pos + fr.blockBytes
		if end > len(fr.data) {
			return false, nberrors.ErrShortBlock
		}
		blk, err := NewBlockReader(fr.data[fr.pos:end], fr.order, fr.cmp)
		if err != nil {
			return false, err
		}
		fr.cur = blk
		fr.pos = end
	}
}

// Words returns the current record's n-gram, valid until the next Next.
func (fr *FileReader) Words() []WordID { return fr.cur.Words() }

// Payload returns the current record's payload.
func (fr *FileReader) Payload() uint64 { return fr.cur.Payload() }

// Close unmaps the file. It does not close the underlying *os.File.
func (fr *FileReader) Close() error {
	return fr.mm.Unmap()
}

// VerifyChecksum recomputes the xxHash64 of f's contents and compares it
// against want, the value a Writer reported via Checksum for the same
// bytes. It returns ErrChecksumMismatch on a mismatch and otherwise
// leaves f's offset unchanged.
func VerifyChecksum(f *os.File, want uint64) error {
	pos, err := f.Seek(0, os.SEEK_CUR)
	if err != nil {
		return err
	}
	defer func() { _, _ = f.Seek(pos, os.SEEK_SET) }()

	if _, err := f.Seek(0, os.SEEK_SET); err != nil {
		return err
	}
	h := xxhash.New()
	buf := make([]byte, 1<<20)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	if h.Sum64() != want {
		return nberrors.ErrChecksumMismatch
	}
	return nil
}
