package ngramblock

import (
	"errors"
	"testing"

	nberrors "github.com/kneserney/ngramblock/errors"
)

// TestNewBlockReaderRejectsInflatedRecordCount covers the malformed-block
// case where the header declares more records than the payload region
// could possibly hold, even assuming every record after the first hits
// maximal front-coding compression (lcp = order-1).
func TestNewBlockReaderRejectsInflatedRecordCount(t *testing.T) {
	cmp := PrefixOrder{N: 3}
	const order = 3
	w, v, l := 8, 8, lcpWidth(order)

	payloadBits := minRunBits(4, order, w, v, l) // true capacity, in bits, for 4 records
	payloadBytes := int((payloadBits + 7) / 8)

	block := make([]byte, blockHeaderBytes+payloadBytes)
	// Declare far more records than payloadBytes could ever hold, even
	// at best-case compression.
	encodeBlockHeader(blockHeader{w: byte(w), v: byte(v), n: 1000}, block)

	if _, err := NewBlockReader(block, order, cmp); !errors.Is(err, nberrors.ErrMalformedBlock) {
		t.Fatalf("NewBlockReader with inflated n: err = %v, want ErrMalformedBlock", err)
	}
}

// TestNewBlockReaderAcceptsMinimallySizedPayload exercises the boundary:
// a payload sized exactly to minRunBits for n records must be accepted.
func TestNewBlockReaderAcceptsMinimallySizedPayload(t *testing.T) {
	cmp := PrefixOrder{N: 3}
	const order = 3
	const n = 5
	w, v, l := 8, 8, lcpWidth(order)

	payloadBits := minRunBits(n, order, w, v, l)
	payloadBytes := int((payloadBits + 7) / 8)

	block := make([]byte, blockHeaderBytes+payloadBytes)
	encodeBlockHeader(blockHeader{w: byte(w), v: byte(v), n: n}, block)

	if _, err := NewBlockReader(block, order, cmp); err != nil {
		t.Fatalf("NewBlockReader at minimal payload size: unexpected error %v", err)
	}
}

func TestNewBlockReaderRejectsOrderMismatch(t *testing.T) {
	cmp := PrefixOrder{N: 3}
	block := make([]byte, blockHeaderBytes+16)
	if _, err := NewBlockReader(block, 4, cmp); !errors.Is(err, nberrors.ErrOrderMismatch) {
		t.Fatalf("order mismatch: err = %v, want ErrOrderMismatch", err)
	}
}

func TestNewBlockReaderRejectsShortHeader(t *testing.T) {
	cmp := PrefixOrder{N: 3}
	block := make([]byte, blockHeaderBytes-1)
	if _, err := NewBlockReader(block, 3, cmp); !errors.Is(err, nberrors.ErrShortBlock) {
		t.Fatalf("short header: err = %v, want ErrShortBlock", err)
	}
}
