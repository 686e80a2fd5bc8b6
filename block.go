package ngramblock

import (
	"encoding/binary"

	intbits "github.com/kneserney/ngramblock/internal/bits"
)

// DefaultBlockBytes is the default fixed on-disk block size.
const DefaultBlockBytes = 64 << 20 // 64 MiB

// blockHeaderBytes is the size of a block's header: w (1 byte), v (1
// byte), n (8 bytes).
const blockHeaderBytes = 1 + 1 + 8

// blockHeader is the small, self-describing prefix of one on-disk block.
// w and v are bit widths valid only inside this block; n is the number
// of records it holds.
type blockHeader struct {
	w byte
	v byte
	n uint64
}

func encodeBlockHeader(h blockHeader, dst []byte) {
	dst[0] = h.w
	dst[1] = h.v
	binary.LittleEndian.PutUint64(dst[2:10], h.n)
}

func decodeBlockHeader(src []byte) blockHeader {
	return blockHeader{
		w: src[0],
		v: src[1],
		n: binary.LittleEndian.Uint64(src[2:10]),
	}
}

// lcpWidth returns ℓ = ceil(log2(order+1)), the number of bits used to
// encode an lcp field for n-grams of the given order. Every value in
// [0, order] fits in that many bits, so the maximum legal lcp value
// order-1 always fits.
func lcpWidth(order int) int {
	return intbits.Width(uint64(order))
}

// wordWidth returns w, the bits needed to encode every word id up to
// maxWordID inclusive.
func wordWidth(maxWordID WordID) int {
	return intbits.Width(uint64(maxWordID))
}

// payloadWidth returns v, the bits needed to encode every payload up to
// maxPayload inclusive.
func payloadWidth(maxPayload uint64) int {
	return intbits.Width(maxPayload)
}

// worstCaseRecordBits returns the largest number of bits any single
// record can occupy given widths w, v, ℓ, and order N: the lcp field
// plus N word ids plus one payload.
func worstCaseRecordBits(order, w, v, l int) int {
	return l + order*w + v
}

// minRunBits returns the fewest bits a run of n records can possibly
// occupy given widths w, v, ℓ and order N: the first record is always
// explicit (N word ids plus a payload), and every following record's
// best case is maximal front-coding compression, lcp = N-1, leaving
// exactly one word id component plus the lcp field and a payload. A
// declared record count whose minimum possible size exceeds the bytes
// actually available in a block's payload cannot be honest.
func minRunBits(n uint64, order, w, v, l int) uint64 {
	if n == 0 {
		return 0
	}
	first := uint64(order*w + v)
	if n == 1 {
		return first
	}
	rest := uint64(l+w+v) * (n - 1)
	return first + rest
}

// EstimateRunBytes upper-bounds the on-disk size of a run of count
// records under stats and blockBytes, assuming every record hits the
// worst case (no lcp compression beyond the header widths). Callers
// use this ahead of writing to size a preallocation hint; actual
// output is normally smaller once front coding takes effect.
func EstimateRunBytes(order int, stats Stats, count int64, blockBytes int) int64 {
	if count <= 0 {
		return 0
	}
	wWidth := wordWidth(stats.MaxWordID)
	vWidth := payloadWidth(stats.MaxPayload)
	lWidth := lcpWidth(order)
	worst := worstCaseRecordBits(order, wWidth, vWidth, lWidth)
	payloadCap := blockBytes - blockHeaderBytes
	recordsPerBlock := int64(payloadCap*8) / int64(worst)
	if recordsPerBlock < 1 {
		recordsPerBlock = 1
	}
	blocks := (count + recordsPerBlock - 1) / recordsPerBlock
	return blocks * int64(blockBytes)
}
