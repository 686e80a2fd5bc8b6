package ngramblock

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

// HintFunc computes the 64-bit probing hint for an n-gram. The driver
// computes this once per n-gram and passes the same value into
// Accumulator.FindOrInsert as the hint, reusing it when the insert is
// retried after a flush.
type HintFunc func(ngram []WordID) uint64

func ngramBytes(ngram []WordID) []byte {
	buf := make([]byte, len(ngram)*4)
	for i, w := range ngram {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(w))
	}
	return buf
}

// XXHint hashes the n-gram's word ids with xxHash64. This is the default
// hint function: fast, well distributed, and already a dependency of the
// block codec's checksum.
func XXHint(ngram []WordID) uint64 {
	return xxhash.Sum64(ngramBytes(ngram))
}

// XXH3Hint hashes the n-gram's word ids with xxHash3-128, folding the two
// halves together. Prefer this when word ids cluster tightly (e.g. a
// vocabulary indexed in frequency order), where xxHash3's wider mixing
// spreads clustered low-order bits better than xxHash64.
func XXH3Hint(ngram []WordID) uint64 {
	h := xxh3.Hash128(ngramBytes(ngram))
	return h.Lo ^ h.Hi
}

// MurmurHint hashes the n-gram's word ids with murmur3-128, folding the
// two halves together. Provided for compatibility with pipelines that
// already hash their vocabulary with murmur3 elsewhere.
func MurmurHint(ngram []WordID) uint64 {
	lo, hi := murmur3.Sum128(ngramBytes(ngram))
	return lo ^ hi
}
