package ngramblock

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns a PRNG seeded deterministically from the test's name,
// so a failure is reproducible by rerunning that one test.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	_, _ = h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// randomNgram returns a random n-gram with components in [0, maxWord].
func randomNgram(rng *rand.Rand, order int, maxWord WordID) []WordID {
	ngram := make([]WordID, order)
	for i := range ngram {
		ngram[i] = WordID(rng.IntN(int(maxWord) + 1))
	}
	return ngram
}
