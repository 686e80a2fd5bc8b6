package ngramblock

import "testing"

func TestHintFuncsDeterministic(t *testing.T) {
	ngram := []WordID{7, 19, 3, 255}
	funcs := map[string]HintFunc{
		"xxhash": XXHint,
		"xxh3":   XXH3Hint,
		"murmur": MurmurHint,
	}
	for name, fn := range funcs {
		a := fn(ngram)
		b := fn(append([]WordID{}, ngram...))
		if a != b {
			t.Errorf("%s: not deterministic: %d != %d", name, a, b)
		}
	}
}

func TestHintFuncsDistinguishOrder(t *testing.T) {
	a := []WordID{1, 2, 3}
	b := []WordID{3, 2, 1}
	for name, fn := range map[string]HintFunc{"xxhash": XXHint, "xxh3": XXH3Hint, "murmur": MurmurHint} {
		if fn(a) == fn(b) {
			t.Errorf("%s: component order collapsed to the same hint (may be a coincidence, but worth a second look)", name)
		}
	}
}

func TestHintFuncsLowCollisionRate(t *testing.T) {
	rng := newTestRNG(t)
	const n = 20000
	seen := make(map[uint64]bool, n)
	collisions := 0
	for i := 0; i < n; i++ {
		ngram := randomNgram(rng, 3, 1<<20)
		h := XXHint(ngram)
		if seen[h] {
			collisions++
		}
		seen[h] = true
	}
	if collisions > 2 {
		t.Fatalf("xxhash hint: %d collisions over %d random 3-grams, want <= 2", collisions, n)
	}
}
