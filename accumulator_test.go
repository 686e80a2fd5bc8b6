package ngramblock

import (
	"errors"
	"testing"

	nberrors "github.com/kneserney/ngramblock/errors"
)

func TestFindOrInsertHashUniqueness(t *testing.T) {
	acc, err := NewAccumulator(3, 1000)
	if err != nil {
		t.Fatal(err)
	}

	rng := newTestRNG(t)
	const numInserts = 5000
	want := make(map[[3]WordID]uint64)

	for i := 0; i < numInserts; i++ {
		ngram := randomNgram(rng, 3, 50) // small universe forces repeats
		key := [3]WordID{ngram[0], ngram[1], ngram[2]}

		id, existed, err := acc.FindOrInsert(ngram, XXHint(ngram))
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if existed {
			acc.IncrementPayloadAt(id, 1)
		}
		want[key]++
	}

	if acc.Size() != len(want) {
		t.Fatalf("acc.Size() = %d, want %d distinct n-grams", acc.Size(), len(want))
	}
	for id := 0; id < acc.Size(); id++ {
		rec := acc.NgramAt(NgramID(id))
		key := [3]WordID{rec[0], rec[1], rec[2]}
		if got, wantCount := acc.PayloadAt(NgramID(id)), want[key]; got != wantCount {
			t.Fatalf("id %d (%v): payload = %d, want %d", id, key, got, wantCount)
		}
	}
}

func TestFindOrInsertInsertionOrderStability(t *testing.T) {
	acc, err := NewAccumulator(2, 100)
	if err != nil {
		t.Fatal(err)
	}

	inserted := [][]WordID{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	for _, ngram := range inserted {
		if _, existed, err := acc.FindOrInsert(ngram, XXHint(ngram)); err != nil {
			t.Fatal(err)
		} else if existed {
			t.Fatalf("%v: unexpectedly already present", ngram)
		}
	}

	for k, ngram := range inserted {
		id, existed, err := acc.FindOrInsert(ngram, XXHint(ngram))
		if err != nil {
			t.Fatal(err)
		}
		if !existed {
			t.Fatalf("%v: expected to already exist on second lookup", ngram)
		}
		if int(id) != k {
			t.Fatalf("%v: id = %d, want %d (the (k+1)-th distinct insertion)", ngram, id, k)
		}
	}
}

func TestFindOrInsertRejectsWrongOrder(t *testing.T) {
	acc, err := NewAccumulator(3, 10)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = acc.FindOrInsert([]WordID{1, 2}, 0)
	if !errors.Is(err, nberrors.ErrOrderMismatch) {
		t.Fatalf("err = %v, want ErrOrderMismatch", err)
	}
}

func TestFindOrInsertProbeExhausted(t *testing.T) {
	// alpha just over 1 leaves almost no spare buckets, so inserting
	// enough distinct n-grams to fill the table exhausts every probe
	// chain with no empty slot left.
	acc, err := NewAccumulator(1, 4, WithAlpha(1.01))
	if err != nil {
		t.Fatal(err)
	}

	buckets := acc.Buckets()
	var lastErr error
	for i := 0; i < buckets+1; i++ {
		ngram := []WordID{WordID(i)}
		_, _, err := acc.FindOrInsert(ngram, uint64(i))
		if err != nil {
			lastErr = err
			break
		}
	}
	if !errors.Is(lastErr, nberrors.ErrProbeExhausted) {
		t.Fatalf("err = %v, want ErrProbeExhausted once the table fills", lastErr)
	}

	// Existing entries must still be intact and queryable.
	for i := 0; i < acc.Size(); i++ {
		if _, existed, err := acc.FindOrInsert(acc.NgramAt(NgramID(i)), uint64(i)); err != nil || !existed {
			t.Fatalf("entry %d corrupted after probe exhaustion: existed=%v err=%v", i, existed, err)
		}
	}
}

func TestReleaseIsIdempotentAndResettable(t *testing.T) {
	acc, err := NewAccumulator(2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := acc.FindOrInsert([]WordID{1, 2}, 1); err != nil {
		t.Fatal(err)
	}

	acc.Release()
	acc.Release() // a second Release must leave the same state
	if acc.Size() != 0 || acc.Buckets() != 0 {
		t.Fatalf("after Release: size=%d buckets=%d, want 0,0", acc.Size(), acc.Buckets())
	}
	if _, _, err := acc.FindOrInsert([]WordID{1, 2}, 1); !errors.Is(err, nberrors.ErrReleased) {
		t.Fatalf("err = %v, want ErrReleased", err)
	}

	fresh, err := NewAccumulator(3, 50)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Order() != 3 || fresh.Size() != 0 {
		t.Fatalf("fresh accumulator after a released one: order=%d size=%d", fresh.Order(), fresh.Size())
	}
}

func TestReleaseHashIndexKeepsRecordStore(t *testing.T) {
	acc, err := NewAccumulator(2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := acc.FindOrInsert([]WordID{1, 2}, 1); err != nil {
		t.Fatal(err)
	}
	acc.ReleaseHashIndex()
	if acc.Buckets() != 0 {
		t.Fatalf("Buckets() = %d after ReleaseHashIndex, want 0", acc.Buckets())
	}
	if acc.Size() != 1 {
		t.Fatalf("Size() = %d after ReleaseHashIndex, want 1", acc.Size())
	}
}

func TestInvalidConstruction(t *testing.T) {
	if _, err := NewAccumulator(0, 10); !errors.Is(err, nberrors.ErrInvalidOrder) {
		t.Errorf("order=0: err = %v, want ErrInvalidOrder", err)
	}
	if _, err := NewAccumulator(MaxOrder+1, 10); !errors.Is(err, nberrors.ErrInvalidOrder) {
		t.Errorf("order=MaxOrder+1: err = %v, want ErrInvalidOrder", err)
	}
	if _, err := NewAccumulator(2, 0); !errors.Is(err, nberrors.ErrInvalidCapacity) {
		t.Errorf("capacity=0: err = %v, want ErrInvalidCapacity", err)
	}
	if _, err := NewAccumulator(2, 10, WithAlpha(1.0)); !errors.Is(err, nberrors.ErrInvalidCapacity) {
		t.Errorf("alpha=1.0: err = %v, want ErrInvalidCapacity", err)
	}
}

func TestNewAccumulatorRoundsUpBucketsForQuadraticProber(t *testing.T) {
	// capacity=10, alpha=1.5 would otherwise size the bucket table at
	// ceil(15)=15, which is not a power of two and would make
	// QuadraticProber revisit buckets before covering the table.
	acc, err := NewAccumulator(2, 10, WithProberFactory(NewQuadraticProber))
	if err != nil {
		t.Fatal(err)
	}
	buckets := acc.Buckets()
	if buckets&(buckets-1) != 0 {
		t.Fatalf("Buckets() = %d, want a power of two", buckets)
	}
	if buckets < 15 {
		t.Fatalf("Buckets() = %d, want >= 15 (the unrounded requirement)", buckets)
	}
}
