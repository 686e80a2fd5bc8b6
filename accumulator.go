package ngramblock

import (
	nberrors "github.com/kneserney/ngramblock/errors"
	intbits "github.com/kneserney/ngramblock/internal/bits"
)

// Accumulator is the open-addressed hash table that interns n-grams and
// accumulates a payload per distinct n-gram in memory, under a fixed RAM
// ceiling. It is single-threaded: one producer populates it; no method
// is safe to call concurrently with another.
//
// Two parallel structures back an Accumulator: a bucket table of ngram
// ids sized capacity*alpha (freed by ReleaseHashIndex once the entries are
// sorted), and a record store holding, for each assigned id, the N word
// ids followed by the payload. Insertion order is preserved by the record
// store.
type Accumulator struct {
	order    int
	capacity int
	alpha    float64
	equal    EqualFunc
	newProbe ProberFactory

	buckets []NgramID // bucket table; invalidNgramID means empty. nil once released.

	words    []WordID // flat record store, order*id .. order*id+order
	payloads []uint64 // payloads[id]

	maxWordID  WordID
	maxPayload uint64

	released bool
}

// EqualFunc compares two n-grams of the accumulator's order for identity.
// The default is componentwise equality.
type EqualFunc func(a, b []WordID) bool

// DefaultEqual is the componentwise equality predicate used unless the
// caller supplies another via AccumulatorOption.
func DefaultEqual(a, b []WordID) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AccumulatorOption configures NewAccumulator.
type AccumulatorOption func(*Accumulator)

// WithAlpha sets the probing-space multiplier alpha (bucket count =
// ceil(capacity*alpha)). alpha must be > 1; the default is 1.5.
func WithAlpha(alpha float64) AccumulatorOption {
	return func(a *Accumulator) { a.alpha = alpha }
}

// WithEqual overrides the default componentwise equality predicate.
func WithEqual(eq EqualFunc) AccumulatorOption {
	return func(a *Accumulator) { a.equal = eq }
}

// WithProberFactory overrides the default linear-probing strategy.
func WithProberFactory(f ProberFactory) AccumulatorOption {
	return func(a *Accumulator) { a.newProbe = f }
}

// NewAccumulator creates an accumulator for n-grams of the given order
// and target entry capacity. The bucket table is sized capacity*alpha
// (alpha > 1, default 1.5).
func NewAccumulator(order, capacity int, opts ...AccumulatorOption) (*Accumulator, error) {
	if order < 1 || order > MaxOrder {
		return nil, nberrors.ErrInvalidOrder
	}
	if capacity <= 0 {
		return nil, nberrors.ErrInvalidCapacity
	}

	acc := &Accumulator{
		order:    order,
		capacity: capacity,
		alpha:    1.5,
		equal:    DefaultEqual,
		newProbe: NewLinearProber,
	}
	for _, opt := range opts {
		opt(acc)
	}
	if acc.alpha <= 1 {
		return nil, nberrors.ErrInvalidCapacity
	}

	numBuckets := int(float64(capacity)*acc.alpha + 0.999999)
	if numBuckets <= capacity {
		numBuckets = capacity + 1
	}
	if p, ok := acc.newProbe().(powerOfTwoProber); ok && p.RequiresPowerOfTwoBuckets() {
		numBuckets = intbits.NextPowerOfTwo(numBuckets)
	}

	acc.buckets = make([]NgramID, numBuckets)
	for i := range acc.buckets {
		acc.buckets[i] = invalidNgramID
	}
	acc.words = make([]WordID, 0, capacity*order)
	acc.payloads = make([]uint64, 0, capacity)

	return acc, nil
}

// Order returns N, the fixed order of every n-gram this accumulator holds.
func (a *Accumulator) Order() int { return a.order }

// Size returns the number of distinct n-grams currently stored.
func (a *Accumulator) Size() int {
	return len(a.payloads)
}

// Buckets returns the bucket table size, or 0 after ReleaseHashIndex or
// Release.
func (a *Accumulator) Buckets() int {
	return len(a.buckets)
}

// LoadFactor returns Size() / Buckets(), or 0 if the bucket table has been
// released.
func (a *Accumulator) LoadFactor() float64 {
	if len(a.buckets) == 0 {
		return 0
	}
	return float64(a.Size()) / float64(len(a.buckets))
}

// Stats reports the current entry count and the largest word id and
// payload value stored, which the block codec uses to size its header
// widths w and v.
func (a *Accumulator) Stats() Stats {
	return Stats{
		Count:      a.Size(),
		MaxWordID:  a.maxWordID,
		MaxPayload: a.maxPayload,
	}
}

// FindOrInsert walks the probe chain for hint. If a bucket already holds
// an n-gram equal to ngram, it returns that entry's id with existed=true.
// Otherwise it assigns the next monotonic id, stores ngram with payload 1,
// and returns existed=false.
//
// hint is a precomputed 64-bit hash of ngram (the caller already computes
// this for vocabulary lookup and reuses it here). FindOrInsert returns
// ErrProbeExhausted if the probe chain wraps back to its starting bucket
// without finding an empty slot; the driver must treat this as an
// immediate flush trigger and retry in a fresh accumulator.
func (a *Accumulator) FindOrInsert(ngram []WordID, hint uint64) (NgramID, bool, error) {
	if a.released {
		return invalidNgramID, false, nberrors.ErrReleased
	}
	if len(ngram) != a.order {
		return invalidNgramID, false, nberrors.ErrOrderMismatch
	}

	prober := a.newProbe()
	prober.Init(hint, len(a.buckets))

	// A well-behaved Prober visits every bucket before repeating, so one
	// full pass of len(buckets) probes either finds the entry, finds an
	// empty slot, or proves the table full.
	for attempts := 0; attempts < len(a.buckets); attempts++ {
		idx := prober.Index()
		id := a.buckets[idx]
		if id == invalidNgramID {
			newID := NgramID(len(a.payloads))
			a.words = append(a.words, ngram...)
			a.payloads = append(a.payloads, 1)
			a.buckets[idx] = newID
			a.trackStats(ngram, 1)
			return newID, false, nil
		}
		if a.equal(a.recordAt(id), ngram) {
			return id, true, nil
		}
		prober.Advance()
	}

	return invalidNgramID, false, nberrors.ErrProbeExhausted
}

// recordAt returns the word-id slice stored for id. The slice aliases the
// accumulator's backing store and must not be retained past the next
// mutation.
func (a *Accumulator) recordAt(id NgramID) []WordID {
	off := int(id) * a.order
	return a.words[off : off+a.order]
}

func (a *Accumulator) trackStats(ngram []WordID, payload uint64) {
	for _, w := range ngram {
		if w > a.maxWordID {
			a.maxWordID = w
		}
	}
	if payload > a.maxPayload {
		a.maxPayload = payload
	}
}

// PayloadAt returns the payload stored at id. SetPayloadAt and
// IncrementPayloadAt change it.
func (a *Accumulator) PayloadAt(id NgramID) uint64 {
	return a.payloads[id]
}

// SetPayloadAt overwrites the payload stored at id.
func (a *Accumulator) SetPayloadAt(id NgramID, payload uint64) {
	a.payloads[id] = payload
	if payload > a.maxPayload {
		a.maxPayload = payload
	}
}

// IncrementPayloadAt adds delta to the payload stored at id and returns
// the new value. This is the common case on a repeat FindOrInsert hit.
func (a *Accumulator) IncrementPayloadAt(id NgramID, delta uint64) uint64 {
	v := a.payloads[id] + delta
	a.payloads[id] = v
	if v > a.maxPayload {
		a.maxPayload = v
	}
	return v
}

// NgramAt returns the word-id tuple stored at id. The returned slice
// aliases the accumulator's backing store.
func (a *Accumulator) NgramAt(id NgramID) []WordID {
	return a.recordAt(id)
}

// ReleaseHashIndex drops the bucket table, keeping only the record store.
// The driver calls this between Sort and flush to reclaim memory before
// the block codec writes the run. After this call, FindOrInsert can no
// longer be used.
func (a *Accumulator) ReleaseHashIndex() {
	a.buckets = nil
}

// Release drops the bucket table, the record store and the statistics,
// and marks the instance released: Size and Buckets then report 0, and
// FindOrInsert and Sort return ErrReleased. Calling Release again has no
// further effect. A subsequent NewAccumulator call is unaffected.
func (a *Accumulator) Release() {
	a.buckets = nil
	a.words = nil
	a.payloads = nil
	a.maxWordID = 0
	a.maxPayload = 0
	a.released = true
}
