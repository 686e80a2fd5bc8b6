package ngramblock

import intbits "github.com/kneserney/ngramblock/internal/bits"

// Prober is the capability set an accumulator uses to walk a probe chain
// over its bucket table. A prober is initialized with a precomputed hash
// ("hint") and the bucket count; Index reports the current candidate
// bucket and Advance moves to the next one. A prober must eventually
// visit every bucket before repeating.
type Prober interface {
	// Init starts a new probe chain for hint over a table of buckets
	// slots.
	Init(hint uint64, buckets int)
	// Index returns the current candidate bucket index.
	Index() int
	// Advance moves to the next candidate bucket index.
	Advance()
}

// LinearProber is the default Prober: it starts at a fastrange-mapped
// bucket and steps forward by one, wrapping around the table. Linear
// probing is cache-friendly and, with a probing multiplier alpha > 1, has
// bounded expected probe length.
type LinearProber struct {
	buckets int
	start   int
	cur     int
}

// Init implements Prober.
func (p *LinearProber) Init(hint uint64, buckets int) {
	p.buckets = buckets
	p.start = int(intbits.FastRange32(hint, uint32(buckets)))
	p.cur = p.start
}

// Index implements Prober.
func (p *LinearProber) Index() int {
	return p.cur
}

// Advance implements Prober.
func (p *LinearProber) Advance() {
	p.cur++
	if p.cur == p.buckets {
		p.cur = 0
	}
}

// QuadraticProber is an alternative Prober using quadratic probing
// (index = start + i*(i+1)/2 mod buckets), which spreads clustered
// collisions further apart than linear probing at the cost of locality.
//
// Triangular numbers i*(i+1)/2 only cover every residue mod m when m is
// a power of two; for any other bucket count the probe chain cycles
// back to a previously visited bucket before covering the table,
// violating a prober's contract to eventually visit every bucket.
// QuadraticProber therefore requires a power-of-two bucket count:
// RequiresPowerOfTwoBuckets reports this so NewAccumulator can round up
// when this prober is selected via WithProberFactory.
type QuadraticProber struct {
	buckets int
	start   int
	cur     int
	step    int
}

// Init implements Prober.
func (p *QuadraticProber) Init(hint uint64, buckets int) {
	p.buckets = buckets
	p.start = int(intbits.FastRange32(hint, uint32(buckets)))
	p.cur = p.start
	p.step = 0
}

// Index implements Prober.
func (p *QuadraticProber) Index() int {
	return p.cur
}

// Advance implements Prober.
func (p *QuadraticProber) Advance() {
	p.step++
	offset := (p.step * (p.step + 1)) / 2
	p.cur = (p.start + offset) % p.buckets
}

// RequiresPowerOfTwoBuckets reports whether this Prober's probe
// sequence only realizes a full permutation of the bucket table when
// the bucket count is a power of two. NewAccumulator consults this
// through the powerOfTwoProber interface to decide whether to round
// its bucket count up.
func (p *QuadraticProber) RequiresPowerOfTwoBuckets() bool { return true }

// powerOfTwoProber is implemented by probers whose probe sequence
// requires a power-of-two bucket count to visit every bucket.
type powerOfTwoProber interface {
	RequiresPowerOfTwoBuckets() bool
}

// ProberFactory constructs a fresh Prober for one accumulator. Accumulators
// hold a factory rather than a single Prober instance because each
// find_or_insert call needs its own independent probe-chain state.
type ProberFactory func() Prober

// NewLinearProber is the default ProberFactory.
func NewLinearProber() Prober { return &LinearProber{} }

// NewQuadraticProber is an alternative ProberFactory.
func NewQuadraticProber() Prober { return &QuadraticProber{} }
