package ngramblock

import (
	"context"
	"runtime"
	"sort"

	nberrors "github.com/kneserney/ngramblock/errors"
	"golang.org/x/sync/errgroup"
)

// SortStrategy selects which algorithm Sort uses to linearise an
// accumulator's entries. Both strategies present the same iteration
// contract; the choice is a performance trade-off, made per Sort call
// through WithStrategy.
type SortStrategy int

const (
	// StrategyIndirect sorts a permutation array in parallel using the
	// comparator directly, then materializes the reordered record store.
	StrategyIndirect SortStrategy = iota
	// StrategyRadix treats each record as an N-digit number, one digit
	// per word id, and does an in-place parallel LSD counting sort.
	StrategyRadix
)

type sortConfig struct {
	strategy SortStrategy
	workers  int
}

// SortOption configures Sort.
type SortOption func(*sortConfig)

// WithStrategy selects the sort strategy. The default is StrategyIndirect.
func WithStrategy(s SortStrategy) SortOption {
	return func(c *sortConfig) { c.strategy = s }
}

// WithSortWorkers sets the number of worker goroutines the sorter joins
// before returning. The default is GOMAXPROCS.
func WithSortWorkers(n int) SortOption {
	return func(c *sortConfig) { c.workers = n }
}

// Sort arranges acc's record store in place so that iterating it in
// ngram_id order after Sort returns visits entries in cmp's order. Sort
// owns a worker pool for the duration of the call and joins every worker
// before returning; no suspension is visible to the caller.
func (a *Accumulator) Sort(ctx context.Context, cmp Comparator, opts ...SortOption) error {
	if a.released {
		return nberrors.ErrReleased
	}
	if cmp.Order() != a.order {
		return nberrors.ErrOrderMismatch
	}

	cfg := sortConfig{strategy: StrategyIndirect, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}

	n := a.Size()
	if n < 2 {
		return nil
	}

	switch cfg.strategy {
	case StrategyIndirect:
		return a.sortIndirect(ctx, cmp, cfg.workers)
	case StrategyRadix:
		return a.sortRadix(ctx, cmp, cfg.workers)
	default:
		return nberrors.ErrUnknownStrategy
	}
}

// sortIndirect builds a permutation of [0,n) sorted in parallel by cmp,
// then reorders the record store to match.
func (a *Accumulator) sortIndirect(ctx context.Context, cmp Comparator, workers int) error {
	n := a.Size()
	perm := make([]int32, n)
	for i := range perm {
		perm[i] = int32(i)
	}

	chunks := splitRanges(n, workers)
	g, _ := errgroup.WithContext(ctx)
	for _, r := range chunks {
		r := r
		g.Go(func() error {
			sub := perm[r.start:r.end]
			sort.Slice(sub, func(i, j int) bool {
				return cmp.Compare(a.recordAt(NgramID(sub[i])), a.recordAt(NgramID(sub[j]))) < 0
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	perm = mergeSortedChunks(perm, chunks, func(x, y int32) bool {
		return cmp.Compare(a.recordAt(NgramID(x)), a.recordAt(NgramID(y))) < 0
	})

	return a.applyPermutation(perm)
}

// applyPermutation rewrites the record store so that the entry at new
// position i is the one previously at perm[i].
func (a *Accumulator) applyPermutation(perm []int32) error {
	n := len(perm)
	newWords := make([]WordID, n*a.order)
	newPayloads := make([]uint64, n)
	for i, old := range perm {
		copy(newWords[i*a.order:(i+1)*a.order], a.recordAt(NgramID(old)))
		newPayloads[i] = a.payloads[old]
	}
	a.words = newWords
	a.payloads = newPayloads
	return nil
}

type intRange struct{ start, end int }

// splitRanges partitions [0,n) into up to workers contiguous, order
// preserving chunks.
func splitRanges(n, workers int) []intRange {
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	ranges := make([]intRange, 0, workers)
	base := n / workers
	rem := n % workers
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < rem {
			size++
		}
		end := start + size
		if size > 0 {
			ranges = append(ranges, intRange{start, end})
		}
		start = end
	}
	return ranges
}

// mergeSortedChunks performs a k-way merge of perm's already-sorted
// chunks (as delimited by ranges) into a freshly allocated slice.
func mergeSortedChunks(perm []int32, ranges []intRange, less func(a, b int32) bool) []int32 {
	if len(ranges) <= 1 {
		return perm
	}
	out := make([]int32, len(perm))
	cursors := make([]int, len(ranges))
	for i, r := range ranges {
		cursors[i] = r.start
	}
	for oi := range out {
		best := -1
		for ci, r := range ranges {
			if cursors[ci] >= r.end {
				continue
			}
			if best == -1 || less(perm[cursors[ci]], perm[cursors[best]]) {
				best = ci
			}
		}
		out[oi] = perm[cursors[best]]
		cursors[best]++
	}
	return out
}
