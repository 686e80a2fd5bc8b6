package ngramblock

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// sortRadix treats each record as an N-digit number (one digit per word
// id component) and sorts it with an in-place parallel LSD counting
// sort: each pass partitions the record range across workers, counts
// digit occurrences per partition, then scatters records into a scratch
// buffer at globally-consistent offsets so that equal-digit records keep
// their relative order. Buffers are swapped after every pass.
//
// The digit universe for a pass is [0, maxWordID], taken from the
// accumulator's stats; this strategy is intended for vocabularies sized
// in the hundreds of thousands to low millions, where a counting array
// that size is cheap relative to the record store itself.
func (a *Accumulator) sortRadix(ctx context.Context, cmp Comparator, workers int) error {
	n := a.Size()
	order := a.order
	digitBase := int(a.maxWordID) + 1

	passOrder := traversalOrder(cmp) // most-significant first
	reverseInts(passOrder)           // LSD: least-significant first

	curWords := append([]WordID(nil), a.words...)
	curPayloads := append([]uint64(nil), a.payloads...)
	scratchWords := make([]WordID, n*order)
	scratchPayloads := make([]uint64, n)

	for _, digit := range passOrder {
		if err := countingSortPass(ctx, curWords, curPayloads, scratchWords, scratchPayloads, n, order, digit, digitBase, workers); err != nil {
			return err
		}
		curWords, scratchWords = scratchWords, curWords
		curPayloads, scratchPayloads = scratchPayloads, curPayloads
	}

	a.words = curWords
	a.payloads = curPayloads
	return nil
}

func reverseInts(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// countingSortPass performs one stable counting-sort pass over component
// index digit, reading from (srcWords, srcPayloads) and writing the
// reordered result into (dstWords, dstPayloads).
func countingSortPass(ctx context.Context, srcWords []WordID, srcPayloads []uint64, dstWords []WordID, dstPayloads []uint64, n, order, digit, digitBase, workers int) error {
	ranges := splitRanges(n, workers)
	numChunks := len(ranges)

	localHist := make([][]int64, numChunks)
	g, _ := errgroup.WithContext(ctx)
	for ci, r := range ranges {
		ci, r := ci, r
		g.Go(func() error {
			hist := make([]int64, digitBase)
			for i := r.start; i < r.end; i++ {
				v := srcWords[i*order+digit]
				hist[v]++
			}
			localHist[ci] = hist
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// chunkOffset[ci][d] = destination index for the first record of
	// chunk ci whose digit value is d.
	chunkOffset := make([][]int64, numChunks)
	for ci := range chunkOffset {
		chunkOffset[ci] = make([]int64, digitBase)
	}
	var running int64
	for d := 0; d < digitBase; d++ {
		for ci := 0; ci < numChunks; ci++ {
			chunkOffset[ci][d] = running
			running += localHist[ci][d]
		}
	}

	g2, _ := errgroup.WithContext(ctx)
	for ci, r := range ranges {
		ci, r := ci, r
		g2.Go(func() error {
			cursor := append([]int64(nil), chunkOffset[ci]...)
			for i := r.start; i < r.end; i++ {
				v := int(srcWords[i*order+digit])
				pos := cursor[v]
				cursor[v]++
				copy(dstWords[int(pos)*order:int(pos)*order+order], srcWords[i*order:i*order+order])
				dstPayloads[pos] = srcPayloads[i]
			}
			return nil
		})
	}
	return g2.Wait()
}
