package ngramblock

import "container/heap"

// MergeReader performs an N-way merge across already-sorted RecordSources
// (e.g. one FileReader per spill file), combining records for the same
// n-gram by summing their payloads. This is the counterpart to splitting
// a single corpus across several accumulators: a word that ends up in two
// spill files needs its partial counts added back together on the way out
// (grounded on the heap-based merge in grailbio-bigslice's sortio.reader,
// generalized from a reduce-by-key Reader to a sum-by-key RecordSource).
type MergeReader struct {
	cmp   Comparator
	order int
	h     *mergeHeap

	curWords   []WordID
	curPayload uint64
}

type mergeItem struct {
	src     RecordSource
	words   []WordID
	payload uint64
}

type mergeHeap struct {
	items []*mergeItem
	cmp   Comparator
}

func (h *mergeHeap) Len() int { return len(h.items) }
func (h *mergeHeap) Less(i, j int) bool {
	return h.cmp.Compare(h.items[i].words, h.items[j].words) < 0
}
func (h *mergeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *mergeHeap) Push(x any)    { h.items = append(h.items, x.(*mergeItem)) }
func (h *mergeHeap) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items = h.items[:n-1]
	return it
}

// NewMergeReader primes one heap entry per source and returns a
// MergeReader ready for Next. Sources already exhausted (Next returns
// false immediately) are simply absent from the merge.
func NewMergeReader(cmp Comparator, order int, sources []RecordSource) (*MergeReader, error) {
	h := &mergeHeap{cmp: cmp}
	for _, src := range sources {
		ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		h.items = append(h.items, &mergeItem{
			src:     src,
			words:   append([]WordID(nil), src.Words()...),
			payload: src.Payload(),
		})
	}
	heap.Init(h)
	return &MergeReader{cmp: cmp, order: order, h: h}, nil
}

// Next advances to the next distinct n-gram across all sources, summing
// payloads for any sources that share it.
func (m *MergeReader) Next() (bool, error) {
	if m.h.Len() == 0 {
		return false, nil
	}

	top := heap.Pop(m.h).(*mergeItem)
	// Copy the key out before refill overwrites top.words in place.
	words := append(m.curWords[:0], top.words...)
	payload := top.payload
	if err := m.refill(top); err != nil {
		return false, err
	}

	for m.h.Len() > 0 && m.cmp.Compare(m.h.items[0].words, words) == 0 {
		it := heap.Pop(m.h).(*mergeItem)
		payload += it.payload
		if err := m.refill(it); err != nil {
			return false, err
		}
	}

	m.curWords = words
	m.curPayload = payload
	return true, nil
}

func (m *MergeReader) refill(it *mergeItem) error {
	ok, err := it.src.Next()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	it.words = append(it.words[:0], it.src.Words()...)
	it.payload = it.src.Payload()
	heap.Push(m.h, it)
	return nil
}

// Words returns the current merged record's n-gram. Unlike BlockReader
// and FileReader, this slice is owned by the MergeReader, not aliased
// from source buffers, but it is still only valid until the next Next.
func (m *MergeReader) Words() []WordID { return m.curWords }

// Payload returns the current merged record's summed payload.
func (m *MergeReader) Payload() uint64 { return m.curPayload }
