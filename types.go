package ngramblock

// WordID identifies a token in a vocabulary built upstream. The width is
// fixed at 32 bits for a run (see DESIGN.md for why uint32 was chosen).
type WordID uint32

// NgramID is a dense index into an accumulator's record store, assigned
// monotonically from 0 in insertion order. It is stable only within the
// lifetime of one accumulator and is invalidated by Release.
type NgramID int32

// invalidNgramID is the bucket-table sentinel meaning "empty slot".
const invalidNgramID NgramID = -1

// MaxOrder bounds the order N of any accumulator or block.
const MaxOrder = 12

// Stats summarizes an accumulator or a block: the number of live entries,
// the largest word id stored, and the largest payload value stored. The
// block codec derives its per-block bit widths from these.
type Stats struct {
	Count      int
	MaxWordID  WordID
	MaxPayload uint64
}
