package ngramblock

// Comparator is the capability set the sorter and block codec share over
// n-grams of a fixed order N. It defines both a total order over n-grams
// and the component traversal used to compute and apply a
// longest-common-prefix in that order.
//
// Begin, Next, and End describe how to walk component indices from the
// most significant (for lcp purposes) to the least significant: starting
// at Begin(), repeatedly applying Next until the result equals End()
// visits every component exactly once. Advance(i, k) steps k positions
// forward from component index i along that same walk.
type Comparator interface {
	// Order returns N, the number of components in every n-gram this
	// comparator compares.
	Order() int
	// Begin returns the index of the most-significant component.
	Begin() int
	// End returns the sentinel index one step past the least-significant
	// component; it is never a valid component index.
	End() int
	// Next returns the component index that follows i in traversal order.
	Next(i int) int
	// Advance returns the component index k steps past i in traversal
	// order. Advance(i, 0) == i.
	Advance(i, k int) int
	// LCP returns the number of leading, in-traversal-order, equal
	// components shared by a and b. The result is in [0, N].
	LCP(a, b []WordID) int
	// Compare returns a negative, zero, or positive number as a sorts
	// before, equal to, or after b under this total order.
	Compare(a, b []WordID) int
}

// PrefixOrder compares n-grams component by component, left to right: the
// classic lexicographic order over tuples.
type PrefixOrder struct {
	N int
}

// Order implements Comparator.
func (c PrefixOrder) Order() int { return c.N }

// Begin implements Comparator.
func (c PrefixOrder) Begin() int { return 0 }

// End implements Comparator.
func (c PrefixOrder) End() int { return c.N }

// Next implements Comparator.
func (c PrefixOrder) Next(i int) int { return i + 1 }

// Advance implements Comparator.
func (c PrefixOrder) Advance(i, k int) int { return i + k }

// LCP implements Comparator.
func (c PrefixOrder) LCP(a, b []WordID) int {
	n := 0
	for n < c.N && a[n] == b[n] {
		n++
	}
	return n
}

// Compare implements Comparator.
func (c PrefixOrder) Compare(a, b []WordID) int {
	for i := 0; i < c.N; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// ContextOrder compares n-grams component by component, right to left:
// this groups n-grams that share a suffix, which modified Kneser-Ney
// smoothing relies on when it walks contexts from longest to shortest.
type ContextOrder struct {
	N int
}

// Order implements Comparator.
func (c ContextOrder) Order() int { return c.N }

// Begin implements Comparator.
func (c ContextOrder) Begin() int { return c.N - 1 }

// End implements Comparator.
func (c ContextOrder) End() int { return -1 }

// Next implements Comparator.
func (c ContextOrder) Next(i int) int { return i - 1 }

// Advance implements Comparator.
func (c ContextOrder) Advance(i, k int) int { return i - k }

// LCP implements Comparator.
func (c ContextOrder) LCP(a, b []WordID) int {
	n := 0
	for n < c.N && a[c.N-1-n] == b[c.N-1-n] {
		n++
	}
	return n
}

// Compare implements Comparator.
func (c ContextOrder) Compare(a, b []WordID) int {
	for i := c.N - 1; i >= 0; i-- {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// traversalOrder returns the component indices of cmp in most-significant
// to least-significant order. Used by the radix sorter to pick its digit
// pass order.
func traversalOrder(cmp Comparator) []int {
	order := make([]int, 0, cmp.Order())
	for i := cmp.Begin(); i != cmp.End(); i = cmp.Next(i) {
		order = append(order, i)
	}
	return order
}
