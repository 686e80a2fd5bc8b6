// Package bits provides low-level bit manipulation primitives shared by the
// accumulator's probing and the block codec's width calculations.
package bits

import "math/bits"

// FastRange32 maps a 64-bit hash uniformly to [0, n) returning uint32.
// Uses the "fastrange" technique: multiply and take high bits.
// This is the standard way to map hashes to ranges without modulo bias.
func FastRange32(hash uint64, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	hi, _ := bits.Mul64(hash, uint64(n))
	return uint32(hi)
}

// Width returns ceil(log2(max+1)), the number of bits needed to represent
// every value in [0, max] inclusive. Width(0) is 1: a field that can only
// ever hold the value 0 still occupies one bit on the wire.
func Width(max uint64) int {
	if max == 0 {
		return 1
	}
	return bits.Len64(max)
}

// NextPowerOfTwo returns the smallest power of two >= n, or 1 if n <= 1.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
