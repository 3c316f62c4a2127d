// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used when sizing FFT
workspaces.

	// Autocorrelation of a 2048 sample window padded by 1024 samples.
	size := bitint.NextPowerOfTwo(2048 + 1024) // 4096

	// Radix-2 fast path check for a spectral chunk.
	fast := bitint.IsPowerOfTwo(chunkSize)

NextPowerOfTwo subtracts one before taking the bit length so an exact
power of two maps onto itself: for 8, bits.Len(7) is 3 and 1<<3 is 8,
whereas bits.Len(8) would give 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Non-positive
// sizes return 1.
//
//	Input  Output
//	4      4
//	5      8
//	3072   4096
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two
// has a single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
