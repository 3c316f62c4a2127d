// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"math/cmplx"
)

// DefaultAdaptiveThreshold is the fraction of the chunk peak a coefficient
// must reach to extend the adaptive ceiling.
const DefaultAdaptiveThreshold = 0.01

// AdaptiveCeiling returns the frequency of the highest scanned coefficient
// whose magnitude is at least threshold times the peak, clamped to
// [2*floor, ceiling]. It reports false for a silent chunk.
func AdaptiveCeiling(coeffs []complex128, resolution, threshold, floor, ceiling float64) (float64, bool) {
	n := len(coeffs)/2 - 1

	var peak float64
	for i := 0; i < n; i++ {
		peak = math.Max(peak, cmplx.Abs(coeffs[i]))
	}
	if peak <= 0 {
		return 0, false
	}

	top := 0
	limit := threshold * peak
	for i := n - 1; i >= 0; i-- {
		if cmplx.Abs(coeffs[i]) >= limit {
			top = i
			break
		}
	}

	lowest := math.Min(2*floor, ceiling)
	return math.Min(math.Max(float64(top)*resolution, lowest), ceiling), true
}
