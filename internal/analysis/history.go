// SPDX-License-Identifier: MIT
package analysis

// PitchHistory smooths raw pitch estimates by averaging consecutive pairs.
// It never holds more than two values.
type PitchHistory struct {
	values [2]float64
	n      int
}

// Push adds a raw estimate. Once two values are held it returns their mean
// and drops the older one, so every estimate after the first yields a mean.
func (h *PitchHistory) Push(freq float64) (mean float64, ok bool) {
	h.values[h.n] = freq
	h.n++
	if h.n < len(h.values) {
		return 0, false
	}

	mean = (h.values[0] + h.values[1]) / 2
	h.values[0] = h.values[1]
	h.n = 1
	return mean, true
}

// Len returns the number of values held.
func (h *PitchHistory) Len() int { return h.n }

// Reset empties the history.
func (h *PitchHistory) Reset() { h.n = 0 }
