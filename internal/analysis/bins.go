// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
)

// FrequencyRange returns the span covered by the bin edges: the floor is the
// larger of one coefficient's width and minHz, the ceiling the smaller of
// Nyquist and maxHz.
func FrequencyRange(sampleRate float64, chunkLen int, minHz, maxHz float64) (floor, ceiling float64) {
	floor = math.Max(sampleRate/float64(chunkLen), minHz)
	ceiling = math.Min(sampleRate/2, maxHz)
	return floor, ceiling
}

// ComputeEdges returns bins+3 edges spaced geometrically from floor to
// ceiling: edge i is floor*(ceiling/floor)^(i/(bins+2)). The two outermost
// intervals are guard bins.
func ComputeEdges(bins int, floor, ceiling float64) []float64 {
	edges := make([]float64, bins+3)
	fillEdges(edges, floor, ceiling)
	return edges
}

func fillEdges(edges []float64, floor, ceiling float64) {
	last := len(edges) - 1
	ratio := ceiling / floor
	for i := range edges {
		edges[i] = floor * math.Pow(ratio, float64(i)/float64(last))
	}
	edges[0], edges[last] = floor, ceiling
}

// BinIndex returns the bin a frequency falls into. Frequencies below the
// first edge land in bin 0 and above the last edge in the final bin.
func BinIndex(edges []float64, freq float64) int {
	last := len(edges) - 2
	switch {
	case freq < edges[0]:
		return 0
	case freq > edges[len(edges)-1]:
		return last
	}
	i := sort.SearchFloat64s(edges, freq) - 1
	if i < 0 {
		return 0
	}
	return min(i, last)
}

// DistributeToBins sums the magnitude of coefficients [0, L/2-1) into dst,
// which must hold len(edges)-1 values and is overwritten.
func DistributeToBins(coeffs []complex128, resolution float64, edges, dst []float64) []float64 {
	dst = dst[:len(edges)-1]
	for i := range dst {
		dst[i] = 0
	}
	for i := 0; i < len(coeffs)/2-1; i++ {
		dst[BinIndex(edges, float64(i)*resolution)] += cmplx.Abs(coeffs[i])
	}
	return dst
}

// NormalizeByWidth divides every bin by its width in Hz. Zero width bins are
// left as they are.
func NormalizeByWidth(bins, edges []float64) {
	for i := range bins {
		if width := edges[i+1] - edges[i]; width > 0 {
			bins[i] /= width
		}
	}
}

// NormalizeByPeak scales bins so the largest is 1. An all-zero slice stays
// zero.
func NormalizeByPeak(bins []float64) {
	var peak float64
	for _, v := range bins {
		peak = math.Max(peak, v)
	}
	if peak <= 0 {
		return
	}
	for i := range bins {
		bins[i] /= peak
	}
}

// DropGuards removes the first and last bin.
func DropGuards(bins []float64) []float64 {
	if len(bins) < 2 {
		return bins[:0]
	}
	return bins[1 : len(bins)-1]
}

// BinMapper turns spectral coefficients into a fixed number of normalized,
// logarithmically spaced magnitude bins.
type BinMapper struct {
	bins       int
	resolution float64
	floor      float64
	ceiling    float64 // configured
	current    float64 // ceiling the edges were computed for

	edges []float64
	raw   []float64 // bins plus two guards

	adaptive  bool
	threshold float64
}

// NewBinMapper computes the edges for chunks of chunkLen samples.
func NewBinMapper(sampleRate float64, chunkLen, bins int, minHz, maxHz float64) (*BinMapper, error) {
	if bins < 1 {
		return nil, fmt.Errorf("analysis: bin count must be at least 1, got %d", bins)
	}
	if sampleRate <= 0 || chunkLen < 4 {
		return nil, fmt.Errorf("analysis: invalid sample rate %g or chunk length %d", sampleRate, chunkLen)
	}

	floor, ceiling := FrequencyRange(sampleRate, chunkLen, minHz, maxHz)
	if !(floor < ceiling) {
		return nil, fmt.Errorf("analysis: empty frequency range [%g, %g] Hz", floor, ceiling)
	}

	return &BinMapper{
		bins:       bins,
		resolution: sampleRate / float64(chunkLen),
		floor:      floor,
		ceiling:    ceiling,
		current:    ceiling,
		edges:      ComputeEdges(bins, floor, ceiling),
		raw:        make([]float64, bins+2),
	}, nil
}

// EnableAdaptive lets each chunk lower the ceiling to the highest frequency
// whose magnitude reaches threshold times the chunk's peak.
func (m *BinMapper) EnableAdaptive(threshold float64) {
	m.adaptive = true
	m.threshold = threshold
}

// Edges returns a copy of the edges currently in use.
func (m *BinMapper) Edges() []float64 {
	return append([]float64(nil), m.edges...)
}

// Map bins coeffs and returns a newly allocated slice of m.bins values in
// [0, 1]. Mapping the same coefficients twice gives the same result.
func (m *BinMapper) Map(coeffs []complex128) []float64 {
	if m.adaptive {
		if c, ok := AdaptiveCeiling(coeffs, m.resolution, m.threshold, m.floor, m.ceiling); ok && c != m.current {
			fillEdges(m.edges, m.floor, c)
			m.current = c
		}
	}

	raw := DistributeToBins(coeffs, m.resolution, m.edges, m.raw)
	NormalizeByWidth(raw, m.edges)
	NormalizeByPeak(raw)

	out := make([]float64, m.bins)
	copy(out, DropGuards(raw))
	return out
}
