// SPDX-License-Identifier: MIT

// Package filter implements the optional input conditioning stage: a pair of
// second order IIR sections that band-limit the signal before analysis.
package filter

import (
	"fmt"
	"math"
)

// Kind selects the biquad response.
type Kind int

const (
	LowPass Kind = iota
	HighPass
)

func (k Kind) String() string {
	switch k {
	case LowPass:
		return "lowpass"
	case HighPass:
		return "highpass"
	default:
		return "unknown"
	}
}

// Biquad is a second order IIR section with coefficients from Robert
// Bristow-Johnson's audio EQ cookbook, run in transposed direct form II.
// State carries across calls to Process.
type Biquad struct {
	kind       Kind
	sampleRate float64
	cutoff     float64
	q          float64

	b0, b1, b2 float64
	a1, a2     float64

	z1, z2 float64
}

// NewBiquad returns a low or high pass section. Cutoffs at or above Nyquist
// are pulled just below it.
func NewBiquad(kind Kind, sampleRate, cutoff, q float64) (*Biquad, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("filter: sample rate must be positive, got %g", sampleRate)
	}
	if cutoff <= 0 {
		return nil, fmt.Errorf("filter: %s cutoff must be positive, got %g", kind, cutoff)
	}
	if q <= 0 {
		return nil, fmt.Errorf("filter: Q must be positive, got %g", q)
	}

	b := &Biquad{kind: kind, sampleRate: sampleRate, cutoff: cutoff, q: q}
	b.computeCoefficients()
	return b, nil
}

func (b *Biquad) computeCoefficients() {
	w0 := 2 * math.Pi * b.cutoff / b.sampleRate
	if w0 >= math.Pi {
		w0 = math.Pi * 0.99
	}

	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * b.q)
	a0 := 1 + alpha

	switch b.kind {
	case HighPass:
		b.b0 = (1 + cosW0) / 2
		b.b1 = -(1 + cosW0)
		b.b2 = (1 + cosW0) / 2
	default:
		b.b0 = (1 - cosW0) / 2
		b.b1 = 1 - cosW0
		b.b2 = (1 - cosW0) / 2
	}
	b.a1 = -2 * cosW0
	b.a2 = 1 - alpha

	b.b0 /= a0
	b.b1 /= a0
	b.b2 /= a0
	b.a1 /= a0
	b.a2 /= a0
}

// Process filters buf in place.
func (b *Biquad) Process(buf []float64) {
	z1, z2 := b.z1, b.z2
	for i, x := range buf {
		y := b.b0*x + z1
		z1 = b.b1*x - b.a1*y + z2
		z2 = b.b2*x - b.a2*y
		buf[i] = y
	}
	b.z1, b.z2 = z1, z2
}

// Reset clears the delay line.
func (b *Biquad) Reset() { b.z1, b.z2 = 0, 0 }

// Response returns the magnitude response at frequency Hz.
func (b *Biquad) Response(frequency float64) float64 {
	w := 2 * math.Pi * frequency / b.sampleRate
	cosW, sinW := math.Cos(w), math.Sin(w)
	cos2W, sin2W := math.Cos(2*w), math.Sin(2*w)

	numRe := b.b0 + b.b1*cosW + b.b2*cos2W
	numIm := -b.b1*sinW - b.b2*sin2W
	denRe := 1 + b.a1*cosW + b.a2*cos2W
	denIm := -b.a1*sinW - b.a2*sin2W

	return math.Sqrt((numRe*numRe + numIm*numIm) / (denRe*denRe + denIm*denIm))
}
