// SPDX-License-Identifier: MIT

// Package pitch estimates the fundamental frequency of a chunk with the
// McLeod Pitch Method and classifies it on the equal tempered scale.
package pitch

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/sandcore/frequatuner/pkg/bitint"
)

const (
	// DefaultPowerThreshold is the minimum sum of squared samples for a
	// chunk to be analysed at all.
	DefaultPowerThreshold = 0.00005
	// DefaultClarityThreshold picks the first NSDF key maximum reaching this
	// fraction of the highest one.
	DefaultClarityThreshold = 0.5
)

// Pitch is one raw estimate.
type Pitch struct {
	Frequency float64 // Hz
	Clarity   float64 // NSDF value at the chosen peak, at most 1
}

// McLeod detects pitch on windows of a fixed size. Lags are searched up to
// the padding length, so the lowest detectable frequency is
// sampleRate/padding. A McLeod is not safe for concurrent use.
type McLeod struct {
	size    int
	padding int

	powerThreshold   float64
	clarityThreshold float64

	signal []float64 // zero padded to a power of two
	nsdf   []float64
	peaks  []int
}

// NewMcLeod returns a detector for windows of size samples. Lags are
// searched up to padding, so the lowest detectable pitch is
// sampleRate/padding; callers that need bass notes must raise the window
// and padding.
func NewMcLeod(size, padding int, powerThreshold, clarityThreshold float64) (*McLeod, error) {
	if size < 4 {
		return nil, fmt.Errorf("pitch: window size must be at least 4, got %d", size)
	}
	if padding < 2 || padding >= size {
		return nil, fmt.Errorf("pitch: padding must be in [2, %d), got %d", size, padding)
	}
	if clarityThreshold <= 0 || clarityThreshold > 1 {
		return nil, fmt.Errorf("pitch: clarity threshold must be in (0, 1], got %g", clarityThreshold)
	}
	if powerThreshold < 0 {
		return nil, fmt.Errorf("pitch: power threshold must not be negative, got %g", powerThreshold)
	}

	return &McLeod{
		size:             size,
		padding:          padding,
		powerThreshold:   powerThreshold,
		clarityThreshold: clarityThreshold,
		signal:           make([]float64, bitint.NextPowerOfTwo(size+padding)),
		nsdf:             make([]float64, padding+1),
		peaks:            make([]int, 0, padding/2),
	}, nil
}

// Size returns the analysis window length.
func (d *McLeod) Size() int { return d.size }

// Detect estimates the pitch of chunk. It reports false when the chunk is
// below the power threshold or the NSDF has no usable key maximum.
func (d *McLeod) Detect(chunk []float32, sampleRate float64) (Pitch, bool) {
	n := min(len(chunk), d.size)
	if n < 4 || sampleRate <= 0 {
		return Pitch{}, false
	}

	var power float64
	for i := range d.signal {
		var x float64
		if i < n {
			x = float64(chunk[i])
		}
		d.signal[i] = x
		power += x * x
	}
	if power < d.powerThreshold {
		return Pitch{}, false
	}

	d.normalizedSquareDifference(n, power)
	d.findKeyMaxima()
	if len(d.peaks) == 0 {
		return Pitch{}, false
	}

	var highest float64
	for _, p := range d.peaks {
		highest = math.Max(highest, d.nsdf[p])
	}
	threshold := d.clarityThreshold * highest

	chosen := d.peaks[0]
	for _, p := range d.peaks {
		if d.nsdf[p] >= threshold {
			chosen = p
			break
		}
	}

	lag, clarity := d.interpolate(chosen)
	if lag <= 0 {
		return Pitch{}, false
	}
	return Pitch{Frequency: sampleRate / lag, Clarity: clarity}, true
}

// normalizedSquareDifference fills d.nsdf for lags [0, padding]. The
// autocorrelation comes from the power spectrum of the zero padded window,
// which is long enough that no lag in range wraps around.
func (d *McLeod) normalizedSquareDifference(n int, power float64) {
	spectrum := fft.FFTReal(d.signal)
	for i, c := range spectrum {
		spectrum[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	acf := fft.IFFT(spectrum)

	x := d.signal
	m := 2 * power
	maxLag := min(d.padding, n-1)
	for tau := range d.nsdf {
		if tau > maxLag {
			d.nsdf[tau] = 0
			continue
		}
		if tau > 0 {
			m -= x[tau-1]*x[tau-1] + x[n-tau]*x[n-tau]
		}
		if m > 0 {
			d.nsdf[tau] = 2 * real(acf[tau]) / m
		} else {
			d.nsdf[tau] = 0
		}
	}
}

// findKeyMaxima records the highest point of every positive NSDF region
// after the first zero crossing. A region still open at the last lag is
// not counted.
func (d *McLeod) findKeyMaxima() {
	d.peaks = d.peaks[:0]

	i := 1
	for i < len(d.nsdf) && d.nsdf[i] > 0 {
		i++
	}

	inRegion, best := false, 0
	for ; i < len(d.nsdf); i++ {
		switch {
		case d.nsdf[i] > 0 && !inRegion:
			inRegion, best = true, i
		case d.nsdf[i] > 0 && d.nsdf[i] > d.nsdf[best]:
			best = i
		case d.nsdf[i] <= 0 && inRegion:
			d.peaks = append(d.peaks, best)
			inRegion = false
		}
	}
}

// interpolate fits a parabola through the peak and its neighbours and
// returns the refined lag and height.
func (d *McLeod) interpolate(peak int) (lag, height float64) {
	if peak <= 0 || peak >= len(d.nsdf)-1 {
		return float64(peak), d.nsdf[peak]
	}

	y0, y1, y2 := d.nsdf[peak-1], d.nsdf[peak], d.nsdf[peak+1]
	a := (y0 - 2*y1 + y2) / 2
	b := (y2 - y0) / 2
	if a == 0 {
		return float64(peak), y1
	}

	delta := -b / (2 * a)
	return float64(peak) + delta, y1 - b*b/(4*a)
}
