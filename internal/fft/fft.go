// SPDX-License-Identifier: MIT

// Package fft is the spectral transform stage: a forward complex DFT over a
// fixed-length chunk of real samples.
package fft

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/sandcore/frequatuner/internal/log"
	"github.com/sandcore/frequatuner/pkg/bitint"
)

// Transformer computes the unnormalized forward DFT of a real chunk. The
// chunk is widened to complex with zero imaginary parts and transformed in
// place in a pre-allocated workspace. A Transformer is not safe for
// concurrent use.
type Transformer struct {
	size   int
	fft    *fourier.CmplxFFT
	work   []complex128
	window []float64 // nil for Rectangular
	wf     WindowFunc
}

// NewTransformer returns a Transformer for chunks of size samples. Any size
// works; powers of two take the radix-2 path.
func NewTransformer(size int, wf WindowFunc) (*Transformer, error) {
	if size < 2 {
		return nil, fmt.Errorf("fft: transform size must be at least 2, got %d", size)
	}
	if !bitint.IsPowerOfTwo(size) {
		log.Named("fft").Debugf("transform size %d is not a power of two", size)
	}

	return &Transformer{
		size:   size,
		fft:    fourier.NewCmplxFFT(size),
		work:   make([]complex128, size),
		window: wf.coefficients(size),
		wf:     wf,
	}, nil
}

// Forward transforms chunk and returns the full length coefficient slice.
// Chunks shorter than the transform size are zero padded, longer ones are
// truncated. The returned slice is owned by the Transformer and is
// overwritten by the next call.
func (t *Transformer) Forward(chunk []float32) []complex128 {
	for i := range t.work {
		var v float64
		if i < len(chunk) {
			v = float64(chunk[i])
		}
		if t.window != nil {
			v *= t.window[i]
		}
		t.work[i] = complex(v, 0)
	}
	return t.fft.Coefficients(t.work, t.work)
}

// Size returns the transform length.
func (t *Transformer) Size() int { return t.size }

// Window returns the configured analysis window.
func (t *Transformer) Window() WindowFunc { return t.wf }

// Resolution returns the spacing between coefficients in Hz.
func (t *Transformer) Resolution(sampleRate float64) float64 {
	return sampleRate / float64(t.size)
}
