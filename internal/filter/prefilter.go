// SPDX-License-Identifier: MIT
package filter

import "fmt"

// Options configures a PreFilter.
type Options struct {
	SampleRate float64
	LowPassHz  float64 // upper cutoff, e.g. 17 kHz
	HighPassHz float64 // lower cutoff, e.g. 35 Hz
	Q          float64
	BlockSize  int // samples processed per pass
}

// DefaultOptions returns the cutoffs used in front of the analysers.
func DefaultOptions(sampleRate float64) Options {
	return Options{
		SampleRate: sampleRate,
		LowPassHz:  17000,
		HighPassHz: 35,
		Q:          0.707,
		BlockSize:  64,
	}
}

// PreFilter runs a low pass followed by a high pass section over the sample
// stream in fixed blocks. Filter state is continuous across calls and is
// never reset while the stream is running.
type PreFilter struct {
	lowPass  *Biquad
	highPass *Biquad
	block    []float64
}

// NewPreFilter validates opts and builds both sections.
func NewPreFilter(opts Options) (*PreFilter, error) {
	if opts.BlockSize <= 0 {
		return nil, fmt.Errorf("filter: block size must be positive, got %d", opts.BlockSize)
	}
	if opts.HighPassHz >= opts.LowPassHz {
		return nil, fmt.Errorf("filter: high pass cutoff %g Hz must be below low pass cutoff %g Hz",
			opts.HighPassHz, opts.LowPassHz)
	}

	lp, err := NewBiquad(LowPass, opts.SampleRate, opts.LowPassHz, opts.Q)
	if err != nil {
		return nil, err
	}
	hp, err := NewBiquad(HighPass, opts.SampleRate, opts.HighPassHz, opts.Q)
	if err != nil {
		return nil, err
	}

	return &PreFilter{
		lowPass:  lp,
		highPass: hp,
		block:    make([]float64, opts.BlockSize),
	}, nil
}

// Process filters samples in place.
func (p *PreFilter) Process(samples []float32) {
	for start := 0; start < len(samples); start += len(p.block) {
		end := min(start+len(p.block), len(samples))
		block := p.block[:end-start]

		for i, s := range samples[start:end] {
			block[i] = float64(s)
		}
		p.lowPass.Process(block)
		p.highPass.Process(block)
		for i, v := range block {
			samples[start+i] = float32(v)
		}
	}
}

// Response returns the combined magnitude response at frequency Hz.
func (p *PreFilter) Response(frequency float64) float64 {
	return p.lowPass.Response(frequency) * p.highPass.Response(frequency)
}
