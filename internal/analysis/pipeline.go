// SPDX-License-Identifier: MIT

// Package analysis is the audio analysis core: it accumulates samples into
// fixed chunks and runs exactly one of two paths per chunk, a logarithmic
// spectrum equalizer or a smoothed pitch tuner.
//
// Everything here runs on a single goroutine. The only value shared with
// other goroutines is the ModeSwitch flag; hosts hand results to other
// goroutines as immutable Frame snapshots.
package analysis

import (
	"errors"
	"fmt"

	"github.com/sandcore/frequatuner/internal/fft"
	"github.com/sandcore/frequatuner/internal/filter"
	"github.com/sandcore/frequatuner/internal/pitch"
)

// Options configures a Pipeline. Start from DefaultOptions.
type Options struct {
	SampleRate float64
	ChunkSize  int
	Bins       int

	MinFrequency float64
	MaxFrequency float64

	AdaptiveEdges     bool
	AdaptiveThreshold float64

	Window fft.WindowFunc

	// InputGain multiplies every sample before filtering.
	InputGain float64
	// PreFilter is nil when the pre-filter is disabled.
	PreFilter *filter.Options

	PowerThreshold   float64
	ClarityThreshold float64
	InTuneCents      float64

	// DisplayRows, when positive, must equal Bins.
	DisplayRows int
}

// DefaultOptions matches a 32 row display fed at 48 kHz.
func DefaultOptions() Options {
	return Options{
		SampleRate:        48000,
		ChunkSize:         2048,
		Bins:              32,
		MinFrequency:      70,
		MaxFrequency:      1500,
		AdaptiveThreshold: DefaultAdaptiveThreshold,
		Window:            fft.Rectangular,
		InputGain:         2,
		PowerThreshold:    pitch.DefaultPowerThreshold,
		ClarityThreshold:  pitch.DefaultClarityThreshold,
		InTuneCents:       pitch.DefaultInTuneCents,
	}
}

// Validate reports every inconsistency in o at once.
func (o Options) Validate() error {
	var errs []error
	if o.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %g", o.SampleRate))
	}
	if o.ChunkSize < 4 {
		errs = append(errs, fmt.Errorf("chunk size must be at least 4, got %d", o.ChunkSize))
	}
	if o.Bins < 1 {
		errs = append(errs, fmt.Errorf("bin count must be at least 1, got %d", o.Bins))
	}
	if o.MinFrequency >= o.MaxFrequency {
		errs = append(errs, fmt.Errorf("min frequency %g Hz must be below max frequency %g Hz", o.MinFrequency, o.MaxFrequency))
	}
	if o.SampleRate > 0 && o.ChunkSize >= 4 {
		if lo, hi := FrequencyRange(o.SampleRate, o.ChunkSize, o.MinFrequency, o.MaxFrequency); lo >= hi {
			errs = append(errs, fmt.Errorf("frequency range [%g, %g] Hz is empty at this sample rate and chunk size", lo, hi))
		}
	}
	if o.InputGain <= 0 {
		errs = append(errs, fmt.Errorf("input gain must be positive, got %g", o.InputGain))
	}
	if o.AdaptiveEdges && (o.AdaptiveThreshold <= 0 || o.AdaptiveThreshold >= 1) {
		errs = append(errs, fmt.Errorf("adaptive threshold must be in (0, 1), got %g", o.AdaptiveThreshold))
	}
	if o.InTuneCents <= 0 || o.InTuneCents > 50 {
		errs = append(errs, fmt.Errorf("in-tune window must be in (0, 50] cents, got %g", o.InTuneCents))
	}
	if o.DisplayRows > 0 && o.DisplayRows != o.Bins {
		errs = append(errs, fmt.Errorf("bin count %d must equal display rows %d", o.Bins, o.DisplayRows))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("analysis: invalid options: %w", err)
	}
	return nil
}

// Stats counts pipeline activity since construction.
type Stats struct {
	EqualizerChunks uint64
	TunerChunks     uint64
	Detections      uint64 // chunks with a raw pitch
	Notes           uint64 // smoothed pitches classified as a note
	Rejections      uint64 // smoothed pitches outside the note range
}

// Pipeline is the analysis entry point. Both paths keep their own pending
// samples and smoothing state; switching modes never resets either.
type Pipeline struct {
	opts Options

	gain      float32
	preFilter *filter.PreFilter
	scratch   []float32

	equalizer *EqualizerPath
	tuner     *TunerPath
	paths     [2]Path
}

// NewPipeline validates o and allocates every buffer the hot path needs.
func NewPipeline(o Options) (*Pipeline, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{opts: o, gain: float32(o.InputGain)}

	if o.PreFilter != nil {
		fo := *o.PreFilter
		fo.SampleRate = o.SampleRate
		pf, err := filter.NewPreFilter(fo)
		if err != nil {
			return nil, fmt.Errorf("analysis: pre-filter: %w", err)
		}
		p.preFilter = pf
	}

	eq, err := newEqualizerPath(o)
	if err != nil {
		return nil, err
	}
	tu, err := newTunerPath(o)
	if err != nil {
		return nil, err
	}
	p.equalizer, p.tuner = eq, tu
	p.paths = [2]Path{Equalizer: eq, Tuner: tu}
	return p, nil
}

// IngestAndProcess conditions samples and feeds them to the path of mode.
// Every chunk completed by this call is analysed before it returns.
func (p *Pipeline) IngestAndProcess(samples []float32, mode Mode) {
	if len(samples) == 0 {
		return
	}
	p.path(mode).Ingest(p.condition(samples))
}

// condition applies the input gain and the optional pre-filter. The input
// slice is never modified.
func (p *Pipeline) condition(samples []float32) []float32 {
	if p.gain == 1 && p.preFilter == nil {
		return samples
	}

	if cap(p.scratch) < len(samples) {
		p.scratch = make([]float32, len(samples))
	}
	out := p.scratch[:len(samples)]
	for i, s := range samples {
		out[i] = s * p.gain
	}
	if p.preFilter != nil {
		p.preFilter.Process(out)
	}
	return out
}

func (p *Pipeline) path(mode Mode) Path {
	if mode == Tuner {
		return p.paths[Tuner]
	}
	return p.paths[Equalizer]
}

// LatestBins returns the most recent equalizer bins, nil before the first
// chunk.
func (p *Pipeline) LatestBins() []float64 { return p.equalizer.Latest() }

// LatestNote returns the most recent note, false while absent.
func (p *Pipeline) LatestNote() (pitch.Note, bool) { return p.tuner.Latest() }

// LatestOutput returns the latest result of mode as a Frame without a
// sequence number.
func (p *Pipeline) LatestOutput(mode Mode) Frame {
	if mode == Tuner {
		f := Frame{Mode: Tuner}
		if n, ok := p.tuner.Latest(); ok {
			f.Note = &n
		}
		return f
	}
	f := Frame{Mode: Equalizer, Bins: p.equalizer.Latest()}
	if p.opts.AdaptiveEdges && f.Bins != nil {
		f.Edges = p.equalizer.Edges()
	}
	return f
}

// Stats returns the activity counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		EqualizerChunks: p.equalizer.chunks,
		TunerChunks:     p.tuner.chunks,
		Detections:      p.tuner.detections,
		Notes:           p.tuner.notes,
		Rejections:      p.tuner.rejections,
	}
}

// Pending returns the samples waiting in the accumulator of mode.
func (p *Pipeline) Pending(mode Mode) int { return p.path(mode).Pending() }

// Edges returns the equalizer bin edges in use.
func (p *Pipeline) Edges() []float64 { return p.equalizer.Edges() }

// Options returns the configuration the pipeline was built with.
func (p *Pipeline) Options() Options { return p.opts }
