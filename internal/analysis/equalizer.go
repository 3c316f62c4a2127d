// SPDX-License-Identifier: MIT
package analysis

import (
	"github.com/sandcore/frequatuner/internal/buffer"
	"github.com/sandcore/frequatuner/internal/fft"
)

// EqualizerPath turns chunks into normalized logarithmic magnitude bins.
type EqualizerPath struct {
	acc       *buffer.Accumulator
	transform *fft.Transformer
	mapper    *BinMapper
	process   func([]float32)

	latest []float64
	chunks uint64
}

func newEqualizerPath(o Options) (*EqualizerPath, error) {
	transform, err := fft.NewTransformer(o.ChunkSize, o.Window)
	if err != nil {
		return nil, err
	}
	mapper, err := NewBinMapper(o.SampleRate, o.ChunkSize, o.Bins, o.MinFrequency, o.MaxFrequency)
	if err != nil {
		return nil, err
	}
	if o.AdaptiveEdges {
		mapper.EnableAdaptive(o.AdaptiveThreshold)
	}

	e := &EqualizerPath{
		acc:       buffer.NewAccumulator(o.ChunkSize),
		transform: transform,
		mapper:    mapper,
	}
	e.process = e.ProcessChunk
	return e, nil
}

// Ingest implements Path.
func (e *EqualizerPath) Ingest(samples []float32) int {
	return e.acc.Ingest(samples, e.process)
}

// ProcessChunk implements ChunkProcessor.
func (e *EqualizerPath) ProcessChunk(chunk []float32) {
	e.latest = e.mapper.Map(e.transform.Forward(chunk))
	e.chunks++
}

// Pending implements Path.
func (e *EqualizerPath) Pending() int { return e.acc.Len() }

// Latest returns the bins of the most recent chunk, nil before the first.
// The slice is never modified after it is returned.
func (e *EqualizerPath) Latest() []float64 { return e.latest }

// Edges returns the bin edges in use.
func (e *EqualizerPath) Edges() []float64 { return e.mapper.Edges() }
