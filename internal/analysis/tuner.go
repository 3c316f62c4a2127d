// SPDX-License-Identifier: MIT
package analysis

import (
	"github.com/sandcore/frequatuner/internal/buffer"
	"github.com/sandcore/frequatuner/internal/pitch"
)

// TunerPath estimates pitch per chunk, smooths it over two chunks and
// classifies the result.
type TunerPath struct {
	acc        *buffer.Accumulator
	detector   *pitch.McLeod
	history    PitchHistory
	sampleRate float64
	inTune     float64
	process    func([]float32)

	note    pitch.Note
	hasNote bool

	chunks     uint64
	detections uint64
	notes      uint64
	rejections uint64
}

func newTunerPath(o Options) (*TunerPath, error) {
	detector, err := pitch.NewMcLeod(o.ChunkSize, o.ChunkSize/2, o.PowerThreshold, o.ClarityThreshold)
	if err != nil {
		return nil, err
	}

	t := &TunerPath{
		acc:        buffer.NewAccumulator(o.ChunkSize),
		detector:   detector,
		sampleRate: o.SampleRate,
		inTune:     o.InTuneCents,
	}
	t.process = t.ProcessChunk
	return t, nil
}

// Ingest implements Path.
func (t *TunerPath) Ingest(samples []float32) int {
	return t.acc.Ingest(samples, t.process)
}

// ProcessChunk implements ChunkProcessor. A chunk without a pitch leaves
// both the history and the latest note untouched.
func (t *TunerPath) ProcessChunk(chunk []float32) {
	t.chunks++

	p, ok := t.detector.Detect(chunk, t.sampleRate)
	if !ok {
		return
	}
	t.detections++

	mean, ok := t.history.Push(p.Frequency)
	if !ok {
		return
	}

	note, err := pitch.NoteFromFrequency(mean, t.inTune)
	if err != nil {
		t.hasNote = false
		t.rejections++
		return
	}
	t.note, t.hasNote = note, true
	t.notes++
}

// Pending implements Path.
func (t *TunerPath) Pending() int { return t.acc.Len() }

// Latest returns the most recent note, false while absent.
func (t *TunerPath) Latest() (pitch.Note, bool) { return t.note, t.hasNote }

// History exposes the smoothing state.
func (t *TunerPath) History() *PitchHistory { return &t.history }
