// SPDX-License-Identifier: MIT
package analysis

import "github.com/sandcore/frequatuner/internal/pitch"

// EventModeSwitch marks a frame published right after a mode toggle.
const EventModeSwitch = "mode"

// Frame is an immutable snapshot of the pipeline output handed to displays
// and transports. Equalizer frames carry Bins, tuner frames carry Note,
// which is nil while no note is known. Edges is set on equalizer frames
// only when the edges adapt per chunk.
type Frame struct {
	Seq   uint64      `json:"seq"`
	Mode  Mode        `json:"mode"`
	Bins  []float64   `json:"bins,omitempty"`
	Edges []float64   `json:"edges,omitempty"`
	Note  *pitch.Note `json:"note,omitempty"`
	Event string      `json:"event,omitempty"`
}

// Values flattens the frame for binary transports. Equalizer frames yield
// their bins. Tuner frames yield actual frequency, note frequency, cents,
// octave, note index and an in-tune flag, or nothing when no note is known.
func (f *Frame) Values() []float64 {
	if f.Mode == Equalizer {
		return f.Bins
	}
	if f.Note == nil {
		return nil
	}

	inTune := 0.0
	if f.Note.InTune {
		inTune = 1
	}
	return []float64{
		f.Note.ActualFrequency,
		f.Note.NoteFrequency,
		f.Note.CentsOffset,
		float64(f.Note.Octave),
		float64(f.Note.Index()),
		inTune,
	}
}
