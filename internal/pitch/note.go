// SPDX-License-Identifier: MIT
package pitch

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned for frequencies that do not map to a note in
// octaves 0 through 9.
var ErrOutOfRange = errors.New("pitch: frequency out of range")

const (
	// ConcertA is the reference pitch of A4.
	ConcertA = 440.0
	// DefaultInTuneCents is the deviation below which a note counts as in tune.
	DefaultInTuneCents = 10.0

	midiA4 = 69
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note describes the nearest equal tempered note to a frequency.
type Note struct {
	ActualFrequency float64 `json:"actual_frequency"`
	Name            string  `json:"name"`
	NoteFrequency   float64 `json:"note_frequency"`
	Octave          int     `json:"octave"`
	CentsOffset     float64 `json:"cents_offset"` // within [-50, 50]
	PreviousName    string  `json:"previous_name"`
	NextName        string  `json:"next_name"`
	InTune          bool    `json:"in_tune"`
}

func (n Note) String() string {
	return fmt.Sprintf("%s%d %+.1f cents (%.2f Hz)", n.Name, n.Octave, n.CentsOffset, n.ActualFrequency)
}

// Index returns the position of the note name within the octave, C = 0.
func (n Note) Index() int {
	for i, name := range noteNames {
		if name == n.Name {
			return i
		}
	}
	return -1
}

// NoteFromFrequency rounds frequency to the nearest semitone relative to
// A4 = 440 Hz. inTuneCents sets the InTune window.
func NoteFromFrequency(frequency, inTuneCents float64) (Note, error) {
	if frequency <= 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return Note{}, fmt.Errorf("%w: %g Hz", ErrOutOfRange, frequency)
	}

	steps := 12 * math.Log2(frequency/ConcertA)
	nearest := math.Round(steps)
	midi := midiA4 + int(nearest)

	octave := midi/12 - 1
	if midi < 0 || octave < 0 || octave > 9 {
		return Note{}, fmt.Errorf("%w: %g Hz", ErrOutOfRange, frequency)
	}

	idx := midi % 12
	cents := (steps - nearest) * 100
	return Note{
		ActualFrequency: frequency,
		Name:            noteNames[idx],
		NoteFrequency:   ConcertA * math.Pow(2, nearest/12),
		Octave:          octave,
		CentsOffset:     cents,
		PreviousName:    noteNames[(idx+11)%12],
		NextName:        noteNames[(idx+1)%12],
		InTune:          math.Abs(cents) < inTuneCents,
	}, nil
}
