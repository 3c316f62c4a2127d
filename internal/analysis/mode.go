// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Mode selects which analysis path consumes incoming samples.
type Mode int32

const (
	Equalizer Mode = iota
	Tuner
)

func (m Mode) String() string {
	switch m {
	case Equalizer:
		return "equalizer"
	case Tuner:
		return "tuner"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == Tuner {
		return Equalizer
	}
	return Tuner
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode converts a case-insensitive name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "equalizer", "eq", "spectrum":
		return Equalizer, nil
	case "tuner", "pitch":
		return Tuner, nil
	default:
		return Equalizer, fmt.Errorf("analysis: unknown mode %q", s)
	}
}

// ModeSwitch carries a toggle request from an interrupt-like context (key
// press, signal handler) to the control loop. Request may be called from any
// goroutine; Consume is called by the loop between iterations so a switch
// never lands in the middle of a chunk.
type ModeSwitch struct {
	requested atomic.Bool
}

// Request asks for the mode to be toggled. Repeated requests before the
// loop consumes them collapse into one.
func (s *ModeSwitch) Request() { s.requested.Store(true) }

// Consume reports whether a toggle was requested and clears the request.
func (s *ModeSwitch) Consume() bool { return s.requested.Swap(false) }
