// SPDX-License-Identifier: MIT
package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandcore/frequatuner/internal/analysis"
	"github.com/sandcore/frequatuner/internal/config"
	"github.com/sandcore/frequatuner/internal/pitch"
)

type fakeSource struct {
	frame   *analysis.Frame
	mode    analysis.Mode
	toggles int
}

func (s *fakeSource) Latest() *analysis.Frame { return s.frame }
func (s *fakeSource) Mode() analysis.Mode     { return s.mode }
func (s *fakeSource) ToggleMode()             { s.toggles++ }

func testDisplayConfig() config.DisplayConfig {
	return config.DisplayConfig{Enabled: true, Rows: 4, Columns: 8, FrameInterval: 10 * time.Millisecond}
}

func tick(t *testing.T, d Display) Display {
	t.Helper()
	m, cmd := d.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick must schedule the next tick")
	}
	return m.(Display)
}

func mustNote(t *testing.T, freq float64) *pitch.Note {
	t.Helper()
	n, err := pitch.NoteFromFrequency(freq, pitch.DefaultInTuneCents)
	if err != nil {
		t.Fatalf("NoteFromFrequency(%v): %v", freq, err)
	}
	return &n
}

func TestBarCells(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{0, 0},
		{-0.5, 0},
		{0.01, 1},
		{0.125, 1},
		{0.126, 2},
		{0.5, 4},
		{1, 8},
		{1.5, 8},
	}
	for _, tt := range tests {
		if got := BarCells(tt.v, 8); got != tt.want {
			t.Errorf("BarCells(%v, 8) = %d, want %d", tt.v, got, tt.want)
		}
	}
	if got := BarCells(1, 0); got != 0 {
		t.Errorf("BarCells with no columns = %d", got)
	}
}

func TestNeedle(t *testing.T) {
	tests := []struct {
		cents float64
		pos   int
	}{
		{0, needleHalfWidth},
		{50, 2 * needleHalfWidth},
		{-50, 0},
		{-80, 0},
		{25, needleHalfWidth + 10},
	}
	for _, tt := range tests {
		scale := []rune(strings.TrimSuffix(strings.TrimPrefix(Needle(tt.cents), "-50 "), " +50"))
		if len(scale) != 2*needleHalfWidth+1 {
			t.Fatalf("scale width = %d", len(scale))
		}
		if scale[tt.pos] != '▲' {
			t.Errorf("Needle(%v): marker not at %d: %q", tt.cents, tt.pos, string(scale))
		}
	}
}

func TestDisplayEqualizer(t *testing.T) {
	src := &fakeSource{frame: &analysis.Frame{Seq: 1, Bins: []float64{0, 0.5, 1, 0.1}}}
	edges := []float64{70, 100, 200, 400, 800, 1000, 1500}
	d := tick(t, NewDisplay(src, testDisplayConfig(), edges))

	view := d.View()
	for _, want := range []string{"equalizer", "████····", "████████", "█·······", "200", "m/space: switch mode"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "70 ") {
		t.Error("the lower guard edge must not label a row")
	}
}

func TestDisplayLabelsFollowFrameEdges(t *testing.T) {
	src := &fakeSource{frame: &analysis.Frame{
		Seq:   1,
		Bins:  []float64{1, 1, 1, 1},
		Edges: []float64{35, 55, 90, 150, 250, 400, 600},
	}}
	d := tick(t, NewDisplay(src, testDisplayConfig(), []float64{70, 100, 200, 400, 800, 1000, 1500}))

	view := d.View()
	for _, want := range []string{"150", "250"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing label %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "800") {
		t.Errorf("startup edges used despite frame edges:\n%s", view)
	}

	src.frame = &analysis.Frame{Seq: 2, Bins: []float64{1, 1, 1, 1}, Edges: []float64{1, 2}}
	d = tick(t, d)
	if view := d.View(); !strings.Contains(view, "800") {
		t.Errorf("frame edges of the wrong length should fall back to the startup edges:\n%s", view)
	}
}

func TestDisplayIgnoresMismatchedEdges(t *testing.T) {
	d := NewDisplay(&fakeSource{}, testDisplayConfig(), []float64{1, 2})
	if d.edges != nil {
		t.Error("edges of the wrong length should be dropped")
	}
	if d.interval != 10*time.Millisecond {
		t.Errorf("interval = %v", d.interval)
	}
	if NewDisplay(&fakeSource{}, config.DisplayConfig{Rows: 1}, nil).interval != config.DefaultFrameInterval {
		t.Error("zero interval should fall back to the default")
	}
}

func TestDisplayTunerHoldsNote(t *testing.T) {
	src := &fakeSource{mode: analysis.Tuner}
	d := NewDisplay(src, testDisplayConfig(), nil)

	if view := d.View(); !strings.Contains(view, "listening...") {
		t.Errorf("view without note:\n%s", view)
	}

	src.frame = &analysis.Frame{Seq: 1, Mode: analysis.Tuner, Note: mustNote(t, 440)}
	d = tick(t, d)
	view := d.View()
	for _, want := range []string{"A4", "G#", "A#", "440.00 Hz", "target 440.00 Hz"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	src.frame = &analysis.Frame{Seq: 2, Mode: analysis.Tuner}
	d = tick(t, d)
	if !strings.Contains(d.View(), "A4") {
		t.Error("the last note should be held while no note is known")
	}
}

func TestDisplayRepaintsOnlyNewFrames(t *testing.T) {
	first := &analysis.Frame{Seq: 5, Bins: []float64{1, 1, 1, 1}}
	src := &fakeSource{frame: first}
	d := tick(t, NewDisplay(src, testDisplayConfig(), nil))

	src.frame = &analysis.Frame{Seq: 5, Bins: []float64{0, 0, 0, 0}}
	d = tick(t, d)
	if d.frame != first {
		t.Error("a frame with an already seen sequence must be ignored")
	}
}

func TestDisplayKeys(t *testing.T) {
	src := &fakeSource{}
	d := NewDisplay(src, testDisplayConfig(), nil)

	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'m'}},
		{Type: tea.KeySpace},
	} {
		m, cmd := d.Update(msg)
		d = m.(Display)
		if cmd != nil {
			t.Errorf("toggle key %q returned a command", msg.String())
		}
	}
	if src.toggles != 2 {
		t.Errorf("toggles = %d, want 2", src.toggles)
	}

	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}
