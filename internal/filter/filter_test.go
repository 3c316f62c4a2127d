// SPDX-License-Identifier: MIT
package filter

import (
	"math"
	"testing"

	"github.com/sandcore/frequatuner/pkg/utils"
)

const testSampleRate = 48000.0

func TestBiquadResponse(t *testing.T) {
	lp, err := NewBiquad(LowPass, testSampleRate, 1000, 0.707)
	if err != nil {
		t.Fatal(err)
	}
	hp, err := NewBiquad(HighPass, testSampleRate, 1000, 0.707)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		b        *Biquad
		freq     float64
		min, max float64
	}{
		{"lowpass passband", lp, 50, 0.98, 1.02},
		{"lowpass cutoff", lp, 1000, 0.68, 0.73},
		{"lowpass stopband", lp, 10000, 0, 0.02},
		{"highpass passband", hp, 15000, 0.98, 1.02},
		{"highpass cutoff", hp, 1000, 0.68, 0.73},
		{"highpass stopband", hp, 50, 0, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.b.Response(tt.freq)
			if got < tt.min || got > tt.max {
				t.Errorf("|H(%g)| = %.4f, want in [%g, %g]", tt.freq, got, tt.min, tt.max)
			}
		})
	}
}

func TestNewBiquadRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name          string
		sr, cutoff, q float64
	}{
		{"zero sample rate", 0, 100, 0.7},
		{"zero cutoff", testSampleRate, 0, 0.7},
		{"negative Q", testSampleRate, 100, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBiquad(LowPass, tt.sr, tt.cutoff, tt.q); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPreFilterRemovesRumble(t *testing.T) {
	pf, err := NewPreFilter(DefaultOptions(testSampleRate))
	if err != nil {
		t.Fatal(err)
	}

	rumble := utils.SineWave(48000, testSampleRate, 8, 1)
	pf.Process(rumble)

	// Skip the first 100 ms of settling.
	var peak float64
	for _, s := range rumble[4800:] {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	if peak > 0.1 {
		t.Errorf("8 Hz peak after filtering = %.3f, want < 0.1", peak)
	}

	if r := pf.Response(440); r < 0.95 || r > 1.05 {
		t.Errorf("|H(440)| = %.3f, want ~1", r)
	}
}

func TestPreFilterStateIsContinuous(t *testing.T) {
	signal := utils.ComplexWave(1000, testSampleRate)

	whole, err := NewPreFilter(DefaultOptions(testSampleRate))
	if err != nil {
		t.Fatal(err)
	}
	split, err := NewPreFilter(DefaultOptions(testSampleRate))
	if err != nil {
		t.Fatal(err)
	}

	a := append([]float32(nil), signal...)
	whole.Process(a)

	b := append([]float32(nil), signal...)
	for _, cut := range [][2]int{{0, 13}, {13, 300}, {300, 301}, {301, 1000}} {
		split.Process(b[cut[0]:cut[1]])
	}

	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-6 {
			t.Fatalf("sample %d differs: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestNewPreFilterRejectsInvertedBand(t *testing.T) {
	opts := DefaultOptions(testSampleRate)
	opts.HighPassHz, opts.LowPassHz = 5000, 100
	if _, err := NewPreFilter(opts); err == nil {
		t.Error("expected error for high pass above low pass")
	}
}

func TestPreFilterZeroAllocs(t *testing.T) {
	pf, err := NewPreFilter(DefaultOptions(testSampleRate))
	if err != nil {
		t.Fatal(err)
	}
	buf := utils.ComplexWave(768, testSampleRate)
	allocs := testing.AllocsPerRun(100, func() {
		pf.Process(buf)
	})
	if allocs > 0 {
		t.Errorf("expected zero allocations, got %.1f", allocs)
	}
}

func BenchmarkPreFilter(b *testing.B) {
	pf, err := NewPreFilter(DefaultOptions(testSampleRate))
	if err != nil {
		b.Fatal(err)
	}
	buf := utils.ComplexWave(768, testSampleRate)

	b.ReportAllocs()
	for b.Loop() {
		pf.Process(buf)
	}
}
