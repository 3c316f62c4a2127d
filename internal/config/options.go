// SPDX-License-Identifier: MIT
package config

import (
	"github.com/sandcore/frequatuner/internal/analysis"
	"github.com/sandcore/frequatuner/internal/fft"
	"github.com/sandcore/frequatuner/internal/filter"
)

func parseMode(s string) (analysis.Mode, error) { return analysis.ParseMode(s) }

func parseWindow(s string) (fft.WindowFunc, error) { return fft.ParseWindow(s) }

// InitialMode returns the mode the engine starts in.
func (c *Config) InitialMode() analysis.Mode {
	m, _ := parseMode(c.Analysis.Mode)
	return m
}

// AnalysisOptions derives the pipeline options. The configuration must
// have passed Validate.
func (c *Config) AnalysisOptions() analysis.Options {
	window, _ := parseWindow(c.Analysis.FFTWindow)

	o := analysis.Options{
		SampleRate:        c.Audio.SampleRate,
		ChunkSize:         c.Analysis.ChunkSize,
		Bins:              c.Analysis.Bins,
		MinFrequency:      c.Analysis.MinFrequency,
		MaxFrequency:      c.Analysis.MaxFrequency,
		AdaptiveEdges:     c.Analysis.AdaptiveEdges,
		AdaptiveThreshold: c.Analysis.AdaptiveThreshold,
		Window:            window,
		InputGain:         c.Audio.InputGain,
		PowerThreshold:    c.Tuner.PowerThreshold,
		ClarityThreshold:  c.Tuner.ClarityThreshold,
		InTuneCents:       c.Tuner.InTuneCents,
		DisplayRows:       c.Display.Rows,
	}
	if c.Filter.Enabled {
		o.PreFilter = &filter.Options{
			SampleRate: c.Audio.SampleRate,
			LowPassHz:  c.Filter.LowPassHz,
			HighPassHz: c.Filter.HighPassHz,
			Q:          c.Filter.Q,
			BlockSize:  c.Filter.BlockSize,
		}
	}
	return o
}
