// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sandcore/frequatuner/internal/config"
)

func parse(t *testing.T, args ...string) (*Options, string, error) {
	t.Helper()
	var out bytes.Buffer
	opts, err := ParseArgs(args, &out)
	return opts, out.String(), err
}

func TestParseArgsDefaults(t *testing.T) {
	opts, _, err := parse(t)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if opts.Command != CommandRun {
		t.Errorf("Command = %q, want %q", opts.Command, CommandRun)
	}

	want := config.NewConfig()
	got := opts.Config
	if got.Audio != want.Audio || got.Analysis != want.Analysis || got.Display != want.Display {
		t.Errorf("defaults changed without flags:\n got %+v\nwant %+v", got, want)
	}
}

func TestParseArgsFlagsOverlay(t *testing.T) {
	opts, _, err := parse(t,
		"--device", "2",
		"-s", "44100",
		"--mode", "tuner",
		"--window", "hann",
		"--filter",
		"--no-display",
		"--udp", "192.168.1.50:9000",
		"--record", "-o", "takes",
		"-v",
	)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	cfg := opts.Config

	tests := []struct {
		name string
		ok   bool
	}{
		{"device", cfg.Audio.InputDevice == 2},
		{"sample rate", cfg.Audio.SampleRate == 44100},
		{"mode", cfg.Analysis.Mode == "tuner"},
		{"window", cfg.Analysis.FFTWindow == "hann"},
		{"filter", cfg.Filter.Enabled},
		{"display", !cfg.Display.Enabled},
		{"udp", cfg.Transport.UDPEnabled && cfg.Transport.UDPTargetAddress == "192.168.1.50:9000"},
		{"recording", cfg.Recording.Enabled && cfg.Recording.OutputDir == "takes"},
		{"debug", cfg.Debug},
		{"untouched gain", cfg.Audio.InputGain == config.DefaultInputGain},
	}
	for _, tt := range tests {
		if !tt.ok {
			t.Errorf("%s not applied", tt.name)
		}
	}
}

func TestParseArgsFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	yaml := "audio:\n  sample_rate: 96000\n  input_gain: 1.5\nanalysis:\n  mode: tuner\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, _, err := parse(t, "--config", path, "--mode", "equalizer")
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if opts.ConfigPath != path {
		t.Errorf("ConfigPath = %q", opts.ConfigPath)
	}
	cfg := opts.Config
	if cfg.Audio.SampleRate != 96000 || cfg.Audio.InputGain != 1.5 {
		t.Errorf("file values lost: %g Hz, gain %g", cfg.Audio.SampleRate, cfg.Audio.InputGain)
	}
	if cfg.Analysis.Mode != "equalizer" {
		t.Errorf("mode = %q, flag should win over the file", cfg.Analysis.Mode)
	}
}

func TestParseArgsCommands(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		command Command
		file    string
		sel     bool
	}{
		{"list", []string{"list"}, CommandList, "", false},
		{"list select", []string{"list", "--select"}, CommandList, "", true},
		{"analyze", []string{"analyze", "take.wav", "--mode", "tuner"}, CommandAnalyze, "take.wav", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, _, err := parse(t, tt.args...)
			if err != nil {
				t.Fatalf("ParseArgs: %v", err)
			}
			if opts.Command != tt.command || opts.InputFile != tt.file || opts.Select != tt.sel {
				t.Errorf("got %+v", opts)
			}
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"analyze without file", []string{"analyze"}},
		{"unknown flag", []string{"--bogus"}},
		{"stray argument", []string{"extra"}},
		{"missing config", []string{"--config", filepath.Join(os.TempDir(), "does-not-exist.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := parse(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseArgsInvalidFlagValue(t *testing.T) {
	_, _, err := parse(t, "--mode", "karaoke")
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("error = %v, want config.ErrInvalid", err)
	}
}

func TestParseArgsVersion(t *testing.T) {
	opts, out, err := parse(t, "--version")
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if opts.Command != CommandNone {
		t.Errorf("Command = %q, want none", opts.Command)
	}
	if !strings.HasPrefix(out, "frequatuner ") {
		t.Errorf("version output = %q", out)
	}
}
