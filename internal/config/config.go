// SPDX-License-Identifier: MIT

// Package config loads the application configuration from YAML, applies
// environment overrides and validates the result.
package config

import "time"

// Defaults and limits for every configurable value.
const (
	DefaultLogLevel = "info"

	// Audio input.
	DefaultDeviceID        = MinDeviceID
	DefaultSampleRate      = 48000
	DefaultFramesPerBuffer = 768 // one 3072 byte read of 32 bit samples
	DefaultChannels        = 1
	DefaultLowLatency      = false
	DefaultInputGain       = 2.0

	// Analysis.
	DefaultMode              = "equalizer"
	DefaultChunkSize         = 2048
	DefaultBins              = 32
	DefaultMinFrequency      = 70.0
	DefaultMaxFrequency      = 1500.0
	DefaultAdaptiveThreshold = 0.01
	DefaultFFTWindow         = "none"

	// Pre-filter.
	DefaultLowPassHz       = 17000.0
	DefaultHighPassHz      = 35.0
	DefaultFilterQ         = 0.707
	DefaultFilterBlockSize = 64

	// Tuner.
	DefaultPowerThreshold   = 0.00005
	DefaultClarityThreshold = 0.5
	DefaultInTuneCents      = 10.0

	// Display.
	DefaultRows          = 32
	DefaultColumns       = 8
	DefaultFrameInterval = 50 * time.Millisecond

	// Recording.
	DefaultOutputDir = "./recordings"
	DefaultFormat    = "wav"
	DefaultBitDepth  = 16

	// Transport.
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 50 * time.Millisecond
	DefaultWebSocketAddress = ":8080"
	DefaultWebSocketPath    = "/frames"

	// Metrics.
	DefaultMetricsAddress = ":9464"

	// Hardware and processing limits.
	MinDeviceID     = -1 // system default device
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MinChunkSize    = 64
	MaxChunkSize    = 16384
	MaxBufferFrames = 8192
)

// NewConfig returns a Config populated with the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultChannels,
			LowLatency:      DefaultLowLatency,
			InputGain:       DefaultInputGain,
		},
		Analysis: AnalysisConfig{
			Mode:              DefaultMode,
			ChunkSize:         DefaultChunkSize,
			Bins:              DefaultBins,
			MinFrequency:      DefaultMinFrequency,
			MaxFrequency:      DefaultMaxFrequency,
			AdaptiveThreshold: DefaultAdaptiveThreshold,
			FFTWindow:         DefaultFFTWindow,
		},
		Filter: FilterConfig{
			LowPassHz:  DefaultLowPassHz,
			HighPassHz: DefaultHighPassHz,
			Q:          DefaultFilterQ,
			BlockSize:  DefaultFilterBlockSize,
		},
		Tuner: TunerConfig{
			PowerThreshold:   DefaultPowerThreshold,
			ClarityThreshold: DefaultClarityThreshold,
			InTuneCents:      DefaultInTuneCents,
		},
		Display: DisplayConfig{
			Enabled:       true,
			Rows:          DefaultRows,
			Columns:       DefaultColumns,
			FrameInterval: DefaultFrameInterval,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultOutputDir,
			Format:    DefaultFormat,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
			WebSocketAddress: DefaultWebSocketAddress,
			WebSocketPath:    DefaultWebSocketPath,
		},
		Metrics: MetricsConfig{
			Address: DefaultMetricsAddress,
		},
	}
}
