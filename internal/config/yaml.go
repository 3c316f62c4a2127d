// SPDX-License-Identifier: MIT
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandcore/frequatuner/internal/log"
)

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("config: invalid configuration")

// DefaultFileName is searched for in the working directory when no path is
// given.
const DefaultFileName = "frequatuner.yaml"

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (forces debug logging).
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Filter    FilterConfig    `yaml:"filter"`
	Tuner     TunerConfig     `yaml:"tuner"`
	Display   DisplayConfig   `yaml:"display"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AudioConfig holds settings related to audio input.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Samples read per loop iteration.
	InputChannels   int     `yaml:"input_channels"`    // Captured channels; only channel 0 is analysed.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio.
	InputGain       float64 `yaml:"input_gain"`        // Total gain applied before analysis.
}

// AnalysisConfig configures the chunking and the equalizer path.
type AnalysisConfig struct {
	Mode              string  `yaml:"mode"`               // Initial mode, "equalizer" or "tuner".
	ChunkSize         int     `yaml:"chunk_size"`         // Samples per analysis chunk.
	Bins              int     `yaml:"bins"`               // Equalizer output bins.
	MinFrequency      float64 `yaml:"min_frequency"`      // Lowest bin edge in Hz.
	MaxFrequency      float64 `yaml:"max_frequency"`      // Highest bin edge in Hz.
	AdaptiveEdges     bool    `yaml:"adaptive_edges"`     // Lower the top edge to the chunk's content.
	AdaptiveThreshold float64 `yaml:"adaptive_threshold"` // Fraction of peak that counts as content.
	FFTWindow         string  `yaml:"fft_window"`         // Analysis window, "none" keeps DC equal to the sum.
}

// FilterConfig configures the optional pre-filter.
type FilterConfig struct {
	Enabled    bool    `yaml:"enabled"`
	LowPassHz  float64 `yaml:"low_pass_hz"`
	HighPassHz float64 `yaml:"high_pass_hz"`
	Q          float64 `yaml:"q"`
	BlockSize  int     `yaml:"block_size"`
}

// TunerConfig configures the pitch path.
type TunerConfig struct {
	PowerThreshold   float64 `yaml:"power_threshold"`   // Minimum sum of squares per chunk.
	ClarityThreshold float64 `yaml:"clarity_threshold"` // NSDF peak selection threshold.
	InTuneCents      float64 `yaml:"in_tune_cents"`     // |cents| below this is in tune.
}

// DisplayConfig configures the terminal display.
type DisplayConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Rows          int           `yaml:"rows"`           // One row per equalizer bin.
	Columns       int           `yaml:"columns"`        // Cells per row at full magnitude.
	FrameInterval time.Duration `yaml:"frame_interval"` // Minimum time between repaints.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled     bool   `yaml:"enabled"`              // Record the raw input to file.
	OutputDir   string `yaml:"output_dir"`           // Directory to save recorded audio files.
	Format      string `yaml:"format"`               // File format for recordings (only "wav").
	BitDepth    int    `yaml:"bit_depth"`            // 16, 24 or 32.
	MaxDuration int    `yaml:"max_duration_seconds"` // 0 for unlimited.
}

// TransportConfig holds settings related to publishing frames over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"`
	WebSocketPath    string        `yaml:"websocket_path"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // Listen address for /metrics.
}

// LoadConfig loads configuration from the YAML file at path. If path is
// empty it looks for DefaultFileName in the working directory and falls
// back to the built-in defaults when there is none. Environment overrides
// are applied last, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultFileName); err == nil {
			path = DefaultFileName
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and reports every problem at once,
// wrapped in ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		add("log_level %q is not a known level", c.LogLevel)
	}

	// Audio
	if c.Audio.InputDevice < MinDeviceID {
		add("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		add("audio.sample_rate must be in [%d, %d], got %g", MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		add("audio.frames_per_buffer must be in [1, %d], got %d", MaxBufferFrames, c.Audio.FramesPerBuffer)
	}
	if c.Audio.InputChannels < 1 {
		add("audio.input_channels must be at least 1, got %d", c.Audio.InputChannels)
	}
	if c.Audio.InputGain <= 0 {
		add("audio.input_gain must be positive, got %g", c.Audio.InputGain)
	}

	// Analysis
	if _, err := parseMode(c.Analysis.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Analysis.ChunkSize < MinChunkSize || c.Analysis.ChunkSize > MaxChunkSize {
		add("analysis.chunk_size must be in [%d, %d], got %d", MinChunkSize, MaxChunkSize, c.Analysis.ChunkSize)
	}
	if c.Analysis.Bins < 1 {
		add("analysis.bins must be at least 1, got %d", c.Analysis.Bins)
	}
	if c.Analysis.MinFrequency <= 0 || c.Analysis.MinFrequency >= c.Analysis.MaxFrequency {
		add("analysis.min_frequency (%g) must be positive and below analysis.max_frequency (%g)",
			c.Analysis.MinFrequency, c.Analysis.MaxFrequency)
	}
	if c.Analysis.AdaptiveEdges && (c.Analysis.AdaptiveThreshold <= 0 || c.Analysis.AdaptiveThreshold >= 1) {
		add("analysis.adaptive_threshold must be in (0, 1), got %g", c.Analysis.AdaptiveThreshold)
	}
	if _, err := parseWindow(c.Analysis.FFTWindow); err != nil {
		errs = append(errs, err)
	}

	// Filter
	if c.Filter.Enabled {
		if c.Filter.HighPassHz <= 0 || c.Filter.HighPassHz >= c.Filter.LowPassHz {
			add("filter.high_pass_hz (%g) must be positive and below filter.low_pass_hz (%g)",
				c.Filter.HighPassHz, c.Filter.LowPassHz)
		}
		if c.Filter.Q <= 0 {
			add("filter.q must be positive, got %g", c.Filter.Q)
		}
		if c.Filter.BlockSize <= 0 {
			add("filter.block_size must be positive, got %d", c.Filter.BlockSize)
		}
	}

	// Tuner
	if c.Tuner.PowerThreshold < 0 {
		add("tuner.power_threshold must not be negative, got %g", c.Tuner.PowerThreshold)
	}
	if c.Tuner.ClarityThreshold <= 0 || c.Tuner.ClarityThreshold > 1 {
		add("tuner.clarity_threshold must be in (0, 1], got %g", c.Tuner.ClarityThreshold)
	}
	if c.Tuner.InTuneCents <= 0 || c.Tuner.InTuneCents > 50 {
		add("tuner.in_tune_cents must be in (0, 50], got %g", c.Tuner.InTuneCents)
	}

	// Display
	if c.Display.Rows < 0 || c.Display.Columns < 1 {
		add("display.rows must not be negative and display.columns must be positive, got %dx%d",
			c.Display.Rows, c.Display.Columns)
	}
	if c.Display.Rows > 0 && c.Display.Rows != c.Analysis.Bins {
		add("analysis.bins (%d) must equal display.rows (%d)", c.Analysis.Bins, c.Display.Rows)
	}
	if c.Display.FrameInterval <= 0 {
		add("display.frame_interval must be positive, got %s", c.Display.FrameInterval)
	}

	// Recording
	if c.Recording.Enabled {
		if !strings.EqualFold(c.Recording.Format, "wav") {
			add("recording.format %q is not supported, only wav", c.Recording.Format)
		}
		switch c.Recording.BitDepth {
		case 16, 24, 32:
		default:
			add("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
		}
		if c.Recording.MaxDuration < 0 {
			add("recording.max_duration_seconds must not be negative, got %d", c.Recording.MaxDuration)
		}
	}

	// Transport
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			add("transport.udp_target_address must be set when UDP is enabled")
		} else if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			add("transport.udp_target_address %q appears invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			add("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if c.Transport.WebSocketEnabled {
		if c.Transport.WebSocketAddress == "" {
			add("transport.websocket_address must be set when the WebSocket transport is enabled")
		}
		if !strings.HasPrefix(c.Transport.WebSocketPath, "/") {
			add("transport.websocket_path %q must start with /", c.Transport.WebSocketPath)
		}
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		add("metrics.address must be set when metrics are enabled")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// EffectiveLogLevel returns the level to run with; debug mode wins.
func (c *Config) EffectiveLogLevel() log.LogLevel {
	if c.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// Environment overrides, applied after the file is loaded.
const (
	envPrefix = "FREQUATUNER_"

	EnvDebug            = envPrefix + "DEBUG"
	EnvLogLevel         = envPrefix + "LOG_LEVEL"
	EnvInputDevice      = envPrefix + "INPUT_DEVICE"
	EnvSampleRate       = envPrefix + "SAMPLE_RATE"
	EnvMode             = envPrefix + "MODE"
	EnvUDPEnabled       = envPrefix + "UDP_ENABLED"
	EnvUDPTargetAddress = envPrefix + "UDP_TARGET_ADDRESS"
	EnvUDPSendInterval  = envPrefix + "UDP_SEND_INTERVAL"
	EnvMetricsAddress   = envPrefix + "METRICS_ADDRESS"
)

func (c *Config) applyEnvOverrides() {
	lg := log.Named("config")

	if val, ok := os.LookupEnv(EnvDebug); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
			lg.Debugf("overriding debug from env: %v", b)
		}
	}
	if val, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = val
		lg.Debugf("overriding log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv(EnvInputDevice); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = n
			lg.Debugf("overriding audio.input_device from env: %d", n)
		}
	}
	if val, ok := os.LookupEnv(EnvSampleRate); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Audio.SampleRate = f
			lg.Debugf("overriding audio.sample_rate from env: %g", f)
		}
	}
	if val, ok := os.LookupEnv(EnvMode); ok {
		c.Analysis.Mode = val
		lg.Debugf("overriding analysis.mode from env: %s", val)
	}
	if val, ok := os.LookupEnv(EnvUDPEnabled); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
			lg.Debugf("overriding transport.udp_enabled from env: %v", b)
		}
	}
	if val, ok := os.LookupEnv(EnvUDPTargetAddress); ok {
		c.Transport.UDPTargetAddress = val
		lg.Debugf("overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv(EnvUDPSendInterval); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
			lg.Debugf("overriding transport.udp_send_interval from env: %s", d)
		}
	}
	if val, ok := os.LookupEnv(EnvMetricsAddress); ok {
		c.Metrics.Address = val
		lg.Debugf("overriding metrics.address from env: %s", val)
	}
}
