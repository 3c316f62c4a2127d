// SPDX-License-Identifier: MIT

// Package cmd parses the command line into the loaded configuration and
// the command to run.
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sandcore/frequatuner/internal/config"
	"github.com/sandcore/frequatuner/pkg/build"
)

// Command identifies what main should do after parsing.
type Command string

const (
	CommandNone    Command = ""        // help or version was printed
	CommandRun     Command = "run"     // live capture
	CommandList    Command = "list"    // list or pick input devices
	CommandAnalyze Command = "analyze" // replay a WAV file through the pipeline
)

// Options is the parsed command line.
type Options struct {
	Command    Command
	Config     *config.Config
	ConfigPath string
	InputFile  string // analyze only
	Select     bool   // list only: pick a device interactively
}

// flagValues holds the raw flag values before they are overlaid on the
// loaded configuration.
type flagValues struct {
	device          int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	gain            float64
	mode            string
	window          string
	adaptive        bool
	filter          bool
	record          bool
	outputDir       string
	noDisplay       bool
	udpTarget       string
	websocket       bool
	metrics         bool
	verbose         bool
	logLevel        string
}

// ParseArgs parses args (without the program name). Help and version
// output go to out.
func ParseArgs(args []string, out io.Writer) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(options.ConfigPath)
			if err != nil {
				return err
			}
			fv.apply(cmd.Flags(), cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			options.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandRun
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandList
			return nil
		},
	}
	listCmd.Flags().BoolVar(&options.Select, "select", false,
		"Pick a device interactively and print the matching config")
	rootCmd.AddCommand(listCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Stream a WAV file through the analysis pipeline and print every result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandAnalyze
			options.InputFile = args[0]
			return nil
		},
	}
	rootCmd.AddCommand(analyzeCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&options.ConfigPath, "config", "f", "",
		"Path to the YAML configuration (default ./"+config.DefaultFileName+" if present)")

	// Audio input.
	pf.IntVarP(&fv.device, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	pf.IntVarP(&fv.channels, "channels", "c", config.DefaultChannels,
		"Number of captured channels, only the first is analysed")
	pf.Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Samples read per loop iteration")
	pf.BoolVarP(&fv.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use the device's low latency settings")
	pf.Float64VarP(&fv.gain, "gain", "g", config.DefaultInputGain,
		"Total input gain applied before analysis")

	// Analysis.
	pf.StringVarP(&fv.mode, "mode", "m", config.DefaultMode,
		"Initial mode: equalizer or tuner")
	pf.StringVar(&fv.window, "window", config.DefaultFFTWindow,
		"Analysis window: none, hann, hamming, blackman, ...")
	pf.BoolVar(&fv.adaptive, "adaptive-edges", false,
		"Lower the top bin edge to the content of each chunk")
	pf.BoolVar(&fv.filter, "filter", false,
		"Enable the low-pass/high-pass pre-filter")

	// Recording.
	pf.BoolVarP(&fv.record, "record", "r", false,
		"Record the raw input to a WAV file")
	pf.StringVarP(&fv.outputDir, "output-dir", "o", config.DefaultOutputDir,
		"Directory for recordings")

	// Outputs.
	pf.BoolVar(&fv.noDisplay, "no-display", false,
		"Run without the terminal display")
	pf.StringVar(&fv.udpTarget, "udp", "",
		"Send frames as UDP packets to host:port")
	pf.BoolVar(&fv.websocket, "websocket", false,
		"Broadcast frames to WebSocket clients")
	pf.BoolVar(&fv.metrics, "metrics", false,
		"Serve Prometheus metrics")

	// Logging.
	pf.BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show verbose output")
	pf.StringVar(&fv.logLevel, "log-level", "",
		"Logging level: debug, info, warn or error")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}

// apply overlays every flag the user set on cfg. Unset flags leave the
// file and environment values alone.
func (fv *flagValues) apply(flags *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, fn func()) {
		if flags.Changed(name) {
			fn()
		}
	}

	set("device", func() { cfg.Audio.InputDevice = fv.device })
	set("channels", func() { cfg.Audio.InputChannels = fv.channels })
	set("sample-rate", func() { cfg.Audio.SampleRate = fv.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = fv.framesPerBuffer })
	set("low-latency", func() { cfg.Audio.LowLatency = fv.lowLatency })
	set("gain", func() { cfg.Audio.InputGain = fv.gain })
	set("mode", func() { cfg.Analysis.Mode = fv.mode })
	set("window", func() { cfg.Analysis.FFTWindow = fv.window })
	set("adaptive-edges", func() { cfg.Analysis.AdaptiveEdges = fv.adaptive })
	set("filter", func() { cfg.Filter.Enabled = fv.filter })
	set("record", func() { cfg.Recording.Enabled = fv.record })
	set("output-dir", func() { cfg.Recording.OutputDir = fv.outputDir })
	set("no-display", func() { cfg.Display.Enabled = !fv.noDisplay })
	set("udp", func() {
		cfg.Transport.UDPEnabled = fv.udpTarget != ""
		if fv.udpTarget != "" {
			cfg.Transport.UDPTargetAddress = fv.udpTarget
		}
	})
	set("websocket", func() { cfg.Transport.WebSocketEnabled = fv.websocket })
	set("metrics", func() { cfg.Metrics.Enabled = fv.metrics })
	set("verbose", func() { cfg.Debug = fv.verbose })
	set("log-level", func() { cfg.LogLevel = fv.logLevel })
}

// String describes the options for debug logging.
func (o *Options) String() string {
	if o.Config == nil {
		return fmt.Sprintf("command=%q", o.Command)
	}
	return fmt.Sprintf("command=%q mode=%s device=%d rate=%.0f display=%t",
		o.Command, o.Config.Analysis.Mode, o.Config.Audio.InputDevice,
		o.Config.Audio.SampleRate, o.Config.Display.Enabled)
}
