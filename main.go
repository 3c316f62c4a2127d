// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sandcore/frequatuner/cmd"
	"github.com/sandcore/frequatuner/internal/audio"
	"github.com/sandcore/frequatuner/internal/config"
	"github.com/sandcore/frequatuner/internal/log"
	"github.com/sandcore/frequatuner/internal/observe"
	"github.com/sandcore/frequatuner/internal/transport"
	"github.com/sandcore/frequatuner/internal/transport/udp"
	"github.com/sandcore/frequatuner/internal/tui"
	"github.com/sandcore/frequatuner/pkg/build"
)

// main is the entry point. The program flow is divided into three phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load the configuration
//   - Execute one-off commands (list, analyze)
//
// 2. Concurrent Phase (Hot Path):
//   - Open the input stream and start the engine loop
//   - Start transports, metrics and the display
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals or quitting the display
//   - Stop recording and close transports
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds carry no ldflags and fall back to defaults.
	if err := build.Initialize(); err != nil {
		log.Debugf("build info: %v", err)
	}

	// One thread for the engine loop, one for display and network I/O.
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if opts.Command == cmd.CommandNone {
		return
	}

	log.SetLevel(opts.Config.EffectiveLogLevel())
	log.Debugf("options: %s", opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch opts.Command {
	case cmd.CommandList:
		err = listDevices(opts)
	case cmd.CommandAnalyze:
		err = analyzeFile(ctx, opts)
	case cmd.CommandRun:
		err = runLive(ctx, opts.Config)
	}
	if err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}

func listDevices(opts *cmd.Options) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if !opts.Select {
		return audio.ListDevices(os.Stdout)
	}

	sel, ok, err := tui.SelectDevice()
	if err != nil || !ok {
		return err
	}

	snippet := struct {
		Audio struct {
			InputDevice int     `yaml:"input_device"`
			SampleRate  float64 `yaml:"sample_rate"`
		} `yaml:"audio"`
	}{}
	snippet.Audio.InputDevice = sel.DeviceID
	snippet.Audio.SampleRate = sel.SampleRate

	out, err := yaml.Marshal(snippet)
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", sel.DeviceName, out)
	return nil
}

// analyzeFile replays a WAV file through the pipeline and prints each new
// frame as a JSON line.
func analyzeFile(ctx context.Context, opts *cmd.Options) error {
	src, err := audio.OpenFile(opts.InputFile)
	if err != nil {
		return err
	}
	defer src.Close()

	cfg := opts.Config
	cfg.Audio.SampleRate = src.SampleRate()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", opts.InputFile, err)
	}

	engine, err := audio.NewEngine(cfg, src, audio.WithTransports(transport.NewWriterTransport(os.Stdout)))
	if err != nil {
		return err
	}
	defer engine.Close()

	log.Infof("analyzing %s (%.0f Hz, %d ch) in %s mode",
		opts.InputFile, src.SampleRate(), src.Channels(), cfg.Analysis.Mode)
	return engine.Run(ctx)
}

func runLive(ctx context.Context, cfg *config.Config) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	var engineOpts []audio.EngineOption

	if cfg.Metrics.Enabled {
		info := build.GetBuildFlags()
		mp, shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    info.Name,
			ServiceVersion: info.Version,
		})
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		defer shutdown(context.Background())

		m, err := observe.NewMetrics(mp)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		engineOpts = append(engineOpts, audio.WithMetrics(m))
	}

	if cfg.Recording.Enabled {
		rec, err := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Recording.BitDepth,
			time.Duration(cfg.Recording.MaxDuration)*time.Second)
		if err != nil {
			return err
		}
		if err := rec.Start(audio.FileName(cfg.Recording.OutputDir, time.Now())); err != nil {
			return err
		}
		engineOpts = append(engineOpts, audio.WithRecorder(rec))
	}

	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress,
			cfg.Transport.WebSocketPath, cfg.Display.FrameInterval)
		if err := ws.Start(); err != nil {
			return fmt.Errorf("websocket: %w", err)
		}
		engineOpts = append(engineOpts, audio.WithTransports(ws))
	}
	if !cfg.Display.Enabled {
		engineOpts = append(engineOpts, audio.WithTransports(transport.NewLoggingTransport()))
	}

	src, err := audio.OpenStream(cfg.Audio)
	if err != nil {
		return err
	}
	defer src.Close()

	engine, err := audio.NewEngine(cfg, src, engineOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Errorf("closing engine: %v", err)
		}
	}()

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, engine)
		if err != nil {
			sender.Close()
			return err
		}
		publisher.Start()
		defer publisher.Close()
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// Startup labels for the display; adaptive edges travel in each frame.
	edges := engine.Edges()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		return engine.Run(gctx)
	})

	g.Go(func() error {
		watchToggleSignals(gctx, engine.ToggleMode)
		return nil
	})

	if cfg.Display.Enabled {
		g.Go(func() error {
			defer cancel()
			return tui.Run(gctx, engine, cfg.Display, edges)
		})
	} else {
		log.Infof("running without display, press Ctrl+C to stop")
	}

	if cfg.Metrics.Enabled {
		srv := observe.NewServer(cfg.Metrics.Address)
		g.Go(func() error {
			log.Infof("metrics on %s/metrics", cfg.Metrics.Address)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	return g.Wait()
}
