// SPDX-License-Identifier: MIT
/*
Package audio hosts the analysis pipeline: it reads samples from a live
PortAudio stream or a WAV file, feeds them to the pipeline in the active
mode and publishes every new result as an immutable frame.

Thread Safety:
  - The control loop in Run owns the pipeline; nothing else touches it
  - Mode toggles cross goroutines through an atomic flag only
  - Frames are published through an atomic pointer and never mutated
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sandcore/frequatuner/internal/analysis"
	"github.com/sandcore/frequatuner/internal/config"
	"github.com/sandcore/frequatuner/internal/log"
	"github.com/sandcore/frequatuner/internal/observe"
	"github.com/sandcore/frequatuner/internal/transport"
)

// Engine runs the read, analyse, publish loop.
type Engine struct {
	config   *config.Config
	pipeline *analysis.Pipeline
	source   Source

	recorder *Recorder
	sinks    []transport.Transport
	metrics  *observe.Metrics

	modes  analysis.ModeSwitch
	mode   atomic.Int32
	latest atomic.Pointer[analysis.Frame]
	seq    uint64

	inputBuffer []float32
	stats       analysis.Stats
	log         *log.Logger
}

// EngineOption configures optional collaborators of an Engine.
type EngineOption func(*Engine)

// WithRecorder records every input batch before analysis.
func WithRecorder(r *Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithTransports sends every published frame to ts.
func WithTransports(ts ...transport.Transport) EngineOption {
	return func(e *Engine) { e.sinks = append(e.sinks, ts...) }
}

// WithMetrics records activity counters in m.
func WithMetrics(m *observe.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine builds the pipeline described by cfg around source. cfg must
// have passed Validate.
func NewEngine(cfg *config.Config, source Source, opts ...EngineOption) (*Engine, error) {
	if source == nil {
		return nil, errors.New("audio: source cannot be nil")
	}

	pipeline, err := analysis.NewPipeline(cfg.AnalysisOptions())
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:      cfg,
		pipeline:    pipeline,
		source:      source,
		inputBuffer: make([]float32, cfg.Audio.FramesPerBuffer),
		log:         log.Named("engine"),
	}
	e.mode.Store(int32(cfg.InitialMode()))
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run reads and analyses input until ctx is cancelled or the source is
// exhausted. A finite source ending with io.EOF is not an error.
func (e *Engine) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.log.Infof("running in %s mode", e.Mode())
	for {
		if ctx.Err() != nil {
			return nil
		}

		e.handleModeSwitch(ctx)

		n, err := e.source.Read(e.inputBuffer)
		if n > 0 {
			e.process(ctx, e.inputBuffer[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				e.log.Debugf("source exhausted")
				return nil
			}
			return fmt.Errorf("audio: engine: %w", err)
		}
	}
}

// process handles one input batch in the current mode and publishes a
// frame when the batch completed at least one chunk.
func (e *Engine) process(ctx context.Context, samples []float32) {
	if e.recorder != nil {
		if err := e.recorder.Write(samples); err != nil {
			e.log.Errorf("recording stopped: %v", err)
			e.recorder.Stop()
		}
	}

	mode := e.Mode()
	start := time.Now()
	e.pipeline.IngestAndProcess(samples, mode)
	e.metrics.RecordBatch(ctx, mode.String(), time.Since(start).Seconds())

	stats := e.pipeline.Stats()
	prev := e.stats
	e.stats = stats

	e.metrics.RecordChunks(ctx, analysis.Equalizer.String(), stats.EqualizerChunks-prev.EqualizerChunks)
	e.metrics.RecordChunks(ctx, analysis.Tuner.String(), stats.TunerChunks-prev.TunerChunks)
	e.metrics.RecordPitch(ctx,
		stats.Detections-prev.Detections,
		stats.Notes-prev.Notes,
		stats.Rejections-prev.Rejections,
	)

	advanced := stats.EqualizerChunks > prev.EqualizerChunks
	if mode == analysis.Tuner {
		advanced = stats.TunerChunks > prev.TunerChunks
	}
	if advanced {
		e.publish(e.pipeline.LatestOutput(mode))
	}
}

func (e *Engine) handleModeSwitch(ctx context.Context) {
	if !e.modes.Consume() {
		return
	}

	mode := e.Mode().Toggle()
	e.mode.Store(int32(mode))
	e.log.Infof("switched to %s mode", mode)
	e.metrics.RecordModeSwitch(ctx, mode.String())

	frame := e.pipeline.LatestOutput(mode)
	frame.Event = analysis.EventModeSwitch
	e.publish(frame)
}

func (e *Engine) publish(frame analysis.Frame) {
	e.seq++
	frame.Seq = e.seq
	e.latest.Store(&frame)

	for _, sink := range e.sinks {
		if err := sink.Send(&frame); err != nil {
			e.log.Debugf("frame %d: %v", frame.Seq, err)
		}
	}
}

// ToggleMode requests a switch to the other mode. It is safe to call from
// any goroutine; the switch takes effect before the next batch is read.
func (e *Engine) ToggleMode() { e.modes.Request() }

// Mode returns the active mode.
func (e *Engine) Mode() analysis.Mode { return analysis.Mode(e.mode.Load()) }

// Latest returns the most recently published frame, nil before the first.
func (e *Engine) Latest() *analysis.Frame { return e.latest.Load() }

// Edges returns the equalizer bin edges. With adaptive edges they change
// per chunk, so call it only while Run is not active.
func (e *Engine) Edges() []float64 { return e.pipeline.Edges() }

// Close stops any recording and closes every transport.
func (e *Engine) Close() error {
	var errs []error
	if e.recorder != nil {
		errs = append(errs, e.recorder.Stop())
	}
	for _, sink := range e.sinks {
		errs = append(errs, sink.Close())
	}
	return errors.Join(errs...)
}

var _ transport.FrameProvider = (*Engine)(nil)
