// SPDX-License-Identifier: MIT

// Package observe provides the OpenTelemetry metrics recorded by the engine
// and the Prometheus bridge that exposes them on /metrics.
//
// Tests should build a [Metrics] with [NewMetrics] over their own
// [metric.MeterProvider] so they never share instruments.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/sandcore/frequatuner"

// Metrics holds the metric instruments for the analysis engine. The
// underlying OTel types handle their own synchronisation.
type Metrics struct {
	// ChunksAnalyzed counts completed analysis chunks. Use with attribute:
	//   attribute.String("mode", ...)
	ChunksAnalyzed metric.Int64Counter

	// PitchDetections counts tuner chunks that produced a raw pitch.
	PitchDetections metric.Int64Counter

	// NotesEmitted counts smoothed pitches classified as a note.
	NotesEmitted metric.Int64Counter

	// NoteRejections counts smoothed pitches outside the note range.
	NoteRejections metric.Int64Counter

	// ModeSwitches counts toggles between equalizer and tuner.
	ModeSwitches metric.Int64Counter

	// BatchDuration tracks the time spent ingesting one input batch. Use with
	// attribute:
	//   attribute.String("mode", ...)
	BatchDuration metric.Float64Histogram
}

// batchBuckets are histogram boundaries in seconds. One 768 sample batch
// lasts 16 ms at 48 kHz, so anything near that is a dropped read.
var batchBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.025, 0.05,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ChunksAnalyzed, err = m.Int64Counter("frequatuner.chunks",
		metric.WithDescription("Analysis chunks completed by mode."),
	); err != nil {
		return nil, err
	}
	if met.PitchDetections, err = m.Int64Counter("frequatuner.pitch.detections",
		metric.WithDescription("Tuner chunks with a detected pitch."),
	); err != nil {
		return nil, err
	}
	if met.NotesEmitted, err = m.Int64Counter("frequatuner.notes",
		metric.WithDescription("Smoothed pitches converted to a note."),
	); err != nil {
		return nil, err
	}
	if met.NoteRejections, err = m.Int64Counter("frequatuner.note.rejections",
		metric.WithDescription("Smoothed pitches outside the supported note range."),
	); err != nil {
		return nil, err
	}
	if met.ModeSwitches, err = m.Int64Counter("frequatuner.mode.switches",
		metric.WithDescription("Mode toggles handled by the engine."),
	); err != nil {
		return nil, err
	}

	if met.BatchDuration, err = m.Float64Histogram("frequatuner.batch.duration",
		metric.WithDescription("Time spent ingesting one input batch."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(batchBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordChunks adds n completed chunks for mode. A nil receiver is a no-op
// so callers can run without metrics.
func (m *Metrics) RecordChunks(ctx context.Context, mode string, n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.ChunksAnalyzed.Add(ctx, int64(n),
		metric.WithAttributes(attribute.String("mode", mode)),
	)
}

// RecordPitch adds the tuner counters produced by one batch.
func (m *Metrics) RecordPitch(ctx context.Context, detections, notes, rejections uint64) {
	if m == nil {
		return
	}
	if detections > 0 {
		m.PitchDetections.Add(ctx, int64(detections))
	}
	if notes > 0 {
		m.NotesEmitted.Add(ctx, int64(notes))
	}
	if rejections > 0 {
		m.NoteRejections.Add(ctx, int64(rejections))
	}
}

// RecordModeSwitch counts one toggle into mode.
func (m *Metrics) RecordModeSwitch(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.ModeSwitches.Add(ctx, 1,
		metric.WithAttributes(attribute.String("mode", mode)),
	)
}

// RecordBatch observes the duration of one batch in seconds.
func (m *Metrics) RecordBatch(ctx context.Context, mode string, seconds float64) {
	if m == nil {
		return
	}
	m.BatchDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("mode", mode)),
	)
}
