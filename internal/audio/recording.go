// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/sandcore/frequatuner/internal/log"
)

// ErrAlreadyRecording is returned by Start while a recording is running.
var ErrAlreadyRecording = errors.New("audio: already recording")

// wavPCM is the WAV audio format tag for integer PCM.
const wavPCM = 1

// Recorder writes the raw mono input to a WAV file so a session can be
// replayed through the analyze command.
type Recorder struct {
	sampleRate  int
	bitDepth    int
	maxFrames   int // 0 for unlimited
	isRecording atomic.Bool

	mu         sync.Mutex // guards everything below
	path       string
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *goaudio.IntBuffer
	written    int
	log        *log.Logger
}

// NewRecorder returns a recorder for mono audio at sampleRate. A positive
// maxDuration stops the recording once that much audio has been written.
func NewRecorder(sampleRate float64, bitDepth int, maxDuration time.Duration) (*Recorder, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("audio: unsupported bit depth %d", bitDepth)
	}
	return &Recorder{
		sampleRate: int(sampleRate),
		bitDepth:   bitDepth,
		maxFrames:  int(math.Round(maxDuration.Seconds() * sampleRate)),
		log:        log.Named("recorder"),
	}, nil
}

// FileName returns a timestamped file name inside dir.
func FileName(dir string, t time.Time) string {
	return filepath.Join(dir, "frequatuner-"+t.Format("20060102-150405")+".wav")
}

// Start creates filename, including missing parent directories, and begins
// recording.
func (r *Recorder) Start(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRecording.Load() {
		return ErrAlreadyRecording
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("audio: create recording directory: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("audio: create recording: %w", err)
	}

	r.path = filename
	r.outputFile = file
	r.wavEncoder = wav.NewEncoder(file, r.sampleRate, r.bitDepth, 1, wavPCM)
	r.sampleBuf = &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: r.sampleRate},
		SourceBitDepth: r.bitDepth,
	}
	r.written = 0
	r.isRecording.Store(true)

	r.log.Infof("recording to %s", filename)
	return nil
}

// Write appends samples in [-1, 1] to the recording. It is a no-op when not
// recording. Reaching the maximum duration stops the recording.
func (r *Recorder) Write(samples []float32) error {
	if !r.isRecording.Load() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return nil
	}

	if r.maxFrames > 0 && r.written+len(samples) > r.maxFrames {
		samples = samples[:r.maxFrames-r.written]
	}

	if cap(r.sampleBuf.Data) < len(samples) {
		r.sampleBuf.Data = make([]int, len(samples))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(samples)]

	full := float64(int64(1)<<(r.bitDepth-1) - 1)
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		r.sampleBuf.Data[i] = int(math.Round(v * full))
	}

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("audio: write recording: %w", err)
	}
	r.written += len(samples)

	if r.maxFrames > 0 && r.written >= r.maxFrames {
		r.log.Infof("maximum duration reached")
		return r.stopLocked()
	}
	return nil
}

// Stop finalizes the WAV header and closes the file. Stopping an idle
// recorder is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked()
}

func (r *Recorder) stopLocked() error {
	if !r.isRecording.Load() {
		return nil
	}
	r.isRecording.Store(false)

	var errs []error
	if r.wavEncoder != nil {
		errs = append(errs, r.wavEncoder.Close())
		r.wavEncoder = nil
	}
	if r.outputFile != nil {
		errs = append(errs, r.outputFile.Close())
		r.outputFile = nil
	}
	r.log.Infof("wrote %d samples to %s", r.written, r.path)
	return errors.Join(errs...)
}

// IsRecording reports whether a recording is in progress.
func (r *Recorder) IsRecording() bool { return r.isRecording.Load() }

// Path returns the file of the current or last recording.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Written returns the number of samples written to the current or last
// recording.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}
