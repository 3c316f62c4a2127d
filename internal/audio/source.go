// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Source delivers mono float32 samples in [-1, 1]. Read fills dst and
// returns the number of samples written. It returns io.EOF once a finite
// source is exhausted.
type Source interface {
	Read(dst []float32) (int, error)
}

// ErrNotWAV is returned when a file is not a valid WAV file.
var ErrNotWAV = errors.New("audio: not a valid WAV file")

// FileSource decodes a WAV file for offline analysis. Multi-channel files
// are reduced to their first channel, the same way live input is.
type FileSource struct {
	file    *os.File
	decoder *wav.Decoder
	buf     *goaudio.IntBuffer

	channels   int
	sampleRate float64
	scale      float32
}

// OpenFile opens path as a WAV source.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %s: %w", path, err)
	}

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotWAV, path)
	}
	if err := d.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("audio: %s: %w", path, err)
	}

	if d.BitDepth == 0 || d.BitDepth > 32 {
		f.Close()
		return nil, fmt.Errorf("audio: %s: unsupported bit depth %d", path, d.BitDepth)
	}

	channels := int(d.NumChans)
	if channels < 1 {
		channels = 1
	}
	return &FileSource{
		file:       f,
		decoder:    d,
		buf:        &goaudio.IntBuffer{Format: d.Format()},
		channels:   channels,
		sampleRate: float64(d.SampleRate),
		scale:      1 / float32(int64(1)<<(d.BitDepth-1)),
	}, nil
}

// SampleRate returns the file's sample rate in Hz.
func (s *FileSource) SampleRate() float64 { return s.sampleRate }

// Channels returns the file's channel count.
func (s *FileSource) Channels() int { return s.channels }

// Read decodes up to len(dst) frames.
func (s *FileSource) Read(dst []float32) (int, error) {
	want := len(dst) * s.channels
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil {
		return 0, fmt.Errorf("audio: decode: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	frames := n / s.channels
	for i := range frames {
		dst[i] = float32(s.buf.Data[i*s.channels]) * s.scale
	}
	return frames, nil
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.file.Close()
}

var _ Source = (*FileSource)(nil)
