// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/sandcore/frequatuner/internal/config"
	"github.com/sandcore/frequatuner/internal/log"
)

// StreamSource captures audio from a PortAudio input device using a
// blocking stream. Only the first channel is analysed.
type StreamSource struct {
	stream   *portaudio.Stream
	device   *portaudio.DeviceInfo
	latency  float64
	channels int
	buf      []float32 // interleaved frames
	log      *log.Logger
}

// OpenStream opens and starts the configured input device. Initialize must
// have been called.
func OpenStream(cfg config.AudioConfig) (*StreamSource, error) {
	device, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}

	latency := device.DefaultHighInputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	s := &StreamSource{
		device:   device,
		latency:  latency.Seconds(),
		channels: cfg.InputChannels,
		buf:      make([]float32, cfg.FramesPerBuffer*cfg.InputChannels),
		log:      log.Named("stream"),
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: cfg.InputChannels,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: cfg.FramesPerBuffer,
		SampleRate:      cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, s.buf)
	if err != nil {
		return nil, fmt.Errorf("audio: open stream on %s: %w", device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("audio: start stream on %s: %w", device.Name, err)
	}
	s.stream = stream

	s.log.Infof("capturing from %s (%d ch, %.0f Hz, latency %.1f ms)",
		device.Name, cfg.InputChannels, cfg.SampleRate, s.latency*1000)
	return s, nil
}

// Read blocks until one buffer of frames is available and copies the first
// channel into dst. Input overflows are logged and otherwise ignored.
func (s *StreamSource) Read(dst []float32) (int, error) {
	if err := s.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return 0, fmt.Errorf("audio: read: %w", err)
		}
		s.log.Debugf("input overflowed")
	}
	return downmix(dst, s.buf, s.channels), nil
}

// Close stops and closes the stream.
func (s *StreamSource) Close() error {
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return err
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}

// downmix copies channel 0 of interleaved into dst and returns the frame
// count.
func downmix(dst, interleaved []float32, channels int) int {
	if channels <= 1 {
		return copy(dst, interleaved)
	}
	frames := min(len(dst), len(interleaved)/channels)
	for i := range frames {
		dst[i] = interleaved[i*channels]
	}
	return frames
}

var _ Source = (*StreamSource)(nil)
