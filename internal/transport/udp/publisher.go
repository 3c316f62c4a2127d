// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sandcore/frequatuner/internal/analysis"
	"github.com/sandcore/frequatuner/internal/log"
	"github.com/sandcore/frequatuner/internal/transport"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Mode              | uint8          | 1            | 0 equalizer, 1 tuner    |
| Value Count       | uint16         | 2            | Number of floats (N)    |
| Values            | []float32      | N * 4        | Frame.Values()          |
+-----------------------------------------------------------------------------+
*/

// HeaderSize is the fixed part of every packet.
const HeaderSize = 4 + 8 + 1 + 2

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 50 * time.Millisecond

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("udp: short packet")

// Packet is the decoded form of one datagram.
type Packet struct {
	Seq       uint32
	Timestamp int64
	Mode      analysis.Mode
	Values    []float32
}

// AppendPacket appends the encoding of frame to dst and returns the
// extended buffer.
func AppendPacket(dst []byte, seq uint32, timestamp int64, frame *analysis.Frame) ([]byte, error) {
	values := frame.Values()
	if len(values) > math.MaxUint16 {
		return dst, fmt.Errorf("udp: %d values do not fit one packet", len(values))
	}

	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(timestamp))
	dst = append(dst, uint8(frame.Mode))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(values)))
	for _, v := range values {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(v)))
	}
	return dst, nil
}

// DecodePacket parses one datagram.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, ErrShortPacket
	}

	p := Packet{
		Seq:       binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
		Mode:      analysis.Mode(b[12]),
	}
	n := int(binary.BigEndian.Uint16(b[13:15]))
	payload := b[HeaderSize:]
	if len(payload) < n*4 {
		return Packet{}, ErrShortPacket
	}

	p.Values = make([]float32, n)
	for i := range p.Values {
		p.Values[i] = math.Float32frombits(binary.BigEndian.Uint32(payload[i*4:]))
	}
	return p, nil
}

// UDPPublisher periodically fetches the latest frame from a provider, packs
// it and sends it with a UDPSender. It runs in its own goroutine between
// Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender
	frames   transport.FrameProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker and doneChan during Start/Stop

	sequenceNum uint32
	packet      []byte // reused between ticks
	log         *log.Logger
}

// NewUDPPublisher creates a publisher sending the frames returned by
// frames every interval.
func NewUDPPublisher(interval time.Duration, sender *UDPSender, frames transport.FrameProvider) (*UDPPublisher, error) {
	if sender == nil {
		return nil, errors.New("udp: sender cannot be nil")
	}
	if frames == nil {
		return nil, errors.New("udp: frame provider cannot be nil")
	}

	l := log.Named("udp")
	if interval <= 0 {
		interval = DefaultInterval
		l.Warnf("invalid interval, defaulting to %s", interval)
	}

	return &UDPPublisher{
		sender:   sender,
		frames:   frames,
		interval: interval,
		packet:   make([]byte, 0, HeaderSize+4*analysis.DefaultOptions().Bins),
		log:      l,
	}, nil
}

// Start begins the periodic publishing. Calling Start while running is a
// no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		p.log.Warnf("start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.log.Debugf("publisher started (interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// Calling Stop when not running is a no-op.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debugf("publisher stopped")
	return nil
}

func (p *UDPPublisher) publish() {
	frame := p.frames.Latest()
	if frame == nil {
		return
	}

	p.sequenceNum++
	packet, err := AppendPacket(p.packet[:0], p.sequenceNum, time.Now().UnixNano(), frame)
	if err != nil {
		p.log.Errorf("packing frame %d: %v", frame.Seq, err)
		return
	}
	p.packet = packet

	if err := p.sender.Send(packet); err != nil {
		p.log.Debugf("packet %d: %v", p.sequenceNum, err)
		return
	}
	p.log.Debugf("sent packet %d (%d bytes)", p.sequenceNum, len(packet))
}

// Close stops the publisher and closes the sender.
func (p *UDPPublisher) Close() error {
	return errors.Join(p.Stop(), p.sender.Close())
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
