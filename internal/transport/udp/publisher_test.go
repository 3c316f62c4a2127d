// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandcore/frequatuner/internal/analysis"
	"github.com/sandcore/frequatuner/internal/pitch"
)

type fakeFrames struct {
	frame atomic.Pointer[analysis.Frame]
}

func (f *fakeFrames) Latest() *analysis.Frame { return f.frame.Load() }

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestAppendDecodeEqualizer(t *testing.T) {
	frame := &analysis.Frame{Seq: 9, Mode: analysis.Equalizer, Bins: []float64{0, 0.25, 1}}

	b, err := AppendPacket(nil, 7, 1234, frame)
	if err != nil {
		t.Fatalf("AppendPacket: %v", err)
	}
	if len(b) != HeaderSize+3*4 {
		t.Fatalf("len = %d, want %d", len(b), HeaderSize+3*4)
	}

	p, err := DecodePacket(b)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if p.Seq != 7 || p.Timestamp != 1234 || p.Mode != analysis.Equalizer {
		t.Errorf("header = %+v", p)
	}
	want := []float32{0, 0.25, 1}
	for i, v := range want {
		if p.Values[i] != v {
			t.Errorf("Values[%d] = %v, want %v", i, p.Values[i], v)
		}
	}
}

func TestAppendDecodeTuner(t *testing.T) {
	note, err := pitch.NoteFromFrequency(440, pitch.DefaultInTuneCents)
	if err != nil {
		t.Fatalf("NoteFromFrequency: %v", err)
	}

	tests := []struct {
		name  string
		frame *analysis.Frame
		count int
	}{
		{"with note", &analysis.Frame{Mode: analysis.Tuner, Note: &note}, 6},
		{"without note", &analysis.Frame{Mode: analysis.Tuner}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := AppendPacket(nil, 1, 0, tt.frame)
			if err != nil {
				t.Fatalf("AppendPacket: %v", err)
			}
			p, err := DecodePacket(b)
			if err != nil {
				t.Fatalf("DecodePacket: %v", err)
			}
			if p.Mode != analysis.Tuner {
				t.Errorf("Mode = %v, want tuner", p.Mode)
			}
			if len(p.Values) != tt.count {
				t.Errorf("len(Values) = %d, want %d", len(p.Values), tt.count)
			}
		})
	}
}

func TestDecodeShortPacket(t *testing.T) {
	b, _ := AppendPacket(nil, 1, 0, &analysis.Frame{Bins: []float64{1, 2}})

	for _, n := range []int{0, HeaderSize - 1, len(b) - 1} {
		if _, err := DecodePacket(b[:n]); !errors.Is(err, ErrShortPacket) {
			t.Errorf("DecodePacket(%d bytes) error = %v, want ErrShortPacket", n, err)
		}
	}
}

func TestAppendPacketReusesBuffer(t *testing.T) {
	frame := &analysis.Frame{Bins: make([]float64, 32)}
	buf := make([]byte, 0, HeaderSize+32*4)

	allocs := testing.AllocsPerRun(100, func() {
		buf, _ = AppendPacket(buf[:0], 1, 0, frame)
	})
	if allocs > 0 {
		t.Errorf("expected zero allocations, got %.1f", allocs)
	}
}

func TestNewUDPPublisherValidation(t *testing.T) {
	if _, err := NewUDPPublisher(time.Millisecond, nil, &fakeFrames{}); err == nil {
		t.Error("expected error for nil sender")
	}

	conn := listen(t)
	sender, err := NewUDPSender(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	defer sender.Close()

	if _, err := NewUDPPublisher(time.Millisecond, sender, nil); err == nil {
		t.Error("expected error for nil provider")
	}
	p, err := NewUDPPublisher(0, sender, &fakeFrames{})
	if err != nil {
		t.Fatalf("NewUDPPublisher: %v", err)
	}
	if p.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", p.interval, DefaultInterval)
	}
}

func TestPublisherSendsLatestFrame(t *testing.T) {
	conn := listen(t)
	sender, err := NewUDPSender(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}

	frames := &fakeFrames{}
	frames.frame.Store(&analysis.Frame{Seq: 1, Bins: []float64{0.5, 1}})

	p, err := NewUDPPublisher(5*time.Millisecond, sender, frames)
	if err != nil {
		t.Fatalf("NewUDPPublisher: %v", err)
	}
	p.Start()
	p.Start() // no-op while running

	buf := make([]byte, 1500)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	pkt, err := DecodePacket(buf[:n])
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if pkt.Seq == 0 || len(pkt.Values) != 2 || pkt.Values[1] != 1 {
		t.Errorf("packet = %+v", pkt)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop after Close: %v", err)
	}
	if err := sender.Send([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close error = %v, want ErrClosed", err)
	}
}

func TestPublisherSkipsWithoutFrame(t *testing.T) {
	conn := listen(t)
	sender, err := NewUDPSender(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}

	p, err := NewUDPPublisher(time.Millisecond, sender, &fakeFrames{})
	if err != nil {
		t.Fatalf("NewUDPPublisher: %v", err)
	}
	p.publish()
	if p.sequenceNum != 0 {
		t.Errorf("sequenceNum = %d, want 0", p.sequenceNum)
	}
	p.Close()
}

func TestNewUDPSenderBadAddress(t *testing.T) {
	if _, err := NewUDPSender("not an address"); err == nil {
		t.Error("expected error for bad address")
	}
}
