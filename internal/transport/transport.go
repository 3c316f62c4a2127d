// SPDX-License-Identifier: MIT

// Package transport publishes analysis frames to consumers outside the
// engine: WebSocket clients, UDP receivers and plain writers.
package transport

import "github.com/sandcore/frequatuner/internal/analysis"

// Transport defines a generic interface for sending processed data or events.
// Implementations must be safe for concurrent use and must not block the
// caller for longer than a queue push.
type Transport interface {
	Send(data any) error
	Close() error
}

// FrameProvider exposes the most recent frame published by the engine. It
// returns nil until the first frame exists.
type FrameProvider interface {
	Latest() *analysis.Frame
}

// isEvent reports whether data is a frame announcing a state change. Event
// frames bypass rate limiting.
func isEvent(data any) bool {
	f, ok := data.(*analysis.Frame)
	return ok && f != nil && f.Event != ""
}
