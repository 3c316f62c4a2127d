// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/sandcore/frequatuner/internal/log"
)

// LoggingTransport implements the Transport interface by logging every
// frame at debug level.
type LoggingTransport struct {
	log *log.Logger
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	return &LoggingTransport{log: log.Named("transport")}
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	lt.log.Debugf("frame %+v", data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error { return nil }

// WriterTransport writes each frame as one JSON line to w.
type WriterTransport struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterTransport creates a transport that encodes frames to w.
func NewWriterTransport(w io.Writer) *WriterTransport {
	return &WriterTransport{enc: json.NewEncoder(w)}
}

// Send encodes data followed by a newline.
func (wt *WriterTransport) Send(data any) error {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	return wt.enc.Encode(data)
}

// Close is a no-op; the caller owns the writer.
func (wt *WriterTransport) Close() error { return nil }

var (
	_ Transport = (*LoggingTransport)(nil)
	_ Transport = (*WriterTransport)(nil)
)
