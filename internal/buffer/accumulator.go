// SPDX-License-Identifier: MIT

// Package buffer turns arbitrarily sized sample reads into fixed-size
// analysis chunks.
package buffer

// Accumulator is a FIFO of mono samples that releases them in chunks of an
// exact size. Samples never straddle two chunks and the remainder stays
// queued for the next Ingest. An Accumulator is not safe for concurrent use.
type Accumulator struct {
	chunkSize int
	pending   []float32
	chunk     []float32
}

// NewAccumulator panics if chunkSize is not positive.
func NewAccumulator(chunkSize int) *Accumulator {
	if chunkSize <= 0 {
		panic("buffer: chunk size must be positive")
	}
	return &Accumulator{
		chunkSize: chunkSize,
		pending:   make([]float32, 0, 2*chunkSize),
		chunk:     make([]float32, chunkSize),
	}
}

// Ingest appends samples in arrival order and calls fn once for every full
// chunk that can be drained, oldest first. It returns the number of chunks
// drained. The slice handed to fn is reused by the next chunk, so fn must
// not retain it.
func (a *Accumulator) Ingest(samples []float32, fn func(chunk []float32)) int {
	a.pending = append(a.pending, samples...)

	drained, offset := 0, 0
	for len(a.pending)-offset >= a.chunkSize {
		copy(a.chunk, a.pending[offset:offset+a.chunkSize])
		offset += a.chunkSize
		drained++
		if fn != nil {
			fn(a.chunk)
		}
	}

	if offset > 0 {
		n := copy(a.pending, a.pending[offset:])
		a.pending = a.pending[:n]
	}
	return drained
}

// Len returns the number of samples waiting for a full chunk. It is always
// below the chunk size after Ingest returns.
func (a *Accumulator) Len() int { return len(a.pending) }

// ChunkSize returns the configured chunk length.
func (a *Accumulator) ChunkSize() int { return a.chunkSize }

// Reset drops every pending sample.
func (a *Accumulator) Reset() { a.pending = a.pending[:0] }
