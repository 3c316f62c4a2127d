// SPDX-License-Identifier: MIT
package analysis

// ChunkProcessor analyses one fixed-size chunk. Implementations run on the
// control loop goroutine and must not retain the chunk.
type ChunkProcessor interface {
	ProcessChunk(chunk []float32)
}

// Path is one mode's analysis chain: an accumulator feeding a
// ChunkProcessor.
type Path interface {
	ChunkProcessor
	// Ingest queues samples and processes every chunk that completes.
	Ingest(samples []float32) int
	// Pending returns the number of samples waiting for a full chunk.
	Pending() int
}

var (
	_ Path = (*EqualizerPath)(nil)
	_ Path = (*TunerPath)(nil)
)
