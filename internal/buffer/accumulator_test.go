// SPDX-License-Identifier: MIT
package buffer

import "testing"

func ramp(start, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(start + i)
	}
	return s
}

func TestAccumulatorDrainsFullChunks(t *testing.T) {
	acc := NewAccumulator(2048)

	var chunks int
	n := acc.Ingest(make([]float32, 5000), func(chunk []float32) {
		if len(chunk) != 2048 {
			t.Errorf("chunk length = %d, want 2048", len(chunk))
		}
		chunks++
	})

	if n != 2 || chunks != 2 {
		t.Errorf("drained %d chunks (callback %d), want 2", n, chunks)
	}
	if acc.Len() != 904 {
		t.Errorf("pending = %d, want 904", acc.Len())
	}
}

func TestAccumulatorPreservesOrder(t *testing.T) {
	acc := NewAccumulator(4)

	var got []float32
	collect := func(chunk []float32) { got = append(got, chunk...) }

	// Uneven reads: 3 + 3 + 7 = 13 samples, 3 chunks and 1 left over.
	acc.Ingest(ramp(0, 3), collect)
	acc.Ingest(ramp(3, 3), collect)
	acc.Ingest(ramp(6, 7), collect)

	if len(got) != 12 {
		t.Fatalf("emitted %d samples, want 12", len(got))
	}
	for i, v := range got {
		if v != float32(i) {
			t.Fatalf("sample %d = %v, want %v", i, v, float32(i))
		}
	}
	if acc.Len() != 1 {
		t.Errorf("pending = %d, want 1", acc.Len())
	}
}

func TestAccumulatorShortInputs(t *testing.T) {
	tests := []struct {
		name    string
		reads   []int
		chunks  int
		pending int
	}{
		{"empty read", []int{0}, 0, 0},
		{"below chunk", []int{100}, 0, 100},
		{"exact chunk", []int{256}, 1, 0},
		{"768 sample batches", []int{768, 768, 768, 768}, 12, 0},
		{"many small", []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator(256)
			total := 0
			for _, r := range tt.reads {
				total += acc.Ingest(make([]float32, r), nil)
				if acc.Len() >= acc.ChunkSize() {
					t.Fatalf("pending %d not below chunk size", acc.Len())
				}
			}
			if total != tt.chunks {
				t.Errorf("chunks = %d, want %d", total, tt.chunks)
			}
			if acc.Len() != tt.pending {
				t.Errorf("pending = %d, want %d", acc.Len(), tt.pending)
			}
		})
	}
}

func TestAccumulatorReset(t *testing.T) {
	acc := NewAccumulator(8)
	acc.Ingest(ramp(0, 5), nil)
	acc.Reset()
	if acc.Len() != 0 {
		t.Fatalf("pending after Reset = %d, want 0", acc.Len())
	}

	var first float32 = -1
	acc.Ingest(ramp(100, 8), func(chunk []float32) { first = chunk[0] })
	if first != 100 {
		t.Errorf("first sample after Reset = %v, want 100", first)
	}
}

func TestNewAccumulatorPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero chunk size")
		}
	}()
	NewAccumulator(0)
}

func TestAccumulatorSteadyStateZeroAllocs(t *testing.T) {
	acc := NewAccumulator(2048)
	batch := make([]float32, 768)
	for range 8 {
		acc.Ingest(batch, nil)
	}
	allocs := testing.AllocsPerRun(100, func() {
		acc.Ingest(batch, func([]float32) {})
	})
	if allocs > 0 {
		t.Errorf("expected zero allocations in steady state, got %.1f", allocs)
	}
}
