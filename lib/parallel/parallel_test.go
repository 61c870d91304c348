package parallel

import (
	"testing"
)

func TestForCoversRange(t *testing.T) {
	rts := []*Runtime{Serial(), New(2), New(7), New(0)}

	for _, rt := range rts {
		n := 1000
		visits := make([]int, n)
		rt.For(0, n, func(i int) { visits[i]++ })

		for i := range visits {
			if visits[i] != 1 {
				t.Errorf("With %d workers, index %d was visited %d times.",
					rt.Workers(), i, visits[i])
				return
			}
		}
	}
}

func TestForOffsetRange(t *testing.T) {
	rt := New(4)
	visits := make([]int, 100)
	rt.For(25, 75, func(i int) { visits[i]++ })

	for i := range visits {
		want := 0
		if i >= 25 && i < 75 {
			want = 1
		}
		if visits[i] != want {
			t.Errorf("Index %d was visited %d times, expected %d.",
				i, visits[i], want)
			return
		}
	}
}

func TestForEmptyRange(t *testing.T) {
	rt := New(4)
	called := false
	rt.For(10, 10, func(i int) { called = true })
	if called {
		t.Errorf("For called its function on an empty range.")
	}
}

func TestForChunksPartition(t *testing.T) {
	for _, workers := range []int{1, 3, 8, 19} {
		for _, n := range []int{1, 2, 7, 100, 1001} {
			rt := New(workers)
			visits := make([]int, n)
			chunks := make([]bool, workers)
			rt.ForChunks(0, n, func(chunk, lo, hi int) {
				chunks[chunk] = true
				for i := lo; i < hi; i++ {
					visits[i]++
				}
			})

			for _, seen := range chunks {
				if !seen {
					t.Errorf("ForChunks(n = %d) with %d workers did not call every chunk.", n, workers)
					return
				}
			}
			for i := range visits {
				if visits[i] != 1 {
					t.Errorf("ForChunks(n = %d) with %d workers visited index %d %d times.", n, workers, i, visits[i])
					return
				}
			}
		}
	}
}

func TestChunkBounds(t *testing.T) {
	tests := []struct {
		n, chunks int
		bounds    [][2]int
	}{
		{10, 4, [][2]int{{0, 3}, {3, 6}, {6, 8}, {8, 10}}},
		{3, 3, [][2]int{{0, 1}, {1, 2}, {2, 3}}},
		{2, 4, [][2]int{{0, 1}, {1, 2}, {2, 2}, {2, 2}}},
	}

	for _, test := range tests {
		for chunk, want := range test.bounds {
			lo, hi := ChunkBounds(test.n, test.chunks, chunk)
			if lo != want[0] || hi != want[1] {
				t.Errorf("ChunkBounds(%d, %d, %d) = (%d, %d), expected (%d, %d).",
					test.n, test.chunks, chunk, lo, hi, want[0], want[1])
			}
		}
	}
}
