/*package parallel supplies the execution runtime used by the container and
the sort/bin engine. A Runtime runs independent per-index work items across a
fixed set of workers and does not return until every item has completed, so
each call doubles as a synchronization barrier. Runtimes are plain values
passed explicitly to whatever needs one; there is no package-level state.
*/
package parallel

import (
	"runtime"
	"sync"

	"github.com/phil-mansfield/aosoa/lib"
)

// Runtime dispatches data-parallel loops over a fixed number of workers.
// The zero value is not valid; use New or Serial.
type Runtime struct {
	workers int
}

// New returns a Runtime with the given number of workers. Passing workers
// <= 0 uses one worker per core.
func New(workers int) *Runtime {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runtime{workers}
}

// Serial returns a single-worker Runtime. Useful for debugging and for
// callers that manage their own parallelism.
func Serial() *Runtime {
	return &Runtime{1}
}

// Workers returns the number of workers the Runtime dispatches over.
func (rt *Runtime) Workers() int { return rt.workers }

// For runs fn(i) for every i in [begin, end), spread across the Runtime's
// workers, and returns once all calls have completed. The work items must be
// independent of one another.
func (rt *Runtime) For(begin, end int, fn func(i int)) {
	rt.ForChunks(begin, end, func(chunk, lo, hi int) {
		for i := lo; i < hi; i++ {
			fn(i)
		}
	})
}

// ForChunks splits [begin, end) into exactly Workers() contiguous chunks and
// runs fn(chunk, lo, hi) once per chunk in parallel, returning once every
// chunk has completed. Chunks may be empty (lo == hi) when the range is
// shorter than the worker count. The chunk boundaries depend only on the
// range and the worker count, so chunked algorithms can be made
// deterministic regardless of scheduling.
func (rt *Runtime) ForChunks(begin, end int, fn func(chunk, lo, hi int)) {
	if end < begin {
		lib.InternalErrorf("ForChunks called with begin = %d > end = %d.",
			begin, end)
	}

	n := end - begin
	if n == 0 {
		return
	}
	if rt.workers == 1 || n == 1 {
		fn(0, begin, end)
		for chunk := 1; chunk < rt.workers; chunk++ {
			fn(chunk, end, end)
		}
		return
	}

	wg := &sync.WaitGroup{}
	wg.Add(rt.workers)
	for chunk := 0; chunk < rt.workers; chunk++ {
		lo, hi := ChunkBounds(n, rt.workers, chunk)
		go func(chunk, lo, hi int) {
			defer wg.Done()
			fn(chunk, begin+lo, begin+hi)
		}(chunk, lo, hi)
	}
	wg.Wait()
}

// ChunkBounds returns the half-open bounds of the given chunk when n items
// are split as evenly as possible across the given number of chunks. The
// first n % chunks chunks are one item longer than the rest.
func ChunkBounds(n, chunks, chunk int) (lo, hi int) {
	size, rem := n/chunks, n%chunks
	lo = chunk*size + min(chunk, rem)
	hi = lo + size
	if chunk < rem {
		hi++
	}
	return lo, hi
}

func min(x, y int) int {
	if x < y {
		return x
	}
	return y
}
