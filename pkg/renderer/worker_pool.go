package renderer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/df07/go-cpu-pathtracer/pkg/core"
)

// WorkerState is the lifecycle state of a persistent worker
type WorkerState int32

const (
	WorkerSleeping WorkerState = iota
	WorkerRendering
	WorkerTerminated
)

func (s WorkerState) String() string {
	switch s {
	case WorkerSleeping:
		return "sleeping"
	case WorkerRendering:
		return "rendering"
	case WorkerTerminated:
		return "terminated"
	}
	return "unknown"
}

// Chunk is a contiguous half-open range of row-major pixel indices
type Chunk struct {
	Start int
	End   int
}

// Len returns the number of pixels in the chunk
func (c Chunk) Len() int {
	return c.End - c.Start
}

// SplitChunks partitions [0, pixels) into n contiguous chunks; the last
// chunk takes the remainder.
func SplitChunks(pixels, n int) []Chunk {
	size := pixels / n
	chunks := make([]Chunk, n)
	for i := range chunks {
		chunks[i] = Chunk{Start: i * size, End: (i + 1) * size}
	}
	chunks[n-1].End = pixels
	return chunks
}

// ChunkFunc renders one chunk and reports what it did
type ChunkFunc func(ctx context.Context, chunk Chunk, sampler *core.RandomSampler) WorkerStats

// task is what the pool sends to a worker: either a pass or a stop request
type task struct {
	stop   bool
	ctx    context.Context
	fn     ChunkFunc
	result *WorkerStats
	wg     *sync.WaitGroup
}

// worker owns one chunk and its random state for the pool's lifetime
type worker struct {
	id      int
	chunk   Chunk
	sampler *core.RandomSampler
	tasks   chan task
	done    chan struct{}
	state   atomic.Int32
}

// WorkerPool runs passes over a fixed set of persistent workers, each bound to one chunk.
// Run and Close must not be called concurrently.
type WorkerPool struct {
	workers []*worker
	closed  bool
}

// NewWorkerPool starts one goroutine per chunk. Workers sleep until Run is called.
func NewWorkerPool(pixels, threads int) (*WorkerPool, error) {
	if threads <= 0 {
		return nil, ErrInvalidThreadCount
	}

	seed := uint64(time.Now().UnixNano())
	pool := &WorkerPool{}
	for i, chunk := range SplitChunks(pixels, threads) {
		w := &worker{
			id:      i,
			chunk:   chunk,
			sampler: core.NewRandomSampler(seed, core.SplitMix64(uint64(i))),
			tasks:   make(chan task),
			done:    make(chan struct{}),
		}
		pool.workers = append(pool.workers, w)
		go w.run()
	}
	return pool, nil
}

// run is the main worker loop
func (w *worker) run() {
	defer close(w.done)

	for t := range w.tasks {
		if t.stop {
			w.state.Store(int32(WorkerTerminated))
			return
		}

		w.state.Store(int32(WorkerRendering))
		start := time.Now()
		stats := t.fn(t.ctx, w.chunk, w.sampler)
		stats.Worker = w.id
		stats.Duration = time.Since(start)
		*t.result = stats
		w.state.Store(int32(WorkerSleeping))
		t.wg.Done()
	}
}

// Run wakes every worker with fn and blocks until all of them finish
func (p *WorkerPool) Run(ctx context.Context, fn ChunkFunc) []WorkerStats {
	results := make([]WorkerStats, len(p.workers))
	if p.closed {
		return results
	}

	var wg sync.WaitGroup
	wg.Add(len(p.workers))
	for i, w := range p.workers {
		w.tasks <- task{ctx: ctx, fn: fn, result: &results[i], wg: &wg}
	}
	wg.Wait()
	return results
}

// Close stops every worker and waits for each goroutine to exit.
// It is safe to call more than once.
func (p *WorkerPool) Close() {
	if p.closed {
		return
	}
	p.closed = true
	for _, w := range p.workers {
		w.tasks <- task{stop: true}
		<-w.done
	}
}

// Size returns the number of workers
func (p *WorkerPool) Size() int {
	return len(p.workers)
}

// Chunks returns the pixel range of each worker
func (p *WorkerPool) Chunks() []Chunk {
	chunks := make([]Chunk, len(p.workers))
	for i, w := range p.workers {
		chunks[i] = w.chunk
	}
	return chunks
}

// States returns the current state of each worker
func (p *WorkerPool) States() []WorkerState {
	states := make([]WorkerState, len(p.workers))
	for i, w := range p.workers {
		states[i] = WorkerState(w.state.Load())
	}
	return states
}
