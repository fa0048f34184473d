// Package parallel runs the CPU reference compositor across goroutines.
//
// The canvas is cut into horizontal bands, one task per band. Each task
// walks every triangle in submission order clipped to its band, so the
// blend order at any pixel is the order a single-threaded draw would use.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a fixed set of goroutines fed from one queue.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int
	queue   chan func()
	wg      sync.WaitGroup
	running atomic.Bool
	once    sync.Once
}

// NewWorkerPool starts a pool. If workers is 0 or negative, GOMAXPROCS is
// used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &WorkerPool{
		workers: workers,
		queue:   make(chan func(), workers*4),
	}
	p.running.Store(true)
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for work := range p.queue {
		work()
	}
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int { return p.workers }

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool { return p.running.Load() }

// ExecuteAll runs every item and waits for all of them. Nil items are
// skipped. After Close the items run on the calling goroutine.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}
	if !p.running.Load() || len(work) == 1 {
		for _, w := range work {
			if w != nil {
				w()
			}
		}
		return
	}
	var wg sync.WaitGroup
	for _, w := range work {
		if w == nil {
			continue
		}
		wg.Add(1)
		p.queue <- func() {
			defer wg.Done()
			w()
		}
	}
	wg.Wait()
}

// Close stops the workers after the queue drains. It is idempotent.
// ExecuteAll must not be running concurrently with Close.
func (p *WorkerPool) Close() {
	p.once.Do(func() {
		p.running.Store(false)
		close(p.queue)
		p.wg.Wait()
	})
}
