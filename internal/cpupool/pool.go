// Package cpupool runs short CPU-bound jobs, such as HTML parsing, on a
// small set of dedicated workers so they never stall request goroutines'
// upstream I/O multiplexing.
package cpupool

import (
	"context"
	"runtime"
	"sync"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
)

type job struct {
	fn   func() (any, error)
	done chan jobResult
}

type jobResult struct {
	value any
	err   error
}

// Pool is a fixed set of workers draining an unbounded FIFO queue. Parse
// jobs are short, so backpressure is left to the upstream HTTP fetches that
// produce the work.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []job
	workers int
	closed  bool
}

// New creates a pool with the given worker count. Counts below 1 fall back
// to DefaultWorkers.
func New(workers int) *Pool {
	if workers < 1 {
		workers = DefaultWorkers()
	}
	p := &Pool{workers: workers}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// DefaultWorkers is clamp(NumCPU-1, 2, 8).
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 2 {
		n = 2
	}
	if n > 8 {
		n = 8
	}
	return n
}

// Submit queues fn and waits for its result. A panicking job is reported as
// an Other error and the worker keeps running. Cancelling the context
// abandons the wait but not the job.
func (p *Pool) Submit(ctx context.Context, fn func() (any, error)) (any, error) {
	done := make(chan jobResult, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, domain.Otherf("cpu pool is closed")
	}
	p.queue = append(p.queue, job{fn: fn, done: done})
	p.mu.Unlock()
	p.cond.Signal()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// QueueDepth reports the number of jobs waiting for a worker.
func (p *Pool) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// WorkerCount reports the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

// Close stops the workers once the queue drains. Submit fails afterwards.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *Pool) worker() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		j := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		j.done <- run(j.fn)
	}
}

func run(fn func() (any, error)) (res jobResult) {
	defer func() {
		if r := recover(); r != nil {
			res = jobResult{err: domain.Otherf("parse worker panicked")}
		}
	}()
	v, err := fn()
	return jobResult{value: v, err: err}
}

var (
	defaultOnce sync.Once
	defaultPool *Pool
)

// Default returns the process-wide pool, creating it on first use.
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultPool = New(DefaultWorkers())
	})
	return defaultPool
}

// Run submits fn to the pool and returns its typed result.
func Run[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T
	v, err := p.Submit(ctx, func() (any, error) { return fn() })
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return out, nil
}
