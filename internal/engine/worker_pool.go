package engine

import (
	"context"
	"sync"
)

// job carries one payload, the context of the request that queued it and
// where to deliver the outcome.
type job[T, R any] struct {
	ctx     context.Context
	payload T
	result  chan<- jobResult[R]
}

type jobResult[R any] struct {
	value R
	err   error
}

// workerPool runs a fixed number of goroutines over a bounded queue.
// Jobs whose context is already done when dequeued are answered with the
// context error and never processed.
type workerPool[T, R any] struct {
	queue   chan job[T, R]
	process func(ctx context.Context, t T) (R, error)
	wg      sync.WaitGroup
	closed  sync.Once
}

// newWorkerPool starts n workers reading from a queue of capacity depth.
// Workers exit when ctx is done or the pool is drained.
func newWorkerPool[T, R any](ctx context.Context, n, depth int, fn func(context.Context, T) (R, error)) *workerPool[T, R] {
	p := &workerPool[T, R]{
		queue:   make(chan job[T, R], depth),
		process: fn,
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.work(ctx)
	}
	return p
}

func (p *workerPool[T, R]) work(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			p.handle(j)
		}
	}
}

func (p *workerPool[T, R]) handle(j job[T, R]) {
	var res jobResult[R]
	if err := j.ctx.Err(); err != nil {
		res.err = err
	} else {
		res.value, res.err = p.process(j.ctx, j.payload)
	}
	if j.result != nil {
		j.result <- res
	}
}

// Submit queues t without blocking and reports whether there was room.
// A non-nil result channel receives the outcome and must be buffered for it.
func (p *workerPool[T, R]) Submit(ctx context.Context, t T, result chan<- jobResult[R]) bool {
	select {
	case p.queue <- job[T, R]{ctx: ctx, payload: t, result: result}:
		return true
	default:
		return false
	}
}

// Drain stops accepting work, lets the workers finish what is queued and
// waits for them. Repeated calls are no-ops.
func (p *workerPool[T, R]) Drain() {
	p.closed.Do(func() { close(p.queue) })
	p.wg.Wait()
}

// QueueLen returns the number of queued jobs.
func (p *workerPool[T, R]) QueueLen() int { return len(p.queue) }

// QueueCap returns the queue capacity.
func (p *workerPool[T, R]) QueueCap() int { return cap(p.queue) }
