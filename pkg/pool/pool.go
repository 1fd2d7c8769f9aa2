// Package pool implements a bounded-concurrency worker pool with an
// unbounded backlog. Submit never blocks the caller; tasks run on a fixed
// number of worker goroutines in submission order.
package pool

import "sync"

// Pool schedules tasks onto a fixed set of workers.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	backlog []func()
	stopped bool

	wg sync.WaitGroup
}

// New creates a pool with the given number of workers and starts them.
// A non-positive width is treated as one worker.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)

	for range workers {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Submit schedules task to run on one of the workers and returns
// immediately. Submitting after Stop drops the task.
func (p *Pool) Submit(task func()) {
	if task == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}

	p.backlog = append(p.backlog, task)
	p.cond.Signal()
}

// Stop prevents further submissions, lets queued tasks drain, and waits
// for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}

// Backlog reports the number of tasks waiting for a worker.
func (p *Pool) Backlog() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.backlog)
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.backlog) == 0 && !p.stopped {
			p.cond.Wait()
		}

		if len(p.backlog) == 0 {
			// stopped and drained
			p.mu.Unlock()

			return
		}

		task := p.backlog[0]
		p.backlog = p.backlog[1:]
		p.mu.Unlock()

		task()
	}
}
