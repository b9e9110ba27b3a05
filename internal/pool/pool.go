// Package pool provides a bounded worker pool for blocking tasks.
//
// The pool is a shared resource: multiple subsystems may submit work,
// and none of them owns the pool's lifetime. A panicking task is
// contained and logged; it never takes a worker down.
package pool

import (
	"fmt"
	"log/slog"
	"sync"
)

// Pool runs submitted tasks on a fixed number of worker goroutines.
type Pool struct {
	logger *slog.Logger
	tasks  chan func()
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New creates a pool with the given number of workers and queue capacity
// and starts the workers immediately.
func New(logger *slog.Logger, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{
		logger: logger,
		tasks:  make(chan func(), queueSize),
	}

	for i := range workers {
		p.wg.Add(1)
		go p.worker(i)
	}

	return p
}

// worker drains the task channel until it is closed.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.tasks {
		p.run(id, task)
	}
}

// run executes one task, containing panics.
func (p *Pool) run(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker task panicked",
				"worker", id,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()
	task()
}

// Submit enqueues a task for execution. It reports false if the pool is
// stopped. Submit blocks only when the queue is full; callers that must
// not block should size the queue accordingly.
func (p *Pool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}
	// Enqueue under the read lock so Stop cannot close the channel
	// between the check and the send.
	p.tasks <- task
	return true
}

// Stop prevents further submissions, runs all queued tasks, and joins
// the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
