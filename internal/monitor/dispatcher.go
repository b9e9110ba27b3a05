package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ProcessFunc is the downstream processor invoked once per verified
// file. Its error is observed only for logging; failure does not retry.
type ProcessFunc func(ctx context.Context, path string) error

// Dispatcher hands verified paths to the downstream processor on a
// single consumer goroutine. Dispatch is a thread-safe enqueue; the
// calling worker never blocks waiting for processing to complete.
//
// The dispatcher, like the worker pool, is a shared resource: the
// monitor uses it during its start/stop window but does not own its
// lifetime.
type Dispatcher struct {
	logger  *slog.Logger
	tracker *Tracker
	process ProcessFunc
	queue   chan string
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher. Start must be called before paths
// are dispatched.
func NewDispatcher(logger *slog.Logger, tracker *Tracker, process ProcessFunc, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		logger:  logger,
		tracker: tracker,
		process: process,
		queue:   make(chan string, queueSize),
		done:    make(chan struct{}),
	}
}

// Start launches the consumer goroutine.
func (d *Dispatcher) Start() {
	go d.consume()
}

// Dispatch enqueues a path for processing. It reports false if the
// dispatcher has been stopped, in which case the caller is responsible
// for releasing the path from tracking.
func (d *Dispatcher) Dispatch(path string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}
	// Enqueue under the read lock so Stop cannot close the channel
	// between the check and the send.
	d.queue <- path
	return true
}

// Stop prevents further dispatches, drains the queue, and waits for the
// consumer to finish the path it is on.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
}

// consume runs the processor for each queued path, one at a time.
func (d *Dispatcher) consume() {
	defer close(d.done)

	for path := range d.queue {
		d.handle(path)
	}
}

// handle invokes the processor for one path. The path leaves the
// processing set when the invocation completes, success or not - this
// is the only place the processing set is cleared.
func (d *Dispatcher) handle(path string) {
	defer d.tracker.FinishProcessing(path)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("processor panicked",
				"path", path,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()

	if err := d.process(context.Background(), path); err != nil {
		d.logger.Error("failed to process file",
			"path", path,
			"error", err,
		)
		return
	}

	d.logger.Info("processed file", "path", path)
}
