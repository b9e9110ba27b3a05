package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// pollBackend implements Backend by scanning the directory on an interval.
// It detects creations by diffing the directory listing against the set
// of entries seen on the previous scan.
type pollBackend struct {
	logger *slog.Logger
	opts   Options

	mu    sync.Mutex
	dirs  []string
	known map[string]struct{} // entries seen on the previous scan

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup

	stopOnce sync.Once
}

// newPollBackend creates a polling backend.
func newPollBackend(logger *slog.Logger, opts Options) (*pollBackend, error) {
	return &pollBackend{
		logger: logger,
		opts:   opts,
		known:  make(map[string]struct{}),
		events: make(chan Event, 100),
		errors: make(chan error, 10),
		done:   make(chan struct{}),
	}, nil
}

// Watch registers a directory and primes the known set with its current
// contents. Files already present never produce events: recovering
// entries that appeared while not watching is the caller's concern.
func (b *pollBackend) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path is not a directory: %s", path)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.dirs = append(b.dirs, path)
	b.primeLocked(path)

	b.logger.Debug("added poll watch", "path", path)
	return nil
}

// primeLocked records the directory's current entries without emitting.
func (b *pollBackend) primeLocked(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		b.logger.Warn("failed to prime poll watch", "path", dir, "error", err)
		return
	}
	for _, entry := range entries {
		b.known[filepath.Join(dir, entry.Name())] = struct{}{}
	}
}

// Start scans registered directories on the poll interval until the
// context is cancelled.
func (b *pollBackend) Start(ctx context.Context) error {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ticker := time.NewTicker(b.opts.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case <-ticker.C:
				b.scan()
			}
		}
	}()

	<-ctx.Done()
	return nil
}

// scan diffs each directory listing against the known set and emits
// creation events for new entries.
func (b *pollBackend) scan() {
	b.mu.Lock()
	dirs := make([]string, len(b.dirs))
	copy(dirs, b.dirs)
	b.mu.Unlock()

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			select {
			case b.errors <- fmt.Errorf("poll scan %s: %w", dir, err):
			case <-b.done:
			}
			continue
		}

		seen := make(map[string]struct{}, len(entries))
		var created []Event

		b.mu.Lock()
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			seen[path] = struct{}{}

			if _, ok := b.known[path]; ok {
				continue
			}
			b.known[path] = struct{}{}

			if b.opts.shouldIgnore(path) {
				continue
			}
			created = append(created, Event{Path: path, IsDir: entry.IsDir()})
		}

		// Forget removed entries so a same-named file created later
		// counts as new again.
		for path := range b.known {
			if filepath.Dir(path) != dir {
				continue
			}
			if _, ok := seen[path]; !ok {
				delete(b.known, path)
			}
		}
		b.mu.Unlock()

		for _, event := range created {
			select {
			case b.events <- event:
			case <-b.done:
				return
			}
		}
	}
}

// Events returns the events channel.
func (b *pollBackend) Events() <-chan Event {
	return b.events
}

// Errors returns the errors channel.
func (b *pollBackend) Errors() <-chan error {
	return b.errors
}

// Stop stops the poller.
func (b *pollBackend) Stop() error {
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
		close(b.events)
		close(b.errors)
	})
	return nil
}
