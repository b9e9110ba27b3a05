package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// nativeBackend implements Backend using fsnotify OS notifications.
type nativeBackend struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup

	stopOnce sync.Once
}

// newNativeBackend creates a backend using fsnotify.
func newNativeBackend(logger *slog.Logger, opts Options) (*nativeBackend, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &nativeBackend{
		logger:  logger,
		opts:    opts,
		watcher: fsw,
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Watch registers a directory (non-recursive).
func (b *nativeBackend) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path is not a directory: %s", path)
	}

	if err := b.watcher.Add(path); err != nil {
		return fmt.Errorf("failed to add watch: %w", err)
	}

	b.logger.Debug("added watch", "path", path)
	return nil
}

// Start begins delivering events until the context is cancelled.
func (b *nativeBackend) Start(ctx context.Context) error {
	b.wg.Add(1)
	go b.processEvents(ctx)

	<-ctx.Done()
	return nil
}

// processEvents translates fsnotify events into creation Events.
func (b *nativeBackend) processEvents(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			b.handleFsnotifyEvent(event)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			select {
			case b.errors <- err:
			case <-b.done:
				return
			}
		}
	}
}

// handleFsnotifyEvent forwards Create ops as creation events.
func (b *nativeBackend) handleFsnotifyEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create == 0 {
		return
	}

	path := event.Name
	if b.opts.shouldIgnore(path) {
		return
	}

	// A stat failure here means the entry vanished between the
	// notification and now; report it as a plain file and let the
	// consumer's own existence check deal with it.
	isDir := false
	if info, err := os.Stat(path); err == nil {
		isDir = info.IsDir()
	}

	b.emitEvent(Event{
		Path:  path,
		IsDir: isDir,
	})
}

// emitEvent sends an event unless the backend is stopping.
func (b *nativeBackend) emitEvent(event Event) {
	select {
	case b.events <- event:
	case <-b.done:
	}
}

// Events returns the events channel.
func (b *nativeBackend) Events() <-chan Event {
	return b.events
}

// Errors returns the errors channel.
func (b *nativeBackend) Errors() <-chan error {
	return b.errors
}

// Stop stops the watcher.
func (b *nativeBackend) Stop() error {
	b.stopOnce.Do(func() {
		close(b.done)

		b.watcher.Close()

		b.wg.Wait()

		close(b.events)
		close(b.errors)
	})
	return nil
}
