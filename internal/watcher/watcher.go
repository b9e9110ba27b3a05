// Package watcher delivers filesystem creation notifications for a
// single directory, using either native OS notifications or polling.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
)

// Watcher monitors a directory for newly created files.
type Watcher struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a new file watcher with the backend selected by opts.Mode:
//   - native: fsnotify OS notifications, instant detection
//   - polling: interval directory scans, works where notifications don't
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	var backend Backend
	var err error

	switch opts.Mode {
	case ModeNative:
		backend, err = newNativeBackend(logger, opts)
	case ModePolling:
		backend, err = newPollBackend(logger, opts)
	default:
		return nil, fmt.Errorf("unknown watch mode %q", opts.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", opts.Mode, err)
	}

	logger.Info("using watch backend", "mode", string(opts.Mode))

	return &Watcher{
		backend: backend,
		logger:  logger,
	}, nil
}

// Watch registers a directory to be monitored (non-recursive).
func (w *Watcher) Watch(path string) error {
	return w.backend.Watch(path)
}

// Start begins watching for events. Blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	return w.backend.Start(ctx)
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() error {
	return w.backend.Stop()
}

// Events returns the channel for receiving creation events.
func (w *Watcher) Events() <-chan Event {
	return w.backend.Events()
}

// Errors returns the channel for receiving errors.
func (w *Watcher) Errors() <-chan error {
	return w.backend.Errors()
}
