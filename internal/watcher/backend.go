package watcher

import "context"

// Backend defines the strategy-specific directory watching implementation.
type Backend interface {
	// Watch registers a directory to be monitored. The watch is
	// non-recursive: only direct children produce events.
	Watch(path string) error

	// Start begins delivering events. It blocks until the context is
	// cancelled or an unrecoverable error occurs.
	Start(ctx context.Context) error

	// Stop halts event delivery and releases all resources.
	Stop() error

	// Events returns the channel for receiving creation events.
	Events() <-chan Event

	// Errors returns the channel for receiving errors.
	Errors() <-chan error
}
