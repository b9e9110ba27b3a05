package watcher

// Event represents a filesystem creation notification.
type Event struct {
	// Path is the created file's path.
	Path string

	// IsDir reports whether the created entry is a directory.
	// Directory events are delivered so callers can ignore them
	// explicitly; the watcher itself never descends into them.
	IsDir bool
}
