package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Mode selects the watch strategy.
type Mode string

// Supported watch modes.
const (
	// ModeNative uses OS file notifications via fsnotify.
	ModeNative Mode = "native"
	// ModePolling scans the directory on an interval. Slower, but works
	// on network mounts and other filesystems without notification support.
	ModePolling Mode = "polling"
)

// Options configures the watcher behavior.
type Options struct {
	Mode           Mode
	PollInterval   time.Duration
	IgnorePatterns []string
	IgnoreHidden   bool
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.Mode == "" {
		o.Mode = ModeNative
	}
	if o.PollInterval == 0 {
		o.PollInterval = 2 * time.Second
	}

	// Set default ignore patterns if none specified (nil, not just empty).
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{
			".DS_Store",
			"*.tmp",
			"*.temp",
			"*.part",
			"Thumbs.db",
		}
		// Also default to ignoring hidden files when no custom config provided.
		o.IgnoreHidden = true
	}
}

// shouldIgnore checks if a path matches ignore patterns.
func (o *Options) shouldIgnore(path string) bool {
	base := filepath.Base(path)

	if o.IgnoreHidden && strings.HasPrefix(base, ".") && base != "." && base != ".." {
		return true
	}

	for _, pattern := range o.IgnorePatterns {
		matched, err := filepath.Match(pattern, base)
		if err == nil && matched {
			return true
		}
	}

	return false
}
