// Package monitor watches the library directory for new files and runs
// them through an admission pipeline: filter and deduplicate candidates,
// wait for writes to settle, verify the file, then hand exactly one
// verified instance per file to the downstream processor. In-flight work
// is bounded; admissions beyond the bound are dropped and counted.
package monitor

import "sync"

// Outcome is the result of an admission attempt.
type Outcome int

const (
	// Admitted means the path entered the pending set.
	Admitted Outcome = iota
	// Duplicate means the path is already pending or processing.
	Duplicate
	// AtCapacity means in-flight work is at the configured bound and
	// the admission was dropped.
	AtCapacity
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case Duplicate:
		return "duplicate"
	case AtCapacity:
		return "at_capacity"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of the tracker's state.
type Snapshot struct {
	Pending    int    `json:"pending"`
	Processing int    `json:"processing"`
	Dropped    uint64 `json:"dropped"`
}

// Tracker records which paths are pending (debounce in progress), which
// are processing (handed to the downstream processor), and how many
// admissions were dropped for capacity. A path is a member of at most
// one of the two sets at any instant.
//
// All methods are safe for concurrent use. Mutations arriving after the
// monitor stopped (late-finishing debounce or dispatch work) are benign.
type Tracker struct {
	mu          sync.Mutex
	pending     map[string]struct{}
	processing  map[string]struct{}
	dropped     uint64
	maxInFlight int
}

// NewTracker creates a tracker bounding pending+processing to maxInFlight.
func NewTracker(maxInFlight int) *Tracker {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &Tracker{
		pending:     make(map[string]struct{}),
		processing:  make(map[string]struct{}),
		maxInFlight: maxInFlight,
	}
}

// Admit attempts to admit a path into the pending set. The duplicate
// check, the capacity check, and the insert are one atomic step so two
// concurrent events for the same path cannot both pass the check.
// The returned snapshot reflects the state immediately after the call.
func (t *Tracker) Admit(path string) (Outcome, Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[path]; ok {
		return Duplicate, t.snapshotLocked()
	}
	if _, ok := t.processing[path]; ok {
		return Duplicate, t.snapshotLocked()
	}

	if len(t.pending)+len(t.processing) >= t.maxInFlight {
		t.dropped++
		return AtCapacity, t.snapshotLocked()
	}

	t.pending[path] = struct{}{}
	return Admitted, t.snapshotLocked()
}

// FinishPending removes a path from the pending set. Removing a path
// that is not pending is a no-op.
func (t *Tracker) FinishPending(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, path)
}

// BeginProcessing moves a verified path into the processing set.
func (t *Tracker) BeginProcessing(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processing[path] = struct{}{}
}

// FinishProcessing removes a path from the processing set, allowing a
// same-named path to be admitted again. Removing a path that is not
// processing is a no-op.
func (t *Tracker) FinishProcessing(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.processing, path)
}

// Snapshot returns the current counts.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Reset clears both sets and the dropped counter.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = make(map[string]struct{})
	t.processing = make(map[string]struct{})
	t.dropped = 0
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		Pending:    len(t.pending),
		Processing: len(t.processing),
		Dropped:    t.dropped,
	}
}
