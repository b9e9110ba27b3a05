package monitor

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/memevault/memevault-server/internal/pool"
)

// VerifyFunc performs a lightweight structural validity check on a file
// without materializing its content.
type VerifyFunc func(path string) error

// gate filters creation events and admits eligible paths into the
// pipeline. OnCreated runs on whatever goroutine delivers the event and
// performs no blocking I/O; the debounce and verification run on the
// shared worker pool.
type gate struct {
	logger     *slog.Logger
	tracker    *Tracker
	pool       *pool.Pool
	dispatcher *Dispatcher
	verify     VerifyFunc
	extensions map[string]struct{}
	debounce   time.Duration
}

func newGate(logger *slog.Logger, tracker *Tracker, p *pool.Pool, d *Dispatcher, verify VerifyFunc, extensions []string, debounce time.Duration) *gate {
	accepted := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		accepted[strings.ToLower(ext)] = struct{}{}
	}

	return &gate{
		logger:     logger,
		tracker:    tracker,
		pool:       p,
		dispatcher: d,
		verify:     verify,
		extensions: accepted,
		debounce:   debounce,
	}
}

// OnCreated handles one file-creation notification.
func (g *gate) OnCreated(path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := g.extensions[ext]; !ok {
		g.logger.Debug("ignoring file with unaccepted extension",
			"path", path,
			"extension", ext,
		)
		return
	}

	outcome, snap := g.tracker.Admit(path)
	switch outcome {
	case Duplicate:
		g.logger.Debug("ignoring duplicate admission", "path", path)
		return
	case AtCapacity:
		g.logger.Warn("dropping admission, in-flight limit reached",
			"path", path,
			"in_flight", snap.Pending+snap.Processing,
			"dropped_total", snap.Dropped,
		)
		return
	}

	if !g.pool.Submit(func() { g.debounceAndVerify(path) }) {
		// Pool is shutting down; release the path so a restart can
		// admit it again.
		g.tracker.FinishPending(path)
		g.logger.Warn("worker pool rejected debounce task", "path", path)
	}
}

// debounceAndVerify waits out the settle interval, re-checks existence,
// verifies the file, and on success hands it to the dispatcher. Runs on
// a pool worker; failures are contained per path.
func (g *gate) debounceAndVerify(path string) {
	time.Sleep(g.debounce)

	// Pending membership only ever means "debounce in progress".
	g.tracker.FinishPending(path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Normal for temp/write-then-rename patterns.
			g.logger.Debug("file vanished before verification", "path", path)
		} else {
			g.logger.Warn("failed to stat file",
				"path", path,
				"error", err,
			)
		}
		return
	}

	if err := g.verify(path); err != nil {
		g.logger.Warn("file failed verification",
			"path", path,
			"error", err,
		)
		return
	}

	g.tracker.BeginProcessing(path)
	if !g.dispatcher.Dispatch(path) {
		g.tracker.FinishProcessing(path)
		g.logger.Warn("dispatcher rejected verified file", "path", path)
	}
}
