package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/memevault/memevault-server/internal/pool"
	"github.com/memevault/memevault-server/internal/watcher"
)

// defaultShutdownTimeout bounds how long Stop waits for the watch
// mechanism to halt before discarding it anyway.
const defaultShutdownTimeout = 5 * time.Second

// Config holds the monitor's immutable configuration.
type Config struct {
	// Directory is the watched directory (non-recursive).
	Directory string
	// Extensions is the set of accepted file extensions.
	Extensions []string
	// Debounce is the settle interval before verification.
	Debounce time.Duration
	// WatchMode selects native notifications or polling.
	WatchMode watcher.Mode
	// PollInterval is the scan interval for polling mode.
	PollInterval time.Duration
}

// Monitor owns the watch registration and drives the admission
// pipeline. The worker pool, dispatcher, and tracker are injected
// shared resources; the monitor controls them only within its own
// start/stop window.
//
// Stop prevents new admissions but does not cancel in-flight debounce
// or dispatch work; late-finishing tasks mutate the tracker after the
// monitor reports stopped, which is safe.
type Monitor struct {
	logger     *slog.Logger
	cfg        Config
	tracker    *Tracker
	pool       *pool.Pool
	dispatcher *Dispatcher
	verify     VerifyFunc

	shutdownTimeout time.Duration

	mu       sync.Mutex
	running  bool
	watch    *watcher.Watcher
	gate     *gate
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// New creates a monitor. Start must be called before events are handled.
func New(logger *slog.Logger, cfg Config, tracker *Tracker, p *pool.Pool, d *Dispatcher, verify VerifyFunc) *Monitor {
	return &Monitor{
		logger:          logger,
		cfg:             cfg,
		tracker:         tracker,
		pool:            p,
		dispatcher:      d,
		verify:          verify,
		shutdownTimeout: defaultShutdownTimeout,
	}
}

// Start registers the watch and begins handling creation events.
// Starting an already-running monitor is a logged no-op.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.logger.Info("monitor already running", "directory", m.cfg.Directory)
		return nil
	}

	w, err := watcher.New(m.logger, watcher.Options{
		Mode:         m.cfg.WatchMode,
		PollInterval: m.cfg.PollInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.Watch(m.cfg.Directory); err != nil {
		w.Stop()
		return fmt.Errorf("failed to watch directory %s: %w", m.cfg.Directory, err)
	}

	m.gate = newGate(m.logger, m.tracker, m.pool, m.dispatcher, m.verify, m.cfg.Extensions, m.cfg.Debounce)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.loopDone = make(chan struct{})
	m.watch = w
	m.running = true

	go m.loop(ctx, w, m.gate, m.loopDone)

	m.logger.Info("monitor started",
		"directory", m.cfg.Directory,
		"mode", string(m.cfg.WatchMode),
		"debounce", m.cfg.Debounce.String(),
	)
	return nil
}

// loop forwards creation events to the gate until the context is
// cancelled or the watcher's channels close.
func (m *Monitor) loop(ctx context.Context, w *watcher.Watcher, g *gate, done chan struct{}) {
	defer close(done)

	go func() {
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("watcher stopped unexpectedly", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			if ev.IsDir {
				continue
			}
			g.OnCreated(ev.Path)
		case err, ok := <-w.Errors():
			if !ok {
				continue
			}
			m.logger.Error("watch error", "error", err)
		}
	}
}

// Stop halts event intake and resets the tracker. In-flight debounce
// and dispatch work runs to completion. Stopping a monitor that is not
// running is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}

	m.cancel()
	if err := m.watch.Stop(); err != nil {
		m.logger.Warn("error stopping watcher", "error", err)
	}
	loopDone := m.loopDone
	m.mu.Unlock()

	// Wait without the lock so status queries stay responsive while the
	// watch loop drains.
	select {
	case <-loopDone:
	case <-time.After(m.shutdownTimeout):
		m.logger.Warn("watcher did not stop within timeout, discarding handle",
			"timeout", m.shutdownTimeout.String(),
		)
	}

	m.mu.Lock()
	m.watch = nil
	m.gate = nil
	m.cancel = nil
	m.running = false
	m.mu.Unlock()
	m.tracker.Reset()

	m.logger.Info("monitor stopped", "directory", m.cfg.Directory)
}

// IsRunning reports whether a watch registration is currently active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Stats returns the tracker's current counts.
func (m *Monitor) Stats() Snapshot {
	return m.tracker.Snapshot()
}
