package providers

import (
	"github.com/samber/do/v2"

	"github.com/memevault/memevault-server/internal/config"
	"github.com/memevault/memevault-server/internal/logger"
	"github.com/memevault/memevault-server/internal/media/images"
	"github.com/memevault/memevault-server/internal/monitor"
	"github.com/memevault/memevault-server/internal/pool"
	"github.com/memevault/memevault-server/internal/service"
	"github.com/memevault/memevault-server/internal/watcher"
)

// taskQueueSize is the buffered backlog for the worker pool and the
// dispatcher. Admission is already bounded by the tracker, so this only
// needs to absorb bursts.
const taskQueueSize = 64

// ProvideTracker provides the shared in-flight tracker.
func ProvideTracker(i do.Injector) (*monitor.Tracker, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return monitor.NewTracker(cfg.Monitor.MaxInFlight), nil
}

// WorkerPoolHandle wraps the debounce/verify pool with shutdown capability.
type WorkerPoolHandle struct {
	*pool.Pool
}

// Shutdown implements do.Shutdownable.
func (h *WorkerPoolHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideWorkerPool provides the debounce/verify worker pool.
func ProvideWorkerPool(i do.Injector) (*WorkerPoolHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	p := pool.New(log.Logger, cfg.Monitor.Workers, taskQueueSize)
	log.Info("Worker pool started", "workers", cfg.Monitor.Workers)

	return &WorkerPoolHandle{Pool: p}, nil
}

// DispatcherHandle wraps the dispatcher with shutdown capability.
type DispatcherHandle struct {
	*monitor.Dispatcher
}

// Shutdown implements do.Shutdownable.
func (h *DispatcherHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideDispatcher provides the started processing dispatcher, wired to
// the meme service pipeline.
func ProvideDispatcher(i do.Injector) (*DispatcherHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	tracker := do.MustInvoke[*monitor.Tracker](i)
	memeService := do.MustInvoke[*service.MemeService](i)

	d := monitor.NewDispatcher(log.Logger, tracker, memeService.Process, taskQueueSize)
	d.Start()

	return &DispatcherHandle{Dispatcher: d}, nil
}

// MonitorHandle wraps the monitor with shutdown capability.
type MonitorHandle struct {
	*monitor.Monitor
}

// Shutdown implements do.Shutdownable.
func (h *MonitorHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideMonitor provides the started directory monitor.
func ProvideMonitor(i do.Injector) (*MonitorHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	tracker := do.MustInvoke[*monitor.Tracker](i)
	poolHandle := do.MustInvoke[*WorkerPoolHandle](i)
	dispatcherHandle := do.MustInvoke[*DispatcherHandle](i)

	verify := func(path string) error {
		_, err := images.Verify(path)
		return err
	}

	m := monitor.New(log.Logger, monitor.Config{
		Directory:    cfg.Library.DataPath,
		Extensions:   cfg.Monitor.Extensions,
		Debounce:     cfg.Monitor.Debounce,
		WatchMode:    watcher.Mode(cfg.Monitor.WatchMode),
		PollInterval: cfg.Monitor.PollInterval,
	}, tracker, poolHandle.Pool, dispatcherHandle.Dispatcher, verify)

	if err := m.Start(); err != nil {
		return nil, err
	}

	return &MonitorHandle{Monitor: m}, nil
}
