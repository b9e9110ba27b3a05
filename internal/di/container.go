// Package di provides dependency injection configuration for the MemeVault server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/memevault/memevault-server/internal/caption"
	"github.com/memevault/memevault-server/internal/config"
	"github.com/memevault/memevault-server/internal/di/providers"
	"github.com/memevault/memevault-server/internal/logger"
	"github.com/memevault/memevault-server/internal/media/images"
	"github.com/memevault/memevault-server/internal/monitor"
	"github.com/memevault/memevault-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideImageStorage)

	// Caption service client
	do.Provide(injector, providers.ProvideCaptionClient)

	// Business services
	do.Provide(injector, providers.ProvideMemeService)

	// Monitor pipeline
	do.Provide(injector, providers.ProvideTracker)
	do.Provide(injector, providers.ProvideWorkerPool)
	do.Provide(injector, providers.ProvideDispatcher)
	do.Provide(injector, providers.ProvideMonitor)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once the server is up.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*images.Storage](injector)
	_ = do.MustInvoke[*caption.Client](injector)
	_ = do.MustInvoke[*service.MemeService](injector)
	_ = do.MustInvoke[*monitor.Tracker](injector)
	_ = do.MustInvoke[*providers.WorkerPoolHandle](injector)
	_ = do.MustInvoke[*providers.DispatcherHandle](injector)
	_ = do.MustInvoke[*providers.MonitorHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Rebuild the search index when it is empty but the catalog is not.
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
