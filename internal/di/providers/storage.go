package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/memevault/memevault-server/internal/config"
	"github.com/memevault/memevault-server/internal/logger"
	"github.com/memevault/memevault-server/internal/media/images"
	"github.com/memevault/memevault-server/internal/search"
	"github.com/memevault/memevault-server/internal/service"
	"github.com/memevault/memevault-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the catalog store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Metadata.BasePath, "db")
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Catalog initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.MemeIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewMemeIndex(search.Options{
		DataPath: cfg.Metadata.BasePath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{MemeIndex: index}, nil
}

// ProvideImageStorage provides file storage rooted at the data directory.
func ProvideImageStorage(i do.Injector) (*images.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	storage, err := images.NewStorage(cfg.Library.DataPath)
	if err != nil {
		return nil, err
	}

	log.Info("Image storage ready", "path", cfg.Library.DataPath)

	return storage, nil
}

// TriggerSearchReindexIfNeeded rebuilds the index when it is empty but
// the catalog is not. Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	memeService := do.MustInvoke[*service.MemeService](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	catalogCount, err := memeService.Count(ctx)
	if err != nil || catalogCount == 0 {
		return
	}

	log.Info("Search index is empty but memes exist, triggering initial reindex",
		"meme_count", catalogCount,
	)

	go func() {
		n, err := memeService.Reindex(context.Background())
		if err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		log.Info("Initial search reindex completed", "documents", n)
	}()
}
