package providers

import (
	"github.com/samber/do/v2"

	"github.com/memevault/memevault-server/internal/caption"
	"github.com/memevault/memevault-server/internal/config"
	"github.com/memevault/memevault-server/internal/logger"
	"github.com/memevault/memevault-server/internal/media/images"
	"github.com/memevault/memevault-server/internal/service"
)

// ProvideCaptionClient provides the vision-model caption service client.
func ProvideCaptionClient(i do.Injector) (*caption.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := caption.NewClient(log.Logger, caption.Config{
		URL:               cfg.Caption.URL,
		Timeout:           cfg.Caption.Timeout,
		RequestsPerSecond: cfg.Caption.RequestsPerSecond,
	})

	log.Info("Caption client configured", "url", cfg.Caption.URL)

	return client, nil
}

// ProvideMemeService provides the meme catalog pipeline service.
func ProvideMemeService(i do.Injector) (*service.MemeService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storage := do.MustInvoke[*images.Storage](i)
	captionClient := do.MustInvoke[*caption.Client](i)

	return service.NewMemeService(log.Logger, storeHandle.Store, indexHandle.MemeIndex, storage, captionClient), nil
}
