package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/media/assets"
)

// ProvideAssetStorage provides the filesystem store for downloaded book assets.
func ProvideAssetStorage(i do.Injector) (*assets.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	// NewStorage appends the assets directory itself.
	storage, err := assets.NewStorage(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	log.Info("Asset storage initialized", "path", cfg.AssetsPath())

	return storage, nil
}
