package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/ingest"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/media/assets"
	"github.com/shelfmark/shelfmark-server/internal/service"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

// ProvideIngestService provides the ingestion control service.
func ProvideIngestService(i do.Injector) (*service.IngestService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	runner := do.MustInvoke[*ingest.Runner](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewIngestService(
		storeHandle.Store,
		[]*ingest.Runner{runner},
		validation.New(),
		log.Logger,
	), nil
}

// ProvideFilterService provides the filter configuration service.
func ProvideFilterService(i do.Injector) (*service.FilterService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewFilterService(storeHandle.Store, validation.New(), log.Logger), nil
}

// ProvideBookService provides the catalog read service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	assetStorage := do.MustInvoke[*assets.Storage](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(
		storeHandle.Store,
		indexHandle.SearchIndex,
		assetStorage,
		log.Logger,
	), nil
}
