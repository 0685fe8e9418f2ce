package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/archive"
	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/gemini"
	"github.com/shelfmark/shelfmark-server/internal/ingest"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/media/assets"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

// ProvideArchiveClient provides the rate-limited archive scrape client.
func ProvideArchiveClient(i do.Injector) (*archive.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := archive.New(cfg.Archive, log.Logger)

	log.Info("Archive client initialized",
		"source", cfg.Archive.Source,
		"base_url", cfg.Archive.BaseURL,
		"collection", cfg.Archive.Collection,
		"min_delay", cfg.Archive.MinDelay,
	)

	return client, nil
}

// ProvideGeminiClient provides the AI classification client. Without an API
// key the client reports disabled and ingestion runs without enrichment.
func ProvideGeminiClient(i do.Injector) (*gemini.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := gemini.New(cfg.Gemini, log.Logger)

	if client.Enabled() {
		log.Info("Gemini enrichment enabled", "model", cfg.Gemini.Model)
	} else {
		log.Warn("Gemini enrichment disabled - no API key configured")
	}

	return client, nil
}

// ProvideEnrichmentService provides the cached AI enrichment service.
func ProvideEnrichmentService(i do.Injector) (*service.EnrichmentService, error) {
	client := do.MustInvoke[*gemini.Client](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewEnrichmentService(client, cacheHandle.Cache, log.Logger), nil
}

// ProvideArchiveRunner provides the ingestion runner for the configured
// archive source.
func ProvideArchiveRunner(i do.Injector) (*ingest.Runner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	archiveClient := do.MustInvoke[*archive.Client](i)
	enrichment := do.MustInvoke[*service.EnrichmentService](i)
	assetStorage := do.MustInvoke[*assets.Storage](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	runner := ingest.NewRunner(
		storeHandle.Store,
		archiveClient,
		enrichment,
		assetStorage,
		indexHandle.SearchIndex,
		cfg.Archive.Source,
		log.Logger,
	)

	return runner, nil
}
