package api

import (
	"github.com/shelfmark/shelfmark-server/internal/service"
)

// Services groups the business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Ingest *service.IngestService
	Filter *service.FilterService
	Book   *service.BookService
}
