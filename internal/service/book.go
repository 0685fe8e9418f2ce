// Package service provides the business logic layer for catalog browsing,
// ingestion control, filtering, and enrichment.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/media/assets"
	"github.com/shelfmark/shelfmark-server/internal/search"
	"github.com/shelfmark/shelfmark-server/internal/store/sqlite"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// BookService serves catalog reads: listing, lookup, search, and asset
// resolution. Catalog writes happen through the ingestion pipeline only.
type BookService struct {
	store  *sqlite.Store
	index  search.Indexer
	assets *assets.Storage
	logger *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(store *sqlite.Store, index search.Indexer, assetStore *assets.Storage, logger *slog.Logger) *BookService {
	return &BookService{
		store:  store,
		index:  index,
		assets: assetStore,
		logger: logger,
	}
}

// BookPage is one page of catalog listing results.
type BookPage struct {
	Books  []*domain.Book `json:"books"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ListBooks returns one page of the catalog, newest first, optionally
// narrowed to a browse category. A non-positive limit means the default.
func (s *BookService) ListBooks(ctx context.Context, category string, limit, offset int) (*BookPage, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	books, err := s.store.ListBooks(ctx, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	total, err := s.store.CountBooks(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	return &BookPage{
		Books:  books,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// GetBook returns one book by ID.
func (s *BookService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book %s: %w", id, err)
	}
	return book, nil
}

// Search runs a full-text query against the catalog index. The query string
// is required; pagination and sorting fall back to the index defaults.
func (s *BookService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, errors.Validation("search query is required")
	}

	defaults := search.DefaultSearchParams()
	if params.Limit <= 0 {
		params.Limit = defaults.Limit
	}
	if params.Limit > maxListLimit {
		params.Limit = maxListLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	if params.SortBy == "" {
		params.SortBy = defaults.SortBy
	}
	if params.SortOrder == "" {
		params.SortOrder = defaults.SortOrder
	}

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return result, nil
}

// Asset resolves the stored asset file for a book. It returns the book and
// the filesystem path of its asset, suitable for http.ServeFile. Books
// without an ingested asset yield a not-found error.
func (s *BookService) Asset(ctx context.Context, id string) (*domain.Book, string, error) {
	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("get book %s: %w", id, err)
	}
	if !book.HasSource() || book.AssetPath == "" {
		return nil, "", errors.NotFoundf("book %s has no stored asset", id)
	}
	if !s.assets.Exists(book.SourceID) {
		s.logger.Warn("asset file missing on disk",
			"book_id", id,
			"source_id", book.SourceID,
			"path", book.AssetPath,
		)
		return nil, "", errors.NotFoundf("asset for book %s is missing", id)
	}
	return book, s.assets.Path(book.SourceID), nil
}
