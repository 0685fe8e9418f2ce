package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/http/response"
	"github.com/shelfmark/shelfmark-server/internal/search"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns cataloged books, newest first, optionally filtered by browse category",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/search",
		Summary:     "Search books",
		Description: "Full-text search over the catalog with genre, category, language, and year filters",
		Tags:        []string{"Books"},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book by ID",
		Tags:        []string{"Books"},
	}, s.handleGetBook)
}

// === DTOs ===

// ListBooksInput contains parameters for listing books.
type ListBooksInput struct {
	Category string `query:"category" doc:"Only books in this browse category"`
	Limit    int    `query:"limit" validate:"omitempty,gte=1,lte=200" doc:"Max books to return (default 50)"`
	Offset   int    `query:"offset" validate:"omitempty,gte=0" doc:"Pagination offset"`
}

// ListBooksOutput wraps a catalog page for Huma.
type ListBooksOutput struct {
	Body service.BookPage
}

// GetBookInput contains parameters for fetching one book.
type GetBookInput struct {
	ID string `path:"id" doc:"Book identifier"`
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// SearchBooksInput contains parameters for searching the catalog.
type SearchBooksInput struct {
	Query     string `query:"q" validate:"required,min=1,max=200" doc:"Search query"`
	Genres    string `query:"genres" validate:"omitempty,max=200" doc:"Comma-separated genres to filter by"`
	Category  string `query:"category" doc:"Only books in this browse category"`
	Language  string `query:"language" doc:"Only books in this language"`
	MinYear   int    `query:"minYear" validate:"omitempty,gte=0" doc:"Earliest publication year"`
	MaxYear   int    `query:"maxYear" validate:"omitempty,gte=0" doc:"Latest publication year"`
	Limit     int    `query:"limit" validate:"omitempty,gte=1,lte=200" doc:"Max hits to return (default 20)"`
	Offset    int    `query:"offset" validate:"omitempty,gte=0" doc:"Pagination offset"`
	SortBy    string `query:"sortBy" validate:"omitempty,oneof=relevance title author recent year" doc:"Sort field (default relevance)"`
	SortOrder string `query:"sortOrder" validate:"omitempty,oneof=asc desc" doc:"Sort direction (default desc)"`
}

// SearchBooksOutput wraps search results for Huma.
type SearchBooksOutput struct {
	Body search.SearchResult
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	page, err := s.services.Book.ListBooks(ctx, input.Category, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	return &ListBooksOutput{Body: *page}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.services.Book.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: book}, nil
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchBooksOutput, error) {
	params := search.SearchParams{
		Query:     input.Query,
		Category:  input.Category,
		Language:  input.Language,
		MinYear:   input.MinYear,
		MaxYear:   input.MaxYear,
		Limit:     input.Limit,
		Offset:    input.Offset,
		SortBy:    input.SortBy,
		SortOrder: input.SortOrder,
	}

	// Comma-separated genres to slice.
	if input.Genres != "" {
		for g := range strings.SplitSeq(input.Genres, ",") {
			g = strings.TrimSpace(g)
			if g != "" {
				params.Genres = append(params.Genres, g)
			}
		}
	}

	result, err := s.services.Book.Search(ctx, params)
	if err != nil {
		s.logger.Error("Search failed", "error", err, "query", input.Query)
		return nil, err
	}

	return &SearchBooksOutput{Body: *result}, nil
}

// handleBookAsset streams a book's downloaded asset. Served outside huma so
// http.ServeFile can answer range requests.
func (s *Server) handleBookAsset(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	if bookID == "" {
		response.BadRequest(w, "Book ID is required", s.logger)
		return
	}

	book, path, err := s.services.Book.Asset(r.Context(), bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filepath.Base(path)))
	w.Header().Set("Cache-Control", "public, max-age=86400")

	s.logger.Debug("serving asset", "book_id", book.ID, "source_id", book.SourceID)

	// http.ServeFile handles range requests, Content-Type from the
	// extension, and Last-Modified based caching.
	http.ServeFile(w, r, path)
}
