package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

func (s *Server) registerFilterRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getIngestFilters",
		Method:      http.MethodGet,
		Path:        "/api/v1/ingest/filters",
		Summary:     "Get ingestion filters",
		Description: "Returns the genre and author allow-lists applied during ingestion",
		Tags:        []string{"Filters"},
	}, s.handleGetFilters)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateIngestFilters",
		Method:      http.MethodPut,
		Path:        "/api/v1/ingest/filters",
		Summary:     "Update ingestion filters",
		Description: "Replaces the filter configuration. Genres must come from the taxonomy; unknown entries are rejected with the full list in the error details.",
		Tags:        []string{"Filters"},
	}, s.handleUpdateFilters)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFilterStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/ingest/filters/stats",
		Summary:     "Get filter statistics",
		Description: "Returns aggregate filter outcomes: evaluation counts plus the most-filtered genres and authors, optionally scoped to one run",
		Tags:        []string{"Filters"},
	}, s.handleFilterStats)
}

// === DTOs ===

// FilterConfigResponse contains the filter configuration in API responses.
type FilterConfigResponse struct {
	GenreFilterEnabled  bool      `json:"genreFilterEnabled" doc:"Whether the genre allow-list is applied"`
	AllowedGenres       []string  `json:"allowedGenres" doc:"Canonical genres that pass the filter"`
	AuthorFilterEnabled bool      `json:"authorFilterEnabled" doc:"Whether the author allow-list is applied"`
	AllowedAuthors      []string  `json:"allowedAuthors" doc:"Authors that pass the filter"`
	UpdatedAt           time.Time `json:"updatedAt" doc:"Last configuration change"`
}

// FilterConfigOutput wraps the filter configuration for Huma.
type FilterConfigOutput struct {
	Body FilterConfigResponse
}

// UpdateFiltersRequest is the request body for replacing the filter config.
type UpdateFiltersRequest struct {
	GenreFilterEnabled  bool     `json:"genreFilterEnabled" doc:"Apply the genre allow-list"`
	AllowedGenres       []string `json:"allowedGenres,omitempty" validate:"max=50,dive,max=100" doc:"Genres from the taxonomy (aliases accepted)"`
	AuthorFilterEnabled bool     `json:"authorFilterEnabled" doc:"Apply the author allow-list"`
	AllowedAuthors      []string `json:"allowedAuthors,omitempty" validate:"max=200,dive,max=200" doc:"Author names, matched case-insensitively"`
}

// UpdateFiltersInput wraps the update request for Huma.
type UpdateFiltersInput struct {
	Body UpdateFiltersRequest
}

// FilterStatsInput contains parameters for the stats aggregates.
type FilterStatsInput struct {
	RunID string `query:"runId" doc:"Scope the aggregates to one run"`
	Limit int    `query:"limit" validate:"omitempty,gte=1,lte=50" doc:"Max entries in the top-genre and top-author lists (default 10)"`
}

// FilterStatsOutput wraps the stats report for Huma.
type FilterStatsOutput struct {
	Body service.FilterStatsReport
}

// === Handlers ===

func (s *Server) handleGetFilters(ctx context.Context, _ *struct{}) (*FilterConfigOutput, error) {
	cfg, err := s.services.Filter.GetFilters(ctx)
	if err != nil {
		return nil, err
	}

	return &FilterConfigOutput{Body: filterConfig(cfg)}, nil
}

func (s *Server) handleUpdateFilters(ctx context.Context, input *UpdateFiltersInput) (*FilterConfigOutput, error) {
	cfg, err := s.services.Filter.UpdateFilters(ctx, service.UpdateFiltersRequest{
		GenreFilterEnabled:  input.Body.GenreFilterEnabled,
		AllowedGenres:       input.Body.AllowedGenres,
		AuthorFilterEnabled: input.Body.AuthorFilterEnabled,
		AllowedAuthors:      input.Body.AllowedAuthors,
	})
	if err != nil {
		return nil, err
	}

	return &FilterConfigOutput{Body: filterConfig(cfg)}, nil
}

func (s *Server) handleFilterStats(ctx context.Context, input *FilterStatsInput) (*FilterStatsOutput, error) {
	report, err := s.services.Filter.Stats(ctx, input.RunID, input.Limit)
	if err != nil {
		return nil, err
	}

	return &FilterStatsOutput{Body: *report}, nil
}

// filterConfig converts the domain config to its response shape. Nil slices
// become empty ones so clients always see arrays.
func filterConfig(cfg *domain.FilterConfig) FilterConfigResponse {
	resp := FilterConfigResponse{
		GenreFilterEnabled:  cfg.GenreFilterEnabled,
		AllowedGenres:       cfg.AllowedGenres,
		AuthorFilterEnabled: cfg.AuthorFilterEnabled,
		AllowedAuthors:      cfg.AllowedAuthors,
		UpdatedAt:           cfg.UpdatedAt,
	}

	if resp.AllowedGenres == nil {
		resp.AllowedGenres = []string{}
	}
	if resp.AllowedAuthors == nil {
		resp.AllowedAuthors = []string{}
	}

	return resp
}
