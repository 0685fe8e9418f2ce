package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/store/sqlite"
	"github.com/shelfmark/shelfmark-server/internal/taxonomy"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

const (
	defaultTopFilteredLimit = 10
	maxTopFilteredLimit     = 50
)

// FilterService manages the candidate inclusion filters and their
// evaluation statistics.
type FilterService struct {
	store     *sqlite.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewFilterService creates a new filter service.
func NewFilterService(store *sqlite.Store, validator *validation.Validator, logger *slog.Logger) *FilterService {
	return &FilterService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// GetFilters returns the current filter configuration. An unconfigured
// system returns disabled filters, never an error.
func (s *FilterService) GetFilters(ctx context.Context) (*domain.FilterConfig, error) {
	cfg, err := s.store.GetFilterConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("get filter config: %w", err)
	}
	return cfg, nil
}

// UpdateFiltersRequest replaces the filter configuration wholesale.
type UpdateFiltersRequest struct {
	GenreFilterEnabled  bool     `json:"genreFilterEnabled"`
	AllowedGenres       []string `json:"allowedGenres,omitempty" validate:"max=50,dive,max=100"`
	AuthorFilterEnabled bool     `json:"authorFilterEnabled"`
	AllowedAuthors      []string `json:"allowedAuthors,omitempty" validate:"max=200,dive,max=200"`
}

// UpdateFilters validates and replaces the filter configuration. Genres must
// come from the classification taxonomy and are stored in canonical form;
// authors are free-form. Entries are trimmed and deduplicated, preserving
// order.
func (s *FilterService) UpdateFilters(ctx context.Context, req UpdateFiltersRequest) (*domain.FilterConfig, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	genres, unknown := canonicalGenres(req.AllowedGenres)
	if len(unknown) > 0 {
		return nil, errors.ValidationWithDetails("allowed genres must come from the genre taxonomy", map[string]any{
			"unknownGenres": unknown,
			"taxonomy":      taxonomy.Genres(),
		})
	}

	cfg := &domain.FilterConfig{
		GenreFilterEnabled:  req.GenreFilterEnabled,
		AllowedGenres:       genres,
		AuthorFilterEnabled: req.AuthorFilterEnabled,
		AllowedAuthors:      normalizeAuthors(req.AllowedAuthors),
	}

	updated, err := s.store.SetFilterConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("set filter config: %w", err)
	}

	s.logger.Info("filter configuration updated",
		"genre_filter", updated.GenreFilterActive(),
		"allowed_genres", len(updated.AllowedGenres),
		"author_filter", updated.AuthorFilterActive(),
		"allowed_authors", len(updated.AllowedAuthors),
	)
	return updated, nil
}

// canonicalGenres maps each entry to its canonical taxonomy name, dropping
// blanks and duplicates and collecting entries the taxonomy does not know.
func canonicalGenres(entries []string) (genres, unknown []string) {
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		canonical, ok := taxonomy.CanonicalGenre(entry)
		if !ok {
			unknown = append(unknown, entry)
			continue
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		genres = append(genres, canonical)
	}
	return genres, unknown
}

// normalizeAuthors trims entries and drops blanks and case-insensitive
// duplicates, preserving order.
func normalizeAuthors(entries []string) []string {
	seen := make(map[string]bool, len(entries))
	var authors []string
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key := strings.ToLower(entry)
		if seen[key] {
			continue
		}
		seen[key] = true
		authors = append(authors, entry)
	}
	return authors
}

// FilterStatsReport aggregates filter evaluations, optionally scoped to one
// run.
type FilterStatsReport struct {
	RunID          string                `json:"runId,omitempty"`
	Evaluated      int                   `json:"evaluated"`
	Passed         int                   `json:"passed"`
	FilteredGenre  int                   `json:"filteredGenre"`
	FilteredAuthor int                   `json:"filteredAuthor"`
	TopGenres      []sqlite.OutcomeCount `json:"topGenres"`
	TopAuthors     []sqlite.OutcomeCount `json:"topAuthors"`
}

// Stats aggregates filter evaluation records. An empty runID aggregates
// across all runs; limit bounds the top-N lists.
func (s *FilterService) Stats(ctx context.Context, runID string, limit int) (*FilterStatsReport, error) {
	if limit <= 0 {
		limit = defaultTopFilteredLimit
	}
	if limit > maxTopFilteredLimit {
		limit = maxTopFilteredLimit
	}

	counts, err := s.store.CountFilterOutcomes(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("count filter outcomes: %w", err)
	}
	topGenres, err := s.store.TopFilteredGenres(ctx, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("top filtered genres: %w", err)
	}
	topAuthors, err := s.store.TopFilteredAuthors(ctx, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("top filtered authors: %w", err)
	}

	report := &FilterStatsReport{
		RunID:          runID,
		Passed:         counts[domain.FilterPassed],
		FilteredGenre:  counts[domain.FilterByGenre],
		FilteredAuthor: counts[domain.FilterByAuthor],
		TopGenres:      topGenres,
		TopAuthors:     topAuthors,
	}
	report.Evaluated = report.Passed + report.FilteredGenre + report.FilteredAuthor
	return report, nil
}
