package api

import (
	"encoding/json/v2"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/service"
)

func TestGetIngestFilters_Defaults(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{})

	resp := ts.api.Get("/api/v1/ingest/filters")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[FilterConfigResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)

	cfg := envelope.Data
	assert.False(t, cfg.GenreFilterEnabled)
	assert.False(t, cfg.AuthorFilterEnabled)
	assert.Empty(t, cfg.AllowedGenres)
	assert.Empty(t, cfg.AllowedAuthors)

	// Unconfigured allow-lists serialize as arrays, not null.
	assert.True(t, strings.Contains(resp.Body.String(), `"allowedGenres":[]`), resp.Body.String())
	assert.True(t, strings.Contains(resp.Body.String(), `"allowedAuthors":[]`), resp.Body.String())
}

func TestUpdateIngestFilters(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{})

	resp := ts.api.Put("/api/v1/ingest/filters", map[string]any{
		"genreFilterEnabled":  true,
		"allowedGenres":       []string{"novels", "Fiction", "  Philosophy  ", "sci-fi"},
		"authorFilterEnabled": true,
		"allowedAuthors":      []string{"Thoreau, Henry David", "thoreau, henry david", "  "},
	})
	require.Equal(t, http.StatusOK, resp.Code, "update failed: %s", resp.Body.String())

	var envelope testEnvelope[FilterConfigResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	// Aliases canonicalize, entries trim, duplicates drop, order holds.
	cfg := envelope.Data
	assert.True(t, cfg.GenreFilterEnabled)
	assert.Equal(t, []string{"Fiction", "Philosophy", "Science Fiction"}, cfg.AllowedGenres)
	assert.True(t, cfg.AuthorFilterEnabled)
	assert.Equal(t, []string{"Thoreau, Henry David"}, cfg.AllowedAuthors)
	assert.False(t, cfg.UpdatedAt.IsZero())

	// The stored configuration reads back identically.
	resp = ts.api.Get("/api/v1/ingest/filters")
	require.Equal(t, http.StatusOK, resp.Code)

	var fetched testEnvelope[FilterConfigResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &fetched))
	assert.Equal(t, cfg.AllowedGenres, fetched.Data.AllowedGenres)
	assert.Equal(t, cfg.AllowedAuthors, fetched.Data.AllowedAuthors)
}

func TestUpdateIngestFilters_UnknownGenre(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{})

	resp := ts.api.Put("/api/v1/ingest/filters", map[string]any{
		"genreFilterEnabled": true,
		"allowedGenres":      []string{"Philosophy", "Basket Weaving"},
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var envelope testErrorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "VALIDATION", envelope.Code)
	assert.Contains(t, envelope.Message, "taxonomy")

	// The details name the offenders and carry the full taxonomy.
	unknown, ok := envelope.Details["unknownGenres"].([]any)
	require.True(t, ok, "details: %v", envelope.Details)
	assert.Equal(t, []any{"Basket Weaving"}, unknown)
	assert.Contains(t, envelope.Details, "taxonomy")

	// A rejected update leaves the stored configuration untouched.
	resp = ts.api.Get("/api/v1/ingest/filters")
	require.Equal(t, http.StatusOK, resp.Code)

	var cfg testEnvelope[FilterConfigResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &cfg))
	assert.False(t, cfg.Data.GenreFilterEnabled)
	assert.Empty(t, cfg.Data.AllowedGenres)
}

func TestFilterStats(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{page: candidatePage("cur-2", "walden-1854", "meditations-0180")})

	// Allow only Philosophy; the stub enricher classifies everything as
	// Fiction, so the whole batch is filtered on genre.
	resp := ts.api.Put("/api/v1/ingest/filters", map[string]any{
		"genreFilterEnabled": true,
		"allowedGenres":      []string{"Philosophy"},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/ingest/runs")
	require.Equal(t, http.StatusOK, resp.Code)

	var run testEnvelope[RunSummaryResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &run))
	assert.Equal(t, 0, run.Data.Added)
	assert.Equal(t, 2, run.Data.Skipped)
	genreRunID := run.Data.JobID

	// Switch to an author allow-list and run again. The candidates were
	// never cataloged, so they re-enter the pipeline and fail on author.
	resp = ts.api.Put("/api/v1/ingest/filters", map[string]any{
		"authorFilterEnabled": true,
		"allowedAuthors":      []string{"Aurelius, Marcus"},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/ingest/runs")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &run))
	assert.Equal(t, 2, run.Data.Skipped)
	authorRunID := run.Data.JobID

	// Unscoped aggregates cover both runs.
	resp = ts.api.Get("/api/v1/ingest/filters/stats")
	require.Equal(t, http.StatusOK, resp.Code)

	var stats testEnvelope[service.FilterStatsReport]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	report := stats.Data
	assert.Equal(t, 4, report.Evaluated)
	assert.Equal(t, 0, report.Passed)
	assert.Equal(t, 2, report.FilteredGenre)
	assert.Equal(t, 2, report.FilteredAuthor)
	require.NotEmpty(t, report.TopGenres)
	assert.Equal(t, "Fiction", report.TopGenres[0].Label)
	assert.Equal(t, 2, report.TopGenres[0].Count)
	require.NotEmpty(t, report.TopAuthors)
	assert.Equal(t, "Author, Test", report.TopAuthors[0].Label)
	assert.Equal(t, 2, report.TopAuthors[0].Count)

	// Scoping to one run narrows the aggregates to its outcomes.
	resp = ts.api.Get("/api/v1/ingest/filters/stats?runId=" + genreRunID)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	assert.Equal(t, genreRunID, stats.Data.RunID)
	assert.Equal(t, 2, stats.Data.Evaluated)
	assert.Equal(t, 2, stats.Data.FilteredGenre)
	assert.Equal(t, 0, stats.Data.FilteredAuthor)

	resp = ts.api.Get("/api/v1/ingest/filters/stats?runId=" + authorRunID)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Data.FilteredAuthor)
	assert.Equal(t, 0, stats.Data.FilteredGenre)

	// An unknown run simply has no recorded evaluations.
	resp = ts.api.Get("/api/v1/ingest/filters/stats?runId=no-such-run")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.Data.Evaluated)
}
