package api

import (
	"encoding/json/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/search"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

// ingestCatalog runs one batch and returns the cataloged page.
func ingestCatalog(t *testing.T, ts *testServer) service.BookPage {
	t.Helper()

	resp := ts.api.Post("/api/v1/ingest/runs")
	require.Equal(t, http.StatusOK, resp.Code, "trigger failed: %s", resp.Body.String())

	resp = ts.api.Get("/api/v1/books")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[service.BookPage]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestListBooks(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{page: candidatePage("cur-2", "walden-1854", "meditations-0180")})

	page := ingestCatalog(t, ts)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Books, 2)

	for _, book := range page.Books {
		assert.True(t, strings.HasPrefix(book.ID, "bk-"), book.ID)
		assert.Equal(t, "Author, Test", book.Author)
		assert.Equal(t, "Fiction", book.Category)
		assert.Equal(t, []string{"Fiction"}, book.Genres)
		assert.NotEmpty(t, book.SourceID)
	}
}

func TestListBooks_Pagination(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{page: candidatePage("cur-2", "walden-1854", "meditations-0180")})
	ingestCatalog(t, ts)

	resp := ts.api.Get("/api/v1/books?limit=1")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[service.BookPage]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.Total, "total counts the whole catalog")
	assert.Len(t, envelope.Data.Books, 1)
	assert.Equal(t, 1, envelope.Data.Limit)

	resp = ts.api.Get("/api/v1/books?limit=1&offset=1")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data.Books, 1)
	assert.Equal(t, 1, envelope.Data.Offset)
}

func TestListBooks_CategoryFilter(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{page: candidatePage("cur-2", "walden-1854")})
	ingestCatalog(t, ts)

	resp := ts.api.Get("/api/v1/books?category=Fiction")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[service.BookPage]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.Total)

	resp = ts.api.Get("/api/v1/books?category=Poetry")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, 0, envelope.Data.Total)
	assert.Empty(t, envelope.Data.Books)
}

func TestGetBook(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{page: candidatePage("cur-2", "walden-1854")})
	page := ingestCatalog(t, ts)
	require.Len(t, page.Books, 1)

	resp := ts.api.Get("/api/v1/books/" + page.Books[0].ID)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		SourceID string `json:"source_id"`
		AssetURL string `json:"asset_url"`
	}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, page.Books[0].ID, envelope.Data.ID)
	assert.Equal(t, "Title walden-1854", envelope.Data.Title)
	assert.Equal(t, "walden-1854", envelope.Data.SourceID)
	assert.NotEmpty(t, envelope.Data.AssetURL)
}

func TestGetBook_NotFound(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{})

	resp := ts.api.Get("/api/v1/books/bk-missing")
	require.Equal(t, http.StatusNotFound, resp.Code)

	var envelope testErrorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "NOT_FOUND", envelope.Code)
}

func TestSearchBooks(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{page: candidatePage("cur-2", "walden-1854", "meditations-0180")})
	ingestCatalog(t, ts)

	resp := ts.api.Get("/api/v1/books/search?q=walden")
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[search.SearchResult]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	result := envelope.Data
	assert.Equal(t, "walden", result.Query)
	assert.Equal(t, uint64(1), result.Total)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Title walden-1854", result.Hits[0].Title)
	assert.Equal(t, "Fiction", result.Hits[0].Category)
	assert.Greater(t, result.Hits[0].Score, 0.0)
}

func TestSearchBooks_Filters(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{page: candidatePage("cur-2", "walden-1854", "meditations-0180")})
	ingestCatalog(t, ts)

	tests := []struct {
		name  string
		query string
		total uint64
	}{
		{"query matches both titles", "q=title", 2},
		{"genre filter keeps matches", "q=title&genres=Fiction", 2},
		{"genre filter drops mismatches", "q=title&genres=Poetry", 0},
		{"language filter keeps matches", "q=title&language=eng", 2},
		{"language filter drops mismatches", "q=title&language=fre", 0},
		{"year window includes 1870", "q=title&minYear=1800&maxYear=1900", 2},
		{"year window excludes 1870", "q=title&minYear=1900", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Get("/api/v1/books/search?" + tt.query)
			require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

			var envelope testEnvelope[search.SearchResult]
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
			assert.Equal(t, tt.total, envelope.Data.Total)
		})
	}
}

func TestSearchBooks_MissingQuery(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{})

	resp := ts.api.Get("/api/v1/books/search")
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var envelope testErrorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION", envelope.Code)
	assert.Contains(t, envelope.Message, "query")
}

func TestBookAsset(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{page: candidatePage("cur-2", "walden-1854")})
	page := ingestCatalog(t, ts)
	require.Len(t, page.Books, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/"+page.Books[0].ID+"/asset", nil)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "%PDF")
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/pdf"), rec.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="walden-1854.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
}

func TestBookAsset_RangeRequest(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{page: candidatePage("cur-2", "walden-1854")})
	page := ingestCatalog(t, ts)
	require.Len(t, page.Books, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/"+page.Books[0].ID+"/asset", nil)
	req.Header.Set("Range", "bytes=0-3")
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "%PDF", rec.Body.String())
}

func TestBookAsset_NotFound(t *testing.T) {
	ts := setupTestServer(t, &stubFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/bk-missing/asset", nil)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var envelope testEnvelope[any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Error)
}
