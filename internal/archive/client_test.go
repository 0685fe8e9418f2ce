package archive

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/config"
)

const scrapeFixture = `{
	"items": [
		{
			"identifier": "hardtimes00dick",
			"title": "Hard Times",
			"creator": ["Dickens, Charles", "Someone Else"],
			"year": "1854",
			"description": "<p>A novel of <b>industrial</b> England.</p>",
			"language": ["eng"]
		},
		{
			"identifier": "walden00thor",
			"title": ["Walden", "Life in the Woods"],
			"creator": "Thoreau, Henry David",
			"year": 1854,
			"description": ["Part one.", "Part two."],
			"language": "eng"
		},
		{
			"identifier": "",
			"title": "Orphaned record"
		}
	],
	"count": 3,
	"total": 120,
	"cursor": "W3siaWQi"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)

	cfg := config.ArchiveConfig{
		BaseURL:    server.URL,
		Collection: "gutenberg",
		MinDelay:   time.Millisecond,
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	return New(cfg, logger), server
}

func TestClient_FetchPage(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		statusCode int
		wantCount  int
		wantCursor string
		wantErr    error
	}{
		{
			name:       "successful fetch drops identifierless record",
			response:   scrapeFixture,
			statusCode: http.StatusOK,
			wantCount:  2,
			wantCursor: "W3siaWQi",
		},
		{
			name:       "exhausted source has no cursor",
			response:   `{"items": [], "count": 0, "total": 120}`,
			statusCode: http.StatusOK,
			wantCount:  0,
			wantCursor: "",
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			wantErr:    ErrRateLimited,
		},
		{
			name:       "bad request",
			statusCode: http.StatusBadRequest,
			wantErr:    ErrBadRequest,
		},
		{
			name:       "server error",
			statusCode: http.StatusServiceUnavailable,
			wantErr:    ErrServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if tt.response != "" {
					w.Write([]byte(tt.response))
				}
			}

			client, server := newTestClient(t, handler)
			defer server.Close()
			defer client.Close()

			page, err := client.FetchPage(context.Background(), 1, "", 15)

			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("expected error %v, got nil", tt.wantErr)
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected wrapped error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(page.Candidates) != tt.wantCount {
				t.Errorf("got %d candidates, want %d", len(page.Candidates), tt.wantCount)
			}
			if page.Cursor != tt.wantCursor {
				t.Errorf("got cursor %q, want %q", page.Cursor, tt.wantCursor)
			}
		})
	}
}

func TestClient_FetchPage_Normalization(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(scrapeFixture))
	}

	client, server := newTestClient(t, handler)
	defer server.Close()
	defer client.Close()

	page, err := client.FetchPage(context.Background(), 1, "", 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(page.Candidates))
	}

	first := page.Candidates[0]
	if first.Identifier != "hardtimes00dick" {
		t.Errorf("expected identifier 'hardtimes00dick', got %q", first.Identifier)
	}
	if first.Author != "Dickens, Charles" {
		t.Errorf("expected first-of-array author, got %q", first.Author)
	}
	if first.Year != 1854 {
		t.Errorf("expected year 1854, got %d", first.Year)
	}
	if strings.Contains(first.Description, "<") {
		t.Errorf("description should have HTML converted, got %q", first.Description)
	}
	if first.Description != "A novel of **industrial** England." {
		t.Errorf("expected markdown description, got %q", first.Description)
	}
	if first.Language != "eng" {
		t.Errorf("expected language 'eng', got %q", first.Language)
	}
	wantURL := server.URL + "/download/hardtimes00dick/hardtimes00dick.pdf"
	if first.AssetURL != wantURL {
		t.Errorf("got asset URL %q, want %q", first.AssetURL, wantURL)
	}

	second := page.Candidates[1]
	if second.Title != "Walden" {
		t.Errorf("expected first-of-array title, got %q", second.Title)
	}
	if second.Year != 1854 {
		t.Errorf("expected numeric year parsed, got %d", second.Year)
	}
	if second.Description != "Part one. Part two." {
		t.Errorf("expected joined description, got %q", second.Description)
	}
}

func TestClient_FetchPage_SendsCursor(t *testing.T) {
	var gotCursor, gotCount string
	handler := func(w http.ResponseWriter, r *http.Request) {
		gotCursor = r.URL.Query().Get("cursor")
		gotCount = r.URL.Query().Get("count")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"items": [], "count": 0, "total": 0}`))
	}

	client, server := newTestClient(t, handler)
	defer server.Close()
	defer client.Close()

	if _, err := client.FetchPage(context.Background(), 3, "abc123", 25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCursor != "abc123" {
		t.Errorf("expected cursor 'abc123' sent, got %q", gotCursor)
	}
	if gotCount != "25" {
		t.Errorf("expected count '25' sent, got %q", gotCount)
	}
}

func TestClient_DownloadAsset(t *testing.T) {
	payload := strings.Repeat("x", 1024)
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/download/item01/item01.pdf" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(payload))
	}

	client, server := newTestClient(t, handler)
	defer server.Close()
	defer client.Close()

	data, err := client.DownloadAsset(context.Background(), server.URL+"/download/item01/item01.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("got %d bytes, want %d", len(data), len(payload))
	}

	_, err = client.DownloadAsset(context.Background(), server.URL+"/download/missing/missing.pdf")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing asset, got %v", err)
	}
}

func TestClient_DownloadAsset_SizeCap(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(make([]byte, 2048))
	}

	client, server := newTestClient(t, handler)
	defer server.Close()
	defer client.Close()
	client.maxAssetBytes = 1024

	_, err := client.DownloadAsset(context.Background(), server.URL+"/download/big/big.pdf")
	if !errors.Is(err, ErrAssetTooLarge) {
		t.Errorf("expected ErrAssetTooLarge, got %v", err)
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
		w.WriteHeader(http.StatusOK)
	}

	client, server := newTestClient(t, handler)
	defer server.Close()
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.FetchPage(ctx, 1, "", 15)
	if err == nil {
		t.Error("expected error due to context cancellation")
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with identifier",
			err: &Error{
				Op:         "downloadAsset",
				Identifier: "hardtimes00dick",
				Err:        ErrNotFound,
			},
			want: "archive downloadAsset [hardtimes00dick]: archive: not found",
		},
		{
			name: "without identifier",
			err: &Error{
				Op:  "fetchPage",
				Err: ErrRateLimited,
			},
			want: "archive fetchPage: archive: rate limited by server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
