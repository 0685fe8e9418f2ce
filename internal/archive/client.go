// Package archive provides a rate-limited client for the public-domain
// archive's scrape API: paged candidate fetching and asset downloads.
package archive

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/ratelimit"
)

const (
	// Polite pacing: one request per delay window, no burst.
	defaultMinDelay = 2 * time.Second

	// HTTP client settings
	defaultTimeout         = 30 * time.Second
	defaultDownloadTimeout = 60 * time.Second

	// API settings
	defaultBaseURL  = "https://archive.org"
	scrapePath      = "/services/search/v1/scrape"
	scrapeFields    = "identifier,title,creator,year,description,language"
	defaultPageSize = 15
	maxPageSize     = 100

	// Asset settings
	defaultMaxAssetBytes = 100 << 20 // 100 MiB
)

// Client is a rate-limited archive scrape API client.
type Client struct {
	http     *http.Client
	download *http.Client
	limiter  *ratelimit.KeyedRateLimiter
	logger   *slog.Logger

	base          *url.URL
	collection    string
	maxAssetBytes int64
}

// New creates a new archive client from configuration. Zero-valued settings
// fall back to package defaults.
func New(cfg config.ArchiveConfig, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		logger.Warn("invalid archive base URL, using default", "url", baseURL, "error", err)
		base, _ = url.Parse(defaultBaseURL)
	}

	minDelay := cfg.MinDelay
	if minDelay <= 0 {
		minDelay = defaultMinDelay
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultTimeout
	}
	downloadTimeout := cfg.DownloadTimeout
	if downloadTimeout <= 0 {
		downloadTimeout = defaultDownloadTimeout
	}
	maxAssetBytes := cfg.MaxAssetBytes
	if maxAssetBytes <= 0 {
		maxAssetBytes = defaultMaxAssetBytes
	}

	return &Client{
		http: &http.Client{
			Timeout: requestTimeout,
		},
		download: &http.Client{
			Timeout: downloadTimeout,
		},
		limiter:       ratelimit.NewEvery(minDelay, 1),
		logger:        logger,
		base:          base,
		collection:    cfg.Collection,
		maxAssetBytes: maxAssetBytes,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// BaseURL returns the archive root the client talks to.
func (c *Client) BaseURL() string {
	return strings.TrimSuffix(c.base.String(), "/")
}

// FetchPage fetches one page of candidates. The continuation cursor drives
// pagination; page is carried for logging and run summaries only. An empty
// cursor starts from the beginning of the scrape.
func (c *Client) FetchPage(ctx context.Context, page int, cursor string, pageSize int) (*Page, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	query := url.Values{}
	query.Set("q", c.searchQuery())
	query.Set("fields", scrapeFields)
	query.Set("count", strconv.Itoa(pageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	c.logger.Debug("archive fetch page",
		"page", page,
		"page_size", pageSize,
		"has_cursor", cursor != "",
	)

	body, err := c.doRequest(ctx, scrapePath, query)
	if err != nil {
		return nil, wrapError("fetchPage", "", err)
	}

	var resp scrapeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("fetchPage", "", fmt.Errorf("parse response: %w", err))
	}

	result := &Page{
		Candidates: make([]domain.BookCandidate, 0, len(resp.Items)),
		Cursor:     resp.Cursor,
		Total:      resp.Total,
	}
	for i := range resp.Items {
		candidate, ok := c.normalize(&resp.Items[i])
		if !ok {
			// No identifier means no identity: the record cannot be deduplicated,
			// downloaded, or reported. Skip it before it enters the batch.
			c.logger.Warn("dropping archive record without identifier", "page", page)
			continue
		}
		result.Candidates = append(result.Candidates, candidate)
	}

	return result, nil
}

// DownloadAsset fetches the asset bytes at assetURL, capped at the configured
// maximum size. Uses the download timeout, which is longer than the API
// timeout because assets are orders of magnitude bigger than metadata pages.
func (c *Client) DownloadAsset(ctx context.Context, assetURL string) ([]byte, error) {
	u, err := url.Parse(assetURL)
	if err != nil {
		return nil, wrapError("downloadAsset", "", fmt.Errorf("parse url: %w", err))
	}
	if u.Host == "" {
		return nil, wrapError("downloadAsset", "", ErrBadRequest)
	}

	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return nil, wrapError("downloadAsset", "", fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, wrapError("downloadAsset", "", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", "Shelfmark/1.0")

	resp, err := c.download.Do(req)
	if err != nil {
		return nil, wrapError("downloadAsset", "", fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, wrapError("downloadAsset", "", err)
	}

	if resp.ContentLength > c.maxAssetBytes {
		return nil, wrapError("downloadAsset", "", ErrAssetTooLarge)
	}

	// Read one byte past the cap to distinguish "exactly at the limit"
	// from "over it".
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxAssetBytes+1))
	if err != nil {
		return nil, wrapError("downloadAsset", "", fmt.Errorf("read response: %w", err))
	}
	if int64(len(data)) > c.maxAssetBytes {
		return nil, wrapError("downloadAsset", "", ErrAssetTooLarge)
	}

	return data, nil
}

// doRequest executes a rate-limited GET against the archive API.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := *c.base
	u.Path = path
	u.RawQuery = query.Encode()

	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Shelfmark/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if err := checkStatus(resp.StatusCode); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// checkStatus maps non-OK HTTP status codes to sentinel errors.
func checkStatus(status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusBadRequest:
		return ErrBadRequest
	case status >= 500:
		return ErrServer
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}

// searchQuery scopes the scrape to text items, optionally within a collection.
func (c *Client) searchQuery() string {
	if c.collection == "" {
		return "mediatype:texts"
	}
	return fmt.Sprintf("collection:%s AND mediatype:texts", c.collection)
}

// normalize converts a raw scrape record into a candidate. Returns false when
// the record has no identifier. A non-empty identifier that cannot be embedded
// in a download URL leaves AssetURL empty; the pipeline rejects the candidate
// before any network or AI spend.
func (c *Client) normalize(raw *scrapeItem) (domain.BookCandidate, bool) {
	id := strings.TrimSpace(string(raw.Identifier))
	if id == "" {
		return domain.BookCandidate{}, false
	}

	candidate := domain.BookCandidate{
		Identifier:  id,
		Title:       strings.TrimSpace(string(raw.Title)),
		Author:      strings.TrimSpace(string(raw.Creator)),
		Year:        parseYear(string(raw.Year)),
		Description: cleanDescription(strings.Join(raw.Desc, " ")),
		Language:    strings.TrimSpace(string(raw.Language)),
	}
	// Untitled records keep their identifier as a display name.
	if candidate.Title == "" {
		candidate.Title = id
	}
	if assetURL, err := AssetURL(c.BaseURL(), id); err == nil {
		candidate.AssetURL = assetURL
	}

	return candidate, true
}
