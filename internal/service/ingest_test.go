package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/archive"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/ingest"
	"github.com/shelfmark/shelfmark-server/internal/media/assets"
	"github.com/shelfmark/shelfmark-server/internal/search"
	"github.com/shelfmark/shelfmark-server/internal/store/sqlite"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

// stubFetcher serves a fixed page. When block is set, FetchPage signals
// started and then waits for block to close, which lets a test hold a run
// in flight.
type stubFetcher struct {
	page    *archive.Page
	block   chan struct{}
	started chan struct{}
}

func (f *stubFetcher) FetchPage(ctx context.Context, page int, cursor string, pageSize int) (*archive.Page, error) {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.page != nil {
		return f.page, nil
	}
	return &archive.Page{}, nil
}

func (f *stubFetcher) DownloadAsset(ctx context.Context, assetURL string) ([]byte, error) {
	return []byte("%PDF-1.4 stub asset"), nil
}

type stubEnricher struct{}

func (stubEnricher) Classify(ctx context.Context, candidate domain.BookCandidate) (*domain.Classification, error) {
	return &domain.Classification{Genres: []string{"Fiction"}}, nil
}

func (stubEnricher) Describe(ctx context.Context, candidate domain.BookCandidate) (string, error) {
	return "", nil
}

func setupTestIngest(t *testing.T, fetcher ingest.Fetcher) (*IngestService, *sqlite.Store) {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	assetStore, err := assets.NewStorage(filepath.Join(dir, "data"))
	require.NoError(t, err)

	runner := ingest.NewRunner(st, fetcher, stubEnricher{}, assetStore, search.Noop{}, "archive", logger)
	svc := NewIngestService(st, []*ingest.Runner{runner}, validation.New(), logger)
	return svc, st
}

func candidatePage(cursor string, identifiers ...string) *archive.Page {
	page := &archive.Page{Cursor: cursor, Total: len(identifiers) * 10}
	for _, ident := range identifiers {
		page.Candidates = append(page.Candidates, domain.BookCandidate{
			Identifier:  ident,
			Title:       "Title " + ident,
			Author:      "Author, Test",
			Year:        1870,
			Description: "A source description.",
			Language:    "eng",
			AssetURL:    "https://archive.test/download/" + ident + "/" + ident + ".pdf",
		})
	}
	return page
}

func assertErrorCode(t *testing.T, err error, code errors.Code) {
	t.Helper()
	var domainErr *errors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestIngestService_TriggerRun(t *testing.T) {
	fetcher := &stubFetcher{page: candidatePage("cur-2", "alpha", "beta")}
	svc, st := setupTestIngest(t, fetcher)
	ctx := context.Background()

	run, err := svc.TriggerRun(ctx, TriggerRunRequest{})
	require.NoError(t, err)

	assert.Equal(t, "archive", run.Source, "empty source should fall back to the registered default")
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, 2, run.Added)
	assert.Equal(t, 2, run.NextPage)
	assert.Equal(t, "cur-2", run.NextCursor)

	stored, err := svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Status, stored.Status)

	books, err := st.ListBooks(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestIngestService_TriggerRunValidation(t *testing.T) {
	svc, _ := setupTestIngest(t, &stubFetcher{})

	_, err := svc.TriggerRun(context.Background(), TriggerRunRequest{BatchSize: 500})
	assertErrorCode(t, err, errors.CodeValidation)

	_, err = svc.TriggerRun(context.Background(), TriggerRunRequest{MaxCandidates: -1})
	assertErrorCode(t, err, errors.CodeValidation)
}

func TestIngestService_TriggerRunUnknownSource(t *testing.T) {
	svc, _ := setupTestIngest(t, &stubFetcher{})

	_, err := svc.TriggerRun(context.Background(), TriggerRunRequest{Source: "gutenberg"})
	assertErrorCode(t, err, errors.CodeNotFound)
}

func TestIngestService_TriggerRunConflict(t *testing.T) {
	fetcher := &stubFetcher{
		page:    candidatePage("", "solo"),
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	svc, _ := setupTestIngest(t, fetcher)

	done := make(chan error, 1)
	go func() {
		_, err := svc.TriggerRun(context.Background(), TriggerRunRequest{})
		done <- err
	}()

	select {
	case <-fetcher.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never reached the source")
	}

	_, err := svc.TriggerRun(context.Background(), TriggerRunRequest{})
	assertErrorCode(t, err, errors.CodeConflict)

	close(fetcher.block)
	require.NoError(t, <-done)

	// The slot frees up once the first run finishes.
	_, err = svc.TriggerRun(context.Background(), TriggerRunRequest{DryRun: true})
	require.NoError(t, err)
}

func TestIngestService_ListRuns(t *testing.T) {
	fetcher := &stubFetcher{page: candidatePage("", "one")}
	svc, _ := setupTestIngest(t, fetcher)
	ctx := context.Background()

	first, err := svc.TriggerRun(ctx, TriggerRunRequest{})
	require.NoError(t, err)
	second, err := svc.TriggerRun(ctx, TriggerRunRequest{DryRun: true})
	require.NoError(t, err)

	runs, err := svc.ListRuns(ctx, "archive", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "history should be newest first")
	assert.Equal(t, first.ID, runs[1].ID)

	limited, err := svc.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	other, err := svc.ListRuns(ctx, "somewhere-else", 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestIngestService_Sources(t *testing.T) {
	svc, _ := setupTestIngest(t, &stubFetcher{})
	ctx := context.Background()

	state, err := svc.GetSource(ctx, "archive")
	require.NoError(t, err)
	assert.Equal(t, "archive", state.Source)
	assert.Equal(t, 1, state.CurrentPage)
	assert.False(t, state.IsPaused)

	states, err := svc.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "archive", states[0].Source)

	_, err = svc.GetSource(ctx, "mystery")
	assertErrorCode(t, err, errors.CodeNotFound)
}

func TestIngestService_PauseResume(t *testing.T) {
	fetcher := &stubFetcher{page: candidatePage("", "held")}
	svc, _ := setupTestIngest(t, fetcher)
	ctx := context.Background()

	state, err := svc.PauseSource(ctx, "archive", "ops@example.com")
	require.NoError(t, err)
	assert.True(t, state.IsPaused)
	assert.Equal(t, "ops@example.com", state.PausedBy)
	require.NotNil(t, state.PausedAt)

	run, err := svc.TriggerRun(ctx, TriggerRunRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusIdle, run.Status)
	assert.Zero(t, run.Processed)

	state, err = svc.ResumeSource(ctx, "archive")
	require.NoError(t, err)
	assert.False(t, state.IsPaused)
	assert.Empty(t, state.PausedBy)
	assert.Nil(t, state.PausedAt)

	run, err = svc.TriggerRun(ctx, TriggerRunRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Added)

	_, err = svc.PauseSource(ctx, "mystery", "ops@example.com")
	assertErrorCode(t, err, errors.CodeNotFound)
}
