// Package ingest drives the batch ingestion pipeline: fetch one page of
// candidates from a source archive, classify and filter each candidate,
// download and catalog the survivors, then advance the stored resumption
// pointer so the next run picks up where this one stopped.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shelfmark/shelfmark-server/internal/archive"
	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/id"
	"github.com/shelfmark/shelfmark-server/internal/media/assets"
	"github.com/shelfmark/shelfmark-server/internal/search"
	"github.com/shelfmark/shelfmark-server/internal/store"
	"github.com/shelfmark/shelfmark-server/internal/store/sqlite"
)

// DefaultBatchSize is the page size requested from the source when the
// trigger does not specify one. Matches the archive client's default.
const DefaultBatchSize = 15

// Fetcher pulls candidate pages and asset bytes from an external archive.
type Fetcher interface {
	FetchPage(ctx context.Context, page int, cursor string, pageSize int) (*archive.Page, error)
	DownloadAsset(ctx context.Context, assetURL string) ([]byte, error)
}

var _ Fetcher = (*archive.Client)(nil)

// Enricher supplies AI classification and description generation for
// candidates. Enricher errors never abort a candidate: a failed Classify
// leaves the book uncategorized, a failed Describe falls back to the
// source-provided description.
type Enricher interface {
	Classify(ctx context.Context, candidate domain.BookCandidate) (*domain.Classification, error)
	Describe(ctx context.Context, candidate domain.BookCandidate) (string, error)
}

// Runner executes ingestion runs for a single source. Candidate processing is
// strictly sequential; the caller guarantees at most one active run per
// source.
type Runner struct {
	store    *sqlite.Store
	fetcher  Fetcher
	enricher Enricher
	assets   *assets.Storage
	index    search.Indexer
	source   string
	logger   *slog.Logger
}

// NewRunner creates a runner bound to one source. A nil index disables search
// indexing.
func NewRunner(st *sqlite.Store, fetcher Fetcher, enricher Enricher, assetStore *assets.Storage, index search.Indexer, source string, logger *slog.Logger) *Runner {
	if index == nil {
		index = search.Noop{}
	}
	return &Runner{
		store:    st,
		fetcher:  fetcher,
		enricher: enricher,
		assets:   assetStore,
		index:    index,
		source:   source,
		logger:   logger,
	}
}

// Source returns the source name this runner ingests from.
func (r *Runner) Source() string {
	return r.source
}

// Options configures a single run.
type Options struct {
	// BatchSize is the page size requested from the source.
	// Zero means DefaultBatchSize.
	BatchSize int
	// MaxCandidates caps how many candidates from the fetched page are
	// processed. When lower than BatchSize it also shrinks the fetch, so the
	// stored pointer stays consistent with what was actually attempted.
	// Zero means no cap.
	MaxCandidates int
	// DryRun previews the batch: fetch, classify, and filter run, but nothing
	// is downloaded, cataloged, or indexed, and the resumption pointer stays
	// put. The run row is still recorded, flagged dry-run, with would-be
	// counts.
	DryRun bool
}

// Run executes one batch against the source and returns the finalized run
// summary. Per-candidate failures are folded into the summary counts and
// error list; Run itself only returns an error when the run could not be
// set up or its record could not be persisted.
//
// A paused source yields an idle summary without fetching; nothing is
// recorded and the returned run carries an ID that was never stored.
func (r *Runner) Run(ctx context.Context, opts Options) (*domain.IngestionRun, error) {
	cfg, err := r.store.GetFilterConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfiguration, "load filter config")
	}

	state, err := r.store.GetState(ctx, r.source)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistence, "load ingestion state")
	}

	now := time.Now().UTC()
	if state.IsPaused {
		r.logger.Info("source paused, nothing to do",
			"source", r.source,
			"paused_by", state.PausedBy,
		)
		return &domain.IngestionRun{
			ID:         uuid.NewString(),
			Source:     r.source,
			Status:     domain.RunStatusIdle,
			DryRun:     opts.DryRun,
			StartedAt:  now,
			FinishedAt: &now,
			NextPage:   state.CurrentPage,
			NextCursor: state.Cursor,
		}, nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	fetchSize := batchSize
	if opts.MaxCandidates > 0 && opts.MaxCandidates < fetchSize {
		fetchSize = opts.MaxCandidates
	}

	run := &domain.IngestionRun{
		ID:         uuid.NewString(),
		Source:     r.source,
		Status:     domain.RunStatusRunning,
		DryRun:     opts.DryRun,
		StartedAt:  now,
		NextPage:   state.CurrentPage,
		NextCursor: state.Cursor,
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, errors.Wrap(err, errors.CodePersistence, "create run record")
	}

	r.logger.Info("ingestion run started",
		"run_id", run.ID,
		"source", r.source,
		"page", state.CurrentPage,
		"batch_size", fetchSize,
		"dry_run", opts.DryRun,
	)

	page, err := r.fetcher.FetchPage(ctx, state.CurrentPage, state.Cursor, fetchSize)
	if err != nil {
		r.logger.Error("fetch page failed",
			"run_id", run.ID,
			"page", state.CurrentPage,
			"error", err,
		)
		run.Status = domain.RunStatusFailed
		run.Errors = append(run.Errors, domain.RunError{
			Error: fmt.Sprintf("fetch page %d: %v", state.CurrentPage, err),
		})
		return r.finalize(ctx, run, nil, false)
	}

	candidates := page.Candidates
	if len(candidates) > fetchSize {
		// The source over-delivered; honor the cap anyway.
		candidates = candidates[:fetchSize]
	}

	var stats []domain.FilterStat
	for i, candidate := range candidates {
		if ctxErr := ctx.Err(); ctxErr != nil {
			run.Status = domain.RunStatusFailed
			run.Errors = append(run.Errors, domain.RunError{
				Error: fmt.Sprintf("run canceled after %d of %d candidates: %v", i, len(candidates), ctxErr),
			})
			// The page was not finished, so the pointer must not advance.
			return r.finalize(context.WithoutCancel(ctx), run, stats, false)
		}

		result, stat := r.processCandidate(ctx, candidate, cfg, opts.DryRun)
		run.Processed++
		switch result.outcome {
		case outcomeAdded:
			run.Added++
		case outcomeSkipped:
			run.Skipped++
			r.logger.Debug("candidate skipped",
				"run_id", run.ID,
				"identifier", candidate.Identifier,
				"reason", result.reason,
			)
		case outcomeFailed:
			run.Failed++
			run.Errors = append(run.Errors, domain.RunError{
				Identifier: candidate.Identifier,
				Error:      result.err.Error(),
			})
			r.logger.Warn("candidate failed",
				"run_id", run.ID,
				"identifier", candidate.Identifier,
				"error", result.err,
			)
		}
		if stat != nil {
			stat.RunID = run.ID
			stats = append(stats, *stat)
		}
	}

	// An empty page leaves the pointer where it was; otherwise the next run
	// resumes after this page, whatever the per-candidate outcomes were.
	advanced := len(page.Candidates) > 0
	if advanced {
		run.NextPage = state.CurrentPage + 1
		run.NextCursor = page.Cursor
	}

	return r.finalize(ctx, run, stats, advanced)
}

// finalize stamps the run, persists pointer/outcome/stats on real runs, and
// writes the final run row. A status already forced (fetch failure,
// cancellation) is kept; otherwise it is derived from the counts.
func (r *Runner) finalize(ctx context.Context, run *domain.IngestionRun, stats []domain.FilterStat, advance bool) (*domain.IngestionRun, error) {
	finished := time.Now().UTC()
	if run.Status == domain.RunStatusRunning {
		run.Finalize(finished)
	} else {
		run.FinishedAt = &finished
	}

	if !run.DryRun {
		if advance {
			if err := r.store.SetResumptionPoint(ctx, r.source, run.NextPage, run.NextCursor); err != nil {
				r.logger.Error("persist resumption pointer failed",
					"run_id", run.ID,
					"error", err,
				)
			}
		}
		outcome := domain.RunOutcome{
			Status:  run.Status,
			Added:   run.Added,
			Skipped: run.Skipped,
			Failed:  run.Failed,
			At:      finished,
		}
		if err := r.store.RecordRunOutcome(ctx, r.source, outcome); err != nil {
			r.logger.Error("record run outcome failed",
				"run_id", run.ID,
				"error", err,
			)
		}
		if len(stats) > 0 {
			if err := r.store.InsertFilterStats(ctx, stats); err != nil {
				r.logger.Error("append filter stats failed",
					"run_id", run.ID,
					"error", err,
				)
			}
		}
	}

	if err := r.store.FinalizeRun(ctx, run); err != nil {
		return run, errors.Wrap(err, errors.CodePersistence, "finalize run record")
	}

	r.logger.Info("ingestion run finished",
		"run_id", run.ID,
		"status", string(run.Status),
		"processed", run.Processed,
		"added", run.Added,
		"skipped", run.Skipped,
		"failed", run.Failed,
		"duration", run.Duration(),
		"dry_run", run.DryRun,
	)
	return run, nil
}

// candidateOutcome is the per-candidate result folded into the run counts.
type candidateOutcome int

const (
	outcomeAdded candidateOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// candidateResult carries one candidate's outcome plus the detail the run
// report needs: a skip reason for logs, an error for the run's error list.
type candidateResult struct {
	outcome candidateOutcome
	reason  string
	err     error
}

// processCandidate runs one candidate through the pipeline stages: duplicate
// pre-check, classification, filter evaluation, then download and catalog
// write. The returned stat is non-nil once the candidate reached filter
// evaluation. Failures are contained here; the batch always continues.
func (r *Runner) processCandidate(ctx context.Context, candidate domain.BookCandidate, cfg *domain.FilterConfig, dryRun bool) (candidateResult, *domain.FilterStat) {
	if candidate.AssetURL == "" {
		err := errors.Validationf("no usable asset URL for %q", candidate.Identifier)
		return candidateResult{outcome: outcomeFailed, err: err}, nil
	}

	exists, err := r.store.SourceIDExists(ctx, candidate.Identifier)
	if err != nil {
		err = errors.Wrap(err, errors.CodePersistence, "duplicate pre-check")
		return candidateResult{outcome: outcomeFailed, err: err}, nil
	}
	if exists {
		return candidateResult{outcome: outcomeSkipped, reason: "duplicate"}, nil
	}

	classification, err := r.enricher.Classify(ctx, candidate)
	if err != nil {
		// Classification is best-effort; the book is cataloged uncategorized.
		r.logger.Warn("classification unavailable",
			"identifier", candidate.Identifier,
			"error", err,
		)
		classification = nil
	}

	decision := evaluateFilters(candidate, classification, cfg)
	stat := &domain.FilterStat{
		Identifier:  candidate.Identifier,
		Outcome:     decision.Outcome,
		Genres:      decision.Genres,
		Author:      decision.Author,
		EvaluatedAt: time.Now().UTC(),
	}
	if !decision.Passed() {
		return candidateResult{outcome: outcomeSkipped, reason: string(decision.Outcome)}, stat
	}

	if dryRun {
		return candidateResult{outcome: outcomeAdded, reason: "dry run"}, stat
	}

	description := candidate.Description
	if generated, describeErr := r.enricher.Describe(ctx, candidate); describeErr != nil {
		r.logger.Warn("description generation failed, keeping source description",
			"identifier", candidate.Identifier,
			"error", describeErr,
		)
	} else if generated != "" {
		description = generated
	}

	data, err := r.fetcher.DownloadAsset(ctx, candidate.AssetURL)
	if err != nil {
		return candidateResult{outcome: outcomeFailed, err: fmt.Errorf("download asset: %w", err)}, stat
	}

	assetPath, err := r.assets.Save(candidate.Identifier, data)
	if err != nil {
		return candidateResult{outcome: outcomeFailed, err: fmt.Errorf("store asset: %w", err)}, stat
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return candidateResult{outcome: outcomeFailed, err: fmt.Errorf("generate book id: %w", err)}, stat
	}

	book := &domain.Book{
		ID:          bookID,
		Title:       candidate.Title,
		Author:      candidate.Author,
		Year:        candidate.Year,
		Language:    candidate.Language,
		SourceID:    candidate.Identifier,
		AssetURL:    candidate.AssetURL,
		AssetPath:   assetPath,
		Description: description,
		Category:    classification.Category(),
	}
	if classification != nil {
		book.Genres = classification.Genres
		book.Subgenre = classification.Subgenre
	}
	book.InitTimestamps()

	if err := r.store.CreateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with another writer; the unique index is the
			// authority, the pre-check just an optimization.
			return candidateResult{outcome: outcomeSkipped, reason: "duplicate"}, stat
		}
		return candidateResult{outcome: outcomeFailed, err: fmt.Errorf("catalog write: %w", err)}, stat
	}

	if err := r.index.IndexBook(book); err != nil {
		// Indexing is best-effort; the catalog row is already durable.
		r.logger.Warn("search indexing failed",
			"book_id", book.ID,
			"identifier", candidate.Identifier,
			"error", err,
		)
	}

	r.logger.Info("book cataloged",
		"book_id", book.ID,
		"identifier", candidate.Identifier,
		"title", book.Title,
		"category", book.Category,
	)
	return candidateResult{outcome: outcomeAdded}, stat
}
