package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/ingest"
	"github.com/shelfmark/shelfmark-server/internal/store/sqlite"
	"github.com/shelfmark/shelfmark-server/internal/validation"
)

const (
	defaultRunHistoryLimit = 20
	maxRunHistoryLimit     = 100
)

// IngestService exposes pipeline control: triggering runs, reading run
// history, and pausing sources. One run per source at a time; a trigger
// while a run is active is rejected, not queued.
type IngestService struct {
	store     *sqlite.Store
	validator *validation.Validator
	logger    *slog.Logger

	mu            sync.Mutex
	runners       map[string]*ingest.Runner
	inFlight      map[string]bool
	defaultSource string
}

// NewIngestService creates a new ingest service over the given runners. The
// first runner's source becomes the default for trigger requests that omit
// one.
func NewIngestService(store *sqlite.Store, runners []*ingest.Runner, validator *validation.Validator, logger *slog.Logger) *IngestService {
	bySource := make(map[string]*ingest.Runner, len(runners))
	defaultSource := ""
	for _, r := range runners {
		if defaultSource == "" {
			defaultSource = r.Source()
		}
		bySource[r.Source()] = r
	}

	return &IngestService{
		store:         store,
		validator:     validator,
		logger:        logger,
		runners:       bySource,
		inFlight:      make(map[string]bool),
		defaultSource: defaultSource,
	}
}

// TriggerRunRequest asks for one ingestion run.
type TriggerRunRequest struct {
	Source        string `json:"source,omitempty"`
	BatchSize     int    `json:"batchSize,omitempty" validate:"omitempty,gte=1,lte=100"`
	MaxCandidates int    `json:"maxCandidates,omitempty" validate:"omitempty,gte=1"`
	DryRun        bool   `json:"dryRun,omitempty"`
}

// TriggerRun executes one ingestion run and returns its summary. The call is
// synchronous: it returns when the run has finished. A concurrent trigger
// for the same source gets a conflict error.
func (s *IngestService) TriggerRun(ctx context.Context, req TriggerRunRequest) (*domain.IngestionRun, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Source == "" {
		req.Source = s.defaultSource
	}

	runner, err := s.acquire(req.Source)
	if err != nil {
		return nil, err
	}
	defer s.release(req.Source)

	s.logger.Info("ingestion run triggered",
		"source", req.Source,
		"batch_size", req.BatchSize,
		"max_candidates", req.MaxCandidates,
		"dry_run", req.DryRun,
	)

	return runner.Run(ctx, ingest.Options{
		BatchSize:     req.BatchSize,
		MaxCandidates: req.MaxCandidates,
		DryRun:        req.DryRun,
	})
}

// acquire reserves the source for one run.
func (s *IngestService) acquire(source string) (*ingest.Runner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runner, ok := s.runners[source]
	if !ok {
		return nil, errors.NotFoundf("unknown ingestion source %q", source)
	}
	if s.inFlight[source] {
		return nil, errors.Conflictf("an ingestion run is already active for source %q", source)
	}
	s.inFlight[source] = true
	return runner, nil
}

func (s *IngestService) release(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, source)
}

// GetRun returns one run record by ID.
func (s *IngestService) GetRun(ctx context.Context, id string) (*domain.IngestionRun, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns run history, newest first, optionally scoped to one
// source. A non-positive limit means the default.
func (s *IngestService) ListRuns(ctx context.Context, source string, limit int) ([]*domain.IngestionRun, error) {
	if limit <= 0 {
		limit = defaultRunHistoryLimit
	}
	if limit > maxRunHistoryLimit {
		limit = maxRunHistoryLimit
	}

	runs, err := s.store.ListRuns(ctx, source, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetSource returns the resumption state of one registered source.
func (s *IngestService) GetSource(ctx context.Context, source string) (*domain.IngestionState, error) {
	if err := s.knownSource(source); err != nil {
		return nil, err
	}

	state, err := s.store.GetState(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("get state for %s: %w", source, err)
	}
	return state, nil
}

// ListSources returns the state of every registered source, alphabetically.
// Sources that have never run report their defaults.
func (s *IngestService) ListSources(ctx context.Context) ([]*domain.IngestionState, error) {
	s.mu.Lock()
	sources := make([]string, 0, len(s.runners))
	for source := range s.runners {
		sources = append(sources, source)
	}
	s.mu.Unlock()
	slices.Sort(sources)

	states := make([]*domain.IngestionState, 0, len(sources))
	for _, source := range sources {
		state, err := s.store.GetState(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("get state for %s: %w", source, err)
		}
		states = append(states, state)
	}
	return states, nil
}

// PauseSource marks a source paused, recording who asked. An in-flight
// batch finishes; the pause takes effect at the next trigger.
func (s *IngestService) PauseSource(ctx context.Context, source, actor string) (*domain.IngestionState, error) {
	if err := s.knownSource(source); err != nil {
		return nil, err
	}

	state, err := s.store.Pause(ctx, source, actor)
	if err != nil {
		return nil, fmt.Errorf("pause %s: %w", source, err)
	}

	s.logger.Info("ingestion source paused", "source", source, "actor", actor)
	return state, nil
}

// ResumeSource clears a source's pause flag.
func (s *IngestService) ResumeSource(ctx context.Context, source string) (*domain.IngestionState, error) {
	if err := s.knownSource(source); err != nil {
		return nil, err
	}

	state, err := s.store.Resume(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", source, err)
	}

	s.logger.Info("ingestion source resumed", "source", source)
	return state, nil
}

func (s *IngestService) knownSource(source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runners[source]; !ok {
		return errors.NotFoundf("unknown ingestion source %q", source)
	}
	return nil
}
