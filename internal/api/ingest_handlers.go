package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

func (s *Server) registerIngestRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "triggerIngestRun",
		Method:      http.MethodPost,
		Path:        "/api/v1/ingest/runs",
		Summary:     "Trigger ingestion run",
		Description: "Runs one ingestion batch for a source and returns the run summary. Returns 409 while a run for the same source is in flight.",
		Tags:        []string{"Ingestion"},
	}, s.handleTriggerRun)

	huma.Register(s.api, huma.Operation{
		OperationID: "getIngestRun",
		Method:      http.MethodGet,
		Path:        "/api/v1/ingest/runs/{id}",
		Summary:     "Get ingestion run",
		Description: "Returns one run's summary by ID",
		Tags:        []string{"Ingestion"},
	}, s.handleGetRun)

	huma.Register(s.api, huma.Operation{
		OperationID: "listIngestRuns",
		Method:      http.MethodGet,
		Path:        "/api/v1/ingest/runs",
		Summary:     "List ingestion runs",
		Description: "Returns run history, newest first, optionally scoped to one source",
		Tags:        []string{"Ingestion"},
	}, s.handleListRuns)

	huma.Register(s.api, huma.Operation{
		OperationID: "listIngestSources",
		Method:      http.MethodGet,
		Path:        "/api/v1/ingest/sources",
		Summary:     "List ingestion sources",
		Description: "Returns the resumption state of every registered source",
		Tags:        []string{"Ingestion"},
	}, s.handleListSources)

	huma.Register(s.api, huma.Operation{
		OperationID: "getIngestSource",
		Method:      http.MethodGet,
		Path:        "/api/v1/ingest/sources/{source}",
		Summary:     "Get ingestion source",
		Description: "Returns one source's resumption state: page pointer, cursor, pause flag, and last-run counts",
		Tags:        []string{"Ingestion"},
	}, s.handleGetSource)

	huma.Register(s.api, huma.Operation{
		OperationID: "pauseIngestSource",
		Method:      http.MethodPost,
		Path:        "/api/v1/ingest/sources/{source}/pause",
		Summary:     "Pause ingestion source",
		Description: "Sets the pause flag so subsequent triggers return idle without fetching",
		Tags:        []string{"Ingestion"},
	}, s.handlePauseSource)

	huma.Register(s.api, huma.Operation{
		OperationID: "resumeIngestSource",
		Method:      http.MethodPost,
		Path:        "/api/v1/ingest/sources/{source}/resume",
		Summary:     "Resume ingestion source",
		Description: "Clears the pause flag; the next trigger picks up from the stored page and cursor",
		Tags:        []string{"Ingestion"},
	}, s.handleResumeSource)
}

// === DTOs ===

// TriggerRunRequest is the request body for triggering an ingestion run.
// Every field is optional; an empty body runs the default source with its
// configured batch size.
type TriggerRunRequest struct {
	Source        string `json:"source,omitempty" doc:"Source to ingest from (defaults to the first registered source)"`
	BatchSize     int    `json:"batchSize,omitempty" validate:"omitempty,gte=1,lte=100" doc:"Candidates to fetch this run"`
	MaxCandidates int    `json:"maxCandidates,omitempty" validate:"omitempty,gte=1" doc:"Hard cap on candidates processed this run"`
	DryRun        bool   `json:"dryRun,omitempty" doc:"Evaluate the batch without writing catalog records or downloading assets"`
}

// TriggerRunInput wraps the trigger request for Huma. The pointer body lets
// huma accept a bodyless POST.
type TriggerRunInput struct {
	Body *TriggerRunRequest
}

// RunErrorDetail describes one failed candidate within a run.
type RunErrorDetail struct {
	Identifier string `json:"identifier" doc:"Source identifier of the failed candidate"`
	Error      string `json:"error" doc:"Failure message"`
}

// RunSummaryResponse contains ingestion run data in API responses.
type RunSummaryResponse struct {
	JobID       string           `json:"jobId" doc:"Run identifier"`
	Source      string           `json:"source" doc:"Source the run ingested from"`
	Status      string           `json:"status" doc:"running, completed, partial, failed, or idle"`
	DryRun      bool             `json:"dryRun,omitempty" doc:"Whether the run wrote anything"`
	StartedAt   time.Time        `json:"startedAt" doc:"Run start time"`
	CompletedAt *time.Time       `json:"completedAt,omitempty" doc:"Run end time, absent while running"`
	Processed   int              `json:"processed" doc:"Candidates that entered the pipeline"`
	Added       int              `json:"added" doc:"Candidates written to the catalog"`
	Skipped     int              `json:"skipped" doc:"Candidates skipped as duplicates or filtered out"`
	Failed      int              `json:"failed" doc:"Candidates that failed"`
	Errors      []RunErrorDetail `json:"errors,omitempty" doc:"Per-candidate failure log"`
	NextPage    int              `json:"nextPage,omitempty" doc:"Page the next run will fetch"`
	NextCursor  string           `json:"nextCursor,omitempty" doc:"Cursor the next run will resume from"`
}

// RunOutput wraps a single run summary for Huma.
type RunOutput struct {
	Body RunSummaryResponse
}

// GetRunInput contains parameters for fetching one run.
type GetRunInput struct {
	ID string `path:"id" doc:"Run identifier"`
}

// ListRunsInput contains parameters for listing run history.
type ListRunsInput struct {
	Source string `query:"source" doc:"Only runs for this source"`
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=100" doc:"Max runs to return (default 20)"`
}

// ListRunsResponse contains a page of run history.
type ListRunsResponse struct {
	Runs []RunSummaryResponse `json:"runs" doc:"Runs, newest first"`
}

// ListRunsOutput wraps the run history response for Huma.
type ListRunsOutput struct {
	Body ListRunsResponse
}

// SourceStateResponse contains a source's resumption state in API responses.
type SourceStateResponse struct {
	Source          string     `json:"source" doc:"Source name"`
	CurrentPage     int        `json:"currentPage" doc:"Page the next run will fetch"`
	Cursor          string     `json:"cursor,omitempty" doc:"Continuation cursor for the next run"`
	CumulativeAdded int        `json:"cumulativeAdded" doc:"Books added across all runs"`
	IsPaused        bool       `json:"isPaused" doc:"Whether ingestion is paused"`
	PausedBy        string     `json:"pausedBy,omitempty" doc:"Who paused the source"`
	PausedAt        *time.Time `json:"pausedAt,omitempty" doc:"When the source was paused"`
	LastRunAt       *time.Time `json:"lastRunAt,omitempty" doc:"When the last run finished"`
	LastRunStatus   string     `json:"lastRunStatus,omitempty" doc:"Status of the last run"`
	LastRunAdded    int        `json:"lastRunAdded" doc:"Books added by the last run"`
	LastRunSkipped  int        `json:"lastRunSkipped" doc:"Candidates skipped by the last run"`
	LastRunFailed   int        `json:"lastRunFailed" doc:"Candidates failed by the last run"`
}

// SourceOutput wraps a single source state for Huma.
type SourceOutput struct {
	Body SourceStateResponse
}

// GetSourceInput contains parameters for fetching one source.
type GetSourceInput struct {
	Source string `path:"source" doc:"Source name"`
}

// ListSourcesResponse contains every registered source's state.
type ListSourcesResponse struct {
	Sources []SourceStateResponse `json:"sources" doc:"Sources in name order"`
}

// ListSourcesOutput wraps the source list for Huma.
type ListSourcesOutput struct {
	Body ListSourcesResponse
}

// PauseSourceRequest is the optional request body for pausing a source.
type PauseSourceRequest struct {
	PausedBy string `json:"pausedBy,omitempty" validate:"omitempty,max=200" doc:"Operator identity to record on the pause"`
}

// PauseSourceInput wraps the pause request for Huma.
type PauseSourceInput struct {
	Source string `path:"source" doc:"Source name"`
	Body   *PauseSourceRequest
}

// === Handlers ===

func (s *Server) handleTriggerRun(ctx context.Context, input *TriggerRunInput) (*RunOutput, error) {
	req := service.TriggerRunRequest{}
	if input.Body != nil {
		req = service.TriggerRunRequest{
			Source:        input.Body.Source,
			BatchSize:     input.Body.BatchSize,
			MaxCandidates: input.Body.MaxCandidates,
			DryRun:        input.Body.DryRun,
		}
	}

	run, err := s.services.Ingest.TriggerRun(ctx, req)
	if err != nil {
		return nil, err
	}

	return &RunOutput{Body: runSummary(run)}, nil
}

func (s *Server) handleGetRun(ctx context.Context, input *GetRunInput) (*RunOutput, error) {
	run, err := s.services.Ingest.GetRun(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &RunOutput{Body: runSummary(run)}, nil
}

func (s *Server) handleListRuns(ctx context.Context, input *ListRunsInput) (*ListRunsOutput, error) {
	runs, err := s.services.Ingest.ListRuns(ctx, input.Source, input.Limit)
	if err != nil {
		return nil, err
	}

	resp := ListRunsResponse{Runs: make([]RunSummaryResponse, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, runSummary(run))
	}

	return &ListRunsOutput{Body: resp}, nil
}

func (s *Server) handleListSources(ctx context.Context, _ *struct{}) (*ListSourcesOutput, error) {
	states, err := s.services.Ingest.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	resp := ListSourcesResponse{Sources: make([]SourceStateResponse, 0, len(states))}
	for _, state := range states {
		resp.Sources = append(resp.Sources, sourceState(state))
	}

	return &ListSourcesOutput{Body: resp}, nil
}

func (s *Server) handleGetSource(ctx context.Context, input *GetSourceInput) (*SourceOutput, error) {
	state, err := s.services.Ingest.GetSource(ctx, input.Source)
	if err != nil {
		return nil, err
	}

	return &SourceOutput{Body: sourceState(state)}, nil
}

func (s *Server) handlePauseSource(ctx context.Context, input *PauseSourceInput) (*SourceOutput, error) {
	actor := "api"
	if input.Body != nil && input.Body.PausedBy != "" {
		actor = input.Body.PausedBy
	}

	state, err := s.services.Ingest.PauseSource(ctx, input.Source, actor)
	if err != nil {
		return nil, err
	}

	return &SourceOutput{Body: sourceState(state)}, nil
}

func (s *Server) handleResumeSource(ctx context.Context, input *GetSourceInput) (*SourceOutput, error) {
	state, err := s.services.Ingest.ResumeSource(ctx, input.Source)
	if err != nil {
		return nil, err
	}

	return &SourceOutput{Body: sourceState(state)}, nil
}

// runSummary converts a domain run to its response shape.
func runSummary(run *domain.IngestionRun) RunSummaryResponse {
	resp := RunSummaryResponse{
		JobID:       run.ID,
		Source:      run.Source,
		Status:      string(run.Status),
		DryRun:      run.DryRun,
		StartedAt:   run.StartedAt,
		CompletedAt: run.FinishedAt,
		Processed:   run.Processed,
		Added:       run.Added,
		Skipped:     run.Skipped,
		Failed:      run.Failed,
		NextPage:    run.NextPage,
		NextCursor:  run.NextCursor,
	}

	for _, e := range run.Errors {
		resp.Errors = append(resp.Errors, RunErrorDetail{Identifier: e.Identifier, Error: e.Error})
	}

	return resp
}

// sourceState converts a domain state to its response shape.
func sourceState(state *domain.IngestionState) SourceStateResponse {
	return SourceStateResponse{
		Source:          state.Source,
		CurrentPage:     state.CurrentPage,
		Cursor:          state.Cursor,
		CumulativeAdded: state.CumulativeAdded,
		IsPaused:        state.IsPaused,
		PausedBy:        state.PausedBy,
		PausedAt:        state.PausedAt,
		LastRunAt:       state.LastRunAt,
		LastRunStatus:   string(state.LastRunStatus),
		LastRunAdded:    state.LastRunAdded,
		LastRunSkipped:  state.LastRunSkipped,
		LastRunFailed:   state.LastRunFailed,
	}
}
