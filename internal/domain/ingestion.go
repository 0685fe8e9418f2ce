package domain

import "time"

// RunStatus represents the lifecycle state of an ingestion run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
	// RunStatusIdle is reported when a trigger finds the source paused.
	// Nothing was attempted, so no run row is written.
	RunStatusIdle RunStatus = "idle"
)

// DeriveRunStatus maps final per-candidate counts to a run status:
// completed when nothing failed, failed when nothing was added and something
// failed, partial otherwise.
func DeriveRunStatus(added, failed int) RunStatus {
	switch {
	case failed == 0:
		return RunStatusCompleted
	case added == 0:
		return RunStatusFailed
	default:
		return RunStatusPartial
	}
}

// IngestionState is the per-source resumption record. Exactly one row per
// source, created with defaults on first use. Outside of pause/resume it is
// mutated only when a run finalizes.
type IngestionState struct {
	Source          string     `json:"source"`
	CurrentPage     int        `json:"current_page"`
	Cursor          string     `json:"cursor,omitempty"`
	CumulativeAdded int        `json:"cumulative_added"`
	IsPaused        bool       `json:"is_paused"`
	PausedBy        string     `json:"paused_by,omitempty"`
	PausedAt        *time.Time `json:"paused_at,omitempty"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	LastRunStatus   RunStatus  `json:"last_run_status,omitempty"`
	LastRunAdded    int        `json:"last_run_added"`
	LastRunSkipped  int        `json:"last_run_skipped"`
	LastRunFailed   int        `json:"last_run_failed"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RunError records one failed candidate within a run.
type RunError struct {
	Identifier string `json:"identifier"`
	Error      string `json:"error"`
}

// RunOutcome carries the counts a finished run folds into its source's state:
// last-run fields are replaced, the cumulative added count grows by Added.
type RunOutcome struct {
	Status  RunStatus `json:"status"`
	Added   int       `json:"added"`
	Skipped int       `json:"skipped"`
	Failed  int       `json:"failed"`
	At      time.Time `json:"at"`
}

// IngestionRun is one pipeline invocation over one batch. A row is created in
// status running when the batch starts and finalized exactly once at the end.
type IngestionRun struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Status     RunStatus  `json:"status"`
	DryRun     bool       `json:"dry_run,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int        `json:"processed"`
	Added      int        `json:"added"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Errors     []RunError `json:"errors,omitempty"`
	NextPage   int        `json:"next_page"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// Finalize stamps the run with its end time and counts-derived status.
func (r *IngestionRun) Finalize(at time.Time) {
	r.FinishedAt = &at
	r.Status = DeriveRunStatus(r.Added, r.Failed)
}

// Duration returns the wall-clock duration of a finished run, or zero while
// the run is still in flight.
func (r *IngestionRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
