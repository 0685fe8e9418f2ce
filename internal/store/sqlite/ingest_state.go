package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// stateColumns is the ordered list of columns selected in state queries.
// Must match the scan order in scanState.
const stateColumns = `source, current_page, cursor, cumulative_added,
	is_paused, paused_by, paused_at,
	last_run_at, last_run_status, last_run_added, last_run_skipped, last_run_failed,
	updated_at`

// scanState scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.IngestionState.
func scanState(scanner interface{ Scan(dest ...any) error }) (*domain.IngestionState, error) {
	var st domain.IngestionState

	var (
		cursor        sql.NullString
		isPaused      int
		pausedBy      sql.NullString
		pausedAt      sql.NullString
		lastRunAt     sql.NullString
		lastRunStatus sql.NullString
		updatedAt     string
	)

	err := scanner.Scan(
		&st.Source,
		&st.CurrentPage,
		&cursor,
		&st.CumulativeAdded,
		&isPaused,
		&pausedBy,
		&pausedAt,
		&lastRunAt,
		&lastRunStatus,
		&st.LastRunAdded,
		&st.LastRunSkipped,
		&st.LastRunFailed,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cursor.Valid {
		st.Cursor = cursor.String
	}
	st.IsPaused = isPaused != 0
	if pausedBy.Valid {
		st.PausedBy = pausedBy.String
	}
	st.PausedAt, err = parseNullableTime(pausedAt)
	if err != nil {
		return nil, err
	}
	st.LastRunAt, err = parseNullableTime(lastRunAt)
	if err != nil {
		return nil, err
	}
	if lastRunStatus.Valid {
		st.LastRunStatus = domain.RunStatus(lastRunStatus.String)
	}
	st.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &st, nil
}

// ensureState inserts the defaults row for source if it does not exist.
// The schema supplies page 1, empty cursor, zero counters, unpaused.
func (s *Store) ensureState(ctx context.Context, source string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO ingestion_state (source, updated_at)
		VALUES (?, ?)`, source, formatTime(time.Now()))
	return err
}

// GetState returns the resumption record for source, creating the defaults
// row on first use.
func (s *Store) GetState(ctx context.Context, source string) (*domain.IngestionState, error) {
	if source == "" {
		return nil, store.ErrInvalidInput.WithMessage("source is required")
	}

	if err := s.ensureState(ctx, source); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM ingestion_state WHERE source = ?`, source)

	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		// ensureState just inserted; a missing row here means the database
		// is being torn down underneath us.
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// SetResumptionPoint persists the next page number and continuation cursor
// for source. Called once per finished real run.
func (s *Store) SetResumptionPoint(ctx context.Context, source string, page int, cursor string) error {
	if err := s.ensureState(ctx, source); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE ingestion_state
		SET current_page = ?, cursor = ?, updated_at = ?
		WHERE source = ?`,
		page, nullString(cursor), formatTime(time.Now()), source)
	return err
}

// RecordRunOutcome folds a finished run into the source state: last-run
// fields are replaced, cumulative_added grows by outcome.Added.
func (s *Store) RecordRunOutcome(ctx context.Context, source string, outcome domain.RunOutcome) error {
	if err := s.ensureState(ctx, source); err != nil {
		return err
	}

	at := outcome.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE ingestion_state
		SET cumulative_added = cumulative_added + ?,
			last_run_at = ?, last_run_status = ?,
			last_run_added = ?, last_run_skipped = ?, last_run_failed = ?,
			updated_at = ?
		WHERE source = ?`,
		outcome.Added,
		formatTime(at),
		string(outcome.Status),
		outcome.Added,
		outcome.Skipped,
		outcome.Failed,
		formatTime(time.Now()),
		source)
	return err
}

// Pause marks source paused, recording who asked. Pausing an unknown source
// creates its state row already paused, so a source can be held before its
// first run.
func (s *Store) Pause(ctx context.Context, source, actor string) (*domain.IngestionState, error) {
	if err := s.ensureState(ctx, source); err != nil {
		return nil, err
	}

	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		UPDATE ingestion_state
		SET is_paused = 1, paused_by = ?, paused_at = ?, updated_at = ?
		WHERE source = ?`,
		nullString(actor), now, now, source)
	if err != nil {
		return nil, err
	}

	return s.GetState(ctx, source)
}

// Resume clears the pause flag, actor, and timestamp for source.
func (s *Store) Resume(ctx context.Context, source string) (*domain.IngestionState, error) {
	if err := s.ensureState(ctx, source); err != nil {
		return nil, err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE ingestion_state
		SET is_paused = 0, paused_by = NULL, paused_at = NULL, updated_at = ?
		WHERE source = ?`,
		formatTime(time.Now()), source)
	if err != nil {
		return nil, err
	}

	return s.GetState(ctx, source)
}

// ListStates returns every known source state, alphabetically by source.
func (s *Store) ListStates(ctx context.Context) ([]*domain.IngestionState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stateColumns+` FROM ingestion_state ORDER BY source ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []*domain.IngestionState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return states, nil
}
