package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// runColumns is the ordered list of columns selected in run queries.
// Must match the scan order in scanRun.
const runColumns = `id, source, status, dry_run, started_at, finished_at,
	processed, added, skipped, failed, errors, next_page, next_cursor`

// scanRun scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.IngestionRun.
func scanRun(scanner interface{ Scan(dest ...any) error }) (*domain.IngestionRun, error) {
	var r domain.IngestionRun

	var (
		dryRun     int
		startedAt  string
		finishedAt sql.NullString
		errorsJSON string
		nextCursor sql.NullString
	)

	err := scanner.Scan(
		&r.ID,
		&r.Source,
		&r.Status,
		&dryRun,
		&startedAt,
		&finishedAt,
		&r.Processed,
		&r.Added,
		&r.Skipped,
		&r.Failed,
		&errorsJSON,
		&r.NextPage,
		&nextCursor,
	)
	if err != nil {
		return nil, err
	}

	r.DryRun = dryRun != 0
	r.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, err
	}
	r.FinishedAt, err = parseNullableTime(finishedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(errorsJSON), &r.Errors); err != nil {
		return nil, fmt.Errorf("unmarshal run errors: %w", err)
	}
	if nextCursor.Valid {
		r.NextCursor = nextCursor.String
	}

	return &r, nil
}

// CreateRun inserts a run row, normally in status running with zero counts.
// Returns store.ErrAlreadyExists on a duplicate job ID.
func (s *Store) CreateRun(ctx context.Context, run *domain.IngestionRun) error {
	errorsJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ingestion_runs (
			id, source, status, dry_run, started_at, finished_at,
			processed, added, skipped, failed, errors, next_page, next_cursor
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Source,
		string(run.Status),
		boolToInt(run.DryRun),
		formatTime(run.StartedAt),
		nullTimeString(run.FinishedAt),
		run.Processed,
		run.Added,
		run.Skipped,
		run.Failed,
		string(errorsJSON),
		run.NextPage,
		nullString(run.NextCursor),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}

	return nil
}

// FinalizeRun rewrites a run row with its final status, counts, error list,
// and resumption pointer. Returns store.ErrNotFound for an unknown job ID.
func (s *Store) FinalizeRun(ctx context.Context, run *domain.IngestionRun) error {
	errorsJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE ingestion_runs
		SET status = ?, finished_at = ?,
			processed = ?, added = ?, skipped = ?, failed = ?,
			errors = ?, next_page = ?, next_cursor = ?
		WHERE id = ?`,
		string(run.Status),
		nullTimeString(run.FinishedAt),
		run.Processed,
		run.Added,
		run.Skipped,
		run.Failed,
		string(errorsJSON),
		run.NextPage,
		nullString(run.NextCursor),
		run.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetRun retrieves a run by job ID.
// Returns store.ErrNotFound if the run does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*domain.IngestionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM ingestion_runs WHERE id = ?`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRuns returns run history, newest first, optionally filtered by source.
func (s *Store) ListRuns(ctx context.Context, source string, limit int) ([]*domain.IngestionRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var (
		rows *sql.Rows
		err  error
	)
	if source == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+runColumns+` FROM ingestion_runs
			ORDER BY started_at DESC
			LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+runColumns+` FROM ingestion_runs
			WHERE source = ?
			ORDER BY started_at DESC
			LIMIT ?`, source, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.IngestionRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}
