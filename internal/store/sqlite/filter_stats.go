package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"fmt"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/id"
)

// InsertFilterStats appends one run's filter evaluations in a single
// transaction. Records without an ID are assigned one.
func (s *Store) InsertFilterStats(ctx context.Context, stats []domain.FilterStat) error {
	if len(stats) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO filter_stats (id, run_id, identifier, outcome, genres, author, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range stats {
		stat := &stats[i]
		if stat.ID == "" {
			stat.ID, err = id.Generate(id.PrefixFilterStat)
			if err != nil {
				return fmt.Errorf("generate filter stat id: %w", err)
			}
		}

		genresJSON, err := json.Marshal(stat.Genres)
		if err != nil {
			return fmt.Errorf("marshal filter stat genres: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			stat.ID,
			stat.RunID,
			stat.Identifier,
			string(stat.Outcome),
			string(genresJSON),
			nullString(stat.Author),
			formatTime(stat.EvaluatedAt),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListFilterStats returns the evaluations recorded for one run, in insertion
// order.
func (s *Store) ListFilterStats(ctx context.Context, runID string) ([]domain.FilterStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, identifier, outcome, genres, author, evaluated_at
		FROM filter_stats
		WHERE run_id = ?
		ORDER BY evaluated_at ASC, id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.FilterStat
	for rows.Next() {
		var (
			stat        domain.FilterStat
			outcome     string
			genresJSON  string
			author      sql.NullString
			evaluatedAt string
		)
		if err := rows.Scan(&stat.ID, &stat.RunID, &stat.Identifier, &outcome, &genresJSON, &author, &evaluatedAt); err != nil {
			return nil, err
		}
		stat.Outcome = domain.FilterOutcome(outcome)
		if err := json.Unmarshal([]byte(genresJSON), &stat.Genres); err != nil {
			return nil, fmt.Errorf("unmarshal filter stat genres: %w", err)
		}
		if author.Valid {
			stat.Author = author.String
		}
		stat.EvaluatedAt, err = parseTime(evaluatedAt)
		if err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// CountFilterOutcomes returns evaluation counts grouped by outcome,
// optionally scoped to one run.
func (s *Store) CountFilterOutcomes(ctx context.Context, runID string) (map[domain.FilterOutcome]int, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if runID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT outcome, COUNT(*) FROM filter_stats GROUP BY outcome`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT outcome, COUNT(*) FROM filter_stats WHERE run_id = ? GROUP BY outcome`, runID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.FilterOutcome]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		counts[domain.FilterOutcome(outcome)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// OutcomeCount pairs an aggregated label with how often it was seen.
type OutcomeCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopFilteredGenres returns the genres that most often led to a genre
// rejection, optionally scoped to one run. Genres are unpacked from the
// stored JSON arrays, so one evaluation can contribute to several genres.
func (s *Store) TopFilteredGenres(ctx context.Context, runID string, limit int) ([]OutcomeCount, error) {
	if limit <= 0 {
		limit = 10
	}

	// json_each unpacks the stored array; candidates without classification
	// contribute nothing.
	var (
		rows *sql.Rows
		err  error
	)
	if runID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT je.value, COUNT(*) AS n
			FROM filter_stats fs, json_each(fs.genres) je
			WHERE fs.outcome = ?
			GROUP BY je.value
			ORDER BY n DESC, je.value ASC
			LIMIT ?`, string(domain.FilterByGenre), limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT je.value, COUNT(*) AS n
			FROM filter_stats fs, json_each(fs.genres) je
			WHERE fs.outcome = ? AND fs.run_id = ?
			GROUP BY je.value
			ORDER BY n DESC, je.value ASC
			LIMIT ?`, string(domain.FilterByGenre), runID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOutcomeCounts(rows)
}

// TopFilteredAuthors returns the authors most often rejected by the author
// filter, optionally scoped to one run.
func (s *Store) TopFilteredAuthors(ctx context.Context, runID string, limit int) ([]OutcomeCount, error) {
	if limit <= 0 {
		limit = 10
	}

	var (
		rows *sql.Rows
		err  error
	)
	if runID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT author, COUNT(*) AS n
			FROM filter_stats
			WHERE outcome = ? AND author IS NOT NULL
			GROUP BY author
			ORDER BY n DESC, author ASC
			LIMIT ?`, string(domain.FilterByAuthor), limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT author, COUNT(*) AS n
			FROM filter_stats
			WHERE outcome = ? AND run_id = ? AND author IS NOT NULL
			GROUP BY author
			ORDER BY n DESC, author ASC
			LIMIT ?`, string(domain.FilterByAuthor), runID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOutcomeCounts(rows)
}

// scanOutcomeCounts drains label/count rows.
func scanOutcomeCounts(rows *sql.Rows) ([]OutcomeCount, error) {
	var counts []OutcomeCount
	for rows.Next() {
		var oc OutcomeCount
		if err := rows.Scan(&oc.Label, &oc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, oc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
