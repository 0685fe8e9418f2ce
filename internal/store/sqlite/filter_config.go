package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// GetFilterConfig returns the operator-configured filters. When nothing has
// been configured yet it returns disabled filters with empty allow-lists
// rather than an error.
func (s *Store) GetFilterConfig(ctx context.Context) (*domain.FilterConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT genre_filter_enabled, allowed_genres, author_filter_enabled, allowed_authors, updated_at
		FROM filter_config
		WHERE id = 1`)

	var (
		cfg         domain.FilterConfig
		genreOn     int
		genresJSON  string
		authorOn    int
		authorsJSON string
		updatedAt   string
	)
	err := row.Scan(&genreOn, &genresJSON, &authorOn, &authorsJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.FilterConfig{}, nil
	}
	if err != nil {
		return nil, err
	}

	cfg.GenreFilterEnabled = genreOn != 0
	cfg.AuthorFilterEnabled = authorOn != 0
	if err := json.Unmarshal([]byte(genresJSON), &cfg.AllowedGenres); err != nil {
		return nil, fmt.Errorf("unmarshal allowed genres: %w", err)
	}
	if err := json.Unmarshal([]byte(authorsJSON), &cfg.AllowedAuthors); err != nil {
		return nil, fmt.Errorf("unmarshal allowed authors: %w", err)
	}
	cfg.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetFilterConfig replaces the filter configuration wholesale. The config is
// a singleton row, so a write either creates or overwrites it.
func (s *Store) SetFilterConfig(ctx context.Context, cfg *domain.FilterConfig) (*domain.FilterConfig, error) {
	genresJSON, err := json.Marshal(emptyIfNil(cfg.AllowedGenres))
	if err != nil {
		return nil, fmt.Errorf("marshal allowed genres: %w", err)
	}
	authorsJSON, err := json.Marshal(emptyIfNil(cfg.AllowedAuthors))
	if err != nil {
		return nil, fmt.Errorf("marshal allowed authors: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO filter_config (id, genre_filter_enabled, allowed_genres, author_filter_enabled, allowed_authors, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			genre_filter_enabled = excluded.genre_filter_enabled,
			allowed_genres = excluded.allowed_genres,
			author_filter_enabled = excluded.author_filter_enabled,
			allowed_authors = excluded.allowed_authors,
			updated_at = excluded.updated_at`,
		boolToInt(cfg.GenreFilterEnabled),
		string(genresJSON),
		boolToInt(cfg.AuthorFilterEnabled),
		string(authorsJSON),
		formatTime(now),
	)
	if err != nil {
		return nil, err
	}

	return s.GetFilterConfig(ctx)
}

// emptyIfNil keeps stored allow-lists as [] rather than null.
func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
