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

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, title, author, year, language,
	source_id, asset_url, asset_path, description,
	genres, subgenre, category, created_at, updated_at`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book

	var (
		author    sql.NullString
		year      sql.NullInt64
		language  sql.NullString
		sourceID  sql.NullString
		assetURL  sql.NullString
		assetPath sql.NullString
		desc      sql.NullString
		genres    string
		subgenre  sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&b.ID,
		&b.Title,
		&author,
		&year,
		&language,
		&sourceID,
		&assetURL,
		&assetPath,
		&desc,
		&genres,
		&subgenre,
		&b.Category,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Optional fields.
	if author.Valid {
		b.Author = author.String
	}
	if year.Valid {
		b.Year = int(year.Int64)
	}
	if language.Valid {
		b.Language = language.String
	}
	if sourceID.Valid {
		b.SourceID = sourceID.String
	}
	if assetURL.Valid {
		b.AssetURL = assetURL.String
	}
	if assetPath.Valid {
		b.AssetPath = assetPath.String
	}
	if desc.Valid {
		b.Description = desc.String
	}
	if subgenre.Valid {
		b.Subgenre = subgenre.String
	}

	// Parse genres JSON array.
	if err := json.Unmarshal([]byte(genres), &b.Genres); err != nil {
		return nil, fmt.Errorf("unmarshal genres: %w", err)
	}

	// Parse timestamps.
	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// CreateBook inserts a book row.
// Returns store.ErrAlreadyExists on duplicate ID or source identifier.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	genresJSON, err := json.Marshal(book.Genres)
	if err != nil {
		return fmt.Errorf("marshal genres: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO books (
			id, title, author, year, language,
			source_id, asset_url, asset_path, description,
			genres, subgenre, category, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		book.Title,
		nullString(book.Author),
		nullInt64(int64(book.Year)),
		nullString(book.Language),
		nullString(book.SourceID),
		nullString(book.AssetURL),
		nullString(book.AssetPath),
		nullString(book.Description),
		string(genresJSON),
		nullString(book.Subgenre),
		book.Category,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}

	return nil
}

// GetBook retrieves a book by ID.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)

	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBookBySourceID retrieves a book by its source identifier.
// Returns store.ErrNotFound if no ingested book carries the identifier.
func (s *Store) GetBookBySourceID(ctx context.Context, sourceID string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE source_id = ?`, sourceID)

	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// SourceIDExists reports whether an ingested book already carries the source
// identifier. The unique index remains the authority at write time; this is
// the cheap pre-check that lets ingestion skip duplicates early.
func (s *Store) SourceIDExists(ctx context.Context, sourceID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM books WHERE source_id = ?`, sourceID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListBooks returns books ordered by creation time, newest first, optionally
// filtered by category. Limit and offset page through the catalog.
func (s *Store) ListBooks(ctx context.Context, category string, limit, offset int) ([]*domain.Book, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var (
		rows *sql.Rows
		err  error
	)
	if category == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+bookColumns+` FROM books
			ORDER BY created_at DESC, id DESC
			LIMIT ? OFFSET ?`, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+bookColumns+` FROM books
			WHERE category = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ? OFFSET ?`, category, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// ListAllBooks returns the entire catalog in creation order. Used by the
// search reindex, which needs every row regardless of paging.
func (s *Store) ListAllBooks(ctx context.Context) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// CountBooks returns the number of books, optionally within one category.
func (s *Store) CountBooks(ctx context.Context, category string) (int, error) {
	var (
		count int
		err   error
	)
	if category == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM books WHERE category = ?`, category).Scan(&count)
	}
	return count, err
}

// UpdateBook rewrites every mutable column of an existing book row.
// Returns store.ErrNotFound when the book does not exist.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	genresJSON, err := json.Marshal(book.Genres)
	if err != nil {
		return fmt.Errorf("marshal genres: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE books SET
			title = ?, author = ?, year = ?, language = ?,
			source_id = ?, asset_url = ?, asset_path = ?, description = ?,
			genres = ?, subgenre = ?, category = ?, updated_at = ?
		WHERE id = ?`,
		book.Title,
		nullString(book.Author),
		nullInt64(int64(book.Year)),
		nullString(book.Language),
		nullString(book.SourceID),
		nullString(book.AssetURL),
		nullString(book.AssetPath),
		nullString(book.Description),
		string(genresJSON),
		nullString(book.Subgenre),
		book.Category,
		formatTime(book.UpdatedAt),
		book.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
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

// DeleteBook removes a book row.
// Returns store.ErrNotFound when the book does not exist.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
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
