// Package search provides full-text search over the book catalog using
// Bleve, with keyword filtering on genres, category, and language, fuzzy
// matching, and facet counts.
package search

import (
	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// SearchDocument is the document structure for the Bleve index.
//
// Design note: author and genres are flattened onto the document so a single
// query can match and filter without touching the relational store. The
// trade-off is reindexing on metadata change, which the catalog writer does
// at write time anyway.
type SearchDocument struct {
	ID string `json:"id"` // Book ID (bk-xxx)

	// Primary searchable text
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`

	// Keyword fields for exact filtering and facets
	Genres   []string `json:"genres,omitempty"`
	Subgenre string   `json:"subgenre,omitempty"`
	Category string   `json:"category,omitempty"`
	Language string   `json:"language,omitempty"`

	// Numeric fields for range queries and sorting
	Year int `json:"year,omitempty"`

	// Timestamps for sorting, Unix millis
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *SearchDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"title":      d.Title,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	// Optional fields - only add if non-empty
	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Genres) > 0 {
		m["genres"] = d.Genres
	}
	if d.Subgenre != "" {
		m["subgenre"] = d.Subgenre
	}
	if d.Category != "" {
		m["category"] = d.Category
	}
	if d.Language != "" {
		m["language"] = d.Language
	}
	if d.Year > 0 {
		m["year"] = d.Year
	}

	return m
}

// BookToSearchDocument converts a domain Book to a SearchDocument.
func BookToSearchDocument(book *domain.Book) *SearchDocument {
	return &SearchDocument{
		ID:          book.ID,
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		Genres:      book.Genres,
		Subgenre:    book.Subgenre,
		Category:    book.Category,
		Language:    book.Language,
		Year:        book.Year,
		CreatedAt:   book.CreatedAt.UnixMilli(),
		UpdatedAt:   book.UpdatedAt.UnixMilli(),
	}
}
