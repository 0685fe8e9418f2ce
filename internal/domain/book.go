// Package domain contains the core business entities for the Shelfmark catalog.
package domain

import "time"

// CategoryUncategorized is the browsing category assigned to books whose
// classification is absent.
const CategoryUncategorized = "Uncategorized"

// Book represents a cataloged book. Books arrive through ingestion from an
// external archive or through manual creation; only ingested books carry a
// source identifier.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Year        int       `json:"year,omitempty"`
	Language    string    `json:"language,omitempty"`
	SourceID    string    `json:"source_id,omitempty"`
	AssetURL    string    `json:"asset_url,omitempty"`
	AssetPath   string    `json:"asset_path,omitempty"`
	Description string    `json:"description,omitempty"`
	Genres      []string  `json:"genres,omitempty"`
	Subgenre    string    `json:"subgenre,omitempty"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new book.
func (b *Book) InitTimestamps() {
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
}

// Touch updates the UpdatedAt timestamp to the current time.
func (b *Book) Touch() {
	b.UpdatedAt = time.Now()
}

// HasSource returns true when the book was ingested from an external archive.
func (b *Book) HasSource() bool {
	return b.SourceID != ""
}
