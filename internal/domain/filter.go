package domain

import "time"

// FilterOutcome is the decision for one evaluated candidate.
type FilterOutcome string

const (
	FilterPassed   FilterOutcome = "passed"
	FilterByGenre  FilterOutcome = "filtered_genre"
	FilterByAuthor FilterOutcome = "filtered_author"
)

// FilterDecision records the outcome of evaluating one candidate against the
// configured allow-lists, plus the fields that were evaluated.
type FilterDecision struct {
	Outcome FilterOutcome `json:"outcome"`
	Genres  []string      `json:"genres,omitempty"`
	Author  string        `json:"author,omitempty"`
}

// Passed returns true when the candidate cleared every active filter.
func (d FilterDecision) Passed() bool {
	return d.Outcome == FilterPassed
}

// FilterConfig holds the operator-configured inclusion filters.
// The pipeline re-reads it once per run, never per candidate.
type FilterConfig struct {
	GenreFilterEnabled  bool      `json:"genre_filter_enabled"`
	AllowedGenres       []string  `json:"allowed_genres,omitempty"`
	AuthorFilterEnabled bool      `json:"author_filter_enabled"`
	AllowedAuthors      []string  `json:"allowed_authors,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// GenreFilterActive returns true when genre filtering takes effect: the flag
// is set and the allow-list is non-empty.
func (fc *FilterConfig) GenreFilterActive() bool {
	return fc.GenreFilterEnabled && len(fc.AllowedGenres) > 0
}

// AuthorFilterActive returns true when author filtering takes effect.
func (fc *FilterConfig) AuthorFilterActive() bool {
	return fc.AuthorFilterEnabled && len(fc.AllowedAuthors) > 0
}

// HasActiveFilters returns true when at least one filter takes effect.
func (fc *FilterConfig) HasActiveFilters() bool {
	return fc.GenreFilterActive() || fc.AuthorFilterActive()
}

// FilterStat is one append-only filter evaluation record linked to a run.
type FilterStat struct {
	ID          string        `json:"id"`
	RunID       string        `json:"run_id"`
	Identifier  string        `json:"identifier"`
	Outcome     FilterOutcome `json:"outcome"`
	Genres      []string      `json:"genres,omitempty"`
	Author      string        `json:"author,omitempty"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}
