package ingest

import (
	"strings"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// evaluateFilters decides whether a classified candidate enters the catalog.
// Pure function: the decision depends only on its arguments. The genre check
// runs before the author check, so a candidate rejected by both reports
// filtered_genre. With no active filters every candidate passes.
//
// Genre matching is a case-insensitive exact match against the allow-list; a
// candidate passes when any of its classified genres is allowed. An absent
// classification cannot match, so it is rejected whenever genre filtering is
// active. Author matching is a case-insensitive substring check: the candidate
// passes when any allowed author appears within its author string, which
// tolerates the archive's "Last, First" and "Name, dates" author forms.
func evaluateFilters(candidate domain.BookCandidate, classification *domain.Classification, config *domain.FilterConfig) domain.FilterDecision {
	decision := domain.FilterDecision{
		Outcome: domain.FilterPassed,
		Author:  candidate.Author,
	}
	if classification != nil {
		decision.Genres = classification.Genres
	}
	if config == nil || !config.HasActiveFilters() {
		return decision
	}

	if config.GenreFilterActive() && !genreAllowed(decision.Genres, config.AllowedGenres) {
		decision.Outcome = domain.FilterByGenre
		return decision
	}

	if config.AuthorFilterActive() && !authorAllowed(candidate.Author, config.AllowedAuthors) {
		decision.Outcome = domain.FilterByAuthor
		return decision
	}

	return decision
}

func genreAllowed(genres, allowed []string) bool {
	for _, genre := range genres {
		for _, want := range allowed {
			if strings.EqualFold(genre, want) {
				return true
			}
		}
	}
	return false
}

func authorAllowed(author string, allowed []string) bool {
	lower := strings.ToLower(author)
	for _, want := range allowed {
		// An empty allow-list entry would match every author.
		if want == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(want)) {
			return true
		}
	}
	return false
}
