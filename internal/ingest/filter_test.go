package ingest

import (
	"testing"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func TestEvaluateFilters_Outcomes(t *testing.T) {
	classified := &domain.Classification{Genres: []string{"Philosophy", "Essays"}, Subgenre: "Stoicism"}

	tests := []struct {
		name           string
		candidate      domain.BookCandidate
		classification *domain.Classification
		config         *domain.FilterConfig
		want           domain.FilterOutcome
	}{
		{
			name:           "nil config passes",
			candidate:      domain.BookCandidate{Identifier: "a", Author: "Thoreau"},
			classification: classified,
			config:         nil,
			want:           domain.FilterPassed,
		},
		{
			name:           "no filters configured passes",
			candidate:      domain.BookCandidate{Identifier: "a", Author: "Thoreau"},
			classification: classified,
			config:         &domain.FilterConfig{},
			want:           domain.FilterPassed,
		},
		{
			name:           "enabled genre filter with empty allow-list is inactive",
			candidate:      domain.BookCandidate{Identifier: "a"},
			classification: classified,
			config:         &domain.FilterConfig{GenreFilterEnabled: true},
			want:           domain.FilterPassed,
		},
		{
			name:           "genre match passes",
			candidate:      domain.BookCandidate{Identifier: "a"},
			classification: classified,
			config: &domain.FilterConfig{
				GenreFilterEnabled: true,
				AllowedGenres:      []string{"Philosophy"},
			},
			want: domain.FilterPassed,
		},
		{
			name:           "genre match is case-insensitive",
			candidate:      domain.BookCandidate{Identifier: "a"},
			classification: classified,
			config: &domain.FilterConfig{
				GenreFilterEnabled: true,
				AllowedGenres:      []string{"pHiLoSoPhY"},
			},
			want: domain.FilterPassed,
		},
		{
			name:           "any classified genre may match",
			candidate:      domain.BookCandidate{Identifier: "a"},
			classification: classified,
			config: &domain.FilterConfig{
				GenreFilterEnabled: true,
				AllowedGenres:      []string{"History", "Essays"},
			},
			want: domain.FilterPassed,
		},
		{
			name:           "no genre overlap is rejected",
			candidate:      domain.BookCandidate{Identifier: "a"},
			classification: &domain.Classification{Genres: []string{"Science"}},
			config: &domain.FilterConfig{
				GenreFilterEnabled: true,
				AllowedGenres:      []string{"Philosophy"},
			},
			want: domain.FilterByGenre,
		},
		{
			name:           "genre match must be exact, not substring",
			candidate:      domain.BookCandidate{Identifier: "a"},
			classification: &domain.Classification{Genres: []string{"Science Fiction"}},
			config: &domain.FilterConfig{
				GenreFilterEnabled: true,
				AllowedGenres:      []string{"Science"},
			},
			want: domain.FilterByGenre,
		},
		{
			name:           "absent classification fails an active genre filter",
			candidate:      domain.BookCandidate{Identifier: "a"},
			classification: nil,
			config: &domain.FilterConfig{
				GenreFilterEnabled: true,
				AllowedGenres:      []string{"Philosophy"},
			},
			want: domain.FilterByGenre,
		},
		{
			name:           "absent classification passes when no genre filter",
			candidate:      domain.BookCandidate{Identifier: "a"},
			classification: nil,
			config:         &domain.FilterConfig{},
			want:           domain.FilterPassed,
		},
		{
			name:      "author substring match passes",
			candidate: domain.BookCandidate{Identifier: "a", Author: "Thoreau, Henry David, 1817-1862"},
			config: &domain.FilterConfig{
				AuthorFilterEnabled: true,
				AllowedAuthors:      []string{"Thoreau"},
			},
			want: domain.FilterPassed,
		},
		{
			name:      "author match is case-insensitive",
			candidate: domain.BookCandidate{Identifier: "a", Author: "AUSTEN, JANE"},
			config: &domain.FilterConfig{
				AuthorFilterEnabled: true,
				AllowedAuthors:      []string{"austen"},
			},
			want: domain.FilterPassed,
		},
		{
			name:      "unmatched author is rejected",
			candidate: domain.BookCandidate{Identifier: "a", Author: "Dickens, Charles"},
			config: &domain.FilterConfig{
				AuthorFilterEnabled: true,
				AllowedAuthors:      []string{"Austen", "Thoreau"},
			},
			want: domain.FilterByAuthor,
		},
		{
			name:      "missing author fails an active author filter",
			candidate: domain.BookCandidate{Identifier: "a"},
			config: &domain.FilterConfig{
				AuthorFilterEnabled: true,
				AllowedAuthors:      []string{"Austen"},
			},
			want: domain.FilterByAuthor,
		},
		{
			name:      "empty allow-list entry never matches",
			candidate: domain.BookCandidate{Identifier: "a", Author: "Dickens"},
			config: &domain.FilterConfig{
				AuthorFilterEnabled: true,
				AllowedAuthors:      []string{""},
			},
			want: domain.FilterByAuthor,
		},
		{
			name:           "genre rejection wins over author rejection",
			candidate:      domain.BookCandidate{Identifier: "a", Author: "Dickens, Charles"},
			classification: &domain.Classification{Genres: []string{"Science"}},
			config: &domain.FilterConfig{
				GenreFilterEnabled:  true,
				AllowedGenres:       []string{"Philosophy"},
				AuthorFilterEnabled: true,
				AllowedAuthors:      []string{"Austen"},
			},
			want: domain.FilterByGenre,
		},
		{
			name:           "genre pass still subject to author filter",
			candidate:      domain.BookCandidate{Identifier: "a", Author: "Dickens, Charles"},
			classification: classified,
			config: &domain.FilterConfig{
				GenreFilterEnabled:  true,
				AllowedGenres:       []string{"Philosophy"},
				AuthorFilterEnabled: true,
				AllowedAuthors:      []string{"Austen"},
			},
			want: domain.FilterByAuthor,
		},
		{
			name:           "both filters pass",
			candidate:      domain.BookCandidate{Identifier: "a", Author: "Thoreau, Henry David"},
			classification: classified,
			config: &domain.FilterConfig{
				GenreFilterEnabled:  true,
				AllowedGenres:       []string{"Philosophy"},
				AuthorFilterEnabled: true,
				AllowedAuthors:      []string{"Thoreau"},
			},
			want: domain.FilterPassed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluateFilters(tt.candidate, tt.classification, tt.config)
			if got.Outcome != tt.want {
				t.Errorf("outcome = %q, want %q", got.Outcome, tt.want)
			}
			if got.Passed() != (tt.want == domain.FilterPassed) {
				t.Errorf("Passed() = %v inconsistent with outcome %q", got.Passed(), got.Outcome)
			}
		})
	}
}

func TestEvaluateFilters_DecisionCarriesEvaluatedFields(t *testing.T) {
	candidate := domain.BookCandidate{Identifier: "a", Author: "Thoreau, Henry David"}
	classification := &domain.Classification{Genres: []string{"Philosophy", "Essays"}}

	decision := evaluateFilters(candidate, classification, &domain.FilterConfig{})
	if len(decision.Genres) != 2 || decision.Genres[0] != "Philosophy" {
		t.Errorf("decision genres = %v, want classified genres", decision.Genres)
	}
	if decision.Author != candidate.Author {
		t.Errorf("decision author = %q, want %q", decision.Author, candidate.Author)
	}

	// Absent classification leaves the genre list empty.
	decision = evaluateFilters(candidate, nil, &domain.FilterConfig{})
	if len(decision.Genres) != 0 {
		t.Errorf("expected no genres for absent classification, got %v", decision.Genres)
	}
}
