package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterConfig_GenreFilterActive(t *testing.T) {
	tests := []struct {
		name string
		cfg  FilterConfig
		want bool
	}{
		{"enabled with genres", FilterConfig{GenreFilterEnabled: true, AllowedGenres: []string{"Philosophy"}}, true},
		{"enabled with empty list", FilterConfig{GenreFilterEnabled: true}, false},
		{"disabled with genres", FilterConfig{AllowedGenres: []string{"Philosophy"}}, false},
		{"zero value", FilterConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.GenreFilterActive())
		})
	}
}

func TestFilterConfig_HasActiveFilters(t *testing.T) {
	assert.False(t, (&FilterConfig{}).HasActiveFilters())
	assert.True(t, (&FilterConfig{GenreFilterEnabled: true, AllowedGenres: []string{"Fiction"}}).HasActiveFilters())
	assert.True(t, (&FilterConfig{AuthorFilterEnabled: true, AllowedAuthors: []string{"Plato"}}).HasActiveFilters())
}

func TestFilterDecision_Passed(t *testing.T) {
	assert.True(t, FilterDecision{Outcome: FilterPassed}.Passed())
	assert.False(t, FilterDecision{Outcome: FilterByGenre}.Passed())
	assert.False(t, FilterDecision{Outcome: FilterByAuthor}.Passed())
}
