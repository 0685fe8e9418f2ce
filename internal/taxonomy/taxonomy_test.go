package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Science Fiction", "science-fiction"},
		{"Poèmes", "poemes"},
		{"Myths/Legends", "myths-legends"},
		{"  Philosophy  ", "philosophy"},
		{"---", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}

func TestCanonicalGenre(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"exact", "Philosophy", "Philosophy", true},
		{"lowercase", "philosophy", "Philosophy", true},
		{"uppercase", "HISTORY", "History", true},
		{"alias", "Novels", "Fiction", true},
		{"classic alias", "Natural Philosophy", "Science", true},
		{"unknown", "Basket Weaving", "", false},
		{"empty", "", "", false},
		{"subgenre is not a genre", "Stoicism", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CanonicalGenre(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalSubgenre(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"exact", "Gothic Fiction", "Gothic Fiction", true},
		{"case insensitive", "gothic fiction", "Gothic Fiction", true},
		{"alias", "Sci-Fi", "Science Fiction", true},
		{"direct hit beats alias", "Theology", "Theology", true},
		{"genre is not a subgenre", "Philosophy", "", false},
		{"unknown", "Vampire Romance", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CanonicalSubgenre(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenres_ReturnsCopy(t *testing.T) {
	genres := Genres()
	genres[0] = "mutated"

	fresh := Genres()
	assert.NotEqual(t, "mutated", fresh[0])
	assert.Contains(t, fresh, "Philosophy")
	assert.Contains(t, fresh, "Science")
}

func TestEveryEntryRoundTrips(t *testing.T) {
	for _, g := range Genres() {
		got, ok := CanonicalGenre(g)
		assert.True(t, ok, "genre %q should resolve", g)
		assert.Equal(t, g, got)
	}
	for _, s := range Subgenres() {
		got, ok := CanonicalSubgenre(s)
		assert.True(t, ok, "subgenre %q should resolve", s)
		assert.Equal(t, s, got)
	}
}
