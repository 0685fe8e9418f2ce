package domain

// Genre bounds for an accepted classification.
const (
	MinGenres = 1
	MaxGenres = 3
)

// Classification is the bounded result of AI genre classification: one to
// three primary genres and at most one sub-genre, all taxonomy-valid. A nil
// *Classification means classification was unavailable for the candidate.
type Classification struct {
	Genres   []string `json:"genres"`
	Subgenre string   `json:"subgenre,omitempty"`
}

// Category returns the denormalized browsing category: the first genre, or
// CategoryUncategorized when the classification is absent.
func (c *Classification) Category() string {
	if c == nil || len(c.Genres) == 0 {
		return CategoryUncategorized
	}
	return c.Genres[0]
}

// Valid reports whether the genre bounds hold.
func (c *Classification) Valid() bool {
	if c == nil {
		return false
	}
	return len(c.Genres) >= MinGenres && len(c.Genres) <= MaxGenres
}
