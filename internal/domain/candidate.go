package domain

// BookCandidate is a record fetched from an external archive that has not yet
// been accepted into the catalog. Candidates are transient; only accepted
// candidates become Books.
type BookCandidate struct {
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Year        int    `json:"year,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	AssetURL    string `json:"asset_url"`
}
