package archive

import (
	"encoding/json/v2"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// Page is one fetched batch of candidates plus the continuation cursor.
type Page struct {
	Candidates []domain.BookCandidate
	// Cursor resumes the scrape after this page. Empty when the source is
	// exhausted.
	Cursor string
	// Total is the number of records matching the query, as reported by the
	// source. Informational only.
	Total int
}

// identifierPattern is the only identifier shape we embed in download URLs.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidIdentifier reports whether id is safe to embed in a download URL.
func ValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}

// AssetURL returns the canonical download URL for an archive item. The
// identifier appears twice: as the item path segment and as the filename.
func AssetURL(baseURL, identifier string) (string, error) {
	if !ValidIdentifier(identifier) {
		return "", ErrInvalidIdentifier
	}
	return fmt.Sprintf("%s/download/%s/%s.pdf", strings.TrimSuffix(baseURL, "/"), identifier, identifier), nil
}

// Raw API response types (internal)

// scrapeResponse is one page of the archive's scrape endpoint.
type scrapeResponse struct {
	Items  []scrapeItem `json:"items"`
	Count  int          `json:"count"`
	Total  int          `json:"total"`
	Cursor string       `json:"cursor"`
}

// scrapeItem is one raw record. The archive's metadata is crowd-sourced, so
// most fields arrive as either a scalar or an array depending on the item.
type scrapeItem struct {
	Identifier flexString  `json:"identifier"`
	Title      flexString  `json:"title"`
	Creator    flexString  `json:"creator"`
	Year       flexString  `json:"year"`
	Desc       flexStrings `json:"description"`
	Language   flexString  `json:"language"`
}

// flexString decodes a JSON string, number, or array of strings into a single
// string. Arrays keep the first element; null decodes to empty.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) > 0 {
			*f = flexString(list[0])
		} else {
			*f = ""
		}
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
		return nil
	}

	return fmt.Errorf("unsupported value shape: %s", trimmed)
}

// flexStrings decodes a JSON string or array of strings into a slice.
// null decodes to nil.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexStrings{s}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = flexStrings(list)
		return nil
	}

	return fmt.Errorf("unsupported value shape: %s", trimmed)
}

// parseYear extracts a publication year from free-form metadata. Accepts bare
// years ("1854") and date-like strings ("1854-01-01"); anything else is 0.
func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if year, err := strconv.Atoi(s); err == nil {
		return year
	}
	if len(s) >= 4 {
		if year, err := strconv.Atoi(s[:4]); err == nil {
			return year
		}
	}
	return 0
}
