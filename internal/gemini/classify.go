package gemini

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"strconv"
	"strings"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/taxonomy"
)

// Substituted into prompts for missing optional fields so the model always
// sees all four, never a dangling label.
const (
	placeholderUnknown       = "Unknown"
	placeholderNoDescription = "No description available"
)

// Classify asks the model for 1-3 primary genres and at most one sub-genre
// for the given book. Reply parsing strips code fences, drops
// taxonomy-invalid genres, and truncates overflow. Zero valid genres is an
// error, never an empty classification.
func (c *Client) Classify(ctx context.Context, title, author string, year int, description string) (*domain.Classification, error) {
	text, err := c.generate(ctx, classificationPrompt(title, author, year, description), true)
	if err != nil {
		return nil, wrapError("classify", c.model, err)
	}

	classification, err := parseClassification(text)
	if err != nil {
		c.logger.Warn("unparseable classification reply",
			"title", title,
			"error", err,
		)
		return nil, wrapError("classify", c.model, err)
	}
	return classification, nil
}

// classificationPrompt builds the outbound prompt. All four fields are always
// present, with placeholders for missing optionals.
func classificationPrompt(title, author string, year int, description string) string {
	var b strings.Builder
	b.WriteString("You are a librarian classifying a public-domain book into a fixed genre taxonomy.\n\n")
	b.WriteString("Book:\n")
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "Author: %s\n", orPlaceholder(author, placeholderUnknown))
	fmt.Fprintf(&b, "Year: %s\n", yearOrPlaceholder(year))
	fmt.Fprintf(&b, "Description: %s\n\n", orPlaceholder(description, placeholderNoDescription))
	fmt.Fprintf(&b, "Pick %d to %d genres, most relevant first, strictly from this list:\n%s\n\n",
		domain.MinGenres, domain.MaxGenres, strings.Join(taxonomy.Genres(), ", "))
	fmt.Fprintf(&b, "Optionally pick at most one sub-genre from this list:\n%s\n\n",
		strings.Join(taxonomy.Subgenres(), ", "))
	b.WriteString(`Reply with JSON only, in the shape {"genres": ["..."], "subgenre": "..."}. Omit "subgenre" when none applies.`)
	return b.String()
}

// parseClassification turns a model reply into a bounded, taxonomy-valid
// classification.
func parseClassification(text string) (*domain.Classification, error) {
	var raw rawClassification
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	seen := make(map[string]bool, len(raw.Genres))
	genres := make([]string, 0, domain.MaxGenres)
	for _, g := range raw.Genres {
		canonical, ok := taxonomy.CanonicalGenre(g)
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true
		genres = append(genres, canonical)
		if len(genres) == domain.MaxGenres {
			break
		}
	}
	if len(genres) == 0 {
		return nil, fmt.Errorf("%w: no valid genres", ErrUnparseable)
	}

	classification := &domain.Classification{Genres: genres}
	if canonical, ok := taxonomy.CanonicalSubgenre(string(raw.Subgenre)); ok {
		classification.Subgenre = canonical
	}
	return classification, nil
}

// rawClassification is the model's reply shape. Subgenre tolerates the model
// returning an array despite the prompt asking for one value.
type rawClassification struct {
	Genres   []string  `json:"genres"`
	Subgenre oneOrMany `json:"subgenre"`
}

// oneOrMany decodes a JSON string, or an array of strings keeping the first.
type oneOrMany string

func (o *oneOrMany) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*o = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = oneOrMany(s)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) > 0 {
			*o = oneOrMany(list[0])
		} else {
			*o = ""
		}
		return nil
	}

	return fmt.Errorf("unsupported value shape: %s", string(data))
}

// stripCodeFence unwraps ```json ... ``` markers the model sometimes adds
// even when asked for bare JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// The fence may carry a language tag on the opening line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 && !strings.ContainsAny(s[:idx], "{[") {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// orPlaceholder returns s, or the placeholder when s is blank.
func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

// yearOrPlaceholder formats a year, treating zero as unknown.
func yearOrPlaceholder(year int) string {
	if year == 0 {
		return placeholderUnknown
	}
	return strconv.Itoa(year)
}
