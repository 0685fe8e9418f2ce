package gemini

import (
	"context"
	"fmt"
	"strings"
)

// Describe asks the model for a short reader-facing description of the book.
// Single attempt; retry policy belongs to the caller, which also owns the
// fallback to the source-provided description.
func (c *Client) Describe(ctx context.Context, title, author string, year int, description string) (string, error) {
	text, err := c.generate(ctx, descriptionPrompt(title, author, year, description), false)
	if err != nil {
		return "", wrapError("describe", c.model, err)
	}
	return strings.TrimSpace(text), nil
}

// descriptionPrompt builds the outbound prompt. All four fields are always
// present, with placeholders for missing optionals.
func descriptionPrompt(title, author string, year int, description string) string {
	var b strings.Builder
	b.WriteString("Write a short catalog description for a public-domain book. ")
	b.WriteString("Two to three sentences, at most 80 words, engaging but factual. ")
	b.WriteString("Do not invent plot details that the source description does not support.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "Author: %s\n", orPlaceholder(author, placeholderUnknown))
	fmt.Fprintf(&b, "Year: %s\n", yearOrPlaceholder(year))
	fmt.Fprintf(&b, "Source description: %s\n\n", orPlaceholder(description, placeholderNoDescription))
	b.WriteString("Reply with the description text only, no preamble.")
	return b.String()
}
