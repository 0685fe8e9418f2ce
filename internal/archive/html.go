package archive

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// markupPattern matches tags that indicate a description is real HTML rather
// than plain text that happens to contain an angle bracket.
var markupPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// containsMarkup reports whether a description appears to carry HTML markup.
func containsMarkup(s string) bool {
	return markupPattern.MatchString(strings.ToLower(s))
}

// cleanDescription normalizes a crowd-sourced description for storage.
// Marked-up descriptions become markdown so paragraph and list structure
// survives display; everything else is trimmed plain text with entities
// decoded and whitespace collapsed.
func cleanDescription(s string) string {
	if s == "" {
		return ""
	}
	if containsMarkup(s) {
		if markdown, err := htmltomarkdown.ConvertString(s); err == nil {
			return strings.TrimSpace(markdown)
		}
		// Conversion rejects some malformed markup; stripping accepts anything.
		return stripHTML(s)
	}
	return stripHTML(s)
}

// blockTags are elements whose boundaries become spaces, so text from
// adjacent paragraphs or list items does not fuse into one word.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// stripHTML reduces archive descriptions to plain text: tags removed,
// entities decoded, whitespace collapsed. Descriptions are crowd-sourced and
// range from plain text to full markup, so this has to accept anything.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(collapseWhitespace(s))
	}

	var buf strings.Builder
	tok := html.NewTokenizer(strings.NewReader(s))
	for {
		switch tok.Next() {
		case html.ErrorToken:
			// The tokenizer never fails on malformed markup, only at EOF.
			return strings.TrimSpace(collapseWhitespace(buf.String()))
		case html.TextToken:
			buf.Write(tok.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := tok.TagName()
			if blockTags[string(name)] {
				buf.WriteByte(' ')
			}
		}
	}
}

// collapseWhitespace replaces runs of whitespace with a single space.
var whitespaceRegex = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(s, " ")
}
