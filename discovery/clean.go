package discovery

import (
	"slices"
	"strings"

	"github.com/pevans/newsrag/scraper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CleanParagraphs drops read-also callouts, strips one dateline prefix from
// each paragraph, drops paragraphs left empty, and joins the rest with
// newlines. With Normalize set the joined text is lower-cased.
func CleanParagraphs(paragraphs []string, config scraper.ArticleConfig) string {
	kept := make([]string, 0, len(paragraphs))

	for _, paragraph := range paragraphs {
		text := strings.TrimSpace(paragraph)
		if slices.Contains(config.SkipParagraphs, text) {
			continue
		}

		text = strings.TrimSpace(StripBoilerplate(text, config.BoilerplatePrefixes))
		if text == "" {
			continue
		}

		kept = append(kept, text)
	}

	content := strings.Join(kept, "\n")
	if config.Normalize {
		content = lowerCase(content)
	}

	return content
}

// StripBoilerplate removes the first matching prefix from the start of text.
// At most one prefix is removed.
func StripBoilerplate(text string, prefixes []string) string {
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(text, prefix); ok {
			return rest
		}
	}
	return text
}

// lowerCase applies Indonesian casing rules.
func lowerCase(text string) string {
	return cases.Lower(language.Indonesian).String(text)
}
