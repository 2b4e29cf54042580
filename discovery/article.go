package discovery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsrag/scraper"
)

// ArticleRecord holds the fields extracted from one article page. Date and
// Tags are only populated when the config retains metadata.
type ArticleRecord struct {
	Title   string
	URL     string
	Content string
	Date    *string
	Tags    []string
	Source  string
}

// TextStrategy pulls one optional value out of a document.
type TextStrategy func(doc *goquery.Document) (string, bool)

// SelectText returns a strategy that reads the whitespace-collapsed text of
// the first element matching selector.
func SelectText(selector string) TextStrategy {
	return func(doc *goquery.Document) (string, bool) {
		text := collapseWhitespace(doc.Find(selector).First().Text())
		return text, text != ""
	}
}

// SelectorStrategies turns a selector list into text strategies.
func SelectorStrategies(selectors []string) []TextStrategy {
	strategies := make([]TextStrategy, 0, len(selectors))
	for _, selector := range selectors {
		strategies = append(strategies, SelectText(selector))
	}
	return strategies
}

// FirstText applies strategies in order and returns the first non-empty
// value.
func FirstText(doc *goquery.Document, strategies ...TextStrategy) (string, bool) {
	for _, strategy := range strategies {
		if text, ok := strategy(doc); ok {
			return text, true
		}
	}
	return "", false
}

// FirstSelection returns the first selector that matches at least one
// element, narrowed to its first match. The returned selection is empty when
// nothing matches.
func FirstSelection(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		if s := doc.Find(selector).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection.Slice(0, 0)
}

// ExtractArticle extracts an article record from a parsed page. Missing
// fields fall back to their defaults; the only error is a nil document.
func ExtractArticle(doc *goquery.Document, config scraper.ArticleConfig, articleURL string) (*ArticleRecord, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}

	record := &ArticleRecord{
		URL:    articleURL,
		Source: config.Source,
	}

	title, ok := FirstText(doc, SelectorStrategies(config.TitleSelectors)...)
	if !ok {
		title = config.DefaultTitle
		if title == "" {
			title = scraper.DefaultTitle
		}
	}
	if config.Normalize {
		title = lowerCase(title)
	}
	record.Title = title

	record.Content = CleanParagraphs(ExtractParagraphs(doc, config), config)

	if config.RetainMetadata {
		if date, ok := FirstText(doc, SelectorStrategies(config.DateSelectors)...); ok {
			record.Date = &date
		}
		record.Tags = ExtractTags(doc, config)
	}

	return record, nil
}

// ExtractParagraphs returns the paragraph texts of the first content
// container found, in document order.
func ExtractParagraphs(doc *goquery.Document, config scraper.ArticleConfig) []string {
	container := FirstSelection(doc, config.ContentSelectors)
	if container.Length() == 0 {
		return []string{}
	}

	selector := config.ParagraphSelector
	if selector == "" {
		selector = "p"
	}

	paragraphs := []string{}
	container.Find(selector).Each(func(_ int, s *goquery.Selection) {
		paragraphs = append(paragraphs, collapseWhitespace(s.Text()))
	})

	return paragraphs
}

// ExtractTags reads anchor texts from the first tag container. When none are
// found the result is exactly the default tag.
func ExtractTags(doc *goquery.Document, config scraper.ArticleConfig) []string {
	tags := []string{}

	container := FirstSelection(doc, config.TagContainers)
	container.Find("a").Each(func(_ int, s *goquery.Selection) {
		if tag := collapseWhitespace(s.Text()); tag != "" {
			tags = append(tags, tag)
		}
	})

	if len(tags) == 0 {
		defaultTag := config.DefaultTag
		if defaultTag == "" {
			defaultTag = scraper.DefaultTag
		}
		tags = []string{defaultTag}
	}

	return tags
}

// collapseWhitespace trims and replaces runs of whitespace with one space.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
