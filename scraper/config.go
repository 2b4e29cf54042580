package scraper

// ScraperConfig defines how articles are discovered and extracted from one
// news site. Values are built once and passed by value; nothing mutates them
// during a crawl.
type ScraperConfig struct {
	ListConfig    ListConfig    `json:"list_config" yaml:"list_config"`
	ArticleConfig ArticleConfig `json:"article_config" yaml:"article_config"`
}

// ListConfig defines how article links are found on a listing page.
type ListConfig struct {
	// ItemSelector matches one teaser container on the listing page.
	ItemSelector string `json:"item_selector" yaml:"item_selector"`
	// TitleSelector matches the teaser title inside an item. The enclosing
	// anchor of each match is the primary source of links.
	TitleSelector string `json:"title_selector" yaml:"title_selector"`
	// LinkMarker must appear in an href for it to count as an article
	// permalink.
	LinkMarker string `json:"link_marker" yaml:"link_marker"`
}

// ArticleConfig defines how fields are pulled out of an article page. Every
// selector list is tried in order and the first non-empty match wins.
type ArticleConfig struct {
	TitleSelectors      []string `json:"title_selectors" yaml:"title_selectors"`
	DateSelectors       []string `json:"date_selectors" yaml:"date_selectors"`
	ContentSelectors    []string `json:"content_selectors" yaml:"content_selectors"`
	ParagraphSelector   string   `json:"paragraph_selector" yaml:"paragraph_selector"`
	TagContainers       []string `json:"tag_containers" yaml:"tag_containers"`
	SkipParagraphs      []string `json:"skip_paragraphs" yaml:"skip_paragraphs"`
	BoilerplatePrefixes []string `json:"boilerplate_prefixes" yaml:"boilerplate_prefixes"`

	DefaultTitle string `json:"default_title" yaml:"default_title"`
	DefaultTag   string `json:"default_tag" yaml:"default_tag"`
	Source       string `json:"source" yaml:"source"`

	// Normalize lower-cases title and content.
	Normalize bool `json:"normalize" yaml:"normalize"`
	// RetainMetadata extracts date and tags.
	RetainMetadata bool `json:"retain_metadata" yaml:"retain_metadata"`
}

// Bisnis.com defaults.
const (
	DefaultSource     = "bisnis.com"
	DefaultTag        = "tips keuangan"
	DefaultTitle      = "No Title"
	DefaultLinkMarker = "read"
	ReadAlsoMarker    = "Baca Juga"
)

// DefaultBoilerplatePrefixes lists the dateline variants that open bisnis.com
// paragraphs: "Bisnis.com, JAKARTA", "Bisnis.com,JAKARTA" or a bare
// "JAKARTA" followed by an em dash, en dash or hyphen, with or without a
// space on either side. Within each dateline the spaced forms come first so
// that the longest match is removed.
//
// The bare dateline is only matched with an unspaced en dash or hyphen when
// a space follows, so words like "JAKARTA-based" are left alone.
func DefaultBoilerplatePrefixes() []string {
	datelines := []string{"Bisnis.com, JAKARTA", "Bisnis.com,JAKARTA", "JAKARTA"}
	dashes := []string{"—", "–", "-"}

	prefixes := make([]string, 0, len(datelines)*len(dashes)*4)
	for _, dateline := range datelines {
		for _, dash := range dashes {
			prefixes = append(prefixes,
				dateline+" "+dash+" ",
				dateline+" "+dash,
				dateline+dash+" ",
			)
			if dateline != "JAKARTA" || dash == "—" {
				prefixes = append(prefixes, dateline+dash)
			}
		}
	}

	return prefixes
}

// NewListConfig creates a list configuration with the default link marker.
func NewListConfig(itemSelector, titleSelector string) ListConfig {
	return ListConfig{
		ItemSelector:  itemSelector,
		TitleSelector: titleSelector,
		LinkMarker:    DefaultLinkMarker,
	}
}

// DefaultConfig returns the selector set for the bisnis.com topic pages. It
// retains date and tags and keeps the original casing.
func DefaultConfig() ScraperConfig {
	return ScraperConfig{
		ListConfig: NewListConfig(".artItem", ".artTitle"),
		ArticleConfig: ArticleConfig{
			TitleSelectors:      []string{"h1.article-title", "h1"},
			DateSelectors:       []string{"div.date", "span.date", "div.artDate"},
			ContentSelectors:    []string{"article.detailsContent", "div.article-body"},
			ParagraphSelector:   "p",
			TagContainers:       []string{"div.topic", "ul.tags"},
			SkipParagraphs:      []string{ReadAlsoMarker},
			BoilerplatePrefixes: DefaultBoilerplatePrefixes(),
			DefaultTitle:        DefaultTitle,
			DefaultTag:          DefaultTag,
			Source:              DefaultSource,
			RetainMetadata:      true,
		},
	}
}
