// Package crawl drives a sequential crawl over a paginated topic listing.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pevans/newsrag/discovery"
	"github.com/pevans/newsrag/logger"
	"github.com/pevans/newsrag/scraper"
)

// Defaults for the bisnis.com "tips keuangan" topic.
const (
	DefaultBaseURL   = "https://www.bisnis.com/topic/28722/tips-keuangan/?page="
	DefaultFirstPage = 1
	DefaultLastPage  = 17
	DefaultDelay     = 1 * time.Second
)

// ErrInvalidConfig is wrapped by Validate failures.
var ErrInvalidConfig = errors.New("invalid crawl config")

// Config holds everything a crawl needs. It is copied into the Crawler at
// construction.
type Config struct {
	// BaseURL is the listing URL up to the page number.
	BaseURL   string
	FirstPage int
	LastPage  int
	// Delay is the pause after every article attempt.
	Delay time.Duration
	// FeedURL optionally names an RSS/Atom feed whose article links are
	// scraped after the listing pages.
	FeedURL string
	// AbortOnPageError stops the crawl at the first listing page that
	// cannot be fetched. By default such pages are logged and skipped.
	AbortOnPageError bool
	Scraper          scraper.ScraperConfig
}

// DefaultConfig returns the bisnis.com crawl.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		FirstPage: DefaultFirstPage,
		LastPage:  DefaultLastPage,
		Delay:     DefaultDelay,
		Scraper:   scraper.DefaultConfig(),
	}
}

// PageURL builds the listing URL for a page number.
func (c Config) PageURL(page int) string {
	return c.BaseURL + strconv.Itoa(page)
}

// Validate checks the page range, delay and base URL.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is empty", ErrInvalidConfig)
	}
	if c.FirstPage < 1 {
		return fmt.Errorf("%w: first page must be at least 1, got %d", ErrInvalidConfig, c.FirstPage)
	}
	if c.LastPage < c.FirstPage {
		return fmt.Errorf("%w: last page %d is before first page %d", ErrInvalidConfig, c.LastPage, c.FirstPage)
	}
	if c.Delay < 0 {
		return fmt.Errorf("%w: delay must not be negative", ErrInvalidConfig)
	}
	return nil
}

// FailureKind says which step of the crawl failed.
type FailureKind string

// Failure kinds.
const (
	PageFailure    FailureKind = "page"
	ArticleFailure FailureKind = "article"
	FeedFailure    FailureKind = "feed"
)

// Failure records one URL that could not be scraped.
type Failure struct {
	Kind FailureKind
	URL  string
	Err  error
}

// Result is the accumulation of one crawl.
type Result struct {
	Articles     []discovery.ArticleRecord
	Failures     []Failure
	PagesScraped int
	LinksFound   int
}

// ArticleFailures counts failed article attempts.
func (r *Result) ArticleFailures() int {
	count := 0
	for _, f := range r.Failures {
		if f.Kind == ArticleFailure {
			count++
		}
	}
	return count
}

// Crawler walks the listing pages and scrapes each article it finds. It is
// not safe for concurrent use; one Crawler runs one crawl at a time.
type Crawler struct {
	config  Config
	fetcher discovery.Fetcher
	log     logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a crawler. A nil logger discards output.
func New(config Config, fetcher discovery.Fetcher, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.NewNop()
	}

	return &Crawler{
		config:  config,
		fetcher: fetcher,
		log:     log,
		sleep:   sleepContext,
	}
}

// Run performs the crawl. Article failures never stop it. A listing page
// failure stops it only with AbortOnPageError; the partial result is
// returned together with the error. Cancelling ctx also returns the partial
// result.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		Articles: []discovery.ArticleRecord{},
	}

	for page := c.config.FirstPage; page <= c.config.LastPage; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		pageURL := c.config.PageURL(page)
		c.log.Info("Scraping page", logger.Int("page", page), logger.String("url", pageURL))

		links, err := c.pageLinks(ctx, pageURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}

			result.Failures = append(result.Failures, Failure{Kind: PageFailure, URL: pageURL, Err: err})
			c.log.Error("Failed to scrape page", logger.Int("page", page), logger.String("url", pageURL), logger.Err(err))

			if c.config.AbortOnPageError {
				return result, fmt.Errorf("failed to scrape page %d: %w", page, err)
			}
			continue
		}

		result.PagesScraped++
		result.LinksFound += len(links)
		c.log.Info("Found article links", logger.Int("page", page), logger.Int("count", len(links)))

		if err := c.scrapeLinks(ctx, links, result); err != nil {
			return result, err
		}
	}

	if c.config.FeedURL != "" {
		if err := c.scrapeFeed(ctx, result); err != nil {
			return result, err
		}
	}

	c.log.Info("Crawl finished",
		logger.Int("pages", result.PagesScraped),
		logger.Int("links", result.LinksFound),
		logger.Int("articles", len(result.Articles)),
		logger.Int("failures", len(result.Failures)),
		logger.Int("article_failures", result.ArticleFailures()),
	)

	return result, nil
}

// pageLinks fetches one listing page and extracts its article links.
func (c *Crawler) pageLinks(ctx context.Context, pageURL string) ([]string, error) {
	doc, err := discovery.FetchHTML(ctx, c.fetcher, pageURL)
	if err != nil {
		return nil, err
	}
	return discovery.ExtractLinks(doc, c.config.Scraper.ListConfig), nil
}

// scrapeFeed adds the feed's article links to the crawl. A feed failure is
// handled like a listing page failure.
func (c *Crawler) scrapeFeed(ctx context.Context, result *Result) error {
	feedURL := c.config.FeedURL
	c.log.Info("Reading feed", logger.String("url", feedURL))

	links, err := discovery.FetchFeedLinks(ctx, c.fetcher, feedURL, c.config.Scraper.ListConfig.LinkMarker)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		result.Failures = append(result.Failures, Failure{Kind: FeedFailure, URL: feedURL, Err: err})
		c.log.Error("Failed to read feed", logger.String("url", feedURL), logger.Err(err))

		if c.config.AbortOnPageError {
			return fmt.Errorf("failed to read feed: %w", err)
		}
		return nil
	}

	result.LinksFound += len(links)
	c.log.Info("Found feed links", logger.Int("count", len(links)))

	return c.scrapeLinks(ctx, links, result)
}

// scrapeLinks scrapes each link in order, pausing after every attempt. Only
// context cancellation is returned as an error.
func (c *Crawler) scrapeLinks(ctx context.Context, links []string, result *Result) error {
	for _, link := range links {
		record, err := c.scrapeArticle(ctx, link)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			result.Failures = append(result.Failures, Failure{Kind: ArticleFailure, URL: link, Err: err})
			c.log.Error("Error scraping article", logger.String("url", link), logger.Err(err))
		} else {
			result.Articles = append(result.Articles, *record)
			c.log.Info("Successfully scraped", logger.String("title", record.Title))
		}

		if err := c.sleep(ctx, c.config.Delay); err != nil {
			return err
		}
	}

	return nil
}

// scrapeArticle fetches and extracts one article. A panic inside the
// extraction is turned into an error so the crawl can continue.
func (c *Crawler) scrapeArticle(ctx context.Context, link string) (record *discovery.ArticleRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			record = nil
			err = fmt.Errorf("panic while scraping %s: %v", link, r)
		}
	}()

	doc, err := discovery.FetchHTML(ctx, c.fetcher, link)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article: %w", err)
	}

	record, err = discovery.ExtractArticle(doc, c.config.Scraper.ArticleConfig, link)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article: %w", err)
	}

	return record, nil
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
