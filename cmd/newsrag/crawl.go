package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsrag/config"
	"github.com/pevans/newsrag/crawl"
	"github.com/pevans/newsrag/discovery"
	"github.com/pevans/newsrag/history"
	"github.com/pevans/newsrag/logger"
	"github.com/pevans/newsrag/ragexport"
	"github.com/spf13/cobra"
)

const (
	sampleSize    = 3
	previewLength = 100
	emptyWarning  = "No articles were scraped. Please check the website structure or network connection."
)

// crawlOptions mirrors the crawl flags. Only flags the user set override the
// resolved config.
type crawlOptions struct {
	baseURL          string
	firstPage        int
	lastPage         int
	delay            time.Duration
	outputDir        string
	output           string
	normalize        bool
	retainMetadata   bool
	feedURL          string
	historyDSN       string
	abortOnPageError bool
}

func newCrawlCmd(root *rootOptions) *cobra.Command {
	opts := &crawlOptions{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Scrape the topic listing and write the RAG export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}

			log, err := logger.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			fetcher := discovery.NewHTTPFetcher(cfg.UserAgent, cfg.FetchTimeout)
			return runCrawl(cmd.Context(), cmd.OutOrStdout(), cfg, fetcher, log)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.baseURL, "base-url", defaults.Crawl.BaseURL, "listing URL prefix; the page number is appended (NEWSRAG_BASE_URL)")
	flags.IntVar(&opts.firstPage, "first-page", defaults.Crawl.FirstPage, "first listing page (NEWSRAG_FIRST_PAGE)")
	flags.IntVar(&opts.lastPage, "last-page", defaults.Crawl.LastPage, "last listing page, inclusive (NEWSRAG_LAST_PAGE)")
	flags.DurationVar(&opts.delay, "delay", defaults.Crawl.Delay, "pause after each article request (NEWSRAG_DELAY)")
	flags.StringVar(&opts.outputDir, "output-dir", defaults.OutputDir, "export directory (NEWSRAG_OUTPUT_DIR)")
	flags.StringVar(&opts.output, "output", defaults.OutputFile, "export file name (NEWSRAG_OUTPUT_FILE)")
	flags.BoolVar(&opts.normalize, "normalize", false, "lower-case title and content (NEWSRAG_NORMALIZE)")
	flags.BoolVar(&opts.retainMetadata, "retain-metadata", true, "extract date and tags (NEWSRAG_RETAIN_METADATA)")
	flags.StringVar(&opts.feedURL, "feed-url", "", "RSS/Atom feed used as an extra link source (NEWSRAG_FEED_URL)")
	flags.StringVar(&opts.historyDSN, "history", "", "SQLite run history database (NEWSRAG_HISTORY_DSN)")
	flags.BoolVar(&opts.abortOnPageError, "abort-on-page-error", false, "stop when a listing page fails (NEWSRAG_ABORT_ON_PAGE_ERROR)")

	return cmd
}

// apply copies the flags that were set on the command line into cfg and
// validates the result.
func (o *crawlOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	article := &cfg.Crawl.Scraper.ArticleConfig

	if flags.Changed("base-url") {
		cfg.Crawl.BaseURL = o.baseURL
	}
	if flags.Changed("first-page") {
		cfg.Crawl.FirstPage = o.firstPage
	}
	if flags.Changed("last-page") {
		cfg.Crawl.LastPage = o.lastPage
	}
	if flags.Changed("delay") {
		cfg.Crawl.Delay = o.delay
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = o.outputDir
	}
	if flags.Changed("output") {
		cfg.OutputFile = o.output
	}
	if flags.Changed("normalize") {
		article.Normalize = o.normalize
	}
	if flags.Changed("retain-metadata") {
		article.RetainMetadata = o.retainMetadata
	}
	if flags.Changed("feed-url") {
		cfg.Crawl.FeedURL = o.feedURL
	}
	if flags.Changed("history") {
		cfg.HistoryDSN = o.historyDSN
	}
	if flags.Changed("abort-on-page-error") {
		cfg.Crawl.AbortOnPageError = o.abortOnPageError
	}

	return cfg.Validate()
}

// runCrawl performs one crawl, prints the summary and writes the export.
// Whatever was collected is saved even when the crawl was aborted or
// interrupted; the crawl error is returned afterwards.
func runCrawl(ctx context.Context, out io.Writer, cfg *config.Config, fetcher discovery.Fetcher, log logger.Logger) error {
	var (
		store *history.RunStore
		run   *history.Run
		err   error
	)
	if cfg.HistoryDSN != "" {
		store, err = history.NewRunStore(cfg.HistoryDSN)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		defer store.Close()

		run, err = store.StartRun()
		if err != nil {
			return err
		}
		log = log.With(logger.String("run_id", run.RunID.String()))
	}

	log.Info("Starting crawl",
		logger.String("base_url", cfg.Crawl.BaseURL),
		logger.Int("first_page", cfg.Crawl.FirstPage),
		logger.Int("last_page", cfg.Crawl.LastPage),
		logger.Duration("delay", cfg.Crawl.Delay),
	)

	result, crawlErr := crawl.New(cfg.Crawl, fetcher, log).Run(ctx)
	if crawlErr != nil {
		if errors.Is(crawlErr, context.Canceled) {
			log.Warn("Crawl interrupted, saving collected articles", logger.Int("articles", len(result.Articles)))
		}
		crawlErr = fmt.Errorf("crawl stopped: %w", crawlErr)
	}

	printSummary(out, result.Articles)
	if len(result.Articles) == 0 {
		log.Warn(emptyWarning)
	}

	retain := cfg.Crawl.Scraper.ArticleConfig.RetainMetadata
	outputPath, saveErr := ragexport.Save(cfg.OutputDir, cfg.OutputFile, result.Articles, retain)
	if saveErr != nil {
		saveErr = fmt.Errorf("failed to save export: %w", saveErr)
		outputPath = ""
	} else {
		log.Info("Saved articles", logger.Int("count", len(result.Articles)), logger.String("path", outputPath))
		fmt.Fprintf(out, "\nData saved for RAG chatbot in: %s\n", outputPath)
	}

	if store != nil {
		if err := recordRun(store, run.RunID, result, outputPath); err != nil {
			log.Error("Failed to record run history", logger.Err(err))
		}
	}

	return errors.Join(crawlErr, saveErr)
}

// recordRun stores the failures and the summary of a finished run.
func recordRun(store *history.RunStore, runID uuid.UUID, result *crawl.Result, outputPath string) error {
	failures := make([]history.Failure, 0, len(result.Failures))
	for _, f := range result.Failures {
		failures = append(failures, history.Failure{
			URL:     f.URL,
			Kind:    string(f.Kind),
			Message: f.Err.Error(),
		})
	}
	if err := store.RecordFailures(runID, failures); err != nil {
		return err
	}

	return store.FinishRun(runID, history.Summary{
		Pages:      result.PagesScraped,
		Links:      result.LinksFound,
		Articles:   len(result.Articles),
		Failures:   len(result.Failures),
		OutputPath: outputPath,
	})
}

// printSummary prints the article count and the first few articles.
func printSummary(out io.Writer, articles []discovery.ArticleRecord) {
	fmt.Fprintf(out, "\nTotal articles scraped: %d\n", len(articles))
	if len(articles) == 0 {
		return
	}

	fmt.Fprintln(out, "\nSample of scraped articles:")
	for _, article := range articles[:min(sampleSize, len(articles))] {
		date := "-"
		if article.Date != nil {
			date = *article.Date
		}

		fmt.Fprintf(out, "Title: %s\n", article.Title)
		fmt.Fprintf(out, "URL: %s\n", article.URL)
		fmt.Fprintf(out, "Date: %s\n", date)
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(article.Tags, ", "))
		fmt.Fprintf(out, "Content Preview: %s...\n", preview(article.Content, previewLength))
		fmt.Fprintln(out, strings.Repeat("-", 50))
	}
}

// preview returns at most n runes of s.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
