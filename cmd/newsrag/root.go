package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pevans/newsrag/config"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
}

// loadConfig resolves defaults, the config file and the environment, then
// applies --log-level.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "newsrag",
		Short: "Scrape news articles into a RAG-ready JSON corpus",
		Long: `newsrag crawls the paginated bisnis.com "tips keuangan" topic listing,
extracts every linked article and writes them as JSON documents for a
retrieval-augmented chatbot.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default is ~/.newsrag/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"log level: debug, info, warn or error (NEWSRAG_LOG_LEVEL)")

	cmd.AddCommand(
		newCrawlCmd(opts),
		newHistoryCmd(opts),
		newInitCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "newsrag version %s\n", version)
			},
		},
	)

	return cmd
}

// Execute runs the root command. Interrupts cancel the context so a running
// crawl stops and still saves what it collected.
func Execute() error {
	// Load .env early so NEWSRAG_* variables are visible to config.Load
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}
