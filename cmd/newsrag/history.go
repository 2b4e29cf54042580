package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pevans/newsrag/history"
	"github.com/spf13/cobra"
)

const (
	defaultHistoryLimit = 20
	historyTimeLayout   = "2006-01-02 15:04:05"
)

var errHistoryDisabled = errors.New("run history is disabled; set history.dsn, NEWSRAG_HISTORY_DSN or --history")

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		historyDSN string
		limit      int
		runID      string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded crawl runs or the failures of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("history") {
				cfg.HistoryDSN = historyDSN
			}
			if cfg.HistoryDSN == "" {
				return errHistoryDisabled
			}

			store, err := history.NewRunStore(cfg.HistoryDSN)
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if runID == "" {
				runs, err := store.ListRuns(limit)
				if err != nil {
					return err
				}
				renderRuns(out, runs)
				return nil
			}

			id, err := uuid.Parse(runID)
			if err != nil {
				return fmt.Errorf("invalid run ID %q: %w", runID, err)
			}
			run, err := store.GetRun(id)
			if err != nil {
				return err
			}
			failures, err := store.ListFailures(id)
			if err != nil {
				return err
			}
			renderFailures(out, run, failures)
			return nil
		},
	}

	cmd.Flags().StringVar(&historyDSN, "history", "", "SQLite run history database (NEWSRAG_HISTORY_DSN)")
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "show the failures of this run")

	return cmd
}

// renderRuns prints the runs newest first.
func renderRuns(out io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Run ID", "Started", "Finished", "Pages", "Links", "Articles", "Failures", "Output"})

	for _, run := range runs {
		finished := "running"
		if run.FinishedAt != nil {
			finished = formatLocal(*run.FinishedAt)
		}
		output := "-"
		if run.OutputPath != nil {
			output = *run.OutputPath
		}

		t.AppendRow(table.Row{
			run.RunID.String(),
			formatLocal(run.StartedAt),
			finished,
			run.Pages,
			run.Links,
			run.Articles,
			run.Failures,
			output,
		})
	}

	t.AppendFooter(table.Row{"Total", len(runs)})
	t.Render()
}

// renderFailures prints the failures recorded for one run.
func renderFailures(out io.Writer, run *history.Run, failures []history.Failure) {
	fmt.Fprintf(out, "Run %s started %s: %d articles, %d failures\n",
		run.RunID, formatLocal(run.StartedAt), run.Articles, run.Failures)

	if len(failures) == 0 {
		fmt.Fprintln(out, "No failures recorded.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Kind", "URL", "Error"})

	for i, f := range failures {
		t.AppendRow(table.Row{i + 1, f.Kind, f.URL, f.Message})
	}

	t.Render()
}

func formatLocal(t time.Time) string {
	return t.Local().Format(historyTimeLayout)
}
