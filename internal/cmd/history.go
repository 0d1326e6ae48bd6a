package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrison/specgate/internal/history"
)

// NewHistoryCommand creates and returns the history subcommand
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [document]",
		Short: "List recorded pipeline runs",
		Long: `List past stage executions from the run-history database, newest
first. With a document argument, only that document's runs are shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			document := ""
			if len(args) == 1 {
				document = args[0]
			}
			return runHistory(cmd, document, limit, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, document string, limit int, output io.Writer) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	store, err := history.NewStore(e.cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(document, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintf(output, "no runs recorded\n")
		return nil
	}

	for _, run := range runs {
		verdict := "\x1b[32mpass\x1b[0m"
		if !run.Passed {
			verdict = "\x1b[31mfail\x1b[0m"
		}
		fmt.Fprintf(output, "%s  %-12s %-24s %s  %d violation(s), %d warning(s)\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"), run.Command, run.Document,
			verdict, run.Violations, run.Warnings)
	}

	if document != "" {
		stats, err := store.Stats(document)
		if err != nil {
			return err
		}
		fmt.Fprintf(output, "\n%d run(s), %d passed\n", stats.TotalRuns, stats.PassedRuns)
	}
	return nil
}
