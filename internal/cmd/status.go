package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/harrison/specgate/internal/display"
)

// NewStatusCommand creates and returns the status subcommand
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <spec-file>",
		Short: "Show recorded pipeline state for a spec document",
		Long: `Print which pipeline stages have run for the document, their
timestamps and finding counts, and the accumulated issue total.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args[0], cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	return cmd
}

func runStatus(cmd *cobra.Command, file string, output io.Writer) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	st, recovered, err := e.states.Read(file)
	if err != nil {
		return err
	}
	if recovered {
		display.Warning{
			Title:      "State file was corrupted and has been reset",
			Files:      []string{e.states.Path(file)},
			Suggestion: "Re-run the pipeline stages to rebuild the document's state",
		}.Display(output)
	}

	fmt.Fprintf(output, "Pipeline state for %s\n\n", filepath.Base(file))

	if len(st.Commands) == 0 {
		fmt.Fprintf(output, "  no stages recorded yet\n")
		return nil
	}

	names := make([]string, 0, len(st.Commands))
	for name := range st.Commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rec := st.Commands[name]
		total := 0
		for _, list := range rec.Findings {
			total += len(list)
		}
		fmt.Fprintf(output, "  %-12s %s  %d finding(s)\n", name, rec.Timestamp, total)
		for _, field := range sortedFields(rec.Findings) {
			for _, item := range rec.Findings[field] {
				fmt.Fprintf(output, "    - %s: %s\n", field, item)
			}
		}
	}

	issues, err := e.states.AccumulatedIssues(file)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "\nLast command: %s (%s)\n", st.LastCommand, st.LastUpdated)
	fmt.Fprintf(output, "Accumulated issues: %d\n", issues)
	return nil
}

func sortedFields(findings map[string][]string) []string {
	fields := make([]string, 0, len(findings))
	for field := range findings {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
