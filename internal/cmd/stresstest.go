package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/specgate/internal/document"
	"github.com/harrison/specgate/internal/fileutil"
	"github.com/harrison/specgate/internal/history"
	"github.com/harrison/specgate/internal/rules"
	"github.com/harrison/specgate/internal/state"
)

// NewStressTestCommand creates and returns the stress-test subcommand
func NewStressTestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress-test <spec-file-or-directory>...",
		Short: "Probe the structural integrity of spec documents",
		Long: `Walk each document's heading structure and probe for weaknesses the
text-level checks cannot see:
  - Required sections that exist as mentions but not as headings
  - Required sections whose bodies are empty
  - Unresolved TODO/TBD/FIXME/XXX markers

Findings are recorded as invariant violations and critical blockers in
the document's pipeline state.

Exit code: 0 if no findings, 1 otherwise`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStressTest(cmd, args, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	return cmd
}

func runStressTest(cmd *cobra.Command, args []string, output io.Writer) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	files, err := fileutil.CollectSpecFiles(args)
	if err != nil {
		return err
	}

	failed := 0
	for _, file := range files {
		fmt.Fprintf(output, "Stress-testing %s\n", filepath.Base(file))

		doc, err := document.Load(file)
		if err != nil {
			return err
		}

		report := rules.StressTest(doc, output)
		fmt.Fprintf(output, "\n%d invariant violation(s), %d critical blocker(s)\n",
			len(report.InvariantViolations), len(report.CriticalBlockers))

		if err := e.states.Update(file, "stress-test", state.Findings{
			"invariant_violations": report.InvariantViolations,
			"critical_blockers":    report.CriticalBlockers,
		}); err != nil {
			return fmt.Errorf("record stress-test findings: %w", err)
		}

		e.recordHistory(history.Run{
			Document:   filepath.Base(file),
			Command:    "stress-test",
			Violations: len(report.InvariantViolations) + len(report.CriticalBlockers),
			Passed:     report.Pass(),
		})

		if report.Pass() {
			fmt.Fprintf(output, "\x1b[32m✓\x1b[0m %s survived\n\n", filepath.Base(file))
		} else {
			fmt.Fprintf(output, "\x1b[31m✗\x1b[0m %s has structural weaknesses\n\n", filepath.Base(file))
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("stress test failed for %d of %d spec file(s)", failed, len(files))
	}
	return nil
}
