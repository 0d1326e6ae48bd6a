package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/specgate/internal/display"
	"github.com/harrison/specgate/internal/document"
	"github.com/harrison/specgate/internal/fileutil"
	"github.com/harrison/specgate/internal/history"
	"github.com/harrison/specgate/internal/rules"
	"github.com/harrison/specgate/internal/state"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec-file-or-directory>...",
		Short: "Run the structural checks against one or more spec files",
		Long: `Evaluate each spec document against the built-in check registry:
  - Problem statement present
  - Success criteria present
  - Minimum length
  - Scope boundaries stated (warning)
  - Testing mentioned (warning)
  - Vague-term density (warning)

Blocking failures fail the run; warnings are reported but never block.
Findings are recorded in the document's pipeline state.

Exit code: 0 if every document passes, 1 otherwise`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	return cmd
}

func runValidate(cmd *cobra.Command, args []string, output io.Writer) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	files, err := fileutil.CollectSpecFiles(args)
	if err != nil {
		return err
	}

	engine := rules.NewEngine(rules.BuiltinChecks(rules.CheckOptions{
		MinWords:           e.cfg.MinWords,
		VagueTermThreshold: e.cfg.VagueTermThreshold,
		ExtraVagueTerms:    e.cfg.ExtraVagueTerms,
	}))

	progress := display.NewProgressIndicator(output, len(files))
	if len(files) > 1 {
		progress.Start()
	}

	failed := 0
	for _, file := range files {
		if len(files) > 1 {
			progress.Step(file)
		} else {
			fmt.Fprintf(output, "Checking spec %s\n", filepath.Base(file))
		}

		doc, err := document.Load(file)
		if err != nil {
			return err
		}

		report := engine.Evaluate(doc, output)
		fmt.Fprintf(output, "\n%d violation(s), %d warning(s)\n",
			len(report.Violations), len(report.Warnings))

		if err := e.states.Update(file, "validate", state.Findings{
			"ambiguity_flags": report.WarningNames(),
			"violations":      report.ViolationNames(),
		}); err != nil {
			return fmt.Errorf("record validate findings: %w", err)
		}

		e.recordHistory(history.Run{
			Document:   filepath.Base(file),
			Command:    "validate",
			Violations: len(report.Violations),
			Warnings:   len(report.Warnings),
			Passed:     report.OverallPass,
		})

		if report.OverallPass {
			fmt.Fprintf(output, "\x1b[32m✓\x1b[0m %s passed\n\n", filepath.Base(file))
		} else {
			fmt.Fprintf(output, "\x1b[31m✗\x1b[0m %s failed\n\n", filepath.Base(file))
			failed++
		}
	}

	if len(files) > 1 {
		progress.Complete()
	}

	if failed > 0 {
		return fmt.Errorf("validation failed for %d of %d spec file(s)", failed, len(files))
	}
	return nil
}
