// Package cmd wires the specgate CLI: one cobra subcommand per pipeline
// stage plus read-only query commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/specgate/internal/config"
	"github.com/harrison/specgate/internal/history"
	"github.com/harrison/specgate/internal/logger"
	"github.com/harrison/specgate/internal/state"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for specgate
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specgate",
		Short: "Deterministic linter and pipeline gate for spec documents",
		Long: `Specgate lints specification documents (Markdown) against a fixed
registry of structural checks and tracks per-document pipeline progress
in a file-backed state store.

Each invocation runs one pipeline stage (validate, stress-test) and
records its findings; downstream stages query the recorded state to
decide whether to proceed.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", config.DefaultPath, "path to the specgate config file")

	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewStressTestCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}

// env bundles the stores and logger a stage command needs.
type env struct {
	cfg    *config.Config
	log    *logger.ConsoleLogger
	states *state.Store
}

// loadEnv builds the command environment from the --config flag.
func loadEnv(cmd *cobra.Command) (*env, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path = config.DefaultPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.NewConsoleLogger(os.Stderr, cfg.LogLevel)
	return &env{
		cfg:    cfg,
		log:    log,
		states: state.NewStore(cfg.StateDir, nil, log),
	}, nil
}

// recordHistory appends a run to the history database. History is advisory:
// a failure to open or write it is logged, never allowed to fail the stage.
func (e *env) recordHistory(run history.Run) {
	store, err := history.NewStore(e.cfg.HistoryDB)
	if err != nil {
		e.log.Warnf("history database unavailable: %v", err)
		return
	}
	defer store.Close()

	if _, err := store.RecordRun(run); err != nil {
		e.log.Warnf("failed to record run: %v", err)
	}
}
