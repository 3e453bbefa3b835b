// =============================================================================
// POS Migrator - Run Command
// =============================================================================
//
// This file defines the 'run' command, the main command of the migrator. It
// drives every stage of a migration from the uploaded exports to the final
// reconciliation.
//
// COMMAND USAGE:
//   migrator run [flags]
//
// FLAGS:
//   --dry-run       : Run every stage against an in-memory store
//   --skip          : Optional stages to skip (employees, vehicles,
//                     transactions, loyalty)
//   --include-tier3 : Also import email-only customers
//   --archive       : Move the exports to the archive when the run succeeds
//   --run-id        : Reuse a run identifier (default: a new UUID)
//
// PROCESSING PIPELINE:
//   1. Load the configuration and the operator rules
//   2. Parse the exports in the input directory
//   3. Open the store
//   4. Run the stages in order, skipping the ones the operator named
//   5. Print the summary and write the YAML report
//   6. Write an error log when any stage reported errors
//   7. Archive the exports (only with --archive and a finished run)
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/config"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/migration"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/plan"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/report"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/store"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/types"
	"github.com/nayeem-1786/AutoDetailApp-sub001/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun runs every stage against an in-memory store.
var dryRun bool

// skipStages names the optional stages to skip.
var skipStages []string

// includeTier3 imports email-only customers.
var includeTier3 bool

// archiveInputs moves the exports to the archive after a finished run.
var archiveInputs bool

// runID overrides the generated run identifier.
var runID string

// =============================================================================
// RUN COMMAND DEFINITION
// =============================================================================

// runCmd represents the 'run' command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Migrate the POS exports into the store",
	Long: `The run command imports the exports found in the input directory into the
configured store, one stage at a time, and finishes with a reconciliation of
the store against the exports.

Stages run in order. A stage that fails stops the run; optional stages whose
exports were not uploaded must be skipped explicitly with --skip.

On a finished run:
  - The summary is printed and the YAML report is written to the report
    directory
  - With --archive, the exports are moved to the archive directory

On failure:
  - The report is still written, with the failing stage marked as error
  - An error log is written to the report directory
  - The exports stay in the input directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runMigration(ctx, cmd)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the run command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Run every stage against an in-memory store",
	)

	runCmd.Flags().StringSliceVar(
		&skipStages,
		"skip",
		nil,
		"Optional stages to skip (comma separated)",
	)

	runCmd.Flags().BoolVar(
		&includeTier3,
		"include-tier3",
		false,
		"Also import customers reachable only by email",
	)

	runCmd.Flags().BoolVar(
		&archiveInputs,
		"archive",
		false,
		"Move the exports to the archive directory after a finished run",
	)

	runCmd.Flags().StringVar(
		&runID,
		"run-id",
		"",
		"Run identifier stamped on every record (default: a new UUID)",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runMigration orchestrates one migration run.
func runMigration(ctx context.Context, cmd *cobra.Command) error {
	startTime := time.Now()
	cfg := mainConfig
	out := cmd.OutOrStdout()

	// =========================================================================
	// STEP 1: Load the operator rules and resolve the flags
	// =========================================================================
	fmt.Fprintln(out, "=== Loading Configuration ===")

	rules, err := loadRules(cfg)
	if err != nil {
		return err
	}

	skip, err := parseSkip(skipStages)
	if err != nil {
		return err
	}

	tier3 := cfg.Migration.IncludeTier3 || includeTier3
	fmt.Fprintf(out, "Input directory: %s\n", cfg.Input.Dir)
	fmt.Fprintf(out, "Include tier 3:  %t\n", tier3)

	// =========================================================================
	// STEP 2: Parse the exports
	// =========================================================================
	fmt.Fprintln(out, "\n=== Reading Exports ===")

	src, err := plan.Load(cfg.Input)
	if err != nil {
		return err
	}
	for _, e := range plan.Exports {
		if path, ok := src.Files[e]; ok {
			fmt.Fprintf(out, "  %-13s %s\n", e, path)
		} else {
			fmt.Fprintf(out, "  %-13s (not uploaded)\n", e)
		}
	}

	// =========================================================================
	// STEP 3: Open the store
	// =========================================================================
	s, storeName, closeStore, err := openStore(cfg, dryRun)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	opts, err := validationOptions(cfg)
	if err != nil {
		return err
	}

	stages := migration.NewStages(migration.Config{
		Planner:    plan.NewPlanner(rules, tier3),
		Source:     src,
		Store:      s,
		BatchSize:  cfg.Migration.BatchSize,
		Progress:   logProgress,
		Validation: opts,
		RunID:      runID,
		Logger:     logger,
	})

	// =========================================================================
	// STEP 4: Run the stages
	// =========================================================================
	fmt.Fprintf(out, "\n=== Migrating (run %s, store %s) ===\n", stages.RunID(), storeName)

	results, runErr := stages.NewOrchestrator().RunAll(ctx, skip)
	if runErr != nil {
		logger.Error("migration stopped", zap.Error(runErr))
	}

	// =========================================================================
	// STEP 5: Print the summary and write the report
	// =========================================================================
	run := &report.Run{
		RunID:      stages.RunID(),
		StartedAt:  startTime,
		FinishedAt: time.Now(),
		DryRun:     dryRun,
		Store:      storeName,
		Stages:     results,
		Validation: stages.Report(),
	}
	if runErr != nil {
		run.Errors = append(run.Errors, runErr.Error())
	}

	fmt.Fprintln(out, "\n=== Summary ===")
	if err := report.WriteText(out, run); err != nil {
		return err
	}

	reportPath, err := report.Write(run, cfg.ReportDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nReport written to %s\n", reportPath)

	// =========================================================================
	// STEP 6: Write the error log
	// =========================================================================
	logPath, err := utils.WriteErrorLog(errorEntries(run), cfg.ReportDir)
	if err != nil {
		logger.Warn("failed to write error log", zap.Error(err))
	} else if logPath != "" {
		fmt.Fprintf(out, "Error log written to %s\n", logPath)
	}

	if runErr != nil {
		return runErr
	}

	// =========================================================================
	// STEP 7: Archive the exports
	// =========================================================================
	if archiveInputs && !dryRun {
		if err := archiveExports(cfg, src); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exports archived to %s\n", cfg.ArchiveDir)
	}

	return nil
}

// parseSkip turns the --skip values into a stage set.
func parseSkip(names []string) (map[types.StageName]bool, error) {
	skip := make(map[types.StageName]bool, len(names))
	for _, n := range names {
		stage, err := types.ParseStage(n)
		if err != nil {
			return nil, err
		}
		skip[stage] = true
	}
	return skip, nil
}

// logProgress reports batch progress at debug level.
func logProgress(entity store.Entity, done, total int) {
	logger.Debug("batch written",
		zap.String("entity", string(entity)),
		zap.Int("done", done),
		zap.Int("total", total))
}

// errorEntries collects every stage and run error for the error log.
func errorEntries(run *report.Run) []utils.ErrorLogEntry {
	var entries []utils.ErrorLogEntry
	for _, s := range run.Stages {
		if s.Status == types.StatusError && len(s.Errors) == 0 {
			entries = append(entries, utils.ErrorLogEntry{Timestamp: run.FinishedAt, Stage: string(s.Stage), Message: s.Message})
		}
		for _, e := range s.Errors {
			entries = append(entries, utils.ErrorLogEntry{Timestamp: run.FinishedAt, Stage: string(s.Stage), Message: e})
		}
	}
	for _, e := range run.Errors {
		entries = append(entries, utils.ErrorLogEntry{Timestamp: run.FinishedAt, Stage: "run", Message: e})
	}
	return entries
}

// archiveExports moves every uploaded export to the archive directory.
func archiveExports(cfg *config.MainConfig, src *plan.Source) error {
	fm := utils.NewFileManager(cfg.ReportDir, cfg.ArchiveDir)
	fm.UseTimestampSubdirs = true
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	paths := make([]string, 0, len(src.Files))
	for _, path := range src.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	archived, err := fm.ArchiveInputFiles(paths)
	for _, p := range archived {
		logger.Info("export archived", zap.String("path", p))
	}
	if err != nil {
		return fmt.Errorf("failed to archive exports: %w", err)
	}
	return nil
}
